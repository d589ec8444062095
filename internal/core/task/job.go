package task

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/l1jgo/entreri/internal/core/ecs"
)

// SystemLockName names the system-wide lock in LockSpec.
const SystemLockName = "entity-system"

type LockMode int

const (
	LockRead LockMode = iota
	LockWrite
)

func (m LockMode) String() string {
	if m == LockWrite {
		return "write"
	}
	return "read"
}

// LockSpec describes one lock of a job's lock set.
type LockSpec struct {
	Name string
	Mode LockMode
}

func (l LockSpec) String() string { return l.Name + "-" + l.Mode.String() }

// State is a job's position in its run cycle.
type State int32

const (
	StateIdle State = iota
	StateLocking
	StateRunning
	StateUnlocking
	StateChained
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLocking:
		return "locking"
	case StateRunning:
		return "running"
	case StateUnlocking:
		return "unlocking"
	case StateChained:
		return "chained"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

type jobLock struct {
	spec   LockSpec
	locker sync.Locker
}

// Job is an ordered list of tasks run as one unit under a lock set computed
// when the job is created. Tasks run strictly in order on the calling
// goroutine.
type Job struct {
	name      string
	scheduler *Scheduler
	tasks     []Task
	locks     []jobLock
	exclusive bool
	results   *dispatcher

	runMu      sync.Mutex // serializes runs of this job
	state      atomic.Int32
	taskIndex  int
	singletons map[reflect.Type]struct{}
}

func newJob(name string, s *Scheduler, tasks []Task) (*Job, error) {
	if name == "" {
		return nil, fmt.Errorf("create job: %w: empty name", ecs.ErrIllegalArgument)
	}
	j := &Job{
		name:       name,
		scheduler:  s,
		tasks:      make([]Task, len(tasks)),
		results:    newDispatcher(),
		taskIndex:  -1,
		singletons: make(map[reflect.Type]struct{}),
	}

	written := make(map[*ecs.ComponentType]struct{})
	read := make(map[*ecs.ComponentType]struct{})
	for i, t := range tasks {
		if t == nil {
			return nil, fmt.Errorf("create job %s: %w: task %d is nil", name, ecs.ErrIllegalArgument, i)
		}
		j.tasks[i] = t

		access := t.Access()
		j.exclusive = j.exclusive || access.EntitySetModified
		for _, typ := range access.Modified {
			if typ == nil {
				return nil, fmt.Errorf("create job %s: %w: task %d writes a nil type", name, ecs.ErrIllegalArgument, i)
			}
			// a written type can no longer be read-only
			delete(read, typ)
			written[typ] = struct{}{}
		}
		for _, typ := range access.ReadOnly {
			if typ == nil {
				return nil, fmt.Errorf("create job %s: %w: task %d reads a nil type", name, ecs.ErrIllegalArgument, i)
			}
			if _, ok := written[typ]; !ok {
				read[typ] = struct{}{}
			}
		}

		if rr, ok := t.(ResultReceiver); ok {
			for _, r := range rr.Receivers() {
				j.results.add(r)
			}
		}
	}

	// the system lock always comes first
	if j.exclusive {
		j.locks = append(j.locks, jobLock{LockSpec{SystemLockName, LockWrite}, &s.systemLock})
	} else {
		j.locks = append(j.locks, jobLock{LockSpec{SystemLockName, LockRead}, s.systemLock.RLocker()})
	}

	// Type locks are taken in one global order regardless of mode, so no two
	// jobs can wait on each other.
	types := make([]*ecs.ComponentType, 0, len(written)+len(read))
	for typ := range written {
		types = append(types, typ)
	}
	for typ := range read {
		types = append(types, typ)
	}
	slices.SortFunc(types, (*ecs.ComponentType).Compare)
	for _, typ := range types {
		// create declared repositories now rather than from inside a run
		s.system.Repository(typ)

		mode := LockRead
		if _, ok := written[typ]; ok {
			mode = LockWrite
		}
		j.locks = append(j.locks, jobLock{LockSpec{typ.Name(), mode}, s.typeLock(typ)})
	}
	return j, nil
}

func (j *Job) Name() string          { return j.name }
func (j *Job) Scheduler() *Scheduler { return j.scheduler }
func (j *Job) Exclusive() bool       { return j.exclusive }
func (j *Job) State() State          { return State(j.state.Load()) }
func (j *Job) setState(s State)      { j.state.Store(int32(s)) }
func (j *Job) String() string        { return fmt.Sprintf("Job(%s, # tasks=%d)", j.name, len(j.tasks)) }
func (j *Job) Tasks() []Task         { return slices.Clone(j.tasks) }

// Locks returns the lock set in acquisition order.
func (j *Job) Locks() []LockSpec {
	out := make([]LockSpec, len(j.locks))
	for i, l := range j.locks {
		out[i] = l.spec
	}
	return out
}

// Run executes the job, then any follow-up jobs built from the tasks it
// returned, until no follow-up remains. A task error aborts the remaining
// tasks; locks are released on every exit path, panics included.
func (j *Job) Run() error {
	for job := j; job != nil; {
		next, err := job.runOnce()
		if err != nil {
			return err
		}
		job = next
	}
	return nil
}

func (j *Job) runOnce() (next *Job, err error) {
	j.runMu.Lock()
	defer j.runMu.Unlock()

	j.setState(StateLocking)
	for _, l := range j.locks {
		l.locker.Lock()
	}
	defer func() {
		j.setState(StateUnlocking)
		j.taskIndex = -1
		for i := len(j.locks) - 1; i >= 0; i-- {
			j.locks[i].locker.Unlock()
		}
		if next != nil {
			j.setState(StateChained)
		} else {
			j.setState(StateIdle)
		}
	}()

	j.setState(StateRunning)
	clear(j.singletons)
	sys := j.scheduler.system
	for _, t := range j.tasks {
		t.Reset(sys)
	}

	var postProcess []Task
	for i, t := range j.tasks {
		j.taskIndex = i
		after, err := t.Process(sys, j)
		if err != nil {
			return nil, fmt.Errorf("job %s: task %d: %w", j.name, i, err)
		}
		if after != nil {
			postProcess = append(postProcess, after)
		}
	}
	// report is only legal while a task runs
	j.taskIndex = -1

	if len(postProcess) == 0 {
		return nil, nil
	}
	return newJob(j.name+"-postprocess", j.scheduler, postProcess)
}

// Report delivers r to every receiver registered for its type, or for an
// interface it implements, in task order. It may only be called by a task
// while the job is processing it.
func (j *Job) Report(r Result) error {
	if r == nil {
		return fmt.Errorf("report: %w: nil result", ecs.ErrIllegalArgument)
	}
	if j.taskIndex < 0 {
		return fmt.Errorf("report %T: %w: job %s is not running a task", r, ecs.ErrIllegalState, j.name)
	}
	if r.Singleton() {
		typ := reflect.TypeOf(r)
		if _, dup := j.singletons[typ]; dup {
			return fmt.Errorf("report %T: %w: singleton already reported during %s", r, ecs.ErrIllegalState, j.name)
		}
		j.singletons[typ] = struct{}{}
	}
	j.results.dispatch(r)
	return nil
}
