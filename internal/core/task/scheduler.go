package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/l1jgo/entreri/internal/core/ecs"
	"go.uber.org/zap"
)

// ErrJobPanicked wraps panics recovered from jobs run in the background.
var ErrJobPanicked = errors.New("job panicked")

// Scheduler owns the locks that let jobs share one EntitySystem: a
// system-wide read/write lock, taken for writing by jobs that change the
// entity set, and one mutex per component type.
//
// Per-type locks are plain mutexes, so two jobs that only read the same type
// still serialize.
type Scheduler struct {
	system *ecs.EntitySystem
	log    *zap.Logger

	systemLock sync.RWMutex
	typeLocks  sync.Map // *ecs.ComponentType -> *sync.Mutex
}

func NewScheduler(system *ecs.EntitySystem, log *zap.Logger) (*Scheduler, error) {
	if system == nil {
		return nil, fmt.Errorf("new scheduler: %w: nil entity system", ecs.ErrIllegalArgument)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{system: system, log: log}, nil
}

func (s *Scheduler) System() *ecs.EntitySystem { return s.system }

// typeLock returns the lock for t. Concurrent first requests for the same
// type all get the lock that was stored first.
func (s *Scheduler) typeLock(t *ecs.ComponentType) *sync.Mutex {
	if l, ok := s.typeLocks.Load(t); ok {
		return l.(*sync.Mutex)
	}
	l, _ := s.typeLocks.LoadOrStore(t, new(sync.Mutex))
	return l.(*sync.Mutex)
}

// CreateJob analyzes tasks and returns a job bound to this scheduler.
func (s *Scheduler) CreateJob(name string, tasks ...Task) (*Job, error) {
	return newJob(name, s, tasks)
}

func (s *Scheduler) check(job *Job) error {
	if job == nil {
		return fmt.Errorf("%w: nil job", ecs.ErrIllegalArgument)
	}
	if job.scheduler != s {
		return fmt.Errorf("%w: job %s was created by a different scheduler", ecs.ErrIllegalArgument, job.name)
	}
	return nil
}

// RunOnCurrentThread runs job on the calling goroutine. Task errors are
// returned and task panics propagate.
func (s *Scheduler) RunOnCurrentThread(job *Job) error {
	if err := s.check(job); err != nil {
		return fmt.Errorf("run on current thread: %w", err)
	}
	return job.Run()
}

// RunOnSeparateThread runs job once on a new goroutine.
func (s *Scheduler) RunOnSeparateThread(job *Job) (*Handle, error) {
	if err := s.check(job); err != nil {
		return nil, fmt.Errorf("run on separate thread: %w", err)
	}
	name := "job-" + job.name
	return s.start(name, func(context.Context) error {
		return s.runSafely(job)
	}), nil
}

// RunEvery runs job repeatedly at a fixed rate, starting immediately. A run
// that overruns dt delays the next one instead of overlapping it. The first
// failing run stops the schedule; its error is returned by Handle.Wait.
// A zero dt runs back to back.
func (s *Scheduler) RunEvery(dt time.Duration, job *Job) (*Handle, error) {
	if err := s.check(job); err != nil {
		return nil, fmt.Errorf("run every: %w", err)
	}
	if dt < 0 {
		return nil, fmt.Errorf("run every: %w: negative interval %s", ecs.ErrIllegalArgument, dt)
	}
	if dt == 0 {
		return s.RunContinuously(job)
	}

	name := fmt.Sprintf("job-%s-every-%s", job.name, dt)
	return s.start(name, func(ctx context.Context) error {
		ticker := time.NewTicker(dt)
		defer ticker.Stop()
		for {
			if err := s.runSafely(job); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	}), nil
}

// RunContinuously runs job back to back until stopped or a run fails.
func (s *Scheduler) RunContinuously(job *Job) (*Handle, error) {
	if err := s.check(job); err != nil {
		return nil, fmt.Errorf("run continuously: %w", err)
	}

	name := fmt.Sprintf("job-%s-as-fast-as-possible", job.name)
	return s.start(name, func(ctx context.Context) error {
		for {
			if err := s.runSafely(job); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
		}
	}), nil
}

func (s *Scheduler) start(name string, loop func(context.Context) error) *Handle {
	s.log.Debug("job scheduled", zap.String("handle", name))
	return newHandle(name, loop, func(err error) {
		if err != nil {
			s.log.Error("scheduled job failed", zap.String("handle", name), zap.Error(err))
			return
		}
		s.log.Debug("scheduled job stopped", zap.String("handle", name))
	})
}

func (s *Scheduler) runSafely(job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = fmt.Errorf("%w: %s: %w", ErrJobPanicked, job.name, e)
			} else {
				err = fmt.Errorf("%w: %s: %v", ErrJobPanicked, job.name, r)
			}
		}
	}()
	return job.Run()
}
