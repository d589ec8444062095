package sim

import (
	"fmt"
	"sort"

	"github.com/l1jgo/entreri/internal/core/task"
)

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseClock      Phase = iota // 0: report elapsed time
	PhasePreUpdate               // 1: scripted input
	PhaseUpdate                  // 2: movement and scripted logic
	PhasePostUpdate              // 3: expiry
	PhaseReport                  // 4: statistics
)

var phaseNames = map[string]Phase{
	"clock":       PhaseClock,
	"pre_update":  PhasePreUpdate,
	"update":      PhaseUpdate,
	"post_update": PhasePostUpdate,
	"report":      PhaseReport,
}

// ParsePhase maps a phase name used by scripts to its Phase.
func ParsePhase(name string) (Phase, error) {
	p, ok := phaseNames[name]
	if !ok {
		return 0, fmt.Errorf("unknown phase %q", name)
	}
	return p, nil
}

type entry struct {
	phase Phase
	task  task.Task
}

// Pipeline collects tasks by phase and builds them into one job, ordered by
// phase and then by registration.
type Pipeline struct {
	entries []entry
}

func NewPipeline() *Pipeline {
	return &Pipeline{entries: make([]entry, 0, 16)}
}

func (p *Pipeline) Register(phase Phase, t task.Task) {
	p.entries = append(p.entries, entry{phase: phase, task: t})
}

// Tasks returns the registered tasks in run order.
func (p *Pipeline) Tasks() []task.Task {
	sorted := make([]entry, len(p.entries))
	copy(sorted, p.entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].phase < sorted[j].phase
	})
	out := make([]task.Task, len(sorted))
	for i, e := range sorted {
		out[i] = e.task
	}
	return out
}

// Build creates the tick job on s.
func (p *Pipeline) Build(s *task.Scheduler, name string) (*task.Job, error) {
	return s.CreateJob(name, p.Tasks()...)
}
