package task

import (
	"time"

	"github.com/l1jgo/entreri/internal/core/ecs"
)

// ElapsedTime reports the time step for the current job run.
type ElapsedTime struct {
	Delta time.Duration
}

func (ElapsedTime) Singleton() bool { return true }

// Seconds returns the step in seconds.
func (e ElapsedTime) Seconds() float64 { return e.Delta.Seconds() }

// FixedDelta returns a task that reports the same ElapsedTime on every run.
func FixedDelta(dt time.Duration) Task {
	return &fixedDeltaTask{delta: ElapsedTime{Delta: dt}}
}

// MeasuredDelta returns a task that reports the wall time since its previous
// run, and zero on its first run.
func MeasuredDelta() Task {
	return &measuredDeltaTask{now: time.Now}
}

type fixedDeltaTask struct {
	delta ElapsedTime
}

func (t *fixedDeltaTask) Access() Access            { return Access{} }
func (t *fixedDeltaTask) Reset(_ *ecs.EntitySystem) {}

func (t *fixedDeltaTask) Process(_ *ecs.EntitySystem, job *Job) (Task, error) {
	return nil, job.Report(t.delta)
}

type measuredDeltaTask struct {
	now       func() time.Time
	lastStart time.Time
}

func (t *measuredDeltaTask) Access() Access            { return Access{} }
func (t *measuredDeltaTask) Reset(_ *ecs.EntitySystem) {}

func (t *measuredDeltaTask) Process(_ *ecs.EntitySystem, job *Job) (Task, error) {
	now := t.now()
	var dt time.Duration
	if !t.lastStart.IsZero() {
		dt = now.Sub(t.lastStart)
	}
	t.lastStart = now
	return nil, job.Report(ElapsedTime{Delta: dt})
}
