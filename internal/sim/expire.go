package sim

import (
	"fmt"

	"github.com/l1jgo/entreri/internal/core/ecs"
	"github.com/l1jgo/entreri/internal/core/task"
)

// ExpireTask counts Lifetime down and removes entities whose lifetime ran
// out. Once at least compactAfter entities have been removed since the last
// compaction it schedules a CompactTask; zero disables compaction.
type ExpireTask struct {
	compactAfter int
	dt           float64
	removed      int
	expired      []ecs.Entity
}

func NewExpireTask(compactAfter int) *ExpireTask {
	return &ExpireTask{compactAfter: compactAfter}
}

func (t *ExpireTask) Access() task.Access { return task.Exclusive() }

func (t *ExpireTask) Receivers() []task.Receiver {
	return []task.Receiver{
		task.Receive(func(e task.ElapsedTime) { t.dt = e.Seconds() }),
	}
}

func (t *ExpireTask) Reset(_ *ecs.EntitySystem) { t.dt = 0 }

func (t *ExpireTask) Process(sys *ecs.EntitySystem, _ *task.Job) (task.Task, error) {
	repo := sys.Repository(Lifetime)
	remaining := Remaining.Of(repo)

	t.expired = t.expired[:0]
	repo.Each(func(c ecs.Component) {
		if !c.Enabled() {
			return
		}
		left := remaining.Get(c.Index()) - t.dt
		remaining.Set(c.Index(), left)
		if left <= 0 {
			t.expired = append(t.expired, c.Entity())
		}
	})
	for _, e := range t.expired {
		// an earlier removal may have taken e with it
		if !e.IsAlive() {
			continue
		}
		if err := sys.RemoveEntity(e); err != nil {
			return nil, fmt.Errorf("expire %s: %w", e, err)
		}
		t.removed++
	}

	if t.compactAfter > 0 && t.removed >= t.compactAfter {
		t.removed = 0
		return &CompactTask{}, nil
	}
	return nil, nil
}

// CompactTask compacts the entity system.
type CompactTask struct{}

func (*CompactTask) Access() task.Access       { return task.Exclusive() }
func (*CompactTask) Reset(_ *ecs.EntitySystem) {}

func (*CompactTask) Process(sys *ecs.EntitySystem, _ *task.Job) (task.Task, error) {
	sys.Compact()
	return nil, nil
}
