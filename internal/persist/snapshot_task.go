package persist

import (
	"github.com/l1jgo/entreri/internal/core/ecs"
	"github.com/l1jgo/entreri/internal/core/task"
	"go.uber.org/zap"
)

// SnapshotTask captures the listed types and hands the snapshot to out
// without blocking. The database write happens elsewhere, outside the job's
// locks; if the writer is still busy the snapshot is dropped.
type SnapshotTask struct {
	types []*ecs.ComponentType
	out   chan<- *Snapshot
	log   *zap.Logger
}

func NewSnapshotTask(out chan<- *Snapshot, log *zap.Logger, types ...*ecs.ComponentType) *SnapshotTask {
	return &SnapshotTask{types: types, out: out, log: log}
}

func (t *SnapshotTask) Access() task.Access       { return task.Reads(t.types...) }
func (t *SnapshotTask) Reset(_ *ecs.EntitySystem) {}

func (t *SnapshotTask) Process(sys *ecs.EntitySystem, _ *task.Job) (task.Task, error) {
	snap := Capture(sys, t.types)
	select {
	case t.out <- snap:
	default:
		t.log.Warn("snapshot dropped, writer busy", zap.Int("entities", snap.Entities))
	}
	return nil, nil
}
