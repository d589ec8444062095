package sim

import (
	"maps"
	"slices"

	"github.com/l1jgo/entreri/internal/core/ecs"
	"github.com/l1jgo/entreri/internal/core/task"
	"go.uber.org/zap"
)

// Stats is a per-run snapshot of the entity system's population.
type Stats struct {
	Entities   int
	Components map[string]int
}

func (Stats) Singleton() bool { return true }

// StatsTask reports Stats for the given component types.
type StatsTask struct {
	types []*ecs.ComponentType
}

func NewStatsTask(types ...*ecs.ComponentType) *StatsTask {
	return &StatsTask{types: types}
}

func (t *StatsTask) Access() task.Access       { return task.Reads(t.types...) }
func (t *StatsTask) Reset(_ *ecs.EntitySystem) {}

func (t *StatsTask) Process(sys *ecs.EntitySystem, job *task.Job) (task.Task, error) {
	st := Stats{Entities: sys.EntityCount(), Components: make(map[string]int, len(t.types))}
	for _, typ := range t.types {
		st.Components[typ.Name()] = sys.Repository(typ).Len()
	}
	return nil, job.Report(st)
}

// LogTask logs the Stats of every n-th run.
type LogTask struct {
	log   *zap.Logger
	every int
	runs  int
	last  Stats
	seen  bool
}

func NewLogTask(log *zap.Logger, every int) *LogTask {
	if every < 1 {
		every = 1
	}
	return &LogTask{log: log, every: every}
}

func (t *LogTask) Access() task.Access { return task.Access{} }

func (t *LogTask) Receivers() []task.Receiver {
	return []task.Receiver{
		task.Receive(func(s Stats) { t.last, t.seen = s, true }),
	}
}

func (t *LogTask) Reset(_ *ecs.EntitySystem) { t.seen = false }

func (t *LogTask) Process(_ *ecs.EntitySystem, _ *task.Job) (task.Task, error) {
	t.runs++
	if !t.seen || t.runs%t.every != 0 {
		return nil, nil
	}
	fields := []zap.Field{zap.Int("run", t.runs), zap.Int("entities", t.last.Entities)}
	for _, name := range slices.Sorted(maps.Keys(t.last.Components)) {
		fields = append(fields, zap.Int(name, t.last.Components[name]))
	}
	t.log.Info("tick stats", fields...)
	return nil, nil
}
