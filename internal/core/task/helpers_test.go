package task

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/l1jgo/entreri/internal/core/ecs"
)

var (
	typeA = ecs.NewComponentType("test.A")
	typeB = ecs.NewComponentType("test.B")
	typeC = ecs.NewComponentType("test.C")
)

func init() {
	ecs.DefineValue(typeA, "v", ecs.Values[int](1, 0))
	ecs.DefineValue(typeB, "v", ecs.Values[int](1, 0))
	ecs.DefineValue(typeC, "v", ecs.Values[int](1, 0))
}

// funcTask adapts closures to Task.
type funcTask struct {
	access    Access
	receivers []Receiver
	process   func(sys *ecs.EntitySystem, job *Job) (Task, error)
	resets    int
}

func (t *funcTask) Access() Access            { return t.access }
func (t *funcTask) Reset(_ *ecs.EntitySystem) { t.resets++ }
func (t *funcTask) Receivers() []Receiver     { return t.receivers }

func (t *funcTask) Process(sys *ecs.EntitySystem, job *Job) (Task, error) {
	if t.process == nil {
		return nil, nil
	}
	return t.process(sys, job)
}

func newScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := NewScheduler(ecs.New(), zaptest.NewLogger(t))
	require.NoError(t, err)
	return s
}

type count struct{ n int }

func (count) Singleton() bool { return false }

type total struct{ n int }

func (total) Singleton() bool { return true }

// numeric is implemented by every result carrying a number.
type numeric interface {
	Result
	value() int
}

func (c count) value() int { return c.n }
func (t total) value() int { return t.n }
