package ecs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	testPosition = NewComponentType("test.Position")
	posX         = DefineValue(testPosition, "x", Values[float64](1, 0))
	posY         = DefineValue(testPosition, "y", Values[float64](1, 0))

	testVector = NewComponentType("test.Vector")
	vecXYZ     = DefineValue(testVector, "xyz", Values[float32](3, 1))

	testTags = NewComponentType("test.Tags")
	tagList  = DefineList(testTags, "tags", Lists[string]())

	testSecret  = NewComponentType("test.Secret")
	secretValue = DefineValue(testSecret, "value", Values[int32](1, -1).WithPolicy(CloneDisabled))
	secretName  = DefineValue(testSecret, "name", Values[string](1, "anon"))
)

func requireIndexPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		require.ErrorIs(t, err, ErrIndexOutOfRange)
	}()
	fn()
}

func newPositioned(t *testing.T, s *EntitySystem, x, y float64) (Entity, Component) {
	t.Helper()
	e := s.AddEntity()
	c, err := e.Add(testPosition)
	require.NoError(t, err)
	posX.In(c).Set(c.Index(), x)
	posY.In(c).Set(c.Index(), y)
	return e, c
}

// repositoryInvariant checks componentIndex[entityIndex[c]] == c for every live slot.
func repositoryInvariant(t *testing.T, r *ComponentRepository) {
	t.Helper()
	live := 0
	for c := 1; c < r.size; c++ {
		e := r.entityIndex[c]
		if e == 0 {
			continue
		}
		live++
		require.Equal(t, uint32(c), r.componentIndex[e], "slot %d", c)
	}
	require.Equal(t, r.live, live)
	require.Zero(t, r.entityIndex[0])
	require.Zero(t, r.ids[0])
}
