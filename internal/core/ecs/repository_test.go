package ecs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRepositorySentinelAndGrowth(t *testing.T) {
	s := New()
	r := s.Repository(testPosition)
	require.Equal(t, initialRepositoryCapacity, r.Capacity())
	require.Equal(t, 1, r.SizeEstimate())

	var comps []Component
	for i := 0; i < 5; i++ {
		_, c := newPositioned(t, s, float64(i), 0)
		comps = append(comps, c)
	}
	for i, c := range comps {
		require.Equal(t, i+1, c.Index(), "real components start at slot 1")
	}
	require.Equal(t, 8, r.Capacity())
	prop, ok := r.Property("x")
	require.True(t, ok)
	require.Equal(t, 8, prop.Capacity())
	require.Equal(t, 5, r.Len())
	repositoryInvariant(t, r)
}

func TestRepositoryDefaultsOnAdd(t *testing.T) {
	s := New()
	e := s.AddEntity()
	c, err := e.Add(testVector)
	require.NoError(t, err)
	require.True(t, c.Enabled())
	p := vecXYZ.In(c)
	for o := 0; o < 3; o++ {
		require.Equal(t, float32(1), p.GetAt(c.Index(), o))
	}
}

func TestRepositoryRemoveReusesSlot(t *testing.T) {
	s := New()
	e1, c1 := newPositioned(t, s, 1, 1)
	_, c2 := newPositioned(t, s, 2, 2)
	r := s.Repository(testPosition)

	require.True(t, e1.Remove(testPosition))
	require.False(t, e1.Remove(testPosition))
	require.False(t, c1.IsValid())
	require.True(t, c2.IsValid())
	require.Equal(t, 1, r.Len())
	require.Equal(t, 0.0, posX.Of(r).Get(c1.Index()), "removed slot is reset to the default")

	_, c3 := newPositioned(t, s, 3, 3)
	require.Equal(t, c1.Index(), c3.Index(), "free slot is reused first")
	require.NotEqual(t, c1.ID(), c3.ID())
	require.False(t, c1.IsValid(), "stale handle stays invalid after slot reuse")
	repositoryInvariant(t, r)
}

func TestRepositoryAddReplaces(t *testing.T) {
	s := New()
	e, c1 := newPositioned(t, s, 1, 1)
	c2, err := e.Add(testPosition)
	require.NoError(t, err)
	require.False(t, c1.IsValid())
	require.True(t, c2.IsValid())
	require.Equal(t, 0.0, posX.In(c2).Get(c2.Index()))
	require.Equal(t, 1, s.Repository(testPosition).Len())
}

func TestRepositorySwapTwiceIsIdentity(t *testing.T) {
	s := New()
	var ents []Entity
	for i := 0; i < 6; i++ {
		e, _ := newPositioned(t, s, float64(i), float64(-i))
		ents = append(ents, e)
	}
	require.True(t, ents[2].Remove(testPosition))
	r := s.Repository(testPosition)

	snapshot := func() ([]uint32, []uint32, []uint64, []bool, []float64, []float64, []uint32) {
		return append([]uint32(nil), r.entityIndex...),
			append([]uint32(nil), r.componentIndex...),
			append([]uint64(nil), r.ids...),
			append([]bool(nil), r.enabled...),
			append([]float64(nil), posX.Of(r).Data()...),
			append([]float64(nil), posY.Of(r).Data()...),
			append([]uint32(nil), r.free...)
	}

	for _, pair := range [][2]int{{1, 4}, {2, 5}, {3, 3}, {6, 1}} {
		e1, c1, i1, en1, x1, y1, f1 := snapshot()
		r.Swap(pair[0], pair[1])
		repositoryInvariant(t, r)
		r.Swap(pair[0], pair[1])
		e2, c2, i2, en2, x2, y2, f2 := snapshot()
		require.Equal(t, e1, e2)
		require.Equal(t, c1, c2)
		require.Equal(t, i1, i2)
		require.Equal(t, en1, en2)
		require.Equal(t, x1, x2)
		require.Equal(t, y1, y2)
		require.Equal(t, f1, f2)
	}

	requireIndexPanic(t, func() { r.Swap(0, 1) })
	requireIndexPanic(t, func() { r.Swap(1, r.Capacity()) })
}

func TestRepositorySwapRejectsUnusedSlots(t *testing.T) {
	s := New()
	_, c1 := newPositioned(t, s, 1, 10)
	newPositioned(t, s, 2, 20)
	r := s.Repository(testPosition)
	require.Equal(t, 3, r.SizeEstimate())
	require.Equal(t, 4, r.Capacity())

	// the last slot has capacity but was never handed out
	requireIndexPanic(t, func() { r.Swap(c1.Index(), r.Capacity()-1) })
	requireIndexPanic(t, func() { r.Swap(r.SizeEstimate(), c1.Index()) })
	require.True(t, c1.IsValid())
	repositoryInvariant(t, r)

	seen := 0
	r.Each(func(Component) { seen++ })
	require.Equal(t, 2, seen)

	newPositioned(t, s, 3, 30)
	s.Compact()
	require.Equal(t, 3, r.Len())
	repositoryInvariant(t, r)
}

func TestRepositorySwapKeepsEntityMapping(t *testing.T) {
	s := New()
	e1, c1 := newPositioned(t, s, 1, 10)
	e2, c2 := newPositioned(t, s, 2, 20)
	r := s.Repository(testPosition)

	r.Swap(c1.Index(), c2.Index())
	got1, ok := e1.Get(testPosition)
	require.True(t, ok)
	require.Equal(t, c2.Index(), got1.Index())
	require.Equal(t, 1.0, posX.In(got1).Get(got1.Index()))

	got2, _ := e2.Get(testPosition)
	require.Equal(t, 20.0, posY.In(got2).Get(got2.Index()))
}

func TestRepositoryEnabledFlag(t *testing.T) {
	s := New()
	e, c := newPositioned(t, s, 0, 0)
	require.True(t, c.Enabled())
	c.SetEnabled(false)
	require.False(t, c.Enabled())
	require.True(t, c.IsValid(), "enabled is independent of liveness")

	require.True(t, e.Remove(testPosition))
	c.SetEnabled(true)
	require.False(t, c.Enabled())
}

func TestRepositoryEach(t *testing.T) {
	s := New()
	for i := 0; i < 4; i++ {
		newPositioned(t, s, float64(i), 0)
	}
	ents := s.Entities()
	require.True(t, ents[1].Remove(testPosition))

	var xs []float64
	s.Repository(testPosition).Each(func(c Component) {
		xs = append(xs, posX.In(c).Get(c.Index()))
	})
	require.Equal(t, []float64{0, 2, 3}, xs)
}

func TestKeyWrongRepositoryPanics(t *testing.T) {
	s := New()
	require.Panics(t, func() { posX.Of(s.Repository(testVector)) })
}
