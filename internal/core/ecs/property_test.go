package ecs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValuePropertyCapacity(t *testing.T) {
	p := NewValueProperty[int16](2)
	require.Equal(t, 1, p.Capacity())
	require.Len(t, p.Data(), 2)

	p.SetAt(0, 1, 7)
	p.SetCapacity(5)
	require.Equal(t, 5, p.Capacity())
	require.Len(t, p.Data(), 10)
	require.Equal(t, int16(7), p.GetAt(0, 1))
	require.Zero(t, p.GetAt(4, 1))

	requireIndexPanic(t, func() { p.SetCapacity(-1) })
	requireIndexPanic(t, func() { p.Get(5) })
	requireIndexPanic(t, func() { p.GetAt(0, 2) })
	requireIndexPanic(t, func() { p.Set(-1, 1) })
	requireIndexPanic(t, func() { p.Swap(0, 5) })
}

func TestValuePropertySwap(t *testing.T) {
	p := NewValueProperty[float32](3)
	p.SetCapacity(3)
	for i := 0; i < 3; i++ {
		for o := 0; o < 3; o++ {
			p.SetAt(i, o, float32(10*i+o))
		}
	}
	before := append([]float32(nil), p.Data()...)

	p.Swap(0, 2)
	require.Equal(t, []float32{20, 21, 22}, p.Data()[0:3])
	require.Equal(t, []float32{0, 1, 2}, p.Data()[6:9])

	p.Swap(2, 0)
	require.Equal(t, before, p.Data())
}

func TestValuePropertySetValue(t *testing.T) {
	p := NewValueProperty[int32](1)

	require.NoError(t, p.SetValue(0, 0, 12))
	require.Equal(t, int32(12), p.Get(0))
	require.NoError(t, p.SetValue(0, 0, float64(3.9)))
	require.Equal(t, int32(3), p.Get(0))
	require.Equal(t, int32(3), p.Value(0, 0))

	require.ErrorIs(t, p.SetValue(0, 0, "12"), ErrTypeMismatch)
	require.ErrorIs(t, p.SetValue(0, 0, nil), ErrTypeMismatch)

	s := NewValueProperty[string](1)
	require.ErrorIs(t, s.SetValue(0, 0, 65), ErrTypeMismatch)
	require.NoError(t, s.SetValue(0, 0, "ok"))

	b := NewValueProperty[bool](1)
	require.ErrorIs(t, b.SetValue(0, 0, 1), ErrTypeMismatch)
	require.NoError(t, b.SetValue(0, 0, true))
}

func TestValuePropertySetStore(t *testing.T) {
	a := NewValueProperty[int64](2)
	b := NewValueProperty[int64](2)
	b.SetCapacity(4)
	b.SetAt(3, 1, 99)

	require.NoError(t, a.SetStore(b.Store()))
	require.Equal(t, 4, a.Capacity())
	require.Equal(t, int64(99), a.GetAt(3, 1))

	require.ErrorIs(t, a.SetStore(NewValueProperty[int32](2).Store()), ErrTypeMismatch)
	require.ErrorIs(t, a.SetStore(NewValueProperty[int64](1).Store()), ErrTypeMismatch)
	require.ErrorIs(t, a.SetStore(NewListProperty[int64]().Store()), ErrTypeMismatch)
	require.ErrorIs(t, a.SetStore(nil), ErrIllegalArgument)
}

func TestValueFactoryClonePolicy(t *testing.T) {
	tests := []struct {
		name    string
		factory *ValueFactory[int]
		want    []int
	}{
		{name: "value", factory: Values[int](2, 5), want: []int{1, 2}},
		{name: "disabled", factory: Values[int](2, 5).WithPolicy(CloneDisabled), want: []int{5, 5}},
		{name: "invoke", factory: Values[int](2, 5).WithCloneFunc(func(v int) int { return v * 10 }), want: []int{10, 20}},
		{name: "invoke without func", factory: Values[int](2, 5).WithPolicy(CloneInvoke), want: []int{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, dst := tt.factory.Create(), tt.factory.Create()
			src.SetAt(0, 0, 1)
			src.SetAt(0, 1, 2)
			dst.SetCapacity(2)

			tt.factory.Clone(src, 0, dst, 1)
			require.Equal(t, tt.want, []int{dst.GetAt(1, 0), dst.GetAt(1, 1)})

			dst.SetAt(1, 0, 42)
			require.Equal(t, 1, src.GetAt(0, 0))
		})
	}
}

func TestValueFactoryDefault(t *testing.T) {
	f := Values[float64](3, 0.5)
	p := f.Create()
	p.SetCapacity(2)
	f.SetDefaultValue(p, 1)
	f.SetDefaultValue(p, 1)
	require.Equal(t, []float64{0, 0, 0, 0.5, 0.5, 0.5}, p.Data())
}

func TestListProperty(t *testing.T) {
	p := NewListProperty[string]()
	require.Equal(t, 1, p.Capacity())
	require.Empty(t, p.Get(0))

	v := []string{"a", "b"}
	p.Set(0, v)
	v[0] = "changed"
	require.Equal(t, []string{"a", "b"}, p.Get(0))

	got := p.Get(0)
	got[1] = "changed"
	require.Equal(t, []string{"a", "b"}, p.Get(0))

	p.Append(0, "c")
	require.True(t, p.Contains(0, "c"))
	require.True(t, p.Remove(0, "a"))
	require.False(t, p.Remove(0, "a"))
	require.Equal(t, []string{"b", "c"}, p.Get(0))
	require.Equal(t, 2, p.Len(0))

	p.SetCapacity(2)
	p.Set(1, []string{"x"})
	p.Swap(0, 1)
	require.Equal(t, []string{"x"}, p.Get(0))
	p.Swap(1, 0)
	require.Equal(t, []string{"b", "c"}, p.Get(0))

	require.NoError(t, p.SetValue(1, 0, []any{"q", "r"}))
	require.Equal(t, []string{"q", "r"}, p.Value(1, 0))
	require.ErrorIs(t, p.SetValue(1, 0, []any{1}), ErrTypeMismatch)
	require.ErrorIs(t, p.SetValue(1, 0, 3), ErrTypeMismatch)

	requireIndexPanic(t, func() { p.Get(2) })
	requireIndexPanic(t, func() { p.Value(0, 1) })
}

func TestListFactoryClonePolicy(t *testing.T) {
	t.Run("deep copy", func(t *testing.T) {
		f := Lists[int]()
		src, dst := f.Create(), f.Create()
		src.Set(0, []int{1, 2})
		f.Clone(src, 0, dst, 0)
		require.Equal(t, []int{1, 2}, dst.Get(0))

		dst.Append(0, 3)
		require.Equal(t, []int{1, 2}, src.Get(0))
	})
	t.Run("disabled", func(t *testing.T) {
		f := Lists[int]().WithPolicy(CloneDisabled)
		src, dst := f.Create(), f.Create()
		src.Set(0, []int{1, 2})
		dst.Set(0, []int{9})
		f.Clone(src, 0, dst, 0)
		require.Empty(t, dst.Get(0))
	})
	t.Run("custom", func(t *testing.T) {
		f := Lists[int]().WithCloneFunc(func(v []int) []int { return append(v, 0) })
		src, dst := f.Create(), f.Create()
		src.Set(0, []int{1})
		f.Clone(src, 0, dst, 0)
		require.Equal(t, []int{1, 0}, dst.Get(0))
		require.Equal(t, []int{1}, src.Get(0))
	})
}

func TestClonePolicyString(t *testing.T) {
	require.Equal(t, "value", CloneValue.String())
	require.Equal(t, "disabled", CloneDisabled.String())
	require.Equal(t, "invoke", CloneInvoke.String())
	require.Equal(t, "ClonePolicy(9)", ClonePolicy(9).String())
}
