package ecs

import "fmt"

type valueStore[T any] struct {
	elementSize int
	data        []T
}

func (s *valueStore[T]) Len() int         { return len(s.data) / s.elementSize }
func (s *valueStore[T]) ElementSize() int { return s.elementSize }

// ValueProperty packs elementSize values of T per component slot into one
// contiguous slice. Vector-valued fields use elementSize > 1.
type ValueProperty[T any] struct {
	store *valueStore[T]
}

// NewValueProperty returns a property with capacity 1.
func NewValueProperty[T any](elementSize int) *ValueProperty[T] {
	if elementSize < 1 {
		panic(fmt.Sprintf("ecs: element size must be at least 1, not %d", elementSize))
	}
	return &ValueProperty[T]{
		store: &valueStore[T]{elementSize: elementSize, data: make([]T, elementSize)},
	}
}

func (p *ValueProperty[T]) Capacity() int    { return p.store.Len() }
func (p *ValueProperty[T]) ElementSize() int { return p.store.elementSize }

// Data returns the packed backing slice; slot i occupies
// [i*ElementSize, (i+1)*ElementSize).
func (p *ValueProperty[T]) Data() []T { return p.store.data }

func (p *ValueProperty[T]) SetCapacity(n int) {
	if n < 0 {
		panic(&IndexError{Op: "set capacity", Index: n, Len: 0})
	}
	p.store.data = resize(p.store.data, n*p.store.elementSize)
}

func (p *ValueProperty[T]) Swap(a, b int) {
	n := p.Capacity()
	checkIndex("swap", a, n)
	checkIndex("swap", b, n)
	if a == b {
		return
	}
	es := p.store.elementSize
	d := p.store.data
	for i := 0; i < es; i++ {
		d[a*es+i], d[b*es+i] = d[b*es+i], d[a*es+i]
	}
}

func (p *ValueProperty[T]) offset(op string, index, offset int) int {
	checkIndex(op, index, p.Capacity())
	checkIndex(op, offset, p.store.elementSize)
	return index*p.store.elementSize + offset
}

func (p *ValueProperty[T]) Get(index int) T { return p.GetAt(index, 0) }

func (p *ValueProperty[T]) GetAt(index, offset int) T {
	return p.store.data[p.offset("get", index, offset)]
}

func (p *ValueProperty[T]) Set(index int, v T) { p.SetAt(index, 0, v) }

func (p *ValueProperty[T]) SetAt(index, offset int, v T) {
	p.store.data[p.offset("set", index, offset)] = v
}

func (p *ValueProperty[T]) Value(index, offset int) any { return p.GetAt(index, offset) }

func (p *ValueProperty[T]) SetValue(index, offset int, v any) error {
	t, err := convertValue[T](v)
	if err != nil {
		return err
	}
	p.SetAt(index, offset, t)
	return nil
}

// Store returns the current backing store.
func (p *ValueProperty[T]) Store() DataStore { return p.store }

// SetStore replaces the backing store. The store must hold T with the same
// element size.
func (p *ValueProperty[T]) SetStore(s DataStore) error {
	if s == nil {
		return fmt.Errorf("%w: nil data store", ErrIllegalArgument)
	}
	vs, ok := s.(*valueStore[T])
	if !ok {
		return fmt.Errorf("%w: store %T is not compatible with %T", ErrTypeMismatch, s, p)
	}
	if vs.elementSize != p.store.elementSize {
		return fmt.Errorf("%w: element size %d, want %d", ErrTypeMismatch, vs.elementSize, p.store.elementSize)
	}
	p.store = vs
	return nil
}

// ValueFactory creates ValueProperty columns with a fixed element size and
// default value.
type ValueFactory[T any] struct {
	elementSize int
	dflt        T
	policy      ClonePolicy
	cloneFn     func(T) T
}

// Values returns a factory for ValueProperty[T]. The clone policy defaults to
// CloneValue.
func Values[T any](elementSize int, dflt T) *ValueFactory[T] {
	if elementSize < 1 {
		elementSize = 1
	}
	return &ValueFactory[T]{elementSize: elementSize, dflt: dflt}
}

// WithPolicy returns a copy of f using policy.
func (f *ValueFactory[T]) WithPolicy(policy ClonePolicy) *ValueFactory[T] {
	c := *f
	c.policy = policy
	return &c
}

// WithCloneFunc returns a copy of f that clones each element through fn.
func (f *ValueFactory[T]) WithCloneFunc(fn func(T) T) *ValueFactory[T] {
	c := *f
	c.policy = CloneInvoke
	c.cloneFn = fn
	return &c
}

func (f *ValueFactory[T]) Policy() ClonePolicy { return f.policy }
func (f *ValueFactory[T]) Default() T          { return f.dflt }

func (f *ValueFactory[T]) Create() *ValueProperty[T] {
	return NewValueProperty[T](f.elementSize)
}

func (f *ValueFactory[T]) SetDefaultValue(p *ValueProperty[T], index int) {
	for i := 0; i < f.elementSize; i++ {
		p.SetAt(index, i, f.dflt)
	}
}

func (f *ValueFactory[T]) Clone(src *ValueProperty[T], srcIndex int, dst *ValueProperty[T], dstIndex int) {
	switch f.policy {
	case CloneDisabled:
		f.SetDefaultValue(dst, dstIndex)
	case CloneInvoke:
		if f.cloneFn != nil {
			for i := 0; i < f.elementSize; i++ {
				dst.SetAt(dstIndex, i, f.cloneFn(src.GetAt(srcIndex, i)))
			}
			return
		}
		// without a copy function invoke behaves like a value copy
		fallthrough
	default:
		for i := 0; i < f.elementSize; i++ {
			dst.SetAt(dstIndex, i, src.GetAt(srcIndex, i))
		}
	}
}
