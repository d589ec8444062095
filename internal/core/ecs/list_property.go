package ecs

import (
	"fmt"
	"slices"
)

type listStore[T comparable] struct {
	data [][]T
}

func (s *listStore[T]) Len() int         { return len(s.data) }
func (s *listStore[T]) ElementSize() int { return 1 }

// ListProperty holds one list of T per component slot. Lists are never
// shared between slots: Set and Get copy, and cloning deep-copies.
type ListProperty[T comparable] struct {
	store *listStore[T]
}

// NewListProperty returns a property with capacity 1.
func NewListProperty[T comparable]() *ListProperty[T] {
	return &ListProperty[T]{store: &listStore[T]{data: make([][]T, 1)}}
}

func (p *ListProperty[T]) Capacity() int    { return len(p.store.data) }
func (p *ListProperty[T]) ElementSize() int { return 1 }

func (p *ListProperty[T]) SetCapacity(n int) {
	if n < 0 {
		panic(&IndexError{Op: "set capacity", Index: n, Len: 0})
	}
	p.store.data = resize(p.store.data, n)
}

func (p *ListProperty[T]) Swap(a, b int) {
	n := p.Capacity()
	checkIndex("swap", a, n)
	checkIndex("swap", b, n)
	p.store.data[a], p.store.data[b] = p.store.data[b], p.store.data[a]
}

// Get returns a copy of the list at index.
func (p *ListProperty[T]) Get(index int) []T {
	checkIndex("get", index, p.Capacity())
	return slices.Clone(p.store.data[index])
}

func (p *ListProperty[T]) Len(index int) int {
	checkIndex("len", index, p.Capacity())
	return len(p.store.data[index])
}

// Set stores a copy of v at index.
func (p *ListProperty[T]) Set(index int, v []T) {
	checkIndex("set", index, p.Capacity())
	p.store.data[index] = slices.Clone(v)
}

func (p *ListProperty[T]) Append(index int, v ...T) {
	checkIndex("append", index, p.Capacity())
	p.store.data[index] = append(p.store.data[index], v...)
}

func (p *ListProperty[T]) Contains(index int, v T) bool {
	checkIndex("contains", index, p.Capacity())
	return slices.Contains(p.store.data[index], v)
}

// Remove deletes the first occurrence of v and reports whether it was found.
func (p *ListProperty[T]) Remove(index int, v T) bool {
	checkIndex("remove", index, p.Capacity())
	l := p.store.data[index]
	i := slices.Index(l, v)
	if i < 0 {
		return false
	}
	p.store.data[index] = slices.Delete(l, i, i+1)
	return true
}

func (p *ListProperty[T]) Value(index, offset int) any {
	checkIndex("get", offset, 1)
	return p.Get(index)
}

// SetValue accepts []T or any slice whose elements convert to T.
func (p *ListProperty[T]) SetValue(index, offset int, v any) error {
	checkIndex("set", offset, 1)
	switch l := v.(type) {
	case []T:
		p.Set(index, l)
		return nil
	case []any:
		out := make([]T, 0, len(l))
		for _, e := range l {
			t, err := convertValue[T](e)
			if err != nil {
				return err
			}
			out = append(out, t)
		}
		p.Set(index, out)
		return nil
	case nil:
		p.Set(index, nil)
		return nil
	default:
		return fmt.Errorf("%w: cannot use %T as list", ErrTypeMismatch, v)
	}
}

func (p *ListProperty[T]) Store() DataStore { return p.store }

func (p *ListProperty[T]) SetStore(s DataStore) error {
	if s == nil {
		return fmt.Errorf("%w: nil data store", ErrIllegalArgument)
	}
	ls, ok := s.(*listStore[T])
	if !ok {
		return fmt.Errorf("%w: store %T is not compatible with %T", ErrTypeMismatch, s, p)
	}
	p.store = ls
	return nil
}

// ListFactory creates ListProperty columns. The default value is an empty
// list; cloning deep-copies unless the policy is CloneDisabled.
type ListFactory[T comparable] struct {
	policy  ClonePolicy
	cloneFn func([]T) []T
}

func Lists[T comparable]() *ListFactory[T] {
	return &ListFactory[T]{policy: CloneInvoke}
}

func (f *ListFactory[T]) WithPolicy(policy ClonePolicy) *ListFactory[T] {
	c := *f
	c.policy = policy
	return &c
}

// WithCloneFunc returns a copy of f that clones whole lists through fn.
func (f *ListFactory[T]) WithCloneFunc(fn func([]T) []T) *ListFactory[T] {
	c := *f
	c.policy = CloneInvoke
	c.cloneFn = fn
	return &c
}

func (f *ListFactory[T]) Policy() ClonePolicy { return f.policy }

func (f *ListFactory[T]) Create() *ListProperty[T] { return NewListProperty[T]() }

func (f *ListFactory[T]) SetDefaultValue(p *ListProperty[T], index int) {
	checkIndex("set default", index, p.Capacity())
	p.store.data[index] = nil
}

func (f *ListFactory[T]) Clone(src *ListProperty[T], srcIndex int, dst *ListProperty[T], dstIndex int) {
	if f.policy == CloneDisabled {
		f.SetDefaultValue(dst, dstIndex)
		return
	}
	if f.cloneFn != nil {
		// Set copies again so fn may return its argument
		dst.Set(dstIndex, f.cloneFn(src.Get(srcIndex)))
		return
	}
	// a list is a reference; value and invoke both copy the elements
	dst.Set(dstIndex, src.Get(srcIndex))
}
