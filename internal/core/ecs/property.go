package ecs

import (
	"fmt"
	"reflect"
)

// Property is one packed column of a component type. Every property owned by
// a repository is resized and swapped in lockstep with the repository's index
// tables, so slot i of each property belongs to the same component.
type Property interface {
	Capacity() int
	SetCapacity(n int)
	Swap(a, b int)
}

// DynamicProperty exposes a property's elements without static typing.
// Template loading, scripting and snapshots go through it.
type DynamicProperty interface {
	Property
	ElementSize() int
	Value(index, offset int) any
	SetValue(index, offset int, v any) error
}

// DataStore is the backing array of a property. Stores can be moved between
// properties of the same element type and element size.
type DataStore interface {
	Len() int
	ElementSize() int
}

// PropertyFactory creates properties of one kind and owns their default value
// and clone behavior.
type PropertyFactory[P Property] interface {
	Create() P
	SetDefaultValue(p P, index int)
	Clone(src P, srcIndex int, dst P, dstIndex int)
}

// ClonePolicy selects what happens to a property when a component is cloned
// from a template.
type ClonePolicy int

const (
	// CloneValue copies the value.
	CloneValue ClonePolicy = iota
	// CloneDisabled writes the default value instead of copying.
	CloneDisabled
	// CloneInvoke delegates to the factory's type-specific copy function.
	CloneInvoke
)

func (p ClonePolicy) String() string {
	switch p {
	case CloneValue:
		return "value"
	case CloneDisabled:
		return "disabled"
	case CloneInvoke:
		return "invoke"
	default:
		return fmt.Sprintf("ClonePolicy(%d)", int(p))
	}
}

// convertValue converts v into T, accepting numeric widening and narrowing
// but never number-to-string conversions.
func convertValue[T any](v any) (T, error) {
	var zero T
	if t, ok := v.(T); ok {
		return t, nil
	}
	dst := reflect.TypeOf((*T)(nil)).Elem()
	if v == nil {
		return zero, fmt.Errorf("%w: cannot use nil as %s", ErrTypeMismatch, dst)
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().ConvertibleTo(dst) {
		return zero, fmt.Errorf("%w: cannot use %T as %s", ErrTypeMismatch, v, dst)
	}
	if dst.Kind() == reflect.String && rv.Kind() != reflect.String {
		return zero, fmt.Errorf("%w: cannot use %T as %s", ErrTypeMismatch, v, dst)
	}
	if dst.Kind() == reflect.Bool && rv.Kind() != reflect.Bool {
		return zero, fmt.Errorf("%w: cannot use %T as %s", ErrTypeMismatch, v, dst)
	}
	return rv.Convert(dst).Interface().(T), nil
}

func resize[T any](data []T, n int) []T {
	if n == len(data) {
		return data
	}
	out := make([]T, n)
	copy(out, data)
	return out
}
