package ecs

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexOutOfRange matches every *IndexError.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrTypeMismatch is returned when a value or backing store does not fit a property.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrIllegalArgument is returned for invalid inputs (foreign handles, ownership cycles, ...).
	ErrIllegalArgument = errors.New("illegal argument")
	// ErrIllegalState is returned when an operation is not valid in the current state.
	ErrIllegalState = errors.New("illegal state")
	// ErrIllegalComponentDefinition matches every *IllegalComponentDefinitionError.
	ErrIllegalComponentDefinition = errors.New("illegal component definition")
)

// IndexError is the panic value for out-of-bounds slot or offset access.
type IndexError struct {
	Op    string
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("ecs: %s: index %d out of range [0,%d)", e.Op, e.Index, e.Len)
}

func (e *IndexError) Is(target error) bool { return target == ErrIndexOutOfRange }

func checkIndex(op string, index, n int) {
	if index < 0 || index >= n {
		panic(&IndexError{Op: op, Index: index, Len: n})
	}
}

// IllegalComponentDefinitionError reports a structural problem in a component
// type definition. It is raised while the type is being declared.
type IllegalComponentDefinitionError struct {
	Type   string
	Reason string
}

func (e *IllegalComponentDefinitionError) Error() string {
	return fmt.Sprintf("ecs: illegal definition of component type %q: %s", e.Type, e.Reason)
}

func (e *IllegalComponentDefinitionError) Is(target error) bool {
	return target == ErrIllegalComponentDefinition
}
