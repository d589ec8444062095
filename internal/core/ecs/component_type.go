package ecs

import (
	"cmp"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

var typeSeq atomic.Uint64

// ComponentType declares a component kind: a name and an ordered list of
// property columns. Properties are declared with DefineProperty before the
// type is first used by an EntitySystem; after that the layout is frozen.
type ComponentType struct {
	name string
	seq  uint64

	mu     sync.Mutex
	frozen bool
	props  []propertySpec
}

type propertySpec struct {
	name string
	bind func() *boundProperty
}

// boundProperty is a property instance with its factory behavior bound, so a
// repository can treat columns of different kinds uniformly.
type boundProperty struct {
	name       string
	prop       Property
	setDefault func(index int)
	clone      func(src Property, srcIndex, dstIndex int)
}

// NewComponentType declares a component type. It panics with an
// *IllegalComponentDefinitionError if name is empty.
func NewComponentType(name string) *ComponentType {
	if name == "" {
		panic(&IllegalComponentDefinitionError{Reason: "name must not be empty"})
	}
	return &ComponentType{name: name, seq: typeSeq.Add(1)}
}

func (t *ComponentType) Name() string   { return t.name }
func (t *ComponentType) String() string { return t.name }

// PropertyNames lists the declared properties in declaration order.
func (t *ComponentType) PropertyNames() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, len(t.props))
	for i, p := range t.props {
		names[i] = p.name
	}
	return names
}

// Compare orders types by name, then by declaration sequence. The order is
// total and identical for every caller in the process.
func (t *ComponentType) Compare(o *ComponentType) int {
	if c := cmp.Compare(t.name, o.name); c != 0 {
		return c
	}
	return cmp.Compare(t.seq, o.seq)
}

func (t *ComponentType) freeze() []propertySpec {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frozen = true
	return t.props
}

// Key is a typed reference to one property of a component type.
type Key[P Property] struct {
	typ  *ComponentType
	slot int
	name string
}

// DefineProperty appends a property column to t. It panics with an
// *IllegalComponentDefinitionError when the name is empty or taken, the
// factory is nil, or t is already in use.
func DefineProperty[P Property](t *ComponentType, name string, factory PropertyFactory[P]) Key[P] {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case name == "":
		panic(&IllegalComponentDefinitionError{Type: t.name, Reason: "property name must not be empty"})
	case isNil(factory):
		panic(&IllegalComponentDefinitionError{Type: t.name, Reason: fmt.Sprintf("property %q has no factory", name)})
	case t.frozen:
		panic(&IllegalComponentDefinitionError{Type: t.name, Reason: fmt.Sprintf("property %q defined after first use", name)})
	}
	for _, p := range t.props {
		if p.name == name {
			panic(&IllegalComponentDefinitionError{Type: t.name, Reason: fmt.Sprintf("duplicate property %q", name)})
		}
	}

	t.props = append(t.props, propertySpec{
		name: name,
		bind: func() *boundProperty {
			p := factory.Create()
			return &boundProperty{
				name:       name,
				prop:       p,
				setDefault: func(index int) { factory.SetDefaultValue(p, index) },
				clone: func(src Property, srcIndex, dstIndex int) {
					factory.Clone(src.(P), srcIndex, p, dstIndex)
				},
			}
		},
	})
	return Key[P]{typ: t, slot: len(t.props) - 1, name: name}
}

// isNil also catches typed nils such as (*ValueFactory[int])(nil).
func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Interface, reflect.Slice, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func (k Key[P]) Name() string         { return k.name }
func (k Key[P]) Type() *ComponentType { return k.typ }

// Of returns the property instance owned by r. It panics if r stores a
// different component type.
func (k Key[P]) Of(r *ComponentRepository) P {
	if r.typ != k.typ {
		panic(fmt.Sprintf("ecs: property %s.%s used with repository of %s", k.typ.name, k.name, r.typ.name))
	}
	return r.props[k.slot].prop.(P)
}

// In returns the property instance backing c.
func (k Key[P]) In(c Component) P { return k.Of(c.repo) }

// DefineValue is DefineProperty for ValueProperty columns.
func DefineValue[T any](t *ComponentType, name string, factory *ValueFactory[T]) Key[*ValueProperty[T]] {
	return DefineProperty[*ValueProperty[T]](t, name, factory)
}

// DefineList is DefineProperty for ListProperty columns.
func DefineList[T comparable](t *ComponentType, name string, factory *ListFactory[T]) Key[*ListProperty[T]] {
	return DefineProperty[*ListProperty[T]](t, name, factory)
}
