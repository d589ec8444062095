package ecs

import "fmt"

// Component is a lightweight handle to one component slot. It owns no data;
// validity is checked by comparing the id stored at the slot.
type Component struct {
	repo  *ComponentRepository
	index uint32
	id    uint64
}

// IsValid reports whether the handle still refers to the component it was
// created for. It is a best-effort read outside a job's locks.
func (c Component) IsValid() bool {
	return c.repo != nil && c.index != 0 && int(c.index) < c.repo.size && c.repo.ids[c.index] == c.id
}

func (c Component) Index() int                       { return int(c.index) }
func (c Component) ID() uint64                       { return c.id }
func (c Component) Repository() *ComponentRepository { return c.repo }

func (c Component) Type() *ComponentType {
	if c.repo == nil {
		return nil
	}
	return c.repo.typ
}

// Entity returns the owning entity, or the zero Entity if c is not valid.
func (c Component) Entity() Entity {
	if !c.IsValid() {
		return Entity{}
	}
	return c.repo.entityOf(c.index)
}

// Enabled reports the component's enabled flag; invalid handles are never enabled.
func (c Component) Enabled() bool {
	return c.IsValid() && c.repo.enabled[c.index]
}

// SetEnabled sets the enabled flag. It is a no-op for invalid handles.
func (c Component) SetEnabled(enabled bool) {
	if c.IsValid() {
		c.repo.enabled[c.index] = enabled
	}
}

func (c Component) ref() (ref, bool) {
	if !c.IsValid() {
		return ref{}, false
	}
	e := c.repo.entityIndex[c.index]
	return ref{typ: c.repo.typ, entity: c.repo.system.entities.ids[e], id: c.id}, true
}

func (c Component) String() string {
	if c.repo == nil {
		return "Component(nil)"
	}
	return fmt.Sprintf("Component(%s, index=%d, id=%d)", c.repo.typ, c.index, c.id)
}
