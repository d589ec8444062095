package ecs

import (
	"fmt"
	"strings"
)

// entityTable allocates entity indices with a free list. Index 0 is a
// sentinel. Each allocation draws a fresh id from a 64-bit counter, so a
// handle captured before its slot was reused compares unequal afterwards.
type entityTable struct {
	ids      []uint64 // index -> id, 0 when free
	freeList []uint32
	next     uint32
	seq      uint64
	live     int
	// locate maps live ids to their index; handles fall back to it after
	// compaction has moved their entity.
	locate map[uint64]uint32
}

func newEntityTable() *entityTable {
	return &entityTable{
		ids:      make([]uint64, 1, 1024),
		freeList: make([]uint32, 0, 256),
		next:     1,
		locate:   make(map[uint64]uint32, 1024),
	}
}

func (t *entityTable) create() (uint32, uint64) {
	var idx uint32
	if n := len(t.freeList); n > 0 {
		idx = t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
	} else {
		idx = t.next
		t.next++
		if int(idx) >= len(t.ids) {
			t.ids = append(t.ids, 0)
		}
	}
	t.seq++
	t.ids[idx] = t.seq
	t.locate[t.seq] = idx
	t.live++
	return idx, t.seq
}

// resolve returns the current index of the entity (index, id), following it
// across compaction.
func (t *entityTable) resolve(index uint32, id uint64) (uint32, bool) {
	if id == 0 {
		return 0, false
	}
	if index != 0 && index < t.next && t.ids[index] == id {
		return index, true
	}
	idx, ok := t.locate[id]
	return idx, ok
}

func (t *entityTable) lookup(id uint64) (uint32, bool) {
	idx, ok := t.locate[id]
	return idx, ok
}

func (t *entityTable) destroy(index uint32) {
	id := t.ids[index]
	if id == 0 {
		return // already destroyed
	}
	delete(t.locate, id)
	t.ids[index] = 0
	t.freeList = append(t.freeList, index)
	t.live--
}

// compact packs live entities to the front and returns old index -> new index.
func (t *entityTable) compact() []uint32 {
	remap := make([]uint32, t.next)
	next := uint32(1)
	for i := uint32(1); i < t.next; i++ {
		id := t.ids[i]
		if id == 0 {
			continue
		}
		if i != next {
			t.ids[next] = id
			t.ids[i] = 0
			t.locate[id] = next
		}
		remap[i] = next
		next++
	}
	t.next = next
	t.ids = t.ids[:next]
	t.freeList = t.freeList[:0]
	return remap
}

// Entity is a lightweight (index, id) handle into an EntitySystem. The zero
// value is a dead entity.
type Entity struct {
	system *EntitySystem
	index  uint32
	id     uint64
}

func (e Entity) System() *EntitySystem { return e.system }
func (e Entity) ID() uint64            { return e.id }

// Index returns the entity's current slot, or 0 if it is dead.
func (e Entity) Index() int {
	idx, _ := e.resolve()
	return int(idx)
}

func (e Entity) resolve() (uint32, bool) {
	if e.system == nil {
		return 0, false
	}
	return e.system.entities.resolve(e.index, e.id)
}

// IsAlive reports whether the entity has not been removed. Like
// Component.IsValid it is a best-effort read outside a job's locks.
func (e Entity) IsAlive() bool {
	_, ok := e.resolve()
	return ok
}

// Add attaches a new component of type t with default values, replacing any
// existing component of that type.
func (e Entity) Add(t *ComponentType) (Component, error) {
	idx, ok := e.resolve()
	if !ok {
		return Component{}, fmt.Errorf("add %s: %w: entity %d is not alive", t, ErrIllegalState, e.id)
	}
	return e.system.Repository(t).addComponent(idx), nil
}

// AddFrom attaches a copy of template, which may live in another system.
func (e Entity) AddFrom(template Component) (Component, error) {
	idx, ok := e.resolve()
	if !ok {
		return Component{}, fmt.Errorf("add from template: %w: entity %d is not alive", ErrIllegalState, e.id)
	}
	if template.repo == nil {
		return Component{}, fmt.Errorf("add from template: %w: nil component", ErrIllegalArgument)
	}
	return e.system.Repository(template.repo.typ).addComponentFrom(idx, template)
}

// Get returns the entity's component of type t.
func (e Entity) Get(t *ComponentType) (Component, bool) {
	idx, ok := e.resolve()
	if !ok {
		return Component{}, false
	}
	r, ok := e.system.registry.get(t)
	if !ok {
		return Component{}, false
	}
	slot := r.componentAt(idx)
	if slot == 0 {
		return Component{}, false
	}
	return r.handle(slot), true
}

func (e Entity) Has(t *ComponentType) bool {
	_, ok := e.Get(t)
	return ok
}

// Remove detaches the component of type t, removing everything it owns.
// It reports whether a component was present.
func (e Entity) Remove(t *ComponentType) bool {
	idx, ok := e.resolve()
	if !ok {
		return false
	}
	r, ok := e.system.registry.get(t)
	if !ok {
		return false
	}
	return e.system.removeComponent(r, idx)
}

// Components returns the entity's components in repository creation order.
func (e Entity) Components() []Component {
	idx, ok := e.resolve()
	if !ok {
		return nil
	}
	var out []Component
	for _, r := range e.system.registry.all() {
		if slot := r.componentAt(idx); slot != 0 {
			out = append(out, r.handle(slot))
		}
	}
	return out
}

func (e Entity) ref() (ref, bool) {
	if !e.IsAlive() {
		return ref{}, false
	}
	return ref{entity: e.id, id: e.id}, true
}

func (e Entity) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Entity(%d", e.id)
	for _, c := range e.Components() {
		sb.WriteString(", ")
		sb.WriteString(c.Type().Name())
	}
	sb.WriteString(")")
	return sb.String()
}
