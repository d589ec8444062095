package ecs

import "fmt"

const initialRepositoryCapacity = 2

// ComponentRepository is the packed storage for one component type: a set of
// property columns plus the mapping between entity indices and component
// slots. Slot 0 is a permanent sentinel meaning "no component".
type ComponentRepository struct {
	typ    *ComponentType
	system *EntitySystem
	props  []*boundProperty
	names  map[string]int

	entityIndex    []uint32 // component slot -> entity index, 0 when free
	componentIndex []uint32 // entity index -> component slot, 0 when absent
	ids            []uint64
	enabled        []bool

	size  int // slots below size have been handed out at least once
	free  []uint32
	live  int
	idSeq uint64
}

func newRepository(sys *EntitySystem, t *ComponentType) *ComponentRepository {
	specs := t.freeze()
	r := &ComponentRepository{
		typ:    t,
		system: sys,
		props:  make([]*boundProperty, 0, len(specs)),
		names:  make(map[string]int, len(specs)),
		size:   1,
	}
	for i, s := range specs {
		r.props = append(r.props, s.bind())
		r.names[s.name] = i
	}
	r.setCapacity(initialRepositoryCapacity)
	// componentIndex grows on allocate, so creation never reads the entity
	// table and needs no more than the system read lock.
	return r
}

func (r *ComponentRepository) Type() *ComponentType  { return r.typ }
func (r *ComponentRepository) System() *EntitySystem { return r.system }

// Len returns the number of live components.
func (r *ComponentRepository) Len() int { return r.live }

// Capacity returns the number of slots every property can hold, sentinel included.
func (r *ComponentRepository) Capacity() int { return len(r.entityIndex) }

// SizeEstimate is one past the highest slot handed out so far.
func (r *ComponentRepository) SizeEstimate() int { return r.size }

// Property returns the column declared as name.
func (r *ComponentRepository) Property(name string) (Property, bool) {
	i, ok := r.names[name]
	if !ok {
		return nil, false
	}
	return r.props[i].prop, true
}

func (r *ComponentRepository) setCapacity(n int) {
	r.entityIndex = resize(r.entityIndex, n)
	r.ids = resize(r.ids, n)
	r.enabled = resize(r.enabled, n)
	for _, p := range r.props {
		p.prop.SetCapacity(n)
	}
}

// componentAt returns the slot holding entityIndex's component, or 0.
func (r *ComponentRepository) componentAt(entityIndex uint32) uint32 {
	if int(entityIndex) >= len(r.componentIndex) {
		return 0
	}
	return r.componentIndex[entityIndex]
}

func (r *ComponentRepository) handle(slot uint32) Component {
	if slot == 0 {
		return Component{}
	}
	return Component{repo: r, index: slot, id: r.ids[slot]}
}

func (r *ComponentRepository) allocate(entityIndex uint32) uint32 {
	var slot uint32
	if n := len(r.free); n > 0 {
		slot = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		if r.size == r.Capacity() {
			r.setCapacity(2 * r.Capacity())
		}
		slot = uint32(r.size)
		r.size++
	}

	if int(entityIndex) >= len(r.componentIndex) {
		n := max(2*len(r.componentIndex), int(entityIndex)+1)
		r.componentIndex = resize(r.componentIndex, n)
	}
	r.entityIndex[slot] = entityIndex
	r.componentIndex[entityIndex] = slot
	r.idSeq++
	r.ids[slot] = r.idSeq
	r.enabled[slot] = true
	for _, p := range r.props {
		p.setDefault(int(slot))
	}
	r.live++
	return slot
}

// addComponent attaches a new component with default values to entityIndex,
// replacing any component it already has.
func (r *ComponentRepository) addComponent(entityIndex uint32) Component {
	if r.componentAt(entityIndex) != 0 {
		r.system.removeComponent(r, entityIndex)
	}
	return r.handle(r.allocate(entityIndex))
}

// addComponentFrom attaches a copy of template to entityIndex, applying each
// property's clone policy.
func (r *ComponentRepository) addComponentFrom(entityIndex uint32, template Component) (Component, error) {
	if !template.IsValid() {
		return Component{}, fmt.Errorf("%w: template component is not valid", ErrIllegalArgument)
	}
	if template.repo.typ != r.typ {
		return Component{}, fmt.Errorf("%w: template is %s, not %s", ErrIllegalArgument, template.repo.typ, r.typ)
	}
	if template.repo == r && r.componentAt(entityIndex) == template.index {
		return template, nil
	}
	if r.componentAt(entityIndex) != 0 {
		r.system.removeComponent(r, entityIndex)
	}

	slot := r.allocate(entityIndex)
	src := template.repo
	for i, p := range r.props {
		p.clone(src.props[i].prop, int(template.index), int(slot))
	}
	return r.handle(slot), nil
}

// removeComponent detaches entityIndex's component. The slot goes on the free
// list; nothing moves until the next compaction.
func (r *ComponentRepository) removeComponent(entityIndex uint32) bool {
	slot := r.componentAt(entityIndex)
	if slot == 0 {
		return false
	}
	r.componentIndex[entityIndex] = 0
	r.entityIndex[slot] = 0
	r.ids[slot] = 0
	r.enabled[slot] = false
	for _, p := range r.props {
		p.setDefault(int(slot))
	}
	r.free = append(r.free, slot)
	r.live--
	return true
}

func (r *ComponentRepository) swapSlots(a, b int) {
	r.entityIndex[a], r.entityIndex[b] = r.entityIndex[b], r.entityIndex[a]
	r.ids[a], r.ids[b] = r.ids[b], r.ids[a]
	r.enabled[a], r.enabled[b] = r.enabled[b], r.enabled[a]
	for _, p := range r.props {
		p.prop.Swap(a, b)
	}
}

// Swap exchanges the data of two slots in every property and index table.
// Both slots must have been handed out already (below SizeEstimate), since
// iteration and compaction never look past it. Component handles to either
// slot become stale.
func (r *ComponentRepository) Swap(a, b int) {
	checkIndex("swap", a, r.size)
	checkIndex("swap", b, r.size)
	if a == 0 || b == 0 {
		panic(&IndexError{Op: "swap sentinel", Index: 0, Len: r.size})
	}
	r.swapSlots(a, b)
	for _, s := range [2]int{a, b} {
		if e := r.entityIndex[s]; e != 0 {
			r.componentIndex[e] = uint32(s)
		}
	}
	for i, s := range r.free {
		switch int(s) {
		case a:
			r.free[i] = uint32(b)
		case b:
			r.free[i] = uint32(a)
		}
	}
}

// compact moves live slots down over free ones in a single pass, rewrites
// entity indices through remap and rebuilds the inverse table.
func (r *ComponentRepository) compact(remap []uint32, entityCount int) {
	next := 1
	for slot := 1; slot < r.size; slot++ {
		if r.entityIndex[slot] == 0 {
			continue
		}
		if slot != next {
			r.swapSlots(slot, next)
		}
		r.entityIndex[next] = remap[r.entityIndex[next]]
		next++
	}
	r.size = next
	r.free = r.free[:0]

	r.componentIndex = make([]uint32, max(entityCount, 1))
	for c := 1; c < r.size; c++ {
		r.componentIndex[r.entityIndex[c]] = uint32(c)
	}

	if float64(r.size) < 0.6*float64(r.Capacity()) {
		r.setCapacity(max(int(1.2*float64(r.size))+1, initialRepositoryCapacity))
	}
}

func (r *ComponentRepository) entityOf(slot uint32) Entity {
	e := r.entityIndex[slot]
	if e == 0 {
		return Entity{}
	}
	return Entity{system: r.system, index: e, id: r.system.entities.ids[e]}
}

// Each calls fn for every live component in slot order.
func (r *ComponentRepository) Each(fn func(Component)) {
	for slot := 1; slot < r.size; slot++ {
		if r.entityIndex[slot] != 0 {
			fn(r.handle(uint32(slot)))
		}
	}
}

func (r *ComponentRepository) String() string {
	return fmt.Sprintf("ComponentRepository(%s, live=%d, capacity=%d)", r.typ, r.live, r.Capacity())
}
