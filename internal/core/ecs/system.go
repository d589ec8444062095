package ecs

import "fmt"

// EntitySystem is the top-level container. It owns the entity table, one
// ComponentRepository per component type and the ownership table.
//
// An EntitySystem is not safe for concurrent use on its own; concurrent
// access goes through jobs holding the scheduler's locks.
type EntitySystem struct {
	entities *entityTable
	registry *registry
	owners   ownership
}

func New() *EntitySystem {
	return &EntitySystem{
		entities: newEntityTable(),
		registry: newRegistry(),
		owners:   newOwnership(),
	}
}

// Repository returns the repository for t, creating it on first use. The
// first call freezes t's property layout. It is safe to call from jobs that
// run concurrently.
func (s *EntitySystem) Repository(t *ComponentType) *ComponentRepository {
	return s.registry.getOrCreate(t, func() *ComponentRepository {
		return newRepository(s, t)
	})
}

// ComponentTypes returns every type with a repository, in lock order.
func (s *EntitySystem) ComponentTypes() []*ComponentType {
	return s.registry.types()
}

// EntityCount returns the number of live entities.
func (s *EntitySystem) EntityCount() int { return s.entities.live }

// Lookup returns the live entity with the given id.
func (s *EntitySystem) Lookup(id uint64) (Entity, bool) {
	idx, ok := s.entities.lookup(id)
	if !ok {
		return Entity{}, false
	}
	return Entity{system: s, index: idx, id: id}, true
}

func (s *EntitySystem) AddEntity() Entity {
	idx, id := s.entities.create()
	return Entity{system: s, index: idx, id: id}
}

// AddEntityFrom creates an entity carrying a clone of every component of
// template. The template may belong to another system.
func (s *EntitySystem) AddEntityFrom(template Entity) (Entity, error) {
	if !template.IsAlive() {
		return Entity{}, fmt.Errorf("add entity from template: %w: template is not alive", ErrIllegalArgument)
	}
	components := template.Components()
	e := s.AddEntity()
	for _, c := range components {
		if _, err := e.AddFrom(c); err != nil {
			s.sweep([]ref{{entity: e.id, id: e.id}})
			return Entity{}, fmt.Errorf("add entity from template: %w", err)
		}
	}
	return e, nil
}

// RemoveEntity removes e, its components and everything they own.
func (s *EntitySystem) RemoveEntity(e Entity) error {
	if e.system != s {
		return fmt.Errorf("remove entity: %w: entity belongs to another system", ErrIllegalArgument)
	}
	if !e.IsAlive() {
		return fmt.Errorf("remove entity: %w: entity %d already removed", ErrIllegalState, e.id)
	}
	s.sweep([]ref{{entity: e.id, id: e.id}})
	return nil
}

func (s *EntitySystem) removeComponent(r *ComponentRepository, entityIndex uint32) bool {
	slot := r.componentAt(entityIndex)
	if slot == 0 {
		return false
	}
	s.sweep([]ref{{typ: r.typ, entity: s.entities.ids[entityIndex], id: r.ids[slot]}})
	return true
}

// Each calls fn for every live entity in index order.
func (s *EntitySystem) Each(fn func(Entity)) {
	for i := uint32(1); i < s.entities.next; i++ {
		if id := s.entities.ids[i]; id != 0 {
			fn(Entity{system: s, index: i, id: id})
		}
	}
}

// Entities returns a snapshot of the live entities in index order.
func (s *EntitySystem) Entities() []Entity {
	out := make([]Entity, 0, s.entities.live)
	s.Each(func(e Entity) { out = append(out, e) })
	return out
}

// Compact removes the holes left by removed entities and components, moving
// live data down in every repository. It must only run while the caller
// holds the scheduler's exclusive lock. Component handles must be fetched
// again through their entity afterwards; entity handles stay usable.
func (s *EntitySystem) Compact() {
	remap := s.entities.compact()
	for _, r := range s.registry.all() {
		r.compact(remap, int(s.entities.next))
	}
}
