package ecs

import (
	"fmt"
	"slices"
)

// ref identifies an entity or component for the ownership table by ids, so
// entries survive compaction. Entity refs have a nil typ.
type ref struct {
	typ    *ComponentType
	entity uint64
	id     uint64
}

// Ownable is implemented by Entity and Component. Either may own and be owned.
type Ownable interface {
	ref() (ref, bool)
}

// ownership is a back-reference table: each object has at most one owner,
// owners keep their objects in assignment order.
type ownership struct {
	owner map[ref]ref
	owned map[ref][]ref
}

func newOwnership() ownership {
	return ownership{
		owner: make(map[ref]ref),
		owned: make(map[ref][]ref),
	}
}

func (o *ownership) detach(child ref) {
	parent, ok := o.owner[child]
	if !ok {
		return
	}
	delete(o.owner, child)
	list := o.owned[parent]
	if i := slices.Index(list, child); i >= 0 {
		list = slices.Delete(list, i, i+1)
	}
	if len(list) == 0 {
		delete(o.owned, parent)
	} else {
		o.owned[parent] = list
	}
}

func (o *ownership) attach(child, parent ref) error {
	for cur, ok := parent, true; ok; cur, ok = o.owner[cur] {
		if cur == child {
			return fmt.Errorf("%w: ownership cycle", ErrIllegalArgument)
		}
	}
	o.detach(child)
	o.owner[child] = parent
	o.owned[parent] = append(o.owned[parent], child)
	return nil
}

// release drops r from the table and returns the objects it owned, which
// are disowned.
func (o *ownership) release(r ref) []ref {
	o.detach(r)
	children := o.owned[r]
	delete(o.owned, r)
	for _, c := range children {
		delete(o.owner, c)
	}
	return children
}

// SetOwner makes owner the owner of obj. A nil owner clears obj's owner.
// Cycles and dead handles are rejected with ErrIllegalArgument.
func (s *EntitySystem) SetOwner(obj, owner Ownable) error {
	child, ok := s.refOf(obj)
	if !ok {
		return fmt.Errorf("set owner: %w: object is not alive in this system", ErrIllegalArgument)
	}
	if owner == nil {
		s.owners.detach(child)
		return nil
	}
	parent, ok := s.refOf(owner)
	if !ok {
		return fmt.Errorf("set owner: %w: owner is not alive in this system", ErrIllegalArgument)
	}
	if err := s.owners.attach(child, parent); err != nil {
		return fmt.Errorf("set owner: %w", err)
	}
	return nil
}

// Owner returns obj's owner, if any.
func (s *EntitySystem) Owner(obj Ownable) (Ownable, bool) {
	child, ok := s.refOf(obj)
	if !ok {
		return nil, false
	}
	parent, ok := s.owners.owner[child]
	if !ok {
		return nil, false
	}
	return s.fromRef(parent)
}

// Owned returns the objects owned by owner in assignment order.
func (s *EntitySystem) Owned(owner Ownable) []Ownable {
	parent, ok := s.refOf(owner)
	if !ok {
		return nil
	}
	var out []Ownable
	for _, c := range s.owners.owned[parent] {
		if obj, ok := s.fromRef(c); ok {
			out = append(out, obj)
		}
	}
	return out
}

func (s *EntitySystem) refOf(obj Ownable) (ref, bool) {
	switch v := obj.(type) {
	case Entity:
		if v.system != s {
			return ref{}, false
		}
	case Component:
		if v.repo == nil || v.repo.system != s {
			return ref{}, false
		}
	case nil:
		return ref{}, false
	}
	return obj.ref()
}

func (s *EntitySystem) fromRef(r ref) (Ownable, bool) {
	idx, ok := s.entities.lookup(r.entity)
	if !ok {
		return nil, false
	}
	if r.typ == nil {
		return Entity{system: s, index: idx, id: r.entity}, true
	}
	repo, ok := s.registry.get(r.typ)
	if !ok {
		return nil, false
	}
	slot := repo.componentAt(idx)
	if slot == 0 || repo.ids[slot] != r.id {
		return nil, false
	}
	return repo.handle(slot), true
}

// sweep removes the given objects and, iteratively, everything they own.
func (s *EntitySystem) sweep(pending []ref) {
	for len(pending) > 0 {
		r := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		idx, ok := s.entities.lookup(r.entity)
		if !ok {
			// already gone; still disown its objects
			pending = append(pending, s.owners.release(r)...)
			continue
		}
		if r.typ == nil {
			for _, c := range s.registry.removeAll(idx, r.entity) {
				pending = append(pending, s.owners.release(c)...)
			}
			s.entities.destroy(idx)
		} else if repo, ok := s.registry.get(r.typ); ok {
			if slot := repo.componentAt(idx); slot != 0 && repo.ids[slot] == r.id {
				repo.removeComponent(idx)
			}
		}
		pending = append(pending, s.owners.release(r)...)
	}
}
