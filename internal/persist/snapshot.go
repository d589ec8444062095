package persist

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/l1jgo/entreri/internal/core/ecs"
)

// Snapshot is a point-in-time copy of the component data of an entity
// system, keyed by entity id.
type Snapshot struct {
	ID         int64
	TakenAt    time.Time
	Entities   int
	Components []ComponentRow
	Owners     []OwnerRow
}

// ComponentRow holds one component. Properties maps each property name to
// its values, one per element offset.
type ComponentRow struct {
	Entity     uint64
	Type       string
	Enabled    bool
	Properties map[string][]any
}

// OwnerRow records that the object (Entity, Type) is owned by (OwnerEntity,
// OwnerType). An empty type means the entity itself.
type OwnerRow struct {
	Entity      uint64
	Type        string
	OwnerEntity uint64
	OwnerType   string
}

// Capture copies every component of the given types. Components of other
// types are left out, along with ownership links that touch them. The caller
// must hold at least read locks on types.
func Capture(sys *ecs.EntitySystem, types []*ecs.ComponentType) *Snapshot {
	snap := &Snapshot{TakenAt: time.Now(), Entities: sys.EntityCount()}
	captured := make(map[*ecs.ComponentType]bool, len(types))
	for _, t := range types {
		captured[t] = true
	}

	sorted := make([]*ecs.ComponentType, len(types))
	copy(sorted, types)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Compare(sorted[j]) < 0 })

	sys.Each(func(e ecs.Entity) {
		if owner, ok := sys.Owner(e); ok {
			if row, ok := ownerRow(e.ID(), "", owner, captured); ok {
				snap.Owners = append(snap.Owners, row)
			}
		}
		for _, t := range sorted {
			c, ok := e.Get(t)
			if !ok {
				continue
			}
			snap.Components = append(snap.Components, ComponentRow{
				Entity:     e.ID(),
				Type:       t.Name(),
				Enabled:    c.Enabled(),
				Properties: properties(c),
			})
			if owner, ok := sys.Owner(c); ok {
				if row, ok := ownerRow(e.ID(), t.Name(), owner, captured); ok {
					snap.Owners = append(snap.Owners, row)
				}
			}
		}
	})
	return snap
}

func ownerRow(entity uint64, typ string, owner ecs.Ownable, captured map[*ecs.ComponentType]bool) (OwnerRow, bool) {
	switch o := owner.(type) {
	case ecs.Entity:
		return OwnerRow{Entity: entity, Type: typ, OwnerEntity: o.ID()}, true
	case ecs.Component:
		if !captured[o.Type()] {
			return OwnerRow{}, false
		}
		return OwnerRow{Entity: entity, Type: typ, OwnerEntity: o.Entity().ID(), OwnerType: o.Type().Name()}, true
	default:
		return OwnerRow{}, false
	}
}

func properties(c ecs.Component) map[string][]any {
	repo := c.Repository()
	out := make(map[string][]any)
	for _, name := range c.Type().PropertyNames() {
		p, ok := repo.Property(name)
		if !ok {
			continue
		}
		dp, ok := p.(ecs.DynamicProperty)
		if !ok {
			continue
		}
		values := make([]any, dp.ElementSize())
		for off := range values {
			values[off] = dp.Value(c.Index(), off)
		}
		out[name] = values
	}
	return out
}

// TypeResolver maps a stored component type name to its type.
type TypeResolver func(name string) (*ecs.ComponentType, bool)

// Restore recreates the entities of snap in sys and returns the new entities
// keyed by their id in the snapshot. Entities get fresh ids; an entity with
// neither components nor ownership links is not recorded and so not restored.
// The caller must have exclusive access to sys.
func Restore(sys *ecs.EntitySystem, snap *Snapshot, resolve TypeResolver) (map[uint64]ecs.Entity, error) {
	entities := make(map[uint64]ecs.Entity)
	entity := func(id uint64) ecs.Entity {
		e, ok := entities[id]
		if !ok {
			e = sys.AddEntity()
			entities[id] = e
		}
		return e
	}

	for _, row := range snap.Components {
		typ, ok := resolve(row.Type)
		if !ok {
			return entities, fmt.Errorf("restore snapshot %d: unknown component type %q", snap.ID, row.Type)
		}
		c, err := entity(row.Entity).Add(typ)
		if err != nil {
			return entities, fmt.Errorf("restore snapshot %d: %w", snap.ID, err)
		}
		c.SetEnabled(row.Enabled)
		for name, values := range row.Properties {
			if err := restoreProperty(c, name, values); err != nil {
				return entities, fmt.Errorf("restore snapshot %d: %s.%s: %w", snap.ID, row.Type, name, err)
			}
		}
	}

	for _, row := range snap.Owners {
		obj, err := lookup(entity(row.Entity), row.Type, resolve)
		if err != nil {
			return entities, fmt.Errorf("restore snapshot %d: %w", snap.ID, err)
		}
		owner, err := lookup(entity(row.OwnerEntity), row.OwnerType, resolve)
		if err != nil {
			return entities, fmt.Errorf("restore snapshot %d: %w", snap.ID, err)
		}
		if err := sys.SetOwner(obj, owner); err != nil {
			return entities, fmt.Errorf("restore snapshot %d: %w", snap.ID, err)
		}
	}
	return entities, nil
}

func restoreProperty(c ecs.Component, name string, values []any) error {
	p, ok := c.Repository().Property(name)
	if !ok {
		return errors.New("no such property")
	}
	dp, ok := p.(ecs.DynamicProperty)
	if !ok {
		return fmt.Errorf("property %T cannot be restored", p)
	}
	if len(values) != dp.ElementSize() {
		return fmt.Errorf("want %d values, got %d", dp.ElementSize(), len(values))
	}
	for off, v := range values {
		if err := dp.SetValue(c.Index(), off, v); err != nil {
			return err
		}
	}
	return nil
}

func lookup(e ecs.Entity, typ string, resolve TypeResolver) (ecs.Ownable, error) {
	if typ == "" {
		return e, nil
	}
	t, ok := resolve(typ)
	if !ok {
		return nil, fmt.Errorf("owner link to unknown component type %q", typ)
	}
	c, ok := e.Get(t)
	if !ok {
		return nil, fmt.Errorf("owner link to missing %s on %s", typ, e)
	}
	return c, nil
}
