package sim

import "github.com/l1jgo/entreri/internal/core/ecs"

// Component types used by the simulation. Their layout is fixed at package
// init, before any EntitySystem sees them.
var (
	Position = ecs.NewComponentType("sim.Position")
	PosX     = ecs.DefineValue(Position, "x", ecs.Values[float64](1, 0))
	PosY     = ecs.DefineValue(Position, "y", ecs.Values[float64](1, 0))

	Velocity = ecs.NewComponentType("sim.Velocity")
	VelDX    = ecs.DefineValue(Velocity, "dx", ecs.Values[float64](1, 0))
	VelDY    = ecs.DefineValue(Velocity, "dy", ecs.Values[float64](1, 0))

	// Lifetime counts down in seconds; the entity is removed at zero.
	Lifetime  = ecs.NewComponentType("sim.Lifetime")
	Remaining = ecs.DefineValue(Lifetime, "remaining", ecs.Values[float64](1, 0))

	Tags    = ecs.NewComponentType("sim.Tags")
	TagList = ecs.DefineList(Tags, "tags", ecs.Lists[string]())
)

// Types lists every simulation component type, in lock order.
func Types() []*ecs.ComponentType {
	return []*ecs.ComponentType{Lifetime, Position, Tags, Velocity}
}

// TypeByName resolves a simulation component type from its name, with or
// without the "sim." prefix.
func TypeByName(name string) (*ecs.ComponentType, bool) {
	for _, t := range Types() {
		if t.Name() == name || t.Name() == "sim."+name {
			return t, true
		}
	}
	return nil, false
}
