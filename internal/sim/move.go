package sim

import (
	"github.com/l1jgo/entreri/internal/core/ecs"
	"github.com/l1jgo/entreri/internal/core/task"
)

// MoveTask integrates Velocity into Position using the job's ElapsedTime.
// Without an ElapsedTime report nothing moves.
type MoveTask struct {
	dt float64
}

func NewMoveTask() *MoveTask { return &MoveTask{} }

func (t *MoveTask) Access() task.Access {
	return task.Writes([]*ecs.ComponentType{Position}, Velocity)
}

func (t *MoveTask) Receivers() []task.Receiver {
	return []task.Receiver{
		task.Receive(func(e task.ElapsedTime) { t.dt = e.Seconds() }),
	}
}

func (t *MoveTask) Reset(_ *ecs.EntitySystem) { t.dt = 0 }

func (t *MoveTask) Process(sys *ecs.EntitySystem, _ *task.Job) (task.Task, error) {
	if t.dt == 0 {
		return nil, nil
	}
	px, py := PosX.Of(sys.Repository(Position)), PosY.Of(sys.Repository(Position))
	vx, vy := VelDX.Of(sys.Repository(Velocity)), VelDY.Of(sys.Repository(Velocity))
	ecs.Each2(sys, Position, Velocity, func(_ ecs.Entity, pos, vel ecs.Component) {
		if !pos.Enabled() || !vel.Enabled() {
			return
		}
		p, v := pos.Index(), vel.Index()
		px.Set(p, px.Get(p)+vx.Get(v)*t.dt)
		py.Set(p, py.Get(p)+vy.Get(v)*t.dt)
	})
	return nil, nil
}
