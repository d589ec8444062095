package scripting

import (
	"fmt"

	"github.com/l1jgo/entreri/internal/core/ecs"
	"github.com/l1jgo/entreri/internal/core/task"
	lua "github.com/yuin/gopher-lua"
)

// ScriptResult is reported by ecs.report from a script.
type ScriptResult struct {
	Script string
	Key    string
	Value  any
}

func (ScriptResult) Singleton() bool { return false }

// ScriptTask runs a script's process function as a task. The script's
// declared reads and writes become the task's access, and the ecs module
// refuses to touch anything outside them.
type ScriptTask struct {
	engine  *Engine
	name    string
	phase   string
	access  task.Access
	process *lua.LFunction
	dt      float64
}

func (t *ScriptTask) Name() string        { return t.name }
func (t *ScriptTask) Phase() string       { return t.phase }
func (t *ScriptTask) Access() task.Access { return t.access }

func (t *ScriptTask) Receivers() []task.Receiver {
	return []task.Receiver{
		task.Receive(func(e task.ElapsedTime) { t.dt = e.Seconds() }),
	}
}

func (t *ScriptTask) Reset(_ *ecs.EntitySystem) { t.dt = 0 }

func (t *ScriptTask) Process(sys *ecs.EntitySystem, job *task.Job) (task.Task, error) {
	e := t.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cur = &call{sys: sys, job: job, task: t}
	defer func() { e.cur = nil }()

	if err := e.vm.CallByParam(lua.P{
		Fn:      t.process,
		NRet:    0,
		Protect: true,
	}, lua.LNumber(t.dt)); err != nil {
		return nil, fmt.Errorf("script %s: %w", t.name, err)
	}
	return nil, nil
}

func (t *ScriptTask) readable(typ *ecs.ComponentType) bool {
	if t.access.EntitySetModified || t.writable(typ) {
		return true
	}
	for _, r := range t.access.ReadOnly {
		if r == typ {
			return true
		}
	}
	return false
}

func (t *ScriptTask) writable(typ *ecs.ComponentType) bool {
	if t.access.EntitySetModified {
		return true
	}
	for _, w := range t.access.Modified {
		if w == typ {
			return true
		}
	}
	return false
}
