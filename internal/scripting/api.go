package scripting

import (
	"fmt"
	"reflect"

	"github.com/l1jgo/entreri/internal/core/ecs"
	lua "github.com/yuin/gopher-lua"
)

// openECS installs the global ecs module:
//
//	ecs.count(type)                          -> number of components
//	ecs.each(type, fn(id, enabled))          -> visits every component
//	ecs.get(id, type, prop [, offset])       -> value, or nil without the component
//	ecs.set(id, type, prop, value [, offset])
//	ecs.enabled(id, type)                    -> bool
//	ecs.remove(id)                           -> needs entity_set_modified
//	ecs.report(key, value)                   -> reports a ScriptResult
//
// Entities are passed as ids.
func (e *Engine) openECS() {
	mod := e.vm.NewTable()
	e.vm.SetFuncs(mod, map[string]lua.LGFunction{
		"count":   e.luaCount,
		"each":    e.luaEach,
		"get":     e.luaGet,
		"set":     e.luaSet,
		"enabled": e.luaEnabled,
		"remove":  e.luaRemove,
		"report":  e.luaReport,
	})
	e.vm.SetGlobal("ecs", mod)
}

func (e *Engine) current(L *lua.LState) *call {
	if e.cur == nil {
		L.RaiseError("ecs: called outside a script task")
	}
	return e.cur
}

func (e *Engine) checkType(L *lua.LState, n int, write bool) *ecs.ComponentType {
	c := e.current(L)
	name := L.CheckString(n)
	typ, ok := e.resolve(name)
	if !ok {
		L.ArgError(n, "unknown component type "+name)
		return nil
	}
	if write && !c.task.writable(typ) {
		L.RaiseError("script %s does not declare writes to %s", c.task.name, typ.Name())
	}
	if !write && !c.task.readable(typ) {
		L.RaiseError("script %s does not declare reads of %s", c.task.name, typ.Name())
	}
	return typ
}

func (e *Engine) checkEntity(L *lua.LState, n int) ecs.Entity {
	c := e.current(L)
	id := uint64(L.CheckNumber(n))
	ent, ok := c.sys.Lookup(id)
	if !ok {
		L.ArgError(n, fmt.Sprintf("no live entity %d", id))
	}
	return ent
}

func (e *Engine) checkProperty(L *lua.LState, c ecs.Component, n int) ecs.DynamicProperty {
	name := L.CheckString(n)
	p, ok := c.Repository().Property(name)
	if !ok {
		L.ArgError(n, fmt.Sprintf("%s has no property %q", c.Type().Name(), name))
		return nil
	}
	dp, ok := p.(ecs.DynamicProperty)
	if !ok {
		L.ArgError(n, fmt.Sprintf("property %q is not accessible from scripts", name))
		return nil
	}
	return dp
}

func (e *Engine) checkOffset(L *lua.LState, p ecs.DynamicProperty, n int) int {
	off := L.OptInt(n, 0)
	if off < 0 || off >= p.ElementSize() {
		L.ArgError(n, fmt.Sprintf("offset %d out of range [0, %d)", off, p.ElementSize()))
	}
	return off
}

func (e *Engine) luaCount(L *lua.LState) int {
	typ := e.checkType(L, 1, false)
	L.Push(lua.LNumber(e.cur.sys.Repository(typ).Len()))
	return 1
}

func (e *Engine) luaEach(L *lua.LState) int {
	typ := e.checkType(L, 1, false)
	fn := L.CheckFunction(2)

	// snapshot first; the callback may remove entities
	var comps []ecs.Component
	e.cur.sys.Repository(typ).Each(func(c ecs.Component) { comps = append(comps, c) })
	for _, c := range comps {
		if !c.IsValid() {
			continue
		}
		L.Push(fn)
		L.Push(lua.LNumber(c.Entity().ID()))
		L.Push(lua.LBool(c.Enabled()))
		L.Call(2, 0)
	}
	return 0
}

func (e *Engine) luaGet(L *lua.LState) int {
	ent := e.checkEntity(L, 1)
	typ := e.checkType(L, 2, false)
	c, ok := ent.Get(typ)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	p := e.checkProperty(L, c, 3)
	off := e.checkOffset(L, p, 4)
	L.Push(toLua(L, p.Value(c.Index(), off)))
	return 1
}

func (e *Engine) luaSet(L *lua.LState) int {
	ent := e.checkEntity(L, 1)
	typ := e.checkType(L, 2, true)
	c, ok := ent.Get(typ)
	if !ok {
		L.RaiseError("entity %d has no %s", ent.ID(), typ.Name())
		return 0
	}
	p := e.checkProperty(L, c, 3)
	v := fromLua(L.CheckAny(4))
	off := e.checkOffset(L, p, 5)
	if err := p.SetValue(c.Index(), off, v); err != nil {
		L.RaiseError("set %s.%s: %s", typ.Name(), L.CheckString(3), err.Error())
	}
	return 0
}

func (e *Engine) luaEnabled(L *lua.LState) int {
	ent := e.checkEntity(L, 1)
	typ := e.checkType(L, 2, false)
	c, ok := ent.Get(typ)
	L.Push(lua.LBool(ok && c.Enabled()))
	return 1
}

func (e *Engine) luaRemove(L *lua.LState) int {
	c := e.current(L)
	if !c.task.access.EntitySetModified {
		L.RaiseError("script %s does not declare entity_set_modified", c.task.name)
	}
	ent := e.checkEntity(L, 1)
	if err := c.sys.RemoveEntity(ent); err != nil {
		L.RaiseError("remove %d: %s", ent.ID(), err.Error())
	}
	return 0
}

func (e *Engine) luaReport(L *lua.LState) int {
	c := e.current(L)
	key := L.CheckString(1)
	r := ScriptResult{Script: c.task.name, Key: key, Value: fromLua(L.Get(2))}
	if err := c.job.Report(r); err != nil {
		L.RaiseError("report %s: %s", key, err.Error())
	}
	return 0
}

func toLua(L *lua.LState, v any) lua.LValue {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return lua.LBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return lua.LNumber(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return lua.LNumber(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return lua.LNumber(rv.Float())
	case reflect.String:
		return lua.LString(rv.String())
	case reflect.Slice:
		t := L.NewTable()
		for i := 0; i < rv.Len(); i++ {
			t.Append(toLua(L, rv.Index(i).Interface()))
		}
		return t
	default:
		return lua.LNil
	}
}

func fromLua(v lua.LValue) any {
	switch x := v.(type) {
	case lua.LBool:
		return bool(x)
	case lua.LNumber:
		return float64(x)
	case lua.LString:
		return string(x)
	case *lua.LTable:
		out := make([]any, 0, x.Len())
		for i := 1; i <= x.Len(); i++ {
			out = append(out, fromLua(x.RawGetInt(i)))
		}
		return out
	default:
		return nil
	}
}
