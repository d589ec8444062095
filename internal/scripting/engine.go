package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/l1jgo/entreri/internal/core/ecs"
	"github.com/l1jgo/entreri/internal/core/task"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// TypeResolver maps a component type name used by scripts to its type.
type TypeResolver func(name string) (*ecs.ComponentType, bool)

// Engine wraps a single gopher-lua VM running script tasks. The VM is not
// goroutine safe, so every call into it holds mu; script tasks of jobs that
// could otherwise overlap run one at a time.
type Engine struct {
	mu      sync.Mutex
	vm      *lua.LState
	log     *zap.Logger
	resolve TypeResolver
	tasks   []*ScriptTask

	// set while a script task is being processed
	cur *call
}

type call struct {
	sys  *ecs.EntitySystem
	job  *task.Job
	task *ScriptTask
}

// NewEngine creates a Lua engine and loads every .lua file in scriptsDir, in
// name order, as a script task. A missing directory loads nothing.
func NewEngine(scriptsDir string, resolve TypeResolver, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log, resolve: resolve}
	e.openECS()

	if err := e.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		t, err := e.loadFile(path)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.tasks = append(e.tasks, t)
		e.log.Debug("loaded lua script", zap.String("file", path), zap.String("task", t.name))
	}
	return nil
}

// loadFile runs a script and builds a task from the table it returns.
func (e *Engine) loadFile(path string) (*ScriptTask, error) {
	fn, err := e.vm.LoadFile(path)
	if err != nil {
		return nil, err
	}
	e.vm.Push(fn)
	if err := e.vm.PCall(0, 1, nil); err != nil {
		return nil, err
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)

	def, ok := ret.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("script returned %s, want a table", ret.Type())
	}

	t := &ScriptTask{
		engine: e,
		name:   strings.TrimSuffix(filepath.Base(path), ".lua"),
		phase:  "update",
	}
	if s := lStr(def, "name"); s != "" {
		t.name = s
	}
	if s := lStr(def, "phase"); s != "" {
		t.phase = s
	}
	t.process, ok = def.RawGetString("process").(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("script %s: process must be a function", t.name)
	}
	t.access.EntitySetModified = lua.LVAsBool(def.RawGetString("entity_set_modified"))
	if t.access.Modified, err = e.types(def, "writes"); err != nil {
		return nil, fmt.Errorf("script %s: %w", t.name, err)
	}
	if t.access.ReadOnly, err = e.types(def, "reads"); err != nil {
		return nil, fmt.Errorf("script %s: %w", t.name, err)
	}
	return t, nil
}

func (e *Engine) types(def *lua.LTable, key string) ([]*ecs.ComponentType, error) {
	v := def.RawGetString(key)
	if v == lua.LNil {
		return nil, nil
	}
	list, ok := v.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%s must be a list of type names", key)
	}
	var out []*ecs.ComponentType
	for i := 1; i <= list.Len(); i++ {
		name := lua.LVAsString(list.RawGetInt(i))
		typ, ok := e.resolve(name)
		if !ok {
			return nil, fmt.Errorf("%s: unknown component type %q", key, name)
		}
		out = append(out, typ)
	}
	return out, nil
}

// Tasks returns the loaded script tasks in load order.
func (e *Engine) Tasks() []*ScriptTask {
	out := make([]*ScriptTask, len(e.tasks))
	copy(out, e.tasks)
	return out
}

// Task returns the script task with the given name.
func (e *Engine) Task(name string) (*ScriptTask, bool) {
	for _, t := range e.tasks {
		if t.name == name {
			return t, true
		}
	}
	return nil, false
}

// lStr reads a string field from a Lua table.
func lStr(t *lua.LTable, key string) string {
	v := t.RawGetString(key)
	if v == lua.LNil {
		return ""
	}
	return lua.LVAsString(v)
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Close()
}
