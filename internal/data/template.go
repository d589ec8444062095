package data

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/l1jgo/entreri/internal/core/ecs"
	"gopkg.in/yaml.v3"
)

// ComponentTemplate sets the properties of one component of a template.
// Scalars set offset 0; a sequence sets consecutive offsets of a value
// property, or the whole list of a list property.
type ComponentTemplate struct {
	Type       string         `yaml:"type"`
	Properties map[string]any `yaml:"properties"`
	Disabled   bool           `yaml:"disabled"`
}

// EntityTemplate describes an entity to spawn. Entities named in Owns are
// spawned with it and owned by it.
type EntityTemplate struct {
	Name       string              `yaml:"name"`
	Components []ComponentTemplate `yaml:"components"`
	Owns       []string            `yaml:"owns"`
}

type templateFile struct {
	Templates []EntityTemplate `yaml:"templates"`
}

// TypeResolver maps a component type name from a template file to its type.
type TypeResolver func(name string) (*ecs.ComponentType, bool)

// TemplateTable holds one prototype entity per template, built in a private
// EntitySystem. Spawning clones the prototype into the target system.
type TemplateTable struct {
	protos    *ecs.EntitySystem
	templates map[string]*EntityTemplate
	entities  map[string]ecs.Entity
	disabled  map[string][]*ecs.ComponentType // cloning does not carry the enabled flag
}

// LoadTemplateTable loads a templates yaml file.
func LoadTemplateTable(path string, resolve TypeResolver) (*TemplateTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}
	var f templateFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	t, err := NewTemplateTable(f.Templates, resolve)
	if err != nil {
		return nil, fmt.Errorf("load templates %s: %w", path, err)
	}
	return t, nil
}

// NewTemplateTable builds prototypes for entries.
func NewTemplateTable(entries []EntityTemplate, resolve TypeResolver) (*TemplateTable, error) {
	t := &TemplateTable{
		protos:    ecs.New(),
		templates: make(map[string]*EntityTemplate, len(entries)),
		entities:  make(map[string]ecs.Entity, len(entries)),
		disabled:  make(map[string][]*ecs.ComponentType),
	}
	for i := range entries {
		e := &entries[i]
		if e.Name == "" {
			return nil, fmt.Errorf("template %d: missing name", i)
		}
		if _, dup := t.templates[e.Name]; dup {
			return nil, fmt.Errorf("template %s: duplicate name", e.Name)
		}
		t.templates[e.Name] = e
	}
	for _, e := range t.templates {
		for _, owned := range e.Owns {
			if _, ok := t.templates[owned]; !ok {
				return nil, fmt.Errorf("template %s: owns unknown template %q", e.Name, owned)
			}
		}
		if err := t.checkCycle(e.Name, nil); err != nil {
			return nil, err
		}
		proto, err := t.build(e, resolve)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", e.Name, err)
		}
		t.entities[e.Name] = proto
	}
	return t, nil
}

func (t *TemplateTable) checkCycle(name string, path []string) error {
	for _, p := range path {
		if p == name {
			return fmt.Errorf("template %s: ownership cycle %v", name, append(path, name))
		}
	}
	path = append(path, name)
	for _, owned := range t.templates[name].Owns {
		if err := t.checkCycle(owned, path); err != nil {
			return err
		}
	}
	return nil
}

func (t *TemplateTable) build(e *EntityTemplate, resolve TypeResolver) (ecs.Entity, error) {
	proto := t.protos.AddEntity()
	for _, ct := range e.Components {
		typ, ok := resolve(ct.Type)
		if !ok {
			return ecs.Entity{}, fmt.Errorf("unknown component type %q", ct.Type)
		}
		c, err := proto.Add(typ)
		if err != nil {
			return ecs.Entity{}, err
		}
		if ct.Disabled {
			t.disabled[e.Name] = append(t.disabled[e.Name], typ)
		}
		for name, v := range ct.Properties {
			if err := setProperty(c, name, v); err != nil {
				return ecs.Entity{}, fmt.Errorf("%s.%s: %w", typ.Name(), name, err)
			}
		}
	}
	return proto, nil
}

func setProperty(c ecs.Component, name string, v any) error {
	p, ok := c.Repository().Property(name)
	if !ok {
		return errors.New("no such property")
	}
	dp, ok := p.(ecs.DynamicProperty)
	if !ok {
		return fmt.Errorf("property %T cannot be set from data", p)
	}
	seq, isSeq := v.([]any)
	if !isSeq || dp.ElementSize() == 1 {
		return dp.SetValue(c.Index(), 0, v)
	}
	if len(seq) != dp.ElementSize() {
		return fmt.Errorf("want %d values, got %d", dp.ElementSize(), len(seq))
	}
	for off, e := range seq {
		if err := dp.SetValue(c.Index(), off, e); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the template with the given name.
func (t *TemplateTable) Get(name string) (*EntityTemplate, bool) {
	e, ok := t.templates[name]
	return e, ok
}

// Names returns the template names in sorted order.
func (t *TemplateTable) Names() []string {
	names := make([]string, 0, len(t.templates))
	for name := range t.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (t *TemplateTable) Count() int {
	return len(t.templates)
}

// Spawn clones the named template into sys, along with the entities it owns.
// The caller must hold exclusive access to sys.
func (t *TemplateTable) Spawn(sys *ecs.EntitySystem, name string) (ecs.Entity, error) {
	proto, ok := t.entities[name]
	if !ok {
		return ecs.Entity{}, fmt.Errorf("spawn %q: unknown template", name)
	}
	e, err := sys.AddEntityFrom(proto)
	if err != nil {
		return ecs.Entity{}, fmt.Errorf("spawn %q: %w", name, err)
	}
	for _, typ := range t.disabled[name] {
		if c, ok := e.Get(typ); ok {
			c.SetEnabled(false)
		}
	}
	for _, owned := range t.templates[name].Owns {
		child, err := t.Spawn(sys, owned)
		if err != nil {
			_ = sys.RemoveEntity(e)
			return ecs.Entity{}, err
		}
		if err := sys.SetOwner(child, e); err != nil {
			_ = sys.RemoveEntity(e)
			_ = sys.RemoveEntity(child)
			return ecs.Entity{}, fmt.Errorf("spawn %q: %w", name, err)
		}
	}
	return e, nil
}

// SpawnN spawns n copies of the named template.
func (t *TemplateTable) SpawnN(sys *ecs.EntitySystem, name string, n int) ([]ecs.Entity, error) {
	out := make([]ecs.Entity, 0, n)
	for range n {
		e, err := t.Spawn(sys, name)
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
	return out, nil
}
