package task

import "github.com/l1jgo/entreri/internal/core/ecs"

// Access declares which component types a task touches. Every task supplies
// one; a job derives its whole lock set from them.
type Access struct {
	// Modified types are written. A type listed in both Modified and
	// ReadOnly is treated as written.
	Modified []*ecs.ComponentType
	ReadOnly []*ecs.ComponentType
	// EntitySetModified is set by tasks that add or remove entities or
	// components, or that may touch anything. It makes the job exclusive.
	EntitySetModified bool
}

// Exclusive is the worst-case declaration for tasks that cannot state what
// they touch.
func Exclusive() Access {
	return Access{EntitySetModified: true}
}

// Reads declares read-only access to types.
func Reads(types ...*ecs.ComponentType) Access {
	return Access{ReadOnly: types}
}

// Writes declares write access to modified and read-only access to read.
func Writes(modified []*ecs.ComponentType, read ...*ecs.ComponentType) Access {
	return Access{Modified: modified, ReadOnly: read}
}

// Task is one unit of processing inside a Job.
type Task interface {
	Access() Access
	// Reset is called on every task of a job before any of them is processed.
	Reset(sys *ecs.EntitySystem)
	// Process runs the task. A non-nil returned task is run after the whole
	// job, in a follow-up job.
	Process(sys *ecs.EntitySystem, job *Job) (Task, error)
}

// ResultReceiver is implemented by tasks that want results reported by other
// tasks of the same job.
type ResultReceiver interface {
	Receivers() []Receiver
}
