package task

import "reflect"

// Result is a value reported by a task to the other tasks of its job.
type Result interface {
	// Singleton results may be reported at most once per job run.
	Singleton() bool
}

// Receiver is a typed callback for one result type. Build it with Receive.
type Receiver struct {
	typ reflect.Type
	fn  func(Result)
}

// Receive registers fn for results of type R. When R is an interface type fn
// receives every result implementing it, which is how a task subscribes to
// a whole family of results.
func Receive[R Result](fn func(R)) Receiver {
	return Receiver{
		typ: reflect.TypeOf((*R)(nil)).Elem(),
		fn:  func(r Result) { fn(r.(R)) },
	}
}

// Type returns the result type the receiver accepts.
func (r Receiver) Type() reflect.Type { return r.typ }

// dispatcher routes results to receivers in task-declaration order. Matches
// are resolved once per concrete result type and cached.
type dispatcher struct {
	receivers []Receiver
	cache     map[reflect.Type][]Receiver
}

func newDispatcher() *dispatcher {
	return &dispatcher{cache: make(map[reflect.Type][]Receiver)}
}

func (d *dispatcher) add(r Receiver) {
	if r.fn == nil {
		return
	}
	d.receivers = append(d.receivers, r)
}

func (d *dispatcher) lookup(t reflect.Type) []Receiver {
	if rs, ok := d.cache[t]; ok {
		return rs
	}
	var rs []Receiver
	for _, r := range d.receivers {
		if r.typ == t || (r.typ.Kind() == reflect.Interface && t.Implements(r.typ)) {
			rs = append(rs, r)
		}
	}
	d.cache[t] = rs
	return rs
}

func (d *dispatcher) dispatch(r Result) {
	for _, rcv := range d.lookup(reflect.TypeOf(r)) {
		rcv.fn(r)
	}
}
