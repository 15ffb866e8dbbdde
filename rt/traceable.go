package rt

import (
	"reflect"
)

// ---------------------------------------------------------------------------
// Trace protocol
// ---------------------------------------------------------------------------

// Traceable is anything the collector's trace phase can visit.
//
// Mark must call tr.Visit for every reference the instance owns. Leaves
// implement it as a no-op. Implementations must be pointer types: the
// tracer keys its mark set by identity.
type Traceable interface {
	Mark(tr Tracer)
}

// Tracer is the collector side of a trace pass.
//
// Visit ignores nil references (including typed nil pointers), marks the
// target the first time it is seen and arranges for the target's own Mark
// to run, so tracing is transitive and terminates on cycles.
type Tracer interface {
	Visit(ref Traceable)
}

// MarkAll visits every reference in refs.
func MarkAll[T Traceable](tr Tracer, refs ...T) {
	for _, ref := range refs {
		if !IsNil(ref) {
			tr.Visit(ref)
		}
	}
}

// IsNil reports whether v is nil, looking through interfaces that hold a
// typed nil pointer, map, slice, func or channel.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func,
		reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}
