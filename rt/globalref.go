package rt

import (
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// Global roots
// ---------------------------------------------------------------------------

// rootEntry is the registration half of a global root. It owns no reference;
// the typed wrapper holds the only storage slot.
type rootEntry struct {
	runtime *Runtime
	closed  atomic.Bool
}

func (e *rootEntry) register(r *Runtime, self Traceable) {
	e.runtime = r
	r.collector.AddRoot(self)
}

func (e *rootEntry) unregister(self Traceable) {
	if e.closed.CompareAndSwap(false, true) {
		e.runtime.collector.RemoveRoot(self)
	}
}

// refBox is the immutable cell swapped into a GlobalRef on assignment.
type refBox[T any] struct {
	v T
}

// GlobalRef is a typed root living outside any call frame, for statics and
// caches. It holds either a live object or nothing. Assignment swaps an
// immutable box atomically, so a concurrent trace never sees a torn value.
type GlobalRef[T Traceable] struct {
	rootEntry
	slot atomic.Pointer[refBox[T]]
}

// NewGlobalRef creates an empty global root registered with r's collector.
func NewGlobalRef[T Traceable](r *Runtime) *GlobalRef[T] {
	g := &GlobalRef[T]{}
	g.register(r, g)
	return g
}

// Set replaces the held reference. A nil v empties the root.
// Assignment never traces.
func (g *GlobalRef[T]) Set(v T) {
	if IsNil(v) {
		g.slot.Store(nil)
		return
	}
	g.slot.Store(&refBox[T]{v: v})
}

// Get returns the held reference, or the zero (nil) T when empty.
func (g *GlobalRef[T]) Get() T {
	if b := g.slot.Load(); b != nil {
		return b.v
	}
	var zero T
	return zero
}

// Deref returns the held reference for member access.
// Raises NullDereference when the root is empty.
func (g *GlobalRef[T]) Deref() T {
	b := g.slot.Load()
	if b == nil {
		Raise(NullDereference, nil, "empty global reference of type %s", typeName[T]())
	}
	return b.v
}

// IsNil reports whether the root is empty.
func (g *GlobalRef[T]) IsNil() bool { return g.slot.Load() == nil }

// Clear empties the root.
func (g *GlobalRef[T]) Clear() { g.slot.Store(nil) }

// Close unregisters the root from the collector. Safe to call more than
// once. The held reference is dropped.
func (g *GlobalRef[T]) Close() {
	g.unregister(g)
	g.slot.Store(nil)
}

// Closed reports whether Close was called.
func (g *GlobalRef[T]) Closed() bool { return g.closed.Load() }

// Mark visits the held reference, if any.
func (g *GlobalRef[T]) Mark(tr Tracer) {
	if b := g.slot.Load(); b != nil {
		tr.Visit(b.v)
	}
}
