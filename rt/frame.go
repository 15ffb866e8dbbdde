package rt

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Frame: per-call root marker
// ---------------------------------------------------------------------------

// Frame marks one active translated call and holds the references its local
// variables keep alive. Translated functions create exactly one Frame on
// entry and leave it on every exit path:
//
//	func (p *Point) Move(parent *rt.Frame, other *Point) {
//		f := rt.NewFrame(parent, "Point.Move", 1)
//		defer f.Leave()
//		f.SetLocal(0, other)
//		...
//	}
type Frame struct {
	thread *Thread
	index  int
	name   string
	locals []Traceable
	live   bool
}

// NewFrame creates the only child of parent, with room for slots local
// references. parent must be live; the outermost frame's parent is the
// thread's sentinel.
//
// If parent already has a live child the nesting is malformed: an
// invariant-checking runtime panics with ErrMalformedNesting, otherwise the
// stale child and everything above it are left first.
func NewFrame(parent *Frame, name string, slots int) *Frame {
	if parent == nil || !parent.live {
		panic(fmt.Errorf("%w: frame %q created without a live parent", ErrMalformedNesting, name))
	}
	t := parent.thread
	if t.top > parent.index {
		if t.runtime.checkInvariants {
			panic(fmt.Errorf("%w: %q already has live child %q", ErrMalformedNesting,
				parent.name, t.frames[parent.index+1].name))
		}
		t.truncate(parent.index)
	}
	f := &Frame{
		thread: t,
		index:  parent.index + 1,
		name:   name,
		live:   true,
	}
	if slots > 0 {
		f.locals = make([]Traceable, slots)
	}
	t.push(f)
	return f
}

// Enter is NewFrame with f as the parent.
func (f *Frame) Enter(name string, slots int) *Frame {
	return NewFrame(f, name, slots)
}

// Leave ends the frame, clearing its parent's forward link. It is meant to be
// deferred so it also runs when a failure unwinds through the call. Leaving
// an already-left frame does nothing.
func (f *Frame) Leave() {
	if f == nil || !f.live {
		return
	}
	t := f.thread
	if f.index == 0 {
		if t.runtime.checkInvariants {
			panic(fmt.Errorf("%w: the sentinel frame cannot be left", ErrMalformedNesting))
		}
		return
	}
	if t.top > f.index && t.runtime.checkInvariants {
		panic(fmt.Errorf("%w: %q left while %q is still live", ErrMalformedNesting,
			f.name, t.frames[f.index+1].name))
	}
	t.truncate(f.index - 1)
}

// Live reports whether the frame has not been left.
func (f *Frame) Live() bool { return f != nil && f.live }

// Name returns the frame's diagnostic name.
func (f *Frame) Name() string { return f.name }

// Thread returns the thread owning the frame.
func (f *Frame) Thread() *Thread { return f.thread }

// Depth returns the frame's distance from the sentinel.
func (f *Frame) Depth() int { return f.index }

// IsSentinel reports whether f is its thread's sentinel frame.
func (f *Frame) IsSentinel() bool { return f.index == 0 }

// Parent returns the enclosing frame, or nil for the sentinel or a left frame.
func (f *Frame) Parent() *Frame {
	if !f.live || f.index == 0 {
		return nil
	}
	return f.thread.frames[f.index-1]
}

// Next returns the forward link: the live child frame, or nil.
func (f *Frame) Next() *Frame {
	if !f.live || f.thread.top <= f.index {
		return nil
	}
	return f.thread.frames[f.index+1]
}

// ---------------------------------------------------------------------------
// Local reference slots
// ---------------------------------------------------------------------------

// NumLocals returns the number of local reference slots.
func (f *Frame) NumLocals() int { return len(f.locals) }

// Local returns the reference in slot i.
// Panics if i is out of range.
func (f *Frame) Local(i int) Traceable {
	if i < 0 || i >= len(f.locals) {
		panic("Frame.Local: index out of range")
	}
	return f.locals[i]
}

// SetLocal stores ref in slot i, keeping it alive while the frame is live.
// Panics if i is out of range.
func (f *Frame) SetLocal(i int, ref Traceable) {
	if i < 0 || i >= len(f.locals) {
		panic("Frame.SetLocal: index out of range")
	}
	f.locals[i] = ref
}

// Mark visits every non-nil local reference.
func (f *Frame) Mark(tr Tracer) {
	MarkAll(tr, f.locals...)
}
