package rt

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// DefaultInitialFrames is the initial frame-stack capacity of a new Thread.
const DefaultInitialFrames = 64

// ---------------------------------------------------------------------------
// Thread: one root-scanning chain per goroutine
// ---------------------------------------------------------------------------

// Thread owns the frame chain of one translated thread of execution.
//
// frames[0] is the sentinel frame, permanently alive. frames[1..top] are the
// live frames, innermost last; frames[i+1] is the forward link of frames[i].
// A Thread must only be used by the goroutine running it. Go has no
// thread-local storage, so the Thread travels explicitly with every Frame.
type Thread struct {
	id      uuid.UUID
	name    string
	runtime *Runtime

	frames []*Frame // index-addressed call chain
	top    int      // index of the innermost live frame

	// scan is held by the thread while it runs translated code and by the
	// collector while it suspends the thread. Safepoints release it.
	scan    sync.Mutex
	running bool // written only with scan held
	closed  atomic.Bool
}

func newThread(r *Runtime, name string, capacity int) *Thread {
	if capacity < 1 {
		capacity = DefaultInitialFrames
	}
	t := &Thread{
		id:      uuid.New(),
		name:    name,
		runtime: r,
		frames:  make([]*Frame, capacity),
	}
	t.frames[0] = &Frame{thread: t, index: 0, name: "<sentinel>", live: true}
	return t
}

// ID returns the thread's unique identifier.
func (t *Thread) ID() uuid.UUID { return t.id }

// Name returns the thread's name.
func (t *Thread) Name() string { return t.name }

// Runtime returns the runtime the thread belongs to.
func (t *Thread) Runtime() *Runtime { return t.runtime }

func (t *Thread) String() string {
	return fmt.Sprintf("thread %s (%s)", t.name, t.id.String()[:8])
}

// Sentinel returns the thread's permanently-alive first frame.
func (t *Thread) Sentinel() *Frame { return t.frames[0] }

// Top returns the innermost live frame (the sentinel when no call is active).
func (t *Thread) Top() *Frame { return t.frames[t.top] }

// Depth returns the number of live frames above the sentinel.
func (t *Thread) Depth() int { return t.top }

// Walk calls fn for each live frame from the sentinel to the innermost,
// following forward links. It stops early if fn returns false.
func (t *Thread) Walk(fn func(f *Frame) bool) {
	for f := t.Sentinel(); f != nil; f = f.Next() {
		if !fn(f) {
			return
		}
	}
}

// Trace returns the names of the live frames above the sentinel,
// innermost last.
func (t *Thread) Trace() []string {
	return t.traceTo(t.top)
}

func (t *Thread) traceTo(index int) []string {
	if index > t.top {
		index = t.top
	}
	names := make([]string, 0, index)
	for i := 1; i <= index; i++ {
		names = append(names, t.frames[i].name)
	}
	return names
}

// push installs f as the child of frames[f.index-1], growing the stack
// dynamically instead of failing.
func (t *Thread) push(f *Frame) {
	if f.index >= len(t.frames) {
		n := len(t.frames) * 2
		for n <= f.index {
			n *= 2
		}
		grown := make([]*Frame, n)
		copy(grown, t.frames)
		t.frames = grown
	}
	t.frames[f.index] = f
	t.top = f.index
}

// truncate leaves every frame above index, innermost first, and makes
// frames[index] the tip of the chain.
func (t *Thread) truncate(index int) {
	for i := t.top; i > index; i-- {
		f := t.frames[i]
		f.live = false
		f.locals = nil
		t.frames[i] = nil
	}
	if index < t.top {
		t.top = index
	}
}

// ---------------------------------------------------------------------------
// Running and safepoints
// ---------------------------------------------------------------------------

// Run executes body on the calling goroutine as this thread's translated
// code, passing the sentinel as the parent for the outermost frame. While
// body runs, the collector can only scan the thread at a safepoint.
// Failures escaping body propagate to the caller; the chain is reset to the
// sentinel first.
//
// A nested Run (translated code calling back into Run) gets the current top
// frame as parent, and the chain is reset to that frame when it returns.
func (t *Thread) Run(body func(parent *Frame)) {
	if t.running {
		entry := t.top
		defer t.truncate(entry)
		body(t.frames[entry])
		return
	}
	t.scan.Lock()
	t.running = true
	defer func() {
		t.truncate(0)
		t.running = false
		t.scan.Unlock()
	}()
	body(t.Sentinel())
}

// Safepoint lets a pending collection suspend the thread. Long-running
// translated loops call it at back edges.
func (t *Thread) Safepoint() {
	if !t.running {
		return
	}
	t.scan.Unlock()
	runtime.Gosched()
	t.scan.Lock()
}

// Blocking runs fn with the thread parked at a safepoint, so a collection
// can proceed while fn blocks.
func (t *Thread) Blocking(fn func()) {
	if !t.running {
		fn()
		return
	}
	t.scan.Unlock()
	defer t.scan.Lock()
	fn()
}

// Suspend stops the thread at its next safepoint (or immediately if it is
// not running) and keeps it stopped until Resume. Used by the collector.
func (t *Thread) Suspend() { t.scan.Lock() }

// Resume releases a thread stopped by Suspend.
func (t *Thread) Resume() { t.scan.Unlock() }

// Close unregisters the thread from its runtime and collector. Any frames
// still linked are left. Close must be called by the goroutine that owns
// the thread; other goroutines use Runtime.Close.
func (t *Thread) Close() {
	if !t.closed.CompareAndSwap(false, true) {
		return
	}
	if t.running {
		t.truncate(0)
	} else {
		t.scan.Lock()
		t.truncate(0)
		t.scan.Unlock()
	}
	t.runtime.removeThread(t)
}

// closeIdle closes the thread from a foreign goroutine if it is not running
// translated code. Returns false, leaving the thread open, if it is.
func (t *Thread) closeIdle() bool {
	t.scan.Lock()
	if t.running {
		t.scan.Unlock()
		return false
	}
	if !t.closed.CompareAndSwap(false, true) {
		t.scan.Unlock()
		return true
	}
	t.truncate(0)
	t.scan.Unlock()
	t.runtime.removeThread(t)
	return true
}

// Closed reports whether the thread has been closed.
func (t *Thread) Closed() bool { return t.closed.Load() }
