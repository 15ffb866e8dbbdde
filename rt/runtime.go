package rt

import (
	"sync"

	"github.com/chazu/objrt/monitor"
)

// ---------------------------------------------------------------------------
// Collector collaborator
// ---------------------------------------------------------------------------

// Collector is the registration surface the runtime needs from the garbage
// collector. The trace and sweep side lives with the implementation.
type Collector interface {
	AddRoot(root Traceable)
	RemoveRoot(root Traceable)
	AddThread(t *Thread)
	RemoveThread(t *Thread)
	Track(obj Traceable)
}

type nopCollector struct{}

func (nopCollector) AddRoot(Traceable)    {}
func (nopCollector) RemoveRoot(Traceable) {}
func (nopCollector) AddThread(*Thread)    {}
func (nopCollector) RemoveThread(*Thread) {}
func (nopCollector) Track(Traceable)      {}

// ---------------------------------------------------------------------------
// Runtime
// ---------------------------------------------------------------------------

// Options configures a Runtime.
type Options struct {
	// Collector receives root, thread and allocation registrations.
	// Nil discards them.
	Collector Collector

	// InitialFrames is the initial frame-stack capacity of new threads.
	InitialFrames int

	// CheckInvariants makes malformed frame nesting panic with
	// ErrMalformedNesting instead of being repaired.
	CheckInvariants bool
}

// Runtime is the process-wide state shared by translated code: the
// collector, the registered threads and the class-level monitors.
//
// A Runtime must be created before the first GlobalRef or Thread that uses
// it, and closed only after the last of them is done.
type Runtime struct {
	collector       Collector
	initialFrames   int
	checkInvariants bool

	classMonitors *monitor.Table

	threads map[*Thread]struct{}
	mu      sync.Mutex
}

// New creates a Runtime.
func New(opts Options) *Runtime {
	c := opts.Collector
	if c == nil {
		c = nopCollector{}
	}
	return &Runtime{
		collector:       c,
		initialFrames:   opts.InitialFrames,
		checkInvariants: opts.CheckInvariants,
		classMonitors:   monitor.NewTable(),
		threads:         make(map[*Thread]struct{}),
	}
}

// Collector returns the runtime's collector.
func (r *Runtime) Collector() Collector { return r.collector }

// ChecksInvariants reports whether malformed nesting panics.
func (r *Runtime) ChecksInvariants() bool { return r.checkInvariants }

// NewThread creates a thread with its sentinel frame and registers it with
// the collector.
func (r *Runtime) NewThread(name string) *Thread {
	t := newThread(r, name, r.initialFrames)
	r.mu.Lock()
	r.threads[t] = struct{}{}
	r.mu.Unlock()
	r.collector.AddThread(t)
	log.Debugf("thread %s started", t)
	return t
}

func (r *Runtime) removeThread(t *Thread) {
	r.mu.Lock()
	delete(r.threads, t)
	r.mu.Unlock()
	r.collector.RemoveThread(t)
	log.Debugf("thread %s closed", t)
}

// Threads returns a snapshot of the registered threads.
func (r *Runtime) Threads() []*Thread {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Thread, 0, len(r.threads))
	for t := range r.threads {
		out = append(out, t)
	}
	return out
}

// ThreadCount returns the number of registered threads.
func (r *Runtime) ThreadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.threads)
}

// Close closes every registered thread that is not running translated
// code. Threads inside Run stay registered and untouched. Returns the number
// of threads that were still open, running or not. Must not be called from
// inside Run.
func (r *Runtime) Close() int {
	open := r.Threads()
	running := 0
	for _, t := range open {
		if !t.closeIdle() {
			running++
		}
	}
	if running > 0 {
		log.Warningf("runtime closed with %d threads still running", running)
	}
	if len(open) > 0 {
		log.Warningf("runtime closed with %d open threads", len(open))
	}
	return len(open)
}

// ---------------------------------------------------------------------------
// Allocation and class monitors
// ---------------------------------------------------------------------------

// Alloc registers a freshly constructed object with t's collector and returns
// it. Object construction itself never registers.
func Alloc[T Traceable](t *Thread, obj T) T {
	t.runtime.collector.Track(obj)
	return obj
}

// ClassMonitor returns the monitor for a lock target without a monitor slot
// of its own, such as a translated class for static synchronized methods.
// key must be comparable.
func (r *Runtime) ClassMonitor(key any) *monitor.Monitor {
	return r.classMonitors.For(key)
}

// EnterClassMonitor acquires the class-level monitor for key.
func (r *Runtime) EnterClassMonitor(t *Thread, key any) {
	m := r.classMonitors.Pin(key)
	defer r.classMonitors.Unpin(key)
	enterMonitor(m, t)
}

// LeaveClassMonitor releases the class-level monitor for key.
// Raises IllegalMonitorState if t does not hold it.
func (r *Runtime) LeaveClassMonitor(t *Thread, key any) {
	leaveMonitor(r.classMonitors.For(key), t)
}

// SweepClassMonitors drops class monitors nobody holds or waits on.
func (r *Runtime) SweepClassMonitors() int {
	return r.classMonitors.Sweep()
}
