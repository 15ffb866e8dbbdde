package collector

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/chazu/objrt/rt"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("objrt.collector")

// ---------------------------------------------------------------------------
// Collector: global roots, thread chains and tracked allocations
// ---------------------------------------------------------------------------

// Stats holds statistics from a single collection cycle.
type Stats struct {
	Cycle     string        `cbor:"1,keyasint"` // cycle UUID
	Threads   int           `cbor:"2,keyasint"`
	Frames    int           `cbor:"3,keyasint"`
	Roots     int           `cbor:"4,keyasint"`
	Tracked   int           `cbor:"5,keyasint"`
	Marked    int           `cbor:"6,keyasint"`
	Reclaimed int           `cbor:"7,keyasint"`
	Deferred  int           `cbor:"8,keyasint"` // allocated during the cycle
	Duration  time.Duration `cbor:"9,keyasint"`
	Timestamp time.Time     `cbor:"10,keyasint"`
}

// Options configures a Collector.
type Options struct {
	// Interval is the period of the background loop started by Start.
	// Zero means DefaultInterval.
	Interval time.Duration

	// OnReclaim is called for each object swept by a cycle, after every
	// thread has been resumed.
	OnReclaim func(obj rt.Traceable)
}

// Collector implements rt.Collector with a stop-the-world mark phase over
// every registered thread chain and global root, followed by a sweep of
// tracked objects the mark did not reach.
//
// Tracked and root values are used as map keys and must be comparable.
// Translated classes are pointers, which always are.
type Collector struct {
	mu      sync.Mutex
	roots   map[rt.Traceable]struct{}
	threads map[*rt.Thread]struct{}
	heap    map[rt.Traceable]uint64 // object -> epoch it was tracked in
	epoch   uint64

	cycleMu   sync.Mutex // serializes cycles
	onReclaim func(obj rt.Traceable)

	// Background loop
	interval time.Duration
	enabled  atomic.Bool
	stop     chan struct{}
	stopped  chan struct{}
	loopMu   sync.Mutex // protects start/stop lifecycle

	// Statistics
	cycleCount atomic.Uint64
	lastStats  atomic.Value // *Stats
}

// New creates a Collector. The background loop is not started.
func New(opts Options) *Collector {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	c := &Collector{
		roots:     make(map[rt.Traceable]struct{}),
		threads:   make(map[*rt.Thread]struct{}),
		heap:      make(map[rt.Traceable]uint64),
		onReclaim: opts.OnReclaim,
		interval:  interval,
	}
	c.enabled.Store(true)
	return c
}

// AddRoot registers a global root.
func (c *Collector) AddRoot(root rt.Traceable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roots[root] = struct{}{}
}

// RemoveRoot unregisters a global root.
func (c *Collector) RemoveRoot(root rt.Traceable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.roots, root)
}

// AddThread registers a thread whose frame chain is scanned.
func (c *Collector) AddThread(t *rt.Thread) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.threads[t] = struct{}{}
}

// RemoveThread unregisters a thread.
func (c *Collector) RemoveThread(t *rt.Thread) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.threads, t)
}

// Track registers a freshly allocated object for sweeping. An object
// tracked while a cycle is running survives that cycle.
func (c *Collector) Track(obj rt.Traceable) {
	if rt.IsNil(obj) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.heap[obj] = c.epoch
}

// IsTracked reports whether obj is tracked and not yet swept.
func (c *Collector) IsTracked(obj rt.Traceable) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.heap[obj]
	return ok
}

// RootCount returns the number of registered global roots.
func (c *Collector) RootCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.roots)
}

// ThreadCount returns the number of registered threads.
func (c *Collector) ThreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.threads)
}

// HeapSize returns the number of tracked objects.
func (c *Collector) HeapSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.heap)
}

func (c *Collector) snapshot() ([]rt.Traceable, []*rt.Thread) {
	roots := make([]rt.Traceable, 0, len(c.roots))
	for r := range c.roots {
		roots = append(roots, r)
	}
	threads := make([]*rt.Thread, 0, len(c.threads))
	for t := range c.threads {
		threads = append(threads, t)
	}
	return roots, threads
}

// ---------------------------------------------------------------------------
// Mark phase
// ---------------------------------------------------------------------------

// Trace visits every registered global root and the locals of every live
// frame of every registered thread with tr. Threads other than self are
// suspended for the duration. Returns the number of frames scanned.
func (c *Collector) Trace(self *rt.Thread, tr rt.Tracer) int {
	c.lockCycle(self)
	defer c.cycleMu.Unlock()

	c.mu.Lock()
	roots, threads := c.snapshot()
	c.mu.Unlock()
	return traceFrom(self, roots, threads, tr)
}

// lockCycle acquires cycleMu. A running self waits parked at a safepoint,
// since the holder may be waiting to suspend it.
func (c *Collector) lockCycle(self *rt.Thread) {
	if self != nil {
		self.Blocking(c.cycleMu.Lock)
	} else {
		c.cycleMu.Lock()
	}
}

func traceFrom(self *rt.Thread, roots []rt.Traceable, threads []*rt.Thread, tr rt.Tracer) int {
	for _, t := range threads {
		if t != self {
			t.Suspend()
		}
	}
	defer func() {
		for _, t := range threads {
			if t != self {
				t.Resume()
			}
		}
	}()

	frames := 0
	for _, t := range threads {
		t.Walk(func(f *rt.Frame) bool {
			frames++
			f.Mark(tr)
			return true
		})
	}
	for _, r := range roots {
		tr.Visit(r)
	}
	return frames
}

// ---------------------------------------------------------------------------
// Collection cycle
// ---------------------------------------------------------------------------

// Collect runs one full cycle: it stops every registered thread except
// self at a safepoint, marks everything reachable from the thread chains
// and global roots, resumes the threads and sweeps unreachable tracked
// objects. self is the calling thread, or nil when called from outside
// translated code.
func (c *Collector) Collect(self *rt.Thread) *Stats {
	c.lockCycle(self)
	defer c.cycleMu.Unlock()

	start := time.Now()
	stats := &Stats{
		Cycle:     uuid.NewString(),
		Timestamp: start,
	}

	c.mu.Lock()
	c.epoch++
	cycle := c.epoch
	roots, threads := c.snapshot()
	c.mu.Unlock()

	m := newMarker()
	stats.Frames = traceFrom(self, roots, threads, m)
	stats.Threads = len(threads)
	stats.Roots = len(roots)

	var reclaimed []rt.Traceable
	c.mu.Lock()
	stats.Tracked = len(c.heap)
	for obj, born := range c.heap {
		if born >= cycle {
			stats.Deferred++
			continue
		}
		if !m.isMarked(obj) {
			delete(c.heap, obj)
			reclaimed = append(reclaimed, obj)
		}
	}
	c.mu.Unlock()

	stats.Marked = m.count()
	stats.Reclaimed = len(reclaimed)
	if c.onReclaim != nil {
		for _, obj := range reclaimed {
			c.onReclaim(obj)
		}
	}
	stats.Duration = time.Since(start)

	c.cycleCount.Add(1)
	c.lastStats.Store(stats)
	log.Infof("cycle %s: %d threads, %d frames, %d roots, marked %d, reclaimed %d of %d tracked (%d deferred) in %s",
		stats.Cycle[:8], stats.Threads, stats.Frames, stats.Roots,
		stats.Marked, stats.Reclaimed, stats.Tracked, stats.Deferred, stats.Duration)
	return stats
}

// CycleCount returns the total number of cycles performed.
func (c *Collector) CycleCount() uint64 {
	return c.cycleCount.Load()
}

// LastStats returns statistics from the most recent cycle, or nil if no
// cycle has been performed yet.
func (c *Collector) LastStats() *Stats {
	v := c.lastStats.Load()
	if v == nil {
		return nil
	}
	return v.(*Stats)
}

var _ rt.Collector = (*Collector)(nil)
