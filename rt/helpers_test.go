package rt

import (
	"sync"
)

// node is a minimal translated class with one reference field.
type node struct {
	Object
	name  string
	next  *node
	marks int
}

func (n *node) Mark(tr Tracer) {
	n.marks++
	MarkAll(tr, n.next)
}

// leaf is a translated class owning no references.
type leaf struct {
	Object
	id int
}

// recordingTracer records visits without recursing.
type recordingTracer struct {
	visited []Traceable
}

func (r *recordingTracer) Visit(ref Traceable) {
	r.visited = append(r.visited, ref)
}

// recursiveTracer marks transitively, once per object.
type recursiveTracer struct {
	seen map[Traceable]bool
}

func newRecursiveTracer() *recursiveTracer {
	return &recursiveTracer{seen: make(map[Traceable]bool)}
}

func (r *recursiveTracer) Visit(ref Traceable) {
	if IsNil(ref) || r.seen[ref] {
		return
	}
	r.seen[ref] = true
	ref.Mark(r)
}

// fakeCollector records registrations.
type fakeCollector struct {
	mu      sync.Mutex
	roots   map[Traceable]bool
	threads map[*Thread]bool
	tracked []Traceable
}

func newFakeCollector() *fakeCollector {
	return &fakeCollector{
		roots:   make(map[Traceable]bool),
		threads: make(map[*Thread]bool),
	}
}

func (c *fakeCollector) AddRoot(r Traceable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roots[r] = true
}

func (c *fakeCollector) RemoveRoot(r Traceable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.roots, r)
}

func (c *fakeCollector) AddThread(t *Thread) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.threads[t] = true
}

func (c *fakeCollector) RemoveThread(t *Thread) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.threads, t)
}

func (c *fakeCollector) Track(obj Traceable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracked = append(c.tracked, obj)
}

func newTestThread(check bool) (*Runtime, *Thread) {
	r := New(Options{Collector: newFakeCollector(), CheckInvariants: check, InitialFrames: 4})
	return r, r.NewThread("test")
}

// expectPanic runs fn and returns the recovered value, or nil.
func expectPanic(fn func()) (r any) {
	defer func() { r = recover() }()
	fn()
	return nil
}
