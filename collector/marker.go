package collector

import "github.com/chazu/objrt/rt"

// marker is the Tracer of a collection cycle. Visit only grays an object;
// drain pops gray objects and lets each mark its referents, so arbitrarily
// deep or cyclic graphs never recurse on the Go stack.
type marker struct {
	marked   map[rt.Traceable]struct{}
	gray     []rt.Traceable
	draining bool
}

func newMarker() *marker {
	return &marker{marked: make(map[rt.Traceable]struct{})}
}

func (m *marker) Visit(ref rt.Traceable) {
	if rt.IsNil(ref) {
		return
	}
	if _, ok := m.marked[ref]; ok {
		return
	}
	m.marked[ref] = struct{}{}
	m.gray = append(m.gray, ref)
	if !m.draining {
		m.drain()
	}
}

// drain runs only from the outermost Visit; nested Visits from Mark just
// push.
func (m *marker) drain() {
	m.draining = true
	defer func() { m.draining = false }()
	for len(m.gray) > 0 {
		n := len(m.gray) - 1
		ref := m.gray[n]
		m.gray[n] = nil
		m.gray = m.gray[:n]
		ref.Mark(m)
	}
}

func (m *marker) isMarked(ref rt.Traceable) bool {
	_, ok := m.marked[ref]
	return ok
}

func (m *marker) count() int { return len(m.marked) }
