package rt

import (
	"errors"
	"testing"
)

// ---------------------------------------------------------------------------
// Chain linking
// ---------------------------------------------------------------------------

func TestNewThreadHasSentinel(t *testing.T) {
	_, th := newTestThread(true)
	s := th.Sentinel()

	if !s.Live() || !s.IsSentinel() {
		t.Fatal("sentinel should be live")
	}
	if s.Next() != nil {
		t.Error("fresh sentinel should have no forward link")
	}
	if s.Parent() != nil {
		t.Error("sentinel should have no parent")
	}
	if th.Top() != s || th.Depth() != 0 {
		t.Errorf("Expected sentinel at top with depth 0, got depth %d", th.Depth())
	}
}

func TestFrameLinksAndUnlinksParent(t *testing.T) {
	_, th := newTestThread(true)
	p := th.Sentinel()

	for round := 0; round < 3; round++ {
		f := NewFrame(p, "child", 0)
		if p.Next() != f {
			t.Fatalf("round %d: parent forward link should be the new frame", round)
		}
		if f.Parent() != p {
			t.Fatalf("round %d: child parent link should be p", round)
		}
		f.Leave()
		if p.Next() != nil {
			t.Fatalf("round %d: parent forward link should be nil after Leave", round)
		}
		if f.Live() {
			t.Fatalf("round %d: left frame should not be live", round)
		}
	}
}

func TestNestedFramesWalk(t *testing.T) {
	_, th := newTestThread(true)
	a := NewFrame(th.Sentinel(), "a", 0)
	b := a.Enter("b", 0)
	c := b.Enter("c", 0)

	var names []string
	th.Walk(func(f *Frame) bool {
		names = append(names, f.Name())
		return true
	})
	want := []string{"<sentinel>", "a", "b", "c"}
	if len(names) != len(want) {
		t.Fatalf("Expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Walk[%d]: expected %s, got %s", i, want[i], names[i])
		}
	}
	if c.Depth() != 3 || th.Depth() != 3 {
		t.Errorf("Expected depth 3, got frame %d thread %d", c.Depth(), th.Depth())
	}

	c.Leave()
	b.Leave()
	a.Leave()
	if th.Sentinel().Next() != nil || th.Depth() != 0 {
		t.Error("chain should be back to the sentinel")
	}
}

func TestLeaveTwiceIsNoop(t *testing.T) {
	_, th := newTestThread(true)
	a := NewFrame(th.Sentinel(), "a", 0)
	a.Leave()
	b := NewFrame(th.Sentinel(), "b", 0)
	a.Leave()
	if !b.Live() || th.Sentinel().Next() != b {
		t.Error("leaving a stale frame must not disturb the current chain")
	}
}

func TestFrameStackGrows(t *testing.T) {
	_, th := newTestThread(true) // capacity 4
	f := th.Sentinel()
	for i := 0; i < 100; i++ {
		f = f.Enter("deep", 0)
	}
	if th.Depth() != 100 {
		t.Errorf("Expected depth 100, got %d", th.Depth())
	}
	if th.Top() != f {
		t.Error("Top should be the innermost frame")
	}
}

// ---------------------------------------------------------------------------
// Malformed nesting
// ---------------------------------------------------------------------------

func TestCheckedRuntimeRejectsSecondChild(t *testing.T) {
	_, th := newTestThread(true)
	s := th.Sentinel()
	NewFrame(s, "first", 0)

	r := expectPanic(func() { NewFrame(s, "second", 0) })
	err, ok := r.(error)
	if !ok || !errors.Is(err, ErrMalformedNesting) {
		t.Errorf("Expected ErrMalformedNesting panic, got %v", r)
	}
}

func TestCheckedRuntimeRejectsLeavingWithLiveChild(t *testing.T) {
	_, th := newTestThread(true)
	a := NewFrame(th.Sentinel(), "a", 0)
	a.Enter("b", 0)

	r := expectPanic(a.Leave)
	err, ok := r.(error)
	if !ok || !errors.Is(err, ErrMalformedNesting) {
		t.Errorf("Expected ErrMalformedNesting panic, got %v", r)
	}
}

func TestUncheckedRuntimeRepairsNesting(t *testing.T) {
	_, th := newTestThread(false)
	s := th.Sentinel()
	first := NewFrame(s, "first", 0)
	inner := first.Enter("inner", 0)

	second := NewFrame(s, "second", 0)
	if first.Live() || inner.Live() {
		t.Error("stale children should have been left")
	}
	if s.Next() != second || second.Next() != nil {
		t.Error("second should be the only child of the sentinel")
	}

	third := second.Enter("third", 0)
	second.Leave()
	if third.Live() || s.Next() != nil {
		t.Error("leaving a frame must clear the chain above it")
	}
}

func TestFrameWithoutLiveParentPanics(t *testing.T) {
	_, th := newTestThread(false)
	a := NewFrame(th.Sentinel(), "a", 0)
	a.Leave()

	if r := expectPanic(func() { NewFrame(a, "orphan", 0) }); r == nil {
		t.Error("Expected panic for a frame whose parent was left")
	}
	if r := expectPanic(func() { NewFrame(nil, "orphan", 0) }); r == nil {
		t.Error("Expected panic for a nil parent")
	}
}

func TestSentinelCannotBeLeft(t *testing.T) {
	_, th := newTestThread(true)
	if r := expectPanic(th.Sentinel().Leave); r == nil {
		t.Error("checked runtime should panic when leaving the sentinel")
	}

	_, th = newTestThread(false)
	th.Sentinel().Leave()
	if !th.Sentinel().Live() {
		t.Error("sentinel must stay live")
	}
}

// ---------------------------------------------------------------------------
// Locals
// ---------------------------------------------------------------------------

func TestFrameLocalsAreMarked(t *testing.T) {
	_, th := newTestThread(true)
	f := NewFrame(th.Sentinel(), "f", 3)
	a, b := &leaf{id: 1}, &leaf{id: 2}
	f.SetLocal(0, a)
	f.SetLocal(2, b)

	if f.NumLocals() != 3 {
		t.Fatalf("Expected 3 locals, got %d", f.NumLocals())
	}
	if f.Local(0) != a {
		t.Error("Local(0) should return the stored reference")
	}

	rec := &recordingTracer{}
	f.Mark(rec)
	if len(rec.visited) != 2 || rec.visited[0] != a || rec.visited[1] != b {
		t.Errorf("Expected visits [a b], got %v", rec.visited)
	}
}

func TestFrameLocalsSkipTypedNil(t *testing.T) {
	_, th := newTestThread(true)
	f := NewFrame(th.Sentinel(), "f", 1)
	var missing *leaf
	f.SetLocal(0, missing)

	rec := &recordingTracer{}
	f.Mark(rec)
	if len(rec.visited) != 0 {
		t.Errorf("typed nil local should not be visited, got %d visits", len(rec.visited))
	}
}

func TestFrameLocalOutOfRangePanics(t *testing.T) {
	_, th := newTestThread(true)
	f := NewFrame(th.Sentinel(), "f", 1)
	if r := expectPanic(func() { f.SetLocal(1, &leaf{}) }); r == nil {
		t.Error("Expected panic for out-of-range SetLocal")
	}
	if r := expectPanic(func() { f.Local(-1) }); r == nil {
		t.Error("Expected panic for out-of-range Local")
	}
}

// ---------------------------------------------------------------------------
// Failure-driven unwinding
// ---------------------------------------------------------------------------

const stressDepth = 10000

// descend builds depth nested frames, each left by a deferred Leave, and
// raises from the deepest one.
func descend(parent *Frame, depth int, all *[]*Frame) {
	f := NewFrame(parent, "descend", 1)
	defer f.Leave()
	*all = append(*all, f)
	if depth == 1 {
		Raise(NullDereference, f, "deepest frame")
	}
	descend(f, depth-1, all)
}

func TestStressUnwindClearsEveryForwardLink(t *testing.T) {
	_, th := newTestThread(true)
	var frames []*Frame

	err := Try(th.Sentinel(), func() {
		descend(th.Sentinel(), stressDepth, &frames)
	})
	if !errors.Is(err, ErrNullDereference) {
		t.Fatalf("Expected NullDereference, got %v", err)
	}
	if len(frames) != stressDepth {
		t.Fatalf("Expected %d frames, got %d", stressDepth, len(frames))
	}
	for i, f := range frames {
		if f.Live() {
			t.Fatalf("frame %d still live after unwind", i)
		}
		if f.Next() != nil {
			t.Fatalf("frame %d still has a forward link", i)
		}
	}
	if th.Sentinel().Next() != nil || th.Depth() != 0 {
		t.Error("sentinel should be the tip after unwinding")
	}

	f, ok := AsFailure(err)
	if !ok {
		t.Fatal("error should be a *Failure")
	}
	if len(f.Trace) != stressDepth {
		t.Errorf("Expected trace of %d frames, got %d", stressDepth, len(f.Trace))
	}
	if f.Thread != th.ID() {
		t.Error("failure should carry the raising thread's ID")
	}

	// The chain is reusable afterwards.
	again := NewFrame(th.Sentinel(), "again", 0)
	again.Leave()
	if th.Sentinel().Next() != nil {
		t.Error("chain should be reusable after unwinding")
	}
}

func TestTryTruncatesFramesWithoutDeferredLeave(t *testing.T) {
	_, th := newTestThread(true)
	outer := NewFrame(th.Sentinel(), "outer", 0)
	var leaked *Frame

	err := Try(outer, func() {
		leaked = outer.Enter("leaky", 0)
		leaked.Enter("leakier", 0)
		Raise(InvalidCast, th.Top(), "boom")
	})
	if !errors.Is(err, ErrInvalidCast) {
		t.Fatalf("Expected InvalidCast, got %v", err)
	}
	if leaked.Live() || outer.Next() != nil {
		t.Error("Try should leave frames nested inside its handler frame")
	}
	if !outer.Live() {
		t.Error("the handler frame itself must stay live")
	}
}

func TestTryPropagatesForeignPanics(t *testing.T) {
	_, th := newTestThread(true)
	r := expectPanic(func() {
		_ = Try(th.Sentinel(), func() { panic("not a failure") })
	})
	if r != "not a failure" {
		t.Errorf("Expected foreign panic to propagate, got %v", r)
	}
}

func TestRunResetsChain(t *testing.T) {
	_, th := newTestThread(false)
	r := expectPanic(func() {
		th.Run(func(s *Frame) {
			f := NewFrame(s, "main", 0)
			f.Enter("work", 0)
			Raise(ArithmeticFailure, th.Top(), "escaped")
		})
	})
	if _, ok := r.(*Failure); !ok {
		t.Fatalf("Expected escaping *Failure, got %v", r)
	}
	if th.Depth() != 0 {
		t.Errorf("Run should reset the chain, depth is %d", th.Depth())
	}
	// Run released the scan lock.
	th.Suspend()
	th.Resume()
}

func TestNestedRunKeepsOuterFrames(t *testing.T) {
	for _, check := range []bool{true, false} {
		_, th := newTestThread(check)
		held := &leaf{id: 7}

		th.Run(func(s *Frame) {
			outer := NewFrame(s, "outer", 1)
			defer outer.Leave()
			outer.SetLocal(0, held)

			th.Run(func(p *Frame) {
				if p != outer {
					t.Errorf("check=%v: nested Run should get the current top as parent, got %q", check, p.Name())
				}
				NewFrame(p, "callback", 0).Leave()
				p.Enter("unbalanced", 0)
			})

			if !outer.Live() {
				t.Fatalf("check=%v: outer frame should stay live across a nested Run", check)
			}
			if outer.Next() != nil || th.Depth() != 1 {
				t.Errorf("check=%v: nested Run should reset the chain to outer, depth is %d", check, th.Depth())
			}
			rec := &recordingTracer{}
			outer.Mark(rec)
			if len(rec.visited) != 1 || rec.visited[0] != held {
				t.Errorf("check=%v: outer local should still be marked, got %v", check, rec.visited)
			}
		})
	}
}
