package rt

import (
	"time"

	"github.com/chazu/objrt/monitor"
)

// ---------------------------------------------------------------------------
// Object: base of every translated instance
// ---------------------------------------------------------------------------

// Object is embedded by translated classes. It carries the instance's
// intrinsic monitor and traces nothing itself; a class with reference
// fields overrides Mark:
//
//	type Node struct {
//		rt.Object
//		next *Node
//	}
//
//	func (n *Node) Mark(tr rt.Tracer) { rt.MarkAll(tr, n.next) }
//
// The zero value is ready for use. Objects must not be copied.
type Object struct {
	mon monitor.Monitor
}

// Mark does nothing: a plain Object owns no references.
func (o *Object) Mark(Tracer) {}

// Monitor exposes the intrinsic monitor for diagnostics.
func (o *Object) Monitor() *monitor.Monitor { return &o.mon }

// EnterMonitor acquires the instance's lock for t, blocking at a safepoint
// while another thread holds it.
func (o *Object) EnterMonitor(t *Thread) {
	enterMonitor(&o.mon, t)
}

// LeaveMonitor releases one hold of the instance's lock.
// Raises IllegalMonitorState if t does not hold it.
func (o *Object) LeaveMonitor(t *Thread) {
	leaveMonitor(&o.mon, t)
}

// Wait releases the lock until notified or until timeout elapses
// (timeout <= 0 waits indefinitely). Returns true if notified.
// Raises IllegalMonitorState if t does not hold the lock.
func (o *Object) Wait(t *Thread, timeout time.Duration) bool {
	return waitMonitor(&o.mon, t, timeout)
}

// Notify wakes one thread waiting on the instance.
func (o *Object) Notify(t *Thread) {
	if err := o.mon.Notify(t); err != nil {
		RaiseCause(IllegalMonitorState, t.Top(), err)
	}
}

// NotifyAll wakes every thread waiting on the instance.
func (o *Object) NotifyAll(t *Thread) {
	if err := o.mon.NotifyAll(t); err != nil {
		RaiseCause(IllegalMonitorState, t.Top(), err)
	}
}

// Synchronized runs body holding the instance's lock. The lock is released
// even if body raises.
func (o *Object) Synchronized(t *Thread, body func()) {
	o.EnterMonitor(t)
	defer o.LeaveMonitor(t)
	body()
}

// ---------------------------------------------------------------------------
// Shared monitor helpers (instances and class monitors)
// ---------------------------------------------------------------------------

func enterMonitor(m *monitor.Monitor, t *Thread) {
	if m.TryEnter(t) {
		return
	}
	t.Blocking(func() { m.Enter(t) })
}

func leaveMonitor(m *monitor.Monitor, t *Thread) {
	if err := m.Leave(t); err != nil {
		RaiseCause(IllegalMonitorState, t.Top(), err)
	}
}

func waitMonitor(m *monitor.Monitor, t *Thread, timeout time.Duration) bool {
	var notified bool
	var err error
	t.Blocking(func() { notified, err = m.Wait(t, timeout) })
	if err != nil {
		RaiseCause(IllegalMonitorState, t.Top(), err)
	}
	return notified
}
