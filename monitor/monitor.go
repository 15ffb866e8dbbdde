// Package monitor implements the intrinsic lock behind translated
// synchronized blocks: a reentrant mutual-exclusion lock with wait/notify.
//
// Owners are opaque comparable identities (the runtime passes its *rt.Thread).
// The package knows nothing about objects or threads beyond that identity.
package monitor

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotOwner is returned when a thread leaves, waits on or notifies a
// monitor it does not hold.
var ErrNotOwner = errors.New("monitor: current thread is not owner")

// ---------------------------------------------------------------------------
// Monitor: reentrant lock + wait set
// ---------------------------------------------------------------------------

// Monitor is a reentrant lock owned by at most one owner at a time.
// The zero value is an unlocked monitor ready for use. A Monitor must not be
// copied after first use.
type Monitor struct {
	mu      sync.Mutex
	cond    sync.Cond // signalled whenever ownership is released
	owner   any
	depth   int
	waiters []chan struct{}
}

func (m *Monitor) lazyInit() {
	if m.cond.L == nil {
		m.cond.L = &m.mu
	}
}

// Enter acquires the monitor for owner, blocking while another owner holds
// it. Re-entering by the current owner increments the hold count.
func (m *Monitor) Enter(owner any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lazyInit()
	m.acquire(owner, 1)
}

// TryEnter acquires the monitor without blocking.
// Returns false if another owner holds it.
func (m *Monitor) TryEnter(owner any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owner != nil && m.owner != owner {
		return false
	}
	m.owner = owner
	m.depth++
	return true
}

// acquire blocks until the monitor is free or already owned by owner.
// Caller holds m.mu.
func (m *Monitor) acquire(owner any, depth int) {
	for m.owner != nil && m.owner != owner {
		m.cond.Wait()
	}
	m.owner = owner
	m.depth += depth
}

// Leave releases one hold. The monitor becomes free when the hold count
// reaches zero.
func (m *Monitor) Leave(owner any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owner != owner || owner == nil {
		return ErrNotOwner
	}
	m.depth--
	if m.depth == 0 {
		m.release()
	}
	return nil
}

// release frees the monitor and wakes blocked enterers. Caller holds m.mu.
func (m *Monitor) release() {
	m.owner = nil
	m.depth = 0
	m.lazyInit()
	m.cond.Broadcast()
}

// Wait releases the monitor completely, blocks until notified or until
// timeout elapses (timeout <= 0 waits indefinitely), then reacquires it with
// the original hold count. Returns true if woken by a notification.
func (m *Monitor) Wait(owner any, timeout time.Duration) (bool, error) {
	m.mu.Lock()
	if m.owner != owner || owner == nil {
		m.mu.Unlock()
		return false, ErrNotOwner
	}
	m.lazyInit()

	ch := make(chan struct{}, 1)
	m.waiters = append(m.waiters, ch)
	saved := m.depth
	m.release()
	m.mu.Unlock()

	notified := true
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		select {
		case <-ch:
		case <-timer.C:
			notified = false
		}
		timer.Stop()
	} else {
		<-ch
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !notified {
		// A notification may have raced with the timeout.
		if !m.removeWaiter(ch) {
			notified = true
		}
	}
	m.acquire(owner, saved)
	return notified, nil
}

// removeWaiter drops ch from the wait set. Returns false if it was already
// removed by a notifier. Caller holds m.mu.
func (m *Monitor) removeWaiter(ch chan struct{}) bool {
	for i, w := range m.waiters {
		if w == ch {
			m.waiters = append(m.waiters[:i], m.waiters[i+1:]...)
			return true
		}
	}
	return false
}

// Notify wakes the longest-waiting waiter, if any.
func (m *Monitor) Notify(owner any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owner != owner || owner == nil {
		return ErrNotOwner
	}
	if len(m.waiters) > 0 {
		ch := m.waiters[0]
		m.waiters = m.waiters[1:]
		ch <- struct{}{}
	}
	return nil
}

// NotifyAll wakes every waiter.
func (m *Monitor) NotifyAll(owner any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owner != owner || owner == nil {
		return ErrNotOwner
	}
	for _, ch := range m.waiters {
		ch <- struct{}{}
	}
	m.waiters = nil
	return nil
}

// IsHeldBy reports whether owner currently holds the monitor.
func (m *Monitor) IsHeldBy(owner any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return owner != nil && m.owner == owner
}

// IsLocked reports whether any owner holds the monitor.
func (m *Monitor) IsLocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.owner != nil
}

// Holds returns the current hold count (0 when free).
func (m *Monitor) Holds() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.depth
}

// NumWaiting returns the number of owners blocked in Wait.
func (m *Monitor) NumWaiting() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiters)
}

// String describes the monitor state for diagnostics.
func (m *Monitor) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owner == nil {
		return fmt.Sprintf("monitor(free, %d waiting)", len(m.waiters))
	}
	return fmt.Sprintf("monitor(owner=%v, holds=%d, %d waiting)", m.owner, m.depth, len(m.waiters))
}
