package monitor

import (
	"sync"
)

// ---------------------------------------------------------------------------
// Table: monitors keyed by identity
// ---------------------------------------------------------------------------

// Table hands out one Monitor per key. Keys are compared by identity, so
// they must be comparable (pointers, reflect.Type values, strings).
//
// Instances that embed their own Monitor do not need a Table; it serves
// lock targets that have no monitor slot, such as a translated class.
//
// A monitor fetched with For may be dropped by Sweep or Forget before it is
// entered. Callers that enter a table monitor use Pin and Unpin around the
// Enter instead, so a key never maps to two monitors at once.
type Table struct {
	monitors map[any]*tableEntry
	mu       sync.Mutex
}

type tableEntry struct {
	mon  *Monitor
	pins int // callers between Pin and Unpin
}

// NewTable creates an empty monitor table.
func NewTable() *Table {
	return &Table{
		monitors: make(map[any]*tableEntry),
	}
}

func (t *Table) entry(key any) *tableEntry {
	e, ok := t.monitors[key]
	if !ok {
		e = &tableEntry{mon: &Monitor{}}
		t.monitors[key] = e
	}
	return e
}

// For returns the monitor for key, creating it on first use.
func (t *Table) For(key any) *Monitor {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entry(key).mon
}

// Pin returns the monitor for key and keeps it in the table until the
// matching Unpin, even while it is free.
func (t *Table) Pin(key any) *Monitor {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.entry(key)
	e.pins++
	return e.mon
}

// Unpin releases a Pin.
func (t *Table) Unpin(key any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.monitors[key]; ok && e.pins > 0 {
		e.pins--
	}
}

// Lookup returns the monitor for key, or nil if none was created.
func (t *Table) Lookup(key any) *Monitor {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.monitors[key]; ok {
		return e.mon
	}
	return nil
}

func (e *tableEntry) idle() bool {
	return e.pins == 0 && !e.mon.IsLocked() && e.mon.NumWaiting() == 0
}

// Forget drops the monitor for key if it is free, unpinned and nobody waits
// on it. Returns true if the entry was removed.
func (t *Table) Forget(key any) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.monitors[key]
	if !ok || !e.idle() {
		return false
	}
	delete(t.monitors, key)
	return true
}

// Sweep removes every free, unpinned, unwaited monitor and returns how many
// were removed.
func (t *Table) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	swept := 0
	for key, e := range t.monitors {
		if e.idle() {
			delete(t.monitors, key)
			swept++
		}
	}
	return swept
}

// Count returns the number of monitors in the table.
func (t *Table) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.monitors)
}
