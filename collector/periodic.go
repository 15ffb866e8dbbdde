package collector

import "time"

// DefaultInterval is the default period of the background loop.
const DefaultInterval = 30 * time.Second

// Start begins the periodic collection goroutine. It is safe to call Start
// multiple times; only one loop will run.
func (c *Collector) Start() {
	c.loopMu.Lock()
	defer c.loopMu.Unlock()

	if c.stop != nil {
		return
	}

	c.stop = make(chan struct{})
	c.stopped = make(chan struct{})

	// The loop keeps its own copies; Stop nils the fields.
	stopCh := c.stop
	stoppedCh := c.stopped
	go c.loop(stopCh, stoppedCh)
	log.Debugf("background collection every %s", c.interval)
}

// Stop halts the periodic goroutine and waits for it to finish, including
// any cycle in progress. It is safe to call Stop multiple times or on a
// Collector that was never started.
func (c *Collector) Stop() {
	c.loopMu.Lock()
	stopCh := c.stop
	stoppedCh := c.stopped
	c.stop = nil
	c.stopped = nil
	c.loopMu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-stoppedCh
	}
}

// Running reports whether the periodic goroutine is active.
func (c *Collector) Running() bool {
	c.loopMu.Lock()
	defer c.loopMu.Unlock()
	return c.stop != nil
}

// SetEnabled enables or disables periodic cycles. When disabled, the
// goroutine still runs but skips collection. Collect is unaffected.
func (c *Collector) SetEnabled(enabled bool) {
	c.enabled.Store(enabled)
}

// IsEnabled returns whether periodic cycles are enabled.
func (c *Collector) IsEnabled() bool {
	return c.enabled.Load()
}

// Interval returns the period of the background loop.
func (c *Collector) Interval() time.Duration {
	return c.interval
}

// CollectNow runs a cycle from outside translated code, regardless of the
// timer.
func (c *Collector) CollectNow() *Stats {
	return c.Collect(nil)
}

func (c *Collector) loop(stopCh <-chan struct{}, stoppedCh chan struct{}) {
	defer close(stoppedCh)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if c.enabled.Load() {
				c.Collect(nil)
			}
		}
	}
}
