// Package boot wires an objrt process together: configuration, logging,
// the collector and the runtime, and tears them down in reverse order.
package boot

import (
	"sync"

	"github.com/chazu/objrt/collector"
	"github.com/chazu/objrt/config"
	"github.com/chazu/objrt/rt"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("objrt.boot")

// Host owns the process-wide runtime state of a translated program.
type Host struct {
	Config    *config.Config
	Collector *collector.Collector
	Runtime   *rt.Runtime

	shutdown sync.Once
	summary  Summary
}

// Summary describes what Shutdown found still open.
type Summary struct {
	OpenThreads   int
	LeakedRoots   int
	Final         *collector.Stats
	ClassMonitors int // swept
}

// Start configures logging from cfg, creates the collector and the runtime,
// and starts background collection when enabled. A nil cfg means
// config.Default.
func Start(cfg *config.Config) (*Host, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	commonlog.Initialize(cfg.Log.Verbosity, cfg.LogPath())

	c := collector.New(collector.Options{
		Interval: cfg.Collector.Interval,
	})
	r := rt.New(rt.Options{
		Collector:       c,
		InitialFrames:   cfg.Frames.InitialCapacity,
		CheckInvariants: cfg.Frames.CheckInvariants,
	})
	c.SetEnabled(cfg.Collector.Enabled)
	if cfg.Collector.Enabled {
		c.Start()
	}

	log.Infof("runtime started (frames %d, invariants checked: %t, collection every %s, enabled: %t)",
		cfg.Frames.InitialCapacity, cfg.Frames.CheckInvariants,
		cfg.Collector.Interval, cfg.Collector.Enabled)
	return &Host{Config: cfg, Collector: c, Runtime: r}, nil
}

// StartDir loads the nearest objrt.toml at or above dir and starts a Host
// from it.
func StartDir(dir string) (*Host, error) {
	cfg, err := config.FindAndLoad(dir)
	if err != nil {
		return nil, err
	}
	return Start(cfg)
}

// Shutdown stops background collection, runs a final cycle, closes every
// thread still open and reports global roots still registered. Roots
// outlive every thread, so they are checked last. Safe to call more than
// once; later calls return the first summary.
func (h *Host) Shutdown() Summary {
	h.shutdown.Do(func() {
		h.Collector.Stop()
		h.summary.OpenThreads = h.Runtime.Close()
		h.summary.Final = h.Collector.CollectNow()
		h.summary.ClassMonitors = h.Runtime.SweepClassMonitors()
		h.summary.LeakedRoots = h.Collector.RootCount()
		if h.summary.LeakedRoots > 0 {
			log.Warningf("shutdown with %d global roots still registered", h.summary.LeakedRoots)
		}
		log.Infof("runtime stopped")
	})
	return h.summary
}
