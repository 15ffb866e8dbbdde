package collector

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Report is a point-in-time summary of a Collector, suitable for shipping
// to diagnostics tooling.
type Report struct {
	Cycles   uint64 `cbor:"1,keyasint"`
	Roots    int    `cbor:"2,keyasint"`
	Threads  int    `cbor:"3,keyasint"`
	Heap     int    `cbor:"4,keyasint"`
	Interval int64  `cbor:"5,keyasint"` // nanoseconds
	Enabled  bool   `cbor:"6,keyasint"`
	Last     *Stats `cbor:"7,keyasint,omitempty"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("collector: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Report summarizes the collector's current state.
func (c *Collector) Report() *Report {
	c.mu.Lock()
	r := &Report{
		Roots:   len(c.roots),
		Threads: len(c.threads),
		Heap:    len(c.heap),
	}
	c.mu.Unlock()
	r.Cycles = c.CycleCount()
	r.Interval = int64(c.interval)
	r.Enabled = c.IsEnabled()
	r.Last = c.LastStats()
	return r
}

// MarshalReport serializes a Report to canonical CBOR bytes.
func MarshalReport(r *Report) ([]byte, error) {
	data, err := cborEncMode.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("collector: marshal report: %w", err)
	}
	return data, nil
}

// UnmarshalReport deserializes a Report from CBOR bytes.
func UnmarshalReport(data []byte) (*Report, error) {
	var r Report
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("collector: unmarshal report: %w", err)
	}
	return &r, nil
}
