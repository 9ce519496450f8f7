// Package debug holds the introspection counters and trace-line printing
// tests observe, gated the way biscuit/src/stats/stats.go gates its own
// stats (a package-level const switch plus atomic counters), generalized
// into a "counter below a cap" rule for eviction/swap-in tracing.
package debug

import (
	"fmt"
	"sync/atomic"
)

// Counter_t is a statistics counter, incremented without allocation on
// every call regardless of whether tracing is active — mirrors the
// Counter_t/Cycles_t pair in biscuit/src/stats/stats.go.
type Counter_t int64

// Inc atomically increments the counter.
func (c *Counter_t) Inc() {
	atomic.AddInt64((*int64)(c), 1)
}

// Get reads the counter's current value.
func (c *Counter_t) Get() int64 {
	return atomic.LoadInt64((*int64)(c))
}

// Tracer prints "eviction::"/"swapping::" lines up to a fixed cap, then
// falls silent — the scenario harness and test suite both rely on the
// cap so a long-running fault storm doesn't flood stdout.
type Tracer struct {
	Evictions Counter_t
	SwapIns   Counter_t
	cap       int64
}

// NewTracer returns a Tracer that prints at most cap lines of each kind.
func NewTracer(cap int) *Tracer {
	return &Tracer{cap: int64(cap)}
}

// Eviction records (and, below the cap, prints) one eviction: FFS frame
// ffsIdx copied out to swap frame swapIdx. Indices are relative to each
// area's own base, not physical addresses.
func (t *Tracer) Eviction(ffsIdx, swapIdx int) {
	t.Evictions.Inc()
	if t.Evictions.Get() <= t.cap {
		fmt.Printf("eviction:: FFS frame %d, swap frame %d copy\n", ffsIdx, swapIdx)
	}
}

// SwapIn records (and, below the cap, prints) one swap-in: swap frame
// swapIdx restored into FFS frame ffsIdx.
func (t *Tracer) SwapIn(swapIdx, ffsIdx int) {
	t.SwapIns.Inc()
	if t.SwapIns.Get() <= t.cap {
		fmt.Printf("swapping:: swap frame %d, FFS frame %d\n", swapIdx, ffsIdx)
	}
}
