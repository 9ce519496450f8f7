// Package ptpool implements the PT/PD frame pool: a page-aligned,
// bump-allocated array of MaxPTSize frames shared by every page
// directory and page table in the system, with free-slot reuse so a
// long-running test session doesn't exhaust it.
package ptpool

import (
	"vmcore/internal/arena"
	"vmcore/internal/mem"
)

// Pool is the PT/PD frame allocator. Every method assumes the caller
// already holds the subsystem's critical section — the pool has no
// locking of its own; pools are process-wide state mutated only under a
// single guarded scope, not independently synchronized objects.
type Pool struct {
	arena    *arena.Arena
	next     int
	freelist []int
}

// New constructs a PT/PD pool backed by a.
func New(a *arena.Arena) *Pool {
	return &Pool{arena: a}
}

// Alloc hands out the next free frame, zeroed, or reports exhaustion.
// Exhaustion of this pool is always a fatal condition during boot and an
// address-space violation during a page fault; callers decide which
// diagnostic applies.
func (p *Pool) Alloc() (mem.Pa_t, bool) {
	var idx int
	if n := len(p.freelist); n > 0 {
		idx = p.freelist[n-1]
		p.freelist = p.freelist[:n-1]
	} else if p.next < mem.MaxPTSize {
		idx = p.next
		p.next++
	} else {
		return 0, false
	}
	pa := mem.PTPoolBase + mem.Pa_t(idx)*mem.Pa_t(mem.PGSIZE)
	p.arena.Zero(pa)
	return pa, true
}

// Free returns a frame to the pool's free list.
func (p *Pool) Free(pa mem.Pa_t) {
	idx := int((pa - mem.PTPoolBase) / mem.Pa_t(mem.PGSIZE))
	p.freelist = append(p.freelist, idx)
}

// Frame returns the byte slice backing the frame at pa.
func (p *Pool) Frame(pa mem.Pa_t) []byte {
	return p.arena.Frame(pa)
}

// FreeCount reports how many frames are currently available, for tests
// and introspection.
func (p *Pool) FreeCount() int {
	return (mem.MaxPTSize - p.next) + len(p.freelist)
}
