// Package swap implements the swap slot pool: a used-bit vector over S
// fixed-size blocks that can each hold one evicted frame's contents.
package swap

import (
	"vmcore/internal/arena"
	"vmcore/internal/defs"
	"vmcore/internal/mem"
)

// Record is the per-slot metadata. OriginalFFSFrame is informational
// only — nothing reads it to make a decision.
type Record struct {
	Used             bool
	OwnerPid         defs.Pid_t
	OriginalFFSFrame mem.Pa_t
}

// Pool is the swap slot allocator.
type Pool struct {
	arena     *arena.Arena
	records   [mem.S]Record
	freeCount int
}

// New constructs a swap pool backed by a, with all mem.S slots free.
func New(a *arena.Arena) *Pool {
	return &Pool{arena: a, freeCount: mem.S}
}

// Len returns the total slot count, S.
func (p *Pool) Len() int { return mem.S }

func (p *Pool) addr(idx uint32) mem.Pa_t {
	return mem.SwapBase + mem.Pa_t(idx)*mem.Pa_t(mem.PGSIZE)
}

// Alloc claims the first free slot for pid. Exhaustion is, by design, a
// fatal invariant violation — tests are dimensioned so it never happens
// — but Alloc still reports failure rather than panicking, so the caller
// (internal/evict) can apply that policy explicitly.
func (p *Pool) Alloc(pid defs.Pid_t, originalFrame mem.Pa_t) (uint32, bool) {
	for i := range p.records {
		if !p.records[i].Used {
			p.records[i] = Record{Used: true, OwnerPid: pid, OriginalFFSFrame: originalFrame}
			p.freeCount--
			return uint32(i), true
		}
	}
	return 0, false
}

// Free releases slot idx.
func (p *Pool) Free(idx uint32) {
	if !p.records[idx].Used {
		defs.Fatal("swap: double free")
	}
	p.records[idx] = Record{}
	p.freeCount++
}

// Frame returns the page-sized slice backing slot idx.
func (p *Pool) Frame(idx uint32) []byte {
	return p.arena.Frame(p.addr(idx))
}

// FreeCount returns the number of free swap slots.
func (p *Pool) FreeCount() int { return p.freeCount }

// ReleaseOwnedBy frees every slot owned by pid, for process teardown.
func (p *Pool) ReleaseOwnedBy(pid defs.Pid_t) {
	for i := range p.records {
		if p.records[i].Used && p.records[i].OwnerPid == pid {
			p.records[i] = Record{}
			p.freeCount++
		}
	}
}
