// Package ffs implements the FFS (file-frame space) pool: the fixed,
// bounded set of physical frames available to back user virtual pages.
package ffs

import (
	"vmcore/internal/arena"
	"vmcore/internal/defs"
	"vmcore/internal/mem"
	"vmcore/internal/ptable"
)

// Record is the per-frame metadata the replacement engine and teardown
// path both read. When Used && MappedVAddr != 0 the record points to a
// live mapping the replacement engine may evict; when Used &&
// MappedVAddr == 0 the frame is reserved (just allocated or just reclaimed
// by SwapOut) and not yet installed.
type Record struct {
	Used        bool
	OwnerPid    defs.Pid_t
	MappedVAddr uintptr
	OwnerPD     *ptable.PageDirectory
}

// Pool is the FFS frame allocator.
type Pool struct {
	arena     *arena.Arena
	records   [mem.F]Record
	freeCount int
}

// New constructs an FFS pool backed by a, with all mem.F frames free.
func New(a *arena.Arena) *Pool {
	return &Pool{arena: a, freeCount: mem.F}
}

// Len returns the total frame count, F.
func (p *Pool) Len() int { return mem.F }

func (p *Pool) addr(idx int) mem.Pa_t {
	return mem.FFSBase + mem.Pa_t(idx)*mem.Pa_t(mem.PGSIZE)
}

func (p *Pool) index(pa mem.Pa_t) int {
	return int((pa - mem.FFSBase) / mem.Pa_t(mem.PGSIZE))
}

// IndexOf returns pa's index relative to the FFS base, for trace lines
// that report frame numbers rather than raw physical addresses.
func (p *Pool) IndexOf(pa mem.Pa_t) int { return p.index(pa) }

// RecordOf returns the metadata record for frame pa.
func (p *Pool) RecordOf(pa mem.Pa_t) *Record { return &p.records[p.index(pa)] }

// Alloc first-fit scans the used bits and claims the first free frame for
// pid, zeroing it. It returns ok=false if FFS is full.
func (p *Pool) Alloc(pid defs.Pid_t) (mem.Pa_t, bool) {
	for i := range p.records {
		if !p.records[i].Used {
			p.records[i] = Record{Used: true, OwnerPid: pid}
			p.freeCount--
			pa := p.addr(i)
			p.arena.Zero(pa)
			return pa, true
		}
	}
	return 0, false
}

// Free releases the frame at pa by address, clearing its record and
// restoring the free count.
func (p *Pool) Free(pa mem.Pa_t) {
	i := p.index(pa)
	if !p.records[i].Used {
		defs.Fatal("ffs: double free")
	}
	p.records[i] = Record{}
	p.freeCount++
}

// Install records the mapping metadata for an already-allocated frame,
// once the caller knows the virtual address and page directory it is
// about to map the frame into.
func (p *Pool) Install(pa mem.Pa_t, vaddr uintptr, pd *ptable.PageDirectory) {
	r := &p.records[p.index(pa)]
	r.MappedVAddr = vaddr
	r.OwnerPD = pd
}

// Transfer reassigns an already-used frame to a new owner without
// touching the free count — the eviction fast path: SwapOut clears a
// frame's mapping metadata but leaves Used set so the caller can claim it
// for the process that faulted.
func (p *Pool) Transfer(pa mem.Pa_t, newPid defs.Pid_t) {
	r := &p.records[p.index(pa)]
	if !r.Used {
		defs.Fatal("ffs: transfer of unused frame")
	}
	r.OwnerPid = newPid
	r.MappedVAddr = 0
	r.OwnerPD = nil
}

// ClearMapping drops a record's mapping metadata while leaving it Used —
// used by SwapOut once the victim's PTE has been rewritten to the
// swapped state.
func (p *Pool) ClearMapping(pa mem.Pa_t) {
	r := &p.records[p.index(pa)]
	r.MappedVAddr = 0
	r.OwnerPD = nil
}

// At returns the record for frame index i and its physical address, for
// the replacement engine's clock scan.
func (p *Pool) At(i int) (*Record, mem.Pa_t) {
	return &p.records[i], p.addr(i)
}

// Frame returns the byte slice backing the frame at pa.
func (p *Pool) Frame(pa mem.Pa_t) []byte {
	return p.arena.Frame(pa)
}

// Zero clears the frame at pa, used when a reclaimed eviction victim is
// handed to a new mapping.
func (p *Pool) Zero(pa mem.Pa_t) {
	p.arena.Zero(pa)
}

// FreeCount returns the number of free FFS frames.
func (p *Pool) FreeCount() int { return p.freeCount }

// UsedFrames counts the frames currently owned by pid.
func (p *Pool) UsedFrames(pid defs.Pid_t) int {
	n := 0
	for i := range p.records {
		if p.records[i].Used && p.records[i].OwnerPid == pid {
			n++
		}
	}
	return n
}

// ReleaseOwnedBy frees every frame owned by pid, for process teardown.
// It returns the number of frames released.
func (p *Pool) ReleaseOwnedBy(pid defs.Pid_t) int {
	n := 0
	for i := range p.records {
		if p.records[i].Used && p.records[i].OwnerPid == pid {
			p.records[i] = Record{}
			p.freeCount++
			n++
		}
	}
	return n
}
