// Package evict implements the replacement engine: clock (second-chance)
// victim selection across the FFS pool, and the swap-out/swap-in
// operations that move a page's contents between an FFS frame and a
// swap slot.
package evict

import (
	"vmcore/internal/defs"
	"vmcore/internal/ffs"
	"vmcore/internal/mem"
	"vmcore/internal/ptable"
	"vmcore/internal/swap"

	"vmcore/internal/debug"
)

// Invalidator abstracts the TLB shootdown the real trap/MMU layer would
// perform; the core only needs "forget any cached translation for this
// (page directory, virtual address) pair" — the store to the PTE
// happens-before this call, which happens-before the retrying
// instruction resumes. Modeled on biscuit/src/vm's Vm_t.Tlbshoot, which
// plays exactly this role for its COW fault handler.
type Invalidator interface {
	InvalidatePage(pd *ptable.PageDirectory, vaddr uintptr)
}

// NoopInvalidator is the default Invalidator for a single simulated core
// with no real TLB to shoot down.
type NoopInvalidator struct{}

// InvalidatePage does nothing.
func (NoopInvalidator) InvalidatePage(*ptable.PageDirectory, uintptr) {}

// Engine owns the single persistent clock hand shared by the whole
// system — it survives process births/deaths and starts at zero only in
// a newly constructed Engine.
type Engine struct {
	Hand  int
	ffs   *ffs.Pool
	swap  *swap.Pool
	tlb   Invalidator
	trace *debug.Tracer
}

// New constructs a replacement engine over the given pools.
func New(ffsPool *ffs.Pool, swapPool *swap.Pool, tlb Invalidator, trace *debug.Tracer) *Engine {
	if tlb == nil {
		tlb = NoopInvalidator{}
	}
	return &Engine{ffs: ffsPool, swap: swapPool, tlb: tlb, trace: trace}
}

// SelectVictim scans the FFS pool starting at the persistent hand for a
// used, mapped frame whose accessed bit is clear, clearing accessed bits
// as it passes over referenced frames (second chance) and wrapping modulo
// F. It performs at most two full passes; ok is false only if no
// evictable frame exists anywhere in FFS (a fatal condition in the
// caller's eyes, since FFS is never empty on entry).
func (e *Engine) SelectVictim() (mem.Pa_t, bool) {
	n := e.ffs.Len()
	for pass := 0; pass < 2; pass++ {
		for i := 0; i < n; i++ {
			idx := e.Hand
			e.Hand = (e.Hand + 1) % n
			rec, pa := e.ffs.At(idx)
			if !rec.Used || rec.MappedVAddr == 0 || rec.OwnerPD == nil {
				continue
			}
			pte, ok := ptable.Lookup(rec.OwnerPD, rec.MappedVAddr)
			if !ok {
				defs.Fatal("evict: ffs record has no backing pte")
			}
			if !pte.Accessed() {
				return pa, true
			}
			*pte = pte.ClearAccessed()
		}
	}
	return 0, false
}

// SwapOut copies victim's contents into a freshly allocated swap slot,
// rewrites the victim's PTE to the swapped state, invalidates the TLB for
// the victim's virtual address, and clears the FFS record's mapping
// metadata while leaving it Used (the caller claims the frame). Swap
// exhaustion is fatal by design.
func (e *Engine) SwapOut(victim mem.Pa_t) uint32 {
	rec := e.ffs.RecordOf(victim)
	if rec.OwnerPD == nil || rec.MappedVAddr == 0 {
		defs.Fatal("evict: swap-out of an unmapped frame")
	}
	slot, ok := e.swap.Alloc(rec.OwnerPid, victim)
	if !ok {
		defs.Fatal("evict: swap pool exhausted")
	}
	copy(e.swap.Frame(slot), e.ffs.Frame(victim))

	pte, ok := ptable.Lookup(rec.OwnerPD, rec.MappedVAddr)
	if !ok {
		defs.Fatal("evict: victim pte vanished mid swap-out")
	}
	pd, vaddr := rec.OwnerPD, rec.MappedVAddr
	*pte = mem.MkSwapped(slot)
	e.tlb.InvalidatePage(pd, vaddr)
	e.ffs.ClearMapping(victim)

	e.trace.Eviction(e.ffs.IndexOf(victim), int(slot))
	return slot
}

// SwapIn restores slotIdx's contents into a fresh FFS frame owned by pid,
// evicting a victim first if FFS is full, and frees the swap slot. It
// returns the FFS frame's physical address.
func (e *Engine) SwapIn(slotIdx uint32, pid defs.Pid_t) mem.Pa_t {
	frame, ok := e.ffs.Alloc(pid)
	if !ok {
		victim, ok2 := e.SelectVictim()
		if !ok2 {
			defs.Fatal("evict: no evictable victim though ffs is non-empty")
		}
		e.SwapOut(victim)
		e.ffs.Transfer(victim, pid)
		frame = victim
	}
	copy(e.ffs.Frame(frame), e.swap.Frame(slotIdx))
	e.swap.Free(slotIdx)

	e.trace.SwapIn(int(slotIdx), e.ffs.IndexOf(frame))
	return frame
}
