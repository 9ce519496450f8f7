package vm

import (
	"vmcore/internal/defs"
	"vmcore/internal/mem"
	"vmcore/internal/ptable"
)

// withAccessed returns pte with the accessed bit set — every newly
// installed mapping leaves it set so the replacement engine gives the
// page one clock tick of protection.
func withAccessed(pte mem.PTE) mem.PTE {
	return mem.PTE(mem.Pa_t(pte) | mem.PTE_A)
}

// PageFault resolves a fault at faultAddr for this process. It
// classifies the fault, performs lazy allocation or swap-in, installs
// the leaf PTE, and invalidates the TLB. The caller (the trap stub,
// outside this core's scope) is responsible for killing the process and
// yielding to the scheduler when the returned reason is not KillNone.
func (vs *VMSpace) PageFault(res *Resources, faultAddr uintptr) defs.KillReason {
	if !vs.IsUser {
		defs.Fatal("vm: kernel page fault")
	}

	vpage := mem.PageOf(faultAddr)
	region, ok := vs.Regions.Lookup(vpage)
	if !ok || !region.Allocated {
		return defs.KillSegfault
	}

	pte, ok := ptable.Walk(vs.PD, vpage, true)
	if !ok {
		// PT pool exhausted mid-fault: an address-space violation, not a
		// system-wide invariant break.
		return defs.KillSegfault
	}

	switch {
	case pte.Present():
		// Already resolved — a duplicate/racing fault on a single-core,
		// interrupts-disabled model should not reach here, but
		// biscuit/src/vm's Sys_pgfault treats this as a harmless no-op
		// rather than an invariant violation, and so do we.
		return defs.KillNone

	case pte.Swapped():
		slot := pte.SwapSlot()
		frame := res.Evict.SwapIn(slot, vs.Pid)
		res.FFS.Install(frame, vpage, vs.PD)
		*pte = withAccessed(mem.MkMapped(frame, mem.PTE_U|mem.PTE_W))
		res.TLB.InvalidatePage(vs.PD, vpage)
		return defs.KillNone

	default: // absent
		if frame, ok := res.FFS.Alloc(vs.Pid); ok {
			res.FFS.Install(frame, vpage, vs.PD)
			*pte = withAccessed(mem.MkMapped(frame, mem.PTE_U|mem.PTE_W))
			res.TLB.InvalidatePage(vs.PD, vpage)
			return defs.KillNone
		}

		if !res.SwapEnabled {
			return defs.KillOOM
		}

		victim, ok := res.Evict.SelectVictim()
		if !ok {
			// A failed victim search on the fault-handling path kills only
			// the faulting process — see DESIGN.md for why this differs
			// from the fatal treatment a failed search gets inside the
			// replacement engine's own swap-in path.
			return defs.KillOOM
		}
		res.Evict.SwapOut(victim)
		res.FFS.Transfer(victim, vs.Pid)
		res.FFS.Zero(victim)
		res.FFS.Install(victim, vpage, vs.PD)
		*pte = withAccessed(mem.MkMapped(victim, mem.PTE_U|mem.PTE_W))
		res.TLB.InvalidatePage(vs.PD, vpage)
		return defs.KillNone
	}
}
