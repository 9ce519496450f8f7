package vm

import (
	"vmcore/internal/defs"
	"vmcore/internal/mem"
	"vmcore/internal/ptable"
	"vmcore/internal/util"
	"vmcore/internal/vmregion"
)

// VMSpace is one process's paging state: its page directory, its region
// list, and the running total of virtual pages it has vmalloc'd.
type VMSpace struct {
	Pid            defs.Pid_t
	IsUser         bool
	PD             *ptable.PageDirectory
	Regions        *vmregion.List
	TotalAllocated uintptr
}

// NewUserSpace builds the VM state for a freshly created user process: a
// page directory sharing the kernel's mappings and a region list seeded
// with one free region covering the whole heap. ok is false only on
// PT-pool exhaustion.
func NewUserSpace(pid defs.Pid_t, res *Resources) (*VMSpace, bool) {
	pd, ok := ptable.New(res.PT)
	if !ok {
		return nil, false
	}
	pd.CopyKernelEntries(res.KernelPD)
	return &VMSpace{
		Pid:     pid,
		IsUser:  true,
		PD:      pd,
		Regions: vmregion.NewHeap(mem.VHeapStart, mem.VHeapLimit),
	}, true
}

// Vmalloc reserves nbytes of virtual heap, rounded up to a page. No
// physical frame is touched — binding happens lazily on first access.
func (vs *VMSpace) Vmalloc(nbytes uintptr) (uintptr, defs.Err_t) {
	if !vs.IsUser {
		return 0, defs.EINVAL
	}
	start, pages, ok := vs.Regions.Vmalloc(nbytes)
	if !ok {
		return 0, defs.ENOMEM
	}
	vs.TotalAllocated += pages
	return start, 0
}

// Vfree releases [ptr, ptr+nbytes), rejecting spans that are not fully
// covered by allocated regions, reclaiming every mapped or swapped
// page's backing storage, then flipping and coalescing the region list.
func (vs *VMSpace) Vfree(res *Resources, ptr, nbytes uintptr) defs.Err_t {
	if !vs.IsUser {
		return defs.EINVAL
	}
	if ptr == 0 || nbytes == 0 {
		return defs.EINVAL
	}
	start := util.Rounddown(ptr, uintptr(mem.PGSIZE))
	end := util.Roundup(ptr+nbytes, uintptr(mem.PGSIZE))
	if !vs.Regions.SpanFullyAllocated(start, end) {
		return defs.EINVAL
	}

	for va := start; va < end; va += uintptr(mem.PGSIZE) {
		pte, ok := ptable.Lookup(vs.PD, va)
		if !ok {
			continue
		}
		switch {
		case pte.Present():
			res.FFS.Free(pte.Frame())
			*pte = 0
			res.TLB.InvalidatePage(vs.PD, va)
		case pte.Swapped():
			res.Swap.Free(pte.SwapSlot())
			*pte = 0
		}
	}

	pages, ok := vs.Regions.Vfree(ptr, nbytes)
	if !ok {
		defs.Fatal("vm: vfree span validated then rejected")
	}
	vs.TotalAllocated -= pages
	return 0
}

// ReclaimFrames releases every FFS frame and swap slot owned by this
// process and every user-owned page-table frame in its directory, but
// leaves the directory frame itself allocated — the first half of a
// two-phase teardown.
func (vs *VMSpace) ReclaimFrames(res *Resources) {
	res.FFS.ReleaseOwnedBy(vs.Pid)
	res.Swap.ReleaseOwnedBy(vs.Pid)
	vs.PD.FreeUserTables()
}

// ReclaimPageDirectory frees the directory frame itself. Call only once
// the scheduler (an external collaborator) has switched off this
// process's address space if it was the one running.
func (vs *VMSpace) ReclaimPageDirectory() {
	vs.PD.Release()
}

// Destroy performs both teardown phases back-to-back, for callers that
// don't need the deferred-PD-release split (e.g. a process that was never
// the running one).
func (vs *VMSpace) Destroy(res *Resources) {
	vs.ReclaimFrames(res)
	vs.ReclaimPageDirectory()
}
