package vm

import (
	"testing"

	"vmcore/internal/arena"
	"vmcore/internal/debug"
	"vmcore/internal/defs"
	"vmcore/internal/evict"
	"vmcore/internal/ffs"
	"vmcore/internal/mem"
	"vmcore/internal/ptable"
	"vmcore/internal/ptpool"
	"vmcore/internal/swap"
)

// newTestResources builds a full Resources bundle over real mmap-backed
// pools, the way paging.New does, but without the config/debug wiring a
// caller outside this package would add.
func newTestResources(t *testing.T, tlb evict.Invalidator) *Resources {
	t.Helper()
	ptArena, err := arena.New(mem.PTPoolBase, int(mem.PTPoolSize))
	if err != nil {
		t.Fatalf("pt arena: %v", err)
	}
	t.Cleanup(func() { ptArena.Close() })
	ffsArena, err := arena.New(mem.FFSBase, int(mem.FFSSize))
	if err != nil {
		t.Fatalf("ffs arena: %v", err)
	}
	t.Cleanup(func() { ffsArena.Close() })
	swapArena, err := arena.New(mem.SwapBase, int(mem.SwapSize))
	if err != nil {
		t.Fatalf("swap arena: %v", err)
	}
	t.Cleanup(func() { swapArena.Close() })

	pt := ptpool.New(ptArena)
	kernelPD, ok := ptable.New(pt)
	if !ok {
		t.Fatal("ptable.New failed for the kernel directory")
	}
	ptable.MapRegion(kernelPD, mem.KernelBase, mem.PhysMapSize)

	ffsPool := ffs.New(ffsArena)
	swapPool := swap.New(swapArena)
	trace := debug.NewTracer(0)

	return &Resources{
		PT:          pt,
		FFS:         ffsPool,
		Swap:        swapPool,
		Evict:       evict.New(ffsPool, swapPool, tlb, trace),
		TLB:         tlb,
		Trace:       trace,
		KernelPD:    kernelPD,
		SwapEnabled: true,
	}
}

func TestNewUserSpaceCopiesKernelEntries(t *testing.T) {
	res := newTestResources(t, evict.NoopInvalidator{})
	vs, ok := NewUserSpace(1, res)
	if !ok {
		t.Fatal("NewUserSpace failed")
	}
	if !vs.IsUser {
		t.Error("expected IsUser true")
	}
	if _, ok := ptable.Lookup(vs.PD, 0); !ok {
		t.Error("expected the user directory to see the kernel's identity mapping")
	}
}

func TestVmallocAccumulatesTotalAllocated(t *testing.T) {
	res := newTestResources(t, evict.NoopInvalidator{})
	vs, _ := NewUserSpace(1, res)

	start, errc := vs.Vmalloc(3 * uintptr(mem.PGSIZE))
	if errc != 0 {
		t.Fatalf("Vmalloc failed: %v", errc)
	}
	if start < mem.VHeapStart || start >= mem.VHeapLimit {
		t.Errorf("start %#x outside heap window", start)
	}
	if vs.TotalAllocated != 3 {
		t.Errorf("TotalAllocated = %d, want 3", vs.TotalAllocated)
	}
}

func TestVmallocOnKernelSpaceFails(t *testing.T) {
	res := newTestResources(t, evict.NoopInvalidator{})
	vs := &VMSpace{Pid: 0, IsUser: false, PD: res.KernelPD}
	if _, errc := vs.Vmalloc(uintptr(mem.PGSIZE)); errc != defs.EINVAL {
		t.Errorf("Vmalloc on kernel space = %v, want EINVAL", errc)
	}
}

func TestVfreeReclaimsMappedAndSwappedPages(t *testing.T) {
	res := newTestResources(t, evict.NoopInvalidator{})
	vs, _ := NewUserSpace(1, res)

	start, _ := vs.Vmalloc(2 * uintptr(mem.PGSIZE))
	if reason := vs.PageFault(res, start); reason != defs.KillNone {
		t.Fatalf("PageFault on page 0 = %v", reason)
	}
	if reason := vs.PageFault(res, start+uintptr(mem.PGSIZE)); reason != defs.KillNone {
		t.Fatalf("PageFault on page 1 = %v", reason)
	}

	freeBefore := res.FFS.FreeCount()
	swapFreeBefore := res.Swap.FreeCount()
	// Push page 1 out to swap so Vfree meets one mapped and one swapped page.
	pte1, _ := ptable.Lookup(vs.PD, start+uintptr(mem.PGSIZE))
	frame1 := pte1.Frame()
	res.Evict.SwapOut(frame1)
	res.FFS.Free(frame1)

	if errc := vs.Vfree(res, start, 2*uintptr(mem.PGSIZE)); errc != 0 {
		t.Fatalf("Vfree failed: %v", errc)
	}
	if res.FFS.FreeCount() != freeBefore+2 {
		t.Errorf("FreeCount after Vfree = %d, want %d", res.FFS.FreeCount(), freeBefore+2)
	}
	if res.Swap.FreeCount() != swapFreeBefore {
		t.Errorf("swap FreeCount after Vfree = %d, want %d", res.Swap.FreeCount(), swapFreeBefore)
	}
	if pte, ok := ptable.Lookup(vs.PD, start); ok && *pte != 0 {
		t.Error("expected the PTE to be cleared after Vfree")
	}
}

func TestVfreeRejectsPartialSpan(t *testing.T) {
	res := newTestResources(t, evict.NoopInvalidator{})
	vs, _ := NewUserSpace(1, res)
	start, _ := vs.Vmalloc(4 * uintptr(mem.PGSIZE))
	if errc := vs.Vfree(res, start, 2*uintptr(mem.PGSIZE)); errc != defs.EINVAL {
		t.Errorf("Vfree of a partial span = %v, want EINVAL", errc)
	}
}

func TestDestroyReleasesEveryOwnedFrame(t *testing.T) {
	res := newTestResources(t, evict.NoopInvalidator{})
	vs, _ := NewUserSpace(1, res)

	start, _ := vs.Vmalloc(3 * uintptr(mem.PGSIZE))
	for i := 0; i < 3; i++ {
		vs.PageFault(res, start+uintptr(i)*uintptr(mem.PGSIZE))
	}

	ptFreeBefore := res.PT.FreeCount()
	ffsFreeBefore := res.FFS.FreeCount()
	vs.Destroy(res)

	if res.FFS.FreeCount() != ffsFreeBefore+3 {
		t.Errorf("FFS FreeCount after Destroy = %d, want %d", res.FFS.FreeCount(), ffsFreeBefore+3)
	}
	if res.PT.FreeCount() <= ptFreeBefore {
		t.Error("Destroy must release the process's page-table and directory frames back to the PT pool")
	}
}
