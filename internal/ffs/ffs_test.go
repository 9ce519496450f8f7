package ffs

import (
	"testing"

	"vmcore/internal/arena"
	"vmcore/internal/defs"
	"vmcore/internal/mem"
)

func newTestPool(t *testing.T) *Pool {
	t.Helper()
	a, err := arena.New(mem.FFSBase, int(mem.FFSSize))
	if err != nil {
		t.Fatalf("arena.New: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return New(a)
}

func TestAllocFreeCountAndZeroing(t *testing.T) {
	p := newTestPool(t)
	if p.FreeCount() != mem.F {
		t.Fatalf("FreeCount() = %d, want %d", p.FreeCount(), mem.F)
	}
	pa, ok := p.Alloc(1)
	if !ok {
		t.Fatal("Alloc failed on an empty pool")
	}
	if p.FreeCount() != mem.F-1 {
		t.Fatalf("FreeCount() after one alloc = %d, want %d", p.FreeCount(), mem.F-1)
	}
	frame := p.Frame(pa)
	for i, b := range frame {
		if b != 0 {
			t.Fatalf("byte %d of a freshly allocated frame is not zero: %#x", i, b)
		}
	}
}

func TestFreeRestoresCount(t *testing.T) {
	p := newTestPool(t)
	pa, _ := p.Alloc(1)
	p.Free(pa)
	if p.FreeCount() != mem.F {
		t.Fatalf("FreeCount() after free = %d, want %d", p.FreeCount(), mem.F)
	}
}

func TestDoubleFreePanics(t *testing.T) {
	p := newTestPool(t)
	pa, _ := p.Alloc(1)
	p.Free(pa)
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic on double free")
		}
	}()
	p.Free(pa)
}

func TestUsedFramesTracksOwner(t *testing.T) {
	p := newTestPool(t)
	const pidA, pidB defs.Pid_t = 1, 2
	for i := 0; i < 3; i++ {
		p.Alloc(pidA)
	}
	for i := 0; i < 2; i++ {
		p.Alloc(pidB)
	}
	if got := p.UsedFrames(pidA); got != 3 {
		t.Errorf("UsedFrames(pidA) = %d, want 3", got)
	}
	if got := p.UsedFrames(pidB); got != 2 {
		t.Errorf("UsedFrames(pidB) = %d, want 2", got)
	}
}

func TestReleaseOwnedByFreesOnlyThatPid(t *testing.T) {
	p := newTestPool(t)
	const pidA, pidB defs.Pid_t = 1, 2
	for i := 0; i < 3; i++ {
		p.Alloc(pidA)
	}
	for i := 0; i < 2; i++ {
		p.Alloc(pidB)
	}
	freed := p.ReleaseOwnedBy(pidA)
	if freed != 3 {
		t.Errorf("ReleaseOwnedBy(pidA) returned %d, want 3", freed)
	}
	if got := p.UsedFrames(pidA); got != 0 {
		t.Errorf("UsedFrames(pidA) after release = %d, want 0", got)
	}
	if got := p.UsedFrames(pidB); got != 2 {
		t.Errorf("UsedFrames(pidB) after releasing pidA = %d, want 2", got)
	}
}

func TestTransferChangesOwnerAndClearsMapping(t *testing.T) {
	p := newTestPool(t)
	const pidA, pidB defs.Pid_t = 1, 2
	pa, _ := p.Alloc(pidA)
	p.Install(pa, 0x10000000, nil)
	p.Transfer(pa, pidB)
	rec := p.RecordOf(pa)
	if rec.OwnerPid != pidB {
		t.Errorf("OwnerPid after transfer = %v, want %v", rec.OwnerPid, pidB)
	}
	if rec.MappedVAddr != 0 || rec.OwnerPD != nil {
		t.Error("Transfer must clear the previous mapping metadata")
	}
}

func TestAllocFullPool(t *testing.T) {
	p := newTestPool(t)
	for i := 0; i < mem.F; i++ {
		if _, ok := p.Alloc(0); !ok {
			t.Fatalf("pool exhausted early at frame %d of %d", i, mem.F)
		}
	}
	if _, ok := p.Alloc(0); ok {
		t.Fatal("expected exhaustion once every FFS frame is allocated")
	}
}

func TestIndexOfRoundTrips(t *testing.T) {
	p := newTestPool(t)
	pa, _ := p.Alloc(0)
	idx := p.IndexOf(pa)
	rec, pa2 := p.At(idx)
	if pa2 != pa {
		t.Errorf("At(IndexOf(pa)) address = %#x, want %#x", pa2, pa)
	}
	if !rec.Used {
		t.Error("At() must return the record matching the allocated frame")
	}
}
