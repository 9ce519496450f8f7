package arena

import (
	"testing"

	"vmcore/internal/mem"
)

func TestNewRejectsMisalignedSize(t *testing.T) {
	if _, err := New(0, mem.PGSIZE+1); err == nil {
		t.Fatal("expected an error for a non-page-aligned size")
	}
}

func TestFrameReadWrite(t *testing.T) {
	a, err := New(0x1000, 4*mem.PGSIZE)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	pa := mem.Pa_t(0x1000) + mem.Pa_t(mem.PGSIZE)
	f := a.Frame(pa)
	if len(f) != mem.PGSIZE {
		t.Fatalf("Frame length = %d, want %d", len(f), mem.PGSIZE)
	}
	f[0] = 0xAB
	f[mem.PGSIZE-1] = 0xCD

	f2 := a.Frame(pa)
	if f2[0] != 0xAB || f2[mem.PGSIZE-1] != 0xCD {
		t.Fatal("Frame must return a view onto the same backing memory across calls")
	}
}

func TestZeroClearsFrame(t *testing.T) {
	a, err := New(0, mem.PGSIZE)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	f := a.Frame(0)
	for i := range f {
		f[i] = 0xFF
	}
	a.Zero(0)
	for i, b := range a.Frame(0) {
		if b != 0 {
			t.Fatalf("byte %d not zeroed: %#x", i, b)
		}
	}
}

func TestFramePanicsOutsideArena(t *testing.T) {
	a, err := New(0x1000, mem.PGSIZE)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic addressing a frame outside the arena")
		}
	}()
	a.Frame(0x5000)
}

func TestFramePanicsOnMisalignedAddress(t *testing.T) {
	a, err := New(0, mem.PGSIZE)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic addressing a misaligned offset")
		}
	}()
	a.Frame(1)
}

func TestContains(t *testing.T) {
	a, err := New(0x2000, 2*mem.PGSIZE)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if !a.Contains(0x2000) || !a.Contains(0x2000+mem.Pa_t(mem.PGSIZE)) {
		t.Error("Contains should be true for addresses inside the arena")
	}
	if a.Contains(0x1000) || a.Contains(0x2000+2*mem.Pa_t(mem.PGSIZE)) {
		t.Error("Contains should be false for addresses outside the arena")
	}
}
