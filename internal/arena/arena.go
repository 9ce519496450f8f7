// Package arena stands in for "physical memory": each Arena is a single
// mmap'd anonymous region addressed by the same fixed physical addresses
// internal/mem hands out, so that frame pools read and write through a
// real syscall-backed mapping instead of treating a Go slice as if it were
// physical RAM.
package arena

import (
	"fmt"

	"golang.org/x/sys/unix"

	"vmcore/internal/mem"
)

// Arena is a contiguous mmap'd region representing the physical address
// range [Base, Base+len(bytes)).
type Arena struct {
	Base  mem.Pa_t
	bytes []byte
}

// New mmaps size bytes of anonymous, zero-filled memory to back the
// physical range starting at base. size must be a whole number of pages.
func New(base mem.Pa_t, size int) (*Arena, error) {
	if size%mem.PGSIZE != 0 {
		return nil, fmt.Errorf("arena: size %d is not page-aligned", size)
	}
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("arena: mmap %d bytes: %w", size, err)
	}
	return &Arena{Base: base, bytes: b}, nil
}

// Close releases the backing mapping. Safe to call once per Arena.
func (a *Arena) Close() error {
	if a.bytes == nil {
		return nil
	}
	err := unix.Munmap(a.bytes)
	a.bytes = nil
	return err
}

// Size returns the arena's byte length.
func (a *Arena) Size() int { return len(a.bytes) }

// Contains reports whether pa falls within this arena's physical range.
func (a *Arena) Contains(pa mem.Pa_t) bool {
	return pa >= a.Base && uint64(pa-a.Base) < uint64(len(a.bytes))
}

// Frame returns the page-sized slice backing the frame at the page-aligned
// physical address pa. It panics if pa is outside the arena or misaligned
// — a programming error in every caller, never a runtime condition.
func (a *Arena) Frame(pa mem.Pa_t) []byte {
	if pa&mem.PGOFFSET != 0 {
		panic("arena: misaligned frame address")
	}
	if !a.Contains(pa) {
		panic("arena: address outside arena")
	}
	off := uint64(pa - a.Base)
	return a.bytes[off : off+uint64(mem.PGSIZE)]
}

// Zero clears the frame at pa.
func (a *Arena) Zero(pa mem.Pa_t) {
	f := a.Frame(pa)
	for i := range f {
		f[i] = 0
	}
}
