// Package ptable is the page-table walker: given a page directory and a
// virtual address, it returns the leaf PTE, creating the intermediate
// page table on demand.
package ptable

import (
	"unsafe"

	"vmcore/internal/mem"
	"vmcore/internal/ptpool"
)

// PageDirectory is a single process's (or the kernel's) top-level page
// table: a PT-pool frame holding PDEEntries PDEs.
type PageDirectory struct {
	Base mem.Pa_t
	pool *ptpool.Pool
}

func pdesOf(frame []byte) *[mem.PDEEntries]mem.PDE {
	return (*[mem.PDEEntries]mem.PDE)(unsafe.Pointer(&frame[0]))
}

func ptesOf(frame []byte) *[mem.PTEEntries]mem.PTE {
	return (*[mem.PTEEntries]mem.PTE)(unsafe.Pointer(&frame[0]))
}

func (pd *PageDirectory) pdes() *[mem.PDEEntries]mem.PDE {
	return pdesOf(pd.pool.Frame(pd.Base))
}

// New allocates and zeroes a fresh page directory frame from pool.
func New(pool *ptpool.Pool) (*PageDirectory, bool) {
	frame, ok := pool.Alloc()
	if !ok {
		return nil, false
	}
	return &PageDirectory{Base: frame, pool: pool}, true
}

// CopyKernelEntries copies every present PDE of src into dst, used when a
// new user process is created so it shares the kernel's identity mappings.
func (dst *PageDirectory) CopyKernelEntries(src *PageDirectory) {
	*dst.pdes() = *src.pdes()
}

// Walk returns the leaf PTE for vaddr in pd, allocating and zeroing an
// intermediate page table if necessary. user selects the PDE's
// user-accessibility bit for newly created tables. It returns ok=false
// only when the PT pool is exhausted.
func Walk(pd *PageDirectory, vaddr uintptr, user bool) (*mem.PTE, bool) {
	pdx := mem.PDX(vaddr)
	pdes := pd.pdes()
	pde := pdes[pdx]
	if !pde.Present() {
		frame, ok := pd.pool.Alloc()
		if !ok {
			return nil, false
		}
		pde = mem.MkPDE(frame, user)
		pdes[pdx] = pde
	}
	ptes := ptesOf(pd.pool.Frame(pde.Frame()))
	return &ptes[mem.PTX(vaddr)], true
}

// Lookup returns the leaf PTE for vaddr without creating any missing
// table; ok is false if no page table exists at this address yet (the
// page is therefore certainly unmapped).
func Lookup(pd *PageDirectory, vaddr uintptr) (*mem.PTE, bool) {
	pde := pd.pdes()[mem.PDX(vaddr)]
	if !pde.Present() {
		return nil, false
	}
	ptes := ptesOf(pd.pool.Frame(pde.Frame()))
	return &ptes[mem.PTX(vaddr)], true
}

// MapRegion identity-maps [start, end) into pd at PTE granularity with
// kernel permissions. Used only during kernel initialization. It panics
// (a boot-time invariant violation) if the PT pool is exhausted.
func MapRegion(pd *PageDirectory, start, end mem.Pa_t) {
	for pa := start &^ mem.PGOFFSET; pa < end; pa += mem.Pa_t(mem.PGSIZE) {
		pte, ok := Walk(pd, uintptr(pa), false)
		if !ok {
			panic("ptable: PT pool exhausted during kernel init")
		}
		*pte = mem.MkMapped(pa, mem.PTE_W)
	}
}

// FreeUserTables releases every user-owned page-table frame referenced by
// pd's PDEs back to the pool, leaving kernel entries untouched. Called
// during process teardown before the directory frame itself is freed.
func (pd *PageDirectory) FreeUserTables() {
	pdes := pd.pdes()
	for i, pde := range pdes {
		if pde.Present() && pde.User() {
			pd.pool.Free(pde.Frame())
			pdes[i] = 0
		}
	}
}

// Release frees pd's own frame. Call only after FreeUserTables and after
// any PTE-level cleanup (FFS/swap reclaim) is complete.
func (pd *PageDirectory) Release() {
	pd.pool.Free(pd.Base)
}
