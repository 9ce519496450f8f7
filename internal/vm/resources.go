// Package vm implements the per-process VM lifecycle and the page-fault
// handler that together make up a process's address space — a
// generalization of biscuit/src/vm/as.go's Vm_t from COW/mmap semantics
// to lazy-fill/swap semantics.
package vm

import (
	"vmcore/internal/debug"
	"vmcore/internal/evict"
	"vmcore/internal/ffs"
	"vmcore/internal/ptable"
	"vmcore/internal/ptpool"
	"vmcore/internal/swap"
)

// Resources bundles the process-wide, shared-by-reference state every
// VMSpace operation needs, passed explicitly rather than reached through
// a package-level global the way biscuit/src/mem's `var Physmem` is.
type Resources struct {
	PT          *ptpool.Pool
	FFS         *ffs.Pool
	Swap        *swap.Pool
	Evict       *evict.Engine
	TLB         evict.Invalidator
	Trace       *debug.Tracer
	KernelPD    *ptable.PageDirectory
	SwapEnabled bool
}
