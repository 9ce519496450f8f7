// Package paging assembles every internal/* package into one bootable
// subsystem and exposes the external operation surface a scheduler, a
// trap stub, and a process-creation path call into: Vmalloc, Vfree,
// Vcreate, PagefaultHandler, and the introspection queries a shell or
// test harness uses to check pool occupancy.
//
// Subsystem is constructed once, at boot, and passed around by reference
// — never reached through a package-level global the way
// biscuit/src/mem's mem.Physmem is. Every exported method takes the
// subsystem's single critical-section lock before touching shared pool
// state, standing in for the interrupts-disabled section a freestanding
// kernel would use; nothing below is safe to call concurrently without
// it.
package paging

import (
	"fmt"
	"sync"

	"vmcore/internal/arena"
	"vmcore/internal/config"
	"vmcore/internal/debug"
	"vmcore/internal/defs"
	"vmcore/internal/evict"
	"vmcore/internal/ffs"
	"vmcore/internal/mem"
	"vmcore/internal/ptable"
	"vmcore/internal/ptpool"
	"vmcore/internal/swap"
	"vmcore/internal/vm"
)

// Subsystem is the whole paging core for one simulated machine: its
// physical-memory arenas, its three frame/slot pools, the replacement
// engine, the kernel's own page directory, and every live process's VM
// state.
type Subsystem struct {
	mu sync.Mutex

	ptArena   *arena.Arena
	ffsArena  *arena.Arena
	swapArena *arena.Arena

	pt    *ptpool.Pool
	ffs   *ffs.Pool
	swap  *swap.Pool
	evict *evict.Engine
	trace *debug.Tracer

	kernelPD *ptable.PageDirectory
	res      *vm.Resources

	spaces  map[defs.Pid_t]*vm.VMSpace
	nextPid defs.Pid_t
}

// New boots a fresh subsystem: mmaps the PT-pool, FFS, and swap arenas,
// builds the kernel's identity-mapped page directory over the whole
// physical map, and wires the replacement engine. tlb may be nil, which
// installs evict.NoopInvalidator (the right choice for a single
// simulated core with no real TLB).
func New(cfg config.Config, tlb evict.Invalidator) (*Subsystem, error) {
	ptArena, err := arena.New(mem.PTPoolBase, int(mem.PTPoolSize))
	if err != nil {
		return nil, fmt.Errorf("paging: pt arena: %w", err)
	}
	ffsArena, err := arena.New(mem.FFSBase, int(mem.FFSSize))
	if err != nil {
		ptArena.Close()
		return nil, fmt.Errorf("paging: ffs arena: %w", err)
	}
	swapArena, err := arena.New(mem.SwapBase, int(mem.SwapSize))
	if err != nil {
		ptArena.Close()
		ffsArena.Close()
		return nil, fmt.Errorf("paging: swap arena: %w", err)
	}

	if tlb == nil {
		tlb = evict.NoopInvalidator{}
	}
	ptPool := ptpool.New(ptArena)
	ffsPool := ffs.New(ffsArena)
	swapPool := swap.New(swapArena)
	trace := debug.NewTracer(cfg.TraceCap)
	engine := evict.New(ffsPool, swapPool, tlb, trace)

	kernelPD, ok := ptable.New(ptPool)
	if !ok {
		ptArena.Close()
		ffsArena.Close()
		swapArena.Close()
		return nil, fmt.Errorf("paging: pt pool exhausted building kernel directory")
	}
	ptable.MapRegion(kernelPD, mem.KernelBase, mem.PhysMapSize)

	s := &Subsystem{
		ptArena:   ptArena,
		ffsArena:  ffsArena,
		swapArena: swapArena,
		pt:        ptPool,
		ffs:       ffsPool,
		swap:      swapPool,
		evict:     engine,
		trace:     trace,
		kernelPD:  kernelPD,
		spaces:    make(map[defs.Pid_t]*vm.VMSpace),
		nextPid:   1,
	}
	s.res = &vm.Resources{
		PT:          ptPool,
		FFS:         ffsPool,
		Swap:        swapPool,
		Evict:       engine,
		TLB:         tlb,
		Trace:       trace,
		KernelPD:    kernelPD,
		SwapEnabled: cfg.SwapEnabled,
	}
	return s, nil
}

// Close releases every arena's backing mapping. Call once, at shutdown.
func (s *Subsystem) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var first error
	for _, c := range []func() error{s.ptArena.Close, s.ffsArena.Close, s.swapArena.Close} {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Vcreate creates a new user process's VM state: a page directory
// seeded with the kernel's mappings and an empty heap region list, plus
// an initial vmalloc of stackSize bytes for its stack. entry and
// priority are accepted for interface completeness with the process
// table this package does not itself implement; they are not
// interpreted here.
func (s *Subsystem) Vcreate(entry uintptr, stackSize uintptr, priority int, name string, args []string) (defs.Pid_t, defs.Err_t) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pid := s.nextPid
	vs, ok := vm.NewUserSpace(pid, s.res)
	if !ok {
		return 0, defs.ENOMEM
	}
	if stackSize > 0 {
		if _, errno := vs.Vmalloc(stackSize); errno != 0 {
			vs.Destroy(s.res)
			return 0, errno
		}
	}
	s.spaces[pid] = vs
	s.nextPid++
	return pid, 0
}

// Vexit tears down pid's VM state in full — FFS frames, swap slots,
// page-table frames, and the directory frame itself — and forgets pid.
func (s *Subsystem) Vexit(pid defs.Pid_t) defs.Err_t {
	s.mu.Lock()
	defer s.mu.Unlock()

	vs, ok := s.spaces[pid]
	if !ok {
		return defs.EINVAL
	}
	vs.Destroy(s.res)
	delete(s.spaces, pid)
	return 0
}

// Vmalloc reserves nbytes of pid's virtual heap. No frame is touched
// until the first access faults it in.
func (s *Subsystem) Vmalloc(pid defs.Pid_t, nbytes uintptr) (uintptr, defs.Err_t) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vs, ok := s.spaces[pid]
	if !ok {
		return 0, defs.EINVAL
	}
	return vs.Vmalloc(nbytes)
}

// Vfree releases [ptr, ptr+nbytes) of pid's heap, reclaiming any frames
// or swap slots bound to it.
func (s *Subsystem) Vfree(pid defs.Pid_t, ptr, nbytes uintptr) defs.Err_t {
	s.mu.Lock()
	defer s.mu.Unlock()

	vs, ok := s.spaces[pid]
	if !ok {
		return defs.EINVAL
	}
	return vs.Vfree(s.res, ptr, nbytes)
}

// PagefaultHandler resolves a fault at faultAddr for pid and reports
// whether (and why) the process should be killed. Callers outside this
// package own the scheduling decision that follows a non-KillNone
// result.
func (s *Subsystem) PagefaultHandler(pid defs.Pid_t, faultAddr uintptr) defs.KillReason {
	s.mu.Lock()
	defer s.mu.Unlock()

	vs, ok := s.spaces[pid]
	if !ok {
		return defs.KillSegfault
	}
	return vs.PageFault(s.res, faultAddr)
}

// FreeFFSPages reports the number of unused FFS frames.
func (s *Subsystem) FreeFFSPages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ffs.FreeCount()
}

// FreeSwapPages reports the number of unused swap slots.
func (s *Subsystem) FreeSwapPages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.swap.FreeCount()
}

// UsedFFSFrames reports how many FFS frames pid currently owns.
func (s *Subsystem) UsedFFSFrames(pid defs.Pid_t) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ffs.UsedFrames(pid)
}

// AllocatedVirtualPages reports how many virtual pages pid has
// vmalloc'd (minus any vfree'd since). ok is false if pid is unknown.
func (s *Subsystem) AllocatedVirtualPages(pid defs.Pid_t) (uintptr, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vs, ok := s.spaces[pid]
	if !ok {
		return 0, false
	}
	return vs.TotalAllocated, true
}

// Evictions reports the running count of pages the replacement engine
// has swapped out, for scenario assertions.
func (s *Subsystem) Evictions() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trace.Evictions.Get()
}

// SwapIns reports the running count of pages restored from swap.
func (s *Subsystem) SwapIns() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trace.SwapIns.Get()
}
