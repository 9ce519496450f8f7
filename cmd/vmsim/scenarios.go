package main

import (
	"fmt"

	"vmcore/internal/mem"
	"vmcore/paging"
)

// scenario bundles a step function with the swap-enable setting it
// needs; most scenarios want the default (enabled), but a few exist
// specifically to exercise the swap-disabled path.
type scenario struct {
	run         func(*paging.Subsystem) error
	swapEnabled bool
}

var scenarios = map[string]scenario{
	"lazy-fill":        {run: scenarioLazyFill, swapEnabled: true},
	"fill-and-evict":   {run: scenarioFillAndEvict, swapEnabled: true},
	"oom-no-swap":      {run: scenarioOOMNoSwap, swapEnabled: false},
	"free-and-reuse":   {run: scenarioFreeAndReuse, swapEnabled: true},
	"swap-round-trip":  {run: scenarioSwapRoundTrip, swapEnabled: true},
	"exit-reclaims":    {run: scenarioExitReclaims, swapEnabled: true},
	"clock-persistent": {run: scenarioClockPersistent, swapEnabled: true},
}

const pageSize = uintptr(mem.PGSIZE)

// scenarioLazyFill vmallocs a region and touches half of it, checking
// that only the touched pages consumed an FFS frame.
func scenarioLazyFill(sys *paging.Subsystem) error {
	pid := spawn(sys, "lazy-fill")
	const pages = 8
	start, errno := sys.Vmalloc(pid, pages*uintptr(mem.PGSIZE))
	if errno != 0 {
		return fmt.Errorf("vmalloc: errno %d", errno)
	}
	if err := touch(sys, pid, start, pages/2, pageSize); err != nil {
		return err
	}
	if got := sys.UsedFFSFrames(pid); got != pages/2 {
		return fmt.Errorf("used frames = %d, want %d", got, pages/2)
	}
	return nil
}

// scenarioFillAndEvict allocates and touches enough pages across two
// processes to force the replacement engine to evict at least once,
// then touches process a's first page again and checks that the fault
// does not kill it. Page contents are not compared.
func scenarioFillAndEvict(sys *paging.Subsystem) error {
	a := spawn(sys, "filler-a")
	b := spawn(sys, "filler-b")

	startA, errno := sys.Vmalloc(a, uintptr(mem.F)*pageSize/2)
	if errno != 0 {
		return fmt.Errorf("vmalloc a: errno %d", errno)
	}
	startB, errno := sys.Vmalloc(b, uintptr(mem.F)*pageSize)
	if errno != 0 {
		return fmt.Errorf("vmalloc b: errno %d", errno)
	}

	if err := touch(sys, a, startA, mem.F/2, pageSize); err != nil {
		return err
	}
	if err := touch(sys, b, startB, mem.F, pageSize); err != nil {
		return err
	}
	if sys.Evictions() == 0 {
		return fmt.Errorf("expected at least one eviction once FFS overcommitted")
	}

	// Touch process a's first page again: if it was the eviction victim
	// this must swap it back in rather than kill the process.
	if err := touch(sys, a, startA, 1, pageSize); err != nil {
		return err
	}
	return nil
}

// scenarioOOMNoSwap disables swap via config and confirms FFS exhaustion
// kills the offending process instead of evicting.
func scenarioOOMNoSwap(sys *paging.Subsystem) error {
	pid := spawn(sys, "no-swap")
	start, errno := sys.Vmalloc(pid, uintptr(mem.F+1)*pageSize)
	if errno != 0 {
		return fmt.Errorf("vmalloc: errno %d", errno)
	}
	for i := 0; i < mem.F+1; i++ {
		addr := start + uintptr(i)*pageSize
		if reason := sys.PagefaultHandler(pid, addr); reason != 0 {
			fmt.Printf("vmsim: process killed at page %d: %v\n", i, reason)
			return nil
		}
	}
	return fmt.Errorf("expected an OOM kill before filling FFS with swap disabled")
}

// scenarioFreeAndReuse vmallocs, frees, and vmallocs again, checking
// that the freed span is available for reuse and that the FFS frames it
// held were returned to the pool.
func scenarioFreeAndReuse(sys *paging.Subsystem) error {
	pid := spawn(sys, "free-and-reuse")
	const pages = 4
	start, errno := sys.Vmalloc(pid, pages*pageSize)
	if errno != 0 {
		return fmt.Errorf("vmalloc: errno %d", errno)
	}
	if err := touch(sys, pid, start, pages, pageSize); err != nil {
		return err
	}
	freeBefore := sys.FreeFFSPages()
	if errno := sys.Vfree(pid, start, pages*pageSize); errno != 0 {
		return fmt.Errorf("vfree: errno %d", errno)
	}
	if got := sys.FreeFFSPages(); got != freeBefore+pages {
		return fmt.Errorf("free FFS frames after vfree = %d, want %d", got, freeBefore+pages)
	}
	start2, errno := sys.Vmalloc(pid, pages*pageSize)
	if errno != 0 {
		return fmt.Errorf("second vmalloc: errno %d", errno)
	}
	if start2 != start {
		return fmt.Errorf("second vmalloc did not reuse the freed span: got 0x%x, want 0x%x", start2, start)
	}
	return nil
}

// scenarioSwapRoundTrip forces one page out to swap and back, checking
// that the swap-in fault does not kill the process. Page contents are
// not compared.
func scenarioSwapRoundTrip(sys *paging.Subsystem) error {
	victim := spawn(sys, "victim")
	filler := spawn(sys, "filler")

	vstart, errno := sys.Vmalloc(victim, pageSize)
	if errno != 0 {
		return fmt.Errorf("vmalloc victim: errno %d", errno)
	}
	if err := touch(sys, victim, vstart, 1, pageSize); err != nil {
		return err
	}

	fstart, errno := sys.Vmalloc(filler, uintptr(mem.F)*pageSize)
	if errno != 0 {
		return fmt.Errorf("vmalloc filler: errno %d", errno)
	}
	if err := touch(sys, filler, fstart, mem.F, pageSize); err != nil {
		return err
	}
	if sys.Evictions() == 0 {
		return fmt.Errorf("expected filler's allocation to force an eviction")
	}
	// Touching the victim's page again forces a swap-in if it was chosen.
	if err := touch(sys, victim, vstart, 1, pageSize); err != nil {
		return err
	}
	return nil
}

// scenarioExitReclaims checks that Vexit returns every FFS frame and
// swap slot a process held.
func scenarioExitReclaims(sys *paging.Subsystem) error {
	pid := spawn(sys, "short-lived")
	const pages = 4
	start, errno := sys.Vmalloc(pid, pages*pageSize)
	if errno != 0 {
		return fmt.Errorf("vmalloc: errno %d", errno)
	}
	if err := touch(sys, pid, start, pages, pageSize); err != nil {
		return err
	}
	freeBefore := sys.FreeFFSPages()
	if errno := sys.Vexit(pid); errno != 0 {
		return fmt.Errorf("vexit: errno %d", errno)
	}
	if got := sys.FreeFFSPages(); got != freeBefore+pages {
		return fmt.Errorf("free FFS frames after vexit = %d, want %d", got, freeBefore+pages)
	}
	return nil
}

// scenarioClockPersistent spawns and exits several short-lived processes,
// forcing multiple eviction rounds, and confirms the replacement engine
// keeps making progress rather than repeatedly re-selecting the same
// frame (the two-pass scan in internal/evict would otherwise loop).
func scenarioClockPersistent(sys *paging.Subsystem) error {
	const pages = mem.F + 8
	for round := 0; round < 3; round++ {
		pid := spawn(sys, fmt.Sprintf("round-%d", round))
		start, errno := sys.Vmalloc(pid, uintptr(pages)*pageSize)
		if errno != 0 {
			return fmt.Errorf("round %d vmalloc: errno %d", round, errno)
		}
		if err := touch(sys, pid, start, pages, pageSize); err != nil {
			return fmt.Errorf("round %d: %w", round, err)
		}
		if errno := sys.Vexit(pid); errno != 0 {
			return fmt.Errorf("round %d vexit: errno %d", round, errno)
		}
	}
	return nil
}
