// Command vmsim replays scripted vmalloc/touch/vfree/exit sequences
// against a paging.Subsystem and prints the resulting pool occupancy,
// eviction, and swap-in counts.
//
// Each scenario is a small, named sequence of steps run against one
// freshly booted subsystem, the way a kernel regression test replays a
// fixed workload against one boot image rather than a live machine.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"

	"vmcore/internal/config"
	"vmcore/internal/defs"
	"vmcore/paging"
)

func usage(me string) {
	fmt.Printf("%s [-scenario name] [-config path] [-profile path]\n\navailable scenarios: %v\n", me, scenarioNames())
	os.Exit(1)
}

func main() {
	var (
		scenarioName = flag.String("scenario", "fill-and-evict", "scenario to run")
		configPath = flag.String("config", "", "scenario config file (swap_enabled, trace_cap); watched for changes")
		profile    = flag.String("profile", "", "write a CPU profile to this path")
	)
	flag.Usage = func() { usage(os.Args[0]) }
	flag.Parse()

	sc, ok := scenarios[*scenarioName]
	if !ok {
		log.Fatalf("vmsim: unknown scenario %q", *scenarioName)
	}

	cfg := config.Default()
	cfg.SwapEnabled = sc.swapEnabled
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("vmsim: loading config: %v", err)
		}
		cfg = loaded
		watcher, err := config.Watch(*configPath, func(c config.Config) {
			cfg = c
			fmt.Printf("vmsim: config reloaded: swap_enabled=%v trace_cap=%d\n", c.SwapEnabled, c.TraceCap)
		})
		if err != nil {
			log.Fatalf("vmsim: watching config: %v", err)
		}
		defer watcher.Close()
	}

	if *profile != "" {
		f, err := os.Create(*profile)
		if err != nil {
			log.Fatalf("vmsim: creating profile file: %v", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatalf("vmsim: starting profile: %v", err)
		}
		defer pprof.StopCPUProfile()
	}

	sys, err := paging.New(cfg, nil)
	if err != nil {
		log.Fatalf("vmsim: booting subsystem: %v", err)
	}
	defer sys.Close()

	fmt.Printf("vmsim: running scenario %q (swap_enabled=%v)\n", *scenarioName, cfg.SwapEnabled)
	if err := sc.run(sys); err != nil {
		log.Fatalf("vmsim: scenario failed: %v", err)
	}

	fmt.Printf("vmsim: free FFS frames=%d free swap slots=%d evictions=%d swap-ins=%d\n",
		sys.FreeFFSPages(), sys.FreeSwapPages(), sys.Evictions(), sys.SwapIns())
}

func scenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	return names
}

// spawn creates a process with no stack allocation and fails loudly if
// it can't — every scenario below assumes a clean boot has plenty of room
// for a handful of test processes.
func spawn(sys *paging.Subsystem, name string) defs.Pid_t {
	pid, errno := sys.Vcreate(0, 0, 0, name, nil)
	if errno != 0 {
		log.Fatalf("vmsim: Vcreate(%s): errno %d", name, errno)
	}
	return pid
}

// touch simulates a hardware fault at every page of [start, start+n*PGSIZE)
// by calling the fault handler directly — this harness has no real MMU to
// generate the fault for it.
func touch(sys *paging.Subsystem, pid defs.Pid_t, start uintptr, pages int, pageSize uintptr) error {
	for i := 0; i < pages; i++ {
		addr := start + uintptr(i)*pageSize
		if reason := sys.PagefaultHandler(pid, addr); reason != defs.KillNone {
			return fmt.Errorf("unexpected kill at 0x%x: %v", addr, reason)
		}
	}
	return nil
}
