// Package config carries the handful of values a test or scenario harness
// legitimately wants to vary without recompiling: whether swap is enabled
// and how many eviction/swap-in trace lines to print. Pool sizes (F, S,
// MaxPTSize) and the physical/virtual memory map stay fixed package
// constants in internal/mem — test scenarios are written against those
// literal values (F=16384 and so on), so they are not configuration.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Config holds the subsystem's runtime-tunable knobs.
type Config struct {
	SwapEnabled bool
	TraceCap    int
}

// Default returns the configuration the built-in scenarios assume: swap
// enabled, a generous trace cap.
func Default() Config {
	return Config{SwapEnabled: true, TraceCap: 64}
}

// Load reads a simple "key = value" scenario config file.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			return cfg, fmt.Errorf("config: malformed line %q", line)
		}
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		switch k {
		case "swap_enabled":
			b, err := strconv.ParseBool(v)
			if err != nil {
				return cfg, fmt.Errorf("config: swap_enabled: %w", err)
			}
			cfg.SwapEnabled = b
		case "trace_cap":
			n, err := strconv.Atoi(v)
			if err != nil {
				return cfg, fmt.Errorf("config: trace_cap: %w", err)
			}
			cfg.TraceCap = n
		default:
			return cfg, fmt.Errorf("config: unknown key %q", k)
		}
	}
	return cfg, sc.Err()
}

// Watcher reloads a scenario config file on every write and reports the
// new value through onChange. cmd/vmsim only stores and prints the
// reloaded value; the subsystem it already booted keeps the swap-enable
// and trace-cap settings it was built with.
type Watcher struct {
	fsw *fsnotify.Watcher
}

// Watch starts watching path for writes. Call Close when done.
func Watch(path string, onChange func(Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, err
	}
	go func() {
		for {
			select {
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if cfg, err := Load(path); err == nil {
					onChange(cfg)
				}
			case _, ok := <-fsw.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return &Watcher{fsw: fsw}, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
