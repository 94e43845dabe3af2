package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/urfave/cli/v2"
)

const cpuProfileKey = "pprof.cpu"

// startProfile begins CPU profiling to <prefix>.cpu.pprof when --pprof is set.
func startProfile(c *cli.Context) error {
	prefix := c.String("pprof")
	if prefix == "" {
		return nil
	}
	f, err := os.Create(prefix + ".cpu.pprof")
	if err != nil {
		return fmt.Errorf("create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return fmt.Errorf("start CPU profile: %w", err)
	}
	c.App.Metadata[cpuProfileKey] = f
	return nil
}

// stopProfile finishes the CPU profile and writes a heap profile to
// <prefix>.mem.pprof.
func stopProfile(c *cli.Context) error {
	prefix := c.String("pprof")
	if prefix == "" {
		return nil
	}

	pprof.StopCPUProfile()
	if f, ok := c.App.Metadata[cpuProfileKey].(*os.File); ok {
		f.Close()
		slog.Debug("profile written", "kind", "cpu", "path", f.Name())
	}

	path := prefix + ".mem.pprof"
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create memory profile: %w", err)
	}
	defer f.Close()

	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("write memory profile: %w", err)
	}
	slog.Debug("profile written", "kind", "heap", "path", path)
	return nil
}
