package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/panbanda/remark/internal/output"
	"github.com/panbanda/remark/pkg/watch"
	"github.com/urfave/cli/v2"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Watch for Python file changes and re-analyze them",
		ArgsUsage: "[path]",
		Flags: append(thresholdFlags(),
			&cli.DurationFlag{
				Name:  "debounce",
				Value: watch.DefaultDebounce,
				Usage: "Quiet period before a changed file is analyzed",
			},
		),
		Action: runWatchCmd,
	}
}

func runWatchCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	absPath, err := filepath.Abs(getPaths(c)[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	analyzer, err := newAnalyzer(cfg)
	if err != nil {
		return err
	}
	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	handler := func(ctx context.Context, paths []string) {
		color.New(color.FgCyan).Fprintf(c.App.ErrWriter, "[%s] changed: %s\n", time.Now().Format("15:04:05"), strings.Join(paths, ", "))
		results, errs := analyzer.AnalyzeFiles(ctx, paths)
		reportErrors(c, errs)
		if err := formatter.Output(output.NewAnalysisReport(results, cfg.Thresholds)); err != nil {
			color.New(color.FgRed).Fprintf(c.App.ErrWriter, "output: %v\n", err)
		}
	}

	watcher, err := watch.NewWatcher(absPath, cfg, c.Duration("debounce"), handler)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	color.New(color.FgCyan).Fprintf(c.App.ErrWriter, "Watching %s (Ctrl+C to stop)\n", absPath)
	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
