package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

func cacheCmd() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or clear the result cache",
		Subcommands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show cache location, entry count and size",
				Action: runCacheStatsCmd,
			},
			{
				Name:   "clear",
				Usage:  "Remove every cached result",
				Action: runCacheClearCmd,
			},
		},
	}
}

func runCacheStatsCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	cfg.Cache.Enabled = true

	rc, err := openCache(cfg)
	if err != nil {
		return err
	}
	stats, err := rc.Stats()
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Directory: %s\n", stats.Dir)
	fmt.Fprintf(w, "Entries:   %d\n", stats.Entries)
	fmt.Fprintf(w, "Size:      %d bytes\n", stats.TotalSize)
	if stats.Entries > 0 {
		fmt.Fprintf(w, "Oldest:    %s\n", stats.OldestAge.Round(time.Second))
	}
	return nil
}

func runCacheClearCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	cfg.Cache.Enabled = true

	rc, err := openCache(cfg)
	if err != nil {
		return err
	}
	if err := rc.Clear(); err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(c.App.Writer, "Cleared %s\n", cfg.Cache.Dir)
	return nil
}
