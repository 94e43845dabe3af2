package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/panbanda/remark/internal/cache"
	"github.com/panbanda/remark/internal/output"
	"github.com/panbanda/remark/pkg/analyzer/review"
	"github.com/panbanda/remark/pkg/config"
	"github.com/urfave/cli/v2"
)

// getPaths returns paths from positional args, defaulting to ["."]
func getPaths(c *cli.Context) []string {
	if c.Args().Len() > 0 {
		return c.Args().Slice()
	}
	return []string{"."}
}

// thresholdFlags are shared by every command that classifies functions.
func thresholdFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "max-branches",
			Usage: "Flag functions with more branches than this (default from config, 4)",
		},
		&cli.IntFlag{
			Name:  "max-depth",
			Usage: "Flag functions nested deeper than this (default from config, 2)",
		},
		&cli.IntFlag{
			Name:  "max-lines",
			Usage: "Flag functions with more logical lines than this (default from config, 50)",
		},
	}
}

// flagOverrides maps flags the user set to dotted config keys.
var flagOverrides = map[string]string{
	"max-branches": "thresholds.max_branches",
	"max-depth":    "thresholds.max_depth",
	"max-lines":    "thresholds.max_lines",
	"format":       "output.format",
}

// loadConfig reads the config file named by --config, or the first one
// found, then applies environment and flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	overrides := make(map[string]any)
	for flag, key := range flagOverrides {
		if !c.IsSet(flag) {
			continue
		}
		if flag == "format" {
			overrides[key] = string(output.ParseFormat(c.String(flag)))
			continue
		}
		overrides[key] = c.Int(flag)
	}
	if c.Bool("no-cache") {
		overrides["cache.enabled"] = false
	}

	path := c.String("config")
	if path == "" {
		path = config.Find()
	}

	cfg, err := config.LoadWithOverrides(path, overrides)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newFormatter writes to --output when given, otherwise to the app writer.
func newFormatter(c *cli.Context, cfg *config.Config) (*output.Formatter, error) {
	format := output.ParseFormat(cfg.Output.Format)
	if path := c.String("output"); path != "" {
		return output.NewFormatter(format, path, false)
	}
	return output.NewWriterFormatter(format, c.App.Writer, cfg.Output.Color && !color.NoColor), nil
}

// openCache opens the result cache described by cfg.
func openCache(cfg *config.Config) (*cache.Cache, error) {
	ttl := time.Duration(cfg.Cache.TTL) * time.Hour
	return cache.New(cfg.Cache.Dir, ttl, cfg.Cache.Enabled)
}

// newAnalyzer builds an analyzer from cfg with the result cache attached.
func newAnalyzer(cfg *config.Config, opts ...review.Option) (*review.Analyzer, error) {
	c, err := openCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	base := []review.Option{
		review.WithThresholds(cfg.Thresholds),
		review.WithMaxFileSize(cfg.MaxFileSize),
		review.WithWorkers(cfg.Workers),
		review.WithCache(c),
	}
	return review.New(append(base, opts...)...), nil
}
