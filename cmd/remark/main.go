package main

import (
	"fmt"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

// Set via ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:     "remark",
		Usage:    "Find Python functions that deserve an explanatory comment",
		Version:  fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		Metadata: make(map[string]interface{}),
		Description: `remark measures every Python function's branch count, nesting depth and
logical lines, and flags those above the configured thresholds. Flagged
functions can be sent to a text-generation model that writes a comment
explaining them.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"REMARK_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, json, markdown, toon, yaml",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Disable caching",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose output",
			},
			&cli.StringFlag{
				Name:  "pprof",
				Usage: "Enable pprof profiling and write to specified prefix (creates <prefix>.cpu.pprof and <prefix>.mem.pprof)",
			},
		},
		Before: func(c *cli.Context) error {
			setupLogger(c)
			return startProfile(c)
		},
		After: stopProfile,
		Commands: []*cli.Command{
			analyzeCmd(),
			commentCmd(),
			watchCmd(),
			mcpCmd(),
			initCmd(),
			cacheCmd(),
		},
	}
}

// setupLogger routes slog through charmbracelet/log on the app's error
// writer. --verbose enables debug records.
func setupLogger(c *cli.Context) {
	level := charmlog.InfoLevel
	if c.Bool("verbose") {
		level = charmlog.DebugLevel
	}
	handler := charmlog.NewWithOptions(c.App.ErrWriter, charmlog.Options{
		ReportTimestamp: false,
		Level:           level,
	})
	slog.SetDefault(slog.New(handler))
}
