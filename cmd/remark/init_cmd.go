package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/panbanda/remark/pkg/config"
	"github.com/pelletier/go-toml"
	"github.com/urfave/cli/v2"
)

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize a new remark configuration file",
		Description: `Creates a remark.toml configuration file in the current directory
with the default thresholds and exclusions.

Examples:
  remark init                        # Creates remark.toml
  remark init --path .remark/remark.toml
  remark init --force                # Overwrite an existing file
  remark init --schema > remark.schema.json`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "path",
				Value: "remark.toml",
				Usage: "Config file to create",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite existing config file",
			},
			&cli.BoolFlag{
				Name:  "schema",
				Usage: "Print the JSON Schema config files are validated against instead",
			},
		},
		Action: runInitCmd,
	}
}

func runInitCmd(c *cli.Context) error {
	if c.Bool("schema") {
		_, err := c.App.Writer.Write(config.Schema())
		return err
	}

	outputPath := c.String("path")

	if _, err := os.Stat(outputPath); err == nil && !c.Bool("force") {
		return fmt.Errorf("config file %q already exists (use --force to overwrite)", outputPath)
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", dir, err)
		}
	}

	content, err := generateDefaultConfig()
	if err != nil {
		return err
	}

	if err := os.WriteFile(outputPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	color.New(color.FgGreen).Fprintf(c.App.Writer, "Created %s\n", outputPath)
	return nil
}

func generateDefaultConfig() (string, error) {
	content, err := toml.Marshal(config.DefaultConfig())
	if err != nil {
		return "", fmt.Errorf("failed to marshal config to TOML: %w", err)
	}

	var buf strings.Builder
	buf.WriteString("# remark configuration\n")
	buf.WriteString("# Functions above any threshold are flagged for an explanatory comment.\n")
	buf.WriteString("# Environment overrides use REMARK_<SECTION>__<KEY>, e.g. REMARK_THRESHOLDS__MAX_BRANCHES=6\n\n")
	buf.Write(content)

	return buf.String(), nil
}
