package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/panbanda/remark/internal/fileproc"
	"github.com/panbanda/remark/internal/output"
	"github.com/panbanda/remark/internal/progress"
	"github.com/panbanda/remark/internal/scanner"
	"github.com/panbanda/remark/internal/vcs"
	"github.com/panbanda/remark/pkg/analyzer/review"
	"github.com/panbanda/remark/pkg/config"
	"github.com/panbanda/remark/pkg/source"
	"github.com/urfave/cli/v2"
)

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"a"},
		Usage:     "Report Python functions that exceed the complexity thresholds",
		ArgsUsage: "[path...] (- reads source from stdin)",
		Flags: append(thresholdFlags(),
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Include functions within every threshold",
			},
			&cli.BoolFlag{
				Name:  "show-source",
				Usage: "Print the source of each flagged function",
			},
			&cli.StringFlag{
				Name:  "ref",
				Usage: "Analyze files as committed at a git revision (branch, tag, or commit) instead of the working tree",
			},
			&cli.BoolFlag{
				Name:  "fail",
				Usage: "Exit with status 2 when any function is flagged",
			},
		),
		Action: runAnalyzeCmd,
	}
}

func runAnalyzeCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	var (
		files []string
		src   source.ContentSource = source.NewFilesystem()
	)
	paths := getPaths(c)
	switch {
	case len(paths) == 1 && paths[0] == "-":
		files = []string{source.StdinPath}
		src, err = source.ReadStdin(c.App.Reader)
	case c.String("ref") != "":
		files, src, err = treeFiles(cfg, c.String("ref"), paths)
	default:
		files, err = scanner.NewScanner(cfg).ScanPaths(paths)
		if err == nil {
			var skipped int
			if files, skipped = scanner.FilterBySize(files, cfg.MaxFileSize); skipped > 0 {
				slog.Info("skipped large files", "count", skipped, "max_file_size", cfg.MaxFileSize)
			}
		}
	}
	if err != nil {
		return err
	}

	if len(files) == 0 {
		color.New(color.FgYellow).Fprintln(c.App.ErrWriter, "No Python files found")
		return nil
	}

	tracker := progress.Disabled()
	if len(files) > 1 && c.String("output") == "" {
		tracker = progress.NewTrackerTo(c.App.ErrWriter, "Analyzing functions...", len(files))
	}

	analyzer, err := newAnalyzer(cfg, review.WithProgress(tracker.Tick))
	if err != nil {
		return err
	}
	results, errs := analyzer.AnalyzeSource(c.Context, files, src)
	tracker.Finish()
	reportErrors(c, errs)

	report := output.NewAnalysisReport(results, cfg.Thresholds)
	report.ShowAll = c.Bool("all")
	report.ShowSource = c.Bool("show-source")

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if err := formatter.Output(report); err != nil {
		return err
	}

	if c.Bool("fail") && report.Summary.Flagged > 0 {
		return cli.Exit(fmt.Sprintf("%d functions need review", report.Summary.Flagged), 2)
	}
	return nil
}

// treeFiles lists the Python files committed at ref under paths and returns
// a source that reads them from that revision.
func treeFiles(cfg *config.Config, ref string, paths []string) ([]string, source.ContentSource, error) {
	repo, err := vcs.NewGitOpener().Open(paths[0])
	if err != nil {
		return nil, nil, err
	}
	tree, err := repo.Tree(ref)
	if err != nil {
		return nil, nil, err
	}
	entries, err := tree.Entries()
	if err != nil {
		return nil, nil, err
	}

	root := repo.RepoPath()
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	prefixes := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid path %s: %w", p, err)
		}
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			abs = resolved
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			return nil, nil, fmt.Errorf("%s is outside the repository: %w", p, err)
		}
		if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, nil, fmt.Errorf("%s is outside the repository %s", p, root)
		}
		prefixes = append(prefixes, rel)
	}

	return scanner.NewScanner(cfg).FilterTree(entries, prefixes), source.NewTree(tree), nil
}

// reportErrors prints files that could not be analyzed.
func reportErrors(c *cli.Context, errs *fileproc.ProcessingErrors) {
	if !errs.HasErrors() {
		return
	}
	for _, e := range errs.Errors {
		color.New(color.FgRed).Fprintf(c.App.ErrWriter, "skipped %s\n", e.Error())
	}
}
