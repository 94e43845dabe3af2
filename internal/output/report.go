package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/panbanda/remark/pkg/analyzer/complexity"
	"github.com/panbanda/remark/pkg/analyzer/review"
	"github.com/panbanda/remark/pkg/stats"
)

// Summary aggregates counts over every analyzed file.
type Summary struct {
	Files      int                   `json:"files" yaml:"files" toon:"files"`
	Functions  int                   `json:"functions" yaml:"functions" toon:"functions"`
	Flagged    int                   `json:"flagged" yaml:"flagged" toon:"flagged"`
	Errors     int                   `json:"errors" yaml:"errors" toon:"errors"`
	Thresholds complexity.Thresholds `json:"thresholds" yaml:"thresholds" toon:"thresholds"`
	Metrics    Distributions         `json:"metrics" yaml:"metrics" toon:"metrics"`
}

// Distributions summarizes each metric over all measured functions.
type Distributions struct {
	Branches stats.Distribution `json:"branches" yaml:"branches" toon:"branches"`
	Depth    stats.Distribution `json:"depth" yaml:"depth" toon:"depth"`
	Lines    stats.Distribution `json:"lines" yaml:"lines" toon:"lines"`
}

// AnalysisReport renders review results for one or more files.
type AnalysisReport struct {
	Summary Summary          `json:"summary" yaml:"summary" toon:"summary"`
	Files   []*review.Result `json:"files" yaml:"files" toon:"files"`

	// ShowAll lists passing functions too.
	ShowAll bool `json:"-" yaml:"-" toon:"-"`
	// ShowSource prints each flagged function's original text.
	ShowSource bool `json:"-" yaml:"-" toon:"-"`
}

// NewAnalysisReport summarizes results analyzed against thresholds.
func NewAnalysisReport(results []*review.Result, thresholds complexity.Thresholds) *AnalysisReport {
	s := Summary{Files: len(results), Thresholds: thresholds}
	var branches, depth, lines []int
	for _, r := range results {
		s.Functions += r.Measured()
		s.Flagged += len(r.Flagged)
		s.Errors += len(r.Errors)
		for _, fns := range [][]review.Function{r.Flagged, r.Passed} {
			for _, f := range fns {
				branches = append(branches, f.Metrics.BranchCount)
				depth = append(depth, f.Metrics.MaxDepth)
				lines = append(lines, f.Metrics.LogicalLines)
			}
		}
	}
	s.Metrics = Distributions{
		Branches: stats.DescribeInts(branches),
		Depth:    stats.DescribeInts(depth),
		Lines:    stats.DescribeInts(lines),
	}
	return &AnalysisReport{Summary: s, Files: results}
}

// RenderData drops source texts the caller did not ask for, so structured
// output stays compact unless --show-source is set.
func (r *AnalysisReport) RenderData() any {
	if r.ShowSource && r.ShowAll {
		return r
	}
	view := &AnalysisReport{Summary: r.Summary}
	for _, res := range r.Files {
		cp := *res
		cp.Flagged = stripSource(res.Flagged, r.ShowSource)
		if r.ShowAll {
			cp.Passed = stripSource(res.Passed, r.ShowSource)
		} else {
			cp.Passed = nil
		}
		view.Files = append(view.Files, &cp)
	}
	return view
}

func stripSource(fns []review.Function, keep bool) []review.Function {
	if keep {
		return fns
	}
	out := make([]review.Function, len(fns))
	for i, f := range fns {
		f.AnalysisText = ""
		f.OriginalText = ""
		out[i] = f
	}
	return out
}

func (r *AnalysisReport) rows() [][]string {
	var rows [][]string
	for _, res := range r.Files {
		add := func(f review.Function, status string) {
			rows = append(rows, []string{
				res.Path,
				f.QualifiedName,
				strconv.Itoa(int(f.StartLine)),
				strconv.Itoa(f.Metrics.BranchCount),
				strconv.Itoa(f.Metrics.MaxDepth),
				strconv.Itoa(f.Metrics.LogicalLines),
				status,
			})
		}
		for _, f := range res.Flagged {
			add(f, strings.Join(f.Violations, ", "))
		}
		if r.ShowAll {
			for _, f := range res.Passed {
				add(f, "ok")
			}
		}
	}
	return rows
}

var reportHeaders = []string{"File", "Function", "Line", "Branches", "Depth", "Lines", "Status"}

func (r *AnalysisReport) summaryLine() string {
	t := r.Summary.Thresholds
	return fmt.Sprintf("%d of %d functions in %d files need review (branches > %d, depth > %d, lines > %d)",
		r.Summary.Flagged, r.Summary.Functions, r.Summary.Files, t.MaxBranches, t.MaxDepth, t.MaxLines)
}

func (r *AnalysisReport) RenderText(w io.Writer, colored bool) error {
	rows := r.rows()
	if len(rows) > 0 {
		table := NewTable("Functions Needing Review", reportHeaders, rows)
		if r.ShowAll {
			table.Title = "Function Complexity"
		}
		if err := table.RenderText(w, colored); err != nil {
			return err
		}
	}

	if r.ShowSource {
		for _, res := range r.Files {
			for _, f := range res.Flagged {
				heading(w, fmt.Sprintf("%s:%d %s", res.Path, f.StartLine, f.QualifiedName), colored, "-")
				fmt.Fprintln(w, f.OriginalText)
			}
		}
	}

	for _, res := range r.Files {
		for _, e := range res.Errors {
			msg := fmt.Sprintf("skipped %s:%d %s: %s", res.Path, e.StartLine, e.QualifiedName, e.Reason)
			if colored {
				color.New(color.FgYellow).Fprintln(w, msg)
			} else {
				fmt.Fprintln(w, "WARNING: "+msg)
			}
		}
	}

	summary := r.summaryLine()
	switch {
	case !colored:
		fmt.Fprintln(w, summary)
	case r.Summary.Flagged > 0:
		color.New(color.FgYellow, color.Bold).Fprintln(w, summary)
	default:
		color.New(color.FgGreen).Fprintln(w, summary)
	}
	return nil
}

func (r *AnalysisReport) RenderMarkdown(w io.Writer) error {
	fmt.Fprintf(w, "# Function Complexity Review\n\n%s\n\n", r.summaryLine())

	if rows := r.rows(); len(rows) > 0 {
		if err := NewTable("Functions", reportHeaders, rows).RenderMarkdown(w); err != nil {
			return err
		}
	}

	if r.ShowSource {
		for _, res := range r.Files {
			for _, f := range res.Flagged {
				fmt.Fprintf(w, "### `%s` (%s:%d)\n\n```python\n%s```\n\n", f.QualifiedName, res.Path, f.StartLine, f.OriginalText)
			}
		}
	}

	var errs []string
	for _, res := range r.Files {
		for _, e := range res.Errors {
			errs = append(errs, fmt.Sprintf("- `%s` (%s:%d): %s", e.QualifiedName, res.Path, e.StartLine, e.Reason))
		}
	}
	if len(errs) > 0 {
		fmt.Fprintf(w, "## Skipped Functions\n\n%s\n\n", strings.Join(errs, "\n"))
	}
	return nil
}
