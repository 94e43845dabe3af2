package mcpserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/remark/internal/output"
	"github.com/panbanda/remark/internal/scanner"
	"github.com/panbanda/remark/pkg/analyzer/complexity"
	"github.com/panbanda/remark/pkg/analyzer/review"
	"github.com/panbanda/remark/pkg/parser"
)

// ThresholdInput overrides the configured limits. Zero keeps the configured value.
type ThresholdInput struct {
	MaxBranches int `json:"max_branches,omitempty" jsonschema:"Flag functions with more branches than this. Default 4."`
	MaxDepth    int `json:"max_depth,omitempty" jsonschema:"Flag functions nested deeper than this. Default 2."`
	MaxLines    int `json:"max_lines,omitempty" jsonschema:"Flag functions with more logical lines than this. Default 50."`
}

// ReportInput selects what the report contains.
type ReportInput struct {
	Format         string `json:"format,omitempty" jsonschema:"Output format: toon (default), json, yaml, markdown, or text."`
	IncludePassing bool   `json:"include_passing,omitempty" jsonschema:"List functions within every threshold too."`
	IncludeSource  bool   `json:"include_source,omitempty" jsonschema:"Include each function's original source text."`
}

// AnalyzeFunctionsInput is the input of analyze_functions.
type AnalyzeFunctionsInput struct {
	Paths []string `json:"paths,omitempty" jsonschema:"Files or directories to analyze. Defaults to the current directory."`
	ThresholdInput
	ReportInput
}

// AnalyzeSourceInput is the input of analyze_source.
type AnalyzeSourceInput struct {
	Source string `json:"source" jsonschema:"Python source text to analyze."`
	Path   string `json:"path,omitempty" jsonschema:"Name to report the source under."`
	ThresholdInput
	ReportInput
}

func (s *Server) thresholds(in ThresholdInput) complexity.Thresholds {
	t := s.cfg.Thresholds
	if in.MaxBranches > 0 {
		t.MaxBranches = in.MaxBranches
	}
	if in.MaxDepth > 0 {
		t.MaxDepth = in.MaxDepth
	}
	if in.MaxLines > 0 {
		t.MaxLines = in.MaxLines
	}
	return t
}

func getPaths(in AnalyzeFunctionsInput) []string {
	if len(in.Paths) == 0 {
		return []string{"."}
	}
	return in.Paths
}

func getFormat(in ReportInput) output.Format {
	if in.Format == "" {
		return output.FormatTOON
	}
	return output.ParseFormat(in.Format)
}

func reportResult(report *output.AnalysisReport, in ReportInput) (*mcp.CallToolResult, any, error) {
	report.ShowAll = in.IncludePassing
	report.ShowSource = in.IncludeSource

	var buf bytes.Buffer
	if err := output.NewWriterFormatter(getFormat(in), &buf, false).Output(report); err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: buf.String()},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

func (s *Server) handleAnalyzeFunctions(ctx context.Context, _ *mcp.CallToolRequest, in AnalyzeFunctionsInput) (*mcp.CallToolResult, any, error) {
	files, err := scanner.NewScanner(s.cfg).ScanPaths(getPaths(in))
	if err != nil {
		return toolError(err.Error())
	}
	if len(files) == 0 {
		return toolError("no Python files found")
	}

	thresholds := s.thresholds(in.ThresholdInput)
	analyzer := review.New(
		review.WithThresholds(thresholds),
		review.WithMaxFileSize(s.cfg.MaxFileSize),
		review.WithWorkers(s.cfg.Workers),
	)

	results, errs := analyzer.AnalyzeFiles(ctx, files)
	if err := ctx.Err(); err != nil {
		return toolError(err.Error())
	}
	if errs.HasErrors() && len(results) == 0 {
		return toolError(errs.Error())
	}

	res, data, err := reportResult(output.NewAnalysisReport(results, thresholds), in.ReportInput)
	if err != nil || !errs.HasErrors() {
		return res, data, err
	}
	for _, e := range errs.Errors {
		res.Content = append(res.Content, &mcp.TextContent{Text: "Skipped file " + e.Error()})
	}
	return res, data, nil
}

func (s *Server) handleAnalyzeSource(_ context.Context, _ *mcp.CallToolRequest, in AnalyzeSourceInput) (*mcp.CallToolResult, any, error) {
	if in.Source == "" {
		return toolError("source is empty")
	}

	thresholds := s.thresholds(in.ThresholdInput)
	result, err := review.New(review.WithThresholds(thresholds)).Analyze([]byte(in.Source))
	if err != nil {
		var pe *parser.ParseError
		if errors.As(err, &pe) {
			return toolError(fmt.Sprintf("syntax error at line %d, column %d", pe.Line, pe.Column))
		}
		return toolError(err.Error())
	}
	result.Path = in.Path

	return reportResult(output.NewAnalysisReport([]*review.Result{result}, thresholds), in.ReportInput)
}
