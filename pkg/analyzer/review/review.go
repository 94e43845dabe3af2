// Package review decides which Python functions are complex enough to
// deserve an explanatory comment.
//
// Every function in a source text is extracted, its nested definitions are
// cut out, and the remainder is measured. A function is flagged when any
// metric is strictly above its threshold.
package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/panbanda/remark/internal/cache"
	"github.com/panbanda/remark/internal/fileproc"
	"github.com/panbanda/remark/pkg/analyzer/complexity"
	"github.com/panbanda/remark/pkg/analyzer/extract"
	"github.com/panbanda/remark/pkg/parser"
	"github.com/panbanda/remark/pkg/source"
)

// ErrFileTooLarge is returned for files above the configured size limit.
var ErrFileTooLarge = errors.New("file exceeds size limit")

// cacheVersion is mixed into cache fingerprints; bump it whenever metric
// rules change so stale entries stop matching.
const cacheVersion = "2"

// Analyzer measures functions and classifies them against thresholds.
// It holds no per-run state and is safe for concurrent use.
type Analyzer struct {
	thresholds  complexity.Thresholds
	logger      *slog.Logger
	maxFileSize int64
	cache       *cache.Cache
	workers     int
	onProgress  fileproc.ProgressFunc
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithThresholds replaces the default limits.
func WithThresholds(t complexity.Thresholds) Option {
	return func(a *Analyzer) {
		a.thresholds = t
	}
}

// WithLogger sets the logger used for per-function warnings.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMaxFileSize sets the maximum file size to analyze (0 = no limit).
func WithMaxFileSize(maxSize int64) Option {
	return func(a *Analyzer) {
		a.maxFileSize = maxSize
	}
}

// WithCache stores per-file results in c.
func WithCache(c *cache.Cache) Option {
	return func(a *Analyzer) {
		a.cache = c
	}
}

// WithWorkers caps the number of files analyzed concurrently.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		a.workers = n
	}
}

// WithProgress registers a callback invoked once per file.
func WithProgress(fn fileproc.ProgressFunc) Option {
	return func(a *Analyzer) {
		a.onProgress = fn
	}
}

// New creates an analyzer with the default thresholds.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		thresholds: complexity.DefaultThresholds(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Thresholds returns the limits the analyzer applies.
func (a *Analyzer) Thresholds() complexity.Thresholds {
	return a.thresholds
}

// Analyze classifies every function in src using the default thresholds.
func Analyze(src []byte) (*Result, error) {
	return New().Analyze(src)
}

// Analyze classifies every function in src.
// A syntax error anywhere in src aborts with a *parser.ParseError.
func (a *Analyzer) Analyze(src []byte) (*Result, error) {
	psr := parser.New()
	defer psr.Close()
	return a.AnalyzeWithParser(psr, src, "")
}

// AnalyzeWithParser is Analyze with a caller-owned parser. path is only
// used for reporting.
func (a *Analyzer) AnalyzeWithParser(psr *parser.Parser, src []byte, path string) (*Result, error) {
	res, err := psr.Parse(src, path)
	if err != nil {
		return nil, err
	}
	units := extract.Extract(res)
	res.Close()

	result := &Result{
		Path:       path,
		Thresholds: a.thresholds,
		Flagged:    []Function{},
	}

	for _, u := range units {
		m, err := complexity.MeasureText(psr, u.AnalysisText)
		if err != nil {
			aerr := &AnalysisError{
				Function:      u.Name,
				QualifiedName: u.QualifiedName,
				StartLine:     u.StartLine,
				Reason:        err.Error(),
				err:           err,
			}
			a.logger.Warn("skipping function",
				"path", path,
				"function", u.QualifiedName,
				"line", u.StartLine,
				"err", err)
			result.Errors = append(result.Errors, aerr)
			continue
		}

		fn := Function{
			Name:          u.Name,
			QualifiedName: u.QualifiedName,
			StartLine:     u.StartLine,
			EndLine:       u.EndLine,
			DecoratorLine: u.DecoratorLine,
			Async:         u.Async,
			Metrics:       m,
			Violations:    m.Violations(a.thresholds),
			AnalysisText:  u.AnalysisText,
			OriginalText:  u.OriginalText,
		}
		if m.Exceeds(a.thresholds) {
			result.Flagged = append(result.Flagged, fn)
		} else {
			result.Passed = append(result.Passed, fn)
		}
	}

	a.logger.Debug("analyzed source",
		"path", path,
		"functions", len(units),
		"flagged", len(result.Flagged),
		"errors", len(result.Errors))

	return result, nil
}

// AnalyzeFile reads and analyzes one Python file.
func (a *Analyzer) AnalyzeFile(path string) (*Result, error) {
	if parser.DetectLanguage(path) == parser.LangUnknown {
		return nil, fmt.Errorf("%w: %s", parser.ErrUnsupportedLanguage, path)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	psr := parser.New()
	defer psr.Close()
	return a.analyzeContent(psr, path, src)
}

// AnalyzeFiles analyzes files from the filesystem in parallel.
// See AnalyzeSource.
func (a *Analyzer) AnalyzeFiles(ctx context.Context, files []string) ([]*Result, *fileproc.ProcessingErrors) {
	return a.AnalyzeSource(ctx, files, source.NewFilesystem())
}

// AnalyzeSource analyzes files read from src in parallel, one parser per
// worker. Results keep the order of files. Files that fail to read or
// parse are reported in the returned errors, which is nil when every file
// succeeded; per-function problems stay inside each Result.
func (a *Analyzer) AnalyzeSource(ctx context.Context, files []string, src source.ContentSource) ([]*Result, *fileproc.ProcessingErrors) {
	opts := fileproc.Options{Workers: a.workers, OnProgress: a.onProgress}
	return fileproc.MapSourceFiles(ctx, files, src, opts, a.analyzeContent)
}

func (a *Analyzer) analyzeContent(psr *parser.Parser, path string, src []byte) (*Result, error) {
	if a.maxFileSize > 0 && int64(len(src)) > a.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, len(src))
	}

	fp := a.fingerprint(src)
	if a.cache.Enabled() {
		var cached Result
		if a.cache.Load(path, fp, &cached) {
			a.logger.Debug("cache hit", "path", path)
			return &cached, nil
		}
	}

	result, err := a.AnalyzeWithParser(psr, src, path)
	if err != nil {
		return nil, err
	}

	if err := a.cache.Store(path, fp, result); err != nil {
		a.logger.Debug("cache store failed", "path", path, "err", err)
	}
	return result, nil
}

func (a *Analyzer) fingerprint(src []byte) string {
	t, _ := json.Marshal(a.thresholds)
	return cache.Fingerprint([]byte(cacheVersion), t, src)
}
