package review

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/panbanda/remark/internal/cache"
	"github.com/panbanda/remark/pkg/analyzer/complexity"
	"github.com/panbanda/remark/pkg/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const mixedSource = `def simple():
    return 1


def branchy(a, b, c, d, e):
    if a and b and c and d and e:
        return 1
    return 0


class Handler:
    def deep(self, xs):
        for x in xs:
            if x:
                while x:
                    x -= 1

    def shallow(self):
        return None
`

func quietAnalyzer(opts ...Option) *Analyzer {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return New(append([]Option{WithLogger(logger)}, opts...)...)
}

func TestAnalyze_Classifies(t *testing.T) {
	result, err := quietAnalyzer().Analyze([]byte(mixedSource))
	require.NoError(t, err)

	var flagged []string
	for _, f := range result.Flagged {
		flagged = append(flagged, f.QualifiedName)
	}
	var passed []string
	for _, f := range result.Passed {
		passed = append(passed, f.QualifiedName)
	}

	assert.Equal(t, []string{"branchy", "Handler.deep"}, flagged)
	assert.Equal(t, []string{"simple", "Handler.shallow"}, passed)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 4, result.Measured())
	assert.Equal(t, complexity.DefaultThresholds(), result.Thresholds)

	branchy := result.Flagged[0]
	assert.Equal(t, uint32(5), branchy.StartLine)
	assert.Equal(t, 5, branchy.Metrics.BranchCount)
	assert.Equal(t, []string{"branches 5 > 4"}, branchy.Violations)

	deep := result.Flagged[1]
	assert.Equal(t, 3, deep.Metrics.MaxDepth)
	assert.Equal(t, []string{"depth 3 > 2"}, deep.Violations)
}

func TestAnalyze_ByName(t *testing.T) {
	result, err := Analyze([]byte(mixedSource))
	require.NoError(t, err)

	m := result.ByName()
	require.Len(t, m, 2)
	assert.Equal(t, uint32(5), m["branchy"].StartLine)
	assert.Contains(t, m["deep"].OriginalText, "def deep(self, xs):")
	assert.Equal(t, m["deep"].OriginalText, m["deep"].AnalysisText)
}

func TestAnalyze_NameCollision(t *testing.T) {
	src := `def f(a, b, c, d, e):
    if a and b and c and d and e:
        pass


class K:
    def f(self, a, b, c, d, e):
        if a and b and c and d and e:
            pass
`
	result, err := quietAnalyzer().Analyze([]byte(src))
	require.NoError(t, err)
	require.Len(t, result.Flagged, 2)

	// The name-keyed view keeps only the later definition.
	byName := result.ByName()
	require.Len(t, byName, 1)
	assert.Equal(t, uint32(7), byName["f"].StartLine)

	top, ok := result.Lookup(Key{QualifiedName: "f", StartLine: 1})
	require.True(t, ok)
	assert.Equal(t, "f", top.Name)

	method, ok := result.Lookup(Key{QualifiedName: "K.f", StartLine: 7})
	require.True(t, ok)
	assert.Equal(t, "K.f", method.Key().QualifiedName)

	_, ok = result.Lookup(Key{QualifiedName: "f", StartLine: 7})
	assert.False(t, ok)
}

func TestAnalyze_Idempotent(t *testing.T) {
	a := quietAnalyzer()

	first, err := a.Analyze([]byte(mixedSource))
	require.NoError(t, err)
	second, err := a.Analyze([]byte(mixedSource))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAnalyze_StartLinesMatchSource(t *testing.T) {
	result, err := quietAnalyzer().Analyze([]byte(mixedSource))
	require.NoError(t, err)

	lines := strings.Split(mixedSource, "\n")
	for _, f := range append(result.Flagged, result.Passed...) {
		assert.Contains(t, lines[f.StartLine-1], "def "+f.Name+"(")
	}
}

func TestAnalyze_NestedDefinitionsDoNotCount(t *testing.T) {
	src := `def outer():
    def inner(a, b, c, d, e):
        if a and b and c and d and e:
            pass
    return 1
`
	result, err := quietAnalyzer().Analyze([]byte(src))
	require.NoError(t, err)

	require.Len(t, result.Flagged, 1)
	assert.Equal(t, "outer.inner", result.Flagged[0].QualifiedName)

	outer, ok := result.Lookup(Key{QualifiedName: "outer", StartLine: 1})
	require.True(t, ok)
	assert.Equal(t, complexity.Metrics{BranchCount: 0, MaxDepth: 0, LogicalLines: 2}, outer.Metrics)
	assert.Contains(t, outer.OriginalText, "def inner(a, b, c, d, e):")
	assert.NotContains(t, outer.AnalysisText, "inner")
}

func TestAnalyze_DocstringNotCounted(t *testing.T) {
	src := "def f():\n    \"\"\"Explain.\"\"\"\n    return 1\n"
	result, err := quietAnalyzer().Analyze([]byte(src))
	require.NoError(t, err)
	require.Len(t, result.Passed, 1)
	assert.Equal(t, 2, result.Passed[0].Metrics.LogicalLines)
}

func TestAnalyze_AnalysisErrorIsReported(t *testing.T) {
	src := `def wrapper():
    def only_child():
        return 1


def fine():
    return 2
`
	var logs bytes.Buffer
	a := New(WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	result, err := a.Analyze([]byte(src))
	require.NoError(t, err)

	require.Len(t, result.Errors, 1)
	aerr := result.Errors[0]
	assert.Equal(t, "wrapper", aerr.Function)
	assert.Equal(t, uint32(1), aerr.StartLine)
	assert.NotEmpty(t, aerr.Reason)
	assert.Error(t, errors.Unwrap(aerr))
	assert.Contains(t, aerr.Error(), "wrapper (line 1)")

	_, ok := result.Lookup(Key{QualifiedName: "wrapper", StartLine: 1})
	assert.False(t, ok, "failed function must not be classified")
	assert.Equal(t, 2, result.Measured())

	assert.Contains(t, logs.String(), "skipping function")
	assert.Contains(t, logs.String(), "function=wrapper")
}

func TestAnalyze_ParseErrorAborts(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"broken signature", "def f(:\n    pass\n"},
		{"invalid assignment target", "def g():\n    return 1\n\n1 = x\n"},
		{"python 2 print", "def ok():\n    return 1\n\ndef f():\n    print \"x\"\n"},
		{"python 2 exec", "def f():\n    exec \"x = 1\"\n"},
		{"bare assignment expression", "def f():\n    x := 1\n    return x\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := quietAnalyzer().Analyze([]byte(tt.src))
			assert.Nil(t, result)

			var perr *parser.ParseError
			assert.True(t, errors.As(err, &perr), "got %v", err)
		})
	}
}

func TestAnalyze_WrappedCallsStayUnderLineLimit(t *testing.T) {
	var b strings.Builder
	b.WriteString("def build(app):\n")
	for i := range 12 {
		fmt.Fprintf(&b, "    register(\n        app,\n        \"route%d\",\n        handler%d,\n    )\n", i, i)
	}

	result, err := quietAnalyzer().Analyze([]byte(b.String()))
	require.NoError(t, err)
	assert.Empty(t, result.Flagged)
	require.Len(t, result.Passed, 1)
	assert.Equal(t, 13, result.Passed[0].Metrics.LogicalLines)
}

func TestAnalyze_CustomThresholds(t *testing.T) {
	a := quietAnalyzer(WithThresholds(complexity.Thresholds{MaxBranches: 10, MaxDepth: 5, MaxLines: 100}))

	result, err := a.Analyze([]byte(mixedSource))
	require.NoError(t, err)
	assert.Empty(t, result.Flagged)
	assert.Len(t, result.Passed, 4)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAnalyzeFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.py", mixedSource)

	result, err := quietAnalyzer().AnalyzeFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, result.Path)
	assert.Len(t, result.Flagged, 2)

	_, err = quietAnalyzer().AnalyzeFile(writeFile(t, dir, "main.go", "package main\n"))
	assert.ErrorIs(t, err, parser.ErrUnsupportedLanguage)
}

func TestAnalyzeFile_MaxFileSize(t *testing.T) {
	path := writeFile(t, t.TempDir(), "big.py", mixedSource)

	_, err := quietAnalyzer(WithMaxFileSize(10)).AnalyzeFile(path)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestAnalyzeFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	files := []string{
		writeFile(t, dir, "a.py", mixedSource),
		writeFile(t, dir, "b.py", "def broken(:\n"),
		writeFile(t, dir, "c.py", "def ok():\n    return 1\n"),
	}

	var ticks int
	a := quietAnalyzer(WithWorkers(1), WithProgress(func() { ticks++ }))

	results, errs := a.AnalyzeFiles(context.Background(), files)
	require.Len(t, results, 2)
	assert.Equal(t, files[0], results[0].Path)
	assert.Equal(t, files[2], results[1].Path)
	assert.Equal(t, 3, ticks)

	require.True(t, errs.HasErrors())
	require.Len(t, errs.Errors, 1)
	assert.Equal(t, files[1], errs.Errors[0].Path)
	var perr *parser.ParseError
	assert.True(t, errors.As(errs.Errors[0].Err, &perr))
}

func TestAnalyzeFiles_Cancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	files := []string{writeFile(t, dir, "a.py", mixedSource)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, errs := quietAnalyzer().AnalyzeFiles(ctx, files)
	assert.Empty(t, results)
	require.True(t, errs.HasErrors())
	assert.ErrorIs(t, errs.Errors[0].Err, context.Canceled)
}

func TestAnalyzeFile_Cache(t *testing.T) {
	dir := t.TempDir()
	c, err := cache.New(filepath.Join(dir, "cache"), time.Hour, true)
	require.NoError(t, err)

	path := writeFile(t, dir, "app.py", mixedSource)
	a := quietAnalyzer(WithCache(c))

	first, err := a.AnalyzeFile(path)
	require.NoError(t, err)

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Entries)

	second, err := a.AnalyzeFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Different thresholds must not reuse the entry.
	strict := quietAnalyzer(WithCache(c), WithThresholds(complexity.Thresholds{}))
	third, err := strict.AnalyzeFile(path)
	require.NoError(t, err)
	assert.Len(t, third.Flagged, 4)
}
