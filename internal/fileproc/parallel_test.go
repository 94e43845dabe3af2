package fileproc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/panbanda/remark/pkg/parser"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func createTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

func TestMapFiles_PreservesOrder(t *testing.T) {
	tmpDir := t.TempDir()

	var files []string
	for _, name := range []string{"a.py", "b.py", "c.py", "d.py", "e.py"} {
		files = append(files, createTestFile(t, tmpDir, name, "def "+strings.TrimSuffix(name, ".py")+"():\n    pass\n"))
	}

	results, errs := MapFiles(context.Background(), files, func(p *parser.Parser, path string, content []byte) (string, error) {
		return filepath.Base(path), nil
	})

	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	want := []string{"a.py", "b.py", "c.py", "d.py", "e.py"}
	if strings.Join(results, ",") != strings.Join(want, ",") {
		t.Errorf("results = %v, want %v", results, want)
	}
}

func TestMapFiles_EmptyFileList(t *testing.T) {
	results, errs := MapFiles(context.Background(), nil, func(p *parser.Parser, path string, content []byte) (string, error) {
		return path, nil
	})

	if results != nil {
		t.Errorf("expected nil for empty file list, got %v", results)
	}
	if errs != nil {
		t.Errorf("expected nil errors for empty file list, got %v", errs)
	}
}

func TestMapFiles_UsesParser(t *testing.T) {
	tmpDir := t.TempDir()
	files := []string{
		createTestFile(t, tmpDir, "ok.py", "def f():\n    return 1\n"),
		createTestFile(t, tmpDir, "bad.py", "def f(:\n"),
	}

	results, errs := MapFiles(context.Background(), files, func(p *parser.Parser, path string, content []byte) (int, error) {
		res, err := p.Parse(content, path)
		if err != nil {
			return 0, err
		}
		defer res.Close()
		return int(res.Root().NamedChildCount()), nil
	})

	if len(results) != 1 || results[0] != 1 {
		t.Errorf("results = %v, want [1]", results)
	}
	if !errs.HasErrors() || len(errs.Errors) != 1 {
		t.Fatalf("expected one error, got %v", errs)
	}
	var perr *parser.ParseError
	if !errors.As(errs.Errors[0], &perr) {
		t.Errorf("error = %v, want *parser.ParseError", errs.Errors[0])
	}
	if perr != nil && perr.Path != files[1] {
		t.Errorf("ParseError.Path = %q, want %q", perr.Path, files[1])
	}
}

func TestMapFiles_MissingFile(t *testing.T) {
	results, errs := MapFiles(context.Background(), []string{"/nonexistent/x.py"}, func(p *parser.Parser, path string, content []byte) (int, error) {
		return 1, nil
	})

	if len(results) != 0 {
		t.Errorf("expected no results, got %v", results)
	}
	if !errs.HasErrors() {
		t.Fatal("expected a read error")
	}
	if !strings.Contains(errs.Error(), "/nonexistent/x.py") {
		t.Errorf("error should name the file: %v", errs)
	}
}

func TestMapSourceFiles_Progress(t *testing.T) {
	tmpDir := t.TempDir()
	var files []string
	for _, name := range []string{"a.py", "b.py", "c.py"} {
		files = append(files, createTestFile(t, tmpDir, name, "x = 1\n"))
	}

	var ticks atomic.Int32
	opts := Options{Workers: 2, OnProgress: func() { ticks.Add(1) }}

	_, errs := MapSourceFiles(context.Background(), files, memSource{}, opts, func(p *parser.Parser, path string, content []byte) (string, error) {
		return string(content), nil
	})

	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if got := ticks.Load(); got != 3 {
		t.Errorf("progress ticks = %d, want 3", got)
	}
}

func TestMapSourceFiles_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	results, errs := MapSourceFiles(ctx, []string{"a.py", "b.py"}, memSource{}, Options{}, func(p *parser.Parser, path string, content []byte) (int, error) {
		calls.Add(1)
		return 1, nil
	})

	if len(results) != 0 {
		t.Errorf("expected no results, got %v", results)
	}
	if calls.Load() != 0 {
		t.Errorf("fn called %d times after cancellation", calls.Load())
	}
	if !errs.HasErrors() || !errors.Is(errs.Errors[0], context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", errs)
	}
}

// memSource serves the file name as its content.
type memSource struct{}

func (memSource) Read(path string) ([]byte, error) {
	return []byte(path), nil
}

func TestProcessingErrors(t *testing.T) {
	var nilErrs *ProcessingErrors
	if nilErrs.HasErrors() {
		t.Error("nil ProcessingErrors should report no errors")
	}

	errs := &ProcessingErrors{}
	if errs.Error() != "no errors" {
		t.Errorf("Error() = %q", errs.Error())
	}

	errs.Add("a.py", errors.New("boom"))
	if errs.Error() != "a.py: boom" {
		t.Errorf("Error() = %q, want %q", errs.Error(), "a.py: boom")
	}

	errs.Add("b.py", errors.New("bang"))
	if !strings.HasPrefix(errs.Error(), "2 files failed to process") {
		t.Errorf("Error() = %q", errs.Error())
	}
}
