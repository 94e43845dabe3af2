// Package fileproc provides concurrent file processing utilities.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/panbanda/remark/pkg/parser"
	"github.com/panbanda/remark/pkg/source"
	"github.com/sourcegraph/conc/pool"
)

// ProcessingError represents an error that occurred while processing a file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e ProcessingError) Unwrap() error {
	return e.Err
}

// ProcessingErrors collects multiple file processing errors.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for worker count.
// 2x is optimal for mixed I/O and CGO workloads.
const DefaultWorkerMultiplier = 2

// ProgressFunc is called after each file is processed.
type ProgressFunc func()

// Options tunes a parallel run.
type Options struct {
	// Workers caps concurrent tasks. Zero means 2x NumCPU.
	Workers int
	// OnProgress is called once per file, success or failure.
	OnProgress ProgressFunc
}

// MapFiles reads each file from the filesystem and calls fn with a
// dedicated parser. See MapSourceFiles.
func MapFiles[T any](ctx context.Context, files []string, fn func(*parser.Parser, string, []byte) (T, error)) ([]T, *ProcessingErrors) {
	return MapSourceFiles(ctx, files, source.NewFilesystem(), Options{}, fn)
}

// MapSourceFiles processes files in parallel, reading content from src and
// calling fn with a parser owned by that task. Results keep the order of
// files; failed or cancelled files are omitted and reported in the returned
// errors, which is nil when every file succeeded.
func MapSourceFiles[T any](ctx context.Context, files []string, src source.ContentSource, opts Options, fn func(*parser.Parser, string, []byte) (T, error)) ([]T, *ProcessingErrors) {
	if len(files) == 0 {
		return nil, nil
	}

	maxWorkers := opts.Workers
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU() * DefaultWorkerMultiplier
	}

	slots := make([]T, len(files))
	ok := make([]bool, len(files))
	errs := &ProcessingErrors{}

	tick := func() {
		if opts.OnProgress != nil {
			opts.OnProgress()
		}
	}

	p := pool.New().WithMaxGoroutines(maxWorkers).WithContext(ctx)
	for i, path := range files {
		p.Go(func(ctx context.Context) error {
			defer tick()

			select {
			case <-ctx.Done():
				errs.Add(path, ctx.Err())
				return ctx.Err()
			default:
			}

			content, err := src.Read(path)
			if err != nil {
				errs.Add(path, err)
				return nil
			}

			psr := parser.New()
			defer psr.Close()

			result, err := fn(psr, path, content)
			if err != nil {
				errs.Add(path, err)
				return nil // Don't stop pool on individual file errors
			}

			slots[i] = result
			ok[i] = true
			return nil
		})
	}
	_ = p.Wait() // Context errors are already captured in errs

	results := make([]T, 0, len(files))
	for i := range slots {
		if ok[i] {
			results = append(results, slots[i])
		}
	}

	if !errs.HasErrors() {
		return results, nil
	}
	return results, errs
}
