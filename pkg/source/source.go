// Package source abstracts where Python file content is read from: the
// working tree, a committed revision, or memory.
package source

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"

	"github.com/panbanda/remark/internal/vcs"
)

// StdinPath is the path under which content piped on standard input is
// analyzed and reported.
const StdinPath = "<stdin>"

// ContentSource provides file content by path.
type ContentSource interface {
	Read(path string) ([]byte, error)
}

// FilesystemSource reads files from the working tree.
type FilesystemSource struct{}

// NewFilesystem creates a source that reads from the filesystem.
func NewFilesystem() *FilesystemSource {
	return &FilesystemSource{}
}

func (f *FilesystemSource) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// TreeSource reads files as committed in a git tree, so a past revision can
// be analyzed without checking it out. Paths are relative to the
// repository root. Reads are serialized; go-git object access is not
// goroutine-safe.
type TreeSource struct {
	tree vcs.Tree
	mu   sync.Mutex
}

// NewTree creates a source that reads from a git tree.
func NewTree(tree vcs.Tree) *TreeSource {
	return &TreeSource{tree: tree}
}

func (t *TreeSource) Read(path string) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tree.File(path)
}

// MemorySource serves fixed contents, such as a buffer read from stdin.
type MemorySource struct {
	files map[string][]byte
}

// NewMemory creates a source over files keyed by path.
func NewMemory(files map[string][]byte) *MemorySource {
	return &MemorySource{files: files}
}

// ReadStdin drains r into a MemorySource holding a single StdinPath entry.
func ReadStdin(r io.Reader) (*MemorySource, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return NewMemory(map[string][]byte{StdinPath: data}), nil
}

func (m *MemorySource) Read(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: path, Err: fs.ErrNotExist}
	}
	return data, nil
}
