// Package testutil holds helpers shared by tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll(%s) error: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s) error: %v", path, err)
	}
}

// CreateFileTree creates files under root from a map of relative path to
// content and returns root.
func CreateFileTree(t *testing.T, root string, files map[string]string) string {
	t.Helper()
	for rel, content := range files {
		WriteFile(t, filepath.Join(root, rel), content)
	}
	return root
}

// ComplexPython is a function that exceeds the default branch limit.
const ComplexPython = `def route(request, user, cache, flags, retries):
    if request and user and cache and flags and retries:
        return "fast"
    return "slow"
`

// SimplePython is a function well within every default limit.
const SimplePython = `def add(a, b):
    """Return the sum."""
    return a + b
`
