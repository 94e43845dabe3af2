package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/panbanda/remark/internal/vcs"
	"github.com/panbanda/remark/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func rel(t *testing.T, root string, files []string) []string {
	t.Helper()
	out := make([]string, 0, len(files))
	for _, f := range files {
		r, err := filepath.Rel(root, f)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(r))
	}
	return out
}

func TestNewScanner(t *testing.T) {
	s := NewScanner(nil)
	require.NotNil(t, s.config)

	cfg := config.DefaultConfig()
	assert.Same(t, cfg, NewScanner(cfg).config)
}

func TestScanDir(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"app.py":               "x = 1\n",
		"stubs/app.pyi":        "x: int\n",
		"pkg/util.py":          "y = 2\n",
		"pkg/readme.md":        "# docs\n",
		"main.go":              "package main\n",
		"tests/test_app.py":    "def test(): pass\n",
		".venv/lib/site.py":    "z = 3\n",
		"pkg/__pycache__/x.py": "w = 4\n",
		"scripts/conftest.py":  "import pytest\n",
		"scripts/tool.pyw":     "v = 5\n",
	})

	files, err := NewScanner(nil).ScanDir(root)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"app.py",
		"stubs/app.pyi",
		"pkg/util.py",
		"scripts/tool.pyw",
	}, rel(t, root, files))
}

func TestScanDir_Gitignore(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	writeTree(t, root, map[string]string{
		".gitignore":       "generated/\n*_pb2.py\n",
		"src/app.py":       "x = 1\n",
		"src/user_pb2.py":  "x = 2\n",
		"generated/api.py": "x = 3\n",
	})

	files, err := NewScanner(nil).ScanDir(filepath.Join(root, "src"))
	require.NoError(t, err)
	assert.Equal(t, []string{"app.py"}, rel(t, filepath.Join(root, "src"), files))

	files, err = NewScanner(nil).ScanDir(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/app.py"}, rel(t, root, files))

	cfg := config.DefaultConfig()
	cfg.Exclude.Gitignore = false
	files, err = NewScanner(cfg).ScanDir(root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"src/app.py", "src/user_pb2.py", "generated/api.py"}, rel(t, root, files))
}

func TestScanDir_SymlinkOutsideRoot(t *testing.T) {
	outside := t.TempDir()
	writeTree(t, outside, map[string]string{"secret.py": "x = 1\n"})

	root := t.TempDir()
	writeTree(t, root, map[string]string{"app.py": "x = 1\n"})
	if err := os.Symlink(filepath.Join(outside, "secret.py"), filepath.Join(root, "link.py")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	files, err := NewScanner(nil).ScanDir(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"app.py"}, rel(t, root, files))
}

func TestScanPaths(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a/one.py": "x = 1\n",
		"b/two.py": "x = 2\n",
		"b/x.txt":  "text\n",
	})

	files, err := NewScanner(nil).ScanPaths([]string{
		filepath.Join(root, "b"),
		filepath.Join(root, "a", "one.py"),
		filepath.Join(root, "b", "two.py"),
		filepath.Join(root, "b", "x.txt"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a/one.py", "b/two.py"}, rel(t, root, files))

	_, err = NewScanner(nil).ScanPaths([]string{filepath.Join(root, "missing")})
	assert.Error(t, err)
}

func TestScanFile(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"app.py":      "x = 1\n",
		"test_app.py": "x = 1\n",
		"notes.txt":   "hi\n",
	})

	s := NewScanner(nil)
	ok, err := s.ScanFile(filepath.Join(root, "app.py"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ScanFile(filepath.Join(root, "test_app.py"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.ScanFile(filepath.Join(root, "notes.txt"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.ScanFile(filepath.Join(root, "missing.py"))
	assert.Error(t, err)
}

func TestFilterTree(t *testing.T) {
	entries := []vcs.TreeEntry{
		{Path: "src/app.py", Size: 10},
		{Path: "src/big.py", Size: 5000},
		{Path: "src/tests/test_app.py", Size: 10},
		{Path: "docs/conf.py", Size: 10},
		{Path: "README.md", Size: 10},
	}

	cfg := config.DefaultConfig()
	cfg.MaxFileSize = 1000
	s := NewScanner(cfg)

	assert.Equal(t, []string{"docs/conf.py", "src/app.py"}, s.FilterTree(entries, nil))
	assert.Equal(t, []string{"src/app.py"}, s.FilterTree(entries, []string{"src"}))
	assert.Equal(t, []string{"docs/conf.py", "src/app.py"}, s.FilterTree(entries, []string{"."}))
	assert.Empty(t, s.FilterTree(entries, []string{"lib"}))
}

func TestFilterBySize(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"small.py": "x = 1\n",
		"large.py": string(make([]byte, 2048)),
	})
	files := []string{filepath.Join(root, "small.py"), filepath.Join(root, "large.py")}

	kept, skipped := FilterBySize(files, 1024)
	assert.Equal(t, []string{files[0]}, kept)
	assert.Equal(t, 1, skipped)

	kept, skipped = FilterBySize(files, 0)
	assert.Equal(t, files, kept)
	assert.Zero(t, skipped)
}

func TestIsWithinRoot(t *testing.T) {
	assert.True(t, isWithinRoot("/a/b/c", "/a/b"))
	assert.True(t, isWithinRoot("/a/b", "/a/b"))
	assert.False(t, isWithinRoot("/a/bc", "/a/b"))
	assert.False(t, isWithinRoot("/x", "/a/b"))
}
