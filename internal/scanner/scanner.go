// Package scanner finds the Python files to analyze.
package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/panbanda/remark/internal/vcs"
	"github.com/panbanda/remark/pkg/config"
	"github.com/panbanda/remark/pkg/parser"
)

// Scanner finds Python source files, honoring config exclusions and
// .gitignore files.
type Scanner struct {
	config  *config.Config
	matcher gitignore.Matcher
}

// NewScanner creates a new file scanner.
func NewScanner(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Scanner{config: cfg}
}

// findGitRoot walks up from start looking for a .git directory.
// Returns empty string if not in a git repository.
func findGitRoot(start string) string {
	dir, err := filepath.Abs(start)
	if err != nil {
		return ""
	}
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadPatterns builds one matcher from the config patterns and, when
// enabled, every .gitignore below the repository root. Gitignore patterns
// are relative to the repository root, so the matcher is only applied to
// repository-relative paths.
func (s *Scanner) loadPatterns(root string) (gitignore.Matcher, string) {
	var patterns []gitignore.Pattern
	for _, p := range s.config.Exclude.Patterns {
		patterns = append(patterns, gitignore.ParsePattern(p, nil))
	}

	base, err := filepath.Abs(root)
	if err != nil {
		base = root
	}
	if s.config.Exclude.Gitignore {
		if gitRoot := findGitRoot(root); gitRoot != "" {
			if gitPatterns, err := gitignore.ReadPatterns(osfs.New(gitRoot), nil); err == nil {
				patterns = append(patterns, gitPatterns...)
			}
			base = gitRoot
		}
	}

	if len(patterns) == 0 {
		return nil, base
	}
	return gitignore.NewMatcher(patterns), base
}

func (s *Scanner) excluded(base, path string, isDir bool) bool {
	if s.config.ShouldExclude(path) {
		return true
	}
	if s.matcher == nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	return s.matcher.Match(strings.Split(rel, string(filepath.Separator)), isDir)
}

// ScanPaths scans each path: directories recursively, files directly.
// The result is sorted and free of duplicates.
func (s *Scanner) ScanPaths(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}

		var found []string
		if info.IsDir() {
			found, err = s.ScanDir(p)
			if err != nil {
				return nil, err
			}
		} else if ok, err := s.ScanFile(p); err != nil {
			return nil, err
		} else if ok {
			found = []string{p}
		}

		for _, f := range found {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// ScanDir recursively scans a directory for Python files.
// Symlinks that resolve outside root are skipped.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}

	var base string
	s.matcher, base = s.loadPatterns(root)

	var files []string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, absRoot) {
				return nil
			}
		}

		if d.IsDir() {
			if path != root && s.excluded(base, path, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if parser.DetectLanguage(path) == parser.LangUnknown {
			return nil
		}
		if s.excluded(base, path, false) {
			return nil
		}
		files = append(files, path)
		return nil
	})

	return files, walkErr
}

// isWithinRoot checks if a path is contained within the root directory.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}

// ScanFile reports whether a single file should be analyzed.
func (s *Scanner) ScanFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if info.IsDir() || parser.DetectLanguage(path) == parser.LangUnknown {
		return false, nil
	}

	var base string
	s.matcher, base = s.loadPatterns(filepath.Dir(path))
	return !s.excluded(base, path, false), nil
}

// FilterTree selects the Python files of a git tree that live under one of
// the given repository-relative prefixes. An empty prefix list or "."
// selects the whole tree. Config exclusions apply; .gitignore does not,
// since ignored files are not committed.
func (s *Scanner) FilterTree(entries []vcs.TreeEntry, prefixes []string) []string {
	var files []string
	for _, e := range entries {
		p := filepath.FromSlash(e.Path)
		if parser.DetectLanguage(p) == parser.LangUnknown {
			continue
		}
		if s.config.MaxFileSize > 0 && e.Size > s.config.MaxFileSize {
			continue
		}
		if !underAny(p, prefixes) || s.config.ShouldExclude(p) {
			continue
		}
		files = append(files, e.Path)
	}
	sort.Strings(files)
	return files
}

func underAny(path string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, prefix := range prefixes {
		prefix = filepath.Clean(prefix)
		if prefix == "." || path == prefix || strings.HasPrefix(path, prefix+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// FilterBySize drops files larger than maxSize bytes and returns how many
// were skipped. A non-positive maxSize keeps everything.
func FilterBySize(files []string, maxSize int64) ([]string, int) {
	if maxSize <= 0 {
		return files, 0
	}

	filtered := make([]string, 0, len(files))
	skipped := 0
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil || info.Size() > maxSize {
			skipped++
			continue
		}
		filtered = append(filtered, f)
	}
	return filtered, skipped
}
