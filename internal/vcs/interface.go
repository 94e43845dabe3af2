// Package vcs provides read access to source files at a git revision.
package vcs

// Repository opens trees at arbitrary revisions.
type Repository interface {
	// Tree returns the tree of the commit that rev resolves to.
	// rev accepts anything git rev-parse does for commits: HEAD, branch and
	// tag names, short or full hashes, HEAD~2.
	Tree(rev string) (Tree, error)
	// RepoPath returns the root path of the worktree.
	RepoPath() string
}

// TreeEntry represents a file in a git tree.
type TreeEntry struct {
	Path string
	Size int64
}

// Tree represents a git tree object.
type Tree interface {
	// Entries returns all files in the tree (recursively).
	Entries() ([]TreeEntry, error)
	// File returns the content of the file at the given path.
	File(path string) ([]byte, error)
}

// Opener opens repositories. It exists so callers can substitute a fake.
type Opener interface {
	Open(path string) (Repository, error)
}
