package vcs

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNotRepository is returned when no git repository contains the path.
var ErrNotRepository = errors.New("not a git repository")

// GitOpener opens real git repositories.
type GitOpener struct{}

// NewGitOpener creates an opener backed by go-git.
func NewGitOpener() *GitOpener {
	return &GitOpener{}
}

// Open opens the repository containing path, searching parent directories
// for the .git directory.
func (GitOpener) Open(path string) (Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotRepository, path)
		}
		return nil, err
	}

	root := path
	if wt, err := repo.Worktree(); err == nil {
		root = wt.Filesystem.Root()
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	return &gitRepository{repo: repo, path: root}, nil
}

type gitRepository struct {
	repo *git.Repository
	path string
}

func (r *gitRepository) Tree(rev string) (Tree, error) {
	if rev == "" {
		rev = "HEAD"
	}
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", rev, err)
	}
	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("commit %s: %w", hash, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, err
	}
	return &gitTree{tree: tree}, nil
}

func (r *gitRepository) RepoPath() string {
	return r.path
}

type gitTree struct {
	tree *object.Tree
}

func (t *gitTree) Entries() ([]TreeEntry, error) {
	var entries []TreeEntry
	err := t.tree.Files().ForEach(func(f *object.File) error {
		if !f.Mode.IsFile() {
			return nil
		}
		entries = append(entries, TreeEntry{Path: f.Name, Size: f.Size})
		return nil
	})
	return entries, err
}

func (t *gitTree) File(path string) ([]byte, error) {
	f, err := t.tree.File(filepath.ToSlash(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	contents, err := f.Contents()
	if err != nil {
		return nil, err
	}
	return []byte(contents), nil
}
