// Package watch re-runs analysis when Python files change.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/panbanda/remark/pkg/config"
	"github.com/panbanda/remark/pkg/parser"
)

// DefaultDebounce is how long a file must stay quiet before it is reported.
const DefaultDebounce = 500 * time.Millisecond

// Handler is called with the files that changed, sorted, once each has been
// quiet for the debounce period. Calls never overlap.
type Handler func(ctx context.Context, paths []string)

// Watcher monitors a directory tree for Python file changes.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	config    *config.Config
	debounce  time.Duration
	root      string
	handler   Handler
	logger    *slog.Logger

	mu      sync.Mutex
	pending map[string]time.Time
}

// NewWatcher creates a watcher for root. A non-positive debounce uses
// DefaultDebounce.
func NewWatcher(root string, cfg *config.Config, debounce time.Duration, handler Handler) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		config:    cfg,
		debounce:  debounce,
		root:      root,
		handler:   handler,
		logger:    slog.Default(),
		pending:   make(map[string]time.Time),
	}, nil
}

// SetLogger replaces the logger used for watch errors.
func (w *Watcher) SetLogger(l *slog.Logger) {
	w.logger = l
}

// addTree registers dir and every non-excluded directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.config.ShouldExclude(path) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

// Run watches until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.addTree(w.root); err != nil {
		return err
	}

	ticker := time.NewTicker(w.debounce / 5)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "err", err)

		case <-ticker.C:
			if ready := w.takeReady(time.Now()); len(ready) > 0 && w.handler != nil {
				w.handler(ctx, ready)
			}
		}
	}
}

// handleEvent records writes and creates of Python files. New directories
// are watched as they appear.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	path := event.Name
	if w.config.ShouldExclude(path) {
		return
	}

	if event.Op&fsnotify.Create != 0 && parser.DetectLanguage(path) == parser.LangUnknown {
		if err := w.addTree(path); err != nil {
			w.logger.Debug("watch new directory", "path", path, "err", err)
		}
		return
	}
	if parser.DetectLanguage(path) == parser.LangUnknown {
		return
	}

	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

// takeReady removes and returns the files quiet since before now-debounce.
func (w *Watcher) takeReady(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	sort.Strings(ready)
	return ready
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsWatcher.Close()
}

// WatchList returns the watched directories.
func (w *Watcher) WatchList() []string {
	return w.fsWatcher.WatchList()
}
