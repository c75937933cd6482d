// Package watch reports debounced batches of source file changes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// Config configures a Watcher.
type Config struct {
	// Root is the directory tree to watch.
	Root string

	// Patterns select the files, relative to Root, whose changes are
	// reported. Defaults to "**/*.go".
	Patterns []string

	// Debounce is how long to wait for more changes before reporting.
	Debounce time.Duration

	Logger *slog.Logger
}

// OnChange receives the changed paths of one debounce window, relative to
// Root and sorted. Calls never overlap.
type OnChange func(ctx context.Context, paths []string)

// Watcher watches a directory tree for file changes.
type Watcher struct {
	root     string
	patterns []string
	debounce time.Duration
	fsw      *fsnotify.Watcher
	logger   *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op
}

// New validates cfg and starts an fsnotify watcher. Call Run to receive
// changes; Run closes the watcher when it returns.
func New(cfg Config) (*Watcher, error) {
	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = []string{"**/*.go"}
	}
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid watch pattern %q", p)
		}
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving watch root: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}

	return &Watcher{
		root:     root,
		patterns: patterns,
		debounce: debounce,
		fsw:      fsw,
		logger:   logger.With("component", "watch"),
		pending:  make(map[string]fsnotify.Op),
	}, nil
}

// Matches reports whether rel, a slash-separated path relative to Root,
// is selected by the watch patterns.
func (w *Watcher) Matches(rel string) bool {
	for _, p := range w.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Run watches until ctx is done, calling onChange once per debounce window
// that saw matching changes.
func (w *Watcher) Run(ctx context.Context, onChange OnChange) error {
	defer w.fsw.Close()

	if err := w.addWatchesRecursive(w.root); err != nil {
		return err
	}
	w.logger.Info("file watcher started", "root", w.root, "debounce", w.debounce, "patterns", w.patterns)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.handleFSEvent(event) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)

		case <-timer.C:
			if paths := w.flushPending(); len(paths) > 0 {
				w.logger.Info("changes detected", "files", len(paths))
				onChange(ctx, paths)
			}
		}
	}
}

// handleFSEvent records a matching change and reports whether it did.
func (w *Watcher) handleFSEvent(event fsnotify.Event) bool {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.handleNewDirectory(event.Name)
			return false
		}
	}
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return false
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if !w.Matches(rel) {
		return false
	}

	w.pendingMu.Lock()
	w.pending[rel] |= event.Op
	w.pendingMu.Unlock()

	w.logger.Debug("file change detected", "path", rel, "op", event.Op.String())
	return true
}

func (w *Watcher) handleNewDirectory(path string) {
	if skipDir(filepath.Base(path)) {
		return
	}
	if err := w.addWatchesRecursive(path); err != nil {
		w.logger.Warn("failed to watch new directory", "path", path, "error", err)
	}
}

func (w *Watcher) flushPending() []string {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]fsnotify.Op)

	sort.Strings(paths)
	return paths
}

func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path != root {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skipDir(d.Name()) {
			return filepath.SkipDir
		}

		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", err)
		} else {
			w.logger.Debug("watching directory", "path", path)
		}
		return nil
	})
}

// skipDir reports directories never worth watching: vendored and hidden.
func skipDir(name string) bool {
	return name == "vendor" || name == "node_modules" || strings.HasPrefix(name, ".")
}
