// Package watcher re-indexes documents when they change on disk.
//
// It wraps fsnotify, watching every directory under a root. Created, written,
// removed and renamed files that pass the supported-kind check and the include
// patterns are collected and handled together once events have been quiet for
// the debounce interval. When the index service can remove sources, the old
// chunks of each file are dropped first so a rewrite replaces them. Index
// calls never overlap.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docqa/internal/adapters/driving/fileset"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// DefaultDebounce is the quiet period before a batch is indexed.
const DefaultDebounce = 500 * time.Millisecond

// ErrNotDirectory is returned when the watch root is not a directory.
var ErrNotDirectory = errors.New("watch root is not a directory")

// Options configures a Watcher.
type Options struct {
	// Root is the directory to watch recursively.
	Root string

	// Include limits indexing to files matching any doublestar pattern.
	// Patterns without a separator match the base name. Empty means all.
	Include []string

	// Supports reports whether a file kind can be loaded. Nil accepts all.
	Supports func(path string) bool

	// Debounce is the quiet period before indexing. Zero uses DefaultDebounce.
	Debounce time.Duration

	// Initial indexes matching files already under Root before watching.
	Initial bool

	// OnReport is called after every index call.
	OnReport func(report *domain.IndexReport, err error)
}

// Watcher indexes changed files under a root directory.
type Watcher struct {
	index driving.IndexService
	opts  Options
}

// New validates the root and returns a Watcher.
func New(index driving.IndexService, opts Options) (*Watcher, error) {
	if index == nil {
		return nil, errors.New("watcher: index service is required")
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving watch root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("watch root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", opts.Root, ErrNotDirectory)
	}
	for _, p := range opts.Include {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("include pattern %q: %w", p, doublestar.ErrBadPattern)
		}
	}

	opts.Root = root
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &Watcher{index: index, opts: opts}, nil
}

// Root returns the absolute watch root.
func (w *Watcher) Root() string {
	return w.opts.Root
}

// Run watches until ctx is cancelled. Pending changes are dropped on exit.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	if err := w.addTree(fw, w.opts.Root); err != nil {
		return err
	}
	logger.Info("Watching %s", w.opts.Root)

	if w.opts.Initial {
		if paths := w.scan(w.opts.Root); len(paths) > 0 {
			w.flush(ctx, paths)
		}
	}

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			changed := w.handleEvent(fw, event)
			if len(changed) == 0 {
				continue
			}
			for _, p := range changed {
				pending[p] = struct{}{}
			}
			timer.Reset(w.opts.Debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)

		case <-timer.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			slices.Sort(paths)
			w.flush(ctx, paths)
		}
	}
}

// handleEvent returns the files an event makes due for indexing.
// A new directory is watched and its existing files are returned. A removed
// or renamed file is returned so its chunks can be dropped.
func (w *Watcher) handleEvent(fw *fsnotify.Watcher, event fsnotify.Event) []string {
	if isHidden(w.rel(event.Name)) {
		return nil
	}
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		if w.accept(event.Name) {
			return []string{event.Name}
		}
		return nil
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return nil
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return nil
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			if err := w.addTree(fw, event.Name); err != nil {
				logger.Warn("watching %s: %v", event.Name, err)
			}
			return w.scan(event.Name)
		}
		return nil
	}
	if !info.Mode().IsRegular() || !w.accept(event.Name) {
		return nil
	}
	return []string{event.Name}
}

// accept applies the supported-kind check and the include patterns.
func (w *Watcher) accept(path string) bool {
	if w.opts.Supports != nil && !w.opts.Supports(path) {
		return false
	}
	return fileset.Match(w.opts.Include, filepath.ToSlash(w.rel(path)))
}

// scan lists accepted files under dir.
func (w *Watcher) scan(dir string) []string {
	var paths []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path != dir && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && w.accept(path) {
			paths = append(paths, path)
		}
		return nil
	})
	return paths
}

// addTree watches dir and every non-hidden directory below it.
func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		logger.Debug("watching directory %s", path)
		return nil
	})
}

// flush drops the old chunks of paths and indexes the ones still on disk.
func (w *Watcher) flush(ctx context.Context, paths []string) {
	if ctx.Err() != nil {
		return
	}
	if remover, ok := w.index.(driving.SourceRemover); ok {
		removed, err := remover.RemoveSources(ctx, paths)
		if err != nil {
			logger.Warn("removing stale chunks: %v", err)
		} else if removed > 0 {
			logger.Debug("removed %d stale chunk(s)", removed)
		}
	}

	present := make([]string, 0, len(paths))
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			present = append(present, p)
		}
	}
	if len(present) == 0 {
		return
	}

	logger.Debug("indexing %d changed file(s)", len(present))
	report, err := w.index.Index(ctx, present)
	if report != nil {
		logger.Info("%s", report.Status())
	} else if err != nil {
		logger.Warn("indexing failed: %v", err)
	}
	if w.opts.OnReport != nil {
		w.opts.OnReport(report, err)
	}
}

func (w *Watcher) rel(path string) string {
	rel, err := filepath.Rel(w.opts.Root, path)
	if err != nil {
		return path
	}
	return rel
}

// isHidden reports whether any element of a relative path starts with a dot.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if len(part) > 1 && strings.HasPrefix(part, ".") && part != ".." {
			return true
		}
	}
	return false
}
