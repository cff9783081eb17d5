// Copyright © 2025 The MON authors

// Package watch re-analyzes MON files as they change on disk.
package watch

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/monlang/mon/analysis"
)

// DefaultDebounce is the quiet period after the last file event before a
// batch of changes is delivered.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reports changed MON files under a set of directories. Events are
// collected until the directories have been quiet for the debounce period
// and then delivered as one batch of paths.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	excludes excludeSet
	onChange func([]string)
	logger   *slog.Logger
	events   prometheus.Counter

	callbackMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]struct{}
	timer     *time.Timer
	closed    bool

	wg sync.WaitGroup
}

// NewWatcher creates a watcher delivering batches to onChange. Paths
// matching one of the exclude globs, by base name or by full slash-separated
// path, are ignored; "**" matches across directories.
func NewWatcher(debounce time.Duration, excludes []string, onChange func([]string), logger *slog.Logger) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	compiled, err := compileExcludes(excludes)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsw:      fsw,
		debounce: debounce,
		excludes: compiled,
		onChange: onChange,
		logger:   logger,
		pending:  make(map[string]struct{}),
	}, nil
}

// Watch starts watching the directory trees rooted at paths.
func (w *Watcher) Watch(paths []string) error {
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		if err := w.watchRecursive(abs); err != nil {
			return err
		}
	}
	w.wg.Add(1)
	go w.run()
	return nil
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.excludedDir(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.events != nil {
				w.events.Inc()
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		info, err := os.Stat(event.Name)
		if err == nil && info.IsDir() {
			if w.excludedDir(event.Name) {
				return
			}
			if err := w.watchRecursive(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
				return
			}
			w.enqueueExisting(event.Name)
			return
		}
	}
	if w.excludedFile(event.Name) {
		return
	}
	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.schedule(event.Name)
	}
}

func (w *Watcher) schedule(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	if w.closed {
		return
	}
	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()

	w.pendingMu.Lock()
	if w.closed || len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	w.onChange(paths)
}

func (w *Watcher) enqueueExisting(root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || w.excludedFile(path) {
			return nil
		}
		w.schedule(path)
		return nil
	})
}

// excludeSet matches paths against exclude globs.
type excludeSet []glob.Glob

func compileExcludes(patterns []string) (excludeSet, error) {
	out := make(excludeSet, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("exclude pattern %q: %w", pattern, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// match reports whether a glob matches the base name or the slash-separated
// path.
func (es excludeSet) match(path string) bool {
	slashed := filepath.ToSlash(path)
	base := filepath.Base(path)
	for _, g := range es {
		if g.Match(base) || g.Match(slashed) {
			return true
		}
	}
	return false
}

func (w *Watcher) excludedDir(path string) bool {
	name := filepath.Base(path)
	return (len(name) > 1 && name[0] == '.') || name == "node_modules" || w.excludes.match(path)
}

func (w *Watcher) excludedFile(path string) bool {
	return filepath.Ext(path) != analysis.FileExt || w.excludes.match(path)
}

// Close stops the watcher. A batch being delivered when Close is called
// completes first; later events are dropped.
func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()

	w.callbackMu.Lock()
	w.callbackMu.Unlock() //nolint:staticcheck // waits for an in-flight batch
	if errors.Is(err, fsnotify.ErrClosed) {
		return nil
	}
	return err
}
