// Copyright © 2025 The MON authors

package analysis

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sync"
)

// FileLoader locates and reads the files of an import graph.
type FileLoader interface {
	// Resolve returns the canonical path of target imported from the file
	// at from. from is empty when resolving the entry file.
	Resolve(from, target string) (string, error)
	// Load reads the file at a canonical path. Missing files are reported
	// with an error matching fs.ErrNotExist.
	Load(ctx context.Context, path string) ([]byte, error)
}

// DefaultMaxFileSize bounds the size of a file read by OSLoader.
const DefaultMaxFileSize = 8 << 20

// OSLoader reads files from the local file system. Import paths are
// relative to the directory of the importing file.
type OSLoader struct {
	// MaxSize is the largest file accepted, in bytes. Zero means
	// DefaultMaxFileSize.
	MaxSize int64
}

func (l OSLoader) Resolve(from, target string) (string, error) {
	p := target
	if !filepath.IsAbs(p) && from != "" {
		p = filepath.Join(filepath.Dir(from), p)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", target, err)
	}
	return abs, nil
}

func (l OSLoader) Load(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit := l.MaxSize
	if limit <= 0 {
		limit = DefaultMaxFileSize
	}
	f, err := os.Open(path) //nolint:gosec // paths come from user imports
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%s: file exceeds %d bytes", path, limit)
	}
	return data, nil
}

// MapLoader serves files from memory. Paths use forward slashes and are
// cleaned; imports resolve relative to the importing file. It is safe for
// concurrent use.
type MapLoader struct {
	mu    sync.RWMutex
	files map[string]string
}

// NewMapLoader returns a loader serving files, keyed by path.
func NewMapLoader(files map[string]string) *MapLoader {
	l := &MapLoader{files: make(map[string]string, len(files))}
	for p, src := range files {
		l.files[path.Clean(p)] = src
	}
	return l
}

// Set adds or replaces the file at p.
func (l *MapLoader) Set(p, src string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.files[path.Clean(p)] = src
}

// Delete removes the file at p.
func (l *MapLoader) Delete(p string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.files, path.Clean(p))
}

func (l *MapLoader) Resolve(from, target string) (string, error) {
	if path.IsAbs(target) || from == "" {
		return path.Clean(target), nil
	}
	return path.Join(path.Dir(from), target), nil
}

func (l *MapLoader) Load(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	src, ok := l.files[path.Clean(p)]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: p, Err: fs.ErrNotExist}
	}
	return []byte(src), nil
}

// Overlay supplies the contents of files that shadow the ones a loader
// would read.
type Overlay interface {
	Source(path string) ([]byte, bool)
}

// MapOverlay is an Overlay keyed by canonical path.
type MapOverlay map[string][]byte

func (m MapOverlay) Source(p string) ([]byte, bool) {
	src, ok := m[p]
	return src, ok
}

// OverlayLoader serves a set of in-memory documents in front of another
// loader. Editors use it so that unsaved buffers shadow the files on disk.
type OverlayLoader struct {
	Base    FileLoader
	Overlay Overlay
}

func (l OverlayLoader) Resolve(from, target string) (string, error) {
	return l.Base.Resolve(from, target)
}

func (l OverlayLoader) Load(ctx context.Context, p string) ([]byte, error) {
	if l.Overlay != nil {
		if src, ok := l.Overlay.Source(p); ok {
			return src, nil
		}
	}
	return l.Base.Load(ctx, p)
}
