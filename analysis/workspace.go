// Copyright © 2025 The MON authors

package analysis

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/monlang/mon/parser"
)

// FileExt is the extension of MON source files.
const FileExt = ".mon"

// WorkspaceFile is a file found by ScanWorkspace.
type WorkspaceFile struct {
	Path string
	// Imports lists the canonical paths the file imports, builtin schemas
	// excluded.
	Imports []string
	// Err is the parse or read error of the file, if any.
	Err error
}

// Workspace indexes the import relations of the MON files under a root
// directory. Editors and file watchers use it to find the files affected
// by a change.
type Workspace struct {
	Root  string
	Files map[string]*WorkspaceFile

	mu        sync.RWMutex
	importers map[string][]string
}

// WorkspaceOptions configures ScanWorkspace.
type WorkspaceOptions struct {
	Reader      parser.Reader
	Concurrency int
	Logger      *slog.Logger
}

// ScanWorkspace walks a directory tree and parses every MON file in it to
// record its imports. It skips hidden directories (names starting with
// '.') and node_modules.
//
// Files that fail to parse are recorded with their error but are otherwise
// skipped.
func ScanWorkspace(ctx context.Context, root string, opts WorkspaceOptions) (*Workspace, error) {
	if opts.Reader == nil {
		opts.Reader = parser.NewReader()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable dirs
		}
		if d.IsDir() {
			if path != root && shouldSkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == FileExt {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	files := make([]*WorkspaceFile, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			files[i] = scanFile(opts.Reader, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ws := &Workspace{Root: root, Files: make(map[string]*WorkspaceFile, len(files))}
	for _, f := range files {
		ws.Files[f.Path] = f
	}
	ws.index()
	opts.Logger.Debug("workspace scanned", "root", root, "files", len(files))
	return ws, nil
}

// shouldSkipDir returns true for directories that should not be walked.
// It skips hidden directories (e.g. .git, .vscode) and node_modules,
// but not "." or ".." which represent the current/parent directory.
func shouldSkipDir(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	if len(name) > 0 && name[0] == '.' {
		return true
	}
	return name == "node_modules"
}

func scanFile(r parser.Reader, path string) *WorkspaceFile {
	f := &WorkspaceFile{Path: path}
	src, err := os.ReadFile(path) //nolint:gosec // paths come from walking the workspace
	if err != nil {
		f.Err = err
		return f
	}
	doc, err := r.Read(path, src)
	if err != nil {
		f.Err = err
		return f
	}
	var loader OSLoader
	for _, imp := range doc.Imports {
		if IsBuiltinPath(imp.Path) {
			continue
		}
		if t, err := loader.Resolve(path, imp.Path); err == nil {
			f.Imports = append(f.Imports, t)
		}
	}
	return f
}

func (ws *Workspace) index() {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	importers := make(map[string][]string)
	for _, f := range ws.Files {
		for _, t := range f.Imports {
			importers[t] = append(importers[t], f.Path)
		}
	}
	for _, list := range importers {
		sort.Strings(list)
	}
	ws.importers = importers
}

// Update rescans a single file after it changed on disk, or drops it when
// it no longer exists.
func (ws *Workspace) Update(path string, r parser.Reader) {
	if r == nil {
		r = parser.NewReader()
	}
	f := scanFile(r, path)
	ws.mu.Lock()
	if os.IsNotExist(f.Err) {
		delete(ws.Files, path)
	} else {
		ws.Files[path] = f
	}
	ws.mu.Unlock()
	ws.index()
}

// Importers returns the files that import path directly.
func (ws *Workspace) Importers(path string) []string {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return append([]string(nil), ws.importers[path]...)
}

// Dependents returns every file that imports path directly or
// transitively, sorted. The file itself is not included.
func (ws *Workspace) Dependents(path string) []string {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	seen := map[string]bool{path: true}
	queue := []string{path}
	var out []string
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		for _, imp := range ws.importers[p] {
			if seen[imp] {
				continue
			}
			seen[imp] = true
			out = append(out, imp)
			queue = append(queue, imp)
		}
	}
	sort.Strings(out)
	return out
}
