// Copyright © 2025 The MON authors

package analysis

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/monlang/mon/ast"
	"github.com/monlang/mon/diagnostic"
	"github.com/monlang/mon/parser"
	"github.com/monlang/mon/parser/token"
	"github.com/monlang/mon/position"
)

// ImportNames is the shape of what an import statement binds.
type ImportNames struct {
	Kind ast.ImportKind
	// Names lists the bindings of a named import.
	Names []*ast.ImportName
	// Namespace is the local name of a namespace import.
	Namespace string
}

// ImportEdge is one import statement of a file.
type ImportEdge struct {
	Decl *ast.Import
	// Target is the canonical path of the imported file. It is empty when
	// the import path could not be resolved.
	Target string
	// File is the imported file, or nil when it could not be loaded or
	// parsed.
	File  *FileNode
	Names ImportNames
	Range position.Range
}

// FileNode is a parsed file in an import graph.
type FileNode struct {
	ID      int
	Path    string
	Doc     *ast.Document
	Imports []*ImportEdge
	Builtin bool
}

// Graph is the set of files reachable from an entry file. The import edges
// traversed from the entry are acyclic.
type Graph struct {
	Entry *FileNode
	Files map[string]*FileNode
	// Order lists the files so that every file follows the files it
	// imports. The entry file is last. Imports are visited in source order,
	// so the order is deterministic.
	Order []*FileNode
	// Diagnostics reports imports that could not be loaded or parsed. Each
	// is attributed to the importing file.
	Diagnostics []diagnostic.Diagnostic
	// Parsed counts the files parsed while loading the graph.
	Parsed int
}

// File returns the node for a canonical path.
func (g *Graph) File(path string) (*FileNode, bool) {
	n, ok := g.Files[path]
	return n, ok
}

// GraphOptions configures LoadGraph. The zero value reads from the local
// file system with the default parser and no builtin schemas.
type GraphOptions struct {
	Loader   FileLoader
	Registry *Registry
	Reader   parser.Reader
	// Concurrency bounds the number of files parsed at once. Zero means 8.
	Concurrency int
	Logger      *slog.Logger
}

func (o *GraphOptions) setDefaults() {
	if o.Loader == nil {
		o.Loader = OSLoader{}
	}
	if o.Reader == nil {
		o.Reader = parser.NewReader()
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 8
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
}

// parsedFile is a memo entry: the outcome of loading and parsing one path.
type parsedFile struct {
	path     string
	src      []byte
	doc      *ast.Document
	err      error
	notFound bool
}

type graphLoader struct {
	opts GraphOptions

	mu     sync.Mutex
	memo   map[string]*parsedFile
	parsed int
}

// LoadGraph loads the entry file and every file it imports, transitively.
// When entrySource is non-nil it is used as the content of the entry file
// instead of reading entryPath.
//
// Files are parsed at most once. The files discovered at each depth of the
// traversal are parsed concurrently; cycle detection runs afterward as a
// sequential depth-first walk over the parsed files.
//
// A missing or unparseable entry file and an import cycle are fatal and
// returned as *FileNotFoundError, *ParseError and *CircularDependencyError.
// A missing or unparseable imported file is reported in Graph.Diagnostics.
func LoadGraph(ctx context.Context, entryPath string, entrySource []byte, opts GraphOptions) (*Graph, error) {
	opts.setDefaults()
	gl := &graphLoader{opts: opts, memo: make(map[string]*parsedFile)}

	entryKey := entryPath
	if !IsBuiltinPath(entryPath) {
		p, err := opts.Loader.Resolve("", entryPath)
		if err != nil {
			return nil, &FileNotFoundError{Path: entryPath, Err: err}
		}
		entryKey = p
	}

	var entry *parsedFile
	if entrySource != nil {
		entry = gl.parse(entryKey, entrySource)
	} else {
		var err error
		entry, err = gl.load(ctx, entryKey)
		if err != nil {
			return nil, err
		}
	}
	if entry.doc == nil {
		if entry.src == nil {
			return nil, &FileNotFoundError{Path: entryKey, Err: entry.err}
		}
		return nil, &ParseError{Path: entryKey, Err: entry.err}
	}
	return gl.finish(ctx, gl.insert(entry))
}

// LoadGraphDocument is LoadGraph for an entry document the caller already
// parsed. doc.Path must be canonical, as returned by the loader's Resolve.
// The entry is not counted in Graph.Parsed.
func LoadGraphDocument(ctx context.Context, doc *ast.Document, opts GraphOptions) (*Graph, error) {
	opts.setDefaults()
	gl := &graphLoader{opts: opts, memo: make(map[string]*parsedFile)}
	entry := gl.insert(&parsedFile{path: doc.Path, src: []byte(doc.Source), doc: doc})
	return gl.finish(ctx, entry)
}

func (gl *graphLoader) finish(ctx context.Context, entry *parsedFile) (*Graph, error) {
	if err := gl.prefetch(ctx, entry); err != nil {
		return nil, err
	}
	g, err := gl.build(entry)
	if err != nil {
		return nil, err
	}
	gl.opts.Logger.Debug("import graph loaded",
		"entry", entry.path,
		"files", len(g.Files),
		"parsed", g.Parsed)
	return g, nil
}

// target resolves an import path written in the file at from.
func (gl *graphLoader) target(from, importPath string) (string, error) {
	if IsBuiltinPath(importPath) {
		return importPath, nil
	}
	if IsBuiltinPath(from) {
		return "", fmt.Errorf("builtin schema %s cannot import %s", from, importPath)
	}
	return gl.opts.Loader.Resolve(from, importPath)
}

// load reads and parses path. The returned error is non-nil only when ctx
// is done; every other failure is recorded in the memo entry.
func (gl *graphLoader) load(ctx context.Context, path string) (*parsedFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if IsBuiltinPath(path) {
		src, ok := gl.opts.Registry.Lookup(path)
		if !ok {
			return &parsedFile{
				path:     path,
				err:      fmt.Errorf("unknown builtin schema %s", path),
				notFound: true,
			}, nil
		}
		return gl.parse(path, []byte(src)), nil
	}
	src, err := gl.opts.Loader.Load(ctx, path)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return &parsedFile{path: path, err: err, notFound: errors.Is(err, fs.ErrNotExist)}, nil
	}
	return gl.parse(path, src), nil
}

func (gl *graphLoader) parse(path string, src []byte) *parsedFile {
	doc, err := gl.opts.Reader.Read(path, src)
	gl.mu.Lock()
	gl.parsed++
	gl.mu.Unlock()
	if err != nil {
		gl.opts.Logger.Debug("parse failed", "path", path, "error", err)
		return &parsedFile{path: path, src: src, err: err}
	}
	return &parsedFile{path: path, src: src, doc: doc}
}

// insert adds pf to the memo unless the path is already present, and
// returns the memoized entry.
func (gl *graphLoader) insert(pf *parsedFile) *parsedFile {
	gl.mu.Lock()
	defer gl.mu.Unlock()
	if existing, ok := gl.memo[pf.path]; ok {
		return existing
	}
	gl.memo[pf.path] = pf
	return pf
}

func (gl *graphLoader) lookup(path string) (*parsedFile, bool) {
	gl.mu.Lock()
	defer gl.mu.Unlock()
	pf, ok := gl.memo[path]
	return pf, ok
}

// prefetch parses every file reachable from entry, one traversal depth at a
// time. The files of one depth are parsed in parallel.
func (gl *graphLoader) prefetch(ctx context.Context, entry *parsedFile) error {
	frontier := []*parsedFile{entry}
	for len(frontier) > 0 {
		var pending []string
		seen := make(map[string]bool)
		for _, pf := range frontier {
			if pf.doc == nil {
				continue
			}
			for _, imp := range pf.doc.Imports {
				t, err := gl.target(pf.path, imp.Path)
				if err != nil || seen[t] {
					continue
				}
				seen[t] = true
				if _, ok := gl.lookup(t); !ok {
					pending = append(pending, t)
				}
			}
		}

		next := make([]*parsedFile, len(pending))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(gl.opts.Concurrency)
		for i, path := range pending {
			g.Go(func() error {
				pf, err := gl.load(gctx, path)
				if err != nil {
					return err
				}
				next[i] = gl.insert(pf)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		frontier = next
	}
	return nil
}

// build walks the memo depth-first from entry, detecting cycles and
// computing the resolution order.
func (gl *graphLoader) build(entry *parsedFile) (*Graph, error) {
	const (
		unvisited = iota
		onStack
		done
	)
	g := &Graph{Files: make(map[string]*FileNode)}
	state := make(map[string]int)
	var stack []string

	newNode := func(pf *parsedFile) *FileNode {
		n := &FileNode{
			ID:      len(g.Files),
			Path:    pf.path,
			Doc:     pf.doc,
			Builtin: IsBuiltinPath(pf.path),
		}
		g.Files[pf.path] = n
		return n
	}

	var visit func(n *FileNode) error
	visit = func(n *FileNode) error {
		state[n.Path] = onStack
		stack = append(stack, n.Path)
		for _, imp := range n.Doc.Imports {
			edge := &ImportEdge{
				Decl:  imp,
				Names: ImportNames{Kind: imp.Kind, Names: imp.Names, Namespace: imp.Namespace},
				Range: imp.Range(),
			}
			n.Imports = append(n.Imports, edge)

			t, err := gl.target(n.Path, imp.Path)
			if err != nil {
				g.Diagnostics = append(g.Diagnostics, importNotFound(n, imp, err))
				continue
			}
			edge.Target = t

			switch state[t] {
			case onStack:
				i := indexOf(stack, t)
				cycle := append(append([]string(nil), stack[i:]...), t)
				return &CircularDependencyError{Cycle: cycle}
			case done:
				edge.File = g.Files[t]
				continue
			}

			pf, ok := gl.lookup(t)
			switch {
			case !ok:
				// Unreachable: prefetch parses every resolvable target.
				g.Diagnostics = append(g.Diagnostics, importNotFound(n, imp, fs.ErrNotExist))
				continue
			case pf.doc == nil && pf.src == nil:
				g.Diagnostics = append(g.Diagnostics, importNotFound(n, imp, pf.err))
				continue
			case pf.doc == nil:
				g.Diagnostics = append(g.Diagnostics, importParseError(n, imp, pf))
				continue
			}
			child := newNode(pf)
			edge.File = child
			if err := visit(child); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[n.Path] = done
		g.Order = append(g.Order, n)
		return nil
	}

	g.Entry = newNode(entry)
	if err := visit(g.Entry); err != nil {
		return nil, err
	}
	g.Parsed = gl.parsed
	return g, nil
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func importNotFound(n *FileNode, imp *ast.Import, err error) diagnostic.Diagnostic {
	d := diagnostic.New(diagnostic.ImportNotFound, imp.PathSpan.Range(), "Module not found: %s", imp.Path)
	d.File = n.Path
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		d.Message = fmt.Sprintf("Module not found: %s (%v)", imp.Path, err)
	}
	return d
}

func importParseError(n *FileNode, imp *ast.Import, pf *parsedFile) diagnostic.Diagnostic {
	d := diagnostic.New(diagnostic.ImportParseError, imp.PathSpan.Range(),
		"Imported module %s has syntax errors", imp.Path)
	d.File = n.Path
	var lerr *token.LocationError
	if errors.As(pf.err, &lerr) {
		idx := position.NewIndex(string(pf.src))
		start := min(lerr.Start, idx.Len())
		end := max(start, min(lerr.End, idx.Len()))
		d.Related = []diagnostic.Related{{
			Location: position.Location{URI: pf.path, Range: idx.Range(start, end)},
			Message:  lerr.Err.Error(),
		}}
	} else if pf.err != nil {
		d.Message = fmt.Sprintf("Imported module %s has syntax errors: %v", imp.Path, pf.err)
	}
	return d
}
