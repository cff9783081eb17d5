// Copyright © 2025 The MON authors

package lsp

import (
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/monlang/mon/analysis"
	"github.com/monlang/mon/diagnostic"
	"github.com/monlang/mon/service"
)

// Document is an open text document tracked by the server.
type Document struct {
	mu      sync.Mutex
	URI     string
	Path    string
	Version int32
	Content string
	hash    uint64

	// analyzed is the content hash the diagnostics were computed from. It
	// is zero when the document needs analysis.
	analyzed uint64
	// result is the last successful analysis. It survives edits that break
	// the document so that completion keeps working while typing.
	result *service.Result
	diags  []diagnostic.Diagnostic
	// fatal is the error of the last analysis, if it failed.
	fatal error
}

func (d *Document) set(version int32, content string) {
	d.Version = version
	d.Content = content
	d.hash = xxhash.Sum64String(content)
}

// fresh reports whether the diagnostics match the content. The caller
// holds d.mu.
func (d *Document) fresh() bool {
	return d.analyzed != 0 && d.analyzed == d.hash
}

// snapshot returns the last successful analysis and the current content.
func (d *Document) snapshot() (*service.Result, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.result, d.Content
}

// DocumentStore manages open documents with thread-safe access. It is also
// the overlay through which unsaved buffers shadow files on disk when
// imports are loaded.
type DocumentStore struct {
	mu     sync.RWMutex
	docs   map[string]*Document
	byPath map[string]*Document
}

var _ analysis.Overlay = (*DocumentStore)(nil)

// NewDocumentStore creates an empty document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		docs:   make(map[string]*Document),
		byPath: make(map[string]*Document),
	}
}

// Open adds a document to the store.
func (s *DocumentStore) Open(uri string, version int32, content string) *Document {
	doc := &Document{URI: uri, Path: uriToPath(uri)}
	doc.set(version, content)
	s.mu.Lock()
	s.docs[uri] = doc
	s.byPath[doc.Path] = doc
	s.mu.Unlock()
	return doc
}

// Change replaces a document's content (full sync). It reports whether the
// content actually changed.
func (s *DocumentStore) Change(uri string, version int32, content string) (*Document, bool) {
	s.mu.Lock()
	doc, ok := s.docs[uri]
	if !ok {
		doc = &Document{URI: uri, Path: uriToPath(uri)}
		s.docs[uri] = doc
		s.byPath[doc.Path] = doc
	}
	s.mu.Unlock()

	doc.mu.Lock()
	defer doc.mu.Unlock()
	old := doc.hash
	doc.set(version, content)
	return doc, !ok || old != doc.hash
}

// Close removes a document from the store.
func (s *DocumentStore) Close(uri string) {
	s.mu.Lock()
	if doc, ok := s.docs[uri]; ok {
		delete(s.byPath, doc.Path)
	}
	delete(s.docs, uri)
	s.mu.Unlock()
}

// Get retrieves a document by URI. Returns nil if not found.
func (s *DocumentStore) Get(uri string) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[uri]
}

// All returns the open documents ordered by URI.
func (s *DocumentStore) All() []*Document {
	s.mu.RLock()
	out := make([]*Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	return out
}

// Source returns the buffer content of the open document at path.
func (s *DocumentStore) Source(path string) ([]byte, bool) {
	s.mu.RLock()
	doc, ok := s.byPath[path]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	doc.mu.Lock()
	defer doc.mu.Unlock()
	return []byte(doc.Content), true
}
