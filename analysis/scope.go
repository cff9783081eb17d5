// Copyright © 2025 The MON authors

package analysis

import (
	"sort"

	"github.com/monlang/mon/ast"
)

// ScopeKind classifies the kind of scope.
type ScopeKind int

const (
	ScopeImports ScopeKind = iota // bindings brought in by import statements
	ScopeFile                     // anchors and types defined in the file
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeImports:
		return "imports"
	case ScopeFile:
		return "file"
	default:
		return "unknown"
	}
}

// Binding is a name visible in a scope.
type Binding struct {
	Symbol Symbol
	File   *FileNode
	// Pair is the anchored pair defining an anchor binding.
	Pair *ast.Pair
	// Type is the definition of a type binding.
	Type *ast.TypeDef
	// Depth counts the import hops from the scope to the definition.
	Depth int
	// Via is the import symbol in the scope's file that brought the binding
	// in. It is nil for a local definition.
	Via *Symbol
}

// Namespace is a namespace import (import * as ns).
type Namespace struct {
	Symbol Symbol
	// File is the imported file, or nil when it could not be loaded.
	File *FileNode
	// Scope is the exported scope of the imported file.
	Scope *Scope
}

// Scope holds the anchors and types visible in one file. A file scope is
// chained to the scope of its imports, so local definitions shadow
// imported ones.
type Scope struct {
	Kind       ScopeKind
	Parent     *Scope
	File       *FileNode
	Anchors    map[string]*Binding
	Types      map[string]*Binding
	Namespaces map[string]*Namespace
}

// NewScope creates a new scope of the given kind with the given parent.
func NewScope(kind ScopeKind, parent *Scope, file *FileNode) *Scope {
	return &Scope{
		Kind:       kind,
		Parent:     parent,
		File:       file,
		Anchors:    make(map[string]*Binding),
		Types:      make(map[string]*Binding),
		Namespaces: make(map[string]*Namespace),
	}
}

func (s *Scope) bindings(kind SymbolKind) map[string]*Binding {
	if kind == SymType {
		return s.Types
	}
	return s.Anchors
}

// Define adds a binding of kind to this scope. It returns the existing
// binding and false when the name is already bound here.
func (s *Scope) Define(kind SymbolKind, name string, b *Binding) (*Binding, bool) {
	m := s.bindings(kind)
	if existing, ok := m[name]; ok {
		return existing, false
	}
	m[name] = b
	return b, true
}

// Lookup resolves a name by walking the parent chain.
// Returns nil if the name is not found.
func (s *Scope) Lookup(kind SymbolKind, name string) *Binding {
	for scope := s; scope != nil; scope = scope.Parent {
		if b, ok := scope.bindings(kind)[name]; ok {
			return b
		}
	}
	return nil
}

// LookupLocal resolves a name only in this scope (not parents).
func (s *Scope) LookupLocal(kind SymbolKind, name string) *Binding {
	return s.bindings(kind)[name]
}

// LookupNamespace resolves a namespace import by walking the parent chain.
func (s *Scope) LookupNamespace(name string) *Namespace {
	for scope := s; scope != nil; scope = scope.Parent {
		if ns, ok := scope.Namespaces[name]; ok {
			return ns
		}
	}
	return nil
}

// Visible returns every binding of kind visible from s, keyed by name.
// Inner scopes shadow outer ones.
func (s *Scope) Visible(kind SymbolKind) map[string]*Binding {
	out := make(map[string]*Binding)
	for scope := s; scope != nil; scope = scope.Parent {
		for name, b := range scope.bindings(kind) {
			if _, ok := out[name]; !ok {
				out[name] = b
			}
		}
	}
	return out
}

// Names returns the sorted names of kind visible from s.
func (s *Scope) Names(kind SymbolKind) []string {
	vis := s.Visible(kind)
	names := make([]string, 0, len(vis))
	for name := range vis {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NamespaceNames returns the sorted namespace names visible from s.
func (s *Scope) NamespaceNames() []string {
	var names []string
	for scope := s; scope != nil; scope = scope.Parent {
		for name := range scope.Namespaces {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
