// Copyright © 2025 The MON authors

// Package ast declares the syntax tree for MON documents.
//
// Values form a closed set of variants. Every type implementing Value is
// declared in this package and the unexported marker method keeps the set
// closed, so a switch over Value with a panicking default case fails loudly
// wherever a new variant has not been handled.
package ast

import (
	"github.com/monlang/mon/position"
)

// Node is implemented by every syntax tree node.
type Node interface {
	// Range returns the source span of the node.
	Range() position.Range
	// Offsets returns the byte offsets of the node in its source.
	Offsets() (start, end int)
}

// Span locates a node in its source text, both as editor coordinates and as
// byte offsets.
type Span struct {
	Loc   position.Range
	Start int
	End   int
}

func (s Span) Range() position.Range { return s.Loc }

func (s Span) Offsets() (int, int) { return s.Start, s.End }

// Document is a parsed MON source file.
type Document struct {
	// Path identifies the document. It is the canonical path for files on
	// disk and the builtin URI for registry schemas.
	Path     string
	Source   string
	Index    *position.Index
	Imports  []*Import
	Root     Value
	Comments []*Comment
}

// Comment is a line or block comment. Doc comments start with "///".
type Comment struct {
	Span
	Text string
	Doc  bool
}

// ImportKind distinguishes the three import statement shapes.
type ImportKind int

const (
	ImportNamed     ImportKind = iota // import { a, &b } from "x"
	ImportNamespace                   // import * as ns from "x"
	ImportWildcard                    // import * from "x"
)

func (k ImportKind) String() string {
	switch k {
	case ImportNamed:
		return "named"
	case ImportNamespace:
		return "namespace"
	case ImportWildcard:
		return "wildcard"
	default:
		return "unknown"
	}
}

// Import is a single import statement.
type Import struct {
	Span
	Kind      ImportKind
	Path      string
	PathSpan  Span
	Namespace string // set for ImportNamespace
	NsSpan    Span
	Names     []*ImportName // set for ImportNamed
}

// ImportName is one binding in a named import list.
type ImportName struct {
	Span
	Name   string
	Anchor bool // written as {&name}
}

// Value is a MON value. The implementations are *Null, *Bool, *Number,
// *String, *Array, *Object, *Alias, *EnumValue, *ArraySpread and
// *Unresolved.
type Value interface {
	Node
	value()
}

type Null struct {
	Span
}

type Bool struct {
	Span
	Value bool
}

type Number struct {
	Span
	Value float64
	Text  string
}

type String struct {
	Span
	Value string
}

// Array is a bracketed list. Elements is filled by the resolver with the
// items after array spreads have been spliced in.
type Array struct {
	Span
	Items    []Value
	Elements []Value
}

// Object is a brace-delimited list of members. Entries is filled by the
// resolver with the merged view of the object: spreads expanded with
// left-to-right override, and struct defaults applied by type checking.
type Object struct {
	Span
	Members []Member
	Entries []*Entry
}

// Alias refers to an anchored value, optionally through a namespace import
// (*ns.name). Target is set by the resolver and links to the defining node
// rather than a copy of it.
type Alias struct {
	Span
	Namespace string
	Name      string
	NameSpan  Span
	Target    Value
}

// EnumValue selects an enum variant: $Enum.Variant.
type EnumValue struct {
	Span
	Namespace string
	Enum      string
	Variant   string
}

// ArraySpread splices an anchored array into an enclosing array.
type ArraySpread struct {
	Span
	Namespace string
	Name      string
	NameSpan  Span
	Target    Value
}

// Unresolved stands in for a reference the resolver could not bind. It is
// left in the resolved tree so consumers can still inspect the rest of the
// document.
type Unresolved struct {
	Span
	Ref    string
	Reason string
}

func (*Null) value()        {}
func (*Bool) value()        {}
func (*Number) value()      {}
func (*String) value()      {}
func (*Array) value()       {}
func (*Object) value()      {}
func (*Alias) value()       {}
func (*EnumValue) value()   {}
func (*ArraySpread) value() {}
func (*Unresolved) value()  {}

// Member is an object member. The implementations are *Pair, *Spread and
// *TypeDef.
type Member interface {
	Node
	member()
}

// Pair binds a key to a value. An anchored pair (&key: value) also defines
// an anchor named after its key.
type Pair struct {
	Span
	Key      string
	KeySpan  Span
	Anchored bool
	Type     *TypeRef // set for key :: Type = value
	Value    Value
	Doc      string
}

// Spread merges the members of an anchored object: ...*name.
type Spread struct {
	Span
	Namespace string
	Name      string
	NameSpan  Span
	Target    *Object
}

// TypeDef declares a named struct or enum: Name: #struct { ... }.
type TypeDef struct {
	Span
	Name     string
	NameSpan Span
	Decl     TypeDecl
	Doc      string
}

func (*Pair) member()    {}
func (*Spread) member()  {}
func (*TypeDef) member() {}

// Entry is one key of a resolved object.
type Entry struct {
	Key   string
	Value Value
	// Source is the member that contributed the value: the literal pair,
	// the spread it came through, or nil for a struct default.
	Source Member
	// Default is true when the value was filled from a struct field default.
	Default bool
}

// Lookup returns the resolved entry for key.
func (o *Object) Lookup(key string) (*Entry, bool) {
	for _, e := range o.Entries {
		if e.Key == key {
			return e, true
		}
	}
	return nil, false
}

// Pairs returns the literal pairs of o in source order.
func (o *Object) Pairs() []*Pair {
	var pairs []*Pair
	for _, m := range o.Members {
		if p, ok := m.(*Pair); ok {
			pairs = append(pairs, p)
		}
	}
	return pairs
}

// Qualified returns name prefixed by namespace when one is set.
func Qualified(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

// Deref follows alias links until it reaches a value that is not an alias.
// It stops at an unresolved alias and returns the alias itself, and it
// gives up after a bounded number of hops so that a corrupt link cycle
// cannot hang the caller.
func Deref(v Value) Value {
	for i := 0; i < 64; i++ {
		a, ok := v.(*Alias)
		if !ok || a.Target == nil {
			return v
		}
		v = a.Target
	}
	return v
}
