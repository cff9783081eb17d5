// Copyright © 2025 The MON authors

package analysis

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/monlang/mon/position"
)

// SymbolKind classifies a symbol definition. Anchors and types live in
// separate namespaces: an anchor and a type may share a name.
type SymbolKind int

const (
	SymAnchor      SymbolKind = iota + 1 // &name: value
	SymType                              // Name: #struct or #enum
	SymImport                            // a named import binding, or the path of a wildcard import
	SymNamespace                         // import * as ns
	SymField                             // struct field, named Type.field
	SymEnumVariant                       // enum variant, named Enum.Variant
)

func (k SymbolKind) String() string {
	switch k {
	case SymAnchor:
		return "anchor"
	case SymType:
		return "type"
	case SymImport:
		return "import"
	case SymNamespace:
		return "namespace"
	case SymField:
		return "field"
	case SymEnumVariant:
		return "enum-variant"
	default:
		return "unknown"
	}
}

func (k SymbolKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// Symbol is a named definition in one file.
type Symbol struct {
	Name   string         `json:"name"`
	Kind   SymbolKind     `json:"kind"`
	Range  position.Range `json:"range"`
	Detail string         `json:"detail,omitempty"`
	Doc    string         `json:"documentation,omitempty"`
	File   string         `json:"file"`
}

// Location returns the definition site of s.
func (s Symbol) Location() position.Location {
	return position.Location{URI: s.File, Range: s.Range}
}

// ReferenceKind says how a reference uses its symbol.
type ReferenceKind int

const (
	RefAlias           ReferenceKind = iota + 1 // *name
	RefSpread                                   // ...*name in an object
	RefArraySpread                              // ...*name in an array
	RefTypeAnnotation                           // :: Type, or a field type
	RefNamespaceMember                          // *ns.name, ...*ns.name or ns.Type
	RefEnumValue                                // $Enum.Variant
	RefImport                                   // use of a binding brought in by an import
)

func (k ReferenceKind) String() string {
	switch k {
	case RefAlias:
		return "alias"
	case RefSpread:
		return "spread"
	case RefArraySpread:
		return "array-spread"
	case RefTypeAnnotation:
		return "type-annotation"
	case RefNamespaceMember:
		return "namespace-member"
	case RefEnumValue:
		return "enum-value"
	case RefImport:
		return "import"
	default:
		return "unknown"
	}
}

func (k ReferenceKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// SymbolReference records one use of a symbol.
type SymbolReference struct {
	Name    string         `json:"symbol_name"`
	Kind    SymbolKind     `json:"symbol_kind"`
	Range   position.Range `json:"range"`
	RefKind ReferenceKind  `json:"reference_kind"`
	// File is the file containing the reference.
	File string `json:"file"`
	// DefFile is the file defining the referenced symbol. It is empty for a
	// dangling reference that never resolved.
	DefFile string `json:"def_file,omitempty"`
	// ChainDepth counts the import hops between the reference and the
	// definition: 0 for a local symbol, 1 for a direct import.
	ChainDepth int `json:"chain_depth,omitempty"`
}

// Location returns the site of the reference.
func (r SymbolReference) Location() position.Location {
	return position.Location{URI: r.File, Range: r.Range}
}

// Dangling reports whether the reference never resolved to a definition.
func (r SymbolReference) Dangling() bool {
	return r.DefFile == ""
}

type symbolKey struct {
	file string
	name string
	kind SymbolKind
}

// SymbolTable tracks every definition and reference of one analysis. Every
// symbol belongs to exactly one file, so two files may define the same
// anchor name without colliding; references name the file that defines
// their target.
//
// A table is filled by the resolver and read-only afterward, so concurrent
// readers need no locking.
type SymbolTable struct {
	entry   string
	symbols []Symbol
	index   map[symbolKey]int
	refs    []SymbolReference
	refsTo  map[symbolKey][]int
	files   []string
}

// NewSymbolTable returns an empty table. entry names the file FindSymbol
// searches first.
func NewSymbolTable(entry string) *SymbolTable {
	return &SymbolTable{
		entry:  entry,
		index:  make(map[symbolKey]int),
		refsTo: make(map[symbolKey][]int),
	}
}

// Entry returns the entry file of the analysis.
func (t *SymbolTable) Entry() string {
	return t.entry
}

// AddSymbol records a definition. A second definition of the same name and
// kind in the same file is rejected with a *DuplicateSymbolError carrying
// both locations; the first definition stays in the table.
func (t *SymbolTable) AddSymbol(sym Symbol) error {
	key := symbolKey{sym.File, sym.Name, sym.Kind}
	if i, ok := t.index[key]; ok {
		return &DuplicateSymbolError{Existing: t.symbols[i], Duplicate: sym}
	}
	if !t.hasFile(sym.File) {
		t.files = append(t.files, sym.File)
	}
	t.index[key] = len(t.symbols)
	t.symbols = append(t.symbols, sym)
	return nil
}

func (t *SymbolTable) hasFile(file string) bool {
	for _, f := range t.files {
		if f == file {
			return true
		}
	}
	return false
}

// AddReference records a use. References to symbols that do not exist are
// accepted and reported by Dangling.
func (t *SymbolTable) AddReference(ref SymbolReference) {
	t.refs = append(t.refs, ref)
	if ref.DefFile != "" {
		key := symbolKey{ref.DefFile, ref.Name, ref.Kind}
		t.refsTo[key] = append(t.refsTo[key], len(t.refs)-1)
	}
}

// FindSymbol returns the definition of name and kind, looking in the entry
// file first and then in the other files in the order they were added.
func (t *SymbolTable) FindSymbol(name string, kind SymbolKind) (Symbol, bool) {
	if sym, ok := t.FindSymbolIn(t.entry, name, kind); ok {
		return sym, true
	}
	for _, f := range t.files {
		if sym, ok := t.FindSymbolIn(f, name, kind); ok {
			return sym, true
		}
	}
	return Symbol{}, false
}

// FindSymbolIn returns the definition of name and kind in file.
func (t *SymbolTable) FindSymbolIn(file, name string, kind SymbolKind) (Symbol, bool) {
	i, ok := t.index[symbolKey{file, name, kind}]
	if !ok {
		return Symbol{}, false
	}
	return t.symbols[i], true
}

// FindReferences returns every resolved reference to a symbol named name
// of kind, in any file, in the order they were recorded.
func (t *SymbolTable) FindReferences(name string, kind SymbolKind) []SymbolReference {
	var out []SymbolReference
	for _, r := range t.refs {
		if r.Name == name && r.Kind == kind && !r.Dangling() {
			out = append(out, r)
		}
	}
	return out
}

// ReferencesTo returns the references that resolved to sym.
func (t *SymbolTable) ReferencesTo(sym Symbol) []SymbolReference {
	idx := t.refsTo[symbolKey{sym.File, sym.Name, sym.Kind}]
	out := make([]SymbolReference, len(idx))
	for i, j := range idx {
		out[i] = t.refs[j]
	}
	return out
}

// FindSymbolAt returns the symbol defined or referenced at pos in file. A
// definition whose range contains pos wins over a reference.
func (t *SymbolTable) FindSymbolAt(file string, pos position.Position) (Symbol, bool) {
	for _, s := range t.symbols {
		if s.File == file && s.Range.Contains(pos) {
			return s, true
		}
	}
	if r, ok := t.FindReferenceAt(file, pos); ok && !r.Dangling() {
		return t.FindSymbolIn(r.DefFile, r.Name, r.Kind)
	}
	return Symbol{}, false
}

// FindReferenceAt returns the reference at pos in file. References that use
// an import binding are shadowed by the reference to the definition itself.
func (t *SymbolTable) FindReferenceAt(file string, pos position.Position) (SymbolReference, bool) {
	var found SymbolReference
	ok := false
	for _, r := range t.refs {
		if r.File != file || !r.Range.Contains(pos) {
			continue
		}
		if !ok || found.RefKind == RefImport {
			found, ok = r, true
		}
	}
	return found, ok
}

// SymbolsByKind returns the symbols of kind ordered by file and position.
func (t *SymbolTable) SymbolsByKind(kind SymbolKind) []Symbol {
	var out []Symbol
	for _, s := range t.symbols {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	sortSymbols(out)
	return out
}

// SymbolsIn returns every symbol defined in file in source order.
func (t *SymbolTable) SymbolsIn(file string) []Symbol {
	var out []Symbol
	for _, s := range t.symbols {
		if s.File == file {
			out = append(out, s)
		}
	}
	sortSymbols(out)
	return out
}

// ReferencesIn returns every reference located in file in source order.
func (t *SymbolTable) ReferencesIn(file string) []SymbolReference {
	var out []SymbolReference
	for _, r := range t.refs {
		if r.File == file {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Range.Start.Before(out[j].Range.Start)
	})
	return out
}

// Dangling returns the references that never resolved.
func (t *SymbolTable) Dangling() []SymbolReference {
	var out []SymbolReference
	for _, r := range t.refs {
		if r.Dangling() {
			out = append(out, r)
		}
	}
	return out
}

// Unused returns the symbols of kind that have no references.
func (t *SymbolTable) Unused(kind SymbolKind) []Symbol {
	var out []Symbol
	for _, s := range t.SymbolsByKind(kind) {
		if len(t.refsTo[symbolKey{s.File, s.Name, s.Kind}]) == 0 {
			out = append(out, s)
		}
	}
	return out
}

// IsUnused reports whether sym is defined and never referenced.
func (t *SymbolTable) IsUnused(sym Symbol) bool {
	key := symbolKey{sym.File, sym.Name, sym.Kind}
	_, defined := t.index[key]
	return defined && len(t.refsTo[key]) == 0
}

// SymbolCount returns the number of definitions.
func (t *SymbolTable) SymbolCount() int { return len(t.symbols) }

// ReferenceCount returns the number of references, dangling ones included.
func (t *SymbolTable) ReferenceCount() int { return len(t.refs) }

// MarshalJSON encodes the table as its symbols and references.
func (t *SymbolTable) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Entry      string            `json:"entry"`
		Symbols    []Symbol          `json:"symbols"`
		References []SymbolReference `json:"references"`
	}{t.entry, t.symbols, t.refs})
}

func sortSymbols(syms []Symbol) {
	sort.SliceStable(syms, func(i, j int) bool {
		if syms[i].File != syms[j].File {
			return syms[i].File < syms[j].File
		}
		return syms[i].Range.Start.Before(syms[j].Range.Start)
	})
}

func (s Symbol) String() string {
	return fmt.Sprintf("%s %s (%s:%s)", s.Kind, s.Name, s.File, s.Range.Start)
}

// wildcardDetail is the Detail of the symbol recorded for an import *
// statement.
const wildcardDetail = "wildcard import"

// IsWildcardImport reports whether sym stands for a whole import * statement
// rather than a single imported name.
func IsWildcardImport(sym Symbol) bool {
	return sym.Kind == SymImport && sym.Detail == wildcardDetail
}
