// Copyright © 2025 The MON authors

package analysis

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/monlang/mon/ast"
	"github.com/monlang/mon/astutil"
	"github.com/monlang/mon/diagnostic"
	"github.com/monlang/mon/position"
)

// ResolveOptions configures Resolve.
type ResolveOptions struct {
	Logger *slog.Logger
}

// Resolution is the outcome of resolving an import graph.
type Resolution struct {
	// Scopes maps each file path to the scope of names visible in it.
	Scopes map[string]*Scope
	// Diagnostics holds the resolution and type errors of every file. Each
	// diagnostic names its file.
	Diagnostics []diagnostic.Diagnostic
}

// Resolve binds every alias, spread, enum value and type annotation of the
// files in g, recording definitions and references in table.
//
// Files are processed in g.Order, so the files a file imports are complete
// before it is resolved. Resolution links rather than copies: an alias's
// Target is the anchored value itself, objects gain their merged Entries
// and arrays their spliced Elements. References that cannot be bound are
// replaced by *ast.Unresolved markers and reported as diagnostics.
func Resolve(g *Graph, table *SymbolTable, opts ResolveOptions) *Resolution {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &resolver{
		table:    table,
		scopes:   make(map[string]*Scope),
		enumDefs: make(map[*ast.EnumValue]*ast.TypeDef),
		log:      logger,
	}
	for _, n := range g.Order {
		r.resolveFile(n)
	}
	return &Resolution{Scopes: r.scopes, Diagnostics: r.diags}
}

type resolver struct {
	table    *SymbolTable
	scopes   map[string]*Scope
	enumDefs map[*ast.EnumValue]*ast.TypeDef
	diags    []diagnostic.Diagnostic
	log      *slog.Logger
}

// fileState is the per-file state of a resolution pass.
type fileState struct {
	node  *FileNode
	scope *Scope
	// done marks pairs whose values have been resolved. Anchored pairs may
	// be resolved ahead of the walk when referenced before their definition.
	done map[*ast.Pair]bool
}

type anchorKey struct {
	file string
	name string
}

// resolving is the chain of anchors being resolved, outermost first. It is
// passed down by value; with never modifies the receiver's backing array.
type resolving []anchorKey

func (r resolving) with(k anchorKey) resolving {
	return append(r[:len(r):len(r)], k)
}

func (r resolving) index(k anchorKey) int {
	for i, v := range r {
		if v == k {
			return i
		}
	}
	return -1
}

func (r *resolver) report(fs *fileState, d diagnostic.Diagnostic) {
	d.File = fs.node.Path
	r.diags = append(r.diags, d)
}

func (r *resolver) resolveFile(n *FileNode) {
	imports := NewScope(ScopeImports, nil, n)
	fs := &fileState{
		node:  n,
		scope: NewScope(ScopeFile, imports, n),
		done:  make(map[*ast.Pair]bool),
	}
	r.scopes[n.Path] = fs.scope
	r.bindImports(fs, imports)
	r.defineLocals(fs)
	if n.Doc.Root != nil {
		n.Doc.Root = r.resolveValue(fs, n.Doc.Root, nil)
	}
	r.log.Debug("resolved file", "path", n.Path, "symbols", len(r.table.SymbolsIn(n.Path)))
}

// addSymbol records sym, reporting a redefinition with code.
func (r *resolver) addSymbol(fs *fileState, sym Symbol, code diagnostic.Code, what string) bool {
	err := r.table.AddSymbol(sym)
	if err == nil {
		return true
	}
	dup, ok := err.(*DuplicateSymbolError)
	if !ok {
		return false
	}
	d := diagnostic.New(code, sym.Range, "%s '%s' is already defined", what, sym.Name)
	d.Related = []diagnostic.Related{{Location: dup.Existing.Location(), Message: "first defined here"}}
	r.report(fs, d)
	return false
}

// defineLocals records the anchors and types defined in the file and binds
// them in the file scope.
func (r *resolver) defineLocals(fs *fileState) {
	path := fs.node.Path
	astutil.WalkMembers(fs.node.Doc.Root, func(m ast.Member, _ *ast.Object) {
		switch m := m.(type) {
		case *ast.Pair:
			if !m.Anchored {
				return
			}
			detail := astutil.Preview(m.Value)
			if m.Type != nil {
				detail = m.Type.String() + " = " + detail
			}
			sym := Symbol{Name: m.Key, Kind: SymAnchor, Range: m.KeySpan.Range(), Detail: detail, Doc: m.Doc, File: path}
			if r.addSymbol(fs, sym, diagnostic.DuplicateKey, "Anchor") {
				fs.scope.Define(SymAnchor, m.Key, &Binding{Symbol: sym, File: fs.node, Pair: m})
			}
		case *ast.TypeDef:
			sym := Symbol{Name: m.Name, Kind: SymType, Range: m.NameSpan.Range(), Detail: typeDetail(m), Doc: m.Doc, File: path}
			if !r.addSymbol(fs, sym, diagnostic.DuplicateKey, "Type") {
				return
			}
			fs.scope.Define(SymType, m.Name, &Binding{Symbol: sym, File: fs.node, Type: m})
			r.defineMembers(fs, m)
		case *ast.Spread:
		default:
			panic(fmt.Sprintf("analysis: unhandled member %T", m))
		}
	})
}

// defineMembers records the fields of a struct or the variants of an enum.
func (r *resolver) defineMembers(fs *fileState, td *ast.TypeDef) {
	switch decl := td.Decl.(type) {
	case *ast.StructType:
		for _, f := range decl.Fields {
			detail := f.Type.String()
			if f.Default != nil {
				detail += " = " + astutil.Preview(f.Default)
			}
			r.addSymbol(fs, Symbol{
				Name:   td.Name + "." + f.Name,
				Kind:   SymField,
				Range:  f.NameSpan.Range(),
				Detail: detail,
				Doc:    f.Doc,
				File:   fs.node.Path,
			}, diagnostic.DuplicateKey, "Field")
		}
	case *ast.EnumType:
		for _, v := range decl.Variants {
			r.addSymbol(fs, Symbol{
				Name:   td.Name + "." + v.Name,
				Kind:   SymEnumVariant,
				Range:  v.Range(),
				Detail: "$" + td.Name + "." + v.Name,
				File:   fs.node.Path,
			}, diagnostic.DuplicateKey, "Variant")
		}
	default:
		panic(fmt.Sprintf("analysis: unhandled type declaration %T", decl))
	}
}

func typeDetail(td *ast.TypeDef) string {
	switch decl := td.Decl.(type) {
	case *ast.StructType:
		fields := make([]string, len(decl.Fields))
		for i, f := range decl.Fields {
			fields[i] = f.Name + "(" + f.Type.String() + ")"
		}
		if decl.Open {
			fields = append(fields, "...")
		}
		return "#struct { " + strings.Join(fields, ", ") + " }"
	case *ast.EnumType:
		return "#enum { " + strings.Join(decl.VariantNames(), ", ") + " }"
	default:
		panic(fmt.Sprintf("analysis: unhandled type declaration %T", decl))
	}
}

// bindImports records the import symbols of the file and binds what they
// import in the imports scope.
func (r *resolver) bindImports(fs *fileState, imports *Scope) {
	path := fs.node.Path
	for _, edge := range fs.node.Imports {
		imp := edge.Decl
		var target *Scope
		if edge.File != nil {
			target = r.scopes[edge.Target]
		}
		switch imp.Kind {
		case ast.ImportNamed:
			for _, name := range imp.Names {
				sym := Symbol{Name: name.Name, Kind: SymImport, Range: name.Range(), Detail: "import from " + imp.Path, File: path}
				if !r.addSymbol(fs, sym, diagnostic.AmbiguousImport, "Import") || target == nil {
					continue
				}
				via := &sym
				bound := false
				if !name.Anchor {
					if b := target.Lookup(SymType, name.Name); b != nil {
						r.bindImported(fs, imports, SymType, name.Name, b, via, name.Range())
						bound = true
					}
				}
				if b := target.Lookup(SymAnchor, name.Name); b != nil {
					r.bindImported(fs, imports, SymAnchor, name.Name, b, via, name.Range())
					bound = true
				}
				if !bound {
					kind := SymType
					if name.Anchor {
						kind = SymAnchor
					}
					d := diagnostic.New(diagnostic.UndefinedNamespaceMember, name.Range(),
						"'%s' is not exported by %s", name.Name, imp.Path)
					r.withSuggestion(&d, name.Name, target, kind)
					r.report(fs, d)
				}
			}
		case ast.ImportNamespace:
			sym := Symbol{Name: imp.Namespace, Kind: SymNamespace, Range: imp.NsSpan.Range(), Detail: "namespace import from " + imp.Path, File: path}
			if !r.addSymbol(fs, sym, diagnostic.AmbiguousImport, "Namespace") {
				continue
			}
			imports.Namespaces[imp.Namespace] = &Namespace{Symbol: sym, File: edge.File, Scope: target}
		case ast.ImportWildcard:
			sym := Symbol{Name: imp.Path, Kind: SymImport, Range: imp.PathSpan.Range(), Detail: wildcardDetail, File: path}
			if !r.addSymbol(fs, sym, diagnostic.AmbiguousImport, "Module") || target == nil {
				continue
			}
			via := &sym
			for _, kind := range []SymbolKind{SymType, SymAnchor} {
				vis := target.Visible(kind)
				names := make([]string, 0, len(vis))
				for n := range vis {
					names = append(names, n)
				}
				sort.Strings(names)
				for _, n := range names {
					r.bindImported(fs, imports, kind, n, vis[n], via, imp.PathSpan.Range())
				}
			}
		default:
			panic(fmt.Sprintf("analysis: unhandled import kind %v", imp.Kind))
		}
	}
}

// bindImported binds b, visible in an imported file, under name in the
// imports scope. Binding the same definition twice is harmless; binding a
// different definition under a name already imported is ambiguous.
func (r *resolver) bindImported(fs *fileState, imports *Scope, kind SymbolKind, name string, b *Binding, via *Symbol, rng position.Range) {
	nb := &Binding{Symbol: b.Symbol, File: b.File, Pair: b.Pair, Type: b.Type, Depth: b.Depth + 1, Via: via}
	existing, ok := imports.Define(kind, name, nb)
	if !ok {
		if existing.Symbol.File == b.Symbol.File && existing.Symbol.Name == b.Symbol.Name {
			return
		}
		d := diagnostic.New(diagnostic.AmbiguousImport, rng,
			"'%s' is imported from both %s and %s", name, existing.Symbol.File, b.Symbol.File)
		if existing.Via != nil {
			d.Related = []diagnostic.Related{{Location: existing.Via.Location(), Message: "first imported here"}}
		}
		r.report(fs, d)
		return
	}
	if b.Via != nil {
		// Re-exporting an import counts as using it.
		r.table.AddReference(SymbolReference{
			Name: b.Via.Name, Kind: b.Via.Kind, Range: rng, RefKind: RefImport,
			File: fs.node.Path, DefFile: b.Via.File,
		})
	}
}

// lookup finds the binding of a possibly namespace-qualified name. On
// failure it reports a diagnostic, records a dangling reference and
// returns the reason.
func (r *resolver) lookup(fs *fileState, kind SymbolKind, ns, name string, rng position.Range, what string) (*Binding, *Namespace, string) {
	dangling := func() {
		r.table.AddReference(SymbolReference{Name: name, Kind: kind, Range: rng, File: fs.node.Path})
	}
	if ns == "" {
		if b := fs.scope.Lookup(kind, name); b != nil {
			return b, nil, ""
		}
		code := diagnostic.UndefinedAnchor
		switch what {
		case "type":
			code = diagnostic.UndefinedType
		case "enum":
			code = diagnostic.UndefinedEnumVariant
		}
		d := diagnostic.New(code, rng, "Undefined %s '%s'", what, name)
		r.withSuggestion(&d, name, fs.scope, kind)
		r.report(fs, d)
		dangling()
		return nil, nil, d.Message
	}

	n := fs.scope.LookupNamespace(ns)
	if n == nil {
		d := diagnostic.New(diagnostic.UndefinedNamespaceMember, rng, "Unknown namespace '%s'", ns)
		if s, ok := Suggest(ns, fs.scope.NamespaceNames()); ok {
			d.Message += fmt.Sprintf(". Did you mean '%s'?", s)
		}
		r.report(fs, d)
		dangling()
		return nil, nil, d.Message
	}
	r.table.AddReference(SymbolReference{
		Name: n.Symbol.Name, Kind: SymNamespace, Range: rng, RefKind: RefImport,
		File: fs.node.Path, DefFile: fs.node.Path,
	})
	if n.Scope == nil {
		// The import itself failed and has been reported.
		dangling()
		return nil, nil, fmt.Sprintf("namespace '%s' could not be loaded", ns)
	}
	if b := n.Scope.Lookup(kind, name); b != nil {
		return b, n, ""
	}
	d := diagnostic.New(diagnostic.UndefinedNamespaceMember, rng, "%s '%s' is not defined in namespace '%s'", what, name, ns)
	d.Message = strings.ToUpper(d.Message[:1]) + d.Message[1:]
	r.withSuggestion(&d, name, n.Scope, kind)
	r.report(fs, d)
	dangling()
	return nil, nil, d.Message
}

// withSuggestion attaches a "did you mean" hint for a misspelled name. The
// hint points at the suggested definition when it has a location.
func (r *resolver) withSuggestion(d *diagnostic.Diagnostic, name string, scope *Scope, kind SymbolKind) {
	candidates := scope.Names(kind)
	if kind == SymType {
		candidates = append(candidates, ast.TypeString, ast.TypeNumber, ast.TypeBoolean,
			ast.TypeNull, ast.TypeAny, ast.TypeObject, ast.TypeArray)
	}
	s, ok := Suggest(name, candidates)
	if !ok {
		return
	}
	if b := scope.Lookup(kind, s); b != nil {
		d.Related = append(d.Related, diagnostic.Related{
			Location: b.Symbol.Location(),
			Message:  fmt.Sprintf("did you mean '%s'?", s),
		})
		return
	}
	d.Message += fmt.Sprintf(". Did you mean '%s'?", s)
}

// recordRef records a resolved reference to b, plus the use of the import
// or namespace that made b visible.
func (r *resolver) recordRef(fs *fileState, b *Binding, ns *Namespace, kind SymbolKind, refKind ReferenceKind, rng position.Range) {
	depth := b.Depth
	if ns != nil {
		depth++
		refKind = RefNamespaceMember
	}
	r.table.AddReference(SymbolReference{
		Name: b.Symbol.Name, Kind: kind, Range: rng, RefKind: refKind,
		File: fs.node.Path, DefFile: b.Symbol.File, ChainDepth: depth,
	})
	if b.Via != nil {
		r.table.AddReference(SymbolReference{
			Name: b.Via.Name, Kind: b.Via.Kind, Range: rng, RefKind: RefImport,
			File: fs.node.Path, DefFile: b.Via.File,
		})
	}
}

// anchorCycle is returned when an anchor is reached again while it is
// still being resolved.
type anchorCycle struct {
	path []string
}

func (c *anchorCycle) Error() string {
	return "Circular anchor reference: " + strings.Join(c.path, " -> ")
}

// ensureAnchor resolves the value of an anchor of the current file if that
// has not happened yet. Anchors of other files are already resolved.
func (r *resolver) ensureAnchor(fs *fileState, b *Binding, chain resolving) error {
	if b.File != fs.node {
		return nil
	}
	key := anchorKey{fs.node.Path, b.Symbol.Name}
	if i := chain.index(key); i >= 0 {
		var path []string
		for _, k := range chain[i:] {
			path = append(path, k.name)
		}
		return &anchorCycle{path: append(path, key.name)}
	}
	if fs.done[b.Pair] {
		return nil
	}
	r.resolvePairValue(fs, b.Pair, chain.with(key))
	return nil
}

// bindAnchorRef resolves a reference to an anchor and returns the anchored
// value. On failure it returns the reason and the reference is reported.
func (r *resolver) bindAnchorRef(fs *fileState, ns, name string, rng position.Range, refKind ReferenceKind, chain resolving) (ast.Value, string) {
	b, n, reason := r.lookup(fs, SymAnchor, ns, name, rng, "anchor")
	if reason != "" {
		return nil, reason
	}
	r.recordRef(fs, b, n, SymAnchor, refKind, rng)
	if err := r.ensureAnchor(fs, b, chain); err != nil {
		r.report(fs, diagnostic.New(diagnostic.CircularAnchorReference, rng, "%s", err.Error()))
		return nil, err.Error()
	}
	return b.Pair.Value, ""
}

func (r *resolver) resolveValue(fs *fileState, v ast.Value, chain resolving) ast.Value {
	switch v := v.(type) {
	case *ast.Null, *ast.Bool, *ast.Number, *ast.String, *ast.Unresolved:
		return v
	case *ast.EnumValue:
		return r.resolveEnumValue(fs, v)
	case *ast.Alias:
		target, reason := r.bindAnchorRef(fs, v.Namespace, v.Name, v.NameSpan.Range(), RefAlias, chain)
		if reason != "" {
			return &ast.Unresolved{Span: v.Span, Ref: "*" + ast.Qualified(v.Namespace, v.Name), Reason: reason}
		}
		v.Target = target
		return v
	case *ast.ArraySpread:
		// Only meaningful inside an array, where resolveArray handles it.
		return v
	case *ast.Array:
		r.resolveArray(fs, v, chain)
		return v
	case *ast.Object:
		r.resolveObject(fs, v, chain)
		return v
	default:
		panic(fmt.Sprintf("analysis: unhandled value %T", v))
	}
}

func (r *resolver) resolveEnumValue(fs *fileState, v *ast.EnumValue) ast.Value {
	ref := "$" + ast.Qualified(ast.Qualified(v.Namespace, v.Enum), v.Variant)
	unresolved := func(reason string) ast.Value {
		return &ast.Unresolved{Span: v.Span, Ref: ref, Reason: reason}
	}
	b, n, reason := r.lookup(fs, SymType, v.Namespace, v.Enum, v.Range(), "enum")
	if reason != "" {
		return unresolved(reason)
	}
	r.recordRef(fs, b, n, SymType, RefEnumValue, v.Range())
	enum, ok := b.Type.Decl.(*ast.EnumType)
	if !ok {
		d := diagnostic.New(diagnostic.UndefinedEnumVariant, v.Range(), "'%s' is not an enum", v.Enum)
		r.report(fs, d)
		return unresolved(d.Message)
	}
	if !enum.Has(v.Variant) {
		d := diagnostic.New(diagnostic.UndefinedEnumVariant, v.Range(), "Enum '%s' has no variant '%s'", v.Enum, v.Variant)
		if s, ok := Suggest(v.Variant, enum.VariantNames()); ok {
			d.Message += fmt.Sprintf(". Did you mean '%s'?", s)
		}
		r.report(fs, d)
		return unresolved(d.Message)
	}
	r.table.AddReference(SymbolReference{
		Name: b.Symbol.Name + "." + v.Variant, Kind: SymEnumVariant, Range: v.Range(), RefKind: RefEnumValue,
		File: fs.node.Path, DefFile: b.Symbol.File, ChainDepth: b.Depth,
	})
	r.enumDefs[v] = b.Type
	return v
}

func (r *resolver) resolveArray(fs *fileState, arr *ast.Array, chain resolving) {
	arr.Elements = nil
	for i, item := range arr.Items {
		sp, ok := item.(*ast.ArraySpread)
		if !ok {
			v := r.resolveValue(fs, item, chain)
			arr.Items[i] = v
			arr.Elements = append(arr.Elements, v)
			continue
		}
		target, reason := r.bindAnchorRef(fs, sp.Namespace, sp.Name, sp.NameSpan.Range(), RefArraySpread, chain)
		if reason != "" {
			arr.Items[i] = &ast.Unresolved{Span: sp.Span, Ref: "...*" + ast.Qualified(sp.Namespace, sp.Name), Reason: reason}
			continue
		}
		switch src := ast.Deref(target).(type) {
		case *ast.Array:
			sp.Target = src
			arr.Elements = append(arr.Elements, src.Elements...)
		case *ast.Unresolved:
		default:
			r.report(fs, diagnostic.New(diagnostic.SpreadOnNonArray, sp.Range(),
				"Cannot spread %s '%s' into an array", astutil.KindName(src), sp.Name))
		}
	}
}

// resolveObject resolves the members of obj and computes its merged
// entries. Members apply left to right: a spread or a literal pair
// overrides a key contributed earlier by a spread. Two literal pairs with
// the same key are a duplicate-key error, not an override, so the first
// literal value is kept.
func (r *resolver) resolveObject(fs *fileState, obj *ast.Object, chain resolving) {
	obj.Entries = nil
	index := make(map[string]int)
	literal := make(map[string]bool)
	put := func(key string, v ast.Value, src ast.Member, isLiteral bool) {
		i, ok := index[key]
		if !ok {
			index[key] = len(obj.Entries)
			obj.Entries = append(obj.Entries, &ast.Entry{Key: key, Value: v, Source: src})
			literal[key] = isLiteral
			return
		}
		if isLiteral && literal[key] {
			return
		}
		obj.Entries[i] = &ast.Entry{Key: key, Value: v, Source: src}
		literal[key] = literal[key] || isLiteral
	}
	for _, m := range obj.Members {
		switch m := m.(type) {
		case *ast.Pair:
			r.resolvePair(fs, m, chain)
			put(m.Key, m.Value, m, true)
		case *ast.Spread:
			target := r.resolveSpread(fs, m, chain)
			if target == nil {
				continue
			}
			for _, e := range target.Entries {
				put(e.Key, e.Value, m, false)
			}
		case *ast.TypeDef:
			r.resolveTypeDef(fs, m, chain)
		default:
			panic(fmt.Sprintf("analysis: unhandled member %T", m))
		}
	}
}

func (r *resolver) resolveSpread(fs *fileState, sp *ast.Spread, chain resolving) *ast.Object {
	target, reason := r.bindAnchorRef(fs, sp.Namespace, sp.Name, sp.NameSpan.Range(), RefSpread, chain)
	if reason != "" {
		return nil
	}
	switch src := ast.Deref(target).(type) {
	case *ast.Object:
		sp.Target = src
		return src
	case *ast.Unresolved:
	default:
		r.report(fs, diagnostic.New(diagnostic.SpreadOnNonObject, sp.Range(),
			"Cannot spread %s '%s' into an object", astutil.KindName(src), sp.Name))
	}
	return nil
}

// resolvePair resolves a pair met during the walk. The first definition of
// an anchor is resolved as that anchor, so that a reference back to it from
// inside its own value is detected as a cycle.
func (r *resolver) resolvePair(fs *fileState, p *ast.Pair, chain resolving) {
	if p.Anchored {
		if b := fs.scope.LookupLocal(SymAnchor, p.Key); b != nil && b.Pair == p {
			// The anchor itself is never on the chain here.
			_ = r.ensureAnchor(fs, b, chain)
			return
		}
	}
	r.resolvePairValue(fs, p, chain)
}

func (r *resolver) resolvePairValue(fs *fileState, p *ast.Pair, chain resolving) {
	if fs.done[p] {
		return
	}
	fs.done[p] = true
	p.Value = r.resolveValue(fs, p.Value, chain)
	if p.Type != nil {
		r.checkAnnotation(fs, p)
	}
}

func (r *resolver) resolveTypeDef(fs *fileState, td *ast.TypeDef, chain resolving) {
	st, ok := td.Decl.(*ast.StructType)
	if !ok {
		return
	}
	for _, f := range st.Fields {
		r.resolveTypeRef(fs, f.Type)
		if f.Default != nil {
			f.Default = r.resolveValue(fs, f.Default, chain)
		}
	}
}

// resolveTypeRef binds the named type of t, recording the reference. It
// returns false when the type is undefined.
func (r *resolver) resolveTypeRef(fs *fileState, t *ast.TypeRef) bool {
	if t == nil {
		return true
	}
	if t.Elem != nil {
		return r.resolveTypeRef(fs, t.Elem)
	}
	if t.Namespace == "" && ast.IsBuiltinType(t.Name) {
		return true
	}
	b, n, reason := r.lookup(fs, SymType, t.Namespace, t.Name, t.Range(), "type")
	if reason != "" {
		return false
	}
	r.recordRef(fs, b, n, SymType, RefTypeAnnotation, t.Range())
	return true
}
