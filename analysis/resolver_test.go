// Copyright © 2025 The MON authors

package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monlang/mon/ast"
	"github.com/monlang/mon/diagnostic"
	"github.com/monlang/mon/position"
)

type analyzed struct {
	graph *Graph
	table *SymbolTable
	res   *Resolution
}

func analyze(t *testing.T, entry string, files map[string]string) *analyzed {
	t.Helper()
	g, err := loadMap(t, entry, files)
	require.NoError(t, err)
	table := NewSymbolTable(g.Entry.Path)
	return &analyzed{graph: g, table: table, res: Resolve(g, table, ResolveOptions{})}
}

func analyzeOne(t *testing.T, src string) *analyzed {
	t.Helper()
	return analyze(t, "/main.mon", map[string]string{"/main.mon": src})
}

func (a *analyzed) codes() []diagnostic.Code {
	var out []diagnostic.Code
	for _, d := range a.res.Diagnostics {
		out = append(out, d.Code)
	}
	return out
}

func (a *analyzed) root(t *testing.T) *ast.Object {
	t.Helper()
	obj, ok := a.graph.Entry.Doc.Root.(*ast.Object)
	require.True(t, ok)
	return obj
}

// entry returns the dereferenced value of a resolved key of obj.
func entry(t *testing.T, obj *ast.Object, key string) ast.Value {
	t.Helper()
	e, ok := obj.Lookup(key)
	require.True(t, ok, "missing key %q", key)
	return ast.Deref(e.Value)
}

func keys(obj *ast.Object) []string {
	var out []string
	for _, e := range obj.Entries {
		out = append(out, e.Key)
	}
	return out
}

func number(t *testing.T, v ast.Value) float64 {
	t.Helper()
	n, ok := ast.Deref(v).(*ast.Number)
	require.True(t, ok, "not a number: %T", v)
	return n.Value
}

// posOf returns the position of the n-th occurrence (0-based) of needle in
// the entry source.
func (a *analyzed) posOf(t *testing.T, needle string, n int) position.Position {
	t.Helper()
	src := a.graph.Entry.Doc.Source
	off := -1
	for i := 0; i <= n; i++ {
		j := strings.Index(src[off+1:], needle)
		require.GreaterOrEqual(t, j, 0, "%q occurrence %d not found", needle, n)
		off += j + 1
	}
	return a.graph.Entry.Doc.Index.MustPosition(off)
}

func TestResolveSpreadChain(t *testing.T) {
	a := analyzeOne(t, `{ &a: { x: 1 }, &b: { ...*a, y: 2 }, out: *b }`)
	assert.Empty(t, a.res.Diagnostics)

	out, ok := entry(t, a.root(t), "out").(*ast.Object)
	require.True(t, ok)
	assert.Equal(t, []string{"x", "y"}, keys(out))
	assert.Equal(t, 1.0, number(t, entry(t, out, "x")))
	assert.Equal(t, 2.0, number(t, entry(t, out, "y")))
}

func TestResolveSpreadOverrideOrder(t *testing.T) {
	a := analyzeOne(t, `{
  &base: { x: 1, y: 1, z: 1 },
  o: { x: 0, ...*base, y: 2 },
}`)
	assert.Empty(t, a.res.Diagnostics)
	o := entry(t, a.root(t), "o").(*ast.Object)
	assert.Equal(t, []string{"x", "y", "z"}, keys(o))
	assert.Equal(t, 1.0, number(t, entry(t, o, "x")), "spread overrides an earlier literal")
	assert.Equal(t, 2.0, number(t, entry(t, o, "y")), "literal overrides an earlier spread")

	e, _ := o.Lookup("z")
	_, isSpread := e.Source.(*ast.Spread)
	assert.True(t, isSpread)
}

func TestResolveAliasLinksTarget(t *testing.T) {
	a := analyzeOne(t, `{ &cfg: { port: 80 }, a: *cfg, b: *cfg }`)
	require.Empty(t, a.res.Diagnostics)
	root := a.root(t)
	assert.Same(t, entry(t, root, "a"), entry(t, root, "b"))
	assert.Same(t, entry(t, root, "cfg"), entry(t, root, "a"))
}

func TestResolveForwardReference(t *testing.T) {
	a := analyzeOne(t, `{ early: *late, &late: { ...*later }, &later: { v: 1 } }`)
	require.Empty(t, a.res.Diagnostics)
	early := entry(t, a.root(t), "early").(*ast.Object)
	assert.Equal(t, []string{"v"}, keys(early))
}

func TestResolveArraySpread(t *testing.T) {
	a := analyzeOne(t, `{ &xs: [1, 2], &ys: [0, ...*xs], all: [...*ys, 3] }`)
	require.Empty(t, a.res.Diagnostics)
	all := entry(t, a.root(t), "all").(*ast.Array)
	require.Len(t, all.Elements, 4)
	for i, want := range []float64{0, 1, 2, 3} {
		assert.Equal(t, want, number(t, all.Elements[i]))
	}
	assert.Len(t, all.Items, 2, "items keep the source shape")
}

func TestResolveDuplicateAnchor(t *testing.T) {
	a := analyzeOne(t, `{ &timeout: 1, &timeout: 2, t: *timeout }`)
	require.Equal(t, []diagnostic.Code{diagnostic.DuplicateKey}, a.codes())
	d := a.res.Diagnostics[0]
	assert.Equal(t, "Anchor 'timeout' is already defined", d.Message)
	assert.Equal(t, a.posOf(t, "timeout", 1), d.Range.Start)
	require.Len(t, d.Related, 1)
	assert.Equal(t, "first defined here", d.Related[0].Message)
	assert.Equal(t, a.posOf(t, "timeout", 0), d.Related[0].Location.Range.Start)

	assert.Equal(t, 1.0, number(t, entry(t, a.root(t), "t")), "the first definition wins")
}

func TestResolveUndefinedAnchorSuggestion(t *testing.T) {
	a := analyzeOne(t, `{ &timeout: 30, t: *timout }`)
	require.Equal(t, []diagnostic.Code{diagnostic.UndefinedAnchor}, a.codes())
	d := a.res.Diagnostics[0]
	assert.Equal(t, "Undefined anchor 'timout'", d.Message)
	assert.Equal(t, "/main.mon", d.File)
	require.Len(t, d.Related, 1)
	assert.Equal(t, "did you mean 'timeout'?", d.Related[0].Message)

	u, ok := entry(t, a.root(t), "t").(*ast.Unresolved)
	require.True(t, ok)
	assert.Equal(t, "*timout", u.Ref)

	dangling := a.table.Dangling()
	require.Len(t, dangling, 1)
	assert.Equal(t, "timout", dangling[0].Name)
}

func TestResolveCircularAnchors(t *testing.T) {
	a := analyzeOne(t, `{ &a: { ...*b }, &b: { ...*a } }`)
	require.Equal(t, []diagnostic.Code{diagnostic.CircularAnchorReference}, a.codes())
	assert.Equal(t, "Circular anchor reference: a -> b -> a", a.res.Diagnostics[0].Message)
}

func TestResolveSelfReference(t *testing.T) {
	a := analyzeOne(t, `{ &node: { next: *node } }`)
	require.Equal(t, []diagnostic.Code{diagnostic.CircularAnchorReference}, a.codes())
	assert.Equal(t, "Circular anchor reference: node -> node", a.res.Diagnostics[0].Message)
	next := entry(t, entry(t, a.root(t), "node").(*ast.Object), "next")
	assert.IsType(t, &ast.Unresolved{}, next)
}

func TestResolveSpreadKindErrors(t *testing.T) {
	a := analyzeOne(t, `{ &n: 1, &o: { k: 1 }, x: { ...*n }, y: [...*o] }`)
	assert.Equal(t, []diagnostic.Code{diagnostic.SpreadOnNonObject, diagnostic.SpreadOnNonArray}, a.codes())
	assert.Equal(t, "Cannot spread number 'n' into an object", a.res.Diagnostics[0].Message)
	assert.Equal(t, "Cannot spread object 'o' into an array", a.res.Diagnostics[1].Message)
	y := entry(t, a.root(t), "y").(*ast.Array)
	assert.Empty(t, y.Elements)
}

func TestResolveEnumValues(t *testing.T) {
	a := analyzeOne(t, `{
  Status: #enum { Active, Inactive },
  ok: $Status.Active,
  typo: $Status.Actve,
  missing: $Zebra.Red,
}`)
	assert.Equal(t, []diagnostic.Code{diagnostic.UndefinedEnumVariant, diagnostic.UndefinedEnumVariant}, a.codes())
	assert.Equal(t, "Enum 'Status' has no variant 'Actve'. Did you mean 'Active'?", a.res.Diagnostics[0].Message)
	assert.Equal(t, "Undefined enum 'Zebra'", a.res.Diagnostics[1].Message)

	refs := a.table.FindReferences("Status.Active", SymEnumVariant)
	assert.Len(t, refs, 1)
	assert.Len(t, a.table.Unused(SymEnumVariant), 1)
}

func TestResolveImports(t *testing.T) {
	a := analyze(t, "/main.mon", map[string]string{
		"/main.mon": `import { Config, &defaults } from "./lib.mon"
import * as lib from "./lib.mon"
{
  c :: Config = { ...*defaults },
  p: *lib.port,
}`,
		"/lib.mon": `{
  Config: #struct { port(Number), host(String) = "localhost" },
  &port: 8080,
  &defaults: { port: *port },
}`,
	})
	require.Empty(t, a.res.Diagnostics)

	c := entry(t, a.root(t), "c").(*ast.Object)
	assert.Equal(t, []string{"port", "host"}, keys(c))
	host, _ := c.Lookup("host")
	assert.True(t, host.Default)
	assert.Equal(t, 8080.0, number(t, entry(t, a.root(t), "p")))

	refs := a.table.FindReferences("defaults", SymAnchor)
	require.Len(t, refs, 1)
	assert.Equal(t, "/lib.mon", refs[0].DefFile)
	assert.Equal(t, 1, refs[0].ChainDepth)
	assert.Equal(t, RefSpread, refs[0].RefKind)

	portRefs := a.table.FindReferences("port", SymAnchor)
	var fromMain []SymbolReference
	for _, r := range portRefs {
		if r.File == "/main.mon" {
			fromMain = append(fromMain, r)
		}
	}
	require.Len(t, fromMain, 1)
	assert.Equal(t, RefNamespaceMember, fromMain[0].RefKind)
	assert.Equal(t, 1, fromMain[0].ChainDepth)

	for _, kind := range []SymbolKind{SymImport, SymNamespace} {
		for _, s := range a.table.Unused(kind) {
			assert.NotEqual(t, "/main.mon", s.File, "%s %s is used", kind, s.Name)
		}
	}
}

func TestResolveReexportChainDepth(t *testing.T) {
	a := analyze(t, "/a.mon", map[string]string{
		"/a.mon": `import { &x } from "./b.mon" { y: *x }`,
		"/b.mon": `import { &x } from "./c.mon" {}`,
		"/c.mon": `{ &x: 1 }`,
	})
	require.Empty(t, a.res.Diagnostics)
	refs := a.table.FindReferences("x", SymAnchor)
	require.Len(t, refs, 1)
	assert.Equal(t, "/c.mon", refs[0].DefFile)
	assert.Equal(t, 2, refs[0].ChainDepth)

	imp, ok := a.table.FindSymbolIn("/b.mon", "x", SymImport)
	require.True(t, ok)
	assert.False(t, a.table.IsUnused(imp), "re-exported imports count as used")
}

func TestResolveImportErrors(t *testing.T) {
	a := analyze(t, "/main.mon", map[string]string{
		"/main.mon": `import { Confg } from "./lib.mon"
import * as config from "./lib.mon"
import * as config from "./other.mon"
{ a: *config.nope, b: *confg.port }`,
		"/lib.mon":   `{ Config: #struct { port(Number) }, &port: 1 }`,
		"/other.mon": `{}`,
	})
	var msgs []string
	for _, d := range a.res.Diagnostics {
		msgs = append(msgs, d.Code.ID()+" "+d.Message)
	}
	assert.Equal(t, []string{
		"LINT5010 'Confg' is not exported by ./lib.mon",
		"LINT5011 Namespace 'config' is already defined",
		"LINT5010 Anchor 'nope' is not defined in namespace 'config'",
		"LINT5010 Unknown namespace 'confg'. Did you mean 'config'?",
	}, msgs)
	require.NotEmpty(t, a.res.Diagnostics[0].Related)
	assert.Equal(t, "did you mean 'Config'?", a.res.Diagnostics[0].Related[0].Message)
}

func TestResolveAmbiguousWildcardImports(t *testing.T) {
	a := analyze(t, "/main.mon", map[string]string{
		"/main.mon": `import * from "./a.mon"
import * from "./b.mon"
{ v: *shared }`,
		"/a.mon": `{ &shared: 1 }`,
		"/b.mon": `{ &shared: 2 }`,
	})
	require.Equal(t, []diagnostic.Code{diagnostic.AmbiguousImport}, a.codes())
	assert.Equal(t, "'shared' is imported from both /a.mon and /b.mon", a.res.Diagnostics[0].Message)
	assert.Equal(t, 1.0, number(t, entry(t, a.root(t), "v")))
}

func TestResolveLocalShadowsImport(t *testing.T) {
	a := analyze(t, "/main.mon", map[string]string{
		"/main.mon": `import * from "./lib.mon" { &v: 2, out: *v }`,
		"/lib.mon":  `{ &v: 1 }`,
	})
	require.Empty(t, a.res.Diagnostics)
	assert.Equal(t, 2.0, number(t, entry(t, a.root(t), "out")))
}

func TestResolveFindSymbolAt(t *testing.T) {
	a := analyzeOne(t, `{ &base: { x: 1 }, copy: *base, more: { ...*base } }`)
	require.Empty(t, a.res.Diagnostics)

	sym, ok := a.table.FindSymbolAt("/main.mon", a.posOf(t, "base", 1))
	require.True(t, ok)
	assert.Equal(t, "base", sym.Name)
	assert.Equal(t, SymAnchor, sym.Kind)
	assert.Equal(t, a.posOf(t, "base", 0), sym.Range.Start)
	assert.Equal(t, "{1 members}", sym.Detail)

	refs := a.table.ReferencesTo(sym)
	require.Len(t, refs, 2)
	assert.Equal(t, RefAlias, refs[0].RefKind)
	assert.Equal(t, RefSpread, refs[1].RefKind)
}

func TestResolveScopes(t *testing.T) {
	a := analyze(t, "/main.mon", map[string]string{
		"/main.mon": `import { &shared } from "./lib.mon" { &local: 1 }`,
		"/lib.mon":  `{ &shared: 1, &other: 2 }`,
	})
	scope := a.res.Scopes["/main.mon"]
	require.NotNil(t, scope)
	assert.Equal(t, []string{"local", "shared"}, scope.Names(SymAnchor))
	b := scope.Lookup(SymAnchor, "shared")
	require.NotNil(t, b)
	assert.Equal(t, 1, b.Depth)
	require.NotNil(t, b.Via)
	assert.Equal(t, SymImport, b.Via.Kind)
}
