// Copyright © 2025 The MON authors

package lint

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monlang/mon/analysis"
	"github.com/monlang/mon/astutil"
	"github.com/monlang/mon/diagnostic"
	"github.com/monlang/mon/parser"
	"github.com/monlang/mon/position"
)

// analyzeInput loads and resolves files from memory and returns the lint
// input for entry along with the diagnostics of the earlier stages.
func analyzeInput(t *testing.T, entry string, files map[string]string) (Input, []diagnostic.Diagnostic) {
	t.Helper()
	loader := analysis.NewMapLoader(files)
	g, err := analysis.LoadGraph(context.Background(), entry, nil, analysis.GraphOptions{
		Loader:   loader,
		Registry: analysis.DefaultRegistry(),
	})
	require.NoError(t, err)
	table := analysis.NewSymbolTable(g.Entry.Path)
	res := analysis.Resolve(g, table, analysis.ResolveOptions{})
	extra := append(append([]diagnostic.Diagnostic(nil), g.Diagnostics...), res.Diagnostics...)
	return Input{File: entry, Doc: g.Entry.Doc, Graph: g, Symbols: table, Loader: loader}, extra
}

func lintFiles(t *testing.T, cfg *Config, entry string, files map[string]string) []diagnostic.Diagnostic {
	t.Helper()
	in, extra := analyzeInput(t, entry, files)
	diags, err := New().Lint(context.Background(), in, cfg, extra...)
	require.NoError(t, err)
	return diags
}

func lintSource(t *testing.T, cfg *Config, src string) []diagnostic.Diagnostic {
	t.Helper()
	return lintFiles(t, cfg, "/main.mon", map[string]string{"/main.mon": src})
}

func withCode(diags []diagnostic.Diagnostic, code diagnostic.Code) []diagnostic.Diagnostic {
	var out []diagnostic.Diagnostic
	for _, d := range diags {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

func messages(diags []diagnostic.Diagnostic) []string {
	var out []string
	for _, d := range diags {
		out = append(out, d.Message)
	}
	return out
}

func config(fn func(cfg *Config)) *Config {
	cfg := DefaultConfig()
	fn(cfg)
	return cfg
}

func TestMaxNestingDepth(t *testing.T) {
	src := `{a: {b: {c: {d: {e: 1}}}}}`
	diags := withCode(lintSource(t, nil, src), diagnostic.MaxNestingDepth)
	require.Len(t, diags, 1)
	assert.Equal(t, "Maximum nesting depth of 5 exceeds recommended limit of 4", diags[0].Message)
	assert.Equal(t, position.Position{Line: 0, Character: 17}, diags[0].Range.Start)
	assert.Equal(t, diagnostic.SeverityWarning, diags[0].Severity)
	assert.Equal(t, "/main.mon", diags[0].File)

	diags = withCode(lintSource(t, config(func(c *Config) { c.MaxNestingDepth = 2 }), src), diagnostic.MaxNestingDepth)
	require.Len(t, diags, 1)
	assert.Equal(t, "Maximum nesting depth of 5 exceeds limit of 2 by more than 2 levels", diags[0].Message)

	assert.Empty(t, withCode(lintSource(t, nil, `{a: {b: {c: {d: 1}}}}`), diagnostic.MaxNestingDepth))
}

func TestMaxObjectMembersAndArrayItems(t *testing.T) {
	cfg := config(func(c *Config) {
		c.MaxObjectMembers = 2
		c.MaxArrayItems = 2
	})
	diags := lintSource(t, cfg, `{a: 1, b: 0, xs: [1, 0, 1], T: #enum { X }}`)
	assert.Equal(t, []string{"Object at depth 0 has 3 members, exceeds recommended limit of 2"},
		messages(withCode(diags, diagnostic.MaxObjectMembers)), "type definitions are not members")
	assert.Equal(t, []string{"Array at depth 1 has 3 items, exceeds recommended limit of 2"},
		messages(withCode(diags, diagnostic.MaxArrayItems)))
}

func TestUnusedAnchor(t *testing.T) {
	diags := withCode(lintSource(t, nil, `{&base: {a: 1}, &used: 1, x: *used}`), diagnostic.UnusedAnchor)
	require.Len(t, diags, 1)
	assert.Equal(t, "Anchor 'base' is defined but never used", diags[0].Message)
	assert.True(t, diags[0].HasTag(diagnostic.TagUnnecessary))

	cfg := config(func(c *Config) { c.WarnUnusedAnchors = false })
	assert.Empty(t, withCode(lintSource(t, cfg, `{&base: 1}`), diagnostic.UnusedAnchor))
}

func TestUnusedAnchorUsedFromImporter(t *testing.T) {
	files := map[string]string{
		"/main.mon": `import { &port } from "./lib.mon" { p: *port }`,
		"/lib.mon":  `{ &port: 1, &other: 2 }`,
	}
	assert.Empty(t, withCode(lintFiles(t, nil, "/main.mon", files), diagnostic.UnusedAnchor))

	in, _ := analyzeInput(t, "/main.mon", files)
	in.File, in.Doc = "/lib.mon", in.Graph.Files["/lib.mon"].Doc
	diags, err := (&Linter{Rules: []*Rule{RuleUnusedAnchor}}).Run(context.Background(), in, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Anchor 'other' is defined but never used"}, messages(diags))
}

func TestDuplicateKey(t *testing.T) {
	diags := withCode(lintSource(t, nil, `{a: 1, b: 0, a: 1}`), diagnostic.DuplicateKey)
	require.Len(t, diags, 1)
	assert.Equal(t, "Duplicate key 'a' in object", diags[0].Message)
	assert.Equal(t, diagnostic.SeverityError, diags[0].Severity)
	assert.Equal(t, uint32(13), diags[0].Range.Start.Character)
	require.Len(t, diags[0].Related, 1)
	assert.Equal(t, "first defined here", diags[0].Related[0].Message)
	assert.Equal(t, uint32(1), diags[0].Related[0].Location.Range.Start.Character)

	assert.Empty(t, withCode(lintSource(t, nil, `{&base: {a: 1}, x: {...*base, a: 0}}`), diagnostic.DuplicateKey),
		"overriding a spread key is not a duplicate")
}

func TestExcessiveSpreads(t *testing.T) {
	cfg := config(func(c *Config) { c.MaxSpreads = 1 })
	diags := lintSource(t, cfg, `{&a: {x: 1}, &b: {y: 1}, c: {...*a, ...*b}}`)
	assert.Equal(t, []string{"Object has 2 spreads, consider simplifying"}, messages(withCode(diags, diagnostic.ExcessiveSpreads)))
}

func TestMagicNumber(t *testing.T) {
	src := `{port: 8080, &timeout: 30, retries: 1, size: 100, ratio: 2.5, t: *timeout}`
	assert.Empty(t, withCode(lintSource(t, nil, src), diagnostic.MagicNumber), "disabled by default")

	cfg := config(func(c *Config) { c.WarnMagicNumbers = true })
	diags := withCode(lintSource(t, cfg, src), diagnostic.MagicNumber)
	assert.Equal(t, []string{
		"Consider extracting magic number 8080 into a named constant",
		"Consider extracting magic number 2.5 into a named constant",
	}, messages(diags))
	assert.Equal(t, diagnostic.SeverityInfo, diags[0].Severity)
}

func TestMissingTypeValidation(t *testing.T) {
	src := `{
	User: #struct { name(String) },
	admin :: User = { name: "a" },
	plain: { name: "b" },
	&tpl: { x: 1 },
	n: 1,
	copy: *tpl,
}`
	assert.Empty(t, withCode(lintSource(t, nil, src), diagnostic.MissingTypeValidation))

	cfg := config(func(c *Config) { c.SuggestTypeValidation = true })
	diags := withCode(lintSource(t, cfg, src), diagnostic.MissingTypeValidation)
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0].Message, "'plain'")
}

func TestInconsistentNaming(t *testing.T) {
	diags := lintSource(t, nil, `{user_name: "a", userId: 1, plain: 0, inner: {a_b: 1, c_d: 0}}`)
	assert.Equal(t, []string{"Object has mixed naming styles (1 snake_case, 1 camelCase)"},
		messages(withCode(diags, diagnostic.InconsistentNaming)))
}

func TestEmptyStructures(t *testing.T) {
	diags := withCode(lintSource(t, nil, `{a: {}, b: [], c: {x: 1}}`), diagnostic.EmptyObject)
	assert.Equal(t, []string{
		"Empty object found - verify this is intentional",
		"Empty array found - verify this is intentional",
	}, messages(diags))

	cfg := config(func(c *Config) { c.WarnEmptyStructures = false })
	assert.Empty(t, withCode(lintSource(t, cfg, `{a: {}}`), diagnostic.EmptyObject))
}

func TestDeepImportChain(t *testing.T) {
	files := map[string]string{
		"/a.mon": `import { &x } from "./b.mon" { y: *x }`,
		"/b.mon": `import { &x } from "./c.mon" {}`,
		"/c.mon": `{ &x: 1 }`,
	}
	assert.Empty(t, withCode(lintFiles(t, nil, "/a.mon", files), diagnostic.DeepImportChain))

	cfg := config(func(c *Config) { c.MaxImportChainDepth = 1 })
	diags := withCode(lintFiles(t, cfg, "/a.mon", files), diagnostic.DeepImportChain)
	require.Len(t, diags, 1)
	assert.Equal(t, "Reference to 'x' goes through 2 imports, exceeds recommended limit of 1", diags[0].Message)
	require.Len(t, diags[0].Related, 1)
	assert.Equal(t, "/c.mon", diags[0].Related[0].Location.URI)
}

func TestCircularDependencyRule(t *testing.T) {
	loader := analysis.NewMapLoader(map[string]string{
		"/a.mon": `import * as lib from "./lib.mon"
import * as b from "./b.mon"
{}`,
	})
	doc, err := parser.Parse("/a.mon", []byte(`import * as lib from "./lib.mon"
import * as b from "./b.mon"
{}`))
	require.NoError(t, err)
	in := Input{
		File:   "/a.mon",
		Doc:    doc,
		Cycle:  []string{"/a.mon", "/b.mon", "/a.mon"},
		Loader: loader,
	}
	l := &Linter{Rules: []*Rule{RuleCircularDependency}}
	diags, err := l.Run(context.Background(), in, nil)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "Circular dependency detected: /a.mon -> /b.mon -> /a.mon", diags[0].Message)
	assert.Equal(t, uint32(1), diags[0].Range.Start.Line, "reported at the import entering the cycle")
	require.Len(t, diags[0].Related, 1)
	assert.Equal(t, "imports /a.mon", diags[0].Related[0].Message)

	in.Cycle = nil
	diags, err = l.Run(context.Background(), in, nil)
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestUnusedImport(t *testing.T) {
	files := map[string]string{
		"/main.mon": `import { &port, &used } from "./lib.mon"
import * as other from "./other.mon"
import * from "./wild.mon"
{ p: *used }`,
		"/lib.mon":   `{ &port: 1, &used: 2 }`,
		"/other.mon": `{}`,
		"/wild.mon":  `{ &w: 2 }`,
	}
	diags := withCode(lintFiles(t, nil, "/main.mon", files), diagnostic.UnusedImport)
	assert.Equal(t, []string{
		"Import 'port' is never used",
		"Namespace import 'other' is never used",
		"Nothing imported from './wild.mon' is used",
	}, messages(diags))

	cfg := config(func(c *Config) { c.WarnUnusedImports = false })
	assert.Empty(t, withCode(lintFiles(t, cfg, "/main.mon", files), diagnostic.UnusedImport))
}

func TestLintIncludesResolutionDiagnostics(t *testing.T) {
	cfg := config(func(c *Config) { c.DisabledRules = []string{"LINT5001", "UnusedAnchor"} })
	diags := lintSource(t, cfg, `{&a: 1, b: *missing}`)
	require.Len(t, diags, 1, "always-on codes cannot be disabled")
	assert.Equal(t, diagnostic.UndefinedAnchor, diags[0].Code)
}

func TestLintDeterministic(t *testing.T) {
	src := `{
	&base: { a_b: 1, cD: 2 },
	x: { ...*base, a_b: 3, a_b: 4 },
	e: {},
	n: 12345,
}`
	cfg := config(func(c *Config) { c.WarnMagicNumbers = true })
	first := lintSource(t, cfg, src)
	require.NotEmpty(t, first)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, lintSource(t, cfg, src))
	}
}

func TestRunRuleError(t *testing.T) {
	l := &Linter{Rules: []*Rule{{
		Code: diagnostic.MagicNumber,
		Run:  func(*Pass) error { return errors.New("boom") },
	}}}
	doc, err := parser.Parse("/x.mon", []byte(`{}`))
	require.NoError(t, err)
	_, err = l.Run(context.Background(), Input{Doc: doc}, nil)
	require.Error(t, err)
	assert.Equal(t, "/x.mon: rule MagicNumber: boom", err.Error())
}

func TestPassReportDefaults(t *testing.T) {
	rule := &Rule{Code: diagnostic.EmptyObject}
	pass := &Pass{Rule: rule, Input: Input{File: "/f.mon"}}
	pass.Report(diagnostic.Diagnostic{Message: "m"})
	require.Len(t, pass.diagnostics, 1)
	d := pass.diagnostics[0]
	assert.Equal(t, diagnostic.EmptyObject, d.Code)
	assert.Equal(t, diagnostic.SeverityInfo, d.Severity)
	assert.Equal(t, "/f.mon", d.File)
}

func TestRuleRegistry(t *testing.T) {
	rules := DefaultRules()
	require.Len(t, rules, 13)
	for i := 1; i < len(rules); i++ {
		assert.Less(t, rules[i-1].Code, rules[i].Code, "rules are in code order")
	}
	r, ok := RuleFor(diagnostic.UnusedImport)
	require.True(t, ok)
	assert.Equal(t, "UnusedImport", r.Name())
	_, ok = RuleFor(diagnostic.UndefinedAnchor)
	assert.False(t, ok, "resolution codes have no rule")
}

func TestWalkSkipsTypeDefinitions(t *testing.T) {
	doc, err := parser.Parse("/x.mon", []byte(`{T: #struct { a(Number) = 5 }, xs: [1, {b: 2}]}`))
	require.NoError(t, err)
	var kinds []string
	Walk(doc.Root, func(n Node) {
		kinds = append(kinds, strings.Repeat(" ", n.Depth)+astutil.KindName(n.Value))
	})
	assert.Equal(t, []string{"object", " array", "  number", "  object", "   number"}, kinds)
}
