// Copyright © 2025 The MON authors

package lsp

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/monlang/mon/lint"
	"github.com/monlang/mon/montest"
	"github.com/monlang/mon/position"
)

// testServer creates a server reading files from memory. Debounced
// analysis is effectively disabled unless a test sets its own delay.
func testServer(t *testing.T, files montest.Files, opts ...Option) *Server {
	t.Helper()
	base := []Option{
		WithLoader(files.Loader()),
		WithLogger(montest.Logger(t)),
		WithDebounce(time.Hour),
	}
	s := New(append(base, opts...)...)
	t.Cleanup(func() { _ = s.shutdown(nil) })
	return s
}

// openDoc opens a document in the test server and returns it.
func openDoc(s *Server, uri, content string) *Document {
	return s.docs.Open(uri, 1, content)
}

// mockContext returns a minimal glsp.Context for testing.
func mockContext() *glsp.Context {
	return &glsp.Context{
		Notify: func(method string, params any) {},
	}
}

// published collects the diagnostics notifications sent to the client.
type published struct {
	mu     sync.Mutex
	params []*protocol.PublishDiagnosticsParams
}

func (p *published) forURI(uri string) []*protocol.PublishDiagnosticsParams {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*protocol.PublishDiagnosticsParams
	for _, pd := range p.params {
		if pd.URI == uri {
			out = append(out, pd)
		}
	}
	return out
}

// last returns the most recent diagnostics published for uri.
func (p *published) last(t *testing.T, uri string) []protocol.Diagnostic {
	t.Helper()
	all := p.forURI(uri)
	require.NotEmpty(t, all, "no diagnostics published for %s", uri)
	return all[len(all)-1].Diagnostics
}

// capturingContext returns a context that captures published diagnostics.
func capturingContext() (*glsp.Context, *published) {
	pub := &published{}
	ctx := &glsp.Context{
		Notify: func(method string, params any) {
			if method == protocol.ServerTextDocumentPublishDiagnostics {
				pub.mu.Lock()
				pub.params = append(pub.params, params.(*protocol.PublishDiagnosticsParams))
				pub.mu.Unlock()
			}
		},
	}
	return ctx, pub
}

func didOpen(t *testing.T, s *Server, ctx *glsp.Context, uri, text string) {
	t.Helper()
	require.NoError(t, s.textDocumentDidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, LanguageID: "mon", Version: 1, Text: text},
	}))
}

func didChange(t *testing.T, s *Server, ctx *glsp.Context, uri string, version int32, text string) {
	t.Helper()
	require.NoError(t, s.textDocumentDidChange(ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
			Version:                version,
		},
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: text}},
	}))
}

func didSave(t *testing.T, s *Server, ctx *glsp.Context, uri string) {
	t.Helper()
	require.NoError(t, s.textDocumentDidSave(ctx, &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	}))
}

// lspPos returns the LSP position of the n-th occurrence of needle.
func lspPos(t *testing.T, src, needle string, n int) protocol.Position {
	t.Helper()
	return toLSPPosition(montest.PosOf(t, src, needle, n))
}

func diagCodes(diags []protocol.Diagnostic) []string {
	var out []string
	for _, d := range diags {
		if d.Code == nil {
			out = append(out, "")
			continue
		}
		out = append(out, d.Code.Value.(string))
	}
	return out
}

func completionLabels(t *testing.T, result any) []string {
	t.Helper()
	require.NotNil(t, result, "completion result should not be nil")
	items, ok := result.([]protocol.CompletionItem)
	require.True(t, ok, "completion result should be []CompletionItem, got %T", result)
	labels := make([]string, len(items))
	for i, item := range items {
		labels[i] = item.Label
	}
	return labels
}

func TestURIConversion(t *testing.T) {
	assert.Equal(t, "/tmp/a b.mon", uriToPath("file:///tmp/a%20b.mon"))
	assert.Equal(t, "file:///tmp/a%20b.mon", pathToURI("/tmp/a b.mon"))
	assert.Equal(t, "mon:types", pathToURI("mon:types"))
	assert.Equal(t, "untitled:1", uriToPath("untitled:1"))
}

func TestDocumentStore(t *testing.T) {
	store := NewDocumentStore()
	doc := store.Open("file:///a.mon", 1, "{ a: 1 }")
	assert.Equal(t, "/a.mon", doc.Path)

	src, ok := store.Source("/a.mon")
	require.True(t, ok)
	assert.Equal(t, "{ a: 1 }", string(src))

	_, changed := store.Change("file:///a.mon", 2, "{ a: 1 }")
	assert.False(t, changed, "identical content is not a change")
	_, changed = store.Change("file:///a.mon", 3, "{ a: 2 }")
	assert.True(t, changed)

	store.Close("file:///a.mon")
	assert.Nil(t, store.Get("file:///a.mon"))
	_, ok = store.Source("/a.mon")
	assert.False(t, ok)
}

func TestDiagnosticsOnOpen(t *testing.T) {
	s := testServer(t, nil)
	ctx, pub := capturingContext()

	didOpen(t, s, ctx, "file:///ok.mon", `{ a: 1 }`)
	assert.Empty(t, pub.last(t, "file:///ok.mon"))

	src := `{ a: *missing }`
	didOpen(t, s, ctx, "file:///bad.mon", src)
	diags := pub.last(t, "file:///bad.mon")
	require.Len(t, diags, 1)
	assert.Equal(t, []string{"LINT5001"}, diagCodes(diags))
	assert.Equal(t, diagnosticSource, *diags[0].Source)
	assert.Equal(t, protocol.DiagnosticSeverityError, *diags[0].Severity)
	// Unresolved references are reported at the name, not the sigil.
	assert.Equal(t, lspPos(t, src, "missing", 0), diags[0].Range.Start)
}

func TestDiagnosticsParseError(t *testing.T) {
	s := testServer(t, nil)
	ctx, pub := capturingContext()

	didOpen(t, s, ctx, "file:///bad.mon", "{\n  a: 1,\n  b: \n}")
	diags := pub.last(t, "file:///bad.mon")
	require.Len(t, diags, 1)
	assert.Nil(t, diags[0].Code)
	assert.Equal(t, protocol.DiagnosticSeverityError, *diags[0].Severity)
	assert.NotEmpty(t, diags[0].Message)
	assert.GreaterOrEqual(t, diags[0].Range.Start.Line, protocol.UInteger(2))
}

func TestParseErrorRangeClamps(t *testing.T) {
	rng := parseErrorRange(5, 100, "{ a: ")
	assert.Equal(t, position.Position{Line: 0, Character: 5}, rng.Start)
	assert.Equal(t, rng.Start, rng.End)

	rng = parseErrorRange(4, 2, "{ a: ")
	assert.Equal(t, rng.Start, rng.End)
}

func TestDiagnosticsClearedOnClose(t *testing.T) {
	s := testServer(t, nil)
	ctx, pub := capturingContext()

	didOpen(t, s, ctx, "file:///a.mon", `{ a: *missing }`)
	require.NotEmpty(t, pub.last(t, "file:///a.mon"))

	require.NoError(t, s.textDocumentDidClose(ctx, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: "file:///a.mon"},
	}))
	assert.Empty(t, pub.last(t, "file:///a.mon"))
	assert.Nil(t, s.docs.Get("file:///a.mon"))
}

func TestDiagnosticsDebouncedChange(t *testing.T) {
	s := testServer(t, nil, WithDebounce(10*time.Millisecond))
	ctx, pub := capturingContext()

	didOpen(t, s, ctx, "file:///a.mon", `{ a: 1 }`)
	require.Len(t, pub.forURI("file:///a.mon"), 1)

	// Identical content does not schedule an analysis.
	didChange(t, s, ctx, "file:///a.mon", 2, `{ a: 1 }`)
	didChange(t, s, ctx, "file:///a.mon", 3, `{ a: *gone }`)
	require.Eventually(t, func() bool {
		return len(pub.forURI("file:///a.mon")) == 2
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"LINT5001"}, diagCodes(pub.last(t, "file:///a.mon")))
}

func TestDiagnosticsSaveRunsImmediately(t *testing.T) {
	s := testServer(t, nil)
	ctx, pub := capturingContext()

	didOpen(t, s, ctx, "file:///a.mon", `{ a: 1 }`)
	didChange(t, s, ctx, "file:///a.mon", 2, `{ a: 1, a: 2 }`)
	// The hour-long debounce has not fired.
	require.Len(t, pub.forURI("file:///a.mon"), 1)

	didSave(t, s, ctx, "file:///a.mon")
	assert.Equal(t, []string{"LINT2002"}, diagCodes(pub.last(t, "file:///a.mon")))
}

func TestDiagnosticsLintConfig(t *testing.T) {
	s := testServer(t, nil, WithConfig(lint.DefaultConfig()))
	ctx, pub := capturingContext()

	didOpen(t, s, ctx, "file:///a.mon", `{ &unused: 1, b: 2 }`)
	diags := pub.last(t, "file:///a.mon")
	require.Equal(t, []string{"LINT2001"}, diagCodes(diags))
	assert.Equal(t, protocol.DiagnosticSeverityWarning, *diags[0].Severity)
	assert.Equal(t, []protocol.DiagnosticTag{protocol.DiagnosticTagUnnecessary}, diags[0].Tags)

	off := lint.DefaultConfig()
	off.WarnUnusedAnchors = false
	s.SetConfig(off)
	assert.Empty(t, pub.last(t, "file:///a.mon"))
}

func TestDiagnosticsCircularImport(t *testing.T) {
	files := montest.Files{
		"/b.mon": `import * as a from "./a.mon"
{ y: 2 }`,
	}
	s := testServer(t, files)
	ctx, pub := capturingContext()

	didOpen(t, s, ctx, "file:///a.mon", `import * as b from "./b.mon"
{ x: 1 }`)
	diags := pub.last(t, "file:///a.mon")
	require.Equal(t, []string{"LINT4002"}, diagCodes(diags))
	assert.Contains(t, diags[0].Message, "/a.mon -> /b.mon -> /a.mon")
}

func TestOpenBuffersShadowFiles(t *testing.T) {
	files := montest.Files{
		"/lib.mon": `{ &port: 8080 }`,
	}
	s := testServer(t, files)
	ctx, pub := capturingContext()

	didOpen(t, s, ctx, "file:///main.mon", `import { &port } from "./lib.mon"
{ p: *port }`)
	assert.Empty(t, pub.last(t, "file:///main.mon"))

	// Opening the import with unsaved edits re-analyzes its importer
	// against the buffer.
	didOpen(t, s, ctx, "file:///lib.mon", `{ &host: "x" }`)
	assert.Contains(t, diagCodes(pub.last(t, "file:///main.mon")), "LINT5010")

	didChange(t, s, ctx, "file:///lib.mon", 2, `{ &port: 9090 }`)
	didSave(t, s, ctx, "file:///lib.mon")
	assert.Empty(t, pub.last(t, "file:///main.mon"))
}

func TestDefinitionAcrossImport(t *testing.T) {
	files := montest.Files{
		"/lib.mon": `{ &port: 8080 }`,
	}
	s := testServer(t, files)
	src := `import { &port } from "./lib.mon"
{ p: *port }`
	doc := openDoc(s, "file:///main.mon", src)

	result, err := s.textDocumentDefinition(mockContext(), &protocol.DefinitionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: doc.URI},
			Position:     lspPos(t, src, "port }", 0),
		},
	})
	require.NoError(t, err)
	loc, ok := result.(protocol.Location)
	require.True(t, ok, "got %T", result)
	assert.Equal(t, "file:///lib.mon", loc.URI)
	assert.Equal(t, lspPos(t, files["/lib.mon"], "port", 0), loc.Range.Start)
}

func TestDefinitionLocalType(t *testing.T) {
	s := testServer(t, nil)
	src := `{
  Status: #enum { Active, Inactive },
  s :: Status = $Status.Active,
}`
	doc := openDoc(s, "file:///main.mon", src)

	for _, p := range []protocol.Position{lspPos(t, src, "Status", 1), lspPos(t, src, "Status", 2)} {
		result, err := s.textDocumentDefinition(mockContext(), &protocol.DefinitionParams{
			TextDocumentPositionParams: protocol.TextDocumentPositionParams{
				TextDocument: protocol.TextDocumentIdentifier{URI: doc.URI},
				Position:     p,
			},
		})
		require.NoError(t, err)
		loc, ok := result.(protocol.Location)
		require.True(t, ok, "got %T", result)
		assert.Equal(t, doc.URI, loc.URI)
		assert.Equal(t, lspPos(t, src, "Status", 0), loc.Range.Start)
	}
}

func TestDefinitionOnPlainValue(t *testing.T) {
	s := testServer(t, nil)
	doc := openDoc(s, "file:///main.mon", `{ a: 1 }`)
	result, err := s.textDocumentDefinition(mockContext(), &protocol.DefinitionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: doc.URI},
			Position:     protocol.Position{Line: 0, Character: 5},
		},
	})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestReferences(t *testing.T) {
	s := testServer(t, nil)
	src := `{ &base: { x: 1 }, b: *base, c: { ...*base } }`
	doc := openDoc(s, "file:///main.mon", src)

	params := &protocol.ReferenceParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: doc.URI},
			Position:     lspPos(t, src, "base", 0),
		},
		Context: protocol.ReferenceContext{IncludeDeclaration: true},
	}
	locs, err := s.textDocumentReferences(mockContext(), params)
	require.NoError(t, err)
	require.Len(t, locs, 3)
	assert.Equal(t, lspPos(t, src, "base", 0), locs[0].Range.Start)

	params.Context.IncludeDeclaration = false
	locs, err = s.textDocumentReferences(mockContext(), params)
	require.NoError(t, err)
	require.Len(t, locs, 2)
	for _, loc := range locs {
		assert.Equal(t, doc.URI, loc.URI)
	}
}

func TestHoverAnchor(t *testing.T) {
	s := testServer(t, nil)
	src := `{
  /// Shared settings.
  &base: { retries: 3 },
  svc: *base,
}`
	doc := openDoc(s, "file:///main.mon", src)

	hover, err := s.textDocumentHover(mockContext(), &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: doc.URI},
			Position:     lspPos(t, src, "base", 1),
		},
	})
	require.NoError(t, err)
	require.NotNil(t, hover)
	content := hover.Contents.(protocol.MarkupContent)
	assert.Equal(t, protocol.MarkupKindMarkdown, content.Kind)
	assert.Contains(t, content.Value, "**anchor** `base`")
	assert.Contains(t, content.Value, "Shared settings.")
	assert.Contains(t, content.Value, `"retries": 3`)
	assert.NotContains(t, content.Value, "Defined in")
}

func TestHoverKey(t *testing.T) {
	s := testServer(t, nil)
	src := `{ &base: { a: 1 }, merged: { ...*base, b: 2 } }`
	doc := openDoc(s, "file:///main.mon", src)

	hover, err := s.textDocumentHover(mockContext(), &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: doc.URI},
			Position:     lspPos(t, src, "merged", 0),
		},
	})
	require.NoError(t, err)
	require.NotNil(t, hover)
	value := hover.Contents.(protocol.MarkupContent).Value
	assert.Contains(t, value, "**key** `merged`")
	assert.Contains(t, value, `"a": 1`)
	assert.Contains(t, value, `"b": 2`)
}

func TestHoverImported(t *testing.T) {
	files := montest.Files{"/lib.mon": `{ &port: 8080 }`}
	s := testServer(t, files)
	src := `import * as lib from "./lib.mon"
{ p: *lib.port }`
	doc := openDoc(s, "file:///main.mon", src)

	hover, err := s.textDocumentHover(mockContext(), &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: doc.URI},
			Position:     lspPos(t, src, "port }", 0),
		},
	})
	require.NoError(t, err)
	require.NotNil(t, hover)
	assert.Contains(t, hover.Contents.(protocol.MarkupContent).Value, "Defined in /lib.mon:1")
}

func TestCompletionAnchors(t *testing.T) {
	files := montest.Files{"/lib.mon": `{ &port: 8080, &host: "x" }`}
	s := testServer(t, files)
	src := `import * as lib from "./lib.mon"
{ &alpha: 1, &beta: 2, c: *alpha, d: *lib.port }`
	doc := openDoc(s, "file:///main.mon", src)

	complete := func(p protocol.Position) []string {
		result, err := s.textDocumentCompletion(mockContext(), &protocol.CompletionParams{
			TextDocumentPositionParams: protocol.TextDocumentPositionParams{
				TextDocument: protocol.TextDocumentIdentifier{URI: doc.URI},
				Position:     p,
			},
		})
		require.NoError(t, err)
		return completionLabels(t, result)
	}

	// Right after "*".
	p := lspPos(t, src, "*alpha", 0)
	p.Character++
	assert.Equal(t, []string{"alpha", "beta", "lib"}, complete(p))

	// After "*al".
	p.Character += 2
	assert.Equal(t, []string{"alpha"}, complete(p))

	// After "*lib.".
	p = lspPos(t, src, "port }", 0)
	assert.Equal(t, []string{"host", "port"}, complete(p))
}

func TestCompletionKeepsWorkingWhileTyping(t *testing.T) {
	s := testServer(t, nil)
	ctx, _ := capturingContext()
	didOpen(t, s, ctx, "file:///main.mon", `{ &alpha: 1, c: 1 }`)

	broken := `{ &alpha: 1, c: 1, d: *`
	didChange(t, s, ctx, "file:///main.mon", 2, broken)
	result, err := s.textDocumentCompletion(mockContext(), &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: "file:///main.mon"},
			Position:     protocol.Position{Line: 0, Character: uint32(len(broken))},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, completionLabels(t, result))
}

func TestCompletionTypesAndEnums(t *testing.T) {
	s := testServer(t, nil)
	src := `{
  Status: #enum { Active, Inactive },
  User: #struct { id(Number) },
  s :: Status = $Status.Active,
}`
	doc := openDoc(s, "file:///main.mon", src)
	complete := func(p protocol.Position) []string {
		result, err := s.textDocumentCompletion(mockContext(), &protocol.CompletionParams{
			TextDocumentPositionParams: protocol.TextDocumentPositionParams{
				TextDocument: protocol.TextDocumentIdentifier{URI: doc.URI},
				Position:     p,
			},
		})
		require.NoError(t, err)
		return completionLabels(t, result)
	}

	// After ":: ".
	p := lspPos(t, src, "Status =", 0)
	labels := complete(p)
	assert.Contains(t, labels, "Status")
	assert.Contains(t, labels, "User")
	assert.Contains(t, labels, "String")

	// After "$".
	p = lspPos(t, src, "Status.Active", 0)
	assert.Equal(t, []string{"Status"}, complete(p))

	// After "$Status.".
	p = lspPos(t, src, "Active,", 1)
	assert.Equal(t, []string{"Active", "Inactive"}, complete(p))
}

func TestCompletionLinePrefix(t *testing.T) {
	content := "{\n  a: *b\n}"
	assert.Equal(t, "  a: *", linePrefix(content, protocol.Position{Line: 1, Character: 6}))
	assert.Equal(t, "", linePrefix(content, protocol.Position{Line: 9, Character: 0}))
}

func TestDocumentSymbols(t *testing.T) {
	files := montest.Files{"/lib.mon": `{ &port: 1 }`}
	s := testServer(t, files)
	src := `import * as lib from "./lib.mon"
{
  &base: 1,
  User: #struct { id(Number), name(String) },
  nested: { inner: true },
}`
	doc := openDoc(s, "file:///main.mon", src)

	result, err := s.textDocumentDocumentSymbol(mockContext(), &protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: doc.URI},
	})
	require.NoError(t, err)
	symbols, ok := result.([]protocol.DocumentSymbol)
	require.True(t, ok, "got %T", result)

	var names []string
	for _, sym := range symbols {
		names = append(names, sym.Name)
	}
	assert.Equal(t, []string{"lib", "&base", "User", "nested"}, names)
	assert.Equal(t, protocol.SymbolKindNamespace, symbols[0].Kind)
	assert.Equal(t, protocol.SymbolKindVariable, symbols[1].Kind)
	require.Len(t, symbols[2].Children, 2)
	assert.Equal(t, "name", symbols[2].Children[1].Name)
	require.Len(t, symbols[3].Children, 1)
	assert.Equal(t, "inner", symbols[3].Children[0].Name)
}

func TestRename(t *testing.T) {
	s := testServer(t, nil)
	src := `{ &base: { x: 1 }, b: *base, c: { ...*base } }`
	doc := openDoc(s, "file:///main.mon", src)

	edit, err := s.textDocumentRename(mockContext(), &protocol.RenameParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: doc.URI},
			Position:     lspPos(t, src, "base", 1),
		},
		NewName: "defaults",
	})
	require.NoError(t, err)
	edits := edit.Changes[doc.URI]
	require.Len(t, edits, 3)
	for i, e := range edits {
		assert.Equal(t, "defaults", e.NewText)
		start := lspPos(t, src, "base", i)
		assert.Equal(t, start, e.Range.Start)
		assert.Equal(t, start.Character+4, e.Range.End.Character)
	}
}

func TestRenameEnumType(t *testing.T) {
	s := testServer(t, nil)
	src := `{ Status: #enum { On, Off }, s :: Status = $Status.On }`
	doc := openDoc(s, "file:///main.mon", src)

	edit, err := s.textDocumentRename(mockContext(), &protocol.RenameParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: doc.URI},
			Position:     lspPos(t, src, "Status", 0),
		},
		NewName: "State",
	})
	require.NoError(t, err)
	edits := edit.Changes[doc.URI]
	require.Len(t, edits, 3)
	for i, e := range edits {
		assert.Equal(t, lspPos(t, src, "Status", i), e.Range.Start)
		assert.Equal(t, e.Range.Start.Character+6, e.Range.End.Character)
	}
}

func TestRenameRejected(t *testing.T) {
	files := montest.Files{"/lib.mon": `{ &port: 1 }`}
	s := testServer(t, files)
	src := `import { &port } from "./lib.mon"
{ &a: 1, &b: 2, p: *port }`
	doc := openDoc(s, "file:///main.mon", src)

	rename := func(p protocol.Position, name string) error {
		_, err := s.textDocumentRename(mockContext(), &protocol.RenameParams{
			TextDocumentPositionParams: protocol.TextDocumentPositionParams{
				TextDocument: protocol.TextDocumentIdentifier{URI: doc.URI},
				Position:     p,
			},
			NewName: name,
		})
		return err
	}
	assert.ErrorContains(t, rename(lspPos(t, src, "a:", 0), "b"), "already defined")
	assert.ErrorContains(t, rename(lspPos(t, src, "a:", 0), "1x"), "not a valid name")
	assert.ErrorContains(t, rename(lspPos(t, src, "port", 1), "p2"), "cannot rename")

	prep, err := s.textDocumentPrepareRename(mockContext(), &protocol.PrepareRenameParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: doc.URI},
			Position:     lspPos(t, src, "port", 1),
		},
	})
	require.NoError(t, err)
	assert.Nil(t, prep)
}

func TestPrepareRename(t *testing.T) {
	s := testServer(t, nil)
	src := `{ &base: 1, b: *base }`
	doc := openDoc(s, "file:///main.mon", src)

	result, err := s.textDocumentPrepareRename(mockContext(), &protocol.PrepareRenameParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: doc.URI},
			Position:     lspPos(t, src, "base", 1),
		},
	})
	require.NoError(t, err)
	prep, ok := result.(*protocol.RangeWithPlaceholder)
	require.True(t, ok, "got %T", result)
	assert.Equal(t, "base", prep.Placeholder)
	assert.Equal(t, lspPos(t, src, "base", 1), prep.Range.Start)
}

func TestInitializeLifecycle(t *testing.T) {
	s := testServer(t, nil)
	root := "file:///workspace"
	result, err := s.initialize(mockContext(), &protocol.InitializeParams{RootURI: &root})
	require.NoError(t, err)
	init, ok := result.(protocol.InitializeResult)
	require.True(t, ok)
	assert.Equal(t, serverName, init.ServerInfo.Name)
	assert.Equal(t, "/workspace", s.rootPath)
	assert.Contains(t, init.Capabilities.CompletionProvider.TriggerCharacters, "*")

	require.NoError(t, s.shutdown(mockContext()))
}

func TestExitHandler(t *testing.T) {
	s := testServer(t, nil)
	code := -1
	s.exitFn = func(c int) { code = c }
	require.NoError(t, s.exit(mockContext()))
	assert.Equal(t, 0, code)
}
