// Copyright © 2025 The MON authors

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/monlang/mon/analysis"
	"github.com/monlang/mon/diagnostic"
	"github.com/monlang/mon/export"
	"github.com/monlang/mon/lint"
	"github.com/monlang/mon/montest"
)

func newService(t *testing.T, files montest.Files, opts ...Option) *Service {
	t.Helper()
	base := []Option{WithLoader(files.Loader()), WithLogger(montest.Logger(t))}
	return New(append(base, opts...)...)
}

func diagCodes(diags []diagnostic.Diagnostic) []diagnostic.Code {
	var out []diagnostic.Code
	for _, d := range diags {
		out = append(out, d.Code)
	}
	return out
}

func TestAnalyzeSpreadChain(t *testing.T) {
	svc := newService(t, nil)
	cfg := lint.DefaultConfig()
	cfg.WarnUnusedAnchors = true
	res, err := svc.AnalyzeDocument(context.Background(), `{ &a: {x:1}, &b: {...*a, y:2}, out: *b }`, "/main.mon", cfg)
	require.NoError(t, err)
	assert.NotContains(t, diagCodes(res.Diagnostics), diagnostic.UnusedAnchor)
	assert.False(t, res.HasErrors())

	v, ok := res.Value().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"x": int64(1), "y": int64(2)}, v["out"])
}

func TestAnalyzeDuplicateKey(t *testing.T) {
	src := `{ timeout: 1, timeout: 2 }`
	res, err := newService(t, nil).AnalyzeDocument(context.Background(), src, "/main.mon", nil)
	require.NoError(t, err)
	require.True(t, res.HasErrors())
	errs := res.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, diagnostic.DuplicateKey, errs[0].Code)
	assert.Equal(t, montest.PosOf(t, src, "timeout", 1), errs[0].Range.Start)
}

func TestAnalyzeCircularImport(t *testing.T) {
	files := montest.Files{
		"/a.mon": `import * as b from "./b.mon"
{ x: 1 }`,
		"/b.mon": `import * as c from "./c.mon"
{ y: 2 }`,
		"/c.mon": `import * as a from "./a.mon"
{ z: 3 }`,
	}
	_, err := newService(t, files).AnalyzeFile(context.Background(), "/a.mon", nil)
	var cycle *analysis.CircularDependencyError
	require.True(t, errors.As(err, &cycle), "got %v", err)
	assert.Equal(t, []string{"/a.mon", "/b.mon", "/c.mon", "/a.mon"}, cycle.Cycle)
}

func TestAnalyzeStructDefaults(t *testing.T) {
	svc := newService(t, nil)
	res, err := svc.AnalyzeDocument(context.Background(), `{
	User: #struct { id(Number), name(String), email(String) = null },
	u :: User = { id: 1, name: "Alice" },
}`, "/main.mon", nil)
	require.NoError(t, err)
	assert.Empty(t, res.Errors())
	u := res.Value().(map[string]any)["u"]
	assert.Equal(t, map[string]any{"id": int64(1), "name": "Alice", "email": nil}, u)

	src := `{
	User: #struct { id(Number), name(String), email(String) = null },
	u :: User = { id: "x", name: "Alice" },
}`
	res, err = svc.AnalyzeDocument(context.Background(), src, "/main.mon", nil)
	require.NoError(t, err)
	errs := res.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, diagnostic.TypeMismatch, errs[0].Code)
	assert.Equal(t, montest.PosOf(t, src, `"x"`, 0), errs[0].Range.Start)
}

func TestAnalyzeFatalErrors(t *testing.T) {
	files := montest.Files{"/bad.mon": `{ a: }`}
	svc := newService(t, files)

	_, err := svc.AnalyzeFile(context.Background(), "/missing.mon", nil)
	var notFound *analysis.FileNotFoundError
	assert.True(t, errors.As(err, &notFound), "got %v", err)

	_, err = svc.AnalyzeFile(context.Background(), "/bad.mon", nil)
	var parseErr *analysis.ParseError
	assert.True(t, errors.As(err, &parseErr), "got %v", err)
}

func TestAnalyzeImportDiagnosticsStayWithImporter(t *testing.T) {
	files := montest.Files{
		"/lib.mon":  `{ &port: *missing }`,
		"/main.mon": `import { &port } from "./lib.mon"
{ p: *port }`,
	}
	res, err := newService(t, files).AnalyzeFile(context.Background(), "/main.mon", nil)
	require.NoError(t, err)
	assert.NotContains(t, diagCodes(res.Diagnostics), diagnostic.UndefinedAnchor)
	require.Equal(t, []diagnostic.Code{diagnostic.UndefinedAnchor}, diagCodes(res.ImportDiagnostics))
	assert.Equal(t, "/lib.mon", res.ImportDiagnostics[0].File)
}

func TestAnalyzePolicy(t *testing.T) {
	src := `{
	// mon-disable-next-line MagicNumber
	a: 42,
	b: 43,
	c: {},
}`
	cfg := lint.DefaultConfig()
	cfg.WarnMagicNumbers = true
	cfg.DisabledRules = []string{"EmptyObject"}
	cfg.RuleOverrides = map[string]string{"MagicNumber": "warning"}
	res, err := newService(t, nil).AnalyzeDocument(context.Background(), src, "/main.mon", cfg)
	require.NoError(t, err)
	require.Equal(t, []diagnostic.Code{diagnostic.MagicNumber}, diagCodes(res.Diagnostics))
	assert.Equal(t, montest.PosOf(t, src, "43", 0), res.Diagnostics[0].Range.Start)
	assert.Len(t, res.Warnings(), 1)
	assert.Empty(t, res.Infos())
}

func TestAnalyzeDeterministic(t *testing.T) {
	files := montest.Files{
		"/a.mon": `{ &x: 1, &y: 2 }`,
		"/b.mon": `{ &z: 3 }`,
		"/main.mon": `import { &x } from "./a.mon"
import * as b from "./b.mon"
{ &unused: 1, v: *x, w: *b.z, dup: 1, dup: 2, Camel: 1, snake_case: 2 }`,
	}
	svc := newService(t, files, WithConcurrency(4))
	first, err := svc.AnalyzeFile(context.Background(), "/main.mon", nil)
	require.NoError(t, err)
	require.NotEmpty(t, first.Diagnostics)
	for i := 0; i < 5; i++ {
		res, err := svc.AnalyzeFile(context.Background(), "/main.mon", nil)
		require.NoError(t, err)
		assert.Equal(t, first.Diagnostics, res.Diagnostics)
	}
}

func TestAnalyzeSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	svc := newService(t, nil, WithTracerProvider(tp))
	_, err := svc.AnalyzeDocument(context.Background(), `{ a: 1 }`, "/main.mon", nil)
	require.NoError(t, err)

	var names []string
	var root sdktrace.ReadOnlySpan
	for _, s := range sr.Ended() {
		names = append(names, s.Name())
		if s.Name() == "analyze" {
			root = s
		}
	}
	assert.Equal(t, []string{StageParse, StageGraph, StageResolve, StageLint, StagePolicy, "analyze"}, names)
	require.NotNil(t, root)
	for _, s := range sr.Ended() {
		if s.Name() != "analyze" {
			assert.Equal(t, root.SpanContext().SpanID(), s.Parent().SpanID(), s.Name())
		}
	}

	_, err = svc.AnalyzeDocument(context.Background(), `{ a: `, "/main.mon", nil)
	require.Error(t, err)
	last := sr.Ended()[len(sr.Ended())-1]
	assert.Equal(t, "analyze", last.Name())
	assert.Equal(t, "Error", last.Status().Code.String())
}

func TestAnalyzeMetrics(t *testing.T) {
	files := montest.Files{
		"/lib.mon": `{ &port: 80 }`,
		"/main.mon": `import { &port } from "./lib.mon"
{ p: *port, d: 1, d: 2 }`,
	}
	reg := prometheus.NewRegistry()
	svc := newService(t, files, WithMetrics(reg))
	_, err := svc.AnalyzeFile(context.Background(), "/main.mon", nil)
	require.NoError(t, err)
	_, err = svc.AnalyzeFile(context.Background(), "/nope.mon", nil)
	require.Error(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(svc.metrics.FilesParsed))
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.Diagnostics.WithLabelValues("LINT2002")))
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.FatalErrors.WithLabelValues("file_not_found")))
	assert.Equal(t, 5, testutil.CollectAndCount(svc.metrics.StageDuration))
}

func TestCycleDiagnostics(t *testing.T) {
	files := montest.Files{
		"/b.mon": `import * as a from "./a.mon"
{ y: 2 }`,
	}
	src := `import * as b from "./b.mon"
{ x: {} }`
	svc := newService(t, files)
	diags, err := svc.CycleDiagnostics(context.Background(), src, "/a.mon", []string{"/a.mon", "/b.mon", "/a.mon"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []diagnostic.Code{diagnostic.CircularDependency, diagnostic.EmptyObject}, diagCodes(diags))
	assert.Equal(t, "Circular dependency detected: /a.mon -> /b.mon -> /a.mon", diags[0].Message)
}

func TestResultExport(t *testing.T) {
	res, err := newService(t, nil).AnalyzeDocument(context.Background(), `{ &base: { a: 1 }, out: { ...*base, b: null } }`, "/main.mon", nil)
	require.NoError(t, err)

	out, err := res.ToJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"base": {"a": 1}, "out": {"a": 1, "b": null}}`, string(out))

	out, err = res.ToYAML()
	require.NoError(t, err)
	assert.Contains(t, string(out), "out:")

	out, err = res.ToTOML(export.TOMLOptions{})
	require.NoError(t, err)
	assert.Contains(t, string(out), "[out]")
}
