// Copyright © 2025 The MON authors

// Package service is the single entry point of the MON analysis engine. It
// parses a document, loads its import graph, resolves references, runs the
// lint rules and applies the severity policy, tracing each stage.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/monlang/mon/analysis"
	"github.com/monlang/mon/ast"
	"github.com/monlang/mon/diagnostic"
	"github.com/monlang/mon/lint"
	"github.com/monlang/mon/parser"
)

// TracerName is the instrumentation name of the spans a Service creates.
const TracerName = "github.com/monlang/mon"

// Stage names, used for span names and the stage metric label.
const (
	StageParse   = "parse"
	StageGraph   = "graph"
	StageResolve = "resolve"
	StageLint    = "lint"
	StagePolicy  = "policy"
)

// Service runs analyses. It holds no per-analysis state and is safe for
// concurrent use.
type Service struct {
	registry    *analysis.Registry
	loader      analysis.FileLoader
	reader      parser.Reader
	linter      *lint.Linter
	logger      *slog.Logger
	tracer      trace.Tracer
	metrics     *Metrics
	concurrency int
}

// Option configures a Service.
type Option func(*Service)

// WithRegistry sets the builtin schemas served for mon: imports. The
// default is analysis.DefaultRegistry().
func WithRegistry(reg *analysis.Registry) Option {
	return func(s *Service) {
		s.registry = reg
	}
}

// WithLoader sets how imported files are read. The default reads the local
// file system.
func WithLoader(l analysis.FileLoader) Option {
	return func(s *Service) {
		s.loader = l
	}
}

// WithReader sets the parser.
func WithReader(r parser.Reader) Option {
	return func(s *Service) {
		s.reader = r
	}
}

// WithLinter replaces the default rule set.
func WithLinter(l *lint.Linter) Option {
	return func(s *Service) {
		s.linter = l
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTracerProvider sets the provider of the service's tracer. The default
// is the global provider at the time New is called.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		s.tracer = tp.Tracer(TracerName)
	}
}

// WithMetrics registers the service's collectors with reg. Without it no
// metrics are recorded.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *Service) {
		s.metrics = NewMetrics(reg)
	}
}

// WithConcurrency bounds the number of files parsed at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		s.concurrency = n
	}
}

// New returns a Service configured by opts.
func New(opts ...Option) *Service {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = analysis.DefaultRegistry()
	}
	if s.loader == nil {
		s.loader = analysis.OSLoader{}
	}
	if s.reader == nil {
		s.reader = parser.NewReader()
	}
	if s.linter == nil {
		s.linter = lint.New()
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.tracer == nil {
		s.tracer = otel.GetTracerProvider().Tracer(TracerName)
	}
	return s
}

// Loader returns the loader the service reads files with.
func (s *Service) Loader() analysis.FileLoader {
	return s.loader
}

// AnalyzeDocument analyzes source as the content of the file at path.
// Imports are resolved relative to path. A nil cfg means
// lint.DefaultConfig().
//
// The returned error is fatal and is one of *analysis.FileNotFoundError,
// *analysis.ParseError and *analysis.CircularDependencyError, or the
// context's error. Every other problem is a diagnostic of the Result.
func (s *Service) AnalyzeDocument(ctx context.Context, source, path string, cfg *lint.Config) (*Result, error) {
	return s.analyze(ctx, path, []byte(source), cfg)
}

// AnalyzeFile reads the file at path and analyzes it.
func (s *Service) AnalyzeFile(ctx context.Context, path string, cfg *lint.Config) (*Result, error) {
	if analysis.IsBuiltinPath(path) {
		src, ok := s.registry.Lookup(path)
		if !ok {
			return nil, &analysis.FileNotFoundError{Path: path, Err: fmt.Errorf("unknown builtin schema")}
		}
		return s.analyze(ctx, path, []byte(src), cfg)
	}
	canonical, err := s.loader.Resolve("", path)
	if err != nil {
		return nil, &analysis.FileNotFoundError{Path: path, Err: err}
	}
	src, err := s.loader.Load(ctx, canonical)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		err = &analysis.FileNotFoundError{Path: canonical, Err: err}
		s.metrics.countFatal(err)
		return nil, err
	}
	return s.analyze(ctx, canonical, src, cfg)
}

func (s *Service) analyze(ctx context.Context, path string, src []byte, cfg *lint.Config) (_ *Result, err error) {
	if cfg == nil {
		cfg = lint.DefaultConfig()
	}
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "analyze", trace.WithAttributes(attribute.String("mon.path", path)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.metrics.countFatal(err)
			s.logger.Debug("analysis failed", "path", path, "kind", fatalKind(err), "error", err)
		}
		span.End()
	}()

	if !analysis.IsBuiltinPath(path) {
		canonical, err := s.loader.Resolve("", path)
		if err != nil {
			return nil, &analysis.FileNotFoundError{Path: path, Err: err}
		}
		path = canonical
	}

	var doc *ast.Document
	err = s.stage(ctx, StageParse, func(context.Context) error {
		var perr error
		doc, perr = s.reader.Read(path, src)
		if perr != nil {
			return &analysis.ParseError{Path: path, Err: perr}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var g *analysis.Graph
	err = s.stage(ctx, StageGraph, func(ctx context.Context) error {
		var gerr error
		g, gerr = analysis.LoadGraphDocument(ctx, doc, analysis.GraphOptions{
			Loader:      s.loader,
			Registry:    s.registry,
			Reader:      s.reader,
			Concurrency: s.concurrency,
			Logger:      s.logger,
		})
		return gerr
	})
	if err != nil {
		return nil, err
	}
	s.metrics.countParsed(g.Parsed + 1)

	table := analysis.NewSymbolTable(path)
	var res *analysis.Resolution
	_ = s.stage(ctx, StageResolve, func(context.Context) error {
		res = analysis.Resolve(g, table, analysis.ResolveOptions{Logger: s.logger})
		return nil
	})

	var entryRaw []diagnostic.Diagnostic
	byFile := make(map[string][]diagnostic.Diagnostic)
	for _, list := range [][]diagnostic.Diagnostic{g.Diagnostics, res.Diagnostics} {
		for _, d := range list {
			if d.File == path || d.File == "" {
				entryRaw = append(entryRaw, d)
			} else {
				byFile[d.File] = append(byFile[d.File], d)
			}
		}
	}

	err = s.stage(ctx, StageLint, func(ctx context.Context) error {
		found, lerr := s.linter.Run(ctx, lint.Input{
			File:    path,
			Doc:     doc,
			Graph:   g,
			Symbols: table,
			Loader:  s.loader,
		}, cfg)
		entryRaw = append(entryRaw, found...)
		return lerr
	})
	if err != nil {
		return nil, err
	}

	result := &Result{
		Path:     path,
		Document: doc,
		Graph:    g,
		Symbols:  table,
		Scopes:   res.Scopes,
	}
	_ = s.stage(ctx, StagePolicy, func(context.Context) error {
		result.Diagnostics = lint.Process(entryRaw, doc, cfg)
		for _, n := range g.Order {
			if diags, ok := byFile[n.Path]; ok {
				result.ImportDiagnostics = append(result.ImportDiagnostics, lint.Process(diags, n.Doc, cfg)...)
			}
		}
		result.ImportDiagnostics = lint.SortDiagnostics(result.ImportDiagnostics)
		return nil
	})

	s.metrics.countDiagnostics(result.Diagnostics)
	span.SetAttributes(
		attribute.Int("mon.files", len(g.Files)),
		attribute.Int("mon.diagnostics", len(result.Diagnostics)),
	)
	s.logger.Debug("analysis complete",
		"path", path,
		"files", len(g.Files),
		"symbols", table.SymbolCount(),
		"diagnostics", len(result.Diagnostics),
		"elapsed", time.Since(start))
	return result, nil
}

// stage runs fn in a child span named after the stage and records its
// duration.
func (s *Service) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, name)
	defer span.End()
	err := fn(ctx)
	s.metrics.observeStage(name, start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// CycleDiagnostics lints a document whose imports loop back into it, which
// AnalyzeDocument rejects as fatal. The rules that need resolution are
// skipped and the cycle is reported as a CircularDependency diagnostic on
// the import that enters it. Editors use it to keep reporting on a buffer
// while its imports are being rearranged.
func (s *Service) CycleDiagnostics(ctx context.Context, source, path string, cycle []string, cfg *lint.Config) ([]diagnostic.Diagnostic, error) {
	if cfg == nil {
		cfg = lint.DefaultConfig()
	}
	doc, err := s.reader.Read(path, []byte(source))
	if err != nil {
		return nil, &analysis.ParseError{Path: path, Err: err}
	}
	diags, err := s.linter.Run(ctx, lint.Input{File: path, Doc: doc, Cycle: cycle, Loader: s.loader}, cfg)
	if err != nil {
		return nil, err
	}
	return lint.Process(diags, doc, cfg), nil
}
