// Copyright © 2025 The MON authors

package cmd

import (
	"context"
	"errors"

	"github.com/monlang/mon/analysis"
	"github.com/monlang/mon/diagnostic"
	"github.com/monlang/mon/lint"
	"github.com/monlang/mon/position"
	"github.com/monlang/mon/service"
)

func (a *app) newRenderer(ctx context.Context, svc *service.Service) *diagnostic.Renderer {
	mode, _ := diagnostic.ParseColorMode(a.v.GetString("color"))
	loader := svc.Loader()
	return &diagnostic.Renderer{
		Color:        mode,
		Explain:      a.v.GetBool("explain"),
		SourceReader: func(path string) ([]byte, error) { return loader.Load(ctx, path) },
	}
}

// fileReport is the outcome of checking one file.
type fileReport struct {
	Path        string                  `json:"path"`
	Diagnostics []diagnostic.Diagnostic `json:"diagnostics"`
	Error       string                  `json:"error,omitempty"`

	result *service.Result
	fatal  error
}

// checkFile analyzes path. A syntax error becomes a diagnostic at its
// location and an import cycle is reported by the lint rule, so both
// render like any other finding; other failures are fatal.
func checkFile(ctx context.Context, svc *service.Service, path string, cfg *lint.Config) fileReport {
	rep := fileReport{Path: path, Diagnostics: []diagnostic.Diagnostic{}}
	res, err := svc.AnalyzeFile(ctx, path, cfg)
	if err == nil {
		rep.Path = res.Path
		rep.Diagnostics = withFile(res.Diagnostics, res.Path)
		rep.result = res
		return rep
	}

	var (
		cycle    *analysis.CircularDependencyError
		parseErr *analysis.ParseError
	)
	switch {
	case errors.As(err, &cycle):
		if entry, rerr := svc.Loader().Resolve("", path); rerr == nil {
			src, rerr := svc.Loader().Load(ctx, entry)
			if rerr == nil {
				diags, cerr := svc.CycleDiagnostics(ctx, string(src), entry, cycle.Cycle, cfg)
				if cerr == nil {
					rep.Path = entry
					rep.Diagnostics = withFile(diags, entry)
					return rep
				}
			}
		}
	case errors.As(err, &parseErr):
		src, rerr := svc.Loader().Load(ctx, parseErr.Path)
		if d, ok := syntaxDiagnostic(parseErr, string(src)); rerr == nil && ok {
			rep.Path = parseErr.Path
			rep.Diagnostics = []diagnostic.Diagnostic{d}
			return rep
		}
	}
	rep.fatal = err
	rep.Error = err.Error()
	return rep
}

// syntaxDiagnostic locates a syntax error in its source file.
func syntaxDiagnostic(err *analysis.ParseError, src string) (diagnostic.Diagnostic, bool) {
	lerr, ok := err.Location()
	if !ok {
		return diagnostic.Diagnostic{}, false
	}
	idx := position.NewIndex(src)
	start := max(0, min(lerr.Start, len(src)))
	end := max(start, min(lerr.End, len(src)))
	return diagnostic.Diagnostic{
		Severity: diagnostic.SeverityError,
		Message:  "syntax error: " + lerr.Err.Error(),
		Range:    idx.Range(start, end),
		File:     err.Path,
	}, true
}

func withFile(diags []diagnostic.Diagnostic, path string) []diagnostic.Diagnostic {
	out := make([]diagnostic.Diagnostic, len(diags))
	for i, d := range diags {
		if d.File == "" {
			d.File = path
		}
		out[i] = d
	}
	return out
}

func countErrors(diags []diagnostic.Diagnostic) int {
	n := 0
	for _, d := range diags {
		if d.Severity == diagnostic.SeverityError && !d.Suppressed {
			n++
		}
	}
	return n
}
