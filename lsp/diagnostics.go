// Copyright © 2025 The MON authors

package lsp

import (
	"context"
	"errors"
	"time"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/monlang/mon/analysis"
	"github.com/monlang/mon/diagnostic"
	"github.com/monlang/mon/position"
)

const diagnosticSource = "mon"

// textDocumentDidOpen handles the textDocument/didOpen notification.
func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.captureNotify(ctx)
	doc := s.docs.Open(
		params.TextDocument.URI,
		int32(params.TextDocument.Version),
		params.TextDocument.Text,
	)
	s.analyzeAndPublish(doc)
	s.refreshDependents(doc)
	return nil
}

// textDocumentDidChange handles the textDocument/didChange notification.
func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	s.captureNotify(ctx)
	// With full sync, the last content change is the complete document.
	var content string
	for _, change := range params.ContentChanges {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			content = c.Text
		case protocol.TextDocumentContentChangeEvent:
			content = c.Text
		}
	}

	doc, changed := s.docs.Change(params.TextDocument.URI, int32(params.TextDocument.Version), content)
	if !changed {
		return nil
	}

	// Debounce: delay analysis to avoid thrashing during rapid edits.
	s.debounceMu.Lock()
	if t, ok := s.debounce[doc.URI]; ok {
		t.Stop()
	}
	s.debounce[doc.URI] = time.AfterFunc(s.debounceDelay, func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("analysis panic", "uri", doc.URI, "panic", r)
			}
		}()
		if d := s.docs.Get(doc.URI); d != nil {
			s.analyzeAndPublish(d)
			s.refreshDependents(d)
		}
	})
	s.debounceMu.Unlock()
	return nil
}

// textDocumentDidSave handles the textDocument/didSave notification.
func (s *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	s.captureNotify(ctx)
	s.cancelDebounce(params.TextDocument.URI)
	if doc := s.docs.Get(params.TextDocument.URI); doc != nil {
		s.analyzeAndPublish(doc)
		s.refreshDependents(doc)
	}
	return nil
}

// textDocumentDidClose handles the textDocument/didClose notification.
func (s *Server) textDocumentDidClose(_ *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.cancelDebounce(params.TextDocument.URI)
	doc := s.docs.Get(params.TextDocument.URI)

	// Clear diagnostics for the closed file.
	s.sendNotification(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []protocol.Diagnostic{},
	})
	s.docs.Close(params.TextDocument.URI)

	// Importers now see the file on disk instead of the buffer.
	if doc != nil {
		s.refreshDependents(doc)
	}
	return nil
}

func (s *Server) cancelDebounce(uri string) {
	s.debounceMu.Lock()
	if t, ok := s.debounce[uri]; ok {
		t.Stop()
		delete(s.debounce, uri)
	}
	s.debounceMu.Unlock()
}

// analyze runs the engine on the document's current content and replaces
// its diagnostics. The document lock is not held while the engine runs,
// because loading imports reads the other open buffers, and possibly this
// one when its imports form a cycle.
func (s *Server) analyze(ctx context.Context, doc *Document) {
	doc.mu.Lock()
	content, hash, path := doc.Content, doc.hash, doc.Path
	doc.mu.Unlock()

	cfg := s.config()
	res, err := s.svc.AnalyzeDocument(ctx, content, path, cfg)
	var diags []diagnostic.Diagnostic
	if err == nil {
		diags = res.Diagnostics
	} else {
		var (
			cycle    *analysis.CircularDependencyError
			parseErr *analysis.ParseError
		)
		switch {
		case errors.As(err, &cycle):
			var cerr error
			diags, cerr = s.svc.CycleDiagnostics(ctx, content, path, cycle.Cycle, cfg)
			if cerr != nil {
				s.logger.Debug("cycle lint failed", "path", path, "error", cerr)
			}
		case errors.As(err, &parseErr):
		default:
			s.logger.Warn("analysis failed", "path", path, "error", err)
		}
	}

	doc.mu.Lock()
	defer doc.mu.Unlock()
	if doc.hash != hash {
		// Edited while analyzing; the pending debounce will redo it.
		return
	}
	doc.analyzed = hash
	doc.diags = diags
	doc.fatal = err
	if res != nil {
		doc.result = res
	}
}

// analyzeAndPublish analyzes the document if its content changed since the
// last analysis and publishes its diagnostics to the client.
func (s *Server) analyzeAndPublish(doc *Document) {
	s.ensureAnalysis(doc)

	doc.mu.Lock()
	uri := doc.URI
	content := doc.Content
	diags := doc.diags
	fatal := doc.fatal
	doc.mu.Unlock()

	out := make([]protocol.Diagnostic, 0, len(diags)+1)
	if fatal != nil {
		if d, ok := fatalDiagnostic(fatal, content); ok {
			out = append(out, d)
		}
	}
	for _, d := range diags {
		out = append(out, convertDiagnostic(uri, d))
	}
	s.sendNotification(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: out,
	})
}

// refreshDependents re-analyzes the other open documents whose last
// analysis loaded doc, since they saw its previous content.
func (s *Server) refreshDependents(doc *Document) {
	for _, other := range s.docs.All() {
		if other == doc {
			continue
		}
		other.mu.Lock()
		res := other.result
		stale := res != nil && res.Graph != nil && res.Graph.Files[doc.Path] != nil
		if stale {
			other.analyzed = 0
		}
		other.mu.Unlock()
		if stale {
			s.analyzeAndPublish(other)
		}
	}
}

// fatalDiagnostic reports an error that stopped the analysis. Cycles are
// reported by the lint rule instead.
func fatalDiagnostic(err error, content string) (protocol.Diagnostic, bool) {
	var (
		cycle    *analysis.CircularDependencyError
		parseErr *analysis.ParseError
	)
	if errors.As(err, &cycle) {
		return protocol.Diagnostic{}, false
	}
	d := protocol.Diagnostic{
		Severity: severity(protocol.DiagnosticSeverityError),
		Source:   strPtr(diagnosticSource),
		Message:  err.Error(),
	}
	if errors.As(err, &parseErr) {
		if lerr, ok := parseErr.Location(); ok {
			d.Message = lerr.Err.Error()
			rng := parseErrorRange(lerr.Start, lerr.End, content)
			d.Range = toLSPRange(rng)
		}
	}
	return d, true
}

// parseErrorRange converts the byte offsets of a syntax error, clamped to
// the content, into a range.
func parseErrorRange(start, end int, content string) position.Range {
	clamp := func(n int) int {
		return max(0, min(n, len(content)))
	}
	start, end = clamp(start), clamp(end)
	if end < start {
		end = start
	}
	return position.NewIndex(content).Range(start, end)
}

// convertDiagnostic converts an engine diagnostic to an LSP diagnostic.
func convertDiagnostic(uri string, d diagnostic.Diagnostic) protocol.Diagnostic {
	sev := mapSeverity(d.Severity)
	out := protocol.Diagnostic{
		Range:    toLSPRange(d.Range),
		Severity: &sev,
		Code:     &protocol.IntegerOrString{Value: d.Code.ID()},
		Source:   strPtr(diagnosticSource),
		Message:  d.Message,
	}
	for _, tag := range d.Tags {
		switch tag {
		case diagnostic.TagUnnecessary:
			out.Tags = append(out.Tags, protocol.DiagnosticTagUnnecessary)
		case diagnostic.TagDeprecated:
			out.Tags = append(out.Tags, protocol.DiagnosticTagDeprecated)
		}
	}
	for _, r := range d.Related {
		loc := r.Location.URI
		if loc == "" || uriToPath(uri) == loc {
			loc = uri
		} else {
			loc = pathToURI(loc)
		}
		out.RelatedInformation = append(out.RelatedInformation, protocol.DiagnosticRelatedInformation{
			Location: protocol.Location{URI: loc, Range: toLSPRange(r.Location.Range)},
			Message:  r.Message,
		})
	}
	return out
}

// mapSeverity converts a diagnostic severity to an LSP severity.
func mapSeverity(sev diagnostic.Severity) protocol.DiagnosticSeverity {
	switch sev {
	case diagnostic.SeverityError:
		return protocol.DiagnosticSeverityError
	case diagnostic.SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	case diagnostic.SeverityInfo:
		return protocol.DiagnosticSeverityInformation
	default:
		return protocol.DiagnosticSeverityWarning
	}
}

func severity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity {
	return &s
}
