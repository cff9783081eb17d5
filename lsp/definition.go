// Copyright © 2025 The MON authors

package lsp

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/monlang/mon/analysis"
	"github.com/monlang/mon/service"
)

// lookup returns the document's analysis and the symbol at p, analyzing
// the document first if needed.
func (s *Server) lookup(uri string, p protocol.Position) (*Document, *service.Result, analysis.Symbol, bool) {
	doc := s.docs.Get(uri)
	if doc == nil {
		return nil, nil, analysis.Symbol{}, false
	}
	s.ensureAnalysis(doc)
	res, _ := doc.snapshot()
	if res == nil {
		return doc, nil, analysis.Symbol{}, false
	}
	sym, ok := symbolAt(res.Symbols, doc.Path, p)
	return doc, res, sym, ok
}

// textDocumentDefinition handles the textDocument/definition request. It
// jumps from an alias, spread, type annotation, enum value or import
// binding to the definition it resolved to.
func (s *Server) textDocumentDefinition(_ *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	_, _, sym, ok := s.lookup(params.TextDocument.URI, params.Position)
	if !ok || analysis.IsBuiltinPath(sym.File) {
		return nil, nil
	}
	return protocol.Location{
		URI:   s.resolveURI(params.TextDocument.URI, sym.File),
		Range: toLSPRange(sym.Range),
	}, nil
}

// resolveURI maps a file path from the analysis to a document URI. The
// current document keeps the URI the client sent.
func (s *Server) resolveURI(currentURI, file string) string {
	if file == "" || file == uriToPath(currentURI) {
		return currentURI
	}
	return pathToURI(file)
}
