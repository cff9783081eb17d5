// Copyright © 2025 The MON authors

package lsp

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/monlang/mon/analysis"
)

// textDocumentReferences handles the textDocument/references request. The
// search covers the files in the document's import graph.
func (s *Server) textDocumentReferences(_ *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	_, res, sym, ok := s.lookup(params.TextDocument.URI, params.Position)
	if !ok {
		return nil, nil
	}

	var locs []protocol.Location
	if params.Context.IncludeDeclaration && !analysis.IsBuiltinPath(sym.File) {
		locs = append(locs, protocol.Location{
			URI:   s.resolveURI(params.TextDocument.URI, sym.File),
			Range: toLSPRange(sym.Range),
		})
	}
	for _, ref := range res.Symbols.ReferencesTo(sym) {
		locs = append(locs, protocol.Location{
			URI:   s.resolveURI(params.TextDocument.URI, ref.File),
			Range: toLSPRange(ref.Range),
		})
	}
	return locs, nil
}
