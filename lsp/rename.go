// Copyright © 2025 The MON authors

package lsp

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/monlang/mon/analysis"
)

var identifier = regexp.MustCompile(`^[\p{L}_][\p{L}\p{N}_]*$`)

// renameable reports whether sym can be renamed from the document at
// path. Only anchors and types defined in the document itself qualify;
// the files importing them are not tracked.
func renameable(sym analysis.Symbol, path string) bool {
	return sym.File == path && (sym.Kind == analysis.SymAnchor || sym.Kind == analysis.SymType)
}

// textDocumentPrepareRename validates that the symbol under the cursor
// is renameable and returns its range.
func (s *Server) textDocumentPrepareRename(_ *glsp.Context, params *protocol.PrepareRenameParams) (any, error) {
	doc, res, sym, ok := s.lookup(params.TextDocument.URI, params.Position)
	if !ok || !renameable(sym, doc.Path) {
		// Per the protocol, null means the position cannot be renamed.
		return nil, nil
	}
	rng := sym.Range
	if ref, ok := res.Symbols.FindReferenceAt(doc.Path, fromLSPPosition(params.Position)); ok {
		rng = nameRange(res.Document.Index, res.Document.Source, ref.Range, sym.Name, ref.RefKind == analysis.RefEnumValue)
	}
	return &protocol.RangeWithPlaceholder{
		Range:       toLSPRange(rng),
		Placeholder: sym.Name,
	}, nil
}

// textDocumentRename handles the textDocument/rename request.
func (s *Server) textDocumentRename(_ *glsp.Context, params *protocol.RenameParams) (*protocol.WorkspaceEdit, error) {
	doc, res, sym, ok := s.lookup(params.TextDocument.URI, params.Position)
	if doc == nil {
		return nil, fmt.Errorf("document not found")
	}
	if !ok {
		return nil, fmt.Errorf("no symbol at position")
	}
	if !renameable(sym, doc.Path) {
		return nil, fmt.Errorf("cannot rename %s '%s' from this file", sym.Kind, sym.Name)
	}
	if !identifier.MatchString(params.NewName) {
		return nil, fmt.Errorf("'%s' is not a valid name", params.NewName)
	}
	doc.mu.Lock()
	fresh, fatal := doc.fresh(), doc.fatal
	doc.mu.Unlock()
	if !fresh || fatal != nil {
		return nil, fmt.Errorf("cannot rename while the document has errors")
	}
	if _, taken := res.Symbols.FindSymbolIn(doc.Path, params.NewName, sym.Kind); taken {
		return nil, fmt.Errorf("%s '%s' is already defined", sym.Kind, params.NewName)
	}

	uri := params.TextDocument.URI
	edits := []protocol.TextEdit{{Range: toLSPRange(sym.Range), NewText: params.NewName}}
	for _, ref := range res.Symbols.ReferencesTo(sym) {
		if ref.File != doc.Path {
			continue
		}
		rng := nameRange(res.Document.Index, res.Document.Source, ref.Range, sym.Name, ref.RefKind == analysis.RefEnumValue)
		edits = append(edits, protocol.TextEdit{Range: toLSPRange(rng), NewText: params.NewName})
	}
	// References are recorded in resolution order, not source order.
	sort.Slice(edits, func(i, j int) bool {
		a, b := edits[i].Range.Start, edits[j].Range.Start
		return a.Line < b.Line || a.Line == b.Line && a.Character < b.Character
	})
	return &protocol.WorkspaceEdit{
		Changes: map[protocol.DocumentUri][]protocol.TextEdit{uri: edits},
	}, nil
}
