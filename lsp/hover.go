// Copyright © 2025 The MON authors

package lsp

import (
	"fmt"
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/monlang/mon/analysis"
	"github.com/monlang/mon/ast"
	"github.com/monlang/mon/astutil"
	"github.com/monlang/mon/export"
	"github.com/monlang/mon/service"
)

// maxPreviewLines bounds the resolved value shown in hover text.
const maxPreviewLines = 20

// textDocumentHover handles the textDocument/hover request.
func (s *Server) textDocumentHover(_ *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc, res, sym, ok := s.lookup(params.TextDocument.URI, params.Position)
	if res == nil {
		return nil, nil
	}
	var content string
	if ok {
		content = buildHoverContent(res, doc.Path, sym)
	} else {
		content = keyHoverContent(res, params.Position)
	}
	if content == "" {
		return nil, nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: content,
		},
	}, nil
}

// buildHoverContent builds Markdown hover text for a symbol: its kind and
// name, its detail, its doc comment and, for anchors, the resolved value.
func buildHoverContent(res *service.Result, path string, sym analysis.Symbol) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s** `%s`", sym.Kind, sym.Name)
	if sym.Detail != "" {
		fmt.Fprintf(&sb, "\n\n```mon\n%s\n```", sym.Detail)
	}
	if sym.Doc != "" {
		fmt.Fprintf(&sb, "\n\n%s", sym.Doc)
	}
	if sym.Kind == analysis.SymAnchor {
		if scope := res.Scopes[path]; scope != nil {
			if b := scope.Lookup(analysis.SymAnchor, sym.Name); b != nil && b.Symbol.File == sym.File && b.Pair != nil {
				if preview := valuePreview(b.Pair.Value); preview != "" {
					fmt.Fprintf(&sb, "\n\n```json\n%s\n```", preview)
				}
			}
		}
	}
	if sym.File != path {
		fmt.Fprintf(&sb, "\n\n*Defined in %s:%d*", sym.File, sym.Range.Start.Line+1)
	}
	return sb.String()
}

// keyHoverContent describes the plain key under the cursor by its resolved
// value.
func keyHoverContent(res *service.Result, p protocol.Position) string {
	node, _ := astutil.NodeAt(res.Document.Root, fromLSPPosition(p))
	key, ok := node.(astutil.KeyNode)
	if !ok {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "**key** `%s`", key.Pair.Key)
	if key.Pair.Type != nil {
		fmt.Fprintf(&sb, " :: `%s`", key.Pair.Type)
	}
	if preview := valuePreview(key.Pair.Value); preview != "" {
		fmt.Fprintf(&sb, "\n\n```json\n%s\n```", preview)
	}
	if key.Pair.Doc != "" {
		fmt.Fprintf(&sb, "\n\n%s", key.Pair.Doc)
	}
	return sb.String()
}

// valuePreview renders a resolved value as JSON, cut to maxPreviewLines.
func valuePreview(v ast.Value) string {
	out, err := export.ToJSON(v)
	if err != nil {
		return ""
	}
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	if len(lines) > maxPreviewLines {
		lines = append(lines[:maxPreviewLines], "...")
	}
	return strings.Join(lines, "\n")
}
