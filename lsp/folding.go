// Copyright © 2025 The MON authors

package lsp

import (
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/monlang/mon/ast"
	"github.com/monlang/mon/astutil"
	"github.com/monlang/mon/parser"
)

// textDocumentFoldingRange handles the textDocument/foldingRange request.
// It folds multi-line objects, arrays and type definitions, the import
// block, and runs of comments. The buffer is parsed as is; when it does not
// parse, the tree of the last successful analysis is used.
func (s *Server) textDocumentFoldingRange(_ *glsp.Context, params *protocol.FoldingRangeParams) ([]protocol.FoldingRange, error) {
	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	res, content := doc.snapshot()
	tree, err := parser.Parse(doc.Path, []byte(content))
	if err != nil {
		if res == nil || res.Document == nil {
			return nil, nil
		}
		tree = res.Document
	}
	return foldingRanges(tree), nil
}

func foldingRanges(doc *ast.Document) []protocol.FoldingRange {
	var ranges []protocol.FoldingRange
	add := func(n ast.Node, kind protocol.FoldingRangeKind) {
		r := n.Range()
		if r.End.Line > r.Start.Line {
			ranges = append(ranges, fold(r.Start.Line, r.End.Line, kind))
		}
	}

	if len(doc.Imports) > 1 {
		first := doc.Imports[0].Range().Start.Line
		last := doc.Imports[len(doc.Imports)-1].Range().End.Line
		if last > first {
			ranges = append(ranges, fold(first, last, protocol.FoldingRangeKindImports))
		}
	}

	astutil.Walk(doc.Root, func(v ast.Value, _ ast.Value, _ int) {
		switch v := v.(type) {
		case *ast.Object:
			add(v, protocol.FoldingRangeKindRegion)
			for _, m := range v.Members {
				if td, ok := m.(*ast.TypeDef); ok {
					add(td, protocol.FoldingRangeKindRegion)
				}
			}
		case *ast.Array:
			add(v, protocol.FoldingRangeKindRegion)
		}
	})

	return append(ranges, commentFoldingRanges(doc.Comments)...)
}

// commentFoldingRanges folds each multi-line block comment and each run of
// two or more line comments on consecutive lines.
func commentFoldingRanges(comments []*ast.Comment) []protocol.FoldingRange {
	var ranges []protocol.FoldingRange
	start, end := -1, -1
	flush := func() {
		if start >= 0 && end > start {
			ranges = append(ranges, fold(uint32(start), uint32(end), protocol.FoldingRangeKindComment))
		}
		start, end = -1, -1
	}
	for _, c := range comments {
		r := c.Range()
		if strings.HasPrefix(c.Text, "/*") {
			flush()
			if r.End.Line > r.Start.Line {
				ranges = append(ranges, fold(r.Start.Line, r.End.Line, protocol.FoldingRangeKindComment))
			}
			continue
		}
		line := int(r.Start.Line)
		if start >= 0 && line == end+1 {
			end = line
			continue
		}
		flush()
		start, end = line, line
	}
	flush()
	return ranges
}

func fold(start, end uint32, kind protocol.FoldingRangeKind) protocol.FoldingRange {
	k := string(kind)
	return protocol.FoldingRange{StartLine: start, EndLine: end, Kind: &k}
}
