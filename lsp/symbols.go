// Copyright © 2025 The MON authors

package lsp

import (
	"fmt"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/monlang/mon/analysis"
	"github.com/monlang/mon/ast"
	"github.com/monlang/mon/astutil"
)

// textDocumentDocumentSymbol handles the textDocument/documentSymbol
// request. Imports come first, then the members of the root object with
// nested object keys, struct fields and enum variants as children.
func (s *Server) textDocumentDocumentSymbol(_ *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	s.ensureAnalysis(doc)
	res, _ := doc.snapshot()
	if res == nil {
		return nil, nil
	}

	var symbols []protocol.DocumentSymbol
	for _, sym := range res.Symbols.SymbolsIn(doc.Path) {
		switch sym.Kind {
		case analysis.SymImport, analysis.SymNamespace:
			kind := protocol.SymbolKindModule
			if sym.Kind == analysis.SymNamespace {
				kind = protocol.SymbolKindNamespace
			}
			r := toLSPRange(sym.Range)
			symbols = append(symbols, protocol.DocumentSymbol{
				Name:           sym.Name,
				Detail:         strPtr(sym.Detail),
				Kind:           kind,
				Range:          r,
				SelectionRange: r,
			})
		}
	}
	if root, ok := res.Document.Root.(*ast.Object); ok {
		symbols = append(symbols, memberSymbols(root)...)
	}
	return symbols, nil
}

// memberSymbols lists the literal members of obj. Spreads are skipped.
func memberSymbols(obj *ast.Object) []protocol.DocumentSymbol {
	var out []protocol.DocumentSymbol
	for _, m := range obj.Members {
		switch m := m.(type) {
		case *ast.Pair:
			out = append(out, pairSymbol(m))
		case *ast.TypeDef:
			out = append(out, typeSymbol(m))
		case *ast.Spread:
		default:
			panic(fmt.Sprintf("lsp: unhandled member %T", m))
		}
	}
	return out
}

func pairSymbol(p *ast.Pair) protocol.DocumentSymbol {
	name := p.Key
	kind := protocol.SymbolKindProperty
	if p.Anchored {
		name = "&" + p.Key
		kind = protocol.SymbolKindVariable
	}
	detail := astutil.Preview(p.Value)
	if p.Type != nil {
		detail = p.Type.String()
	}
	sym := protocol.DocumentSymbol{
		Name:           name,
		Detail:         &detail,
		Kind:           kind,
		Range:          toLSPRange(p.Range()),
		SelectionRange: toLSPRange(p.KeySpan.Range()),
	}
	// Only literal objects nest; an alias points elsewhere.
	if inner, ok := p.Value.(*ast.Object); ok {
		sym.Children = memberSymbols(inner)
	}
	return sym
}

func typeSymbol(td *ast.TypeDef) protocol.DocumentSymbol {
	sym := protocol.DocumentSymbol{
		Name:           td.Name,
		Range:          toLSPRange(td.Range()),
		SelectionRange: toLSPRange(td.NameSpan.Range()),
	}
	switch decl := td.Decl.(type) {
	case *ast.StructType:
		sym.Kind = protocol.SymbolKindStruct
		sym.Detail = strPtr("#struct")
		for _, f := range decl.Fields {
			sym.Children = append(sym.Children, protocol.DocumentSymbol{
				Name:           f.Name,
				Detail:         strPtr(f.Type.String()),
				Kind:           protocol.SymbolKindField,
				Range:          toLSPRange(f.Range()),
				SelectionRange: toLSPRange(f.NameSpan.Range()),
			})
		}
	case *ast.EnumType:
		sym.Kind = protocol.SymbolKindEnum
		sym.Detail = strPtr("#enum")
		for _, v := range decl.Variants {
			r := toLSPRange(v.Range())
			sym.Children = append(sym.Children, protocol.DocumentSymbol{
				Name:           v.Name,
				Kind:           protocol.SymbolKindEnumMember,
				Range:          r,
				SelectionRange: r,
			})
		}
	default:
		panic(fmt.Sprintf("lsp: unhandled type declaration %T", decl))
	}
	return sym
}
