// Copyright © 2025 The MON authors

package lsp

import (
	"regexp"
	"sort"
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/monlang/mon/analysis"
	"github.com/monlang/mon/ast"
	"github.com/monlang/mon/position"
)

const ident = `[\p{L}_][\p{L}\p{N}_]*`

// Completion contexts, matched against the text before the cursor.
var (
	// *name, *ns.name and ...*name
	aliasContext = regexp.MustCompile(`\*(?:(` + ident + `)\.)?(` + ident + `)?$`)
	// key :: Type and field(Type), optionally an array element type
	typeContext = regexp.MustCompile(`(?:::|\()\s*\[?(?:(` + ident + `)\.)?(` + ident + `)?$`)
	// $Enum.Variant and $ns.Enum.Variant
	enumContext = regexp.MustCompile(`\$((?:` + ident + `\.){0,2})(` + ident + `)?$`)
)

var builtinTypes = []string{
	ast.TypeString, ast.TypeNumber, ast.TypeBoolean, ast.TypeNull,
	ast.TypeAny, ast.TypeObject, ast.TypeArray,
}

// textDocumentCompletion handles the textDocument/completion request. It
// offers anchors after '*', types after '::' and enum variants after
// '$Enum.'. Names come from the last successful analysis, so completion
// keeps working while the line being typed does not parse.
func (s *Server) textDocumentCompletion(_ *glsp.Context, params *protocol.CompletionParams) (any, error) {
	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	s.ensureAnalysis(doc)
	res, content := doc.snapshot()

	var scope *analysis.Scope
	if res != nil {
		scope = res.Scopes[res.Path]
	}
	items := completions(scope, linePrefix(content, params.Position))
	sort.SliceStable(items, func(i, j int) bool { return items[i].Label < items[j].Label })
	return items, nil
}

// linePrefix returns the text of the cursor's line before the cursor.
func linePrefix(content string, p protocol.Position) string {
	off, err := position.NewIndex(content).PositionToOffset(fromLSPPosition(p))
	if err != nil {
		return ""
	}
	start := strings.LastIndexByte(content[:off], '\n') + 1
	return content[start:off]
}

func completions(scope *analysis.Scope, prefix string) []protocol.CompletionItem {
	if m := enumContext.FindStringSubmatch(prefix); m != nil {
		return enumCompletions(scope, m[1], m[2])
	}
	if m := aliasContext.FindStringSubmatch(prefix); m != nil {
		return bindingCompletions(scope, analysis.SymAnchor, m[1], m[2])
	}
	if m := typeContext.FindStringSubmatch(prefix); m != nil {
		items := bindingCompletions(scope, analysis.SymType, m[1], m[2])
		if m[1] == "" {
			kind := protocol.CompletionItemKindKeyword
			for _, name := range builtinTypes {
				if strings.HasPrefix(name, m[2]) {
					items = append(items, protocol.CompletionItem{Label: name, Kind: &kind})
				}
			}
		}
		return items
	}
	return nil
}

// bindingCompletions offers the anchors or types visible in scope, or
// exported by the namespace ns, whose names start with partial.
func bindingCompletions(scope *analysis.Scope, kind analysis.SymbolKind, ns, partial string) []protocol.CompletionItem {
	if scope == nil {
		return nil
	}
	source := scope
	if ns != "" {
		n := scope.LookupNamespace(ns)
		if n == nil || n.Scope == nil {
			return nil
		}
		source = n.Scope
	}
	var items []protocol.CompletionItem
	for name, b := range source.Visible(kind) {
		if !strings.HasPrefix(name, partial) {
			continue
		}
		items = append(items, bindingItem(name, b))
	}
	if ns == "" {
		items = append(items, namespaceItems(scope, partial)...)
	}
	return items
}

func bindingItem(name string, b *analysis.Binding) protocol.CompletionItem {
	kind := protocol.CompletionItemKindVariable
	if b.Type != nil {
		kind = protocol.CompletionItemKindClass
		if _, ok := b.Type.Decl.(*ast.EnumType); ok {
			kind = protocol.CompletionItemKindEnum
		}
	}
	item := protocol.CompletionItem{Label: name, Kind: &kind}
	if b.Symbol.Detail != "" {
		item.Detail = strPtr(b.Symbol.Detail)
	}
	if b.Symbol.Doc != "" {
		item.Documentation = &protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.Symbol.Doc,
		}
	}
	return item
}

func namespaceItems(scope *analysis.Scope, partial string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	kind := protocol.CompletionItemKindModule
	for _, name := range scope.NamespaceNames() {
		if strings.HasPrefix(name, partial) {
			items = append(items, protocol.CompletionItem{Label: name, Kind: &kind})
		}
	}
	return items
}

// enumCompletions handles '$' references. quals holds the dotted
// qualifiers typed so far, each followed by '.'.
func enumCompletions(scope *analysis.Scope, quals, partial string) []protocol.CompletionItem {
	if scope == nil {
		return nil
	}
	var parts []string
	if quals != "" {
		parts = strings.Split(strings.TrimSuffix(quals, "."), ".")
	}
	switch len(parts) {
	case 0:
		return append(enumTypes(scope, partial), namespaceItems(scope, partial)...)
	case 1:
		if n := scope.LookupNamespace(parts[0]); n != nil {
			if n.Scope == nil {
				return nil
			}
			return enumTypes(n.Scope, partial)
		}
		return variants(scope.Lookup(analysis.SymType, parts[0]), partial)
	default:
		n := scope.LookupNamespace(parts[0])
		if n == nil || n.Scope == nil {
			return nil
		}
		return variants(n.Scope.Lookup(analysis.SymType, parts[1]), partial)
	}
}

func enumTypes(scope *analysis.Scope, partial string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	for name, b := range scope.Visible(analysis.SymType) {
		if _, ok := b.Type.Decl.(*ast.EnumType); ok && strings.HasPrefix(name, partial) {
			items = append(items, bindingItem(name, b))
		}
	}
	return items
}

func variants(b *analysis.Binding, partial string) []protocol.CompletionItem {
	if b == nil || b.Type == nil {
		return nil
	}
	enum, ok := b.Type.Decl.(*ast.EnumType)
	if !ok {
		return nil
	}
	kind := protocol.CompletionItemKindEnumMember
	var items []protocol.CompletionItem
	for _, name := range enum.VariantNames() {
		if strings.HasPrefix(name, partial) {
			items = append(items, protocol.CompletionItem{
				Label:  name,
				Kind:   &kind,
				Detail: strPtr("$" + b.Symbol.Name + "." + name),
			})
		}
	}
	return items
}
