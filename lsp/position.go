// Copyright © 2025 The MON authors

package lsp

import (
	"net/url"
	"path/filepath"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/monlang/mon/analysis"
	"github.com/monlang/mon/position"
)

// Engine positions are already zero-based UTF-16 line/character pairs, so
// conversion is a field copy.

func toLSPPosition(p position.Position) protocol.Position {
	return protocol.Position{Line: p.Line, Character: p.Character}
}

func toLSPRange(r position.Range) protocol.Range {
	return protocol.Range{Start: toLSPPosition(r.Start), End: toLSPPosition(r.End)}
}

func fromLSPPosition(p protocol.Position) position.Position {
	return position.Position{Line: p.Line, Character: p.Character}
}

// symbolAt finds the symbol defined or referenced at p. A cursor just past
// the end of a name also selects it, since that is where editors leave the
// cursor after typing.
func symbolAt(table *analysis.SymbolTable, file string, p protocol.Position) (analysis.Symbol, bool) {
	pos := fromLSPPosition(p)
	if sym, ok := table.FindSymbolAt(file, pos); ok {
		return sym, true
	}
	if pos.Character > 0 {
		pos.Character--
		return table.FindSymbolAt(file, pos)
	}
	return analysis.Symbol{}, false
}

// nameRange narrows rng to the occurrence of name inside it. Reference
// ranges may cover a whole qualified reference such as "ns.Type?" or
// "$Enum.Variant" while an edit must touch only the name.
func nameRange(idx *position.Index, src string, rng position.Range, name string, enumValue bool) position.Range {
	start, err1 := idx.PositionToOffset(rng.Start)
	end, err2 := idx.PositionToOffset(rng.End)
	if err1 != nil || err2 != nil || end > len(src) || start > end {
		return rng
	}
	text := src[start:end]
	var i int
	if enumValue {
		// $[ns.]Enum.Variant: the enum is the part before the last dot.
		dot := strings.LastIndexByte(text, '.')
		if dot < 0 {
			return rng
		}
		i = strings.LastIndex(text[:dot], name)
	} else {
		i = strings.LastIndex(text, name)
	}
	if i < 0 {
		return rng
	}
	return idx.Range(start+i, start+i+len(name))
}

// uriToPath converts a file:// URI to a filesystem path. Other URIs are
// returned unchanged and analyzed as opaque paths.
func uriToPath(uri string) string {
	if !strings.HasPrefix(uri, "file://") {
		return uri
	}
	u, err := url.Parse(uri)
	if err != nil {
		return strings.TrimPrefix(uri, "file://")
	}
	return filepath.FromSlash(u.Path)
}

// pathToURI converts an absolute filesystem path to a file:// URI.
func pathToURI(path string) string {
	if analysis.IsBuiltinPath(path) || !filepath.IsAbs(path) {
		return path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}

func boolPtr(b bool) *bool {
	return &b
}

func strPtr(s string) *string {
	return &s
}
