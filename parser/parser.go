// Copyright © 2025 The MON authors

// Package parser turns MON source text into syntax trees.
package parser

import (
	"github.com/monlang/mon/ast"
	"github.com/monlang/mon/parser/rdparser"
)

// Reader parses one document. The import graph loader takes a Reader so
// that callers may substitute their own front end.
type Reader interface {
	Read(name string, src []byte) (*ast.Document, error)
}

type reader struct{}

// NewReader returns the default recursive-descent Reader.
func NewReader() Reader {
	return reader{}
}

func (reader) Read(name string, src []byte) (*ast.Document, error) {
	return Parse(name, src)
}

// Parse parses src as the document name. Errors are *token.LocationError.
func Parse(name string, src []byte) (*ast.Document, error) {
	return rdparser.New(name, string(src)).ParseDocument()
}
