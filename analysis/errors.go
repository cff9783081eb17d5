// Copyright © 2025 The MON authors

package analysis

import (
	"fmt"
	"strings"

	"github.com/monlang/mon/parser/token"
)

// FileNotFoundError is returned when the entry file of an analysis cannot
// be read.
type FileNotFoundError struct {
	Path string
	Err  error
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s: %v", e.Path, e.Err)
}

func (e *FileNotFoundError) Unwrap() error {
	return e.Err
}

// ParseError is returned when the entry file of an analysis has a syntax
// error.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("syntax error: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Location returns the position of the syntax error when the parser
// reported one.
func (e *ParseError) Location() (*token.LocationError, bool) {
	lerr, ok := e.Err.(*token.LocationError)
	return lerr, ok
}

// CircularDependencyError is returned when the import graph contains a
// cycle. Cycle lists the files in import order; its first and last
// elements are the same file.
type CircularDependencyError struct {
	Cycle []string
}

func (e *CircularDependencyError) Error() string {
	return "circular dependency: " + strings.Join(e.Cycle, " -> ")
}

// DuplicateSymbolError is returned by SymbolTable.AddSymbol when a name is
// already defined with the same kind in the same file.
type DuplicateSymbolError struct {
	Existing  Symbol
	Duplicate Symbol
}

func (e *DuplicateSymbolError) Error() string {
	return fmt.Sprintf("%s '%s' is already defined at %s:%s",
		e.Existing.Kind, e.Existing.Name, e.Existing.File, e.Existing.Range.Start)
}
