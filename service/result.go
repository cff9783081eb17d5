// Copyright © 2025 The MON authors

package service

import (
	"github.com/monlang/mon/analysis"
	"github.com/monlang/mon/ast"
	"github.com/monlang/mon/diagnostic"
	"github.com/monlang/mon/export"
)

// Result is a completed analysis of one entry document.
type Result struct {
	// Path is the canonical path of the entry document.
	Path     string
	Document *ast.Document
	Graph    *analysis.Graph
	Symbols  *analysis.SymbolTable
	Scopes   map[string]*analysis.Scope
	// Diagnostics are the entry document's diagnostics after policy and
	// suppression, sorted.
	Diagnostics []diagnostic.Diagnostic
	// ImportDiagnostics are the resolution diagnostics of imported files.
	// They are kept apart so that a file is not blamed for problems in its
	// dependencies.
	ImportDiagnostics []diagnostic.Diagnostic
}

// HasErrors reports whether any entry diagnostic is an error.
func (r *Result) HasErrors() bool {
	return len(r.Errors()) > 0
}

// Errors returns the entry diagnostics of error severity.
func (r *Result) Errors() []diagnostic.Diagnostic {
	return r.bySeverity(diagnostic.SeverityError)
}

// Warnings returns the entry diagnostics of warning severity.
func (r *Result) Warnings() []diagnostic.Diagnostic {
	return r.bySeverity(diagnostic.SeverityWarning)
}

// Infos returns the entry diagnostics of info severity.
func (r *Result) Infos() []diagnostic.Diagnostic {
	return r.bySeverity(diagnostic.SeverityInfo)
}

func (r *Result) bySeverity(sev diagnostic.Severity) []diagnostic.Diagnostic {
	var out []diagnostic.Diagnostic
	for _, d := range r.Diagnostics {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

// Value returns the resolved document as plain Go values.
func (r *Result) Value() any {
	return export.Value(r.Document.Root)
}

// ToJSON renders the resolved document as JSON.
func (r *Result) ToJSON() ([]byte, error) {
	return export.ToJSON(r.Document.Root)
}

// ToYAML renders the resolved document as YAML.
func (r *Result) ToYAML() ([]byte, error) {
	return export.ToYAML(r.Document.Root)
}

// ToTOML renders the resolved document as TOML.
func (r *Result) ToTOML(opts export.TOMLOptions) ([]byte, error) {
	return export.ToTOML(r.Document.Root, opts)
}
