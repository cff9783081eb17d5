// Copyright © 2025 The MON authors

// Package lint provides static analysis for resolved MON documents.
//
// The linter is modeled after go vet: each check is an independent Rule
// that receives the resolved tree and symbol table and reports
// diagnostics. The framework runs the rules, collects results, and applies
// the severity policy and inline suppressions afterward, so rules never
// need to consult either.
//
// Rules are composable and extensible. Embedders can define custom checks
// alongside the built-in set.
package lint

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/monlang/mon/analysis"
	"github.com/monlang/mon/ast"
	"github.com/monlang/mon/diagnostic"
	"github.com/monlang/mon/position"
)

// Rule defines a single lint check.
type Rule struct {
	// Code is the diagnostic code the rule reports.
	Code diagnostic.Code

	// Enabled reports whether the rule runs under cfg. A nil Enabled means
	// the rule always runs; thresholds are its only configuration.
	Enabled func(cfg *Config) bool

	// Run executes the check. It should call pass.Report for each finding.
	Run func(pass *Pass) error
}

// Name returns the name of the rule's code, e.g. "UnusedAnchor".
func (r *Rule) Name() string {
	return r.Code.Name()
}

// Input is the analyzed document a Linter checks.
type Input struct {
	// File is the path of the document.
	File string
	// Doc is the resolved document.
	Doc *ast.Document
	// Graph is the import graph of the analysis. It may be nil when the
	// graph could not be built.
	Graph *analysis.Graph
	// Symbols is the symbol table of the analysis. It may be nil when the
	// graph could not be built.
	Symbols *analysis.SymbolTable
	// Cycle is an import cycle through the document, reported by
	// CircularDependency when the analysis had to stop at it.
	Cycle []string
	// Loader resolves import paths of the document. It is optional and
	// only used to locate the import statement that starts Cycle.
	Loader analysis.FileLoader
}

// Pass provides context to a running rule.
type Pass struct {
	Rule *Rule
	Input
	Config *Config

	// diagnostics collects reported findings.
	diagnostics []diagnostic.Diagnostic
}

// Report records a diagnostic finding. The code, severity and file default
// to those of the rule and the pass.
func (p *Pass) Report(d diagnostic.Diagnostic) {
	if d.Code == 0 {
		d.Code = p.Rule.Code
	}
	if !d.Severity.IsSet() {
		d.Severity = d.Code.DefaultSeverity()
	}
	if d.File == "" {
		d.File = p.File
	}
	p.diagnostics = append(p.diagnostics, d)
}

// Reportf is a convenience for reporting a diagnostic at a range.
func (p *Pass) Reportf(rng position.Range, format string, args ...any) {
	p.Report(diagnostic.New(p.Rule.Code, rng, format, args...))
}

// ReportRelated reports a diagnostic with related locations.
func (p *Pass) ReportRelated(rng position.Range, related []diagnostic.Related, format string, args ...any) {
	d := diagnostic.New(p.Rule.Code, rng, format, args...)
	d.Related = related
	p.Report(d)
}

// Linter runs a set of rules over an analyzed document.
type Linter struct {
	Rules []*Rule
	// Concurrency bounds the number of rules run at once. Zero means no
	// limit.
	Concurrency int
}

// New returns a Linter running the default rules.
func New() *Linter {
	return &Linter{Rules: DefaultRules()}
}

// Run executes every enabled rule concurrently and returns their raw
// findings, concatenated in rule order. Within one rule, findings keep the
// order they were reported in. No policy or suppression is applied; see
// Process.
func (l *Linter) Run(ctx context.Context, in Input, cfg *Config) ([]diagnostic.Diagnostic, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if in.File == "" && in.Doc != nil {
		in.File = in.Doc.Path
	}
	passes := make([]*Pass, len(l.Rules))
	g, gctx := errgroup.WithContext(ctx)
	if l.Concurrency > 0 {
		g.SetLimit(l.Concurrency)
	}
	for i, rule := range l.Rules {
		if rule.Enabled != nil && !rule.Enabled(cfg) {
			continue
		}
		pass := &Pass{Rule: rule, Input: in, Config: cfg}
		passes[i] = pass
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := rule.Run(pass); err != nil {
				return fmt.Errorf("%s: rule %s: %w", in.File, rule.Name(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []diagnostic.Diagnostic
	for _, pass := range passes {
		if pass != nil {
			all = append(all, pass.diagnostics...)
		}
	}
	return all, nil
}

// Lint runs the rules and post-processes their findings together with
// extra diagnostics produced earlier in the analysis, such as resolution
// errors.
func (l *Linter) Lint(ctx context.Context, in Input, cfg *Config, extra ...diagnostic.Diagnostic) ([]diagnostic.Diagnostic, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	diags, err := l.Run(ctx, in, cfg)
	if err != nil {
		return nil, err
	}
	all := append(append([]diagnostic.Diagnostic(nil), extra...), diags...)
	return Process(all, in.Doc, cfg), nil
}

// RuleFor returns the rule of the default set reporting code.
func RuleFor(code diagnostic.Code) (*Rule, bool) {
	for _, r := range DefaultRules() {
		if r.Code == code {
			return r, true
		}
	}
	return nil, false
}

// DefaultRules returns the built-in set of lint checks in registry order.
func DefaultRules() []*Rule {
	return []*Rule{
		RuleMaxNestingDepth,
		RuleMaxObjectMembers,
		RuleMaxArrayItems,
		RuleUnusedAnchor,
		RuleDuplicateKey,
		RuleExcessiveSpreads,
		RuleMagicNumber,
		RuleMissingTypeValidation,
		RuleInconsistentNaming,
		RuleEmptyObject,
		RuleDeepImportChain,
		RuleCircularDependency,
		RuleUnusedImport,
	}
}
