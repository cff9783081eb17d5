// Copyright © 2025 The MON authors

package lint

import (
	"sort"
	"strings"

	"github.com/monlang/mon/ast"
	"github.com/monlang/mon/diagnostic"
	"github.com/monlang/mon/position"
)

// Inline directives recognized in line comments.
const (
	directiveNextLine = "mon-disable-next-line"
	directiveDisable  = "mon-disable"
	directiveEnable   = "mon-enable"
)

// Process applies the configuration to raw diagnostics of doc: the severity
// policy, inline suppression, deduplication on (file, code, range) keeping
// the first occurrence, and finally a stable sort by file, start position
// and code. Applying Process to its own output returns it unchanged.
func Process(diags []diagnostic.Diagnostic, doc *ast.Document, cfg *Config) []diagnostic.Diagnostic {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	out := ApplyPolicy(diags, cfg)
	if doc != nil {
		out = Suppress(out, doc, cfg.KeepSuppressed)
	}
	return SortDiagnostics(Dedupe(out))
}

// ApplyPolicy applies rule_overrides and then disabled_rules. Always-on
// codes keep their default severity and are never dropped.
func ApplyPolicy(diags []diagnostic.Diagnostic, cfg *Config) []diagnostic.Diagnostic {
	disabled := make(map[diagnostic.Code]bool)
	for _, name := range cfg.DisabledRules {
		if code, ok := diagnostic.ParseCode(name); ok {
			disabled[code] = true
		}
	}
	overrides := make(map[diagnostic.Code]diagnostic.Severity)
	for name, sev := range cfg.RuleOverrides {
		code, ok := diagnostic.ParseCode(name)
		if !ok {
			continue
		}
		if isOff(sev) {
			disabled[code] = true
			continue
		}
		if s, err := diagnostic.ParseSeverity(sev); err == nil {
			overrides[code] = s
		}
	}

	out := make([]diagnostic.Diagnostic, 0, len(diags))
	for _, d := range diags {
		if d.Code.AlwaysOn() {
			out = append(out, d)
			continue
		}
		if s, ok := overrides[d.Code]; ok {
			d.Severity = s
		}
		if disabled[d.Code] {
			continue
		}
		out = append(out, d)
	}
	return out
}

// suppression silences codes on a span of lines. A nil code set silences
// every code.
type suppression struct {
	first, last uint32 // inclusive
	codes       map[diagnostic.Code]bool
}

func (s suppression) covers(d diagnostic.Diagnostic) bool {
	line := d.Range.Start.Line
	if line < s.first || line > s.last {
		return false
	}
	return s.codes == nil || s.codes[d.Code]
}

// suppressions returns the spans silenced by directives in the comments of
// doc.
func suppressions(doc *ast.Document) []suppression {
	var (
		out  []suppression
		open []suppression
	)
	for _, c := range doc.Comments {
		name, codes, ok := parseDirective(c.Text)
		if !ok {
			continue
		}
		rng := c.Range()
		switch name {
		case directiveNextLine:
			out = append(out, suppression{first: rng.End.Line + 1, last: rng.End.Line + 1, codes: codes})
		case directiveDisable:
			open = append(open, suppression{first: rng.End.Line + 1, codes: codes})
		case directiveEnable:
			kept := open[:0]
			for _, s := range open {
				if closes(codes, s.codes) {
					if rng.Start.Line > 0 {
						s.last = rng.Start.Line - 1
					}
					if s.last >= s.first {
						out = append(out, s)
					}
					continue
				}
				kept = append(kept, s)
			}
			open = kept
		}
	}
	for _, s := range open {
		s.last = ^uint32(0)
		out = append(out, s)
	}
	return out
}

// closes reports whether an enable directive for codes ends a region
// disabling region. An enable without codes ends every region; one with
// codes ends the regions naming any of them.
func closes(codes, region map[diagnostic.Code]bool) bool {
	if codes == nil {
		return true
	}
	for c := range codes {
		if region[c] {
			return true
		}
	}
	return false
}

// parseDirective recognizes "// mon-disable-next-line LINT2001, MagicNumber"
// and its siblings. Codes are separated by spaces or commas and given by
// identifier or name; unknown codes are ignored.
func parseDirective(text string) (string, map[diagnostic.Code]bool, bool) {
	if !strings.HasPrefix(text, "//") {
		return "", nil, false
	}
	fields := strings.FieldsFunc(strings.TrimLeft(text, "/"), func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(fields) == 0 {
		return "", nil, false
	}
	switch fields[0] {
	case directiveNextLine, directiveDisable, directiveEnable:
	default:
		return "", nil, false
	}
	if len(fields) == 1 {
		return fields[0], nil, true
	}
	codes := make(map[diagnostic.Code]bool)
	for _, f := range fields[1:] {
		if code, ok := diagnostic.ParseCode(f); ok {
			codes[code] = true
		}
	}
	return fields[0], codes, true
}

// Suppress silences the diagnostics of doc covered by an inline directive.
// Diagnostics of other files are left alone. Suppressed diagnostics are
// dropped, or kept and marked when keep is set.
func Suppress(diags []diagnostic.Diagnostic, doc *ast.Document, keep bool) []diagnostic.Diagnostic {
	spans := suppressions(doc)
	if len(spans) == 0 {
		return diags
	}
	out := make([]diagnostic.Diagnostic, 0, len(diags))
	for _, d := range diags {
		if d.File == "" || d.File == doc.Path {
			for _, s := range spans {
				if s.covers(d) {
					d.Suppressed = true
					break
				}
			}
		}
		if d.Suppressed && !keep {
			continue
		}
		out = append(out, d)
	}
	return out
}

type dedupeKey struct {
	file string
	code diagnostic.Code
	rng  position.Range
}

// Dedupe drops diagnostics repeating the file, code and range of an
// earlier one.
func Dedupe(diags []diagnostic.Diagnostic) []diagnostic.Diagnostic {
	seen := make(map[dedupeKey]bool, len(diags))
	out := make([]diagnostic.Diagnostic, 0, len(diags))
	for _, d := range diags {
		key := dedupeKey{d.File, d.Code, d.Range}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return out
}

// SortDiagnostics orders diagnostics by file, start position and code. The
// sort is stable so equal keys keep their reporting order.
func SortDiagnostics(diags []diagnostic.Diagnostic) []diagnostic.Diagnostic {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Range.Start != b.Range.Start {
			return a.Range.Start.Before(b.Range.Start)
		}
		return a.Code < b.Code
	})
	return diags
}
