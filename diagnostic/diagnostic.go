// Copyright © 2025 The MON authors

// Package diagnostic defines the diagnostics reported for MON documents and
// renders them as annotated source snippets for the CLI.
//
// The JSON encoding of Diagnostic is a wire contract shared with editor and
// CI tooling: codes serialize as their stable "LINTnnnn" identifiers and
// ranges use zero-based UTF-16 positions.
package diagnostic

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/monlang/mon/position"
)

// Severity indicates the severity level of a diagnostic.
type Severity int

const (
	severityUnset Severity = iota // unexported zero sentinel for default detection
	SeverityError
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// IsSet reports whether s holds a real severity rather than the zero value.
func (s Severity) IsSet() bool {
	return s != severityUnset
}

// MarshalJSON serializes the severity as "Error", "Warning" or "Info".
// An unset severity is marshaled as "Warning".
func (s Severity) MarshalJSON() ([]byte, error) {
	switch s {
	case SeverityError:
		return json.Marshal("Error")
	case SeverityInfo:
		return json.Marshal("Info")
	default:
		return json.Marshal("Warning")
	}
}

// UnmarshalJSON deserializes a severity from a JSON string.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	sev, err := ParseSeverity(str)
	if err != nil {
		return err
	}
	*s = sev
	return nil
}

// ParseSeverity parses a severity name, ignoring case. "warn" and "hint"
// are accepted as spellings of warning and info.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return SeverityError, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "info", "hint":
		return SeverityInfo, nil
	default:
		return severityUnset, fmt.Errorf("unknown severity: %q", s)
	}
}

// Tag marks diagnostics that editors render specially.
type Tag int

const (
	TagUnnecessary Tag = iota + 1
	TagDeprecated
)

func (t Tag) String() string {
	switch t {
	case TagUnnecessary:
		return "Unnecessary"
	case TagDeprecated:
		return "Deprecated"
	default:
		return "Unknown"
	}
}

func (t Tag) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Tag) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	switch str {
	case "Unnecessary":
		*t = TagUnnecessary
	case "Deprecated":
		*t = TagDeprecated
	default:
		return fmt.Errorf("unknown diagnostic tag: %q", str)
	}
	return nil
}

// Related points at another location that explains a diagnostic, such as
// the first definition of a duplicated key.
type Related struct {
	Location position.Location `json:"location"`
	Message  string            `json:"message"`
}

// Diagnostic is a single reported problem. Diagnostics are values; once
// produced they are never modified in place.
type Diagnostic struct {
	Code     Code
	Severity Severity
	Message  string
	Range    position.Range
	Related  []Related
	Tags     []Tag

	// File is the URI of the document the diagnostic belongs to. It is not
	// part of the wire format, which is always scoped to one document.
	File string

	// Suppressed is set on diagnostics kept despite an inline suppression
	// directive, which only happens when verbose output is requested.
	Suppressed bool
}

// wireDiagnostic is the JSON shape of a Diagnostic.
type wireDiagnostic struct {
	Code       Code           `json:"code"`
	CodeName   string         `json:"code_name"`
	Severity   Severity       `json:"severity"`
	Message    string         `json:"message"`
	Range      position.Range `json:"range"`
	Related    []Related      `json:"related_information,omitempty"`
	Tags       []Tag          `json:"tags,omitempty"`
	Suppressed bool           `json:"suppressed,omitempty"`
}

func (d Diagnostic) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireDiagnostic{
		Code:       d.Code,
		CodeName:   d.Code.Name(),
		Severity:   d.Severity,
		Message:    d.Message,
		Range:      d.Range,
		Related:    d.Related,
		Tags:       d.Tags,
		Suppressed: d.Suppressed,
	})
}

func (d *Diagnostic) UnmarshalJSON(data []byte) error {
	var w wireDiagnostic
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*d = Diagnostic{
		Code:       w.Code,
		Severity:   w.Severity,
		Message:    w.Message,
		Range:      w.Range,
		Related:    w.Related,
		Tags:       w.Tags,
		Suppressed: w.Suppressed,
	}
	return nil
}

// New returns a diagnostic for code at rng with the code's default severity
// and tags.
func New(code Code, rng position.Range, format string, args ...interface{}) Diagnostic {
	return Diagnostic{
		Code:     code,
		Severity: code.DefaultSeverity(),
		Message:  fmt.Sprintf(format, args...),
		Range:    rng,
		Tags:     code.DefaultTags(),
	}
}

// String returns the diagnostic in file:line:col: severity[CODE]: message form.
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%s: %s[%s]: %s", d.File, d.Range.Start, d.Severity, d.Code, d.Message)
}

// HasTag reports whether d carries tag.
func (d Diagnostic) HasTag(tag Tag) bool {
	for _, t := range d.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
