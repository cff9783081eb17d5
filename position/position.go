// Copyright © 2025 The MON authors

// Package position maps byte offsets in MON source text to the line and
// character coordinates used by editor tooling.
//
// Characters are counted in UTF-16 code units regardless of the encoding of
// the source text, because that is the unit the language server protocol
// uses for character offsets. A rune outside the Basic Multilingual Plane
// occupies two units.
package position

import (
	"fmt"
)

// Position is a zero-based line and UTF-16 character offset.
type Position struct {
	Line      uint32 `json:"line"`
	Character uint32 `json:"character"`
}

// Before reports whether p sorts strictly before q.
func (p Position) Before(q Position) bool {
	if p.Line != q.Line {
		return p.Line < q.Line
	}
	return p.Character < q.Character
}

// Compare returns -1, 0 or 1 depending on whether p sorts before, equal to
// or after q.
func (p Position) Compare(q Position) int {
	switch {
	case p.Before(q):
		return -1
	case q.Before(p):
		return 1
	default:
		return 0
	}
}

// String returns the position in one-based line:col form for humans.
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line+1, p.Character+1)
}

// Range is a half-open span of source text. Start is inclusive and End is
// exclusive.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Contains reports whether pos falls inside r. An empty range contains no
// positions.
func (r Range) Contains(pos Position) bool {
	return !pos.Before(r.Start) && pos.Before(r.End)
}

// ContainsRange reports whether inner lies completely within r.
func (r Range) ContainsRange(inner Range) bool {
	return !inner.Start.Before(r.Start) && !r.End.Before(inner.End)
}

// IsZero reports whether r is the zero range.
func (r Range) IsZero() bool {
	return r == Range{}
}

func (r Range) String() string {
	return fmt.Sprintf("%s-%s", r.Start, r.End)
}

// Location is a range within a named file.
type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}
