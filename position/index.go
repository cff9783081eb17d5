// Copyright © 2025 The MON authors

package position

import (
	"errors"
	"fmt"
	"sort"
	"unicode/utf8"
)

// ErrOffsetOutOfBounds is returned when an offset or position lies outside
// the indexed text. It signals a caller bug rather than bad user input.
var ErrOffsetOutOfBounds = errors.New("offset out of bounds")

// Index converts between byte offsets and Positions for one source text. It
// is built once and safe for concurrent use.
type Index struct {
	src   string
	lines []int  // byte offset of the first byte of each line
	ascii []bool // whether a line holds only single-byte runes
}

// NewIndex scans src for line breaks. Only '\n' terminates a line; a
// preceding '\r' is an ordinary character on the line it ends.
func NewIndex(src string) *Index {
	idx := &Index{src: src, lines: []int{0}}
	ascii := true
	for i := 0; i < len(src); i++ {
		c := src[i]
		if c >= utf8.RuneSelf {
			ascii = false
		}
		if c == '\n' {
			idx.ascii = append(idx.ascii, ascii)
			idx.lines = append(idx.lines, i+1)
			ascii = true
		}
	}
	idx.ascii = append(idx.ascii, ascii)
	return idx
}

// Len returns the length of the indexed text in bytes.
func (idx *Index) Len() int {
	return len(idx.src)
}

// LineCount returns the number of lines. Text without a trailing newline
// still has its last line counted.
func (idx *Index) LineCount() int {
	return len(idx.lines)
}

// LineText returns the text of a zero-based line without its terminator.
func (idx *Index) LineText(line int) string {
	if line < 0 || line >= len(idx.lines) {
		return ""
	}
	end := idx.lineEnd(line)
	return idx.src[idx.lines[line]:end]
}

// lineEnd returns the offset of the '\n' that ends line, or the end of the
// text for the last line.
func (idx *Index) lineEnd(line int) int {
	if line+1 < len(idx.lines) {
		return idx.lines[line+1] - 1
	}
	return len(idx.src)
}

// OffsetToPosition converts a byte offset to a Position. An offset equal to
// the text length is the end-of-file position. An offset inside a
// multi-byte rune maps to the start of that rune.
func (idx *Index) OffsetToPosition(off int) (Position, error) {
	if off < 0 || off > len(idx.src) {
		return Position{}, fmt.Errorf("%w: offset %d, length %d", ErrOffsetOutOfBounds, off, len(idx.src))
	}
	line := sort.Search(len(idx.lines), func(i int) bool { return idx.lines[i] > off }) - 1
	start := idx.lines[line]
	if idx.ascii[line] {
		return Position{Line: uint32(line), Character: uint32(off - start)}, nil
	}
	var units uint32
	for i := start; i < off; {
		r, size := utf8.DecodeRuneInString(idx.src[i:])
		if i+size > off {
			break
		}
		units += utf16Len(r)
		i += size
	}
	return Position{Line: uint32(line), Character: units}, nil
}

// MustPosition is OffsetToPosition for offsets the caller has already
// validated, such as those produced by the lexer over the same text.
func (idx *Index) MustPosition(off int) Position {
	pos, err := idx.OffsetToPosition(off)
	if err != nil {
		panic(err)
	}
	return pos
}

// Range converts a pair of byte offsets into a Range.
func (idx *Index) Range(start, end int) Range {
	return Range{Start: idx.MustPosition(start), End: idx.MustPosition(end)}
}

// PositionToOffset converts a Position to a byte offset. A character past the
// end of its line clamps to the line end, which is how editors treat a
// cursor beyond the last column. A character that splits a surrogate pair
// maps to the start of the pair.
func (idx *Index) PositionToOffset(pos Position) (int, error) {
	line := int(pos.Line)
	if line >= len(idx.lines) {
		return 0, fmt.Errorf("%w: line %d, %d lines", ErrOffsetOutOfBounds, line, len(idx.lines))
	}
	start := idx.lines[line]
	end := idx.lineEnd(line)
	if idx.ascii[line] {
		off := start + int(pos.Character)
		if off > end {
			off = end
		}
		return off, nil
	}
	var units uint32
	i := start
	for i < end {
		r, size := utf8.DecodeRuneInString(idx.src[i:])
		w := utf16Len(r)
		if units+w > pos.Character {
			break
		}
		units += w
		i += size
	}
	return i, nil
}

// utf16Len returns the number of UTF-16 code units needed to encode r.
// Invalid bytes decode as utf8.RuneError and count as one unit.
func utf16Len(r rune) uint32 {
	if r >= 0x10000 {
		return 2
	}
	return 1
}
