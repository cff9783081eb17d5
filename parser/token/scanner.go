// Copyright © 2025 The MON authors

package token

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrInvalidUTF8 is reported when the source contains a byte sequence that
// is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("invalid utf-8 encoding")

// Scanner facilitates construction of tokens from in-memory source text.
// MON documents are always held in memory whole because the position index
// needs the complete text, so unlike a streaming scanner there is no
// buffer management.
type Scanner struct {
	file  string
	src   string
	start int  // start of the current token
	pos   int  // offset of c
	next  int  // offset of the rune following c
	c     rune // last scanned rune
	err   error
}

// NewScanner initializes and returns a new Scanner.
func NewScanner(file string, src string) *Scanner {
	return &Scanner{file: file, src: src}
}

// File returns the name given to the scanner.
func (s *Scanner) File() string {
	return s.file
}

// EmitToken returns a token containing the text scanned since the last call to
// either EmitToken or Ignore.
func (s *Scanner) EmitToken(typ Type) *Token {
	tok := &Token{
		Type:  typ,
		Text:  s.Text(),
		Start: s.start,
		End:   s.next,
	}
	s.Ignore()
	return tok
}

// Ignore causes the scanner to skip all text scanned since the last call to
// either EmitToken or Ignore.
func (s *Scanner) Ignore() {
	s.start = s.next
}

// Text returns a string containing text scanned since the last call to either
// EmitToken or Ignore.
func (s *Scanner) Text() string {
	return s.src[s.start:s.next]
}

// Start returns the offset at which the current token begins.
func (s *Scanner) Start() int {
	return s.start
}

// Offset returns the offset just past the last scanned rune.
func (s *Scanner) Offset() int {
	return s.next
}

// Rune returns the current unicode rune that is being scanned.  The rune
// returned by Rune is the last rune in a token returned by EmitToken.
func (s *Scanner) Rune() rune {
	return s.c
}

// Peek returns the next rune to be scanned, if there are any.
func (s *Scanner) Peek() (rune, bool) {
	if s.next >= len(s.src) {
		return 0, false
	}
	c, n := utf8.DecodeRuneInString(s.src[s.next:])
	if c == utf8.RuneError && n <= 1 {
		return utf8.RuneError, false
	}
	return c, true
}

// PeekString reports whether the unscanned input begins with literal.
func (s *Scanner) PeekString(literal string) bool {
	return strings.HasPrefix(s.src[s.next:], literal)
}

// ScanRune scans a rune for inclusion in the current token.
func (s *Scanner) ScanRune() error {
	if s.next >= len(s.src) {
		return errEOF
	}
	c, n := utf8.DecodeRuneInString(s.src[s.next:])
	if c == utf8.RuneError && n <= 1 {
		s.err = ErrInvalidUTF8
		return s.err
	}
	s.c = c
	s.pos = s.next
	s.next += n
	return nil
}

var errEOF = errors.New("EOF")

// Err returns a decoding error encountered by the scanner, if any.
func (s *Scanner) Err() error {
	return s.err
}

// EOF returns true if the scanner has consumed all of its input.
func (s *Scanner) EOF() bool {
	return s.next >= len(s.src)
}

// Accept scans the next rune if it satisfies fn.
func (s *Scanner) Accept(fn func(rune) bool) bool {
	c, ok := s.Peek()
	if !ok || !fn(c) {
		return false
	}
	return s.ScanRune() == nil
}

// AcceptRune scans the next rune if it is c.
func (s *Scanner) AcceptRune(c rune) bool {
	return s.Accept(func(r rune) bool { return r == c })
}

// AcceptDigit scans the next rune if it is a decimal digit.
func (s *Scanner) AcceptDigit() bool {
	return s.Accept(isDigit)
}

// AcceptAny scans the next rune if it is contained in charset.
func (s *Scanner) AcceptAny(charset string) bool {
	return s.Accept(func(c rune) bool { return strings.ContainsRune(charset, c) })
}

// AcceptSeq scans runes as long as they satisfy fn and returns how many were
// scanned.
func (s *Scanner) AcceptSeq(fn func(rune) bool) int {
	n := 0
	for s.Accept(fn) {
		n++
	}
	return n
}

// AcceptSeqDigit scans a run of decimal digits.
func (s *Scanner) AcceptSeqDigit() int {
	return s.AcceptSeq(isDigit)
}

// AcceptSeqSpace scans a run of whitespace.
func (s *Scanner) AcceptSeqSpace() int {
	return s.AcceptSeq(unicode.IsSpace)
}

// AcceptString scans literal if the input begins with it.
func (s *Scanner) AcceptString(literal string) bool {
	if !s.PeekString(literal) {
		return false
	}
	for range literal {
		if s.ScanRune() != nil {
			return false
		}
	}
	return true
}

func isDigit(c rune) bool {
	return '0' <= c && c <= '9'
}
