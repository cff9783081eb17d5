// Copyright © 2025 The MON authors

// Package lexer splits MON source text into tokens.
package lexer

import (
	"fmt"
	"unicode"

	"github.com/monlang/mon/parser/token"
)

// LexFn is a lexer state. It scans one or more tokens and may replace the
// lexer's state for the next call.
type LexFn func(*Lexer) []*token.Token

type Lexer struct {
	scanner *token.Scanner
	lex     LexFn
}

func New(s *token.Scanner) *Lexer {
	lex := &Lexer{
		scanner: s,
		lex:     (*Lexer).readToken,
	}
	return lex
}

// ReadToken returns the next tokens in the stream. The final token is EOF.
func (lex *Lexer) ReadToken() []*token.Token {
	return lex.lex(lex)
}

func (lex *Lexer) readToken() []*token.Token {
	lex.scanner.AcceptSeqSpace()
	lex.scanner.Ignore()
	if lex.scanner.EOF() {
		return lex.emit(token.EOF)
	}
	if err := lex.scanner.ScanRune(); err != nil {
		return lex.errorf("%v", err)
	}
	switch c := lex.scanner.Rune(); c {
	case '{':
		return lex.emit(token.BRACE_L)
	case '}':
		return lex.emit(token.BRACE_R)
	case '[':
		return lex.emit(token.BRACKET_L)
	case ']':
		return lex.emit(token.BRACKET_R)
	case '(':
		return lex.emit(token.PAREN_L)
	case ')':
		return lex.emit(token.PAREN_R)
	case ',':
		return lex.emit(token.COMMA)
	case '=':
		return lex.emit(token.EQUALS)
	case '?':
		return lex.emit(token.QUESTION)
	case '&':
		return lex.emit(token.AMPERSAND)
	case '*':
		return lex.emit(token.STAR)
	case '$':
		return lex.emit(token.DOLLAR)
	case ':':
		if lex.scanner.AcceptRune(':') {
			return lex.emit(token.DCOLON)
		}
		return lex.emit(token.COLON)
	case '.':
		if lex.scanner.AcceptString("..") {
			return lex.emit(token.SPREAD)
		}
		return lex.emit(token.DOT)
	case '#':
		lex.lex = (*Lexer).readTypeKeyword
		return lex.lex(lex)
	case '/':
		return lex.readComment()
	case '"', '\'':
		return lex.readString(c)
	case '-', '+':
		if !isDigit(lex.peekRune()) {
			return lex.errorf("unexpected %q", c)
		}
		return lex.readNumber()
	default:
		if isDigit(c) {
			return lex.readNumber()
		}
		if isWordStart(c) {
			lex.scanner.AcceptSeq(isWordChar)
			return lex.emit(token.IDENT)
		}
		err := fmt.Errorf("unexpected text starting with %q", c)
		return lex.emitText(token.INVALID, err.Error())
	}
}

// readTypeKeyword scans the word following a '#'.
func (lex *Lexer) readTypeKeyword() []*token.Token {
	lex.resetState()
	if !lex.scanner.Accept(isWordStart) {
		return lex.errorf("expected type keyword after '#'")
	}
	lex.scanner.AcceptSeq(isWordChar)
	return lex.emit(token.TYPE_KEYWORD)
}

func (lex *Lexer) readComment() []*token.Token {
	switch {
	case lex.scanner.AcceptRune('/'):
		typ := token.COMMENT
		if lex.scanner.PeekString("/") && !lex.scanner.PeekString("//") {
			typ = token.DOC_COMMENT
		}
		lex.scanner.AcceptSeq(func(c rune) bool { return c != '\n' })
		return lex.emit(typ)
	case lex.scanner.AcceptRune('*'):
		for !lex.scanner.AcceptString("*/") {
			if lex.scanner.ScanRune() != nil {
				return lex.errorf("unterminated block comment")
			}
		}
		return lex.emit(token.COMMENT)
	default:
		return lex.errorf("unexpected '/'")
	}
}

func (lex *Lexer) readString(quote rune) []*token.Token {
	for {
		if lex.scanner.ScanRune() != nil {
			return lex.errorf("unterminated string literal")
		}
		switch lex.scanner.Rune() {
		case quote:
			return lex.emit(token.STRING)
		case '\n':
			return lex.errorf("unterminated string literal")
		case '\\':
			// Escapes are validated by the parser when the literal is
			// unquoted.
			if lex.scanner.ScanRune() != nil {
				return lex.errorf("unterminated string literal")
			}
		}
	}
}

func (lex *Lexer) readNumber() []*token.Token {
	lex.scanner.AcceptSeqDigit()
	if lex.scanner.PeekString(".") && !lex.scanner.PeekString("..") {
		lex.scanner.AcceptRune('.')
		if lex.scanner.AcceptSeqDigit() == 0 {
			return lex.errorf("expected digit after decimal point")
		}
	}
	if lex.scanner.AcceptAny("eE") {
		lex.scanner.AcceptAny("+-")
		if lex.scanner.AcceptSeqDigit() == 0 {
			return lex.errorf("expected exponent digits")
		}
	}
	if c := lex.peekRune(); isWordStart(c) {
		return lex.errorf("unexpected %q after number", c)
	}
	return lex.emit(token.NUMBER)
}

func (lex *Lexer) resetState() {
	lex.lex = (*Lexer).readToken
}

func (lex *Lexer) emit(typ token.Type) []*token.Token {
	return []*token.Token{lex.scanner.EmitToken(typ)}
}

func (lex *Lexer) emitText(typ token.Type, text string) []*token.Token {
	tok := lex.scanner.EmitToken(typ)
	tok.Text = text
	return []*token.Token{tok}
}

func (lex *Lexer) errorf(format string, v ...interface{}) []*token.Token {
	lex.resetState()
	return lex.emitText(token.ERROR, fmt.Sprintf(format, v...))
}

func (lex *Lexer) peekRune() rune {
	c, ok := lex.scanner.Peek()
	if !ok {
		return 0
	}
	return c
}

func isDigit(c rune) bool {
	return '0' <= c && c <= '9'
}

func isWordStart(c rune) bool {
	return c == '_' || unicode.IsLetter(c)
}

func isWordChar(c rune) bool {
	return isWordStart(c) || unicode.IsDigit(c)
}
