// Copyright © 2025 The MON authors

package rdparser

import (
	"github.com/monlang/mon/parser/lexer"
	"github.com/monlang/mon/parser/token"
)

// TokenStream is an arbitrary sequence of tokens.  Typically, a TokenStream
// will be a *lexer.Lexer.
type TokenStream interface {
	// ReadToken returns a set of token from an input source.  When no more
	// tokens can be generated ReadToken returns a token with type token.EOF.
	// ReadToken never returns an empty slice.
	ReadToken() []*token.Token
}

// TokenGenerator implements TokenStream.  The function will be called any time
// a TokenSource wants a token.
type TokenGenerator func() []*token.Token

// ReadToken implements TokenStream.
func (fn TokenGenerator) ReadToken() []*token.Token {
	return fn()
}

// TokenSource abstracts a TokenStream by adding one token of lookahead.
// Comments never reach the parser; they are collected in Comments and doc
// comments are held until the next significant token claims them.
type TokenSource struct {
	lex      TokenStream
	Token    *token.Token
	peek     []*token.Token
	Comments []*token.Token
	docs     []*token.Token
}

func NewTokenStreamSource(stream TokenStream) *TokenSource {
	return &TokenSource{
		lex: stream,
	}
}

// NewTokenSource initializes and returns a new TokenSource that scans tokens
// from scanner.
func NewTokenSource(scanner *token.Scanner) *TokenSource {
	return NewTokenStreamSource(lexer.New(scanner))
}

// Peek returns the next significant token.
func (s *TokenSource) Peek() *token.Token {
	for len(s.peek) == 0 {
		s.peek = s.lex.ReadToken()
		s.peek = s.filterComments(s.peek)
	}
	return s.peek[0]
}

func (s *TokenSource) filterComments(toks []*token.Token) []*token.Token {
	kept := toks[:0]
	for _, tok := range toks {
		switch tok.Type {
		case token.COMMENT:
			s.Comments = append(s.Comments, tok)
			s.docs = nil
		case token.DOC_COMMENT:
			s.Comments = append(s.Comments, tok)
			s.docs = append(s.docs, tok)
		default:
			kept = append(kept, tok)
		}
	}
	return kept
}

// Docs returns the doc comments immediately preceding the next token and
// clears them.
func (s *TokenSource) Docs() []*token.Token {
	s.Peek()
	docs := s.docs
	s.docs = nil
	return docs
}

// PeekType returns the type of the next token.
func (s *TokenSource) PeekType() token.Type {
	return s.Peek().Type
}

func (s *TokenSource) Accept(fn func(*token.Token) bool) bool {
	if fn(s.Peek()) {
		s.scan()
		return true
	}
	return false
}

func (s *TokenSource) AcceptType(typ ...token.Type) bool {
	for _, typ := range typ {
		if s.Peek().Type == typ {
			s.scan()
			return true
		}
	}
	return false
}

// AcceptWord scans the next token if it is the identifier word.
func (s *TokenSource) AcceptWord(word string) bool {
	return s.Accept(func(tok *token.Token) bool {
		return tok.Type == token.IDENT && tok.Text == word
	})
}

func (s *TokenSource) Scan() bool {
	if s.IsEOF() {
		s.Token = s.Peek()
		return false
	}
	s.scan()
	return true
}

func (s *TokenSource) IsEOF() bool {
	return s.Peek().Type == token.EOF
}

func (s *TokenSource) scan() {
	s.Token = s.Peek()
	s.peek = s.peek[1:]
	s.docs = nil
}
