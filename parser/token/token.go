// Copyright © 2025 The MON authors

package token

import "fmt"

// Source is an abstract stream of tokens which allows one token lookahead.
type Source interface {
	// Token returns the current token.  Token returns nil if Scan has not been
	// called.
	Token() *Token
	// Peek returns the next token in the stream.  At the end of the stream
	// Peek should return a value to indicate the lack of a token (EOF).
	Peek() *Token
	// Scan advances the token stream if possible.  If there are no tokens
	// remaining Scan returns false.
	Scan() bool
}

// Token is a lexical token. Start and End are byte offsets into the source
// text with End exclusive.
type Token struct {
	Type  Type
	Text  string
	Start int
	End   int
}

type Type uint

// Type constants used by the MON lexer and parser.
const (
	INVALID Type = iota
	ERROR
	EOF

	IDENT
	NUMBER
	STRING
	TYPE_KEYWORD // #struct, #enum

	COMMENT
	DOC_COMMENT

	// Operators
	AMPERSAND // &
	STAR      // *
	SPREAD    // ...
	DOLLAR    // $
	DOT       // .
	COLON     // :
	DCOLON    // ::
	EQUALS    // =
	QUESTION  // ?
	COMMA     // ,

	// Delimiters
	BRACE_L
	BRACE_R
	BRACKET_L
	BRACKET_R
	PAREN_L
	PAREN_R

	numTokenTypes
)

func (typ Type) String() string {
	typeStrings := [numTokenTypes]string{
		INVALID:      "invalid",
		ERROR:        "error",
		EOF:          "EOF",
		IDENT:        "identifier",
		NUMBER:       "number",
		STRING:       "string",
		TYPE_KEYWORD: "type keyword",
		COMMENT:      "comment",
		DOC_COMMENT:  "doc comment",
		AMPERSAND:    "&",
		STAR:         "*",
		SPREAD:       "...",
		DOLLAR:       "$",
		DOT:          ".",
		COLON:        ":",
		DCOLON:       "::",
		EQUALS:       "=",
		QUESTION:     "?",
		COMMA:        ",",
		BRACE_L:      "{",
		BRACE_R:      "}",
		BRACKET_L:    "[",
		BRACKET_R:    "]",
		PAREN_L:      "(",
		PAREN_R:      ")",
	}
	if typ >= numTokenTypes {
		return typeStrings[INVALID]
	}
	return typeStrings[typ]
}

func (tok *Token) String() string {
	switch tok.Type {
	case IDENT, NUMBER, STRING, TYPE_KEYWORD, INVALID, ERROR:
		return fmt.Sprintf("%s %q", tok.Type, tok.Text)
	default:
		return tok.Type.String()
	}
}

// Location is a human-oriented source location.
type Location struct {
	File string // a name representing the source stream
	Pos  int    // byte offset
	Line int    // line number (starting at 1)
	Col  int    // line column number (starting at 1, counted in runes)
}

func (loc *Location) String() string {
	switch {
	case loc.Pos < 0:
		return loc.File
	case loc.Line == 0:
		return fmt.Sprintf("%s[%d]", loc.File, loc.Pos)
	case loc.Col == 0:
		return fmt.Sprintf("%s:%d", loc.File, loc.Line)
	default:
		return fmt.Sprintf("%s:%d:%d", loc.File, loc.Line, loc.Col)
	}
}

// LocationError is an error attributed to a place in a source file.
type LocationError struct {
	Err    error
	Source *Location
	// Start and End are the byte offsets of the offending text.
	Start int
	End   int
}

func (err *LocationError) Error() string {
	return fmt.Sprintf("%s: %s", err.Source, err.Err)
}

func (err *LocationError) Unwrap() error {
	return err.Err
}
