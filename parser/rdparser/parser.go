// Copyright © 2025 The MON authors

// Package rdparser is a recursive-descent parser for MON documents.
package rdparser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/monlang/mon/ast"
	"github.com/monlang/mon/parser/token"
	"github.com/monlang/mon/position"
)

// Parser is a MON parser. A Parser reads a single document.
type Parser struct {
	file  string
	text  string
	index *position.Index
	src   *TokenSource
}

// New initializes and returns a new Parser over text. The file name is used
// in error messages and recorded as the document path.
func New(file string, text string) *Parser {
	return &Parser{
		file:  file,
		text:  text,
		index: position.NewIndex(text),
		src:   NewTokenSource(token.NewScanner(file, text)),
	}
}

// bailout carries a parse error up the recursive descent.
type bailout struct {
	err *token.LocationError
}

// ParseDocument parses a complete document: any number of import statements
// followed by exactly one root value.
func (p *Parser) ParseDocument() (doc *ast.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			doc, err = nil, b.err
		}
	}()

	doc = &ast.Document{
		Path:   p.file,
		Source: p.text,
		Index:  p.index,
	}
	for p.peekWord("import") {
		doc.Imports = append(doc.Imports, p.parseImport())
	}
	doc.Root = p.parseValue()
	if !p.src.IsEOF() {
		p.errorf(p.src.Peek(), "unexpected %s after document root", p.src.Peek())
	}
	doc.Comments = p.comments()
	return doc, nil
}

func (p *Parser) comments() []*ast.Comment {
	var out []*ast.Comment
	for _, tok := range p.src.Comments {
		out = append(out, &ast.Comment{
			Span: p.span(tok.Start, tok.End),
			Text: tok.Text,
			Doc:  tok.Type == token.DOC_COMMENT,
		})
	}
	return out
}

func (p *Parser) parseImport() *ast.Import {
	start := p.expectWord("import")
	imp := &ast.Import{}
	switch p.src.PeekType() {
	case token.STAR:
		p.src.Scan()
		if p.src.AcceptWord("as") {
			ns := p.expect(token.IDENT)
			imp.Kind = ast.ImportNamespace
			imp.Namespace = ns.Text
			imp.NsSpan = p.tokSpan(ns)
		} else {
			imp.Kind = ast.ImportWildcard
		}
	case token.BRACE_L:
		p.src.Scan()
		imp.Kind = ast.ImportNamed
		for p.src.PeekType() != token.BRACE_R {
			nameStart := p.src.Peek()
			anchor := p.src.AcceptType(token.AMPERSAND)
			name := p.expect(token.IDENT)
			imp.Names = append(imp.Names, &ast.ImportName{
				Span:   p.span(nameStart.Start, name.End),
				Name:   name.Text,
				Anchor: anchor,
			})
			if !p.src.AcceptType(token.COMMA) {
				break
			}
		}
		p.expect(token.BRACE_R)
	default:
		p.errorf(p.src.Peek(), "expected '*' or '{' after import, found %s", p.src.Peek())
	}
	p.expectWord("from")
	path := p.expect(token.STRING)
	imp.Path = p.unquote(path)
	imp.PathSpan = p.tokSpan(path)
	imp.Span = p.span(start.Start, path.End)
	return imp
}

func (p *Parser) parseValue() ast.Value {
	tok := p.src.Peek()
	switch tok.Type {
	case token.BRACE_L:
		return p.parseObject()
	case token.BRACKET_L:
		return p.parseArray()
	case token.STRING:
		p.src.Scan()
		return &ast.String{Span: p.tokSpan(tok), Value: p.unquote(tok)}
	case token.NUMBER:
		p.src.Scan()
		f, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			p.errorf(tok, "invalid number %q", tok.Text)
		}
		return &ast.Number{Span: p.tokSpan(tok), Value: f, Text: tok.Text}
	case token.IDENT:
		p.src.Scan()
		switch tok.Text {
		case "true", "on":
			return &ast.Bool{Span: p.tokSpan(tok), Value: true}
		case "false", "off":
			return &ast.Bool{Span: p.tokSpan(tok), Value: false}
		case "null":
			return &ast.Null{Span: p.tokSpan(tok)}
		}
		p.errorf(tok, "unexpected identifier %q; strings must be quoted", tok.Text)
	case token.STAR:
		ns, name, nameTok, end := p.parseRef()
		return &ast.Alias{
			Span:      p.span(tok.Start, end),
			Namespace: ns,
			Name:      name,
			NameSpan:  p.tokSpan(nameTok),
		}
	case token.DOLLAR:
		return p.parseEnumValue()
	case token.ERROR, token.INVALID:
		p.errorf(tok, "%s", tok.Text)
	case token.EOF:
		p.errorf(tok, "unexpected EOF")
	}
	p.errorf(tok, "expected a value, found %s", tok)
	return nil
}

// parseRef parses "*name" or "*ns.name" and returns the namespace, the
// name, the name token and the end offset.
func (p *Parser) parseRef() (string, string, *token.Token, int) {
	p.expect(token.STAR)
	first := p.expect(token.IDENT)
	if !p.src.AcceptType(token.DOT) {
		return "", first.Text, first, first.End
	}
	second := p.expect(token.IDENT)
	return first.Text, second.Text, second, second.End
}

func (p *Parser) parseEnumValue() *ast.EnumValue {
	start := p.expect(token.DOLLAR)
	parts := []*token.Token{p.expect(token.IDENT)}
	for p.src.AcceptType(token.DOT) {
		parts = append(parts, p.expect(token.IDENT))
	}
	last := parts[len(parts)-1]
	v := &ast.EnumValue{Span: p.span(start.Start, last.End)}
	switch len(parts) {
	case 2:
		v.Enum, v.Variant = parts[0].Text, parts[1].Text
	case 3:
		v.Namespace, v.Enum, v.Variant = parts[0].Text, parts[1].Text, parts[2].Text
	default:
		p.errorf(start, "enum value must be written $Enum.Variant")
	}
	return v
}

func (p *Parser) parseObject() *ast.Object {
	start := p.expect(token.BRACE_L)
	obj := &ast.Object{}
	for p.src.PeekType() != token.BRACE_R {
		obj.Members = append(obj.Members, p.parseMember())
		if !p.src.AcceptType(token.COMMA) {
			break
		}
	}
	end := p.expectClose(token.BRACE_R, "object")
	obj.Span = p.span(start.Start, end.End)
	return obj
}

func (p *Parser) parseMember() ast.Member {
	doc := p.docText()
	tok := p.src.Peek()
	switch tok.Type {
	case token.SPREAD:
		p.src.Scan()
		ns, name, nameTok, end := p.parseRef()
		return &ast.Spread{
			Span:      p.span(tok.Start, end),
			Namespace: ns,
			Name:      name,
			NameSpan:  p.tokSpan(nameTok),
		}
	case token.AMPERSAND:
		p.src.Scan()
		key := p.expect(token.IDENT)
		pair := p.parsePairRest(key, doc)
		pair.Anchored = true
		pair.Span = p.span(tok.Start, pair.End)
		return pair
	case token.IDENT, token.STRING:
		p.src.Scan()
		if p.src.PeekType() == token.COLON && tok.Type == token.IDENT {
			p.src.Scan()
			if p.src.PeekType() == token.TYPE_KEYWORD {
				return p.parseTypeDef(tok, doc)
			}
			value := p.parseValue()
			return &ast.Pair{
				Span:    p.span(tok.Start, endOf(value)),
				Key:     tok.Text,
				KeySpan: p.tokSpan(tok),
				Value:   value,
				Doc:     doc,
			}
		}
		return p.parsePairRest(tok, doc)
	case token.ERROR, token.INVALID:
		p.errorf(tok, "%s", tok.Text)
	}
	p.errorf(tok, "expected an object member, found %s", tok)
	return nil
}

// parsePairRest parses what follows a key: ": value" or ":: Type = value".
func (p *Parser) parsePairRest(key *token.Token, doc string) *ast.Pair {
	pair := &ast.Pair{
		Key:     p.keyText(key),
		KeySpan: p.tokSpan(key),
		Doc:     doc,
	}
	switch p.src.PeekType() {
	case token.COLON:
		p.src.Scan()
		pair.Value = p.parseValue()
	case token.DCOLON:
		p.src.Scan()
		pair.Type = p.parseTypeRef()
		p.expect(token.EQUALS)
		pair.Value = p.parseValue()
	default:
		p.errorf(p.src.Peek(), "expected ':' or '::' after key %q, found %s", pair.Key, p.src.Peek())
	}
	pair.Span = p.span(key.Start, endOf(pair.Value))
	return pair
}

func (p *Parser) keyText(tok *token.Token) string {
	if tok.Type == token.STRING {
		return p.unquote(tok)
	}
	return tok.Text
}

func (p *Parser) parseTypeDef(name *token.Token, doc string) *ast.TypeDef {
	kw := p.expect(token.TYPE_KEYWORD)
	def := &ast.TypeDef{
		Name:     name.Text,
		NameSpan: p.tokSpan(name),
		Doc:      doc,
	}
	switch kw.Text {
	case "#struct":
		def.Decl = p.parseStruct(kw)
	case "#enum":
		def.Decl = p.parseEnum(kw)
	default:
		p.errorf(kw, "unknown type keyword %s; expected #struct or #enum", kw.Text)
	}
	_, end := def.Decl.Offsets()
	def.Span = p.span(name.Start, end)
	return def
}

func (p *Parser) parseStruct(kw *token.Token) *ast.StructType {
	p.expect(token.BRACE_L)
	st := &ast.StructType{}
	for p.src.PeekType() != token.BRACE_R {
		if p.src.AcceptType(token.SPREAD) {
			st.Open = true
		} else {
			st.Fields = append(st.Fields, p.parseField())
		}
		if !p.src.AcceptType(token.COMMA) {
			break
		}
	}
	end := p.expectClose(token.BRACE_R, "struct")
	st.Span = p.span(kw.Start, end.End)
	return st
}

func (p *Parser) parseField() *ast.Field {
	doc := p.docText()
	name := p.expect(token.IDENT)
	p.expect(token.PAREN_L)
	typ := p.parseTypeRef()
	end := p.expect(token.PAREN_R).End
	f := &ast.Field{
		Name:     name.Text,
		NameSpan: p.tokSpan(name),
		Type:     typ,
		Doc:      doc,
	}
	if p.src.AcceptType(token.EQUALS) {
		f.Default = p.parseValue()
		end = endOf(f.Default)
	}
	f.Span = p.span(name.Start, end)
	return f
}

func (p *Parser) parseEnum(kw *token.Token) *ast.EnumType {
	p.expect(token.BRACE_L)
	en := &ast.EnumType{}
	for p.src.PeekType() != token.BRACE_R {
		v := p.expect(token.IDENT)
		en.Variants = append(en.Variants, &ast.Variant{Span: p.tokSpan(v), Name: v.Text})
		if !p.src.AcceptType(token.COMMA) {
			break
		}
	}
	end := p.expectClose(token.BRACE_R, "enum")
	en.Span = p.span(kw.Start, end.End)
	return en
}

// parseTypeRef parses Name, ns.Name or [T], each optionally followed by ?.
func (p *Parser) parseTypeRef() *ast.TypeRef {
	start := p.src.Peek()
	ref := &ast.TypeRef{}
	var end int
	if p.src.AcceptType(token.BRACKET_L) {
		ref.Elem = p.parseTypeRef()
		end = p.expect(token.BRACKET_R).End
	} else {
		name := p.expect(token.IDENT)
		ref.Name = name.Text
		end = name.End
		if p.src.AcceptType(token.DOT) {
			member := p.expect(token.IDENT)
			ref.Namespace, ref.Name = name.Text, member.Text
			end = member.End
		}
	}
	if p.src.AcceptType(token.QUESTION) {
		ref.Optional = true
		end = p.src.Token.End
	}
	ref.Span = p.span(start.Start, end)
	return ref
}

func (p *Parser) parseArray() *ast.Array {
	start := p.expect(token.BRACKET_L)
	arr := &ast.Array{}
	for p.src.PeekType() != token.BRACKET_R {
		if tok := p.src.Peek(); tok.Type == token.SPREAD {
			p.src.Scan()
			ns, name, nameTok, end := p.parseRef()
			arr.Items = append(arr.Items, &ast.ArraySpread{
				Span:      p.span(tok.Start, end),
				Namespace: ns,
				Name:      name,
				NameSpan:  p.tokSpan(nameTok),
			})
		} else {
			arr.Items = append(arr.Items, p.parseValue())
		}
		if !p.src.AcceptType(token.COMMA) {
			break
		}
	}
	end := p.expectClose(token.BRACKET_R, "array")
	arr.Span = p.span(start.Start, end.End)
	return arr
}

func (p *Parser) docText() string {
	docs := p.src.Docs()
	if len(docs) == 0 {
		return ""
	}
	lines := make([]string, len(docs))
	for i, d := range docs {
		lines[i] = strings.TrimSpace(strings.TrimPrefix(d.Text, "///"))
	}
	return strings.Join(lines, "\n")
}

func (p *Parser) peekWord(word string) bool {
	tok := p.src.Peek()
	return tok.Type == token.IDENT && tok.Text == word
}

func (p *Parser) expectWord(word string) *token.Token {
	tok := p.src.Peek()
	if !p.src.AcceptWord(word) {
		p.errorf(tok, "expected %q, found %s", word, tok)
	}
	return tok
}

func (p *Parser) expect(typ token.Type) *token.Token {
	tok := p.src.Peek()
	if tok.Type == token.ERROR || tok.Type == token.INVALID {
		p.errorf(tok, "%s", tok.Text)
	}
	if !p.src.AcceptType(typ) {
		p.errorf(tok, "expected %s, found %s", typ, tok)
	}
	return tok
}

// expectClose expects a closing delimiter and explains a missing comma,
// the most common cause of a missing delimiter.
func (p *Parser) expectClose(typ token.Type, what string) *token.Token {
	tok := p.src.Peek()
	if tok.Type == typ {
		p.src.Scan()
		return tok
	}
	if tok.Type == token.EOF {
		p.errorf(tok, "unclosed %s: expected %s", what, typ)
	}
	if tok.Type == token.ERROR || tok.Type == token.INVALID {
		p.errorf(tok, "%s", tok.Text)
	}
	p.errorf(tok, "expected ',' or %s in %s, found %s", typ, what, tok)
	return nil
}

func (p *Parser) span(start, end int) ast.Span {
	return ast.Span{Loc: p.index.Range(start, end), Start: start, End: end}
}

func (p *Parser) tokSpan(tok *token.Token) ast.Span {
	return p.span(tok.Start, tok.End)
}

func endOf(n ast.Node) int {
	_, end := n.Offsets()
	return end
}

func (p *Parser) errorf(tok *token.Token, format string, v ...interface{}) {
	pos := p.index.MustPosition(tok.Start)
	lineStart, _ := p.index.PositionToOffset(position.Position{Line: pos.Line})
	panic(bailout{&token.LocationError{
		Err: fmt.Errorf(format, v...),
		Source: &token.Location{
			File: p.file,
			Pos:  tok.Start,
			Line: int(pos.Line) + 1,
			Col:  utf8.RuneCountInString(p.text[lineStart:tok.Start]) + 1,
		},
		Start: tok.Start,
		End:   tok.End,
	}})
}

func (p *Parser) unquote(tok *token.Token) string {
	s, err := Unquote(tok.Text)
	if err != nil {
		p.errorf(tok, "%v", err)
	}
	return s
}

// Unquote interprets a single- or double-quoted MON string literal.
func Unquote(lit string) (string, error) {
	if len(lit) < 2 || lit[0] != lit[len(lit)-1] || (lit[0] != '"' && lit[0] != '\'') {
		return "", fmt.Errorf("malformed string literal %s", lit)
	}
	body := lit[1 : len(lit)-1]
	if !strings.ContainsRune(body, '\\') {
		return body, nil
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(body) {
			return "", fmt.Errorf("trailing backslash in string literal")
		}
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case '0':
			b.WriteByte(0)
		case '\\', '"', '\'', '/':
			b.WriteByte(body[i])
		case 'u':
			r, n, err := unquoteUnicode(body[i+1:])
			if err != nil {
				return "", err
			}
			b.WriteRune(r)
			i += n
		default:
			return "", fmt.Errorf("invalid escape sequence \\%c", body[i])
		}
	}
	return b.String(), nil
}

// unquoteUnicode decodes the hex digits of a \u escape, joining a following
// low surrogate escape when the first unit is a high surrogate. It returns
// the rune and the number of bytes consumed after the 'u'.
func unquoteUnicode(s string) (rune, int, error) {
	hi, err := hex4(s)
	if err != nil {
		return 0, 0, err
	}
	if !utf16.IsSurrogate(rune(hi)) {
		return rune(hi), 4, nil
	}
	if len(s) >= 10 && s[4] == '\\' && s[5] == 'u' {
		lo, err := hex4(s[6:])
		if err == nil {
			if r := utf16.DecodeRune(rune(hi), rune(lo)); r != utf8.RuneError {
				return r, 10, nil
			}
		}
	}
	return utf8.RuneError, 4, nil
}

func hex4(s string) (uint16, error) {
	if len(s) < 4 {
		return 0, fmt.Errorf("invalid unicode escape")
	}
	n, err := strconv.ParseUint(s[:4], 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid unicode escape \\u%s", s[:4])
	}
	return uint16(n), nil
}
