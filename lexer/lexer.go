// Package lexer tokenizes formula source text, grounded on
// original_source/libs/Lexer.cpp's character classification and extended
// per spec.md §4.2 with one-token push-back, string literals, section
// names, comments and line continuation, and the extension-mode toggle.
package lexer

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/transform"
	"golang.org/x/text/width"

	"github.com/launix-de/formula-compiler/token"
)

// foldKeyword narrows a full-width/mixed-case keyword spelling down to
// the plain ASCII lower-case form token.LookupKeyword/LookupSectionName
// expect, via x/text/width.Fold (full-width/half-width normalisation)
// composed with x/text/cases.Fold (caseless matching). Only used to
// widen which spellings are *recognised* as a keyword or section name —
// the token's own Text field keeps the identifier's original spelling,
// so ordinary user identifiers remain case-sensitive.
func foldKeyword(s string) string {
	normalized, _, err := transform.String(width.Fold, s)
	if err != nil {
		normalized = s
	}
	return cases.Fold().String(normalized)
}

// Options controls which extended token kinds the lexer recognises.
// Grounded on original_source/libs/include/formula/ParseOptions.h's
// Options struct, extended with the recognize_extensions field that
// Parser.cpp references but whose header was not present in the
// retrieved pack.
type Options struct {
	// RecognizeExtensions, when false, returns section names, string
	// literals and the true/false keywords as ordinary identifiers
	// (spec.md §4.2 "Extension recognition").
	RecognizeExtensions bool
}

// Lexer produces a lazy token stream with one-token peek and a FIFO
// push-back queue that replays any number of put-back tokens in order
// (spec.md §4.2's public contract).
type Lexer struct {
	src     string
	pos     int
	line    int
	column  int
	opts    Options
	pushed  []token.Token // push-back queue, FIFO: replays in the order tokens were put back
	peeked  *token.Token
}

// New constructs a Lexer over src. When opts.RecognizeExtensions is set,
// src is first width-folded (golang.org/x/text/width) so full-width
// digits/letters from legacy library files translated from other
// platforms scan as their ordinary ASCII equivalents; the legacy
// grammar (RecognizeExtensions off) never touches src, preserving exact
// byte offsets for callers that rely on them.
func New(src string, opts Options) *Lexer {
	if opts.RecognizeExtensions {
		if folded, _, err := transform.String(width.Fold, src); err == nil {
			src = folded
		}
	}
	return &Lexer{src: src, line: 1, column: 1, opts: opts}
}

// Location returns the current source position (the position the next
// byte to be scanned occupies).
func (l *Lexer) Location() token.SourceLocation {
	return token.SourceLocation{Line: l.line, Column: l.column}
}

// PutToken pushes tok back; a run of PutToken calls replays in the same
// order they were made, so the parser's backtrack() can record a whole
// span of consumed tokens (in the order it consumed them) and then push
// them all back for NextToken to hand out again in that original order
// (original_source/libs/Parser.cpp's m_backtrack replay via put_token()).
func (l *Lexer) PutToken(tok token.Token) {
	l.pushed = append(l.pushed, tok)
}

// PeekToken returns the next token without consuming it.
func (l *Lexer) PeekToken() token.Token {
	if len(l.pushed) > 0 {
		return l.pushed[0]
	}
	if l.peeked == nil {
		t := l.scan()
		l.peeked = &t
	}
	return *l.peeked
}

// NextToken consumes and returns the next token.
func (l *Lexer) NextToken() token.Token {
	if len(l.pushed) > 0 {
		t := l.pushed[0]
		l.pushed = l.pushed[1:]
		return t
	}
	if l.peeked != nil {
		t := *l.peeked
		l.peeked = nil
		return t
	}
	return l.scan()
}

func (l *Lexer) atEnd() bool {
	return l.pos >= len(l.src)
}

func (l *Lexer) current() byte {
	if l.atEnd() {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekByte(offset int) byte {
	p := l.pos + offset
	if p >= len(l.src) {
		return 0
	}
	return l.src[p]
}

// advance consumes one byte, tracking line/column. Call sites that
// already know they are consuming a newline use consumeEOL instead,
// which also moves the line count on.
func (l *Lexer) advance() {
	l.pos++
	l.column++
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isAlnum(c byte) bool {
	return isDigit(c) || isAlpha(c)
}

// skipWhitespace consumes spaces, tabs, ';' line comments, and
// backslash-newline splices, per spec.md §4.2's whitespace class. It
// stops before a bare newline, which is itself emitted as TERMINATOR.
func (l *Lexer) skipWhitespace() {
	for !l.atEnd() {
		c := l.current()
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			l.advance()
		case c == ';':
			for !l.atEnd() && l.current() != '\n' {
				l.advance()
			}
		case c == '\\' && l.isEOLAt(l.pos+1):
			l.advance() // consume '\'
			l.consumeEOL()
		default:
			return
		}
	}
}

// isEOLAt reports whether the byte at pos starts a line terminator
// (allowing for \r\n).
func (l *Lexer) isEOLAt(pos int) bool {
	if pos >= len(l.src) {
		return false
	}
	c := l.src[pos]
	return c == '\n' || c == '\r'
}

// consumeEOL advances past one logical end-of-line (\r\n, \r, or \n)
// without emitting a token, used by the backslash line-continuation.
func (l *Lexer) consumeEOL() {
	if l.current() == '\r' {
		l.pos++
		if l.current() == '\n' {
			l.pos++
		}
	} else if l.current() == '\n' {
		l.pos++
	}
	l.line++
	l.column = 1
}

func (l *Lexer) scan() token.Token {
	l.skipWhitespace()

	startPos := l.Location()
	start := l.pos

	if l.atEnd() {
		return token.Token{Kind: token.EndOfInput, Offset: start, Pos: startPos}
	}

	c := l.current()

	if c == '\r' || c == '\n' {
		l.consumeEOL()
		return token.Token{Kind: token.Terminator, Offset: start, Length: l.pos - start, Pos: startPos}
	}

	if isDigit(c) || (c == '.' && isDigit(l.peekByte(1))) {
		return l.lexNumber(start, startPos)
	}

	if isAlpha(c) {
		return l.lexIdentifier(start, startPos)
	}

	if c == '"' && l.opts.RecognizeExtensions {
		return l.lexString(start, startPos)
	}

	return l.lexOperator(start, startPos)
}

func (l *Lexer) lexNumber(start int, pos token.SourceLocation) token.Token {
	isFloat := false

	for !l.atEnd() && isDigit(l.current()) {
		l.advance()
	}
	if !l.atEnd() && l.current() == '.' {
		isFloat = true
		l.advance()
		for !l.atEnd() && isDigit(l.current()) {
			l.advance()
		}
	}
	if !l.atEnd() && (l.current() == 'e' || l.current() == 'E') {
		// Only consume as exponent if followed by [+-]?digit.
		save := l.pos
		saveCol := l.column
		l.advance()
		if !l.atEnd() && (l.current() == '+' || l.current() == '-') {
			l.advance()
		}
		if !l.atEnd() && isDigit(l.current()) {
			isFloat = true
			for !l.atEnd() && isDigit(l.current()) {
				l.advance()
			}
		} else {
			l.pos = save
			l.column = saveCol
		}
	}

	text := l.src[start:l.pos]
	value, _ := strconv.ParseFloat(text, 64)
	kind := token.Integer
	if isFloat {
		kind = token.Number
	}
	return token.Token{Kind: kind, Number: value, Offset: start, Length: l.pos - start, Pos: pos}
}

func (l *Lexer) lexIdentifier(start int, pos token.SourceLocation) token.Token {
	for !l.atEnd() && isAlnum(l.current()) {
		l.advance()
	}
	text := l.src[start:l.pos]
	length := l.pos - start

	if !l.opts.RecognizeExtensions {
		// Section names and true/false stay identifiers; the if/elseif/
		// else/endif keywords and builtin names are still recognised.
		if kind, ok := token.LookupKeyword(text); ok && kind != token.True && kind != token.False {
			return token.Token{Kind: kind, Text: text, Offset: start, Length: length, Pos: pos}
		}
		if token.IsBuiltinVariable(text) {
			return token.Token{Kind: token.BuiltinVar, Text: text, Offset: start, Length: length, Pos: pos}
		}
		if token.IsBuiltinFunction(text) {
			return token.Token{Kind: token.BuiltinFunc, Text: text, Offset: start, Length: length, Pos: pos}
		}
		return token.Token{Kind: token.Identifier, Text: text, Offset: start, Length: length, Pos: pos}
	}

	if kind, ok := token.LookupKeyword(text); ok {
		return token.Token{Kind: kind, Text: text, Offset: start, Length: length, Pos: pos}
	}
	if kind, ok := token.LookupSectionName(text); ok {
		return token.Token{Kind: kind, Text: text, Offset: start, Length: length, Pos: pos}
	}
	// Full-width/mixed-case spellings only matter for recognising a
	// keyword or section name; plain identifiers, builtin names and the
	// rest of the grammar never consult the folded form.
	if folded := foldKeyword(text); folded != text {
		if kind, ok := token.LookupKeyword(folded); ok {
			return token.Token{Kind: kind, Text: text, Offset: start, Length: length, Pos: pos}
		}
		if kind, ok := token.LookupSectionName(folded); ok {
			return token.Token{Kind: kind, Text: text, Offset: start, Length: length, Pos: pos}
		}
	}
	if token.IsBuiltinVariable(text) {
		return token.Token{Kind: token.BuiltinVar, Text: text, Offset: start, Length: length, Pos: pos}
	}
	if token.IsBuiltinFunction(text) {
		return token.Token{Kind: token.BuiltinFunc, Text: text, Offset: start, Length: length, Pos: pos}
	}
	return token.Token{Kind: token.Identifier, Text: text, Offset: start, Length: length, Pos: pos}
}

func (l *Lexer) lexString(start int, pos token.SourceLocation) token.Token {
	l.advance() // opening quote
	var sb strings.Builder
	for !l.atEnd() && l.current() != '"' {
		sb.WriteByte(l.current())
		l.advance()
	}
	if !l.atEnd() {
		l.advance() // closing quote
	}
	return token.Token{Kind: token.String, Text: sb.String(), Offset: start, Length: l.pos - start, Pos: pos}
}

func (l *Lexer) lexOperator(start int, pos token.SourceLocation) token.Token {
	c := l.current()
	l.advance()

	two := func(next byte, k token.Kind, one token.Kind) token.Token {
		if !l.atEnd() && l.current() == next {
			l.advance()
			return token.Token{Kind: k, Offset: start, Length: 2, Pos: pos}
		}
		return token.Token{Kind: one, Offset: start, Length: 1, Pos: pos}
	}

	switch c {
	case '+':
		return token.Token{Kind: token.Plus, Offset: start, Length: 1, Pos: pos}
	case '-':
		return token.Token{Kind: token.Minus, Offset: start, Length: 1, Pos: pos}
	case '*':
		return token.Token{Kind: token.Star, Offset: start, Length: 1, Pos: pos}
	case '/':
		return token.Token{Kind: token.Slash, Offset: start, Length: 1, Pos: pos}
	case '^':
		return token.Token{Kind: token.Caret, Offset: start, Length: 1, Pos: pos}
	case '=':
		return two('=', token.Equal, token.Assign)
	case '<':
		return two('=', token.LessEqual, token.Less)
	case '>':
		return two('=', token.GreaterEqual, token.Greater)
	case '!':
		if !l.atEnd() && l.current() == '=' {
			l.advance()
			return token.Token{Kind: token.NotEqual, Offset: start, Length: 2, Pos: pos}
		}
		return token.Token{Kind: token.Invalid, Offset: start, Length: 1, Pos: pos}
	case '&':
		if !l.atEnd() && l.current() == '&' {
			l.advance()
			return token.Token{Kind: token.LogicalAnd, Offset: start, Length: 2, Pos: pos}
		}
		return token.Token{Kind: token.Invalid, Offset: start, Length: 1, Pos: pos}
	case '|':
		if !l.atEnd() && l.current() == '|' {
			l.advance()
			return token.Token{Kind: token.LogicalOr, Offset: start, Length: 2, Pos: pos}
		}
		return token.Token{Kind: token.Modulus, Offset: start, Length: 1, Pos: pos}
	case '(':
		return token.Token{Kind: token.OpenParen, Offset: start, Length: 1, Pos: pos}
	case ')':
		return token.Token{Kind: token.CloseParen, Offset: start, Length: 1, Pos: pos}
	case ',':
		return token.Token{Kind: token.Comma, Offset: start, Length: 1, Pos: pos}
	case ':':
		return token.Token{Kind: token.Colon, Offset: start, Length: 1, Pos: pos}
	default:
		return token.Token{Kind: token.Invalid, Offset: start, Length: 1, Pos: pos}
	}
}
