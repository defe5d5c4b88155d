// Package parser implements the recursive-descent grammar for formula
// source, grounded on original_source/libs/Parser.cpp (sectionised mode)
// and original_source/libs/descent.cpp (the simpler legacy-only
// grammar, which Parser.cpp's own legacy fallback matches method for
// method: sequence/statement/if_statement/block/assignment/conjunctive/
// comparative/additive/term/unary/power/primary).
package parser

import (
	"github.com/launix-de/formula-compiler/ast"
	"github.com/launix-de/formula-compiler/complexnum"
	"github.com/launix-de/formula-compiler/lexer"
	"github.com/launix-de/formula-compiler/token"
)

// Options controls optional grammar behaviour, grounded on
// original_source/libs/include/formula/ParseOptions.h's Options struct.
type Options struct {
	// AllowBuiltinAssignment downgrades an assignment to a builtin
	// variable or function name from an error to a warning (spec.md §9
	// Open Question "builtin assignment").
	AllowBuiltinAssignment bool

	// RecognizeExtensions enables the sectionised grammar, string
	// literals, true/false, and section-name keywords. When false, only
	// the legacy two-part grammar is accepted. Threaded through to the
	// Lexer's own Options field of the same name.
	RecognizeExtensions bool
}

// Parser consumes a token stream and builds a FormulaSections tree,
// accumulating diagnostics rather than stopping at the first one where
// recovery is possible (spec.md §7).
type Parser struct {
	lex  *lexer.Lexer
	opts Options

	curr token.Token

	backtracking bool
	backtrack    []token.Token

	warnings []Diagnostic
	errs     []Diagnostic
}

// New constructs a Parser over src.
func New(src string, opts Options) *Parser {
	p := &Parser{
		lex:  lexer.New(src, lexer.Options{RecognizeExtensions: opts.RecognizeExtensions}),
		opts: opts,
	}
	p.advance()
	return p
}

// Warnings returns the diagnostics raised at a level the parser was able
// to recover from without aborting the parse.
func (p *Parser) Warnings() []Diagnostic { return p.warnings }

// Errors returns the diagnostics that made the parse fail.
func (p *Parser) Errors() []Diagnostic { return p.errs }

// Ok reports whether the parse produced no errors.
func (p *Parser) Ok() bool { return len(p.errs) == 0 }

// --- token-stream mechanics, grounded on Parser.cpp's advance/match/
// check/begin_tracking/end_tracking/backtrack. ---

func (p *Parser) advance() {
	p.curr = p.lex.NextToken()
	if p.backtracking {
		p.backtrack = append(p.backtrack, p.curr)
	}
}

func (p *Parser) check(k token.Kind) bool {
	return p.curr.Kind == k
}

func (p *Parser) checkAny(ks ...token.Kind) bool {
	for _, k := range ks {
		if p.curr.Kind == k {
			return true
		}
	}
	return false
}

// match advances and returns true if curr is k, otherwise leaves curr
// untouched and returns false.
func (p *Parser) match(k token.Kind) bool {
	if p.check(k) {
		p.advance()
		return true
	}
	return false
}

// expect requires curr to be k, raising code and returning false if not.
func (p *Parser) expect(k token.Kind, code ErrorCode) bool {
	if p.match(k) {
		return true
	}
	p.error(code)
	return false
}

// beginTracking starts recording every token consumed by advance() so a
// failed tentative parse (a builtin-function call with no '(', or a
// parenthesized expression that isn't actually a complex literal) can be
// undone by backtrack().
func (p *Parser) beginTracking() {
	p.backtracking = true
	p.backtrack = p.backtrack[:0]
}

// endTracking commits a successful tentative parse: the recorded tokens
// are discarded since they were genuinely consumed.
func (p *Parser) endTracking() {
	p.backtracking = false
	p.backtrack = nil
}

// backtrack undoes a tentative parse: every token recorded since
// beginTracking is pushed back onto the lexer in the order it was
// consumed, then curr is resynced to the first of them.
func (p *Parser) backtrack() {
	p.backtracking = false
	for _, t := range p.backtrack {
		p.lex.PutToken(t)
	}
	p.backtrack = nil
	p.advance()
}

func (p *Parser) error(code ErrorCode) {
	p.errs = append(p.errs, Diagnostic{Code: code, Location: p.curr.Pos})
}

func (p *Parser) warning(code ErrorCode) {
	p.warnings = append(p.warnings, Diagnostic{Code: code, Location: p.curr.Pos})
}

// skipSeparators consumes zero or more COMMA/TERMINATOR tokens, matching
// Parser.cpp's skip_separators() (statements may be separated by either,
// and stray blank lines between statements are not significant).
func (p *Parser) skipSeparators() {
	for p.checkAny(token.Comma, token.Terminator) {
		p.advance()
	}
}

// isUserIdentifier classifies name as a valid assignment target,
// matching Parser.cpp's is_user_identifier(): builtin variables and
// builtin function names are rejected unless AllowBuiltinAssignment
// downgrades the rejection to a warning.
func (p *Parser) isUserIdentifier(name string) bool {
	switch {
	case token.IsBuiltinVariable(name):
		if p.opts.AllowBuiltinAssignment {
			p.warning(BuiltinVariableAssignment)
			return true
		}
		p.error(BuiltinVariableAssignment)
		return false
	case token.IsBuiltinFunction(name):
		if p.opts.AllowBuiltinAssignment {
			p.warning(BuiltinFunctionAssignment)
			return true
		}
		p.error(BuiltinFunctionAssignment)
		return false
	default:
		return true
	}
}

// --- grammar, outermost (loosest-binding) to innermost. ---

// sequence parses a statement list separated by COMMA/TERMINATOR,
// returning the bare statement when there is exactly one (Parser.cpp's
// sequence()).
func (p *Parser) sequence() ast.Node {
	p.skipSeparators()
	if p.atSequenceEnd() {
		return nil
	}
	first := p.statement()
	if first == nil {
		return nil
	}
	stmts := []ast.Node{first}
	for p.checkAny(token.Comma, token.Terminator) {
		p.skipSeparators()
		if p.atSequenceEnd() {
			break
		}
		stmt := p.statement()
		if stmt == nil {
			break
		}
		stmts = append(stmts, stmt)
	}
	if len(stmts) == 1 {
		return stmts[0]
	}
	return &ast.StatementSeq{Statements: stmts}
}

// atSequenceEnd reports whether curr can't start another statement: end
// of input, a block terminator ('endif'/'else'/'elseif'), the legacy
// grammar's ':' split, or (in sectionised mode) the next section header.
func (p *Parser) atSequenceEnd() bool {
	if p.checkAny(token.EndOfInput, token.EndIf, token.Else, token.ElseIf, token.Colon) {
		return true
	}
	return p.isSectionHeader(p.curr.Kind)
}

// statement dispatches to if_statement or falls through to an
// expression/assignment (Parser.cpp's statement()).
func (p *Parser) statement() ast.Node {
	if p.check(token.If) {
		return p.ifStatement()
	}
	return p.conjunctive()
}

// ifStatement parses 'if' '(' conjunctive ')' block (elseif|else)? 'endif'.
func (p *Parser) ifStatement() ast.Node {
	p.advance() // 'if'
	return p.ifStatementBody(true)
}

// ifStatementBody parses the condition/then/else-chain shared by both
// 'if' and each 'elseif', consuming the trailing 'endif' only at the
// outermost level (Parser.cpp's if_statement/if_statement_no_endif
// split).
func (p *Parser) ifStatementBody(consumeEndif bool) ast.Node {
	if !p.expect(token.OpenParen, ExpectedOpenParen) {
		return nil
	}
	cond := p.conjunctive()
	if cond == nil {
		return nil
	}
	if !p.expect(token.CloseParen, ExpectedCloseParen) {
		return nil
	}
	p.skipSeparators()

	then := p.block()

	var els ast.Node
	switch {
	case p.check(token.ElseIf):
		p.advance()
		els = p.ifStatementBody(false)
	case p.check(token.Else):
		p.advance()
		p.skipSeparators()
		els = p.block()
	}

	if consumeEndif {
		if !p.expect(token.EndIf, ExpectedEndif) {
			return nil
		}
	}

	return &ast.If{Cond: cond, Then: then, Else: els}
}

// block parses a statement list until END_IF/ELSE/ELSEIF, returning nil
// for an empty block (Parser.cpp's block()).
func (p *Parser) block() ast.Node {
	if p.checkAny(token.EndIf, token.Else, token.ElseIf) {
		return nil
	}
	return p.sequence()
}

// conjunctive := comparative (('&&'|'||') comparative)*  (left-assoc).
func (p *Parser) conjunctive() ast.Node {
	left := p.comparative()
	if left == nil {
		return nil
	}
	for p.checkAny(token.LogicalAnd, token.LogicalOr) {
		op := ast.OpAnd
		if p.check(token.LogicalOr) {
			op = ast.OpOr
		}
		p.advance()
		right := p.comparative()
		if right == nil {
			return nil
		}
		left = &ast.BinaryOp{Op: op, Left: left, Right: right}
	}
	return left
}

// comparative := assignment (relop assignment)*  (left-assoc).
func (p *Parser) comparative() ast.Node {
	left := p.assignment()
	if left == nil {
		return nil
	}
	for {
		var op ast.BinaryOpKind
		switch p.curr.Kind {
		case token.Less:
			op = ast.OpLess
		case token.LessEqual:
			op = ast.OpLessEqual
		case token.Greater:
			op = ast.OpGreater
		case token.GreaterEqual:
			op = ast.OpGreaterEqual
		case token.Equal:
			op = ast.OpEqual
		case token.NotEqual:
			op = ast.OpNotEqual
		default:
			return left
		}
		p.advance()
		right := p.assignment()
		if right == nil {
			return nil
		}
		left = &ast.BinaryOp{Op: op, Left: left, Right: right}
	}
}

// assignment := additive ('=' assignment)?  (right-assoc).
func (p *Parser) assignment() ast.Node {
	left := p.additive()
	if left == nil {
		return nil
	}
	if !p.check(token.Assign) {
		return left
	}
	ident, ok := left.(*ast.Identifier)
	if !ok {
		p.error(ExpectedIdentifier)
		return nil
	}
	if !p.isUserIdentifier(ident.Name) {
		return nil
	}
	p.advance() // '='
	right := p.assignment()
	if right == nil {
		return nil
	}
	return &ast.Assignment{Target: ident.Name, Value: right}
}

// additive := term (('+'|'-') term)*  (left-assoc).
func (p *Parser) additive() ast.Node {
	left := p.term()
	if left == nil {
		return nil
	}
	for p.checkAny(token.Plus, token.Minus) {
		op := ast.OpAdd
		if p.check(token.Minus) {
			op = ast.OpSub
		}
		p.advance()
		right := p.term()
		if right == nil {
			return nil
		}
		left = &ast.BinaryOp{Op: op, Left: left, Right: right}
	}
	return left
}

// term := unary (('*'|'/') unary)*  (left-assoc), the multiplicative
// level (named `term` to match descent.cpp).
func (p *Parser) term() ast.Node {
	left := p.unary()
	if left == nil {
		return nil
	}
	for p.checkAny(token.Star, token.Slash) {
		op := ast.OpMul
		if p.check(token.Slash) {
			op = ast.OpDiv
		}
		p.advance()
		right := p.unary()
		if right == nil {
			return nil
		}
		left = &ast.BinaryOp{Op: op, Left: left, Right: right}
	}
	return left
}

// unary := ('+'|'-') unary | power.
func (p *Parser) unary() ast.Node {
	switch p.curr.Kind {
	case token.Plus:
		p.advance()
		operand := p.unary()
		if operand == nil {
			return nil
		}
		return &ast.UnaryOp{Op: '+', Operand: operand}
	case token.Minus:
		p.advance()
		operand := p.unary()
		if operand == nil {
			return nil
		}
		return &ast.UnaryOp{Op: '-', Operand: operand}
	default:
		return p.power()
	}
}

// power := primary ('^' primary)*  (left-associative: spec.md §9's
// resolved Open Question, a deliberate departure from mathematical
// convention to match the original's actual parse).
func (p *Parser) power() ast.Node {
	left := p.primary()
	if left == nil {
		return nil
	}
	for p.check(token.Caret) {
		p.advance()
		right := p.primary()
		if right == nil {
			return nil
		}
		left = &ast.BinaryOp{Op: ast.OpPow, Left: left, Right: right}
	}
	return left
}

// primary handles literals, identifiers, builtin variables/functions
// (with backtracking to disambiguate a bare builtin-function name from a
// call), parenthesized expressions, complex literals (also disambiguated
// by backtracking against a plain parenthesized expression), and the
// '|' ... '|' modulus form.
func (p *Parser) primary() ast.Node {
	switch p.curr.Kind {
	case token.Integer, token.Number:
		v := p.curr.Number
		p.advance()
		return ast.NewNumber(v)

	case token.True:
		p.advance()
		return ast.NewNumber(1)

	case token.False:
		p.advance()
		return ast.NewNumber(0)

	case token.Identifier, token.BuiltinVar:
		name := p.curr.Text
		p.advance()
		return &ast.Identifier{Name: name}

	case token.BuiltinFunc:
		return p.builtinCallOrIdentifier()

	case token.Modulus:
		p.advance()
		operand := p.conjunctive()
		if operand == nil {
			return nil
		}
		if !p.expect(token.Modulus, ExpectedCloseModulus) {
			return nil
		}
		return &ast.UnaryOp{Op: '|', Operand: operand}

	case token.OpenParen:
		return p.parenOrComplex()

	default:
		p.error(ExpectedPrimary)
		return nil
	}
}

// builtinCallOrIdentifier tentatively parses `name '(' expr ')'`; if no
// '(' follows the name, it backtracks and the name is read as an
// ordinary symbol-table identifier instead (Parser.cpp's treatment of a
// builtin function token used bare, e.g. as the argument of another
// call).
func (p *Parser) builtinCallOrIdentifier() ast.Node {
	name := p.curr.Text
	p.beginTracking()
	p.advance() // consume the function name
	if p.check(token.OpenParen) {
		p.endTracking()
		p.advance() // '('
		arg := p.conjunctive()
		if arg == nil {
			return nil
		}
		if !p.expect(token.CloseParen, ExpectedCloseParen) {
			return nil
		}
		return &ast.FunctionCall{Name: name, Arg: arg}
	}
	p.backtrack()
	return &ast.Identifier{Name: name}
}

// parenOrComplex tentatively parses `'(' signed-number ',' signed-number
// ')'` as a complex literal; on any mismatch it backtracks and parses an
// ordinary parenthesized expression instead (Parser.cpp's complex
// literal grammar, which shares the '(' token with grouping).
func (p *Parser) parenOrComplex() ast.Node {
	p.beginTracking()
	p.advance() // '('

	if re, ok := p.trySignedNumber(); ok && p.check(token.Comma) {
		p.advance() // ','
		if im, ok := p.trySignedNumber(); ok && p.check(token.CloseParen) {
			p.endTracking()
			p.advance() // ')'
			return &ast.Literal{Value: complexnum.New(re, im)}
		}
	}

	// backtrack() already resyncs curr to the token right after '(' (the
	// '(' itself was consumed by the advance() that started tracking, so
	// it is not part of the replay and must not be re-consumed here).
	p.backtrack()
	expr := p.conjunctive()
	if expr == nil {
		return nil
	}
	if !p.expect(token.CloseParen, ExpectedCloseParen) {
		return nil
	}
	return expr
}

// trySignedNumber consumes an optional '+'/'-' followed by a required
// INTEGER/NUMBER token, used only inside a tracked (backtrackable)
// attempt: on failure the caller discards everything via backtrack(),
// so this need not undo partial consumption itself.
func (p *Parser) trySignedNumber() (float64, bool) {
	sign := 1.0
	if p.check(token.Plus) {
		p.advance()
	} else if p.check(token.Minus) {
		sign = -1
		p.advance()
	}
	if p.checkAny(token.Integer, token.Number) {
		v := p.curr.Number * sign
		p.advance()
		return v, true
	}
	return 0, false
}

// --- top level ---

// splitIterateBailout splits a legacy two-part formula's second half at
// its last top-level statement: everything before becomes Iterate,
// the last becomes Bailout (Parser.cpp's and descent.cpp's
// split_iterate_bailout, spec.md §4.3 "Legacy grammar").
func splitIterateBailout(body ast.Node) (iterate, bailout ast.Node) {
	seq, ok := body.(*ast.StatementSeq)
	if !ok || len(seq.Statements) == 0 {
		return nil, body
	}
	last := seq.Statements[len(seq.Statements)-1]
	rest := seq.Statements[:len(seq.Statements)-1]
	if len(rest) == 1 {
		return rest[0], last
	}
	return &ast.StatementSeq{Statements: rest}, last
}

// Parse runs the grammar over the full input: the sectionised form when
// RecognizeExtensions is set and the source actually opens with a
// section header, otherwise the legacy `init : iterate, bailout` form
// (Parser.cpp's FormulaParser::parse()).
func (p *Parser) Parse() *ast.FormulaSections {
	p.skipSeparators()

	if p.opts.RecognizeExtensions && p.isSectionHeader(p.curr.Kind) {
		return p.sectionFormula()
	}
	return p.legacyFormula()
}

func (p *Parser) isSectionHeader(k token.Kind) bool {
	for _, sk := range token.SectionKinds {
		if sk == k {
			return true
		}
	}
	return false
}

// legacyFormula parses `sequence (':' sequence)?` and splits the second
// half into Iterate/Bailout (descent.cpp's Descent::parse()).
func (p *Parser) legacyFormula() *ast.FormulaSections {
	first := p.sequence()
	fs := &ast.FormulaSections{}

	if p.match(token.Colon) {
		second := p.sequence()
		iterate, bailout := splitIterateBailout(second)
		fs.Initialize = first
		fs.Iterate = iterate
		fs.Bailout = bailout
		return fs
	}

	iterate, bailout := splitIterateBailout(first)
	fs.Iterate = iterate
	fs.Bailout = bailout
	return fs
}
