// Sectionised-mode grammar: the nine-section formula layout and its
// ordering/mutual-exclusion/duplicate validation, grounded on
// original_source/libs/Parser.cpp's section_formula() and its
// default_section()/switch_section()/default_param_block() helpers.
// spec.md §4.3 "Sectionised mode validation" gives the closed rule set
// this file implements; spec.md §6 names the default-section key
// catalogue without giving each key's value grammar, which is filled in
// here from original_source/libs/Parser.cpp lines ~660-780.
package parser

import (
	"math"

	"github.com/launix-de/formula-compiler/ast"
	"github.com/launix-de/formula-compiler/token"
)

var sectionOrderIndex = func() map[token.Kind]int {
	m := make(map[token.Kind]int, len(token.SectionKinds))
	for i, k := range token.SectionKinds {
		m[k] = i
	}
	return m
}()

var sectionASTKind = map[token.Kind]ast.Section{
	token.SectGlobal:      ast.SectionPerImage,
	token.SectBuiltin:     ast.SectionBuiltin,
	token.SectInit:        ast.SectionInitialize,
	token.SectLoop:        ast.SectionIterate,
	token.SectBailout:     ast.SectionBailout,
	token.SectPerturbInit: ast.SectionPerturbInitialize,
	token.SectPerturbLoop: ast.SectionPerturbIterate,
	token.SectDefault:     ast.SectionDefault,
	token.SectSwitch:      ast.SectionSwitch,
}

// wordText returns the textual spelling of curr when it names something
// (an identifier, a builtin name, a section name, or a keyword) and a
// default/switch-section key position needs to accept it as a plain
// word — e.g. the default-section key "default" collides with the
// SectDefault section-name token, since both lex from the same spelling.
func (p *Parser) wordText() (string, bool) {
	switch p.curr.Kind {
	case token.Identifier, token.BuiltinVar, token.BuiltinFunc,
		token.SectGlobal, token.SectBuiltin, token.SectInit, token.SectLoop,
		token.SectBailout, token.SectPerturbInit, token.SectPerturbLoop,
		token.SectDefault, token.SectSwitch,
		token.If, token.ElseIf, token.Else, token.EndIf, token.True, token.False:
		return p.curr.Text, true
	default:
		return "", false
	}
}

func isPhaseSection(k token.Kind) bool {
	switch k {
	case token.SectGlobal, token.SectInit, token.SectLoop, token.SectBailout:
		return true
	default:
		return false
	}
}

var paramTypeWords = map[string]ast.ParamBlockType{
	"bool":    ast.ParamBool,
	"int":     ast.ParamInt,
	"float":   ast.ParamFloat,
	"complex": ast.ParamComplex,
	"color":   ast.ParamColor,
}

// sectionFormula parses a sequence of section headers, each followed by
// ':' and a section-specific body, enforcing declaration order
// (global < builtin < init < loop < bailout < perturbinit < perturbloop
// < default < switch), at-most-once-per-section, and builtin's mutual
// exclusion with every phase section.
func (p *Parser) sectionFormula() *ast.FormulaSections {
	fs := &ast.FormulaSections{}

	lastIdx := -1
	seen := make(map[int]bool, len(token.SectionKinds))
	builtinSet := false
	phaseSet := false

	for p.isSectionHeader(p.curr.Kind) {
		kind := p.curr.Kind
		idx := sectionOrderIndex[kind]
		astSec := sectionASTKind[kind]

		switch {
		case seen[idx]:
			p.error(DuplicateSection)
		case idx < lastIdx:
			p.error(InvalidSectionOrder)
		}

		isBuiltin := kind == token.SectBuiltin
		isPhase := isPhaseSection(kind)
		if isBuiltin && phaseSet {
			p.error(BuiltinSectionDisallowsOtherSections)
		}
		if isPhase && builtinSet {
			p.error(BuiltinSectionDisallowsOtherSections)
		}

		seen[idx] = true
		if idx > lastIdx {
			lastIdx = idx
		}
		if isBuiltin {
			builtinSet = true
		}
		if isPhase {
			phaseSet = true
		}

		p.advance() // section keyword
		if !p.expect(token.Colon, ExpectedStatementSeparator) {
			return fs
		}
		p.skipSeparators()

		var body ast.Node
		switch kind {
		case token.SectBuiltin:
			body = p.builtinSection()
		case token.SectDefault:
			body = p.defaultSection()
		case token.SectSwitch:
			body = p.switchSection()
		default:
			body = p.sequence()
		}
		fs.Set(astSec, body)
		p.skipSeparators()
	}

	return fs
}

// builtinSection parses the builtin section's single "type = N" setting,
// N in {1,2} (spec.md §4.3).
func (p *Parser) builtinSection() ast.Node {
	if w, ok := p.wordText(); !ok || w != "type" {
		p.error(BuiltinSectionInvalidKey)
		return nil
	}
	p.advance()
	if !p.expect(token.Assign, ExpectedAssignment) {
		return nil
	}
	if !p.check(token.Integer) {
		p.error(BuiltinSectionInvalidType)
		return nil
	}
	n := int64(p.curr.Number)
	if n != 1 && n != 2 {
		p.error(BuiltinSectionInvalidType)
		return nil
	}
	p.advance()
	return &ast.Setting{Key: "type", Value: ast.SettingValue{Kind: ast.SettingInt, Int: n}}
}

func (p *Parser) atSectionBoundary() bool {
	return p.isSectionHeader(p.curr.Kind) || p.check(token.EndOfInput)
}

// defaultSection parses one or more "key = value" settings and "[type]
// param NAME ... endparam" blocks, in any order, until the next section
// header (original_source/libs/Parser.cpp's default_section()).
func (p *Parser) defaultSection() ast.Node {
	var stmts []ast.Node
	for {
		p.skipSeparators()
		if p.atSectionBoundary() {
			break
		}
		node := p.paramBlockOrSetting()
		if node == nil {
			break
		}
		stmts = append(stmts, node)
		p.skipSeparators()
	}
	if len(stmts) == 0 {
		return nil
	}
	if len(stmts) == 1 {
		return stmts[0]
	}
	return &ast.StatementSeq{Statements: stmts}
}

func (p *Parser) paramBlockOrSetting() ast.Node {
	name, ok := p.wordText()
	if !ok {
		p.error(DefaultSectionInvalidKey)
		return nil
	}

	if ptype, isType := paramTypeWords[name]; isType {
		p.advance()
		next, ok := p.wordText()
		if !ok || next != "param" {
			p.error(DefaultSectionInvalidKey)
			return nil
		}
		return p.paramBlock(ptype)
	}
	if name == "param" {
		return p.paramBlock(ast.ParamNone)
	}
	return p.setting()
}

// paramBlock parses "param NAME (key: value)* endparam", the type word
// (if any) already consumed by the caller.
func (p *Parser) paramBlock(t ast.ParamBlockType) ast.Node {
	p.advance() // 'param'
	name, ok := p.wordText()
	if !ok {
		p.error(DefaultSectionInvalidKey)
		return nil
	}
	p.advance()
	p.skipSeparators()

	var entries []ast.ParamBlockEntry
	for {
		p.skipSeparators()
		if w, ok := p.wordText(); ok && w == "endparam" {
			break
		}
		// A real section header can never appear here without an
		// intervening "endparam" in well-formed input, so only genuine
		// end-of-input aborts the block; this lets "default" and other
		// section-name spellings be used as ordinary entry keys.
		if p.check(token.EndOfInput) {
			p.error(DefaultSectionInvalidKey)
			break
		}
		key, ok := p.wordText()
		if !ok {
			p.error(DefaultSectionInvalidKey)
			break
		}
		p.advance()
		if !p.expect(token.Colon, ExpectedAssignment) {
			break
		}
		val := p.settingValue()
		entries = append(entries, ast.ParamBlockEntry{Key: key, Value: val})
	}
	if w, ok := p.wordText(); ok && w == "endparam" {
		p.advance()
	} else {
		p.error(DefaultSectionInvalidMethod)
	}

	return &ast.ParamBlock{Type: t, Name: name, Entries: entries}
}

// setting parses one "key = value" line.
func (p *Parser) setting() ast.Node {
	key, ok := p.wordText()
	if !ok {
		p.error(DefaultSectionInvalidKey)
		return nil
	}
	p.advance()
	if !p.expect(token.Assign, ExpectedAssignment) {
		return nil
	}
	val := p.settingValue()
	return &ast.Setting{Key: key, Value: val}
}

// switchSection parses the switch section's single "key = value"
// assignment, where value is either a quoted string or a bare
// builtin-variable/parameter reference (original_source/libs/Parser.cpp's
// switch_section(), spec.md §6's SwitchParam distinction).
func (p *Parser) switchSection() ast.Node {
	key, ok := p.wordText()
	if !ok {
		p.error(SwitchSectionInvalidKey)
		return nil
	}
	p.advance()
	if !p.expect(token.Assign, ExpectedAssignment) {
		return nil
	}

	var val ast.SettingValue
	if w, ok := p.wordText(); ok && !p.check(token.String) {
		val = ast.SettingValue{Kind: ast.SettingEnum, Enum: w, SwitchParam: true}
		p.advance()
	} else {
		val = p.settingValue()
	}
	return &ast.Setting{Key: key, Value: val}
}

// settingValue parses the right-hand side of a "key = value"/"key:
// value" pair: bool/string/enum-identifier literals directly, otherwise
// an arithmetic expression. No constant folding is done: the value
// becomes Int/Number/Complex only when the expression is a single
// literal (so "-1" or "1+2" stay Expr); anything else is kept as Expr
// (the perturb/precision case,
// which spec.md §6 describes as taking a bool/int expression rather than
// a literal).
func (p *Parser) settingValue() ast.SettingValue {
	if p.check(token.True) {
		p.advance()
		return ast.SettingValue{Kind: ast.SettingBool, Bool: true}
	}
	if p.check(token.False) {
		p.advance()
		return ast.SettingValue{Kind: ast.SettingBool, Bool: false}
	}
	if p.check(token.String) {
		s := p.curr.Text
		p.advance()
		return ast.SettingValue{Kind: ast.SettingString, Str: s}
	}
	if p.check(token.Identifier) {
		// A bare word that is not also an arithmetic primary (i.e. not a
		// builtin variable/function, which could start an expression) is
		// an enum-style value (method/rating names and the like).
		w := p.curr.Text
		p.advance()
		return ast.SettingValue{Kind: ast.SettingEnum, Enum: w}
	}

	expr := p.additive()
	if expr == nil {
		return ast.SettingValue{}
	}
	if lit, ok := expr.(*ast.Literal); ok {
		if lit.Value.Im != 0 {
			return ast.SettingValue{Kind: ast.SettingComplex, Complex: lit.Value}
		}
		if lit.Value.Re == math.Trunc(lit.Value.Re) {
			return ast.SettingValue{Kind: ast.SettingInt, Int: int64(lit.Value.Re), Number: lit.Value.Re}
		}
		return ast.SettingValue{Kind: ast.SettingNumber, Number: lit.Value.Re}
	}
	return ast.SettingValue{Kind: ast.SettingExpr, Expr: expr}
}
