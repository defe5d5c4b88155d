// Package token defines the token kinds and source-location records
// produced by the lexer and consumed by the parser, grounded on
// original_source/libs/include/formula/SourceLocation.h and the token
// shape implied by original_source/libs/Lexer.cpp.
package token

import "fmt"

// Kind is the closed set of token discriminants from spec.md §3.
type Kind int

const (
	Invalid Kind = iota
	EndOfInput

	Integer
	Number
	String
	Identifier

	// Operators and punctuation.
	Plus
	Minus
	Star
	Slash
	Caret
	Assign
	Equal
	NotEqual
	Less
	LessEqual
	Greater
	GreaterEqual
	LogicalAnd
	LogicalOr
	Modulus // '|'
	OpenParen
	CloseParen
	Comma
	Colon
	Terminator

	// Keywords.
	If
	ElseIf
	Else
	EndIf
	True
	False

	// Section names.
	SectGlobal
	SectBuiltin
	SectInit
	SectLoop
	SectBailout
	SectPerturbInit
	SectPerturbLoop
	SectDefault
	SectSwitch

	// Built-in variables.
	BuiltinVar

	// Built-in function names.
	BuiltinFunc
)

var kindNames = map[Kind]string{
	Invalid:         "INVALID",
	EndOfInput:      "END_OF_INPUT",
	Integer:         "INTEGER",
	Number:          "NUMBER",
	String:          "STRING",
	Identifier:      "IDENTIFIER",
	Plus:            "+",
	Minus:           "-",
	Star:            "*",
	Slash:           "/",
	Caret:           "^",
	Assign:          "=",
	Equal:           "==",
	NotEqual:        "!=",
	Less:            "<",
	LessEqual:       "<=",
	Greater:         ">",
	GreaterEqual:    ">=",
	LogicalAnd:      "&&",
	LogicalOr:       "||",
	Modulus:         "|",
	OpenParen:       "(",
	CloseParen:      ")",
	Comma:           ",",
	Colon:           ":",
	Terminator:      "TERMINATOR",
	If:              "if",
	ElseIf:          "elseif",
	Else:            "else",
	EndIf:           "endif",
	True:            "true",
	False:           "false",
	SectGlobal:      "global",
	SectBuiltin:     "builtin",
	SectInit:        "init",
	SectLoop:        "loop",
	SectBailout:     "bailout",
	SectPerturbInit: "perturbinit",
	SectPerturbLoop: "perturbloop",
	SectDefault:     "default",
	SectSwitch:      "switch",
	BuiltinVar:      "BUILTIN_VAR",
	BuiltinFunc:     "BUILTIN_FUNC",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// SourceLocation is a 1-based (line, column) pair, matching
// original_source/libs/include/formula/SourceLocation.h.
type SourceLocation struct {
	Line, Column int
}

// StartLocation returns (1,1), the start of the source. The zero-value
// SourceLocation is (0,0), which is not a valid position.
func StartLocation() SourceLocation {
	return SourceLocation{Line: 1, Column: 1}
}

func (l SourceLocation) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// Token is a tagged record: kind, optional numeric/string payload, byte
// offset, byte length, and the source position of its first byte (the
// lexer computes this incrementally; the parser never needs to re-scan
// for it).
type Token struct {
	Kind    Kind
	Number  float64
	Text    string // identifier/string/builtin-name payload
	Offset  int
	Length  int
	Pos     SourceLocation
}

func (t Token) String() string {
	switch t.Kind {
	case Integer, Number:
		return fmt.Sprintf("%s(%g)@%s", t.Kind, t.Number, t.Pos)
	case Identifier, String, BuiltinVar, BuiltinFunc:
		return fmt.Sprintf("%s(%q)@%s", t.Kind, t.Text, t.Pos)
	default:
		return fmt.Sprintf("%s@%s", t.Kind, t.Pos)
	}
}

// SectionKinds lists the nine section-header token kinds in their
// required declaration order (spec.md §4.3 "Sectionised mode
// validation").
var SectionKinds = []Kind{
	SectGlobal, SectBuiltin, SectInit, SectLoop, SectBailout,
	SectPerturbInit, SectPerturbLoop, SectDefault, SectSwitch,
}

// BuiltinVariableNames is the closed set of builtin variable names from
// spec.md §6, shared by the lexer (classification) and the parser
// (assignment-target validation in is_user_identifier, grounded on
// original_source/libs/Parser.cpp's static builtins[] table).
var BuiltinVariableNames = []string{
	"p1", "p2", "p3", "p4", "p5",
	"pixel", "lastsqr", "rand", "pi", "e",
	"maxit", "scrnmax", "scrnpix", "whitesq",
	"ismand", "center", "magxmag", "rotskew",
}

// BuiltinFunctionNames is the closed set of builtin function names from
// spec.md §6.
var BuiltinFunctionNames = []string{
	"sin", "cos", "sinh", "cosh", "cosxx",
	"tan", "cotan", "tanh", "cotanh", "sqr",
	"log", "exp", "abs", "conj", "real",
	"imag", "flip", "fn1", "fn2", "fn3",
	"fn4", "srand", "asin", "acos", "asinh",
	"acosh", "atan", "atanh", "sqrt", "cabs",
	"floor", "ceil", "trunc", "round", "ident",
	"one", "zero",
}

var sectionNameKind = map[string]Kind{
	"global":      SectGlobal,
	"builtin":     SectBuiltin,
	"init":        SectInit,
	"loop":        SectLoop,
	"bailout":     SectBailout,
	"perturbinit": SectPerturbInit,
	"perturbloop": SectPerturbLoop,
	"default":     SectDefault,
	"switch":      SectSwitch,
}

// LookupSectionName returns the section token kind for name, if any.
func LookupSectionName(name string) (Kind, bool) {
	k, ok := sectionNameKind[name]
	return k, ok
}

var keywordKind = map[string]Kind{
	"if":     If,
	"elseif": ElseIf,
	"else":   Else,
	"endif":  EndIf,
	"true":   True,
	"false":  False,
}

// LookupKeyword returns the keyword token kind for name, if any.
func LookupKeyword(name string) (Kind, bool) {
	k, ok := keywordKind[name]
	return k, ok
}

func isIn(set []string, name string) bool {
	for _, s := range set {
		if s == name {
			return true
		}
	}
	return false
}

// IsBuiltinVariable reports whether name is one of spec.md §6's builtin
// variables.
func IsBuiltinVariable(name string) bool {
	return isIn(BuiltinVariableNames, name)
}

// IsBuiltinFunction reports whether name is one of spec.md §6's builtin
// functions.
func IsBuiltinFunction(name string) bool {
	return isIn(BuiltinFunctionNames, name)
}
