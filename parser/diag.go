package parser

import "github.com/launix-de/formula-compiler/token"

// ErrorCode is the closed set of diagnostic kinds, transcribed from
// original_source/libs/include/formula/Parser.h's enum class ErrorCode
// (the authoritative catalogue; spec.md §7's list is "indicative, not
// exhaustive" and matches this one almost verbatim).
type ErrorCode int

const (
	None ErrorCode = iota
	InvalidToken
	ExpectedPrimary
	ExpectedEndif
	ExpectedStatementSeparator
	ExpectedComma
	ExpectedOpenParen
	ExpectedCloseParen
	ExpectedCloseModulus
	ExpectedIdentifier
	ExpectedAssignment
	ExpectedInteger
	ExpectedFloatingPoint
	ExpectedComplex
	ExpectedString
	ExpectedTerminator
	ExpectedStatement
	UnexpectedAssignment
	BuiltinVariableAssignment
	BuiltinFunctionAssignment
	InvalidSection
	InvalidSectionOrder
	DuplicateSection
	BuiltinSectionDisallowsOtherSections
	BuiltinSectionInvalidKey
	BuiltinSectionInvalidType
	DefaultSectionInvalidKey
	DefaultSectionInvalidMethod
	SwitchSectionInvalidKey
)

var errorNames = map[ErrorCode]string{
	None:                                  "none",
	InvalidToken:                          "invalid token",
	ExpectedPrimary:                       "expected primary expression",
	ExpectedEndif:                         "expected 'endif'",
	ExpectedStatementSeparator:            "expected statement separator",
	ExpectedComma:                         "expected ','",
	ExpectedOpenParen:                     "expected '('",
	ExpectedCloseParen:                    "expected ')'",
	ExpectedCloseModulus:                  "expected '|'",
	ExpectedIdentifier:                    "expected identifier",
	ExpectedAssignment:                    "expected '='",
	ExpectedInteger:                       "expected integer literal",
	ExpectedFloatingPoint:                 "expected floating point literal",
	ExpectedComplex:                       "expected complex literal",
	ExpectedString:                        "expected string literal",
	ExpectedTerminator:                    "expected end of line",
	ExpectedStatement:                     "expected statement",
	UnexpectedAssignment:                  "unexpected assignment",
	BuiltinVariableAssignment:             "assignment to builtin variable",
	BuiltinFunctionAssignment:             "assignment to builtin function name",
	InvalidSection:                        "invalid section",
	InvalidSectionOrder:                   "invalid section order",
	DuplicateSection:                      "duplicate section",
	BuiltinSectionDisallowsOtherSections:  "builtin section disallows other sections",
	BuiltinSectionInvalidKey:              "invalid key in builtin section",
	BuiltinSectionInvalidType:             "invalid type in builtin section",
	DefaultSectionInvalidKey:              "invalid key in default section",
	DefaultSectionInvalidMethod:           "invalid method in default section",
	SwitchSectionInvalidKey:               "invalid key in switch section",
}

func (e ErrorCode) String() string {
	if s, ok := errorNames[e]; ok {
		return s
	}
	return "unknown error"
}

// Diagnostic pairs an ErrorCode with the source location it was raised
// at (spec.md §3).
type Diagnostic struct {
	Code     ErrorCode
	Location token.SourceLocation
}
