// Package ast defines the formula language's abstract syntax tree: a sum
// type of expression kinds, grounded on
// original_source/libs/include/formula/Node.h (older, simpler hierarchy)
// and original_source/libs/include/formula/NodeTyper.h (the fuller
// NodeType enum, which names Setting/ParamBlock/Literal variants the
// older Node.h lacks — spec.md §3 follows the fuller enum).
//
// The original uses C++ virtual double-dispatch (Visitor.visit(const
// XNode&) per kind). Go has no structural sum types, so each node
// implements Accept(Visitor) and the Visitor interface carries one method
// per node kind — the same "thin visit operation that reflects back into
// the visitor object" spec.md §9 asks for.
package ast

import "github.com/launix-de/formula-compiler/complexnum"

// Node is any AST expression. Nodes are immutable once built and may be
// shared between sections (a DAG, not strictly a tree) — spec.md §9
// "Reference-counted AST sharing"; Go's garbage collector plays the role
// the original's shared_ptr<Node> does, so no reference counting is
// implemented explicitly.
type Node interface {
	Accept(v Visitor) any
}

// Visitor is the double-dispatch contract the Interpreter and the
// Simplifier implement; the JIT compiler walks the tree with a type
// switch instead. A second, unimplemented backend
// (the original's GLSLEmitter, out of scope per spec.md §1) would add no
// new methods here — only a new struct satisfying this interface,
// confirming the visitor shape is backend-agnostic.
type Visitor interface {
	VisitLiteral(*Literal) any
	VisitIdentifier(*Identifier) any
	VisitUnaryOp(*UnaryOp) any
	VisitBinaryOp(*BinaryOp) any
	VisitFunctionCall(*FunctionCall) any
	VisitAssignment(*Assignment) any
	VisitIf(*If) any
	VisitStatementSeq(*StatementSeq) any
	VisitSetting(*Setting) any
	VisitParamBlock(*ParamBlock) any
}

// Literal is a constant complex value (spec.md's Literal(numeric|complex)
// — a bare number is represented as Complex{Re: n, Im: 0}).
type Literal struct {
	Value complexnum.Complex
}

func (n *Literal) Accept(v Visitor) any { return v.VisitLiteral(n) }

// NewNumber builds a Literal from a real-valued scalar.
func NewNumber(re float64) *Literal {
	return &Literal{Value: complexnum.New(re, 0)}
}

// Identifier references a symbol-table entry (a user variable or a
// builtin variable) by name.
type Identifier struct {
	Name string
}

func (n *Identifier) Accept(v Visitor) any { return v.VisitIdentifier(n) }

// UnaryOp applies a prefix operator: '+' (no-op), '-' (negate), or '|'
// (modulus, spec.md's |x| = re^2+im^2).
type UnaryOp struct {
	Op      byte // '+', '-', '|'
	Operand Node
}

func (n *UnaryOp) Accept(v Visitor) any { return v.VisitUnaryOp(n) }

// BinaryOpKind enumerates the infix operators. Kept as a string in the
// original (original_source/libs/include/formula/Node.h's BinaryOpNode
// stores the operator as std::string); a closed Go enum is more
// idiomatic and is what the parser already resolves to once it has
// classified a token.
type BinaryOpKind int

const (
	OpAdd BinaryOpKind = iota
	OpSub
	OpMul
	OpDiv
	OpPow
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpEqual
	OpNotEqual
	OpAnd
	OpOr
)

func (k BinaryOpKind) String() string {
	switch k {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpPow:
		return "^"
	case OpLess:
		return "<"
	case OpLessEqual:
		return "<="
	case OpGreater:
		return ">"
	case OpGreaterEqual:
		return ">="
	case OpEqual:
		return "=="
	case OpNotEqual:
		return "!="
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	default:
		return "?"
	}
}

// IsRelational reports whether the operator compares only the real parts
// of its operands (spec.md §4.4's interpreter rule for relational ops,
// as distinct from == and !=, which compare the full complex value).
func (k BinaryOpKind) IsRelational() bool {
	switch k {
	case OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		return true
	default:
		return false
	}
}

// BinaryOp applies an infix operator to two operands.
type BinaryOp struct {
	Op          BinaryOpKind
	Left, Right Node
}

func (n *BinaryOp) Accept(v Visitor) any { return v.VisitBinaryOp(n) }

// FunctionCall invokes a builtin function by name with a single argument
// (the language's builtin functions are all unary, spec.md §6).
type FunctionCall struct {
	Name string
	Arg  Node
}

func (n *FunctionCall) Accept(v Visitor) any { return v.VisitFunctionCall(n) }

// Assignment binds Target to the value of Value; its own value is also
// that result (so "a = b = 1" chains, spec.md §4.3).
type Assignment struct {
	Target string
	Value  Node
}

func (n *Assignment) Accept(v Visitor) any { return v.VisitAssignment(n) }

// If is a conditional with an optional then/else block. A nil Then
// yields (1,0) when reached with no block to run; a nil Else yields
// (0,0) — spec.md §4.4.
type If struct {
	Cond       Node
	Then, Else Node // either may be nil
}

func (n *If) Accept(v Visitor) any { return v.VisitIf(n) }

// StatementSeq evaluates its children in order; its value is the last
// child's value (spec.md §4.4).
type StatementSeq struct {
	Statements []Node
}

func (n *StatementSeq) Accept(v Visitor) any { return v.VisitStatementSeq(n) }

// SettingValue is the closed set of value shapes a default/switch section
// setting's right-hand side can take (original_source/libs/Parser.cpp's
// default_setting()/switch_section()).
type SettingValue struct {
	Kind        SettingValueKind
	Bool        bool
	Int         int64
	Number      float64
	Complex     complexnum.Complex
	Str         string
	Enum        string // unquoted identifier, for method/rating
	Expr        Node   // for perturb (bool expr) / precision (int expr)
	SwitchParam bool   // true if this came from switch_section's builtin-var/param form rather than a string
}

type SettingValueKind int

const (
	SettingBool SettingValueKind = iota
	SettingInt
	SettingNumber
	SettingComplex
	SettingString
	SettingEnum
	SettingExpr
)

// Setting is one "key = value" entry in a default or switch section
// (original_source/libs/include/formula/NodeTyper.h's SETTING NodeType).
type Setting struct {
	Key   string
	Value SettingValue
}

func (n *Setting) Accept(v Visitor) any { return v.VisitSetting(n) }

// ParamBlockType is the declared type of a default-section parameter
// block (spec.md §6).
type ParamBlockType int

const (
	ParamNone ParamBlockType = iota
	ParamBool
	ParamInt
	ParamFloat
	ParamComplex
	ParamColor
)

// ParamBlockEntry is one "key: value" line inside a [type] param ...
// endparam block (original_source/libs/Parser.cpp's
// default_param_block() body keys).
type ParamBlockEntry struct {
	Key   string
	Value SettingValue
}

// ParamBlock is a "[type] param NAME ... endparam" block.
type ParamBlock struct {
	Type    ParamBlockType
	Name    string
	Entries []ParamBlockEntry
}

func (n *ParamBlock) Accept(v Visitor) any { return v.VisitParamBlock(n) }

// FormulaSections holds the nine named top-level blocks of a formula
// (spec.md §3 "FormulaSections"). At most one of Builtin and
// {PerImage, Initialize, Iterate, Bailout} may be populated — enforced by
// the parser, not by this type.
type FormulaSections struct {
	PerImage         Node
	Builtin          Node
	Initialize       Node
	Iterate          Node
	Bailout          Node
	PerturbInit      Node
	PerturbIterate   Node
	Defaults         Node
	TypeSwitch       Node
}

// Section identifies one of the nine slots, matching
// original_source/libs/include/formula/Formula.h's enum class Section
// (the fuller, authoritative facade).
type Section int

const (
	SectionNone Section = iota
	SectionPerImage
	SectionBuiltin
	SectionInitialize
	SectionIterate
	SectionBailout
	SectionPerturbInitialize
	SectionPerturbIterate
	SectionDefault
	SectionSwitch
	sectionCount
)

// Get returns the Node stored in the named slot, or nil if that section
// is absent.
func (fs *FormulaSections) Get(s Section) Node {
	switch s {
	case SectionPerImage:
		return fs.PerImage
	case SectionBuiltin:
		return fs.Builtin
	case SectionInitialize:
		return fs.Initialize
	case SectionIterate:
		return fs.Iterate
	case SectionBailout:
		return fs.Bailout
	case SectionPerturbInitialize:
		return fs.PerturbInit
	case SectionPerturbIterate:
		return fs.PerturbIterate
	case SectionDefault:
		return fs.Defaults
	case SectionSwitch:
		return fs.TypeSwitch
	default:
		return nil
	}
}

// Set stores node in the named slot.
func (fs *FormulaSections) Set(s Section, node Node) {
	switch s {
	case SectionPerImage:
		fs.PerImage = node
	case SectionBuiltin:
		fs.Builtin = node
	case SectionInitialize:
		fs.Initialize = node
	case SectionIterate:
		fs.Iterate = node
	case SectionBailout:
		fs.Bailout = node
	case SectionPerturbInitialize:
		fs.PerturbInit = node
	case SectionPerturbIterate:
		fs.PerturbIterate = node
	case SectionDefault:
		fs.Defaults = node
	case SectionSwitch:
		fs.TypeSwitch = node
	}
}
