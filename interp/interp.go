// Package interp implements the tree-walking evaluator, grounded on
// original_source/libs/Interpreter.cpp: a visitor carrying an evaluation
// stack of Complex values plus the shared symbol table, matching that
// file's m_result/back()/pop() discipline exactly (each visit mutates or
// reads the top-of-stack slot and also returns that slot's value, so the
// same single-result-per-node contract spec.md §4.4 describes holds).
package interp

import (
	"math"
	"math/rand"

	"github.com/launix-de/formula-compiler/ast"
	"github.com/launix-de/formula-compiler/complexnum"
	"github.com/launix-de/formula-compiler/registry"
	"github.com/launix-de/formula-compiler/symtab"
)

// Interpreter walks an AST, reading and writing a shared symbol table.
// Its Rand is evaluator-scoped (spec.md §9 "Global state": the original's
// srand mutates a process-wide PRNG; here each Interpreter owns one).
type Interpreter struct {
	Symbols *symtab.Table
	Rand    *rand.Rand

	stack   []complexnum.Complex
	lastErr error
}

// New constructs an Interpreter over symbols with a fresh PRNG seeded
// with 1.
func New(symbols *symtab.Table) *Interpreter {
	return &Interpreter{
		Symbols: symbols,
		Rand:    rand.New(rand.NewSource(1)),
		stack:   []complexnum.Complex{{}},
	}
}

func (in *Interpreter) top() complexnum.Complex {
	return in.stack[len(in.stack)-1]
}

func (in *Interpreter) setTop(v complexnum.Complex) {
	in.stack[len(in.stack)-1] = v
}

func (in *Interpreter) push() {
	in.stack = append(in.stack, complexnum.Complex{})
}

func (in *Interpreter) pop() complexnum.Complex {
	v := in.top()
	in.stack = in.stack[:len(in.stack)-1]
	return v
}

// Eval evaluates node and returns its value. node must not be nil:
// Eval calls node.Accept and panics on a nil node. Absent If arms are
// handled inside VisitIf, per spec.md §4.4's absent-block rules.
func (in *Interpreter) Eval(node ast.Node) (complexnum.Complex, error) {
	in.lastErr = nil
	result := node.Accept(in)
	if in.lastErr != nil {
		return complexnum.Zero, in.lastErr
	}
	return result.(complexnum.Complex), nil
}

// fail records a failure to surface out of the Visitor interface's
// any-returning methods (the double-dispatch contract has no error
// return; a single sticky field plays that role, matching the original's
// single-exception failure mode: "the interpreter raises at most one
// failure kind").
func (in *Interpreter) fail(err error) {
	if in.lastErr == nil {
		in.lastErr = err
	}
}

func (in *Interpreter) VisitLiteral(n *ast.Literal) any {
	in.setTop(n.Value)
	return in.top()
}

func (in *Interpreter) VisitIdentifier(n *ast.Identifier) any {
	in.setTop(in.Symbols.Get(n.Name))
	return in.top()
}

func (in *Interpreter) VisitUnaryOp(n *ast.UnaryOp) any {
	n.Operand.Accept(in)
	switch n.Op {
	case '+':
		// no-op
	case '-':
		in.setTop(in.top().Neg())
	case '|':
		in.setTop(in.top().AbsSquared())
	}
	return in.top()
}

func (in *Interpreter) VisitBinaryOp(n *ast.BinaryOp) any {
	switch n.Op {
	case ast.OpAnd, ast.OpOr:
		return in.visitShortCircuit(n)
	}

	n.Left.Accept(in)
	in.push()
	n.Right.Accept(in)
	right := in.pop()
	left := in.top()

	var result complexnum.Complex
	switch n.Op {
	case ast.OpAdd:
		result = left.Add(right)
	case ast.OpSub:
		result = left.Sub(right)
	case ast.OpMul:
		result = left.Mul(right)
	case ast.OpDiv:
		result = left.Div(right)
	case ast.OpPow:
		// Real-base, real-exponent; imaginary parts discarded (spec.md
		// §4.4, §9 Open Question: complex ^ is unreachable in either
		// evaluator).
		result = complexnum.New(math.Pow(left.Re, right.Re), 0)
	case ast.OpLess:
		result = complexnum.FromBool(left.Re < right.Re)
	case ast.OpLessEqual:
		result = complexnum.FromBool(left.Re <= right.Re)
	case ast.OpGreater:
		result = complexnum.FromBool(left.Re > right.Re)
	case ast.OpGreaterEqual:
		result = complexnum.FromBool(left.Re >= right.Re)
	case ast.OpEqual:
		result = complexnum.FromBool(left.Equal(right))
	case ast.OpNotEqual:
		result = complexnum.FromBool(!left.Equal(right))
	}
	in.setTop(result)
	return in.top()
}

// visitShortCircuit implements && and || with true short-circuiting: the
// right operand's side effects (e.g. an embedded assignment) must not
// happen when the left operand already decides the result — spec.md §8
// scenario 6 and the GLOSSARY's definition of "Short-circuit".
func (in *Interpreter) visitShortCircuit(n *ast.BinaryOp) any {
	n.Left.Accept(in)
	left := in.top()

	switch n.Op {
	case ast.OpAnd:
		if !left.Truthy() {
			in.setTop(complexnum.Zero)
			return in.top()
		}
	case ast.OpOr:
		if left.Truthy() {
			in.setTop(complexnum.One)
			return in.top()
		}
	}

	n.Right.Accept(in)
	in.setTop(complexnum.FromBool(in.top().Truthy()))
	return in.top()
}

func (in *Interpreter) VisitFunctionCall(n *ast.FunctionCall) any {
	n.Arg.Accept(in)
	result, err := registry.Evaluate(in.Rand, n.Name, in.top())
	if err != nil {
		in.fail(err)
		return in.top()
	}
	in.setTop(result)
	return in.top()
}

func (in *Interpreter) VisitAssignment(n *ast.Assignment) any {
	n.Value.Accept(in)
	in.Symbols.Set(n.Target, in.top())
	return in.top()
}

func (in *Interpreter) VisitStatementSeq(n *ast.StatementSeq) any {
	var last complexnum.Complex
	for _, stmt := range n.Statements {
		stmt.Accept(in)
		last = in.top()
	}
	in.setTop(last)
	return in.top()
}

func (in *Interpreter) VisitIf(n *ast.If) any {
	n.Cond.Accept(in)
	cond := in.top()
	if cond.Truthy() {
		if n.Then == nil {
			in.setTop(complexnum.One)
		} else {
			n.Then.Accept(in)
		}
	} else {
		if n.Else == nil {
			in.setTop(complexnum.Zero)
		} else {
			n.Else.Accept(in)
		}
	}
	return in.top()
}

// Settings and parameter blocks carry no runtime value for the
// interpreter — they are metadata consumed at compile/setup time, not
// evaluated per spec.md §4.4 (which defines no rule for them). Visiting
// one leaves the stack slot at its current value.
func (in *Interpreter) VisitSetting(n *ast.Setting) any    { return in.top() }
func (in *Interpreter) VisitParamBlock(n *ast.ParamBlock) any { return in.top() }
