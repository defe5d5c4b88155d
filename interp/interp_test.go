package interp

import (
	"testing"

	"github.com/launix-de/formula-compiler/ast"
	"github.com/launix-de/formula-compiler/complexnum"
	"github.com/launix-de/formula-compiler/symtab"
)

func num(re float64) ast.Node { return ast.NewNumber(re) }

func TestPowerLeftAssociative(t *testing.T) {
	// 2^3^2 parses as (2^3)^2 = 8^2 = 64 (left-associative, spec.md §8.1).
	// The interpreter itself doesn't parse; it just evaluates the tree
	// the way a left-associative parse would build it.
	expr := &ast.BinaryOp{
		Op:    ast.OpPow,
		Left:  &ast.BinaryOp{Op: ast.OpPow, Left: num(2), Right: num(3)},
		Right: num(2),
	}
	in := New(symtab.New())
	got, err := in.Eval(expr)
	if err != nil {
		t.Fatal(err)
	}
	if got != complexnum.New(64, 0) {
		t.Fatalf("2^3^2 = %v, want (64,0)", got)
	}
}

func TestComplexMultiplyScenario(t *testing.T) {
	// Scenario 2's (1+flip(1))^2, written as sum*sum (see DESIGN.md's
	// scenario-2 note). FunctionCall evaluates the arg (1,0) and calls
	// flip's Complex overload, since registry.Evaluate prefers Complex:
	// flip(1) = (0,1), so sum = (1,1) and sum*sum = (0,2).
	one := num(1)
	flipCall := &ast.FunctionCall{Name: "flip", Arg: num(1)}
	sum := &ast.BinaryOp{Op: ast.OpAdd, Left: one, Right: flipCall}
	expr := &ast.BinaryOp{Op: ast.OpMul, Left: sum, Right: sum}

	in := New(symtab.New())
	got, err := in.Eval(expr)
	if err != nil {
		t.Fatal(err)
	}
	if got != complexnum.New(0, 2) {
		t.Fatalf("(1+flip(1))*(1+flip(1)) = %v, want (0,2)", got)
	}
}

func TestModulusScenario(t *testing.T) {
	// |-3.0 + flip(-2)| -> -3 + flip(-2). flip(-2) complex overload on
	// (-2,0) swaps to (0,-2). Sum = (-3,-2). |z| = re^2+im^2 = 9+4=13.
	neg3 := &ast.UnaryOp{Op: '-', Operand: num(3)}
	flipCall := &ast.FunctionCall{Name: "flip", Arg: num(-2)}
	sum := &ast.BinaryOp{Op: ast.OpAdd, Left: neg3, Right: flipCall}
	expr := &ast.UnaryOp{Op: '|', Operand: sum}

	in := New(symtab.New())
	got, err := in.Eval(expr)
	if err != nil {
		t.Fatal(err)
	}
	if got != complexnum.New(13, 0) {
		t.Fatalf("|-3+flip(-2)| = %v, want (13,0)", got)
	}
}

func TestIfElseIfChain(t *testing.T) {
	// if(0) z=1 elseif(0) z=3 elseif(1) z=4 else z=5 endif, z starts (0,0)
	// -> result (4,0), z=(4,0).
	symbols := symtab.New()
	symbols.Set("z", complexnum.Zero)

	tree := &ast.If{
		Cond: num(0),
		Then: &ast.Assignment{Target: "z", Value: num(1)},
		Else: &ast.If{
			Cond: num(0),
			Then: &ast.Assignment{Target: "z", Value: num(3)},
			Else: &ast.If{
				Cond: num(1),
				Then: &ast.Assignment{Target: "z", Value: num(4)},
				Else: &ast.Assignment{Target: "z", Value: num(5)},
			},
		},
	}

	in := New(symbols)
	got, err := in.Eval(tree)
	if err != nil {
		t.Fatal(err)
	}
	if got != complexnum.New(4, 0) {
		t.Fatalf("if-chain result = %v, want (4,0)", got)
	}
	if symbols.Get("z") != complexnum.New(4, 0) {
		t.Fatalf("z = %v, want (4,0)", symbols.Get("z"))
	}
}

func TestShortCircuitAndPreservesAssignment(t *testing.T) {
	// 0 && (z=3) -> result (0,0), z remains (0,0): right operand's
	// assignment must never execute.
	symbols := symtab.New()
	symbols.Set("z", complexnum.Zero)

	expr := &ast.BinaryOp{
		Op:    ast.OpAnd,
		Left:  num(0),
		Right: &ast.Assignment{Target: "z", Value: num(3)},
	}
	in := New(symbols)
	got, err := in.Eval(expr)
	if err != nil {
		t.Fatal(err)
	}
	if got != complexnum.Zero {
		t.Fatalf("0 && (z=3) = %v, want (0,0)", got)
	}
	if symbols.Get("z") != complexnum.Zero {
		t.Fatalf("z = %v, want untouched (0,0)", symbols.Get("z"))
	}
}

func TestDivScenario(t *testing.T) {
	// (1+flip(1))/(2+flip(2)) -> 0.5
	mk := func(re float64) ast.Node {
		return &ast.BinaryOp{Op: ast.OpAdd, Left: num(re), Right: &ast.FunctionCall{Name: "flip", Arg: num(re)}}
	}
	expr := &ast.BinaryOp{Op: ast.OpDiv, Left: mk(1), Right: mk(2)}
	in := New(symtab.New())
	got, err := in.Eval(expr)
	if err != nil {
		t.Fatal(err)
	}
	if got != complexnum.New(0.5, 0) {
		t.Fatalf("div scenario = %v, want (0.5,0)", got)
	}
}

func TestUnknownIdentifierReadsZero(t *testing.T) {
	in := New(symtab.New())
	got, err := in.Eval(&ast.Identifier{Name: "nope"})
	if err != nil {
		t.Fatal(err)
	}
	if got != complexnum.Zero {
		t.Fatalf("unknown identifier = %v, want (0,0)", got)
	}
}

func TestUnknownFunctionFails(t *testing.T) {
	in := New(symtab.New())
	_, err := in.Eval(&ast.FunctionCall{Name: "nope", Arg: num(1)})
	if err == nil {
		t.Fatal("expected error for unknown function")
	}
}

func TestStatementSeqLastWins(t *testing.T) {
	seq := &ast.StatementSeq{Statements: []ast.Node{num(1), num(2), num(3)}}
	in := New(symtab.New())
	got, err := in.Eval(seq)
	if err != nil {
		t.Fatal(err)
	}
	if got != complexnum.New(3, 0) {
		t.Fatalf("seq result = %v, want (3,0)", got)
	}
}
