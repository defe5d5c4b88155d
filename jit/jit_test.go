//go:build amd64

package jit

import (
	"testing"

	"github.com/launix-de/formula-compiler/ast"
	"github.com/launix-de/formula-compiler/complexnum"
	"github.com/launix-de/formula-compiler/symtab"
)

func num(re float64) ast.Node { return ast.NewNumber(re) }

func runBailout(t *testing.T, expr ast.Node, table *symtab.Table) complexnum.Complex {
	t.Helper()
	fs := &ast.FormulaSections{}
	fs.Set(ast.SectionBailout, expr)
	prog, err := Compile(fs, table, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	rt, err := Load(prog, table)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer rt.Release()
	got, err := rt.Run(ast.SectionBailout, table)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return got
}

// TestComplexMultiplyScenario mirrors interp_test.go's scenario of the
// same name: (1+flip(1))*(1+flip(1)) = (1+i)^2 = 2i. The "^2" spelling
// from spec.md §8 scenario 2 is deliberately not used here since
// BinaryOp ^ discards imaginary parts in both evaluators (spec.md §4.5,
// §9); see DESIGN.md's note on that scenario's literal wording.
func TestComplexMultiplyScenario(t *testing.T) {
	sum := &ast.BinaryOp{Op: ast.OpAdd, Left: num(1), Right: &ast.FunctionCall{Name: "flip", Arg: num(1)}}
	expr := &ast.BinaryOp{Op: ast.OpMul, Left: sum, Right: sum}
	got := runBailout(t, expr, symtab.New())
	if got != complexnum.New(0, 2) {
		t.Fatalf("(1+flip(1))*(1+flip(1)) = %v, want (0,2)", got)
	}
}

func TestDivScenario(t *testing.T) {
	mk := func(re float64) ast.Node {
		return &ast.BinaryOp{Op: ast.OpAdd, Left: num(re), Right: &ast.FunctionCall{Name: "flip", Arg: num(re)}}
	}
	expr := &ast.BinaryOp{Op: ast.OpDiv, Left: mk(1), Right: mk(2)}
	got := runBailout(t, expr, symtab.New())
	if got != complexnum.New(0.5, 0) {
		t.Fatalf("div scenario = %v, want (0.5,0)", got)
	}
}

func TestModulusScenario(t *testing.T) {
	// |-3.0 + flip(-2)| -> -3 + flip(-2) = (-3,-2); |.| = re^2+im^2 = 13.
	expr := &ast.UnaryOp{
		Op: '|',
		Operand: &ast.BinaryOp{
			Op:    ast.OpAdd,
			Left:  &ast.UnaryOp{Op: '-', Operand: num(3)},
			Right: &ast.FunctionCall{Name: "flip", Arg: &ast.UnaryOp{Op: '-', Operand: num(2)}},
		},
	}
	got := runBailout(t, expr, symtab.New())
	if got != complexnum.New(13, 0) {
		t.Fatalf("modulus scenario = %v, want (13,0)", got)
	}
}

func TestPowIsRealOnly(t *testing.T) {
	// spec.md §4.5: BinaryOp ^ always uses the real lanes only, exercising
	// the one CALL this back-end emits.
	expr := &ast.BinaryOp{Op: ast.OpPow, Left: num(2), Right: num(10)}
	got := runBailout(t, expr, symtab.New())
	if got != complexnum.New(1024, 0) {
		t.Fatalf("2^10 = %v, want (1024,0)", got)
	}
}

func TestPowSurvivesLiveSiblingRegisters(t *testing.T) {
	// a + (b^c) forces compilePow's register-file spill/restore path: the
	// register holding `a` must still be correct after the CALL returns.
	expr := &ast.BinaryOp{
		Op:   ast.OpAdd,
		Left: num(100),
		Right: &ast.BinaryOp{
			Op:    ast.OpPow,
			Left:  num(2),
			Right: num(3),
		},
	}
	got := runBailout(t, expr, symtab.New())
	if got != complexnum.New(108, 0) {
		t.Fatalf("100+2^3 = %v, want (108,0)", got)
	}
}

func TestShortCircuitPreservesSymbol(t *testing.T) {
	table := symtab.New()
	expr := &ast.BinaryOp{
		Op:   ast.OpAnd,
		Left: num(0),
		Right: &ast.Assignment{
			Target: "z",
			Value:  num(3),
		},
	}
	got := runBailout(t, expr, table)
	if got != complexnum.Zero {
		t.Fatalf("0 && (z=3) = %v, want (0,0)", got)
	}
	if table.Get("z") != complexnum.Zero {
		t.Fatalf("z = %v, want untouched (0,0)", table.Get("z"))
	}
}

func TestOrShortCircuitSkipsRight(t *testing.T) {
	table := symtab.New()
	expr := &ast.BinaryOp{
		Op:   ast.OpOr,
		Left: num(1),
		Right: &ast.Assignment{
			Target: "z",
			Value:  num(3),
		},
	}
	got := runBailout(t, expr, table)
	if got != complexnum.New(1, 0) {
		t.Fatalf("1 || (z=3) = %v, want (1,0)", got)
	}
	if table.Get("z") != complexnum.Zero {
		t.Fatalf("z = %v, want untouched (0,0)", table.Get("z"))
	}
}

func TestIfElseBranches(t *testing.T) {
	cases := []struct {
		cond ast.Node
		want complexnum.Complex
	}{
		{num(1), complexnum.New(4, 0)},
		{num(0), complexnum.New(5, 0)},
	}
	for _, c := range cases {
		expr := &ast.If{Cond: c.cond, Then: num(4), Else: num(5)}
		got := runBailout(t, expr, symtab.New())
		if got != c.want {
			t.Fatalf("if(%v) = %v, want %v", c.cond, got, c.want)
		}
	}
}

func TestIfEmptyArmsSynthesizeBooleans(t *testing.T) {
	thenOnly := &ast.If{Cond: num(0), Then: num(4)}
	if got := runBailout(t, thenOnly, symtab.New()); got != complexnum.Zero {
		t.Fatalf("if(0) with no else = %v, want (0,0)", got)
	}
	elseOnly := &ast.If{Cond: num(1), Else: num(4)}
	if got := runBailout(t, elseOnly, symtab.New()); got != complexnum.One {
		t.Fatalf("if(1) with no then = %v, want (1,0)", got)
	}
}

func TestRelationalOperators(t *testing.T) {
	lt := &ast.BinaryOp{Op: ast.OpLess, Left: num(1), Right: num(2)}
	if got := runBailout(t, lt, symtab.New()); got != complexnum.One {
		t.Fatalf("1<2 = %v, want (1,0)", got)
	}
	gt := &ast.BinaryOp{Op: ast.OpGreater, Left: num(1), Right: num(2)}
	if got := runBailout(t, gt, symtab.New()); got != complexnum.Zero {
		t.Fatalf("1>2 = %v, want (0,0)", got)
	}
}

func TestUnsupportedBuiltinRejected(t *testing.T) {
	expr := &ast.FunctionCall{Name: "sin", Arg: num(1)}
	fs := &ast.FormulaSections{}
	fs.Set(ast.SectionBailout, expr)
	_, err := Compile(fs, symtab.New(), Options{})
	ce, ok := err.(*CompileError)
	if !ok || ce.Kind != ErrUnsupportedBuiltin {
		t.Fatalf("Compile error = %v, want *CompileError{Kind: ErrUnsupportedBuiltin}", err)
	}
}

func TestRegisterPressureRejected(t *testing.T) {
	// A deep right-nested chain of additions keeps one register live per
	// pending ancestor; past the 14-register working set this must fail
	// cleanly rather than corrupt state (spec.md §4.5 "Failure semantics").
	expr := num(0)
	for i := 0; i < 20; i++ {
		expr = &ast.BinaryOp{Op: ast.OpAdd, Left: num(1), Right: expr}
	}
	fs := &ast.FormulaSections{}
	fs.Set(ast.SectionBailout, expr)
	_, err := Compile(fs, symtab.New(), Options{})
	ce, ok := err.(*CompileError)
	if !ok || ce.Kind != ErrRegisterPressure {
		t.Fatalf("Compile error = %v, want *CompileError{Kind: ErrRegisterPressure}", err)
	}
}

func TestWriteBackToSymbolTable(t *testing.T) {
	table := symtab.New()
	expr := &ast.Assignment{Target: "z", Value: num(7)}
	got := runBailout(t, expr, table)
	if got != complexnum.New(7, 0) {
		t.Fatalf("z=7 = %v, want (7,0)", got)
	}
	if table.Get("z") != complexnum.New(7, 0) {
		t.Fatalf("table[z] = %v, want (7,0)", table.Get("z"))
	}
	if table.Get(symtab.ResultKey) != complexnum.New(7, 0) {
		t.Fatalf("table[_result] = %v, want (7,0)", table.Get(symtab.ResultKey))
	}
}
