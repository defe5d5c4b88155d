package formula

import (
	"testing"

	"github.com/launix-de/formula-compiler/ast"
	"github.com/launix-de/formula-compiler/complexnum"
)

func num(re float64) ast.Node { return ast.NewNumber(re) }

// TestInterpretIterationScenario runs spec.md §8 scenario 4's
// z=pixel:z=z*z+pixel,|z|>4 sequence — Initialize then two Iterate
// calls then Bailout — entirely through the interpreter path (Formula's
// tree-walking side, not jit.Runtime.Run), checking that state set by
// Initialize survives across separate Interpret calls and that Bailout
// observes the value Iterate last wrote.
func TestInterpretIterationScenario(t *testing.T) {
	pixel := complexnum.New(0.1, 0.2)

	sections := &ast.FormulaSections{}
	sections.Set(ast.SectionInitialize, &ast.Assignment{Target: "z", Value: &ast.Identifier{Name: "pixel"}})
	sections.Set(ast.SectionIterate, &ast.Assignment{
		Target: "z",
		Value: &ast.BinaryOp{
			Op:    ast.OpAdd,
			Left:  &ast.BinaryOp{Op: ast.OpMul, Left: &ast.Identifier{Name: "z"}, Right: &ast.Identifier{Name: "z"}},
			Right: &ast.Identifier{Name: "pixel"},
		},
	})
	sections.Set(ast.SectionBailout, &ast.BinaryOp{
		Op:    ast.OpGreater,
		Left:  &ast.UnaryOp{Op: '|', Operand: &ast.Identifier{Name: "z"}},
		Right: num(4),
	})

	f := New(sections)
	f.SetValue("pixel", pixel)

	if _, err := f.Interpret(ast.SectionInitialize); err != nil {
		t.Fatalf("Interpret(Initialize): %v", err)
	}
	if got := f.GetValue("z"); got != pixel {
		t.Fatalf("z after Initialize = %v, want %v", got, pixel)
	}

	for i := 0; i < 2; i++ {
		if _, err := f.Interpret(ast.SectionIterate); err != nil {
			t.Fatalf("Interpret(Iterate) #%d: %v", i, err)
		}
	}

	want := pixel.Mul(pixel).Add(pixel)
	want = want.Mul(want).Add(pixel)
	if got := f.GetValue("z"); got != want {
		t.Fatalf("z after two Iterate calls = %v, want %v", got, want)
	}

	bail, err := f.Interpret(ast.SectionBailout)
	if err != nil {
		t.Fatalf("Interpret(Bailout): %v", err)
	}
	if bail != complexnum.FromBool(want.AbsSquared().Re > 4) {
		t.Fatalf("bailout result = %v, want %v for z=%v", bail, complexnum.FromBool(want.AbsSquared().Re > 4), want)
	}
	if f.GetValue("_result") != bail {
		t.Fatalf("_result = %v, want %v", f.GetValue("_result"), bail)
	}
}

func TestInterpretMissingSection(t *testing.T) {
	f := New(&ast.FormulaSections{})
	if _, err := f.Interpret(ast.SectionIterate); err != ErrSectionAbsent {
		t.Fatalf("Interpret on absent section = %v, want ErrSectionAbsent", err)
	}
}

func TestRunBeforeCompile(t *testing.T) {
	f := New(&ast.FormulaSections{})
	if _, err := f.Run(ast.SectionBailout); err != ErrNotCompiled {
		t.Fatalf("Run before Compile = %v, want ErrNotCompiled", err)
	}
}

func TestLegacyPartView(t *testing.T) {
	sections := &ast.FormulaSections{}
	sections.Set(ast.SectionBailout, num(7))
	l := NewLegacy(sections)
	got, err := l.Interpret(Bailout)
	if err != nil {
		t.Fatal(err)
	}
	if got != complexnum.New(7, 0) {
		t.Fatalf("legacy bailout = %v, want (7,0)", got)
	}
}
