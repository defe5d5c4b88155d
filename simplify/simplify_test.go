package simplify

import (
	"testing"

	"github.com/launix-de/formula-compiler/ast"
	"github.com/launix-de/formula-compiler/complexnum"
)

func num(re float64) ast.Node { return ast.NewNumber(re) }

func TestFoldsArithmeticLiterals(t *testing.T) {
	expr := &ast.BinaryOp{Op: ast.OpAdd, Left: num(1), Right: num(2)}
	got := Node(expr)
	lit, ok := got.(*ast.Literal)
	if !ok {
		t.Fatalf("expected *ast.Literal, got %T", got)
	}
	if lit.Value != complexnum.New(3, 0) {
		t.Fatalf("folded = %v, want (3,0)", lit.Value)
	}
}

func TestDoesNotFoldRelational(t *testing.T) {
	expr := &ast.BinaryOp{Op: ast.OpLess, Left: num(1), Right: num(2)}
	got := Node(expr)
	if _, ok := got.(*ast.Literal); ok {
		t.Fatalf("relational op should not be folded to a literal")
	}
}

func TestUnaryMinusOnLiteral(t *testing.T) {
	expr := &ast.UnaryOp{Op: '-', Operand: num(5)}
	got := Node(expr)
	lit, ok := got.(*ast.Literal)
	if !ok {
		t.Fatalf("expected *ast.Literal, got %T", got)
	}
	if lit.Value != complexnum.New(-5, 0) {
		t.Fatalf("folded = %v, want (-5,0)", lit.Value)
	}
}

func TestUnaryMinusRecursesFirst(t *testing.T) {
	// -(1+2): the operand must be simplified to a literal before the
	// unary minus can fold, unlike the original's buggy non-recursive
	// version.
	expr := &ast.UnaryOp{Op: '-', Operand: &ast.BinaryOp{Op: ast.OpAdd, Left: num(1), Right: num(2)}}
	got := Node(expr)
	lit, ok := got.(*ast.Literal)
	if !ok {
		t.Fatalf("expected *ast.Literal, got %T", got)
	}
	if lit.Value != complexnum.New(-3, 0) {
		t.Fatalf("folded = %v, want (-3,0)", lit.Value)
	}
}

func TestSingleStatementSeqUnwraps(t *testing.T) {
	seq := &ast.StatementSeq{Statements: []ast.Node{num(7)}}
	got := Node(seq)
	if _, ok := got.(*ast.StatementSeq); ok {
		t.Fatalf("single-statement sequence should unwrap")
	}
}

func TestConsecutiveLiteralsCollapse(t *testing.T) {
	ident := &ast.Identifier{Name: "z"}
	seq := &ast.StatementSeq{Statements: []ast.Node{num(1), num(2), ident, num(3), num(4)}}
	got := Node(seq).(*ast.StatementSeq)
	if len(got.Statements) != 3 {
		t.Fatalf("expected 3 statements after collapsing runs, got %d: %+v", len(got.Statements), got.Statements)
	}
	lastLit, ok := got.Statements[2].(*ast.Literal)
	if !ok || lastLit.Value != complexnum.New(4, 0) {
		t.Fatalf("last statement = %+v, want Literal(4,0)", got.Statements[2])
	}
}

func TestIdempotent(t *testing.T) {
	expr := &ast.BinaryOp{
		Op:   ast.OpMul,
		Left: &ast.BinaryOp{Op: ast.OpAdd, Left: num(1), Right: num(2)},
		Right: &ast.Identifier{Name: "z"},
	}
	once := Node(expr)
	twice := Node(once)
	lit1, ok1 := once.(*ast.BinaryOp).Left.(*ast.Literal)
	lit2, ok2 := twice.(*ast.BinaryOp).Left.(*ast.Literal)
	if !ok1 || !ok2 || lit1.Value != lit2.Value {
		t.Fatalf("simplify should be idempotent")
	}
}
