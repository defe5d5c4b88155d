package parser

import (
	"testing"

	"github.com/launix-de/formula-compiler/ast"
	"github.com/launix-de/formula-compiler/complexnum"
	"github.com/launix-de/formula-compiler/interp"
	"github.com/launix-de/formula-compiler/symtab"
)

func parse(t *testing.T, src string, opts Options) *ast.FormulaSections {
	t.Helper()
	p := New(src, opts)
	fs := p.Parse()
	if !p.Ok() {
		t.Fatalf("parse %q: errors=%v", src, p.Errors())
	}
	return fs
}

func TestLegacyMandelbrotFormula(t *testing.T) {
	// spec.md §8 scenario 4: "z=pixel:z=z*z+pixel,|z|>4" splits into
	// Initialize/Iterate/Bailout via the legacy two-part grammar.
	fs := parse(t, "z=pixel:z=z*z+pixel,|z|>4", Options{RecognizeExtensions: true})

	if _, ok := fs.Initialize.(*ast.Assignment); !ok {
		t.Fatalf("Initialize = %T, want *ast.Assignment", fs.Initialize)
	}
	if _, ok := fs.Iterate.(*ast.Assignment); !ok {
		t.Fatalf("Iterate = %T, want *ast.Assignment", fs.Iterate)
	}
	bailout, ok := fs.Bailout.(*ast.BinaryOp)
	if !ok || bailout.Op != ast.OpGreater {
		t.Fatalf("Bailout = %+v, want BinaryOp(>)", fs.Bailout)
	}

	symbols := symtab.New()
	symbols.Set("pixel", complexnum.New(4.4, 0))
	in := interp.New(symbols)

	if _, err := in.Eval(fs.Initialize); err != nil {
		t.Fatal(err)
	}
	if got := symbols.Get("z"); got != complexnum.New(4.4, 0) {
		t.Fatalf("z after init = %v, want pixel", got)
	}

	for i := 0; i < 100; i++ {
		if _, err := in.Eval(fs.Iterate); err != nil {
			t.Fatal(err)
		}
		bail, err := in.Eval(fs.Bailout)
		if err != nil {
			t.Fatal(err)
		}
		if bail.Truthy() {
			return
		}
	}
	t.Fatalf("expected bailout within 100 iterations for pixel (4.4,0)")
}

func TestLegacyFormulaWithoutColonSplitsOneSequence(t *testing.T) {
	// No ':' at all: the whole sequence is split into Iterate/Bailout
	// directly, Initialize stays empty (descent.cpp's Descent::parse()).
	fs := parse(t, "z=z*z+pixel,|z|>4", Options{RecognizeExtensions: true})
	if fs.Initialize != nil {
		t.Fatalf("Initialize = %+v, want nil", fs.Initialize)
	}
	if _, ok := fs.Iterate.(*ast.Assignment); !ok {
		t.Fatalf("Iterate = %T, want *ast.Assignment", fs.Iterate)
	}
	if _, ok := fs.Bailout.(*ast.BinaryOp); !ok {
		t.Fatalf("Bailout = %T, want *ast.BinaryOp", fs.Bailout)
	}
}

func TestPowerLeftAssociativeParse(t *testing.T) {
	fs := parse(t, "z=2^3^2", Options{RecognizeExtensions: true})
	assign := fs.Bailout.(*ast.Assignment)
	outer := assign.Value.(*ast.BinaryOp)
	if outer.Op != ast.OpPow {
		t.Fatalf("outer op = %v, want ^", outer.Op)
	}
	inner, ok := outer.Left.(*ast.BinaryOp)
	if !ok || inner.Op != ast.OpPow {
		t.Fatalf("2^3^2 did not parse left-associatively: %+v", outer)
	}
}

func TestBuiltinFunctionCallVsBareIdentifier(t *testing.T) {
	fs := parse(t, "z=sin(pixel)+sin", Options{RecognizeExtensions: true})
	assign := fs.Bailout.(*ast.Assignment)
	sum := assign.Value.(*ast.BinaryOp)
	if sum.Op != ast.OpAdd {
		t.Fatalf("op = %v, want +", sum.Op)
	}
	call, ok := sum.Left.(*ast.FunctionCall)
	if !ok || call.Name != "sin" {
		t.Fatalf("left = %+v, want FunctionCall(sin)", sum.Left)
	}
	ident, ok := sum.Right.(*ast.Identifier)
	if !ok || ident.Name != "sin" {
		t.Fatalf("right = %+v, want Identifier(sin)", sum.Right)
	}
}

func TestComplexLiteralVsParenthesizedExpression(t *testing.T) {
	fs := parse(t, "z=(1,2)+(1+2)", Options{RecognizeExtensions: true})
	assign := fs.Bailout.(*ast.Assignment)
	sum := assign.Value.(*ast.BinaryOp)
	left, ok := sum.Left.(*ast.Literal)
	if !ok || left.Value != complexnum.New(1, 2) {
		t.Fatalf("left = %+v, want Literal(1,2)", sum.Left)
	}
	right, ok := sum.Right.(*ast.BinaryOp)
	if !ok || right.Op != ast.OpAdd {
		t.Fatalf("right = %+v, want BinaryOp(+) from grouping", sum.Right)
	}
}

func TestBuiltinAssignmentRejectedByDefault(t *testing.T) {
	p := New("pixel=1", Options{RecognizeExtensions: true})
	p.Parse()
	if p.Ok() {
		t.Fatalf("expected an error assigning to builtin variable pixel")
	}
	found := false
	for _, d := range p.Errors() {
		if d.Code == BuiltinVariableAssignment {
			found = true
		}
	}
	if !found {
		t.Fatalf("errors = %v, want BuiltinVariableAssignment", p.Errors())
	}
}

func TestBuiltinAssignmentAllowedAsWarning(t *testing.T) {
	p := New("pixel=1", Options{RecognizeExtensions: true, AllowBuiltinAssignment: true})
	p.Parse()
	if !p.Ok() {
		t.Fatalf("unexpected errors: %v", p.Errors())
	}
	if len(p.Warnings()) == 0 {
		t.Fatalf("expected a BuiltinVariableAssignment warning")
	}
}

func TestShortCircuitRightOperandNotAssignment(t *testing.T) {
	// "x=0 && (z=3)" parses as (x=0) && (z=3), since && binds more
	// loosely than assignment: a logical AND whose right operand is
	// itself a parenthesized assignment (the interpreter decides whether
	// to evaluate it; the parser must not reject it).
	fs := parse(t, "x=0 && (z=3)", Options{RecognizeExtensions: true})
	and, ok := fs.Bailout.(*ast.BinaryOp)
	if !ok || and.Op != ast.OpAnd {
		t.Fatalf("bailout = %+v, want BinaryOp(&&)", fs.Bailout)
	}
	if _, ok := and.Left.(*ast.Assignment); !ok {
		t.Fatalf("left = %+v, want *ast.Assignment", and.Left)
	}
	if _, ok := and.Right.(*ast.Assignment); !ok {
		t.Fatalf("right = %+v, want *ast.Assignment", and.Right)
	}
}

func TestIfElseIfEndifStatement(t *testing.T) {
	fs := parse(t, "if(x>0) y=1 elseif(x<0) y=-1 else y=0 endif", Options{RecognizeExtensions: true})
	ifNode, ok := fs.Bailout.(*ast.If)
	if !ok {
		t.Fatalf("top = %T, want *ast.If", fs.Bailout)
	}
	elseIf, ok := ifNode.Else.(*ast.If)
	if !ok {
		t.Fatalf("else branch = %T, want nested *ast.If", ifNode.Else)
	}
	if _, ok := elseIf.Else.(*ast.Assignment); !ok {
		t.Fatalf("final else = %T, want *ast.Assignment", elseIf.Else)
	}
}

func TestSectionisedFormula(t *testing.T) {
	src := "init:\nz=pixel\nloop:\nz=z*z+pixel\nbailout:\n|z|>4\n"
	fs := parse(t, src, Options{RecognizeExtensions: true})
	if _, ok := fs.Initialize.(*ast.Assignment); !ok {
		t.Fatalf("Initialize = %T, want *ast.Assignment", fs.Initialize)
	}
	if _, ok := fs.Iterate.(*ast.Assignment); !ok {
		t.Fatalf("Iterate = %T, want *ast.Assignment", fs.Iterate)
	}
	if _, ok := fs.Bailout.(*ast.BinaryOp); !ok {
		t.Fatalf("Bailout = %T, want *ast.BinaryOp", fs.Bailout)
	}
}

func TestSectionOrderViolationIsReported(t *testing.T) {
	src := "loop:\nz=z*z+pixel\ninit:\nz=pixel\n"
	p := New(src, Options{RecognizeExtensions: true})
	p.Parse()
	if p.Ok() {
		t.Fatalf("expected InvalidSectionOrder error")
	}
	found := false
	for _, d := range p.Errors() {
		if d.Code == InvalidSectionOrder {
			found = true
		}
	}
	if !found {
		t.Fatalf("errors = %v, want InvalidSectionOrder", p.Errors())
	}
}

func TestDuplicateSectionIsReported(t *testing.T) {
	src := "init:\nz=pixel\ninit:\nz=0\n"
	p := New(src, Options{RecognizeExtensions: true})
	p.Parse()
	if p.Ok() {
		t.Fatalf("expected DuplicateSection error")
	}
	found := false
	for _, d := range p.Errors() {
		if d.Code == DuplicateSection {
			found = true
		}
	}
	if !found {
		t.Fatalf("errors = %v, want DuplicateSection", p.Errors())
	}
}

func TestBuiltinSectionExcludesPhaseSections(t *testing.T) {
	src := "builtin:\ntype=1\ninit:\nz=pixel\n"
	p := New(src, Options{RecognizeExtensions: true})
	p.Parse()
	if p.Ok() {
		t.Fatalf("expected BuiltinSectionDisallowsOtherSections error")
	}
}

func TestDefaultSectionSettingsAndParamBlock(t *testing.T) {
	// The "default" entry key here exercises the same spelling as the
	// SectDefault section-header token, which paramBlock() must still
	// accept as an ordinary key inside an already-open param block.
	src := "loop:\nz=z*z+pixel\ndefault:\nmethod=multipass\nfloat param power\ncaption: \"Power\"\nmin: 0\ndefault: 1\nendparam\n"
	fs := parse(t, src, Options{RecognizeExtensions: true})
	defaults, ok := fs.Defaults.(*ast.StatementSeq)
	if !ok {
		t.Fatalf("Defaults = %T, want *ast.StatementSeq", fs.Defaults)
	}
	if len(defaults.Statements) != 2 {
		t.Fatalf("Defaults has %d statements, want 2", len(defaults.Statements))
	}
	setting, ok := defaults.Statements[0].(*ast.Setting)
	if !ok || setting.Key != "method" || setting.Value.Enum != "multipass" {
		t.Fatalf("first default = %+v", defaults.Statements[0])
	}
	block, ok := defaults.Statements[1].(*ast.ParamBlock)
	if !ok || block.Type != ast.ParamFloat || block.Name != "power" {
		t.Fatalf("second default = %+v", defaults.Statements[1])
	}
	if len(block.Entries) != 3 || block.Entries[0].Key != "caption" || block.Entries[1].Key != "min" || block.Entries[2].Key != "default" {
		t.Fatalf("param block entries = %+v", block.Entries)
	}
}

func TestSwitchSectionBuiltinParamReference(t *testing.T) {
	src := "loop:\nz=z*z+pixel\nswitch:\nmaintype=pixel\n"
	fs := parse(t, src, Options{RecognizeExtensions: true})
	setting, ok := fs.TypeSwitch.(*ast.Setting)
	if !ok || setting.Key != "maintype" {
		t.Fatalf("TypeSwitch = %+v", fs.TypeSwitch)
	}
	if !setting.Value.SwitchParam || setting.Value.Enum != "pixel" {
		t.Fatalf("switch value = %+v, want SwitchParam reference to pixel", setting.Value)
	}
}

func TestUnknownTokenReportsExpectedPrimary(t *testing.T) {
	p := New("z=&", Options{RecognizeExtensions: true})
	p.Parse()
	if p.Ok() {
		t.Fatalf("expected a parse error for a bare '&'")
	}
	if errs := p.Errors(); errs[0].Code != ExpectedPrimary {
		t.Fatalf("errors = %v, want ExpectedPrimary first", errs)
	}
}
