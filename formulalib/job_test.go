package formulalib

import (
	"testing"

	"github.com/launix-de/formula-compiler/ast"
	"github.com/launix-de/formula-compiler/complexnum"
	"github.com/launix-de/formula-compiler/parser"
)

func TestCompileAllInterprets(t *testing.T) {
	entries := []FormulaEntry{
		{Name: "square", Body: "7*7:7*7"},
	}
	jobs := CompileAll(entries, parser.Options{RecognizeExtensions: true}, false)
	if len(jobs) != 1 {
		t.Fatalf("got %d jobs, want 1", len(jobs))
	}
	job := jobs[0]
	if job.Err != nil {
		t.Fatalf("job.Err = %v", job.Err)
	}
	if job.ID.String() == "" {
		t.Fatal("job.ID is zero")
	}

	got, err := job.Formula.Interpret(ast.SectionBailout)
	if err != nil {
		t.Fatal(err)
	}
	if got != complexnum.New(49, 0) {
		t.Fatalf("bailout = %v, want (49,0)", got)
	}
}

func TestCompileAllReportsParseErrors(t *testing.T) {
	entries := []FormulaEntry{{Name: "broken", Body: "1 +"}}
	jobs := CompileAll(entries, parser.Options{RecognizeExtensions: true}, false)
	if jobs[0].Err == nil {
		t.Fatal("expected a parse error")
	}
}
