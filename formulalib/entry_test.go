package formulalib

import (
	"strings"
	"testing"
)

const sampleLibrary = `mandelbrot[default](complex){
z=pixel:z=z*z+pixel,|z|>4
}
comment{
this whole block is skipped
}
julia(0.1){
z=pixel:z=z*z+c,|z|>4
}
`

func TestLoadEntries(t *testing.T) {
	entries, err := LoadEntries(strings.NewReader(sampleLibrary))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2: %+v", len(entries), entries)
	}

	mb := entries[0]
	if mb.Name != "mandelbrot" {
		t.Fatalf("name = %q, want mandelbrot", mb.Name)
	}
	if mb.BracketValue != "default" {
		t.Fatalf("bracket = %q, want default", mb.BracketValue)
	}
	if mb.ParenValue != "complex" {
		t.Fatalf("paren = %q, want complex", mb.ParenValue)
	}
	if !strings.Contains(mb.Body, "z=pixel:z=z*z+pixel,|z|>4") {
		t.Fatalf("body = %q, missing formula text", mb.Body)
	}

	julia := entries[1]
	if julia.Name != "julia" || julia.ParenValue != "0.1" || julia.BracketValue != "" {
		t.Fatalf("julia entry = %+v", julia)
	}
}

func TestLoadEntriesSkipsUnclosedEntry(t *testing.T) {
	const unclosed = "broken{\nno closing brace here\n"
	entries, err := LoadEntries(strings.NewReader(unclosed))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("got %d entries for an unclosed block, want 0", len(entries))
	}
}
