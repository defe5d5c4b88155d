package formulalib

import "testing"

func TestLibraryByPrefix(t *testing.T) {
	lib := NewLibrary()
	lib.AddAll([]FormulaEntry{
		{Name: "mandelbrot"},
		{Name: "mandelbrot-burning-ship"},
		{Name: "julia"},
	})

	got := lib.ByPrefix("mandelbrot")
	if len(got) != 2 {
		t.Fatalf("ByPrefix(mandelbrot) = %d entries, want 2: %+v", len(got), got)
	}
	if got[0].Name != "mandelbrot" || got[1].Name != "mandelbrot-burning-ship" {
		t.Fatalf("unexpected order: %+v", got)
	}

	if _, ok := lib.Lookup("julia"); !ok {
		t.Fatal("Lookup(julia) not found")
	}
	if _, ok := lib.Lookup("nope"); ok {
		t.Fatal("Lookup(nope) unexpectedly found")
	}
	if lib.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", lib.Len())
	}
}
