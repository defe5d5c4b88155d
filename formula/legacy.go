package formula

import (
	"github.com/launix-de/formula-compiler/ast"
	"github.com/launix-de/formula-compiler/complexnum"
)

// Part is the legacy three-part view of a formula
// (original_source/libs/include/formula/formula.h's simpler
// enum Part{INITIALIZE,ITERATE,BAILOUT}), kept as a convenience
// subset of the full nine-section Formula facade for callers that only
// ever deal with the classic init/iterate/bailout formula shape
// (spec.md §1's legacy grammar).
type Part int

const (
	Initialize Part = iota
	Iterate
	Bailout
)

func (p Part) section() ast.Section {
	switch p {
	case Initialize:
		return ast.SectionInitialize
	case Iterate:
		return ast.SectionIterate
	case Bailout:
		return ast.SectionBailout
	default:
		return ast.SectionNone
	}
}

// Legacy adapts a Formula to the three-part Part-indexed view.
type Legacy struct {
	*Formula
}

// NewLegacy wraps sections in the three-part convenience facade.
func NewLegacy(sections *ast.FormulaSections) Legacy {
	return Legacy{New(sections)}
}

// Interpret tree-walks the section named by p.
func (l Legacy) Interpret(p Part) (complexnum.Complex, error) {
	return l.Formula.Interpret(p.section())
}

// Run executes the compiled native code for the section named by p.
func (l Legacy) Run(p Part) (complexnum.Complex, error) {
	return l.Formula.Run(p.section())
}
