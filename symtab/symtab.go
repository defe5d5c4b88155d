// Package symtab implements the symbol table shared by the interpreter
// and the JIT: a mapping from identifier name to Complex, preseeded with
// the constants spec.md §3 names and the JIT's well-known write-back
// slot "_result".
package symtab

import (
	"math"

	"github.com/launix-de/formula-compiler/complexnum"
)

// ResultKey is the JIT's well-known write-back slot name.
const ResultKey = "_result"

// Table is a mutable identifier -> Complex mapping. The zero value is not
// usable; construct with New.
type Table struct {
	values map[string]complexnum.Complex
}

// New returns a Table preseeded with e, pi, and _result per spec.md §3.
func New() *Table {
	t := &Table{values: make(map[string]complexnum.Complex)}
	t.values["e"] = complexnum.New(math.Exp(1), 0)
	t.values["pi"] = complexnum.New(math.Atan2(0, -1), 0)
	t.values[ResultKey] = complexnum.Zero
	return t
}

// Get returns the value bound to name, or (0,0) if name is unbound.
// Unknown identifiers evaluating to (0,0) is spec.md §4.4's documented
// behaviour, so Get never reports "not found" to its caller.
func (t *Table) Get(name string) complexnum.Complex {
	return t.values[name]
}

// Set binds name to value.
func (t *Table) Set(name string, value complexnum.Complex) {
	t.values[name] = value
}

// Has reports whether name has an explicit binding, unlike Get, which
// returns (0,0) for a missing name.
func (t *Table) Has(name string) bool {
	_, ok := t.values[name]
	return ok
}

// Names returns every bound identifier name, in unspecified order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.values))
	for k := range t.values {
		names = append(names, k)
	}
	return names
}
