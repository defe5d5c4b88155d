// Package formula implements the Formula facade over a parsed
// FormulaSections tree, unifying the tree-walking interp.Interpreter and
// the native jit.Runtime behind one API. Grounded on
// original_source/libs/include/formula/Formula.h's 9-section
// enum-class-Section facade (SetValue, GetValue, GetSection, Interpret,
// Compile, Run) — SPEC_FULL.md's SUPPLEMENTED FEATURE #4.
package formula

import (
	"errors"

	"github.com/launix-de/formula-compiler/ast"
	"github.com/launix-de/formula-compiler/complexnum"
	"github.com/launix-de/formula-compiler/interp"
	"github.com/launix-de/formula-compiler/jit"
	"github.com/launix-de/formula-compiler/symtab"
)

// ErrNotCompiled is returned by Run before a successful Compile call.
var ErrNotCompiled = errors.New("formula: not compiled")

// ErrSectionAbsent is returned by Interpret/Run for a section with no
// body in the underlying FormulaSections.
var ErrSectionAbsent = errors.New("formula: section absent")

// Formula is a parsed formula plus the symbol table its sections read
// and write, offering both the tree-walking and native-code evaluation
// paths over the same FormulaSections and table (original_source/libs/
// include/formula/Formula.h: "one object, either evaluation strategy").
type Formula struct {
	sections *ast.FormulaSections
	symbols  *symtab.Table

	prog *jit.Program
	rt   *jit.Runtime
}

// New constructs a Formula over sections, with a freshly seeded symbol
// table (symtab.New's e/pi/_result preset).
func New(sections *ast.FormulaSections) *Formula {
	return &Formula{sections: sections, symbols: symtab.New()}
}

// SetValue binds name to value in the formula's symbol table, visible to
// both Interpret and a subsequent Compile/Run (original_source's
// Formula::setValue).
func (f *Formula) SetValue(name string, value complexnum.Complex) {
	f.symbols.Set(name, value)
}

// GetValue reads name from the formula's symbol table, (0,0) if unbound
// (original_source's Formula::getValue).
func (f *Formula) GetValue(name string) complexnum.Complex {
	return f.symbols.Get(name)
}

// GetSection returns the AST node stored at s, or nil if that section is
// absent (original_source's Formula::getSection).
func (f *Formula) GetSection(s ast.Section) ast.Node {
	return f.sections.Get(s)
}

// Interpret tree-walks section s against the formula's symbol table,
// writing back any assignments the section makes and recording the
// section's value under symtab.ResultKey, mirroring jit.Runtime.Run's
// write-back contract so both evaluation paths leave the same
// observable state in f.symbols.
func (f *Formula) Interpret(s ast.Section) (complexnum.Complex, error) {
	node := f.sections.Get(s)
	if node == nil {
		return complexnum.Zero, ErrSectionAbsent
	}
	in := interp.New(f.symbols)
	result, err := in.Eval(node)
	if err != nil {
		return complexnum.Zero, err
	}
	f.symbols.Set(symtab.ResultKey, result)
	return result, nil
}

// Compile native-compiles the formula's Initialize/Iterate/Bailout
// sections and loads them into a fresh jit.Runtime seeded from the
// current symbol table; once the new Runtime is loaded, any previously
// loaded Runtime is released and replaced (original_source's
// Formula::compile).
func (f *Formula) Compile() error {
	prog, err := jit.Compile(f.sections, f.symbols, jit.Options{})
	if err != nil {
		return err
	}
	rt, err := jit.Load(prog, f.symbols)
	if err != nil {
		return err
	}
	if f.rt != nil {
		f.rt.Release()
	}
	f.prog, f.rt = prog, rt
	return nil
}

// Run executes the compiled native code for s (one of SectionInitialize,
// SectionIterate, SectionBailout — the only sections the JIT compiles),
// writing results back to the symbol table (original_source's
// Formula::run). Compile must have succeeded first.
func (f *Formula) Run(s ast.Section) (complexnum.Complex, error) {
	if f.rt == nil {
		return complexnum.Zero, ErrNotCompiled
	}
	return f.rt.Run(s, f.symbols)
}

// Release frees the native code/data mappings backing a prior Compile
// call. Safe to call on a Formula that was never compiled.
func (f *Formula) Release() error {
	if f.rt == nil {
		return nil
	}
	err := f.rt.Release()
	f.rt, f.prog = nil, nil
	return err
}
