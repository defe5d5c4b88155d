// Package jit compiles formula ASTs to native machine code operating on
// packed-double SIMD registers, grounded on
// _examples/launix-de-memcp/scm/jit*.go (the teacher's amd64 JIT:
// descriptor-based register allocation, a label/fixup code writer, and
// mmap'd executable pages) and spec.md §4.5.
//
// Register convention: a single 128-bit SIMD register holds one Complex
// result, the low 64 bits the real part and the high 64 bits the
// imaginary part, matching complexnum.Complex's documented layout.
package jit

import (
	"fmt"

	"github.com/launix-de/formula-compiler/ast"
	"github.com/launix-de/formula-compiler/symtab"
)

// ErrorKind classifies a back-end compilation failure (spec.md §4.5
// "Failure semantics": every back-end error is a typed error kind, never
// a partially registered function pointer).
type ErrorKind int

const (
	// ErrUnsupportedArch: the running GOARCH has no code generator.
	ErrUnsupportedArch ErrorKind = iota
	// ErrUnsupportedBuiltin: a FunctionCall names a builtin the JIT has
	// no direct hardware encoding for and cannot safely call out to
	// (see DESIGN.md's "`ErrUnsupportedBuiltin` and the inlined builtin
	// set" entry).
	ErrUnsupportedBuiltin
	// ErrRegisterPressure: an expression nests deeper than the fixed
	// XMM working set the register allocator uses (no spill-to-stack;
	// see DESIGN.md).
	ErrRegisterPressure
	// ErrInternal: a back-end invariant that should never fire did.
	ErrInternal
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnsupportedArch:
		return "unsupported architecture"
	case ErrUnsupportedBuiltin:
		return "unsupported builtin in compiled code"
	case ErrRegisterPressure:
		return "expression too deeply nested to compile"
	case ErrInternal:
		return "internal compiler error"
	default:
		return "unknown jit error"
	}
}

// CompileError is the JIT's single failure type; every back-end error
// surfaces as one of these, never a panic escaping Compile.
type CompileError struct {
	Kind    ErrorKind
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("jit: %s: %s", e.Kind, e.Message)
}

// Options controls compilation. The zero value is the default: compile
// for runtime.GOARCH.
type Options struct{}

// Program is a successfully compiled formula: one entry point per
// compiled section plus the data section and the code positions that
// must be patched with its address, ready to be loaded into a Runtime. Compile never returns a Program on error.
type Program struct {
	code       []byte
	data       *dataSection
	dataFixups []dataFixup
	initEntry  int32
	iterEntry  int32
	bailEntry  int32
	hasInit    bool
	hasIter    bool
	hasBail    bool
}

// dataFixup records a code position holding a placeholder 64-bit
// immediate that must be patched with the data section's runtime
// address plus slot once Runtime.Load knows where that mapping landed.
// The data section's address isn't known until mmap time, unlike intra
// code jump targets (Writer.resolve handles those at compile time), so
// this is a second, later fixup pass layered on top of the teacher's
// label/fixup idea from scm/jit_writer.go.
type dataFixup struct {
	codePos int32
	slot    int32
}

// Compile emits native code for fs.Initialize, fs.Iterate and
// fs.Bailout (spec.md §4.5 "Function unit": each compiles to a separate
// function). Sections that are nil are simply absent from the resulting
// Program; Runtime.Run reports that absence rather than Compile failing.
// table provides the initial values for any symbol referenced by the
// compiled code's data section (spec.md §4.5 "Data section").
func Compile(fs *ast.FormulaSections, table *symtab.Table, opts Options) (p *Program, err error) {
	defer func() {
		// Internal invariants ("cannot happen") panic from deep in the
		// code generator; the outermost public entry point recovers and
		// reports them as a typed error, mirroring
		// jit_amd64.go's jitCompileExprBody recover boundary.
		if r := recover(); r != nil {
			if ce, ok := r.(*CompileError); ok {
				p, err = nil, ce
				return
			}
			p, err = nil, &CompileError{Kind: ErrInternal, Message: fmt.Sprint(r)}
		}
	}()
	return compileProgram(fs, table, opts)
}
