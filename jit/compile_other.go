//go:build !amd64

package jit

import (
	"github.com/launix-de/formula-compiler/ast"
	"github.com/launix-de/formula-compiler/symtab"
)

// compileProgram on every architecture without a code generator reports
// a typed error instead of emitting anything. This is a deliberate
// improvement over _examples/launix-de-memcp/scm/jit_arm64.go, whose
// jitReturnLiteral builds an empty byte slice under a "TODO" comment
// and then indexes into it — a latent panic on first use, not a
// graceful unsupported-architecture report.
func compileProgram(fs *ast.FormulaSections, table *symtab.Table, opts Options) (*Program, error) {
	return nil, &CompileError{Kind: ErrUnsupportedArch, Message: "no JIT code generator for this architecture"}
}
