//go:build amd64

package jit

import (
	"fmt"
	"math"
	"reflect"

	"github.com/launix-de/formula-compiler/ast"
	"github.com/launix-de/formula-compiler/complexnum"
	"github.com/launix-de/formula-compiler/symtab"
)

// powTrampoline is the one runtime helper compiled code calls out to
// (spec.md §4.5: BinaryOp ^ "a call to the runtime pow(double,double)
// helper"). Obtaining its entry address via reflect mirrors
// _examples/launix-de-memcp/scm/jit.go's OptimizeForValues, which takes
// the address of a Go function value the same way
// (reflect.ValueOf(fn).Pointer()) to hand it to generated code.
func powTrampoline(base, exp float64) float64 { return math.Pow(base, exp) }

var powFnAddr = uint64(reflect.ValueOf(powTrampoline).Pointer())

// compiler holds the state of one compileProgram run: the shared code
// writer and data section every compiled section's function is appended
// to, and a simple stack-based allocator over the 14 usable XMM working
// registers (xmm0-xmm13; nothing is reserved permanently — xmm0/xmm1/
// xmm2 are only ever borrowed transiently by the pow call sequence and
// the function epilogue, both of which save and restore anything they
// displace).
type compiler struct {
	w      *Writer
	data   *dataSection
	fixups []dataFixup
	free   []xmm
	busy   [14]bool
}

func newCompiler() *compiler {
	c := &compiler{w: newWriter(), data: newDataSection()}
	for i := 13; i >= 0; i-- {
		c.free = append(c.free, xmm(i))
	}
	return c
}

func (c *compiler) alloc() xmm {
	if len(c.free) == 0 {
		panic(&CompileError{Kind: ErrRegisterPressure, Message: "expression nests deeper than the available working registers"})
	}
	r := c.free[len(c.free)-1]
	c.free = c.free[:len(c.free)-1]
	c.busy[r] = true
	return r
}

func (c *compiler) freeReg(r xmm) {
	if !c.busy[r] {
		return
	}
	c.busy[r] = false
	c.free = append(c.free, r)
}

// reserveReg forcibly claims r for transient use outside the normal
// alloc/free flow, reporting whether it had to move r out of the free
// list (so the caller knows whether to give it back).
func (c *compiler) reserveReg(r xmm) (wasFree bool) {
	if c.busy[r] {
		return false
	}
	for i, f := range c.free {
		if f == r {
			c.free = append(c.free[:i], c.free[i+1:]...)
			break
		}
	}
	c.busy[r] = true
	return true
}

func (c *compiler) releaseReg(r xmm) {
	c.busy[r] = false
	c.free = append(c.free, r)
}

// busyExcept lists every register currently live other than those named
// — the set a CALL's clobbering needs to spill around.
func (c *compiler) busyExcept(except ...xmm) []xmm {
	skip := map[xmm]bool{}
	for _, e := range except {
		skip[e] = true
	}
	var out []xmm
	for i := 0; i < len(c.busy); i++ {
		if c.busy[i] && !skip[xmm(i)] {
			out = append(out, xmm(i))
		}
	}
	return out
}

// loadDataAddr emits a placeholder 64-bit immediate load and records a
// fixup so Runtime.Load can patch in the data section's real mmap'd
// address once it exists (the data mapping isn't created until long
// after compilation finishes, unlike the intra-code jump targets
// Writer.resolve patches).
func (c *compiler) loadDataAddr(reg gpr, slot int32) {
	rex := byte(0x48)
	if reg >= 8 {
		rex |= 0x01
	}
	c.w.bytes(rex, 0xB8|byte(reg&7))
	pos := c.w.pos()
	c.w.u64(0)
	c.fixups = append(c.fixups, dataFixup{codePos: pos, slot: slot})
}

func (c *compiler) loadSlot(slot int32) xmm {
	r := c.alloc()
	c.loadDataAddr(gprR11, slot)
	c.w.movupdLoad(r, gprR11)
	return r
}

func (c *compiler) storeSlot(slot int32, r xmm) {
	c.loadDataAddr(gprR11, slot)
	c.w.movupdStore(r, gprR11)
}

func (c *compiler) loadConst(v complexnum.Complex) xmm {
	return c.loadSlot(c.data.label(v))
}

func (c *compiler) loadSymbol(name string) xmm {
	return c.loadSlot(c.data.symbolLabel(name))
}

func (c *compiler) storeSymbol(name string, r xmm) {
	c.storeSlot(c.data.symbolLabel(name), r)
}

// sumLanesInPlace replaces t with (t.low+t.high, t.low+t.high) — both
// lanes hold the horizontal sum, the building block the multiply/divide
// patterns below use to fold a lanewise product into one scalar.
func (c *compiler) sumLanesInPlace(t xmm) {
	u := c.alloc()
	c.w.movapd(u, t)
	c.w.shufpd(u, u, 1)
	c.w.addpd(t, u)
	c.freeReg(u)
}

// compileExpr recursively lowers one AST node into the single XMM
// register holding its (Re, Im) result, per spec.md §4.5's per-node
// codegen table.
func (c *compiler) compileExpr(node ast.Node) xmm {
	switch n := node.(type) {
	case *ast.Literal:
		return c.loadConst(n.Value)

	case *ast.Identifier:
		return c.loadSymbol(n.Name)

	case *ast.UnaryOp:
		return c.compileUnary(n)

	case *ast.BinaryOp:
		return c.compileBinary(n)

	case *ast.FunctionCall:
		return c.compileCall(n)

	case *ast.Assignment:
		v := c.compileExpr(n.Value)
		c.storeSymbol(n.Target, v)
		return v

	case *ast.StatementSeq:
		return c.compileSeq(n)

	case *ast.If:
		return c.compileIf(n)

	default:
		panic(&CompileError{Kind: ErrInternal, Message: fmt.Sprintf("no code generator for %T", node)})
	}
}

func (c *compiler) compileUnary(n *ast.UnaryOp) xmm {
	switch n.Op {
	case '-':
		r := c.compileExpr(n.Operand)
		z := c.alloc()
		c.w.xorpd(z, z)
		c.w.subpd(z, r)
		c.freeReg(r)
		return z
	case '|':
		// AbsSquared: (re*re+im*im, 0), complexnum.Complex.AbsSquared's
		// definition.
		r := c.compileExpr(n.Operand)
		t := c.alloc()
		c.w.movapd(t, r)
		c.w.mulpd(t, t)
		c.sumLanesInPlace(t)
		zero := c.alloc()
		c.w.xorpd(zero, zero)
		c.w.unpcklpd(t, zero)
		c.freeReg(zero)
		c.freeReg(r)
		return t
	default:
		panic(&CompileError{Kind: ErrInternal, Message: fmt.Sprintf("unsupported unary operator %q", n.Op)})
	}
}

func (c *compiler) compileBinary(n *ast.BinaryOp) xmm {
	switch n.Op {
	case ast.OpAnd:
		return c.compileAnd(n)
	case ast.OpOr:
		return c.compileOr(n)
	}

	left := c.compileExpr(n.Left)
	switch n.Op {
	case ast.OpPow:
		right := c.compileExpr(n.Right)
		return c.compilePow(left, right)
	case ast.OpAdd:
		right := c.compileExpr(n.Right)
		c.w.addpd(left, right)
		c.freeReg(right)
		return left
	case ast.OpSub:
		right := c.compileExpr(n.Right)
		c.w.subpd(left, right)
		c.freeReg(right)
		return left
	case ast.OpMul:
		right := c.compileExpr(n.Right)
		return c.compileMul(left, right)
	case ast.OpDiv:
		right := c.compileExpr(n.Right)
		return c.compileDiv(left, right)
	case ast.OpLess, ast.OpLessEqual, ast.OpGreater, ast.OpGreaterEqual, ast.OpEqual, ast.OpNotEqual:
		right := c.compileExpr(n.Right)
		return c.compileRelational(n.Op, left, right)
	default:
		panic(&CompileError{Kind: ErrInternal, Message: "unsupported binary operator " + n.Op.String()})
	}
}

// compileMul implements (a+bi)(c+di) = (ac-bd) + (ad+bc)i with the
// standard SIMD complex-multiply shuffle trick: one lanewise multiply
// for the straight terms, one against a lane-swapped copy of the right
// operand for the cross terms, then a same-sign horizontal combine of
// each.
func (c *compiler) compileMul(l, r xmm) xmm {
	t1 := c.alloc()
	c.w.movapd(t1, l)
	c.w.mulpd(t1, r) // (ac, bd)
	u1 := c.alloc()
	c.w.movapd(u1, t1)
	c.w.shufpd(u1, u1, 1)
	c.w.subpd(t1, u1) // low = ac-bd

	t2 := c.alloc()
	c.w.movapd(t2, r)
	c.w.shufpd(t2, t2, 1)
	c.w.mulpd(t2, l) // (ad, bc)
	u2 := c.alloc()
	c.w.movapd(u2, t2)
	c.w.shufpd(u2, u2, 1)
	c.w.addpd(t2, u2) // both lanes = ad+bc

	c.w.unpcklpd(t1, t2) // (real, imag)
	c.freeReg(u1)
	c.freeReg(u2)
	c.freeReg(t2)
	c.freeReg(l)
	c.freeReg(r)
	return t1
}

// compileDiv implements (a+bi)/(c+di) = ((ac+bd) + (bc-ad)i) / (c^2+d^2).
func (c *compiler) compileDiv(l, r xmm) xmm {
	t1 := c.alloc()
	c.w.movapd(t1, l)
	c.w.mulpd(t1, r) // (ac, bd)
	c.sumLanesInPlace(t1)

	denom := c.alloc()
	c.w.movapd(denom, r)
	c.w.mulpd(denom, r) // (c^2, d^2)
	c.sumLanesInPlace(denom)

	swapR := c.alloc()
	c.w.movapd(swapR, r)
	c.w.shufpd(swapR, swapR, 1) // (d, c)
	t2 := c.alloc()
	c.w.movapd(t2, l)
	c.w.mulpd(t2, swapR) // (ad, bc)
	imag := c.alloc()
	c.w.movapd(imag, t2)
	c.w.shufpd(imag, imag, 1)
	c.w.subpd(imag, t2) // low = bc-ad

	c.w.divpd(t1, denom)
	c.w.divpd(imag, denom)
	c.w.unpcklpd(t1, imag) // (real, imag)

	c.freeReg(denom)
	c.freeReg(swapR)
	c.freeReg(t2)
	c.freeReg(imag)
	c.freeReg(l)
	c.freeReg(r)
	return t1
}

func relationalCC(op ast.BinaryOpKind) byte {
	switch op {
	case ast.OpLess:
		return ccB
	case ast.OpLessEqual:
		return ccBE
	case ast.OpGreater:
		return ccA
	case ast.OpGreaterEqual:
		return ccAE
	case ast.OpEqual:
		return ccE
	case ast.OpNotEqual:
		return ccNE
	default:
		panic(&CompileError{Kind: ErrInternal, Message: "not a relational operator"})
	}
}

// compileRelational compares the operands' low (real) lanes via UCOMISD
// and materializes the boolean result as complexnum.One or
// complexnum.Zero. Unlike interp.go, == and != here also look only at
// the real lanes; the imaginary parts are not compared.
func (c *compiler) compileRelational(op ast.BinaryOpKind, l, r xmm) xmm {
	c.w.ucomisd(l, r)
	cc := relationalCC(op)
	trueLbl := c.w.reserveLabel()
	endLbl := c.w.reserveLabel()
	c.w.jcc(cc, trueLbl)

	result := l
	c.w.xorpd(result, result)
	c.w.jmp(endLbl)

	c.w.markLabel(trueLbl)
	oneSlot := c.data.label(complexnum.One)
	c.loadDataAddr(gprR11, oneSlot)
	c.w.movupdLoad(result, gprR11)

	c.w.markLabel(endLbl)
	c.freeReg(r)
	return result
}

// truthyZeroTest emits UCOMISD against a freshly zeroed scratch register
// and frees both the zero register and v, leaving only the flags set —
// the shared building block for &&/||'s short-circuit tests.
func (c *compiler) truthyZeroTest(v xmm) {
	zero := c.alloc()
	c.w.xorpd(zero, zero)
	c.w.ucomisd(v, zero)
	c.freeReg(zero)
	c.freeReg(v)
}

// compileAnd implements true short-circuit &&: the jump deciding whether
// to evaluate the right operand is emitted immediately after testing the
// left operand, before any of the right operand's code is reachable —
// the REDESIGN FLAG correction to the original's documented bug of
// always compiling (and so always executing) the right side first.
func (c *compiler) compileAnd(n *ast.BinaryOp) xmm {
	l := c.compileExpr(n.Left)
	c.truthyZeroTest(l)

	falseLbl := c.w.reserveLabel()
	endLbl := c.w.reserveLabel()
	c.w.jcc(ccE, falseLbl) // left falsy: skip the right operand entirely

	r := c.compileExpr(n.Right)
	c.truthyZeroTest(r)
	c.w.jcc(ccE, falseLbl)

	result := c.alloc()
	oneSlot := c.data.label(complexnum.One)
	c.loadDataAddr(gprR11, oneSlot)
	c.w.movupdLoad(result, gprR11)
	c.w.jmp(endLbl)

	c.w.markLabel(falseLbl)
	c.w.xorpd(result, result)
	c.w.markLabel(endLbl)
	return result
}

// compileOr is compileAnd's mirror: a truthy left operand short-circuits
// straight to the true result without the right operand's code ever
// being reached at runtime.
func (c *compiler) compileOr(n *ast.BinaryOp) xmm {
	l := c.compileExpr(n.Left)
	c.truthyZeroTest(l)

	trueLbl := c.w.reserveLabel()
	endLbl := c.w.reserveLabel()
	c.w.jcc(ccNE, trueLbl) // left truthy: skip the right operand entirely

	r := c.compileExpr(n.Right)
	c.truthyZeroTest(r)
	c.w.jcc(ccNE, trueLbl)

	result := c.alloc()
	c.w.xorpd(result, result)
	c.w.jmp(endLbl)

	c.w.markLabel(trueLbl)
	oneSlot := c.data.label(complexnum.One)
	c.loadDataAddr(gprR11, oneSlot)
	c.w.movupdLoad(result, gprR11)
	c.w.markLabel(endLbl)
	return result
}

// compilePow is the JIT's one sanctioned call into Go code (spec.md
// §4.5 mandates a runtime pow(double,double) helper for ^). Every
// other live register is spilled to a scratch data slot first since an
// ABIInternal call may clobber the whole XMM file, and xmm0/xmm1 are
// reserved for the two scalar arguments exactly as Go's calling
// convention assigns them — see DESIGN.md for why this is the one place
// this back-end goes beyond what the example corpus itself demonstrates.
// Per spec.md's Open Question resolution, ^ operates on real parts
// only; the result's imaginary part is always zero.
func (c *compiler) compilePow(l, r xmm) xmm {
	survivors := c.busyExcept(l, r)
	slots := make([]int32, len(survivors))
	for i, s := range survivors {
		slots[i] = c.data.scratch()
		c.storeSlot(slots[i], s)
	}

	aSlot := c.data.scratch()
	bSlot := c.data.scratch()
	c.storeSlot(aSlot, l)
	c.storeSlot(bSlot, r)
	c.freeReg(l)
	c.freeReg(r)

	wasFree0 := c.reserveReg(xmm(0))
	wasFree1 := c.reserveReg(xmm(1))

	c.loadDataAddr(gprR11, aSlot)
	c.w.movupdLoad(xmm(0), gprR11)
	c.loadDataAddr(gprR11, bSlot)
	c.w.movupdLoad(xmm(1), gprR11)
	c.w.callAbs(powFnAddr)

	result := c.alloc()
	c.w.xorpd(result, result)
	c.w.movsdRegReg(result, xmm(0))

	if wasFree0 {
		c.releaseReg(xmm(0))
	}
	if wasFree1 {
		c.releaseReg(xmm(1))
	}

	for i, s := range survivors {
		c.loadDataAddr(gprR11, slots[i])
		c.w.movupdLoad(s, gprR11)
	}
	return result
}

// absMask and conjMask are the two bit patterns needed to implement
// "abs" and "conj" as a single packed bitwise op, per complexnum.Abs
// (clear both sign bits) and complexnum.Conj (flip the imaginary sign
// bit only).
func absMask() complexnum.Complex {
	bits := math.Float64frombits(0x7FFFFFFFFFFFFFFF)
	return complexnum.Complex{Re: bits, Im: bits}
}

func conjMask() complexnum.Complex {
	return complexnum.Complex{Re: 0, Im: math.Copysign(0, -1)}
}

// compileCall inlines the handful of builtins spec.md §4.5 names
// (conj, flip, ident) plus abs, applied to both lanes as registry.go's
// complex overload does, and floor/ceil/trunc/round, which registry.go
// defines on the real part only and so yield (fn(re), 0) here too. Every
// other builtin name has no safely-groundable call-out mechanism in
// this corpus (see DESIGN.md's "`ErrUnsupportedBuiltin` and the inlined
// builtin set" entry) and is rejected with ErrUnsupportedBuiltin rather
// than invented.
func (c *compiler) compileCall(n *ast.FunctionCall) xmm {
	realOnly := func(r xmm) xmm {
		zero := c.alloc()
		c.w.xorpd(zero, zero)
		c.w.unpcklpd(r, zero)
		c.freeReg(zero)
		return r
	}
	switch n.Name {
	case "conj":
		r := c.compileExpr(n.Arg)
		mask := c.loadConst(conjMask())
		c.w.xorpd(r, mask)
		c.freeReg(mask)
		return r
	case "flip":
		r := c.compileExpr(n.Arg)
		c.w.shufpd(r, r, 1)
		return r
	case "ident":
		return c.compileExpr(n.Arg)
	case "abs":
		r := c.compileExpr(n.Arg)
		mask := c.loadConst(absMask())
		c.w.andpd(r, mask)
		c.freeReg(mask)
		return r
	case "floor":
		r := c.compileExpr(n.Arg)
		c.w.roundpd(r, r, roundFloor)
		return realOnly(r)
	case "ceil":
		r := c.compileExpr(n.Arg)
		c.w.roundpd(r, r, roundCeil)
		return realOnly(r)
	case "trunc":
		r := c.compileExpr(n.Arg)
		c.w.roundpd(r, r, roundTrunc)
		return realOnly(r)
	case "round":
		r := c.compileExpr(n.Arg)
		c.w.roundpd(r, r, roundNearest)
		return realOnly(r)
	default:
		panic(&CompileError{Kind: ErrUnsupportedBuiltin, Message: fmt.Sprintf("builtin %q has no native encoding", n.Name)})
	}
}

func (c *compiler) compileSeq(n *ast.StatementSeq) xmm {
	if len(n.Statements) == 0 {
		r := c.alloc()
		c.w.xorpd(r, r)
		return r
	}
	var result xmm
	for i, stmt := range n.Statements {
		r := c.compileExpr(stmt)
		if i > 0 {
			c.freeReg(result)
		}
		result = r
	}
	return result
}

func (c *compiler) compileIf(n *ast.If) xmm {
	cond := c.compileExpr(n.Cond)
	c.truthyZeroTest(cond)

	elseLbl := c.w.reserveLabel()
	endLbl := c.w.reserveLabel()
	c.w.jcc(ccE, elseLbl)

	result := c.alloc()
	if n.Then != nil {
		t := c.compileExpr(n.Then)
		c.w.movapd(result, t)
		if t != result {
			c.freeReg(t)
		}
	} else {
		oneSlot := c.data.label(complexnum.One)
		c.loadDataAddr(gprR11, oneSlot)
		c.w.movupdLoad(result, gprR11)
	}
	c.w.jmp(endLbl)

	c.w.markLabel(elseLbl)
	if n.Else != nil {
		e := c.compileExpr(n.Else)
		c.w.movapd(result, e)
		if e != result {
			c.freeReg(e)
		}
	} else {
		c.w.xorpd(result, result)
	}
	c.w.markLabel(endLbl)
	return result
}

// epilogue converts the packed (Re, Im) working register into the two
// separate float64 result registers Go's ABIInternal expects (X0, X1 —
// result-register numbering restarts from X0 independent of how many
// argument registers a function has), then returns. Everything is
// staged through a fixed scratch register first so this is correct
// regardless of which physical register the caller's result happens to
// already occupy, including X0 or X1 themselves.
func (c *compiler) epilogue(result xmm) {
	const scratch = xmm(2)
	c.w.movapd(scratch, result)
	c.w.movapd(xmm(1), scratch)
	c.w.unpckhpd(xmm(1), scratch)
	c.w.movapd(xmm(0), scratch)
	c.w.ret()
}

func (c *compiler) compileFunction(node ast.Node) int32 {
	entry := c.w.pos()
	result := c.compileExpr(node)
	c.epilogue(result)
	return entry
}

// compileProgram is jit.Compile's amd64 entry point.
func compileProgram(fs *ast.FormulaSections, table *symtab.Table, opts Options) (*Program, error) {
	c := newCompiler()
	prog := &Program{}

	if n := fs.Get(ast.SectionInitialize); n != nil {
		prog.initEntry = c.compileFunction(n)
		prog.hasInit = true
	}
	if n := fs.Get(ast.SectionIterate); n != nil {
		prog.iterEntry = c.compileFunction(n)
		prog.hasIter = true
	}
	if n := fs.Get(ast.SectionBailout); n != nil {
		prog.bailEntry = c.compileFunction(n)
		prog.hasBail = true
	}
	if !prog.hasInit && !prog.hasIter && !prog.hasBail {
		return nil, &CompileError{Kind: ErrInternal, Message: "no compilable section present"}
	}

	if err := c.w.resolve(); err != nil {
		return nil, err
	}
	prog.code = c.w.code
	prog.data = c.data
	prog.dataFixups = c.fixups
	return prog, nil
}
