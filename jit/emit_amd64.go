//go:build amd64

package jit

// amd64 instruction encoding, grounded on
// _examples/launix-de-memcp/scm/jit_emit_amd64.go's REX/ModRM helpers
// (emitAluRegReg, emitSseOp, emitRegMemOp), generalised from that file's
// scalar-double (ADDSD/SUBSD/...) encodings to the packed-double
// (ADDPD/SUBPD/...) forms this package's 128-bit register convention
// needs, plus the handful of lane-shuffle and compare opcodes spec.md
// §4.5 names.

// xmm is an XMM register index 0-15. gpr is a general-purpose register
// index 0-15 in the same x86-64 numbering the teacher's Reg constants
// use (RAX=0 ... R15=15).
type xmm uint8
type gpr uint8

const (
	gprRAX gpr = 0
	gprRCX gpr = 1
	gprRDX gpr = 2
	gprRBX gpr = 3
	gprRSP gpr = 4
	gprRBP gpr = 5
	gprRSI gpr = 6
	gprRDI gpr = 7
	gprR10 gpr = 10
	gprR11 gpr = 11
)

// rexSSE emits the mandatory-prefix + optional REX byte pair a 66 0F
// packed-double opcode needs when either operand is in the r8-r15 range.
func (w *Writer) rexSSE(dst, src xmm) {
	if dst >= 8 || src >= 8 {
		rex := byte(0x40)
		if dst >= 8 {
			rex |= 0x04 // REX.R extends the ModRM reg field
		}
		if src >= 8 {
			rex |= 0x01 // REX.B extends the ModRM r/m field
		}
		w.bytes(0x66, rex, 0x0F)
		return
	}
	w.bytes(0x66, 0x0F)
}

func modrmReg(dst, src xmm) byte {
	return 0xC0 | (byte(dst&7) << 3) | byte(src&7)
}

// sseOp emits 66 [REX] 0F <op> dst, src for a register-register
// packed-double instruction.
func (w *Writer) sseOp(op byte, dst, src xmm) {
	w.rexSSE(dst, src)
	w.bytes(op, modrmReg(dst, src))
}

// Packed-double arithmetic (spec.md §4.5 "lanewise add/sub" and the
// four-multiply/divide patterns use these as their building blocks).
func (w *Writer) addpd(dst, src xmm) { w.sseOp(0x58, dst, src) }
func (w *Writer) subpd(dst, src xmm) { w.sseOp(0x5C, dst, src) }
func (w *Writer) mulpd(dst, src xmm) { w.sseOp(0x59, dst, src) }
func (w *Writer) divpd(dst, src xmm) { w.sseOp(0x5E, dst, src) }
func (w *Writer) xorpd(dst, src xmm) { w.sseOp(0x57, dst, src) }
func (w *Writer) andpd(dst, src xmm) { w.sseOp(0x54, dst, src) }
func (w *Writer) movapd(dst, src xmm) {
	if dst == src {
		return
	}
	w.sseOp(0x28, dst, src)
}

// unpcklpd dst,src: dst = (dst.low, src.low). unpckhpd dst,src: dst =
// (dst.high, src.high). Used to build/tear down the packed (re,im) pair
// from two scalar lanes (spec.md §4.5's multiply/divide patterns need
// the real and imaginary lanes broadcast independently).
func (w *Writer) unpcklpd(dst, src xmm) { w.sseOp(0x14, dst, src) }
func (w *Writer) unpckhpd(dst, src xmm) { w.sseOp(0x15, dst, src) }

// shufpd dst,src,imm selects which lane of dst and src land in the
// result's low/high lanes. shufpd(r,r,1) swaps a register's own two
// lanes in place — the "flip" builtin's entire implementation.
func (w *Writer) shufpd(dst, src xmm, imm8 byte) {
	w.rexSSE(dst, src)
	w.bytes(0xC6, modrmReg(dst, src), imm8)
}

// sqrtpd dst,src: packed square root. No code generator emits it: the
// sqrt builtin is rejected with ErrUnsupportedBuiltin.
func (w *Writer) sqrtpd(dst, src xmm) { w.sseOp(0x51, dst, src) }

// ucomisd compares the low (scalar) lanes of two xmm registers and sets
// RFLAGS as CMP would, the basis for every relational operator and the
// If/short-circuit branch tests (spec.md §4.5).
func (w *Writer) ucomisd(a, b xmm) {
	w.rexSSE(a, b)
	w.bytes(0x2E, modrmReg(a, b))
}

// Condition codes for jcc, in the same numbering
// _examples/launix-de-memcp/scm/jit_emit_amd64.go's CcXX constants use.
const (
	ccE  byte = 0x04
	ccNE byte = 0x05
	ccB  byte = 0x02 // JB:  below (unsigned) -- UCOMISD sets CF like unsigned CMP
	ccBE byte = 0x06
	ccA  byte = 0x07
	ccAE byte = 0x03
	ccP  byte = 0x0A // parity (either operand NaN) -- UCOMISD-specific
)

// jcc emits a rel32 conditional jump to a (possibly not-yet-placed)
// label.
func (w *Writer) jcc(cc byte, labelID int) {
	w.bytes(0x0F, 0x80|cc)
	w.addFixup(labelID)
}

// jmp emits an unconditional rel32 jump.
func (w *Writer) jmp(labelID int) {
	w.byte(0xE9)
	w.addFixup(labelID)
}

func (w *Writer) ret() { w.byte(0xC3) }

// --- GPR address materialisation ---
// The data section lives at a fixed address for the lifetime of a
// Runtime (mmap'd once, never moved), so every load/store addresses it
// via an absolute 64-bit immediate loaded into a GPR, the same technique
// _examples/launix-de-memcp/scm/jit_emit_amd64.go's EmitReturnInt/
// EmitMovRegImm64 use for the Scmer type-sentinel addresses.

func (w *Writer) movGprImm64(dst gpr, imm uint64) {
	rex := byte(0x48)
	if dst >= 8 {
		rex |= 0x01
	}
	w.bytes(rex, 0xB8|byte(dst&7))
	w.u64(imm)
}

// movupdLoad emits MOVUPD xmmDst, [gprBase] — loads both packed lanes
// from the absolute address already sitting in gprBase.
func (w *Writer) movupdLoad(dst xmm, base gpr) {
	w.movupd(dst, base, false)
}

// movupdStore emits MOVUPD [gprBase], xmmSrc.
func (w *Writer) movupdStore(src xmm, base gpr) {
	w.movupd(src, base, true)
}

func (w *Writer) movupd(reg xmm, base gpr, store bool) {
	rex := byte(0)
	if reg >= 8 || base >= 8 {
		rex = 0x40
		if reg >= 8 {
			rex |= 0x04
		}
		if base >= 8 {
			rex |= 0x01
		}
	}
	op := byte(0x10) // MOVUPD xmm, m128 (load)
	if store {
		op = 0x11 // MOVUPD m128, xmm (store)
	}
	if rex != 0 {
		w.bytes(0x66, rex, 0x0F, op)
	} else {
		w.bytes(0x66, 0x0F, op)
	}
	modrm := byte(0x00) | (byte(reg&7) << 3) | byte(base&7)
	if byte(base&7) == 4 { // RSP/R12 needs a SIB byte
		w.bytes(modrm, 0x24)
	} else {
		w.bytes(modrm)
	}
}

// movsdLoadLow emits MOVSD xmmDst, [gprBase] — loads only the low 64-bit
// lane, used to pull a single real scalar out of a packed pair.
func (w *Writer) movsdLoadLow(dst xmm, base gpr) {
	rex := byte(0)
	if dst >= 8 || base >= 8 {
		rex = 0x40
		if dst >= 8 {
			rex |= 0x04
		}
		if base >= 8 {
			rex |= 0x01
		}
	}
	if rex != 0 {
		w.bytes(0xF2, rex, 0x0F, 0x10)
	} else {
		w.bytes(0xF2, 0x0F, 0x10)
	}
	modrm := byte(0x00) | (byte(dst&7) << 3) | byte(base&7)
	if byte(base&7) == 4 {
		w.bytes(modrm, 0x24)
	} else {
		w.bytes(modrm)
	}
}

// roundpd implements the four rounding-mode builtins directly in
// hardware (SSE4.1 ROUNDPD, packed so both lanes round together), an
// extension of spec.md §4.5's explicitly-named inline set
// (conj/flip/ident) to every other builtin with a closed-form opcode —
// see DESIGN.md.
func (w *Writer) roundpd(dst, src xmm, mode byte) {
	w.rexSSE(dst, src)
	w.bytes(0x3A, 0x09, modrmReg(dst, src), mode)
}

// movsdRegReg moves only the low scalar lane: dst.low = src.low,
// dst.high unchanged. Used to pick a single float64 result (e.g. the
// pow trampoline's return value) out of a raw ABI register without
// disturbing a lane the caller deliberately zeroed first.
func (w *Writer) movsdRegReg(dst, src xmm) {
	if dst >= 8 || src >= 8 {
		rex := byte(0x40)
		if dst >= 8 {
			rex |= 0x04
		}
		if src >= 8 {
			rex |= 0x01
		}
		w.bytes(0xF2, rex, 0x0F, 0x10, modrmReg(dst, src))
		return
	}
	w.bytes(0xF2, 0x0F, 0x10, modrmReg(dst, src))
}

const (
	roundNearest byte = 0x00
	roundFloor   byte = 0x01 | 0x08 // 0x08 = suppress precision exception
	roundCeil    byte = 0x02 | 0x08
	roundTrunc   byte = 0x03 | 0x08
)

// call emits an indirect CALL through gprR11, loaded with an absolute
// 64-bit target. Used only for the single runtime helper this back-end
// calls out to (real pow) — see DESIGN.md's note on why every other
// scalar builtin is either inlined or rejected instead of following the
// same path.
func (w *Writer) callAbs(target uint64) {
	w.movGprImm64(gprR11, target)
	w.bytes(0x41, 0xFF, 0xD3) // CALL r/m64, ModRM selecting R11 (/2)
}
