// Package complexnum implements the complex-double value type used
// throughout the formula compiler: a pair of IEEE-754 doubles (re, im),
// laid out the same way a 128-bit SIMD register holds them (real in the
// low 64 bits, imaginary in the high 64 bits), so the interpreter and the
// JIT agree on representation.
package complexnum

import "math"

// Complex is a real/imaginary pair. The zero value is (0, 0).
type Complex struct {
	Re, Im float64
}

// Zero is the additive identity and the interpreter's "unknown identifier"
// value.
var Zero = Complex{}

// One is the multiplicative identity and the language's boolean "true".
var One = Complex{Re: 1}

// New builds a Complex from its components.
func New(re, im float64) Complex {
	return Complex{Re: re, Im: im}
}

// FromBool encodes the language's canonical boolean representation:
// (1,0) for true, (0,0) for false.
func FromBool(b bool) Complex {
	if b {
		return One
	}
	return Zero
}

// Truthy reports whether a value is "true" per the language's convention:
// the real part is non-zero. The imaginary part is ignored.
func (c Complex) Truthy() bool {
	return c.Re != 0
}

func (a Complex) Add(b Complex) Complex {
	return Complex{a.Re + b.Re, a.Im + b.Im}
}

func (a Complex) Sub(b Complex) Complex {
	return Complex{a.Re - b.Re, a.Im - b.Im}
}

func (a Complex) Mul(b Complex) Complex {
	return Complex{a.Re*b.Re - a.Im*b.Im, a.Re*b.Im + a.Im*b.Re}
}

func (a Complex) Div(b Complex) Complex {
	d := b.Re*b.Re + b.Im*b.Im
	return Complex{
		(a.Re*b.Re + a.Im*b.Im) / d,
		(a.Im*b.Re - a.Re*b.Im) / d,
	}
}

func (a Complex) Neg() Complex {
	return Complex{-a.Re, -a.Im}
}

// Equal is full-complex equality (used for ==, != and as a map key
// equality check by callers that dereference the lexicographic Less
// below).
func (a Complex) Equal(b Complex) bool {
	return a.Re == b.Re && a.Im == b.Im
}

// Less is a lexicographic order (real first, then imaginary) used only to
// key the JIT's constant pool — it is not a mathematical ordering and is
// unspecified (but total, for non-NaN operands) for values the language
// itself never compares this way.
func (a Complex) Less(b Complex) bool {
	if a.Re != b.Re {
		return a.Re < b.Re
	}
	return a.Im < b.Im
}

// AbsSquared implements the source language's unary "|z|" operator:
// re(z)^2 + im(z)^2, returned as a complex with zero imaginary part. This
// is deliberately not the mathematical modulus.
func (c Complex) AbsSquared() Complex {
	return Complex{c.Re*c.Re + c.Im*c.Im, 0}
}

// Abs is the componentwise absolute value, matching
// original_source/libs/include/formula/Complex.h's abs() member — used
// internally by a handful of real-valued builtins, distinct from the
// language operator |z|.
func (c Complex) Abs() Complex {
	return Complex{math.Abs(c.Re), math.Abs(c.Im)}
}

// Conj swaps the sign of the imaginary part.
func (c Complex) Conj() Complex {
	return Complex{c.Re, -c.Im}
}

// Flip swaps the real and imaginary components. This is the corrected
// meaning of the source language's "flip" builtin: the original function
// table also has a scalar overload that negates its argument, documented
// in original_source/libs/functions.cpp as a bug; per spec.md §9 we use
// the complex-swap meaning unconditionally.
func (c Complex) Flip() Complex {
	return Complex{c.Im, c.Re}
}

// Exp matches original_source/libs/Complex.cpp's exp: exp(re) scaled by
// (cos(im), sin(im)).
func Exp(z Complex) Complex {
	r := math.Exp(z.Re)
	return Complex{r * math.Cos(z.Im), r * math.Sin(z.Im)}
}

// Log matches original_source/libs/Complex.cpp's log: magnitude is
// sqrt(re^2+im^2), phase is atan2(im, re) with a negative-zero imaginary
// part normalised to positive zero first (so the principal branch doesn't
// flip sign on an incidental -0.0). Log of zero is undefined behaviour at
// this type's level, matching the original and spec.md §3; callers must
// avoid it.
func Log(z Complex) Complex {
	im := z.Im
	if im == 0.0 {
		im = 0.0
	}
	magnitude := math.Sqrt(z.Re*z.Re + z.Im*z.Im)
	phase := math.Atan2(im, z.Re)
	return Complex{math.Log(magnitude), phase}
}

// Pow matches original_source/libs/Complex.cpp's pow: 0^0 = (1,0), 0^w =
// (0,0) for w != 0, otherwise exp(w * log z).
func Pow(z, w Complex) Complex {
	if z == (Complex{}) {
		if w == (Complex{}) {
			return One
		}
		return Zero
	}
	return Exp(w.Mul(Log(z)))
}
