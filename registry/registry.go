// Package registry is the formula language's builtin function table:
// name -> scalar and/or complex implementation, grounded on
// original_source/libs/functions.cpp's FunctionMap (a sorted array
// binary-searched by name; Go's map gives the same name->fn lookup
// without hand-rolling the search) and on the Declare/Declaration idiom
// in _examples/launix-de-memcp/scm/declare.go (name, description,
// arity, callback, looked up once into a package-level table at init
// time).
package registry

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/launix-de/formula-compiler/complexnum"
)

// RealFunction operates on the real part only and returns a real result,
// matching original_source/libs/functions.h's RealFunction = double(double).
type RealFunction func(rng *rand.Rand, arg float64) float64

// ComplexFunction operates on a full complex value and returns a complex
// result, matching ComplexFunction = Complex(const Complex&).
type ComplexFunction func(rng *rand.Rand, arg complexnum.Complex) complexnum.Complex

// Declaration is one builtin function's registration record.
type Declaration struct {
	Name    string
	Desc    string
	Real    RealFunction    // nil if this function has no scalar overload
	Complex ComplexFunction // nil if this function has no complex overload
}

var table = map[string]*Declaration{}

func declare(d Declaration) {
	table[d.Name] = &d
}

// Lookup returns the Declaration for name, or nil if name is not a
// builtin function.
func Lookup(name string) *Declaration {
	return table[name]
}

// ErrUnknownFunction is returned by Evaluate when name has neither a
// complex nor a real implementation (spec.md §7's "UnknownFunction").
type ErrUnknownFunction struct {
	Name string
}

func (e *ErrUnknownFunction) Error() string {
	return fmt.Sprintf("unknown function: %s", e.Name)
}

// Evaluate dispatches name on arg: the complex overload if one exists,
// else the real overload applied to arg.Re with a zero imaginary part,
// else ErrUnknownFunction — matching original_source/libs/functions.cpp's
// evaluate(name, Complex) dispatch order exactly.
func Evaluate(rng *rand.Rand, name string, arg complexnum.Complex) (complexnum.Complex, error) {
	d := table[name]
	if d == nil {
		return complexnum.Zero, &ErrUnknownFunction{Name: name}
	}
	if d.Complex != nil {
		return d.Complex(rng, arg), nil
	}
	if d.Real != nil {
		return complexnum.New(d.Real(rng, arg.Re), 0), nil
	}
	return complexnum.Zero, &ErrUnknownFunction{Name: name}
}

// scalar wraps a pure math.XxxFunction as a RealFunction ignoring rng.
func scalar(f func(float64) float64) RealFunction {
	return func(_ *rand.Rand, x float64) float64 { return f(x) }
}

func init() {
	declare(Declaration{Name: "sin", Real: scalar(math.Sin)})
	declare(Declaration{Name: "cos", Real: scalar(math.Cos)})
	declare(Declaration{Name: "sinh", Real: scalar(math.Sinh)})
	declare(Declaration{Name: "cosh", Real: scalar(math.Cosh)})
	// cosxx(arg) = cos(arg)*cosh(arg); original_source/libs/functions.cpp
	// marks this "bogus and needs to be corrected for complex argument" —
	// we keep the documented scalar behaviour rather than inventing a
	// complex generalisation the original never specifies.
	declare(Declaration{Name: "cosxx", Real: func(_ *rand.Rand, x float64) float64 {
		return math.Cos(x) * math.Cosh(x)
	}})
	declare(Declaration{Name: "tan", Real: scalar(math.Tan)})
	declare(Declaration{Name: "cotan", Real: func(_ *rand.Rand, x float64) float64 {
		return math.Cos(x) / math.Sin(x)
	}})
	declare(Declaration{Name: "tanh", Real: scalar(math.Tanh)})
	declare(Declaration{Name: "cotanh", Real: func(_ *rand.Rand, x float64) float64 {
		return math.Cosh(x) / math.Sinh(x)
	}})
	declare(Declaration{Name: "sqr", Real: func(_ *rand.Rand, x float64) float64 { return x * x }})
	declare(Declaration{
		Name:    "log",
		Real:    scalar(math.Log),
		Complex: func(_ *rand.Rand, z complexnum.Complex) complexnum.Complex { return complexnum.Log(z) },
	})
	declare(Declaration{
		Name:    "exp",
		Real:    scalar(math.Exp),
		Complex: func(_ *rand.Rand, z complexnum.Complex) complexnum.Complex { return complexnum.Exp(z) },
	})
	declare(Declaration{
		Name: "abs",
		Real: scalar(math.Abs),
		Complex: func(_ *rand.Rand, z complexnum.Complex) complexnum.Complex {
			return z.Abs()
		},
	})
	declare(Declaration{
		// conj(double) = -arg is the documented reference bug (the real
		// overload of a function whose natural definition is complex),
		// kept as in the original. Evaluate always prefers the Complex
		// overload, and the JIT inlines conj as a complex conjugate, so
		// this scalar overload is never reached by either evaluator.
		Name:    "conj",
		Real:    func(_ *rand.Rand, x float64) float64 { return -x },
		Complex: func(_ *rand.Rand, z complexnum.Complex) complexnum.Complex { return z.Conj() },
	})
	declare(Declaration{Name: "real", Real: scalar(func(x float64) float64 { return x })})
	declare(Declaration{
		Name: "imag",
		Real: func(_ *rand.Rand, x float64) float64 { return -x },
	})
	declare(Declaration{
		// flip: per spec.md §9, the complex-swap meaning is used
		// everywhere. Evaluate always picks the Complex overload, so a
		// real operand (x, 0) becomes (0, x). The Real overload returns
		// the real part of that swap, which is always 0, and is never
		// reached through Evaluate.
		Name: "flip",
		Real: func(_ *rand.Rand, x float64) float64 { return complexnum.New(x, 0).Flip().Re },
		Complex: func(_ *rand.Rand, z complexnum.Complex) complexnum.Complex {
			return z.Flip()
		},
	})
	identity := func(_ *rand.Rand, x float64) float64 { return x }
	declare(Declaration{Name: "fn1", Real: identity})
	declare(Declaration{Name: "fn2", Real: identity})
	declare(Declaration{Name: "fn3", Real: identity})
	declare(Declaration{Name: "fn4", Real: identity})
	declare(Declaration{
		Name:    "ident",
		Real:    identity,
		Complex: func(_ *rand.Rand, z complexnum.Complex) complexnum.Complex { return z },
	})
	declare(Declaration{Name: "srand", Real: func(rng *rand.Rand, x float64) float64 {
		rng.Seed(int64(x))
		return x
	}})
	declare(Declaration{Name: "asin", Real: scalar(math.Asin)})
	declare(Declaration{Name: "acos", Real: scalar(math.Acos)})
	declare(Declaration{Name: "asinh", Real: scalar(math.Asinh)})
	declare(Declaration{Name: "acosh", Real: scalar(math.Acosh)})
	declare(Declaration{Name: "atan", Real: scalar(math.Atan)})
	declare(Declaration{Name: "atanh", Real: scalar(math.Atanh)})
	declare(Declaration{Name: "sqrt", Real: scalar(math.Sqrt)})
	declare(Declaration{Name: "cabs", Real: scalar(math.Abs)})
	declare(Declaration{Name: "floor", Real: scalar(math.Floor)})
	declare(Declaration{Name: "ceil", Real: scalar(math.Ceil)})
	declare(Declaration{Name: "trunc", Real: scalar(math.Trunc)})
	declare(Declaration{Name: "round", Real: scalar(math.Round)})
	declare(Declaration{
		Name:    "one",
		Real:    func(_ *rand.Rand, _ float64) float64 { return 1 },
		Complex: func(_ *rand.Rand, _ complexnum.Complex) complexnum.Complex { return complexnum.One },
	})
	declare(Declaration{
		Name:    "zero",
		Real:    func(_ *rand.Rand, _ float64) float64 { return 0 },
		Complex: func(_ *rand.Rand, _ complexnum.Complex) complexnum.Complex { return complexnum.Zero },
	})
}
