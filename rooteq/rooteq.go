// Package rooteq finds roots of scalar equations iteratively.
package rooteq

import "golang.org/x/exp/constraints"

// Scalar is any numeric type the solver can iterate over.
type Scalar interface {
	constraints.Float | constraints.Signed
}

// Equation exposes a function and its first derivative.
type Equation[T Scalar] interface {
	Root(x T) T
	Diff(x T) T
}

// Func adapts a pair of closures to Equation.
type Func[T Scalar] struct {
	F  func(T) T
	DF func(T) T
}

func (f Func[T]) Root(x T) T { return f.F(x) }
func (f Func[T]) Diff(x T) T { return f.DF(x) }

// NewtonRaphson iterates x -= f(x)/f'(x) from an initial guess.
//
// Solve stops as soon as a step is smaller than Tolerance, or after
// MaxIterations steps, and returns the current estimate either way. Callers
// cannot tell the two outcomes apart. A zero derivative is not guarded:
// float scalars produce ±Inf or NaN and signed integers panic.
type NewtonRaphson[T Scalar] struct {
	Equation      Equation[T]
	Tolerance     T
	MaxIterations int
}

// Solve returns the estimated root starting from x.
func (n NewtonRaphson[T]) Solve(x T) T {
	for i := 0; i < n.MaxIterations; i++ {
		step := n.Equation.Root(x) / n.Equation.Diff(x)
		x -= step
		if step < 0 {
			step = -step
		}
		if step < n.Tolerance {
			break
		}
	}
	return x
}
