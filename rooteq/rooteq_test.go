package rooteq

import (
	"math"
	"testing"
)

func sqrt2() Func[float64] {
	return Func[float64]{
		F:  func(x float64) float64 { return x*x - 2 },
		DF: func(x float64) float64 { return 2 * x },
	}
}

func TestSolveConverges(t *testing.T) {
	solver := NewtonRaphson[float64]{Equation: sqrt2(), Tolerance: 1e-12, MaxIterations: 50}
	got := solver.Solve(1.0)
	if math.Abs(got-math.Sqrt2) > 1e-12 {
		t.Fatalf("Solve(1.0) = %.15f, want %.15f", got, math.Sqrt2)
	}
}

func TestSolveStopsEarly(t *testing.T) {
	calls := 0
	eq := Func[float64]{
		F: func(x float64) float64 {
			calls++
			return x*x - 2
		},
		DF: func(x float64) float64 { return 2 * x },
	}
	NewtonRaphson[float64]{Equation: eq, Tolerance: 1e-6, MaxIterations: 100}.Solve(1.0)
	if calls >= 100 || calls == 0 {
		t.Fatalf("expected an early stop, evaluated %d times", calls)
	}
}

func TestSolveExhaustsIterationsSilently(t *testing.T) {
	// One step from 1.0 lands on 1.5; no error marks the unconverged result.
	solver := NewtonRaphson[float64]{Equation: sqrt2(), Tolerance: 1e-12, MaxIterations: 1}
	if got := solver.Solve(1.0); got != 1.5 {
		t.Fatalf("Solve with one iteration = %v, want 1.5", got)
	}

	none := NewtonRaphson[float64]{Equation: sqrt2(), Tolerance: 1e-12}
	if got := none.Solve(1.0); got != 1.0 {
		t.Fatalf("Solve with no iterations = %v, want the initial guess", got)
	}
}

func TestSolveZeroDerivative(t *testing.T) {
	// f'(0) = 0: the step is unguarded and the estimate leaves the finite range.
	solver := NewtonRaphson[float64]{Equation: sqrt2(), Tolerance: 1e-12, MaxIterations: 5}
	got := solver.Solve(0)
	if !math.IsInf(got, 0) && !math.IsNaN(got) {
		t.Fatalf("Solve(0) = %v, want a non-finite value", got)
	}
}

func TestSolveLinearInOneStep(t *testing.T) {
	eq := Func[float64]{
		F:  func(x float64) float64 { return 3 - x },
		DF: func(float64) float64 { return -1 },
	}
	solver := NewtonRaphson[float64]{Equation: eq, Tolerance: 1e-10, MaxIterations: 100}
	if got := solver.Solve(0.25); got != 3 {
		t.Fatalf("Solve = %v, want 3", got)
	}
}

func TestSolveSignedInteger(t *testing.T) {
	eq := Func[int64]{
		F:  func(x int64) int64 { return 3*x - 21 },
		DF: func(int64) int64 { return 3 },
	}
	solver := NewtonRaphson[int64]{Equation: eq, Tolerance: 1, MaxIterations: 20}
	if got := solver.Solve(100); got != 7 {
		t.Fatalf("Solve = %d, want 7", got)
	}
}
