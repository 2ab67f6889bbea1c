package solver

import (
	"math"

	"github.com/meenmo/fixedincome/config"
)

// Func is a one-dimensional objective whose zero is sought.
type Func func(x float64) float64

// Secant finds a simple zero of a function with the secant method.
//
// The two starting points do not need to bracket a sign change. Failure is
// reported through the returned value: the root is NaN when the iteration
// cap is reached, when a step has a zero denominator, or when the objective
// yields NaN.
type Secant struct {
	MaxIterations int
	Tolerance     float64
}

// Result describes a finished search.
type Result struct {
	Root       float64
	Iterations int
	Converged  bool
}

// New returns a Secant using the iteration cap of cfg and the given tolerance.
func New(cfg config.Config, tolerance float64) Secant {
	cfg = cfg.Normalized()
	return Secant{MaxIterations: cfg.MaxIterations, Tolerance: tolerance}
}

// Default uses the active configuration's cap and rate tolerance.
func Default() Secant {
	cfg := config.GetConfig().Normalized()
	return New(cfg, cfg.Tolerance)
}

// Solve returns the zero of f near [x0, x1], or NaN.
func (s Secant) Solve(f Func, x0, x1 float64) float64 {
	return s.Run(f, x0, x1).Root
}

// Run performs the secant iteration
//
//	x2 = x1 - f(x1)·(x1-x0)/(f(x1)-f(x0))
//
// and stops once |x1 - x2| <= Tolerance.
func (s Secant) Run(f Func, x0, x1 float64) Result {
	maxIter := s.MaxIterations
	if maxIter <= 0 {
		maxIter = config.DefaultConfig.MaxIterations
	}
	tol := s.Tolerance
	if tol <= 0 {
		tol = config.DefaultConfig.Tolerance
	}

	f0 := f(x0)
	f1 := f(x1)
	for iter := 1; iter <= maxIter; iter++ {
		denom := f1 - f0
		if denom == 0 || math.IsNaN(denom) {
			return Result{Root: math.NaN(), Iterations: iter}
		}

		x2 := x1 - f1*(x1-x0)/denom
		if math.IsNaN(x2) || math.IsInf(x2, 0) {
			return Result{Root: math.NaN(), Iterations: iter}
		}
		if math.Abs(x1-x2) <= tol {
			return Result{Root: x2, Iterations: iter, Converged: true}
		}

		x0, f0 = x1, f1
		x1 = x2
		f1 = f(x1)
	}

	return Result{Root: math.NaN(), Iterations: maxIter}
}
