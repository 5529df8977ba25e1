// Package optimize implements the iterative minimizers driving the model
// fit. All variants share the convergence and decay policy and the
// Result/exit-code contract.
package optimize

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"

	"pottsfit/internal/model"
	"pottsfit/internal/objfun"
)

// Optimizer minimizes an objective function starting from initial
// potentials. Numerical failures are reported through Result.ExitCode;
// the error return is reserved for setup problems and context cancellation.
type Optimizer interface {
	Name() string
	Minimize(ctx context.Context, f objfun.ObjectiveFunction, x0 *model.Potentials) (model.Result, error)
}

// StepFunc receives one trajectory point per iteration.
type StepFunc func(model.TrajectoryPoint)

func gradNorm(g *model.Potentials) float64 {
	s := floats.Norm(g.Single, 2)
	p := floats.Norm(g.Pair, 2)
	return math.Hypot(s, p)
}

// axpy adds a*src onto dst, optionally leaving the single potentials fixed.
func axpy(dst *model.Potentials, a float64, src *model.Potentials, fixV bool) {
	if !fixV {
		floats.AddScaled(dst.Single, a, src.Single)
	}
	floats.AddScaled(dst.Pair, a, src.Pair)
}

func dot(a, b *model.Potentials) float64 {
	return floats.Dot(a.Single, b.Single) + floats.Dot(a.Pair, b.Pair)
}

func observeLearningRate(f objfun.ObjectiveFunction, alpha float64) {
	if obs, ok := f.(objfun.LearningRateObserver); ok {
		obs.ObserveLearningRate(alpha)
	}
}
