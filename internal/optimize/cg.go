package optimize

import (
	"context"

	"gonum.org/v1/gonum/floats"

	"pottsfit/internal/model"
	"pottsfit/internal/objfun"
)

const (
	cgArmijoC1      = 1e-4
	cgMaxLinesearch = 20
)

// ConjugateGradient is nonlinear CG with Polak-Ribiere direction updates
// and an Armijo backtracking line search. Uses only the convergence test of
// the shared policy, never decay.
type ConjugateGradient struct {
	MaxIterations int
	Policy        ConvergencePolicy
	OnStep        StepFunc
}

func (c *ConjugateGradient) Name() string { return "conjugate_gradients" }

func (c *ConjugateGradient) Minimize(ctx context.Context, f objfun.ObjectiveFunction, x0 *model.Potentials) (model.Result, error) {
	x := x0.Clone()
	fx, g, err := f.Evaluate(x)
	if err != nil {
		return model.Result{Potentials: x, ExitCode: model.ExitDiverged, Message: err.Error()}, nil
	}
	if !g.Finite() {
		return model.Result{Potentials: x, ExitCode: model.ExitNonFiniteGrad, Message: "gradient contains non-finite values"}, nil
	}

	d := negated(g)
	alpha := initialStep(g)

	for it := 1; it <= c.MaxIterations; it++ {
		if err := ctx.Err(); err != nil {
			return model.Result{}, err
		}
		c.Policy.Record(fx)
		if c.OnStep != nil {
			c.OnStep(model.TrajectoryPoint{Iteration: it, Value: fx, GradNorm: gradNorm(g), XNorm: x.Norm(), Alpha: alpha})
		}
		if c.Policy.Converged() {
			return model.Result{Potentials: x, ExitCode: it, Iterations: it, FinalValue: fx, Message: "converged"}, nil
		}

		slope := dot(g, d)
		if slope >= 0 {
			// Not a descent direction: restart along steepest descent.
			d = negated(g)
			slope = dot(g, d)
		}

		xNew, fxNew, gNew, accepted, ok := backtrack(f, x, d, fx, slope, alpha, cgArmijoC1, cgMaxLinesearch)
		if !ok {
			return model.Result{Potentials: x, ExitCode: model.ExitLineSearchFailed, Iterations: it, FinalValue: fx, Message: "line search cannot find a descent step"}, nil
		}

		beta := polakRibiere(g, gNew)
		floats.Scale(beta, d.Single)
		floats.Scale(beta, d.Pair)
		axpy(d, -1, gNew, false)

		x, fx, g = xNew, fxNew, gNew
		alpha = accepted * 2
	}
	return model.Result{Potentials: x, ExitCode: model.ExitMaxIterations, Iterations: c.MaxIterations, FinalValue: fx, Message: "iteration budget exhausted"}, nil
}

func negated(g *model.Potentials) *model.Potentials {
	d := g.Clone()
	floats.Scale(-1, d.Single)
	floats.Scale(-1, d.Pair)
	return d
}

func initialStep(g *model.Potentials) float64 {
	gn := gradNorm(g)
	if gn <= 1 {
		return 1
	}
	return 1 / gn
}

func polakRibiere(g, gNew *model.Potentials) float64 {
	gg := dot(g, g)
	if gg == 0 {
		return 0
	}
	beta := (dot(gNew, gNew) - dot(gNew, g)) / gg
	if beta < 0 {
		return 0
	}
	return beta
}
