package optimize

import (
	"context"

	"pottsfit/internal/model"
	"pottsfit/internal/objfun"
)

// GradientDescent is plain first-order descent with the shared
// convergence/decay policy. Built for noisy contrastive-divergence
// gradients: convergence tracks the parameter norm, not the objective.
type GradientDescent struct {
	MaxIterations int
	Alpha0        float64
	FixV          bool
	Policy        ConvergencePolicy
	Decay         DecaySchedule
	OnStep        StepFunc
}

func (g *GradientDescent) Name() string { return "gradient_descent" }

func (g *GradientDescent) Minimize(ctx context.Context, f objfun.ObjectiveFunction, x0 *model.Potentials) (model.Result, error) {
	x := x0.Clone()
	var lastFx float64

	for it := 1; it <= g.MaxIterations; it++ {
		if err := ctx.Err(); err != nil {
			return model.Result{}, err
		}
		fx, grad, err := f.Evaluate(x)
		if err != nil {
			return model.Result{Potentials: x, ExitCode: model.ExitDiverged, Iterations: it, Message: err.Error()}, nil
		}
		if !grad.Finite() {
			return model.Result{Potentials: x, ExitCode: model.ExitNonFiniteGrad, Iterations: it, FinalValue: fx, Message: "gradient contains non-finite values"}, nil
		}
		lastFx = fx

		xnorm := x.Norm()
		g.Policy.Record(xnorm)
		rel := g.Policy.RelativeChange()
		alpha := g.Decay.Alpha(g.Alpha0, it, rel)
		observeLearningRate(f, alpha)

		if g.OnStep != nil {
			g.OnStep(model.TrajectoryPoint{Iteration: it, Value: fx, GradNorm: gradNorm(grad), XNorm: xnorm, Alpha: alpha})
		}
		if g.Policy.Converged() {
			return model.Result{Potentials: x, ExitCode: it, Iterations: it, FinalValue: fx, Message: "converged"}, nil
		}

		axpy(x, -alpha, grad, g.FixV)
	}
	return model.Result{Potentials: x, ExitCode: model.ExitMaxIterations, Iterations: g.MaxIterations, FinalValue: lastFx, Message: "iteration budget exhausted"}, nil
}
