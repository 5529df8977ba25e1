package optimize

import (
	"context"
	"math"

	"pottsfit/internal/model"
	"pottsfit/internal/objfun"
)

// Adam is the bias-corrected moment-ratio update with a third coefficient
// beta3 smoothing the per-step update over time. Shares the
// convergence/decay policy with gradient descent.
type Adam struct {
	MaxIterations int
	Alpha0        float64
	Beta1         float64
	Beta2         float64
	Beta3         float64
	FixV          bool
	Policy        ConvergencePolicy
	Decay         DecaySchedule
	OnStep        StepFunc
}

func (a *Adam) Name() string { return "adam" }

func (a *Adam) Minimize(ctx context.Context, f objfun.ObjectiveFunction, x0 *model.Potentials) (model.Result, error) {
	const eps = 1e-8
	x := x0.Clone()
	m := model.NewPotentials(x.NCol)
	v := model.NewPotentials(x.NCol)
	step := model.NewPotentials(x.NCol)
	var lastFx float64

	for it := 1; it <= a.MaxIterations; it++ {
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
		a.Policy.Record(xnorm)
		rel := a.Policy.RelativeChange()
		alpha := a.Decay.Alpha(a.Alpha0, it, rel)
		observeLearningRate(f, alpha)

		if a.OnStep != nil {
			a.OnStep(model.TrajectoryPoint{Iteration: it, Value: fx, GradNorm: gradNorm(grad), XNorm: xnorm, Alpha: alpha})
		}
		if a.Policy.Converged() {
			return model.Result{Potentials: x, ExitCode: it, Iterations: it, FinalValue: fx, Message: "converged"}, nil
		}

		c1 := 1 - math.Pow(a.Beta1, float64(it))
		c2 := 1 - math.Pow(a.Beta2, float64(it))
		update := func(mv, vv, sv, gv, xv []float64) {
			for k := range gv {
				mv[k] = a.Beta1*mv[k] + (1-a.Beta1)*gv[k]
				vv[k] = a.Beta2*vv[k] + (1-a.Beta2)*gv[k]*gv[k]
				mhat := mv[k] / c1
				vhat := vv[k] / c2
				delta := alpha * mhat / (math.Sqrt(vhat) + eps)
				sv[k] = a.Beta3*sv[k] + (1-a.Beta3)*delta
				xv[k] -= sv[k]
			}
		}
		if !a.FixV {
			update(m.Single, v.Single, step.Single, grad.Single, x.Single)
		}
		update(m.Pair, v.Pair, step.Pair, grad.Pair, x.Pair)
	}
	return model.Result{Potentials: x, ExitCode: model.ExitMaxIterations, Iterations: a.MaxIterations, FinalValue: lastFx, Message: "iteration budget exhausted"}, nil
}
