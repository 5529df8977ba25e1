package optimize

import (
	"context"

	"gonum.org/v1/gonum/floats"

	"pottsfit/internal/model"
	"pottsfit/internal/objfun"
)

// LBFGS is the limited-memory quasi-Newton method: a two-loop recursion
// over the last MaxCor correction pairs with an Armijo backtracking line
// search bounded by MaxLinesearch trials. Ftol is the sufficient-decrease
// coefficient.
type LBFGS struct {
	MaxIterations int
	Ftol          float64
	MaxLinesearch int
	MaxCor        int
	Policy        ConvergencePolicy
	OnStep        StepFunc
}

func (l *LBFGS) Name() string { return "lbfgs" }

type correctionPair struct {
	s   *model.Potentials
	y   *model.Potentials
	rho float64
}

func (l *LBFGS) Minimize(ctx context.Context, f objfun.ObjectiveFunction, x0 *model.Potentials) (model.Result, error) {
	x := x0.Clone()
	fx, g, err := f.Evaluate(x)
	if err != nil {
		return model.Result{Potentials: x, ExitCode: model.ExitDiverged, Message: err.Error()}, nil
	}
	if !g.Finite() {
		return model.Result{Potentials: x, ExitCode: model.ExitNonFiniteGrad, Message: "gradient contains non-finite values"}, nil
	}

	var history []correctionPair
	alpha := initialStep(g)

	for it := 1; it <= l.MaxIterations; it++ {
		if err := ctx.Err(); err != nil {
			return model.Result{}, err
		}
		l.Policy.Record(fx)
		if l.OnStep != nil {
			l.OnStep(model.TrajectoryPoint{Iteration: it, Value: fx, GradNorm: gradNorm(g), XNorm: x.Norm(), Alpha: alpha})
		}
		if l.Policy.Converged() {
			return model.Result{Potentials: x, ExitCode: it, Iterations: it, FinalValue: fx, Message: "converged"}, nil
		}

		d := l.direction(g, history)
		slope := dot(g, d)
		if slope >= 0 {
			history = history[:0]
			d = negated(g)
			slope = dot(g, d)
		}

		xNew, fxNew, gNew, accepted, ok := backtrack(f, x, d, fx, slope, alpha, l.Ftol, l.MaxLinesearch)
		if !ok {
			return model.Result{Potentials: x, ExitCode: model.ExitLineSearchFailed, Iterations: it, FinalValue: fx, Message: "line search cannot find a descent step"}, nil
		}

		s := d.Clone()
		floats.Scale(accepted, s.Single)
		floats.Scale(accepted, s.Pair)
		y := gNew.Clone()
		axpy(y, -1, g, false)
		if sy := dot(s, y); sy > 1e-10 {
			history = append(history, correctionPair{s: s, y: y, rho: 1 / sy})
			if len(history) > l.MaxCor {
				history = history[1:]
			}
		}

		x, fx, g = xNew, fxNew, gNew
		alpha = 1
	}
	return model.Result{Potentials: x, ExitCode: model.ExitMaxIterations, Iterations: l.MaxIterations, FinalValue: fx, Message: "iteration budget exhausted"}, nil
}

// direction runs the two-loop recursion, scaling the seed Hessian by the
// most recent curvature pair.
func (l *LBFGS) direction(g *model.Potentials, history []correctionPair) *model.Potentials {
	q := negated(g)
	if len(history) == 0 {
		return q
	}
	coeffs := make([]float64, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		h := history[i]
		coeffs[i] = h.rho * dot(h.s, q)
		axpy(q, -coeffs[i], h.y, false)
	}
	last := history[len(history)-1]
	gamma := dot(last.s, last.y) / dot(last.y, last.y)
	floats.Scale(gamma, q.Single)
	floats.Scale(gamma, q.Pair)
	for i := 0; i < len(history); i++ {
		h := history[i]
		beta := h.rho * dot(h.y, q)
		axpy(q, coeffs[i]-beta, h.s, false)
	}
	return q
}
