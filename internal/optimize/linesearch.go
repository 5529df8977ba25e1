package optimize

import (
	"pottsfit/internal/model"
	"pottsfit/internal/objfun"
)

// backtrack halves alpha until the Armijo sufficient-decrease condition
// f(x+alpha*d) <= fx + c1*alpha*slope holds, trying at most maxTrials
// steps. Returns the accepted point and its evaluation.
func backtrack(f objfun.ObjectiveFunction, x, d *model.Potentials, fx, slope, alpha, c1 float64, maxTrials int) (xNew *model.Potentials, fxNew float64, gNew *model.Potentials, accepted float64, ok bool) {
	for trial := 0; trial < maxTrials; trial++ {
		cand := x.Clone()
		axpy(cand, alpha, d, false)
		fxC, gC, err := f.Evaluate(cand)
		if err == nil && gC.Finite() && fxC <= fx+c1*alpha*slope {
			return cand, fxC, gC, alpha, true
		}
		alpha /= 2
	}
	return nil, 0, nil, 0, false
}
