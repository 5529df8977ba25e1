// Package objfun implements the objective functions driving the Potts model
// fit: the exact penalized pseudo-likelihood and the sampling-based
// contrastive divergence approximation.
package objfun

import (
	"fmt"
	"math"

	"pottsfit/internal/model"
)

// ObjectiveFunction is evaluated repeatedly by an optimizer. Evaluate must
// not mutate x; the gradient has the same shape as the potentials.
type ObjectiveFunction interface {
	Name() string
	Evaluate(x *model.Potentials) (float64, *model.Potentials, error)
}

// LearningRateObserver is implemented by objectives that adapt to the
// optimizer's current step size (persistent contrastive divergence switches
// on once the rate is small enough).
type LearningRateObserver interface {
	ObserveLearningRate(alpha float64)
}

// Deps bundles the precomputed inputs every objective consumes.
type Deps struct {
	Alignment model.Alignment
	Weights   []float64
	Neff      float64
	Reg       model.Regularization
	// Frequencies shaped [L,21] and [L,L,21,21] flat, pseudocounts applied.
	SingleFreq []float64
	PairFreq   []float64
	Workers    int
	Seed       int64
}

// Config carries the variant-specific knobs.
type Config struct {
	GibbsSteps  int
	NrSeqSample int
	Persistent  bool
}

func FromConfig(name string, deps Deps, cfg Config) (ObjectiveFunction, error) {
	switch name {
	case "", "pll":
		return NewPseudoLikelihood(deps), nil
	case "cd":
		return NewContrastiveDivergence(deps, cfg)
	default:
		return nil, fmt.Errorf("unsupported objective function: %s", name)
	}
}

// NewRegularization builds the immutable penalty spec. scaling is "1"
// (lambda_pair = factor) or "L" (lambda_pair = factor * (L-1)). Under the
// v-center prior the single-potential mean is v*, the centered
// log-frequency vector per column.
func NewRegularization(lambdaSingle, lambdaPairFactor float64, regType, scaling string, prior string, singleFreq []float64, ncol int) (model.Regularization, error) {
	var rt model.RegType
	switch regType {
	case "", "L2":
		rt = model.RegL2
	case "L1":
		rt = model.RegL1
	default:
		return model.Regularization{}, fmt.Errorf("unsupported regularization type: %s", regType)
	}

	lambdaPair := lambdaPairFactor
	switch scaling {
	case "", "L":
		lambdaPair *= float64(ncol - 1)
	case "1":
	default:
		return model.Regularization{}, fmt.Errorf("unsupported regularization scaling: %s", scaling)
	}

	var pm model.PriorMode
	switch prior {
	case "", string(model.PriorVCenter):
		pm = model.PriorVCenter
	case string(model.PriorVZero):
		pm = model.PriorVZero
	default:
		return model.Regularization{}, fmt.Errorf("unsupported single prior: %s", prior)
	}

	mu := make([]float64, ncol*model.NumStates)
	if pm == model.PriorVCenter {
		copy(mu, VStar(singleFreq, ncol))
	}
	return model.Regularization{
		Type:         rt,
		LambdaSingle: lambdaSingle,
		LambdaPair:   lambdaPair,
		Prior:        pm,
		MuSingle:     mu,
	}, nil
}

// VStar is the gauge-fixed log-frequency single potential: per column the
// log frequencies shifted to zero mean across the 21 states.
func VStar(singleFreq []float64, ncol int) []float64 {
	const floor = 1e-10
	v := make([]float64, ncol*model.NumStates)
	for i := 0; i < ncol; i++ {
		var mean float64
		for a := 0; a < model.NumStates; a++ {
			f := singleFreq[i*model.NumStates+a]
			if f < floor {
				f = floor
			}
			v[i*model.NumStates+a] = math.Log(f)
			mean += v[i*model.NumStates+a]
		}
		mean /= model.NumStates
		for a := 0; a < model.NumStates; a++ {
			v[i*model.NumStates+a] -= mean
		}
	}
	return v
}

// regularize adds the penalty value and gradient for x onto grad and
// returns the penalty value.
func regularize(x *model.Potentials, grad *model.Potentials, reg model.Regularization) float64 {
	var value float64
	switch reg.Type {
	case model.RegL1:
		for k, v := range x.Single {
			d := v - reg.MuSingle[k]
			value += reg.LambdaSingle * math.Abs(d)
			grad.Single[k] += reg.LambdaSingle * sign(d)
		}
		for k, w := range x.Pair {
			value += reg.LambdaPair / 2 * math.Abs(w)
			grad.Pair[k] += reg.LambdaPair / 2 * sign(w)
		}
	default:
		for k, v := range x.Single {
			d := v - reg.MuSingle[k]
			value += reg.LambdaSingle * d * d
			grad.Single[k] += 2 * reg.LambdaSingle * d
		}
		for k, w := range x.Pair {
			value += reg.LambdaPair / 2 * w * w
			grad.Pair[k] += reg.LambdaPair * w
		}
	}
	return value
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
