package objfun

import (
	"errors"
	"math"

	"pottsfit/internal/model"
)

// PseudoLikelihood is the exact penalized negative pseudo-log-likelihood:
// for every sequence and column, the conditional log-probability of the
// observed symbol given the rest of the sequence under the current
// potentials, weighted by the sequence weight. Deterministic.
type PseudoLikelihood struct {
	aln     model.Alignment
	weights []float64
	reg     model.Regularization

	// Evaluations counts Evaluate calls for diagnostics only.
	Evaluations int
}

func NewPseudoLikelihood(deps Deps) *PseudoLikelihood {
	return &PseudoLikelihood{
		aln:     deps.Alignment,
		weights: deps.Weights,
		reg:     deps.Reg,
	}
}

func (p *PseudoLikelihood) Name() string { return "pll" }

func (p *PseudoLikelihood) Evaluate(x *model.Potentials) (float64, *model.Potentials, error) {
	ncol := p.aln.L()
	if x.NCol != ncol {
		return 0, nil, errors.New("potentials do not match alignment columns")
	}
	p.Evaluations++

	grad := model.NewPotentials(ncol)
	var fx float64
	var g [model.NumStates]float64
	var prob [model.NumStates]float64

	for n, seq := range p.aln.Seqs {
		wn := p.weights[n]
		if wn == 0 {
			continue
		}
		for i := 0; i < ncol; i++ {
			si := int(seq[i])
			for a := 0; a < model.NumStates; a++ {
				g[a] = x.V(i, a)
			}
			for j := 0; j < ncol; j++ {
				if j == i {
					continue
				}
				sj := int(seq[j])
				base := x.PairIndex(i, j, 0, sj)
				for a := 0; a < model.NumStates; a++ {
					g[a] += x.Pair[base+a*model.NumStates]
				}
			}

			lse := logSumExp(g[:])
			fx -= wn * (g[si] - lse)
			for a := 0; a < model.NumStates; a++ {
				prob[a] = math.Exp(g[a] - lse)
			}

			grad.Single[grad.SingleIndex(i, si)] -= wn
			for a := 0; a < model.NumStates; a++ {
				grad.Single[grad.SingleIndex(i, a)] += wn * prob[a]
			}
			for j := 0; j < ncol; j++ {
				if j == i {
					continue
				}
				sj := int(seq[j])
				base := grad.PairIndex(i, j, 0, sj)
				for a := 0; a < model.NumStates; a++ {
					grad.Pair[base+a*model.NumStates] += wn * prob[a]
				}
				grad.Pair[grad.PairIndex(i, j, si, sj)] -= wn
			}
		}
	}

	symmetrizeGradient(grad)
	fx += regularize(x, grad, p.reg)
	return fx, grad, nil
}

// symmetrizeGradient folds the two conditional contributions of each tied
// pair parameter into both mirrored cells, keeping w[i,j,a,b] == w[j,i,b,a]
// under elementwise updates.
func symmetrizeGradient(grad *model.Potentials) {
	ncol := grad.NCol
	for i := 0; i < ncol; i++ {
		for j := i + 1; j < ncol; j++ {
			for a := 0; a < model.NumStates; a++ {
				for b := 0; b < model.NumStates; b++ {
					ij := grad.PairIndex(i, j, a, b)
					ji := grad.PairIndex(j, i, b, a)
					s := grad.Pair[ij] + grad.Pair[ji]
					grad.Pair[ij] = s
					grad.Pair[ji] = s
				}
			}
		}
	}
}

func logSumExp(xs []float64) float64 {
	max := xs[0]
	for _, v := range xs[1:] {
		if v > max {
			max = v
		}
	}
	var sum float64
	for _, v := range xs {
		sum += math.Exp(v - max)
	}
	return max + math.Log(sum)
}
