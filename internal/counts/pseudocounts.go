package counts

import (
	"fmt"

	"pottsfit/internal/model"
)

// PseudocountKind selects the background distribution admixed into
// frequencies.
type PseudocountKind string

const (
	PseudocountUniform  PseudocountKind = "uniform"
	PseudocountSubmat   PseudocountKind = "submat"
	PseudocountConstant PseudocountKind = "constant"
	PseudocountNone     PseudocountKind = "none"
)

// Pseudocount is the two-field configuration value behind the pseudocount
// selector: which background to use and how many counts to admix for single
// and pair frequencies.
type Pseudocount struct {
	Kind        PseudocountKind
	SingleCount float64
	PairCount   float64
}

func PseudocountFromConfig(name string, singleCount, pairCount int) (Pseudocount, error) {
	var kind PseudocountKind
	switch name {
	case "", "uniform", "uniform_pseudocounts":
		kind = PseudocountUniform
	case "submat", "substitution_matrix_pseudocounts":
		kind = PseudocountSubmat
	case "constant", "constant_pseudocounts":
		kind = PseudocountConstant
	case "none", "no_pseudocounts":
		kind = PseudocountNone
	default:
		return Pseudocount{}, fmt.Errorf("unsupported pseudocount scheme: %s", name)
	}
	if singleCount < 0 || pairCount < 0 {
		return Pseudocount{}, fmt.Errorf("pseudocount counts must be >= 0, got %d/%d", singleCount, pairCount)
	}
	return Pseudocount{Kind: kind, SingleCount: float64(singleCount), PairCount: float64(pairCount)}, nil
}

// Amino-acid background distribution (Robinson & Robinson 1991), indexed by
// the 20 non-gap symbol states. The gap state gets zero background mass.
var backgroundFreq = [model.NumAmino]float64{
	0.07805, 0.05129, 0.04487, 0.05364, 0.01925,
	0.04264, 0.06295, 0.07377, 0.02199, 0.05142,
	0.09019, 0.05744, 0.02243, 0.03856, 0.05203,
	0.07120, 0.05841, 0.01330, 0.03216, 0.06441,
}

// distribution returns the per-state background for the configured kind,
// normalized to sum to 1 over the 21 states.
func (p Pseudocount) distribution(singleCounts []float64, ncol int) []float64 {
	dist := make([]float64, model.NumStates)
	switch p.Kind {
	case PseudocountUniform:
		for a := range dist {
			dist[a] = 1.0 / float64(model.NumStates)
		}
	case PseudocountSubmat:
		for a := 0; a < model.NumAmino; a++ {
			dist[a] = backgroundFreq[a]
		}
	case PseudocountConstant:
		var total float64
		for i := 0; i < ncol; i++ {
			for a := 0; a < model.NumStates; a++ {
				dist[a] += singleCounts[singleIndex(i, a)]
				total += singleCounts[singleIndex(i, a)]
			}
		}
		if total > 0 {
			for a := range dist {
				dist[a] /= total
			}
		}
	case PseudocountNone:
	}
	return dist
}

// SingleFrequencies normalizes single counts per column over the 21 states
// after admixing SingleCount background counts.
func SingleFrequencies(singleCounts []float64, ncol int, pc Pseudocount) []float64 {
	dist := pc.distribution(singleCounts, ncol)
	alpha := pc.SingleCount
	if pc.Kind == PseudocountNone {
		alpha = 0
	}
	freq := make([]float64, len(singleCounts))
	for i := 0; i < ncol; i++ {
		var rowSum float64
		for a := 0; a < model.NumStates; a++ {
			rowSum += singleCounts[singleIndex(i, a)]
		}
		denom := rowSum + alpha
		if denom == 0 {
			continue
		}
		for a := 0; a < model.NumStates; a++ {
			freq[singleIndex(i, a)] = (singleCounts[singleIndex(i, a)] + alpha*dist[a]) / denom
		}
	}
	return freq
}

// PairFrequencies normalizes pair counts per column pair over the 441 cells
// after admixing PairCount background counts with a product background.
func PairFrequencies(pairCounts, singleCounts []float64, ncol int, pc Pseudocount) []float64 {
	dist := pc.distribution(singleCounts, ncol)
	alpha := pc.PairCount
	if pc.Kind == PseudocountNone {
		alpha = 0
	}
	freq := make([]float64, len(pairCounts))
	for i := 0; i < ncol; i++ {
		for j := 0; j < ncol; j++ {
			var cellSum float64
			for a := 0; a < model.NumStates; a++ {
				for b := 0; b < model.NumStates; b++ {
					cellSum += pairCounts[pairIndex(ncol, i, j, a, b)]
				}
			}
			denom := cellSum + alpha
			if denom == 0 {
				continue
			}
			for a := 0; a < model.NumStates; a++ {
				for b := 0; b < model.NumStates; b++ {
					idx := pairIndex(ncol, i, j, a, b)
					freq[idx] = (pairCounts[idx] + alpha*dist[a]*dist[b]) / denom
				}
			}
		}
	}
	return freq
}
