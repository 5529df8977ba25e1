package counts

import (
	"fmt"

	"pottsfit/internal/model"
)

// Weighter assigns one non-negative weight per sequence to down-weight
// near-duplicate sequences. sum(weights) <= N always holds.
type Weighter interface {
	Name() string
	Weights(aln model.Alignment) []float64
}

type UniformWeighter struct{}

func (UniformWeighter) Name() string { return "uniform" }

func (UniformWeighter) Weights(aln model.Alignment) []float64 {
	w := make([]float64, aln.N())
	for i := range w {
		w[i] = 1
	}
	return w
}

// SimpleWeighter gives every sequence weight 1/k where k is the number of
// alignment members (itself included) sharing at least Cutoff fractional
// identity with it.
type SimpleWeighter struct {
	Cutoff     float64
	IgnoreGaps bool
}

func (SimpleWeighter) Name() string { return "simple" }

func (s SimpleWeighter) Weights(aln model.Alignment) []float64 {
	n := aln.N()
	neighbors := make([]int, n)
	for i := range neighbors {
		neighbors[i] = 1
	}
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			if s.identity(aln.Seqs[a], aln.Seqs[b]) >= s.Cutoff {
				neighbors[a]++
				neighbors[b]++
			}
		}
	}
	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(neighbors[i])
	}
	return w
}

func (s SimpleWeighter) identity(x, y []uint8) float64 {
	matches, length := 0, 0
	for i := range x {
		if s.IgnoreGaps && x[i] == model.GapState && y[i] == model.GapState {
			continue
		}
		length++
		if x[i] == y[i] {
			matches++
		}
	}
	if length == 0 {
		return 0
	}
	return float64(matches) / float64(length)
}

// HenikoffWeighter implements position-based sequence weights: each column
// contributes 1/(r*s) to a sequence holding one of s copies of a symbol in a
// column with r distinct symbols. Weights are rescaled to sum to N.
type HenikoffWeighter struct{}

func (HenikoffWeighter) Name() string { return "henikoff" }

func (HenikoffWeighter) Weights(aln model.Alignment) []float64 {
	n, ncol := aln.N(), aln.L()
	w := make([]float64, n)
	var colCounts [model.NumStates]int
	for i := 0; i < ncol; i++ {
		for s := range colCounts {
			colCounts[s] = 0
		}
		for _, seq := range aln.Seqs {
			colCounts[seq[i]]++
		}
		distinct := 0
		for _, c := range colCounts {
			if c > 0 {
				distinct++
			}
		}
		for nIdx, seq := range aln.Seqs {
			w[nIdx] += 1 / float64(distinct*colCounts[seq[i]])
		}
	}
	var total float64
	for _, v := range w {
		total += v
	}
	if total > 0 {
		scale := float64(n) / total
		for i := range w {
			w[i] *= scale
		}
	}
	return w
}

func WeighterFromConfig(name string, cutoff float64, ignoreGaps bool) (Weighter, error) {
	switch name {
	case "", "simple":
		if cutoff <= 0 || cutoff > 1 {
			return nil, fmt.Errorf("identity cutoff out of (0,1]: %g", cutoff)
		}
		return SimpleWeighter{Cutoff: cutoff, IgnoreGaps: ignoreGaps}, nil
	case "henikoff":
		return HenikoffWeighter{}, nil
	case "uniform":
		return UniformWeighter{}, nil
	default:
		return nil, fmt.Errorf("unsupported weighting scheme: %s", name)
	}
}

// Neff is the effective sequence count after down-weighting.
func Neff(weights []float64) float64 {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	return sum
}
