package counts

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"pottsfit/internal/model"
)

func singleIndex(i, a int) int {
	return i*model.NumStates + a
}

func pairIndex(ncol, i, j, a, b int) int {
	return ((i*ncol+j)*model.NumStates+a)*model.NumStates + b
}

// Single derives weighted single-symbol counts shaped [L,21] flat.
func Single(aln model.Alignment, weights []float64) []float64 {
	ncol := aln.L()
	counts := make([]float64, ncol*model.NumStates)
	for n, seq := range aln.Seqs {
		w := weights[n]
		for i, s := range seq {
			counts[singleIndex(i, int(s))] += w
		}
	}
	return counts
}

// Pair derives weighted joint symbol counts shaped [L,L,21,21] flat,
// symmetric under (i,a,j,b) <-> (j,b,i,a). Rows of column pairs are filled
// in parallel across workers.
func Pair(aln model.Alignment, weights []float64, workers int) []float64 {
	ncol := aln.L()
	counts := make([]float64, ncol*ncol*model.NumStates*model.NumStates)
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i := 0; i < ncol; i++ {
		i := i
		g.Go(func() error {
			for n, seq := range aln.Seqs {
				w := weights[n]
				a := int(seq[i])
				for j := 0; j < ncol; j++ {
					counts[pairIndex(ncol, i, j, a, int(seq[j]))] += w
				}
			}
			return nil
		})
	}
	// Workers write disjoint i-rows, so the only error source is a panic.
	_ = g.Wait()
	return counts
}

// Ni reduces single counts to per-column amino-acid totals, discarding the
// gap state.
func Ni(singleCounts []float64, ncol int) []float64 {
	ni := make([]float64, ncol)
	for i := 0; i < ncol; i++ {
		for a := 0; a < model.NumAmino; a++ {
			ni[i] += singleCounts[singleIndex(i, a)]
		}
	}
	return ni
}

// Nij reduces pair counts to per-pair amino-acid totals shaped [L,L] flat,
// discarding the gap state on both axes.
func Nij(pairCounts []float64, ncol int) []float64 {
	nij := make([]float64, ncol*ncol)
	for i := 0; i < ncol; i++ {
		for j := 0; j < ncol; j++ {
			var sum float64
			for a := 0; a < model.NumAmino; a++ {
				for b := 0; b < model.NumAmino; b++ {
					sum += pairCounts[pairIndex(ncol, i, j, a, b)]
				}
			}
			nij[i*ncol+j] = sum
		}
	}
	return nij
}
