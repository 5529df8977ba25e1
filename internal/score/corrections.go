package score

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"pottsfit/internal/model"
)

// APC subtracts the average product correction: corrected[i,j] = raw[i,j] -
// rowmean[i]*rowmean[j]/grandmean, with the diagonal excluded from every
// mean.
func APC(raw *mat.Dense) *mat.Dense {
	n, _ := raw.Dims()
	rowMean := make([]float64, n)
	var grand float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			rowMean[i] += raw.At(i, j)
		}
		rowMean[i] /= float64(n - 1)
		grand += rowMean[i]
	}
	grand /= float64(n)

	out := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			corr := 0.0
			if grand != 0 {
				corr = rowMean[i] * rowMean[j] / grand
			}
			out.Set(i, j, raw.At(i, j)-corr)
		}
	}
	return out
}

// ColumnEntropies computes per-column symbol entropies from single
// frequencies restricted and renormalized to the 20 non-gap states.
func ColumnEntropies(singleFreq []float64, ncol int) []float64 {
	h := make([]float64, ncol)
	for i := 0; i < ncol; i++ {
		var total float64
		for a := 0; a < model.NumAmino; a++ {
			total += singleFreq[i*model.NumStates+a]
		}
		if total <= 0 {
			continue
		}
		for a := 0; a < model.NumAmino; a++ {
			p := singleFreq[i*model.NumStates+a] / total
			if p > 0 {
				h[i] -= p * math.Log(p)
			}
		}
	}
	return h
}

// PairEntropies computes the joint entropy of every column pair from pair
// frequencies restricted and renormalized to the 400 non-gap cells.
func PairEntropies(pairFreq []float64, ncol int) *mat.Dense {
	h := mat.NewDense(ncol, ncol, nil)
	for i := 0; i < ncol; i++ {
		for j := i + 1; j < ncol; j++ {
			var total float64
			for a := 0; a < model.NumAmino; a++ {
				for b := 0; b < model.NumAmino; b++ {
					total += pairFreq[pairFreqIndex(ncol, i, j, a, b)]
				}
			}
			if total <= 0 {
				continue
			}
			var hij float64
			for a := 0; a < model.NumAmino; a++ {
				for b := 0; b < model.NumAmino; b++ {
					p := pairFreq[pairFreqIndex(ncol, i, j, a, b)] / total
					if p > 0 {
						hij -= p * math.Log(p)
					}
				}
			}
			h.Set(i, j, hij)
			h.Set(j, i, hij)
		}
	}
	return h
}

// EntropyCorrection rescales pair scores by the geometric mean of the two
// marginal column entropies, with the coefficient fit by least squares over
// the off-diagonal entries.
func EntropyCorrection(raw *mat.Dense, singleFreq []float64, ncol int) *mat.Dense {
	h := ColumnEntropies(singleFreq, ncol)
	factor := mat.NewDense(ncol, ncol, nil)
	for i := 0; i < ncol; i++ {
		for j := 0; j < ncol; j++ {
			if i == j {
				continue
			}
			factor.Set(i, j, math.Sqrt(h[i]*h[j]))
		}
	}
	return subtractFitted(raw, factor)
}

// JointEntropyCorrection subtracts a multiple of the joint pair entropy.
// The alternate variant replaces the least-squares coefficient with the
// ratio of off-diagonal means.
func JointEntropyCorrection(raw *mat.Dense, pairFreq []float64, ncol int, alternate bool) *mat.Dense {
	h := PairEntropies(pairFreq, ncol)
	if !alternate {
		return subtractFitted(raw, h)
	}

	n, _ := raw.Dims()
	var sumRaw, sumH float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			sumRaw += raw.At(i, j)
			sumH += h.At(i, j)
		}
	}
	alpha := 0.0
	if sumH != 0 {
		alpha = sumRaw / sumH
	}
	return subtractScaled(raw, h, alpha)
}

// subtractFitted removes alpha*factor from raw where alpha minimizes the
// squared residual over off-diagonal entries.
func subtractFitted(raw, factor *mat.Dense) *mat.Dense {
	n, _ := raw.Dims()
	var num, den float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			num += raw.At(i, j) * factor.At(i, j)
			den += factor.At(i, j) * factor.At(i, j)
		}
	}
	alpha := 0.0
	if den != 0 {
		alpha = num / den
	}
	return subtractScaled(raw, factor, alpha)
}

func subtractScaled(raw, factor *mat.Dense, alpha float64) *mat.Dense {
	n, _ := raw.Dims()
	out := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			out.Set(i, j, raw.At(i, j)-alpha*factor.At(i, j))
		}
	}
	return out
}

func pairFreqIndex(ncol, i, j, a, b int) int {
	return ((i*ncol+j)*model.NumStates+a)*model.NumStates + b
}
