package score

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"pottsfit/internal/model"
)

// OMES computes the observed-minus-expected-squared covariation score from
// weighted counts. The plain variant divides by the pair total (Kass &
// Horovitz 2002); the Fodor-Aldrich variant divides by the expected count.
func OMES(singleCounts, pairCounts []float64, ncol int, fodorAldrich bool) *mat.Dense {
	m := mat.NewDense(ncol, ncol, nil)
	for i := 0; i < ncol; i++ {
		for j := i + 1; j < ncol; j++ {
			var nij float64
			for a := 0; a < model.NumAmino; a++ {
				for b := 0; b < model.NumAmino; b++ {
					nij += pairCounts[pairFreqIndex(ncol, i, j, a, b)]
				}
			}
			if nij <= 0 {
				continue
			}
			var sum float64
			for a := 0; a < model.NumAmino; a++ {
				na := singleCounts[i*model.NumStates+a]
				for b := 0; b < model.NumAmino; b++ {
					nb := singleCounts[j*model.NumStates+b]
					expected := na * nb / nij
					obs := pairCounts[pairFreqIndex(ncol, i, j, a, b)]
					d := obs - expected
					if fodorAldrich {
						if expected > 0 {
							sum += d * d / expected
						}
					} else {
						sum += d * d / nij
					}
				}
			}
			m.Set(i, j, sum)
			m.Set(j, i, sum)
		}
	}
	return m
}

// MutualInformation computes per-pair mutual information over the 20
// non-gap states. When normalized, each entry is divided by the joint
// entropy of the pair (Martin et al 2005).
func MutualInformation(singleFreq, pairFreq []float64, ncol int, normalized bool) *mat.Dense {
	m := mat.NewDense(ncol, ncol, nil)
	joint := PairEntropies(pairFreq, ncol)
	for i := 0; i < ncol; i++ {
		var pi [model.NumAmino]float64
		piTotal := renormalizedAmino(singleFreq, i, &pi)
		for j := i + 1; j < ncol; j++ {
			var pj [model.NumAmino]float64
			pjTotal := renormalizedAmino(singleFreq, j, &pj)
			if piTotal <= 0 || pjTotal <= 0 {
				continue
			}
			var pairTotal float64
			for a := 0; a < model.NumAmino; a++ {
				for b := 0; b < model.NumAmino; b++ {
					pairTotal += pairFreq[pairFreqIndex(ncol, i, j, a, b)]
				}
			}
			if pairTotal <= 0 {
				continue
			}
			var mi float64
			for a := 0; a < model.NumAmino; a++ {
				for b := 0; b < model.NumAmino; b++ {
					pab := pairFreq[pairFreqIndex(ncol, i, j, a, b)] / pairTotal
					if pab > 0 && pi[a] > 0 && pj[b] > 0 {
						mi += pab * math.Log(pab/(pi[a]*pj[b]))
					}
				}
			}
			if normalized {
				if h := joint.At(i, j); h > 0 {
					mi /= h
				}
			}
			m.Set(i, j, mi)
			m.Set(j, i, mi)
		}
	}
	return m
}

func renormalizedAmino(singleFreq []float64, i int, out *[model.NumAmino]float64) float64 {
	var total float64
	for a := 0; a < model.NumAmino; a++ {
		out[a] = singleFreq[i*model.NumStates+a]
		total += out[a]
	}
	if total > 0 {
		for a := 0; a < model.NumAmino; a++ {
			out[a] /= total
		}
	}
	return total
}
