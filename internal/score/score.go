// Package score reduces fitted pair potentials to a residue-residue contact
// score matrix and applies bias-correction transforms on top of it.
package score

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"pottsfit/internal/model"
)

// Recenter removes the gauge degree of freedom in place: every column's
// single potentials sum to zero and every pair block gets zero row and
// column sums (double centering).
func Recenter(x *model.Potentials) {
	ncol := x.NCol
	for i := 0; i < ncol; i++ {
		var mean float64
		for a := 0; a < model.NumStates; a++ {
			mean += x.V(i, a)
		}
		mean /= model.NumStates
		for a := 0; a < model.NumStates; a++ {
			x.SetV(i, a, x.V(i, a)-mean)
		}
	}

	var rowMean, colMean [model.NumStates]float64
	for i := 0; i < ncol; i++ {
		for j := 0; j < ncol; j++ {
			if j <= i {
				continue
			}
			var grand float64
			for a := 0; a < model.NumStates; a++ {
				rowMean[a] = 0
				colMean[a] = 0
			}
			for a := 0; a < model.NumStates; a++ {
				for b := 0; b < model.NumStates; b++ {
					w := x.W(i, j, a, b)
					rowMean[a] += w
					colMean[b] += w
					grand += w
				}
			}
			for a := 0; a < model.NumStates; a++ {
				rowMean[a] /= model.NumStates
				colMean[a] /= model.NumStates
			}
			grand /= model.NumStates * model.NumStates
			for a := 0; a < model.NumStates; a++ {
				for b := 0; b < model.NumStates; b++ {
					x.SetW(i, j, a, b, x.W(i, j, a, b)-rowMean[a]-colMean[b]+grand)
				}
			}
		}
	}
}

// Frobenius reduces each pair's 20x20 non-gap sub-block to a scalar via the
// Frobenius norm, optionally recentering a copy of the potentials first.
// The result is a symmetric L x L matrix with zero diagonal.
func Frobenius(x *model.Potentials, recenter bool) *mat.Dense {
	if recenter {
		x = x.Clone()
		Recenter(x)
	}
	ncol := x.NCol
	m := mat.NewDense(ncol, ncol, nil)
	for i := 0; i < ncol; i++ {
		for j := i + 1; j < ncol; j++ {
			var sum float64
			for a := 0; a < model.NumAmino; a++ {
				for b := 0; b < model.NumAmino; b++ {
					w := x.W(i, j, a, b)
					sum += w * w
				}
			}
			v := math.Sqrt(sum)
			m.Set(i, j, v)
			m.Set(j, i, v)
		}
	}
	return m
}
