package score

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"pottsfit/internal/model"
)

func newSymmetric(n int, f func(i, j int) float64) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := f(i, j)
			m.Set(i, j, v)
			m.Set(j, i, v)
		}
	}
	return m
}

func TestRecenterZeroesColumnSums(t *testing.T) {
	x := model.NewPotentials(3)
	for i := 0; i < 3; i++ {
		for a := 0; a < model.NumStates; a++ {
			x.SetV(i, a, float64(i)+0.1*float64(a))
		}
	}
	x.SetW(0, 1, 2, 3, 1.5)
	x.SetW(0, 1, 4, 4, -0.7)
	x.SetW(1, 2, 0, 0, 0.9)

	Recenter(x)

	for i := 0; i < 3; i++ {
		var sum float64
		for a := 0; a < model.NumStates; a++ {
			sum += x.V(i, a)
		}
		if math.Abs(sum) > 1e-9 {
			t.Fatalf("expected column %d single potentials to sum to 0, got=%v", i, sum)
		}
	}
	for a := 0; a < model.NumStates; a++ {
		var rowSum, colSum float64
		for b := 0; b < model.NumStates; b++ {
			rowSum += x.W(0, 1, a, b)
			colSum += x.W(0, 1, b, a)
		}
		if math.Abs(rowSum) > 1e-9 || math.Abs(colSum) > 1e-9 {
			t.Fatalf("expected zero row/col sums after double centering, got=%v/%v", rowSum, colSum)
		}
	}
}

func TestFrobeniusIsSymmetricWithZeroDiagonal(t *testing.T) {
	x := model.NewPotentials(3)
	x.SetW(0, 1, 2, 3, 2)
	x.SetW(0, 2, 1, 1, -1)

	m := Frobenius(x, false)
	n, _ := m.Dims()
	if n != 3 {
		t.Fatalf("expected 3x3 matrix, got=%d", n)
	}
	for i := 0; i < n; i++ {
		if m.At(i, i) != 0 {
			t.Fatalf("expected zero diagonal at %d, got=%v", i, m.At(i, i))
		}
		for j := 0; j < n; j++ {
			if m.At(i, j) != m.At(j, i) {
				t.Fatalf("expected symmetric matrix at (%d,%d)", i, j)
			}
		}
	}
	if got := m.At(0, 1); math.Abs(got-2) > 1e-12 {
		t.Fatalf("expected Frobenius norm 2 for single-cell block, got=%v", got)
	}
}

func TestFrobeniusIgnoresGapCells(t *testing.T) {
	x := model.NewPotentials(2)
	x.SetW(0, 1, model.GapState, 5, 10)
	x.SetW(0, 1, 5, model.GapState, 10)
	m := Frobenius(x, false)
	if got := m.At(0, 1); got != 0 {
		t.Fatalf("expected gap cells excluded from the norm, got=%v", got)
	}
}

func TestFrobeniusWithRecenterLeavesInputUntouched(t *testing.T) {
	x := model.NewPotentials(2)
	x.SetW(0, 1, 2, 3, 1.5)
	before := x.W(0, 1, 2, 3)
	_ = Frobenius(x, true)
	if got := x.W(0, 1, 2, 3); got != before {
		t.Fatalf("expected input potentials untouched, got=%v", got)
	}
}

func TestAPCCancelsConstantBias(t *testing.T) {
	// For a constant off-diagonal score the product correction equals the
	// score itself.
	n := 4
	raw := newSymmetric(n, func(i, j int) float64 { return 1.5 })

	out := APC(raw)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if math.Abs(out.At(i, j)) > 1e-9 {
				t.Fatalf("expected constant bias removed at (%d,%d), got=%v", i, j, out.At(i, j))
			}
		}
	}
}

func TestAPCKeepsSymmetry(t *testing.T) {
	n := 4
	raw := newSymmetric(n, func(i, j int) float64 { return float64(i+j) + 0.5*float64(i*j) })
	out := APC(raw)
	for i := 0; i < n; i++ {
		if out.At(i, i) != 0 {
			t.Fatalf("expected zero diagonal at %d, got=%v", i, out.At(i, i))
		}
		for j := 0; j < n; j++ {
			if math.Abs(out.At(i, j)-out.At(j, i)) > 1e-12 {
				t.Fatalf("expected symmetric correction at (%d,%d)", i, j)
			}
		}
	}
}

func TestColumnEntropiesUniformIsMaximal(t *testing.T) {
	ncol := 2
	freq := make([]float64, ncol*model.NumStates)
	// Column 0 uniform over amino states, column 1 deterministic.
	for a := 0; a < model.NumAmino; a++ {
		freq[0*model.NumStates+a] = 1.0 / model.NumAmino
	}
	freq[1*model.NumStates+3] = 1

	h := ColumnEntropies(freq, ncol)
	if math.Abs(h[0]-math.Log(model.NumAmino)) > 1e-9 {
		t.Fatalf("expected maximal entropy log(20), got=%v", h[0])
	}
	if h[1] != 0 {
		t.Fatalf("expected zero entropy for deterministic column, got=%v", h[1])
	}
}

func TestEntropyCorrectionRemovesProportionalSignal(t *testing.T) {
	ncol := 3
	freq := make([]float64, ncol*model.NumStates)
	for i := 0; i < ncol; i++ {
		for a := 0; a < model.NumAmino; a++ {
			freq[i*model.NumStates+a] = 1.0 / model.NumAmino
		}
	}
	h := ColumnEntropies(freq, ncol)
	raw := newSymmetric(ncol, func(i, j int) float64 { return 2 * math.Sqrt(h[i]*h[j]) })

	out := EntropyCorrection(raw, freq, ncol)
	for i := 0; i < ncol; i++ {
		for j := 0; j < ncol; j++ {
			if i == j {
				continue
			}
			if math.Abs(out.At(i, j)) > 1e-9 {
				t.Fatalf("expected proportional signal removed at (%d,%d), got=%v", i, j, out.At(i, j))
			}
		}
	}
}

func TestJointEntropyCorrectionVariants(t *testing.T) {
	ncol := 3
	pairFreq := make([]float64, ncol*ncol*model.NumStates*model.NumStates)
	for i := 0; i < ncol; i++ {
		for j := 0; j < ncol; j++ {
			if i == j {
				continue
			}
			for a := 0; a < model.NumAmino; a++ {
				for b := 0; b < model.NumAmino; b++ {
					pairFreq[pairFreqIndex(ncol, i, j, a, b)] = 1.0 / (model.NumAmino * model.NumAmino)
				}
			}
		}
	}
	h := PairEntropies(pairFreq, ncol)
	raw := newSymmetric(ncol, func(i, j int) float64 { return 3 * h.At(i, j) })

	for _, alternate := range []bool{false, true} {
		out := JointEntropyCorrection(raw, pairFreq, ncol, alternate)
		for i := 0; i < ncol; i++ {
			for j := 0; j < ncol; j++ {
				if i == j {
					continue
				}
				if math.Abs(out.At(i, j)) > 1e-9 {
					t.Fatalf("expected proportional signal removed (alternate=%v) at (%d,%d), got=%v", alternate, i, j, out.At(i, j))
				}
			}
		}
	}
}
