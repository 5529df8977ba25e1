package model

import (
	"math"
	"testing"
)

func TestPairIndexRowMajor(t *testing.T) {
	p := NewPotentials(4)
	if got := p.SingleIndex(0, 0); got != 0 {
		t.Fatalf("expected single index 0, got=%d", got)
	}
	if got := p.SingleIndex(2, 3); got != 2*NumStates+3 {
		t.Fatalf("expected single index %d, got=%d", 2*NumStates+3, got)
	}
	want := ((1*4+3)*NumStates+5)*NumStates + 7
	if got := p.PairIndex(1, 3, 5, 7); got != want {
		t.Fatalf("expected pair index %d, got=%d", want, got)
	}
}

func TestSetWKeepsMirrorsInSync(t *testing.T) {
	p := NewPotentials(5)
	p.SetW(1, 3, 4, 9, 2.5)
	if got := p.W(1, 3, 4, 9); got != 2.5 {
		t.Fatalf("expected 2.5, got=%v", got)
	}
	if got := p.W(3, 1, 9, 4); got != 2.5 {
		t.Fatalf("expected mirrored cell 2.5, got=%v", got)
	}
	if got := p.W(3, 1, 4, 9); got != 0 {
		t.Fatalf("expected untouched cell 0, got=%v", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	p := NewPotentials(3)
	p.SetV(0, 1, 1.5)
	q := p.Clone()
	q.SetV(0, 1, -2)
	if got := p.V(0, 1); got != 1.5 {
		t.Fatalf("expected original untouched, got=%v", got)
	}
	if q.NCol != p.NCol {
		t.Fatalf("expected ncol %d, got=%d", p.NCol, q.NCol)
	}
}

func TestFiniteDetectsNaN(t *testing.T) {
	p := NewPotentials(2)
	if !p.Finite() {
		t.Fatalf("expected fresh potentials to be finite")
	}
	p.Pair[7] = math.NaN()
	if p.Finite() {
		t.Fatalf("expected NaN to be detected")
	}
}

func TestNormCoversBothBlocks(t *testing.T) {
	p := NewPotentials(2)
	p.SetV(0, 0, 3)
	p.Pair[0] = 4
	if got := p.Norm(); math.Abs(got-5) > 1e-12 {
		t.Fatalf("expected norm 5, got=%v", got)
	}
}
