package model

import (
	"errors"
	"fmt"
)

const (
	// NumStates is the full Potts alphabet: 20 amino acids plus the gap.
	NumStates = 21
	// NumAmino is the alphabet without the gap state.
	NumAmino = 20
	// GapState is the symbol index encoding a gap.
	GapState = 20
)

// Alignment is a pre-parsed multiple sequence alignment: one row per
// sequence, one column per alignment position, symbol indices in [0, 20].
type Alignment struct {
	Seqs [][]uint8
}

func (a Alignment) N() int {
	return len(a.Seqs)
}

func (a Alignment) L() int {
	if len(a.Seqs) == 0 {
		return 0
	}
	return len(a.Seqs[0])
}

func (a Alignment) Validate() error {
	if len(a.Seqs) == 0 {
		return errors.New("alignment has no sequences")
	}
	ncol := len(a.Seqs[0])
	if ncol == 0 {
		return errors.New("alignment has no columns")
	}
	for n, seq := range a.Seqs {
		if len(seq) != ncol {
			return fmt.Errorf("sequence %d has length %d, want %d", n, len(seq), ncol)
		}
		for i, s := range seq {
			if s >= NumStates {
				return fmt.Errorf("sequence %d column %d: symbol %d out of range", n, i, s)
			}
		}
	}
	return nil
}

// GapFractionPerColumn reports the fraction of gap symbols in every column.
func (a Alignment) GapFractionPerColumn() []float64 {
	ncol := a.L()
	frac := make([]float64, ncol)
	if a.N() == 0 {
		return frac
	}
	for _, seq := range a.Seqs {
		for i, s := range seq {
			if s == GapState {
				frac[i]++
			}
		}
	}
	for i := range frac {
		frac[i] /= float64(a.N())
	}
	return frac
}

// GapFractionPerSequence reports the fraction of gap symbols in every sequence.
func (a Alignment) GapFractionPerSequence() []float64 {
	frac := make([]float64, a.N())
	ncol := a.L()
	if ncol == 0 {
		return frac
	}
	for n, seq := range a.Seqs {
		gaps := 0
		for _, s := range seq {
			if s == GapState {
				gaps++
			}
		}
		frac[n] = float64(gaps) / float64(ncol)
	}
	return frac
}

// TrimGappedSequences drops sequences whose gap fraction exceeds maxGapSeq
// percent. 100 disables removal.
func TrimGappedSequences(a Alignment, maxGapSeq int) Alignment {
	if maxGapSeq >= 100 {
		return a
	}
	limit := float64(maxGapSeq) / 100.0
	frac := a.GapFractionPerSequence()
	kept := make([][]uint8, 0, a.N())
	for n, seq := range a.Seqs {
		if frac[n] <= limit {
			kept = append(kept, seq)
		}
	}
	return Alignment{Seqs: kept}
}

// TrimGappedColumns drops columns whose gap fraction exceeds maxGapPos
// percent and returns the trimmed alignment together with the original
// indices of the kept columns. 100 disables removal.
func TrimGappedColumns(a Alignment, maxGapPos int) (Alignment, []int) {
	ncol := a.L()
	if maxGapPos >= 100 {
		keptIdx := make([]int, ncol)
		for i := range keptIdx {
			keptIdx[i] = i
		}
		return a, keptIdx
	}
	limit := float64(maxGapPos) / 100.0
	frac := a.GapFractionPerColumn()
	keptIdx := make([]int, 0, ncol)
	for i := 0; i < ncol; i++ {
		if frac[i] <= limit {
			keptIdx = append(keptIdx, i)
		}
	}
	trimmed := make([][]uint8, a.N())
	for n, seq := range a.Seqs {
		row := make([]uint8, len(keptIdx))
		for k, i := range keptIdx {
			row[k] = seq[i]
		}
		trimmed[n] = row
	}
	return Alignment{Seqs: trimmed}, keptIdx
}
