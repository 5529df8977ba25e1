package model

import (
	"math"
	"testing"
)

func TestValidateRejectsRaggedRows(t *testing.T) {
	aln := Alignment{Seqs: [][]uint8{{0, 1, 2}, {3, 4}}}
	if err := aln.Validate(); err == nil {
		t.Fatalf("expected error for ragged alignment")
	}
}

func TestValidateRejectsOutOfRangeSymbol(t *testing.T) {
	aln := Alignment{Seqs: [][]uint8{{0, 21}}}
	if err := aln.Validate(); err == nil {
		t.Fatalf("expected error for symbol 21")
	}
}

func TestGapFractionPerColumn(t *testing.T) {
	aln := Alignment{Seqs: [][]uint8{
		{GapState, 0, 1},
		{GapState, GapState, 2},
	}}
	frac := aln.GapFractionPerColumn()
	want := []float64{1, 0.5, 0}
	for i := range want {
		if math.Abs(frac[i]-want[i]) > 1e-12 {
			t.Fatalf("expected column %d gap fraction %v, got=%v", i, want[i], frac[i])
		}
	}
}

func TestTrimGappedSequencesDropsGappyRows(t *testing.T) {
	aln := Alignment{Seqs: [][]uint8{
		{0, 1, 2, 3},
		{GapState, GapState, GapState, 0},
	}}
	trimmed := TrimGappedSequences(aln, 50)
	if trimmed.N() != 1 {
		t.Fatalf("expected 1 sequence kept, got=%d", trimmed.N())
	}
	if TrimGappedSequences(aln, 100).N() != 2 {
		t.Fatalf("expected 100 to disable sequence removal")
	}
}

func TestTrimGappedColumnsReportsKeptIndices(t *testing.T) {
	aln := Alignment{Seqs: [][]uint8{
		{0, GapState, 2},
		{1, GapState, 3},
	}}
	trimmed, kept := TrimGappedColumns(aln, 50)
	if trimmed.L() != 2 {
		t.Fatalf("expected 2 columns kept, got=%d", trimmed.L())
	}
	if len(kept) != 2 || kept[0] != 0 || kept[1] != 2 {
		t.Fatalf("expected kept columns [0 2], got=%v", kept)
	}
	if trimmed.Seqs[1][1] != 3 {
		t.Fatalf("expected column content preserved, got=%d", trimmed.Seqs[1][1])
	}
}
