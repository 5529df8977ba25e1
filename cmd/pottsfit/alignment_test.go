package main

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"pottsfit/internal/model"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return path
}

func TestReadPsicovAlignment(t *testing.T) {
	path := writeFile(t, "aln.psc", "ARN-\narnD\n\nCQEG\n")
	aln, err := readAlignment(path, "psicov")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if aln.N() != 3 || aln.L() != 4 {
		t.Fatalf("expected 3x4 alignment, got=%dx%d", aln.N(), aln.L())
	}
	// A=0, R=1, N=2 in alphabet order; '-' is the gap.
	if aln.Seqs[0][0] != 0 || aln.Seqs[0][1] != 1 || aln.Seqs[0][2] != 2 {
		t.Fatalf("expected ARN encoded as 0,1,2, got=%v", aln.Seqs[0][:3])
	}
	if aln.Seqs[0][3] != model.GapState {
		t.Fatalf("expected gap state for '-', got=%d", aln.Seqs[0][3])
	}
	// Lowercase letters encode like their uppercase forms.
	if aln.Seqs[1][0] != 0 || aln.Seqs[1][2] != 2 {
		t.Fatalf("expected case-insensitive encoding, got=%v", aln.Seqs[1])
	}
}

func TestReadFastaAlignment(t *testing.T) {
	path := writeFile(t, "aln.fasta", ">seq1 description\nAR\nND\n>seq2\nCQEG\n")
	aln, err := readAlignment(path, "fasta")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if aln.N() != 2 || aln.L() != 4 {
		t.Fatalf("expected 2x4 alignment with joined lines, got=%dx%d", aln.N(), aln.L())
	}
	if aln.Seqs[1][0] != 4 {
		t.Fatalf("expected C encoded as 4, got=%d", aln.Seqs[1][0])
	}
}

func TestReadAlignmentGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aln.psc.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write([]byte("ARND\nCQEG\n")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	aln, err := readAlignment(path, "psicov")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if aln.N() != 2 || aln.L() != 4 {
		t.Fatalf("expected 2x4 alignment, got=%dx%d", aln.N(), aln.L())
	}
}

func TestReadAlignmentRejectsUnknownFormat(t *testing.T) {
	path := writeFile(t, "aln.sto", "ARND\n")
	if _, err := readAlignment(path, "stockholm"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestReadAlignmentRejectsRaggedInput(t *testing.T) {
	path := writeFile(t, "aln.psc", "ARND\nCQ\n")
	if _, err := readAlignment(path, "psicov"); err == nil {
		t.Fatalf("expected validation error for ragged alignment")
	}
}
