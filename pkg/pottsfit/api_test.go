package pottsfit

import (
	"bufio"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pottsfit/internal/model"
	"pottsfit/internal/rawio"
)

func testAlignment() model.Alignment {
	return model.Alignment{Seqs: [][]uint8{
		{0, 1, 2, 3},
		{0, 1, 2, 3},
		{4, 5, 6, 7},
		{4, 5, 2, 7},
		{0, 5, 6, 3},
	}}
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(context.Background(), Options{StoreKind: "memory", Workers: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func TestFitPseudoLikelihoodEndToEnd(t *testing.T) {
	client := newTestClient(t)
	matFile := filepath.Join(t.TempDir(), "scores.mat")

	summary, err := client.Fit(context.Background(), FitRequest{
		Alignment:     testAlignment(),
		Maxit:         20,
		MaxLinesearch: 20,
		APC:           true,
		MatFile:       matFile,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Objective != "pll" || summary.Algorithm != "lbfgs" {
		t.Fatalf("expected pll/lbfgs defaults, got=%s/%s", summary.Objective, summary.Algorithm)
	}
	if summary.ExitCode < 0 {
		t.Fatalf("expected successful run, got exit code=%d", summary.ExitCode)
	}
	if summary.NumSeqs != 5 || summary.NumCols != 4 {
		t.Fatalf("expected 5x4 alignment, got=%dx%d", summary.NumSeqs, summary.NumCols)
	}
	if summary.Neff <= 0 || summary.Neff > 5 {
		t.Fatalf("expected 0 < neff <= 5, got=%v", summary.Neff)
	}
	if len(summary.KeptColumns) != 4 {
		t.Fatalf("expected all columns kept, got=%v", summary.KeptColumns)
	}
	if len(summary.Trajectory) == 0 {
		t.Fatalf("expected a recorded trajectory")
	}

	if len(summary.ScoreMatrix) != 4 {
		t.Fatalf("expected 4x4 score matrix, got=%d rows", len(summary.ScoreMatrix))
	}
	for i := range summary.ScoreMatrix {
		if summary.ScoreMatrix[i][i] != 0 {
			t.Fatalf("expected zero diagonal at %d, got=%v", i, summary.ScoreMatrix[i][i])
		}
		for j := range summary.ScoreMatrix[i] {
			d := summary.ScoreMatrix[i][j] - summary.ScoreMatrix[j][i]
			if math.Abs(d) > 1e-9 {
				t.Fatalf("expected symmetric scores at (%d,%d)", i, j)
			}
		}
	}

	f, err := os.Open(matFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() {
		_ = f.Close()
	}()
	lines := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if got := len(strings.Split(sc.Text(), "\t")); got != 4 {
			t.Fatalf("expected 4 columns per matrix row, got=%d", got)
		}
		lines++
	}
	if lines != 4 {
		t.Fatalf("expected 4 matrix rows, got=%d", lines)
	}

	// The run and its trajectory are persisted.
	run, err := client.Run(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Objective != "pll" || run.NumCols != 4 {
		t.Fatalf("expected persisted run metadata, got=%+v", run)
	}
	trajectory, err := client.Trajectory(context.Background(), TrajectoryRequest{RunID: summary.RunID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trajectory) != len(summary.Trajectory) {
		t.Fatalf("expected %d persisted points, got=%d", len(summary.Trajectory), len(trajectory))
	}
}

func TestFitContrastiveDivergenceEndToEnd(t *testing.T) {
	client := newTestClient(t)
	summary, err := client.Fit(context.Background(), FitRequest{
		Alignment:    testAlignment(),
		Objective:    "cd",
		Maxit:        10,
		Weighting:    "uniform",
		Pseudocounts: "uniform",
		NrSeqSample:  10,
		Seed:         11,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Algorithm != "gradient_descent" {
		t.Fatalf("expected gradient_descent default for cd, got=%s", summary.Algorithm)
	}
	if summary.ExitCode != model.ExitMaxIterations {
		t.Fatalf("expected exhausted budget, got=%d", summary.ExitCode)
	}
	if summary.Iterations != 10 {
		t.Fatalf("expected 10 iterations, got=%d", summary.Iterations)
	}
	if summary.Neff != 5 {
		t.Fatalf("expected neff equal to sequence count under uniform weights, got=%v", summary.Neff)
	}
	if len(summary.ScoreMatrix) != 4 {
		t.Fatalf("expected score matrix despite exhausted budget, got=%d rows", len(summary.ScoreMatrix))
	}
}

func TestFitRejectsInvalidPairing(t *testing.T) {
	client := newTestClient(t)
	if _, err := client.Fit(context.Background(), FitRequest{
		Alignment: testAlignment(),
		Objective: "pll",
		Algorithm: "adam",
	}); err == nil {
		t.Fatalf("expected pairing rejection before any computation")
	}
	if _, err := client.Fit(context.Background(), FitRequest{
		Alignment: testAlignment(),
		Objective: "cd",
		Algorithm: "lbfgs",
	}); err == nil {
		t.Fatalf("expected pairing rejection for cd with lbfgs")
	}
}

func TestFitRejectsSkipWithoutInitialPotentials(t *testing.T) {
	client := newTestClient(t)
	if _, err := client.Fit(context.Background(), FitRequest{
		Alignment:     testAlignment(),
		DoNotOptimize: true,
	}); err == nil {
		t.Fatalf("expected error when skipping optimization without a raw file")
	}
}

func TestFitScoresInitialPotentialsWithoutOptimizing(t *testing.T) {
	client := newTestClient(t)
	rawPath := filepath.Join(t.TempDir(), "init.raw")

	x := model.NewPotentials(4)
	x.SetW(0, 1, 2, 3, 1.5)
	if err := rawio.WriteRaw(rawPath, x, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	summary, err := client.Fit(context.Background(), FitRequest{
		Alignment:     testAlignment(),
		InitRawFile:   rawPath,
		DoNotOptimize: true,
		NoCentering:   true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Iterations != 0 {
		t.Fatalf("expected no optimizer iterations, got=%d", summary.Iterations)
	}
	if got := summary.ScoreMatrix[0][1]; math.Abs(got-1.5) > 1e-9 {
		t.Fatalf("expected Frobenius score 1.5 from the seeded pair cell, got=%v", got)
	}
}

func TestFitRejectsMismatchedRawPotentials(t *testing.T) {
	client := newTestClient(t)
	rawPath := filepath.Join(t.TempDir(), "init.raw")
	if err := rawio.WriteRaw(rawPath, model.NewPotentials(7), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := client.Fit(context.Background(), FitRequest{
		Alignment:     testAlignment(),
		InitRawFile:   rawPath,
		DoNotOptimize: true,
	}); err == nil {
		t.Fatalf("expected error for raw potentials with wrong column count")
	}
}

func TestFitWritesRawAndModelArtifacts(t *testing.T) {
	client := newTestClient(t)
	dir := t.TempDir()
	rawOut := filepath.Join(dir, "out.raw")
	modelOut := filepath.Join(dir, "out.mdl")

	_, err := client.Fit(context.Background(), FitRequest{
		Alignment:    testAlignment(),
		Maxit:        5,
		OutRawFile:   rawOut,
		OutModelFile: modelOut,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	x, err := rawio.ReadRaw(rawOut)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if x.NCol != 4 {
		t.Fatalf("expected 4-column potentials, got=%d", x.NCol)
	}
	container, err := rawio.ReadModel(modelOut)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(container.NIJ) != 6 {
		t.Fatalf("expected 6 N_ij entries for 4 columns, got=%d", len(container.NIJ))
	}
	if len(container.QIJ) != 6*400 {
		t.Fatalf("expected 2400 q_ij entries, got=%d", len(container.QIJ))
	}
}

func TestRunsListsPersistedFits(t *testing.T) {
	client := newTestClient(t)
	for i := 0; i < 2; i++ {
		if _, err := client.Fit(context.Background(), FitRequest{Alignment: testAlignment(), Maxit: 3}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	runs, err := client.Runs(context.Background(), RunsRequest{Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 persisted runs, got=%d", len(runs))
	}

	if _, err := client.Trajectory(context.Background(), TrajectoryRequest{RunID: "missing"}); err == nil {
		t.Fatalf("expected error for unknown run id")
	}
}

func TestAltScoreMethods(t *testing.T) {
	client := newTestClient(t)

	omes, err := client.AltScore(context.Background(), AltScoreRequest{
		Alignment: testAlignment(),
		Method:    "omes",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if omes.NumCols != 4 || len(omes.ScoreMatrix) != 4 {
		t.Fatalf("expected 4x4 OMES matrix, got=%d", len(omes.ScoreMatrix))
	}

	mi, err := client.AltScore(context.Background(), AltScoreRequest{
		Alignment:    testAlignment(),
		Method:       "mi",
		MINormalized: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mi.Method != "mi" {
		t.Fatalf("expected mi method echoed, got=%s", mi.Method)
	}

	if _, err := client.AltScore(context.Background(), AltScoreRequest{
		Alignment: testAlignment(),
		Method:    "plmdca",
	}); err == nil {
		t.Fatalf("expected error for unknown score method")
	}
}
