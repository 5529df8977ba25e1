package storage

import (
	"context"
	"errors"
	"testing"

	"pottsfit/internal/model"
)

func testRun(id, createdAt string) model.RunRecord {
	return model.RunRecord{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: CurrentSchemaVersion,
			CodecVersion:  CurrentCodecVersion,
		},
		ID:           id,
		CreatedAtUTC: createdAt,
		Objective:    "pll",
		Algorithm:    "lbfgs",
		NumSeqs:      10,
		NumCols:      4,
		Neff:         7.5,
		ExitCode:     12,
		Iterations:   12,
		FinalValue:   3.25,
	}
}

func TestMemoryStoreRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	run := testRun("run-1", "2026-08-25T10:00:00Z")
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected run to be found")
	}
	if got != run {
		t.Fatalf("expected %+v, got=%+v", run, got)
	}

	if _, ok, _ := store.GetRun(ctx, "missing"); ok {
		t.Fatalf("expected missing run to report not found")
	}
}

func TestMemoryStoreListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = store.SaveRun(ctx, testRun("old", "2026-08-23T10:00:00Z"))
	_ = store.SaveRun(ctx, testRun("new", "2026-08-25T10:00:00Z"))
	_ = store.SaveRun(ctx, testRun("mid", "2026-08-24T10:00:00Z"))

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected limit applied, got=%d runs", len(runs))
	}
	if runs[0].ID != "new" || runs[1].ID != "mid" {
		t.Fatalf("expected newest-first order, got=%s %s", runs[0].ID, runs[1].ID)
	}
}

func TestMemoryStoreTrajectoryIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	points := []model.TrajectoryPoint{{Iteration: 1, Value: 5}, {Iteration: 2, Value: 4}}
	if err := store.SaveTrajectory(ctx, "run-1", points); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	points[0].Value = -1

	got, ok, err := store.GetTrajectory(ctx, "run-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected trajectory to be found")
	}
	if got[0].Value != 5 {
		t.Fatalf("expected stored copy isolated from caller mutation, got=%v", got[0].Value)
	}
	got[1].Value = 99
	again, _, _ := store.GetTrajectory(ctx, "run-1")
	if again[1].Value != 4 {
		t.Fatalf("expected returned copy isolated from reader mutation, got=%v", again[1].Value)
	}

	if _, ok, _ := store.GetTrajectory(ctx, "missing"); ok {
		t.Fatalf("expected missing trajectory to report not found")
	}
}

func TestRunCodecRoundTrip(t *testing.T) {
	run := testRun("run-1", "2026-08-25T10:00:00Z")
	data, err := EncodeRun(run)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := DecodeRun(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != run {
		t.Fatalf("expected %+v, got=%+v", run, got)
	}
}

func TestDecodeRunRejectsVersionMismatch(t *testing.T) {
	run := testRun("run-1", "2026-08-25T10:00:00Z")
	run.SchemaVersion = CurrentSchemaVersion + 1
	data, err := EncodeRun(run)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := DecodeRun(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch error, got=%v", err)
	}
}

func TestTrajectoryCodecRoundTrip(t *testing.T) {
	points := []model.TrajectoryPoint{
		{Iteration: 1, Value: 10, GradNorm: 2, XNorm: 1, Alpha: 1e-3},
		{Iteration: 2, Value: 9, GradNorm: 1.5, XNorm: 1.2, Alpha: 1e-3},
	}
	data, err := EncodeTrajectory(points)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := DecodeTrajectory(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[1] != points[1] {
		t.Fatalf("expected %+v, got=%+v", points, got)
	}
}

func TestNewStoreRejectsUnknownKind(t *testing.T) {
	if _, err := NewStore("redis", ""); err == nil {
		t.Fatalf("expected error for unknown store kind")
	}
	store, err := NewStore("memory", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store == nil {
		t.Fatalf("expected memory store instance")
	}
	if err := CloseIfSupported(store); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
