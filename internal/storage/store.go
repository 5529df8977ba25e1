package storage

import (
	"context"

	"pottsfit/internal/model"
)

// Store persists fit runs and their optimization trajectories.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error)
	SaveTrajectory(ctx context.Context, runID string, trajectory []model.TrajectoryPoint) error
	GetTrajectory(ctx context.Context, runID string) ([]model.TrajectoryPoint, bool, error)
}

func DefaultStoreKind() string {
	return "memory"
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
