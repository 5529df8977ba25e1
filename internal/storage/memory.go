package storage

import (
	"context"
	"sort"
	"sync"

	"pottsfit/internal/model"
)

type MemoryStore struct {
	mu           sync.RWMutex
	runs         map[string]model.RunRecord
	trajectories map[string][]model.TrajectoryPoint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs = make(map[string]model.RunRecord)
	s.trajectories = make(map[string][]model.TrajectoryPoint)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	return run, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context, limit int) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAtUTC > runs[j].CreatedAtUTC
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (s *MemoryStore) SaveTrajectory(_ context.Context, runID string, trajectory []model.TrajectoryPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := append([]model.TrajectoryPoint(nil), trajectory...)
	s.trajectories[runID] = copied
	return nil
}

func (s *MemoryStore) GetTrajectory(_ context.Context, runID string) ([]model.TrajectoryPoint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trajectory, ok := s.trajectories[runID]
	if !ok {
		return nil, false, nil
	}
	copied := append([]model.TrajectoryPoint(nil), trajectory...)
	return copied, true, nil
}
