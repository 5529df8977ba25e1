package pottsfit

import (
	"context"
	"fmt"

	"pottsfit/internal/model"
)

type RunsRequest struct {
	Limit int
}

func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]model.RunRecord, error) {
	return c.store.ListRuns(ctx, req.Limit)
}

type TrajectoryRequest struct {
	RunID string
}

func (c *Client) Trajectory(ctx context.Context, req TrajectoryRequest) ([]model.TrajectoryPoint, error) {
	trajectory, ok, err := c.store.GetTrajectory(ctx, req.RunID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no trajectory recorded for run %s", req.RunID)
	}
	return trajectory, nil
}

func (c *Client) Run(ctx context.Context, id string) (model.RunRecord, error) {
	run, ok, err := c.store.GetRun(ctx, id)
	if err != nil {
		return model.RunRecord{}, err
	}
	if !ok {
		return model.RunRecord{}, fmt.Errorf("no run with id %s", id)
	}
	return run, nil
}
