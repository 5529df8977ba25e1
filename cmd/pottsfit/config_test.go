package main

import (
	"testing"
)

func TestLoadFitRequestFromConfig(t *testing.T) {
	path := writeFile(t, "fit.json", `{
		"objective": "cd",
		"algorithm": "adam",
		"maxit": 250,
		"epsilon": 1e-6,
		"alpha0": 0.005,
		"early_stopping": true,
		"decay": true,
		"decay_type": "sqrt",
		"decay_rate": 50,
		"weighting": "henikoff",
		"lambda_single": 5,
		"lambda_pair_factor": 0.1,
		"nr_seq_sample": 200,
		"persistent": true,
		"seed": 42,
		"mat_file": "out.mat"
	}`)

	req, err := loadFitRequestFromConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Objective != "cd" || req.Algorithm != "adam" {
		t.Fatalf("expected cd/adam, got=%s/%s", req.Objective, req.Algorithm)
	}
	if req.Maxit != 250 {
		t.Fatalf("expected maxit 250, got=%d", req.Maxit)
	}
	if req.Epsilon != 1e-6 || req.Alpha0 != 0.005 {
		t.Fatalf("expected epsilon/alpha0 from config, got=%v/%v", req.Epsilon, req.Alpha0)
	}
	if !req.EarlyStopping || !req.Decay || !req.Persistent {
		t.Fatalf("expected boolean knobs set, got=%+v", req)
	}
	if req.DecayType != "sqrt" || req.DecayRate != 50 {
		t.Fatalf("expected sqrt decay with rate 50, got=%s/%v", req.DecayType, req.DecayRate)
	}
	if req.Weighting != "henikoff" {
		t.Fatalf("expected henikoff weighting, got=%s", req.Weighting)
	}
	if req.Seed != 42 {
		t.Fatalf("expected seed 42, got=%d", req.Seed)
	}
	if req.MatFile != "out.mat" {
		t.Fatalf("expected mat file from config, got=%s", req.MatFile)
	}
}

func TestLoadFitRequestRejectsBadJSON(t *testing.T) {
	path := writeFile(t, "bad.json", "{not json")
	if _, err := loadFitRequestFromConfig(path); err == nil {
		t.Fatalf("expected error for invalid JSON")
	}
}

func TestOverrideFromFlagsWinsOverConfig(t *testing.T) {
	path := writeFile(t, "fit.json", `{"objective": "pll", "maxit": 100}`)
	req, err := loadOrDefaultFitRequest(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = overrideFromFlags(&req, map[string]bool{"maxit": true}, map[string]any{
		"maxit": 7,
		"ofn":   "cd",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Maxit != 7 {
		t.Fatalf("expected explicit flag to win, got=%d", req.Maxit)
	}
	if req.Objective != "pll" {
		t.Fatalf("expected unset flag to keep config value, got=%s", req.Objective)
	}
}
