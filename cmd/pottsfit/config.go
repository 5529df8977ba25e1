package main

import (
	"encoding/json"
	"fmt"
	"os"

	fitapi "pottsfit/pkg/pottsfit"
)

func loadFitRequestFromConfig(path string) (fitapi.FitRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fitapi.FitRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fitapi.FitRequest{}, err
	}

	var req fitapi.FitRequest
	if v, ok := asString(raw["objective"]); ok {
		req.Objective = v
	}
	if v, ok := asString(raw["algorithm"]); ok {
		req.Algorithm = v
	}
	if v, ok := asInt(raw["maxit"]); ok {
		req.Maxit = v
	}
	if v, ok := asFloat64(raw["epsilon"]); ok {
		req.Epsilon = v
	}
	if v, ok := asInt(raw["convergence_prev"]); ok {
		req.ConvergencePrev = v
	}
	if v, ok := asBool(raw["early_stopping"]); ok {
		req.EarlyStopping = v
	}
	if v, ok := asFloat64(raw["alpha0"]); ok {
		req.Alpha0 = v
	}
	if v, ok := asFloat64(raw["beta1"]); ok {
		req.Beta1 = v
	}
	if v, ok := asFloat64(raw["beta2"]); ok {
		req.Beta2 = v
	}
	if v, ok := asFloat64(raw["beta3"]); ok {
		req.Beta3 = v
	}
	if v, ok := asBool(raw["fix_v"]); ok {
		req.FixV = v
	}
	if v, ok := asBool(raw["decay"]); ok {
		req.Decay = v
	}
	if v, ok := asFloat64(raw["decay_start"]); ok {
		req.DecayStart = v
	}
	if v, ok := asFloat64(raw["decay_rate"]); ok {
		req.DecayRate = v
	}
	if v, ok := asString(raw["decay_type"]); ok {
		req.DecayType = v
	}
	if v, ok := asFloat64(raw["ftol"]); ok {
		req.Ftol = v
	}
	if v, ok := asInt(raw["max_linesearch"]); ok {
		req.MaxLinesearch = v
	}
	if v, ok := asInt(raw["maxcor"]); ok {
		req.MaxCor = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := asString(raw["weighting"]); ok {
		req.Weighting = v
	}
	if v, ok := asFloat64(raw["wt_cutoff"]); ok {
		req.WtCutoff = v
	}
	if v, ok := asBool(raw["wt_ignore_gaps"]); ok {
		req.WtIgnoreGaps = v
	}
	if v, ok := asString(raw["pseudocounts"]); ok {
		req.Pseudocounts = v
	}
	if v, ok := asInt(raw["pseudocount_single"]); ok {
		req.PseudocountSingle = v
	}
	if v, ok := asInt(raw["pseudocount_pair"]); ok {
		req.PseudocountPair = v
	}
	if v, ok := asFloat64(raw["lambda_single"]); ok {
		req.LambdaSingle = v
	}
	if v, ok := asFloat64(raw["lambda_pair_factor"]); ok {
		req.LambdaPairFactor = v
	}
	if v, ok := asString(raw["reg_type"]); ok {
		req.RegType = v
	}
	if v, ok := asString(raw["reg_scaling"]); ok {
		req.RegScaling = v
	}
	if v, ok := asString(raw["single_prior"]); ok {
		req.SinglePrior = v
	}
	if v, ok := asInt(raw["max_gap_pos"]); ok {
		req.MaxGapPos = v
	}
	if v, ok := asInt(raw["max_gap_seq"]); ok {
		req.MaxGapSeq = v
	}
	if v, ok := asInt(raw["gibbs_steps"]); ok {
		req.GibbsSteps = v
	}
	if v, ok := asBool(raw["persistent"]); ok {
		req.Persistent = v
	}
	if v, ok := asInt(raw["nr_seq_sample"]); ok {
		req.NrSeqSample = v
	}
	if v, ok := asString(raw["init_raw_file"]); ok {
		req.InitRawFile = v
	}
	if v, ok := asBool(raw["do_not_optimize"]); ok {
		req.DoNotOptimize = v
	}
	if v, ok := asBool(raw["no_centering"]); ok {
		req.NoCentering = v
	}
	if v, ok := asBool(raw["apc"]); ok {
		req.APC = v
	}
	if v, ok := asBool(raw["entropy_correction"]); ok {
		req.EntropyCorrection = v
	}
	if v, ok := asBool(raw["joint_entropy_correction"]); ok {
		req.JointEntropyCorrection = v
	}
	if v, ok := asBool(raw["sergeys_jec"]); ok {
		req.SergeysJEC = v
	}
	if v, ok := asString(raw["mat_file"]); ok {
		req.MatFile = v
	}
	if v, ok := asString(raw["out_raw_file"]); ok {
		req.OutRawFile = v
	}
	if v, ok := asString(raw["out_model_file"]); ok {
		req.OutModelFile = v
	}
	return req, nil
}

func loadOrDefaultFitRequest(configPath string) (fitapi.FitRequest, error) {
	if configPath == "" {
		return fitapi.FitRequest{}, nil
	}
	req, err := loadFitRequestFromConfig(configPath)
	if err != nil {
		return fitapi.FitRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}

// overrideFromFlags lets explicitly set command line flags win over values
// loaded from a config file.
func overrideFromFlags(req *fitapi.FitRequest, set map[string]bool, flagValue map[string]any) error {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "ofn":
			req.Objective = v.(string)
		case "alg":
			req.Algorithm = v.(string)
		case "maxit":
			req.Maxit = v.(int)
		case "epsilon":
			req.Epsilon = v.(float64)
		case "convergence-prev":
			req.ConvergencePrev = v.(int)
		case "early-stopping":
			req.EarlyStopping = v.(bool)
		case "alpha0":
			req.Alpha0 = v.(float64)
		case "beta1":
			req.Beta1 = v.(float64)
		case "beta2":
			req.Beta2 = v.(float64)
		case "beta3":
			req.Beta3 = v.(float64)
		case "fix-v":
			req.FixV = v.(bool)
		case "decay":
			req.Decay = v.(bool)
		case "decay-start":
			req.DecayStart = v.(float64)
		case "decay-rate":
			req.DecayRate = v.(float64)
		case "decay-type":
			req.DecayType = v.(string)
		case "ftol":
			req.Ftol = v.(float64)
		case "max-linesearch":
			req.MaxLinesearch = v.(int)
		case "maxcor":
			req.MaxCor = v.(int)
		case "seed":
			req.Seed = v.(int64)
		case "wt":
			req.Weighting = v.(string)
		case "wt-cutoff":
			req.WtCutoff = v.(float64)
		case "wt-ignore-gaps":
			req.WtIgnoreGaps = v.(bool)
		case "pc":
			req.Pseudocounts = v.(string)
		case "pc-count":
			req.PseudocountSingle = v.(int)
		case "pc-pair-count":
			req.PseudocountPair = v.(int)
		case "lambda-single":
			req.LambdaSingle = v.(float64)
		case "lambda-pair-factor":
			req.LambdaPairFactor = v.(float64)
		case "reg-type":
			req.RegType = v.(string)
		case "reg-scaling":
			req.RegScaling = v.(string)
		case "single-prior":
			req.SinglePrior = v.(string)
		case "max-gap-pos":
			req.MaxGapPos = v.(int)
		case "max-gap-seq":
			req.MaxGapSeq = v.(int)
		case "cd-gibbs-steps":
			req.GibbsSteps = v.(int)
		case "cd-persistent":
			req.Persistent = v.(bool)
		case "nr-seq-sample":
			req.NrSeqSample = v.(int)
		case "init-raw":
			req.InitRawFile = v.(string)
		case "do-not-optimize":
			req.DoNotOptimize = v.(bool)
		case "no-centering":
			req.NoCentering = v.(bool)
		case "apc":
			req.APC = v.(bool)
		case "entropy-correction":
			req.EntropyCorrection = v.(bool)
		case "joint-entropy":
			req.JointEntropyCorrection = v.(bool)
		case "sergeys-jec":
			req.SergeysJEC = v.(bool)
		case "mat":
			req.MatFile = v.(string)
		case "out-raw":
			req.OutRawFile = v.(string)
		case "out-model":
			req.OutModelFile = v.(string)
		}
	}
	return nil
}
