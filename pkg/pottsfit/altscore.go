package pottsfit

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"pottsfit/internal/counts"
	"pottsfit/internal/model"
	"pottsfit/internal/score"
)

// AltScoreRequest computes a covariation score straight from counts and
// frequencies, bypassing model fitting.
type AltScoreRequest struct {
	Alignment model.Alignment

	MaxGapPos int
	MaxGapSeq int

	Weighting    string
	WtCutoff     float64
	WtIgnoreGaps bool

	Pseudocounts      string
	PseudocountSingle int
	PseudocountPair   int

	// Method is omes or mi.
	Method        string
	FodorAldrich  bool
	MINormalized  bool
	MIPseudocount bool

	MatFile string
}

type AltScoreSummary struct {
	Method      string
	Neff        float64
	NumCols     int
	ScoreMatrix [][]float64
}

func (c *Client) AltScore(_ context.Context, req AltScoreRequest) (AltScoreSummary, error) {
	if req.MaxGapPos == 0 {
		req.MaxGapPos = 100
	}
	if req.MaxGapSeq == 0 {
		req.MaxGapSeq = 100
	}
	if req.Weighting == "" {
		req.Weighting = "simple"
	}
	if req.WtCutoff == 0 {
		req.WtCutoff = 0.8
	}
	if req.Pseudocounts == "" {
		req.Pseudocounts = "uniform"
	}
	if req.PseudocountSingle == 0 {
		req.PseudocountSingle = 1
	}
	if req.PseudocountPair == 0 {
		req.PseudocountPair = 1
	}

	if err := req.Alignment.Validate(); err != nil {
		return AltScoreSummary{}, err
	}
	aln := model.TrimGappedSequences(req.Alignment, req.MaxGapSeq)
	aln, _ = model.TrimGappedColumns(aln, req.MaxGapPos)
	ncol := aln.L()

	weighter, err := counts.WeighterFromConfig(req.Weighting, req.WtCutoff, req.WtIgnoreGaps)
	if err != nil {
		return AltScoreSummary{}, err
	}
	weights := weighter.Weights(aln)
	singleCounts := counts.Single(aln, weights)
	pairCounts := counts.Pair(aln, weights, c.workers)

	var m *mat.Dense
	switch req.Method {
	case "omes":
		m = score.OMES(singleCounts, pairCounts, ncol, req.FodorAldrich)
	case "mi":
		pc := counts.Pseudocount{Kind: counts.PseudocountNone}
		if req.MIPseudocount {
			pc, err = counts.PseudocountFromConfig(req.Pseudocounts, req.PseudocountSingle, req.PseudocountPair)
			if err != nil {
				return AltScoreSummary{}, err
			}
		}
		singleFreq := counts.SingleFrequencies(singleCounts, ncol, pc)
		pairFreq := counts.PairFrequencies(pairCounts, singleCounts, ncol, pc)
		m = score.MutualInformation(singleFreq, pairFreq, ncol, req.MINormalized)
	default:
		return AltScoreSummary{}, fmt.Errorf("unsupported alternative score: %s", req.Method)
	}

	if req.MatFile != "" {
		if err := writeMatrix(req.MatFile, m); err != nil {
			return AltScoreSummary{}, err
		}
	}
	return AltScoreSummary{
		Method:      req.Method,
		Neff:        counts.Neff(weights),
		NumCols:     ncol,
		ScoreMatrix: matrixRows(m),
	}, nil
}
