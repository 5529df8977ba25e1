// Package pottsfit is the public facade over the model-fitting engine: it
// wires weighting, counts, objective function, optimizer and scoring into
// one run and records the outcome in the run store.
package pottsfit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"

	"pottsfit/internal/counts"
	"pottsfit/internal/model"
	"pottsfit/internal/objfun"
	"pottsfit/internal/optimize"
	"pottsfit/internal/rawio"
	"pottsfit/internal/score"
	"pottsfit/internal/storage"
)

type Options struct {
	StoreKind string
	DBPath    string
	Workers   int
}

type Client struct {
	store   storage.Store
	workers int
}

func NewClient(ctx context.Context, opts Options) (*Client, error) {
	store, err := storage.NewStore(opts.StoreKind, opts.DBPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	return &Client{store: store, workers: opts.Workers}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// FitRequest configures one end-to-end fit. Zero values take the
// documented defaults, so an explicit zero is not expressible for the
// defaulted numeric knobs. This matters for MaxGapPos/MaxGapSeq (a
// threshold of 1 is the effective floor; 0 becomes 100, which disables
// trimming) and for Seed, where 0 is simply the default seed.
type FitRequest struct {
	Alignment model.Alignment

	MaxGapPos int
	MaxGapSeq int

	Weighting    string
	WtCutoff     float64
	WtIgnoreGaps bool

	Pseudocounts      string
	PseudocountSingle int
	PseudocountPair   int

	LambdaSingle     float64
	LambdaPairFactor float64
	RegType          string
	RegScaling       string
	SinglePrior      string

	Objective   string
	GibbsSteps  int
	NrSeqSample int
	Persistent  bool

	Algorithm       string
	Maxit           int
	Epsilon         float64
	ConvergencePrev int
	EarlyStopping   bool
	Alpha0          float64
	Beta1           float64
	Beta2           float64
	Beta3           float64
	FixV            bool
	Decay           bool
	DecayStart      float64
	DecayRate       float64
	DecayType       string
	Ftol            float64
	MaxLinesearch   int
	MaxCor          int
	Seed            int64

	InitRawFile   string
	DoNotOptimize bool

	NoCentering            bool
	APC                    bool
	EntropyCorrection      bool
	JointEntropyCorrection bool
	SergeysJEC             bool

	MatFile      string
	OutRawFile   string
	OutModelFile string
}

type FitSummary struct {
	RunID       string
	Objective   string
	Algorithm   string
	ExitCode    int
	Iterations  int
	FinalValue  float64
	Neff        float64
	NumSeqs     int
	NumCols     int
	KeptColumns []int
	ScoreMatrix [][]float64
	Trajectory  []model.TrajectoryPoint
}

func (r *FitRequest) applyDefaults() {
	if r.MaxGapPos == 0 {
		r.MaxGapPos = 100
	}
	if r.MaxGapSeq == 0 {
		r.MaxGapSeq = 100
	}
	if r.Weighting == "" {
		r.Weighting = "simple"
	}
	if r.WtCutoff == 0 {
		r.WtCutoff = 0.8
	}
	if r.Pseudocounts == "" {
		r.Pseudocounts = "uniform"
	}
	if r.PseudocountSingle == 0 {
		r.PseudocountSingle = 1
	}
	if r.PseudocountPair == 0 {
		r.PseudocountPair = 1
	}
	if r.LambdaSingle == 0 {
		r.LambdaSingle = 10
	}
	if r.LambdaPairFactor == 0 {
		r.LambdaPairFactor = 0.2
	}
	if r.Objective == "" {
		r.Objective = "pll"
	}
	if r.Algorithm == "" {
		switch r.Objective {
		case "cd":
			r.Algorithm = "gradient_descent"
		default:
			r.Algorithm = "lbfgs"
		}
	}
	if r.GibbsSteps == 0 {
		r.GibbsSteps = 1
	}
	if r.NrSeqSample == 0 {
		r.NrSeqSample = 500
	}
	if r.Maxit == 0 {
		r.Maxit = 2000
	}
	if r.Epsilon == 0 {
		r.Epsilon = 1e-5
	}
	if r.ConvergencePrev == 0 {
		r.ConvergencePrev = 5
	}
	if r.Alpha0 == 0 {
		r.Alpha0 = 1e-3
	}
	if r.Beta1 == 0 {
		r.Beta1 = 0.9
	}
	if r.Beta2 == 0 {
		r.Beta2 = 0.999
	}
	if r.Beta3 == 0 {
		r.Beta3 = 0.9
	}
	if r.DecayStart == 0 {
		r.DecayStart = 1e-4
	}
	if r.DecayRate == 0 {
		r.DecayRate = 10
	}
	if r.DecayType == "" {
		r.DecayType = "step"
	}
	if r.Ftol == 0 {
		r.Ftol = 1e-4
	}
	if r.MaxLinesearch == 0 {
		r.MaxLinesearch = 5
	}
	if r.MaxCor == 0 {
		r.MaxCor = 5
	}
}

// Fit runs the full pipeline. Configuration problems surface as errors
// before any computation; numerical failures surface as a negative
// ExitCode in the summary.
func (c *Client) Fit(ctx context.Context, req FitRequest) (FitSummary, error) {
	req.applyDefaults()

	if err := optimize.ValidatePairing(req.Objective, req.Algorithm); err != nil {
		return FitSummary{}, err
	}
	if req.DoNotOptimize && req.InitRawFile == "" {
		return FitSummary{}, errors.New("skipping optimization requires initial potentials from a raw file")
	}
	if err := req.Alignment.Validate(); err != nil {
		return FitSummary{}, err
	}

	aln := model.TrimGappedSequences(req.Alignment, req.MaxGapSeq)
	aln, keptColumns := model.TrimGappedColumns(aln, req.MaxGapPos)
	if err := aln.Validate(); err != nil {
		return FitSummary{}, fmt.Errorf("alignment after gap trimming: %w", err)
	}
	ncol := aln.L()

	weighter, err := counts.WeighterFromConfig(req.Weighting, req.WtCutoff, req.WtIgnoreGaps)
	if err != nil {
		return FitSummary{}, err
	}
	weights := weighter.Weights(aln)
	neff := counts.Neff(weights)

	pc, err := counts.PseudocountFromConfig(req.Pseudocounts, req.PseudocountSingle, req.PseudocountPair)
	if err != nil {
		return FitSummary{}, err
	}
	singleCounts := counts.Single(aln, weights)
	pairCounts := counts.Pair(aln, weights, c.workers)
	singleFreq := counts.SingleFrequencies(singleCounts, ncol, pc)
	pairFreq := counts.PairFrequencies(pairCounts, singleCounts, ncol, pc)

	reg, err := objfun.NewRegularization(req.LambdaSingle, req.LambdaPairFactor, req.RegType, req.RegScaling, req.SinglePrior, singleFreq, ncol)
	if err != nil {
		return FitSummary{}, err
	}

	x, err := c.initialPotentials(req, reg, ncol)
	if err != nil {
		return FitSummary{}, err
	}

	log.Info().
		Int("num_seqs", aln.N()).
		Int("num_cols", ncol).
		Float64("neff", neff).
		Str("objective", req.Objective).
		Str("algorithm", req.Algorithm).
		Msg("starting fit")

	summary := FitSummary{
		RunID:       uuid.NewString(),
		Objective:   req.Objective,
		Algorithm:   req.Algorithm,
		Neff:        neff,
		NumSeqs:     aln.N(),
		NumCols:     ncol,
		KeptColumns: keptColumns,
	}

	result := model.Result{Potentials: x}
	if !req.DoNotOptimize {
		deps := objfun.Deps{
			Alignment:  aln,
			Weights:    weights,
			Neff:       neff,
			Reg:        reg,
			SingleFreq: singleFreq,
			PairFreq:   pairFreq,
			Workers:    c.workers,
			Seed:       req.Seed,
		}
		f, err := objfun.FromConfig(req.Objective, deps, objfun.Config{
			GibbsSteps:  req.GibbsSteps,
			NrSeqSample: req.NrSeqSample,
			Persistent:  req.Persistent,
		})
		if err != nil {
			return FitSummary{}, err
		}
		opt, err := optimize.FromConfig(req.Algorithm, optimize.Config{
			Maxit:           req.Maxit,
			Epsilon:         req.Epsilon,
			ConvergencePrev: req.ConvergencePrev,
			EarlyStopping:   req.EarlyStopping,
			Alpha0:          req.Alpha0,
			Beta1:           req.Beta1,
			Beta2:           req.Beta2,
			Beta3:           req.Beta3,
			FixV:            req.FixV,
			Decay:           req.Decay,
			DecayStart:      req.DecayStart,
			DecayRate:       req.DecayRate,
			DecayType:       req.DecayType,
			Ftol:            req.Ftol,
			MaxLinesearch:   req.MaxLinesearch,
			MaxCor:          req.MaxCor,
			Seed:            req.Seed,
			OnStep: func(p model.TrajectoryPoint) {
				summary.Trajectory = append(summary.Trajectory, p)
			},
		})
		if err != nil {
			return FitSummary{}, err
		}
		result, err = opt.Minimize(ctx, f, x)
		if err != nil {
			return FitSummary{}, err
		}
	}

	summary.ExitCode = result.ExitCode
	summary.Iterations = result.Iterations
	summary.FinalValue = result.FinalValue

	if !result.Failed() {
		raw := score.Frobenius(result.Potentials, !req.NoCentering)
		corrected := c.applyCorrections(req, raw, singleFreq, pairFreq, ncol)
		summary.ScoreMatrix = matrixRows(corrected)

		if req.MatFile != "" {
			if err := writeMatrix(req.MatFile, corrected); err != nil {
				return summary, err
			}
		}
		if req.OutRawFile != "" {
			meta := map[string]any{
				"objective": req.Objective,
				"algorithm": req.Algorithm,
				"neff":      neff,
			}
			if err := rawio.WriteRaw(req.OutRawFile, result.Potentials, meta); err != nil {
				return summary, err
			}
		}
		if req.OutModelFile != "" {
			nij := counts.Nij(pairCounts, ncol)
			if err := rawio.WriteModel(req.OutModelFile, result.Potentials, pairFreq, nij, reg.LambdaPair); err != nil {
				return summary, err
			}
		}
	}

	run := model.RunRecord{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		ID:           summary.RunID,
		CreatedAtUTC: time.Now().UTC().Format(time.RFC3339Nano),
		Objective:    req.Objective,
		Algorithm:    req.Algorithm,
		NumSeqs:      aln.N(),
		NumCols:      ncol,
		Neff:         neff,
		ExitCode:     result.ExitCode,
		Iterations:   result.Iterations,
		FinalValue:   result.FinalValue,
	}
	if err := c.store.SaveRun(ctx, run); err != nil {
		return summary, err
	}
	if err := c.store.SaveTrajectory(ctx, summary.RunID, summary.Trajectory); err != nil {
		return summary, err
	}
	return summary, nil
}

func (c *Client) initialPotentials(req FitRequest, reg model.Regularization, ncol int) (*model.Potentials, error) {
	if req.InitRawFile != "" {
		x, err := rawio.ReadRaw(req.InitRawFile)
		if err != nil {
			return nil, err
		}
		if x.NCol != ncol {
			return nil, fmt.Errorf("raw potentials have %d columns, alignment has %d", x.NCol, ncol)
		}
		return x, nil
	}
	x := model.NewPotentials(ncol)
	copy(x.Single, reg.MuSingle)
	return x, nil
}

func (c *Client) applyCorrections(req FitRequest, raw *mat.Dense, singleFreq, pairFreq []float64, ncol int) *mat.Dense {
	corrected := raw
	if req.APC {
		corrected = score.APC(corrected)
	}
	if req.EntropyCorrection {
		corrected = score.EntropyCorrection(corrected, singleFreq, ncol)
	}
	if req.JointEntropyCorrection {
		corrected = score.JointEntropyCorrection(corrected, pairFreq, ncol, false)
	}
	if req.SergeysJEC {
		corrected = score.JointEntropyCorrection(corrected, pairFreq, ncol, true)
	}
	return corrected
}

func matrixRows(m *mat.Dense) [][]float64 {
	n, _ := m.Dims()
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		rows[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			rows[i][j] = m.At(i, j)
		}
	}
	return rows
}
