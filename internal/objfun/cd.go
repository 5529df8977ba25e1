package objfun

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"pottsfit/internal/model"
)

// ContrastiveDivergence approximates the likelihood gradient by comparing
// empirical pairwise statistics against statistics sampled from a bank of
// parallel Gibbs chains. The objective trace is noisy and non-monotonic;
// optimizers track the parameter norm instead.
type ContrastiveDivergence struct {
	aln     model.Alignment
	weights []float64
	reg     model.Regularization
	neff    float64

	gibbsSteps  int
	nrSeqSample int
	persistent  bool
	workers     int

	empSingle []float64
	empPair   []float64

	chains    [][]uint8
	chainRNGs []*rand.Rand
	pickRNG   *rand.Rand

	alpha0           float64
	persistentActive bool

	// Evaluations counts Evaluate calls for diagnostics only.
	Evaluations int
}

func NewContrastiveDivergence(deps Deps, cfg Config) (*ContrastiveDivergence, error) {
	if cfg.NrSeqSample <= 0 {
		return nil, fmt.Errorf("nr_seq_sample must be > 0, got %d", cfg.NrSeqSample)
	}
	if cfg.GibbsSteps <= 0 {
		return nil, fmt.Errorf("gibbs_steps must be > 0, got %d", cfg.GibbsSteps)
	}
	ncol := deps.Alignment.L()
	cd := &ContrastiveDivergence{
		aln:         deps.Alignment,
		weights:     deps.Weights,
		reg:         deps.Reg,
		neff:        deps.Neff,
		gibbsSteps:  cfg.GibbsSteps,
		nrSeqSample: cfg.NrSeqSample,
		persistent:  cfg.Persistent,
		workers:     deps.Workers,
		empSingle:   make([]float64, ncol*model.NumStates),
		empPair:     make([]float64, ncol*ncol*model.NumStates*model.NumStates),
		pickRNG:     rand.New(rand.NewSource(deps.Seed)),
	}
	if cd.workers <= 0 {
		cd.workers = runtime.NumCPU()
	}
	for k, f := range deps.SingleFreq {
		cd.empSingle[k] = f * cd.neff
	}
	// The sampled chain statistics only count i != j pairs, so the
	// empirical side must exclude the diagonal blocks as well or the
	// subtraction leaves a constant bias on parameters the model never
	// uses.
	block := model.NumStates * model.NumStates
	for i := 0; i < ncol; i++ {
		for j := 0; j < ncol; j++ {
			if j == i {
				continue
			}
			base := (i*ncol + j) * block
			for k := base; k < base+block; k++ {
				cd.empPair[k] = deps.PairFreq[k] * cd.neff
			}
		}
	}
	cd.chainRNGs = make([]*rand.Rand, cfg.NrSeqSample)
	for c := range cd.chainRNGs {
		cd.chainRNGs[c] = rand.New(rand.NewSource(deps.Seed + int64(c) + 1))
	}
	return cd, nil
}

func (cd *ContrastiveDivergence) Name() string { return "cd" }

// ObserveLearningRate switches on persistent chains once the rate drops
// below alpha0/10.
func (cd *ContrastiveDivergence) ObserveLearningRate(alpha float64) {
	if cd.alpha0 == 0 {
		cd.alpha0 = alpha
		return
	}
	if cd.persistent && !cd.persistentActive && alpha < cd.alpha0/10 {
		cd.persistentActive = true
		log.Debug().Float64("alpha", alpha).Msg("switching to persistent contrastive divergence")
	}
}

func (cd *ContrastiveDivergence) Evaluate(x *model.Potentials) (float64, *model.Potentials, error) {
	ncol := cd.aln.L()
	if x.NCol != ncol {
		return 0, nil, errors.New("potentials do not match alignment columns")
	}
	cd.Evaluations++

	if cd.chains == nil || !cd.persistentActive {
		cd.restartChains()
	}
	if err := cd.advanceChains(x); err != nil {
		return 0, nil, err
	}

	grad := model.NewPotentials(ncol)
	scale := cd.neff / float64(cd.nrSeqSample)
	for _, seq := range cd.chains {
		for i, si := range seq {
			grad.Single[grad.SingleIndex(i, int(si))] += scale
			for j, sj := range seq {
				if j == i {
					continue
				}
				grad.Pair[grad.PairIndex(i, j, int(si), int(sj))] += scale
			}
		}
	}
	for k := range grad.Single {
		grad.Single[k] -= cd.empSingle[k]
	}
	for k := range grad.Pair {
		grad.Pair[k] -= cd.empPair[k]
	}

	fx := regularize(x, grad, cd.reg)
	return fx, grad, nil
}

// restartChains reinitializes the bank from sequences drawn from the
// alignment (restarting mode; persistent mode keeps the bank across calls).
func (cd *ContrastiveDivergence) restartChains() {
	if cd.chains == nil {
		cd.chains = make([][]uint8, cd.nrSeqSample)
		for c := range cd.chains {
			cd.chains[c] = make([]uint8, cd.aln.L())
		}
	}
	for c := range cd.chains {
		src := cd.aln.Seqs[cd.pickRNG.Intn(cd.aln.N())]
		copy(cd.chains[c], src)
	}
}

func (cd *ContrastiveDivergence) advanceChains(x *model.Potentials) error {
	var g errgroup.Group
	g.SetLimit(cd.workers)
	for c := range cd.chains {
		c := c
		g.Go(func() error {
			seq := cd.chains[c]
			rng := cd.chainRNGs[c]
			for step := 0; step < cd.gibbsSteps; step++ {
				if err := gibbsSweep(x, seq, rng); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// gibbsSweep resamples every position of seq in order from its conditional
// distribution under the current potentials.
func gibbsSweep(x *model.Potentials, seq []uint8, rng *rand.Rand) error {
	ncol := len(seq)
	var cond [model.NumStates]float64
	for i := 0; i < ncol; i++ {
		for a := 0; a < model.NumStates; a++ {
			cond[a] = x.V(i, a)
		}
		for j := 0; j < ncol; j++ {
			if j == i {
				continue
			}
			base := x.PairIndex(i, j, 0, int(seq[j]))
			for a := 0; a < model.NumStates; a++ {
				cond[a] += x.Pair[base+a*model.NumStates]
			}
		}
		lse := logSumExp(cond[:])
		var cum float64
		u := rng.Float64()
		next := model.NumStates - 1
		for a := 0; a < model.NumStates; a++ {
			p := math.Exp(cond[a] - lse)
			if math.IsNaN(p) {
				return errors.New("non-finite conditional probability in gibbs sweep")
			}
			cum += p
			if u < cum {
				next = a
				break
			}
		}
		seq[i] = uint8(next)
	}
	return nil
}
