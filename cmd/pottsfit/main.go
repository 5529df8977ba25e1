package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"pottsfit/internal/storage"
	fitapi "pottsfit/pkg/pottsfit"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "fit":
		return runFit(ctx, args[1:])
	case "altscore":
		return runAltScore(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "trajectory":
		return runTrajectory(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runFit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fit", flag.ContinueOnError)
	alnPath := fs.String("aln", "", "alignment file (psicov or fasta, .gz supported)")
	alnFormat := fs.String("format", "psicov", "alignment format: psicov|fasta")
	configPath := fs.String("config", "", "optional fit config JSON path")

	objective := fs.String("ofn", "pll", "objective function: pll|cd")
	algorithm := fs.String("alg", "", "optimizer: lbfgs|conjugate_gradients|gradient_descent|adam|numerical_differentiation (default per objective)")
	maxit := fs.Int("maxit", 2000, "maximum optimizer iterations")
	epsilon := fs.Float64("epsilon", 1e-5, "relative convergence threshold")
	convergencePrev := fs.Int("convergence-prev", 5, "trailing window length for relative change")
	earlyStopping := fs.Bool("early-stopping", false, "stop once relative change drops below epsilon")
	alpha0 := fs.Float64("alpha0", 1e-3, "initial learning rate (gradient_descent, adam)")
	beta1 := fs.Float64("beta1", 0.9, "adam first-moment decay")
	beta2 := fs.Float64("beta2", 0.999, "adam second-moment decay")
	beta3 := fs.Float64("beta3", 0.9, "adam step smoothing decay")
	fixV := fs.Bool("fix-v", false, "keep single potentials fixed during optimization")
	decay := fs.Bool("decay", false, "enable learning rate decay")
	decayStart := fs.Float64("decay-start", 1e-4, "relative change that activates decay")
	decayRate := fs.Float64("decay-rate", 10, "decay rate parameter")
	decayType := fs.String("decay-type", "step", "decay schedule: step|sqrt|power|exp|lin|sig|keras")
	ftol := fs.Float64("ftol", 1e-4, "lbfgs sufficient-decrease tolerance")
	maxLinesearch := fs.Int("max-linesearch", 5, "lbfgs line search trial limit")
	maxCor := fs.Int("maxcor", 5, "lbfgs correction pair memory")
	seed := fs.Int64("seed", 0, "rng seed for stochastic objectives")

	weighting := fs.String("wt", "simple", "sequence weighting: simple|henikoff|uniform")
	wtCutoff := fs.Float64("wt-cutoff", 0.8, "identity cutoff for simple weighting")
	wtIgnoreGaps := fs.Bool("wt-ignore-gaps", false, "ignore gap positions when comparing sequences")
	pseudocounts := fs.String("pc", "uniform", "pseudocount admixture: uniform|submat|constant|none")
	pcCount := fs.Int("pc-count", 1, "single pseudocount admixture count")
	pcPairCount := fs.Int("pc-pair-count", 1, "pair pseudocount admixture count")
	lambdaSingle := fs.Float64("lambda-single", 10, "single potential regularization strength")
	lambdaPairFactor := fs.Float64("lambda-pair-factor", 0.2, "pair regularization factor before scaling")
	regType := fs.String("reg-type", "L2", "regularization type: L2|L1")
	regScaling := fs.String("reg-scaling", "L", "pair regularization scaling: L|1")
	singlePrior := fs.String("single-prior", "v-center", "single potential prior: v-center|v-zero")
	maxGapPos := fs.Int("max-gap-pos", 100, "remove columns above this gap percentage")
	maxGapSeq := fs.Int("max-gap-seq", 100, "remove sequences above this gap percentage")

	gibbsSteps := fs.Int("cd-gibbs-steps", 1, "gibbs sweeps per cd evaluation")
	persistent := fs.Bool("cd-persistent", false, "persistent contrastive divergence")
	nrSeqSample := fs.Int("nr-seq-sample", 500, "cd markov chain count")

	initRaw := fs.String("init-raw", "", "initialize potentials from raw file")
	doNotOptimize := fs.Bool("do-not-optimize", false, "score initial potentials without fitting")
	noCentering := fs.Bool("no-centering", false, "skip zero-sum gauge transform before scoring")
	apc := fs.Bool("apc", false, "average product correction")
	entropyCorrection := fs.Bool("entropy-correction", false, "single-column entropy correction")
	jointEntropy := fs.Bool("joint-entropy", false, "joint entropy correction")
	sergeysJEC := fs.Bool("sergeys-jec", false, "joint entropy correction with ratio-of-means scaling")

	matFile := fs.String("mat", "", "write score matrix to this path (.gz supported)")
	outRaw := fs.String("out-raw", "", "write fitted potentials in raw format")
	outModel := fs.String("out-model", "", "write pair frequency model file")

	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "pottsfit.db", "sqlite database path")
	workers := fs.Int("workers", 4, "worker count")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	if *alnPath == "" {
		return errors.New("fit requires -aln")
	}

	req, err := loadOrDefaultFitRequest(*configPath)
	if err != nil {
		return err
	}
	if *configPath == "" {
		req = fitapi.FitRequest{
			Objective:              *objective,
			Algorithm:              *algorithm,
			Maxit:                  *maxit,
			Epsilon:                *epsilon,
			ConvergencePrev:        *convergencePrev,
			EarlyStopping:          *earlyStopping,
			Alpha0:                 *alpha0,
			Beta1:                  *beta1,
			Beta2:                  *beta2,
			Beta3:                  *beta3,
			FixV:                   *fixV,
			Decay:                  *decay,
			DecayStart:             *decayStart,
			DecayRate:              *decayRate,
			DecayType:              *decayType,
			Ftol:                   *ftol,
			MaxLinesearch:          *maxLinesearch,
			MaxCor:                 *maxCor,
			Seed:                   *seed,
			Weighting:              *weighting,
			WtCutoff:               *wtCutoff,
			WtIgnoreGaps:           *wtIgnoreGaps,
			Pseudocounts:           *pseudocounts,
			PseudocountSingle:      *pcCount,
			PseudocountPair:        *pcPairCount,
			LambdaSingle:           *lambdaSingle,
			LambdaPairFactor:       *lambdaPairFactor,
			RegType:                *regType,
			RegScaling:             *regScaling,
			SinglePrior:            *singlePrior,
			MaxGapPos:              *maxGapPos,
			MaxGapSeq:              *maxGapSeq,
			GibbsSteps:             *gibbsSteps,
			Persistent:             *persistent,
			NrSeqSample:            *nrSeqSample,
			InitRawFile:            *initRaw,
			DoNotOptimize:          *doNotOptimize,
			NoCentering:            *noCentering,
			APC:                    *apc,
			EntropyCorrection:      *entropyCorrection,
			JointEntropyCorrection: *jointEntropy,
			SergeysJEC:             *sergeysJEC,
			MatFile:                *matFile,
			OutRawFile:             *outRaw,
			OutModelFile:           *outModel,
		}
	} else {
		err := overrideFromFlags(&req, setFlags, map[string]any{
			"ofn":                *objective,
			"alg":                *algorithm,
			"maxit":              *maxit,
			"epsilon":            *epsilon,
			"convergence-prev":   *convergencePrev,
			"early-stopping":     *earlyStopping,
			"alpha0":             *alpha0,
			"beta1":              *beta1,
			"beta2":              *beta2,
			"beta3":              *beta3,
			"fix-v":              *fixV,
			"decay":              *decay,
			"decay-start":        *decayStart,
			"decay-rate":         *decayRate,
			"decay-type":         *decayType,
			"ftol":               *ftol,
			"max-linesearch":     *maxLinesearch,
			"maxcor":             *maxCor,
			"seed":               *seed,
			"wt":                 *weighting,
			"wt-cutoff":          *wtCutoff,
			"wt-ignore-gaps":     *wtIgnoreGaps,
			"pc":                 *pseudocounts,
			"pc-count":           *pcCount,
			"pc-pair-count":      *pcPairCount,
			"lambda-single":      *lambdaSingle,
			"lambda-pair-factor": *lambdaPairFactor,
			"reg-type":           *regType,
			"reg-scaling":        *regScaling,
			"single-prior":       *singlePrior,
			"max-gap-pos":        *maxGapPos,
			"max-gap-seq":        *maxGapSeq,
			"cd-gibbs-steps":     *gibbsSteps,
			"cd-persistent":      *persistent,
			"nr-seq-sample":      *nrSeqSample,
			"init-raw":           *initRaw,
			"do-not-optimize":    *doNotOptimize,
			"no-centering":       *noCentering,
			"apc":                *apc,
			"entropy-correction": *entropyCorrection,
			"joint-entropy":      *jointEntropy,
			"sergeys-jec":        *sergeysJEC,
			"mat":                *matFile,
			"out-raw":            *outRaw,
			"out-model":          *outModel,
		})
		if err != nil {
			return err
		}
	}

	aln, err := readAlignment(*alnPath, *alnFormat)
	if err != nil {
		return err
	}
	req.Alignment = aln

	client, err := fitapi.NewClient(ctx, fitapi.Options{
		StoreKind: *storeKind,
		DBPath:    *dbPath,
		Workers:   *workers,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Fit(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("fit completed run_id=%s objective=%s algorithm=%s nseq=%d ncol=%d neff=%.2f\n",
		summary.RunID, summary.Objective, summary.Algorithm, summary.NumSeqs, summary.NumCols, summary.Neff)
	fmt.Printf("exit_code=%d iterations=%d final_value=%.6f\n",
		summary.ExitCode, summary.Iterations, summary.FinalValue)

	// Failed optimizations map their negative exit code onto the process
	// exit status.
	if summary.ExitCode < 0 {
		os.Exit(-summary.ExitCode)
	}
	return nil
}

func runAltScore(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("altscore", flag.ContinueOnError)
	alnPath := fs.String("aln", "", "alignment file (psicov or fasta, .gz supported)")
	alnFormat := fs.String("format", "psicov", "alignment format: psicov|fasta")
	method := fs.String("method", "omes", "score: omes|mi")
	fodorAldrich := fs.Bool("fodor-aldrich", false, "omes variant dividing by expected counts")
	miNormalized := fs.Bool("mi-normalized", false, "normalize mi by joint entropy")
	miPseudocounts := fs.Bool("mi-pseudocounts", false, "apply pseudocounts to mi frequencies")
	weighting := fs.String("wt", "simple", "sequence weighting: simple|henikoff|uniform")
	wtCutoff := fs.Float64("wt-cutoff", 0.8, "identity cutoff for simple weighting")
	wtIgnoreGaps := fs.Bool("wt-ignore-gaps", false, "ignore gap positions when comparing sequences")
	pseudocounts := fs.String("pc", "uniform", "pseudocount admixture: uniform|submat|constant|none")
	pcCount := fs.Int("pc-count", 1, "single pseudocount admixture count")
	pcPairCount := fs.Int("pc-pair-count", 1, "pair pseudocount admixture count")
	maxGapPos := fs.Int("max-gap-pos", 100, "remove columns above this gap percentage")
	maxGapSeq := fs.Int("max-gap-seq", 100, "remove sequences above this gap percentage")
	matFile := fs.String("mat", "", "write score matrix to this path (.gz supported)")
	workers := fs.Int("workers", 4, "worker count")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *alnPath == "" {
		return errors.New("altscore requires -aln")
	}

	aln, err := readAlignment(*alnPath, *alnFormat)
	if err != nil {
		return err
	}

	client, err := fitapi.NewClient(ctx, fitapi.Options{StoreKind: "memory", Workers: *workers})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.AltScore(ctx, fitapi.AltScoreRequest{
		Alignment:         aln,
		MaxGapPos:         *maxGapPos,
		MaxGapSeq:         *maxGapSeq,
		Weighting:         *weighting,
		WtCutoff:          *wtCutoff,
		WtIgnoreGaps:      *wtIgnoreGaps,
		Pseudocounts:      *pseudocounts,
		PseudocountSingle: *pcCount,
		PseudocountPair:   *pcPairCount,
		Method:            *method,
		FodorAldrich:      *fodorAldrich,
		MINormalized:      *miNormalized,
		MIPseudocount:     *miPseudocounts,
		MatFile:           *matFile,
	})
	if err != nil {
		return err
	}

	fmt.Printf("altscore completed method=%s ncol=%d neff=%.2f\n", summary.Method, summary.NumCols, summary.Neff)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "pottsfit.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := fitapi.NewClient(ctx, fitapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, fitapi.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}
	for _, r := range runs {
		fmt.Printf("run_id=%s created=%s objective=%s algorithm=%s ncol=%d neff=%.2f exit_code=%d iterations=%d final_value=%.6f\n",
			r.ID, r.CreatedAtUTC, r.Objective, r.Algorithm, r.NumCols, r.Neff, r.ExitCode, r.Iterations, r.FinalValue)
	}
	return nil
}

func runTrajectory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("trajectory", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	jsonOut := fs.Bool("json", false, "emit trajectory as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "pottsfit.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return errors.New("trajectory requires -run-id")
	}

	client, err := fitapi.NewClient(ctx, fitapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	trajectory, err := client.Trajectory(ctx, fitapi.TrajectoryRequest{RunID: *runID})
	if err != nil {
		return err
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(trajectory)
	}
	for _, p := range trajectory {
		fmt.Printf("iteration=%d value=%.8f gnorm=%.8f xnorm=%.8f alpha=%.8f\n",
			p.Iteration, p.Value, p.GradNorm, p.XNorm, p.Alpha)
	}
	return nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: pottsfit <fit|altscore|runs|trajectory> [flags]", msg)
}
