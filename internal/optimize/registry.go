package optimize

import (
	"fmt"
)

// Config carries every algorithm knob; each variant reads the subset it
// understands.
type Config struct {
	Maxit           int
	Epsilon         float64
	ConvergencePrev int
	EarlyStopping   bool

	Alpha0 float64
	Beta1  float64
	Beta2  float64
	Beta3  float64
	FixV   bool

	Decay      bool
	DecayStart float64
	DecayRate  float64
	DecayType  string

	Ftol          float64
	MaxLinesearch int
	MaxCor        int

	Seed   int64
	OnStep StepFunc
}

func FromConfig(name string, cfg Config) (Optimizer, error) {
	policy := ConvergencePolicy{
		Epsilon:       cfg.Epsilon,
		PrevWindow:    cfg.ConvergencePrev,
		EarlyStopping: cfg.EarlyStopping,
	}
	switch name {
	case "", "lbfgs":
		return &LBFGS{
			MaxIterations: cfg.Maxit,
			Ftol:          cfg.Ftol,
			MaxLinesearch: cfg.MaxLinesearch,
			MaxCor:        cfg.MaxCor,
			Policy:        policy,
			OnStep:        cfg.OnStep,
		}, nil
	case "conjugate_gradients":
		return &ConjugateGradient{
			MaxIterations: cfg.Maxit,
			Policy:        policy,
			OnStep:        cfg.OnStep,
		}, nil
	case "gradient_descent":
		decay, err := DecayFromConfig(cfg.Decay, cfg.DecayType, cfg.DecayRate, cfg.DecayStart)
		if err != nil {
			return nil, err
		}
		return &GradientDescent{
			MaxIterations: cfg.Maxit,
			Alpha0:        cfg.Alpha0,
			FixV:          cfg.FixV,
			Policy:        policy,
			Decay:         decay,
			OnStep:        cfg.OnStep,
		}, nil
	case "adam":
		decay, err := DecayFromConfig(cfg.Decay, cfg.DecayType, cfg.DecayRate, cfg.DecayStart)
		if err != nil {
			return nil, err
		}
		return &Adam{
			MaxIterations: cfg.Maxit,
			Alpha0:        cfg.Alpha0,
			Beta1:         cfg.Beta1,
			Beta2:         cfg.Beta2,
			Beta3:         cfg.Beta3,
			FixV:          cfg.FixV,
			Policy:        policy,
			Decay:         decay,
			OnStep:        cfg.OnStep,
		}, nil
	case "numerical_differentiation":
		return &NumericalDifferentiation{
			MaxChecks: cfg.Maxit,
			Step:      cfg.Epsilon,
			Seed:      cfg.Seed,
			OnStep:    cfg.OnStep,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported optimizer: %s", name)
	}
}

// ValidatePairing rejects objective/optimizer combinations before any
// computation: pseudo-likelihood needs an exact line-search method, the
// noisy contrastive-divergence gradient needs a stochastic one.
func ValidatePairing(objective, algorithm string) error {
	switch objective {
	case "", "pll":
		switch algorithm {
		case "", "lbfgs", "conjugate_gradients", "numerical_differentiation":
			return nil
		}
		return fmt.Errorf("objective pll must be optimized with lbfgs, conjugate_gradients or numerical_differentiation, not %s", algorithm)
	case "cd":
		switch algorithm {
		case "gradient_descent", "adam":
			return nil
		}
		return fmt.Errorf("objective cd must be optimized with gradient_descent or adam, not %s", algorithm)
	default:
		return fmt.Errorf("unsupported objective function: %s", objective)
	}
}
