package optimize

import (
	"fmt"
	"math"
)

// ConvergencePolicy tracks a trailing window of the optimization metric
// (objective value or parameter norm, algorithm-dependent) and declares
// convergence when the relative change across the window drops below
// Epsilon. Convergence terminates a run only when EarlyStopping is set;
// the relative-change metric itself also drives decay activation.
type ConvergencePolicy struct {
	Epsilon       float64
	PrevWindow    int
	EarlyStopping bool

	history []float64
}

func (c *ConvergencePolicy) Record(v float64) {
	c.history = append(c.history, v)
	if len(c.history) > c.PrevWindow {
		c.history = c.history[1:]
	}
}

// RelativeChange is |newest-oldest| / max(|oldest|, tiny) across the
// trailing window, or +Inf until the window has filled.
func (c *ConvergencePolicy) RelativeChange() float64 {
	if c.PrevWindow <= 0 || len(c.history) < c.PrevWindow {
		return math.Inf(1)
	}
	oldest := c.history[0]
	newest := c.history[len(c.history)-1]
	denom := math.Abs(oldest)
	if denom < 1e-10 {
		denom = 1e-10
	}
	return math.Abs(newest-oldest) / denom
}

func (c *ConvergencePolicy) Converged() bool {
	return c.EarlyStopping && c.RelativeChange() < c.Epsilon
}

// DecaySchedule scales the effective learning rate once the convergence
// metric first drops below StartTol. Every schedule is monotonically
// non-increasing in the iterations elapsed since activation.
type DecaySchedule struct {
	Enabled  bool
	Type     string
	Rate     float64
	StartTol float64

	active      bool
	activatedAt int
}

func DecayFromConfig(enabled bool, decayType string, rate, start float64) (DecaySchedule, error) {
	switch decayType {
	case "", "step", "sqrt", "power", "exp", "lin", "sig", "keras":
	default:
		return DecaySchedule{}, fmt.Errorf("unsupported decay type: %s", decayType)
	}
	if enabled && rate <= 0 {
		return DecaySchedule{}, fmt.Errorf("decay rate must be > 0, got %g", rate)
	}
	if decayType == "" {
		decayType = "step"
	}
	return DecaySchedule{Enabled: enabled, Type: decayType, Rate: rate, StartTol: start}, nil
}

// Alpha returns the effective learning rate at iter given the current
// convergence metric.
func (d *DecaySchedule) Alpha(alpha0 float64, iter int, relChange float64) float64 {
	if !d.Enabled {
		return alpha0
	}
	if !d.active {
		if relChange >= d.StartTol {
			return alpha0
		}
		d.active = true
		d.activatedAt = iter
	}
	t := float64(iter - d.activatedAt)
	switch d.Type {
	case "sqrt":
		return alpha0 / math.Sqrt(1+t/d.Rate)
	case "power":
		return alpha0 * math.Pow(1+t, -d.Rate)
	case "exp":
		return alpha0 * math.Exp(-t/d.Rate)
	case "lin":
		return alpha0 / (1 + t/d.Rate)
	case "sig":
		return alpha0 * 2 / (1 + math.Exp(t/d.Rate))
	case "keras":
		return alpha0 / (1 + d.Rate*t)
	default: // step
		return alpha0 / (1 + math.Floor(t/d.Rate))
	}
}
