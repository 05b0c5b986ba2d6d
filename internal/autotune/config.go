package autotune

import (
	"fmt"
	"math"

	"github.com/san-kum/thermotune/internal/linalg"
	"github.com/san-kum/thermotune/internal/plant"
)

// Grid describes a geometric sweep of the heater lag used to seed the fit.
type Grid struct {
	Min    float64
	Max    float64
	Points int
}

type Config struct {
	// Tolerance governs every SVD and pseudo-inverse inside the fit.
	Tolerance linalg.Tolerance

	MaxIterations int
	// StepTolerance bounds the relative parameter update at convergence.
	StepTolerance float64
	// MaxStalls is how many consecutive iterations may fail to lower the
	// cost before the fit is declared singular.
	MaxStalls int
	// MaxHalvings caps the backtracking line search per iteration.
	MaxHalvings int
	MinSamples  int
	// DiffStep is the relative perturbation for the numeric Jacobian.
	DiffStep float64

	// InitialGuess is used when the data-driven seed is not physical.
	InitialGuess plant.Params
	TauGrid      Grid

	// Bandwidth scales the proportional gain; 0.25 gives a critically
	// damped loop.
	Bandwidth float64
}

func DefaultConfig() Config {
	return Config{
		Tolerance:     linalg.DefaultTolerance(),
		MaxIterations: 100,
		StepTolerance: 1e-6,
		MaxStalls:     3,
		MaxHalvings:   8,
		MinSamples:    10,
		DiffStep:      1e-4,
		InitialGuess: plant.Params{
			C1:      0.001,
			C2:      1,
			Tau:     30,
			Ambient: 70,
		},
		TauGrid: Grid{
			Min:    0.5,
			Max:    600,
			Points: 60,
		},
		Bandwidth: 0.25,
	}
}

// Validate rejects settings the fit cannot run with. Comparisons are written
// so that NaN fails them.
func (c Config) Validate() error {
	if eps := c.Tolerance.Epsilon; !(eps >= 0) || math.IsInf(eps, 0) || c.Tolerance.MaxSweeps < 1 {
		return fmt.Errorf("invalid linear algebra tolerance %+v", c.Tolerance)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be at least 1, got %d", c.MaxIterations)
	}
	if !(c.StepTolerance > 0) || math.IsInf(c.StepTolerance, 0) {
		return fmt.Errorf("step tolerance must be positive and finite, got %g", c.StepTolerance)
	}
	if c.MaxStalls < 1 {
		return fmt.Errorf("max stalls must be at least 1, got %d", c.MaxStalls)
	}
	if c.MaxHalvings < 0 {
		return fmt.Errorf("max halvings must not be negative, got %d", c.MaxHalvings)
	}
	if !(c.DiffStep > 0 && c.DiffStep < 1) {
		return fmt.Errorf("diff step must be in (0, 1), got %g", c.DiffStep)
	}
	if g := c.TauGrid; g.Points < 1 || !(g.Min > 0) || !(g.Max >= g.Min) || math.IsInf(g.Max, 0) {
		return fmt.Errorf("invalid tau grid %+v", c.TauGrid)
	}
	if !(c.Bandwidth > 0) || math.IsInf(c.Bandwidth, 0) {
		return fmt.Errorf("bandwidth must be positive and finite, got %g", c.Bandwidth)
	}
	if err := c.InitialGuess.Validate(); err != nil {
		return fmt.Errorf("initial guess: %w", err)
	}
	return nil
}

// minSamples is the effective floor: always more samples than parameters.
func (c Config) minSamples() int {
	return max(c.MinSamples, plant.NumParams+1)
}
