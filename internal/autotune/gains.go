package autotune

import (
	"fmt"
	"math"

	"github.com/san-kum/thermotune/internal/plant"
)

// Gains are the PI plus feed-forward settings recommended for a plant.
type Gains struct {
	// Kp is the proportional gain, unit control per deg F.
	Kp float64 `json:"kp" yaml:"kp"`
	// Ti is the integral time, sec.
	Ti float64 `json:"ti" yaml:"ti"`
	// Kf is the feed-forward gain, unit control per deg F above ambient.
	Kf float64 `json:"kf" yaml:"kf"`
	// MaxHeatRate is the heating rate at full command, deg F per sec.
	MaxHeatRate float64 `json:"max_heat_rate" yaml:"max_heat_rate"`
}

// Ki is the equivalent parallel-form integral gain.
func (g Gains) Ki() float64 {
	if g.Ti == 0 {
		return 0
	}
	return g.Kp / g.Ti
}

// ComputeGains derives controller gains from fitted plant parameters.
//
// The integral time cancels the water pole. What remains of the loop is an
// integrator in series with the heater lag, whose characteristic equation
// tau*s^2 + s + Kp*c1*c2 = 0 is tuned by bandwidth: Kp = bandwidth*Ti/(tau*c2).
// A bandwidth of 0.25 makes the loop critically damped. With no lag the
// proportional gain falls back to one unit of command per unit of plant gain.
func ComputeGains(p plant.Params, bandwidth float64) (Gains, error) {
	if err := p.Validate(); err != nil {
		return Gains{}, err
	}
	if !(bandwidth > 0) || math.IsInf(bandwidth, 0) {
		return Gains{}, fmt.Errorf("bandwidth must be positive, got %g", bandwidth)
	}

	ti := 1 / p.C1
	kp := 1 / p.C2
	if p.Tau > 0 {
		kp = bandwidth * ti / (p.Tau * p.C2)
	}

	return Gains{
		Kp:          kp,
		Ti:          ti,
		Kf:          1 / p.C2,
		MaxHeatRate: p.C1 * p.C2,
	}, nil
}
