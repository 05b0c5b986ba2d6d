// Package plant models a heated water tank: a first-order thermal mass whose
// heater input passes through a first-order lag before it affects the water.
package plant

import (
	"fmt"
	"math"
)

// NumParams is the number of free model parameters.
const NumParams = 4

// Params are the physical constants of the tank.
//
// Temperatures are in degrees Fahrenheit, times in seconds, and the heater
// command is a duty fraction in [0, 1].
type Params struct {
	// C1 is the inverse thermal time constant of the water, 1/sec.
	C1 float64 `json:"c1" yaml:"c1"`
	// C2 is the steady temperature rise above ambient per unit of heater
	// command, deg F.
	C2 float64 `json:"c2" yaml:"c2"`
	// Tau is the heater lag time constant, sec.
	Tau float64 `json:"tau" yaml:"tau"`
	// Ambient is the temperature the water relaxes to with the heater off.
	Ambient float64 `json:"ambient" yaml:"ambient"`
}

// Vector returns the parameters in fit order: c1, c2, tau, ambient.
func (p Params) Vector() []float64 {
	return []float64{p.C1, p.C2, p.Tau, p.Ambient}
}

// FromVector is the inverse of Vector.
func FromVector(v []float64) Params {
	if len(v) != NumParams {
		panic(fmt.Sprintf("plant: parameter vector has %d entries, want %d", len(v), NumParams))
	}
	return Params{C1: v[0], C2: v[1], Tau: v[2], Ambient: v[3]}
}

// Validate reports whether p describes a physically meaningful tank.
func (p Params) Validate() error {
	for i, v := range p.Vector() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("parameter %s is not finite", ParamNames[i])
		}
	}
	if p.C1 <= 0 {
		return fmt.Errorf("c1 must be positive, got %g", p.C1)
	}
	if p.C2 <= 0 {
		return fmt.Errorf("c2 must be positive, got %g", p.C2)
	}
	if p.Tau < 0 {
		return fmt.Errorf("tau must not be negative, got %g", p.Tau)
	}
	return nil
}

// ParamNames labels Vector entries.
var ParamNames = [NumParams]string{"c1", "c2", "tau", "ambient"}
