package control

import "github.com/san-kum/thermotune/internal/sim"

// Constant applies a fixed heater duty regardless of state, for open-loop
// step tests.
type Constant struct {
	Duty float64
}

func NewConstant(duty float64) *Constant {
	return &Constant{Duty: duty}
}

func (c *Constant) Compute(x sim.State, t float64) sim.Control {
	return sim.Control{c.Duty}
}
