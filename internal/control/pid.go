package control

import (
	"math"

	"github.com/san-kum/thermotune/internal/sim"
)

// PIFeedForward computes a heater duty in [OutMin, OutMax] as
//
//	u = Kf*(setpoint - ambient) + Kp*(e + integral(e)/Ti)
//
// The feed-forward term holds the steady temperature rise so the integrator
// only trims model error. Integration pauses while the output is saturated
// in the direction the error is pushing.
type PIFeedForward struct {
	Kp       float64
	Ti       float64
	Kf       float64
	Setpoint float64
	Ambient  float64
	OutMin   float64
	OutMax   float64

	integral float64
	prevT    float64
	first    bool
}

func NewPIFeedForward(kp, ti, kf, setpoint, ambient float64) *PIFeedForward {
	return &PIFeedForward{
		Kp:       kp,
		Ti:       ti,
		Kf:       kf,
		Setpoint: setpoint,
		Ambient:  ambient,
		OutMin:   0,
		OutMax:   1,
		first:    true,
	}
}

func (p *PIFeedForward) Compute(x sim.State, t float64) sim.Control {
	if len(x) == 0 {
		return sim.Control{p.OutMin}
	}
	err := p.Setpoint - x[0]

	dt := 0.0
	if p.first {
		p.first = false
	} else {
		dt = t - p.prevT
	}
	p.prevT = t

	prev := p.integral
	if dt > 0 {
		p.integral += err * dt
	}

	u := p.output(err)
	if (u > p.OutMax && err > 0) || (u < p.OutMin && err < 0) {
		p.integral = prev
		u = p.output(err)
	}
	return sim.Control{math.Max(p.OutMin, math.Min(p.OutMax, u))}
}

func (p *PIFeedForward) output(err float64) float64 {
	u := p.Kf*(p.Setpoint-p.Ambient) + p.Kp*err
	if p.Ti > 0 {
		u += p.Kp * p.integral / p.Ti
	}
	return u
}

// Reset clears integral state
func (p *PIFeedForward) Reset() {
	p.integral = 0
	p.prevT = 0
	p.first = true
}

// GetParams returns tunable parameters for live adjustment
func (p *PIFeedForward) GetParams() map[string]float64 {
	return map[string]float64{
		"Kp":       p.Kp,
		"Ti":       p.Ti,
		"Kf":       p.Kf,
		"Setpoint": p.Setpoint,
		"Ambient":  p.Ambient,
	}
}

// SetParam adjusts a parameter; unknown names are ignored.
func (p *PIFeedForward) SetParam(name string, value float64) {
	switch name {
	case "Kp":
		p.Kp = value
	case "Ti":
		p.Ti = value
	case "Kf":
		p.Kf = value
	case "Setpoint":
		p.Setpoint = value
	case "Ambient":
		p.Ambient = value
	}
}
