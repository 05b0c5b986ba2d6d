package metrics

import (
	"math"

	"github.com/san-kum/thermotune/internal/sim"
)

// Overshoot is the peak excursion past the setpoint, in the units of the
// observed state component. Approaching from below, only readings above the
// setpoint count; approaching from above, only readings below it.
type Overshoot struct {
	setpoint float64
	index    int
	start    float64
	peak     float64
	seen     bool
}

func NewOvershoot(setpoint float64, index int) *Overshoot {
	return &Overshoot{setpoint: setpoint, index: index}
}

func (o *Overshoot) Name() string { return "overshoot" }

func (o *Overshoot) Observe(x sim.State, u sim.Control, t float64) {
	v := x[o.index]
	if !o.seen {
		o.start = v
		o.seen = true
	}
	var excess float64
	if o.start <= o.setpoint {
		excess = v - o.setpoint
	} else {
		excess = o.setpoint - v
	}
	if excess > o.peak {
		o.peak = excess
	}
}

func (o *Overshoot) Value() float64 { return o.peak }

func (o *Overshoot) Reset() {
	o.peak = 0
	o.seen = false
}

// SettlingTime is the first time after which the observed component stays
// within band of the setpoint. It is +Inf if the trace never settles.
type SettlingTime struct {
	setpoint float64
	band     float64
	index    int
	entered  float64
	inside   bool
}

func NewSettlingTime(setpoint, band float64, index int) *SettlingTime {
	return &SettlingTime{setpoint: setpoint, band: band, index: index}
}

func (s *SettlingTime) Name() string { return "settling_time" }

func (s *SettlingTime) Observe(x sim.State, u sim.Control, t float64) {
	within := math.Abs(x[s.index]-s.setpoint) <= s.band
	switch {
	case within && !s.inside:
		s.inside = true
		s.entered = t
	case !within:
		s.inside = false
	}
}

func (s *SettlingTime) Value() float64 {
	if !s.inside {
		return math.Inf(1)
	}
	return s.entered
}

func (s *SettlingTime) Reset() {
	s.inside = false
	s.entered = 0
}

// TimeInBand is the fraction of observed samples within band of the setpoint.
type TimeInBand struct {
	setpoint float64
	band     float64
	index    int
	inside   int
	samples  int
}

func NewTimeInBand(setpoint, band float64, index int) *TimeInBand {
	return &TimeInBand{setpoint: setpoint, band: band, index: index}
}

func (b *TimeInBand) Name() string { return "time_in_band" }

func (b *TimeInBand) Observe(x sim.State, u sim.Control, t float64) {
	b.samples++
	if math.Abs(x[b.index]-b.setpoint) <= b.band {
		b.inside++
	}
}

func (b *TimeInBand) Value() float64 {
	if b.samples == 0 {
		return 0
	}
	return float64(b.inside) / float64(b.samples)
}

func (b *TimeInBand) Reset() {
	b.inside = 0
	b.samples = 0
}
