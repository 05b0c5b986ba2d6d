package plant

import (
	"github.com/san-kum/thermotune/internal/integrators"
	"github.com/san-kum/thermotune/internal/sim"
)

// State indices.
const (
	Temperature = iota
	FilteredInput
)

// Model is the tank as a continuous-time system with state
// [temperature, filtered heater input] and a single heater command input:
//
//	dT/dt  = c1 * (c2*uf - (T - ambient))
//	duf/dt = (u - uf) / tau
//
// A tau of zero removes the lag; uf then stays where it started and the
// heater command drives the water directly.
type Model struct {
	Params Params
}

func NewModel(p Params) *Model {
	return &Model{Params: p}
}

func (m *Model) StateDim() int   { return 2 }
func (m *Model) ControlDim() int { return 1 }

func (m *Model) Derivative(x sim.State, u sim.Control, t float64) sim.State {
	p := m.Params
	in := 0.0
	if len(u) > 0 {
		in = u[0]
	}

	if p.Tau <= 0 {
		return sim.State{p.C1 * (p.C2*in - (x[Temperature] - p.Ambient)), 0}
	}
	return sim.State{
		p.C1 * (p.C2*x[FilteredInput] - (x[Temperature] - p.Ambient)),
		(in - x[FilteredInput]) / p.Tau,
	}
}

// InitialState is the state at the first sample: the water at the measured
// temperature and the heater lag settled at the first command.
func InitialState(temperature, control float64) sim.State {
	return sim.State{temperature, control}
}

// Simulate predicts the water temperature at each time stamp given the heater
// command applied over each interval. It advances one forward Euler step per
// sample interval, so the spacing of times may vary. The result has the same
// length as times and starts at initial; controls must be at least as long
// as times minus one.
func Simulate(p Params, times, controls []float64, initial float64) []float64 {
	out := make([]float64, len(times))
	if len(times) == 0 {
		return out
	}

	u0 := 0.0
	if len(controls) > 0 {
		u0 = controls[0]
	}
	input := func(k int, _ float64) sim.Control { return sim.Control{controls[k]} }

	states := sim.Replay(NewModel(p), integrators.NewEuler(), InitialState(initial, u0), times, input)
	for k, x := range states {
		out[k] = x[Temperature]
	}
	return out
}
