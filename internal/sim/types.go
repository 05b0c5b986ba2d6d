package sim

import (
	"fmt"
	"math"
)

// State is the continuous state vector of a plant.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

// IsValid reports whether every component is finite.
func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(o State) State {
	r := make(State, len(s))
	for i := range s {
		r[i] = s[i] - o[i]
	}
	return r
}

type Control []float64

type Dynamics interface {
	Derivative(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(dyn Dynamics, x State, u Control, t float64, dt float64) State
}

type Controller interface {
	Compute(x State, t float64) Control
}

type Metric interface {
	Name() string
	Observe(x State, u Control, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, u Control, t float64)
}

// InputFunc supplies the control held over the interval starting at sample k.
type InputFunc func(k int, t float64) Control

type Config struct {
	Dt            float64
	Duration      float64
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.1,
		Duration:      600,
		ValidateState: true,
	}
}

type Result struct {
	States     []State
	Controls   []Control
	Times      []float64
	Metrics    map[string]float64
	StepsTaken int
}

// Series extracts component i of every recorded state.
func (r *Result) Series(i int) []float64 {
	out := make([]float64, len(r.States))
	for k, x := range r.States {
		out[k] = x[i]
	}
	return out
}

type SimError struct {
	Time    float64
	Step    int
	Message string
}

func (e SimError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, e.Message)
}
