package sim

import (
	"context"
	"fmt"
)

// Simulator runs a plant in closed loop with a controller on a fixed step.
type Simulator struct {
	dyn        Dynamics
	integrator Integrator
	controller Controller
	metrics    []Metric
	observers  []Observer
}

func New(dyn Dynamics, integrator Integrator, controller Controller) *Simulator {
	return &Simulator{
		dyn:        dyn,
		integrator: integrator,
		controller: controller,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Run(ctx context.Context, x0 State, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if len(x0) != s.dyn.StateDim() {
		return nil, fmt.Errorf("initial state has %d components, plant expects %d", len(x0), s.dyn.StateDim())
	}

	steps := int(cfg.Duration/cfg.Dt + 0.5)
	result := &Result{
		States:   make([]State, 0, steps+1),
		Controls: make([]Control, 0, steps),
		Times:    make([]float64, 0, steps+1),
		Metrics:  make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	x := x0.Clone()
	t := 0.0
	result.States = append(result.States, x.Clone())
	result.Times = append(result.Times, t)

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		u := s.controller.Compute(x, t)
		for _, m := range s.metrics {
			m.Observe(x, u, t)
		}
		for _, obs := range s.observers {
			obs.OnStep(x, u, t)
		}

		next := s.integrator.Step(s.dyn, x, u, t, cfg.Dt)
		if cfg.ValidateState && !next.IsValid() {
			return result, SimError{Time: t, Step: i, Message: "invalid state (NaN/Inf)"}
		}

		x = next
		t = float64(i+1) * cfg.Dt
		result.StepsTaken++

		result.States = append(result.States, x.Clone())
		result.Controls = append(result.Controls, u)
		result.Times = append(result.Times, t)
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	return result, nil
}

// Replay integrates dyn open loop across a recorded time grid. The grid may be
// non-uniform; each interval uses its own step and the input held at its start.
// The returned slice has one state per time stamp, beginning with x0.
func Replay(dyn Dynamics, integrator Integrator, x0 State, times []float64, input InputFunc) []State {
	states := make([]State, len(times))
	if len(times) == 0 {
		return states
	}

	x := x0.Clone()
	states[0] = x.Clone()
	for k := 0; k+1 < len(times); k++ {
		t := times[k]
		x = integrator.Step(dyn, x, input(k, t), t, times[k+1]-t)
		states[k+1] = x.Clone()
	}
	return states
}

func validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	return nil
}
