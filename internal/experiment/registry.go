package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/thermotune/internal/control"
	"github.com/san-kum/thermotune/internal/integrators"
	"github.com/san-kum/thermotune/internal/metrics"
	"github.com/san-kum/thermotune/internal/plant"
	"github.com/san-kum/thermotune/internal/sim"
)

type Registry struct {
	integrators map[string]func() sim.Integrator
	controllers map[string]func(map[string]float64) sim.Controller
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func() sim.Integrator),
		controllers: make(map[string]func(map[string]float64) sim.Controller),
	}

	r.integrators["euler"] = func() sim.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() sim.Integrator { return integrators.NewRK4() }

	r.controllers["pi"] = func(params map[string]float64) sim.Controller {
		return control.NewPIFeedForward(params["kp"], params["ti"], params["kf"], params["setpoint"], params["ambient"])
	}
	r.controllers["constant"] = func(params map[string]float64) sim.Controller {
		return control.NewConstant(params["duty"])
	}

	return r
}

func (r *Registry) GetIntegrator(name string) (sim.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) GetController(name string, params map[string]float64) (sim.Controller, error) {
	fn, ok := r.controllers[name]
	if !ok {
		return nil, fmt.Errorf("unknown controller: %s", name)
	}
	return fn(params), nil
}

func (r *Registry) ListIntegrators() []string {
	return sortedKeys(r.integrators)
}

func (r *Registry) ListControllers() []string {
	return sortedKeys(r.controllers)
}

// DefaultMetrics scores how well the water temperature tracks setpoint.
func (r *Registry) DefaultMetrics(setpoint, band float64) []sim.Metric {
	return []sim.Metric{
		metrics.NewOvershoot(setpoint, plant.Temperature),
		metrics.NewSettlingTime(setpoint, band, plant.Temperature),
		metrics.NewTimeInBand(setpoint, band, plant.Temperature),
		metrics.NewControlEffort(),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
