package autotune

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/thermotune/internal/linalg"
	"github.com/san-kum/thermotune/internal/plant"
)

var errNotPhysical = errors.New("regression produced non-physical parameters")

// problem is one recorded test, ready to be fitted.
type problem struct {
	times    []float64
	temps    []float64
	controls []float64
	initial  float64
	// tauFloor keeps the heater lag no shorter than the widest sample
	// interval, where the Euler recursion stops being monotone.
	tauFloor float64
}

func newProblem(times, temps, controls []float64) *problem {
	maxDt := 0.0
	for k := 1; k < len(times); k++ {
		maxDt = math.Max(maxDt, times[k]-times[k-1])
	}
	return &problem{
		times:    times,
		temps:    temps,
		controls: controls,
		initial:  temps[0],
		tauFloor: maxDt,
	}
}

func (pr *problem) simulate(p []float64) []float64 {
	return plant.Simulate(plant.FromVector(p), pr.times, pr.controls, pr.initial)
}

// residual returns simulated minus recorded temperature.
func (pr *problem) residual(p []float64) []float64 {
	r := pr.simulate(p)
	floats.Sub(r, pr.temps)
	return r
}

func cost(r []float64) float64 {
	return 0.5 * floats.Dot(r, r)
}

// regress fits c1, c2 and ambient for a fixed lag. Filtering the command
// through the lag makes the summed Euler recursion linear in
// theta = [c1*c2, c1, c1*(ambient - T0)]:
//
//	T[k] - T0 = sum over j<k of dt[j] * (theta0*uf[j] - theta1*(T[j]-T0) + theta2)
//
// Summing rather than differencing keeps sensor noise from dominating the
// regression. The candidate is scored by the sum of squared errors of its
// simulated response, the same objective the refinement minimizes.
func (pr *problem) regress(tau float64, tol linalg.Tolerance) (plant.Params, float64, error) {
	n := len(pr.times)
	t0 := pr.initial

	uf := make([]float64, n)
	uf[0] = pr.controls[0]
	for k := 0; k+1 < n; k++ {
		dt := pr.times[k+1] - pr.times[k]
		uf[k+1] = uf[k] + dt*((pr.controls[k]-uf[k])/tau)
	}

	x := linalg.New(n-1, 3, linalg.WithTolerance(tol))
	y := linalg.New(n-1, 1, linalg.WithTolerance(tol))
	var heat, loss, elapsed float64
	for k := 0; k+1 < n; k++ {
		dt := pr.times[k+1] - pr.times[k]
		heat += dt * uf[k]
		loss -= dt * (pr.temps[k] - t0)
		elapsed += dt
		x.Set(k, 0, heat)
		x.Set(k, 1, loss)
		x.Set(k, 2, elapsed)
		y.Set(k, 0, pr.temps[k+1]-t0)
	}

	theta, err := x.LeftDivide(y)
	if err != nil {
		return plant.Params{}, 0, err
	}

	c1 := theta.At(1, 0)
	gain := theta.At(0, 0)
	if !(c1 > 0) || !(gain > 0) {
		return plant.Params{}, 0, errNotPhysical
	}

	p := plant.Params{
		C1:      c1,
		C2:      gain / c1,
		Tau:     tau,
		Ambient: t0 + theta.At(2, 0)/c1,
	}
	if err := p.Validate(); err != nil {
		return plant.Params{}, 0, errNotPhysical
	}

	sse := 2 * cost(pr.residual(p.Vector()))
	if !finite(sse) {
		return plant.Params{}, 0, errNotPhysical
	}
	return p, sse, nil
}
