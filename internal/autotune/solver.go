package autotune

import (
	"context"
	"fmt"
	"math"
	"slices"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/thermotune/internal/linalg"
	"github.com/san-kum/thermotune/internal/plant"
)

// typical is the magnitude below which a parameter is measured absolutely
// rather than relatively: c1, c2, tau, ambient.
var typical = [plant.NumParams]float64{1e-12, 1e-12, 1e-9, 1}

// rmsFloor is the residual below which a fit is exact to numerical noise.
const rmsFloor = 1e-10

// Levenberg damping bounds, relative to unit-norm Jacobian columns.
const (
	minDamping = 1e-4
	maxDamping = 1e8
)

type solution struct {
	params     []float64
	cost       float64
	iterations int
}

// jacobian returns the central-difference Jacobian of the residual.
func (pr *problem) jacobian(p []float64, rel float64, tol linalg.Tolerance) *linalg.Matrix {
	n := len(pr.times)
	j := linalg.New(n, plant.NumParams, linalg.WithTolerance(tol))
	for col := range p {
		h := rel * math.Max(math.Abs(p[col]), typical[col])
		up := slices.Clone(p)
		down := slices.Clone(p)
		up[col] += h
		down[col] -= h
		width := up[col] - down[col]

		hi := pr.simulate(up)
		lo := pr.simulate(down)
		for i := 0; i < n; i++ {
			j.Set(i, col, (hi[i]-lo[i])/width)
		}
	}
	return j
}

// scaleColumns normalizes each column of j to unit length in place and
// returns the factors. Zero columns keep a factor of one.
func scaleColumns(j *linalg.Matrix) []float64 {
	rows, cols := j.Dims()
	scale := make([]float64, cols)
	for c := 0; c < cols; c++ {
		d := floats.Norm(j.Col(c), 2)
		if d == 0 {
			d = 1
		}
		scale[c] = d
		for r := 0; r < rows; r++ {
			j.Set(r, c, j.At(r, c)/d)
		}
	}
	return scale
}

// project clamps p onto the physical region.
func (pr *problem) project(p []float64) {
	p[0] = math.Max(p[0], typical[0])
	p[1] = math.Max(p[1], typical[1])
	p[2] = math.Max(p[2], pr.tauFloor)
}

func relativeNorm(delta, p []float64) float64 {
	sum := 0.0
	for i := range delta {
		d := delta[i] / math.Max(math.Abs(p[i]), typical[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// step solves the damped, column-scaled linearization J*delta = -r. With
// zero damping it is the plain Gauss-Newton step.
func step(js *linalg.Matrix, scale, r []float64, damping float64) ([]float64, error) {
	rows, cols := js.Dims()
	tol := js.Tolerance()

	a, b := js, linalg.New(rows, 1, linalg.WithTolerance(tol))
	for i, v := range r {
		b.Set(i, 0, -v)
	}
	if damping > 0 {
		a = linalg.New(rows+cols, cols, linalg.WithTolerance(tol))
		for i := 0; i < rows; i++ {
			for c := 0; c < cols; c++ {
				a.Set(i, c, js.At(i, c))
			}
		}
		mu := math.Sqrt(damping)
		for c := 0; c < cols; c++ {
			a.Set(rows+c, c, mu)
		}
		b.Resize(rows+cols, 1)
		for i, v := range r {
			b.Set(i, 0, -v)
		}
	}

	y, err := a.LeftDivide(b)
	if err != nil {
		return nil, err
	}
	delta := make([]float64, cols)
	for c := range delta {
		delta[c] = y.At(c, 0) / scale[c]
	}
	return delta, nil
}

// solve refines start by damped Gauss-Newton with backtracking. The damping
// stays at zero while full or shortened steps keep lowering the cost and
// grows by a decade on each stalled iteration.
func (t *Tuner) solve(ctx context.Context, pr *problem, start []float64) (*solution, error) {
	cfg := t.cfg
	p := slices.Clone(start)
	pr.project(p)

	r := pr.residual(p)
	c := cost(r)
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return nil, &FitError{Iteration: 0, Cost: c, Wrapped: fmt.Errorf("%w: seed response is not finite", ErrSingularFit)}
	}
	floor := 0.5 * float64(len(r)) * rmsFloor * rmsFloor

	damping := 0.0
	stalls := 0
	for iter := 1; iter <= cfg.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c <= floor {
			return &solution{params: p, cost: c, iterations: iter - 1}, nil
		}

		js := pr.jacobian(p, cfg.DiffStep, cfg.Tolerance)
		scale := scaleColumns(js)

		svd, err := js.SVD()
		if err != nil {
			return nil, &FitError{Iteration: iter, Cost: c, Wrapped: fmt.Errorf("%w: %w", ErrSingularFit, err)}
		}
		rank := svd.Rank()
		if rank == 0 {
			return nil, &FitError{Iteration: iter, Cost: c, Wrapped: fmt.Errorf("%w: jacobian has rank 0", ErrSingularFit)}
		}

		delta, err := step(js, scale, r, damping)
		if err != nil {
			return nil, &FitError{Iteration: iter, Cost: c, Wrapped: fmt.Errorf("%w: %w", ErrSingularFit, err)}
		}
		stepNorm := relativeNorm(delta, p)

		accepted := false
		alpha := 1.0
		candidate := make([]float64, len(p))
		for h := 0; h <= cfg.MaxHalvings; h++ {
			floats.AddScaledTo(candidate, p, alpha, delta)
			pr.project(candidate)
			rc := pr.residual(candidate)
			if cc := cost(rc); cc < c {
				copy(p, candidate)
				r, c = rc, cc
				accepted = true
				break
			}
			alpha /= 2
		}

		t.logger.Debug("fit iteration",
			zap.Int("iteration", iter),
			zap.Float64("cost", c),
			zap.Float64("step", stepNorm),
			zap.Float64("alpha", alpha),
			zap.Float64("damping", damping),
			zap.Int("rank", rank),
			zap.Bool("accepted", accepted),
		)

		if accepted {
			stalls = 0
			if damping /= 10; damping < minDamping {
				damping = 0
			}
			if alpha*stepNorm < cfg.StepTolerance {
				return &solution{params: p, cost: c, iterations: iter}, nil
			}
			continue
		}

		if stepNorm < cfg.StepTolerance {
			return &solution{params: p, cost: c, iterations: iter}, nil
		}
		stalls++
		if stalls >= cfg.MaxStalls {
			return nil, &FitError{Iteration: iter, Cost: c, Wrapped: fmt.Errorf("%w: cost stalled for %d iterations", ErrSingularFit, stalls)}
		}
		damping = math.Min(math.Max(10*damping, minDamping), maxDamping)
	}

	return nil, &FitError{Iteration: cfg.MaxIterations, Cost: c, Wrapped: ErrConvergence}
}

// diagnostics summarizes the Jacobian at the solution: its scaled singular
// values and one-sigma parameter uncertainties.
func (pr *problem) diagnostics(p []float64, c float64, cfg Config) (*linalg.SVD, plant.Params, error) {
	js := pr.jacobian(p, cfg.DiffStep, cfg.Tolerance)
	scale := scaleColumns(js)
	svd, err := js.SVD()
	if err != nil {
		return nil, plant.Params{}, err
	}

	dof := len(pr.times) - plant.NumParams
	variance := 2 * c / float64(dof)
	pinv := svd.PseudoInverse()
	sigma := make([]float64, plant.NumParams)
	for col := range sigma {
		sum := 0.0
		for i := 0; i < pinv.Cols(); i++ {
			v := pinv.At(col, i)
			sum += v * v
		}
		sigma[col] = math.Sqrt(variance*sum) / scale[col]
	}
	return svd, plant.FromVector(sigma), nil
}
