package autotune

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"go.uber.org/zap"

	"github.com/san-kum/thermotune/internal/metrics"
	"github.com/san-kum/thermotune/internal/optim"
	"github.com/san-kum/thermotune/internal/plant"
)

// Tuner fits the tank model to recorded excitation tests. A Tuner holds no
// per-fit state and may be reused; concurrent Fit calls are safe.
type Tuner struct {
	cfg        Config
	logger     *zap.Logger
	excitation func(float64) float64
}

type Option func(*Tuner)

func WithLogger(l *zap.Logger) Option {
	return func(t *Tuner) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithExcitation replaces the heater waveform assumed to have driven the
// recorded test.
func WithExcitation(f func(float64) float64) Option {
	return func(t *Tuner) {
		if f != nil {
			t.excitation = f
		}
	}
}

func New(cfg Config, opts ...Option) (*Tuner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tuner config: %w", err)
	}
	t := &Tuner{
		cfg:        cfg,
		logger:     zap.NewNop(),
		excitation: plant.ExcitationSignal,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func (t *Tuner) Config() Config { return t.cfg }

// Fit identifies the plant from a recorded test and derives gains.
func (t *Tuner) Fit(times, temps []float64) (*Result, error) {
	return t.FitContext(context.Background(), times, temps)
}

// FitContext is Fit with cancellation checked between iterations.
func (t *Tuner) FitContext(ctx context.Context, times, temps []float64) (*Result, error) {
	if err := t.validate(times, temps); err != nil {
		return nil, err
	}

	controls := make([]float64, len(times))
	for i, ts := range times {
		controls[i] = t.excitation(ts)
	}
	pr := newProblem(times, temps, controls)

	seed, source := t.seed(ctx, pr)
	t.logger.Info("seeded fit",
		zap.String("source", source),
		zap.Float64("c1", seed.C1),
		zap.Float64("c2", seed.C2),
		zap.Float64("tau", seed.Tau),
		zap.Float64("ambient", seed.Ambient),
	)

	sol, err := t.solve(ctx, pr, seed.Vector())
	if err != nil {
		t.logger.Warn("fit failed", zap.Error(err))
		return nil, err
	}

	svd, sigma, err := pr.diagnostics(sol.params, sol.cost, t.cfg)
	if err != nil {
		return nil, &FitError{Iteration: sol.iterations, Cost: sol.cost, Wrapped: fmt.Errorf("%w: %w", ErrSingularFit, err)}
	}
	if rank := svd.Rank(); rank < plant.NumParams {
		err := &FitError{Iteration: sol.iterations, Cost: sol.cost, Wrapped: fmt.Errorf("%w: only %d of %d parameters are identifiable", ErrSingularFit, rank, plant.NumParams)}
		t.logger.Warn("fit failed", zap.Error(err))
		return nil, err
	}

	params := plant.FromVector(sol.params)
	gains, err := ComputeGains(params, t.cfg.Bandwidth)
	if err != nil {
		return nil, &FitError{Iteration: sol.iterations, Cost: sol.cost, Wrapped: fmt.Errorf("%w: %w", ErrSingularFit, err)}
	}

	simulated := pr.simulate(sol.params)
	res := &Result{
		Params:         params,
		Gains:          gains,
		StdErrors:      sigma,
		Seed:           seed,
		SeedSource:     source,
		Samples:        len(times),
		Iterations:     sol.iterations,
		Cost:           sol.cost,
		RMSE:           metrics.RMSE(temps, simulated),
		MaxError:       metrics.MaxAbsError(temps, simulated),
		RSquared:       metrics.RSquared(temps, simulated),
		Rank:           svd.Rank(),
		SingularValues: svd.Values(),
		Condition:      svd.Condition(),
		Trace: Trace{
			Times:     slices.Clone(times),
			Control:   controls,
			Actual:    slices.Clone(temps),
			Simulated: simulated,
		},
	}

	t.logger.Info("fit converged",
		zap.Int("iterations", res.Iterations),
		zap.Float64("rmse", res.RMSE),
		zap.Int("rank", res.Rank),
	)
	return res, nil
}

func (t *Tuner) validate(times, temps []float64) error {
	if len(times) != len(temps) {
		return fmt.Errorf("%w: %d time stamps, %d temperatures", ErrLengthMismatch, len(times), len(temps))
	}
	if need := t.cfg.minSamples(); len(times) < need {
		return fmt.Errorf("%w: %d samples, need at least %d", ErrInsufficientData, len(times), need)
	}
	for i := range times {
		if !finite(times[i]) || !finite(temps[i]) {
			return fmt.Errorf("%w: sample %d is not finite", ErrInsufficientData, i)
		}
		if i > 0 && times[i] <= times[i-1] {
			return fmt.Errorf("%w: t[%d]=%g follows t[%d]=%g", ErrNonMonotonicTime, i, times[i], i-1, times[i-1])
		}
	}
	return nil
}

// seed picks starting parameters from the best lag on the tau grid, falling
// back to the configured guess when no lag gives a physical regression.
func (t *Tuner) seed(ctx context.Context, pr *problem) (plant.Params, string) {
	grid := t.cfg.TauGrid
	lo := math.Max(grid.Min, pr.tauFloor)
	hi := math.Max(grid.Max, lo)
	taus := optim.GeometricRange(lo, hi, grid.Points)

	fits := make(map[float64]plant.Params, len(taus))
	search := optim.NewGridSearch([]string{"tau"}, [][]float64{taus})
	best, sse, err := search.Search(ctx, func(params map[string]float64) (float64, error) {
		tau := params["tau"]
		p, score, err := pr.regress(tau, t.cfg.Tolerance)
		if err != nil {
			return 0, err
		}
		fits[tau] = p
		return score, nil
	})
	if err != nil {
		if !errors.Is(err, optim.ErrNoCandidate) {
			t.logger.Warn("seed search interrupted", zap.Error(err))
		}
		guess := t.cfg.InitialGuess
		guess.Tau = math.Max(guess.Tau, pr.tauFloor)
		return guess, SeedInitialGuess
	}

	t.logger.Debug("seed search done", zap.Int("points", search.Size()), zap.Float64("sse", sse))
	return fits[best["tau"]], SeedRegression
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
