// Package automation runs many fits or closed-loop checks in one go:
// scripted batches of recorded tests, bandwidth sweeps over the recommended
// gains, and Monte Carlo repeatability studies on synthetic recordings.
package automation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/thermotune/internal/autotune"
	"github.com/san-kum/thermotune/internal/experiment"
	"github.com/san-kum/thermotune/internal/optim"
	"github.com/san-kum/thermotune/internal/plant"
	"github.com/san-kum/thermotune/internal/storage"
)

// Scenario lists recorded excitation tests to fit together.
type Scenario struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Jobs        []FitJob `yaml:"jobs"`
}

type FitJob struct {
	// Series is a recorded series CSV, relative to the scenario file.
	Series string `yaml:"series"`
	// Bandwidth overrides the tuner's gain factor for this job when set.
	Bandwidth float64 `yaml:"bandwidth"`
}

// LoadScenario loads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Jobs) == 0 {
		return nil, fmt.Errorf("scenario %s has no jobs", path)
	}

	dir := filepath.Dir(path)
	for i := range scenario.Jobs {
		if !filepath.IsAbs(scenario.Jobs[i].Series) {
			scenario.Jobs[i].Series = filepath.Join(dir, scenario.Jobs[i].Series)
		}
	}
	return &scenario, nil
}

// Runner fans fits out over a bounded number of goroutines.
type Runner struct {
	tuner   *autotune.Tuner
	workers int
	logger  *zap.Logger
}

func NewRunner(tuner *autotune.Tuner, workers int, logger *zap.Logger) *Runner {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{tuner: tuner, workers: workers, logger: logger}
}

// JobResult is the outcome of one scenario job. Err is set for data or
// fit failures; those do not stop the rest of the batch.
type JobResult struct {
	Job    FitJob
	Result *autotune.Result
	Err    error
}

// RunScenario fits every job. Results come back in job order. Only
// cancellation aborts the batch.
func (r *Runner) RunScenario(ctx context.Context, scenario *Scenario) ([]JobResult, error) {
	results := make([]JobResult, len(scenario.Jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, job := range scenario.Jobs {
		i, job := i, job
		g.Go(func() error {
			res, err := r.fitJob(ctx, job)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			results[i] = JobResult{Job: job, Result: res, Err: err}
			if err != nil {
				r.logger.Warn("job failed", zap.String("series", job.Series), zap.Error(err))
			} else {
				r.logger.Info("job done", zap.String("series", job.Series), zap.Int("iterations", res.Iterations))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Runner) fitJob(ctx context.Context, job FitJob) (*autotune.Result, error) {
	file, err := os.Open(job.Series)
	if err != nil {
		return nil, err
	}
	times, temps, err := storage.ReadSeries(file)
	file.Close()
	if err != nil {
		return nil, err
	}

	res, err := r.tuner.FitContext(ctx, times, temps)
	if err != nil {
		return nil, err
	}
	if job.Bandwidth > 0 {
		if res.Gains, err = autotune.ComputeGains(res.Params, job.Bandwidth); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// BandwidthSweep runs the closed loop for gains computed at evenly spaced
// bandwidth factors.
type BandwidthSweep struct {
	Min   float64
	Max   float64
	Steps int
}

type SweepResult struct {
	Bandwidth float64
	Gains     autotune.Gains
	Metrics   map[string]float64
	Final     float64
}

// RunSweep simulates params under the gains for each bandwidth factor.
// base supplies everything but the controller gains.
func RunSweep(ctx context.Context, sweep BandwidthSweep, params plant.Params, base experiment.Config, registry *experiment.Registry) ([]SweepResult, error) {
	if sweep.Steps < 1 || sweep.Min <= 0 || sweep.Max < sweep.Min {
		return nil, fmt.Errorf("invalid sweep %+v", sweep)
	}

	results := make([]SweepResult, 0, sweep.Steps)
	for _, bw := range optim.LinearRange(sweep.Min, sweep.Max, sweep.Steps) {
		gains, err := autotune.ComputeGains(params, bw)
		if err != nil {
			return nil, err
		}

		cfg := base
		cfg.Params = params
		cfg.Controller = "pi"
		cfg.ControllerParams = map[string]float64{"kp": gains.Kp, "ti": gains.Ti, "kf": gains.Kf}

		exp := experiment.New(cfg)
		if err := exp.Build(registry); err != nil {
			return nil, err
		}
		result, err := exp.Run(ctx)
		if err != nil {
			return nil, fmt.Errorf("bandwidth %g: %w", bw, err)
		}

		results = append(results, SweepResult{
			Bandwidth: bw,
			Gains:     gains,
			Metrics:   result.Metrics,
			Final:     result.States[len(result.States)-1][plant.Temperature],
		})
	}
	return results, nil
}

// MonteCarloConfig repeats a synthetic test with fresh sensor noise.
type MonteCarloConfig struct {
	Synth  experiment.SynthConfig
	Trials int
}

type MonteCarloResult struct {
	Trial  int
	Seed   int64
	Params plant.Params
	Err    error
}

// RunMonteCarlo synthesizes and fits cfg.Trials recordings, seeding trial i
// with cfg.Synth.Seed+i.
func (r *Runner) RunMonteCarlo(ctx context.Context, cfg MonteCarloConfig) ([]MonteCarloResult, error) {
	if cfg.Trials < 1 {
		return nil, fmt.Errorf("trials must be at least 1, got %d", cfg.Trials)
	}

	results := make([]MonteCarloResult, cfg.Trials)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for trial := 0; trial < cfg.Trials; trial++ {
		trial := trial
		g.Go(func() error {
			synth := cfg.Synth
			synth.Seed += int64(trial)

			times, temps, err := experiment.Synthesize(synth)
			if err != nil {
				return err
			}
			out := MonteCarloResult{Trial: trial, Seed: synth.Seed}
			res, err := r.tuner.FitContext(ctx, times, temps)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil {
				out.Err = err
			} else {
				out.Params = res.Params
			}
			results[trial] = out

			if (trial+1)%10 == 0 {
				r.logger.Info("monte carlo progress", zap.Int("trial", trial+1), zap.Int("of", cfg.Trials))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Spread summarizes the fitted parameters over the converged trials.
type Spread struct {
	Converged int
	Failed    int
	Mean      plant.Params
	StdDev    plant.Params
}

func MonteCarloStats(results []MonteCarloResult) Spread {
	var s Spread
	cols := make([][]float64, plant.NumParams)
	for _, r := range results {
		if r.Err != nil {
			s.Failed++
			continue
		}
		s.Converged++
		for i, v := range r.Params.Vector() {
			cols[i] = append(cols[i], v)
		}
	}
	if s.Converged == 0 {
		return s
	}

	mean := make([]float64, plant.NumParams)
	std := make([]float64, plant.NumParams)
	for i, col := range cols {
		if len(col) == 1 {
			mean[i] = col[0]
			continue
		}
		mean[i], std[i] = stat.MeanStdDev(col, nil)
	}
	s.Mean = plant.FromVector(mean)
	s.StdDev = plant.FromVector(std)
	return s
}
