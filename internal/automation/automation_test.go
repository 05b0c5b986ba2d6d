package automation

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/thermotune/internal/autotune"
	"github.com/san-kum/thermotune/internal/experiment"
	"github.com/san-kum/thermotune/internal/plant"
	"github.com/san-kum/thermotune/internal/storage"
)

var tank = plant.Params{C1: 0.0005, C2: 120, Tau: 25, Ambient: 68}

func synth(seed int64) experiment.SynthConfig {
	return experiment.SynthConfig{
		Params:             tank,
		InitialTemperature: 70,
		Samples:            1800,
		Dt:                 1,
		Noise:              0.05,
		Seed:               seed,
	}
}

func newRunner(t *testing.T) *Runner {
	t.Helper()
	tuner, err := autotune.New(autotune.DefaultConfig())
	if err != nil {
		t.Fatalf("tuner: %v", err)
	}
	return NewRunner(tuner, 2, nil)
}

func writeSeries(t *testing.T, path string, seed int64) {
	t.Helper()
	times, temps, err := experiment.Synthesize(synth(seed))
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := storage.WriteSeries(f, times, temps); err != nil {
		t.Fatal(err)
	}
}

func TestLoadScenario(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.yaml")
	data := []byte("name: tanks\njobs:\n  - series: a.csv\n  - series: /abs/b.csv\n    bandwidth: 0.5\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if sc.Name != "tanks" || len(sc.Jobs) != 2 {
		t.Fatalf("unexpected scenario %+v", sc)
	}
	if sc.Jobs[0].Series != filepath.Join(dir, "a.csv") {
		t.Errorf("relative series not resolved: %s", sc.Jobs[0].Series)
	}
	if sc.Jobs[1].Series != "/abs/b.csv" || sc.Jobs[1].Bandwidth != 0.5 {
		t.Errorf("unexpected second job %+v", sc.Jobs[1])
	}

	if err := os.WriteFile(path, []byte("name: empty\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadScenario(path); err == nil {
		t.Error("expected error for scenario without jobs")
	}
}

func TestRunScenario(t *testing.T) {
	dir := t.TempDir()
	writeSeries(t, filepath.Join(dir, "good.csv"), 3)
	if err := os.WriteFile(filepath.Join(dir, "bad.csv"), []byte("Time,Temperature\n[sec],[deg F]\n0,cold\n"), 0644); err != nil {
		t.Fatal(err)
	}

	sc := &Scenario{Jobs: []FitJob{
		{Series: filepath.Join(dir, "good.csv")},
		{Series: filepath.Join(dir, "bad.csv")},
		{Series: filepath.Join(dir, "good.csv"), Bandwidth: 0.5},
		{Series: filepath.Join(dir, "missing.csv")},
	}}

	results, err := newRunner(t).RunScenario(context.Background(), sc)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}

	if results[0].Err != nil {
		t.Fatalf("good series failed: %v", results[0].Err)
	}
	if rel := math.Abs(results[0].Result.Params.C1-tank.C1) / tank.C1; rel > 0.03 {
		t.Errorf("c1 off by %.1f%%", 100*rel)
	}
	if !errors.Is(results[1].Err, storage.ErrMalformedSeries) {
		t.Errorf("expected ErrMalformedSeries, got %v", results[1].Err)
	}
	if results[2].Err != nil {
		t.Fatalf("bandwidth job failed: %v", results[2].Err)
	}
	if k0, k2 := results[0].Result.Gains.Kp, results[2].Result.Gains.Kp; math.Abs(k2-2*k0) > 1e-9*k0 {
		t.Errorf("expected doubled Kp at bandwidth 0.5, got %v vs %v", k2, k0)
	}
	if !errors.Is(results[3].Err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", results[3].Err)
	}
}

func TestRunScenarioCancelled(t *testing.T) {
	dir := t.TempDir()
	writeSeries(t, filepath.Join(dir, "good.csv"), 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sc := &Scenario{Jobs: []FitJob{{Series: filepath.Join(dir, "good.csv")}}}
	if _, err := newRunner(t).RunScenario(ctx, sc); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRunSweep(t *testing.T) {
	base := experiment.Config{
		Integrator:         "rk4",
		InitialTemperature: 70,
		Setpoint:           130,
		Band:               0.5,
		Dt:                 1,
		Duration:           3600,
	}

	results, err := RunSweep(context.Background(), BandwidthSweep{Min: 0.2, Max: 0.3, Steps: 3}, tank, base, experiment.NewRegistry())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	for i, r := range results {
		if math.Abs(r.Final-130) > 1 {
			t.Errorf("bandwidth %g: final %.3f not near setpoint", r.Bandwidth, r.Final)
		}
		if _, ok := r.Metrics["overshoot"]; !ok {
			t.Errorf("bandwidth %g: overshoot missing", r.Bandwidth)
		}
		if i > 0 && r.Gains.Kp <= results[i-1].Gains.Kp {
			t.Errorf("Kp should grow with bandwidth: %v then %v", results[i-1].Gains.Kp, r.Gains.Kp)
		}
	}
	if math.Abs(results[1].Bandwidth-0.25) > 1e-12 {
		t.Errorf("expected middle bandwidth 0.25, got %v", results[1].Bandwidth)
	}

	if _, err := RunSweep(context.Background(), BandwidthSweep{Min: 0, Max: 1, Steps: 2}, tank, base, experiment.NewRegistry()); err == nil {
		t.Error("expected error for zero bandwidth")
	}
}

func TestRunMonteCarlo(t *testing.T) {
	results, err := newRunner(t).RunMonteCarlo(context.Background(), MonteCarloConfig{Synth: synth(100), Trials: 3})
	if err != nil {
		t.Fatalf("monte carlo failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Trial != i || r.Seed != int64(100+i) {
			t.Errorf("result %d out of order: %+v", i, r)
		}
	}

	spread := MonteCarloStats(results)
	if spread.Converged != 3 || spread.Failed != 0 {
		t.Fatalf("expected 3 converged trials, got %+v", spread)
	}
	if rel := math.Abs(spread.Mean.C1-tank.C1) / tank.C1; rel > 0.03 {
		t.Errorf("mean c1 off by %.1f%%", 100*rel)
	}
	if spread.StdDev.C1 <= 0 {
		t.Error("expected nonzero spread across noisy trials")
	}

	if _, err := newRunner(t).RunMonteCarlo(context.Background(), MonteCarloConfig{Synth: synth(1)}); err == nil {
		t.Error("expected error for zero trials")
	}
}

func TestMonteCarloStats(t *testing.T) {
	results := []MonteCarloResult{
		{Params: plant.Params{C1: 1, C2: 2, Tau: 3, Ambient: 4}},
		{Params: plant.Params{C1: 3, C2: 2, Tau: 5, Ambient: 4}},
		{Err: autotune.ErrConvergence},
	}

	s := MonteCarloStats(results)
	if s.Converged != 2 || s.Failed != 1 {
		t.Fatalf("unexpected counts %+v", s)
	}
	if s.Mean.C1 != 2 || s.Mean.Tau != 4 {
		t.Errorf("unexpected mean %+v", s.Mean)
	}
	if math.Abs(s.StdDev.C1-math.Sqrt2) > 1e-12 || s.StdDev.C2 != 0 {
		t.Errorf("unexpected std dev %+v", s.StdDev)
	}

	if empty := MonteCarloStats(nil); empty.Converged != 0 || empty.Mean != (plant.Params{}) {
		t.Errorf("unexpected empty spread %+v", empty)
	}
}
