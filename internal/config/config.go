package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/thermotune/internal/autotune"
	"github.com/san-kum/thermotune/internal/experiment"
	"github.com/san-kum/thermotune/internal/linalg"
	"github.com/san-kum/thermotune/internal/plant"
)

const (
	DefaultSetpoint   = 131.0
	DefaultBand       = 0.5
	DefaultVerifyDt   = 1.0
	DefaultVerifyTime = 3600.0
	DefaultSynthDt    = 1.0
	DefaultSamples    = 1800
)

type Config struct {
	Epsilon       float64 `yaml:"epsilon"`
	MaxSweeps     int     `yaml:"max_sweeps"`
	MaxIterations int     `yaml:"max_iterations"`
	StepTolerance float64 `yaml:"step_tolerance"`
	MaxStalls     int     `yaml:"max_stalls"`
	MaxHalvings   int     `yaml:"max_halvings"`
	MinSamples    int     `yaml:"min_samples"`
	DiffStep      float64 `yaml:"diff_step"`
	Bandwidth     float64 `yaml:"bandwidth"`

	InitialGuess plant.Params `yaml:"initial_guess"`
	TauGrid      GridConfig   `yaml:"tau_grid"`
	Verify       VerifyConfig `yaml:"verify"`
	Synth        SynthConfig  `yaml:"synth"`
}

type GridConfig struct {
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
	Points int     `yaml:"points"`
}

type VerifyConfig struct {
	Setpoint           float64 `yaml:"setpoint"`
	Band               float64 `yaml:"band"`
	InitialTemperature float64 `yaml:"initial_temperature"`
	Duration           float64 `yaml:"duration"`
	Dt                 float64 `yaml:"dt"`
	Integrator         string  `yaml:"integrator"`
}

type SynthConfig struct {
	Params             plant.Params `yaml:"params"`
	InitialTemperature float64      `yaml:"initial_temperature"`
	Samples            int          `yaml:"samples"`
	Dt                 float64      `yaml:"dt"`
	Noise              float64      `yaml:"noise"`
	Seed               int64        `yaml:"seed"`
}

func DefaultConfig() *Config {
	tc := autotune.DefaultConfig()
	return &Config{
		Epsilon:       tc.Tolerance.Epsilon,
		MaxSweeps:     tc.Tolerance.MaxSweeps,
		MaxIterations: tc.MaxIterations,
		StepTolerance: tc.StepTolerance,
		MaxStalls:     tc.MaxStalls,
		MaxHalvings:   tc.MaxHalvings,
		MinSamples:    tc.MinSamples,
		DiffStep:      tc.DiffStep,
		Bandwidth:     tc.Bandwidth,
		InitialGuess:  tc.InitialGuess,
		TauGrid: GridConfig{
			Min:    tc.TauGrid.Min,
			Max:    tc.TauGrid.Max,
			Points: tc.TauGrid.Points,
		},
		Verify: VerifyConfig{
			Setpoint:           DefaultSetpoint,
			Band:               DefaultBand,
			InitialTemperature: 70,
			Duration:           DefaultVerifyTime,
			Dt:                 DefaultVerifyDt,
			Integrator:         "rk4",
		},
		Synth: SynthConfig{
			Params:             plant.Params{C1: 0.0005, C2: 120, Tau: 25, Ambient: 68},
			InitialTemperature: 70,
			Samples:            DefaultSamples,
			Dt:                 DefaultSynthDt,
			Noise:              0.05,
			Seed:               1,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// TunerConfig converts the file settings into the tuner's configuration.
func (c *Config) TunerConfig() autotune.Config {
	return autotune.Config{
		Tolerance: linalg.Tolerance{
			Epsilon:   c.Epsilon,
			MaxSweeps: c.MaxSweeps,
		},
		MaxIterations: c.MaxIterations,
		StepTolerance: c.StepTolerance,
		MaxStalls:     c.MaxStalls,
		MaxHalvings:   c.MaxHalvings,
		MinSamples:    c.MinSamples,
		DiffStep:      c.DiffStep,
		InitialGuess:  c.InitialGuess,
		TauGrid: autotune.Grid{
			Min:    c.TauGrid.Min,
			Max:    c.TauGrid.Max,
			Points: c.TauGrid.Points,
		},
		Bandwidth: c.Bandwidth,
	}
}

// VerifyExperiment describes a closed-loop run of params under gains.
func (c *Config) VerifyExperiment(params plant.Params, gains autotune.Gains) experiment.Config {
	return experiment.Config{
		Integrator:         c.Verify.Integrator,
		Controller:         "pi",
		Params:             params,
		InitialTemperature: c.Verify.InitialTemperature,
		Setpoint:           c.Verify.Setpoint,
		Band:               c.Verify.Band,
		Dt:                 c.Verify.Dt,
		Duration:           c.Verify.Duration,
		ControllerParams: map[string]float64{
			"kp": gains.Kp,
			"ti": gains.Ti,
			"kf": gains.Kf,
		},
	}
}

// SynthConfig describes the synthetic recording the simulate command writes.
func (c *Config) SynthConfig() experiment.SynthConfig {
	return experiment.SynthConfig{
		Params:             c.Synth.Params,
		InitialTemperature: c.Synth.InitialTemperature,
		Samples:            c.Synth.Samples,
		Dt:                 c.Synth.Dt,
		Noise:              c.Synth.Noise,
		Seed:               c.Synth.Seed,
	}
}

func (c *Config) Validate() error {
	if err := c.TunerConfig().Validate(); err != nil {
		return err
	}
	v := c.Verify
	if !positive(v.Dt) || !positive(v.Duration) {
		return fmt.Errorf("verify dt and duration must be positive and finite")
	}
	if !positive(v.Band) {
		return fmt.Errorf("verify band must be positive, got %g", v.Band)
	}
	if !finite(v.Setpoint) || !finite(v.InitialTemperature) {
		return fmt.Errorf("verify setpoint and initial temperature must be finite")
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func positive(v float64) bool { return v > 0 && !math.IsInf(v, 0) }
