package config

import "sort"

// Presets group named configurations by purpose. "fit" presets trade speed
// against precision; "tank" presets describe typical vessels for synthetic
// recordings and closed-loop checks.
var Presets = map[string]map[string]*Config{
	"fit": {
		"default": DefaultConfig(),
		"precise": with(func(c *Config) {
			c.StepTolerance = 1e-9
			c.MaxIterations = 300
			c.TauGrid.Points = 120
		}),
		"fast": with(func(c *Config) {
			c.StepTolerance = 1e-4
			c.MaxIterations = 30
			c.TauGrid.Points = 20
		}),
		"noisy": with(func(c *Config) {
			c.StepTolerance = 1e-5
			c.MaxStalls = 6
			c.MaxHalvings = 12
		}),
	},
	"tank": {
		"sous-vide": DefaultConfig(),
		"stockpot": with(func(c *Config) {
			c.Synth.Params.C1 = 0.0012
			c.Synth.Params.C2 = 90
			c.Synth.Params.Tau = 40
			c.Synth.Params.Ambient = 70
			c.Synth.Noise = 0.1
			c.Verify.Setpoint = 165
		}),
		"water-bath": with(func(c *Config) {
			c.Synth.Params.C1 = 0.0002
			c.Synth.Params.C2 = 200
			c.Synth.Params.Tau = 60
			c.Synth.Params.Ambient = 72
			c.Synth.InitialTemperature = 72
			c.Synth.Samples = 3600
			c.Synth.Dt = 1
			c.Synth.Noise = 0.02
			c.Verify.Duration = 7200
		}),
	},
}

func with(mutate func(*Config)) *Config {
	cfg := DefaultConfig()
	mutate(cfg)
	return cfg
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(group, preset string) *Config {
	groupPresets, ok := Presets[group]
	if !ok {
		return nil
	}
	cfg, ok := groupPresets[preset]
	if !ok {
		return nil
	}
	cp := *cfg
	return &cp
}

func ListGroups() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ListPresets(group string) []string {
	groupPresets, ok := Presets[group]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(groupPresets))
	for name := range groupPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
