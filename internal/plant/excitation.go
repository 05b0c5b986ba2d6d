package plant

import "math"

// ExcitationPeriod is the length of one cycle of the excitation pattern, sec.
const ExcitationPeriod = 100.0

// The pattern mixes full, partial and zero heat so that the heater gain, the
// lag and the ambient relaxation all leave distinct marks on the response.
var excitationSteps = []struct {
	until float64
	level float64
}{
	{5, 0},
	{25, 1},
	{35, 0},
	{50, 0.5},
	{60, 1},
	{75, 0.25},
	{85, 0.75},
	{100, 0},
}

// ExcitationSignal is the heater command that was applied during the test
// run at time t. Negative times read as heater off.
func ExcitationSignal(t float64) float64 {
	if t < 0 || math.IsNaN(t) {
		return 0
	}
	phase := math.Mod(t, ExcitationPeriod)
	for _, s := range excitationSteps {
		if phase < s.until {
			return s.level
		}
	}
	return 0
}

// Excitation samples ExcitationSignal at each time stamp.
func Excitation(times []float64) []float64 {
	out := make([]float64, len(times))
	for i, t := range times {
		out[i] = ExcitationSignal(t)
	}
	return out
}

// UniformTimes returns n time stamps spaced dt apart starting at zero.
func UniformTimes(n int, dt float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) * dt
	}
	return out
}
