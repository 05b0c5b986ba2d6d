package optim

import "gonum.org/v1/gonum/floats"

// LinearRange returns n evenly spaced values from lo to hi inclusive.
func LinearRange(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	out := floats.Span(make([]float64, n), lo, hi)
	out[0], out[n-1] = lo, hi
	return out
}

// GeometricRange returns n values from lo to hi inclusive with a constant
// ratio between neighbours. Both bounds must be positive.
func GeometricRange(lo, hi float64, n int) []float64 {
	if n <= 0 || lo <= 0 || hi <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	out := floats.LogSpan(make([]float64, n), lo, hi)
	out[0], out[n-1] = lo, hi
	return out
}
