package linalg

import "math"

const (
	// DefaultEpsilon is the relative zero threshold.
	DefaultEpsilon = 1e-12

	// DefaultMaxSweeps caps implicit-shift QR sweeps per singular value.
	DefaultMaxSweeps = 30
)

// Tolerance is the numeric policy attached to a matrix.
type Tolerance struct {
	Epsilon   float64
	MaxSweeps int
}

func DefaultTolerance() Tolerance {
	return Tolerance{Epsilon: DefaultEpsilon, MaxSweeps: DefaultMaxSweeps}
}

// Option configures the tolerance of a new matrix.
type Option func(*Tolerance)

// WithEpsilon sets the relative zero threshold. Panics unless eps is finite
// and non-negative.
func WithEpsilon(eps float64) Option {
	mustf(!math.IsNaN(eps) && !math.IsInf(eps, 0) && eps >= 0, "invalid epsilon %g", eps)
	return func(t *Tolerance) { t.Epsilon = eps }
}

// WithMaxSweeps sets the SVD iteration cap. Panics when n < 1.
func WithMaxSweeps(n int) Option {
	mustf(n >= 1, "invalid sweep cap %d", n)
	return func(t *Tolerance) { t.MaxSweeps = n }
}

// WithTolerance copies a complete policy, typically one loaded from config.
func WithTolerance(tol Tolerance) Option {
	return func(t *Tolerance) {
		WithEpsilon(tol.Epsilon)(t)
		WithMaxSweeps(tol.MaxSweeps)(t)
	}
}

func buildTolerance(opts []Option) Tolerance {
	tol := DefaultTolerance()
	for _, opt := range opts {
		opt(&tol)
	}
	return tol
}
