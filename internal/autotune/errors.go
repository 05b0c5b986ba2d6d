package autotune

import (
	"errors"
	"fmt"
)

// Failure kinds reported by Fit. Each is distinguishable with errors.Is.
var (
	// ErrInsufficientData indicates too few, mismatched or non-finite samples.
	ErrInsufficientData = errors.New("autotune: insufficient data")

	// ErrLengthMismatch indicates time and temperature series of different
	// lengths. It also matches ErrInsufficientData.
	ErrLengthMismatch = fmt.Errorf("%w: time and temperature series differ in length", ErrInsufficientData)

	// ErrNonMonotonicTime indicates a repeated or decreasing time stamp.
	ErrNonMonotonicTime = errors.New("autotune: time stamps are not strictly increasing")

	// ErrConvergence indicates the iteration budget ran out before the
	// parameter update became small enough.
	ErrConvergence = errors.New("autotune: fit did not converge")

	// ErrSingularFit indicates the model is not identifiable from the data:
	// the Jacobian lost all rank or the residual stopped decreasing.
	ErrSingularFit = errors.New("autotune: singular fit")
)

// FitError attaches iteration context to a fit failure.
type FitError struct {
	Iteration int
	Cost      float64
	Wrapped   error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("%v (iteration %d, cost %.6g)", e.Wrapped, e.Iteration, e.Cost)
}

func (e *FitError) Unwrap() error {
	return e.Wrapped
}
