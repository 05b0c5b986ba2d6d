package linalg

import (
	"errors"
	"fmt"
)

var (
	// ErrSingular indicates a square matrix with no usable pivot in some column.
	ErrSingular = errors.New("linalg: matrix is singular")

	// ErrNoConvergence indicates the SVD sweep hit its iteration cap.
	ErrNoConvergence = errors.New("linalg: svd did not converge")
)

func mustf(ok bool, format string, args ...any) {
	if !ok {
		panic(fmt.Sprintf("linalg: "+format, args...))
	}
}
