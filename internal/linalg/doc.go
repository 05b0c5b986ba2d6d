// Package linalg provides the dense linear algebra used by system
// identification: a row-major [Matrix] with arithmetic, inversion, row
// reduction, rank, singular value decomposition and Moore-Penrose
// pseudo-inversion.
//
// # Tolerance
//
// Every matrix carries a [Tolerance]. Its Epsilon is the single threshold
// used for pivot selection, rank decisions, singular-value truncation and
// the convergence test of the SVD sweep. Thresholds are relative: a pivot
// or singular value is zero when it is at most Epsilon times the scale of
// the matrix it came from.
//
//	a := linalg.FromRows([][]float64{{2, 1}, {1, 3}}, linalg.WithEpsilon(1e-10))
//	x, err := a.LeftDivide(b)
//
// # Errors
//
// Shape violations and out-of-range indices are programmer errors and
// panic. Numerical failures are returned: [ErrSingular] from Inverse and
// [ErrNoConvergence] from the SVD.
package linalg
