package linalg

import (
	"errors"
	"fmt"
)

// PseudoInverse returns the Moore-Penrose inverse of m through its SVD.
// Truncated singular values contribute nothing, so rank deficiency is not
// an error; the only failure is SVD non-convergence.
func (m *Matrix) PseudoInverse() (*Matrix, error) {
	s, err := m.SVD()
	if err != nil {
		return nil, fmt.Errorf("pseudo-inverse: %w", err)
	}
	return s.PseudoInverse(), nil
}

// LeftDivide solves m·x = b. A square, well-conditioned m is solved through
// Inverse; anything else gets the minimum-norm least-squares solution m⁺·b.
// Well-conditioned means every pivot clears the zero threshold and the
// Frobenius condition estimate ‖m‖·‖m⁻¹‖ stays below 1/epsilon. Panics when
// b does not have m.Rows() rows.
func (m *Matrix) LeftDivide(b *Matrix) (*Matrix, error) {
	mustf(b.rows == m.rows, "left divide: %dx%d \\ %dx%d", m.rows, m.cols, b.rows, b.cols)
	if m.IsSquare() {
		inv, err := m.Inverse()
		switch {
		case err == nil && m.wellConditioned(inv):
			return inv.Mul(b), nil
		case err != nil && !errors.Is(err, ErrSingular):
			return nil, err
		}
	}
	pinv, err := m.PseudoInverse()
	if err != nil {
		return nil, fmt.Errorf("left divide: %w", err)
	}
	return pinv.Mul(b), nil
}

// SolveVec is LeftDivide for a single right-hand side vector.
func (m *Matrix) SolveVec(b []float64) ([]float64, error) {
	x, err := m.LeftDivide(ColumnVector(b, WithTolerance(m.tol)))
	if err != nil {
		return nil, err
	}
	return x.Col(0), nil
}

func (m *Matrix) wellConditioned(inv *Matrix) bool {
	if m.tol.Epsilon == 0 {
		return true
	}
	return m.Norm()*inv.Norm()*m.tol.Epsilon < 1
}
