package linalg

import (
	"fmt"
	"math"
)

// Inverse returns m⁻¹ by Gauss-Jordan elimination with partial pivoting.
// Panics if m is not square. Returns ErrSingular when a column has no pivot
// above the zero threshold; m is never modified.
func (m *Matrix) Inverse() (*Matrix, error) {
	mustf(m.IsSquare(), "inverse of non-square %dx%d matrix", m.rows, m.cols)
	n := m.rows
	a := m.Clone()
	inv := Identity(n, WithTolerance(m.tol))
	thr := m.zeroThreshold(m.MaxAbs())

	for col := 0; col < n; col++ {
		p := a.pivotRow(col, col)
		if math.Abs(a.At(p, col)) <= thr {
			return nil, fmt.Errorf("inverse: column %d: %w", col, ErrSingular)
		}
		a.swapRows(p, col)
		inv.swapRows(p, col)

		d := a.data[col*n+col]
		for j := 0; j < n; j++ {
			a.data[col*n+j] /= d
			inv.data[col*n+j] /= d
		}
		for i := 0; i < n; i++ {
			if i == col {
				continue
			}
			f := a.data[i*n+col]
			if f == 0 {
				continue
			}
			for j := 0; j < n; j++ {
				a.data[i*n+j] -= f * a.data[col*n+j]
				inv.data[i*n+j] -= f * inv.data[col*n+j]
			}
		}
	}
	return inv, nil
}

// RowReduce returns the reduced row echelon form of m and its rank.
// Pivots are chosen by largest magnitude in the column; a candidate at or
// below the zero threshold leaves the column without a pivot.
func (m *Matrix) RowReduce() (*Matrix, int) {
	r := m.Clone()
	thr := m.zeroThreshold(m.MaxAbs())
	rank := 0
	for col := 0; col < r.cols && rank < r.rows; col++ {
		p := r.pivotRow(rank, col)
		if math.Abs(r.At(p, col)) <= thr {
			for i := rank; i < r.rows; i++ {
				r.data[i*r.cols+col] = 0
			}
			continue
		}
		r.swapRows(p, rank)

		d := r.data[rank*r.cols+col]
		for j := col; j < r.cols; j++ {
			r.data[rank*r.cols+j] /= d
		}
		for i := 0; i < r.rows; i++ {
			if i == rank {
				continue
			}
			f := r.data[i*r.cols+col]
			if f == 0 {
				continue
			}
			for j := col; j < r.cols; j++ {
				r.data[i*r.cols+j] -= f * r.data[rank*r.cols+j]
			}
			r.data[i*r.cols+col] = 0
		}
		rank++
	}
	return r, rank
}

// Rank returns the number of pivots found by RowReduce.
func (m *Matrix) Rank() int {
	_, rank := m.RowReduce()
	return rank
}

// pivotRow returns the row in [from, rows) with the largest |m(row, col)|.
func (m *Matrix) pivotRow(from, col int) int {
	best, bestAbs := from, -1.0
	for i := from; i < m.rows; i++ {
		if a := math.Abs(m.data[i*m.cols+col]); a > bestAbs {
			best, bestAbs = i, a
		}
	}
	return best
}

func (m *Matrix) swapRows(i, k int) {
	if i == k {
		return
	}
	ri := m.data[i*m.cols : (i+1)*m.cols]
	rk := m.data[k*m.cols : (k+1)*m.cols]
	for j := range ri {
		ri[j], rk[j] = rk[j], ri[j]
	}
}
