package linalg

import (
	"fmt"
	"math"
	"strings"
)

// Matrix is a dense rows×cols matrix of float64 stored row-major in one
// owned buffer. Copies are deep; no two matrices share storage.
type Matrix struct {
	rows, cols int
	data       []float64
	tol        Tolerance
}

// New returns a zero rows×cols matrix. Panics if either dimension is < 1.
func New(rows, cols int, opts ...Option) *Matrix {
	mustf(rows >= 1 && cols >= 1, "invalid dimensions %dx%d", rows, cols)
	return &Matrix{
		rows: rows,
		cols: cols,
		data: make([]float64, rows*cols),
		tol:  buildTolerance(opts),
	}
}

// FromRows copies a rectangular slice of rows into a new matrix.
func FromRows(rows [][]float64, opts ...Option) *Matrix {
	mustf(len(rows) >= 1, "no rows")
	m := New(len(rows), len(rows[0]), opts...)
	for i, r := range rows {
		mustf(len(r) == m.cols, "ragged row %d: %d values, want %d", i, len(r), m.cols)
		copy(m.data[i*m.cols:(i+1)*m.cols], r)
	}
	return m
}

// ColumnVector returns a len(v)×1 matrix.
func ColumnVector(v []float64, opts ...Option) *Matrix {
	m := New(len(v), 1, opts...)
	copy(m.data, v)
	return m
}

func Identity(n int, opts ...Option) *Matrix {
	m := New(n, n, opts...)
	for i := 0; i < n; i++ {
		m.data[i*n+i] = 1
	}
	return m
}

// Diagonal returns a square matrix with d on its diagonal.
func Diagonal(d []float64, opts ...Option) *Matrix {
	n := len(d)
	m := New(n, n, opts...)
	for i, v := range d {
		m.data[i*n+i] = v
	}
	return m
}

func (m *Matrix) Rows() int { return m.rows }
func (m *Matrix) Cols() int { return m.cols }

func (m *Matrix) Dims() (int, int) { return m.rows, m.cols }

func (m *Matrix) Tolerance() Tolerance { return m.tol }

// SetTolerance replaces the numeric policy of m.
func (m *Matrix) SetTolerance(opts ...Option) {
	for _, opt := range opts {
		opt(&m.tol)
	}
}

func (m *Matrix) IsSquare() bool { return m.rows == m.cols }

func (m *Matrix) index(i, j int) int {
	mustf(i >= 0 && i < m.rows && j >= 0 && j < m.cols,
		"index (%d,%d) out of range for %dx%d", i, j, m.rows, m.cols)
	return i*m.cols + j
}

// At returns element (i, j). Panics when out of range.
func (m *Matrix) At(i, j int) float64 { return m.data[m.index(i, j)] }

// Set assigns element (i, j). Panics when out of range.
func (m *Matrix) Set(i, j int, v float64) { m.data[m.index(i, j)] = v }

// Resize changes the shape of m and zeroes every element.
func (m *Matrix) Resize(rows, cols int) {
	mustf(rows >= 1 && cols >= 1, "invalid dimensions %dx%d", rows, cols)
	m.rows, m.cols = rows, cols
	m.data = make([]float64, rows*cols)
}

func (m *Matrix) Clone() *Matrix {
	c := &Matrix{rows: m.rows, cols: m.cols, data: make([]float64, len(m.data)), tol: m.tol}
	copy(c.data, m.data)
	return c
}

// Row returns a copy of row i.
func (m *Matrix) Row(i int) []float64 {
	mustf(i >= 0 && i < m.rows, "row %d out of range for %dx%d", i, m.rows, m.cols)
	r := make([]float64, m.cols)
	copy(r, m.data[i*m.cols:(i+1)*m.cols])
	return r
}

// Col returns a copy of column j.
func (m *Matrix) Col(j int) []float64 {
	mustf(j >= 0 && j < m.cols, "column %d out of range for %dx%d", j, m.rows, m.cols)
	c := make([]float64, m.rows)
	for i := range c {
		c[i] = m.data[i*m.cols+j]
	}
	return c
}

// T returns the transpose of m.
func (m *Matrix) T() *Matrix {
	t := &Matrix{rows: m.cols, cols: m.rows, data: make([]float64, len(m.data)), tol: m.tol}
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			t.data[j*t.cols+i] = m.data[i*m.cols+j]
		}
	}
	return t
}

// MaxAbs returns the largest absolute element.
func (m *Matrix) MaxAbs() float64 {
	maxAbs := 0.0
	for _, v := range m.data {
		maxAbs = math.Max(maxAbs, math.Abs(v))
	}
	return maxAbs
}

// Norm returns the Frobenius norm.
func (m *Matrix) Norm() float64 {
	scale, ssq := 0.0, 1.0
	for _, v := range m.data {
		if v == 0 {
			continue
		}
		a := math.Abs(v)
		if scale < a {
			ssq = 1 + ssq*(scale/a)*(scale/a)
			scale = a
		} else {
			ssq += (a / scale) * (a / scale)
		}
	}
	return scale * math.Sqrt(ssq)
}

// ApproxEqual reports whether m and o have the same shape and every pair of
// elements differs by at most tol.
func (m *Matrix) ApproxEqual(o *Matrix, tol float64) bool {
	if m.rows != o.rows || m.cols != o.cols {
		return false
	}
	for k, v := range m.data {
		if math.Abs(v-o.data[k]) > tol {
			return false
		}
	}
	return true
}

func (m *Matrix) String() string {
	var sb strings.Builder
	for i := 0; i < m.rows; i++ {
		sb.WriteString("[")
		for j := 0; j < m.cols; j++ {
			if j > 0 {
				sb.WriteString(" ")
			}
			fmt.Fprintf(&sb, "%10.4g", m.data[i*m.cols+j])
		}
		sb.WriteString("]\n")
	}
	return sb.String()
}

// zeroThreshold is the absolute cutoff for values derived from a matrix
// whose magnitude is scale.
func (m *Matrix) zeroThreshold(scale float64) float64 {
	return m.tol.Epsilon * scale
}
