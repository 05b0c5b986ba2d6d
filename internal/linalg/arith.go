package linalg

func (m *Matrix) mustSameShape(op string, o *Matrix) {
	mustf(m.rows == o.rows && m.cols == o.cols,
		"%s: shape mismatch %dx%d vs %dx%d", op, m.rows, m.cols, o.rows, o.cols)
}

// Add returns m + o.
func (m *Matrix) Add(o *Matrix) *Matrix {
	r := m.Clone()
	r.AddInPlace(o)
	return r
}

// Sub returns m - o.
func (m *Matrix) Sub(o *Matrix) *Matrix {
	r := m.Clone()
	r.SubInPlace(o)
	return r
}

// Scale returns s·m.
func (m *Matrix) Scale(s float64) *Matrix {
	r := m.Clone()
	r.ScaleInPlace(s)
	return r
}

// Div returns m / s.
func (m *Matrix) Div(s float64) *Matrix {
	r := m.Clone()
	r.DivInPlace(s)
	return r
}

func (m *Matrix) AddInPlace(o *Matrix) {
	m.mustSameShape("add", o)
	for k, v := range o.data {
		m.data[k] += v
	}
}

func (m *Matrix) SubInPlace(o *Matrix) {
	m.mustSameShape("sub", o)
	for k, v := range o.data {
		m.data[k] -= v
	}
}

func (m *Matrix) ScaleInPlace(s float64) {
	for k := range m.data {
		m.data[k] *= s
	}
}

// DivInPlace divides every element by s. Panics when s is zero.
func (m *Matrix) DivInPlace(s float64) {
	mustf(s != 0, "division by zero")
	for k := range m.data {
		m.data[k] /= s
	}
}

// Mul returns the matrix product m·o.
func (m *Matrix) Mul(o *Matrix) *Matrix {
	mustf(m.cols == o.rows, "mul: shape mismatch %dx%d · %dx%d", m.rows, m.cols, o.rows, o.cols)
	r := &Matrix{rows: m.rows, cols: o.cols, data: make([]float64, m.rows*o.cols), tol: m.tol}
	for i := 0; i < m.rows; i++ {
		ri := r.data[i*r.cols : (i+1)*r.cols]
		for k := 0; k < m.cols; k++ {
			a := m.data[i*m.cols+k]
			if a == 0 {
				continue
			}
			ok := o.data[k*o.cols : (k+1)*o.cols]
			for j, b := range ok {
				ri[j] += a * b
			}
		}
	}
	return r
}

// MulInPlace replaces m with m·o.
func (m *Matrix) MulInPlace(o *Matrix) {
	p := m.Mul(o)
	m.rows, m.cols, m.data = p.rows, p.cols, p.data
}

// MulVec returns m·v for a vector of length Cols.
func (m *Matrix) MulVec(v []float64) []float64 {
	mustf(len(v) == m.cols, "mulvec: length %d, want %d", len(v), m.cols)
	out := make([]float64, m.rows)
	for i := 0; i < m.rows; i++ {
		s := 0.0
		for j, x := range v {
			s += m.data[i*m.cols+j] * x
		}
		out[i] = s
	}
	return out
}
