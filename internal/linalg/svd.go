package linalg

import (
	"fmt"
	"math"
	"sort"
)

// SVD is a thin singular value decomposition A = U·W·Vᵀ of an m×n matrix
// with k = min(m, n): U is m×k with orthonormal columns, W is k×k diagonal
// with non-negative entries sorted descending, V is n×k with orthonormal
// columns. Values at or below Epsilon·max(W) are stored as exact zeros.
type SVD struct {
	U, W, V *Matrix
	values  []float64
}

// Values returns a copy of the singular values, largest first.
func (s *SVD) Values() []float64 {
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}

// Rank counts the non-zero singular values.
func (s *SVD) Rank() int {
	r := 0
	for _, w := range s.values {
		if w > 0 {
			r++
		}
	}
	return r
}

// Condition returns max(W)/min(W), or +Inf when any value was truncated.
func (s *SVD) Condition() float64 {
	last := s.values[len(s.values)-1]
	if last == 0 {
		return math.Inf(1)
	}
	return s.values[0] / last
}

// Reconstruct returns U·W·Vᵀ.
func (s *SVD) Reconstruct() *Matrix {
	return s.U.Mul(s.W).Mul(s.V.T())
}

// PseudoInverse returns V·W⁺·Uᵀ where W⁺ inverts only the non-zero values.
func (s *SVD) PseudoInverse() *Matrix {
	k := len(s.values)
	winv := New(k, k, WithTolerance(s.W.tol))
	for i, w := range s.values {
		if w > 0 {
			winv.data[i*k+i] = 1 / w
		}
	}
	return s.V.Mul(winv).Mul(s.U.T())
}

// SVD factors m. It returns ErrNoConvergence when some singular value is
// still coupled to its neighbour after MaxSweeps implicit-shift sweeps.
func (m *Matrix) SVD() (*SVD, error) {
	if m.rows < m.cols {
		st, err := m.T().SVD()
		if err != nil {
			return nil, err
		}
		st.U, st.V = st.V, st.U
		return st, nil
	}

	a := m.Clone()
	n := m.cols
	w := make([]float64, n)
	e := make([]float64, n)
	v := New(n, n, WithTolerance(m.tol))

	anorm := bidiagonalize(a, w, e)
	accumulateRight(a, v, e)
	accumulateLeft(a, w)
	if err := diagonalize(a, w, e, v, m.tol.Epsilon*anorm, m.tol.MaxSweeps); err != nil {
		return nil, err
	}

	s := &SVD{U: a, V: v, values: w}
	s.cleanup(m.tol.Epsilon)
	s.sortDescending()
	s.W = Diagonal(s.values, WithTolerance(m.tol))
	return s, nil
}

// bidiagonalize applies alternating Householder reflections to the columns
// and rows of a. On return w holds the diagonal, e the superdiagonal
// (e[i] couples w[i-1] and w[i], e[0] == 0), and a holds the reflectors.
// It returns max(|w[i]| + |e[i]|), the scale for convergence tests.
func bidiagonalize(a *Matrix, w, e []float64) float64 {
	m, n := a.rows, a.cols
	d := a.data
	at := func(i, j int) *float64 { return &d[i*n+j] }

	var g, scale, anorm float64
	for i := 0; i < n; i++ {
		l := i + 1
		e[i] = scale * g
		g, scale = 0, 0
		s := 0.0

		for k := i; k < m; k++ {
			scale += math.Abs(*at(k, i))
		}
		if scale != 0 {
			for k := i; k < m; k++ {
				*at(k, i) /= scale
				s += *at(k, i) * *at(k, i)
			}
			f := *at(i, i)
			g = -math.Copysign(math.Sqrt(s), f)
			h := f*g - s
			*at(i, i) = f - g
			for j := l; j < n; j++ {
				s = 0
				for k := i; k < m; k++ {
					s += *at(k, i) * *at(k, j)
				}
				f = s / h
				for k := i; k < m; k++ {
					*at(k, j) += f * *at(k, i)
				}
			}
			for k := i; k < m; k++ {
				*at(k, i) *= scale
			}
		}
		w[i] = scale * g

		g, scale, s = 0, 0, 0
		if i != n-1 {
			for k := l; k < n; k++ {
				scale += math.Abs(*at(i, k))
			}
			if scale != 0 {
				for k := l; k < n; k++ {
					*at(i, k) /= scale
					s += *at(i, k) * *at(i, k)
				}
				f := *at(i, l)
				g = -math.Copysign(math.Sqrt(s), f)
				h := f*g - s
				*at(i, l) = f - g
				for k := l; k < n; k++ {
					e[k] = *at(i, k) / h
				}
				for j := l; j < m; j++ {
					s = 0
					for k := l; k < n; k++ {
						s += *at(j, k) * *at(i, k)
					}
					for k := l; k < n; k++ {
						*at(j, k) += s * e[k]
					}
				}
				for k := l; k < n; k++ {
					*at(i, k) *= scale
				}
			}
		}
		anorm = math.Max(anorm, math.Abs(w[i])+math.Abs(e[i]))
	}
	return anorm
}

// accumulateRight builds V from the row reflectors stored in a.
func accumulateRight(a, v *Matrix, e []float64) {
	n := a.cols
	var g float64
	l := n
	for i := n - 1; i >= 0; i-- {
		if i < n-1 {
			if g != 0 {
				for j := l; j < n; j++ {
					// Double division avoids underflow.
					v.Set(j, i, (a.At(i, j)/a.At(i, l))/g)
				}
				for j := l; j < n; j++ {
					s := 0.0
					for k := l; k < n; k++ {
						s += a.At(i, k) * v.At(k, j)
					}
					for k := l; k < n; k++ {
						v.data[k*n+j] += s * v.At(k, i)
					}
				}
			}
			for j := l; j < n; j++ {
				v.Set(i, j, 0)
				v.Set(j, i, 0)
			}
		}
		v.Set(i, i, 1)
		g = e[i]
		l = i
	}
}

// accumulateLeft overwrites a with U from the column reflectors.
func accumulateLeft(a *Matrix, w []float64) {
	m, n := a.rows, a.cols
	d := a.data
	for i := n - 1; i >= 0; i-- {
		l := i + 1
		g := w[i]
		for j := l; j < n; j++ {
			d[i*n+j] = 0
		}
		if g != 0 {
			g = 1 / g
			for j := l; j < n; j++ {
				s := 0.0
				for k := l; k < m; k++ {
					s += d[k*n+i] * d[k*n+j]
				}
				f := (s / d[i*n+i]) * g
				for k := i; k < m; k++ {
					d[k*n+j] += f * d[k*n+i]
				}
			}
			for j := i; j < m; j++ {
				d[j*n+i] *= g
			}
		} else {
			for j := i; j < m; j++ {
				d[j*n+i] = 0
			}
		}
		d[i*n+i]++
	}
}

// diagonalize chases the superdiagonal e to zero with implicit-shift QR
// sweeps, rotating the columns of u and v alongside. A superdiagonal or
// diagonal entry at or below thr is treated as zero.
func diagonalize(u *Matrix, w, e []float64, v *Matrix, thr float64, maxSweeps int) error {
	m, n := u.rows, u.cols
	ud, vd := u.data, v.data

	for k := n - 1; k >= 0; k-- {
		for sweep := 1; ; sweep++ {
			split := true
			l, nm := k, k-1
			for ; l >= 0; l-- {
				nm = l - 1
				if math.Abs(e[l]) <= thr {
					split = false
					break
				}
				if math.Abs(w[nm]) <= thr {
					break
				}
			}

			if split {
				// w[nm] is negligible: cancel e[l..k] by rotating into row nm.
				c, s := 0.0, 1.0
				for i := l; i <= k; i++ {
					f := s * e[i]
					e[i] = c * e[i]
					if math.Abs(f) <= thr {
						break
					}
					g := w[i]
					h := math.Hypot(f, g)
					w[i] = h
					h = 1 / h
					c = g * h
					s = -f * h
					for j := 0; j < m; j++ {
						y, z := ud[j*n+nm], ud[j*n+i]
						ud[j*n+nm] = y*c + z*s
						ud[j*n+i] = z*c - y*s
					}
				}
			}

			z := w[k]
			if l == k {
				if z < 0 {
					w[k] = -z
					for j := 0; j < n; j++ {
						vd[j*n+k] = -vd[j*n+k]
					}
				}
				break
			}
			if sweep >= maxSweeps {
				return fmt.Errorf("singular value %d after %d sweeps: %w", k, sweep, ErrNoConvergence)
			}

			// Wilkinson shift from the trailing 2x2 minor.
			x := w[l]
			nm = k - 1
			y := w[nm]
			g := e[nm]
			h := e[k]
			f := ((y-z)*(y+z) + (g-h)*(g+h)) / (2 * h * y)
			g = math.Hypot(f, 1)
			f = ((x-z)*(x+z) + h*((y/(f+math.Copysign(g, f)))-h)) / x

			c, s := 1.0, 1.0
			for j := l; j <= nm; j++ {
				i := j + 1
				g = e[i]
				y = w[i]
				h = s * g
				g = c * g
				z = math.Hypot(f, h)
				e[j] = z
				c = f / z
				s = h / z
				f = x*c + g*s
				g = g*c - x*s
				h = y * s
				y *= c
				for jj := 0; jj < n; jj++ {
					x, z = vd[jj*n+j], vd[jj*n+i]
					vd[jj*n+j] = x*c + z*s
					vd[jj*n+i] = z*c - x*s
				}
				z = math.Hypot(f, h)
				w[j] = z
				if z != 0 {
					z = 1 / z
					c = f * z
					s = h * z
				}
				f = c*g + s*y
				x = c*y - s*g
				for jj := 0; jj < m; jj++ {
					y, z = ud[jj*n+j], ud[jj*n+i]
					ud[jj*n+j] = y*c + z*s
					ud[jj*n+i] = z*c - y*s
				}
			}
			e[l] = 0
			e[k] = f
			w[k] = x
		}
	}
	return nil
}

// cleanup zeroes singular values at or below eps·max(w).
func (s *SVD) cleanup(eps float64) {
	maxW := 0.0
	for _, w := range s.values {
		maxW = math.Max(maxW, w)
	}
	thr := eps * maxW
	for i, w := range s.values {
		if w <= thr {
			s.values[i] = 0
		}
	}
}

// sortDescending orders the values largest first and permutes the columns
// of U and V in lock-step.
func (s *SVD) sortDescending() {
	k := len(s.values)
	order := make([]int, k)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return s.values[order[a]] > s.values[order[b]] })

	values := make([]float64, k)
	u := New(s.U.rows, k, WithTolerance(s.U.tol))
	v := New(s.V.rows, k, WithTolerance(s.V.tol))
	for dst, src := range order {
		values[dst] = s.values[src]
		for i := 0; i < u.rows; i++ {
			u.data[i*k+dst] = s.U.data[i*s.U.cols+src]
		}
		for i := 0; i < v.rows; i++ {
			v.data[i*k+dst] = s.V.data[i*s.V.cols+src]
		}
	}
	s.values, s.U, s.V = values, u, v
}
