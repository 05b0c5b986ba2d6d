package linalg

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func toGonum(a *Matrix) *mat.Dense {
	r, c := a.Dims()
	d := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			d.Set(i, j, a.At(i, j))
		}
	}
	return d
}

func requireSVDProperties(t *testing.T, a *Matrix, s *SVD) {
	t.Helper()
	m, n := a.Dims()
	k := min(m, n)
	require.Equal(t, m, s.U.Rows())
	require.Equal(t, k, s.U.Cols())
	require.Equal(t, k, s.W.Rows())
	require.Equal(t, n, s.V.Rows())
	require.Equal(t, k, s.V.Cols())

	scale := math.Max(a.MaxAbs(), 1)
	require.True(t, s.Reconstruct().ApproxEqual(a, 1e-10*scale), "U·W·Vᵀ differs from A")

	values := s.Values()
	for i, w := range values {
		require.GreaterOrEqual(t, w, 0.0)
		if i > 0 {
			require.LessOrEqual(t, w, values[i-1])
		}
		for j := 0; j < k; j++ {
			if i != j {
				require.Zero(t, s.W.At(i, j))
			}
		}
	}

	// Columns paired with truncated values are arbitrary, so orthonormality
	// is checked on the leading Rank() columns.
	r := s.Rank()
	for i := 0; i < r; i++ {
		for j := 0; j < r; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			var uu, vv float64
			for p := 0; p < m; p++ {
				uu += s.U.At(p, i) * s.U.At(p, j)
			}
			for p := 0; p < n; p++ {
				vv += s.V.At(p, i) * s.V.At(p, j)
			}
			require.InDelta(t, want, uu, 1e-10, "UᵀU[%d,%d]", i, j)
			require.InDelta(t, want, vv, 1e-10, "VᵀV[%d,%d]", i, j)
		}
	}
}

func TestSVD_Random(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	shapes := [][2]int{{1, 1}, {3, 3}, {5, 3}, {8, 2}, {3, 5}, {1, 4}, {10, 10}, {40, 4}}
	for _, sh := range shapes {
		a := randomMatrix(rng, sh[0], sh[1])
		s, err := a.SVD()
		require.NoError(t, err, "%v", sh)
		requireSVDProperties(t, a, s)
		require.Equal(t, min(sh[0], sh[1]), s.Rank())
		require.True(t, s.U.T().Mul(s.U).ApproxEqual(Identity(s.Rank()), 1e-10))

		var ref mat.SVD
		require.True(t, ref.Factorize(toGonum(a), mat.SVDThin))
		want := ref.Values(nil)
		got := s.Values()
		for i := range want {
			require.InDelta(t, want[i], got[i], 1e-10, "%v value %d", sh, i)
		}
	}
}

func TestSVD_KnownValues(t *testing.T) {
	a := FromRows([][]float64{{2, 4}, {1, 3}, {0, 0}, {0, 0}})
	s, err := a.SVD()
	require.NoError(t, err)
	got := s.Values()
	require.InDelta(t, 5.4649857042, got[0], 1e-9)
	require.InDelta(t, 0.3659661906, got[1], 1e-9)
	requireSVDProperties(t, a, s)
}

func TestSVD_RankDeficient(t *testing.T) {
	a := FromRows([][]float64{
		{1, 2, 3},
		{4, 5, 9},
		{7, 8, 15},
		{1, 1, 2},
	})
	s, err := a.SVD()
	require.NoError(t, err)
	require.Equal(t, 2, s.Rank())
	require.Zero(t, s.Values()[2])
	require.True(t, math.IsInf(s.Condition(), 1))
	requireSVDProperties(t, a, s)
}

func TestSVD_Zero(t *testing.T) {
	s, err := New(4, 3).SVD()
	require.NoError(t, err)
	require.Equal(t, 0, s.Rank())
	require.True(t, s.Reconstruct().ApproxEqual(New(4, 3), 0))
}

func TestSVD_SweepCap(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	a := randomMatrix(rng, 6, 6)
	a.SetTolerance(WithMaxSweeps(1), WithEpsilon(0))
	_, err := a.SVD()
	require.ErrorIs(t, err, ErrNoConvergence)
}
