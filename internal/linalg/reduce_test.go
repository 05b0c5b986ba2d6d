package linalg

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// randomMatrix fills an m×n matrix with values in [-1, 1).
func randomMatrix(rng *rand.Rand, m, n int) *Matrix {
	a := New(m, n)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			a.Set(i, j, 2*rng.Float64()-1)
		}
	}
	return a
}

func TestInverse_Identity(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, n := range []int{1, 2, 3, 5, 8} {
		a := randomMatrix(rng, n, n)
		// diagonal dominance keeps the draws well conditioned
		for i := 0; i < n; i++ {
			a.Set(i, i, a.At(i, i)+float64(n))
		}
		inv, err := a.Inverse()
		require.NoError(t, err)
		require.True(t, a.Mul(inv).ApproxEqual(Identity(n), 1e-9), "n=%d", n)
		require.True(t, inv.Mul(a).ApproxEqual(Identity(n), 1e-9), "n=%d", n)
	}
}

func TestInverse_NeedsPivoting(t *testing.T) {
	a := FromRows([][]float64{{0, 1}, {1, 0}})
	inv, err := a.Inverse()
	require.NoError(t, err)
	require.True(t, inv.ApproxEqual(a, 0))
}

func TestInverse_Singular(t *testing.T) {
	a := FromRows([][]float64{{1, 2}, {2, 4}})
	inv, err := a.Inverse()
	require.Nil(t, inv)
	require.True(t, errors.Is(err, ErrSingular))
	require.Equal(t, 1.0, a.At(0, 0))

	_, err = New(3, 3).Inverse()
	require.ErrorIs(t, err, ErrSingular)
}

func TestInverse_NonSquarePanics(t *testing.T) {
	require.Panics(t, func() { _, _ = New(2, 3).Inverse() })
}

func TestRowReduce(t *testing.T) {
	a := FromRows([][]float64{
		{1, 2, 1},
		{2, 4, 0},
		{3, 6, 1},
	})
	r, rank := a.RowReduce()
	require.Equal(t, 2, rank)
	want := FromRows([][]float64{
		{1, 2, 0},
		{0, 0, 1},
		{0, 0, 0},
	})
	require.True(t, r.ApproxEqual(want, 1e-12), "got\n%s", r)
}

func TestRank(t *testing.T) {
	tests := []struct {
		name string
		a    *Matrix
		want int
	}{
		{"zero", New(3, 2), 0},
		{"identity", Identity(4), 4},
		{"wide full", FromRows([][]float64{{1, 0, 2}, {0, 1, 3}}), 2},
		{"dependent column", FromRows([][]float64{{1, 2, 3}, {4, 5, 9}, {7, 8, 15}, {1, 1, 2}}), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.a.Rank())
		})
	}
}

func TestRank_OuterProduct(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 20; trial++ {
		m, n := 2+rng.Intn(6), 2+rng.Intn(6)
		u := randomMatrix(rng, m, 1)
		v := randomMatrix(rng, 1, n)
		u.Set(0, 0, 1.5) // nonzero vectors
		v.Set(0, 0, -0.75)
		a := u.Mul(v)
		require.Equal(t, 1, a.Rank(), "trial %d (%dx%d)", trial, m, n)

		s, err := a.SVD()
		require.NoError(t, err)
		require.Equal(t, 1, s.Rank(), "trial %d svd rank", trial)
	}
}
