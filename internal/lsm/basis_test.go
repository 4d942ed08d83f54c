package lsm_test

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lsmc/internal/lsm"
)

func TestBasis_OneFactor(t *testing.T) {
	t.Parallel()

	x := 0.7
	tests := []struct {
		family lsm.Family
		want   []float64
	}{
		{lsm.Monomial, []float64{1, x, x * x, x * x * x}},
		{lsm.Laguerre, []float64{
			math.Exp(-x / 2),
			math.Exp(-x/2) * (1 - x),
			math.Exp(-x/2) * (x*x - 4*x + 2) / 2,
			math.Exp(-x/2) * (-x*x*x + 9*x*x - 18*x + 6) / 6,
		}},
		{lsm.Hermite, []float64{1, 2 * x, 4*x*x - 2, 8*x*x*x - 12*x}},
		{lsm.Legendre, []float64{1, x, (3*x*x - 1) / 2, (5*x*x*x - 3*x) / 2}},
		{lsm.Chebyshev, []float64{1, x, 2*x*x - 1, 4*x*x*x - 3*x}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(string(tc.family), func(t *testing.T) {
			t.Parallel()
			b, err := lsm.NewBasis(tc.family, 3, 1)
			require.NoError(t, err)
			assert.Equal(t, 4, b.Size())
			assert.InDeltaSlice(t, tc.want, b.Eval([]float64{x}, nil), 1e-12)
		})
	}
}

func TestBasis_TwoFactorTensor(t *testing.T) {
	t.Parallel()

	b, err := lsm.NewBasis(lsm.Monomial, 2, 2)
	require.NoError(t, err)
	require.Equal(t, 9, b.Size())

	x, y := 2.0, 3.0
	got := b.Eval([]float64{x, y}, nil)
	assert.Equal(t, 1.0, got[0])

	// {1, x, y, xy, x², y², x²y, xy², x²y²}
	want := []float64{1, x, y, x * y, x * x, y * y, x * x * y, x * y * y, x * x * y * y}
	sort.Float64s(got)
	sort.Float64s(want)
	assert.Equal(t, want, got)
}

func TestBasis_Rejects(t *testing.T) {
	t.Parallel()

	_, err := lsm.NewBasis("spline", 2, 1)
	require.ErrorIs(t, err, lsm.ErrInvalidBasis)
	_, err = lsm.NewBasis(lsm.Monomial, -1, 1)
	require.ErrorIs(t, err, lsm.ErrInvalidBasis)
	_, err = lsm.NewBasis(lsm.Monomial, 3, 5)
	require.ErrorIs(t, err, lsm.ErrInvalidBasis)

	f, err := lsm.ParseFamily("Legendre")
	require.NoError(t, err)
	assert.Equal(t, lsm.Legendre, f)
	f, err = lsm.ParseFamily("")
	require.NoError(t, err)
	assert.Equal(t, lsm.Monomial, f)
}
