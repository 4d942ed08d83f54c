package process_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"lsmc/internal/process"
)

var ref = time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

func TestBlackScholes_Evolve(t *testing.T) {
	t.Parallel()

	p, err := process.NewBlackScholes(ref, 100, 0.05, 0.01, 0.2)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Factors())

	out := make([]float64, 1)
	p.Evolve(0, 0.5, []float64{100}, []float64{0}, out)
	assert.InDelta(t, 100*math.Exp((0.04-0.02)*0.5), out[0], 1e-12)

	p.Evolve(0, 0.5, []float64{100}, []float64{1}, out)
	assert.InDelta(t, 100*math.Exp(0.01+0.2*math.Sqrt(0.5)), out[0], 1e-12)

	assert.InDelta(t, 100*math.Exp(0.04), p.Forward(1), 1e-12)
	assert.InDelta(t, 0.2, p.StdDev(1), 1e-15)
	assert.InDelta(t, math.Exp(-0.05), p.DiscountCurve().Discount(1), 1e-15)
}

func TestBlackScholes_Time(t *testing.T) {
	t.Parallel()

	p, err := process.NewBlackScholes(ref, 100, 0, 0, 0.2)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, p.Time(ref.AddDate(0, 0, 365)), 1e-12)
	assert.InDelta(t, 0.0, p.Time(ref), 1e-15)
}

func TestNewBlackScholes_Rejects(t *testing.T) {
	t.Parallel()

	_, err := process.NewBlackScholes(ref, 0, 0, 0, 0.2)
	require.ErrorIs(t, err, process.ErrInvalidParameter)
	_, err = process.NewBlackScholes(ref, 100, 0, 0, -0.2)
	require.ErrorIs(t, err, process.ErrInvalidParameter)
}

func TestMultiAsset_CorrelatesDraws(t *testing.T) {
	t.Parallel()

	corr := mat.NewSymDense(2, []float64{1, 0.6, 0.6, 1})
	p, err := process.NewMultiAsset(ref, []float64{100, 50}, []float64{0.2, 0.3}, nil, 0, corr)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Factors())
	assert.Equal(t, []float64{100, 50}, p.Initial())

	out := make([]float64, 2)
	// A draw on the first factor only moves the second through the correlation.
	p.Evolve(0, 1, []float64{100, 50}, []float64{1, 0}, out)
	assert.InDelta(t, 100*math.Exp(-0.02+0.2), out[0], 1e-12)
	assert.InDelta(t, 50*math.Exp(-0.045+0.3*0.6), out[1], 1e-12)
}

func TestNewMultiAsset_Rejects(t *testing.T) {
	t.Parallel()

	bad := mat.NewSymDense(2, []float64{1, 1.5, 1.5, 1})
	_, err := process.NewMultiAsset(ref, []float64{100, 50}, []float64{0.2, 0.3}, nil, 0, bad)
	require.ErrorIs(t, err, process.ErrCorrelation)

	id := mat.NewSymDense(2, []float64{1, 0, 0, 1})
	_, err = process.NewMultiAsset(ref, []float64{100, 50}, []float64{0.2}, nil, 0, id)
	require.ErrorIs(t, err, process.ErrInvalidParameter)

	_, err = process.NewMultiAsset(ref, []float64{100}, []float64{0.2}, nil, 0, id)
	require.ErrorIs(t, err, process.ErrInvalidParameter)
}
