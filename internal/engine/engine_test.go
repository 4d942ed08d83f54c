package engine_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"lsmc/internal/black"
	"lsmc/internal/engine"
	"lsmc/internal/metrics"
	"lsmc/internal/montecarlo"
	"lsmc/internal/payoff"
	"lsmc/internal/process"
	"lsmc/internal/rng"
)

// S=K=100, r=6%, vol=20%, T=1. Binomial American put is about 5.785,
// the European put 5.157.
const (
	spot         = 100.0
	strike       = 100.0
	rate         = 0.06
	vol          = 0.2
	americanPut  = 5.785
	europeanPut  = 5.157
	putTolerance = 0.2
)

func putEngine(t *testing.T, ex payoff.Exercise, opts engine.Options) *engine.Engine {
	t.Helper()
	bs, err := process.NewBlackScholes(time.Time{}, spot, rate, 0, vol)
	require.NoError(t, err)
	put, err := payoff.NewVanilla(payoff.Put, strike)
	require.NoError(t, err)
	return &engine.Engine{
		Process:  bs,
		Discount: bs.DiscountCurve(),
		Payoff:   put,
		Exercise: ex,
		Options:  opts,
		Control:  black.Vanilla{Process: bs, Payoff: put},
	}
}

func TestCalculate_EuropeanConvergesToBlack(t *testing.T) {
	t.Parallel()

	// zero rate: forward 100, stdDev 0.2, discount 1
	bs, err := process.NewBlackScholes(time.Time{}, 100, 0, 0, 0.2)
	require.NoError(t, err)
	call, err := payoff.NewVanilla(payoff.Call, 100)
	require.NoError(t, err)
	want, err := black.Formula(payoff.Call, 100, 100, 0.2, 1)
	require.NoError(t, err)

	e := &engine.Engine{
		Process:  bs,
		Discount: bs.DiscountCurve(),
		Payoff:   call,
		Exercise: payoff.NewEuropean(1),
		Options:  engine.Options{TimeSteps: 1, RequiredTolerance: 0.1, Seed: 42},
	}
	res, err := e.Calculate(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res.ErrorEstimate)
	assert.LessOrEqual(t, *res.ErrorEstimate, 0.1)
	assert.InDelta(t, want, res.Value, 4**res.ErrorEstimate)
	assert.GreaterOrEqual(t, res.Samples, montecarlo.DefaultMinSamples)
	assert.Empty(t, res.Calibration.Dates)
}

func TestCalculate_AmericanPutAboveEuropean(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	opts := engine.Options{TimeSteps: 50, RequiredSamples: 20000, Antithetic: true, Seed: 7}

	am, err := putEngine(t, payoff.NewAmerican(0, 1), opts).Calculate(ctx)
	require.NoError(t, err)
	eu, err := putEngine(t, payoff.NewEuropean(1), opts).Calculate(ctx)
	require.NoError(t, err)

	assert.Greater(t, am.Value, eu.Value)
	assert.InDelta(t, americanPut, am.Value, putTolerance)
	assert.InDelta(t, europeanPut, eu.Value, 4**eu.ErrorEstimate)
	assert.Len(t, am.Calibration.Dates, 49)
	assert.Zero(t, am.Calibration.Skipped())
}

func TestCalculate_Bermudan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	opts := engine.Options{TimeStepsPerYear: 12, RequiredSamples: 10000, Antithetic: true, Seed: 3}

	ber, err := putEngine(t, payoff.NewBermudan([]float64{0.25, 0.5, 0.75, 1}), opts).Calculate(ctx)
	require.NoError(t, err)
	eu, err := putEngine(t, payoff.NewEuropean(1), opts).Calculate(ctx)
	require.NoError(t, err)

	assert.Len(t, ber.Calibration.Dates, 3)
	assert.Greater(t, ber.Value, eu.Value)
	assert.Less(t, ber.Value, americanPut+putTolerance)
}

func TestCalculate_ExactSampleCount(t *testing.T) {
	t.Parallel()

	for _, workers := range []int{1, 3} {
		opts := engine.Options{TimeSteps: 10, RequiredSamples: 5000, Seed: 1, Workers: workers}
		res, err := putEngine(t, payoff.NewAmerican(0, 1), opts).Calculate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 5000, res.Samples, "workers=%d", workers)
	}
}

func TestCalculate_Deterministic(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for _, workers := range []int{1, 4} {
		opts := engine.Options{TimeSteps: 10, RequiredTolerance: 0.05, Seed: 99, Workers: workers}
		e := putEngine(t, payoff.NewAmerican(0, 1), opts)

		a, err := e.Calculate(ctx)
		require.NoError(t, err)
		b, err := e.Calculate(ctx)
		require.NoError(t, err)
		c, err := putEngine(t, payoff.NewAmerican(0, 1), opts).Calculate(ctx)
		require.NoError(t, err)

		assert.Equal(t, a.Value, b.Value)
		assert.Equal(t, *a.ErrorEstimate, *b.ErrorEstimate)
		assert.Equal(t, a.Samples, b.Samples)
		assert.Equal(t, a.Value, c.Value)
	}
}

func TestCalculate_CalibrationSeedKeepsOwnStream(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	base := engine.Options{TimeSteps: 10, RequiredSamples: 4000, CalibrationSamples: 1000, Seed: 11}
	same := base
	same.SeedCalibration = base.Seed

	a, err := putEngine(t, payoff.NewAmerican(0, 1), base).Calculate(ctx)
	require.NoError(t, err)
	b, err := putEngine(t, payoff.NewAmerican(0, 1), same).Calculate(ctx)
	require.NoError(t, err)
	assert.Equal(t, a.Value, b.Value)
	assert.Equal(t, a.Calibration.InSampleValue, b.Calibration.InSampleValue)

	halton := engine.Options{TimeSteps: 10, RequiredSamples: 1000, CalibrationSamples: 1000, RNG: rng.LowDiscrepancy, SeedCalibration: 5}
	c, err := putEngine(t, payoff.NewAmerican(0, 1), halton).Calculate(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, c.Value, c.Calibration.InSampleValue)
}

func TestCalculate_OneSampleHasNoErrorEstimate(t *testing.T) {
	t.Parallel()

	opts := engine.Options{TimeSteps: 1, RequiredSamples: 1, Seed: 7}
	res, err := putEngine(t, payoff.NewEuropean(1), opts).Calculate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Samples)
	assert.Nil(t, res.ErrorEstimate)
	assert.False(t, math.IsInf(res.Value, 0))
}

func TestCalculate_ZeroOrderMeansDefault(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	implicit := engine.Options{TimeSteps: 10, RequiredSamples: 2000, Seed: 4}
	explicit := implicit
	explicit.PolynomialOrder = engine.DefaultPolynomialOrder

	a, err := putEngine(t, payoff.NewAmerican(0, 1), implicit).Calculate(ctx)
	require.NoError(t, err)
	b, err := putEngine(t, payoff.NewAmerican(0, 1), explicit).Calculate(ctx)
	require.NoError(t, err)
	assert.Equal(t, a.Value, b.Value)
	assert.Equal(t, a.Calibration.InSampleValue, b.Calibration.InSampleValue)
}

func TestCalculate_RecalibratesAfterMarketChange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	opts := engine.Options{TimeSteps: 10, RequiredSamples: 5000, Seed: 5}
	e := putEngine(t, payoff.NewAmerican(0, 1), opts)
	before, err := e.Calculate(ctx)
	require.NoError(t, err)

	e.Process.(*process.BlackScholes).Spot = 90
	after, err := e.Calculate(ctx)
	require.NoError(t, err)

	assert.Greater(t, after.Value, before.Value+4)
	assert.NotEqual(t, before.Calibration.InSampleValue, after.Calibration.InSampleValue)
}

func TestCalculate_ControlVariate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	opts := engine.Options{TimeSteps: 20, RequiredSamples: 8000, Seed: 11}
	plain, err := putEngine(t, payoff.NewAmerican(0, 1), opts).Calculate(ctx)
	require.NoError(t, err)

	opts.ControlVariate = true
	cv, err := putEngine(t, payoff.NewAmerican(0, 1), opts).Calculate(ctx)
	require.NoError(t, err)

	assert.Less(t, *cv.ErrorEstimate, *plain.ErrorEstimate)
	assert.InDelta(t, americanPut, cv.Value, putTolerance)

	e := putEngine(t, payoff.NewAmerican(0, 1), opts)
	e.Control = nil
	_, err = e.Calculate(ctx)
	require.ErrorIs(t, err, engine.ErrInvalidConfig)
}

func TestCalculate_MaxSamplesBelowFloor(t *testing.T) {
	t.Parallel()

	opts := engine.Options{TimeSteps: 10, RequiredTolerance: 0.01, MaxSamples: 500}
	_, err := putEngine(t, payoff.NewAmerican(0, 1), opts).Calculate(context.Background())
	require.ErrorIs(t, err, engine.ErrInvalidConfig)

	var cerr *engine.ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "maxSamples", cerr.Field)
}

func TestCalculate_ConvergenceFailure(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	rec, err := metrics.New(reg)
	require.NoError(t, err)

	opts := engine.Options{TimeSteps: 5, RequiredTolerance: 1e-4, MaxSamples: 3000, Seed: 2}
	e := putEngine(t, payoff.NewAmerican(0, 1), opts)
	e.Metrics = rec
	res, err := e.Calculate(context.Background())
	require.ErrorIs(t, err, montecarlo.ErrAccuracyNotReached)

	var cerr *montecarlo.ConvergenceError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, 3000, cerr.Samples)
	assert.Greater(t, cerr.ErrorEstimate, 1e-4)
	assert.Equal(t, 3000, res.Samples)

	n, err := testutil.GatherAndCount(reg, "lsmc_pricing_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCalculate_LowDiscrepancy(t *testing.T) {
	t.Parallel()

	opts := engine.Options{TimeSteps: 10, RequiredSamples: 4095, RNG: rng.LowDiscrepancy}
	res, err := putEngine(t, payoff.NewAmerican(0, 1), opts).Calculate(context.Background())
	require.NoError(t, err)
	assert.Nil(t, res.ErrorEstimate)
	assert.Equal(t, 4095, res.Samples)
	assert.InDelta(t, americanPut, res.Value, 0.4)
}

func TestCalculate_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := engine.Options{TimeSteps: 10, RequiredSamples: 5000}
	_, err := putEngine(t, payoff.NewAmerican(0, 1), opts).Calculate(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCalculate_BasketOnTwoAssets(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	corr := mat.NewSymDense(2, []float64{1, 0.3, 0.3, 1})
	ma, err := process.NewMultiAsset(time.Time{}, []float64{100, 100}, []float64{0.2, 0.3}, nil, rate, corr)
	require.NoError(t, err)
	basket, err := payoff.NewBasket(payoff.Put, payoff.Average, 100, []float64{0.5, 0.5})
	require.NoError(t, err)

	run := func(ex payoff.Exercise) engine.Result {
		e := &engine.Engine{
			Process:  ma,
			Discount: ma.DiscountCurve(),
			Payoff:   basket,
			Exercise: ex,
			Options:  engine.Options{TimeSteps: 20, RequiredSamples: 10000, Antithetic: true, Seed: 4, Workers: 2},
		}
		res, err := e.Calculate(ctx)
		require.NoError(t, err)
		return res
	}

	am := run(payoff.NewAmerican(0, 1))
	eu := run(payoff.NewEuropean(1))
	assert.Greater(t, am.Value, eu.Value)
	assert.Greater(t, eu.Value, 0.0)
	assert.False(t, math.IsNaN(am.Value))
}

func TestOptions_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		opts  engine.Options
		field string
	}{
		{"no steps", engine.Options{RequiredSamples: 100}, "timeSteps"},
		{"both steps", engine.Options{TimeSteps: 10, TimeStepsPerYear: 10, RequiredSamples: 100}, "timeSteps"},
		{"negative steps", engine.Options{TimeSteps: -1, RequiredSamples: 100}, "timeSteps"},
		{"no accuracy", engine.Options{TimeSteps: 10}, "requiredSamples"},
		{"both accuracy", engine.Options{TimeSteps: 10, RequiredSamples: 100, RequiredTolerance: 0.1}, "requiredSamples"},
		{"negative tolerance", engine.Options{TimeSteps: 10, RequiredTolerance: -0.1}, "requiredTolerance"},
		{"max below floor", engine.Options{TimeSteps: 10, RequiredTolerance: 0.1, MaxSamples: 500}, "maxSamples"},
		{"max below required", engine.Options{TimeSteps: 10, RequiredSamples: 5000, MaxSamples: 2000}, "maxSamples"},
		{"negative calibration", engine.Options{TimeSteps: 10, RequiredSamples: 100, CalibrationSamples: -1}, "calibrationSamples"},
		{"negative workers", engine.Options{TimeSteps: 10, RequiredSamples: 100, Workers: -2}, "workers"},
		{"unknown basis", engine.Options{TimeSteps: 10, RequiredSamples: 100, Basis: "spline"}, "basis"},
		{"unknown rng", engine.Options{TimeSteps: 10, RequiredSamples: 100, RNG: "sobol"}, "rng"},
		{"negative order", engine.Options{TimeSteps: 10, RequiredSamples: 100, PolynomialOrder: -1}, "polynomialOrder"},
		{"tolerance on halton", engine.Options{TimeSteps: 10, RequiredTolerance: 0.1, RNG: rng.LowDiscrepancy}, "requiredTolerance"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.opts.Validate()
			require.ErrorIs(t, err, engine.ErrInvalidConfig)
			var cerr *engine.ConfigError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tc.field, cerr.Field)
		})
	}

	require.NoError(t, engine.Options{TimeStepsPerYear: 50, RequiredTolerance: 0.01}.Validate())
	require.NoError(t, engine.Options{TimeSteps: 1, RequiredSamples: 1}.Validate())
}
