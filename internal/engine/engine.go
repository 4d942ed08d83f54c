// Package engine prices early-exercise contracts by least-squares Monte
// Carlo: one regression calibration on its own batch of paths, then
// sampling with the frozen exercise rule until the requested accuracy or
// sample count is reached.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"lsmc/internal/lsm"
	"lsmc/internal/metrics"
	"lsmc/internal/montecarlo"
	"lsmc/internal/path"
	"lsmc/internal/payoff"
	"lsmc/internal/process"
	"lsmc/internal/rng"
	"lsmc/internal/timegrid"
)

// calibrationStream is the RNG stream used for calibration paths, whichever
// seed they are drawn from. Pricing workers use streams 0..Workers-1.
const calibrationStream = 1 << 31

// ControlValuer supplies the closed-form value of the European version of
// the contract, used as the known mean of the control variate.
type ControlValuer interface {
	EuropeanValue(maturity float64) (float64, error)
}

// Result is the outcome of one Calculate call.
type Result struct {
	Value float64
	// ErrorEstimate is nil when the sequence cannot estimate its error.
	ErrorEstimate *float64
	Samples       int
	Calibration   lsm.Report
}

// Engine prices one contract on one process.
type Engine struct {
	Process  process.Process
	Discount process.Discount
	Payoff   payoff.Payoff
	Exercise payoff.Exercise
	Options  Options

	// Control is required when Options.ControlVariate is set.
	Control ControlValuer
	Logger  *zap.Logger
	Metrics *metrics.Recorder
}

// Calculate validates the options, calibrates the exercise rule and samples
// prices. Every call rebuilds the grid, the calibration and the sampler, so
// results never depend on an earlier call.
func (e *Engine) Calculate(ctx context.Context) (Result, error) {
	start := time.Now()
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	style := e.Exercise.Style.String()

	res, err := e.calculate(ctx, logger)
	if err != nil {
		e.Metrics.Failure(failureReason(err))
		return res, err
	}

	est := math.NaN()
	if res.ErrorEstimate != nil {
		est = *res.ErrorEstimate
	}
	e.Metrics.Priced(style, time.Since(start), est)
	logger.Info("priced",
		zap.String("payoff", e.Payoff.Name()),
		zap.String("style", style),
		zap.Float64("value", res.Value),
		zap.Float64("errorEstimate", est),
		zap.Int("samples", res.Samples),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

func (e *Engine) calculate(ctx context.Context, logger *zap.Logger) (Result, error) {
	if err := e.Options.Validate(); err != nil {
		return Result{}, err
	}
	o := e.Options.withDefaults()
	if e.Process == nil || e.Discount == nil || e.Payoff == nil {
		return Result{}, errors.New("engine: process, discount and payoff are required")
	}
	if err := e.Exercise.Validate(); err != nil {
		return Result{}, err
	}
	if o.ControlVariate && e.Control == nil {
		return Result{}, configErr("controlVariate", "no closed-form value available for the control")
	}

	grid, err := e.timeGrid(o)
	if err != nil {
		return Result{}, err
	}
	exercise, err := lsm.ExerciseIndices(grid, e.Exercise)
	if err != nil {
		return Result{}, err
	}
	basis, err := lsm.NewBasis(o.Basis, o.PolynomialOrder, e.Process.Factors())
	if err != nil {
		return Result{}, configErr("polynomialOrder", "%v", err)
	}
	raw, err := lsm.NewRawPricer(lsm.Setup{
		Grid:     grid,
		Exercise: exercise,
		Payoff:   e.Payoff,
		Discount: e.Discount,
		Basis:    basis,
	})
	if err != nil {
		return Result{}, err
	}

	pricer, report, err := e.calibrate(ctx, o, grid, raw)
	if err != nil {
		return Result{}, err
	}
	logger.Info("calibrated",
		zap.Int("paths", report.Paths),
		zap.Int("exerciseDates", len(exercise)),
		zap.Int("skippedDates", report.Skipped()),
		zap.Float64("inSampleValue", report.InSampleValue))

	sampler, err := e.sampler(o, grid, pricer)
	if err != nil {
		return Result{}, err
	}
	driver := montecarlo.NewDriver(sampler, logger)

	var out montecarlo.Outcome
	if o.RequiredTolerance > 0 {
		out, err = driver.ValueWithTolerance(ctx, o.RequiredTolerance, o.maxSamples(), o.MinSamples)
	} else {
		out, err = driver.ValueWithSamples(ctx, o.RequiredSamples)
	}
	e.Metrics.Samples("pricing", out.Samples)
	if err != nil {
		return Result{Samples: out.Samples, Calibration: report}, err
	}

	res := Result{Value: out.Value, Samples: out.Samples, Calibration: report}
	if !math.IsNaN(out.ErrorEstimate) {
		est := out.ErrorEstimate
		res.ErrorEstimate = &est
	}
	return res, nil
}

// timeGrid contains every exercise time, with steps spread over maturity.
func (e *Engine) timeGrid(o Options) (*timegrid.Grid, error) {
	maturity := e.Exercise.Maturity()
	steps := o.TimeSteps
	if steps == 0 {
		steps = int(float64(o.TimeStepsPerYear) * maturity)
		if steps < 1 {
			steps = 1
		}
	}
	mandatory := e.Exercise.Times
	if e.Exercise.Style == payoff.American {
		mandatory = []float64{e.Exercise.Times[0], maturity}
	}
	return timegrid.NewWithMandatory(mandatory, steps)
}

func (e *Engine) calibrate(ctx context.Context, o Options, grid *timegrid.Grid, raw *lsm.RawPricer) (*lsm.CalibratedPricer, lsm.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, lsm.Report{}, err
	}
	seed := o.Seed
	if o.SeedCalibration != 0 {
		seed = o.SeedCalibration
	}
	gen, err := e.generator(o, grid, seed, calibrationStream)
	if err != nil {
		return nil, lsm.Report{}, err
	}
	paths := path.Draw(gen, o.CalibrationSamples, o.AntitheticCalibration)
	e.Metrics.Samples("calibration", len(paths))

	pricer, report, err := raw.Calibrate(paths)
	if err != nil {
		return nil, lsm.Report{}, fmt.Errorf("engine: calibration: %w", err)
	}
	e.Metrics.Calibration(e.Exercise.Style.String(), report.Skipped())
	return pricer, report, nil
}

func (e *Engine) generator(o Options, grid *timegrid.Grid, seed, stream uint64) (*path.Generator, error) {
	seq, err := rng.New(o.RNG, path.Dimension(e.Process, grid), seed, stream)
	if err != nil {
		return nil, err
	}
	return path.NewGenerator(e.Process, grid, seq)
}

func (e *Engine) sampler(o Options, grid *timegrid.Grid, pricer *lsm.CalibratedPricer) (montecarlo.Sampler, error) {
	var opts []montecarlo.Option
	if o.Antithetic {
		opts = append(opts, montecarlo.WithAntithetic())
	}
	if o.ControlVariate {
		value, err := e.Control.EuropeanValue(e.Exercise.Maturity())
		if err != nil {
			return nil, fmt.Errorf("engine: control variate value: %w", err)
		}
		control := lsm.EuropeanPricer{Payoff: e.Payoff, Discount: e.Discount}
		opts = append(opts, montecarlo.WithControlVariate(control, value, nil))
	}

	factory := func(stream uint64) (*montecarlo.Model, error) {
		gen, err := e.generator(o, grid, o.Seed, stream)
		if err != nil {
			return nil, err
		}
		return montecarlo.NewModel(gen, pricer, opts...)
	}
	if o.Workers == 1 {
		return factory(0)
	}
	return montecarlo.NewShardedModel(o.Workers, factory)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, montecarlo.ErrInvalidConfig):
		return "config"
	case errors.Is(err, montecarlo.ErrAccuracyNotReached):
		return "convergence"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "other"
	}
}
