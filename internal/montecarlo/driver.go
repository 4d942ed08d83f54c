package montecarlo

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
)

// DefaultMinSamples is the seeding floor drawn before any convergence test.
const DefaultMinSamples = 1023

// growthDamping scales the predicted batch so the driver undershoots rather
// than overshoots the sample count implied by err ∝ 1/√n.
const growthDamping = 0.8

// State is a phase of the convergence loop.
type State int

const (
	// Seeding draws up to the minimum sample floor.
	Seeding State = iota
	// Growing adds batches sized from the current error shortfall.
	Growing
	// Converged means the error estimate is at or below tolerance.
	Converged
	// Exhausted means the sample budget ran out first.
	Exhausted
)

func (s State) String() string {
	switch s {
	case Seeding:
		return "seeding"
	case Growing:
		return "growing"
	case Converged:
		return "converged"
	case Exhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Outcome summarises one driver run.
type Outcome struct {
	Value float64
	// ErrorEstimate is NaN when the sampler cannot estimate its error.
	ErrorEstimate float64
	Samples       int
	Batches       int
	State         State
}

// Driver grows a sampler's sample count. It is the sole owner of the
// sampler's accumulator for the duration of a run.
type Driver struct {
	sampler Sampler
	logger  *zap.Logger
}

// NewDriver wraps a sampler. A nil logger discards output.
func NewDriver(s Sampler, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{sampler: s, logger: logger}
}

// ValueWithTolerance samples until the error estimate is at or below
// tolerance, drawing at least minSamples and never more than maxSamples.
// A minSamples of zero selects DefaultMinSamples.
func (d *Driver) ValueWithTolerance(ctx context.Context, tolerance float64, maxSamples, minSamples int) (Outcome, error) {
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}
	switch {
	case !(tolerance > 0):
		return Outcome{}, fmt.Errorf("%w: tolerance %g must be positive", ErrInvalidConfig, tolerance)
	case maxSamples < minSamples:
		return Outcome{}, fmt.Errorf("%w: max samples %d below the minimum of %d", ErrInvalidConfig, maxSamples, minSamples)
	case !d.sampler.AllowsErrorEstimate():
		return Outcome{}, ErrNoErrorEstimate
	}

	out := Outcome{State: Seeding}
	n := d.sampler.Statistics().Samples()
	if n < minSamples {
		if err := d.add(ctx, &out, minSamples-n); err != nil {
			return out, err
		}
		n = minSamples
	}

	errEst := d.sampler.Statistics().ErrorEstimate()
	for errEst > tolerance {
		if n >= maxSamples {
			out.State = Exhausted
			out.ErrorEstimate = errEst
			cerr := &ConvergenceError{ErrorEstimate: errEst, Tolerance: tolerance, Samples: n, MaxSamples: maxSamples}
			d.logger.Warn("sample budget exhausted",
				zap.Int("samples", n), zap.Float64("error", errEst), zap.Float64("tolerance", tolerance))
			return out, cerr
		}
		if out.State != Growing {
			d.logger.Debug("state transition", zap.Stringer("from", out.State), zap.Stringer("to", Growing))
			out.State = Growing
		}

		order := errEst * errEst / tolerance / tolerance
		next := math.Max(growthDamping*float64(n)*order-float64(n), float64(minSamples))
		next = math.Min(next, float64(maxSamples-n))
		batch := int(next)

		d.logger.Debug("growing", zap.Int("samples", n), zap.Int("batch", batch),
			zap.Float64("error", errEst), zap.Float64("order", order))
		if err := d.add(ctx, &out, batch); err != nil {
			return out, err
		}
		n += batch
		errEst = d.sampler.Statistics().ErrorEstimate()
	}

	s := d.sampler.Statistics()
	out.State = Converged
	out.Value = s.Mean()
	out.ErrorEstimate = errEst
	out.Samples = s.Samples()
	d.logger.Debug("converged", zap.Int("samples", out.Samples), zap.Int("batches", out.Batches),
		zap.Float64("error", errEst))
	return out, nil
}

// ValueWithSamples draws exactly as many samples as needed to reach the
// requested total, with no convergence test.
func (d *Driver) ValueWithSamples(ctx context.Context, samples int) (Outcome, error) {
	n := d.sampler.Statistics().Samples()
	if samples < n {
		return Outcome{}, fmt.Errorf("%w: %d samples already drawn, %d requested", ErrInvalidConfig, n, samples)
	}
	out := Outcome{State: Seeding}
	if err := d.add(ctx, &out, samples-n); err != nil {
		return out, err
	}
	s := d.sampler.Statistics()
	out.State = Converged
	out.Value = s.Mean()
	out.Samples = s.Samples()
	out.ErrorEstimate = math.NaN()
	// the standard error needs at least two samples
	if d.sampler.AllowsErrorEstimate() && out.Samples >= 2 {
		out.ErrorEstimate = s.ErrorEstimate()
	}
	return out, nil
}

func (d *Driver) add(ctx context.Context, out *Outcome, n int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	if err := d.sampler.AddSamples(ctx, n); err != nil {
		return err
	}
	out.Batches++
	s := d.sampler.Statistics()
	out.Samples = s.Samples()
	return s.Check()
}
