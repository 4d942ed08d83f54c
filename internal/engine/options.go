package engine

import (
	"errors"
	"fmt"
	"math"

	"lsmc/internal/lsm"
	"lsmc/internal/montecarlo"
	"lsmc/internal/rng"
)

const (
	// DefaultCalibrationSamples is the calibration batch size.
	DefaultCalibrationSamples = 2048
	// DefaultPolynomialOrder is the per-factor degree of the regression basis.
	DefaultPolynomialOrder = 2
)

// ErrInvalidConfig is wrapped by every ConfigError.
var ErrInvalidConfig = errors.New("engine: invalid configuration")

// ConfigError names the offending option.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("engine: invalid option %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidConfig.
func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

func configErr(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Options configures a pricing run. Zero values select defaults where one
// exists.
type Options struct {
	// Exactly one of TimeSteps and TimeStepsPerYear must be set.
	TimeSteps        int
	TimeStepsPerYear int

	// Exactly one of RequiredSamples and RequiredTolerance must be set.
	RequiredSamples   int
	RequiredTolerance float64
	// MaxSamples caps tolerance-driven sampling; zero means no cap.
	MaxSamples int
	// MinSamples is the seeding floor; zero means montecarlo.DefaultMinSamples.
	MinSamples int

	Antithetic     bool
	ControlVariate bool
	Seed           uint64

	CalibrationSamples    int
	AntitheticCalibration bool
	// SeedCalibration seeds the calibration paths; zero means Seed. Either
	// way they come from a stream no pricing worker uses.
	SeedCalibration uint64

	// PolynomialOrder is the per-factor basis order. Zero selects
	// DefaultPolynomialOrder; the smallest order that can be requested is 1.
	PolynomialOrder int
	Basis           lsm.Family
	Workers         int
	RNG             rng.Kind
}

// withDefaults fills unset fields.
func (o Options) withDefaults() Options {
	if o.MinSamples == 0 {
		o.MinSamples = montecarlo.DefaultMinSamples
	}
	if o.CalibrationSamples == 0 {
		o.CalibrationSamples = DefaultCalibrationSamples
	}
	if o.PolynomialOrder == 0 {
		o.PolynomialOrder = DefaultPolynomialOrder
	}
	if o.Basis == "" {
		o.Basis = lsm.Monomial
	}
	if o.Workers == 0 {
		o.Workers = 1
	}
	if o.RNG == "" {
		o.RNG = rng.PseudoRandom
	}
	return o
}

// maxSamples is the effective cap.
func (o Options) maxSamples() int {
	if o.MaxSamples == 0 {
		return math.MaxInt
	}
	return o.MaxSamples
}

// Validate reports configuration errors before any path is simulated.
func (o Options) Validate() error {
	o = o.withDefaults()
	switch {
	case o.TimeSteps < 0:
		return configErr("timeSteps", "%d must be positive", o.TimeSteps)
	case o.TimeStepsPerYear < 0:
		return configErr("timeStepsPerYear", "%d must be positive", o.TimeStepsPerYear)
	case o.TimeSteps == 0 && o.TimeStepsPerYear == 0:
		return configErr("timeSteps", "one of timeSteps and timeStepsPerYear is required")
	case o.TimeSteps > 0 && o.TimeStepsPerYear > 0:
		return configErr("timeSteps", "timeSteps and timeStepsPerYear are mutually exclusive")
	}

	switch {
	case o.RequiredSamples < 0:
		return configErr("requiredSamples", "%d must be positive", o.RequiredSamples)
	case o.RequiredTolerance < 0 || math.IsNaN(o.RequiredTolerance) || math.IsInf(o.RequiredTolerance, 0):
		return configErr("requiredTolerance", "%g must be positive", o.RequiredTolerance)
	case o.RequiredSamples == 0 && o.RequiredTolerance == 0:
		return configErr("requiredSamples", "one of requiredSamples and requiredTolerance is required")
	case o.RequiredSamples > 0 && o.RequiredTolerance > 0:
		return configErr("requiredSamples", "requiredSamples and requiredTolerance are mutually exclusive")
	}

	switch {
	case o.MaxSamples < 0:
		return configErr("maxSamples", "%d must be positive", o.MaxSamples)
	case o.MinSamples < 1:
		return configErr("minSamples", "%d must be positive", o.MinSamples)
	case o.MaxSamples > 0 && o.MaxSamples < o.MinSamples:
		return configErr("maxSamples", "%d is below the seeding floor of %d", o.MaxSamples, o.MinSamples)
	case o.MaxSamples > 0 && o.RequiredSamples > o.MaxSamples:
		return configErr("maxSamples", "%d is below requiredSamples %d", o.MaxSamples, o.RequiredSamples)
	}

	switch {
	case o.CalibrationSamples < 1:
		return configErr("calibrationSamples", "%d must be positive", o.CalibrationSamples)
	case o.PolynomialOrder < 0:
		return configErr("polynomialOrder", "%d must not be negative", o.PolynomialOrder)
	case o.Workers < 1:
		return configErr("workers", "%d must be positive", o.Workers)
	}

	if _, err := lsm.ParseFamily(string(o.Basis)); err != nil {
		return configErr("basis", "%v", err)
	}
	switch o.RNG {
	case rng.PseudoRandom:
	case rng.LowDiscrepancy:
		if o.RequiredTolerance > 0 {
			return configErr("requiredTolerance", "the %s sequence does not allow an error estimate", o.RNG)
		}
	default:
		return configErr("rng", "unknown sequence %q", o.RNG)
	}
	return nil
}
