package montecarlo

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned for inconsistent sampling parameters.
	ErrInvalidConfig = errors.New("montecarlo: invalid configuration")
	// ErrAccuracyNotReached is wrapped by ConvergenceError.
	ErrAccuracyNotReached = errors.New("montecarlo: required accuracy not reached")
	// ErrNoErrorEstimate is returned when a tolerance is requested from a
	// sequence that cannot estimate its error.
	ErrNoErrorEstimate = errors.New("montecarlo: sequence does not allow an error estimate")
)

// ConvergenceError reports a sample budget exhausted before the error
// estimate fell to the tolerance.
type ConvergenceError struct {
	ErrorEstimate float64
	Tolerance     float64
	Samples       int
	MaxSamples    int
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("max number of samples (%d) reached after %d samples, while error (%g) is still above tolerance (%g)",
		e.MaxSamples, e.Samples, e.ErrorEstimate, e.Tolerance)
}

// Unwrap lets errors.Is match ErrAccuracyNotReached.
func (e *ConvergenceError) Unwrap() error { return ErrAccuracyNotReached }
