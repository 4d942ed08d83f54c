// Package stats accumulates sample moments online, without keeping samples.
package stats

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

var (
	// ErrInvalidSample is returned when a NaN or infinite value, or a
	// non-positive weight, is added. It signals a defect in the caller.
	ErrInvalidSample = errors.New("stats: invalid sample")
	// ErrInvariant is returned by Check when the accumulator is corrupted.
	ErrInvariant = errors.New("stats: numerical invariant violated")
)

// Statistics is a weighted running accumulator of mean and variance
// (West's weighted form of Welford's update). The zero value is empty and
// ready to use. Copies are independent snapshots.
type Statistics struct {
	n    int
	wSum float64
	mean float64
	m2   float64
	min  float64
	max  float64
}

// Add folds one weighted sample into the accumulator.
func (s *Statistics) Add(value, weight float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: value %g", ErrInvalidSample, value)
	}
	if !(weight > 0) || math.IsInf(weight, 0) {
		return fmt.Errorf("%w: weight %g", ErrInvalidSample, weight)
	}
	if s.n == 0 {
		s.min, s.max = value, value
	} else {
		s.min = math.Min(s.min, value)
		s.max = math.Max(s.max, value)
	}
	s.n++
	s.wSum += weight
	delta := value - s.mean
	s.mean += delta * weight / s.wSum
	s.m2 += weight * delta * (value - s.mean)
	return nil
}

// Samples is the number of samples added.
func (s Statistics) Samples() int { return s.n }

// WeightSum is the sum of sample weights.
func (s Statistics) WeightSum() float64 { return s.wSum }

// Mean is the weighted sample mean, zero when empty.
func (s Statistics) Mean() float64 { return s.mean }

// Variance is the unbiased weighted sample variance, or NaN below two samples.
func (s Statistics) Variance() float64 {
	if s.n < 2 {
		return math.NaN()
	}
	n := float64(s.n)
	return s.m2 / s.wSum * n / (n - 1)
}

// StdDev is the square root of Variance.
func (s Statistics) StdDev() float64 { return math.Sqrt(s.Variance()) }

// ErrorEstimate is the standard error of the mean, StdDev/√n. It is +Inf
// below two samples, so that no tolerance is ever met without data.
func (s Statistics) ErrorEstimate() float64 {
	if s.n < 2 {
		return math.Inf(1)
	}
	return stat.StdErr(s.StdDev(), float64(s.n))
}

// Min is the smallest value added.
func (s Statistics) Min() float64 { return s.min }

// Max is the largest value added.
func (s Statistics) Max() float64 { return s.max }

// Check verifies the accumulator invariants.
func (s Statistics) Check() error {
	switch {
	case s.n < 0:
		return fmt.Errorf("%w: negative sample count %d", ErrInvariant, s.n)
	case math.IsNaN(s.mean) || math.IsInf(s.mean, 0):
		return fmt.Errorf("%w: mean %g", ErrInvariant, s.mean)
	case math.IsNaN(s.m2) || s.m2 < -1e-9*math.Max(1, s.wSum*s.mean*s.mean):
		return fmt.Errorf("%w: sum of squared deviations %g", ErrInvariant, s.m2)
	}
	return nil
}

// Merge combines two accumulators as if every sample of both had been added
// to one. It is associative and commutative, so per-worker shards can be
// folded in any order.
func Merge(a, b Statistics) Statistics {
	switch {
	case a.n == 0:
		return b
	case b.n == 0:
		return a
	}
	w := a.wSum + b.wSum
	delta := b.mean - a.mean
	return Statistics{
		n:    a.n + b.n,
		wSum: w,
		mean: a.mean + delta*b.wSum/w,
		m2:   a.m2 + b.m2 + delta*delta*a.wSum*b.wSum/w,
		min:  math.Min(a.min, b.min),
		max:  math.Max(a.max, b.max),
	}
}
