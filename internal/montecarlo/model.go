// Package montecarlo couples path generation, path pricing and running
// statistics, and drives sampling until a target accuracy is met.
package montecarlo

import (
	"context"
	"errors"
	"fmt"

	"lsmc/internal/path"
	"lsmc/internal/stats"
)

// PathPricer maps one simulated path to one discounted value.
type PathPricer interface {
	Price(p *path.Path) float64
}

// PathPricerFunc adapts a function to PathPricer.
type PathPricerFunc func(p *path.Path) float64

// Price implements PathPricer.
func (f PathPricerFunc) Price(p *path.Path) float64 { return f(p) }

// Sampler is what the Driver grows: something that can draw more samples
// and report the statistics gathered so far.
type Sampler interface {
	AddSamples(ctx context.Context, n int) error
	Statistics() stats.Statistics
	AllowsErrorEstimate() bool
}

// ctxCheckEvery is how many samples are drawn between context checks.
const ctxCheckEvery = 4096

type controlVariate struct {
	pricer PathPricer
	value  float64
	gen    *path.Generator
}

// Model owns one generator, one pricer and the accumulator they feed.
// It is not safe for concurrent use; see ShardedModel.
type Model struct {
	gen        *path.Generator
	pricer     PathPricer
	antithetic bool
	cv         *controlVariate
	acc        stats.Statistics
}

// Option configures a Model.
type Option func(*Model)

// WithAntithetic prices every path together with its antithetic twin and
// records the pair average as one sample.
func WithAntithetic() Option {
	return func(m *Model) { m.antithetic = true }
}

// WithControlVariate subtracts pricer's deviation from its known value.
// When gen is nil the control pricer sees the same path as the main pricer.
func WithControlVariate(pricer PathPricer, value float64, gen *path.Generator) Option {
	return func(m *Model) { m.cv = &controlVariate{pricer: pricer, value: value, gen: gen} }
}

// NewModel builds a model with an empty accumulator.
func NewModel(gen *path.Generator, pricer PathPricer, opts ...Option) (*Model, error) {
	if gen == nil || pricer == nil {
		return nil, errors.New("montecarlo: generator and pricer are required")
	}
	m := &Model{gen: gen, pricer: pricer}
	for _, opt := range opts {
		opt(m)
	}
	if m.cv != nil && m.cv.pricer == nil {
		return nil, errors.New("montecarlo: control variate pricer is required")
	}
	return m, nil
}

// AddSamples draws n samples and folds them into the accumulator.
func (m *Model) AddSamples(ctx context.Context, n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative sample count %d", ErrInvalidConfig, n)
	}
	for j := 0; j < n; j++ {
		if j%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		s := m.gen.Next()
		price := m.price(s.Path, false)
		weight := s.Weight
		if m.antithetic {
			a := m.gen.Antithetic()
			price = (price + m.price(a.Path, true)) / 2
			weight = (weight + a.Weight) / 2
		}
		if err := m.acc.Add(price, weight); err != nil {
			return fmt.Errorf("montecarlo: sample %d: %w", m.acc.Samples()+1, err)
		}
	}
	return nil
}

func (m *Model) price(p *path.Path, antithetic bool) float64 {
	v := m.pricer.Price(p)
	if m.cv == nil {
		return v
	}
	cvPath := p
	if m.cv.gen != nil {
		if antithetic {
			cvPath = m.cv.gen.Antithetic().Path
		} else {
			cvPath = m.cv.gen.Next().Path
		}
	}
	return v - (m.cv.pricer.Price(cvPath) - m.cv.value)
}

// Statistics returns a snapshot of the accumulator.
func (m *Model) Statistics() stats.Statistics { return m.acc }

// AllowsErrorEstimate reports whether the generator's sequence supports a
// standard error.
func (m *Model) AllowsErrorEstimate() bool { return m.gen.AllowsErrorEstimate() }
