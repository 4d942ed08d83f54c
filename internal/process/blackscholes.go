package process

import (
	"fmt"
	"time"
)

// BlackScholes is a single-factor geometric Brownian motion under the
// risk-neutral measure.
type BlackScholes struct {
	Reference  time.Time
	Spot       float64
	Rate       float64
	Dividend   float64
	Volatility float64
}

// NewBlackScholes validates the parameters and returns the process.
func NewBlackScholes(reference time.Time, spot, rate, dividend, volatility float64) (*BlackScholes, error) {
	if spot <= 0 {
		return nil, fmt.Errorf("%w: spot %g must be positive", ErrInvalidParameter, spot)
	}
	if volatility < 0 {
		return nil, fmt.Errorf("%w: volatility %g must be non-negative", ErrInvalidParameter, volatility)
	}
	return &BlackScholes{
		Reference:  reference,
		Spot:       spot,
		Rate:       rate,
		Dividend:   dividend,
		Volatility: volatility,
	}, nil
}

// Factors implements Process.
func (p *BlackScholes) Factors() int { return 1 }

// Initial implements Process.
func (p *BlackScholes) Initial() []float64 { return []float64{p.Spot} }

// Evolve implements Process with the exact lognormal transition.
func (p *BlackScholes) Evolve(_, dt float64, x, dw, out []float64) {
	out[0] = gbmStep(x[0], p.Rate-p.Dividend, p.Volatility, dt, dw[0])
}

// Time implements Process.
func (p *BlackScholes) Time(date time.Time) float64 { return YearFraction(p.Reference, date) }

// Forward is the risk-neutral expectation of the spot at t.
func (p *BlackScholes) Forward(t float64) float64 {
	return p.Spot * exp((p.Rate-p.Dividend)*t)
}

// StdDev is the standard deviation of the log spot at t.
func (p *BlackScholes) StdDev(t float64) float64 { return p.Volatility * sqrt(t) }

// DiscountCurve returns the flat curve implied by the process rate.
func (p *BlackScholes) DiscountCurve() FlatDiscount { return FlatDiscount{Rate: p.Rate} }
