// Package process defines the stochastic dynamics the simulation evolves,
// and the discounting used to bring cashflows back to the valuation date.
package process

import (
	"errors"
	"math"
	"time"
)

var (
	// ErrInvalidParameter is returned for out-of-range model parameters.
	ErrInvalidParameter = errors.New("process: invalid parameter")
	// ErrCorrelation is returned when the correlation matrix cannot be factorized.
	ErrCorrelation = errors.New("process: correlation matrix is not positive definite")
)

// daysPerYear is the ACT/365F denominator.
const daysPerYear = 365.0

// Process evolves a state vector across one time step given Gaussian draws.
type Process interface {
	// Factors is the number of state variables, and of draws per step.
	Factors() int
	// Initial returns the state at time zero.
	Initial() []float64
	// Evolve writes into out the state at t+dt given state x at t and the
	// independent standard normal draws dw (len Factors).
	Evolve(t, dt float64, x, dw, out []float64)
	// Time maps a calendar date to a year fraction from the valuation date.
	Time(date time.Time) float64
}

// Discount maps a time to a discount factor.
type Discount interface {
	Discount(t float64) float64
}

// FlatDiscount discounts at a constant continuously compounded rate.
type FlatDiscount struct {
	Rate float64
}

// Discount implements Discount.
func (f FlatDiscount) Discount(t float64) float64 { return exp(-f.Rate * t) }

// YearFraction is the ACT/365F year fraction between two dates.
func YearFraction(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24 / daysPerYear
}

// lognormal step of one asset
func gbmStep(x, drift, vol, dt, z float64) float64 {
	return x * exp((drift-0.5*sqr(vol))*dt+vol*sqrt(dt)*z)
}

// helper functions

// square the input
func sqr(x float64) float64 { return x * x }

// local function aliases
var exp = math.Exp
var sqrt = math.Sqrt
