// Package black is the closed-form Black formula, used as the known value
// of the European control variate.
package black

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"lsmc/internal/payoff"
	"lsmc/internal/process"
)

// ErrInvalidInput is returned for non-positive strikes or forwards, or a
// negative standard deviation or discount.
var ErrInvalidInput = errors.New("black: invalid input")

// Formula prices a European option on a lognormal forward.
func Formula(t payoff.OptionType, strike, forward, stdDev, discount float64) (float64, error) {
	if !(strike > 0) || !(forward > 0) || stdDev < 0 || discount < 0 {
		return 0, fmt.Errorf("%w: strike=%g forward=%g stdDev=%g discount=%g",
			ErrInvalidInput, strike, forward, stdDev, discount)
	}
	if stdDev == 0 {
		if t == payoff.Put {
			return discount * math.Max(strike-forward, 0), nil
		}
		return discount * math.Max(forward-strike, 0), nil
	}

	d1 := math.Log(forward/strike)/stdDev + 0.5*stdDev
	d2 := d1 - stdDev
	n := distuv.UnitNormal
	if t == payoff.Put {
		return discount * (strike*n.CDF(-d2) - forward*n.CDF(-d1)), nil
	}
	return discount * (forward*n.CDF(d1) - strike*n.CDF(d2)), nil
}

// Vanilla values a vanilla payoff on a Black-Scholes process.
type Vanilla struct {
	Process *process.BlackScholes
	Payoff  payoff.Vanilla
}

// EuropeanValue is the closed-form value of the payoff exercised at maturity.
func (v Vanilla) EuropeanValue(maturity float64) (float64, error) {
	return Formula(v.Payoff.Type, v.Payoff.Strike,
		v.Process.Forward(maturity), v.Process.StdDev(maturity),
		v.Process.DiscountCurve().Discount(maturity))
}
