package payoff

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// BasketKind selects how factor values are combined.
type BasketKind int

const (
	// Average is the weighted sum of the factors.
	Average BasketKind = iota
	// MaxOf is the largest factor.
	MaxOf
	// MinOf is the smallest factor.
	MinOf
)

func (k BasketKind) String() string {
	switch k {
	case MaxOf:
		return "max"
	case MinOf:
		return "min"
	default:
		return "average"
	}
}

// ParseBasketKind reads "average", "max" or "min".
func ParseBasketKind(s string) (BasketKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "average", "avg", "":
		return Average, nil
	case "max":
		return MaxOf, nil
	case "min":
		return MinOf, nil
	}
	return 0, fmt.Errorf("%w: unknown basket kind %q", ErrInvalidPayoff, s)
}

// Basket is an option on a combination of all factors.
type Basket struct {
	Type    OptionType
	Kind    BasketKind
	Strike  float64
	Weights []float64
}

// NewBasket validates the basket. Weights are only used by Average.
func NewBasket(t OptionType, kind BasketKind, strike float64, weights []float64) (Basket, error) {
	if !(strike > 0) {
		return Basket{}, fmt.Errorf("%w: strike %g must be positive", ErrInvalidPayoff, strike)
	}
	if kind == Average && len(weights) == 0 {
		return Basket{}, fmt.Errorf("%w: average basket needs weights", ErrInvalidPayoff)
	}
	return Basket{Type: t, Kind: kind, Strike: strike, Weights: append([]float64(nil), weights...)}, nil
}

// Value implements Payoff.
func (b Basket) Value(state []float64) float64 {
	var u float64
	switch b.Kind {
	case MaxOf:
		u = floats.Max(state)
	case MinOf:
		u = floats.Min(state)
	default:
		u = floats.Dot(b.Weights, state[:len(b.Weights)])
	}
	return intrinsic(b.Type, u, b.Strike)
}

// Scale implements Payoff.
func (b Basket) Scale() float64 { return b.Strike }

// Name implements Payoff.
func (b Basket) Name() string { return fmt.Sprintf("%s basket %s K=%g", b.Kind, b.Type, b.Strike) }
