// Package payoff describes what a contract pays and when it may be exercised.
package payoff

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidPayoff is returned for malformed payoff parameters.
var ErrInvalidPayoff = errors.New("payoff: invalid payoff")

// Payoff is the intrinsic value of exercising in a given state.
type Payoff interface {
	// Value is the undiscounted cash received on exercise in state.
	Value(state []float64) float64
	// Scale is a typical magnitude of the underlying, used to normalise
	// regression inputs.
	Scale() float64
	Name() string
}

// OptionType is call or put.
type OptionType int

const (
	// Call pays max(S-K, 0).
	Call OptionType = iota
	// Put pays max(K-S, 0).
	Put
)

func (t OptionType) String() string {
	if t == Put {
		return "put"
	}
	return "call"
}

// ParseOptionType reads "call" or "put", case-insensitively.
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return Call, nil
	case "put", "p":
		return Put, nil
	}
	return 0, fmt.Errorf("%w: unknown option type %q", ErrInvalidPayoff, s)
}

func intrinsic(t OptionType, underlying, strike float64) float64 {
	if t == Put {
		return math.Max(strike-underlying, 0)
	}
	return math.Max(underlying-strike, 0)
}

// Vanilla is a plain option on the first factor.
type Vanilla struct {
	Type   OptionType
	Strike float64
}

// NewVanilla validates the strike.
func NewVanilla(t OptionType, strike float64) (Vanilla, error) {
	if !(strike > 0) {
		return Vanilla{}, fmt.Errorf("%w: strike %g must be positive", ErrInvalidPayoff, strike)
	}
	return Vanilla{Type: t, Strike: strike}, nil
}

// Value implements Payoff.
func (v Vanilla) Value(state []float64) float64 { return intrinsic(v.Type, state[0], v.Strike) }

// Scale implements Payoff.
func (v Vanilla) Scale() float64 { return v.Strike }

// Name implements Payoff.
func (v Vanilla) Name() string { return fmt.Sprintf("vanilla %s K=%g", v.Type, v.Strike) }
