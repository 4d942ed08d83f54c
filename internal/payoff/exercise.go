package payoff

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrInvalidExercise is returned for malformed exercise schedules.
var ErrInvalidExercise = errors.New("payoff: invalid exercise")

// Style is the exercise style of a contract.
type Style int

const (
	// European allows exercise at maturity only.
	European Style = iota
	// Bermudan allows exercise on a discrete set of dates.
	Bermudan
	// American allows exercise at any time up to maturity.
	American
)

func (s Style) String() string {
	switch s {
	case Bermudan:
		return "bermudan"
	case American:
		return "american"
	default:
		return "european"
	}
}

// ParseStyle reads "european", "bermudan" or "american".
func ParseStyle(s string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "european", "":
		return European, nil
	case "bermudan":
		return Bermudan, nil
	case "american":
		return American, nil
	}
	return 0, fmt.Errorf("%w: unknown style %q", ErrInvalidExercise, s)
}

// Exercise lists admissible exercise times as year fractions. For American
// exercise Times holds the earliest exercise time (possibly zero) and the
// maturity; every simulation time in between is admissible.
type Exercise struct {
	Style Style
	Times []float64
}

// NewEuropean allows exercise at maturity only.
func NewEuropean(maturity float64) Exercise {
	return Exercise{Style: European, Times: []float64{maturity}}
}

// NewAmerican allows exercise on (earliest, maturity].
func NewAmerican(earliest, maturity float64) Exercise {
	return Exercise{Style: American, Times: []float64{earliest, maturity}}
}

// NewBermudan allows exercise on the given times.
func NewBermudan(times []float64) Exercise {
	t := append([]float64(nil), times...)
	sort.Float64s(t)
	return Exercise{Style: Bermudan, Times: t}
}

// FromDates maps exercise dates to times through a process clock.
func FromDates(style Style, clock interface{ Time(time.Time) float64 }, dates []time.Time) Exercise {
	times := make([]float64, len(dates))
	for i, d := range dates {
		times[i] = clock.Time(d)
	}
	switch style {
	case American:
		if len(times) == 1 {
			return NewAmerican(0, times[0])
		}
		return NewAmerican(times[0], times[len(times)-1])
	case Bermudan:
		return NewBermudan(times)
	default:
		return NewEuropean(times[len(times)-1])
	}
}

// Maturity is the last admissible exercise time.
func (e Exercise) Maturity() float64 { return e.Times[len(e.Times)-1] }

// Validate checks the schedule shape.
func (e Exercise) Validate() error {
	if len(e.Times) == 0 {
		return fmt.Errorf("%w: no exercise times", ErrInvalidExercise)
	}
	switch e.Style {
	case European:
		if len(e.Times) != 1 {
			return fmt.Errorf("%w: european exercise takes one time, got %d", ErrInvalidExercise, len(e.Times))
		}
	case American:
		if len(e.Times) != 2 || e.Times[0] < 0 || e.Times[0] >= e.Times[1] {
			return fmt.Errorf("%w: american exercise needs 0 <= earliest < maturity, got %v", ErrInvalidExercise, e.Times)
		}
	}
	if e.Maturity() <= 0 {
		return fmt.Errorf("%w: maturity %g must be in the future", ErrInvalidExercise, e.Maturity())
	}
	for i := 1; i < len(e.Times); i++ {
		if e.Times[i] <= e.Times[i-1] && e.Style == Bermudan {
			return fmt.Errorf("%w: repeated bermudan time %g", ErrInvalidExercise, e.Times[i])
		}
	}
	return nil
}
