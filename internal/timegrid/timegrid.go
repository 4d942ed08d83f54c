// Package timegrid holds the simulation times of one pricing run.
package timegrid

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrNonIncreasing is returned when grid times are not strictly increasing.
	ErrNonIncreasing = errors.New("timegrid: times must be strictly increasing")
	// ErrNegativeTime is returned for times before the valuation date.
	ErrNegativeTime = errors.New("timegrid: times must be non-negative")
	// ErrInvalidSteps is returned for a non-positive number of steps.
	ErrInvalidSteps = errors.New("timegrid: number of steps must be positive")
	// ErrEmpty is returned when no time beyond zero is given.
	ErrEmpty = errors.New("timegrid: at least one positive time is required")
)

// closeEnough is the tolerance used to match a requested time to a grid point.
const closeEnough = 1e-10

// Grid is an immutable, strictly increasing sequence of year fractions.
// Index 0 is always time zero.
type Grid struct {
	times     []float64
	dt        []float64
	mandatory []float64
}

// New builds a grid from explicit times. Time zero is prepended when missing.
func New(times []float64) (*Grid, error) {
	if len(times) == 0 {
		return nil, ErrEmpty
	}
	pts := make([]float64, 0, len(times)+1)
	pts = append(pts, 0)
	for i, t := range times {
		if t < 0 {
			return nil, fmt.Errorf("%w: times[%d]=%g", ErrNegativeTime, i, t)
		}
		if i == 0 && t == 0 {
			continue
		}
		if t <= pts[len(pts)-1] {
			return nil, fmt.Errorf("%w: times[%d]=%g after %g", ErrNonIncreasing, i, t, pts[len(pts)-1])
		}
		pts = append(pts, t)
	}
	if len(pts) < 2 {
		return nil, ErrEmpty
	}
	return build(pts, pts[1:]), nil
}

// NewUniform builds a grid of steps equal intervals ending at end.
func NewUniform(end float64, steps int) (*Grid, error) {
	if steps < 1 {
		return nil, ErrInvalidSteps
	}
	if end <= 0 {
		return nil, fmt.Errorf("%w: end=%g", ErrEmpty, end)
	}
	pts := make([]float64, steps+1)
	dt := end / float64(steps)
	for i := 1; i <= steps; i++ {
		pts[i] = dt * float64(i)
	}
	pts[steps] = end
	return build(pts, []float64{end}), nil
}

// NewWithMandatory builds a grid that contains every mandatory time, with
// intermediate points so that no step is much longer than last/steps.
// Every interval between consecutive mandatory times gets at least one step.
func NewWithMandatory(mandatory []float64, steps int) (*Grid, error) {
	if steps < 1 {
		return nil, ErrInvalidSteps
	}
	req := make([]float64, 0, len(mandatory))
	for i, t := range mandatory {
		if t < 0 {
			return nil, fmt.Errorf("%w: mandatory[%d]=%g", ErrNegativeTime, i, t)
		}
		if t > closeEnough {
			req = append(req, t)
		}
	}
	if len(req) == 0 {
		return nil, ErrEmpty
	}
	sort.Float64s(req)
	uniq := req[:1]
	for _, t := range req[1:] {
		if t-uniq[len(uniq)-1] > closeEnough {
			uniq = append(uniq, t)
		}
	}

	end := uniq[len(uniq)-1]
	dtMax := end / float64(steps)

	pts := []float64{0}
	begin := 0.0
	for _, stop := range uniq {
		n := int((stop-begin)/dtMax + 0.5)
		if n == 0 {
			n = 1
		}
		dt := (stop - begin) / float64(n)
		for k := 1; k < n; k++ {
			pts = append(pts, begin+float64(k)*dt)
		}
		pts = append(pts, stop)
		begin = stop
	}
	return build(pts, uniq), nil
}

func build(pts, mandatory []float64) *Grid {
	dt := make([]float64, len(pts)-1)
	for i := 1; i < len(pts); i++ {
		dt[i-1] = pts[i] - pts[i-1]
	}
	m := make([]float64, len(mandatory))
	copy(m, mandatory)
	return &Grid{times: pts, dt: dt, mandatory: m}
}

// Len is the number of grid points including time zero.
func (g *Grid) Len() int { return len(g.times) }

// Steps is the number of intervals, Len()-1.
func (g *Grid) Steps() int { return len(g.dt) }

// At returns the i-th time.
func (g *Grid) At(i int) float64 { return g.times[i] }

// Dt returns the length of the i-th interval, between points i and i+1.
func (g *Grid) Dt(i int) float64 { return g.dt[i] }

// Back returns the last time on the grid.
func (g *Grid) Back() float64 { return g.times[len(g.times)-1] }

// Times returns a copy of the grid points.
func (g *Grid) Times() []float64 {
	out := make([]float64, len(g.times))
	copy(out, g.times)
	return out
}

// Mandatory returns a copy of the times the grid was required to contain.
func (g *Grid) Mandatory() []float64 {
	out := make([]float64, len(g.mandatory))
	copy(out, g.mandatory)
	return out
}

// Index returns the grid index of t, and false when t is not a grid point.
func (g *Grid) Index(t float64) (int, bool) {
	i := g.ClosestIndex(t)
	if math.Abs(g.times[i]-t) > closeEnough*math.Max(1, math.Abs(t)) {
		return 0, false
	}
	return i, true
}

// ClosestIndex returns the index of the grid point nearest to t.
func (g *Grid) ClosestIndex(t float64) int {
	i := sort.SearchFloat64s(g.times, t)
	switch {
	case i == 0:
		return 0
	case i == len(g.times):
		return len(g.times) - 1
	}
	if t-g.times[i-1] < g.times[i]-t {
		return i - 1
	}
	return i
}
