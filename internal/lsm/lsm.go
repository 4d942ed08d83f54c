// Package lsm implements Longstaff-Schwartz least-squares Monte Carlo for
// early exercise. A RawPricer is calibrated once on a batch of paths by a
// backward regression of realized cashflows on the state; the resulting
// CalibratedPricer only evaluates the frozen regressions while pricing.
package lsm

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"lsmc/internal/path"
	"lsmc/internal/payoff"
	"lsmc/internal/process"
	"lsmc/internal/timegrid"
)

var (
	// ErrNoPaths is returned when calibrating on an empty batch.
	ErrNoPaths = errors.New("lsm: no calibration paths")
	// ErrInvalidSetup is returned for an inconsistent pricer setup.
	ErrInvalidSetup = errors.New("lsm: invalid setup")
	// ErrPathShape is returned when a path does not match the pricer's grid or basis.
	ErrPathShape = errors.New("lsm: path does not match grid")
)

// Setup is what a pricer needs to know about the contract and the simulation.
type Setup struct {
	Grid *timegrid.Grid
	// Exercise holds grid indices where exercise is admissible, ascending,
	// never 0, the last one being the final grid point.
	Exercise []int
	Payoff   payoff.Payoff
	Discount process.Discount
	Basis    *Basis
	// Scale divides the state before the basis is evaluated. Zero means
	// Payoff.Scale(), or 1 when that is not positive.
	Scale float64
}

// RawPricer has not been calibrated and cannot price.
type RawPricer struct {
	setup Setup
	inv   float64
	// discount factor at each grid point
	dfs []float64
}

// NewRawPricer checks the setup.
func NewRawPricer(s Setup) (*RawPricer, error) {
	if s.Grid == nil || s.Payoff == nil || s.Discount == nil || s.Basis == nil {
		return nil, fmt.Errorf("%w: grid, payoff, discount and basis are required", ErrInvalidSetup)
	}
	if len(s.Exercise) == 0 {
		return nil, fmt.Errorf("%w: no exercise dates", ErrInvalidSetup)
	}
	prev := 0
	for _, idx := range s.Exercise {
		if idx <= prev || idx >= s.Grid.Len() {
			return nil, fmt.Errorf("%w: exercise indices %v", ErrInvalidSetup, s.Exercise)
		}
		prev = idx
	}
	if prev != s.Grid.Len()-1 {
		return nil, fmt.Errorf("%w: last exercise index %d is not the final grid point %d",
			ErrInvalidSetup, prev, s.Grid.Len()-1)
	}

	scale := s.Scale
	if scale == 0 {
		scale = s.Payoff.Scale()
	}
	if !(scale > 0) || math.IsInf(scale, 0) {
		scale = 1
	}

	dfs := make([]float64, s.Grid.Len())
	for i := range dfs {
		dfs[i] = s.Discount.Discount(s.Grid.At(i))
	}
	s.Exercise = append([]int(nil), s.Exercise...)
	return &RawPricer{setup: s, inv: 1 / scale, dfs: dfs}, nil
}

// DateReport describes the regression at one exercise date.
type DateReport struct {
	Index      int
	Time       float64
	InTheMoney int
	Exercised  int
	// Skipped is set when too few paths were in the money or the
	// regression was ill-conditioned; exercise is never taken there.
	Skipped bool
}

// Report summarizes a calibration pass.
type Report struct {
	Paths int
	// Dates runs latest to earliest, terminal date excluded.
	Dates []DateReport
	// InSampleValue is the mean discounted cashflow on the calibration paths.
	InSampleValue float64
}

// Skipped counts dates where no exercise rule was fitted.
func (r Report) Skipped() int {
	n := 0
	for _, d := range r.Dates {
		if d.Skipped {
			n++
		}
	}
	return n
}

// Calibrate runs the backward regression over paths and freezes the result.
func (r *RawPricer) Calibrate(paths path.PathSet) (*CalibratedPricer, Report, error) {
	if len(paths) == 0 {
		return nil, Report{}, ErrNoPaths
	}
	s := r.setup
	for _, p := range paths {
		if p.Len() != s.Grid.Len() || p.Factors() < s.Basis.Factors() {
			return nil, Report{}, fmt.Errorf("%w: %d points, %d factors", ErrPathShape, p.Len(), p.Factors())
		}
	}

	n := len(paths)
	last := len(s.Exercise) - 1
	ev := s.Basis.evaluator()
	var state, scaled []float64

	// realized cashflow of each path and the grid index it is paid at
	cash := make([]float64, n)
	paid := make([]int, n)
	for j, p := range paths {
		state = p.StateAt(s.Exercise[last], state)
		cash[j] = s.Payoff.Value(state)
		paid[j] = s.Exercise[last]
	}

	size := s.Basis.Size()
	coeffs := make([][]float64, 0, last)
	rep := Report{Paths: n, Dates: make([]DateReport, 0, last)}
	itm := make([]int, 0, n)
	exercise := make([]float64, 0, n)
	design := make([]float64, 0, n*size)
	target := make([]float64, 0, n)

	for k := last - 1; k >= 0; k-- {
		idx := s.Exercise[k]
		dr := DateReport{Index: idx, Time: s.Grid.At(idx)}

		itm, exercise, design, target = itm[:0], exercise[:0], design[:0], target[:0]
		for j, p := range paths {
			state = p.StateAt(idx, state)
			v := s.Payoff.Value(state)
			if !(v > 0) {
				continue
			}
			scaled = r.scale(state, scaled)
			itm = append(itm, j)
			exercise = append(exercise, v)
			design = append(design, ev.eval(scaled)...)
			target = append(target, cash[j]*r.dfs[paid[j]]/r.dfs[idx])
		}
		dr.InTheMoney = len(itm)

		beta, ok := regress(design, target, len(itm), size)
		if !ok {
			dr.Skipped = true
			coeffs = append(coeffs, nil)
			rep.Dates = append(rep.Dates, dr)
			continue
		}

		for i, j := range itm {
			cont := floats.Dot(beta, design[i*size:(i+1)*size])
			if exercise[i] >= cont {
				cash[j] = exercise[i]
				paid[j] = idx
				dr.Exercised++
			}
		}
		coeffs = append(coeffs, beta)
		rep.Dates = append(rep.Dates, dr)
	}

	var sum float64
	for j := range cash {
		sum += cash[j] * r.dfs[paid[j]]
	}
	rep.InSampleValue = sum / float64(n)

	return &CalibratedPricer{raw: r, coeffs: coeffs}, rep, nil
}

// regress fits target on the rows of design by least squares. It reports
// false when there are too few rows or the fit is ill-conditioned.
func regress(design, target []float64, rows, cols int) ([]float64, bool) {
	if rows <= cols {
		return nil, false
	}
	a := mat.NewDense(rows, cols, append([]float64(nil), design...))
	y := mat.NewVecDense(rows, append([]float64(nil), target...))

	var coefficients mat.VecDense
	if err := coefficients.SolveVec(a, y); err != nil {
		// mat.Condition signals a rank deficient or near singular design
		return nil, false
	}
	beta := make([]float64, cols)
	for i := range beta {
		beta[i] = coefficients.AtVec(i)
		if math.IsNaN(beta[i]) || math.IsInf(beta[i], 0) {
			return nil, false
		}
	}
	return beta, true
}

func (r *RawPricer) scale(state, dst []float64) []float64 {
	nf := r.setup.Basis.Factors()
	if cap(dst) < nf {
		dst = make([]float64, nf)
	}
	dst = dst[:nf]
	for f := range dst {
		dst[f] = state[f] * r.inv
	}
	return dst
}

// CalibratedPricer prices paths with frozen exercise regressions. It is
// safe for concurrent use.
type CalibratedPricer struct {
	raw *RawPricer
	// latest exercise date first; nil where the date was skipped
	coeffs [][]float64
}

// Coefficients returns a copy of the fitted coefficients, latest exercise
// date first. Skipped dates are nil.
func (c *CalibratedPricer) Coefficients() [][]float64 {
	out := make([][]float64, len(c.coeffs))
	for i, b := range c.coeffs {
		if b != nil {
			out[i] = append([]float64(nil), b...)
		}
	}
	return out
}

// Price walks the exercise dates forward and stops at the first date where
// immediate exercise is worth at least the fitted continuation value.
func (c *CalibratedPricer) Price(p *path.Path) float64 {
	s := c.raw.setup
	last := len(s.Exercise) - 1
	ev := s.Basis.evaluator()
	var state, scaled []float64

	for k := 0; k < last; k++ {
		beta := c.coeffs[last-1-k]
		if beta == nil {
			continue
		}
		idx := s.Exercise[k]
		state = p.StateAt(idx, state)
		v := s.Payoff.Value(state)
		if !(v > 0) {
			continue
		}
		scaled = c.raw.scale(state, scaled)
		if v >= floats.Dot(beta, ev.eval(scaled)) {
			return v * c.raw.dfs[idx]
		}
	}

	idx := s.Exercise[last]
	state = p.StateAt(idx, state)
	return s.Payoff.Value(state) * c.raw.dfs[idx]
}

// EuropeanPricer pays the terminal payoff, discounted.
type EuropeanPricer struct {
	Payoff   payoff.Payoff
	Discount process.Discount
}

// Price implements montecarlo.PathPricer.
func (e EuropeanPricer) Price(p *path.Path) float64 {
	last := p.Len() - 1
	return e.Payoff.Value(p.StateAt(last, nil)) * e.Discount.Discount(p.Grid().At(last))
}

// ExerciseIndices maps an exercise schedule onto grid indices. Time zero is
// never an exercise date.
func ExerciseIndices(grid *timegrid.Grid, ex payoff.Exercise) ([]int, error) {
	if err := ex.Validate(); err != nil {
		return nil, err
	}
	end, ok := grid.Index(ex.Maturity())
	if !ok || end != grid.Len()-1 {
		return nil, fmt.Errorf("%w: maturity %g is not the last grid time %g", ErrInvalidSetup, ex.Maturity(), grid.Back())
	}

	var out []int
	switch ex.Style {
	case payoff.American:
		earliest := ex.Times[0]
		for i := 1; i < grid.Len(); i++ {
			if grid.At(i) >= earliest-timeTolerance {
				out = append(out, i)
			}
		}
	case payoff.Bermudan:
		for _, t := range ex.Times {
			if t <= 0 {
				continue
			}
			idx, ok := grid.Index(t)
			if !ok {
				return nil, fmt.Errorf("%w: exercise time %g is not on the grid", ErrInvalidSetup, t)
			}
			out = append(out, idx)
		}
	default:
		out = []int{end}
	}
	return out, nil
}

const timeTolerance = 1e-10
