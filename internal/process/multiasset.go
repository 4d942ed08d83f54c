package process

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"
)

// MultiAsset is a set of correlated geometric Brownian motions sharing one
// risk-free rate. Independent draws are correlated through the lower Cholesky
// factor of the correlation matrix.
type MultiAsset struct {
	Reference time.Time
	Rate      float64

	spots     []float64
	vols      []float64
	dividends []float64
	lower     [][]float64
}

// NewMultiAsset builds the process. dividends may be nil.
func NewMultiAsset(reference time.Time, spots, vols, dividends []float64, rate float64, corr mat.Symmetric) (*MultiAsset, error) {
	n := len(spots)
	if n == 0 {
		return nil, fmt.Errorf("%w: no assets", ErrInvalidParameter)
	}
	if len(vols) != n {
		return nil, fmt.Errorf("%w: %d volatilities for %d assets", ErrInvalidParameter, len(vols), n)
	}
	if dividends == nil {
		dividends = make([]float64, n)
	}
	if len(dividends) != n {
		return nil, fmt.Errorf("%w: %d dividends for %d assets", ErrInvalidParameter, len(dividends), n)
	}
	if corr == nil || corr.SymmetricDim() != n {
		return nil, fmt.Errorf("%w: correlation must be %dx%d", ErrInvalidParameter, n, n)
	}
	for i := 0; i < n; i++ {
		if spots[i] <= 0 {
			return nil, fmt.Errorf("%w: spot[%d]=%g must be positive", ErrInvalidParameter, i, spots[i])
		}
		if vols[i] < 0 {
			return nil, fmt.Errorf("%w: vol[%d]=%g must be non-negative", ErrInvalidParameter, i, vols[i])
		}
		if corr.At(i, i) != 1 {
			return nil, fmt.Errorf("%w: correlation diagonal [%d]=%g", ErrInvalidParameter, i, corr.At(i, i))
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(corr); !ok {
		return nil, ErrCorrelation
	}
	var l mat.TriDense
	chol.LTo(&l)

	lower := make([][]float64, n)
	for i := range lower {
		lower[i] = make([]float64, i+1)
		for j := 0; j <= i; j++ {
			lower[i][j] = l.At(i, j)
		}
	}

	return &MultiAsset{
		Reference: reference,
		Rate:      rate,
		spots:     append([]float64(nil), spots...),
		vols:      append([]float64(nil), vols...),
		dividends: append([]float64(nil), dividends...),
		lower:     lower,
	}, nil
}

// Factors implements Process.
func (p *MultiAsset) Factors() int { return len(p.spots) }

// Initial implements Process.
func (p *MultiAsset) Initial() []float64 { return append([]float64(nil), p.spots...) }

// Evolve implements Process.
func (p *MultiAsset) Evolve(_, dt float64, x, dw, out []float64) {
	for i, row := range p.lower {
		// correlate random variables
		z := 0.0
		for j, l := range row {
			z += l * dw[j]
		}
		out[i] = gbmStep(x[i], p.Rate-p.dividends[i], p.vols[i], dt, z)
	}
}

// Time implements Process.
func (p *MultiAsset) Time(date time.Time) float64 { return YearFraction(p.Reference, date) }

// DiscountCurve returns the flat curve implied by the process rate.
func (p *MultiAsset) DiscountCurve() FlatDiscount { return FlatDiscount{Rate: p.Rate} }
