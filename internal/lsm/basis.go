package lsm

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// maxBasisSize bounds the tensor product so the regression stays small.
const maxBasisSize = 256

// ErrInvalidBasis is returned for an unknown family or an oversized basis.
var ErrInvalidBasis = errors.New("lsm: invalid basis")

// Family is a one-dimensional polynomial family.
type Family string

const (
	Monomial  Family = "monomial"
	Laguerre  Family = "laguerre"
	Hermite   Family = "hermite"
	Legendre  Family = "legendre"
	Chebyshev Family = "chebyshev"
)

// ParseFamily reads a family name; the empty string means Monomial.
func ParseFamily(s string) (Family, error) {
	f := Family(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "":
		return Monomial, nil
	case Monomial, Laguerre, Hermite, Legendre, Chebyshev:
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown family %q", ErrInvalidBasis, s)
}

// values writes p_0(x) ... p_order(x) into dst.
func (f Family) values(x float64, dst []float64) {
	dst[0] = 1
	if len(dst) == 1 {
		if f == Laguerre {
			dst[0] = math.Exp(-x / 2)
		}
		return
	}
	switch f {
	case Monomial:
		for k := 1; k < len(dst); k++ {
			dst[k] = dst[k-1] * x
		}
	case Laguerre:
		dst[1] = 1 - x
		for k := 1; k+1 < len(dst); k++ {
			fk := float64(k)
			dst[k+1] = ((2*fk+1-x)*dst[k] - fk*dst[k-1]) / (fk + 1)
		}
		// weighted as in Longstaff and Schwartz
		floats.Scale(math.Exp(-x/2), dst)
	case Hermite:
		dst[1] = 2 * x
		for k := 1; k+1 < len(dst); k++ {
			dst[k+1] = 2*x*dst[k] - 2*float64(k)*dst[k-1]
		}
	case Legendre:
		dst[1] = x
		for k := 1; k+1 < len(dst); k++ {
			fk := float64(k)
			dst[k+1] = ((2*fk+1)*x*dst[k] - fk*dst[k-1]) / (fk + 1)
		}
	case Chebyshev:
		dst[1] = x
		for k := 1; k+1 < len(dst); k++ {
			dst[k+1] = 2*x*dst[k] - dst[k-1]
		}
	}
}

// Basis is the tensor product of a polynomial family over every factor,
// with each per-factor degree at most order. In two factors with order 2
// this is {1, x, y, xy, x², y², x²y, xy², x²y²}.
type Basis struct {
	family  Family
	order   int
	factors int
	// terms[j][f] is the degree of factor f in term j
	terms [][]int
}

// NewBasis builds the basis for the given factor count.
func NewBasis(family Family, order, factors int) (*Basis, error) {
	if _, err := ParseFamily(string(family)); err != nil {
		return nil, err
	}
	if order < 0 || factors < 1 {
		return nil, fmt.Errorf("%w: order %d, factors %d", ErrInvalidBasis, order, factors)
	}
	size := 1
	for f := 0; f < factors; f++ {
		size *= order + 1
		if size > maxBasisSize {
			return nil, fmt.Errorf("%w: order %d over %d factors exceeds %d terms", ErrInvalidBasis, order, factors, maxBasisSize)
		}
	}

	terms := make([][]int, 0, size)
	cur := make([]int, factors)
	for {
		terms = append(terms, append([]int(nil), cur...))
		f := 0
		for ; f < factors; f++ {
			cur[f]++
			if cur[f] <= order {
				break
			}
			cur[f] = 0
		}
		if f == factors {
			break
		}
	}
	sort.SliceStable(terms, func(i, j int) bool { return degree(terms[i]) < degree(terms[j]) })

	return &Basis{family: family, order: order, factors: factors, terms: terms}, nil
}

func degree(term []int) int {
	d := 0
	for _, e := range term {
		d += e
	}
	return d
}

// Size is the number of basis functions.
func (b *Basis) Size() int { return len(b.terms) }

// Factors is the state dimension the basis expects.
func (b *Basis) Factors() int { return b.factors }

// Family returns the polynomial family.
func (b *Basis) Family() Family { return b.family }

// Order is the highest per-factor degree.
func (b *Basis) Order() int { return b.order }

// evaluator holds scratch space for one goroutine.
type evaluator struct {
	b   *Basis
	pow []float64
	out []float64
}

func (b *Basis) evaluator() *evaluator {
	return &evaluator{
		b:   b,
		pow: make([]float64, b.factors*(b.order+1)),
		out: make([]float64, len(b.terms)),
	}
}

// eval returns the basis at x; the result is overwritten by the next call.
func (e *evaluator) eval(x []float64) []float64 {
	k := e.b.order + 1
	for f := 0; f < e.b.factors; f++ {
		e.b.family.values(x[f], e.pow[f*k:(f+1)*k])
	}
	for j, term := range e.b.terms {
		v := 1.0
		for f, d := range term {
			v *= e.pow[f*k+d]
		}
		e.out[j] = v
	}
	return e.out
}

// Eval writes the basis functions at x into dst, growing it if needed.
func (b *Basis) Eval(x, dst []float64) []float64 {
	v := b.evaluator().eval(x)
	if cap(dst) < len(v) {
		dst = make([]float64, len(v))
	}
	dst = dst[:len(v)]
	copy(dst, v)
	return dst
}
