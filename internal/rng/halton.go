package rng

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// haltonStreamOffset separates the index ranges of partitioned Halton streams.
const haltonStreamOffset = 1 << 32

// Halton is a low-discrepancy GaussianSequence. Coordinate j of draw k is the
// radical inverse of k in the j-th prime base, pushed through the inverse
// normal CDF. The origin is skipped so no coordinate is ever 0.
type Halton struct {
	bases []uint64
	index uint64
}

// NewHalton builds a Halton sequence. Stream s starts at index 1+s*2^32.
func NewHalton(dimension int, stream uint64) *Halton {
	return &Halton{
		bases: primes(dimension),
		index: 1 + stream*haltonStreamOffset,
	}
}

// Dimension implements GaussianSequence.
func (h *Halton) Dimension() int { return len(h.bases) }

// Next implements GaussianSequence.
func (h *Halton) Next(dst []float64) {
	for j, b := range h.bases {
		dst[j] = distuv.UnitNormal.Quantile(radicalInverse(h.index, b))
	}
	h.index++
}

// AllowsErrorEstimate implements GaussianSequence. Halton points are not
// independent, so the sample standard error says nothing about accuracy.
func (h *Halton) AllowsErrorEstimate() bool { return false }

func radicalInverse(k, base uint64) float64 {
	inv := 1 / float64(base)
	f := inv
	r := 0.0
	for k > 0 {
		r += float64(k%base) * f
		k /= base
		f *= inv
	}
	return r
}

// primes returns the first n primes.
func primes(n int) []uint64 {
	out := make([]uint64, 0, n)
	for c := uint64(2); len(out) < n; c++ {
		prime := true
		for _, p := range out {
			if p*p > c {
				break
			}
			if c%p == 0 {
				prime = false
				break
			}
		}
		if prime {
			out = append(out, c)
		}
	}
	return out
}
