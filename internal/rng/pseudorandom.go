package rng

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Pseudo is a GaussianSequence backed by a PCG source.
type Pseudo struct {
	dim  int
	norm distuv.Normal
}

// NewPseudoRandom seeds a PCG source for the given stream.
func NewPseudoRandom(dimension int, seed, stream uint64) *Pseudo {
	return &Pseudo{
		dim:  dimension,
		norm: distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(StreamSeed(seed, stream))},
	}
}

// Dimension implements GaussianSequence.
func (p *Pseudo) Dimension() int { return p.dim }

// Next implements GaussianSequence.
func (p *Pseudo) Next(dst []float64) {
	for i := range dst[:p.dim] {
		dst[i] = p.norm.Rand()
	}
}

// AllowsErrorEstimate implements GaussianSequence.
func (p *Pseudo) AllowsErrorEstimate() bool { return true }
