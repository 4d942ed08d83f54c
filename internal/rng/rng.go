// Package rng supplies the Gaussian variates that drive path generation.
//
// Every sequence is explicitly seeded and stream-partitioned. Nothing here
// reads process-wide random state, so a run with the same seed and stream
// always sees the same draws.
package rng

import (
	"errors"
	"fmt"
)

// Kind names a family of sequences.
type Kind string

const (
	// PseudoRandom draws independent Gaussians from a seeded PCG source.
	PseudoRandom Kind = "pseudorandom"
	// LowDiscrepancy maps a Halton sequence through the inverse normal CDF.
	LowDiscrepancy Kind = "lowdiscrepancy"
)

// ErrUnknownKind is returned by New for an unrecognised Kind.
var ErrUnknownKind = errors.New("rng: unknown sequence kind")

// ErrInvalidDimension is returned for a non-positive dimension.
var ErrInvalidDimension = errors.New("rng: dimension must be positive")

// GaussianSequence produces vectors of standard normal variates.
type GaussianSequence interface {
	// Dimension is the number of variates produced per draw.
	Dimension() int
	// Next fills dst (of length Dimension) with the next draw.
	Next(dst []float64)
	// AllowsErrorEstimate reports whether sample statistics built on this
	// sequence carry a meaningful standard error.
	AllowsErrorEstimate() bool
}

// New builds a sequence of the given kind for one RNG stream.
func New(kind Kind, dimension int, seed, stream uint64) (GaussianSequence, error) {
	if dimension < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDimension, dimension)
	}
	switch kind {
	case PseudoRandom, "":
		return NewPseudoRandom(dimension, seed, stream), nil
	case LowDiscrepancy:
		return NewHalton(dimension, stream), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// AllowsErrorEstimate reports whether kind supports a standard error.
func (k Kind) AllowsErrorEstimate() bool {
	return k != LowDiscrepancy
}

// splitmix64 finalizer, used to decorrelate seeds of neighbouring streams.
func mix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// StreamSeed derives the source seed for a (seed, stream) pair.
func StreamSeed(seed, stream uint64) uint64 {
	return mix(seed ^ mix(stream+1))
}
