package path

import (
	"errors"
	"fmt"

	"lsmc/internal/process"
	"lsmc/internal/rng"
	"lsmc/internal/timegrid"
)

// ErrDimension is returned when the sequence dimension does not match
// factors × steps.
var ErrDimension = errors.New("path: sequence dimension mismatch")

// Generator evolves a process across a grid, one Gaussian vector per path.
// Its only state between calls is the sequence position and the last draw,
// which Antithetic reuses.
type Generator struct {
	process process.Process
	grid    *timegrid.Grid
	seq     rng.GaussianSequence
	factors int

	draws []float64
	neg   []float64
	x     []float64
}

// NewGenerator validates the pairing of process, grid and sequence.
func NewGenerator(p process.Process, grid *timegrid.Grid, seq rng.GaussianSequence) (*Generator, error) {
	if p == nil || grid == nil || seq == nil {
		return nil, errors.New("path: process, grid and sequence are required")
	}
	want := Dimension(p, grid)
	if seq.Dimension() != want {
		return nil, fmt.Errorf("%w: got %d, want %d factors x %d steps",
			ErrDimension, seq.Dimension(), p.Factors(), grid.Steps())
	}
	return &Generator{
		process: p,
		grid:    grid,
		seq:     seq,
		factors: p.Factors(),
		draws:   make([]float64, want),
		neg:     make([]float64, want),
		x:       make([]float64, p.Factors()),
	}, nil
}

// Dimension is the number of variates one path consumes.
func Dimension(p process.Process, grid *timegrid.Grid) int {
	return p.Factors() * grid.Steps()
}

// Grid returns the generator's time grid.
func (g *Generator) Grid() *timegrid.Grid { return g.grid }

// AllowsErrorEstimate forwards the sequence capability.
func (g *Generator) AllowsErrorEstimate() bool { return g.seq.AllowsErrorEstimate() }

// Next draws fresh randomness and builds a path from it.
func (g *Generator) Next() Sample {
	g.seq.Next(g.draws)
	return Sample{Path: g.build(g.draws), Weight: 1}
}

// Antithetic rebuilds the last path from the negated draws. It consumes no
// randomness and must follow a call to Next.
func (g *Generator) Antithetic() Sample {
	for i, d := range g.draws {
		g.neg[i] = -d
	}
	return Sample{Path: g.build(g.neg), Weight: 1}
}

func (g *Generator) build(draws []float64) *Path {
	p := New(g.grid, g.factors)
	init := g.process.Initial()
	for f := range p.Values {
		p.Values[f][0] = init[f]
	}
	out := make([]float64, g.factors)
	for step := 0; step < g.grid.Steps(); step++ {
		p.StateAt(step, g.x)
		dw := draws[step*g.factors : (step+1)*g.factors]
		g.process.Evolve(g.grid.At(step), g.grid.Dt(step), g.x, dw, out)
		for f, v := range out {
			p.Values[f][step+1] = v
		}
	}
	return p
}

// Draw simulates n paths, followed by their antithetic twins when requested.
func Draw(g *Generator, n int, antithetic bool) PathSet {
	size := n
	if antithetic {
		size *= 2
	}
	out := make(PathSet, 0, size)
	for i := 0; i < n; i++ {
		out = append(out, g.Next().Path)
		if antithetic {
			out = append(out, g.Antithetic().Path)
		}
	}
	return out
}
