// Package path holds simulated trajectories and the generator that draws them.
package path

import (
	"lsmc/internal/timegrid"
)

// Path is one simulated trajectory. Values[f][i] is factor f at grid point i.
type Path struct {
	grid   *timegrid.Grid
	Values [][]float64
}

// New allocates a path of the given factor count over grid.
func New(grid *timegrid.Grid, factors int) *Path {
	values := make([][]float64, factors)
	for f := range values {
		values[f] = make([]float64, grid.Len())
	}
	return &Path{grid: grid, Values: values}
}

// Grid returns the time grid the path lives on.
func (p *Path) Grid() *timegrid.Grid { return p.grid }

// Factors is the number of state variables.
func (p *Path) Factors() int { return len(p.Values) }

// Len is the number of grid points.
func (p *Path) Len() int { return p.grid.Len() }

// Value returns factor f at grid point i.
func (p *Path) Value(f, i int) float64 { return p.Values[f][i] }

// StateAt copies the state vector at grid point i into dst, growing it if needed.
func (p *Path) StateAt(i int, dst []float64) []float64 {
	if cap(dst) < len(p.Values) {
		dst = make([]float64, len(p.Values))
	}
	dst = dst[:len(p.Values)]
	for f, v := range p.Values {
		dst[f] = v[i]
	}
	return dst
}

// Sample is a generated path together with its weight.
type Sample struct {
	Path   *Path
	Weight float64
}

// PathSet is a batch of paths kept for calibration.
type PathSet []*Path
