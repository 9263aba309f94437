package fit

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Grid is a rectangular evaluation grid flattened row-major: NY rows of NX
// nodes, X varying along a row and Y constant within it.
type Grid struct {
	NX, NY int
	X, Y   []float64
}

// NewGrid spans [xMin, xMax]×[yMin, yMax] with nx×ny evenly spaced nodes,
// both end points included.
func NewGrid(xMin, xMax float64, nx int, yMin, yMax float64, ny int) (*Grid, error) {
	if nx < 2 || ny < 2 {
		return nil, fmt.Errorf("%w: grid needs at least 2×2 nodes, got %d×%d", ErrDegenerateInput, nx, ny)
	}
	xs := floats.Span(make([]float64, nx), xMin, xMax)
	ys := floats.Span(make([]float64, ny), yMin, yMax)

	g := &Grid{NX: nx, NY: ny, X: make([]float64, nx*ny), Y: make([]float64, nx*ny)}
	for r := 0; r < ny; r++ {
		for c := 0; c < nx; c++ {
			g.X[r*nx+c] = xs[c]
			g.Y[r*nx+c] = ys[r]
		}
	}
	return g, nil
}

// BoundingGrid spans the bounding box of the points (x[i], y[i]).
func BoundingGrid(x, y []float64, nx, ny int) (*Grid, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("%w: bounding grid needs matching non-empty coordinates", ErrDegenerateInput)
	}
	return NewGrid(floats.Min(x), floats.Max(x), nx, floats.Min(y), floats.Max(y), ny)
}
