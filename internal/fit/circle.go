package fit

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Circle is a circle in the X-Y plane.
type Circle struct {
	CenterX float64
	CenterY float64
	Radius  float64
}

// FitCircle fits a circle to the points (x[i], y[i]) with the Kåsa
// algebraic method: it solves the linear least-squares system
//
//	[2x 2y 1]·[cx cy k]ᵀ ≈ x² + y²
//
// and returns radius sqrt(cx² + cy² + k). This minimises the algebraic
// residual, not the orthogonal distance, so it is biased toward smaller
// radii when the points only cover an arc.
//
// It returns ErrDegenerateInput for fewer than 3 points, mismatched
// lengths, or collinear points. Rank deficiency is never resolved to a
// minimum-norm solution.
func FitCircle(x, y []float64) (Circle, error) {
	if len(x) != len(y) {
		return Circle{}, fmt.Errorf("%w: circle fit got %d x values and %d y values", ErrDegenerateInput, len(x), len(y))
	}
	n := len(x)
	if n < 3 {
		return Circle{}, fmt.Errorf("%w: circle fit needs at least 3 points, got %d", ErrDegenerateInput, n)
	}

	a := mat.NewDense(n, 3, nil)
	f := make([]float64, n)
	for i := 0; i < n; i++ {
		a.Set(i, 0, 2*x[i])
		a.Set(i, 1, 2*y[i])
		a.Set(i, 2, 1)
		f[i] = x[i]*x[i] + y[i]*y[i]
	}

	c, err := solveLeastSquares(a, f)
	if err != nil {
		// Rank deficiency here means collinear or coincident points.
		if errors.Is(err, ErrSingularSystem) {
			return Circle{}, fmt.Errorf("%w: points are collinear: %v", ErrDegenerateInput, err)
		}
		return Circle{}, err
	}

	r2 := c[0]*c[0] + c[1]*c[1] + c[2]
	if r2 < 0 {
		return Circle{}, fmt.Errorf("%w: negative squared radius %g", ErrDegenerateInput, r2)
	}
	return Circle{CenterX: c[0], CenterY: c[1], Radius: math.Sqrt(r2)}, nil
}

// FitCircleLegacy behaves like FitCircle but reports failures as a circle
// with NaN fields instead of an error.
func FitCircleLegacy(x, y []float64) Circle {
	c, err := FitCircle(x, y)
	if err != nil {
		nan := math.NaN()
		return Circle{CenterX: nan, CenterY: nan, Radius: nan}
	}
	return c
}
