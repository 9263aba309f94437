package fit

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Vander returns the N×(degree+1) Vandermonde matrix of x in descending
// power order: column 0 holds x^degree and the last column holds ones.
func Vander(x []float64, degree int) (*mat.Dense, error) {
	if degree < 0 {
		return nil, fmt.Errorf("%w: negative polynomial degree %d", ErrDegenerateInput, degree)
	}
	if len(x) == 0 {
		return nil, fmt.Errorf("%w: empty coordinate vector", ErrDegenerateInput)
	}
	n := degree + 1
	v := mat.NewDense(len(x), n, nil)
	for i, xi := range x {
		p := 1.0
		for j := n - 1; j >= 0; j-- {
			v.Set(i, j, p)
			p *= xi
		}
	}
	return v, nil
}

// DoubleVander returns the N×(degree+1)² tensor-product design matrix for a
// bivariate polynomial of the given degree in each variable. Column
// i*(degree+1)+j is Vander(x)[:,i] * Vander(y)[:,j], so coefficient k of a
// fit multiplies x^(degree-k/(degree+1)) * y^(degree-k%(degree+1)).
//
// Any later evaluation of a fitted surface must use this same ordering.
func DoubleVander(x, y []float64, degree int) (*mat.Dense, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: double Vandermonde got %d x values and %d y values", ErrDegenerateInput, len(x), len(y))
	}
	ax, err := Vander(x, degree)
	if err != nil {
		return nil, err
	}
	ay, err := Vander(y, degree)
	if err != nil {
		return nil, err
	}

	n := degree + 1
	out := mat.NewDense(len(x), n*n, nil)
	for row := range x {
		for i := 0; i < n; i++ {
			xi := ax.At(row, i)
			for j := 0; j < n; j++ {
				out.Set(row, i*n+j, xi*ay.At(row, j))
			}
		}
	}
	return out, nil
}

// Powers returns the (x, y) exponents that multiply coefficient k of a
// degree-d DoubleVander fit.
func Powers(k, degree int) (px, py int) {
	n := degree + 1
	return degree - k/n, degree - k%n
}
