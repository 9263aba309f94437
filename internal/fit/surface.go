package fit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// SurfaceFit is a least-squares bivariate polynomial z(x, y).
type SurfaceFit struct {
	Degree int
	// Coefficients are ordered like the DoubleVander columns.
	Coefficients []float64
	// Fitted holds the model values at the input points.
	Fitted []float64
	// SSRes is the residual sum of squares Σ(ẑ-z)².
	SSRes float64
	// SSTot is the total sum of squares Σ(z-mean(z))².
	SSTot float64
	// RSquared is 1 - SSRes/SSTot, or NaN when SSTot is zero.
	RSquared float64
}

// FitSurface fits a degree-d polynomial surface to z over (x, y) using the
// DoubleVander basis and a column-equilibrated QR solve.
//
// A constant z is a valid fit: the coefficients and fitted values are
// returned, RSquared is NaN and CoefficientOfDetermination reports
// ErrDegenerateInput. Too few points or coincident points for the degree
// yield ErrSingularSystem.
func FitSurface(x, y, z []float64, degree int) (*SurfaceFit, error) {
	if len(z) != len(x) {
		return nil, fmt.Errorf("%w: surface fit got %d points and %d targets", ErrDegenerateInput, len(x), len(z))
	}
	a, err := DoubleVander(x, y, degree)
	if err != nil {
		return nil, err
	}
	c, err := solveLeastSquares(a, z)
	if err != nil {
		return nil, fmt.Errorf("degree %d surface fit: %w", degree, err)
	}

	fitted := mat.NewVecDense(len(z), nil)
	fitted.MulVec(a, mat.NewVecDense(len(c), c))
	zz := make([]float64, len(z))
	copy(zz, fitted.RawVector().Data)

	mean := stat.Mean(z, nil)
	var ssRes, ssTot float64
	for i, v := range z {
		r := zz[i] - v
		ssRes += r * r
		d := v - mean
		ssTot += d * d
	}

	r2 := math.NaN()
	if ssTot != 0 {
		r2 = 1 - ssRes/ssTot
	}

	return &SurfaceFit{
		Degree:       degree,
		Coefficients: c,
		Fitted:       zz,
		SSRes:        ssRes,
		SSTot:        ssTot,
		RSquared:     r2,
	}, nil
}

// CoefficientOfDetermination returns R², or ErrDegenerateInput when the
// fitted target had zero variance.
func (f *SurfaceFit) CoefficientOfDetermination() (float64, error) {
	if f.SSTot == 0 {
		return math.NaN(), fmt.Errorf("%w: R² undefined for a constant target", ErrDegenerateInput)
	}
	return f.RSquared, nil
}

// Evaluate returns the fitted surface at the points (x[i], y[i]).
func (f *SurfaceFit) Evaluate(x, y []float64) ([]float64, error) {
	a, err := DoubleVander(x, y, f.Degree)
	if err != nil {
		return nil, err
	}
	_, cols := a.Dims()
	if cols != len(f.Coefficients) {
		return nil, fmt.Errorf("%w: %d coefficients for a degree %d basis", ErrDegenerateInput, len(f.Coefficients), f.Degree)
	}
	out := mat.NewVecDense(len(x), nil)
	out.MulVec(a, mat.NewVecDense(cols, f.Coefficients))
	return append([]float64(nil), out.RawVector().Data...), nil
}

// EvaluateGrid returns the fitted surface at every node of g, flattened in
// the grid's row-major order.
func (f *SurfaceFit) EvaluateGrid(g *Grid) ([]float64, error) {
	return f.Evaluate(g.X, g.Y)
}

// Residuals returns fitted minus observed for each input point.
func (f *SurfaceFit) Residuals(z []float64) []float64 {
	out := make([]float64, len(z))
	floats.SubTo(out, f.Fitted, z)
	return out
}
