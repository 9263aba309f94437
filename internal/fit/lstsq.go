package fit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// rankTolerance returns the singular value cut-off used to decide the
// numerical rank of an r×c matrix whose largest singular value is sigmaMax.
// It matches the LAPACK/numpy default rcond.
func rankTolerance(r, c int, sigmaMax float64) float64 {
	return float64(max(r, c)) * sigmaMax * 2.220446049250313e-16
}

// matrixRank returns the numerical rank of a.
func matrixRank(a mat.Matrix) (int, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDNone); !ok {
		return 0, fmt.Errorf("%w: SVD did not converge", ErrSingularSystem)
	}
	values := svd.Values(nil)
	if len(values) == 0 {
		return 0, nil
	}
	r, c := a.Dims()
	tol := rankTolerance(r, c, values[0])
	rank := 0
	for _, s := range values {
		if s > tol {
			rank++
		}
	}
	return rank, nil
}

// solveLeastSquares solves min ||a·x - b||₂ for a full column rank a.
//
// Columns are equilibrated to unit 2-norm before factorisation so that
// polynomial bases over millimetre-scale coordinates (column magnitudes
// spanning ~1 to 1e16) keep a usable condition number. The SVD decides the
// rank, the QR factorisation produces the solution, and the solution is
// unscaled back to the caller's basis. a is not modified.
func solveLeastSquares(a *mat.Dense, b []float64) ([]float64, error) {
	rows, cols := a.Dims()
	if rows != len(b) {
		return nil, fmt.Errorf("%w: design matrix has %d rows, target has %d values", ErrDegenerateInput, rows, len(b))
	}
	if rows < cols {
		return nil, fmt.Errorf("%w: %d equations for %d unknowns", ErrSingularSystem, rows, cols)
	}
	if !allFinite(b) || !allFinite(a.RawMatrix().Data) {
		return nil, fmt.Errorf("%w: non-finite value in least-squares input", ErrDegenerateInput)
	}

	scale := make([]float64, cols)
	scaled := mat.DenseCopyOf(a)
	for j := 0; j < cols; j++ {
		norm := mat.Norm(scaled.ColView(j), 2)
		if norm == 0 {
			return nil, fmt.Errorf("%w: design column %d is all zeros", ErrSingularSystem, j)
		}
		scale[j] = norm
		for i := 0; i < rows; i++ {
			scaled.Set(i, j, scaled.At(i, j)/norm)
		}
	}

	rank, err := matrixRank(scaled)
	if err != nil {
		return nil, err
	}
	if rank < cols {
		return nil, fmt.Errorf("%w: rank %d < %d columns", ErrSingularSystem, rank, cols)
	}

	var qr mat.QR
	qr.Factorize(scaled)
	x := mat.NewVecDense(cols, nil)
	if err := qr.SolveVecTo(x, false, mat.NewVecDense(rows, append([]float64(nil), b...))); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingularSystem, err)
	}

	out := make([]float64, cols)
	for j := range out {
		out[j] = x.AtVec(j) / scale[j]
	}
	return out, nil
}

func allFinite(s []float64) bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
