package fit

import "errors"

var (
	// ErrDegenerateInput reports input that cannot define the requested
	// model: too few points, collinear points for a circle, mismatched
	// lengths, non-finite values or a zero-variance target.
	ErrDegenerateInput = errors.New("degenerate input")

	// ErrSingularSystem reports a rank-deficient or numerically singular
	// least-squares design matrix.
	ErrSingularSystem = errors.New("singular least-squares system")

	// ErrParallelExtrema reports that the two extrema lines used for the
	// intersection origin estimate do not cross.
	ErrParallelExtrema = errors.New("parallel extrema lines")
)
