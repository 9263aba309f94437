package bubble

import (
	"errors"
	"fmt"

	"github.com/banshee-data/bubble.report/internal/dic"
	"github.com/banshee-data/bubble.report/internal/fit"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
)

// Method identifies a bubble origin estimation method.
type Method int

const (
	CircleFit Method = iota
	ExtremaIntersection
	RawMedian
	PolyFitMedian
	// PolyFitPeak is the fitted-surface maximum. It is not part of Methods
	// and is only produced by PolyFitPeakOrigin.
	PolyFitPeak
)

// Methods lists every estimation method in report order.
var Methods = []Method{CircleFit, ExtremaIntersection, RawMedian, PolyFitMedian}

func (m Method) String() string {
	switch m {
	case CircleFit:
		return "circle_fit"
	case ExtremaIntersection:
		return "extrema_intersection"
	case RawMedian:
		return "raw_median"
	case PolyFitMedian:
		return "polyfit_median"
	case PolyFitPeak:
		return "polyfit_peak"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// Title returns the human-readable method name used on plots.
func (m Method) Title() string {
	switch m {
	case CircleFit:
		return "CircleFit"
	case ExtremaIntersection:
		return "Intersection"
	case RawMedian:
		return "Raw Median"
	case PolyFitMedian:
		return "PolyFit Median"
	case PolyFitPeak:
		return "PolyFit Peak"
	default:
		return m.String()
	}
}

// ParseMethod is the inverse of Method.String.
func ParseMethod(s string) (Method, error) {
	for _, m := range append(Methods, PolyFitPeak) {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown origin method %q", s)
}

// Estimate is one bubble origin estimate in the deformed X-Y plane.
type Estimate struct {
	Method Method
	X, Y   float64
}

// MethodError records the failure of one estimation method.
type MethodError struct {
	Method Method
	Err    error
}

func (e *MethodError) Error() string { return e.Method.String() + ": " + e.Err.Error() }
func (e *MethodError) Unwrap() error { return e.Err }

// MethodErrors collects the per-method failures from an error returned by
// Estimator.Estimate, including when it has been wrapped with %w since.
// A nil or unrelated error yields an empty map.
func MethodErrors(err error) map[Method]error {
	out := make(map[Method]error)
	collectMethodErrors(err, out)
	return out
}

func collectMethodErrors(err error, out map[Method]error) {
	switch e := err.(type) {
	case nil:
	case *MethodError:
		out[e.Method] = e.Err
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			collectMethodErrors(inner, out)
		}
	case interface{ Unwrap() error }:
		collectMethodErrors(e.Unwrap(), out)
	}
}

// Estimator runs the origin estimation methods with fixed Options.
type Estimator struct {
	opts Options
}

// NewEstimator validates opts and returns an Estimator.
func NewEstimator(opts Options) (*Estimator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Estimator{opts: opts}, nil
}

// Options returns the estimator configuration.
func (e *Estimator) Options() Options { return e.opts }

// Estimate runs every method on pc. Successful estimates are returned in
// Methods order; failed methods are omitted and reported through the
// returned error, a join of *MethodError values. A frame where some
// methods fail still yields the others.
func (e *Estimator) Estimate(pc *dic.PointCloud) ([]Estimate, error) {
	var (
		out  []Estimate
		errs []error
	)
	for _, m := range Methods {
		est, err := e.estimate(m, pc)
		if err != nil {
			errs = append(errs, &MethodError{Method: m, Err: err})
			continue
		}
		out = append(out, est)
	}
	return out, errors.Join(errs...)
}

func (e *Estimator) estimate(m Method, pc *dic.PointCloud) (Estimate, error) {
	switch m {
	case CircleFit:
		if e.opts.LegacyNaN {
			c := fit.FitCircleLegacy(pc.FinalX(), pc.FinalY())
			return Estimate{Method: CircleFit, X: c.CenterX, Y: c.CenterY}, nil
		}
		return CircleFitOrigin(pc)
	case ExtremaIntersection:
		return ExtremaIntersectionOrigin(pc, e.opts.LegacyNaN)
	case RawMedian:
		return RawMedianOrigin(pc)
	case PolyFitMedian:
		return PolyFitMedianOrigin(pc, e.opts.Degree, e.opts.GridNX, e.opts.GridNY)
	}
	return Estimate{}, fmt.Errorf("unknown method %v", m)
}

// CircleFitOrigin returns the centre of the Kåsa circle through the
// deformed (finalX, finalY) positions.
func CircleFitOrigin(pc *dic.PointCloud) (Estimate, error) {
	c, err := fit.FitCircle(pc.FinalX(), pc.FinalY())
	if err != nil {
		return Estimate{}, err
	}
	return Estimate{Method: CircleFit, X: c.CenterX, Y: c.CenterY}, nil
}

// RawMedianOrigin returns the per-axis medians of finalX and finalY. For an
// even number of points the median is the mean of the two middle values.
func RawMedianOrigin(pc *dic.PointCloud) (Estimate, error) {
	if pc.Len() == 0 {
		return Estimate{}, fmt.Errorf("%w: median of an empty cloud", fit.ErrDegenerateInput)
	}
	mx, err := stats.Median(pc.FinalX())
	if err != nil {
		return Estimate{}, fmt.Errorf("%w: %v", fit.ErrDegenerateInput, err)
	}
	my, err := stats.Median(pc.FinalY())
	if err != nil {
		return Estimate{}, fmt.Errorf("%w: %v", fit.ErrDegenerateInput, err)
	}
	return Estimate{Method: RawMedian, X: mx, Y: my}, nil
}

// PolyFitMedianOrigin fits a degree-d surface to the deformed positions,
// evaluates it on an nx×ny grid over their bounding box and returns the
// medians of the grid's X and Y node coordinates.
//
// The result is the centre of the bounding box and does not depend on the
// fitted surface at all; PolyFitPeakOrigin is the variant that does.
func PolyFitMedianOrigin(pc *dic.PointCloud, degree, nx, ny int) (Estimate, error) {
	g, _, err := evaluateFinalSurface(pc, degree, nx, ny)
	if err != nil {
		return Estimate{}, err
	}
	mx, err := stats.Median(g.X)
	if err != nil {
		return Estimate{}, err
	}
	my, err := stats.Median(g.Y)
	if err != nil {
		return Estimate{}, err
	}
	return Estimate{Method: PolyFitMedian, X: mx, Y: my}, nil
}

// PolyFitPeakOrigin returns the grid node where the fitted surface of the
// deformed positions is highest. Ties go to the first node in row-major
// order.
func PolyFitPeakOrigin(pc *dic.PointCloud, degree, nx, ny int) (Estimate, error) {
	g, z, err := evaluateFinalSurface(pc, degree, nx, ny)
	if err != nil {
		return Estimate{}, err
	}
	i := floats.MaxIdx(z)
	return Estimate{Method: PolyFitPeak, X: g.X[i], Y: g.Y[i]}, nil
}

func evaluateFinalSurface(pc *dic.PointCloud, degree, nx, ny int) (*fit.Grid, []float64, error) {
	x, y := pc.FinalX(), pc.FinalY()
	sf, err := fit.FitSurface(x, y, pc.FinalZ(), degree)
	if err != nil {
		return nil, nil, err
	}
	g, err := fit.BoundingGrid(x, y, nx, ny)
	if err != nil {
		return nil, nil, err
	}
	z, err := sf.EvaluateGrid(g)
	if err != nil {
		return nil, nil, err
	}
	return g, z, nil
}
