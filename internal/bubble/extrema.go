package bubble

import (
	"fmt"
	"math"

	"github.com/banshee-data/bubble.report/internal/dic"
	"github.com/banshee-data/bubble.report/internal/fit"
	"gonum.org/v1/gonum/floats"
)

// XY is a position in the deformed X-Y plane.
type XY struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Extrema holds the extremal deformed positions of a cloud. Ties resolve to
// the first point in cloud order.
type Extrema struct {
	MinX XY `json:"min_x"`
	MaxX XY `json:"max_x"`
	MinY XY `json:"min_y"`
	MaxY XY `json:"max_y"`
	// ZMax is the position of the highest final Z.
	ZMax XY `json:"z_max"`
}

// FindExtrema locates the extremal points of pc's deformed positions.
func FindExtrema(pc *dic.PointCloud) (Extrema, error) {
	if pc.Len() == 0 {
		return Extrema{}, fmt.Errorf("%w: extrema of an empty cloud", fit.ErrDegenerateInput)
	}
	x, y, z := pc.FinalX(), pc.FinalY(), pc.FinalZ()
	at := func(i int) XY { return XY{X: x[i], Y: y[i]} }
	return Extrema{
		MinX: at(floats.MinIdx(x)),
		MaxX: at(floats.MaxIdx(x)),
		MinY: at(floats.MinIdx(y)),
		MaxY: at(floats.MaxIdx(y)),
		ZMax: at(floats.MaxIdx(z)),
	}, nil
}

// ExtremaIntersectionOrigin intersects the line through the min-X and max-X
// points with the line through the min-Y and max-Y points.
//
// With legacy set the slope-intercept arithmetic of the old scripts is used
// unchanged, so a vertical or parallel pair of lines yields ±Inf or NaN
// without error. Otherwise vertical lines are handled exactly and parallel
// or undefined lines return ErrParallelExtrema.
func ExtremaIntersectionOrigin(pc *dic.PointCloud, legacy bool) (Estimate, error) {
	ex, err := FindExtrema(pc)
	if err != nil {
		return Estimate{}, err
	}
	var x, y float64
	if legacy {
		x, y = slopeIntercept(ex)
	} else {
		x, y, err = intersect(ex.MinX, ex.MaxX, ex.MinY, ex.MaxY)
		if err != nil {
			return Estimate{}, err
		}
	}
	return Estimate{Method: ExtremaIntersection, X: x, Y: y}, nil
}

func slopeIntercept(ex Extrema) (float64, float64) {
	slopeH := (ex.MinX.Y - ex.MaxX.Y) / (ex.MinX.X - ex.MaxX.X)
	slopeV := (ex.MinY.Y - ex.MaxY.Y) / (ex.MinY.X - ex.MaxY.X)
	bH := ex.MaxX.Y - slopeH*ex.MaxX.X
	bV := ex.MaxY.Y - slopeV*ex.MaxY.X
	x := (bH - bV) / (slopeV - slopeH)
	return x, slopeV*x + bV
}

// intersect returns the crossing of line a1-a2 with line b1-b2, solved in
// parametric form so a vertical line needs no infinite slope.
func intersect(a1, a2, b1, b2 XY) (float64, float64, error) {
	if a1 == a2 || b1 == b2 {
		return 0, 0, fmt.Errorf("%w: extremal points coincide", fit.ErrParallelExtrema)
	}
	ax, ay := a2.X-a1.X, a2.Y-a1.Y
	bx, by := b2.X-b1.X, b2.Y-b1.Y
	det := ax*by - ay*bx
	if det == 0 || math.Abs(det) <= 1e-12*math.Hypot(ax, ay)*math.Hypot(bx, by) {
		return 0, 0, fmt.Errorf("%w: lines are parallel", fit.ErrParallelExtrema)
	}
	t := ((b1.X-a1.X)*by - (b1.Y-a1.Y)*bx) / det
	return a1.X + t*ax, a1.Y + t*ay, nil
}
