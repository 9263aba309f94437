package dic

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// Point is one tracked DIC point: its initial position and its displacement
// at the frame's load step, in millimetres.
type Point struct {
	X0, Y0, Z0 float64
	DX, DY, DZ float64
}

// Initial returns the undeformed position.
func (p Point) Initial() r3.Vector { return r3.Vector{X: p.X0, Y: p.Y0, Z: p.Z0} }

// Displacement returns the displacement vector.
func (p Point) Displacement() r3.Vector { return r3.Vector{X: p.DX, Y: p.DY, Z: p.DZ} }

// Final returns the deformed position, Initial + Displacement.
func (p Point) Final() r3.Vector { return p.Initial().Add(p.Displacement()) }

// WithInitial returns p moved to the initial position v, keeping its
// displacement.
func (p Point) WithInitial(v r3.Vector) Point {
	p.X0, p.Y0, p.Z0 = v.X, v.Y, v.Z
	return p
}

func (p Point) finite() bool {
	for _, v := range [...]float64{p.X0, p.Y0, p.Z0, p.DX, p.DY, p.DZ} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Stationary reports whether the point has no initial Z and no Z
// displacement. Such points belong to the clamping fixture rather than the
// specimen.
func (p Point) Stationary() bool { return p.Z0 == 0 && p.DZ == 0 }

// PointCloud is an ordered, immutable set of Points. Filtering and shifting
// return new clouds; the input order is preserved because extrema
// tie-breaking depends on it.
type PointCloud struct {
	points []Point
}

// NewPointCloud copies points into a new cloud.
func NewPointCloud(points []Point) *PointCloud {
	return &PointCloud{points: append([]Point(nil), points...)}
}

// FromColumns builds a cloud from six parallel columns.
func FromColumns(x0, y0, z0, dx, dy, dz []float64) (*PointCloud, error) {
	n := len(x0)
	for i, col := range [][]float64{y0, z0, dx, dy, dz} {
		if len(col) != n {
			return nil, fmt.Errorf("column %d has %d values, want %d", i+1, len(col), n)
		}
	}
	points := make([]Point, n)
	for i := range points {
		points[i] = Point{X0: x0[i], Y0: y0[i], Z0: z0[i], DX: dx[i], DY: dy[i], DZ: dz[i]}
	}
	return &PointCloud{points: points}, nil
}

// Len returns the number of points.
func (pc *PointCloud) Len() int { return len(pc.points) }

// At returns point i.
func (pc *PointCloud) At(i int) Point { return pc.points[i] }

// Points returns a copy of the points.
func (pc *PointCloud) Points() []Point { return append([]Point(nil), pc.points...) }

// Filter returns a new cloud with the points for which keep returns true.
func (pc *PointCloud) Filter(keep func(Point) bool) *PointCloud {
	out := make([]Point, 0, len(pc.points))
	for _, p := range pc.points {
		if keep(p) {
			out = append(out, p)
		}
	}
	return &PointCloud{points: out}
}

// RemoveStationary drops fixture points (see Point.Stationary).
func (pc *PointCloud) RemoveStationary() *PointCloud {
	return pc.Filter(func(p Point) bool { return !p.Stationary() })
}

// Shift returns a new cloud with every initial X/Y translated by (dx, dy).
func (pc *PointCloud) Shift(dx, dy float64) *PointCloud {
	off := r3.Vector{X: dx, Y: dy}
	out := make([]Point, len(pc.points))
	for i, p := range pc.points {
		out[i] = p.WithInitial(p.Initial().Add(off))
	}
	return &PointCloud{points: out}
}

func (pc *PointCloud) column(f func(Point) float64) []float64 {
	out := make([]float64, len(pc.points))
	for i, p := range pc.points {
		out[i] = f(p)
	}
	return out
}

func (pc *PointCloud) X0() []float64 { return pc.column(func(p Point) float64 { return p.X0 }) }
func (pc *PointCloud) Y0() []float64 { return pc.column(func(p Point) float64 { return p.Y0 }) }
func (pc *PointCloud) Z0() []float64 { return pc.column(func(p Point) float64 { return p.Z0 }) }
func (pc *PointCloud) DX() []float64 { return pc.column(func(p Point) float64 { return p.DX }) }
func (pc *PointCloud) DY() []float64 { return pc.column(func(p Point) float64 { return p.DY }) }
func (pc *PointCloud) DZ() []float64 { return pc.column(func(p Point) float64 { return p.DZ }) }

// FinalX returns X0+DX for every point.
func (pc *PointCloud) FinalX() []float64 { return pc.column(func(p Point) float64 { return p.Final().X }) }

// FinalY returns Y0+DY for every point.
func (pc *PointCloud) FinalY() []float64 { return pc.column(func(p Point) float64 { return p.Final().Y }) }

// FinalZ returns Z0+DZ for every point.
func (pc *PointCloud) FinalZ() []float64 { return pc.column(func(p Point) float64 { return p.Final().Z }) }
