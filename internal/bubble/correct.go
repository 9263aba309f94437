package bubble

import (
	"fmt"

	"github.com/banshee-data/bubble.report/internal/dic"
	"github.com/banshee-data/bubble.report/internal/fit"
	"gonum.org/v1/gonum/floats"
)

// Correction is the output of CorrectZ.
type Correction struct {
	// Circle is the clamp circle fitted to the initial (x0, y0) positions.
	Circle fit.Circle
	// Recentered is the whole input cloud shifted so Circle's centre is the
	// origin.
	Recentered *dic.PointCloud
	// CorrectedZ is z0+dz-min(z0+dz) for every input point, in input order.
	CorrectedZ []float64

	// The retained points, in input order.
	X, Y           []float64
	CorrectedDispZ []float64
	DX, DY         []float64
}

// Len returns the number of retained points.
func (c *Correction) Len() int { return len(c.X) }

// CorrectZ re-centres pc on the Kåsa circle of its initial positions,
// shifts z0+dz so its minimum is exactly zero, and keeps the points the
// policy accepts. A threshold above every corrected Z yields an empty,
// non-nil result rather than an error.
func CorrectZ(pc *dic.PointCloud, policy FilterPolicy) (*Correction, error) {
	circle, err := fit.FitCircle(pc.X0(), pc.Y0())
	if err != nil {
		return nil, fmt.Errorf("clamp circle fit: %w", err)
	}

	recentered := pc.Shift(-circle.CenterX, -circle.CenterY)
	z := pc.FinalZ()
	zMin := floats.Min(z)
	for i := range z {
		z[i] -= zMin
	}

	out := &Correction{
		Circle:         circle,
		Recentered:     recentered,
		CorrectedZ:     z,
		X:              []float64{},
		Y:              []float64{},
		CorrectedDispZ: []float64{},
		DX:             []float64{},
		DY:             []float64{},
	}
	for i := 0; i < recentered.Len(); i++ {
		if !policy.keep(z[i]) {
			continue
		}
		p := recentered.At(i)
		out.X = append(out.X, p.X0)
		out.Y = append(out.Y, p.Y0)
		out.CorrectedDispZ = append(out.CorrectedDispZ, z[i])
		out.DX = append(out.DX, p.DX)
		out.DY = append(out.DY, p.DY)
	}
	return out, nil
}

// DisplacementFits holds the surface fits of the displacement-field
// workflow, all over the retained (x', y').
type DisplacementFits struct {
	DispX, DispY, DispZ *fit.SurfaceFit
}

// FitDisplacementField fits degree-d surfaces to dx, dy and the corrected Z
// of the retained points.
func FitDisplacementField(c *Correction, degree int) (*DisplacementFits, error) {
	dx, err := fit.FitSurface(c.X, c.Y, c.DX, degree)
	if err != nil {
		return nil, fmt.Errorf("disp X: %w", err)
	}
	dy, err := fit.FitSurface(c.X, c.Y, c.DY, degree)
	if err != nil {
		return nil, fmt.Errorf("disp Y: %w", err)
	}
	dz, err := fit.FitSurface(c.X, c.Y, c.CorrectedDispZ, degree)
	if err != nil {
		return nil, fmt.Errorf("disp Z: %w", err)
	}
	return &DisplacementFits{DispX: dx, DispY: dy, DispZ: dz}, nil
}
