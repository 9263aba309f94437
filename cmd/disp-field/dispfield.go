package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/banshee-data/bubble.report/internal/bubble"
	"github.com/banshee-data/bubble.report/internal/config"
	"github.com/banshee-data/bubble.report/internal/dic"
	"github.com/banshee-data/bubble.report/internal/fit"
	"github.com/banshee-data/bubble.report/internal/fsutil"
	"github.com/banshee-data/bubble.report/internal/monitoring"
	"github.com/banshee-data/bubble.report/internal/plots"
)

type fieldResult struct {
	Name string
	Fit  *fit.SurfaceFit
	Z    []float64
}

type dispField struct {
	Frame      string
	Correction *bubble.Correction
	Fields     []fieldResult
}

// analyse drops the fixture points when the config asks for it, re-centres
// the frame on its clamp circle, filters by corrected Z and fits a surface
// to each displacement component.
func analyse(fsys fsutil.FileSystem, path string, cfg *config.AnalysisConfig, degree int) (*dispField, error) {
	pc, err := dic.LoadFrame(fsys, path)
	if err != nil {
		return nil, err
	}
	if cfg.GetRemoveStationary() {
		pc = pc.RemoveStationary()
	}
	c, err := bubble.CorrectZ(pc, cfg.FilterPolicy())
	if err != nil {
		return nil, err
	}
	monitoring.Debugf("%s: clamp circle (%.4f, %.4f) r=%.4f, %d of %d points kept",
		path, c.Circle.CenterX, c.Circle.CenterY, c.Circle.Radius, c.Len(), pc.Len())

	fits, err := bubble.FitDisplacementField(c, degree)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &dispField{
		Frame:      dic.FrameName(path),
		Correction: c,
		Fields: []fieldResult{
			{Name: "disp_x", Fit: fits.DispX, Z: c.DX},
			{Name: "disp_y", Fit: fits.DispY, Z: c.DY},
			{Name: "disp_z", Fit: fits.DispZ, Z: c.CorrectedDispZ},
		},
	}, nil
}

func (d *dispField) writeSummary(w io.Writer) {
	c := d.Correction.Circle
	fmt.Fprintf(w, "frame %s: clamp centre (%.4f, %.4f) radius %.4f mm, %d points retained\n",
		d.Frame, c.CenterX, c.CenterY, c.Radius, d.Correction.Len())
	for _, f := range d.Fields {
		if r2, err := f.Fit.CoefficientOfDetermination(); err != nil {
			fmt.Fprintf(w, "%-7s SSR=%.6g R²=n/a (%v)\n", f.Name, f.Fit.SSRes, err)
		} else {
			fmt.Fprintf(w, "%-7s SSR=%.6g R²=%.6f\n", f.Name, f.Fit.SSRes, r2)
		}
	}
}

// writePlots saves one residual map per field into dir.
func (d *dispField) writePlots(fsys fsutil.FileSystem, dir string) ([]string, error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var written []string
	for _, f := range d.Fields {
		p, err := plots.ResidualFigure(d.Frame+" "+f.Name+" residuals", f.Fit, d.Correction.X, d.Correction.Y, f.Z)
		if err != nil {
			return written, err
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_%s_residuals.png", d.Frame, f.Name))
		if err := plots.SavePNG(fsys, path, p, plots.Width, plots.Height); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}
