package plots

import (
	"bytes"
	"fmt"

	"github.com/banshee-data/bubble.report/internal/batch"
	"github.com/banshee-data/bubble.report/internal/bubble"
	"github.com/banshee-data/bubble.report/internal/dic"
	"github.com/banshee-data/bubble.report/internal/fit"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// OriginFigure is the deformed X-Y scatter of a frame coloured by final Z,
// with a marker for each origin estimate.
func OriginFigure(frame string, pc *dic.PointCloud, ests []bubble.Estimate) (*plot.Plot, error) {
	p, err := ColoredScatter(
		fmt.Sprintf("%s: bubble origin (%d points)", frame, pc.Len()),
		"X (mm)", "Y (mm)",
		pc.FinalX(), pc.FinalY(), pc.FinalZ(),
	)
	if err != nil {
		return nil, err
	}
	if err := AddOrigins(p, ests); err != nil {
		return nil, err
	}
	return p, nil
}

// ResidualFigure maps the residuals of a surface fit over (x, y).
func ResidualFigure(title string, sf *fit.SurfaceFit, x, y, z []float64) (*plot.Plot, error) {
	if len(z) != len(sf.Fitted) {
		return nil, fmt.Errorf("residual map needs %d targets, got %d", len(sf.Fitted), len(z))
	}
	p, err := ColoredScatter(
		fmt.Sprintf("%s (degree %d, R²=%.5f, SSR=%.4g)", title, sf.Degree, sf.RSquared, sf.SSRes),
		"X' (mm)", "Y' (mm)",
		x, y, sf.Residuals(z),
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// HistogramBins is the bin count of the origin histograms.
const HistogramBins = 20

// OriginHistograms renders a 2×N grid of histograms, X on the top row and
// Y below, one column per method, as PNG bytes.
func OriginHistograms(title string, acc *batch.OriginAccumulator, w, h vg.Length) ([]byte, error) {
	methods := bubble.Methods
	grid := [][]*plot.Plot{make([]*plot.Plot, len(methods)), make([]*plot.Plot, len(methods))}
	for col, m := range methods {
		xs, ys := acc.Values(m)
		s := acc.Summary(m)
		for row, vals := range [][]float64{xs, ys} {
			axis, mean, std := "X", s.MeanX, s.StdX
			if row == 1 {
				axis, mean, std = "Y", s.MeanY, s.StdY
			}
			p := plot.New()
			p.Title.Text = fmt.Sprintf("%s %s", m.Title(), axis)
			p.X.Label.Text = fmt.Sprintf("origin %s (mm)", axis)
			p.Y.Label.Text = "frames"
			if len(vals) == 0 {
				p.Title.Text += " (no estimates)"
			} else {
				hist, err := plotter.NewHist(plotter.Values(vals), HistogramBins)
				if err != nil {
					return nil, fmt.Errorf("%v %s histogram: %w", m, axis, err)
				}
				hist.FillColor = MethodColor(m)
				p.Add(hist)
				p.Legend.Add(fmt.Sprintf("μ=%.3f σ=%.3f n=%d", mean, std, s.N), hist)
				p.Legend.Top = true
			}
			grid[row][col] = p
		}
	}

	img := vgimg.New(w, h)
	dc := draw.New(img)
	top := dc
	if title != "" {
		top = titled(dc, title)
	}
	tiles := draw.Tiles{
		Rows:      2,
		Cols:      len(methods),
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align(grid, tiles, top)
	for r := range grid {
		for c := range grid[r] {
			grid[r][c].Draw(canvases[r][c])
		}
	}

	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode histograms: %w", err)
	}
	return buf.Bytes(), nil
}

// titled draws a heading across the top of dc and returns the canvas below it.
func titled(dc draw.Canvas, title string) draw.Canvas {
	p := plot.New()
	sty := p.Title.TextStyle
	sty.XAlign = draw.XCenter
	sty.YAlign = draw.YTop
	pt := vg.Point{X: (dc.Min.X + dc.Max.X) / 2, Y: dc.Max.Y}
	dc.FillText(sty, pt, title)
	dc.Max.Y -= sty.Height(title) + vg.Millimeter*2
	return dc
}
