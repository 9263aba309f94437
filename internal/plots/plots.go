// Package plots renders the analysis figures: displacement scatters with
// origin markers, surface fit residual maps, per-test origin histograms,
// and an interactive HTML scatter.
package plots

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"github.com/banshee-data/bubble.report/internal/bubble"
	"github.com/banshee-data/bubble.report/internal/fsutil"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Default PNG size.
const (
	Width  = 8 * vg.Inch
	Height = 7 * vg.Inch
)

var methodColors = map[bubble.Method]color.Color{
	bubble.CircleFit:           color.RGBA{R: 214, G: 39, B: 40, A: 255},
	bubble.ExtremaIntersection: color.RGBA{R: 31, G: 119, B: 180, A: 255},
	bubble.RawMedian:           color.RGBA{R: 44, G: 160, B: 44, A: 255},
	bubble.PolyFitMedian:       color.RGBA{R: 148, G: 103, B: 189, A: 255},
	bubble.PolyFitPeak:         color.RGBA{R: 255, G: 127, B: 14, A: 255},
}

var methodGlyphs = map[bubble.Method]draw.GlyphDrawer{
	bubble.CircleFit:           draw.CrossGlyph{},
	bubble.ExtremaIntersection: draw.PlusGlyph{},
	bubble.RawMedian:           draw.TriangleGlyph{},
	bubble.PolyFitMedian:       draw.BoxGlyph{},
	bubble.PolyFitPeak:         draw.PyramidGlyph{},
}

// MethodColor returns the colour used for m in every figure.
func MethodColor(m bubble.Method) color.Color {
	if c, ok := methodColors[m]; ok {
		return c
	}
	return color.Black
}

// ColoredScatter plots (x[i], y[i]) coloured by v[i] on a diverging map.
// Axes are equal-scaled so circles stay round.
func ColoredScatter(title, xLabel, yLabel string, x, y, v []float64) (*plot.Plot, error) {
	if len(x) != len(y) || len(x) != len(v) {
		return nil, fmt.Errorf("scatter needs equal columns, got %d/%d/%d", len(x), len(y), len(v))
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())
	if len(x) == 0 {
		return p, nil
	}

	pts := make(plotter.XYs, len(x))
	lo, hi := v[0], v[0]
	for i := range x {
		pts[i] = plotter.XY{X: x[i], Y: y[i]}
		lo, hi = min(lo, v[i]), max(hi, v[i])
	}
	if hi == lo {
		hi = lo + 1
	}
	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(lo)
	cmap.SetMax(hi)

	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}
	sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		c, err := cmap.At(v[i])
		if err != nil {
			c = color.Gray{Y: 128}
		}
		return draw.GlyphStyle{Color: c, Radius: vg.Points(1.5), Shape: draw.CircleGlyph{}}
	}
	p.Add(sc)
	equalAxes(p)
	return p, nil
}

// AddOrigins overlays one marker per finite estimate and adds them to the
// legend.
func AddOrigins(p *plot.Plot, ests []bubble.Estimate) error {
	for _, e := range ests {
		if math.IsNaN(e.X) || math.IsNaN(e.Y) || math.IsInf(e.X, 0) || math.IsInf(e.Y, 0) {
			continue
		}
		sc, err := plotter.NewScatter(plotter.XYs{{X: e.X, Y: e.Y}})
		if err != nil {
			return fmt.Errorf("%v marker: %w", e.Method, err)
		}
		sc.GlyphStyle = draw.GlyphStyle{
			Color:  MethodColor(e.Method),
			Radius: vg.Points(6),
			Shape:  methodGlyphs[e.Method],
		}
		p.Add(sc)
		p.Legend.Add(fmt.Sprintf("%s (%.2f, %.2f)", e.Method.Title(), e.X, e.Y), sc)
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return nil
}

// equalAxes widens the shorter axis so both share one data range.
func equalAxes(p *plot.Plot) {
	dx := p.X.Max - p.X.Min
	dy := p.Y.Max - p.Y.Min
	switch {
	case dx > dy:
		c := (p.Y.Min + p.Y.Max) / 2
		p.Y.Min, p.Y.Max = c-dx/2, c+dx/2
	case dy > dx:
		c := (p.X.Min + p.X.Max) / 2
		p.X.Min, p.X.Max = c-dy/2, c+dy/2
	}
}

// SavePNG renders p at w×h and writes it to path on fsys.
func SavePNG(fsys fsutil.FileSystem, path string, p *plot.Plot, w, h vg.Length) error {
	wt, err := p.WriterTo(w, h, "png")
	if err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	if err := fsys.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
