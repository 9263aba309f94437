package plots

import (
	"fmt"
	"io"
	"math"

	"github.com/banshee-data/bubble.report/internal/bubble"
	"github.com/banshee-data/bubble.report/internal/dic"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/floats"
)

// echartsAssetsHost serves the echarts JavaScript for rendered pages.
const echartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// WriteOriginHTML renders an interactive scatter of the frame's deformed
// positions coloured by final Z, with one series per finite origin estimate.
func WriteOriginHTML(w io.Writer, frame string, pc *dic.PointCloud, ests []bubble.Estimate) error {
	x, y, z := pc.FinalX(), pc.FinalY(), pc.FinalZ()
	data := make([]opts.ScatterData, len(x))
	for i := range x {
		data[i] = opts.ScatterData{Value: []interface{}{x[i], y[i], z[i]}}
	}
	zMin, zMax := 0.0, 1.0
	xMin, xMax, yMin, yMax := -1.0, 1.0, -1.0, 1.0
	if len(z) > 0 {
		zMin, zMax = floats.Min(z), floats.Max(z)
		xMin, xMax = floats.Min(x), floats.Max(x)
		yMin, yMax = floats.Min(y), floats.Max(y)
	}
	pad := 0.05 * max(xMax-xMin, yMax-yMin)

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Bubble origin " + frame, Width: "900px", Height: "900px", AssetsHost: echartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: frame, Subtitle: fmt.Sprintf("points=%d estimates=%d", pc.Len(), len(ests))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: xMin - pad, Max: xMax + pad, Name: "X (mm)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: yMin - pad, Max: yMax + pad, Name: "Y (mm)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(zMin),
			Max:        float32(zMax),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	scatter.AddSeries("points", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	for _, e := range ests {
		if math.IsNaN(e.X) || math.IsNaN(e.Y) || math.IsInf(e.X, 0) || math.IsInf(e.Y, 0) {
			continue
		}
		scatter.AddSeries(e.Method.Title(),
			[]opts.ScatterData{{Value: []interface{}{e.X, e.Y}, Symbol: "diamond", SymbolSize: 16}},
			charts.WithItemStyleOpts(opts.ItemStyle{Color: hexColor(e.Method)}),
		)
	}
	return scatter.Render(w)
}

func hexColor(m bubble.Method) string {
	r, g, b, _ := MethodColor(m).RGBA()
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}
