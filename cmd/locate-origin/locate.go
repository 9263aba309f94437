package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/banshee-data/bubble.report/internal/bubble"
	"github.com/banshee-data/bubble.report/internal/config"
	"github.com/banshee-data/bubble.report/internal/dic"
	"github.com/banshee-data/bubble.report/internal/fsutil"
)

// originJSON is one estimate in the JSON report. X and Y are null for a
// failed method.
type originJSON struct {
	Method string   `json:"method"`
	X      *float64 `json:"x"`
	Y      *float64 `json:"y"`
	Error  string   `json:"error,omitempty"`
}

type report struct {
	Frame     string          `json:"frame"`
	Points    int             `json:"points"`
	Removed   int             `json:"stationary_removed"`
	Origins   []originJSON    `json:"origins"`
	Peak      *originJSON     `json:"polyfit_peak,omitempty"`
	Extrema   *bubble.Extrema `json:"extrema,omitempty"`
	estimates []bubble.Estimate
	cloud     *dic.PointCloud
}

// locate loads one frame and runs every origin method on it.
func locate(fsys fsutil.FileSystem, path string, cfg *config.AnalysisConfig) (*report, error) {
	opts, err := cfg.ToOptions()
	if err != nil {
		return nil, err
	}
	est, err := bubble.NewEstimator(opts)
	if err != nil {
		return nil, err
	}
	pc, err := dic.LoadFrame(fsys, path)
	if err != nil {
		return nil, err
	}
	total := pc.Len()
	if cfg.GetRemoveStationary() {
		pc = pc.RemoveStationary()
	}

	r := &report{Frame: dic.FrameName(path), Points: pc.Len(), Removed: total - pc.Len(), cloud: pc}
	ests, estErr := est.Estimate(pc)
	r.estimates = ests

	failed := bubble.MethodErrors(estErr)
	for _, m := range bubble.Methods {
		o := originJSON{Method: m.String()}
		for _, e := range ests {
			if e.Method == m {
				o.X, o.Y = finitePtr(e.X), finitePtr(e.Y)
			}
		}
		if err, ok := failed[m]; ok {
			o.Error = err.Error()
		}
		r.Origins = append(r.Origins, o)
	}

	if peak, err := bubble.PolyFitPeakOrigin(pc, opts.Degree, opts.GridNX, opts.GridNY); err == nil {
		r.Peak = &originJSON{Method: peak.Method.String(), X: finitePtr(peak.X), Y: finitePtr(peak.Y)}
	}
	if ex, err := bubble.FindExtrema(pc); err == nil {
		r.Extrema = &ex
	}
	return r, nil
}

// finitePtr returns nil for NaN and ±Inf, which JSON cannot carry.
func finitePtr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func writeText(w io.Writer, r *report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "frame %s: %d points (%d stationary removed)\n", r.Frame, r.Points, r.Removed)
	fmt.Fprintln(tw, "method\tx (mm)\ty (mm)\t")
	rows := append([]originJSON(nil), r.Origins...)
	if r.Peak != nil {
		rows = append(rows, *r.Peak)
	}
	for _, o := range rows {
		if o.X == nil || o.Y == nil {
			msg := o.Error
			if msg == "" {
				msg = "non-finite"
			}
			fmt.Fprintf(tw, "%s\t-\t-\t%s\n", o.Method, msg)
			continue
		}
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t\n", o.Method, *o.X, *o.Y)
	}
	if r.Extrema != nil {
		fmt.Fprintf(tw, "max z at\t%.4f\t%.4f\t\n", r.Extrema.ZMax.X, r.Extrema.ZMax.Y)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, r *report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
