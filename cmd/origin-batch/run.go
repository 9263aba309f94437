package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/banshee-data/bubble.report/internal/batch"
	"github.com/banshee-data/bubble.report/internal/dic"
	"github.com/banshee-data/bubble.report/internal/fsutil"
	"github.com/banshee-data/bubble.report/internal/monitoring"
	"github.com/banshee-data/bubble.report/internal/plots"
	"github.com/banshee-data/bubble.report/internal/security"
	"github.com/banshee-data/bubble.report/internal/store"
)

type batchJob struct {
	fsys      fsutil.FileSystem
	runner    *batch.Runner
	store     *store.Store
	run       *store.Run
	outDir    string
	histogram bool
	// framePlots writes one origin figure per frame into outDir/<test>/.
	framePlots bool
}

type testReport struct {
	Test      string
	Frames    int
	Failed    int
	Summaries []batch.MethodSummary
	Histogram string
}

func (j *batchJob) runAll(ctx context.Context, tests []batch.Test) ([]testReport, error) {
	var reports []testReport
	for _, t := range tests {
		rep, err := j.runTest(ctx, t)
		if err != nil {
			return reports, fmt.Errorf("test %s: %w", t.Name, err)
		}
		reports = append(reports, *rep)
	}
	return reports, nil
}

func (j *batchJob) runTest(ctx context.Context, t batch.Test) (*testReport, error) {
	name := security.SanitizeFilename(t.Name)
	if j.framePlots {
		dir := filepath.Join(j.outDir, name)
		if err := j.fsys.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		j.runner.OnFrame = func(res batch.FrameResult) { j.plotFrame(dir, res) }
	} else {
		j.runner.OnFrame = nil
	}

	monitoring.Logf("%s: analysing %d frames", t.Name, len(t.Frames))
	results, err := j.runner.Run(ctx, t.Frames)
	if err != nil {
		return nil, err
	}

	rep := &testReport{Test: t.Name, Frames: len(results)}
	var rows []store.EstimateRow
	for _, r := range results {
		if len(r.Estimates) == 0 {
			rep.Failed++
		}
		if j.store != nil {
			rows = append(rows, store.RowsForFrame(j.run.RunID, t.Name, r)...)
		}
	}
	if j.store != nil {
		if err := j.store.InsertEstimates(rows); err != nil {
			return nil, err
		}
	}

	acc := batch.Reduce(results)
	rep.Summaries = acc.Summaries()
	if j.histogram {
		png, err := plots.OriginHistograms(t.Name, acc, 2*plots.Width, plots.Height)
		if err != nil {
			return nil, err
		}
		rep.Histogram = filepath.Join(j.outDir, name+"_origin_hist.png")
		if err := j.fsys.MkdirAll(j.outDir, 0o755); err != nil {
			return nil, err
		}
		if err := j.fsys.WriteFile(rep.Histogram, png, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", rep.Histogram, err)
		}
	}
	return rep, nil
}

// plotFrame runs on runner workers; failures are logged, not returned.
func (j *batchJob) plotFrame(dir string, res batch.FrameResult) {
	if len(res.Estimates) == 0 {
		return
	}
	pc, err := dic.LoadFrame(j.fsys, res.Path)
	if err != nil {
		monitoring.Logf("frame plot %s: %v", res.Frame, err)
		return
	}
	if j.runner.RemoveStationary {
		pc = pc.RemoveStationary()
	}
	p, err := plots.OriginFigure(res.Frame, pc, res.Estimates)
	if err == nil {
		err = plots.SavePNG(j.fsys, filepath.Join(dir, security.SanitizeFilename(res.Frame)+".png"), p, plots.Width, plots.Height)
	}
	if err != nil {
		monitoring.Logf("frame plot %s: %v", res.Frame, err)
	}
}

func writeSummary(w io.Writer, reports []testReport) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%d frames\t%d failed\n", r.Test, r.Frames, r.Failed)
		fmt.Fprintln(tw, "  method\tn\tmean x\tmean y\tstd x\tstd y\tmedian x\tmedian y")
		for _, s := range r.Summaries {
			fmt.Fprintf(tw, "  %s\t%d\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\n",
				s.Method.Title(), s.N, s.MeanX, s.MeanY, s.StdX, s.StdY, s.MedianX, s.MedianY)
		}
	}
	tw.Flush()
}

