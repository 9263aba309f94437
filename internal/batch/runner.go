package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/bubble.report/internal/bubble"
	"github.com/banshee-data/bubble.report/internal/dic"
	"github.com/banshee-data/bubble.report/internal/fsutil"
	"github.com/banshee-data/bubble.report/internal/monitoring"
	"github.com/banshee-data/bubble.report/internal/timeutil"
	"golang.org/x/sync/errgroup"
)

// FrameResult is the outcome of analysing one frame. Err holds load
// failures, cancellation, or the joined *bubble.MethodError values of the
// methods that failed; Estimates still carries the methods that succeeded.
type FrameResult struct {
	Path      string
	Frame     string
	Points    int
	Estimates []bubble.Estimate
	Extrema   *bubble.Extrema
	Err       error
	Elapsed   time.Duration
}

// Estimate returns the estimate produced by method m, if any.
func (r FrameResult) Estimate(m bubble.Method) (bubble.Estimate, bool) {
	for _, e := range r.Estimates {
		if e.Method == m {
			return e, true
		}
	}
	return bubble.Estimate{}, false
}

// Runner analyses frames on a bounded pool of workers.
type Runner struct {
	FS        fsutil.FileSystem
	Estimator *bubble.Estimator
	// RemoveStationary drops points with z0 == 0 and dz == 0 before
	// estimation.
	RemoveStationary bool
	// Workers bounds concurrent frames; values below 1 mean 1.
	Workers int
	Clock   timeutil.Clock
	// OnFrame, if set, is called from the worker goroutine after each frame.
	OnFrame func(FrameResult)
}

// NewRunner returns a Runner over the OS filesystem with the real clock.
func NewRunner(est *bubble.Estimator, workers int) *Runner {
	return &Runner{
		FS:               fsutil.OSFileSystem{},
		Estimator:        est,
		RemoveStationary: true,
		Workers:          workers,
		Clock:            timeutil.RealClock{},
	}
}

// Run analyses every path and returns one result per path in input order.
// A failing frame never stops the others. Cancelling ctx marks the frames
// not yet started with the context error, and Run returns that error.
func (r *Runner) Run(ctx context.Context, paths []string) ([]FrameResult, error) {
	if r.Estimator == nil {
		return nil, errors.New("runner has no estimator")
	}
	clock := r.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]FrameResult, len(paths))
	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i, p := range paths {
		g.Go(func() error {
			res := FrameResult{Path: p, Frame: dic.FrameName(p)}
			if err := ctx.Err(); err != nil {
				res.Err = err
			} else {
				start := clock.Now()
				r.analyse(&res)
				res.Elapsed = clock.Since(start)
			}
			results[i] = res
			if r.OnFrame != nil {
				r.OnFrame(res)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results, ctx.Err()
}

func (r *Runner) analyse(res *FrameResult) {
	pc, err := dic.LoadFrame(r.FS, res.Path)
	if err != nil {
		res.Err = err
		return
	}
	if r.RemoveStationary {
		pc = pc.RemoveStationary()
	}
	res.Points = pc.Len()

	if ex, err := bubble.FindExtrema(pc); err == nil {
		res.Extrema = &ex
	}
	res.Estimates, err = r.Estimator.Estimate(pc)
	if err != nil {
		res.Err = fmt.Errorf("frame %s: %w", res.Frame, err)
		monitoring.Logf("frame %s: %d of %d methods failed: %v", res.Frame,
			len(bubble.Methods)-len(res.Estimates), len(bubble.Methods), err)
		return
	}
	monitoring.Debugf("frame %s: %d points, %d estimates", res.Frame, res.Points, len(res.Estimates))
}
