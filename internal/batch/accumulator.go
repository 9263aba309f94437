package batch

import (
	"math"

	"github.com/banshee-data/bubble.report/internal/bubble"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// MethodSummary summarises one method's estimates across a batch.
type MethodSummary struct {
	Method bubble.Method
	// N counts frames with a finite estimate; Failed counts the rest.
	N      int
	Failed int

	MeanX, MeanY     float64
	StdX, StdY       float64
	MedianX, MedianY float64
}

// OriginAccumulator collects the origin estimates of one batch, typically
// one bubble test. It is not safe for concurrent use; feed it after the
// runner has returned.
type OriginAccumulator struct {
	frames int
	xs, ys map[bubble.Method][]float64
	failed map[bubble.Method]int
}

// NewOriginAccumulator returns an empty accumulator.
func NewOriginAccumulator() *OriginAccumulator {
	return &OriginAccumulator{
		xs:     make(map[bubble.Method][]float64),
		ys:     make(map[bubble.Method][]float64),
		failed: make(map[bubble.Method]int),
	}
}

// Add records a frame. Methods missing from the frame, or with a
// non-finite estimate, count as failed for that frame.
func (a *OriginAccumulator) Add(r FrameResult) {
	a.frames++
	for _, m := range bubble.Methods {
		e, ok := r.Estimate(m)
		if !ok || !finite(e.X) || !finite(e.Y) {
			a.failed[m]++
			continue
		}
		a.xs[m] = append(a.xs[m], e.X)
		a.ys[m] = append(a.ys[m], e.Y)
	}
}

// Frames returns the number of frames added.
func (a *OriginAccumulator) Frames() int { return a.frames }

// Values returns copies of the recorded X and Y estimates for m.
func (a *OriginAccumulator) Values(m bubble.Method) (xs, ys []float64) {
	return append([]float64(nil), a.xs[m]...), append([]float64(nil), a.ys[m]...)
}

// Summary returns the statistics of method m. Mean, spread and median are
// NaN when the method produced no estimates.
func (a *OriginAccumulator) Summary(m bubble.Method) MethodSummary {
	s := MethodSummary{Method: m, N: len(a.xs[m]), Failed: a.failed[m]}
	if s.N == 0 {
		nan := math.NaN()
		s.MeanX, s.MeanY, s.StdX, s.StdY, s.MedianX, s.MedianY = nan, nan, nan, nan, nan, nan
		return s
	}
	s.MeanX, s.StdX = stat.MeanStdDev(a.xs[m], nil)
	s.MeanY, s.StdY = stat.MeanStdDev(a.ys[m], nil)
	s.MedianX = median(a.xs[m])
	s.MedianY = median(a.ys[m])
	return s
}

// Summaries returns Summary for every method in bubble.Methods order.
func (a *OriginAccumulator) Summaries() []MethodSummary {
	out := make([]MethodSummary, 0, len(bubble.Methods))
	for _, m := range bubble.Methods {
		out = append(out, a.Summary(m))
	}
	return out
}

// Reduce folds results into a fresh accumulator.
func Reduce(results []FrameResult) *OriginAccumulator {
	a := NewOriginAccumulator()
	for _, r := range results {
		a.Add(r)
	}
	return a
}

func median(v []float64) float64 {
	m, err := stats.Median(v)
	if err != nil {
		return math.NaN()
	}
	return m
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
