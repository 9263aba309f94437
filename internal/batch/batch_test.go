package batch

import (
	"bytes"
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/banshee-data/bubble.report/internal/bubble"
	"github.com/banshee-data/bubble.report/internal/dic"
	"github.com/banshee-data/bubble.report/internal/fit"
	"github.com/banshee-data/bubble.report/internal/fsutil"
	"github.com/banshee-data/bubble.report/internal/monitoring"
	"github.com/banshee-data/bubble.report/internal/testutil"
	"github.com/banshee-data/bubble.report/internal/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func domeFrame(t *testing.T, cx, cy float64) []byte {
	t.Helper()
	pc, err := dic.FromColumns(testutil.DomeColumns(cx, cy, 40, 12, 36))
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, dic.WriteDat(&buf, pc, "dome"))
	return buf.Bytes()
}

func quietLogs(t *testing.T) {
	t.Helper()
	orig := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = orig })
}

func newTestRunner(t *testing.T, fsys fsutil.FileSystem, workers int) *Runner {
	t.Helper()
	est, err := bubble.NewEstimator(bubble.DefaultOptions())
	require.NoError(t, err)
	r := NewRunner(est, workers)
	r.FS = fsys
	r.Clock = timeutil.NewMockClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return r
}

func TestDiscoverFrames_PrefersCache(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	for _, name := range []string{"B00002.dat", "B00001.dat", "B00001.dicz", "notes.txt"} {
		require.NoError(t, fsys.WriteFile(filepath.Join("t1", name), []byte("x"), 0o644))
	}

	frames, err := DiscoverFrames(fsys, "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("t1", "B00001.dicz"), filepath.Join("t1", "B00002.dat")}, frames)
}

func TestDiscoverTests(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	files := []string{
		"root/test_b/B00001.dat",
		"root/test_a/B00001.dicz",
		"root/test_a/B00002.dicz",
		"root/empty/readme.md",
	}
	for _, f := range files {
		require.NoError(t, fsys.WriteFile(filepath.FromSlash(f), []byte("x"), 0o644))
	}

	tests, err := DiscoverTests(fsys, "root")
	require.NoError(t, err)
	require.Len(t, tests, 2)
	assert.Equal(t, "test_a", tests[0].Name)
	assert.Len(t, tests[0].Frames, 2)
	assert.Equal(t, "test_b", tests[1].Name)
	assert.Equal(t, filepath.Join("root", "test_b"), tests[1].Dir)
}

func TestRunner_IsolatesFailuresAndKeepsOrder(t *testing.T) {
	quietLogs(t)
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("f/B00001.dat", domeFrame(t, 3, -2), 0o644))
	require.NoError(t, fsys.WriteFile("f/B00002.dat", []byte("h\nh\nh\n1 2 three 4 5 6\n"), 0o644))
	require.NoError(t, fsys.WriteFile("f/B00003.dat", domeFrame(t, -1, 4), 0o644))
	paths := []string{"f/B00001.dat", "f/B00002.dat", "f/B00003.dat", "f/missing.dat"}

	var mu sync.Mutex
	seen := 0
	r := newTestRunner(t, fsys, 3)
	r.OnFrame = func(FrameResult) {
		mu.Lock()
		seen++
		mu.Unlock()
	}

	results, err := r.Run(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, results, len(paths))
	assert.Equal(t, len(paths), seen)

	for i, p := range paths {
		assert.Equal(t, p, results[i].Path)
	}
	assert.Equal(t, "B00001", results[0].Frame)

	require.NoError(t, results[0].Err)
	require.Len(t, results[0].Estimates, len(bubble.Methods))
	for _, e := range results[0].Estimates {
		testutil.AssertInDelta(t, e.Method.String()+" x", e.X, 3, 1e-6)
		testutil.AssertInDelta(t, e.Method.String()+" y", e.Y, -2, 1e-6)
	}
	require.NotNil(t, results[0].Extrema)

	assert.Error(t, results[1].Err)
	assert.Contains(t, results[1].Err.Error(), "line 4")
	require.NoError(t, results[2].Err)
	ex, ok := results[2].Estimate(bubble.CircleFit)
	require.True(t, ok)
	testutil.AssertInDelta(t, "circle x", ex.X, -1, 1e-6)
	assert.Error(t, results[3].Err)
}

func TestRunner_RemoveStationary(t *testing.T) {
	quietLogs(t)
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("f/B00001.dat", domeFrame(t, 0, 0), 0o644))

	r := newTestRunner(t, fsys, 1)
	results, err := r.Run(context.Background(), []string{"f/B00001.dat"})
	require.NoError(t, err)
	// The 36 clamp ring points have z0 == 0 and dz == 0.
	assert.Equal(t, 72, results[0].Points)

	r.RemoveStationary = false
	results, err = r.Run(context.Background(), []string{"f/B00001.dat"})
	require.NoError(t, err)
	assert.Equal(t, 108, results[0].Points)
}

func TestRunner_PartialMethodFailure(t *testing.T) {
	quietLogs(t)
	fsys := fsutil.NewMemoryFileSystem()
	frame := "h\nh\nh\n0 0 1 0 0 0\n1 1 1 0 0 0\n2 2 1 0 0 0\n"
	require.NoError(t, fsys.WriteFile("f/line.dat", []byte(frame), 0o644))

	results, err := newTestRunner(t, fsys, 2).Run(context.Background(), []string{"f/line.dat"})
	require.NoError(t, err)
	res := results[0]
	testutil.AssertErrorIs(t, res.Err, fit.ErrDegenerateInput)
	var me *bubble.MethodError
	assert.True(t, errors.As(res.Err, &me))
	require.Len(t, res.Estimates, 1)
	assert.Equal(t, bubble.RawMedian, res.Estimates[0].Method)
}

func TestRunner_Cancelled(t *testing.T) {
	quietLogs(t)
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("f/B00001.dat", domeFrame(t, 0, 0), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := newTestRunner(t, fsys, 2).Run(ctx, []string{"f/B00001.dat", "f/B00001.dat"})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
		assert.Empty(t, r.Estimates)
	}
}

func TestRunner_NoEstimator(t *testing.T) {
	_, err := (&Runner{}).Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestOriginAccumulator(t *testing.T) {
	results := []FrameResult{
		{Estimates: []bubble.Estimate{
			{Method: bubble.CircleFit, X: 1, Y: 10},
			{Method: bubble.RawMedian, X: 0, Y: 0},
		}},
		{Estimates: []bubble.Estimate{
			{Method: bubble.CircleFit, X: 3, Y: 20},
			{Method: bubble.ExtremaIntersection, X: math.NaN(), Y: math.NaN()},
		}},
		{Estimates: []bubble.Estimate{
			{Method: bubble.CircleFit, X: 8, Y: 30},
		}},
		{Err: errors.New("unreadable")},
	}
	acc := Reduce(results)
	assert.Equal(t, 4, acc.Frames())

	circle := acc.Summary(bubble.CircleFit)
	assert.Equal(t, 3, circle.N)
	assert.Equal(t, 1, circle.Failed)
	assert.InDelta(t, 4, circle.MeanX, 1e-12)
	assert.InDelta(t, 20, circle.MeanY, 1e-12)
	assert.InDelta(t, 3, circle.MedianX, 1e-12)
	assert.InDelta(t, 10, circle.StdY, 1e-12)

	inter := acc.Summary(bubble.ExtremaIntersection)
	assert.Equal(t, 0, inter.N)
	assert.Equal(t, 4, inter.Failed)
	assert.True(t, math.IsNaN(inter.MeanX))

	xs, ys := acc.Values(bubble.CircleFit)
	assert.Equal(t, []float64{1, 3, 8}, xs)
	assert.Equal(t, []float64{10, 20, 30}, ys)
	xs[0] = 99
	again, _ := acc.Values(bubble.CircleFit)
	assert.Equal(t, 1.0, again[0])

	sums := acc.Summaries()
	require.Len(t, sums, len(bubble.Methods))
	for i, s := range sums {
		assert.Equal(t, bubble.Methods[i], s.Method)
	}
}
