package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/bubble.report/internal/batch"
	"github.com/banshee-data/bubble.report/internal/bubble"
	"github.com/banshee-data/bubble.report/internal/dic"
	"github.com/banshee-data/bubble.report/internal/fit"
	"github.com/banshee-data/bubble.report/internal/fsutil"
	"github.com/banshee-data/bubble.report/internal/monitoring"
	"github.com/banshee-data/bubble.report/internal/store"
	"github.com/banshee-data/bubble.report/internal/testutil"
	"github.com/banshee-data/bubble.report/internal/timeutil"
)

type fixture struct {
	srv   *Server
	mux   http.Handler
	run   *store.Run
	root  string
	store *store.Store
}

func setupTestServer(t *testing.T) *fixture {
	t.Helper()
	orig := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = orig })

	st, err := store.Open(filepath.Join(t.TempDir(), "origins.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	st.SetClock(timeutil.NewMockClock(time.Unix(1700000000, 0)))

	run, err := st.CreateRun("api", `{"polynomial_degree":4}`)
	require.NoError(t, err)

	ok := func(frame string, x, y float64) batch.FrameResult {
		res := batch.FrameResult{Frame: frame}
		for _, m := range bubble.Methods {
			res.Estimates = append(res.Estimates, bubble.Estimate{Method: m, X: x, Y: y})
		}
		return res
	}
	partial := ok("B00003", 3, 3)
	partial.Estimates = partial.Estimates[2:]
	partial.Err = errors.Join(
		&bubble.MethodError{Method: bubble.CircleFit, Err: fit.ErrDegenerateInput},
		&bubble.MethodError{Method: bubble.ExtremaIntersection, Err: fit.ErrParallelExtrema},
	)
	var rows []store.EstimateRow
	for _, res := range []batch.FrameResult{ok("B00001", 1, 1), ok("B00002", 2, 3), partial} {
		rows = append(rows, store.RowsForFrame(run.RunID, "t1", res)...)
	}
	rows = append(rows, store.RowsForFrame(run.RunID, "t2", ok("B00001", 5, 5))...)
	require.NoError(t, st.InsertEstimates(rows))

	root := t.TempDir()
	osfs := fsutil.OSFileSystem{}
	pc, err := dic.FromColumns(testutil.DomeColumns(4, 6, 45, 15, 36))
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "t1"), 0o755))
	require.NoError(t, dic.SaveCache(osfs, filepath.Join(root, "t1", "B00001.dicz"), pc))

	est, err := bubble.NewEstimator(bubble.DefaultOptions())
	require.NoError(t, err)
	srv := NewServer(st, osfs, root, est, true)
	return &fixture{srv: srv, mux: srv.ServeMux(), run: run, root: root, store: st}
}

func (f *fixture) get(t *testing.T, target string, out any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec
}

func TestListRuns(t *testing.T) {
	f := setupTestServer(t)
	var runs []runJSON
	rec := f.get(t, "/runs", &runs)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, runs, 1)
	assert.Equal(t, f.run.RunID, runs[0].RunID)
	assert.Equal(t, "2023-11-14T22:13:20Z", runs[0].StartedAt)
	assert.JSONEq(t, `{"polynomial_degree":4}`, string(runs[0].Config))
}

func TestListEstimates(t *testing.T) {
	f := setupTestServer(t)

	var all []estimateJSON
	require.Equal(t, http.StatusOK, f.get(t, "/estimates?run_id="+f.run.RunID, &all).Code)
	assert.Len(t, all, 4*len(bubble.Methods))

	var t1 []estimateJSON
	f.get(t, "/estimates?run_id="+f.run.RunID+"&test=t1", &t1)
	require.Len(t, t1, 3*len(bubble.Methods))
	failed := t1[2*len(bubble.Methods)]
	assert.Equal(t, "circle_fit", failed.Method)
	assert.Nil(t, failed.X)
	assert.Contains(t, failed.Error, "degenerate")
}

func TestListEstimates_Errors(t *testing.T) {
	f := setupTestServer(t)
	tests := []struct {
		name   string
		target string
		method string
		status int
	}{
		{"missing run id", "/estimates", http.MethodGet, http.StatusBadRequest},
		{"unknown run", "/estimates?run_id=nope", http.MethodGet, http.StatusNotFound},
		{"post", "/estimates?run_id=" + f.run.RunID, http.MethodPost, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			f.mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestShowSummary(t *testing.T) {
	f := setupTestServer(t)
	var sums []testSummaryJSON
	require.Equal(t, http.StatusOK, f.get(t, "/summary?run_id="+f.run.RunID, &sums).Code)
	require.Len(t, sums, 2)

	t1 := sums[0]
	assert.Equal(t, "t1", t1.Test)
	assert.Equal(t, 3, t1.Frames)
	require.Len(t, t1.Methods, len(bubble.Methods))

	circle := t1.Methods[0]
	assert.Equal(t, "circle_fit", circle.Method)
	assert.Equal(t, 2, circle.N)
	assert.Equal(t, 1, circle.Failed)
	require.NotNil(t, circle.MeanX)
	assert.InDelta(t, 1.5, *circle.MeanX, 1e-12)

	raw := t1.Methods[2]
	assert.Equal(t, 3, raw.N)
	require.NotNil(t, raw.MedianY)
	assert.InDelta(t, 3, *raw.MedianY, 1e-12)

	assert.Equal(t, "t2", sums[1].Test)
	assert.Equal(t, 1, sums[1].Frames)
}

func TestShowFrame(t *testing.T) {
	f := setupTestServer(t)
	var frame frameJSON
	rec := f.get(t, "/frame?path=t1/B00001.dicz", &frame)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "B00001", frame.Frame)
	assert.Equal(t, 72, frame.Points)
	require.Len(t, frame.Origins, len(bubble.Methods))
	for _, o := range frame.Origins {
		require.NotNil(t, o.X, o.Method)
		assert.InDelta(t, 4, *o.X, 1e-6, o.Method)
		assert.InDelta(t, 6, *o.Y, 1e-6, o.Method)
	}
	require.NotNil(t, frame.Extrema)
	assert.Contains(t, rec.Body.String(), `"extrema":{"min_x":{"x":`)
}

func TestShowFrame_Errors(t *testing.T) {
	f := setupTestServer(t)
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/frame", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/frame?path=../../etc/passwd", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.get(t, "/frame?path=t1/B00099.dicz", nil).Code)

	require.NoError(t, os.WriteFile(filepath.Join(f.root, "t1", "bad.dicz"), []byte("junk"), 0o644))
	assert.Equal(t, http.StatusUnprocessableEntity, f.get(t, "/frame?path=t1/bad.dicz", nil).Code)

	nan := "TITLE\nVARIABLES\nZONE\nNaN 0 1 0 0 1\n"
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "t1", "B00009.dat"), []byte(nan), 0o644))
	rec := f.get(t, "/frame?path=t1/B00009.dat", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "line 4 column 1")

	disabled := NewServer(f.store, fsutil.OSFileSystem{}, "", nil, false).ServeMux()
	rec = httptest.NewRecorder()
	disabled.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/frame?path=t1/B00001.dicz", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestShowFrameHTML(t *testing.T) {
	f := setupTestServer(t)
	rec := f.get(t, "/frame.html?path=t1/B00001.dicz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
	body := rec.Body.String()
	assert.Contains(t, body, "B00001")
	assert.Contains(t, body, "Raw Median")
	assert.Equal(t, fmt.Sprint(len(body)), rec.Header().Get("Content-Length"))
}

func TestShowConfig(t *testing.T) {
	f := setupTestServer(t)
	var cfg map[string]any
	require.Equal(t, http.StatusOK, f.get(t, "/config", &cfg).Code)
	assert.EqualValues(t, 4, cfg["polynomial_degree"])
	assert.Equal(t, "threshold(5)", cfg["z_filter"])
	assert.Equal(t, true, cfg["remove_stationary"])
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	orig := monitoring.Logf
	monitoring.Logf = func(format string, args ...interface{}) {
		buf.WriteString(strings.TrimSpace(fmt.Sprintf(format, args...)))
	}
	t.Cleanup(func() { monitoring.Logf = orig })

	clock := timeutil.NewMockClock(time.Unix(0, 0))
	h := LoggingMiddleware(clock, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clock.Advance(1500 * time.Microsecond)
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/runs", nil))

	line := buf.String()
	assert.Contains(t, line, "418")
	assert.Contains(t, line, "/runs")
	assert.Contains(t, line, "1.50ms")
}

func TestStatusCodeColor(t *testing.T) {
	assert.Equal(t, colorBoldGreen+"200"+colorReset, statusCodeColor(200))
	assert.Equal(t, colorYellow+"302"+colorReset, statusCodeColor(302))
	assert.Equal(t, colorBoldRed+"404"+colorReset, statusCodeColor(404))
	assert.Equal(t, colorBoldRed+"503"+colorReset, statusCodeColor(503))
	assert.Equal(t, "101", statusCodeColor(101))
}
