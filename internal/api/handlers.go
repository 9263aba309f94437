package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"math"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/banshee-data/bubble.report/internal/batch"
	"github.com/banshee-data/bubble.report/internal/bubble"
	"github.com/banshee-data/bubble.report/internal/dic"
	"github.com/banshee-data/bubble.report/internal/monitoring"
	"github.com/banshee-data/bubble.report/internal/plots"
	"github.com/banshee-data/bubble.report/internal/security"
)

type runJSON struct {
	RunID     string          `json:"run_id"`
	StartedAt string          `json:"started_at"`
	Label     string          `json:"label"`
	Config    json.RawMessage `json:"config"`
}

type estimateJSON struct {
	Test   string   `json:"test,omitempty"`
	Frame  string   `json:"frame,omitempty"`
	Method string   `json:"method"`
	X      *float64 `json:"x"`
	Y      *float64 `json:"y"`
	Error  string   `json:"error,omitempty"`
}

type methodSummaryJSON struct {
	Method  string   `json:"method"`
	N       int      `json:"n"`
	Failed  int      `json:"failed"`
	MeanX   *float64 `json:"mean_x"`
	MeanY   *float64 `json:"mean_y"`
	StdX    *float64 `json:"std_x"`
	StdY    *float64 `json:"std_y"`
	MedianX *float64 `json:"median_x"`
	MedianY *float64 `json:"median_y"`
}

type testSummaryJSON struct {
	Test    string              `json:"test"`
	Frames  int                 `json:"frames"`
	Methods []methodSummaryJSON `json:"methods"`
}

type frameJSON struct {
	Frame   string          `json:"frame"`
	Points  int             `json:"points"`
	Origins []estimateJSON  `json:"origins"`
	Extrema *bubble.Extrema `json:"extrema,omitempty"`
}

// finite maps NaN and ±Inf to null, which encoding/json cannot represent.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	runs, err := s.store.ListRuns()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]runJSON, 0, len(runs))
	for _, run := range runs {
		cfg := json.RawMessage(run.ConfigJSON)
		if !json.Valid(cfg) {
			cfg = json.RawMessage("null")
		}
		out = append(out, runJSON{
			RunID:     run.RunID,
			StartedAt: time.Unix(run.StartedUnix, 0).UTC().Format(time.RFC3339),
			Label:     run.Label,
			Config:    cfg,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listEstimates(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	run, ok := s.requireRun(w, r)
	if !ok {
		return
	}
	rows, err := s.store.ListEstimates(run.RunID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	test := r.URL.Query().Get("test")
	out := make([]estimateJSON, 0, len(rows))
	for _, row := range rows {
		if test != "" && row.Test != test {
			continue
		}
		e := estimateJSON{Test: row.Test, Frame: row.Frame, Method: row.Method, Error: row.Error}
		if row.X.Valid && row.Y.Valid {
			e.X, e.Y = finite(row.X.Float64), finite(row.Y.Float64)
		}
		out = append(out, e)
	}
	writeJSON(w, http.StatusOK, out)
}

// showSummary rebuilds per-frame results from the stored rows and reduces
// them per test, in the order the tests were recorded.
func (s *Server) showSummary(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	run, ok := s.requireRun(w, r)
	if !ok {
		return
	}
	rows, err := s.store.ListEstimates(run.RunID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var tests []string
	frames := make(map[string][]batch.FrameResult)
	index := make(map[[2]string]int)
	for _, row := range rows {
		key := [2]string{row.Test, row.Frame}
		i, seen := index[key]
		if !seen {
			if _, ok := frames[row.Test]; !ok {
				tests = append(tests, row.Test)
			}
			i = len(frames[row.Test])
			index[key] = i
			frames[row.Test] = append(frames[row.Test], batch.FrameResult{Frame: row.Frame})
		}
		m, err := bubble.ParseMethod(row.Method)
		if err != nil || !row.X.Valid || !row.Y.Valid {
			continue
		}
		fr := &frames[row.Test][i]
		fr.Estimates = append(fr.Estimates, bubble.Estimate{Method: m, X: row.X.Float64, Y: row.Y.Float64})
	}

	out := make([]testSummaryJSON, 0, len(tests))
	for _, t := range tests {
		acc := batch.Reduce(frames[t])
		ts := testSummaryJSON{Test: t, Frames: acc.Frames()}
		for _, ms := range acc.Summaries() {
			ts.Methods = append(ts.Methods, methodSummaryJSON{
				Method:  ms.Method.String(),
				N:       ms.N,
				Failed:  ms.Failed,
				MeanX:   finite(ms.MeanX),
				MeanY:   finite(ms.MeanY),
				StdX:    finite(ms.StdX),
				StdY:    finite(ms.StdY),
				MedianX: finite(ms.MedianX),
				MedianY: finite(ms.MedianY),
			})
		}
		out = append(out, ts)
	}
	writeJSON(w, http.StatusOK, out)
}

// loadFrame resolves the path query parameter below dataRoot and loads the
// frame, writing the error response itself on failure.
func (s *Server) loadFrame(w http.ResponseWriter, r *http.Request) (string, *dic.PointCloud, bool) {
	if s.dataRoot == "" || s.est == nil {
		writeJSONError(w, http.StatusNotFound, "frame analysis is not enabled")
		return "", nil, false
	}
	rel := r.URL.Query().Get("path")
	if rel == "" {
		writeJSONError(w, http.StatusBadRequest, "missing 'path' parameter")
		return "", nil, false
	}
	full := filepath.Join(s.dataRoot, filepath.FromSlash(rel))
	if err := security.ValidatePathWithinDirectory(full, s.dataRoot); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid 'path' parameter")
		return "", nil, false
	}
	pc, err := dic.LoadFrame(s.fsys, full)
	if errors.Is(err, fs.ErrNotExist) {
		writeJSONError(w, http.StatusNotFound, "frame not found")
		return "", nil, false
	}
	if err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return "", nil, false
	}
	if s.removeStationary {
		pc = pc.RemoveStationary()
	}
	return dic.FrameName(full), pc, true
}

func (s *Server) showFrame(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	name, pc, ok := s.loadFrame(w, r)
	if !ok {
		return
	}
	ests, estErr := s.est.Estimate(pc)

	failed := bubble.MethodErrors(estErr)

	out := frameJSON{Frame: name, Points: pc.Len()}
	for _, m := range bubble.Methods {
		e := estimateJSON{Method: m.String()}
		for _, est := range ests {
			if est.Method == m {
				e.X, e.Y = finite(est.X), finite(est.Y)
			}
		}
		if err, ok := failed[m]; ok && e.X == nil {
			e.Error = err.Error()
		}
		out.Origins = append(out.Origins, e)
	}
	if ex, err := bubble.FindExtrema(pc); err == nil {
		out.Extrema = &ex
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) showFrameHTML(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	name, pc, ok := s.loadFrame(w, r)
	if !ok {
		return
	}
	// Failed methods are simply absent from the chart.
	ests, _ := s.est.Estimate(pc)
	var buf bytes.Buffer
	if err := plots.WriteOriginHTML(&buf, name, pc, ests); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		monitoring.Logf("failed to write frame page: %v", err)
	}
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	cfg := map[string]any{
		"data_root":         s.dataRoot,
		"remove_stationary": s.removeStationary,
	}
	if s.est != nil {
		o := s.est.Options()
		cfg["polynomial_degree"] = o.Degree
		cfg["z_filter"] = o.Filter.String()
		cfg["grid_nx"] = o.GridNX
		cfg["grid_ny"] = o.GridNY
		cfg["legacy_nan"] = o.LegacyNaN
	}
	writeJSON(w, http.StatusOK, cfg)
}
