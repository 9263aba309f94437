// Package api serves stored origin runs and live frame analysis over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/banshee-data/bubble.report/internal/bubble"
	"github.com/banshee-data/bubble.report/internal/fsutil"
	"github.com/banshee-data/bubble.report/internal/monitoring"
	"github.com/banshee-data/bubble.report/internal/store"
	"github.com/banshee-data/bubble.report/internal/timeutil"
)

// ANSI escape codes for the request log.
const (
	colorCyan      = "\033[36m"
	colorReset     = "\033[0m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

// Server exposes a Store and a folder of frames.
type Server struct {
	store *store.Store
	fsys  fsutil.FileSystem
	// dataRoot bounds the frame paths clients may request.
	dataRoot         string
	est              *bubble.Estimator
	removeStationary bool
}

// NewServer returns a Server. dataRoot may be empty, in which case the frame
// endpoints answer 404.
func NewServer(st *store.Store, fsys fsutil.FileSystem, dataRoot string, est *bubble.Estimator, removeStationary bool) *Server {
	return &Server{
		store:            st,
		fsys:             fsys,
		dataRoot:         dataRoot,
		est:              est,
		removeStationary: removeStationary,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, URI, status and duration of each request.
func LoggingMiddleware(clock timeutil.Clock, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := clock.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %.2fms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(clock.Since(start).Microseconds())/1e3,
		)
	})
}

// ServeMux returns the API routes, relative to the /api prefix.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/runs", s.listRuns)
	mux.HandleFunc("/estimates", s.listEstimates)
	mux.HandleFunc("/summary", s.showSummary)
	mux.HandleFunc("/frame", s.showFrame)
	mux.HandleFunc("/frame.html", s.showFrameHTML)
	mux.HandleFunc("/config", s.showConfig)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("failed to encode json response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// allowGet rejects anything but GET and reports whether to continue.
func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

// requireRun resolves the run_id query parameter, writing the error
// response itself when it cannot.
func (s *Server) requireRun(w http.ResponseWriter, r *http.Request) (*store.Run, bool) {
	id := r.URL.Query().Get("run_id")
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "missing 'run_id' parameter")
		return nil, false
	}
	run, err := s.store.GetRun(id)
	if errors.Is(err, store.ErrRunNotFound) {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return run, true
}
