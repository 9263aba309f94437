// Package store persists origin estimation runs in SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/banshee-data/bubble.report/internal/batch"
	"github.com/banshee-data/bubble.report/internal/bubble"
	"github.com/banshee-data/bubble.report/internal/timeutil"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA foreign_keys=ON",
}

// ErrRunNotFound is returned by GetRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Store wraps the estimates database.
type Store struct {
	db    *sql.DB
	clock timeutil.Clock
}

// Run is one invocation of the batch tool.
type Run struct {
	RunID       string
	StartedUnix int64
	Label       string
	ConfigJSON  string
}

// EstimateRow is one method's outcome for one frame. X and Y are invalid
// when the method failed, in which case Error holds the reason.
type EstimateRow struct {
	RunID  string
	Test   string
	Frame  string
	Method string
	X, Y   sql.NullFloat64
	Error  string
}

// Open opens (creating if needed) the database at path, applies the
// connection PRAGMAs and migrates the schema to the latest version.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps the per-connection PRAGMAs (foreign_keys in
	// particular) in force for every statement.
	db.SetMaxOpenConns(1)
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", p, err)
		}
	}
	s := &Store{db: db, clock: timeutil.RealClock{}}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// SetClock replaces the clock used for run timestamps.
func (s *Store) SetClock(c timeutil.Clock) { s.clock = c }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// CreateRun records a new run with a fresh UUID.
func (s *Store) CreateRun(label, configJSON string) (*Run, error) {
	if configJSON == "" {
		configJSON = "{}"
	}
	run := &Run{
		RunID:       uuid.New().String(),
		StartedUnix: s.clock.Now().Unix(),
		Label:       label,
		ConfigJSON:  configJSON,
	}
	err := retryOnBusy(func() error {
		_, err := s.db.Exec(`INSERT INTO runs (run_id, started_unix, label, config_json) VALUES (?, ?, ?, ?)`,
			run.RunID, run.StartedUnix, run.Label, run.ConfigJSON)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns() ([]*Run, error) {
	rows, err := s.db.Query(`
		SELECT run_id, started_unix, label, config_json
		FROM runs
		ORDER BY started_unix DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RunID, &r.StartedUnix, &r.Label, &r.ConfigJSON); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// GetRun returns one run by ID.
func (s *Store) GetRun(runID string) (*Run, error) {
	var r Run
	err := s.db.QueryRow(`
		SELECT run_id, started_unix, label, config_json
		FROM runs WHERE run_id = ?`, runID).Scan(&r.RunID, &r.StartedUnix, &r.Label, &r.ConfigJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	return &r, nil
}

// InsertEstimates writes rows in a single transaction.
func (s *Store) InsertEstimates(rows []EstimateRow) error {
	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		stmt, err := tx.Prepare(`
			INSERT INTO origin_estimates (run_id, test, frame, method, x, y, error)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			tx.Rollback()
			return err
		}
		defer stmt.Close()
		for _, r := range rows {
			var errText interface{}
			if r.Error != "" {
				errText = r.Error
			}
			if _, err := stmt.Exec(r.RunID, r.Test, r.Frame, r.Method, r.X, r.Y, errText); err != nil {
				tx.Rollback()
				return fmt.Errorf("insert estimate %s/%s: %w", r.Frame, r.Method, err)
			}
		}
		return tx.Commit()
	})
}

// ListEstimates returns the rows of a run in insertion order.
func (s *Store) ListEstimates(runID string) ([]EstimateRow, error) {
	rows, err := s.db.Query(`
		SELECT run_id, test, frame, method, x, y, error
		FROM origin_estimates
		WHERE run_id = ?
		ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("query estimates: %w", err)
	}
	defer rows.Close()

	var out []EstimateRow
	for rows.Next() {
		var r EstimateRow
		var errText sql.NullString
		if err := rows.Scan(&r.RunID, &r.Test, &r.Frame, &r.Method, &r.X, &r.Y, &errText); err != nil {
			return nil, fmt.Errorf("scan estimate: %w", err)
		}
		r.Error = errText.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// RowsForFrame flattens a frame result into one row per method. Methods
// that failed carry their own error; when the frame failed as a whole every
// row carries the frame error.
func RowsForFrame(runID, test string, res batch.FrameResult) []EstimateRow {
	methodErrs := bubble.MethodErrors(res.Err)

	rows := make([]EstimateRow, 0, len(bubble.Methods))
	for _, m := range bubble.Methods {
		row := EstimateRow{RunID: runID, Test: test, Frame: res.Frame, Method: m.String()}
		if est, ok := res.Estimate(m); ok {
			row.X = sql.NullFloat64{Float64: est.X, Valid: true}
			row.Y = sql.NullFloat64{Float64: est.Y, Valid: true}
		} else if err, ok := methodErrs[m]; ok {
			row.Error = err.Error()
		} else if res.Err != nil {
			row.Error = res.Err.Error()
		} else {
			row.Error = "no estimate"
		}
		rows = append(rows, row)
	}
	return rows
}

// retryOnBusy retries f while SQLite reports the database as locked.
func retryOnBusy(f func() error) error {
	var err error
	for attempt := 0; attempt < 5; attempt++ {
		if err = f(); err == nil || !isBusy(err) {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
	}
	return err
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
