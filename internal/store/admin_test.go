package store

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/bubble.report/internal/timeutil"
)

func TestGetRun(t *testing.T) {
	s := openTestStore(t)
	run, err := s.CreateRun("get", `{"workers":2}`)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	got, err := s.GetRun(run.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if *got != *run {
		t.Errorf("GetRun = %+v, want %+v", got, run)
	}

	if _, err := s.GetRun("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun(missing) error = %v, want ErrRunNotFound", err)
	}
}

func TestBackup(t *testing.T) {
	s := openTestStore(t)
	run, err := s.CreateRun("backup", "")
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	path := filepath.Join(t.TempDir(), "copy.db")
	if err := s.Backup(path); err != nil {
		t.Fatalf("Backup: %v", err)
	}
	copied, err := Open(path)
	if err != nil {
		t.Fatalf("Open backup: %v", err)
	}
	defer copied.Close()
	if _, err := copied.GetRun(run.RunID); err != nil {
		t.Errorf("run missing from backup: %v", err)
	}

	if err := s.Backup(path); err == nil {
		t.Error("Backup over an existing file should fail")
	}
}

func TestHandleBackup(t *testing.T) {
	s := openTestStore(t)
	s.SetClock(timeutil.NewMockClock(time.Unix(1700000000, 0)))

	rec := httptest.NewRecorder()
	s.handleBackup(rec, httptest.NewRequest(http.MethodGet, "/debug/backup", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "origins-1700000000.db") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.HasPrefix(rec.Body.String(), "SQLite format 3") {
		t.Error("backup body is not a SQLite database")
	}
}

func TestAttachAdminRoutes(t *testing.T) {
	s := openTestStore(t)
	if err := s.AttachAdminRoutes(http.NewServeMux()); err != nil {
		t.Fatalf("AttachAdminRoutes: %v", err)
	}
}
