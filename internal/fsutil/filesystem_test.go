package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_RoundTripAndGlob(t *testing.T) {
	fsys := OSFileSystem{}
	dir := t.TempDir()

	if err := fsys.MkdirAll(filepath.Join(dir, "Test01_TecData"), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	for _, name := range []string{"B00002.dat", "B00001.dat", "notes.txt"} {
		if err := fsys.WriteFile(filepath.Join(dir, "Test01_TecData", name), []byte(name), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	data, err := fsys.ReadFile(filepath.Join(dir, "Test01_TecData", "B00001.dat"))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "B00001.dat" {
		t.Errorf("ReadFile = %q", data)
	}

	matches, err := fsys.Glob(filepath.Join(dir, "*TecData*", "*.dat"))
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	if len(matches) != 2 || filepath.Base(matches[0]) != "B00001.dat" {
		t.Errorf("Glob = %v, want sorted B00001.dat, B00002.dat", matches)
	}

	if fsys.Exists(filepath.Join(dir, "missing")) {
		t.Error("expected missing path to not exist")
	}
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if err := mfs.WriteFile("/data/B00001.dat", []byte("frame"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	data, err := mfs.ReadFile("/data/B00001.dat")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "frame" {
		t.Errorf("expected %q, got %q", "frame", data)
	}

	// Mutating the returned slice must not change the stored file.
	data[0] = 'X'
	again, _ := mfs.ReadFile("/data/B00001.dat")
	if string(again) != "frame" {
		t.Errorf("stored data mutated: %q", again)
	}

	if !mfs.Exists("/data") {
		t.Error("expected parent directory to exist")
	}
	if _, err := mfs.ReadFile("/data/missing.dat"); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestMemoryFileSystem_Glob(t *testing.T) {
	mfs := NewMemoryFileSystem()
	for _, name := range []string{
		"/tests/A_TecData/B00002.dat",
		"/tests/A_TecData/B00001.dat",
		"/tests/A_TecData/sub/B00003.dat",
		"/tests/B_TecData/B00001.dat",
		"/tests/A_TecData/readme.txt",
	} {
		if err := mfs.WriteFile(name, nil, 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	matches, err := mfs.Glob("/tests/*TecData/*.dat")
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	want := []string{
		"/tests/A_TecData/B00001.dat",
		"/tests/A_TecData/B00002.dat",
		"/tests/B_TecData/B00001.dat",
	}
	if len(matches) != len(want) {
		t.Fatalf("Glob = %v, want %v", matches, want)
	}
	for i := range want {
		if matches[i] != want[i] {
			t.Errorf("match %d = %q, want %q", i, matches[i], want[i])
		}
	}

	if _, err := mfs.Glob("[unterminated"); err == nil {
		t.Error("expected bad pattern error")
	}
}

func TestMemoryFileSystem_RemoveAll(t *testing.T) {
	fsys := NewMemoryFileSystem()
	for _, name := range []string{"cache/B00001.dicz", "cache/sub/B00002.dicz", "cache2/B00001.dicz"} {
		if err := fsys.WriteFile(filepath.FromSlash(name), []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	if err := fsys.RemoveAll("cache"); err != nil {
		t.Fatalf("RemoveAll failed: %v", err)
	}
	for _, gone := range []string{"cache", "cache/sub", "cache/B00001.dicz", "cache/sub/B00002.dicz"} {
		if fsys.Exists(filepath.FromSlash(gone)) {
			t.Errorf("%s still exists", gone)
		}
	}
	if !fsys.Exists(filepath.FromSlash("cache2/B00001.dicz")) {
		t.Error("RemoveAll removed a sibling with a shared prefix")
	}
}
