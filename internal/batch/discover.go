// Package batch runs the origin analysis over many DIC frames: frame
// discovery, a bounded worker pool with per-frame failure isolation, and
// per-batch accumulation of the estimates.
package batch

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/banshee-data/bubble.report/internal/dic"
	"github.com/banshee-data/bubble.report/internal/fsutil"
)

// DatExt is the extension of raw DIC text exports.
const DatExt = ".dat"

// Test is one bubble test folder and its frames in acquisition order.
type Test struct {
	Name   string
	Dir    string
	Frames []string
}

// DiscoverFrames lists the frames in dir. When a frame exists both as .dat
// and as a cache, the cache wins.
func DiscoverFrames(fsys fsutil.FileSystem, dir string) ([]string, error) {
	byName := make(map[string]string)
	for _, ext := range []string{DatExt, dic.CacheExt} {
		matches, err := fsys.Glob(filepath.Join(dir, "*"+ext))
		if err != nil {
			return nil, fmt.Errorf("failed to list %s frames in %s: %w", ext, dir, err)
		}
		for _, m := range matches {
			byName[dic.FrameName(m)] = m
		}
	}
	frames := make([]string, 0, len(byName))
	for _, p := range byName {
		frames = append(frames, p)
	}
	sort.Slice(frames, func(i, j int) bool {
		return dic.FrameName(frames[i]) < dic.FrameName(frames[j])
	})
	return frames, nil
}

// DiscoverTests finds the test folders directly below root that contain at
// least one frame, sorted by name.
func DiscoverTests(fsys fsutil.FileSystem, root string) ([]Test, error) {
	dirs := make(map[string]bool)
	for _, ext := range []string{DatExt, dic.CacheExt} {
		matches, err := fsys.Glob(filepath.Join(root, "*", "*"+ext))
		if err != nil {
			return nil, fmt.Errorf("failed to list tests in %s: %w", root, err)
		}
		for _, m := range matches {
			dirs[filepath.Dir(m)] = true
		}
	}

	tests := make([]Test, 0, len(dirs))
	for d := range dirs {
		frames, err := DiscoverFrames(fsys, d)
		if err != nil {
			return nil, err
		}
		tests = append(tests, Test{Name: filepath.Base(d), Dir: d, Frames: frames})
	}
	sort.Slice(tests, func(i, j int) bool { return strings.Compare(tests[i].Name, tests[j].Name) < 0 })
	return tests, nil
}
