package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/bubble.report/internal/batch"
	"github.com/banshee-data/bubble.report/internal/dic"
	"github.com/banshee-data/bubble.report/internal/fsutil"
	"github.com/banshee-data/bubble.report/internal/monitoring"
	"github.com/banshee-data/bubble.report/internal/security"
)

type converter struct {
	fsys             fsutil.FileSystem
	removeStationary bool
	workers          int
}

type conversion struct {
	Frames int
	Points int64
	Kept   int64
}

// convert writes one cache per .dat frame in inDir to outDir, which must not
// exist yet. The first failing frame cancels the rest and outDir is removed
// so the conversion can be rerun.
func (c *converter) convert(ctx context.Context, inDir, outDir string) (*conversion, error) {
	frames, err := c.fsys.Glob(filepath.Join(inDir, "*"+batch.DatExt))
	if err != nil {
		return nil, fmt.Errorf("failed to list frames in %s: %w", inDir, err)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no %s frames in %s", batch.DatExt, inDir)
	}
	sort.Strings(frames)
	if err := security.RequireFreshDir(c.fsys, outDir); err != nil {
		return nil, err
	}

	var points, kept atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(c.workers, 1))
	for _, src := range frames {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			pc, err := dic.LoadFrame(c.fsys, src)
			if err != nil {
				return err
			}
			points.Add(int64(pc.Len()))
			if c.removeStationary {
				pc = pc.RemoveStationary()
			}
			kept.Add(int64(pc.Len()))

			dst := filepath.Join(outDir, dic.FrameName(src)+dic.CacheExt)
			if err := dic.SaveCache(c.fsys, dst, pc); err != nil {
				return err
			}
			monitoring.Debugf("%s -> %s (%d points)", src, dst, pc.Len())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if rmErr := c.fsys.RemoveAll(outDir); rmErr != nil {
			monitoring.Logf("failed to remove partial output %s: %v", outDir, rmErr)
		}
		return nil, err
	}
	return &conversion{Frames: len(frames), Points: points.Load(), Kept: kept.Load()}, nil
}
