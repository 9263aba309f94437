package dic

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/banshee-data/bubble.report/internal/fsutil"
)

// LoadFrame reads a frame from fsys, choosing the decoder by extension:
// CacheExt files are decoded as compressed caches, anything else is parsed
// as a .dat export.
func LoadFrame(fsys fsutil.FileSystem, path string) (*PointCloud, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}

	var pc *PointCloud
	if strings.EqualFold(filepath.Ext(path), CacheExt) {
		pc, err = decodeCache(data)
	} else {
		pc, err = ReadDat(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pc, nil
}

// SaveCache writes pc to path in the compressed cache format.
func SaveCache(fsys fsutil.FileSystem, path string, pc *PointCloud) error {
	var buf bytes.Buffer
	if err := WriteCache(&buf, pc); err != nil {
		return err
	}
	if err := fsys.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write cache %s: %w", path, err)
	}
	return nil
}

// FrameName returns the frame identifier for a data file path, e.g.
// "B00015" for ".../B00015.dat".
func FrameName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
