// Package security guards the paths batch tools write to.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/bubble.report/internal/fsutil"
)

// ErrOutputExists is returned when a tool would write into an existing
// output directory.
var ErrOutputExists = errors.New("output directory already exists")

// canonical resolves symlinks in p, or in its deepest existing ancestor when
// p does not exist yet, so /safe/link/new.png with link -> /etc resolves
// under /etc.
func canonical(p string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(p))
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	for dir := filepath.Dir(abs); ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			rest, _ := filepath.Rel(dir, abs)
			return filepath.Join(resolved, rest), nil
		}
		if dir == filepath.Dir(dir) {
			return abs, nil
		}
	}
}

// ValidatePathWithinDirectory returns an error unless filePath, after
// resolving .. components and symlinks, lies inside root.
func ValidatePathWithinDirectory(filePath, root string) error {
	p, err := canonical(filePath)
	if err != nil {
		return err
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("failed to resolve root path: %w", err)
	}
	r, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return fmt.Errorf("failed to resolve root symlinks: %w", err)
	}
	rel, err := filepath.Rel(r, p)
	if err != nil {
		return fmt.Errorf("path is outside %s: %w", root, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path traversal detected: %s escapes %s", filePath, root)
	}
	return nil
}

// ValidateOutputPath checks that filePath is inside one of roots. With no
// roots it allows the working directory and the temp directory.
func ValidateOutputPath(filePath string, roots ...string) error {
	if len(roots) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		roots = []string{cwd, os.TempDir()}
	}
	for _, r := range roots {
		if ValidatePathWithinDirectory(filePath, r) == nil {
			return nil
		}
	}
	return fmt.Errorf("output path %s must be within one of %v", filePath, roots)
}

// RequireFreshDir fails with ErrOutputExists when dir is already present,
// then creates it. Conversion runs never overwrite earlier output.
func RequireFreshDir(fsys fsutil.FileSystem, dir string) error {
	if fsys.Exists(dir) {
		return fmt.Errorf("%w: %s", ErrOutputExists, dir)
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return nil
}

// SanitizeFilename maps an arbitrary label (test folder, frame name) to a
// safe file name component: runs of characters other than ASCII letters,
// digits, '.', '_' and '-' become one underscore, the result is capped at
// 128 bytes, and an empty result becomes "unknown".
func SanitizeFilename(s string) string {
	const maxLen = 128
	var b strings.Builder
	pendingUnderscore := false
	for _, r := range s {
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '.' || r == '_' || r == '-'
		if !ok {
			pendingUnderscore = true
			continue
		}
		if pendingUnderscore && b.Len() > 0 {
			b.WriteByte('_')
		}
		pendingUnderscore = false
		if b.Len() >= maxLen {
			break
		}
		b.WriteRune(r)
	}
	out := strings.Trim(b.String(), "._")
	if len(out) > maxLen {
		out = out[:maxLen]
	}
	if out == "" {
		return "unknown"
	}
	return out
}
