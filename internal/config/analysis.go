package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/bubble.report/internal/bubble"
)

// DefaultConfigPath is the path to the canonical analysis defaults file.
const DefaultConfigPath = "config/analysis.defaults.json"

const maxConfigSize = 1 * 1024 * 1024 // 1MB

// AnalysisConfig is the JSON analysis configuration. Omitted fields fall
// back to the Get* defaults, so partial files are safe.
type AnalysisConfig struct {
	PolynomialDegree *int     `json:"polynomial_degree,omitempty"`
	ZFilter          *string  `json:"z_filter,omitempty"` // "threshold" or "pass_through"
	ZThreshold       *float64 `json:"z_threshold,omitempty"`
	GridNX           *int     `json:"grid_nx,omitempty"`
	GridNY           *int     `json:"grid_ny,omitempty"`
	LegacyNaN        *bool    `json:"legacy_nan,omitempty"`

	// Frame loading
	RemoveStationary *bool `json:"remove_stationary,omitempty"`

	// Batch runner
	Workers *int `json:"workers,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyAnalysisConfig returns an AnalysisConfig with every field unset.
func EmptyAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{}
}

// DefaultAnalysisConfig returns a config with every field set to its default.
func DefaultAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		PolynomialDegree: ptrInt(4),
		ZFilter:          ptrString("threshold"),
		ZThreshold:       ptrFloat64(bubble.DefaultZThreshold),
		GridNX:           ptrInt(20),
		GridNY:           ptrInt(20),
		LegacyNaN:        ptrBool(false),
		RemoveStationary: ptrBool(true),
		Workers:          ptrInt(4),
	}
}

// LoadAnalysisConfig loads an AnalysisConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadAnalysisConfig(path string) (*AnalysisConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseAnalysisConfig(data)
}

// ParseAnalysisConfig decodes and validates a JSON config document.
func ParseAnalysisConfig(data []byte) (*AnalysisConfig, error) {
	cfg := EmptyAnalysisConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching upwards from the
// current directory. Panics if the file cannot be loaded; intended for test
// setup.
func MustLoadDefaultConfig() *AnalysisConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/ or cmd/origin-batch/
	}
	for _, path := range candidates {
		if cfg, err := LoadAnalysisConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the set values are usable.
func (c *AnalysisConfig) Validate() error {
	if c.PolynomialDegree != nil && *c.PolynomialDegree < 0 {
		return fmt.Errorf("polynomial_degree must be non-negative, got %d", *c.PolynomialDegree)
	}
	if c.ZFilter != nil {
		if _, err := bubble.ParseFilterMode(*c.ZFilter); err != nil {
			return err
		}
	}
	if c.GridNX != nil && *c.GridNX < 2 {
		return fmt.Errorf("grid_nx must be at least 2, got %d", *c.GridNX)
	}
	if c.GridNY != nil && *c.GridNY < 2 {
		return fmt.Errorf("grid_ny must be at least 2, got %d", *c.GridNY)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	return nil
}

// GetPolynomialDegree returns the polynomial_degree value or the default.
func (c *AnalysisConfig) GetPolynomialDegree() int {
	if c.PolynomialDegree == nil {
		return 4
	}
	return *c.PolynomialDegree
}

// GetZFilter returns the parsed z_filter mode, defaulting to threshold.
func (c *AnalysisConfig) GetZFilter() bubble.FilterMode {
	if c.ZFilter == nil {
		return bubble.FilterThreshold
	}
	m, err := bubble.ParseFilterMode(*c.ZFilter)
	if err != nil {
		return bubble.FilterThreshold // default on parse error
	}
	return m
}

// GetZThreshold returns the z_threshold value in millimetres or the default.
func (c *AnalysisConfig) GetZThreshold() float64 {
	if c.ZThreshold == nil {
		return bubble.DefaultZThreshold
	}
	return *c.ZThreshold
}

func (c *AnalysisConfig) GetGridNX() int {
	if c.GridNX == nil {
		return 20
	}
	return *c.GridNX
}

func (c *AnalysisConfig) GetGridNY() int {
	if c.GridNY == nil {
		return 20
	}
	return *c.GridNY
}

// GetLegacyNaN returns the legacy_nan value or the default.
func (c *AnalysisConfig) GetLegacyNaN() bool {
	if c.LegacyNaN == nil {
		return false
	}
	return *c.LegacyNaN
}

// GetRemoveStationary returns the remove_stationary value or the default.
func (c *AnalysisConfig) GetRemoveStationary() bool {
	if c.RemoveStationary == nil {
		return true
	}
	return *c.RemoveStationary
}

// GetWorkers returns the workers value or the default.
func (c *AnalysisConfig) GetWorkers() int {
	if c.Workers == nil {
		return 4
	}
	return *c.Workers
}

// FilterPolicy returns the CorrectZ policy described by z_filter and
// z_threshold.
func (c *AnalysisConfig) FilterPolicy() bubble.FilterPolicy {
	if c.GetZFilter() == bubble.FilterPassThrough {
		return bubble.PassThrough()
	}
	return bubble.Threshold(c.GetZThreshold())
}

// ToOptions converts the config into validated analysis options.
func (c *AnalysisConfig) ToOptions() (bubble.Options, error) {
	opts := bubble.Options{
		Degree:    c.GetPolynomialDegree(),
		Filter:    c.FilterPolicy(),
		GridNX:    c.GetGridNX(),
		GridNY:    c.GetGridNY(),
		LegacyNaN: c.GetLegacyNaN(),
	}
	if err := opts.Validate(); err != nil {
		return bubble.Options{}, err
	}
	return opts, nil
}

// JSON returns the config as compact JSON for run records.
func (c *AnalysisConfig) JSON() string {
	b, err := json.Marshal(c)
	if err != nil {
		return "{}"
	}
	return string(b)
}
