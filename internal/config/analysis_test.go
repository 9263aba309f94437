package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/bubble.report/internal/bubble"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestDefaultAnalysisConfig(t *testing.T) {
	cfg := DefaultAnalysisConfig()

	if cfg.PolynomialDegree == nil || *cfg.PolynomialDegree != 4 {
		t.Errorf("Expected PolynomialDegree 4, got %v", cfg.PolynomialDegree)
	}
	if cfg.ZFilter == nil || *cfg.ZFilter != "threshold" {
		t.Errorf("Expected ZFilter threshold, got %v", cfg.ZFilter)
	}
	if cfg.GetZThreshold() != 5.0 {
		t.Errorf("GetZThreshold() = %f, want 5.0", cfg.GetZThreshold())
	}
	if cfg.GetGridNX() != 20 || cfg.GetGridNY() != 20 {
		t.Errorf("grid = %dx%d, want 20x20", cfg.GetGridNX(), cfg.GetGridNY())
	}
	if !cfg.GetRemoveStationary() {
		t.Error("GetRemoveStationary() = false, want true")
	}
	if cfg.GetWorkers() != 4 {
		t.Errorf("GetWorkers() = %d, want 4", cfg.GetWorkers())
	}
}

func TestEmptyAnalysisConfig_GettersMatchDefaults(t *testing.T) {
	empty := EmptyAnalysisConfig()
	def := DefaultAnalysisConfig()

	if empty.GetPolynomialDegree() != def.GetPolynomialDegree() {
		t.Errorf("degree: %d vs %d", empty.GetPolynomialDegree(), def.GetPolynomialDegree())
	}
	if empty.GetZFilter() != def.GetZFilter() {
		t.Errorf("z_filter: %v vs %v", empty.GetZFilter(), def.GetZFilter())
	}
	if empty.GetLegacyNaN() != def.GetLegacyNaN() {
		t.Errorf("legacy_nan: %v vs %v", empty.GetLegacyNaN(), def.GetLegacyNaN())
	}
	if empty.FilterPolicy() != def.FilterPolicy() {
		t.Errorf("filter policy: %v vs %v", empty.FilterPolicy(), def.FilterPolicy())
	}
}

func TestLoadAnalysisConfig(t *testing.T) {
	path := writeConfig(t, "analysis.json", `{
  "polynomial_degree": 3,
  "z_filter": "pass_through",
  "grid_nx": 50,
  "grid_ny": 40,
  "legacy_nan": true,
  "remove_stationary": false,
  "workers": 8
}`)

	cfg, err := LoadAnalysisConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GetPolynomialDegree() != 3 {
		t.Errorf("degree = %d, want 3", cfg.GetPolynomialDegree())
	}
	if cfg.GetZFilter() != bubble.FilterPassThrough {
		t.Errorf("z_filter = %v, want pass_through", cfg.GetZFilter())
	}
	if cfg.ZThreshold != nil {
		t.Errorf("z_threshold should be unset, got %v", *cfg.ZThreshold)
	}
	if cfg.GetRemoveStationary() {
		t.Error("remove_stationary should be false")
	}
	if cfg.GetWorkers() != 8 {
		t.Errorf("workers = %d, want 8", cfg.GetWorkers())
	}

	opts, err := cfg.ToOptions()
	if err != nil {
		t.Fatalf("ToOptions: %v", err)
	}
	want := bubble.Options{Degree: 3, Filter: bubble.PassThrough(), GridNX: 50, GridNY: 40, LegacyNaN: true}
	if opts != want {
		t.Errorf("ToOptions() = %+v, want %+v", opts, want)
	}
}

func TestLoadAnalysisConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
		want string
	}{
		{"wrong extension", "analysis.yaml", `{}`, ".json extension"},
		{"bad json", "bad.json", `{"grid_nx": }`, "failed to parse"},
		{"negative degree", "deg.json", `{"polynomial_degree": -1}`, "polynomial_degree"},
		{"unknown filter", "filter.json", `{"z_filter": "median"}`, "unknown z filter"},
		{"tiny grid", "grid.json", `{"grid_ny": 1}`, "grid_ny"},
		{"no workers", "workers.json", `{"workers": 0}`, "workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadAnalysisConfig(writeConfig(t, tt.file, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadAnalysisConfig_TooLarge(t *testing.T) {
	body := `{"workers": 1` + strings.Repeat(" ", maxConfigSize) + `}`
	_, err := LoadAnalysisConfig(writeConfig(t, "big.json", body))
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("expected size error, got %v", err)
	}
}

func TestLoadAnalysisConfig_Missing(t *testing.T) {
	if _, err := LoadAnalysisConfig(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	opts, err := cfg.ToOptions()
	if err != nil {
		t.Fatalf("defaults file does not validate: %v", err)
	}
	if opts != bubble.DefaultOptions() {
		t.Errorf("defaults file = %+v, want %+v", opts, bubble.DefaultOptions())
	}
	if cfg.GetWorkers() != DefaultAnalysisConfig().GetWorkers() {
		t.Errorf("workers = %d, want %d", cfg.GetWorkers(), DefaultAnalysisConfig().GetWorkers())
	}
}

func TestAnalysisConfig_JSONRoundTrip(t *testing.T) {
	cfg := DefaultAnalysisConfig()
	back, err := ParseAnalysisConfig([]byte(cfg.JSON()))
	if err != nil {
		t.Fatalf("ParseAnalysisConfig: %v", err)
	}
	if back.JSON() != cfg.JSON() {
		t.Errorf("round trip changed config:\n%s\n%s", cfg.JSON(), back.JSON())
	}
}
