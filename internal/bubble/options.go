package bubble

import "fmt"

// DefaultZThreshold is the corrected-Z cut-off, in millimetres, below which
// points are treated as the flat clamp region rather than the bubble.
const DefaultZThreshold = 5.0

// FilterMode selects how CorrectZ discards points.
type FilterMode int

const (
	// FilterThreshold keeps points whose corrected Z is at least the
	// policy threshold.
	FilterThreshold FilterMode = iota
	// FilterPassThrough keeps every point and relies on upstream
	// stationary-point removal instead.
	FilterPassThrough
)

func (m FilterMode) String() string {
	switch m {
	case FilterThreshold:
		return "threshold"
	case FilterPassThrough:
		return "pass_through"
	default:
		return fmt.Sprintf("FilterMode(%d)", int(m))
	}
}

// ParseFilterMode is the inverse of FilterMode.String.
func ParseFilterMode(s string) (FilterMode, error) {
	switch s {
	case "threshold":
		return FilterThreshold, nil
	case "pass_through", "passthrough":
		return FilterPassThrough, nil
	}
	return 0, fmt.Errorf("unknown z filter %q (want threshold or pass_through)", s)
}

// FilterPolicy is the Z filtering rule applied by CorrectZ.
type FilterPolicy struct {
	Mode      FilterMode
	Threshold float64
}

// Threshold returns a policy keeping corrected Z >= v.
func Threshold(v float64) FilterPolicy { return FilterPolicy{Mode: FilterThreshold, Threshold: v} }

// PassThrough returns a policy keeping every point.
func PassThrough() FilterPolicy { return FilterPolicy{Mode: FilterPassThrough} }

func (p FilterPolicy) keep(correctedZ float64) bool {
	if p.Mode == FilterPassThrough {
		return true
	}
	return correctedZ >= p.Threshold
}

func (p FilterPolicy) String() string {
	if p.Mode == FilterThreshold {
		return fmt.Sprintf("threshold(%g)", p.Threshold)
	}
	return p.Mode.String()
}

// Options configures a bubble analysis.
type Options struct {
	// Degree is the per-variable polynomial degree of surface fits.
	Degree int
	// Filter is the CorrectZ filtering policy.
	Filter FilterPolicy
	// GridNX and GridNY set the surface evaluation grid resolution.
	GridNX, GridNY int
	// LegacyNaN reproduces the old scripts: degenerate circle fits and
	// parallel extrema lines yield NaN/Inf estimates instead of errors.
	LegacyNaN bool
}

// DefaultOptions returns degree 4, a 5 mm threshold filter and a 20×20 grid.
func DefaultOptions() Options {
	return Options{
		Degree: 4,
		Filter: Threshold(DefaultZThreshold),
		GridNX: 20,
		GridNY: 20,
	}
}

// Validate checks that the options can drive an analysis.
func (o Options) Validate() error {
	if o.Degree < 0 {
		return fmt.Errorf("polynomial degree must be non-negative, got %d", o.Degree)
	}
	if o.GridNX < 2 || o.GridNY < 2 {
		return fmt.Errorf("grid resolution must be at least 2x2, got %dx%d", o.GridNX, o.GridNY)
	}
	if o.Filter.Mode != FilterThreshold && o.Filter.Mode != FilterPassThrough {
		return fmt.Errorf("invalid filter mode %v", o.Filter.Mode)
	}
	return nil
}
