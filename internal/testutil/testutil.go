// Package testutil provides shared test helpers and synthetic fixtures for
// the fitting and analysis packages.
package testutil

import (
	"errors"
	"math"
	"testing"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertErrorIs fails the test unless errors.Is(err, target).
func AssertErrorIs(t testing.TB, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("error = %v, want %v", err, target)
	}
}

// AssertInDelta reports an error when got and want differ by more than
// delta. NaN never matches.
func AssertInDelta(t testing.TB, name string, got, want, delta float64) {
	t.Helper()
	if math.IsNaN(got) || math.IsNaN(want) || math.Abs(got-want) > delta {
		t.Errorf("%s = %g, want %g ± %g", name, got, want, delta)
	}
}

// AssertSliceInDelta compares two slices element-wise.
func AssertSliceInDelta(t testing.TB, name string, got, want []float64, delta float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Errorf("%s has %d values, want %d", name, len(got), len(want))
		return
	}
	for i := range got {
		if math.IsNaN(got[i]) || math.Abs(got[i]-want[i]) > delta {
			t.Errorf("%s[%d] = %g, want %g ± %g", name, i, got[i], want[i], delta)
		}
	}
}

// CirclePoints returns n points evenly spaced on the circle of radius r
// centred at (cx, cy), starting at angle zero.
func CirclePoints(cx, cy, r float64, n int) (x, y []float64) {
	x, y = make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		x[i] = cx + r*math.Cos(a)
		y[i] = cy + r*math.Sin(a)
	}
	return x, y
}

// DomeColumns returns the six DIC columns of a bubble: a clamp ring of
// radius r at z=0 sampled with ringN points, plus four inner rings of 18
// points whose final Z follows the paraboloid h·(1 - d²/r²) about (cx, cy).
// Inner points carry a unit initial Z so none of them is stationary. With 18
// points per ring the inner points alone determine a degree-4 surface fit.
func DomeColumns(cx, cy, r, h float64, ringN int) (x0, y0, z0, dx, dy, dz []float64) {
	add := func(x, y, z, w float64) {
		x0 = append(x0, x)
		y0 = append(y0, y)
		z0 = append(z0, z)
		dx = append(dx, 0)
		dy = append(dy, 0)
		dz = append(dz, w)
	}
	rx, ry := CirclePoints(cx, cy, r, ringN)
	for i := range rx {
		add(rx[i], ry[i], 0, 0)
	}
	for _, f := range []float64{0.2, 0.4, 0.6, 0.8} {
		for i := 0; i < 18; i++ {
			a := 2*math.Pi*float64(i)/18 + f
			add(cx+f*r*math.Cos(a), cy+f*r*math.Sin(a), 1, h*(1-f*f)-1)
		}
	}
	return x0, y0, z0, dx, dy, dz
}
