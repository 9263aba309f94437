package fit

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/mat"
)

func TestVander_DescendingPowers(t *testing.T) {
	v, err := Vander([]float64{2, 3}, 2)
	if err != nil {
		t.Fatalf("Vander: %v", err)
	}
	want := mat.NewDense(2, 3, []float64{4, 2, 1, 9, 3, 1})
	if !mat.Equal(v, want) {
		t.Errorf("Vander =\n%v\nwant\n%v", mat.Formatted(v), mat.Formatted(want))
	}
}

func TestDoubleVander_ColumnCount(t *testing.T) {
	x := []float64{1, 2, 3}
	y := []float64{4, 5, 6}
	for degree := 0; degree <= 4; degree++ {
		a, err := DoubleVander(x, y, degree)
		if err != nil {
			t.Fatalf("degree %d: %v", degree, err)
		}
		rows, cols := a.Dims()
		if rows != 3 || cols != (degree+1)*(degree+1) {
			t.Errorf("degree %d: dims = %dx%d, want 3x%d", degree, rows, cols, (degree+1)*(degree+1))
		}
	}
}

func TestDoubleVander_DegreeZeroIsOnes(t *testing.T) {
	a, err := DoubleVander([]float64{-7, 0, 12.5}, []float64{3, 9, -1}, 0)
	if err != nil {
		t.Fatalf("DoubleVander: %v", err)
	}
	got := mat.Col(nil, 0, a)
	if diff := cmp.Diff([]float64{1, 1, 1}, got); diff != "" {
		t.Errorf("degree 0 column mismatch (-want +got):\n%s", diff)
	}
}

func TestDoubleVander_Ordering(t *testing.T) {
	// Degree 1: columns are x·y, x, y, 1.
	a, err := DoubleVander([]float64{2}, []float64{3}, 1)
	if err != nil {
		t.Fatalf("DoubleVander: %v", err)
	}
	got := mat.Row(nil, 0, a)
	if diff := cmp.Diff([]float64{6, 2, 3, 1}, got); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}

	for k, want := range [][2]int{{1, 1}, {1, 0}, {0, 1}, {0, 0}} {
		px, py := Powers(k, 1)
		if px != want[0] || py != want[1] {
			t.Errorf("Powers(%d, 1) = (%d, %d), want (%d, %d)", k, px, py, want[0], want[1])
		}
	}
}

func TestDoubleVander_ShapeErrors(t *testing.T) {
	if _, err := DoubleVander([]float64{1, 2}, []float64{1}, 2); !errors.Is(err, ErrDegenerateInput) {
		t.Errorf("length mismatch error = %v, want ErrDegenerateInput", err)
	}
	if _, err := DoubleVander([]float64{1}, []float64{1}, -1); !errors.Is(err, ErrDegenerateInput) {
		t.Errorf("negative degree error = %v, want ErrDegenerateInput", err)
	}
}
