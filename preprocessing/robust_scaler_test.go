package preprocessing

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

func TestRobustScalerFitStatistics(t *testing.T) {
	tests := []struct {
		name       string
		column     []float64
		wantCenter float64
		wantScale  float64
	}{
		{"even count", []float64{8, 1, 7, 2, 6, 3, 5, 4}, 4.5, 4.0},
		{"odd count", []float64{5, 1, 4, 2, 3}, 3.0, 3.0},
		{"single sample", []float64{7}, 7.0, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			X := mat.NewDense(len(tt.column), 1, tt.column)
			s := NewRobustScaler()
			if err := s.Fit(X); err != nil {
				t.Fatalf("Fit() error = %v", err)
			}
			state, err := s.State()
			if err != nil {
				t.Fatalf("State() error = %v", err)
			}
			if state.Center[0] != tt.wantCenter {
				t.Errorf("center = %v, want %v", state.Center[0], tt.wantCenter)
			}
			if state.Scale[0] != tt.wantScale {
				t.Errorf("scale = %v, want %v", state.Scale[0], tt.wantScale)
			}
		})
	}
}

func TestRobustScalerTransform(t *testing.T) {
	X := mat.NewDense(5, 2, []float64{
		1, 10,
		2, 20,
		3, 30,
		4, 40,
		5, 50,
	})
	s := NewRobustScaler()
	out, err := s.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}

	// 列0: median=3, IQR=3 / 列1: median=30, IQR=30
	want := []float64{-2.0 / 3, -1.0 / 3, 0, 1.0 / 3, 2.0 / 3}
	for i, w := range want {
		for j := 0; j < 2; j++ {
			if got := out.At(i, j); math.Abs(got-w) > 1e-12 {
				t.Errorf("out[%d][%d] = %v, want %v", i, j, got, w)
			}
		}
	}

	back, err := s.InverseTransform(out)
	if err != nil {
		t.Fatalf("InverseTransform() error = %v", err)
	}
	if !mat.EqualApprox(back, X, 1e-12) {
		t.Errorf("InverseTransform did not restore input:\n%v", mat.Formatted(back))
	}
}

func TestRobustScalerStateDependsOnlyOnTrainingRows(t *testing.T) {
	train := mat.NewDense(8, 1, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	test := mat.NewDense(2, 1, []float64{100, 200})

	s := NewRobustScaler()
	if err := s.Fit(train); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	before, _ := s.State()

	if _, err := s.Transform(test); err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	after, _ := s.State()
	if before.Center[0] != after.Center[0] || before.Scale[0] != after.Scale[0] {
		t.Errorf("Transform mutated state: before %+v, after %+v", before, after)
	}

	var combined mat.Dense
	combined.Stack(train, test)
	leaky := NewRobustScaler()
	if err := leaky.Fit(&combined); err != nil {
		t.Fatalf("Fit(train+test) error = %v", err)
	}
	leakyState, _ := leaky.State()
	if leakyState.Center[0] == before.Center[0] {
		t.Errorf("train-only center %v should differ from train+test center %v",
			before.Center[0], leakyState.Center[0])
	}
}

func TestRobustScalerZeroSpread(t *testing.T) {
	var warned []error
	errors.SetWarningHandler(func(w error) { warned = append(warned, w) })
	defer errors.SetWarningHandler(nil)

	X := mat.NewDense(4, 2, []float64{
		5, 1,
		5, 2,
		5, 3,
		5, 4,
	})
	s := NewRobustScaler()
	out, err := s.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}
	for i := 0; i < 4; i++ {
		if v := out.At(i, 0); v != 0 || math.IsNaN(v) {
			t.Errorf("constant column row %d = %v, want 0", i, v)
		}
	}
	cols := s.ZeroSpreadColumns()
	if len(cols) != 1 || cols[0] != 0 {
		t.Errorf("ZeroSpreadColumns() = %v, want [0]", cols)
	}
	if len(warned) != 1 {
		t.Fatalf("expected exactly one warning, got %d", len(warned))
	}
	var zs *errors.ZeroSpreadWarning
	if !errors.As(warned[0], &zs) {
		t.Errorf("warning type = %T, want *ZeroSpreadWarning", warned[0])
	}
}

func TestRobustScalerErrors(t *testing.T) {
	s := NewRobustScaler()
	X := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})

	if _, err := s.Transform(X); err == nil {
		t.Error("Transform before Fit should fail")
	} else {
		var nf *errors.NotFittedError
		if !errors.As(err, &nf) {
			t.Errorf("error = %T, want *NotFittedError", err)
		}
	}
	if _, err := s.State(); err == nil {
		t.Error("State before Fit should fail")
	}

	if err := s.Fit(X); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	wrong := mat.NewDense(2, 3, nil)
	if _, err := s.Transform(wrong); err == nil {
		t.Error("Transform with wrong width should fail")
	} else {
		var de *errors.DimensionError
		if !errors.As(err, &de) {
			t.Errorf("error = %T, want *DimensionError", err)
		}
	}

	nan := mat.NewDense(2, 1, []float64{1, math.NaN()})
	if err := NewRobustScaler().Fit(nan); err == nil {
		t.Error("Fit with NaN should fail")
	}
}
