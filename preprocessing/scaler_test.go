package preprocessing

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ventureml/pkg/errors"
)

func TestStandardScaler_FitTransform(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 10,
		3, 10,
		4, 10,
	})

	scaler := NewStandardScalerDefault()
	XScaled, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}

	// 平均2.5、母標準偏差 sqrt(1.25)
	if math.Abs(scaler.Mean[0]-2.5) > 1e-12 {
		t.Errorf("Mean[0] = %v, want 2.5", scaler.Mean[0])
	}
	if math.Abs(scaler.Scale[0]-math.Sqrt(1.25)) > 1e-12 {
		t.Errorf("Scale[0] = %v, want %v", scaler.Scale[0], math.Sqrt(1.25))
	}

	// 定数列はスケール1、変換後は0
	if scaler.Scale[1] != 1.0 {
		t.Errorf("Scale[1] = %v, want 1 for a constant column", scaler.Scale[1])
	}
	for i := 0; i < 4; i++ {
		if XScaled.At(i, 1) != 0 {
			t.Errorf("XScaled[%d,1] = %v, want 0", i, XScaled.At(i, 1))
		}
	}

	col := mat.Col(nil, 0, XScaled)
	var sum, sumSq float64
	for _, v := range col {
		sum += v
		sumSq += v * v
	}
	if math.Abs(sum) > 1e-12 {
		t.Errorf("scaled mean = %v, want 0", sum/4)
	}
	if math.Abs(sumSq/4-1) > 1e-12 {
		t.Errorf("scaled variance = %v, want 1", sumSq/4)
	}
}

func TestStandardScaler_Errors(t *testing.T) {
	scaler := NewStandardScalerDefault()

	_, err := scaler.Transform(mat.NewDense(1, 2, nil))
	var notFitted *errors.NotFittedError
	if !errors.As(err, &notFitted) {
		t.Errorf("Transform before Fit: error = %v, want NotFittedError", err)
	}

	if err := scaler.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	_, err = scaler.Transform(mat.NewDense(1, 3, nil))
	var dimErr *errors.DimensionError
	if !errors.As(err, &dimErr) {
		t.Errorf("Transform with wrong width: error = %v, want DimensionError", err)
	}
}

func TestStandardScaler_WithoutMeanAndStd(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{2, 4})
	scaler := NewStandardScaler(false, false)
	XScaled, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}
	if !mat.Equal(X, XScaled) {
		t.Errorf("identity scaler changed data: %v", mat.Formatted(XScaled))
	}
}
