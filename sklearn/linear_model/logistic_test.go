package linear_model

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ventureml/pkg/errors"
)

// TestLogisticRegression_FitPredict_Binary tests binary classification
func TestLogisticRegression_FitPredict_Binary(t *testing.T) {
	// Class 0: points around (1, 1)
	// Class 1: points around (3, 3)
	X := mat.NewDense(6, 2, []float64{
		0.5, 0.5,
		1.0, 1.5,
		1.5, 1.0,
		3.0, 2.5,
		2.5, 3.0,
		3.5, 3.5,
	})
	y := mat.NewVecDense(6, []float64{0, 0, 0, 1, 1, 1})

	lr := NewLogisticRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}

	predictions, err := lr.Predict(X)
	if err != nil {
		t.Fatalf("Failed to predict: %v", err)
	}
	for i := 0; i < 6; i++ {
		if predictions.At(i, 0) != y.AtVec(i) {
			t.Errorf("Sample %d: expected %v, got %v", i, y.AtVec(i), predictions.At(i, 0))
		}
	}

	XTest := mat.NewDense(2, 2, []float64{
		1.0, 1.0, // Should be class 0
		3.0, 3.0, // Should be class 1
	})
	testPreds, err := lr.Predict(XTest)
	if err != nil {
		t.Fatalf("Failed to predict on test data: %v", err)
	}
	if testPreds.At(0, 0) != 0 {
		t.Errorf("Test point (1,1) should be class 0, got %v", testPreds.At(0, 0))
	}
	if testPreds.At(1, 0) != 1 {
		t.Errorf("Test point (3,3) should be class 1, got %v", testPreds.At(1, 0))
	}

	if got := lr.Classes(); len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("Classes() = %v, want [0 1]", got)
	}
}

// TestLogisticRegression_Optimality checks the gradient of the penalised
// objective vanishes at the solution.
func TestLogisticRegression_Optimality(t *testing.T) {
	X := mat.NewDense(8, 2, []float64{
		-1.2, 0.3,
		-0.8, -0.5,
		-0.3, 0.9,
		0.1, -1.1,
		0.4, 0.2,
		0.9, -0.4,
		1.3, 1.0,
		-0.1, 0.6,
	})
	y := mat.NewVecDense(8, []float64{0, 0, 1, 0, 1, 0, 1, 1})

	const C = 1.0
	lr := NewLogisticRegression(WithLRC(C), WithLRTol(1e-8), WithLRMaxIter(500))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	w := lr.Coef()[0]
	b := lr.Intercept()[0]
	gw := make([]float64, 2)
	var gb float64
	for i := 0; i < 8; i++ {
		z := b + w[0]*X.At(i, 0) + w[1]*X.At(i, 1)
		r := sigmoid(z) - y.AtVec(i)
		gw[0] += C * r * X.At(i, 0)
		gw[1] += C * r * X.At(i, 1)
		gb += C * r
	}
	gw[0] += w[0]
	gw[1] += w[1]

	for j, g := range gw {
		if math.Abs(g) > 1e-5 {
			t.Errorf("gradient w[%d] = %v, want ~0", j, g)
		}
	}
	if math.Abs(gb) > 1e-5 {
		t.Errorf("gradient b = %v, want ~0", gb)
	}
}

// TestLogisticRegression_PredictProba tests probability predictions
func TestLogisticRegression_PredictProba(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		1, 1,
	})
	y := mat.NewVecDense(4, []float64{0, 0, 1, 1})

	lr := NewLogisticRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}

	probas, err := lr.PredictProba(X)
	if err != nil {
		t.Fatalf("Failed to predict probabilities: %v", err)
	}

	rows, cols := probas.Dims()
	if rows != 4 || cols != 2 {
		t.Errorf("Expected probas shape (4, 2), got (%d, %d)", rows, cols)
	}

	predictions, _ := lr.Predict(X)
	for i := 0; i < rows; i++ {
		p0, p1 := probas.At(i, 0), probas.At(i, 1)
		if p0 < 0 || p0 > 1 || p1 < 0 || p1 > 1 {
			t.Errorf("Invalid probabilities for sample %d: %v, %v", i, p0, p1)
		}
		if math.Abs(p0+p1-1.0) > 1e-9 {
			t.Errorf("Probabilities for sample %d don't sum to 1: %v", i, p0+p1)
		}
		pred := int(predictions.At(i, 0))
		if pred == 0 && p0 < p1 {
			t.Errorf("Sample %d: predicted class 0 but P(0)=%v < P(1)=%v", i, p0, p1)
		}
		if pred == 1 && p1 < p0 {
			t.Errorf("Sample %d: predicted class 1 but P(1)=%v < P(0)=%v", i, p1, p0)
		}
	}
}

// TestLogisticRegression_Score tests accuracy calculation
func TestLogisticRegression_Score(t *testing.T) {
	// class 1 if sum of features > 1.5
	X := mat.NewDense(8, 3, []float64{
		0, 0, 0,
		0, 0, 1,
		0, 1, 0,
		0, 1, 1,
		1, 0, 0,
		1, 0, 1,
		1, 1, 0,
		1, 1, 1,
	})
	y := mat.NewVecDense(8, []float64{0, 0, 0, 1, 0, 1, 1, 1})

	lr := NewLogisticRegression(WithLRC(10.0))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}
	score, err := lr.Score(X, y)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if score < 0.75 {
		t.Errorf("Score too low: %v", score)
	}
}

// TestLogisticRegression_Regularization tests L2 regularization
func TestLogisticRegression_Regularization(t *testing.T) {
	X := mat.NewDense(10, 5, []float64{
		1, 0, 0, 0, 0,
		0, 1, 0, 0, 0,
		0, 0, 1, 0, 0,
		0, 0, 0, 1, 0,
		0, 0, 0, 0, 1,
		1, 1, 0, 0, 0,
		0, 1, 1, 0, 0,
		0, 0, 1, 1, 0,
		0, 0, 0, 1, 1,
		1, 0, 0, 0, 1,
	})
	y := mat.NewVecDense(10, []float64{0, 0, 0, 1, 1, 0, 0, 1, 1, 1})

	lrStrong := NewLogisticRegression(WithLRC(0.01))
	if err := lrStrong.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	lrWeak := NewLogisticRegression(WithLRC(100.0), WithLRMaxIter(1000))
	if err := lrWeak.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	norm := func(w []float64) float64 {
		var s float64
		for _, v := range w {
			s += v * v
		}
		return math.Sqrt(s)
	}
	strongNorm := norm(lrStrong.coef_[0])
	weakNorm := norm(lrWeak.coef_[0])
	if strongNorm >= weakNorm {
		t.Errorf("Strong regularization should produce smaller weights: strong=%v, weak=%v",
			strongNorm, weakNorm)
	}
}

// TestLogisticRegression_Multiclass tests one-vs-rest classification
func TestLogisticRegression_Multiclass(t *testing.T) {
	X := mat.NewDense(9, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		2, 2,
		2, 3,
		3, 2,
		4, 4,
		4, 5,
		5, 4,
	})
	y := mat.NewVecDense(9, []float64{0, 0, 0, 1, 1, 1, 2, 2, 2})

	lr := NewLogisticRegression(WithLRC(10.0), WithLRMaxIter(500))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit multiclass model: %v", err)
	}
	if len(lr.Classes()) != 3 {
		t.Errorf("Expected 3 classes, got %d", len(lr.Classes()))
	}

	probas, err := lr.PredictProba(X)
	if err != nil {
		t.Fatalf("Failed to predict probabilities: %v", err)
	}
	rows, cols := probas.Dims()
	if cols != 3 {
		t.Errorf("Expected 3 probability columns, got %d", cols)
	}
	for i := 0; i < rows; i++ {
		sum := 0.0
		for j := 0; j < cols; j++ {
			sum += probas.At(i, j)
		}
		if math.Abs(sum-1.0) > 1e-6 {
			t.Errorf("Probabilities for sample %d don't sum to 1: %v", i, sum)
		}
	}

	// 外側のクラスは一対他で分離できる
	predictions, _ := lr.Predict(X)
	for _, i := range []int{0, 8} {
		if predictions.At(i, 0) != y.AtVec(i) {
			t.Errorf("sample %d predicted %v, want %v", i, predictions.At(i, 0), y.AtVec(i))
		}
	}
}

// TestLogisticRegression_GetSetParams tests parameter management
func TestLogisticRegression_GetSetParams(t *testing.T) {
	lr := NewLogisticRegression()

	params := lr.GetParams()
	if params["C"].(float64) != 1.0 {
		t.Errorf("Default C should be 1.0, got %v", params["C"])
	}
	if params["max_iter"].(int) != 100 {
		t.Errorf("Default max_iter should be 100, got %v", params["max_iter"])
	}

	err := lr.SetParams(map[string]interface{}{
		"C":        2.0,
		"max_iter": 200,
		"penalty":  "none",
		"tol":      1e-5,
	})
	if err != nil {
		t.Fatalf("Failed to set params: %v", err)
	}
	if lr.C != 2.0 || lr.maxIter != 200 || lr.penalty != "none" || lr.tol != 1e-5 {
		t.Errorf("params not updated: %+v", lr.GetParams())
	}

	if err := lr.SetParams(map[string]interface{}{"C": "big"}); err == nil {
		t.Error("SetParams should reject a value of the wrong type")
	}
	if err := lr.SetParams(map[string]interface{}{"solver": "saga"}); err == nil {
		t.Error("SetParams should reject unknown parameters")
	}
}

func TestLogisticRegression_InvalidInput(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})

	if err := NewLogisticRegression().Fit(X, mat.NewVecDense(3, []float64{1, 1, 1})); err == nil {
		t.Error("a single class should be rejected")
	}
	if err := NewLogisticRegression().Fit(X, mat.NewVecDense(2, []float64{0, 1})); err == nil {
		t.Error("mismatched y should be rejected")
	}
	if err := NewLogisticRegression(WithLRPenalty("l1")).Fit(X, mat.NewVecDense(3, []float64{0, 1, 1})); err == nil {
		t.Error("l1 penalty is not supported by lbfgs")
	}

	lr := NewLogisticRegression()
	if err := lr.Fit(X, mat.NewVecDense(3, []float64{0, 1, 1})); err != nil {
		t.Fatal(err)
	}
	_, err := lr.Predict(mat.NewDense(1, 2, nil))
	var dimErr *errors.DimensionError
	if !errors.As(err, &dimErr) {
		t.Errorf("Predict with wrong width: error = %v, want DimensionError", err)
	}
}

// TestLogisticRegression_NotFitted tests error when predicting without fitting
func TestLogisticRegression_NotFitted(t *testing.T) {
	lr := NewLogisticRegression()
	X := mat.NewDense(2, 2, []float64{1, 2, 3, 4})

	_, err := lr.Predict(X)
	var notFitted *errors.NotFittedError
	if !errors.As(err, &notFitted) {
		t.Errorf("Predict before Fit: error = %v, want NotFittedError", err)
	}
	if _, err := lr.PredictProba(X); err == nil {
		t.Error("Expected error when predicting probabilities without fitting")
	}
}
