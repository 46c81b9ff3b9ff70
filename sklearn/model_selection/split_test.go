package model_selection

import (
	"math"
	"slices"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ventureml/pkg/errors"
)

// makeData returns n rows whose first column is the row index and a label
// vector with nPos positives at the end.
func makeData(n, nPos int) (*mat.Dense, *mat.VecDense) {
	X := mat.NewDense(n, 2, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i*i))
		if i >= n-nPos {
			y.SetVec(i, 1)
		}
	}
	return X, y
}

func countPositives(v *mat.VecDense) int {
	c := 0
	for i := 0; i < v.Len(); i++ {
		if v.AtVec(i) == 1 {
			c++
		}
	}
	return c
}

func TestTrainTestSplit_Stratified(t *testing.T) {
	tests := []struct {
		name      string
		n, nPos   int
		wantTest  int
		wantTestP int
	}{
		{"balanced", 100, 50, 20, 10},
		{"imbalanced", 100, 10, 20, 2},
		{"ceil test size", 11, 4, 3, 1},
		{"minority of two", 10, 2, 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			X, y := makeData(tt.n, tt.nPos)
			s, err := TrainTestSplit(X, y)
			if err != nil {
				t.Fatalf("TrainTestSplit() error = %v", err)
			}

			if len(s.TestIndex) != tt.wantTest {
				t.Errorf("test size = %d, want %d", len(s.TestIndex), tt.wantTest)
			}
			if len(s.TrainIndex)+len(s.TestIndex) != tt.n {
				t.Errorf("train+test = %d, want %d", len(s.TrainIndex)+len(s.TestIndex), tt.n)
			}
			if got := countPositives(s.YTest); got != tt.wantTestP {
				t.Errorf("positives in test = %d, want %d", got, tt.wantTestP)
			}
			if countPositives(s.YTrain) == 0 || countPositives(s.YTrain) == s.YTrain.Len() {
				t.Error("training partition must contain both classes")
			}

			// 行が正しく取り出されている
			for i, idx := range s.TestIndex {
				if s.XTest.At(i, 0) != float64(idx) || s.YTest.AtVec(i) != y.AtVec(idx) {
					t.Fatalf("test row %d does not match source row %d", i, idx)
				}
			}
			for _, idx := range s.TestIndex {
				if slices.Contains(s.TrainIndex, idx) {
					t.Fatalf("row %d is in both partitions", idx)
				}
			}
		})
	}
}

func TestTrainTestSplit_Deterministic(t *testing.T) {
	X, y := makeData(60, 20)

	a, err := TrainTestSplit(X, y, WithRandomState(42))
	if err != nil {
		t.Fatal(err)
	}
	b, err := TrainTestSplit(X, y, WithRandomState(42))
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(a.TestIndex, b.TestIndex) || !slices.Equal(a.TrainIndex, b.TrainIndex) {
		t.Error("same seed produced different partitions")
	}
	if !mat.Equal(a.XTest, b.XTest) {
		t.Error("same seed produced different test matrices")
	}

	c, err := TrainTestSplit(X, y, WithRandomState(7))
	if err != nil {
		t.Fatal(err)
	}
	if slices.Equal(a.TestIndex, c.TestIndex) {
		t.Error("different seeds should produce different partitions")
	}
}

func TestTrainTestSplit_NotStratified(t *testing.T) {
	X, y := makeData(10, 5)
	s, err := TrainTestSplit(X, y, WithStratify(false), WithTestSize(0.3))
	if err != nil {
		t.Fatalf("TrainTestSplit() error = %v", err)
	}
	if len(s.TestIndex) != 3 || len(s.TrainIndex) != 7 {
		t.Errorf("sizes = %d/%d, want 7/3", len(s.TrainIndex), len(s.TestIndex))
	}
}

func TestTrainTestSplit_Errors(t *testing.T) {
	X, y := makeData(10, 3)

	multi := mat.VecDenseCopyOf(y)
	multi.SetVec(0, 2)
	if _, err := TrainTestSplit(X, multi); !errors.Is(err, errors.ErrNotBinary) {
		t.Errorf("non-binary target: error = %v, want ErrNotBinary", err)
	}

	_, single := makeData(10, 1)
	if _, err := TrainTestSplit(X, single); err == nil {
		t.Error("a class with one member should be rejected")
	}

	if _, err := TrainTestSplit(X, y, WithTestSize(1.5)); err == nil {
		t.Error("test_size outside (0,1) should be rejected")
	}

	if _, err := TrainTestSplit(X, mat.NewVecDense(3, nil)); err == nil {
		t.Error("length mismatch should be rejected")
	}
}

func TestAllocate(t *testing.T) {
	tests := []struct {
		nTest, n int
		counts   []int
		want     []int
	}{
		{20, 100, []int{50, 50}, []int{10, 10}},
		{20, 100, []int{63, 37}, []int{13, 7}},
		{3, 11, []int{7, 4}, []int{2, 1}},
		{2, 10, []int{8, 2}, []int{1, 1}},
	}

	for _, tt := range tests {
		got, err := allocate(tt.nTest, tt.n, tt.counts)
		if err != nil {
			t.Fatalf("allocate() error = %v", err)
		}
		if !slices.Equal(got, tt.want) {
			t.Errorf("allocate(%d, %d, %v) = %v, want %v", tt.nTest, tt.n, tt.counts, got, tt.want)
		}
		sum := 0
		for _, v := range got {
			sum += v
		}
		if sum != tt.nTest {
			t.Errorf("allocation sums to %d, want %d", sum, tt.nTest)
		}
	}
}

func TestStratifiedKFold_Split(t *testing.T) {
	_, y := makeData(50, 10)
	skf := NewStratifiedKFold(5, true, 42)

	folds := skf.Split(y)
	if len(folds) != 5 {
		t.Fatalf("got %d folds, want 5", len(folds))
	}

	seen := make(map[int]int)
	for i, f := range folds {
		if len(f.TestIndices) != 10 {
			t.Errorf("fold %d: test size %d, want 10", i, len(f.TestIndices))
		}
		if len(f.TrainIndices)+len(f.TestIndices) != 50 {
			t.Errorf("fold %d: sizes do not cover the data", i)
		}
		pos := 0
		for _, idx := range f.TestIndices {
			seen[idx]++
			if y.AtVec(idx) == 1 {
				pos++
			}
		}
		if pos != 2 {
			t.Errorf("fold %d: %d positives in test, want 2", i, pos)
		}
	}
	if len(seen) != 50 {
		t.Errorf("every sample should be tested exactly once, got %d distinct", len(seen))
	}
	for idx, c := range seen {
		if c != 1 {
			t.Errorf("sample %d tested %d times", idx, c)
		}
	}

	again := skf.Split(y)
	for i := range folds {
		if !slices.Equal(folds[i].TestIndices, again[i].TestIndices) {
			t.Fatal("StratifiedKFold is not deterministic for a fixed seed")
		}
	}
}

// thresholdEstimator predicts 1 when the first feature exceeds the midpoint of
// the training range.
type thresholdEstimator struct{ cut float64 }

func (e *thresholdEstimator) Fit(X, _ mat.Matrix) error {
	col := mat.Col(nil, 0, X)
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range col {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	e.cut = (lo + hi) / 2
	return nil
}

func (e *thresholdEstimator) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, _ := X.Dims()
	out := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		if X.At(i, 0) > e.cut {
			out.SetVec(i, 1)
		}
	}
	return out, nil
}

func accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	ok := 0
	for i := 0; i < yTrue.Len(); i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			ok++
		}
	}
	return float64(ok) / float64(yTrue.Len()), nil
}

func TestCrossValScore(t *testing.T) {
	X, y := makeData(40, 20)

	scores, err := CrossValScore(func() Estimator { return &thresholdEstimator{} },
		X, y, NewStratifiedKFold(4, true, 1), accuracy)
	if err != nil {
		t.Fatalf("CrossValScore() error = %v", err)
	}
	if len(scores) != 4 {
		t.Fatalf("got %d scores, want 4", len(scores))
	}
	for i, s := range scores {
		if s < 0.8 {
			t.Errorf("fold %d accuracy = %v, want >= 0.8 for a separable problem", i, s)
		}
	}
}
