// Package neighbors provides nearest-neighbour classifiers.
package neighbors

import (
	"cmp"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ventureml/core/model"
	"github.com/YuminosukeSato/ventureml/core/parallel"
	"github.com/YuminosukeSato/ventureml/pkg/errors"
	"github.com/YuminosukeSato/ventureml/pkg/log"
)

// KNeighborsClassifier classifies a row by majority vote of its k nearest
// training rows (Euclidean distance, uniform weights).
// Compatible with scikit-learn's KNeighborsClassifier(weights="uniform").
type KNeighborsClassifier struct {
	state *model.StateManager

	nNeighbors int

	xTrain   [][]float64
	yIndex   []int // class index of each training row
	classes_ []int

	logger log.Logger
}

// Option configures a KNeighborsClassifier.
type Option func(*KNeighborsClassifier)

// WithNNeighbors sets k.
func WithNNeighbors(k int) Option {
	return func(c *KNeighborsClassifier) {
		c.nNeighbors = k
	}
}

// WithLogger sets the logger used for fit diagnostics.
func WithLogger(l log.Logger) Option {
	return func(c *KNeighborsClassifier) {
		c.logger = l
	}
}

// NewKNeighborsClassifier creates a classifier with k=5 unless overridden.
func NewKNeighborsClassifier(opts ...Option) *KNeighborsClassifier {
	c := &KNeighborsClassifier{
		state:      model.NewStateManager(),
		nNeighbors: 5,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.GetLogger()
	}
	c.logger = c.logger.With(log.ModelNameKey, c.Name())
	return c
}

// Name implements model.Named.
func (c *KNeighborsClassifier) Name() string { return "KNeighborsClassifier" }

// Fit stores the training rows. k must not exceed the number of samples.
func (c *KNeighborsClassifier) Fit(X, y mat.Matrix) error {
	if c.nNeighbors < 1 {
		return errors.NewValidationError("n_neighbors", "must be positive", c.nNeighbors)
	}
	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.NewModelError("KNeighborsClassifier.Fit", "empty data", errors.ErrEmptyData)
	}
	if nSamples != yRows {
		return errors.NewDimensionError("KNeighborsClassifier.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewValueError("KNeighborsClassifier.Fit", "y must be a column vector")
	}
	if c.nNeighbors > nSamples {
		return errors.NewValidationError("n_neighbors", "exceeds the number of training samples", c.nNeighbors)
	}

	labels := mat.Col(nil, 0, y)
	classes := make([]int, 0, 2)
	for _, v := range labels {
		if !slices.Contains(classes, int(v)) {
			classes = append(classes, int(v))
		}
	}
	slices.Sort(classes)

	c.xTrain = make([][]float64, nSamples)
	c.yIndex = make([]int, nSamples)
	for i := 0; i < nSamples; i++ {
		c.xTrain[i] = mat.Row(nil, i, X)
		c.yIndex[i] = slices.Index(classes, int(labels[i]))
	}
	c.classes_ = classes

	c.state.SetDimensions(nFeatures, nSamples)
	c.state.SetFitted()

	c.logger.Debug("Model fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
	)
	return nil
}

type neighbor struct {
	index int
	dist  float64
}

// kneighbors returns the training indices of the k nearest rows to x,
// nearest first. Equal distances keep training order.
func (c *KNeighborsClassifier) kneighbors(x []float64) []int {
	cand := make([]neighbor, len(c.xTrain))
	for i, row := range c.xTrain {
		cand[i] = neighbor{index: i, dist: floats.Distance(x, row, 2)}
	}
	slices.SortStableFunc(cand, func(a, b neighbor) int {
		return cmp.Compare(a.dist, b.dist)
	})
	out := make([]int, c.nNeighbors)
	for i := range out {
		out[i] = cand[i].index
	}
	return out
}

// Kneighbors returns, for each row of X, the indices of its k nearest training rows.
func (c *KNeighborsClassifier) Kneighbors(X mat.Matrix) ([][]int, error) {
	if err := c.check(X, "Kneighbors"); err != nil {
		return nil, err
	}
	r, _ := X.Dims()
	out := make([][]int, r)
	parallel.Parallelize(r, func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = c.kneighbors(mat.Row(nil, i, X))
		}
	})
	return out, nil
}

func (c *KNeighborsClassifier) check(X mat.Matrix, method string) error {
	if err := c.state.RequireFitted(c.Name(), method); err != nil {
		return err
	}
	return c.state.RequireFeatures("KNeighborsClassifier."+method, X)
}

// PredictProba returns the share of the k neighbours voting for each class.
// Columns follow Classes().
func (c *KNeighborsClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	neigh, err := c.Kneighbors(X)
	if err != nil {
		return nil, err
	}
	proba := mat.NewDense(len(neigh), len(c.classes_), nil)
	votes := make([]int, len(c.classes_))
	for i, idx := range neigh {
		clear(votes)
		for _, j := range idx {
			votes[c.yIndex[j]]++
		}
		// votes/k で一度だけ割る（1/k の累積は丸め誤差が出る）
		for k, v := range votes {
			proba.Set(i, k, float64(v)/float64(c.nNeighbors))
		}
	}
	return proba, nil
}

// Predict returns the majority class; ties go to the smallest class label.
func (c *KNeighborsClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := c.PredictProba(X)
	if err != nil {
		return nil, err
	}
	r, _ := proba.Dims()
	pred := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		pred.SetVec(i, float64(c.classes_[floats.MaxIdx(mat.Row(nil, i, proba))]))
	}
	return pred, nil
}

// Classes returns the class labels seen during Fit.
func (c *KNeighborsClassifier) Classes() []int {
	return slices.Clone(c.classes_)
}

// GetParams implements model.ParameterGetter.
func (c *KNeighborsClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_neighbors": c.nNeighbors,
		"weights":     "uniform",
		"metric":      "euclidean",
	}
}
