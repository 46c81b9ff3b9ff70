package model_selection

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ventureml/core/model"
	"github.com/YuminosukeSato/ventureml/core/parallel"
	"github.com/YuminosukeSato/ventureml/pkg/errors"
)

// Estimator is anything that can be fitted and then predict labels.
type Estimator interface {
	model.Fitter
	model.Predictor
}

// Scorer compares true labels with predictions, higher is better.
type Scorer func(yTrue, yPred *mat.VecDense) (float64, error)

// CrossValScore fits a fresh estimator from newEstimator on every fold's
// training rows and scores it on the held-out rows. Folds run concurrently.
func CrossValScore(newEstimator func() Estimator, X mat.Matrix, y mat.Vector, cv *StratifiedKFold, score Scorer) ([]float64, error) {
	n, _ := X.Dims()
	if y.Len() != n {
		return nil, errors.NewDimensionError("CrossValScore", n, y.Len(), 0)
	}
	if cv == nil {
		cv = NewStratifiedKFold(5, true, 42)
	}

	folds := cv.Split(y)
	scores := make([]float64, len(folds))
	err := parallel.ParallelizeErr(len(folds), func(start, end int) error {
		for i := start; i < end; i++ {
			f := folds[i]
			if len(f.TestIndices) == 0 || len(f.TrainIndices) == 0 {
				return errors.NewValueError("CrossValScore", "n_splits is greater than the number of samples")
			}
			est := newEstimator()
			yTrain := SelectVec(y, f.TrainIndices)
			if err := est.Fit(SelectRows(X, f.TrainIndices), yTrain); err != nil {
				return errors.Wrapf(err, "fold %d", i)
			}
			pred, err := est.Predict(SelectRows(X, f.TestIndices))
			if err != nil {
				return errors.Wrapf(err, "fold %d", i)
			}
			s, err := score(SelectVec(y, f.TestIndices), toVec(pred))
			if err != nil {
				return errors.Wrapf(err, "fold %d", i)
			}
			scores[i] = s
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return scores, nil
}

func toVec(m mat.Matrix) *mat.VecDense {
	if v, ok := m.(*mat.VecDense); ok {
		return v
	}
	r, _ := m.Dims()
	out := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		out.SetVec(i, m.At(i, 0))
	}
	return out
}
