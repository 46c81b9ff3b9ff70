// Package model provides the estimator interfaces shared by every model in the module.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Classifier combines interfaces for classification models.
type Classifier interface {
	Fitter
	Predictor

	// PredictProba returns probability estimates for each class.
	// Columns follow the order of Classes().
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the unique classes seen during fitting, sorted ascending.
	Classes() []int
}

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	// GetParams returns the model's hyperparameters.
	GetParams() map[string]interface{}
}

// Named is implemented by estimators that report a display name for logs and reports.
type Named interface {
	Name() string
}

// ClassIndex returns the column of class in a PredictProba result, or -1.
func ClassIndex(c Classifier, class int) int {
	for i, cl := range c.Classes() {
		if cl == class {
			return i
		}
	}
	return -1
}
