// Package linear_model provides linear classifiers.
package linear_model

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/YuminosukeSato/ventureml/core/model"
	"github.com/YuminosukeSato/ventureml/pkg/errors"
	"github.com/YuminosukeSato/ventureml/pkg/log"
)

// LogisticRegression implements logistic regression for classification.
// Compatible with scikit-learn's LogisticRegression with the lbfgs solver:
// it minimises C·Σ logloss + ½‖w‖² (the intercept is not penalised).
// More than two classes are handled one-vs-rest.
type LogisticRegression struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	penalty      string  // Regularization: "l2" or "none"
	C            float64 // Inverse regularization strength
	fitIntercept bool    // Whether to fit intercept
	maxIter      int     // Maximum L-BFGS iterations
	tol          float64 // Gradient threshold for stopping

	// Model parameters
	coef_      [][]float64 // Coefficients (1 x n_features for binary, n_classes x n_features otherwise)
	intercept_ []float64   // Intercept terms
	classes_   []int       // Unique class labels, ascending
	nIter_     []int       // Actual iterations per binary problem

	logger log.Logger
}

// LogisticRegressionOption is a functional option for LogisticRegression
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression creates a new LogisticRegression classifier
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:        model.NewStateManager(),
		penalty:      "l2",
		C:            1.0,
		fitIntercept: true,
		maxIter:      100,
		tol:          1e-4,
	}
	for _, opt := range opts {
		opt(lr)
	}
	if lr.logger == nil {
		lr.logger = log.GetLogger()
	}
	lr.logger = lr.logger.With(log.ModelNameKey, lr.Name())
	return lr
}

// WithLRPenalty sets the regularization type ("l2" or "none")
func WithLRPenalty(penalty string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.penalty = penalty
	}
}

// WithLRC sets the inverse regularization strength
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.C = c
	}
}

// WithLogisticFitIntercept sets whether to fit intercept
func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.fitIntercept = fit
	}
}

// WithLRMaxIter sets the maximum number of iterations
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.maxIter = maxIter
	}
}

// WithLRTol sets the tolerance for stopping criteria
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.tol = tol
	}
}

// WithLRLogger sets the logger used for fit diagnostics
func WithLRLogger(l log.Logger) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.logger = l
	}
}

// Name implements model.Named.
func (lr *LogisticRegression) Name() string { return "LogisticRegression" }

// Fit trains the logistic regression model
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	if err := lr.validate(); err != nil {
		return err
	}

	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.NewModelError("LogisticRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if nSamples != yRows {
		return errors.NewDimensionError("LogisticRegression.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewValueError("LogisticRegression.Fit", fmt.Sprintf("y must be a column vector: got shape (%d, %d)", yRows, yCols))
	}

	labels := mat.Col(nil, 0, y)
	classes := uniqueClasses(labels)
	if len(classes) < 2 {
		return errors.NewValueError("LogisticRegression.Fit",
			fmt.Sprintf("this solver needs samples of at least 2 classes in the data, but the data contains only one class: %d", classes[0]))
	}

	Xd := mat.DenseCopyOf(X)
	lr.state.Reset()
	lr.classes_ = classes

	// 二値分類では陽性クラス（classes[1]）だけを学習する
	targets := classes[1:]
	if len(classes) > 2 {
		targets = classes
	}

	lr.coef_ = make([][]float64, len(targets))
	lr.intercept_ = make([]float64, len(targets))
	lr.nIter_ = make([]int, len(targets))
	for k, class := range targets {
		yBinary := make([]float64, nSamples)
		for i, v := range labels {
			if int(v) == class {
				yBinary[i] = 1
			}
		}
		w, b, iters, err := lr.fitBinary(Xd, yBinary)
		if err != nil {
			return errors.Wrapf(err, "class %d", class)
		}
		lr.coef_[k], lr.intercept_[k], lr.nIter_[k] = w, b, iters
	}

	lr.state.SetDimensions(nFeatures, nSamples)
	lr.state.SetFitted()
	lr.logger.Debug("Model fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.IterationKey, slices.Max(lr.nIter_),
	)
	return nil
}

func (lr *LogisticRegression) validate() error {
	if lr.penalty != "l2" && lr.penalty != "none" {
		return errors.NewValidationError("penalty", "lbfgs supports only 'l2' or 'none' penalties", lr.penalty)
	}
	if lr.C <= 0 {
		return errors.NewValidationError("C", "must be positive", lr.C)
	}
	if lr.maxIter <= 0 {
		return errors.NewValidationError("max_iter", "must be positive", lr.maxIter)
	}
	return nil
}

// fitBinary minimises the penalised log loss for 0/1 labels with L-BFGS.
// The last element of the optimisation vector is the intercept.
func (lr *LogisticRegression) fitBinary(X *mat.Dense, y []float64) ([]float64, float64, int, error) {
	nSamples, nFeatures := X.Dims()
	z := mat.NewVecDense(nSamples, nil)
	resid := mat.NewVecDense(nSamples, nil)

	decision := func(x []float64) {
		z.MulVec(X, mat.NewVecDense(nFeatures, x[:nFeatures]))
		if lr.fitIntercept {
			for i := 0; i < nSamples; i++ {
				z.SetVec(i, z.AtVec(i)+x[nFeatures])
			}
		}
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			decision(x)
			var loss float64
			for i := 0; i < nSamples; i++ {
				zi := z.AtVec(i)
				loss += softplus(zi) - y[i]*zi
			}
			loss *= lr.C
			if lr.penalty == "l2" {
				w := x[:nFeatures]
				loss += 0.5 * floats.Dot(w, w)
			}
			return loss
		},
		Grad: func(grad, x []float64) {
			decision(x)
			for i := 0; i < nSamples; i++ {
				resid.SetVec(i, sigmoid(z.AtVec(i))-y[i])
			}
			gw := mat.NewVecDense(nFeatures, grad[:nFeatures])
			gw.MulVec(X.T(), resid)
			gw.ScaleVec(lr.C, gw)
			if lr.penalty == "l2" {
				floats.Add(grad[:nFeatures], x[:nFeatures])
			}
			grad[nFeatures] = 0
			if lr.fitIntercept {
				grad[nFeatures] = lr.C * mat.Sum(resid)
			}
		},
	}

	settings := &optimize.Settings{
		MajorIterations:   lr.maxIter,
		GradientThreshold: lr.tol,
	}
	x0 := make([]float64, nFeatures+1)
	result, err := optimize.Minimize(problem, x0, settings, &optimize.LBFGS{})
	if result == nil {
		return nil, 0, 0, errors.NewModelError("LogisticRegression.Fit", "optimization failed", err)
	}
	if err := errors.CheckNumericalStability("LogisticRegression.Fit", result.X, result.MajorIterations); err != nil {
		return nil, 0, 0, err
	}
	if err != nil || result.Status == optimize.IterationLimit {
		msg := "lbfgs reached the iteration limit"
		if err != nil {
			msg = err.Error()
		}
		errors.Warn(errors.NewConvergenceWarning("LogisticRegression", result.MajorIterations, msg))
	}

	w := slices.Clone(result.X[:nFeatures])
	b := 0.0
	if lr.fitIntercept {
		b = result.X[nFeatures]
	}
	return w, b, result.MajorIterations, nil
}

func uniqueClasses(labels []float64) []int {
	seen := make(map[int]struct{})
	for _, v := range labels {
		seen[int(v)] = struct{}{}
	}
	classes := make([]int, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	slices.Sort(classes)
	return classes
}

// DecisionFunction returns the signed distance to the hyperplane, one column
// per binary problem.
func (lr *LogisticRegression) DecisionFunction(X mat.Matrix) (*mat.Dense, error) {
	if err := lr.state.RequireFitted("LogisticRegression", "DecisionFunction"); err != nil {
		return nil, err
	}
	if err := lr.state.RequireFeatures("LogisticRegression.DecisionFunction", X); err != nil {
		return nil, err
	}

	nSamples, nFeatures := X.Dims()
	W := mat.NewDense(len(lr.coef_), nFeatures, nil)
	for k, row := range lr.coef_ {
		W.SetRow(k, row)
	}
	var scores mat.Dense
	scores.Mul(X, W.T())
	for i := 0; i < nSamples; i++ {
		for k := range lr.intercept_ {
			scores.Set(i, k, scores.At(i, k)+lr.intercept_[k])
		}
	}
	return &scores, nil
}

// Predict makes predictions for input data
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	probas, err := lr.PredictProba(X)
	if err != nil {
		return nil, err
	}
	nSamples, nClasses := probas.Dims()
	predictions := mat.NewVecDense(nSamples, nil)
	row := make([]float64, nClasses)
	for i := 0; i < nSamples; i++ {
		mat.Row(row, i, probas)
		predictions.SetVec(i, float64(lr.classes_[floats.MaxIdx(row)]))
	}
	return predictions, nil
}

// PredictProba returns probability estimates for each class.
// Columns follow Classes(). One-vs-rest scores are normalised to sum to one.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	scores, err := lr.DecisionFunction(X)
	if err != nil {
		return nil, err
	}

	nSamples, _ := X.Dims()
	nClasses := len(lr.classes_)
	probas := mat.NewDense(nSamples, nClasses, nil)

	for i := 0; i < nSamples; i++ {
		if nClasses == 2 {
			p1 := sigmoid(scores.At(i, 0))
			probas.Set(i, 0, 1-p1)
			probas.Set(i, 1, p1)
			continue
		}
		var sum float64
		for k := 0; k < nClasses; k++ {
			p := sigmoid(scores.At(i, k))
			probas.Set(i, k, p)
			sum += p
		}
		for k := 0; k < nClasses; k++ {
			probas.Set(i, k, errors.SafeDivide(probas.At(i, k), sum))
		}
	}

	return probas, nil
}

// Classes implements model.Classifier.
func (lr *LogisticRegression) Classes() []int {
	return slices.Clone(lr.classes_)
}

// Coef returns a copy of the fitted coefficients.
func (lr *LogisticRegression) Coef() [][]float64 {
	out := make([][]float64, len(lr.coef_))
	for i, row := range lr.coef_ {
		out[i] = slices.Clone(row)
	}
	return out
}

// Intercept returns a copy of the fitted intercepts.
func (lr *LogisticRegression) Intercept() []float64 {
	return slices.Clone(lr.intercept_)
}

// NIter returns the number of iterations used by each binary problem.
func (lr *LogisticRegression) NIter() []int {
	return slices.Clone(lr.nIter_)
}

// Score returns the mean accuracy on the given test data and labels
func (lr *LogisticRegression) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	nSamples, _ := X.Dims()
	yRows, _ := y.Dims()
	if yRows != nSamples {
		return 0, errors.NewDimensionError("LogisticRegression.Score", nSamples, yRows, 0)
	}

	correct := 0
	for i := 0; i < nSamples; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(nSamples), nil
}

// GetParams returns the model hyperparameters
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"penalty":       lr.penalty,
		"C":             lr.C,
		"fit_intercept": lr.fitIntercept,
		"solver":        "lbfgs",
		"max_iter":      lr.maxIter,
		"tol":           lr.tol,
	}
}

// SetParams sets the model hyperparameters
func (lr *LogisticRegression) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var ok bool
		switch key {
		case "penalty":
			lr.penalty, ok = value.(string)
		case "C":
			lr.C, ok = value.(float64)
		case "fit_intercept":
			lr.fitIntercept, ok = value.(bool)
		case "max_iter":
			lr.maxIter, ok = value.(int)
		case "tol":
			lr.tol, ok = value.(float64)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
		if !ok {
			return errors.NewValidationError(key, "wrong type", value)
		}
	}
	return nil
}

// sigmoid computes the sigmoid function without overflowing for large |z|
func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1.0 / (1.0 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1.0 + e)
}

// softplus computes log(1 + exp(z)) stably
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}
