// Package pipeline chains a fitted StandardScaler with a classifier.
package pipeline

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ventureml/core/model"
	"github.com/YuminosukeSato/ventureml/pkg/errors"
	"github.com/YuminosukeSato/ventureml/preprocessing"
)

// Pipeline scales features with a StandardScaler fitted on the training
// data only, then delegates to the wrapped classifier.
// It is read-only after Fit and safe for concurrent prediction.
type Pipeline struct {
	model.BaseEstimator

	Scaler     *preprocessing.StandardScaler
	Classifier model.Classifier
}

var _ model.Classifier = (*Pipeline)(nil)

// New returns an unfitted pipeline around clf.
func New(clf model.Classifier) *Pipeline {
	return &Pipeline{
		Scaler:     preprocessing.NewStandardScalerDefault(),
		Classifier: clf,
	}
}

// Name returns "StandardScaler+<classifier>".
func (p *Pipeline) Name() string {
	name := fmt.Sprintf("%T", p.Classifier)
	if n, ok := p.Classifier.(model.Named); ok {
		name = n.Name()
	}
	return p.Scaler.Name() + "+" + name
}

// Fit fits the scaler on X, then the classifier on the scaled X.
func (p *Pipeline) Fit(X, y mat.Matrix) error {
	if p.Classifier == nil {
		return errors.NewValueError("Pipeline.Fit", "no classifier")
	}
	scaled, err := p.Scaler.FitTransform(X)
	if err != nil {
		return errors.Wrap(err, "pipeline: scale")
	}
	if err := p.Classifier.Fit(scaled, y); err != nil {
		return errors.Wrapf(err, "pipeline: fit %s", p.Name())
	}
	p.SetFitted()
	return nil
}

func (p *Pipeline) transform(X mat.Matrix, method string) (mat.Matrix, error) {
	if !p.IsFitted() {
		return nil, errors.NewNotFittedError("Pipeline", method)
	}
	return p.Scaler.Transform(X)
}

// Predict returns class labels for X.
func (p *Pipeline) Predict(X mat.Matrix) (mat.Matrix, error) {
	scaled, err := p.transform(X, "Predict")
	if err != nil {
		return nil, err
	}
	return p.Classifier.Predict(scaled)
}

// PredictProba returns class probabilities for X, columns in Classes() order.
func (p *Pipeline) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	scaled, err := p.transform(X, "PredictProba")
	if err != nil {
		return nil, err
	}
	return p.Classifier.PredictProba(scaled)
}

// Classes returns the classifier's class labels.
func (p *Pipeline) Classes() []int {
	return p.Classifier.Classes()
}

// PositiveProba returns P(class == positive) for every row of X.
func (p *Pipeline) PositiveProba(X mat.Matrix, positive int) (*mat.VecDense, error) {
	proba, err := p.PredictProba(X)
	if err != nil {
		return nil, err
	}
	col := model.ClassIndex(p.Classifier, positive)
	if col < 0 {
		// 学習データに陽性クラスが無い場合は確率 0
		r, _ := proba.Dims()
		return mat.NewVecDense(r, nil), nil
	}
	vals := mat.Col(nil, col, proba)
	return mat.NewVecDense(len(vals), vals), nil
}

// GetParams returns the parameters of both steps, prefixed like scikit-learn.
func (p *Pipeline) GetParams() map[string]interface{} {
	params := map[string]interface{}{}
	for k, v := range p.Scaler.GetParams() {
		params["scaler__"+k] = v
	}
	if pg, ok := p.Classifier.(model.ParameterGetter); ok {
		for k, v := range pg.GetParams() {
			params["clf__"+k] = v
		}
	}
	return params
}
