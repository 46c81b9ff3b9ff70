// Package venture implements the "will this venture fail?" classifier
// flows: load → split → scale+fit → evaluate → predict.
//
// A flow is trained once with Train, which returns an immutable Context
// that is safe to share between goroutines.
package venture

import (
	"fmt"
	"slices"

	"github.com/YuminosukeSato/ventureml/core/model"
	"github.com/YuminosukeSato/ventureml/pkg/errors"
	"github.com/YuminosukeSato/ventureml/pkg/log"
	"github.com/YuminosukeSato/ventureml/sklearn/linear_model"
	"github.com/YuminosukeSato/ventureml/sklearn/neighbors"
)

// Flow identifies one of the classifier flows.
type Flow string

const (
	// FlowLogistic scales features and fits a logistic regression.
	FlowLogistic Flow = "logistic"
	// FlowNeighbors scales features and fits a k-nearest-neighbours classifier.
	FlowNeighbors Flow = "neighbors"
)

// Flows lists every classifier flow.
var Flows = []Flow{FlowLogistic, FlowNeighbors}

// ParseFlow validates a flow name.
func ParseFlow(s string) (Flow, error) {
	f := Flow(s)
	if !slices.Contains(Flows, f) {
		return "", errors.NewValidationError("flow", fmt.Sprintf("must be one of %v", Flows), s)
	}
	return f, nil
}

// DefaultImagePath returns where the flow's confusion heatmap is written.
func (f Flow) DefaultImagePath() string {
	switch f {
	case FlowNeighbors:
		return "static/clf_confusion_matrix.png"
	default:
		return "static/rl_confusion_matrix.png"
	}
}

// Title is the heatmap title.
func (f Flow) Title() string {
	switch f {
	case FlowNeighbors:
		return "Matriz de Confusión — Algoritmo de Clasificación"
	default:
		return "Matriz de Confusión — Fracaso Emprendimiento"
	}
}

// Summary is the one-line description of the flow shown on its practice page.
func (f Flow) Summary() string {
	switch f {
	case FlowNeighbors:
		return "Flujo: carga (CSV) → split (80/20) → preprocesamiento (Pipeline con escalado) → " +
			"entrenamiento (algoritmo de clasificación elegido) → evaluación (accuracy, reporte, matriz de confusión) → " +
			"predicción (Sí/No y probabilidad)."
	default:
		return "Flujo: carga (CSV) → split (80/20, estratificado) → estandarización (StandardScaler) → " +
			"entrenamiento (LogisticRegression) → evaluación (accuracy, reporte, matriz de confusión) → " +
			"predicción (etiqueta Sí/No y probabilidad)."
	}
}

// TextExperiencia reports whether the flow's form takes Experiencia as
// text (Baja/Media/Alta) rather than as an integer code.
func (f Flow) TextExperiencia() bool {
	return f == FlowLogistic
}

// newClassifier returns a fresh, unfitted estimator for the flow.
func (f Flow) newClassifier(o *options) model.Classifier {
	switch f {
	case FlowNeighbors:
		return neighbors.NewKNeighborsClassifier(
			neighbors.WithNNeighbors(o.neighbors),
			neighbors.WithLogger(o.logger),
		)
	default:
		return linear_model.NewLogisticRegression(
			linear_model.WithLRLogger(o.logger),
		)
	}
}

// Option configures Train.
type Option func(*options)

type options struct {
	testSize  float64
	seed      uint64
	imagePath string
	neighbors int
	cvFolds   int
	logger    log.Logger
}

// WithTestSize sets the held-out fraction (default 0.2).
func WithTestSize(f float64) Option {
	return func(o *options) { o.testSize = f }
}

// WithSeed sets the split and cross-validation seed (default 42).
func WithSeed(seed uint64) Option {
	return func(o *options) { o.seed = seed }
}

// WithImagePath overrides the heatmap location.
func WithImagePath(path string) Option {
	return func(o *options) { o.imagePath = path }
}

// WithNeighbors sets k for the neighbours flow (default 5).
func WithNeighbors(k int) Option {
	return func(o *options) { o.neighbors = k }
}

// WithCVFolds sets the number of cross-validation folds on the training
// partition; 0 disables cross-validation (default 5).
func WithCVFolds(n int) Option {
	return func(o *options) { o.cvFolds = n }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(o *options) { o.logger = l }
}

func newOptions(f Flow, opts []Option) (*options, error) {
	o := &options{
		testSize:  0.2,
		seed:      42,
		imagePath: f.DefaultImagePath(),
		neighbors: 5,
		cvFolds:   5,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = log.GetLogger()
	}
	if o.cvFolds == 1 || o.cvFolds < 0 {
		return nil, errors.NewValidationError("cv_folds", "must be 0 or at least 2", o.cvFolds)
	}
	if o.imagePath == "" {
		return nil, errors.NewValidationError("image_path", "must not be empty", o.imagePath)
	}
	return o, nil
}
