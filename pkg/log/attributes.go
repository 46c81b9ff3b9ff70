// Package log defines standard attribute keys for ventureml operations.
//
// Keys follow a hierarchical naming convention (e.g. "model.name",
// "data.samples") so logs can be filtered by category.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of estimator.
	// Examples: "LogisticRegression", "StandardScaler", "KNeighborsClassifier"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	ComponentKey = "ml.component"

	// FlowKey identifies the venture flow ("logistic", "neighbors", "weight").
	FlowKey = "venture.flow"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// DataPathKey is the path of the dataset file being loaded.
	DataPathKey = "data.path"

	// PositiveRateKey is the share of rows labelled with the positive class.
	PositiveRateKey = "data.positive_rate"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records model accuracy for evaluation operations.
	AccuracyKey = "metrics.accuracy"

	// CVAccuracyKey records the mean cross-validation accuracy.
	CVAccuracyKey = "metrics.cv_accuracy"

	// R2Key, RMSEKey and MAEKey record regression fit quality.
	R2Key   = "metrics.r2"
	RMSEKey = "metrics.rmse"
	MAEKey  = "metrics.mae"

	// LossKey records loss value during training or evaluation.
	LossKey = "metrics.loss"

	// IterationKey records the current iteration number during iterative processes.
	IterationKey = "training.iteration"
)

// Prediction and Output Context
const (
	// ConfidenceKey records the positive-class probability of a prediction.
	ConfidenceKey = "preds.confidence"

	// ThresholdKey records the decision threshold used for classification.
	ThresholdKey = "preds.threshold"

	// LabelKey records the predicted label.
	LabelKey = "preds.label"

	// ImagePathKey is the path of a rendered artifact.
	ImagePathKey = "artifact.path"
)

// Error Context
const (
	// ErrorKey holds the error message.
	ErrorKey = "error"

	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	// Automatically populated by the zerolog logger for cockroachdb errors.
	StacktraceKey = "error.stacktrace"
)

// HTTP Context
const (
	RequestIDKey = "http.request_id"
	MethodKey    = "http.method"
	PathKey      = "http.path"
	StatusKey    = "http.status"
	ClientIPKey  = "http.client_ip"
)

// Configuration
const (
	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute value constants for common operations.
const (
	OperationFit     = "fit"
	OperationPredict = "predict"
	OperationLoad    = "load"
	OperationRender  = "render"
)
