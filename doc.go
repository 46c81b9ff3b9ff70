// Package ventureml predicts whether a small business venture will fail and
// serves the models through a teaching web application.
//
// Two classifier flows are trained at start-up on a CSV of ventures
// (CapitalInicial, Experiencia, NumSocios, AniosOperacion, Fracaso):
//
//   - logistic: stratified 80/20 split, StandardScaler, LogisticRegression
//   - neighbors: the same split, StandardScaler, KNeighborsClassifier (k=5)
//
// Each flow is evaluated on its hold-out set (accuracy, classification
// report, confusion matrix) and renders its confusion matrix heatmap as a PNG.
// A third page demonstrates linear regression on weight = volume × density
// with a 3D scatter plot.
//
// # Quick Start
//
//	go run ./cmd/ventureml train --flow logistic
//	go run ./cmd/ventureml serve --addr :5000
//
// # Packages
//
//   - venture: flow orchestration, training context and predictions
//   - dataset: CSV loading and Experiencia encoding
//   - sklearn/linear_model, sklearn/neighbors, sklearn/pipeline: classifiers
//   - sklearn/model_selection: stratified split and cross-validation
//   - linear: least-squares regression for the weight demo
//   - preprocessing: StandardScaler and ordinal encoding
//   - metrics: accuracy, confusion matrix, classification report, AUC
//   - viz: confusion heatmap and 3D scatter rendering with gonum/plot
//   - weight: the linear-regression demo model
//   - server: gin web application, JSON API, Prometheus metrics
//   - store: SQLite history of training runs and predictions
//   - config: YAML and environment configuration
//   - core/model, core/parallel: estimator interfaces and parallel helpers
//   - pkg/errors, pkg/log: structured errors and zerolog logging
package ventureml
