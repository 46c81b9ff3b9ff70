package venture

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/ventureml/dataset"
	"github.com/YuminosukeSato/ventureml/metrics"
	"github.com/YuminosukeSato/ventureml/pkg/errors"
	"github.com/YuminosukeSato/ventureml/pkg/log"
	"github.com/YuminosukeSato/ventureml/sklearn/model_selection"
	"github.com/YuminosukeSato/ventureml/sklearn/pipeline"
	"github.com/YuminosukeSato/ventureml/viz"
)

// Binary labels and their report names, negative class first.
var (
	classLabels = []int{0, 1}
	classNames  = []string{"No", "Sí"}
)

// Evaluation holds the held-out metrics of a trained flow.
type Evaluation struct {
	// Accuracy is rounded to 4 decimals.
	Accuracy float64
	// Report values are rounded to 3 decimals.
	Report    metrics.ClassificationReport
	Confusion metrics.ConfusionMatrix
	// AUC and LogLoss are computed from the positive-class probability.
	AUC     float64
	LogLoss float64
	// ImagePath is where the confusion heatmap was written.
	ImagePath string
	// CVScores are per-fold accuracies on the training partition; empty
	// when cross-validation is disabled or could not run.
	CVScores []float64
}

// AccuracyPercent returns accuracy as a percentage rounded to 2 decimals.
func (e Evaluation) AccuracyPercent() float64 {
	return errors.Round(e.Accuracy*100, 2)
}

// CVMean is the mean cross-validation accuracy, NaN without scores.
func (e Evaluation) CVMean() float64 {
	if len(e.CVScores) == 0 {
		return math.NaN()
	}
	return stat.Mean(e.CVScores, nil)
}

// Context is a trained flow. It is immutable once Train returns.
type Context struct {
	flow      Flow
	model     *pipeline.Pipeline
	split     *model_selection.Split
	eval      Evaluation
	opts      options
	trainedAt time.Time
	duration  time.Duration
	nSamples  int
}

// Train runs the flow on ds: stratified split, scaler + classifier fit on the
// training partition, cross-validation and hold-out evaluation (which writes
// the heatmap image).
func Train(flow Flow, ds *dataset.Dataset, opts ...Option) (*Context, error) {
	if _, err := ParseFlow(string(flow)); err != nil {
		return nil, err
	}
	if ds == nil || ds.Len() == 0 {
		return nil, errors.NewModelError("venture.Train", "empty data", errors.ErrEmptyData)
	}
	o, err := newOptions(flow, opts)
	if err != nil {
		return nil, err
	}
	logger := o.logger.With(log.FlowKey, string(flow))
	start := time.Now()

	split, err := model_selection.TrainTestSplit(ds.X, ds.Y,
		model_selection.WithTestSize(o.testSize),
		model_selection.WithRandomState(o.seed),
		model_selection.WithStratify(true),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "in venture.Train(%s)", flow)
	}

	p := pipeline.New(flow.newClassifier(o))
	if err := p.Fit(split.XTrain, split.YTrain); err != nil {
		return nil, errors.Wrapf(err, "in venture.Train(%s)", flow)
	}

	ctx := &Context{
		flow:     flow,
		model:    p,
		split:    split,
		opts:     *o,
		nSamples: ds.Len(),
	}
	logger.Info("Model trained",
		log.OperationKey, log.OperationFit,
		log.ModelNameKey, p.Name(),
		log.SamplesKey, len(split.TrainIndex),
		log.FeaturesKey, len(ds.Features),
		log.RandomSeedKey, o.seed,
	)

	var cvScores []float64
	if o.cvFolds > 0 {
		cvScores, err = model_selection.CrossValScore(
			func() model_selection.Estimator { return pipeline.New(flow.newClassifier(o)) },
			split.XTrain, split.YTrain,
			model_selection.NewStratifiedKFold(o.cvFolds, true, o.seed),
			metrics.Accuracy,
		)
		if err != nil {
			// 交差検証は参考値のため、失敗しても学習は続行する
			logger.Warn("Cross-validation skipped", log.ErrorKey, err.Error())
			cvScores = nil
		}
	}

	eval, err := ctx.Evaluate()
	if err != nil {
		return nil, err
	}
	eval.CVScores = cvScores
	ctx.eval = eval
	ctx.trainedAt = time.Now()
	ctx.duration = ctx.trainedAt.Sub(start)

	fields := []any{
		log.AccuracyKey, eval.Accuracy,
		log.ImagePathKey, eval.ImagePath,
		log.DurationMsKey, ctx.duration.Milliseconds(),
	}
	if len(cvScores) > 0 {
		fields = append(fields, log.CVAccuracyKey, eval.CVMean())
	}
	logger.Info("Model evaluated", fields...)
	return ctx, nil
}

// Evaluate scores the model on the held-out partition and renders the
// confusion heatmap to the flow's image path, replacing any previous file.
func (c *Context) Evaluate() (Evaluation, error) {
	yPredM, err := c.model.Predict(c.split.XTest)
	if err != nil {
		return Evaluation{}, errors.Wrap(err, "in venture.Evaluate")
	}
	yTrue := c.split.YTest
	r, _ := yPredM.Dims()
	yPred := mat.NewVecDense(r, mat.Col(nil, 0, yPredM))

	acc, err := metrics.Accuracy(yTrue, yPred)
	if err != nil {
		return Evaluation{}, err
	}
	report, cm, err := metrics.ClassificationReportFor(yTrue, yPred, classLabels, classNames)
	if err != nil {
		return Evaluation{}, err
	}

	prob, err := c.model.PositiveProba(c.split.XTest, 1)
	if err != nil {
		return Evaluation{}, err
	}
	auc, err := metrics.AUC(yTrue, prob)
	if err != nil {
		return Evaluation{}, err
	}
	logLoss, err := metrics.BinaryLogLoss(yTrue, prob)
	if err != nil {
		return Evaluation{}, err
	}

	if err := viz.SaveConfusionHeatmap(c.opts.imagePath, cm, c.flow.Title()); err != nil {
		return Evaluation{}, errors.Wrap(err, "in venture.Evaluate")
	}
	c.opts.logger.Debug("Confusion heatmap saved",
		log.OperationKey, log.OperationRender,
		log.FlowKey, string(c.flow),
		log.ImagePathKey, c.opts.imagePath,
	)

	return Evaluation{
		Accuracy:  errors.Round(acc, 4),
		Report:    report.Rounded(3),
		Confusion: cm,
		AUC:       auc,
		LogLoss:   logLoss,
		ImagePath: c.opts.imagePath,
		CVScores:  c.eval.CVScores,
	}, nil
}

// Predict classifies one row. The label is LabelYes iff the positive-class
// probability is at or above threshold.
func (c *Context) Predict(f Features, threshold float64) (Prediction, error) {
	if math.IsNaN(threshold) {
		return Prediction{}, errors.NewValidationError("threshold", "must be a number", threshold)
	}
	prob, err := c.model.PositiveProba(f.row(), 1)
	if err != nil {
		return Prediction{}, errors.Wrap(err, "in venture.Predict")
	}
	p := prob.AtVec(0)
	label := LabelNo
	if p >= threshold {
		label = LabelYes
	}
	c.opts.logger.Debug("Prediction",
		log.FlowKey, string(c.flow),
		log.OperationKey, log.OperationPredict,
		log.ConfidenceKey, p,
		log.ThresholdKey, threshold,
		log.LabelKey, string(label),
	)
	return Prediction{Label: label, Probability: p, Threshold: threshold}, nil
}

// Flow returns the flow id.
func (c *Context) Flow() Flow { return c.flow }

// Evaluation returns the metrics computed by Train.
func (c *Context) Evaluation() Evaluation { return c.eval }

// Summary returns the flow description.
func (c *Context) Summary() string { return c.flow.Summary() }

// ModelName names the fitted pipeline, e.g. "StandardScaler+LogisticRegression".
func (c *Context) ModelName() string { return c.model.Name() }

// Params returns the pipeline hyper-parameters.
func (c *Context) Params() map[string]interface{} { return c.model.GetParams() }

// TrainedAt returns when training finished.
func (c *Context) TrainedAt() time.Time { return c.trainedAt }

// Duration returns how long Train took.
func (c *Context) Duration() time.Duration { return c.duration }

// Sizes returns the number of rows in the dataset and in each partition.
func (c *Context) Sizes() (total, train, test int) {
	return c.nSamples, len(c.split.TrainIndex), len(c.split.TestIndex)
}
