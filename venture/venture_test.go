package venture

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ventureml/dataset"
	"github.com/YuminosukeSato/ventureml/pkg/errors"
	"github.com/YuminosukeSato/ventureml/pkg/log"
)

func loadData(t *testing.T) *dataset.Dataset {
	t.Helper()
	logger, _ := log.NewTestLogger(log.LevelError)
	ds, err := dataset.Load(filepath.Join("..", dataset.DefaultPath), dataset.WithLogger(logger))
	require.NoError(t, err)
	return ds
}

func train(t *testing.T, flow Flow, opts ...Option) *Context {
	t.Helper()
	logger, _ := log.NewTestLogger(log.LevelError)
	base := []Option{
		WithImagePath(filepath.Join(t.TempDir(), "static", string(flow)+".png")),
		WithLogger(logger),
	}
	ctx, err := Train(flow, loadData(t), append(base, opts...)...)
	require.NoError(t, err)
	return ctx
}

func TestTrain_Flows(t *testing.T) {
	for _, flow := range Flows {
		t.Run(string(flow), func(t *testing.T) {
			ctx := train(t, flow)
			eval := ctx.Evaluation()

			total, nTrain, nTest := ctx.Sizes()
			assert.Equal(t, total, nTrain+nTest)
			assert.Equal(t, int(math.Ceil(0.2*float64(total))), nTest)

			// accuracy は一致した行の割合
			yPred, err := ctx.model.Predict(ctx.split.XTest)
			require.NoError(t, err)
			hits := 0
			for i := 0; i < nTest; i++ {
				if yPred.At(i, 0) == ctx.split.YTest.AtVec(i) {
					hits++
				}
			}
			assert.InDelta(t, errors.Round(float64(hits)/float64(nTest), 4), eval.Accuracy, 1e-12)
			assert.Equal(t, nTest, eval.Confusion.Total())
			assert.Greater(t, eval.Accuracy, 0.6)

			for _, name := range []string{"No", "Sí", "accuracy", "macro avg", "weighted avg"} {
				_, ok := eval.Report.Row(name)
				assert.True(t, ok, "report row %q", name)
			}

			info, err := os.Stat(eval.ImagePath)
			require.NoError(t, err)
			assert.Positive(t, info.Size())

			assert.Len(t, eval.CVScores, 5)
			assert.False(t, math.IsNaN(eval.CVMean()))
			assert.GreaterOrEqual(t, eval.AUC, 0.0)
			assert.LessOrEqual(t, eval.AUC, 1.0)
			assert.Equal(t, flow.Summary(), ctx.Summary())
		})
	}
}

func TestTrain_Deterministic(t *testing.T) {
	a := train(t, FlowLogistic)
	b := train(t, FlowLogistic)
	assert.Equal(t, a.split.TrainIndex, b.split.TrainIndex)
	assert.Equal(t, a.split.TestIndex, b.split.TestIndex)
	assert.Equal(t, a.Evaluation().Accuracy, b.Evaluation().Accuracy)
	assert.Equal(t, a.Evaluation().CVScores, b.Evaluation().CVScores)
}

func TestEvaluate_RewritesImage(t *testing.T) {
	ctx := train(t, FlowNeighbors, WithCVFolds(0))
	assert.Empty(t, ctx.Evaluation().CVScores)
	assert.True(t, math.IsNaN(ctx.Evaluation().CVMean()))

	require.NoError(t, os.Remove(ctx.Evaluation().ImagePath))
	eval, err := ctx.Evaluate()
	require.NoError(t, err)
	info, err := os.Stat(eval.ImagePath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
	assert.Equal(t, ctx.Evaluation().Accuracy, eval.Accuracy)
}

func TestTrain_Errors(t *testing.T) {
	ds := loadData(t)

	_, err := Train(Flow("forest"), ds)
	assert.Error(t, err)

	_, err = Train(FlowLogistic, nil)
	assert.ErrorIs(t, err, errors.ErrEmptyData)

	_, err = Train(FlowLogistic, ds, WithCVFolds(1))
	var ve *errors.ValidationError
	assert.ErrorAs(t, err, &ve)

	// 目的変数が二値でない
	bad := &dataset.Dataset{
		Features: ds.Features,
		X:        ds.X,
		Y:        mat.VecDenseCopyOf(ds.Y),
	}
	bad.Y.SetVec(0, 2)
	_, err = Train(FlowLogistic, bad, WithImagePath(filepath.Join(t.TempDir(), "x.png")))
	assert.ErrorIs(t, err, errors.ErrNotBinary)
}

func TestPredict_Threshold(t *testing.T) {
	ctx := train(t, FlowLogistic)
	f := Features{CapitalInicial: 20000, Experiencia: 0, NumSocios: 1, AniosOperacion: 1}

	base, err := ctx.Predict(f, DefaultThreshold)
	require.NoError(t, err)
	p := base.Probability
	require.True(t, p > 0 && p < 1, "probability %v", p)

	atBoundary, err := ctx.Predict(f, p)
	require.NoError(t, err)
	assert.Equal(t, LabelYes, atBoundary.Label, "probability == threshold must be yes")

	above, err := ctx.Predict(f, math.Nextafter(p, 2))
	require.NoError(t, err)
	assert.Equal(t, LabelNo, above.Label)

	_, err = ctx.Predict(f, math.NaN())
	assert.Error(t, err)
}

func TestPredict_NeighborsVoteShare(t *testing.T) {
	ctx := train(t, FlowNeighbors, WithCVFolds(0))
	pred, err := ctx.Predict(Features{CapitalInicial: 50000, Experiencia: 1, NumSocios: 2, AniosOperacion: 3}, 0.5)
	require.NoError(t, err)
	votes := math.Round(pred.Probability * 5)
	assert.Equal(t, votes/5, pred.Probability, "vote share is votes/k exactly")

	// 確率と同じ閾値なら yes
	if pred.Probability > 0 {
		atBoundary, err := ctx.Predict(Features{CapitalInicial: 50000, Experiencia: 1, NumSocios: 2, AniosOperacion: 3}, votes/5)
		require.NoError(t, err)
		assert.Equal(t, LabelYes, atBoundary.Label)
	}
}

func TestFeaturesFromForm(t *testing.T) {
	full := FormValues{CapitalInicial: "15000", Experiencia: "Alta", NumSocios: "2", AniosOperacion: " 4 "}

	f, err := FlowLogistic.FeaturesFromForm(full)
	require.NoError(t, err)
	assert.Equal(t, Features{CapitalInicial: 15000, Experiencia: 2, NumSocios: 2, AniosOperacion: 4}, f)

	unknown := full
	unknown.Experiencia = "Experto"
	f, err = FlowLogistic.FeaturesFromForm(unknown)
	require.NoError(t, err)
	assert.Equal(t, 1, f.Experiencia)

	numeric := full
	numeric.Experiencia = "0"
	f, err = FlowNeighbors.FeaturesFromForm(numeric)
	require.NoError(t, err)
	assert.Equal(t, 0, f.Experiencia)

	_, err = FlowNeighbors.FeaturesFromForm(full)
	assert.Error(t, err, "neighbours flow expects an integer code")

	blank := full
	blank.NumSocios = "  "
	_, err = FlowLogistic.FeaturesFromForm(blank)
	assert.ErrorIs(t, err, ErrIncompleteForm)

	text := full
	text.CapitalInicial = "mucho"
	_, err = FlowLogistic.FeaturesFromForm(text)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrIncompleteForm)
}

func TestParseThreshold(t *testing.T) {
	tests := map[string]float64{
		"":     0.5,
		"abc":  0.5,
		"0.7":  0.7,
		" 0.3": 0.3,
		"NaN":  0.5,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseThreshold(in), "ParseThreshold(%q)", in)
	}
}

func TestFlowMetadata(t *testing.T) {
	assert.Equal(t, "Sí", LabelYes.Display())
	assert.Equal(t, "No", LabelNo.Display())
	assert.Equal(t, "static/rl_confusion_matrix.png", FlowLogistic.DefaultImagePath())
	assert.Equal(t, "static/clf_confusion_matrix.png", FlowNeighbors.DefaultImagePath())
	assert.Contains(t, FlowLogistic.Summary(), "entrenamiento (LogisticRegression)")
	assert.Contains(t, FlowNeighbors.Summary(), "entrenamiento (algoritmo de clasificación elegido)")

	f, err := ParseFlow("neighbors")
	require.NoError(t, err)
	assert.Equal(t, FlowNeighbors, f)
	_, err = ParseFlow("svm")
	assert.Error(t, err)
}
