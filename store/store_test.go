package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *SQLite {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLite_Runs(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	cv := 0.81
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	first, err := s.RecordRun(ctx, Run{
		Flow: "logistic", Model: "StandardScaler+LogisticRegression",
		Accuracy: 0.85, CVAccuracy: &cv, AUC: 0.9,
		TrainSize: 160, TestSize: 40, ImagePath: "static/rl.png", DurationMs: 12,
		TrainedAt: base,
	})
	require.NoError(t, err)
	_, err = uuid.Parse(first)
	assert.NoError(t, err, "generated ids are uuids")

	second, err := s.RecordRun(ctx, Run{
		Flow: "neighbors", Model: "StandardScaler+KNeighborsClassifier",
		Accuracy: 0.775, TrainSize: 160, TestSize: 40, ImagePath: "static/clf.png",
		TrainedAt: base.Add(time.Minute),
	})
	require.NoError(t, err)

	runs, err := s.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID, "newest first")
	assert.Nil(t, runs[0].CVAccuracy)
	assert.Equal(t, first, runs[1].ID)
	require.NotNil(t, runs[1].CVAccuracy)
	assert.InDelta(t, 0.81, *runs[1].CVAccuracy, 1e-12)
	assert.True(t, base.Equal(runs[1].TrainedAt), "trained_at round-trips: %v", runs[1].TrainedAt)

	limited, err := s.RecentRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLite_Predictions(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	runID, err := s.RecordRun(ctx, Run{Flow: "logistic", Model: "m", ImagePath: "x"})
	require.NoError(t, err)

	for i, label := range []string{"no", "yes"} {
		require.NoError(t, s.RecordPrediction(ctx, Prediction{
			RunID: runID, Flow: "logistic",
			CapitalInicial: 20000, Experiencia: i, NumSocios: 2, AniosOperacion: 3,
			Probability: 0.3 + 0.4*float64(i), Threshold: 0.5, Label: label,
			CreatedAt: time.Date(2026, 1, 1, 0, i, 0, 0, time.UTC),
		}))
	}

	preds, err := s.RecentPredictions(ctx, 5)
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, "yes", preds[0].Label)
	assert.Equal(t, 1, preds[0].Experiencia)
	assert.Equal(t, runID, preds[1].RunID)

	// 外部キー制約
	err = s.RecordPrediction(ctx, Prediction{RunID: "missing", Flow: "logistic", Label: "no"})
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	var h History = Noop{}
	ctx := context.Background()

	id, err := h.RecordRun(ctx, Run{})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	require.NoError(t, h.RecordPrediction(ctx, Prediction{}))

	runs, err := h.RecentRuns(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NotNil(t, runs)
	require.NoError(t, h.Close())
}
