// Package store keeps a history of training runs and predictions in SQLite.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/YuminosukeSato/ventureml/pkg/errors"
)

// Run is one completed training run.
type Run struct {
	ID         string    `json:"id"`
	Flow       string    `json:"flow"`
	Model      string    `json:"model"`
	Accuracy   float64   `json:"accuracy"`
	CVAccuracy *float64  `json:"cv_accuracy,omitempty"`
	AUC        float64   `json:"auc"`
	TrainSize  int       `json:"train_size"`
	TestSize   int       `json:"test_size"`
	ImagePath  string    `json:"image_path"`
	DurationMs int64     `json:"duration_ms"`
	TrainedAt  time.Time `json:"trained_at"`
}

// Prediction is one served prediction.
type Prediction struct {
	ID             string    `json:"id"`
	RunID          string    `json:"run_id"`
	Flow           string    `json:"flow"`
	CapitalInicial float64   `json:"CapitalInicial"`
	Experiencia    int       `json:"Experiencia"`
	NumSocios      float64   `json:"NumSocios"`
	AniosOperacion float64   `json:"AniosOperacion"`
	Probability    float64   `json:"probability"`
	Threshold      float64   `json:"threshold"`
	Label          string    `json:"label"`
	CreatedAt      time.Time `json:"created_at"`
}

// History records runs and predictions. Implementations are safe for
// concurrent use.
type History interface {
	// RecordRun stores r, assigning ID and TrainedAt when empty, and returns the ID.
	RecordRun(ctx context.Context, r Run) (string, error)
	// RecordPrediction stores p, assigning ID and CreatedAt when empty.
	RecordPrediction(ctx context.Context, p Prediction) error
	// RecentRuns returns up to limit runs, newest first.
	RecentRuns(ctx context.Context, limit int) ([]Run, error)
	// RecentPredictions returns up to limit predictions, newest first.
	RecentPredictions(ctx context.Context, limit int) ([]Prediction, error)
	Close() error
}

const schema = `
CREATE TABLE IF NOT EXISTS training_runs (
    id TEXT PRIMARY KEY,
    flow TEXT NOT NULL,
    model_name TEXT NOT NULL,
    accuracy REAL NOT NULL,
    cv_accuracy REAL,
    auc REAL NOT NULL,
    train_size INTEGER NOT NULL,
    test_size INTEGER NOT NULL,
    image_path TEXT NOT NULL,
    duration_ms INTEGER NOT NULL,
    trained_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS predictions (
    id TEXT PRIMARY KEY,
    run_id TEXT NOT NULL REFERENCES training_runs(id),
    flow TEXT NOT NULL,
    capital_inicial REAL NOT NULL,
    experiencia INTEGER NOT NULL,
    num_socios REAL NOT NULL,
    anios_operacion REAL NOT NULL,
    probability REAL NOT NULL,
    threshold REAL NOT NULL,
    label TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_predictions_created ON predictions(created_at);
`

// SQLite is a History backed by a SQLite file.
type SQLite struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrapf(err, "store: open %s", path)
	}
	// SQLite は書き込みを直列化するため接続は 1 本
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "store: apply schema")
	}
	return &SQLite{db: db}, nil
}

// RecordRun implements History.
func (s *SQLite) RecordRun(ctx context.Context, r Run) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.TrainedAt.IsZero() {
		r.TrainedAt = time.Now()
	}
	var cv sql.NullFloat64
	if r.CVAccuracy != nil {
		cv = sql.NullFloat64{Float64: *r.CVAccuracy, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO training_runs (id, flow, model_name, accuracy, cv_accuracy, auc,
            train_size, test_size, image_path, duration_ms, trained_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Flow, r.Model, r.Accuracy, cv, r.AUC,
		r.TrainSize, r.TestSize, r.ImagePath, r.DurationMs, r.TrainedAt.UTC())
	if err != nil {
		return "", errors.Wrap(err, "store: insert run")
	}
	return r.ID, nil
}

// RecordPrediction implements History.
func (s *SQLite) RecordPrediction(ctx context.Context, p Prediction) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO predictions (id, run_id, flow, capital_inicial, experiencia, num_socios,
            anios_operacion, probability, threshold, label, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.RunID, p.Flow, p.CapitalInicial, p.Experiencia, p.NumSocios,
		p.AniosOperacion, p.Probability, p.Threshold, p.Label, p.CreatedAt.UTC())
	if err != nil {
		return errors.Wrap(err, "store: insert prediction")
	}
	return nil
}

// RecentRuns implements History.
func (s *SQLite) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, flow, model_name, accuracy, cv_accuracy, auc, train_size, test_size,
               image_path, duration_ms, trained_at
        FROM training_runs
        ORDER BY trained_at DESC, rowid DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "store: query runs")
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			r  Run
			cv sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &r.Flow, &r.Model, &r.Accuracy, &cv, &r.AUC,
			&r.TrainSize, &r.TestSize, &r.ImagePath, &r.DurationMs, &r.TrainedAt); err != nil {
			return nil, errors.Wrap(err, "store: scan run")
		}
		if cv.Valid {
			v := cv.Float64
			r.CVAccuracy = &v
		}
		runs = append(runs, r)
	}
	return runs, errors.Wrap(rows.Err(), "store: iterate runs")
}

// RecentPredictions implements History.
func (s *SQLite) RecentPredictions(ctx context.Context, limit int) ([]Prediction, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, run_id, flow, capital_inicial, experiencia, num_socios, anios_operacion,
               probability, threshold, label, created_at
        FROM predictions
        ORDER BY created_at DESC, rowid DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "store: query predictions")
	}
	defer rows.Close()

	preds := []Prediction{}
	for rows.Next() {
		var p Prediction
		if err := rows.Scan(&p.ID, &p.RunID, &p.Flow, &p.CapitalInicial, &p.Experiencia,
			&p.NumSocios, &p.AniosOperacion, &p.Probability, &p.Threshold, &p.Label,
			&p.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "store: scan prediction")
		}
		preds = append(preds, p)
	}
	return preds, errors.Wrap(rows.Err(), "store: iterate predictions")
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Noop is a History that stores nothing; used when history is disabled.
type Noop struct{}

func (Noop) RecordRun(_ context.Context, r Run) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return r.ID, nil
}

func (Noop) RecordPrediction(context.Context, Prediction) error {
	return nil
}

func (Noop) RecentRuns(context.Context, int) ([]Run, error) {
	return []Run{}, nil
}

func (Noop) RecentPredictions(context.Context, int) ([]Prediction, error) {
	return []Prediction{}, nil
}

func (Noop) Close() error {
	return nil
}

var (
	_ History = (*SQLite)(nil)
	_ History = Noop{}
)
