package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/ventureml/pkg/errors"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ventureml.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Equal(t, 0.2, cfg.Split.TestSize)
	assert.Equal(t, uint64(42), cfg.Split.Seed)
	assert.Equal(t, 5, cfg.Flows.Neighbors.K)
	assert.Equal(t, "static/rl_confusion_matrix.png", cfg.Flows.Logistic.Image)
	assert.Empty(t, cfg.History.Path)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeYAML(t, `
server:
  addr: ":8080"
  read_header_timeout: 2s
flows:
  neighbors:
    k: 7
  cv_folds: 3
history:
  path: /tmp/history.db
log:
  level: debug
  format: console
`)
	t.Setenv("VENTUREML_SERVER_ADDR", "127.0.0.1:9000")
	t.Setenv("VENTUREML_SPLIT_SEED", "7")
	t.Setenv("VENTUREML_METRICS_ENABLED", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr, "env wins over file")
	assert.Equal(t, 2*time.Second, cfg.Server.ReadHeaderTimeout)
	assert.Equal(t, 7, cfg.Flows.Neighbors.K)
	assert.Equal(t, "static/clf_confusion_matrix.png", cfg.Flows.Neighbors.Image, "unset keys keep defaults")
	assert.Equal(t, 3, cfg.Flows.CVFolds)
	assert.Equal(t, uint64(7), cfg.Split.Seed)
	assert.Equal(t, "/tmp/history.db", cfg.History.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeYAML(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		env   map[string]string
		param string
	}{
		{name: "test size out of range", yaml: "split:\n  test_size: 1.5\n", param: "split.test_size"},
		{name: "zero k", yaml: "flows:\n  neighbors:\n    k: 0\n", param: "flows.neighbors.k"},
		{name: "one fold", yaml: "flows:\n  cv_folds: 1\n", param: "flows.cv_folds"},
		{name: "bad log format", yaml: "log:\n  format: xml\n", param: "log.format"},
		{name: "bad gin mode", env: map[string]string{"VENTUREML_SERVER_GIN_MODE": "prod"}, param: "server.gin_mode"},
		{name: "unparsable env", env: map[string]string{"VENTUREML_FLOWS_NEIGHBORS_K": "five"}, param: "VENTUREML_FLOWS_NEIGHBORS_K"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = writeYAML(t, tt.yaml)
			}
			_, err := Load(path)
			var ve *errors.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.param, ve.ParamName)
		})
	}
}

func TestLoad_UnknownKeyAndMissingFile(t *testing.T) {
	_, err := Load(writeYAML(t, "sever:\n  addr: x\n"))
	assert.Error(t, err, "typos in keys are rejected")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
