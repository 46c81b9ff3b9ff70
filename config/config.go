// Package config loads the ventureml configuration: built-in defaults,
// an optional YAML file, then VENTUREML_* environment overrides, validated
// with go-playground/validator.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/ventureml/pkg/errors"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "VENTUREML_"

// Config is the complete application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Data    DataConfig    `yaml:"data"`
	Static  StaticConfig  `yaml:"static"`
	Split   SplitConfig   `yaml:"split"`
	Flows   FlowsConfig   `yaml:"flows"`
	Weight  WeightConfig  `yaml:"weight"`
	Cache   CacheConfig   `yaml:"cache"`
	History HistoryConfig `yaml:"history"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr              string        `yaml:"addr" validate:"required"`
	GinMode           string        `yaml:"gin_mode" validate:"oneof=debug release test"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" validate:"gt=0"`
}

// DataConfig locates the training CSV.
type DataConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// StaticConfig is the directory served under /static.
type StaticConfig struct {
	Dir string `yaml:"dir" validate:"required"`
}

// SplitConfig controls the train/test split.
type SplitConfig struct {
	TestSize float64 `yaml:"test_size" validate:"gt=0,lt=1"`
	Seed     uint64  `yaml:"seed"`
}

// FlowConfig is the per-flow configuration.
type FlowConfig struct {
	Image string `yaml:"image" validate:"required"`
}

// NeighborsConfig adds k to FlowConfig.
type NeighborsConfig struct {
	Image string `yaml:"image" validate:"required"`
	K     int    `yaml:"k" validate:"gte=1"`
}

// FlowsConfig configures both classifier flows.
type FlowsConfig struct {
	Logistic  FlowConfig      `yaml:"logistic"`
	Neighbors NeighborsConfig `yaml:"neighbors"`
	// CVFolds is the number of cross-validation folds, 0 disables it.
	CVFolds int `yaml:"cv_folds" validate:"gte=0,ne=1"`
}

// WeightConfig configures the linear-regression demo samples.
type WeightConfig struct {
	Samples int    `yaml:"samples" validate:"gte=2"`
	Seed    uint64 `yaml:"seed"`
}

// CacheConfig sizes the rendered scatter cache.
type CacheConfig struct {
	PlotEntries int `yaml:"plot_entries" validate:"gte=1"`
}

// HistoryConfig locates the SQLite history; an empty path disables it.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=json console"`
	// File, when set, receives logs through a rotating writer instead of stdout.
	File string `yaml:"file"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":5000",
			GinMode:           "release",
			ReadHeaderTimeout: 5 * time.Second,
		},
		Data:   DataConfig{Path: "Datasheets/data.csv"},
		Static: StaticConfig{Dir: "static"},
		Split:  SplitConfig{TestSize: 0.2, Seed: 42},
		Flows: FlowsConfig{
			Logistic:  FlowConfig{Image: "static/rl_confusion_matrix.png"},
			Neighbors: NeighborsConfig{Image: "static/clf_confusion_matrix.png", K: 5},
			CVFolds:   5,
		},
		Weight:  WeightConfig{Samples: 20, Seed: 42},
		Cache:   CacheConfig{PlotEntries: 128},
		History: HistoryConfig{Path: ""},
		Log:     LogConfig{Level: "info", Format: "json"},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Load builds the configuration from defaults, the YAML file at path (when
// non-empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "config: read %s", path)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Wrapf(err, "config: parse %s", path)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field constraint. The first failure is returned as a
// ValidationError naming the YAML key.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return errors.NewValidationError(yamlKey(fe.StructNamespace()),
			fmt.Sprintf("failed %q constraint", fe.Tag()), fe.Value())
	}
	return errors.Wrap(err, "config: validate")
}

// yamlKey maps "Config.Flows.Neighbors.K" to "flows.neighbors.k".
func yamlKey(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = snake(p)
	}
	return strings.Join(parts, ".")
}

func snake(s string) string {
	switch s {
	case "CVFolds":
		return "cv_folds"
	case "GinMode":
		return "gin_mode"
	case "ReadHeaderTimeout":
		return "read_header_timeout"
	case "TestSize":
		return "test_size"
	case "PlotEntries":
		return "plot_entries"
	}
	return strings.ToLower(s)
}

// envBinding applies one environment variable.
type envBinding struct {
	key string
	set func(c *Config, v string) error
}

func stringVar(dst func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*dst(c) = v
		return nil
	}
}

func intVar(dst func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst(c) = n
		return nil
	}
}

func uintVar(dst func(*Config) *uint64) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return err
		}
		*dst(c) = n
		return nil
	}
}

var envBindings = []envBinding{
	{"SERVER_ADDR", stringVar(func(c *Config) *string { return &c.Server.Addr })},
	{"SERVER_GIN_MODE", stringVar(func(c *Config) *string { return &c.Server.GinMode })},
	{"SERVER_READ_HEADER_TIMEOUT", func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		c.Server.ReadHeaderTimeout = d
		return nil
	}},
	{"DATA_PATH", stringVar(func(c *Config) *string { return &c.Data.Path })},
	{"STATIC_DIR", stringVar(func(c *Config) *string { return &c.Static.Dir })},
	{"SPLIT_TEST_SIZE", func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		c.Split.TestSize = f
		return nil
	}},
	{"SPLIT_SEED", uintVar(func(c *Config) *uint64 { return &c.Split.Seed })},
	{"FLOWS_LOGISTIC_IMAGE", stringVar(func(c *Config) *string { return &c.Flows.Logistic.Image })},
	{"FLOWS_NEIGHBORS_IMAGE", stringVar(func(c *Config) *string { return &c.Flows.Neighbors.Image })},
	{"FLOWS_NEIGHBORS_K", intVar(func(c *Config) *int { return &c.Flows.Neighbors.K })},
	{"FLOWS_CV_FOLDS", intVar(func(c *Config) *int { return &c.Flows.CVFolds })},
	{"WEIGHT_SAMPLES", intVar(func(c *Config) *int { return &c.Weight.Samples })},
	{"WEIGHT_SEED", uintVar(func(c *Config) *uint64 { return &c.Weight.Seed })},
	{"CACHE_PLOT_ENTRIES", intVar(func(c *Config) *int { return &c.Cache.PlotEntries })},
	{"HISTORY_PATH", stringVar(func(c *Config) *string { return &c.History.Path })},
	{"LOG_LEVEL", stringVar(func(c *Config) *string { return &c.Log.Level })},
	{"LOG_FORMAT", stringVar(func(c *Config) *string { return &c.Log.Format })},
	{"LOG_FILE", stringVar(func(c *Config) *string { return &c.Log.File })},
	{"METRICS_ENABLED", func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.Metrics.Enabled = b
		return nil
	}},
}

// applyEnv overrides fields from VENTUREML_<SECTION>_<KEY> variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for _, b := range envBindings {
		name := EnvPrefix + b.key
		v, ok := lookup(name)
		if !ok {
			continue
		}
		if err := b.set(c, strings.TrimSpace(v)); err != nil {
			return errors.NewValidationError(name, err.Error(), v)
		}
	}
	return nil
}
