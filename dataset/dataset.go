// Package dataset loads the venture CSV into gonum matrices.
package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/ventureml/pkg/errors"
	"github.com/YuminosukeSato/ventureml/pkg/log"
	"github.com/YuminosukeSato/ventureml/preprocessing"
)

// DefaultPath is where the dataset lives relative to the working directory.
const DefaultPath = "Datasheets/data.csv"

// Column names.
const (
	ColCapitalInicial = "CapitalInicial"
	ColExperiencia    = "Experiencia"
	ColNumSocios      = "NumSocios"
	ColAniosOperacion = "AniosOperacion"
	ColFracaso        = "Fracaso"
)

// FeatureColumns lists the feature columns in matrix column order.
var FeatureColumns = []string{ColCapitalInicial, ColExperiencia, ColNumSocios, ColAniosOperacion}

var requiredColumns = []string{ColCapitalInicial, ColExperiencia, ColNumSocios, ColAniosOperacion, ColFracaso}

// Dataset is the loaded table. It is not modified after Load returns.
type Dataset struct {
	Features []string
	X        *mat.Dense
	Y        *mat.VecDense
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil || d.Y == nil {
		return 0
	}
	return d.Y.Len()
}

// ColumnSummary describes one feature column.
type ColumnSummary struct {
	Name string
	Mean float64
	Min  float64
	Max  float64
}

// Summary is a shape and class-balance overview of a Dataset.
type Summary struct {
	Rows         int
	Positives    int
	PositiveRate float64
	Columns      []ColumnSummary
}

// Summary computes the per-column mean/min/max and the positive rate.
func (d *Dataset) Summary() Summary {
	n := d.Len()
	s := Summary{Rows: n}
	if n == 0 {
		return s
	}
	for i := 0; i < n; i++ {
		if d.Y.AtVec(i) == 1 {
			s.Positives++
		}
	}
	s.PositiveRate = float64(s.Positives) / float64(n)

	col := make([]float64, n)
	for j, name := range d.Features {
		mat.Col(col, j, d.X)
		s.Columns = append(s.Columns, ColumnSummary{
			Name: name,
			Mean: stat.Mean(col, nil),
			Min:  floats.Min(col),
			Max:  floats.Max(col),
		})
	}
	return s
}

type options struct {
	logger log.Logger
}

// Option configures Load.
type Option func(*options)

// WithLogger sets the logger used for the debug summary.
func WithLogger(l log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Load reads the CSV file at path.
func Load(path string, opts ...Option) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewDataError(path, 0, "", err)
	}
	defer f.Close()
	return Read(f, path, opts...)
}

// Read parses CSV from r. name is only used in error messages and logs.
func Read(r io.Reader, name string, opts ...Option) (*Dataset, error) {
	o := options{logger: log.GetLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.NewDataError(name, 0, "", errors.ErrEmptyData)
	}
	if err != nil {
		return nil, csvError(name, err)
	}
	index, err := columnIndex(header)
	if err != nil {
		return nil, errors.NewDataError(name, 1, "", err)
	}

	var (
		xs []float64
		ys []float64
	)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, csvError(name, err)
		}
		line, _ := cr.FieldPos(0)

		for _, col := range FeatureColumns {
			v, err := parseFeature(col, record[index[col]])
			if err != nil {
				return nil, errors.NewDataError(name, line, col, err)
			}
			xs = append(xs, v)
		}
		y, err := parseTarget(record[index[ColFracaso]])
		if err != nil {
			return nil, errors.NewDataError(name, line, ColFracaso, err)
		}
		ys = append(ys, y)
	}

	if len(ys) == 0 {
		return nil, errors.NewDataError(name, 0, "", errors.ErrEmptyData)
	}

	features := make([]string, len(FeatureColumns))
	copy(features, FeatureColumns)
	ds := &Dataset{
		Features: features,
		X:        mat.NewDense(len(ys), len(FeatureColumns), xs),
		Y:        mat.NewVecDense(len(ys), ys),
	}

	logSummary(o.logger, name, ds)
	return ds, nil
}

func csvError(name string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return errors.NewDataError(name, pe.Line, "", pe.Err)
	}
	return errors.NewDataError(name, 0, "", err)
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		index[h] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, errors.Newf("missing column %q", col)
		}
	}
	return index, nil
}

func parseFeature(col, raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if col == ColExperiencia {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			if v != math.Trunc(v) {
				errors.Warn(errors.NewDataConversionWarning("float64", "int", ColExperiencia+" "+raw+" truncated"))
			}
			return math.Trunc(v), nil
		}
		code, err := preprocessing.ParseExperiencia(raw)
		return float64(code), err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.NewValidationError(col, "not a number", raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.NewValidationError(col, "not a finite number", raw)
	}
	return v, nil
}

func parseTarget(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "Sí", "Si", "yes":
		return 1, nil
	case "No", "no":
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.NewValidationError(ColFracaso, "expected 0/1 or Sí/No", raw)
	}
	return v, nil
}

func logSummary(logger log.Logger, name string, ds *Dataset) {
	s := ds.Summary()
	logger.Info("Dataset loaded",
		log.OperationKey, log.OperationLoad,
		log.DataPathKey, name,
		log.SamplesKey, s.Rows,
		log.FeaturesKey, len(ds.Features),
		log.PositiveRateKey, s.PositiveRate,
	)
	for _, c := range s.Columns {
		logger.Debug("Column summary",
			"column", c.Name,
			"mean", c.Mean,
			"min", c.Min,
			"max", c.Max,
		)
	}
}
