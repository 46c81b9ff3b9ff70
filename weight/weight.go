// Package weight is the linear-regression demo: weight = volume × density,
// learned from a small seeded sample set.
package weight

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ventureml/linear"
	"github.com/YuminosukeSato/ventureml/metrics"
	"github.com/YuminosukeSato/ventureml/pkg/errors"
	"github.com/YuminosukeSato/ventureml/pkg/log"
	"github.com/YuminosukeSato/ventureml/viz"
)

// Sample ranges, upper bounds exclusive.
const (
	MaxVolume  = 100.0 // cm³
	MaxDensity = 5.0   // g/cm³
)

// Axes labels the scatter plot.
var Axes = viz.Axes3{X: "Volumen (cm³)", Y: "Densidad (g/cm³)", Z: "Peso (g)"}

// Sample is one synthetic measurement.
type Sample struct {
	Volume  float64
	Density float64
	Weight  float64
}

// Samples draws n measurements with volume in [0, 100), density in [0, 5)
// and weight = volume × density. The same seed yields the same samples.
func Samples(n int, seed uint64) []Sample {
	rng := rand.New(rand.NewPCG(seed, seed))
	out := make([]Sample, n)
	for i := range out {
		v := rng.Float64() * MaxVolume
		d := rng.Float64() * MaxDensity
		out[i] = Sample{Volume: v, Density: d, Weight: v * d}
	}
	return out
}

// Quality is the in-sample fit of the weight model.
type Quality struct {
	R2   float64 `json:"r2"`
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
}

// Model regresses weight on the single feature volume × density.
type Model struct {
	reg     *linear.LinearRegression
	samples []Sample
	quality Quality
}

// Fit trains a Model on samples.
func Fit(samples []Sample, logger log.Logger) (*Model, error) {
	if len(samples) < 2 {
		return nil, errors.NewValueError("weight.Fit", "need at least two samples")
	}
	X := mat.NewDense(len(samples), 1, nil)
	y := mat.NewDense(len(samples), 1, nil)
	for i, s := range samples {
		X.Set(i, 0, s.Volume*s.Density)
		y.Set(i, 0, s.Weight)
	}
	reg := linear.NewLinearRegression()
	if err := reg.Fit(X, y); err != nil {
		return nil, errors.Wrap(err, "in weight.Fit")
	}
	q, err := evaluate(reg, X, y)
	if err != nil {
		return nil, errors.Wrap(err, "in weight.Fit")
	}
	if logger == nil {
		logger = log.GetLogger()
	}
	logger.Info("Weight model fitted",
		log.ModelNameKey, reg.Name(),
		log.SamplesKey, len(samples),
		log.R2Key, q.R2,
		log.RMSEKey, q.RMSE,
		log.MAEKey, q.MAE,
		"coef", reg.GetWeights()[0],
		"intercept", reg.GetIntercept(),
	)
	return &Model{reg: reg, samples: samples, quality: q}, nil
}

func evaluate(reg *linear.LinearRegression, X, y *mat.Dense) (Quality, error) {
	r2, err := reg.Score(X, y)
	if err != nil {
		return Quality{}, err
	}
	predM, err := reg.Predict(X)
	if err != nil {
		return Quality{}, err
	}
	n, _ := y.Dims()
	yTrue := mat.NewVecDense(n, mat.Col(nil, 0, y))
	yPred := mat.NewVecDense(n, mat.Col(nil, 0, predM))
	rmse, err := metrics.RMSE(yTrue, yPred)
	if err != nil {
		return Quality{}, err
	}
	mae, err := metrics.MAE(yTrue, yPred)
	if err != nil {
		return Quality{}, err
	}
	return Quality{R2: r2, RMSE: rmse, MAE: mae}, nil
}

// Quality returns the fit measured on the training samples.
func (m *Model) Quality() Quality {
	return m.quality
}

// Estimate predicts the weight in grams of volume cm³ at density g/cm³.
func (m *Model) Estimate(volume, density float64) (float64, error) {
	pred, err := m.reg.Predict(mat.NewDense(1, 1, []float64{volume * density}))
	if err != nil {
		return 0, err
	}
	return pred.At(0, 0), nil
}

// Samples returns the training samples.
func (m *Model) Samples() []Sample {
	return m.samples
}

// Point is an optional highlighted point; any nil coordinate means "none".
type Point struct {
	Volume, Density, Weight *float64
}

// Plot renders the training samples as a 3-D scatter PNG. The point is
// drawn only when all three of its coordinates are set.
func (m *Model) Plot(p Point) ([]byte, error) {
	pts := make([]viz.Point3, len(m.samples))
	for i, s := range m.samples {
		pts[i] = viz.Point3{X: s.Volume, Y: s.Density, Z: s.Weight}
	}
	var hl *viz.Point3
	if p.Volume != nil && p.Density != nil && p.Weight != nil {
		hl = &viz.Point3{X: *p.Volume, Y: *p.Density, Z: *p.Weight}
	}
	return viz.Scatter3DPNG(pts, hl, Axes)
}
