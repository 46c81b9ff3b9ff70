package venture

import (
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ventureml/dataset"
	"github.com/YuminosukeSato/ventureml/pkg/errors"
	"github.com/YuminosukeSato/ventureml/preprocessing"
)

// DefaultThreshold is the probability at or above which a venture is
// predicted to fail.
const DefaultThreshold = 0.5

// ErrIncompleteForm is returned by FeaturesFromForm when a field is blank.
var ErrIncompleteForm = errors.New("incomplete form")

// Label is a predicted outcome.
type Label string

const (
	// LabelYes means the venture is predicted to fail.
	LabelYes Label = "yes"
	// LabelNo means it is not.
	LabelNo Label = "no"
)

// Display returns the Spanish label shown in pages.
func (l Label) Display() string {
	if l == LabelYes {
		return "Sí"
	}
	return "No"
}

// Features is one row to classify.
type Features struct {
	CapitalInicial float64 `json:"CapitalInicial"`
	Experiencia    int     `json:"Experiencia"`
	NumSocios      float64 `json:"NumSocios"`
	AniosOperacion float64 `json:"AniosOperacion"`
}

// row returns f in dataset.FeatureColumns order.
func (f Features) row() *mat.Dense {
	return mat.NewDense(1, len(dataset.FeatureColumns), []float64{
		f.CapitalInicial,
		float64(f.Experiencia),
		f.NumSocios,
		f.AniosOperacion,
	})
}

// Prediction is the outcome of Context.Predict.
type Prediction struct {
	Label       Label   `json:"label"`
	Probability float64 `json:"probability"`
	Threshold   float64 `json:"threshold"`
}

// FormValues holds the raw practice-form fields.
type FormValues struct {
	CapitalInicial string
	Experiencia    string
	NumSocios      string
	AniosOperacion string
}

// Complete reports whether every field is non-blank.
func (v FormValues) Complete() bool {
	for _, s := range []string{v.CapitalInicial, v.Experiencia, v.NumSocios, v.AniosOperacion} {
		if strings.TrimSpace(s) == "" {
			return false
		}
	}
	return true
}

// FeaturesFromForm converts form values into Features for the flow.
// Blank fields yield ErrIncompleteForm; values that are present but not
// numeric yield a ValueError. Experiencia is read as Baja/Media/Alta text
// for the logistic flow and as an integer code otherwise.
func (f Flow) FeaturesFromForm(v FormValues) (Features, error) {
	if !v.Complete() {
		return Features{}, ErrIncompleteForm
	}

	var (
		out Features
		err error
	)
	if out.CapitalInicial, err = parseFloat(dataset.ColCapitalInicial, v.CapitalInicial); err != nil {
		return Features{}, err
	}
	if out.NumSocios, err = parseFloat(dataset.ColNumSocios, v.NumSocios); err != nil {
		return Features{}, err
	}
	if out.AniosOperacion, err = parseFloat(dataset.ColAniosOperacion, v.AniosOperacion); err != nil {
		return Features{}, err
	}

	if f.TextExperiencia() {
		out.Experiencia = preprocessing.EncodeExperiencia(v.Experiencia)
		return out, nil
	}
	code, err := strconv.Atoi(strings.TrimSpace(v.Experiencia))
	if err != nil {
		return Features{}, errors.NewValueError("venture.FeaturesFromForm",
			"Experiencia must be an integer code: "+strconv.Quote(v.Experiencia))
	}
	out.Experiencia = code
	return out, nil
}

func parseFloat(field, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.NewValueError("venture.FeaturesFromForm",
			field+" must be numeric: "+strconv.Quote(raw))
	}
	return v, nil
}

// ParseThreshold reads the form threshold; missing or non-numeric values
// fall back to DefaultThreshold.
func ParseThreshold(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return DefaultThreshold
	}
	return v
}
