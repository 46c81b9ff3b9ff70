package server

import (
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/YuminosukeSato/ventureml/metrics"
	"github.com/YuminosukeSato/ventureml/pkg/errors"
	"github.com/YuminosukeSato/ventureml/pkg/log"
	"github.com/YuminosukeSato/ventureml/preprocessing"
	"github.com/YuminosukeSato/ventureml/store"
	"github.com/YuminosukeSato/ventureml/venture"
	"github.com/YuminosukeSato/ventureml/weight"
)

// fail aborts with a bare 500; the error is logged by accessLog.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.String(http.StatusInternalServerError, "Internal Server Error")
	c.Abort()
}

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, pageIndex, nil)
}

func (s *Server) handleTopic(page string, t topic) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, page, t)
	}
}

type lrPracticeView struct {
	Volumen      *float64
	Densidad     *float64
	HasEstimate  bool
	PesoEstimado float64
	GraphURL     string
	Quality      weight.Quality
}

// handleLRPractice estimates weight = f(volumen × densidad). A POST missing
// either field, or with a non-numeric one, is a 400.
func (s *Server) handleLRPractice(c *gin.Context) {
	view := lrPracticeView{GraphURL: "/grafico", Quality: s.weight.Quality()}
	if c.Request.Method == http.MethodPost {
		vol, err := requiredFloat(c.PostForm("volumen"))
		if err != nil {
			c.String(http.StatusBadRequest, "volumen: %v", err)
			return
		}
		dens, err := requiredFloat(c.PostForm("densidad"))
		if err != nil {
			c.String(http.StatusBadRequest, "densidad: %v", err)
			return
		}
		peso, err := s.weight.Estimate(vol, dens)
		if err != nil {
			fail(c, err)
			return
		}
		view.Volumen, view.Densidad = &vol, &dens
		view.HasEstimate, view.PesoEstimado = true, peso
		q := url.Values{}
		q.Set("volumen", strconv.FormatFloat(vol, 'g', -1, 64))
		q.Set("densidad", strconv.FormatFloat(dens, 'g', -1, 64))
		q.Set("peso", strconv.FormatFloat(peso, 'g', -1, 64))
		view.GraphURL = "/grafico?" + q.Encode()
	}
	c.HTML(http.StatusOK, pageLRPractice, view)
}

func requiredFloat(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("required")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Newf("not a number: %q", raw)
	}
	return v, nil
}

// optionalFloat returns nil for a missing or invalid value.
func optionalFloat(raw string) *float64 {
	v, err := requiredFloat(raw)
	if err != nil {
		return nil
	}
	return &v
}

// handleGraph renders the weight scatter. Invalid query values are ignored;
// rendered images are cached per distinct point.
func (s *Server) handleGraph(c *gin.Context) {
	pt := weight.Point{
		Volume:  optionalFloat(c.Query("volumen")),
		Density: optionalFloat(c.Query("densidad")),
		Weight:  optionalFloat(c.Query("peso")),
	}
	key := cacheKey(pt)
	if png, ok := s.plots.Get(key); ok {
		s.metrics.plotCache.WithLabelValues("hit").Inc()
		c.Data(http.StatusOK, "image/png", png)
		return
	}
	s.metrics.plotCache.WithLabelValues("miss").Inc()

	png, err := s.weight.Plot(pt)
	if err != nil {
		fail(c, err)
		return
	}
	s.plots.Add(key, png)
	c.Data(http.StatusOK, "image/png", png)
}

// cacheKey identifies what Plot draws: a partial point draws nothing extra.
func cacheKey(p weight.Point) string {
	if p.Volume == nil || p.Density == nil || p.Weight == nil {
		return "samples"
	}
	return fmt.Sprintf("%g|%g|%g", *p.Volume, *p.Density, *p.Weight)
}

type practiceView struct {
	Heading           string
	Action            string
	Informe           string
	AccuracyPct       float64
	HasCV             bool
	CVFolds           int
	CVPct             float64
	Report            []metrics.ReportRow
	ImageURL          string
	TextExperiencia   bool
	ExperienciaLevels []string
	Form              venture.FormValues
	Threshold         float64
	Prediction        *venture.Prediction
	ProbText          string
}

// handlePractice serves a classifier practice page. A POST with every field
// filled predicts; a blank field leaves the prediction unset.
func (s *Server) handlePractice(flow venture.Flow, action, heading string) gin.HandlerFunc {
	return func(c *gin.Context) {
		vc := s.flows[flow]
		eval := vc.Evaluation()

		form := venture.FormValues{
			CapitalInicial: c.PostForm("CapitalInicial"),
			Experiencia:    c.PostForm("Experiencia"),
			NumSocios:      c.PostForm("NumSocios"),
			AniosOperacion: c.PostForm("AniosOperacion"),
		}
		view := practiceView{
			Heading:           heading,
			Action:            action,
			Informe:           vc.Summary(),
			AccuracyPct:       eval.AccuracyPercent(),
			HasCV:             len(eval.CVScores) > 0,
			CVFolds:           len(eval.CVScores),
			Report:            eval.Report.Rows,
			ImageURL:          s.imageURL(vc),
			TextExperiencia:   flow.TextExperiencia(),
			ExperienciaLevels: preprocessing.ExperienciaLevels,
			Form:              form,
			Threshold:         venture.ParseThreshold(c.PostForm("threshold")),
		}
		if view.HasCV {
			view.CVPct = errors.Round(eval.CVMean()*100, 2)
		}

		if c.Request.Method == http.MethodPost && form.Complete() {
			features, err := flow.FeaturesFromForm(form)
			if err != nil {
				fail(c, err)
				return
			}
			pred, err := s.predict(c, flow, features, view.Threshold)
			if err != nil {
				fail(c, err)
				return
			}
			view.Prediction = &pred
			if flow == venture.FlowLogistic {
				view.ProbText = strconv.FormatFloat(errors.Round(pred.Probability, 4), 'f', -1, 64)
			} else {
				view.ProbText = strconv.FormatFloat(pred.Probability, 'f', -1, 64)
			}
		}
		c.HTML(http.StatusOK, pagePractice, view)
	}
}

// predict runs the flow, counts the prediction and records it. History
// failures are logged and do not fail the request.
func (s *Server) predict(c *gin.Context, flow venture.Flow, f venture.Features, threshold float64) (venture.Prediction, error) {
	pred, err := s.flows[flow].Predict(f, threshold)
	if err != nil {
		return venture.Prediction{}, err
	}
	s.metrics.predictions.WithLabelValues(string(flow), string(pred.Label)).Inc()

	err = s.history.RecordPrediction(c.Request.Context(), store.Prediction{
		RunID:          s.runIDs[flow],
		Flow:           string(flow),
		CapitalInicial: f.CapitalInicial,
		Experiencia:    f.Experiencia,
		NumSocios:      f.NumSocios,
		AniosOperacion: f.AniosOperacion,
		Probability:    pred.Probability,
		Threshold:      pred.Threshold,
		Label:          string(pred.Label),
	})
	if err != nil {
		s.logger.Warn("Prediction not recorded",
			log.ErrorKey, err.Error(),
			log.RequestIDKey, c.GetString(requestIDKey),
		)
	}
	return pred, nil
}

type flowHealth struct {
	Model    string  `json:"model"`
	Accuracy float64 `json:"accuracy"`
	RunID    string  `json:"run_id"`
}

func (s *Server) handleHealth(c *gin.Context) {
	flows := map[string]flowHealth{}
	for f, vc := range s.flows {
		flows[string(f)] = flowHealth{
			Model:    vc.ModelName(),
			Accuracy: vc.Evaluation().Accuracy,
			RunID:    s.runIDs[f],
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "flows": flows})
}
