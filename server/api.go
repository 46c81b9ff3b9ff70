package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/YuminosukeSato/ventureml/venture"
)

// predictRequest is the body of POST /api/predict/:flow. Experiencia is
// Baja/Media/Alta for the logistic flow and an integer code otherwise.
type predictRequest struct {
	CapitalInicial *float64 `json:"CapitalInicial" binding:"required"`
	Experiencia    string   `json:"Experiencia" binding:"required"`
	NumSocios      *float64 `json:"NumSocios" binding:"required,gte=0"`
	AniosOperacion *float64 `json:"AniosOperacion" binding:"required,gte=0"`
	Threshold      *float64 `json:"threshold" binding:"omitempty,gte=0,lte=1"`
}

type predictResponse struct {
	venture.Prediction
	Flow    string `json:"flow"`
	Display string `json:"display"`
	RunID   string `json:"run_id"`
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (s *Server) handleAPIPredict(c *gin.Context) {
	flow, err := venture.ParseFlow(c.Param("flow"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	features, err := flow.FeaturesFromForm(venture.FormValues{
		CapitalInicial: strconv.FormatFloat(*req.CapitalInicial, 'g', -1, 64),
		Experiencia:    req.Experiencia,
		NumSocios:      strconv.FormatFloat(*req.NumSocios, 'g', -1, 64),
		AniosOperacion: strconv.FormatFloat(*req.AniosOperacion, 'g', -1, 64),
	})
	if err != nil {
		badRequest(c, err)
		return
	}
	threshold := venture.DefaultThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	pred, err := s.predict(c, flow, features, threshold)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, predictResponse{
		Prediction: pred,
		Flow:       string(flow),
		Display:    pred.Label.Display(),
		RunID:      s.runIDs[flow],
	})
}

type historyQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

func (s *Server) handleAPIHistory(c *gin.Context) {
	var q historyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	if q.Limit == 0 {
		q.Limit = 20
	}
	runs, err := s.history.RecentRuns(c.Request.Context(), q.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	preds, err := s.history.RecentPredictions(c.Request.Context(), q.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "predictions": preds})
}
