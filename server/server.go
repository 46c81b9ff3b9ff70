// Package server is the gin web front end: the teaching pages, the practice
// forms backed by the trained flows, a small JSON API and operational
// endpoints.
package server

import (
	"context"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/YuminosukeSato/ventureml/config"
	"github.com/YuminosukeSato/ventureml/pkg/errors"
	"github.com/YuminosukeSato/ventureml/pkg/log"
	"github.com/YuminosukeSato/ventureml/store"
	"github.com/YuminosukeSato/ventureml/venture"
	"github.com/YuminosukeSato/ventureml/weight"
)

// Deps are the collaborators of a Server. Flows must contain every
// venture flow; the contexts are shared read-only by all handlers.
type Deps struct {
	Config  *config.Config
	Flows   map[venture.Flow]*venture.Context
	Weight  *weight.Model
	History store.History
	Logger  log.Logger
}

// Server serves the web application.
type Server struct {
	cfg     *config.Config
	engine  *gin.Engine
	flows   map[venture.Flow]*venture.Context
	runIDs  map[venture.Flow]string
	weight  *weight.Model
	plots   *lru.Cache[string, []byte]
	history store.History
	metrics *Metrics
	logger  log.Logger
}

// New builds the router and records the trained runs in the history.
func New(ctx context.Context, d Deps) (*Server, error) {
	if d.Config == nil {
		return nil, errors.NewValueError("server.New", "missing config")
	}
	for _, f := range venture.Flows {
		if d.Flows[f] == nil {
			return nil, errors.NewValidationError("flows", "missing trained flow", string(f))
		}
	}
	if d.Weight == nil {
		return nil, errors.NewValueError("server.New", "missing weight model")
	}
	if d.History == nil {
		d.History = store.Noop{}
	}
	if d.Logger == nil {
		d.Logger = log.GetLogger()
	}

	plots, err := lru.New[string, []byte](d.Config.Cache.PlotEntries)
	if err != nil {
		return nil, errors.Wrap(err, "server: plot cache")
	}

	s := &Server{
		cfg:     d.Config,
		flows:   d.Flows,
		runIDs:  map[venture.Flow]string{},
		weight:  d.Weight,
		plots:   plots,
		history: d.History,
		metrics: NewMetrics(),
		logger:  d.Logger.With(log.ComponentKey, "server"),
	}

	for _, f := range venture.Flows {
		id, err := s.recordRun(ctx, s.flows[f])
		if err != nil {
			return nil, err
		}
		s.runIDs[f] = id
		s.metrics.accuracy.WithLabelValues(string(f)).Set(s.flows[f].Evaluation().Accuracy)
	}

	renderer, err := newPageRenderer()
	if err != nil {
		return nil, err
	}
	s.engine = s.routes(renderer)
	return s, nil
}

func (s *Server) recordRun(ctx context.Context, vc *venture.Context) (string, error) {
	eval := vc.Evaluation()
	_, train, test := vc.Sizes()
	run := store.Run{
		Flow:       string(vc.Flow()),
		Model:      vc.ModelName(),
		Accuracy:   eval.Accuracy,
		AUC:        eval.AUC,
		TrainSize:  train,
		TestSize:   test,
		ImagePath:  eval.ImagePath,
		DurationMs: vc.Duration().Milliseconds(),
		TrainedAt:  vc.TrainedAt(),
	}
	if len(eval.CVScores) > 0 {
		cv := eval.CVMean()
		run.CVAccuracy = &cv
	}
	id, err := s.history.RecordRun(ctx, run)
	if err != nil {
		return "", errors.Wrapf(err, "server: record %s run", vc.Flow())
	}
	return id, nil
}

func (s *Server) routes(renderer pageRenderer) *gin.Engine {
	gin.SetMode(s.cfg.Server.GinMode)
	r := gin.New()
	r.HTMLRender = renderer
	r.Use(requestID(), accessLog(s.logger, s.metrics), gin.Recovery())

	r.GET("/", s.handleIndex)
	for path, t := range useCases {
		r.GET(path, s.handleTopic(pageUseCase, t))
	}
	for path, t := range concepts {
		r.GET(path, s.handleTopic(pageConcepts, t))
	}

	r.GET("/LRPractico", s.handleLRPractice)
	r.POST("/LRPractico", s.handleLRPractice)
	r.GET("/grafico", s.handleGraph)

	rl := s.handlePractice(venture.FlowLogistic, "/PracticoRL", "Regresión logística: práctica")
	r.GET("/PracticoRL", rl)
	r.POST("/PracticoRL", rl)
	alg := s.handlePractice(venture.FlowNeighbors, "/AlgPractico", "Algoritmos de clasificación: práctica")
	r.GET("/AlgPractico", alg)
	r.POST("/AlgPractico", alg)

	r.Static("/static", s.cfg.Static.Dir)
	r.GET("/health", s.handleHealth)
	if s.cfg.Metrics.Enabled {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	api := r.Group("/api")
	api.POST("/predict/:flow", s.handleAPIPredict)
	api.GET("/history", s.handleAPIHistory)
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: s.cfg.Server.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", "addr", s.cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "server: listen")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("Shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "server: shutdown")
	}
	return nil
}

// imageURL maps a file under the static directory to its /static URL; the
// training time is appended so browsers pick up a re-rendered image.
func (s *Server) imageURL(vc *venture.Context) string {
	path := vc.Evaluation().ImagePath
	rel, err := filepath.Rel(s.cfg.Static.Dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(path)
	}
	return "/static/" + filepath.ToSlash(rel) + "?v=" + strconv.FormatInt(vc.TrainedAt().Unix(), 10)
}
