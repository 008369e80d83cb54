// Package api exposes the HTTP interface for the scraper service.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/viberoam/restaurant-scraper/internal/config"
	"github.com/viberoam/restaurant-scraper/internal/pipeline"
	"github.com/viberoam/restaurant-scraper/internal/scrape"
)

// Runner executes one scrape invocation. Satisfied by *pipeline.Pipeline.
type Runner interface {
	Run(ctx context.Context) scrape.Outcome
}

// Server wires HTTP handlers to the scrape pipeline.
type Server struct {
	router  chi.Router
	runner  Runner
	metrics *pipeline.Metrics
	logger  *zap.Logger
	cfg     config.Config
}

// NewServer constructs a Server with middleware and routes.
func NewServer(runner Runner, metrics *pipeline.Metrics, logger *zap.Logger, cfg config.Config) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		runner:  runner,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(120 * time.Second))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/scrape", s.runScrape)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ready"})
}

// runScrape triggers one pipeline invocation. The response is always 200 with
// the Outcome body; failure lives inside the payload, mirroring how the
// pipeline treats failure as data.
func (s *Server) runScrape(w http.ResponseWriter, r *http.Request) {
	outcome := s.runner.Run(r.Context())
	writeJSON(s.logger, w, http.StatusOK, outcome)
}
