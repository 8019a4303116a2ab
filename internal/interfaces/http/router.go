package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DocRev-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/DocRev-Intelligence/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the dependencies of the ops route tree.
type RouterConfig struct {
	HealthHandler *handlers.HealthHandler
	// Metrics serves the Prometheus exposition; nil disables /metrics.
	Metrics     http.Handler
	MetricsPath string
	Logger      logging.Logger
}

// NewRouter builds the worker's ops router: probes and metrics.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogging(cfg.Logger, middleware.DefaultLoggingConfig()))
	}

	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}

	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.Metrics)
	}

	return r
}

//Personal.AI order the ending
