// Package http assembles the predictor's HTTP surface: the server-rendered
// pages, the JSON API, health probes and the metrics endpoint.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/COF-H2-Predictor/internal/interfaces/http/handlers"
)

// Middleware is a standard net/http middleware.
type Middleware func(http.Handler) http.Handler

// RouterConfig aggregates the handlers and middleware of the route tree.
// Nil handlers leave their routes unregistered.
type RouterConfig struct {
	PageHandler       *handlers.PageHandler
	PredictionHandler *handlers.PredictionHandler
	HealthHandler     *handlers.HealthHandler
	// ScreenHandler adds the batch route under the prediction API.
	ScreenHandler *handlers.ScreenHandler

	CORS      Middleware
	Logging   Middleware
	RateLimit Middleware

	// MetricsHandler is mounted at MetricsPath, "/metrics" when empty.
	MetricsHandler http.Handler
	MetricsPath    string
}

// NewRouter constructs the route tree. Global middleware order is request ID,
// real IP, panic recovery, CORS, logging. The rate limiter only wraps the
// compute routes.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if cfg.CORS != nil {
		r.Use(cfg.CORS)
	}
	if cfg.Logging != nil {
		r.Use(cfg.Logging)
	}

	if h := cfg.HealthHandler; h != nil {
		r.Get("/healthz", h.Liveness)
		r.Get("/readyz", h.Readiness)
	}
	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.MetricsHandler)
	}

	limited := func(r chi.Router) chi.Router {
		if cfg.RateLimit != nil {
			return r.With(cfg.RateLimit)
		}
		return r
	}

	if h := cfg.PageHandler; h != nil {
		r.Get("/", h.Predictor)
		r.Get("/predictor", h.Predictor)
		limited(r).Post("/predictor", h.Submit)
		r.Get("/optimization", h.Optimization)
		r.Get("/placeholder", h.Placeholder)
	}

	if h := cfg.PredictionHandler; h != nil {
		r.Route("/api/v1", func(api chi.Router) {
			api.Get("/schema", h.Schema)
			limited(api).Post("/descriptors", h.Descriptors)
			api.Route("/predictions", func(p chi.Router) {
				limited(p).Post("/", h.Predict)
				p.Get("/", h.ListHistory)
				p.Get("/{predictionID}", h.GetPrediction)
				if sh := cfg.ScreenHandler; sh != nil {
					limited(p).Post("/batch", sh.Screen)
				}
			})
		})
	}

	return r
}

//Personal.AI order the ending
