package bootstrap

import (
	"net/http"

	httpapi "github.com/turtacn/COF-H2-Predictor/internal/interfaces/http"
	"github.com/turtacn/COF-H2-Predictor/internal/interfaces/http/handlers"
	"github.com/turtacn/COF-H2-Predictor/internal/interfaces/http/middleware"
)

func newHandler(a *App, version string) (http.Handler, error) {
	pages, err := handlers.NewPageHandler(a.Service, a.Logger.Named("pages"))
	if err != nil {
		return nil, err
	}

	rc := httpapi.RouterConfig{
		PageHandler:       pages,
		PredictionHandler: handlers.NewPredictionHandler(a.Service, a.Logger.Named("api")),
		HealthHandler:     handlers.NewHealthHandler(version, a.Checkers...),
		ScreenHandler:     handlers.NewScreenHandler(a.Screener, a.Logger.Named("api")),
		Logging:           middleware.RequestLogging(a.Logger.Named("http"), a.Metrics, middleware.DefaultLoggingConfig()),
	}

	if a.Config.Metrics.Enabled {
		rc.MetricsHandler = a.Collector.Handler()
		rc.MetricsPath = a.Config.Metrics.Path
	}

	if rl := a.Config.RateLimit; rl.Enabled {
		cfg := middleware.DefaultRateLimitConfig()
		if rl.RequestsPerSecond > 0 {
			cfg.RequestsPerSecond = rl.RequestsPerSecond
		}
		if rl.Burst > 0 {
			cfg.Burst = rl.Burst
		}
		limiter := middleware.NewTokenBucketLimiter(cfg.RequestsPerSecond, cfg.Burst, cfg.CleanupInterval)
		a.closers = append(a.closers, func() error { limiter.Stop(); return nil })
		rc.RateLimit = middleware.RateLimit(limiter, cfg)
	}

	if origins := a.Config.Server.CORSOrigins; len(origins) > 0 {
		cfg := middleware.DefaultCORSConfig()
		cfg.AllowedOrigins = origins
		rc.CORS = middleware.CORS(cfg)
	}

	return httpapi.NewRouter(rc), nil
}

//Personal.AI order the ending
