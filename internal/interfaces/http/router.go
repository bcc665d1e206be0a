// Package http assembles the gin route tree and the HTTP server lifecycle.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/opencivic/lobbyreg/internal/infrastructure/monitoring/logging"
	"github.com/opencivic/lobbyreg/internal/infrastructure/monitoring/prometheus"
	"github.com/opencivic/lobbyreg/internal/interfaces/http/handlers"
	"github.com/opencivic/lobbyreg/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and cross-cutting dependencies the
// route tree needs. Nil handlers are skipped, which keeps partial wiring
// (tests, the worker process) cheap.
type RouterConfig struct {
	Registration *handlers.RegistrationHandler
	Hours        *handlers.HoursHandler
	Reports      *handlers.ReportsHandler
	Enforcement  *handlers.EnforcementHandler
	Analytics    *handlers.AnalyticsHandler
	Health       *handlers.HealthHandler

	CORS      *middleware.CORSConfig
	Logger    logging.Logger
	Metrics   *prometheus.AppMetrics
	Collector prometheus.MetricsCollector

	// Mode is the gin mode: debug, release, or test.
	Mode string
}

// NewRouter builds the full route tree: health probes and metrics at the
// root, the versioned API under /api/v1.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	log := cfg.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(log))
	r.Use(middleware.AccessLog(log, cfg.Metrics))
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}

	if cfg.Health != nil {
		cfg.Health.Register(r)
	}
	if cfg.Collector != nil {
		r.GET("/metrics", gin.WrapH(cfg.Collector.Handler()))
	}

	api := r.Group("/api/v1")
	if cfg.Registration != nil {
		cfg.Registration.Register(api)
	}
	if cfg.Hours != nil {
		cfg.Hours.Register(api)
	}
	if cfg.Reports != nil {
		cfg.Reports.Register(api)
	}
	if cfg.Enforcement != nil {
		cfg.Enforcement.Register(api)
	}
	if cfg.Analytics != nil {
		cfg.Analytics.Register(api)
	}

	return r
}
