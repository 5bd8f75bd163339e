package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dan-divy/spruce-sub000/internal/infra/config"
	"github.com/dan-divy/spruce-sub000/internal/transport/http/handlers"
	"github.com/dan-divy/spruce-sub000/internal/transport/http/middleware"
)

// Dependencies encapsulates the objects required to register status routes.
type Dependencies struct {
	Config   *config.AppConfig
	Logger   *zap.Logger
	Metrics  *middleware.HTTPMetrics
	Gatherer prometheus.Gatherer
	State    handlers.StateSource
	Cache    CacheChecker
	Realtime RealtimeChecker
}

// CacheChecker exposes readiness behaviour for the credential cache.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// RealtimeChecker reports whether the notification channel is connected.
type RealtimeChecker interface {
	Connected(ctx context.Context) error
}

// Register configures the Gin engine with the local status routes.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config != nil && deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(deps.Metrics.Handler())

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	if deps.Realtime != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("notifications", deps.Realtime.Connected))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	r.GET("/state", handlers.NewStateHandler(deps.State).State)

	return r
}
