package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/polkiloo/digishop/internal/server/http/handlers"
	"github.com/polkiloo/digishop/internal/server/http/middleware"
)

// Params lists dependencies of Setup.
type Params struct {
	fx.In

	Webhook  *handlers.WebhookHandler
	Health   *handlers.HealthHandler
	Registry *prometheus.Registry `optional:"true"`
	Logger   *slog.Logger
}

// Setup configures gin router with handlers and middleware.
func Setup(p Params) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(p.Logger))
	engine.Use(middleware.DecompressRequest(middleware.DefaultBodyLimit))
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	engine.POST("/webhook/:secret", p.Webhook.Receive)
	engine.GET("/healthz", p.Health.Check)

	if p.Registry != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{Registry: p.Registry})))
	}

	return engine
}
