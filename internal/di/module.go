package di

import (
	"go.uber.org/fx"

	"github.com/polkiloo/digishop/internal/adapter/cryptopay"
	"github.com/polkiloo/digishop/internal/adapter/telegram"
	"github.com/polkiloo/digishop/internal/app"
	"github.com/polkiloo/digishop/internal/bot"
	"github.com/polkiloo/digishop/internal/config"
	"github.com/polkiloo/digishop/internal/dedup"
	"github.com/polkiloo/digishop/internal/logger"
	"github.com/polkiloo/digishop/internal/metrics"
	"github.com/polkiloo/digishop/internal/server/http/handlers"
	"github.com/polkiloo/digishop/internal/server/http/router"
	"github.com/polkiloo/digishop/internal/storage/postgres"
	"github.com/polkiloo/digishop/internal/usecase"
	"github.com/polkiloo/digishop/internal/worker"
)

// Module assembles the whole shop. Extra options are appended last, so they may replace any part.
func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		metrics.Module,
		postgres.Module,
		fx.Provide(func(s *postgres.Storage) app.HealthChecker { return s }),
		cryptopay.Module,
		telegram.Module,
		dedup.Module,
		usecase.Module,
		worker.Module,
		bot.Module,
		handlers.Module,
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
