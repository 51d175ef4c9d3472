package worker

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/digishop/internal/config"
	"github.com/polkiloo/digishop/internal/metrics"
	"github.com/polkiloo/digishop/internal/usecase"
)

// Module provides the background workers.
var Module = fx.Provide(newSweeper, newReconciler)

type workerParams struct {
	fx.In

	Config  *config.Config
	Orders  *usecase.OrderUseCase
	Topups  *usecase.TopupUseCase
	Metrics *metrics.Shop `optional:"true"`
	Logger  *slog.Logger
}

func newSweeper(p workerParams) *Sweeper {
	return NewSweeper(p.Orders, p.Config.SweepInterval, p.Config.OrderTTL, p.Config.SweepBatchSize, p.Metrics, p.Logger)
}

func newReconciler(p workerParams) *Reconciler {
	return NewReconciler(p.Orders, p.Topups, p.Config.ReconcileInterval, p.Config.SweepBatchSize, p.Config.WorkerPoolSize, p.Metrics, p.Logger)
}
