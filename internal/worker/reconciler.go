package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/polkiloo/digishop/internal/domain/model"
	"github.com/polkiloo/digishop/internal/metrics"
)

// OrderSyncer reconciles pending orders with their invoices.
type OrderSyncer interface {
	ListAwaitingPayment(ctx context.Context, limit int) ([]model.Order, error)
	Sync(ctx context.Context, order model.Order) (model.CheckOutcome, error)
}

// TopupSyncer reconciles pending topups with their invoices.
type TopupSyncer interface {
	ListPending(ctx context.Context, limit int) ([]model.Topup, error)
	Sync(ctx context.Context, topup model.Topup) (bool, error)
}

type reconcileJob struct {
	order *model.Order
	topup *model.Topup
}

// Reconciler polls the provider for invoices whose webhook may have been missed.
type Reconciler struct {
	orders    OrderSyncer
	topups    TopupSyncer
	interval  time.Duration
	batchSize int
	workers   int
	metrics   *metrics.Shop
	logger    *slog.Logger

	jobs   chan reconcileJob
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex

	errMu   sync.Mutex
	tickErr error
}

// NewReconciler constructs the reconciler worker pool. A zero interval disables it.
func NewReconciler(orders OrderSyncer, topups TopupSyncer, interval time.Duration, batchSize, workers int, shop *metrics.Shop, logger *slog.Logger) *Reconciler {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Reconciler{
		orders:    orders,
		topups:    topups,
		interval:  interval,
		batchSize: batchSize,
		workers:   workers,
		metrics:   shop,
		logger:    logger,
		jobs:      make(chan reconcileJob, batchSize*workers),
	}
}

// Enabled reports whether the reconciler runs at all.
func (r *Reconciler) Enabled() bool {
	return r.interval > 0
}

// Start launches the dispatcher and workers.
func (r *Reconciler) Start(ctx context.Context) {
	if !r.Enabled() {
		r.logger.Info("invoice reconciler disabled")
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker(runCtx)
	}

	r.wg.Add(1)
	go r.dispatch(runCtx)
}

// Stop waits for all workers to finish.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Reconciler) dispatch(ctx context.Context) {
	defer r.wg.Done()
	defer close(r.jobs)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.fetchAndDispatch(ctx)
		}
	}
}

func (r *Reconciler) fetchAndDispatch(ctx context.Context) {
	started := time.Now()
	var fetchErr error

	orders, err := r.orders.ListAwaitingPayment(ctx, r.batchSize)
	if err != nil {
		fetchErr = multierr.Append(fetchErr, err)
		r.logger.Error("fetch orders awaiting payment failed", slog.String("error", err.Error()))
	}
	for i := range orders {
		if !r.enqueue(ctx, reconcileJob{order: &orders[i]}) {
			return
		}
	}

	topups, err := r.topups.ListPending(ctx, r.batchSize)
	if err != nil {
		fetchErr = multierr.Append(fetchErr, err)
		r.logger.Error("fetch pending topups failed", slog.String("error", err.Error()))
	}
	for i := range topups {
		if !r.enqueue(ctx, reconcileJob{topup: &topups[i]}) {
			return
		}
	}

	r.metrics.ObserveJob("reconciler", time.Since(started), multierr.Append(fetchErr, r.takeErr()))
}

func (r *Reconciler) enqueue(ctx context.Context, job reconcileJob) bool {
	select {
	case <-ctx.Done():
		return false
	case r.jobs <- job:
		return true
	}
}

func (r *Reconciler) worker(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-r.jobs:
			if !ok {
				return
			}
			r.handle(ctx, job)
		}
	}
}

func (r *Reconciler) handle(ctx context.Context, job reconcileJob) {
	switch {
	case job.order != nil:
		outcome, err := r.orders.Sync(ctx, *job.order)
		if err != nil {
			r.recordErr(err)
			r.logger.Warn("reconcile order failed", slog.Int64("order_id", job.order.ID), slog.String("error", err.Error()))
			return
		}
		if outcome != model.CheckNotPaid {
			r.logger.Info("order reconciled", slog.Int64("order_id", job.order.ID), slog.Int("outcome", int(outcome)))
		}
	case job.topup != nil:
		paid, err := r.topups.Sync(ctx, *job.topup)
		if err != nil {
			r.recordErr(err)
			r.logger.Warn("reconcile topup failed", slog.Int64("invoice_id", job.topup.InvoiceID), slog.String("error", err.Error()))
			return
		}
		if paid {
			r.logger.Info("topup reconciled", slog.Int64("invoice_id", job.topup.InvoiceID))
		}
	}
}

// recordErr keeps worker failures until the next tick reports them.
func (r *Reconciler) recordErr(err error) {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	r.tickErr = multierr.Append(r.tickErr, err)
}

func (r *Reconciler) takeErr() error {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	err := r.tickErr
	r.tickErr = nil
	return err
}
