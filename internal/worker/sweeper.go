package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/polkiloo/digishop/internal/domain/model"
	"github.com/polkiloo/digishop/internal/metrics"
	"github.com/polkiloo/digishop/internal/usecase"
)

// ExpiryCanceler exposes the order operations the sweeper needs.
type ExpiryCanceler interface {
	ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error)
	Cancel(ctx context.Context, orderID int64, reason usecase.CancelReason) (bool, error)
}

// Sweeper cancels pending orders older than the order TTL.
type Sweeper struct {
	orders    ExpiryCanceler
	interval  time.Duration
	ttl       time.Duration
	batchSize int
	metrics   *metrics.Shop
	logger    *slog.Logger
	now       func() time.Time

	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewSweeper constructs the expiration sweeper.
func NewSweeper(orders ExpiryCanceler, interval, ttl time.Duration, batchSize int, shop *metrics.Shop, logger *slog.Logger) *Sweeper {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Sweeper{
		orders:    orders,
		interval:  interval,
		ttl:       ttl,
		batchSize: batchSize,
		metrics:   shop,
		logger:    logger,
		now:       time.Now,
	}
}

// Start launches the sweep loop.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(runCtx)
}

// Stop waits for the running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Sweeper) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass and returns the number of canceled orders.
// Per-order failures are collected and never stop the pass.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	started := time.Now()
	canceled, err := s.sweep(ctx)
	s.metrics.ObserveJob("sweeper", time.Since(started), err)
	if err != nil {
		s.logger.Error("sweep failed", slog.Int("canceled", canceled), slog.String("error", err.Error()))
	} else if canceled > 0 {
		s.logger.Info("expired orders canceled", slog.Int("canceled", canceled))
	}
	return canceled, err
}

func (s *Sweeper) sweep(ctx context.Context) (int, error) {
	orders, err := s.orders.ListExpired(ctx, s.now().Add(-s.ttl), s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list expired orders: %w", err)
	}

	var (
		canceled int
		errs     error
	)
	for _, order := range orders {
		if ctx.Err() != nil {
			return canceled, multierr.Append(errs, ctx.Err())
		}
		ok, err := s.orders.Cancel(ctx, order.ID, usecase.ReasonExpired)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("cancel order %d: %w", order.ID, err))
			continue
		}
		if ok {
			canceled++
		}
	}
	return canceled, errs
}
