package bot

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/polkiloo/digishop/internal/adapter/telegram"
)

const (
	minPollBackoff = time.Second
	maxPollBackoff = 30 * time.Second
)

// Handler processes one update.
type Handler interface {
	Handle(ctx context.Context, update telegram.Update) error
}

// Runner long-polls the Bot API and feeds updates to a worker pool.
// Updates of one chat always land on the same worker and keep their order.
type Runner struct {
	api     API
	handler Handler
	timeout time.Duration
	logger  *slog.Logger

	queues []chan telegram.Update
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

func NewRunner(api API, handler Handler, pollTimeout time.Duration, workers int, logger *slog.Logger) *Runner {
	if workers <= 0 {
		workers = 1
	}
	queues := make([]chan telegram.Update, workers)
	for i := range queues {
		queues[i] = make(chan telegram.Update, 16)
	}
	return &Runner{
		api:     api,
		handler: handler,
		timeout: pollTimeout,
		logger:  logger,
		queues:  queues,
	}
}

// Start launches the poller and workers. onFatal is called once when polling
// cannot continue, for example after the token is revoked.
func (r *Runner) Start(ctx context.Context, onFatal func(error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	for _, queue := range r.queues {
		r.wg.Add(1)
		go r.worker(runCtx, queue)
	}

	r.wg.Add(1)
	go r.poll(runCtx, onFatal)
}

// Stop cancels polling and waits for in-flight updates.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Runner) poll(ctx context.Context, onFatal func(error)) {
	defer r.wg.Done()

	var offset int64
	backoff := minPollBackoff
	for {
		updates, err := r.api.GetUpdates(ctx, offset, r.timeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if isFatal(err) {
				r.logger.Error("telegram polling stopped", slog.String("error", err.Error()))
				if onFatal != nil {
					onFatal(err)
				}
				return
			}
			wait := backoff
			var apiErr *telegram.APIError
			if errors.As(err, &apiErr) && apiErr.RetryAfter > wait {
				wait = apiErr.RetryAfter
			}
			r.logger.Warn("telegram polling failed", slog.String("error", err.Error()), slog.Duration("retry_in", wait))
			if !sleep(ctx, wait) {
				return
			}
			backoff = min(backoff*2, maxPollBackoff)
			continue
		}
		backoff = minPollBackoff

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			if !r.enqueue(ctx, update) {
				return
			}
		}
	}
}

func (r *Runner) enqueue(ctx context.Context, update telegram.Update) bool {
	queue := r.queues[shard(chatOf(update), len(r.queues))]
	select {
	case <-ctx.Done():
		return false
	case queue <- update:
		return true
	}
}

func (r *Runner) worker(ctx context.Context, queue <-chan telegram.Update) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case update := <-queue:
			r.handle(ctx, update)
		}
	}
}

func (r *Runner) handle(ctx context.Context, update telegram.Update) {
	traceID := uuid.NewString()
	ctx = withTraceID(ctx, traceID)
	started := time.Now()

	if err := r.handler.Handle(ctx, update); err != nil {
		r.logger.Error("update failed",
			slog.String("trace_id", traceID),
			slog.Int64("update_id", update.UpdateID),
			slog.String("error", err.Error()),
		)
		return
	}
	r.logger.Debug("update handled",
		slog.String("trace_id", traceID),
		slog.Int64("update_id", update.UpdateID),
		slog.Duration("took", time.Since(started)),
	)
}

func chatOf(update telegram.Update) int64 {
	switch {
	case update.Message != nil:
		return update.Message.Chat.ID
	case update.CallbackQuery != nil:
		return update.CallbackQuery.From.ID
	}
	return 0
}

func shard(chatID int64, n int) int {
	return int(uint64(chatID) % uint64(n))
}

// isFatal reports errors that retrying cannot fix.
func isFatal(err error) bool {
	var apiErr *telegram.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusNotFound
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

type traceKey struct{}

func withTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

func traceIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}
