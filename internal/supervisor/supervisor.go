// Package supervisor restarts a failing process body with capped exponential backoff.
package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	DefaultInitialBackoff = 10 * time.Second
	DefaultMaxBackoff     = 300 * time.Second
)

// Attempt runs the supervised body once. It returns nil on a clean exit.
type Attempt func(ctx context.Context) error

// RestartHook is called after a failed attempt, before sleeping.
type RestartHook func(attempt int, err error, delay time.Duration)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Run returns it unwrapped.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Supervisor reruns an attempt until it succeeds or the context ends.
type Supervisor struct {
	initial   time.Duration
	max       time.Duration
	onRestart RestartHook
	logger    *slog.Logger

	sleep func(ctx context.Context, d time.Duration) bool
	now   func() time.Time
}

// Option customizes a Supervisor.
type Option func(*Supervisor)

// WithBackoff overrides the first delay and its cap.
func WithBackoff(initial, max time.Duration) Option {
	return func(s *Supervisor) {
		if initial > 0 {
			s.initial = initial
		}
		if max >= s.initial {
			s.max = max
		}
	}
}

// WithRestartHook registers fn to run between attempts.
func WithRestartHook(fn RestartHook) Option {
	return func(s *Supervisor) { s.onRestart = fn }
}

// WithLogger sets the logger used for restart records.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a Supervisor with a 10s initial and 300s max backoff.
func New(opts ...Option) *Supervisor {
	s := &Supervisor{
		initial: DefaultInitialBackoff,
		max:     DefaultMaxBackoff,
		logger:  slog.Default(),
		sleep:   sleep,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes attempt with a fresh New(opts...) supervisor.
func Run(ctx context.Context, attempt Attempt, opts ...Option) error {
	return New(opts...).Run(ctx, attempt)
}

// Run calls attempt until it returns nil, a permanent error, or ctx is canceled.
// An attempt that stayed up longer than the max backoff resets the delay.
func (s *Supervisor) Run(ctx context.Context, attempt Attempt) error {
	delay := s.initial
	for n := 1; ; n++ {
		started := s.now()
		err := attempt(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}

		var permanent *permanentError
		if errors.As(err, &permanent) {
			return permanent.err
		}

		if s.now().Sub(started) >= s.max {
			delay = s.initial
		}

		s.logger.Error("attempt failed, restarting",
			slog.Int("attempt", n),
			slog.Duration("backoff", delay),
			slog.String("error", err.Error()),
		)
		if s.onRestart != nil {
			s.onRestart(n, err, delay)
		}

		if !s.sleep(ctx, delay) {
			return nil
		}
		delay = next(delay, s.max)
	}
}

func next(delay, max time.Duration) time.Duration {
	delay *= 2
	if delay > max {
		return max
	}
	return delay
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
