package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/fx"

	"github.com/polkiloo/digishop/internal/config"
	"github.com/polkiloo/digishop/internal/di"
	"github.com/polkiloo/digishop/internal/logger"
	"github.com/polkiloo/digishop/internal/supervisor"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}
	log := logger.New(cfg.LogLevel)

	attempt := func(ctx context.Context) error {
		app := fx.New(
			fx.Provide(func() context.Context { return ctx }),
			di.Module(fx.Replace(cfg), fx.Replace(log)),
		)
		return run(ctx, app)
	}
	err = supervisor.Run(ctx, attempt,
		supervisor.WithLogger(log),
		supervisor.WithRestartHook(func(n int, _ error, delay time.Duration) {
			log.Info("rebuilding application", slog.Int("next_attempt", n+1), slog.Duration("in", delay))
		}),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "digishop stopped: %v\n", err)
		os.Exit(1)
	}
}
