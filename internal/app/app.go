package app

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.uber.org/fx"

	"github.com/polkiloo/digishop/internal/bot"
	"github.com/polkiloo/digishop/internal/config"
	"github.com/polkiloo/digishop/internal/server/http/handlers"
	"github.com/polkiloo/digishop/internal/worker"
)

// Module wires the HTTP server, the shop facade and lifecycle hooks for every runtime component.
var Module = fx.Options(
	fx.Provide(
		NewShopFacade,
		func(f *ShopFacade) handlers.PaymentFacade { return f },
		func(f *ShopFacade) handlers.HealthFacade { return f },
		func(f *ShopFacade) handlers.ShopFacade { return f },
		newHTTPServer,
	),
	fx.Invoke(registerLifecycle),
)

const readHeaderTimeout = 5 * time.Second

type serverParams struct {
	fx.In

	Config *config.Config
	Router http.Handler
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:              p.Config.RunAddress,
		Handler:           p.Router,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// Runtime is a background component started after the listener.
type Runtime interface {
	Start(ctx context.Context)
	Stop()
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Server     *http.Server
	Bot        *bot.Runner
	Sweeper    *worker.Sweeper
	Reconciler *worker.Reconciler
	Config     *config.Config
}

func registerLifecycle(p lifecycleParams) {
	fail := func(component string, err error) {
		p.Logger.Error(component+" terminated", slog.String("error", err.Error()))
		if shutdownErr := p.Shutdowner.Shutdown(fx.ExitCode(1)); shutdownErr != nil {
			p.Logger.Error("shutdown request failed", slog.String("error", shutdownErr.Error()))
		}
	}
	background := []Runtime{p.Sweeper, p.Reconciler}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			listener, err := net.Listen("tcp", p.Server.Addr)
			if err != nil {
				return err
			}
			p.Logger.Info("starting digishop", slog.String("addr", listener.Addr().String()))

			go func() {
				if err := p.Server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
					fail("http server", err)
				}
			}()

			// Components outlive the start context and end in OnStop.
			runCtx := context.WithoutCancel(ctx)
			p.Bot.Start(runCtx, func(err error) { fail("bot poller", err) })
			for _, rt := range background {
				rt.Start(runCtx)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, p.Config.ShutdownTimeout)
			}
			defer cancel()

			for i := len(background) - 1; i >= 0; i-- {
				background[i].Stop()
			}
			p.Bot.Stop()

			if err := p.Server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			p.Logger.Info("digishop stopped")
			return nil
		},
	})
}
