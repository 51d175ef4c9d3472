package bot

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/digishop/internal/adapter/telegram"
	"github.com/polkiloo/digishop/internal/config"
	"github.com/polkiloo/digishop/internal/usecase"
)

// Module provides the chat dispatcher and its long-poll runner.
// The Bot API client is also bound here as the use-case notifier.
var Module = fx.Provide(
	func(c *telegram.Client) API { return c },
	func(c *telegram.Client) usecase.Notifier { return c },
	NewDispatcher,
	newRunner,
)

type runnerParams struct {
	fx.In

	API        API
	Dispatcher *Dispatcher
	Config     *config.Config
	Logger     *slog.Logger
}

func newRunner(p runnerParams) *Runner {
	return NewRunner(p.API, p.Dispatcher, p.Config.PollTimeout, p.Config.WorkerPoolSize, p.Logger)
}
