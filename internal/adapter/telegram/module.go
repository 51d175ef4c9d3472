package telegram

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/digishop/internal/config"
)

// Module provides the Bot API client.
var Module = fx.Provide(newClient)

type clientParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newClient(p clientParams) (*Client, error) {
	return NewClient(p.Config.TelegramAPIURL, p.Config.BotToken, p.Logger)
}
