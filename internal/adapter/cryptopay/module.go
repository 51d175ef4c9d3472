package cryptopay

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/digishop/internal/config"
	"github.com/polkiloo/digishop/internal/usecase"
)

// Module exposes the Crypto Pay client to the fx graph.
var Module = fx.Provide(
	newClient,
	func(c *Client) usecase.PaymentProvider { return c },
)

type clientParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newClient(p clientParams) (*Client, error) {
	return NewClient(p.Config.CryptoPayBaseURL, p.Config.CryptoPayToken, p.Logger)
}
