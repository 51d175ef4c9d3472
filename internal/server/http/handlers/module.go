package handlers

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/digishop/internal/config"
	"github.com/polkiloo/digishop/internal/dedup"
)

// Module provides HTTP handlers.
var Module = fx.Provide(newWebhookHandler, NewHealthHandler)

type webhookParams struct {
	fx.In

	Facade PaymentFacade
	Guard  dedup.Guard `optional:"true"`
	Config *config.Config
	Logger *slog.Logger
}

func newWebhookHandler(p webhookParams) *WebhookHandler {
	return NewWebhookHandler(p.Facade, p.Guard, WebhookOptions{
		Secret:          p.Config.WebhookSecret,
		Token:           p.Config.CryptoPayToken,
		StrictSignature: p.Config.WebhookStrictSignature,
	}, p.Logger)
}
