package handlers

import (
	"context"

	"github.com/polkiloo/digishop/internal/domain/model"
)

// PaymentFacade confirms invoices reported by the provider.
type PaymentFacade interface {
	ConfirmInvoicePaid(ctx context.Context, invoiceID int64, payment model.Payment) (model.ConfirmOutcome, error)
}

// HealthFacade reports whether the shop can serve requests.
type HealthFacade interface {
	HealthCheck(ctx context.Context) error
}

// ShopFacade aggregates the operations used across handlers.
type ShopFacade interface {
	PaymentFacade
	HealthFacade
}
