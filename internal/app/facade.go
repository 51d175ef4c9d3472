package app

import (
	"context"

	"github.com/polkiloo/digishop/internal/domain/model"
	"github.com/polkiloo/digishop/internal/usecase"
)

// HealthChecker reports whether backing storage is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ShopFacade exposes the shop operations served over HTTP.
type ShopFacade struct {
	orders *usecase.OrderUseCase
	health HealthChecker
}

func NewShopFacade(orders *usecase.OrderUseCase, health HealthChecker) *ShopFacade {
	return &ShopFacade{orders: orders, health: health}
}

// ConfirmInvoicePaid settles the order or topup behind invoiceID.
func (f *ShopFacade) ConfirmInvoicePaid(ctx context.Context, invoiceID int64, payment model.Payment) (model.ConfirmOutcome, error) {
	return f.orders.ConfirmInvoicePaid(ctx, invoiceID, payment)
}

func (f *ShopFacade) HealthCheck(ctx context.Context) error {
	if f.health == nil {
		return nil
	}
	return f.health.HealthCheck(ctx)
}
