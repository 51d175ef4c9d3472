package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/digishop/internal/domain/model"
)

// OrderRepository describes persistence operations with orders.
// Every status change is a conditional update guarded by the expected current status.
type OrderRepository interface {
	Create(ctx context.Context, o model.NewOrder) (*model.Order, error)
	GetByID(ctx context.Context, id int64) (*model.Order, error)
	GetByInvoice(ctx context.Context, invoiceID int64) (*model.Order, error)
	MarkPaid(ctx context.Context, id int64, p model.Payment) (bool, error)
	// Cancel flips pending to canceled, releases the unit and refunds used balance in one step.
	Cancel(ctx context.Context, id int64) (*model.Order, bool, error)
	ClaimDelivery(ctx context.Context, id int64, staleBefore time.Time) (bool, error)
	ReleaseDeliveryClaim(ctx context.Context, id int64) error
	// HoldDeliveryClaim pins the claim so it never goes stale.
	HoldDeliveryClaim(ctx context.Context, id int64) error
	// MarkDelivered flips paid to delivered and consumes the bound unit in one step.
	MarkDelivered(ctx context.Context, id int64, d model.Delivery) (bool, error)
	ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error)
	ListPendingWithInvoice(ctx context.Context, limit int) ([]model.Order, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]model.Order, error)
	ListRecent(ctx context.Context, limit int) ([]model.Order, error)
	CountDelivered(ctx context.Context, userID int64) (int, error)
	Stats(ctx context.Context) (map[model.OrderStatus]int, decimal.Decimal, error)
}
