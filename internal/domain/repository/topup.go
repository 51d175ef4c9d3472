package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/digishop/internal/domain/model"
)

// TopupRepository describes wallet funding persistence.
type TopupRepository interface {
	Create(ctx context.Context, t model.Topup) (*model.Topup, error)
	GetByInvoice(ctx context.Context, invoiceID int64) (*model.Topup, error)
	// MarkPaid flips pending to paid and credits the wallet in one step.
	// It reports false when the topup was not pending.
	MarkPaid(ctx context.Context, invoiceID int64, paidAt time.Time) (*model.Topup, decimal.Decimal, bool, error)
	// MarkExpired flips pending to expired and reports whether it did.
	MarkExpired(ctx context.Context, invoiceID int64) (bool, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]model.Topup, error)
	ListPending(ctx context.Context, limit int) ([]model.Topup, error)
}
