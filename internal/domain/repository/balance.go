package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/digishop/internal/domain/model"
)

// BalanceRepository manages wallet balances.
type BalanceRepository interface {
	Get(ctx context.Context, userID int64) (decimal.Decimal, error)
	Credit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error)
	Debit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error)
	AdminCredit(ctx context.Context, adj model.AdminAdjustment) (decimal.Decimal, error)
}
