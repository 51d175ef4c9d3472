package usecase

import (
	"context"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/digishop/internal/domain/errors"
	"github.com/polkiloo/digishop/internal/domain/model"
	"github.com/polkiloo/digishop/internal/domain/repository"
)

// LedgerUseCase guards wallet balance mutations.
type LedgerUseCase struct {
	balances repository.BalanceRepository
}

// NewLedgerUseCase constructs LedgerUseCase.
func NewLedgerUseCase(balances repository.BalanceRepository) *LedgerUseCase {
	return &LedgerUseCase{balances: balances}
}

// Balance returns the wallet balance, zero for unknown users.
func (u *LedgerUseCase) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	return u.balances.Get(ctx, userID)
}

// Credit adds a positive amount and returns the new balance.
func (u *LedgerUseCase) Credit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	amount = roundCents(amount)
	if !amount.IsPositive() {
		return decimal.Zero, domainErrors.ErrInvalidAmount
	}
	return u.balances.Credit(ctx, userID, amount)
}

// Debit subtracts a positive amount if the balance covers it.
func (u *LedgerUseCase) Debit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	amount = roundCents(amount)
	if !amount.IsPositive() {
		return decimal.Zero, domainErrors.ErrInvalidAmount
	}
	return u.balances.Debit(ctx, userID, amount)
}

// AdminCredit credits the wallet on behalf of an administrator and records the audit row.
func (u *LedgerUseCase) AdminCredit(ctx context.Context, adminID, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	amount = roundCents(amount)
	if !amount.IsPositive() {
		return decimal.Zero, domainErrors.ErrInvalidAmount
	}
	return u.balances.AdminCredit(ctx, model.AdminAdjustment{AdminID: adminID, UserID: userID, Amount: amount})
}
