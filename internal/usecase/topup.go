package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"

	"github.com/polkiloo/digishop/internal/config"
	domainErrors "github.com/polkiloo/digishop/internal/domain/errors"
	"github.com/polkiloo/digishop/internal/domain/model"
	"github.com/polkiloo/digishop/internal/domain/repository"
	"github.com/polkiloo/digishop/internal/metrics"
)

// TopupParams lists dependencies of TopupUseCase.
type TopupParams struct {
	fx.In

	Topups   repository.TopupRepository
	Provider PaymentProvider
	Config   *config.Config
	Metrics  *metrics.Shop `optional:"true"`
	Logger   *slog.Logger
}

// TopupUseCase funds wallets through external invoices.
type TopupUseCase struct {
	topups   repository.TopupRepository
	provider PaymentProvider
	minimum  decimal.Decimal
	metrics  *metrics.Shop
	logger   *slog.Logger
	now      func() time.Time
}

// NewTopupUseCase constructs TopupUseCase.
func NewTopupUseCase(p TopupParams) *TopupUseCase {
	minimum := decimal.NewFromInt(1)
	if p.Config != nil && p.Config.MinTopup.IsPositive() {
		minimum = p.Config.MinTopup
	}
	return &TopupUseCase{
		topups:   p.Topups,
		provider: p.Provider,
		minimum:  minimum,
		metrics:  p.Metrics,
		logger:   p.Logger,
		now:      time.Now,
	}
}

// Minimum returns the smallest accepted top-up amount.
func (u *TopupUseCase) Minimum() decimal.Decimal {
	return u.minimum
}

// Create invoices amount and stores a pending topup.
func (u *TopupUseCase) Create(ctx context.Context, userID int64, amount decimal.Decimal) (*model.Topup, error) {
	amount = roundCents(amount)
	if amount.LessThan(u.minimum) {
		return nil, fmt.Errorf("topup below %s: %w", u.minimum.StringFixed(2), domainErrors.ErrInvalidAmount)
	}

	invoice, err := u.provider.CreateInvoice(ctx, model.InvoiceRequest{
		Amount:      amount,
		Currency:    model.Currency,
		Description: "Balance top-up",
		Payload:     fmt.Sprintf("topup:%d:%s", userID, uuid.NewString()),
	})
	if err != nil {
		return nil, providerError("create topup invoice", err)
	}

	topup, err := u.topups.Create(ctx, model.Topup{
		UserID:    userID,
		InvoiceID: invoice.ID,
		Amount:    amount,
		PayURL:    invoice.PayURL,
	})
	if err != nil {
		if delErr := u.provider.DeleteInvoice(ctx, invoice.ID); delErr != nil {
			u.logger.Warn("delete orphan invoice", slog.Int64("invoice_id", invoice.ID), slog.String("error", delErr.Error()))
		}
		return nil, err
	}
	u.logger.Info("topup created", slog.Int64("user_id", userID), slog.Int64("invoice_id", invoice.ID))
	return topup, nil
}

// Confirm credits the wallet once per invoice. Repeated confirmations return false.
func (u *TopupUseCase) Confirm(ctx context.Context, invoiceID int64, payment model.Payment) (bool, decimal.Decimal, error) {
	if _, err := u.topups.GetByInvoice(ctx, invoiceID); err != nil {
		return false, decimal.Zero, err
	}

	paidAt := payment.PaidAt
	if paidAt.IsZero() {
		paidAt = u.now()
	}
	topup, balance, credited, err := u.topups.MarkPaid(ctx, invoiceID, paidAt)
	if err != nil {
		return false, decimal.Zero, err
	}
	if !credited {
		return false, decimal.Zero, nil
	}
	u.metrics.PaymentConfirmed("topup")
	u.logger.Info("topup credited",
		slog.Int64("user_id", topup.UserID),
		slog.Int64("invoice_id", invoiceID),
		slog.String("amount", topup.Amount.StringFixed(2)),
	)
	return true, balance, nil
}

// Check polls the provider for the buyer's own topup and reports whether it is paid.
func (u *TopupUseCase) Check(ctx context.Context, userID, invoiceID int64) (bool, error) {
	topup, err := u.topups.GetByInvoice(ctx, invoiceID)
	if err != nil {
		return false, err
	}
	if topup.UserID != userID {
		return false, domainErrors.ErrTopupNotFound
	}
	return u.Sync(ctx, *topup)
}

// Sync applies the provider-side invoice state to a topup.
func (u *TopupUseCase) Sync(ctx context.Context, topup model.Topup) (bool, error) {
	switch topup.Status {
	case model.TopupStatusPaid:
		return true, nil
	case model.TopupStatusExpired:
		return false, nil
	}

	info, err := u.provider.GetInvoice(ctx, topup.InvoiceID)
	if err != nil {
		return false, providerError("get topup invoice", err)
	}
	switch info.Status {
	case model.InvoiceStatusPaid:
	case model.InvoiceStatusExpired:
		if _, err := u.topups.MarkExpired(ctx, topup.InvoiceID); err != nil {
			return false, err
		}
		u.logger.Info("topup expired", slog.Int64("invoice_id", topup.InvoiceID))
		return false, nil
	default:
		return false, nil
	}

	if _, _, err := u.Confirm(ctx, topup.InvoiceID, info.Payment(u.now())); err != nil {
		return false, err
	}
	return true, nil
}

func (u *TopupUseCase) History(ctx context.Context, userID int64, limit int) ([]model.Topup, error) {
	if limit <= 0 {
		limit = historyLimit
	}
	return u.topups.ListByUser(ctx, userID, limit)
}

func (u *TopupUseCase) ListPending(ctx context.Context, limit int) ([]model.Topup, error) {
	return u.topups.ListPending(ctx, limit)
}

func isTopupMissing(err error) bool {
	return errors.Is(err, domainErrors.ErrTopupNotFound)
}
