package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.uber.org/fx"

	domainErrors "github.com/polkiloo/digishop/internal/domain/errors"
	"github.com/polkiloo/digishop/internal/domain/model"
	"github.com/polkiloo/digishop/internal/domain/repository"
	"github.com/polkiloo/digishop/internal/metrics"
)

// CancelReason labels why a pending order was canceled.
type CancelReason string

const (
	ReasonBuyer           CancelReason = "buyer"
	ReasonExpired         CancelReason = "expired"
	ReasonProviderExpired CancelReason = "provider_expired"
)

const confirmAttempts = 3

// OrderParams lists dependencies of OrderUseCase.
type OrderParams struct {
	fx.In

	Orders   repository.OrderRepository
	Provider PaymentProvider
	Delivery *DeliveryUseCase
	Topups   *TopupUseCase
	Metrics  *metrics.Shop `optional:"true"`
	Logger   *slog.Logger
}

// OrderUseCase drives order transitions triggered by webhooks, polls and background jobs.
// Every method is safe to call repeatedly and concurrently for the same order.
type OrderUseCase struct {
	orders   repository.OrderRepository
	provider PaymentProvider
	delivery *DeliveryUseCase
	topups   *TopupUseCase
	metrics  *metrics.Shop
	logger   *slog.Logger
	now      func() time.Time
}

// NewOrderUseCase constructs OrderUseCase.
func NewOrderUseCase(p OrderParams) *OrderUseCase {
	return &OrderUseCase{
		orders:   p.Orders,
		provider: p.Provider,
		delivery: p.Delivery,
		topups:   p.Topups,
		metrics:  p.Metrics,
		logger:   p.Logger,
		now:      time.Now,
	}
}

// ConfirmExternalPayment applies a provider confirmation to the order.
func (u *OrderUseCase) ConfirmExternalPayment(ctx context.Context, orderID int64, payment model.Payment) (model.ConfirmOutcome, error) {
	if payment.PaidAt.IsZero() {
		payment.PaidAt = u.now()
	}

	for attempt := 0; attempt < confirmAttempts; attempt++ {
		order, err := u.orders.GetByID(ctx, orderID)
		if err != nil {
			return model.ConfirmUnknownInvoice, err
		}

		switch order.Status {
		case model.OrderStatusDelivered:
			return model.ConfirmAlreadyFinalized, nil
		case model.OrderStatusPaid:
			u.deliver(ctx, orderID)
			return model.ConfirmAlreadyFinalized, nil
		case model.OrderStatusCanceled:
			u.metrics.StaleConfirmation()
			u.logger.Error("payment confirmed for canceled order",
				slog.String("alert", "stale_cancellation"),
				slog.Int64("order_id", orderID),
				slog.Int64("user_id", order.UserID),
				slog.String("amount", payment.Amount.StringFixed(2)),
				slog.String("asset", payment.Asset),
				slog.String("error", domainErrors.ErrStaleCancellation.Error()),
			)
			return model.ConfirmStaleCancellation, nil
		}

		marked, err := u.orders.MarkPaid(ctx, orderID, payment)
		if err != nil {
			return model.ConfirmUnknownInvoice, err
		}
		if !marked {
			// another trigger moved the order first
			continue
		}
		u.metrics.PaymentConfirmed("order")
		u.logger.Info("order paid", slog.Int64("order_id", orderID), slog.String("asset", payment.Asset))
		u.deliver(ctx, orderID)
		return model.ConfirmPaid, nil
	}
	return model.ConfirmUnknownInvoice, fmt.Errorf("confirm order %d: %w", orderID, domainErrors.ErrInvalidTransition)
}

// ConfirmInvoicePaid routes a paid invoice to its order or topup.
// Unknown invoices are logged and reported as such without error.
func (u *OrderUseCase) ConfirmInvoicePaid(ctx context.Context, invoiceID int64, payment model.Payment) (model.ConfirmOutcome, error) {
	order, err := u.orders.GetByInvoice(ctx, invoiceID)
	if err == nil {
		return u.ConfirmExternalPayment(ctx, order.ID, payment)
	}
	if !errors.Is(err, domainErrors.ErrOrderNotFound) {
		return model.ConfirmUnknownInvoice, err
	}

	credited, _, err := u.topups.Confirm(ctx, invoiceID, payment)
	if err != nil {
		if isTopupMissing(err) {
			u.logger.Warn("payment for unknown invoice", slog.Int64("invoice_id", invoiceID))
			return model.ConfirmUnknownInvoice, nil
		}
		return model.ConfirmUnknownInvoice, err
	}
	if !credited {
		return model.ConfirmAlreadyFinalized, nil
	}
	return model.ConfirmPaid, nil
}

// Cancel moves a pending order to canceled, releasing its unit and refunding used balance.
// It returns false when the order is no longer pending.
func (u *OrderUseCase) Cancel(ctx context.Context, orderID int64, reason CancelReason) (bool, error) {
	order, canceled, err := u.orders.Cancel(ctx, orderID)
	if err != nil {
		return false, err
	}
	if !canceled {
		return false, nil
	}
	u.metrics.OrderCanceled(string(reason))
	u.logger.Info("order canceled",
		slog.Int64("order_id", orderID),
		slog.String("reason", string(reason)),
		slog.String("refunded", order.UsedBalance.StringFixed(2)),
	)

	if order.InvoiceID != nil && reason != ReasonProviderExpired {
		if err := u.provider.DeleteInvoice(ctx, *order.InvoiceID); err != nil {
			u.logger.Warn("delete invoice of canceled order",
				slog.Int64("order_id", orderID),
				slog.Int64("invoice_id", *order.InvoiceID),
				slog.String("error", err.Error()),
			)
		}
	}
	return true, nil
}

// CancelByBuyer cancels the buyer's own pending order.
func (u *OrderUseCase) CancelByBuyer(ctx context.Context, userID, orderID int64) (bool, error) {
	if _, err := u.owned(ctx, userID, orderID); err != nil {
		return false, err
	}
	return u.Cancel(ctx, orderID, ReasonBuyer)
}

// CheckPayment is the buyer's manual poll.
func (u *OrderUseCase) CheckPayment(ctx context.Context, userID, orderID int64) (model.CheckOutcome, error) {
	order, err := u.owned(ctx, userID, orderID)
	if err != nil {
		return model.CheckNotPaid, err
	}
	return u.Sync(ctx, *order)
}

// Sync reconciles one order with the provider-side invoice state.
func (u *OrderUseCase) Sync(ctx context.Context, order model.Order) (model.CheckOutcome, error) {
	switch order.Status {
	case model.OrderStatusDelivered:
		return model.CheckDelivered, nil
	case model.OrderStatusCanceled:
		return model.CheckCanceled, nil
	case model.OrderStatusPaid:
		return u.deliveryOutcome(ctx, order.ID)
	}
	if order.InvoiceID == nil {
		return model.CheckNotPaid, nil
	}

	info, err := u.provider.GetInvoice(ctx, *order.InvoiceID)
	if err != nil {
		return model.CheckNotPaid, providerError("get order invoice", err)
	}
	switch info.Status {
	case model.InvoiceStatusPaid:
		outcome, err := u.ConfirmExternalPayment(ctx, order.ID, info.Payment(u.now()))
		if err != nil {
			return model.CheckNotPaid, err
		}
		if outcome == model.ConfirmStaleCancellation {
			return model.CheckCanceled, nil
		}
		return u.deliveredOutcome(ctx, order.ID)
	case model.InvoiceStatusExpired:
		if _, err := u.Cancel(ctx, order.ID, ReasonProviderExpired); err != nil {
			return model.CheckNotPaid, err
		}
		return model.CheckCanceled, nil
	default:
		return model.CheckNotPaid, nil
	}
}

// ListExpired returns pending orders created before cutoff.
func (u *OrderUseCase) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error) {
	return u.orders.ListExpiredPending(ctx, cutoff, limit)
}

// ListAwaitingPayment returns pending orders that carry an invoice.
func (u *OrderUseCase) ListAwaitingPayment(ctx context.Context, limit int) ([]model.Order, error) {
	return u.orders.ListPendingWithInvoice(ctx, limit)
}

func (u *OrderUseCase) History(ctx context.Context, userID int64, limit int) ([]model.Order, error) {
	if limit <= 0 {
		limit = historyLimit
	}
	return u.orders.ListByUser(ctx, userID, limit)
}

func (u *OrderUseCase) Recent(ctx context.Context, limit int) ([]model.Order, error) {
	if limit <= 0 {
		limit = historyLimit
	}
	return u.orders.ListRecent(ctx, limit)
}

func (u *OrderUseCase) owned(ctx context.Context, userID, orderID int64) (*model.Order, error) {
	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, domainErrors.ErrOrderNotFound
	}
	return order, nil
}

func (u *OrderUseCase) deliver(ctx context.Context, orderID int64) {
	if _, err := u.delivery.Deliver(ctx, orderID); err != nil {
		u.logger.Error("deliver paid order", slog.Int64("order_id", orderID), slog.String("error", err.Error()))
	}
}

func (u *OrderUseCase) deliveryOutcome(ctx context.Context, orderID int64) (model.CheckOutcome, error) {
	if _, err := u.delivery.Deliver(ctx, orderID); err != nil {
		u.logger.Error("redeliver paid order", slog.Int64("order_id", orderID), slog.String("error", err.Error()))
		return model.CheckDeliveryFailed, nil
	}
	return u.deliveredOutcome(ctx, orderID)
}

func (u *OrderUseCase) deliveredOutcome(ctx context.Context, orderID int64) (model.CheckOutcome, error) {
	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return model.CheckNotPaid, err
	}
	switch order.Status {
	case model.OrderStatusDelivered:
		return model.CheckDelivered, nil
	case model.OrderStatusCanceled:
		return model.CheckCanceled, nil
	default:
		return model.CheckDeliveryFailed, nil
	}
}
