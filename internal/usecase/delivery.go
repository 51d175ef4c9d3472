package usecase

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"time"

	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/polkiloo/digishop/internal/config"
	domainErrors "github.com/polkiloo/digishop/internal/domain/errors"
	"github.com/polkiloo/digishop/internal/domain/model"
	"github.com/polkiloo/digishop/internal/domain/repository"
	"github.com/polkiloo/digishop/internal/i18n"
	"github.com/polkiloo/digishop/internal/metrics"
)

const defaultDeliveryLease = 2 * time.Minute

// DeliveryParams lists dependencies of DeliveryUseCase.
type DeliveryParams struct {
	fx.In

	Orders    repository.OrderRepository
	Products  repository.ProductRepository
	Inventory repository.InventoryRepository
	Accounts  repository.AccountRepository
	Notifier  Notifier
	Config    *config.Config
	Metrics   *metrics.Shop `optional:"true"`
	Logger    *slog.Logger
}

// DeliveryUseCase hands the reserved unit of a paid order to the buyer.
type DeliveryUseCase struct {
	orders    repository.OrderRepository
	products  repository.ProductRepository
	inventory repository.InventoryRepository
	accounts  repository.AccountRepository
	notifier  Notifier
	lease     time.Duration
	metrics   *metrics.Shop
	logger    *slog.Logger
	now       func() time.Time
}

// NewDeliveryUseCase constructs DeliveryUseCase.
func NewDeliveryUseCase(p DeliveryParams) *DeliveryUseCase {
	lease := defaultDeliveryLease
	if p.Config != nil && p.Config.DeliveryLease > 0 {
		lease = p.Config.DeliveryLease
	}
	return &DeliveryUseCase{
		orders:    p.Orders,
		products:  p.Products,
		inventory: p.Inventory,
		accounts:  p.Accounts,
		notifier:  p.Notifier,
		lease:     lease,
		metrics:   p.Metrics,
		logger:    p.Logger,
		now:       time.Now,
	}
}

// Deliver sends the bound unit to the buyer and finalizes the order.
// It returns true for delivered orders without sending again. Only the caller
// holding the delivery lease sends; a lost lease returns false without error.
func (u *DeliveryUseCase) Deliver(ctx context.Context, orderID int64) (bool, error) {
	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return false, err
	}
	switch order.Status {
	case model.OrderStatusDelivered:
		return true, nil
	case model.OrderStatusPaid:
	default:
		return false, fmt.Errorf("deliver order %d in status %s: %w", orderID, order.Status, domainErrors.ErrInvalidTransition)
	}
	if order.UnitID == nil {
		return false, fmt.Errorf("deliver order %d without unit: %w", orderID, domainErrors.ErrInvalidTransition)
	}

	claimed, err := u.orders.ClaimDelivery(ctx, orderID, u.now().Add(-u.lease))
	if err != nil {
		return false, err
	}
	if !claimed {
		u.metrics.Delivery("skipped")
		return false, nil
	}

	delivery, err := u.send(ctx, order)
	if err != nil {
		u.metrics.Delivery("failed")
		if releaseErr := u.orders.ReleaseDeliveryClaim(ctx, orderID); releaseErr != nil {
			err = multierr.Append(err, releaseErr)
		}
		u.logger.Warn("delivery failed", slog.Int64("order_id", orderID), slog.String("error", err.Error()))
		return false, err
	}

	delivered, err := u.orders.MarkDelivered(ctx, orderID, *delivery)
	if err != nil {
		// The buyer already has the payload; a stale claim would send it twice.
		if holdErr := u.orders.HoldDeliveryClaim(ctx, orderID); holdErr != nil {
			err = multierr.Append(err, holdErr)
		}
		u.metrics.Delivery("unrecorded")
		u.logger.Error("delivery sent but not recorded",
			slog.Int64("order_id", orderID),
			slog.String("ref", delivery.Ref),
			slog.String("alert", "delivery_unrecorded"),
			slog.String("error", err.Error()),
		)
		return false, err
	}
	if !delivered {
		return false, nil
	}
	u.metrics.Delivery("delivered")
	u.logger.Info("order delivered", slog.Int64("order_id", orderID), slog.String("kind", string(delivery.Kind)))
	return true, nil
}

func (u *DeliveryUseCase) send(ctx context.Context, order *model.Order) (*model.Delivery, error) {
	unit, err := u.inventory.GetByID(ctx, *order.UnitID)
	if err != nil {
		return nil, err
	}
	product, err := u.products.GetByID(ctx, order.ProductID)
	if err != nil {
		return nil, err
	}

	lang := languageOf(ctx, u.accounts, order.UserID)
	header := i18n.Text(lang, i18n.DeliveryHeader, html.EscapeString(product.Title(lang)))

	kind := unit.Kind
	if !kind.Valid() {
		kind = product.Kind
	}
	switch kind {
	case model.DeliveryKindLink:
		err = u.notifier.SendText(ctx, order.UserID, header+"\n\n"+i18n.Text(lang, i18n.DeliveryLink, html.EscapeString(unit.Payload)))
	case model.DeliveryKindCode:
		err = u.notifier.SendText(ctx, order.UserID, header+"\n\n"+i18n.Text(lang, i18n.DeliveryCode, html.EscapeString(unit.Payload)))
	case model.DeliveryKindFile:
		err = u.notifier.SendFile(ctx, order.UserID, unit.Payload, i18n.Text(lang, i18n.DeliveryFile, html.EscapeString(product.Title(lang))))
	default:
		err = fmt.Errorf("unit %d kind %q: %w", unit.ID, kind, domainErrors.ErrInvalidValue)
	}
	if err != nil {
		return nil, err
	}

	return &model.Delivery{
		Kind:        kind,
		Ref:         fmt.Sprintf("unit:%d", unit.ID),
		DeliveredAt: u.now(),
	}, nil
}
