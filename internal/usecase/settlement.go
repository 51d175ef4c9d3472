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
	"go.uber.org/multierr"

	domainErrors "github.com/polkiloo/digishop/internal/domain/errors"
	"github.com/polkiloo/digishop/internal/domain/model"
	"github.com/polkiloo/digishop/internal/domain/repository"
	"github.com/polkiloo/digishop/internal/metrics"
)

// SettlementParams lists dependencies of SettlementUseCase.
type SettlementParams struct {
	fx.In

	Products  repository.ProductRepository
	Inventory repository.InventoryRepository
	Orders    repository.OrderRepository
	Ledger    *LedgerUseCase
	Provider  PaymentProvider
	Delivery  *DeliveryUseCase
	Metrics   *metrics.Shop `optional:"true"`
	Logger    *slog.Logger
}

// SettlementUseCase initiates purchases and splits the price between wallet and invoice.
type SettlementUseCase struct {
	products  repository.ProductRepository
	inventory repository.InventoryRepository
	orders    repository.OrderRepository
	ledger    *LedgerUseCase
	provider  PaymentProvider
	delivery  *DeliveryUseCase
	metrics   *metrics.Shop
	logger    *slog.Logger
	now       func() time.Time
}

// NewSettlementUseCase constructs SettlementUseCase.
func NewSettlementUseCase(p SettlementParams) *SettlementUseCase {
	return &SettlementUseCase{
		products:  p.Products,
		inventory: p.Inventory,
		orders:    p.Orders,
		ledger:    p.Ledger,
		provider:  p.Provider,
		delivery:  p.Delivery,
		metrics:   p.Metrics,
		logger:    p.Logger,
		now:       time.Now,
	}
}

// Purchase reserves a unit for the buyer and settles it from balance first.
// A balance covering the price pays and delivers immediately; otherwise the
// shortfall is invoiced and the order stays pending. Every failure undoes the
// reservation and the debit before the error is returned.
func (u *SettlementUseCase) Purchase(ctx context.Context, userID, productID int64) (*model.PurchaseResult, error) {
	product, err := u.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.Active {
		return nil, domainErrors.ErrProductNotFound
	}
	stock, err := u.inventory.CountAvailable(ctx, productID)
	if err != nil {
		return nil, err
	}
	if stock <= 0 {
		return nil, domainErrors.ErrOutOfStock
	}

	balance, err := u.ledger.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	price := product.Price

	if balance.GreaterThanOrEqual(price) {
		return u.payFromBalance(ctx, userID, product)
	}
	return u.payWithInvoice(ctx, userID, product, balance)
}

func (u *SettlementUseCase) payFromBalance(ctx context.Context, userID int64, product *model.Product) (*model.PurchaseResult, error) {
	price := product.Price
	if _, err := u.ledger.Debit(ctx, userID, price); err != nil {
		return nil, err
	}

	unit, err := u.inventory.Reserve(ctx, product.ID)
	if err != nil {
		u.compensate(ctx, "reserve after debit", err,
			func() error { _, err := u.ledger.Credit(ctx, userID, price); return err },
		)
		if errors.Is(err, domainErrors.ErrOutOfStock) {
			return nil, domainErrors.ErrOutOfStock
		}
		return nil, err
	}

	order, err := u.orders.Create(ctx, model.NewOrder{
		UserID:      userID,
		ProductID:   product.ID,
		UnitID:      unit.ID,
		Status:      model.OrderStatusPaid,
		Price:       price,
		UsedBalance: price,
		NeedCrypto:  decimal.Zero,
		Payment:     &model.Payment{Amount: price, Asset: model.BalanceAsset, PaidAt: u.now()},
	})
	if err != nil {
		u.compensate(ctx, "create paid order", err,
			func() error { return u.inventory.Release(ctx, unit.ID) },
			func() error { _, err := u.ledger.Credit(ctx, userID, price); return err },
		)
		return nil, err
	}
	u.metrics.OrderCreated("balance")
	u.logger.Info("order paid from balance", slog.Int64("order_id", order.ID), slog.Int64("user_id", userID))

	delivered, err := u.delivery.Deliver(ctx, order.ID)
	if err != nil {
		u.logger.Error("deliver balance order", slog.Int64("order_id", order.ID), slog.String("error", err.Error()))
	}
	if delivered {
		order.Status = model.OrderStatusDelivered
	}
	return &model.PurchaseResult{Order: order, Delivered: delivered}, nil
}

func (u *SettlementUseCase) payWithInvoice(ctx context.Context, userID int64, product *model.Product, balance decimal.Decimal) (*model.PurchaseResult, error) {
	price := product.Price
	used := decimal.Max(decimal.Zero, balance)
	need := price.Sub(used)

	unit, err := u.inventory.Reserve(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	release := func() error { return u.inventory.Release(ctx, unit.ID) }
	refund := func() error {
		if !used.IsPositive() {
			return nil
		}
		_, err := u.ledger.Credit(ctx, userID, used)
		return err
	}

	if used.IsPositive() {
		if _, err := u.ledger.Debit(ctx, userID, used); err != nil {
			u.compensate(ctx, "debit partial balance", err, release)
			if errors.Is(err, domainErrors.ErrInsufficientFunds) {
				return nil, domainErrors.ErrInsufficientFunds
			}
			return nil, err
		}
	}

	invoice, err := u.provider.CreateInvoice(ctx, model.InvoiceRequest{
		Amount:      need,
		Currency:    model.Currency,
		Description: product.TitleEn,
		Payload:     fmt.Sprintf("order:%d:%s", userID, uuid.NewString()),
	})
	if err != nil {
		u.compensate(ctx, "create invoice", err, release, refund)
		return nil, providerError("create invoice", err)
	}

	invoiceID := invoice.ID
	order, err := u.orders.Create(ctx, model.NewOrder{
		UserID:      userID,
		ProductID:   product.ID,
		UnitID:      unit.ID,
		InvoiceID:   &invoiceID,
		PayURL:      invoice.PayURL,
		Status:      model.OrderStatusPending,
		Price:       price,
		UsedBalance: used,
		NeedCrypto:  need,
	})
	if err != nil {
		u.compensate(ctx, "create pending order", err, release, refund)
		if delErr := u.provider.DeleteInvoice(ctx, invoiceID); delErr != nil {
			u.logger.Warn("delete orphan invoice", slog.Int64("invoice_id", invoiceID), slog.String("error", delErr.Error()))
		}
		return nil, err
	}
	u.metrics.OrderCreated("external")
	u.logger.Info("order awaiting payment",
		slog.Int64("order_id", order.ID),
		slog.Int64("invoice_id", invoiceID),
		slog.String("used_balance", used.StringFixed(2)),
		slog.String("need_crypto", need.StringFixed(2)),
	)
	return &model.PurchaseResult{Order: order}, nil
}

// compensate runs undo steps in order. Failures are combined with the cause and logged.
func (u *SettlementUseCase) compensate(ctx context.Context, step string, cause error, undo ...func() error) {
	var failed error
	for _, fn := range undo {
		failed = multierr.Append(failed, fn())
	}
	if failed == nil {
		return
	}
	u.logger.ErrorContext(ctx, "purchase compensation failed",
		slog.String("step", step),
		slog.String("error", multierr.Append(cause, failed).Error()),
	)
}

func providerError(op string, err error) error {
	if errors.Is(err, domainErrors.ErrExternalProvider) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, domainErrors.ErrExternalProvider, err)
}
