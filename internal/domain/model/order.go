package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus describes purchase lifecycle.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCanceled  OrderStatus = "canceled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusPaid, OrderStatusCanceled},
	OrderStatusPaid:    {OrderStatusDelivered},
}

// CanTransitionTo reports whether status may move to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves the status.
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// BalanceAsset marks payments settled entirely from wallet balance.
const BalanceAsset = "BALANCE"

// Payment holds confirmation details of a settled order or topup.
type Payment struct {
	Amount decimal.Decimal
	Asset  string
	PaidAt time.Time
}

// Delivery records what was handed to the buyer.
type Delivery struct {
	Kind        DeliveryKind
	Ref         string
	DeliveredAt time.Time
}

// Order describes a purchase of a single inventory unit.
type Order struct {
	ID                int64
	UserID            int64
	ProductID         int64
	UnitID            *int64
	InvoiceID         *int64
	PayURL            string
	Status            OrderStatus
	Price             decimal.Decimal
	UsedBalance       decimal.Decimal
	NeedCrypto        decimal.Decimal
	CreatedAt         time.Time
	Payment           *Payment
	Delivery          *Delivery
	DeliveryClaimedAt *time.Time
}

// NewOrder carries the fields persisted when an order is created.
type NewOrder struct {
	UserID      int64
	ProductID   int64
	UnitID      int64
	InvoiceID   *int64
	PayURL      string
	Status      OrderStatus
	Price       decimal.Decimal
	UsedBalance decimal.Decimal
	NeedCrypto  decimal.Decimal
	Payment     *Payment
}

// PurchaseResult is returned by purchase initiation.
type PurchaseResult struct {
	Order     *Order
	Delivered bool
}

// ConfirmOutcome classifies the result of an external payment confirmation.
type ConfirmOutcome int

const (
	ConfirmPaid ConfirmOutcome = iota
	ConfirmAlreadyFinalized
	ConfirmStaleCancellation
	ConfirmUnknownInvoice
)

func (o ConfirmOutcome) String() string {
	switch o {
	case ConfirmPaid:
		return "paid"
	case ConfirmAlreadyFinalized:
		return "already_finalized"
	case ConfirmStaleCancellation:
		return "stale_cancellation"
	default:
		return "unknown_invoice"
	}
}

// CheckOutcome is reported to the buyer after a manual payment check.
type CheckOutcome int

const (
	CheckNotPaid CheckOutcome = iota
	CheckDelivered
	CheckDeliveryFailed
	CheckCanceled
)
