package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TopupStatus describes wallet funding lifecycle.
type TopupStatus string

const (
	TopupStatusPending TopupStatus = "pending"
	TopupStatusPaid    TopupStatus = "paid"
	TopupStatusExpired TopupStatus = "expired"
)

// Topup funds the wallet through an external invoice.
type Topup struct {
	ID        int64
	UserID    int64
	InvoiceID int64
	Amount    decimal.Decimal
	Status    TopupStatus
	PayURL    string
	CreatedAt time.Time
	PaidAt    *time.Time
}
