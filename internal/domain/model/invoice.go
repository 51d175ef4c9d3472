package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus describes payment state reported by the external provider.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusExpired InvoiceStatus = "expired"
)

// Currency is the fiat currency used for every price and invoice.
const Currency = "USD"

// InvoiceRequest describes an invoice to be created at the provider.
type InvoiceRequest struct {
	Amount      decimal.Decimal
	Currency    string
	Description string
	Payload     string
}

// Invoice is a created external invoice.
type Invoice struct {
	ID     int64
	PayURL string
}

// InvoiceInfo is the provider-side view of an invoice.
type InvoiceInfo struct {
	ID     int64
	Status InvoiceStatus
	Amount decimal.Decimal
	Asset  string
	PaidAt *time.Time
}

// Payment converts a paid invoice to payment details. Missing paid time defaults to fallback.
func (i InvoiceInfo) Payment(fallback time.Time) Payment {
	p := Payment{Amount: i.Amount, Asset: i.Asset, PaidAt: fallback}
	if i.PaidAt != nil {
		p.PaidAt = *i.PaidAt
	}
	return p
}
