package usecase

import (
	"context"

	"github.com/polkiloo/digishop/internal/domain/model"
)

// PaymentProvider creates and queries external invoices.
type PaymentProvider interface {
	CreateInvoice(ctx context.Context, req model.InvoiceRequest) (*model.Invoice, error)
	GetInvoice(ctx context.Context, invoiceID int64) (*model.InvoiceInfo, error)
	DeleteInvoice(ctx context.Context, invoiceID int64) error
}

// Notifier delivers messages to chat users.
type Notifier interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendFile(ctx context.Context, chatID int64, fileRef, caption string) error
}
