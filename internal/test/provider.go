package test

import (
	"context"
	"fmt"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/digishop/internal/domain/errors"
	"github.com/polkiloo/digishop/internal/domain/model"
)

// ProviderStub simulates the payment provider with in-memory invoices.
type ProviderStub struct {
	CreateFn func(context.Context, model.InvoiceRequest) (*model.Invoice, error)
	GetFn    func(context.Context, int64) (*model.InvoiceInfo, error)
	DeleteFn func(context.Context, int64) error

	mu       sync.Mutex
	next     int64
	invoices map[int64]*model.InvoiceInfo
	Created  []model.InvoiceRequest
	Deleted  []int64
}

// NewProviderStub constructs a stub issuing invoice ids from 1000.
func NewProviderStub() *ProviderStub {
	return &ProviderStub{next: 1000, invoices: make(map[int64]*model.InvoiceInfo)}
}

// CreateInvoice records the request and issues a pending invoice.
func (p *ProviderStub) CreateInvoice(ctx context.Context, req model.InvoiceRequest) (*model.Invoice, error) {
	p.mu.Lock()
	p.Created = append(p.Created, req)
	p.mu.Unlock()
	if p.CreateFn != nil {
		return p.CreateFn(ctx, req)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.invoices == nil {
		p.invoices = make(map[int64]*model.InvoiceInfo)
	}
	p.next++
	id := p.next
	p.invoices[id] = &model.InvoiceInfo{ID: id, Status: model.InvoiceStatusPending, Amount: req.Amount, Asset: "USDT"}
	return &model.Invoice{ID: id, PayURL: fmt.Sprintf("https://pay.example/invoice/%d", id)}, nil
}

// GetInvoice returns the stored invoice state.
func (p *ProviderStub) GetInvoice(ctx context.Context, invoiceID int64) (*model.InvoiceInfo, error) {
	if p.GetFn != nil {
		return p.GetFn(ctx, invoiceID)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	info, ok := p.invoices[invoiceID]
	if !ok {
		return nil, fmt.Errorf("invoice %d: %w", invoiceID, domainErrors.ErrExternalProvider)
	}
	cp := *info
	return &cp, nil
}

// DeleteInvoice records the deletion.
func (p *ProviderStub) DeleteInvoice(ctx context.Context, invoiceID int64) error {
	p.mu.Lock()
	p.Deleted = append(p.Deleted, invoiceID)
	p.mu.Unlock()
	if p.DeleteFn != nil {
		return p.DeleteFn(ctx, invoiceID)
	}
	return nil
}

// Pay marks the invoice paid at the given time.
func (p *ProviderStub) Pay(invoiceID int64, at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if info, ok := p.invoices[invoiceID]; ok {
		info.Status = model.InvoiceStatusPaid
		info.PaidAt = &at
	}
}

// Expire marks the invoice expired.
func (p *ProviderStub) Expire(invoiceID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if info, ok := p.invoices[invoiceID]; ok {
		info.Status = model.InvoiceStatusExpired
	}
}

// CreatedCount reports how many invoices were requested.
func (p *ProviderStub) CreatedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Created)
}

// DeletedIDs returns deleted invoice ids.
func (p *ProviderStub) DeletedIDs() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int64(nil), p.Deleted...)
}
