package test

import (
	"context"
	"sync"

	"github.com/polkiloo/digishop/internal/domain/model"
)

// Confirmation is a recorded ConfirmInvoicePaid call.
type Confirmation struct {
	InvoiceID int64
	Payment   model.Payment
}

// ShopFacadeStub implements the HTTP facade.
type ShopFacadeStub struct {
	ConfirmFn func(context.Context, int64, model.Payment) (model.ConfirmOutcome, error)
	HealthErr error

	mu            sync.Mutex
	confirmations []Confirmation
}

func (s *ShopFacadeStub) ConfirmInvoicePaid(ctx context.Context, invoiceID int64, payment model.Payment) (model.ConfirmOutcome, error) {
	s.mu.Lock()
	s.confirmations = append(s.confirmations, Confirmation{InvoiceID: invoiceID, Payment: payment})
	s.mu.Unlock()
	if s.ConfirmFn != nil {
		return s.ConfirmFn(ctx, invoiceID, payment)
	}
	return model.ConfirmPaid, nil
}

func (s *ShopFacadeStub) HealthCheck(context.Context) error {
	return s.HealthErr
}

// Confirmations returns recorded confirmations.
func (s *ShopFacadeStub) Confirmations() []Confirmation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Confirmation(nil), s.confirmations...)
}

// GuardStub is an in-memory dedup guard.
type GuardStub struct {
	SeenErr error

	mu     sync.Mutex
	marked map[int64]bool
}

func (g *GuardStub) Seen(_ context.Context, invoiceID int64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.SeenErr != nil {
		return false, g.SeenErr
	}
	return g.marked[invoiceID], nil
}

func (g *GuardStub) Mark(_ context.Context, invoiceID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.marked == nil {
		g.marked = make(map[int64]bool)
	}
	g.marked[invoiceID] = true
	return nil
}
