package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domainErrors "github.com/polkiloo/digishop/internal/domain/errors"
	"github.com/polkiloo/digishop/internal/domain/model"
)

func TestTopupCreate(t *testing.T) {
	f := newShopFixture(t)
	ctx := context.Background()

	if _, err := f.topups.Create(ctx, buyerID, usd("0.99")); !errors.Is(err, domainErrors.ErrInvalidAmount) {
		t.Fatalf("expected minimum check, got %v", err)
	}
	assertMoney(t, "minimum", f.topups.Minimum(), "1")

	topup, err := f.topups.Create(ctx, buyerID, usd("12.345"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	assertMoney(t, "amount", topup.Amount, "12.35")
	if topup.Status != model.TopupStatusPending || topup.PayURL == "" {
		t.Fatalf("unexpected topup %+v", topup)
	}
	if !strings.HasPrefix(f.provider.Created[0].Payload, "topup:42:") {
		t.Fatalf("unexpected payload %q", f.provider.Created[0].Payload)
	}
}

func TestTopupCreateDeletesOrphanInvoice(t *testing.T) {
	f := newShopFixture(t)
	f.store.Fail("topups.Create", errors.New("db down"))

	if _, err := f.topups.Create(context.Background(), buyerID, usd("5")); err == nil {
		t.Fatal("expected store error")
	}
	if len(f.provider.DeletedIDs()) != 1 {
		t.Fatal("expected orphan invoice deletion")
	}
}

func TestTopupCreateProviderFailure(t *testing.T) {
	f := newShopFixture(t)
	f.provider.CreateFn = func(context.Context, model.InvoiceRequest) (*model.Invoice, error) {
		return nil, errors.New("bad token")
	}
	if _, err := f.topups.Create(context.Background(), buyerID, usd("5")); !errors.Is(err, domainErrors.ErrExternalProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestTopupConfirmCreditsOnce(t *testing.T) {
	f := newShopFixture(t)
	ctx := context.Background()
	f.store.SetBalance(buyerID, "1.50")

	topup, err := f.topups.Create(ctx, buyerID, usd("10"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	credited, balance, err := f.topups.Confirm(ctx, topup.InvoiceID, cryptoPayment("10"))
	if err != nil || !credited {
		t.Fatalf("confirm: %v %v", credited, err)
	}
	assertMoney(t, "balance", balance, "11.50")

	credited, _, err = f.topups.Confirm(ctx, topup.InvoiceID, cryptoPayment("10"))
	if err != nil || credited {
		t.Fatalf("second confirm must not credit, got %v %v", credited, err)
	}
	assertMoney(t, "stored balance", f.store.BalanceOf(buyerID), "11.50")

	if _, _, err := f.topups.Confirm(ctx, 4242, cryptoPayment("1")); !errors.Is(err, domainErrors.ErrTopupNotFound) {
		t.Fatalf("expected topup not found, got %v", err)
	}
}

func TestTopupCheck(t *testing.T) {
	f := newShopFixture(t)
	ctx := context.Background()

	topup, err := f.topups.Create(ctx, buyerID, usd("10"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.topups.Check(ctx, buyerID+1, topup.InvoiceID); !errors.Is(err, domainErrors.ErrTopupNotFound) {
		t.Fatalf("foreign topup must be hidden, got %v", err)
	}

	paid, err := f.topups.Check(ctx, buyerID, topup.InvoiceID)
	if err != nil || paid {
		t.Fatalf("expected unpaid topup, got %v %v", paid, err)
	}

	f.provider.Pay(topup.InvoiceID, time.Now())
	paid, err = f.topups.Check(ctx, buyerID, topup.InvoiceID)
	if err != nil || !paid {
		t.Fatalf("expected paid topup, got %v %v", paid, err)
	}
	assertMoney(t, "balance", f.store.BalanceOf(buyerID), "10")

	paid, err = f.topups.Check(ctx, buyerID, topup.InvoiceID)
	if err != nil || !paid {
		t.Fatalf("repeated check: %v %v", paid, err)
	}
	assertMoney(t, "balance", f.store.BalanceOf(buyerID), "10")
}

func TestTopupHistory(t *testing.T) {
	f := newShopFixture(t)
	ctx := context.Background()
	for _, amount := range []string{"2", "3"} {
		if _, err := f.topups.Create(ctx, buyerID, usd(amount)); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	history, err := f.topups.History(ctx, buyerID, 0)
	if err != nil || len(history) != 2 {
		t.Fatalf("expected two topups, got %v %v", history, err)
	}
	assertMoney(t, "newest first", history[0].Amount, "3")

	pending, err := f.topups.ListPending(ctx, 10)
	if err != nil || len(pending) != 2 {
		t.Fatalf("expected two pending topups, got %v %v", pending, err)
	}
}

func TestTopupSyncExpiresAbandonedInvoices(t *testing.T) {
	f := newShopFixture(t)
	ctx := context.Background()
	const batch = 3

	for i := 0; i < batch+2; i++ {
		stale, err := f.topups.Create(ctx, buyerID, usd("2"))
		if err != nil {
			t.Fatalf("create stale topup: %v", err)
		}
		f.provider.Expire(stale.InvoiceID)
	}
	fresh, err := f.topups.Create(ctx, buyerID+1, usd("7"))
	if err != nil {
		t.Fatalf("create fresh topup: %v", err)
	}
	f.provider.Pay(fresh.InvoiceID, time.Now())

	// One reconcile pass over a single batch must already see the paid topup.
	pending, err := f.topups.ListPending(ctx, batch)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != batch || pending[0].InvoiceID != fresh.InvoiceID {
		t.Fatalf("expected newest pending topup first, got %+v", pending)
	}
	for _, topup := range pending {
		if _, err := f.topups.Sync(ctx, topup); err != nil {
			t.Fatalf("sync %d: %v", topup.InvoiceID, err)
		}
	}
	assertMoney(t, "fresh balance", f.store.BalanceOf(buyerID+1), "7")

	// Expired invoices leave the pending set, so later passes drain the rest.
	for pass := 0; pass < 3; pass++ {
		pending, err = f.topups.ListPending(ctx, batch)
		if err != nil {
			t.Fatalf("list pending: %v", err)
		}
		for _, topup := range pending {
			if _, err := f.topups.Sync(ctx, topup); err != nil {
				t.Fatalf("sync %d: %v", topup.InvoiceID, err)
			}
		}
	}
	if pending, _ = f.topups.ListPending(ctx, 100); len(pending) != 0 {
		t.Fatalf("expected no pending topups left, got %d", len(pending))
	}

	history, _ := f.topups.History(ctx, buyerID, 0)
	for _, topup := range history {
		if topup.Status != model.TopupStatusExpired {
			t.Fatalf("expected abandoned topup to be expired, got %s", topup.Status)
		}
	}
	assertMoney(t, "abandoned balance", f.store.BalanceOf(buyerID), "0")

	calls := f.store.Calls("topups.MarkExpired")
	if paid, err := f.topups.Sync(ctx, history[0]); err != nil || paid {
		t.Fatalf("expired topup must stay unpaid, got %v %v", paid, err)
	}
	if f.store.Calls("topups.MarkExpired") != calls {
		t.Fatal("expired topup must not be synced again")
	}
}
