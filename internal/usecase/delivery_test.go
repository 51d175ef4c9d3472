package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domainErrors "github.com/polkiloo/digishop/internal/domain/errors"
	"github.com/polkiloo/digishop/internal/domain/model"
	"github.com/polkiloo/digishop/internal/test"
)

func paidOrder(t *testing.T, f *shopFixture, kind model.DeliveryKind, payload string) *model.Order {
	t.Helper()
	ctx := context.Background()
	product := f.store.SeedProduct("5", kind, payload)
	unit, err := f.store.Inventory().Reserve(ctx, product.ID)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	order, err := f.store.Orders().Create(ctx, model.NewOrder{
		UserID:      buyerID,
		ProductID:   product.ID,
		UnitID:      unit.ID,
		Status:      model.OrderStatusPaid,
		Price:       product.Price,
		UsedBalance: product.Price,
		Payment:     &model.Payment{Amount: product.Price, Asset: model.BalanceAsset, PaidAt: time.Now()},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}

func TestDeliverByKind(t *testing.T) {
	cases := []struct {
		kind    model.DeliveryKind
		payload string
		check   func(*testing.T, string, string)
	}{
		{model.DeliveryKindLink, "https://example.com/?a=1&b=2", func(t *testing.T, text, file string) {
			if !strings.Contains(text, "https://example.com/?a=1&amp;b=2") || file != "" {
				t.Fatalf("unexpected link delivery %q %q", text, file)
			}
		}},
		{model.DeliveryKindCode, "<KEY>", func(t *testing.T, text, file string) {
			if !strings.Contains(text, "<code>&lt;KEY&gt;</code>") {
				t.Fatalf("unexpected code delivery %q", text)
			}
		}},
		{model.DeliveryKindFile, "file-id-123", func(t *testing.T, text, file string) {
			if file != "file-id-123" || !strings.Contains(text, "Product") {
				t.Fatalf("unexpected file delivery %q %q", text, file)
			}
		}},
	}

	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			f := newShopFixture(t)
			order := paidOrder(t, f, tc.kind, tc.payload)

			delivered, err := f.delivery.Deliver(context.Background(), order.ID)
			if err != nil || !delivered {
				t.Fatalf("deliver: %v %v", delivered, err)
			}
			sent := f.notifier.SentTo(buyerID)
			if len(sent) != 1 {
				t.Fatalf("expected one message, got %d", len(sent))
			}
			tc.check(t, sent[0].Text, sent[0].FileRef)

			stored := f.store.Order(order.ID)
			if stored.Status != model.OrderStatusDelivered || stored.Delivery.Kind != tc.kind {
				t.Fatalf("unexpected stored order %+v", stored)
			}
			if !strings.HasPrefix(stored.Delivery.Ref, "unit:") {
				t.Fatalf("unexpected delivery ref %q", stored.Delivery.Ref)
			}
			if f.store.Unit(*stored.UnitID).State != model.UnitStateSold {
				t.Fatal("unit must be sold")
			}
		})
	}
}

func TestDeliverUsesBuyerLanguage(t *testing.T) {
	f := newShopFixture(t)
	ctx := context.Background()
	if _, _, err := f.accounts.Register(ctx, buyerID, "buyer"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := f.accounts.SetLanguage(ctx, buyerID, model.LanguageRu); err != nil {
		t.Fatalf("set language: %v", err)
	}
	order := paidOrder(t, f, model.DeliveryKindCode, "KEY")

	if _, err := f.delivery.Deliver(ctx, order.ID); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	sent := f.notifier.SentTo(buyerID)
	if len(sent) != 1 || !strings.Contains(sent[0].Text, "Товар") {
		t.Fatalf("expected russian delivery, got %+v", sent)
	}
}

func TestDeliverIsIdempotent(t *testing.T) {
	f := newShopFixture(t)
	order := paidOrder(t, f, model.DeliveryKindCode, "KEY")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		delivered, err := f.delivery.Deliver(ctx, order.ID)
		if err != nil || !delivered {
			t.Fatalf("attempt %d: %v %v", i, delivered, err)
		}
	}
	if sent := f.notifier.SentTo(buyerID); len(sent) != 1 {
		t.Fatalf("expected a single message, got %d", len(sent))
	}
}

func TestDeliverRespectsLease(t *testing.T) {
	f := newShopFixture(t)
	order := paidOrder(t, f, model.DeliveryKindCode, "KEY")
	ctx := context.Background()

	claimed, err := f.store.Orders().ClaimDelivery(ctx, order.ID, time.Now())
	if err != nil || !claimed {
		t.Fatalf("claim: %v %v", claimed, err)
	}

	delivered, err := f.delivery.Deliver(ctx, order.ID)
	if err != nil || delivered {
		t.Fatalf("held lease must skip delivery, got %v %v", delivered, err)
	}
	if len(f.notifier.Sent()) != 0 {
		t.Fatal("nothing must be sent while another attempt holds the lease")
	}

	f.delivery.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	delivered, err = f.delivery.Deliver(ctx, order.ID)
	if err != nil || !delivered {
		t.Fatalf("stale lease must be taken over, got %v %v", delivered, err)
	}
}

func TestDeliverFailureReleasesClaim(t *testing.T) {
	f := newShopFixture(t)
	order := paidOrder(t, f, model.DeliveryKindFile, "file-id")
	ctx := context.Background()
	sendErr := errors.New("bot was blocked by the user")
	f.notifier.SendFileFn = func(context.Context, int64, string, string) error { return sendErr }

	if _, err := f.delivery.Deliver(ctx, order.ID); !errors.Is(err, sendErr) {
		t.Fatalf("expected send error, got %v", err)
	}
	stored := f.store.Order(order.ID)
	if stored.Status != model.OrderStatusPaid || stored.DeliveryClaimedAt != nil {
		t.Fatalf("failed delivery must leave a paid unclaimed order, got %+v", stored)
	}
	if f.store.Unit(*stored.UnitID).State != model.UnitStateReserved {
		t.Fatal("unit must stay reserved")
	}

	f.notifier.SendFileFn = nil
	if delivered, err := f.delivery.Deliver(ctx, order.ID); err != nil || !delivered {
		t.Fatalf("retry: %v %v", delivered, err)
	}
}

func TestDeliverUnrecordedSendHoldsClaim(t *testing.T) {
	f := newShopFixture(t)
	order := paidOrder(t, f, model.DeliveryKindCode, "KEY")
	ctx := context.Background()
	dbErr := errors.New("connection reset")
	f.store.Fail("orders.MarkDelivered", dbErr)

	if _, err := f.delivery.Deliver(ctx, order.ID); !errors.Is(err, dbErr) {
		t.Fatalf("expected record error, got %v", err)
	}
	stored := f.store.Order(order.ID)
	if stored.Status != model.OrderStatusPaid || stored.DeliveryClaimedAt == nil || !stored.DeliveryClaimedAt.Equal(test.HeldClaim) {
		t.Fatalf("sent but unrecorded delivery must keep a held claim, got %+v", stored)
	}

	f.store.Fail("orders.MarkDelivered", nil)
	f.delivery.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
	if delivered, err := f.delivery.Deliver(ctx, order.ID); err != nil || delivered {
		t.Fatalf("held claim must skip delivery, got %v %v", delivered, err)
	}
	if sent := f.notifier.SentTo(buyerID); len(sent) != 1 {
		t.Fatalf("payload must be sent once, got %d messages", len(sent))
	}
	if got := f.store.Calls("orders.HoldDeliveryClaim"); got != 1 {
		t.Fatalf("expected one hold, got %d", got)
	}
}

func TestDeliverRejectsUnpaidOrders(t *testing.T) {
	f := newShopFixture(t)
	order := pendingPurchase(t, f, "10", "0")

	if _, err := f.delivery.Deliver(context.Background(), order.ID); !errors.Is(err, domainErrors.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if _, err := f.delivery.Deliver(context.Background(), 12345); !errors.Is(err, domainErrors.ErrOrderNotFound) {
		t.Fatalf("expected order not found, got %v", err)
	}
}
