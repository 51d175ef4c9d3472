package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/digishop/internal/domain/errors"
	"github.com/polkiloo/digishop/internal/domain/model"
)

func TestStartAndLanguage(t *testing.T) {
	f := newBotFixture(t)

	msg := f.send(t, textUpdate(buyerID, "/start"))
	assertContains(t, msg, "Welcome")
	if !msg.HasCallback("lang:ru") || !msg.HasCallback("lang:en") {
		t.Fatalf("expected language keyboard, got %+v", msg.Buttons())
	}

	f.send(t, callbackUpdate(buyerID, "lang:ru"))
	messages := f.api.Messages()
	if len(messages) != 2 {
		t.Fatalf("expected confirmation and menu, got %d messages", len(messages))
	}
	if !strings.Contains(messages[0].Text, "Русский") {
		t.Fatalf("unexpected confirmation %q", messages[0].Text)
	}
	if !messages[1].HasCallback("menu:products") {
		t.Fatal("expected main menu keyboard")
	}
	if got := f.api.Answered(); len(got) != 1 || got[0] != "cb-lang:ru" {
		t.Fatalf("expected callback to be answered, got %v", got)
	}

	msg = f.send(t, textUpdate(buyerID, "hello"))
	assertContains(t, msg, "Главное меню")
}

func TestBannedUserIgnored(t *testing.T) {
	f := newBotFixture(t)
	f.register(t, buyerID)
	f.send(t, textUpdate(adminID, fmt.Sprintf("/admin ban %d", buyerID)))

	f.api.Reset()
	if err := f.bot.Handle(context.Background(), textUpdate(buyerID, "/start")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.bot.Handle(context.Background(), callbackUpdate(buyerID, "menu:products")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.api.Messages(); len(got) != 0 {
		t.Fatalf("banned user got %d replies", len(got))
	}
	if got := f.api.Answered(); len(got) != 0 {
		t.Fatalf("banned user callback answered: %v", got)
	}
}

func TestCatalogNavigation(t *testing.T) {
	f := newBotFixture(t)
	f.register(t, buyerID)
	product := f.store.SeedProduct("10", model.DeliveryKindCode, "AAAA-1111")

	msg := f.send(t, callbackUpdate(buyerID, "menu:products"))
	if !msg.HasCallback(fmt.Sprintf("prod:%d", product.ID)) {
		t.Fatalf("expected product button, got %+v", msg.Buttons())
	}

	msg = f.send(t, callbackUpdate(buyerID, fmt.Sprintf("prod:%d", product.ID)))
	assertContains(t, msg, "Price: $10.00")
	assertContains(t, msg, "In stock: 1")
	if !msg.HasCallback(fmt.Sprintf("buy:%d", product.ID)) || !msg.HasCallback(fmt.Sprintf("fav:%d", product.ID)) {
		t.Fatalf("expected buy and favorite buttons, got %+v", msg.Buttons())
	}

	msg = f.send(t, callbackUpdate(buyerID, "menu:stock"))
	assertContains(t, msg, "Product: 1 pcs")
}

func TestBuyWithInvoiceThenCheck(t *testing.T) {
	f := newBotFixture(t)
	f.register(t, buyerID)
	product := f.store.SeedProduct("10", model.DeliveryKindCode, "AAAA-1111")
	f.store.SetBalance(buyerID, "4")

	msg := f.send(t, callbackUpdate(buyerID, fmt.Sprintf("buy:%d", product.ID)))
	assertContains(t, msg, "Balance used: $4.00")
	assertContains(t, msg, "To pay: $6.00")

	orders := f.store.AllOrders()
	if len(orders) != 1 {
		t.Fatalf("expected one order, got %d", len(orders))
	}
	order := orders[0]
	if !msg.HasCallback(fmt.Sprintf("check:%d", order.ID)) || !msg.HasCallback(fmt.Sprintf("cancel:%d", order.ID)) {
		t.Fatalf("expected check and cancel buttons, got %+v", msg.Buttons())
	}
	pay := msg.Buttons()[0]
	if pay.URL != order.PayURL {
		t.Fatalf("expected pay link %q, got %q", order.PayURL, pay.URL)
	}

	msg = f.send(t, callbackUpdate(buyerID, fmt.Sprintf("check:%d", order.ID)))
	assertContains(t, msg, "has not arrived yet")

	f.provider.Pay(*order.InvoiceID, time.Now())
	f.send(t, callbackUpdate(buyerID, fmt.Sprintf("check:%d", order.ID)))
	if got := f.store.Order(order.ID).Status; got != model.OrderStatusDelivered {
		t.Fatalf("expected delivered order, got %s", got)
	}
	delivered := f.notifier.SentTo(buyerID)
	if len(delivered) != 1 || !strings.Contains(delivered[0].Text, "<code>AAAA-1111</code>") {
		t.Fatalf("expected one delivery message, got %+v", delivered)
	}
}

func TestBuyFromBalance(t *testing.T) {
	f := newBotFixture(t)
	f.register(t, buyerID)
	product := f.store.SeedProduct("10", model.DeliveryKindLink, "https://example.com/x")
	f.store.SetBalance(buyerID, "15")

	msg := f.send(t, callbackUpdate(buyerID, fmt.Sprintf("buy:%d", product.ID)))
	assertContains(t, msg, "Paid $10.00 from your balance. New balance: $5.00")
	if len(f.notifier.SentTo(buyerID)) != 1 {
		t.Fatal("expected the product to be delivered")
	}
}

func TestBuyErrorsAreLocalized(t *testing.T) {
	t.Run("out of stock", func(t *testing.T) {
		f := newBotFixture(t)
		f.register(t, buyerID)
		product := f.store.SeedProduct("10", model.DeliveryKindCode)

		msg := f.send(t, callbackUpdate(buyerID, fmt.Sprintf("buy:%d", product.ID)))
		assertContains(t, msg, "Out of stock")
	})

	t.Run("provider down", func(t *testing.T) {
		f := newBotFixture(t)
		f.register(t, buyerID)
		product := f.store.SeedProduct("10", model.DeliveryKindCode, "A")
		f.provider.CreateFn = func(context.Context, model.InvoiceRequest) (*model.Invoice, error) {
			return nil, fmt.Errorf("timeout: %w", domainErrors.ErrExternalProvider)
		}

		msg := f.send(t, callbackUpdate(buyerID, fmt.Sprintf("buy:%d", product.ID)))
		assertContains(t, msg, "Payment service is unavailable")
		if got := f.store.UnitsInState(product.ID, model.UnitStateAvailable); got != 1 {
			t.Fatalf("expected unit to be released, got %d available", got)
		}
	})

	t.Run("unknown product", func(t *testing.T) {
		f := newBotFixture(t)
		f.register(t, buyerID)

		msg := f.send(t, callbackUpdate(buyerID, "buy:999"))
		assertContains(t, msg, "no longer available")
	})

	t.Run("malformed id", func(t *testing.T) {
		f := newBotFixture(t)
		f.register(t, buyerID)

		msg := f.send(t, callbackUpdate(buyerID, "buy:abc"))
		assertContains(t, msg, "Invalid value")
	})

	t.Run("store failure", func(t *testing.T) {
		f := newBotFixture(t)
		f.register(t, buyerID)
		product := f.store.SeedProduct("10", model.DeliveryKindCode, "A")
		f.store.Fail("products.GetByID", errors.New("connection reset"))

		msg := f.send(t, callbackUpdate(buyerID, fmt.Sprintf("buy:%d", product.ID)))
		assertContains(t, msg, "Something went wrong")
	})
}

func TestCancelOrder(t *testing.T) {
	f := newBotFixture(t)
	f.register(t, buyerID)
	product := f.store.SeedProduct("10", model.DeliveryKindCode, "A")
	f.store.SetBalance(buyerID, "3")
	f.send(t, callbackUpdate(buyerID, fmt.Sprintf("buy:%d", product.ID)))
	order := f.store.AllOrders()[0]

	msg := f.send(t, callbackUpdate(buyerID, fmt.Sprintf("cancel:%d", order.ID)))
	assertContains(t, msg, fmt.Sprintf("Order #%d canceled.", order.ID))
	if got := f.store.BalanceOf(buyerID); !got.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected balance restored to 3, got %s", got)
	}

	msg = f.send(t, callbackUpdate(buyerID, fmt.Sprintf("cancel:%d", order.ID)))
	assertContains(t, msg, "can no longer be canceled")

	msg = f.send(t, callbackUpdate(7, fmt.Sprintf("cancel:%d", order.ID)))
	assertContains(t, msg, "Order not found")
}

func TestFavoriteToggle(t *testing.T) {
	f := newBotFixture(t)
	f.register(t, buyerID)
	product := f.store.SeedProduct("10", model.DeliveryKindCode)

	msg := f.send(t, callbackUpdate(buyerID, fmt.Sprintf("fav:%d", product.ID)))
	assertContains(t, msg, "will be notified")
	msg = f.send(t, callbackUpdate(buyerID, fmt.Sprintf("fav:%d", product.ID)))
	assertContains(t, msg, "notifications disabled")
}

func TestTopupFlow(t *testing.T) {
	f := newBotFixture(t)
	f.register(t, buyerID)

	msg := f.send(t, callbackUpdate(buyerID, "menu:topup"))
	assertContains(t, msg, "minimum $1.00")

	msg = f.send(t, textUpdate(buyerID, "abc"))
	assertContains(t, msg, "valid amount")
	msg = f.send(t, textUpdate(buyerID, "0,50"))
	assertContains(t, msg, "minimum top-up is $1.00")

	msg = f.send(t, textUpdate(buyerID, "2,50"))
	assertContains(t, msg, "Top-up invoice for $2.50 created")
	invoiceID := int64(1000 + f.provider.CreatedCount())
	if !msg.HasCallback(fmt.Sprintf("tcheck:%d", invoiceID)) {
		t.Fatalf("expected topup check button, got %+v", msg.Buttons())
	}

	msg = f.send(t, callbackUpdate(buyerID, fmt.Sprintf("tcheck:%d", invoiceID)))
	assertContains(t, msg, "has not arrived yet")

	f.provider.Pay(invoiceID, time.Now())
	msg = f.send(t, callbackUpdate(buyerID, fmt.Sprintf("tcheck:%d", invoiceID)))
	assertContains(t, msg, "New balance: $2.50")

	msg = f.send(t, textUpdate(buyerID, "5"))
	assertContains(t, msg, "Main menu")
}

func TestProfileAndHistory(t *testing.T) {
	f := newBotFixture(t)
	f.register(t, buyerID)
	product := f.store.SeedProduct("10", model.DeliveryKindCode, "A")
	f.store.SetBalance(buyerID, "12")

	msg := f.send(t, callbackUpdate(buyerID, "menu:history"))
	assertContains(t, msg, "No activity yet")

	f.send(t, callbackUpdate(buyerID, fmt.Sprintf("buy:%d", product.ID)))

	msg = f.send(t, callbackUpdate(buyerID, "menu:profile"))
	assertContains(t, msg, "Balance: $2.00")
	assertContains(t, msg, "Purchases: 1")

	msg = f.send(t, callbackUpdate(buyerID, "menu:history"))
	assertContains(t, msg, "$10.00 (delivered)")
}
