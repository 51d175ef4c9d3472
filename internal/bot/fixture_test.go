package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/polkiloo/digishop/internal/adapter/telegram"
	"github.com/polkiloo/digishop/internal/config"
	"github.com/polkiloo/digishop/internal/metrics"
	"github.com/polkiloo/digishop/internal/test"
	"github.com/polkiloo/digishop/internal/usecase"
)

const (
	adminID = 1
	buyerID = 42
)

type botFixture struct {
	store    *test.MemoryStore
	provider *test.ProviderStub
	notifier *test.NotifierStub
	api      *test.TelegramStub
	ledger   *usecase.LedgerUseCase
	bot      *Dispatcher
}

func newBotFixture(t *testing.T) *botFixture {
	t.Helper()

	store := test.NewMemoryStore()
	provider := test.NewProviderStub()
	notifier := &test.NotifierStub{}
	api := &test.TelegramStub{}
	logger := test.DiscardLogger()
	shop := metrics.New(prometheus.NewRegistry())
	cfg := &config.Config{
		AdminIDs:      []int64{adminID},
		DeliveryLease: time.Minute,
		MinTopup:      decimal.NewFromInt(1),
	}

	ledger := usecase.NewLedgerUseCase(store.Balances())
	accounts := usecase.NewAccountUseCase(usecase.AccountParams{
		Accounts: store.Accounts(),
		Orders:   store.Orders(),
		Ledger:   ledger,
		Config:   cfg,
		Logger:   logger,
	})
	catalog := usecase.NewCatalogUseCase(usecase.CatalogParams{
		Products:   store.Products(),
		Categories: store.Categories(),
		Inventory:  store.Inventory(),
		Favorites:  store.Favorites(),
		Accounts:   store.Accounts(),
		Notifier:   notifier,
		Logger:     logger,
	})
	delivery := usecase.NewDeliveryUseCase(usecase.DeliveryParams{
		Orders:    store.Orders(),
		Products:  store.Products(),
		Inventory: store.Inventory(),
		Accounts:  store.Accounts(),
		Notifier:  notifier,
		Config:    cfg,
		Metrics:   shop,
		Logger:    logger,
	})
	settlement := usecase.NewSettlementUseCase(usecase.SettlementParams{
		Products:  store.Products(),
		Inventory: store.Inventory(),
		Orders:    store.Orders(),
		Ledger:    ledger,
		Provider:  provider,
		Delivery:  delivery,
		Metrics:   shop,
		Logger:    logger,
	})
	topups := usecase.NewTopupUseCase(usecase.TopupParams{
		Topups:   store.Topups(),
		Provider: provider,
		Config:   cfg,
		Metrics:  shop,
		Logger:   logger,
	})
	orders := usecase.NewOrderUseCase(usecase.OrderParams{
		Orders:   store.Orders(),
		Provider: provider,
		Delivery: delivery,
		Topups:   topups,
		Metrics:  shop,
		Logger:   logger,
	})

	return &botFixture{
		store:    store,
		provider: provider,
		notifier: notifier,
		api:      api,
		ledger:   ledger,
		bot: NewDispatcher(Params{
			API:        api,
			Accounts:   accounts,
			Catalog:    catalog,
			Ledger:     ledger,
			Settlement: settlement,
			Orders:     orders,
			Topups:     topups,
			Logger:     logger,
		}),
	}
}

func textUpdate(userID int64, text string) telegram.Update {
	return telegram.Update{Message: &telegram.Message{
		From: &telegram.User{ID: userID, Username: "user"},
		Chat: telegram.Chat{ID: userID, Type: "private"},
		Text: text,
	}}
}

func callbackUpdate(userID int64, data string) telegram.Update {
	return telegram.Update{CallbackQuery: &telegram.CallbackQuery{
		ID:      "cb-" + data,
		From:    telegram.User{ID: userID},
		Message: &telegram.Message{Chat: telegram.Chat{ID: userID}},
		Data:    data,
	}}
}

func (f *botFixture) send(t *testing.T, update telegram.Update) test.ChatMessage {
	t.Helper()
	f.api.Reset()
	if err := f.bot.Handle(context.Background(), update); err != nil {
		t.Fatalf("handle update: %v", err)
	}
	return f.api.Last()
}

func (f *botFixture) register(t *testing.T, userID int64) {
	t.Helper()
	f.send(t, textUpdate(userID, "/start"))
	f.api.Reset()
}

func assertContains(t *testing.T, msg test.ChatMessage, want string) {
	t.Helper()
	if !strings.Contains(msg.Text, want) {
		t.Fatalf("expected message containing %q, got %q", want, msg.Text)
	}
}
