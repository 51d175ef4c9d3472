package usecase

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/polkiloo/digishop/internal/config"
	"github.com/polkiloo/digishop/internal/metrics"
	"github.com/polkiloo/digishop/internal/test"
)

const (
	adminID = 1
	buyerID = 42
)

type shopFixture struct {
	store    *test.MemoryStore
	provider *test.ProviderStub
	notifier *test.NotifierStub

	ledger     *LedgerUseCase
	accounts   *AccountUseCase
	catalog    *CatalogUseCase
	delivery   *DeliveryUseCase
	settlement *SettlementUseCase
	topups     *TopupUseCase
	orders     *OrderUseCase
}

func newShopFixture(t *testing.T) *shopFixture {
	t.Helper()

	store := test.NewMemoryStore()
	provider := test.NewProviderStub()
	notifier := &test.NotifierStub{}
	logger := test.DiscardLogger()
	shop := metrics.New(prometheus.NewRegistry())
	cfg := &config.Config{
		AdminIDs:      []int64{adminID},
		DeliveryLease: time.Minute,
		MinTopup:      decimal.NewFromInt(1),
	}

	f := &shopFixture{store: store, provider: provider, notifier: notifier}
	f.ledger = NewLedgerUseCase(store.Balances())
	f.accounts = NewAccountUseCase(AccountParams{
		Accounts: store.Accounts(),
		Orders:   store.Orders(),
		Ledger:   f.ledger,
		Config:   cfg,
		Logger:   logger,
	})
	f.catalog = NewCatalogUseCase(CatalogParams{
		Products:   store.Products(),
		Categories: store.Categories(),
		Inventory:  store.Inventory(),
		Favorites:  store.Favorites(),
		Accounts:   store.Accounts(),
		Notifier:   notifier,
		Logger:     logger,
	})
	f.delivery = NewDeliveryUseCase(DeliveryParams{
		Orders:    store.Orders(),
		Products:  store.Products(),
		Inventory: store.Inventory(),
		Accounts:  store.Accounts(),
		Notifier:  notifier,
		Config:    cfg,
		Metrics:   shop,
		Logger:    logger,
	})
	f.settlement = NewSettlementUseCase(SettlementParams{
		Products:  store.Products(),
		Inventory: store.Inventory(),
		Orders:    store.Orders(),
		Ledger:    f.ledger,
		Provider:  provider,
		Delivery:  f.delivery,
		Metrics:   shop,
		Logger:    logger,
	})
	f.topups = NewTopupUseCase(TopupParams{
		Topups:   store.Topups(),
		Provider: provider,
		Config:   cfg,
		Metrics:  shop,
		Logger:   logger,
	})
	f.orders = NewOrderUseCase(OrderParams{
		Orders:   store.Orders(),
		Provider: provider,
		Delivery: f.delivery,
		Topups:   f.topups,
		Metrics:  shop,
		Logger:   logger,
	})
	return f
}

func usd(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, what string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(usd(want)) {
		t.Fatalf("expected %s %s, got %s", what, want, got.StringFixed(2))
	}
}
