package postgres

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/digishop/internal/config"
	"github.com/polkiloo/digishop/internal/domain/repository"
)

// Module wires PostgreSQL storage and repository adapters.
var Module = fx.Options(
	fx.Provide(newStorage),
	fx.Provide(
		func(s *Storage) repository.Factory { return s },
		func(s *Storage) repository.AccountRepository { return s.Accounts() },
		func(s *Storage) repository.FavoriteRepository { return s.Favorites() },
		func(s *Storage) repository.CategoryRepository { return s.Categories() },
		func(s *Storage) repository.ProductRepository { return s.Products() },
		func(s *Storage) repository.InventoryRepository { return s.Inventory() },
		func(s *Storage) repository.BalanceRepository { return s.Balances() },
		func(s *Storage) repository.OrderRepository { return s.Orders() },
		func(s *Storage) repository.TopupRepository { return s.Topups() },
	),
	fx.Invoke(registerLifecycle),
)

type storageParams struct {
	fx.In

	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

func newStorage(p storageParams) (*Storage, error) {
	return New(p.Ctx, p.Config.DatabaseURI, p.Logger)
}

func registerLifecycle(lc fx.Lifecycle, storage *Storage) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			storage.Close()
			return nil
		},
	})
}
