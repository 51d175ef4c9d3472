package usecase

import (
	"context"
	"log/slog"
	"sync"

	"go.uber.org/fx"

	"github.com/polkiloo/digishop/internal/config"
	"github.com/polkiloo/digishop/internal/domain/model"
	"github.com/polkiloo/digishop/internal/domain/repository"
)

const historyLimit = 10

// AccountParams lists dependencies of AccountUseCase.
type AccountParams struct {
	fx.In

	Accounts repository.AccountRepository
	Orders   repository.OrderRepository
	Ledger   *LedgerUseCase
	Config   *config.Config
	Logger   *slog.Logger
}

// AccountUseCase manages chat accounts, their language and ban state.
type AccountUseCase struct {
	accounts repository.AccountRepository
	orders   repository.OrderRepository
	ledger   *LedgerUseCase
	admins   map[int64]struct{}
	logger   *slog.Logger

	mu     sync.RWMutex
	banned map[int64]bool
}

// NewAccountUseCase constructs AccountUseCase.
func NewAccountUseCase(p AccountParams) *AccountUseCase {
	admins := make(map[int64]struct{})
	if p.Config != nil {
		for _, id := range p.Config.AdminIDs {
			admins[id] = struct{}{}
		}
	}
	return &AccountUseCase{
		accounts: p.Accounts,
		orders:   p.Orders,
		ledger:   p.Ledger,
		admins:   admins,
		logger:   p.Logger,
		banned:   make(map[int64]bool),
	}
}

// Register records the user on first contact. The boolean reports a new account.
func (u *AccountUseCase) Register(ctx context.Context, id int64, username string) (*model.Account, bool, error) {
	account, created, err := u.accounts.Register(ctx, id, username)
	if err != nil {
		return nil, false, err
	}
	if created {
		u.logger.Info("account registered", slog.Int64("user_id", id))
	}
	u.remember(id, account.Banned)
	return account, created, nil
}

// Language returns the stored language, English when unknown.
func (u *AccountUseCase) Language(ctx context.Context, id int64) model.Language {
	return languageOf(ctx, u.accounts, id)
}

func (u *AccountUseCase) SetLanguage(ctx context.Context, id int64, lang model.Language) error {
	return u.accounts.SetLanguage(ctx, id, lang)
}

// IsAdmin reports whether id is a configured administrator.
func (u *AccountUseCase) IsAdmin(id int64) bool {
	_, ok := u.admins[id]
	return ok
}

// IsBanned reads through the in-memory ban cache.
func (u *AccountUseCase) IsBanned(ctx context.Context, id int64) (bool, error) {
	u.mu.RLock()
	banned, ok := u.banned[id]
	u.mu.RUnlock()
	if ok {
		return banned, nil
	}

	banned, err := u.accounts.IsBanned(ctx, id)
	if err != nil {
		return false, err
	}
	return u.remember(id, banned), nil
}

// remember caches a value read from the store unless a write already cached a newer one.
func (u *AccountUseCase) remember(id int64, banned bool) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if cached, ok := u.banned[id]; ok {
		return cached
	}
	u.banned[id] = banned
	return banned
}

func (u *AccountUseCase) Ban(ctx context.Context, id int64) error {
	return u.setBanned(ctx, id, true)
}

func (u *AccountUseCase) Unban(ctx context.Context, id int64) error {
	return u.setBanned(ctx, id, false)
}

// setBanned writes the store first; the cache changes only after a successful write.
func (u *AccountUseCase) setBanned(ctx context.Context, id int64, banned bool) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if err := u.accounts.SetBanned(ctx, id, banned); err != nil {
		return err
	}
	u.banned[id] = banned
	u.logger.Info("account ban state changed", slog.Int64("user_id", id), slog.Bool("banned", banned))
	return nil
}

// Banned lists banned account ids in ascending order.
func (u *AccountUseCase) Banned(ctx context.Context) ([]int64, error) {
	return u.accounts.ListBanned(ctx)
}

// Profile summarizes balance and purchases for the buyer.
func (u *AccountUseCase) Profile(ctx context.Context, id int64) (*model.Profile, error) {
	account, err := u.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	balance, err := u.ledger.Balance(ctx, id)
	if err != nil {
		return nil, err
	}
	purchases, err := u.orders.CountDelivered(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.Profile{Account: *account, Balance: balance, Purchases: purchases}, nil
}

// Stats aggregates shop counters for administrators.
func (u *AccountUseCase) Stats(ctx context.Context) (*model.ShopStats, error) {
	users, err := u.accounts.Count(ctx)
	if err != nil {
		return nil, err
	}
	byStatus, revenue, err := u.orders.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &model.ShopStats{Users: users, OrdersByStatus: byStatus, Revenue: revenue}, nil
}

func languageOf(ctx context.Context, accounts repository.AccountRepository, id int64) model.Language {
	account, err := accounts.GetByID(ctx, id)
	if err != nil {
		return model.LanguageEn
	}
	return model.ParseLanguage(string(account.Language))
}
