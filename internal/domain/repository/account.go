package repository

import (
	"context"

	"github.com/polkiloo/digishop/internal/domain/model"
)

// AccountRepository describes persistence operations for chat accounts.
type AccountRepository interface {
	Register(ctx context.Context, id int64, username string) (*model.Account, bool, error)
	GetByID(ctx context.Context, id int64) (*model.Account, error)
	SetLanguage(ctx context.Context, id int64, lang model.Language) error
	SetBanned(ctx context.Context, id int64, banned bool) error
	IsBanned(ctx context.Context, id int64) (bool, error)
	Count(ctx context.Context) (int, error)
	// ListActive returns accounts that are not banned, ordered by id.
	ListActive(ctx context.Context) ([]model.Account, error)
	ListBanned(ctx context.Context) ([]int64, error)
}

// FavoriteRepository stores products a buyer wants restock notifications for.
type FavoriteRepository interface {
	Toggle(ctx context.Context, userID, productID int64) (bool, error)
	Subscribers(ctx context.Context, productID int64) ([]int64, error)
}
