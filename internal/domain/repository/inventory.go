package repository

import (
	"context"

	"github.com/polkiloo/digishop/internal/domain/model"
)

// InventoryRepository manages discrete stock units.
// Reserve, Release and Consume are single conditional updates safe under concurrent callers.
type InventoryRepository interface {
	Reserve(ctx context.Context, productID int64) (*model.InventoryUnit, error)
	Release(ctx context.Context, unitID int64) error
	Consume(ctx context.Context, unitID int64) error
	GetByID(ctx context.Context, unitID int64) (*model.InventoryUnit, error)
	CountAvailable(ctx context.Context, productID int64) (int, error)
	AddUnits(ctx context.Context, productID int64, kind model.DeliveryKind, payloads []string) (int, error)
}
