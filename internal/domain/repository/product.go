package repository

import (
	"context"

	"github.com/polkiloo/digishop/internal/domain/model"
)

// ProductRepository describes catalog persistence.
type ProductRepository interface {
	Create(ctx context.Context, p model.NewProduct) (*model.Product, error)
	GetByID(ctx context.Context, id int64) (*model.Product, error)
	ListAvailable(ctx context.Context, categoryID *int64) ([]model.ProductListing, error)
	StockReport(ctx context.Context) ([]model.ProductListing, error)
	Update(ctx context.Context, id int64, u model.ProductUpdate) error
}

// CategoryRepository describes catalog grouping persistence.
type CategoryRepository interface {
	Create(ctx context.Context, c model.Category) (*model.Category, error)
	ListActive(ctx context.Context) ([]model.Category, error)
}
