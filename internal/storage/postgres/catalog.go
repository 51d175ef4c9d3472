package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/digishop/internal/domain/errors"
	"github.com/polkiloo/digishop/internal/domain/model"
)

const productColumns = `id, category_id, title_en, title_ru, desc_en, desc_ru, price::text, kind, active, created_at`

// One fixed statement per editable field.
var productFieldUpdates = map[model.ProductField]string{
	model.FieldPrice:    `UPDATE products SET price=$2 WHERE id=$1`,
	model.FieldTitleEn:  `UPDATE products SET title_en=$2 WHERE id=$1`,
	model.FieldTitleRu:  `UPDATE products SET title_ru=$2 WHERE id=$1`,
	model.FieldDescEn:   `UPDATE products SET desc_en=$2 WHERE id=$1`,
	model.FieldDescRu:   `UPDATE products SET desc_ru=$2 WHERE id=$1`,
	model.FieldActive:   `UPDATE products SET active=$2 WHERE id=$1`,
	model.FieldCategory: `UPDATE products SET category_id=$2 WHERE id=$1`,
}

func scanProduct(row scanner, extra ...any) (*model.Product, error) {
	var (
		p     model.Product
		price string
	)
	dest := append([]any{&p.ID, &p.CategoryID, &p.TitleEn, &p.TitleRu, &p.DescEn, &p.DescRu, &price, &p.Kind, &p.Active, &p.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	amount, err := parseMoney(price)
	if err != nil {
		return nil, err
	}
	p.Price = amount
	return &p, nil
}

func (r *productRepository) Create(ctx context.Context, p model.NewProduct) (*model.Product, error) {
	const query = `INSERT INTO products (category_id, title_en, title_ru, desc_en, desc_ru, price, kind)
                   VALUES ($1, $2, $3, $4, $5, $6, $7)
                   RETURNING ` + productColumns
	return scanProduct(r.storage.pool.QueryRow(ctx, query,
		p.CategoryID, p.TitleEn, p.TitleRu, p.DescEn, p.DescRu, money(p.Price), string(p.Kind),
	))
}

func (r *productRepository) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	const query = `SELECT ` + productColumns + ` FROM products WHERE id=$1`
	product, err := scanProduct(r.storage.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func (r *productRepository) listings(ctx context.Context, query string, args ...any) ([]model.ProductListing, error) {
	rows, err := r.storage.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.ProductListing
	for rows.Next() {
		var stock int
		p, err := scanProduct(rows, &stock)
		if err != nil {
			return nil, err
		}
		result = append(result, model.ProductListing{Product: *p, Stock: stock})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListAvailable returns active products with at least one available unit.
// A nil category lists the whole catalog.
func (r *productRepository) ListAvailable(ctx context.Context, categoryID *int64) ([]model.ProductListing, error) {
	const query = `SELECT p.id, p.category_id, p.title_en, p.title_ru, p.desc_en, p.desc_ru, p.price::text, p.kind, p.active, p.created_at,
                          COUNT(u.id) AS stock
                   FROM products p
                   JOIN inventory_units u ON u.product_id = p.id AND u.state = 'available'
                   WHERE p.active AND ($1::bigint IS NULL OR p.category_id = $1)
                   GROUP BY p.id
                   ORDER BY p.id`
	return r.listings(ctx, query, categoryID)
}

func (r *productRepository) StockReport(ctx context.Context) ([]model.ProductListing, error) {
	const query = `SELECT p.id, p.category_id, p.title_en, p.title_ru, p.desc_en, p.desc_ru, p.price::text, p.kind, p.active, p.created_at,
                          COUNT(u.id) AS stock
                   FROM products p
                   LEFT JOIN inventory_units u ON u.product_id = p.id AND u.state = 'available'
                   GROUP BY p.id
                   ORDER BY p.id`
	return r.listings(ctx, query)
}

func (r *productRepository) Update(ctx context.Context, id int64, u model.ProductUpdate) error {
	query, ok := productFieldUpdates[u.Field]
	if !ok {
		return domainErrors.ErrInvalidField
	}

	var value any
	switch u.Field {
	case model.FieldPrice:
		value = money(u.Price)
	case model.FieldActive:
		value = u.Active
	case model.FieldCategory:
		value = u.Category
	default:
		value = u.Text
	}

	tag, err := r.storage.pool.Exec(ctx, query, id, value)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrProductNotFound
	}
	return nil
}

func (r *categoryRepository) Create(ctx context.Context, c model.Category) (*model.Category, error) {
	const query = `INSERT INTO categories (title_en, title_ru, sort_order, active)
                   VALUES ($1, $2, $3, TRUE)
                   RETURNING id, title_en, title_ru, sort_order, active`
	var created model.Category
	err := r.storage.pool.QueryRow(ctx, query, c.TitleEn, c.TitleRu, c.SortOrder).
		Scan(&created.ID, &created.TitleEn, &created.TitleRu, &created.SortOrder, &created.Active)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *categoryRepository) ListActive(ctx context.Context) ([]model.Category, error) {
	const query = `SELECT id, title_en, title_ru, sort_order, active FROM categories
                   WHERE active
                   ORDER BY sort_order, id`
	rows, err := r.storage.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.TitleEn, &c.TitleRu, &c.SortOrder, &c.Active); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
