package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/digishop/internal/domain/errors"
	"github.com/polkiloo/digishop/internal/domain/model"
)

const unitColumns = `id, product_id, kind, payload, state, reserved_at, sold_at`

func scanUnit(row scanner) (*model.InventoryUnit, error) {
	var u model.InventoryUnit
	if err := row.Scan(&u.ID, &u.ProductID, &u.Kind, &u.Payload, &u.State, &u.ReservedAt, &u.SoldAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// Reserve claims the lowest available unit in a single statement.
func (r *inventoryRepository) Reserve(ctx context.Context, productID int64) (*model.InventoryUnit, error) {
	const query = `UPDATE inventory_units SET state='reserved', reserved_at=NOW()
                   WHERE state='available' AND id = (
                       SELECT id FROM inventory_units
                       WHERE product_id=$1 AND state='available'
                       ORDER BY id
                       LIMIT 1
                       FOR UPDATE SKIP LOCKED
                   )
                   RETURNING ` + unitColumns
	unit, err := scanUnit(r.storage.pool.QueryRow(ctx, query, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrOutOfStock
		}
		return nil, err
	}
	return unit, nil
}

func releaseWith(ctx context.Context, q querier, unitID int64) error {
	const query = `UPDATE inventory_units SET state='available', reserved_at=NULL WHERE id=$1 AND state='reserved'`
	_, err := q.Exec(ctx, query, unitID)
	return err
}

// Release returns a reserved unit to sale. Units in any other state are left untouched.
func (r *inventoryRepository) Release(ctx context.Context, unitID int64) error {
	return releaseWith(ctx, r.storage.pool, unitID)
}

func consumeWith(ctx context.Context, q querier, unitID int64) error {
	const query = `UPDATE inventory_units SET state='sold', sold_at=NOW() WHERE id=$1 AND state='reserved'`
	tag, err := q.Exec(ctx, query, unitID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("consume unit %d: %w", unitID, domainErrors.ErrInvalidTransition)
	}
	return nil
}

func (r *inventoryRepository) Consume(ctx context.Context, unitID int64) error {
	return consumeWith(ctx, r.storage.pool, unitID)
}

func (r *inventoryRepository) GetByID(ctx context.Context, unitID int64) (*model.InventoryUnit, error) {
	const query = `SELECT ` + unitColumns + ` FROM inventory_units WHERE id=$1`
	unit, err := scanUnit(r.storage.pool.QueryRow(ctx, query, unitID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return unit, nil
}

func (r *inventoryRepository) CountAvailable(ctx context.Context, productID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM inventory_units WHERE product_id=$1 AND state='available'`
	var n int
	if err := r.storage.pool.QueryRow(ctx, query, productID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *inventoryRepository) AddUnits(ctx context.Context, productID int64, kind model.DeliveryKind, payloads []string) (int, error) {
	const query = `INSERT INTO inventory_units (product_id, kind, payload) VALUES ($1, $2, $3)`
	added := 0
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		for _, payload := range payloads {
			if _, err := tx.Exec(ctx, query, productID, string(kind), payload); err != nil {
				return err
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}
