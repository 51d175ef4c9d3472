package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/digishop/internal/domain/errors"
	"github.com/polkiloo/digishop/internal/domain/model"
)

const orderColumns = `id, user_id, product_id, unit_id, invoice_id, pay_url, status,
    price::text, used_balance::text, need_crypto::text, created_at,
    paid_amount::text, paid_asset, paid_at,
    delivered_kind, delivered_ref, delivered_at, delivery_claimed_at`

func scanOrder(row scanner) (*model.Order, error) {
	var (
		o                              model.Order
		price, usedBalance, needCrypto string
		paidAmount, paidAsset          *string
		paidAt, deliveredAt            *time.Time
		deliveredKind, deliveredRef    *string
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.ProductID, &o.UnitID, &o.InvoiceID, &o.PayURL, &o.Status,
		&price, &usedBalance, &needCrypto, &o.CreatedAt,
		&paidAmount, &paidAsset, &paidAt,
		&deliveredKind, &deliveredRef, &deliveredAt, &o.DeliveryClaimedAt,
	)
	if err != nil {
		return nil, err
	}

	if o.Price, err = parseMoney(price); err != nil {
		return nil, err
	}
	if o.UsedBalance, err = parseMoney(usedBalance); err != nil {
		return nil, err
	}
	if o.NeedCrypto, err = parseMoney(needCrypto); err != nil {
		return nil, err
	}

	amount, err := parseOptionalMoney(paidAmount)
	if err != nil {
		return nil, err
	}
	if amount != nil && paidAt != nil {
		p := &model.Payment{Amount: *amount, PaidAt: *paidAt}
		if paidAsset != nil {
			p.Asset = *paidAsset
		}
		o.Payment = p
	}

	if deliveredAt != nil {
		d := &model.Delivery{DeliveredAt: *deliveredAt}
		if deliveredKind != nil {
			d.Kind = model.DeliveryKind(*deliveredKind)
		}
		if deliveredRef != nil {
			d.Ref = *deliveredRef
		}
		o.Delivery = d
	}
	return &o, nil
}

func collectOrders(rows pgx.Rows) ([]model.Order, error) {
	defer rows.Close()

	var result []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *orderRepository) Create(ctx context.Context, o model.NewOrder) (*model.Order, error) {
	const query = `INSERT INTO orders (user_id, product_id, unit_id, invoice_id, pay_url, status,
                       price, used_balance, need_crypto, paid_amount, paid_asset, paid_at)
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
                   RETURNING ` + orderColumns
	var (
		paidAmount, paidAsset *string
		paidAt                *time.Time
	)
	if o.Payment != nil {
		amount := money(o.Payment.Amount)
		paidAmount = &amount
		paidAsset = &o.Payment.Asset
		paidAt = &o.Payment.PaidAt
	}
	return scanOrder(r.storage.pool.QueryRow(ctx, query,
		o.UserID, o.ProductID, o.UnitID, o.InvoiceID, o.PayURL, string(o.Status),
		money(o.Price), money(o.UsedBalance), money(o.NeedCrypto), paidAmount, paidAsset, paidAt,
	))
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE id=$1`
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetByInvoice(ctx context.Context, invoiceID int64) (*model.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE invoice_id=$1`
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, query, invoiceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) MarkPaid(ctx context.Context, id int64, p model.Payment) (bool, error) {
	const query = `UPDATE orders SET status='paid', paid_amount=$2, paid_asset=$3, paid_at=$4
                   WHERE id=$1 AND status='pending'`
	tag, err := r.storage.pool.Exec(ctx, query, id, p.Amount.String(), p.Asset, p.PaidAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *orderRepository) Cancel(ctx context.Context, id int64) (*model.Order, bool, error) {
	const cancelQuery = `UPDATE orders SET status='canceled'
                         WHERE id=$1 AND status='pending'
                         RETURNING ` + orderColumns

	var canceled *model.Order
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		order, err := scanOrder(tx.QueryRow(ctx, cancelQuery, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		if order.UnitID != nil {
			if err := releaseWith(ctx, tx, *order.UnitID); err != nil {
				return err
			}
		}
		if order.UsedBalance.IsPositive() {
			if _, err := creditWith(ctx, tx, order.UserID, order.UsedBalance); err != nil {
				return err
			}
		}
		canceled = order
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return canceled, canceled != nil, nil
}

func (r *orderRepository) ClaimDelivery(ctx context.Context, id int64, staleBefore time.Time) (bool, error) {
	const query = `UPDATE orders SET delivery_claimed_at=NOW()
                   WHERE id=$1 AND status='paid'
                     AND (delivery_claimed_at IS NULL OR delivery_claimed_at < $2)`
	tag, err := r.storage.pool.Exec(ctx, query, id, staleBefore)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *orderRepository) ReleaseDeliveryClaim(ctx context.Context, id int64) error {
	const query = `UPDATE orders SET delivery_claimed_at=NULL WHERE id=$1 AND status='paid'`
	_, err := r.storage.pool.Exec(ctx, query, id)
	return err
}

func (r *orderRepository) HoldDeliveryClaim(ctx context.Context, id int64) error {
	const query = `UPDATE orders SET delivery_claimed_at='9999-12-31T00:00:00Z' WHERE id=$1 AND status='paid'`
	_, err := r.storage.pool.Exec(ctx, query, id)
	return err
}

func (r *orderRepository) MarkDelivered(ctx context.Context, id int64, d model.Delivery) (bool, error) {
	const deliverQuery = `UPDATE orders
                          SET status='delivered', delivered_kind=$2, delivered_ref=$3, delivered_at=$4, delivery_claimed_at=NULL
                          WHERE id=$1 AND status='paid'
                          RETURNING unit_id`

	delivered := false
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		var unitID *int64
		err := tx.QueryRow(ctx, deliverQuery, id, string(d.Kind), d.Ref, d.DeliveredAt).Scan(&unitID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		if unitID != nil {
			if err := consumeWith(ctx, tx, *unitID); err != nil {
				return err
			}
		}
		delivered = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return delivered, nil
}

func (r *orderRepository) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders
                   WHERE status='pending' AND created_at < $1
                   ORDER BY created_at
                   LIMIT $2`
	rows, err := r.storage.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (r *orderRepository) ListPendingWithInvoice(ctx context.Context, limit int) ([]model.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders
                   WHERE status='pending' AND invoice_id IS NOT NULL
                   ORDER BY created_at
                   LIMIT $1`
	rows, err := r.storage.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (r *orderRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]model.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders
                   WHERE user_id=$1
                   ORDER BY created_at DESC
                   LIMIT $2`
	rows, err := r.storage.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (r *orderRepository) ListRecent(ctx context.Context, limit int) ([]model.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC LIMIT $1`
	rows, err := r.storage.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (r *orderRepository) CountDelivered(ctx context.Context, userID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM orders WHERE user_id=$1 AND status='delivered'`
	var n int
	if err := r.storage.pool.QueryRow(ctx, query, userID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *orderRepository) Stats(ctx context.Context) (map[model.OrderStatus]int, decimal.Decimal, error) {
	const countQuery = `SELECT status, COUNT(*) FROM orders GROUP BY status`
	const revenueQuery = `SELECT COALESCE(SUM(price), 0)::text FROM orders WHERE status IN ('paid', 'delivered')`

	rows, err := r.storage.pool.Query(ctx, countQuery)
	if err != nil {
		return nil, decimal.Zero, err
	}
	defer rows.Close()

	counts := make(map[model.OrderStatus]int)
	for rows.Next() {
		var (
			status model.OrderStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, decimal.Zero, err
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, decimal.Zero, err
	}

	var raw string
	if err := r.storage.pool.QueryRow(ctx, revenueQuery).Scan(&raw); err != nil {
		return nil, decimal.Zero, err
	}
	revenue, err := parseMoney(raw)
	if err != nil {
		return nil, decimal.Zero, err
	}
	return counts, revenue, nil
}
