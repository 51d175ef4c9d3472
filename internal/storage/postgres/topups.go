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

const topupColumns = `id, user_id, invoice_id, amount::text, status, pay_url, created_at, paid_at`

func scanTopup(row scanner) (*model.Topup, error) {
	var (
		t   model.Topup
		raw string
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.InvoiceID, &raw, &t.Status, &t.PayURL, &t.CreatedAt, &t.PaidAt); err != nil {
		return nil, err
	}
	amount, err := parseMoney(raw)
	if err != nil {
		return nil, err
	}
	t.Amount = amount
	return &t, nil
}

func collectTopups(rows pgx.Rows) ([]model.Topup, error) {
	defer rows.Close()

	var result []model.Topup
	for rows.Next() {
		t, err := scanTopup(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *topupRepository) Create(ctx context.Context, t model.Topup) (*model.Topup, error) {
	const query = `INSERT INTO topups (user_id, invoice_id, amount, status, pay_url)
                   VALUES ($1, $2, $3, 'pending', $4)
                   RETURNING ` + topupColumns
	return scanTopup(r.storage.pool.QueryRow(ctx, query, t.UserID, t.InvoiceID, money(t.Amount), t.PayURL))
}

func (r *topupRepository) GetByInvoice(ctx context.Context, invoiceID int64) (*model.Topup, error) {
	const query = `SELECT ` + topupColumns + ` FROM topups WHERE invoice_id=$1`
	topup, err := scanTopup(r.storage.pool.QueryRow(ctx, query, invoiceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrTopupNotFound
		}
		return nil, err
	}
	return topup, nil
}

func (r *topupRepository) MarkPaid(ctx context.Context, invoiceID int64, paidAt time.Time) (*model.Topup, decimal.Decimal, bool, error) {
	const query = `UPDATE topups SET status='paid', paid_at=$2
                   WHERE invoice_id=$1 AND status='pending'
                   RETURNING ` + topupColumns

	var (
		paid    *model.Topup
		balance decimal.Decimal
	)
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		topup, err := scanTopup(tx.QueryRow(ctx, query, invoiceID, paidAt))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		balance, err = creditWith(ctx, tx, topup.UserID, topup.Amount)
		if err != nil {
			return err
		}
		paid = topup
		return nil
	})
	if err != nil {
		return nil, decimal.Zero, false, err
	}
	return paid, balance, paid != nil, nil
}

func (r *topupRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]model.Topup, error) {
	const query = `SELECT ` + topupColumns + ` FROM topups
                   WHERE user_id=$1
                   ORDER BY created_at DESC
                   LIMIT $2`
	rows, err := r.storage.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	return collectTopups(rows)
}

// MarkExpired closes a pending topup whose invoice can no longer be paid.
func (r *topupRepository) MarkExpired(ctx context.Context, invoiceID int64) (bool, error) {
	const query = `UPDATE topups SET status='expired' WHERE invoice_id=$1 AND status='pending'`
	tag, err := r.storage.pool.Exec(ctx, query, invoiceID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListPending returns the newest pending topups first, so abandoned ones never hide fresh payments.
func (r *topupRepository) ListPending(ctx context.Context, limit int) ([]model.Topup, error) {
	const query = `SELECT ` + topupColumns + ` FROM topups
                   WHERE status='pending'
                   ORDER BY created_at DESC, id DESC
                   LIMIT $1`
	rows, err := r.storage.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return collectTopups(rows)
}
