package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/digishop/internal/domain/errors"
	"github.com/polkiloo/digishop/internal/domain/model"
)

func creditWith(ctx context.Context, q querier, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	const query = `INSERT INTO balances (user_id, amount) VALUES ($1, $2)
                   ON CONFLICT (user_id) DO UPDATE SET amount = balances.amount + EXCLUDED.amount
                   RETURNING amount::text`
	var raw string
	if err := q.QueryRow(ctx, query, userID, money(amount)).Scan(&raw); err != nil {
		return decimal.Zero, err
	}
	return parseMoney(raw)
}

func (r *balanceRepository) Get(ctx context.Context, userID int64) (decimal.Decimal, error) {
	const query = `SELECT amount::text FROM balances WHERE user_id=$1`
	var raw string
	err := r.storage.pool.QueryRow(ctx, query, userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return parseMoney(raw)
}

func (r *balanceRepository) Credit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	return creditWith(ctx, r.storage.pool, userID, amount)
}

// Debit subtracts amount only when the balance covers it.
func (r *balanceRepository) Debit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	const query = `UPDATE balances SET amount = amount - $2
                   WHERE user_id=$1 AND amount >= $2
                   RETURNING amount::text`
	var raw string
	err := r.storage.pool.QueryRow(ctx, query, userID, money(amount)).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, domainErrors.ErrInsufficientFunds
		}
		return decimal.Zero, err
	}
	return parseMoney(raw)
}

func (r *balanceRepository) AdminCredit(ctx context.Context, adj model.AdminAdjustment) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		const insertAdjustment = `INSERT INTO admin_adjustments (admin_id, user_id, amount) VALUES ($1, $2, $3)`
		if _, err := tx.Exec(ctx, insertAdjustment, adj.AdminID, adj.UserID, money(adj.Amount)); err != nil {
			return err
		}
		var err error
		balance, err = creditWith(ctx, tx, adj.UserID, adj.Amount)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}
