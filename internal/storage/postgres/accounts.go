package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/digishop/internal/domain/errors"
	"github.com/polkiloo/digishop/internal/domain/model"
)

const accountColumns = `id, username, language, banned, created_at`

func scanAccount(row scanner) (*model.Account, error) {
	var a model.Account
	if err := row.Scan(&a.ID, &a.Username, &a.Language, &a.Banned, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// Register creates the account on first contact and refreshes the username afterwards.
// The boolean reports whether the row was inserted.
func (r *accountRepository) Register(ctx context.Context, id int64, username string) (*model.Account, bool, error) {
	const query = `INSERT INTO accounts (id, username) VALUES ($1, $2)
                   ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username
                   RETURNING ` + accountColumns + `, (xmax = 0) AS inserted`
	var (
		a        model.Account
		inserted bool
	)
	err := r.storage.pool.QueryRow(ctx, query, id, username).
		Scan(&a.ID, &a.Username, &a.Language, &a.Banned, &a.CreatedAt, &inserted)
	if err != nil {
		return nil, false, err
	}
	return &a, inserted, nil
}

func (r *accountRepository) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE id=$1`
	account, err := scanAccount(r.storage.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return account, nil
}

func (r *accountRepository) SetLanguage(ctx context.Context, id int64, lang model.Language) error {
	const query = `UPDATE accounts SET language=$2 WHERE id=$1`
	tag, err := r.storage.pool.Exec(ctx, query, id, string(lang))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

// SetBanned works for users who never opened the bot as well.
func (r *accountRepository) SetBanned(ctx context.Context, id int64, banned bool) error {
	const query = `INSERT INTO accounts (id, banned) VALUES ($1, $2)
                   ON CONFLICT (id) DO UPDATE SET banned = EXCLUDED.banned`
	_, err := r.storage.pool.Exec(ctx, query, id, banned)
	return err
}

func (r *accountRepository) IsBanned(ctx context.Context, id int64) (bool, error) {
	const query = `SELECT banned FROM accounts WHERE id=$1`
	var banned bool
	err := r.storage.pool.QueryRow(ctx, query, id).Scan(&banned)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return banned, nil
}

func (r *accountRepository) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM accounts`
	var n int
	if err := r.storage.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *accountRepository) ListActive(ctx context.Context) ([]model.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE banned = FALSE ORDER BY id`
	rows, err := r.storage.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *accountRepository) ListBanned(ctx context.Context) ([]int64, error) {
	const query = `SELECT id FROM accounts WHERE banned = TRUE ORDER BY id`
	rows, err := r.storage.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// Toggle adds the favorite when absent and removes it otherwise.
// The boolean reports whether the product is a favorite after the call.
func (r *favoriteRepository) Toggle(ctx context.Context, userID, productID int64) (bool, error) {
	const deleteQuery = `DELETE FROM favorites WHERE user_id=$1 AND product_id=$2`
	const insertQuery = `INSERT INTO favorites (user_id, product_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`

	added := false
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, deleteQuery, userID, productID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() > 0 {
			return nil
		}
		if _, err := tx.Exec(ctx, insertQuery, userID, productID); err != nil {
			return err
		}
		added = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return added, nil
}

func (r *favoriteRepository) Subscribers(ctx context.Context, productID int64) ([]int64, error) {
	const query = `SELECT f.user_id FROM favorites f
                   LEFT JOIN accounts a ON a.id = f.user_id
                   WHERE f.product_id=$1 AND COALESCE(a.banned, FALSE) = FALSE
                   ORDER BY f.user_id`
	rows, err := r.storage.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
