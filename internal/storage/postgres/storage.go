package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/polkiloo/digishop/internal/domain/repository"
)

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type scanner interface {
	Scan(dest ...any) error
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (pgxPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool   pgxPool
	logger *slog.Logger
}

type accountRepository struct {
	storage *Storage
}

type favoriteRepository struct {
	storage *Storage
}

type categoryRepository struct {
	storage *Storage
}

type productRepository struct {
	storage *Storage
}

type inventoryRepository struct {
	storage *Storage
}

type balanceRepository struct {
	storage *Storage
}

type orderRepository struct {
	storage *Storage
}

type topupRepository struct {
	storage *Storage
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Factory methods for domain repositories.
func (s *Storage) Accounts() repository.AccountRepository {
	return &accountRepository{storage: s}
}

func (s *Storage) Favorites() repository.FavoriteRepository {
	return &favoriteRepository{storage: s}
}

func (s *Storage) Categories() repository.CategoryRepository {
	return &categoryRepository{storage: s}
}

func (s *Storage) Products() repository.ProductRepository {
	return &productRepository{storage: s}
}

func (s *Storage) Inventory() repository.InventoryRepository {
	return &inventoryRepository{storage: s}
}

func (s *Storage) Balances() repository.BalanceRepository {
	return &balanceRepository{storage: s}
}

func (s *Storage) Orders() repository.OrderRepository {
	return &orderRepository{storage: s}
}

func (s *Storage) Topups() repository.TopupRepository {
	return &topupRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
            id BIGINT PRIMARY KEY,
            username TEXT NOT NULL DEFAULT '',
            language TEXT NOT NULL DEFAULT 'en',
            banned BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS categories (
            id BIGSERIAL PRIMARY KEY,
            title_en TEXT NOT NULL,
            title_ru TEXT NOT NULL DEFAULT '',
            sort_order INT NOT NULL DEFAULT 0,
            active BOOLEAN NOT NULL DEFAULT TRUE
        )`,
		`CREATE TABLE IF NOT EXISTS products (
            id BIGSERIAL PRIMARY KEY,
            category_id BIGINT REFERENCES categories(id),
            title_en TEXT NOT NULL,
            title_ru TEXT NOT NULL DEFAULT '',
            desc_en TEXT NOT NULL DEFAULT '',
            desc_ru TEXT NOT NULL DEFAULT '',
            price NUMERIC(12,2) NOT NULL CHECK (price > 0),
            kind TEXT NOT NULL CHECK (kind IN ('link', 'file', 'code')),
            active BOOLEAN NOT NULL DEFAULT TRUE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS inventory_units (
            id BIGSERIAL PRIMARY KEY,
            product_id BIGINT NOT NULL REFERENCES products(id),
            kind TEXT NOT NULL,
            payload TEXT NOT NULL,
            state TEXT NOT NULL DEFAULT 'available' CHECK (state IN ('available', 'reserved', 'sold')),
            reserved_at TIMESTAMPTZ,
            sold_at TIMESTAMPTZ
        )`,
		`CREATE TABLE IF NOT EXISTS balances (
            user_id BIGINT PRIMARY KEY,
            amount NUMERIC(12,2) NOT NULL DEFAULT 0 CHECK (amount >= 0)
        )`,
		`CREATE TABLE IF NOT EXISTS orders (
            id BIGSERIAL PRIMARY KEY,
            user_id BIGINT NOT NULL,
            product_id BIGINT NOT NULL REFERENCES products(id),
            unit_id BIGINT REFERENCES inventory_units(id),
            invoice_id BIGINT UNIQUE,
            pay_url TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL CHECK (status IN ('pending', 'paid', 'delivered', 'canceled')),
            price NUMERIC(12,2) NOT NULL,
            used_balance NUMERIC(12,2) NOT NULL DEFAULT 0,
            need_crypto NUMERIC(12,2) NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            paid_amount NUMERIC,
            paid_asset TEXT,
            paid_at TIMESTAMPTZ,
            delivered_kind TEXT,
            delivered_ref TEXT,
            delivered_at TIMESTAMPTZ,
            delivery_claimed_at TIMESTAMPTZ,
            CHECK (used_balance + need_crypto = price)
        )`,
		`CREATE TABLE IF NOT EXISTS topups (
            id BIGSERIAL PRIMARY KEY,
            user_id BIGINT NOT NULL,
            invoice_id BIGINT UNIQUE NOT NULL,
            amount NUMERIC(12,2) NOT NULL CHECK (amount > 0),
            status TEXT NOT NULL CHECK (status IN ('pending', 'paid', 'expired')),
            pay_url TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            paid_at TIMESTAMPTZ
        )`,
		`CREATE TABLE IF NOT EXISTS favorites (
            user_id BIGINT NOT NULL,
            product_id BIGINT NOT NULL REFERENCES products(id),
            PRIMARY KEY (user_id, product_id)
        )`,
		`CREATE TABLE IF NOT EXISTS admin_adjustments (
            id BIGSERIAL PRIMARY KEY,
            admin_id BIGINT NOT NULL,
            user_id BIGINT NOT NULL,
            amount NUMERIC(12,2) NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		// paid_amount is in the paid asset and keeps its full precision.
		`ALTER TABLE orders ALTER COLUMN paid_amount TYPE NUMERIC`,
		`ALTER TABLE topups DROP CONSTRAINT IF EXISTS topups_status_check`,
		`ALTER TABLE topups ADD CONSTRAINT topups_status_check CHECK (status IN ('pending', 'paid', 'expired'))`,
		`CREATE INDEX IF NOT EXISTS idx_units_available ON inventory_units(product_id, id) WHERE state = 'available'`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_unit_active ON orders(unit_id) WHERE status <> 'canceled'`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_topups_user ON topups(user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_topups_pending ON topups(created_at DESC) WHERE status = 'pending'`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Logger returns storage logger.
func (s *Storage) Logger() *slog.Logger {
	return s.logger
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func parseMoney(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	return d, nil
}

func parseOptionalMoney(raw *string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	d, err := parseMoney(*raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
