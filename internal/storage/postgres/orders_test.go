package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmockv3 "github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/digishop/internal/domain/errors"
	"github.com/polkiloo/digishop/internal/domain/model"
)

var orderColumnNames = []string{
	"id", "user_id", "product_id", "unit_id", "invoice_id", "pay_url", "status",
	"price", "used_balance", "need_crypto", "created_at",
	"paid_amount", "paid_asset", "paid_at",
	"delivered_kind", "delivered_ref", "delivered_at", "delivery_claimed_at",
}

func int64Ptr(v int64) *int64 { return &v }

func strPtr(v string) *string { return &v }

func pendingOrderRows(id int64, unitID *int64, invoiceID *int64, usedBalance string) *pgxmockv3.Rows {
	return pgxmockv3.NewRows(orderColumnNames).AddRow(
		id, int64(7), int64(3), unitID, invoiceID, "https://pay", model.OrderStatusPending,
		"10.00", usedBalance, "4.00", time.Now(),
		nil, nil, nil,
		nil, nil, nil, nil,
	)
}

func TestOrderRepositoryCreate(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}

	paidAt := time.Now()
	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(int64(7), int64(3), int64(11), (*int64)(nil), "", string(model.OrderStatusPaid),
			"10.00", "10.00", "0.00", strPtr("10.00"), strPtr(model.BalanceAsset), &paidAt).
		WillReturnRows(pgxmockv3.NewRows(orderColumnNames).AddRow(
			int64(1), int64(7), int64(3), int64Ptr(11), nil, "", model.OrderStatusPaid,
			"10.00", "10.00", "0.00", paidAt,
			strPtr("10.00"), strPtr(model.BalanceAsset), &paidAt,
			nil, nil, nil, nil,
		))

	order, err := repo.Create(context.Background(), model.NewOrder{
		UserID:      7,
		ProductID:   3,
		UnitID:      11,
		Status:      model.OrderStatusPaid,
		Price:       decimal.RequireFromString("10"),
		UsedBalance: decimal.RequireFromString("10"),
		NeedCrypto:  decimal.Zero,
		Payment:     &model.Payment{Amount: decimal.RequireFromString("10"), Asset: model.BalanceAsset, PaidAt: paidAt},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.ID != 1 || order.Status != model.OrderStatusPaid || order.Payment == nil || order.Payment.Asset != model.BalanceAsset {
		t.Fatalf("unexpected order: %+v", order)
	}
	if order.UnitID == nil || *order.UnitID != 11 {
		t.Fatalf("expected unit binding, got %v", order.UnitID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestOrderRepositoryGet(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}

	mock.ExpectQuery("FROM orders WHERE id=").WithArgs(int64(1)).
		WillReturnRows(pendingOrderRows(1, int64Ptr(11), int64Ptr(500), "6.00"))
	order, err := repo.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !order.UsedBalance.Equal(decimal.RequireFromString("6")) || order.Payment != nil || order.Delivery != nil {
		t.Fatalf("unexpected order: %+v", order)
	}

	mock.ExpectQuery("FROM orders WHERE id=").WithArgs(int64(2)).WillReturnError(pgx.ErrNoRows)
	if _, err := repo.GetByID(context.Background(), 2); !errors.Is(err, domainErrors.ErrOrderNotFound) {
		t.Fatalf("expected order not found, got %v", err)
	}

	mock.ExpectQuery("FROM orders WHERE invoice_id=").WithArgs(int64(500)).
		WillReturnRows(pendingOrderRows(1, int64Ptr(11), int64Ptr(500), "6.00"))
	if _, err := repo.GetByInvoice(context.Background(), 500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mock.ExpectQuery("FROM orders WHERE invoice_id=").WithArgs(int64(501)).WillReturnError(pgx.ErrNoRows)
	if _, err := repo.GetByInvoice(context.Background(), 501); !errors.Is(err, domainErrors.ErrOrderNotFound) {
		t.Fatalf("expected order not found, got %v", err)
	}

	mock.ExpectQuery("FROM orders WHERE invoice_id=").WithArgs(int64(502)).WillReturnError(errors.New("boom"))
	if _, err := repo.GetByInvoice(context.Background(), 502); err == nil || errors.Is(err, domainErrors.ErrOrderNotFound) {
		t.Fatalf("expected raw error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestOrderRepositoryMarkPaid(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}

	paidAt := time.Now()
	payment := model.Payment{Amount: decimal.RequireFromString("4"), Asset: "USDT", PaidAt: paidAt}

	mock.ExpectExec("UPDATE orders SET status='paid'").WithArgs(int64(1), "4", "USDT", paidAt).
		WillReturnResult(pgxmockv3.NewResult("UPDATE", 1))
	ok, err := repo.MarkPaid(context.Background(), 1, payment)
	if err != nil || !ok {
		t.Fatalf("expected transition, got ok=%v err=%v", ok, err)
	}

	mock.ExpectExec("UPDATE orders SET status='paid'").WithArgs(int64(1), "4", "USDT", paidAt).
		WillReturnResult(pgxmockv3.NewResult("UPDATE", 0))
	ok, err = repo.MarkPaid(context.Background(), 1, payment)
	if err != nil || ok {
		t.Fatalf("expected no transition, got ok=%v err=%v", ok, err)
	}

	mock.ExpectExec("UPDATE orders SET status='paid'").WithArgs(int64(1), "4", "USDT", paidAt).
		WillReturnError(errors.New("fail"))
	if _, err := repo.MarkPaid(context.Background(), 1, payment); err == nil {
		t.Fatal("expected error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestOrderRepositoryMarkPaidKeepsCryptoPrecision(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}

	paidAt := time.Now()
	payment := model.Payment{Amount: decimal.RequireFromString("0.00015731"), Asset: "BTC", PaidAt: paidAt}

	mock.ExpectExec("UPDATE orders SET status='paid'").WithArgs(int64(1), "0.00015731", "BTC", paidAt).
		WillReturnResult(pgxmockv3.NewResult("UPDATE", 1))
	if ok, err := repo.MarkPaid(context.Background(), 1, payment); err != nil || !ok {
		t.Fatalf("expected transition, got ok=%v err=%v", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestOrderRepositoryCancel(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}

	t.Run("releases unit and refunds balance", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE orders SET status='canceled'").WithArgs(int64(1)).
			WillReturnRows(pendingOrderRows(1, int64Ptr(11), int64Ptr(500), "6.00"))
		mock.ExpectExec("UPDATE inventory_units SET state='available'").WithArgs(int64(11)).
			WillReturnResult(pgxmockv3.NewResult("UPDATE", 1))
		mock.ExpectQuery("INSERT INTO balances").WithArgs(int64(7), "6.00").
			WillReturnRows(pgxmockv3.NewRows([]string{"amount"}).AddRow("6.00"))
		mock.ExpectCommit()

		order, ok, err := repo.Cancel(context.Background(), 1)
		if err != nil || !ok || order.ID != 1 {
			t.Fatalf("unexpected result: order=%+v ok=%v err=%v", order, ok, err)
		}
	})

	t.Run("no refund without used balance", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE orders SET status='canceled'").WithArgs(int64(2)).
			WillReturnRows(pendingOrderRows(2, int64Ptr(12), int64Ptr(501), "0.00"))
		mock.ExpectExec("UPDATE inventory_units SET state='available'").WithArgs(int64(12)).
			WillReturnResult(pgxmockv3.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		if _, ok, err := repo.Cancel(context.Background(), 2); err != nil || !ok {
			t.Fatalf("unexpected result: ok=%v err=%v", ok, err)
		}
	})

	t.Run("not pending", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE orders SET status='canceled'").WithArgs(int64(3)).WillReturnError(pgx.ErrNoRows)
		mock.ExpectCommit()

		order, ok, err := repo.Cancel(context.Background(), 3)
		if err != nil || ok || order != nil {
			t.Fatalf("unexpected result: order=%+v ok=%v err=%v", order, ok, err)
		}
	})

	t.Run("refund failure rolls back", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE orders SET status='canceled'").WithArgs(int64(4)).
			WillReturnRows(pendingOrderRows(4, int64Ptr(14), int64Ptr(502), "6.00"))
		mock.ExpectExec("UPDATE inventory_units SET state='available'").WithArgs(int64(14)).
			WillReturnResult(pgxmockv3.NewResult("UPDATE", 1))
		mock.ExpectQuery("INSERT INTO balances").WithArgs(int64(7), "6.00").WillReturnError(errors.New("credit"))
		mock.ExpectRollback()

		if _, _, err := repo.Cancel(context.Background(), 4); err == nil {
			t.Fatal("expected error")
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestOrderRepositoryDeliveryClaim(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}

	staleBefore := time.Now().Add(-time.Minute)
	mock.ExpectExec("UPDATE orders SET delivery_claimed_at=NOW").WithArgs(int64(1), staleBefore).
		WillReturnResult(pgxmockv3.NewResult("UPDATE", 1))
	if ok, err := repo.ClaimDelivery(context.Background(), 1, staleBefore); err != nil || !ok {
		t.Fatalf("expected claim, got ok=%v err=%v", ok, err)
	}

	mock.ExpectExec("UPDATE orders SET delivery_claimed_at=NOW").WithArgs(int64(1), staleBefore).
		WillReturnResult(pgxmockv3.NewResult("UPDATE", 0))
	if ok, err := repo.ClaimDelivery(context.Background(), 1, staleBefore); err != nil || ok {
		t.Fatalf("expected claim refused, got ok=%v err=%v", ok, err)
	}

	mock.ExpectExec("UPDATE orders SET delivery_claimed_at=NULL").WithArgs(int64(1)).
		WillReturnResult(pgxmockv3.NewResult("UPDATE", 1))
	if err := repo.ReleaseDeliveryClaim(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mock.ExpectExec("UPDATE orders SET delivery_claimed_at='9999-12-31").WithArgs(int64(1)).
		WillReturnResult(pgxmockv3.NewResult("UPDATE", 1))
	if err := repo.HoldDeliveryClaim(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestOrderRepositoryMarkDelivered(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}

	deliveredAt := time.Now()
	delivery := model.Delivery{Kind: model.DeliveryKindCode, Ref: "unit:11", DeliveredAt: deliveredAt}

	t.Run("consumes unit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SET status='delivered'").WithArgs(int64(1), "code", "unit:11", deliveredAt).
			WillReturnRows(pgxmockv3.NewRows([]string{"unit_id"}).AddRow(int64Ptr(11)))
		mock.ExpectExec("UPDATE inventory_units SET state='sold'").WithArgs(int64(11)).
			WillReturnResult(pgxmockv3.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		if ok, err := repo.MarkDelivered(context.Background(), 1, delivery); err != nil || !ok {
			t.Fatalf("expected delivery, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("already delivered", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SET status='delivered'").WithArgs(int64(1), "code", "unit:11", deliveredAt).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectCommit()

		if ok, err := repo.MarkDelivered(context.Background(), 1, delivery); err != nil || ok {
			t.Fatalf("expected no-op, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("unit not reserved rolls back", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SET status='delivered'").WithArgs(int64(2), "code", "unit:11", deliveredAt).
			WillReturnRows(pgxmockv3.NewRows([]string{"unit_id"}).AddRow(int64Ptr(12)))
		mock.ExpectExec("UPDATE inventory_units SET state='sold'").WithArgs(int64(12)).
			WillReturnResult(pgxmockv3.NewResult("UPDATE", 0))
		mock.ExpectRollback()

		_, err := repo.MarkDelivered(context.Background(), 2, delivery)
		if !errors.Is(err, domainErrors.ErrInvalidTransition) {
			t.Fatalf("expected invalid transition, got %v", err)
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestOrderRepositoryLists(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}

	cutoff := time.Now()
	mock.ExpectQuery("WHERE status='pending' AND created_at").WithArgs(cutoff, 10).
		WillReturnRows(pendingOrderRows(1, int64Ptr(11), int64Ptr(500), "0.00"))
	orders, err := repo.ListExpiredPending(context.Background(), cutoff, 10)
	if err != nil || len(orders) != 1 {
		t.Fatalf("unexpected result: %v err=%v", orders, err)
	}

	mock.ExpectQuery("invoice_id IS NOT NULL").WithArgs(5).
		WillReturnRows(pendingOrderRows(2, int64Ptr(12), int64Ptr(501), "0.00"))
	orders, err = repo.ListPendingWithInvoice(context.Background(), 5)
	if err != nil || len(orders) != 1 || orders[0].ID != 2 {
		t.Fatalf("unexpected result: %v err=%v", orders, err)
	}

	mock.ExpectQuery("WHERE user_id=").WithArgs(int64(7), 20).
		WillReturnRows(pgxmockv3.NewRows(orderColumnNames))
	orders, err = repo.ListByUser(context.Background(), 7, 20)
	if err != nil || len(orders) != 0 {
		t.Fatalf("unexpected result: %v err=%v", orders, err)
	}

	mock.ExpectQuery("FROM orders ORDER BY created_at DESC").WithArgs(3).WillReturnError(errors.New("fail"))
	if _, err := repo.ListRecent(context.Background(), 3); err == nil {
		t.Fatal("expected error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestOrderRepositoryListRowsError(t *testing.T) {
	storage := &Storage{pool: &rowsErrorPool{rows: &errorRows{err: errors.New("rows err")}}}
	repo := &orderRepository{storage: storage}

	if _, err := repo.ListByUser(context.Background(), 1, 10); err == nil {
		t.Fatal("expected rows error")
	}
}

func TestOrderRepositoryCountersAndStats(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}

	mock.ExpectQuery("SELECT COUNT").WithArgs(int64(7)).
		WillReturnRows(pgxmockv3.NewRows([]string{"count"}).AddRow(3))
	n, err := repo.CountDelivered(context.Background(), 7)
	if err != nil || n != 3 {
		t.Fatalf("unexpected count %d err=%v", n, err)
	}

	mock.ExpectQuery("GROUP BY status").WillReturnRows(
		pgxmockv3.NewRows([]string{"status", "count"}).
			AddRow(model.OrderStatusDelivered, 4).
			AddRow(model.OrderStatusCanceled, 1))
	mock.ExpectQuery("COALESCE").WillReturnRows(pgxmockv3.NewRows([]string{"sum"}).AddRow("40.00"))

	counts, revenue, err := repo.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counts[model.OrderStatusDelivered] != 4 || counts[model.OrderStatusCanceled] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
	if revenue.StringFixed(2) != "40.00" {
		t.Fatalf("unexpected revenue %s", revenue)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}
