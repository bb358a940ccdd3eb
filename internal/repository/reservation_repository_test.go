package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var repoNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestClosedByUserBetween(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReservationRepo(db)

	from := repoNow.Add(-30 * 24 * time.Hour)
	ended := repoNow.Add(-time.Hour)
	rows := sqlmock.NewRows([]string{"id", "lot_id", "lot_name", "spot_number", "started_at", "ended_at", "cost_cents"}).
		AddRow(40, 5, "Central", 3, repoNow.Add(-2*time.Hour), ended, int64(1500))
	mock.ExpectQuery(`ended_at IS NOT NULL AND r.started_at >= \? AND r.started_at < \?`).
		WithArgs(uint64(9), from, repoNow).
		WillReturnRows(rows)

	items, err := repo.ClosedByUserBetween(context.Background(), 9, from, repoNow)
	if err != nil {
		t.Fatalf("ClosedByUserBetween: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("len = %d, want 1", len(items))
	}
	it := items[0]
	if it.ReservationID != 40 || it.LotName != "Central" || it.SpotNumber != 3 {
		t.Fatalf("unexpected item: %+v", it)
	}
	if it.EndedAt == nil || !it.EndedAt.Equal(ended) {
		t.Fatalf("ended_at not set: %+v", it)
	}
	if it.CostCents == nil || *it.CostCents != 1500 {
		t.Fatalf("cost not set: %+v", it)
	}
}

func TestListByUserKeepsOpenRowNulls(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReservationRepo(db)

	rows := sqlmock.NewRows([]string{"id", "lot_id", "lot_name", "spot_number", "started_at", "ended_at", "cost_cents"}).
		AddRow(41, 5, "Central", 7, repoNow.Add(-time.Hour), nil, nil)
	mock.ExpectQuery(`WHERE r.user_id = \?`).WithArgs(uint64(9)).WillReturnRows(rows)

	items, err := repo.ListByUser(context.Background(), 9)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("len = %d, want 1", len(items))
	}
	if items[0].EndedAt != nil || items[0].CostCents != nil {
		t.Fatalf("open reservation must have nil ended_at and cost: %+v", items[0])
	}
}

func TestRevenueByLot(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReservationRepo(db)

	rows := sqlmock.NewRows([]string{"id", "name", "revenue"}).
		AddRow(1, "Central", int64(4500)).
		AddRow(2, "Airport", int64(0))
	mock.ExpectQuery(`COALESCE\(SUM\(r.cost_cents\), 0\)`).WillReturnRows(rows)

	out, err := repo.RevenueByLot(context.Background())
	if err != nil {
		t.Fatalf("RevenueByLot: %v", err)
	}
	if len(out) != 2 || out[0].RevenueCents != 4500 || out[1].LotName != "Airport" {
		t.Fatalf("unexpected rows: %+v", out)
	}
}

func TestCloseTxRefusesDoubleClose(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReservationRepo(db)

	mock.ExpectBegin()
	// The ended_at IS NULL guard matches no row on a second close.
	mock.ExpectExec(`UPDATE reservations SET ended_at`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = repo.CloseTx(context.Background(), tx, 40, repoNow, 1500)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("err = %v, want sql.ErrNoRows", err)
	}
}
