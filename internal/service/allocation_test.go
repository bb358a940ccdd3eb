package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/iliyamo/parking-lot-reservation/internal/cache"
	"github.com/iliyamo/parking-lot-reservation/internal/config"
	"github.com/iliyamo/parking-lot-reservation/internal/model"
	"github.com/iliyamo/parking-lot-reservation/internal/repository"
)

var engineNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// newEngineMock builds an engine over a sqlmock database with a fixed
// clock, a disabled listing cache and no event publisher.
func newEngineMock(t *testing.T) (*AllocationEngine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	listing := cache.NewLotListingCache(nil, config.ListingCacheConfig{Key: "lots:listing", TTL: time.Hour})
	e := NewAllocationEngine(db,
		repository.NewLotRepo(db),
		repository.NewSpotRepo(db),
		repository.NewReservationRepo(db),
		listing, nil)
	e.now = func() time.Time { return engineNow }
	return e, mock
}

func lotRows(id uint64, price uint32) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "address", "pin_code", "price_cents_per_hour", "number_of_spots", "created_at", "updated_at"}).
		AddRow(id, "Central", "1 Main St", "560001", price, 20, engineNow.Add(-24*time.Hour), engineNow.Add(-24*time.Hour))
}

func spotRows(id, lotID uint64, number uint32, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "lot_id", "spot_number", "status", "created_at", "updated_at"}).
		AddRow(id, lotID, number, status, engineNow.Add(-24*time.Hour), engineNow.Add(-24*time.Hour))
}

func activeReservationRows(id, userID, spotID uint64, startedAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "spot_id", "started_at", "ended_at", "cost_cents"}).
		AddRow(id, userID, spotID, startedAt, nil, nil)
}

func expectMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReserveAssignsLowestSpot(t *testing.T) {
	e, mock := newEngineMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM lots WHERE id = \? FOR SHARE`).WithArgs(uint64(5)).
		WillReturnRows(lotRows(5, 1000))
	mock.ExpectQuery(`user_id = \? AND ended_at IS NULL`).WithArgs(uint64(9)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`status = 'available'`).WithArgs(uint64(5)).
		WillReturnRows(spotRows(31, 5, 3, model.SpotAvailable))
	mock.ExpectExec(`UPDATE spots SET status = \? WHERE id = \?`).
		WithArgs(model.SpotOccupied, uint64(31)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO reservations`).
		WillReturnResult(sqlmock.NewResult(77, 1))
	mock.ExpectCommit()

	got, err := e.Reserve(context.Background(), 9, 5)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if got.ReservationID != 77 || got.LotID != 5 || got.SpotID != 31 || got.SpotNumber != 3 {
		t.Fatalf("unexpected result: %+v", got)
	}
	if !got.StartedAt.Equal(engineNow) {
		t.Fatalf("started_at = %v, want %v", got.StartedAt, engineNow)
	}
	expectMet(t, mock)
}

func TestReserveRejectsSecondActive(t *testing.T) {
	e, mock := newEngineMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM lots WHERE id = \? FOR SHARE`).WithArgs(uint64(5)).
		WillReturnRows(lotRows(5, 1000))
	mock.ExpectQuery(`user_id = \? AND ended_at IS NULL`).WithArgs(uint64(9)).
		WillReturnRows(activeReservationRows(40, 9, 12, engineNow.Add(-time.Hour)))
	mock.ExpectRollback()

	_, err := e.Reserve(context.Background(), 9, 5)
	if !errors.Is(err, ErrActiveReservation) {
		t.Fatalf("err = %v, want ErrActiveReservation", err)
	}
	expectMet(t, mock)
}

func TestReserveFullLot(t *testing.T) {
	e, mock := newEngineMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM lots WHERE id = \? FOR SHARE`).WithArgs(uint64(5)).
		WillReturnRows(lotRows(5, 1000))
	mock.ExpectQuery(`user_id = \? AND ended_at IS NULL`).WithArgs(uint64(9)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`status = 'available'`).WithArgs(uint64(5)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := e.Reserve(context.Background(), 9, 5)
	if !errors.Is(err, ErrNoAvailability) {
		t.Fatalf("err = %v, want ErrNoAvailability", err)
	}
	expectMet(t, mock)
}

func TestReserveUnknownLot(t *testing.T) {
	e, mock := newEngineMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM lots WHERE id = \? FOR SHARE`).WithArgs(uint64(404)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := e.Reserve(context.Background(), 9, 404)
	if !errors.Is(err, repository.ErrLotNotFound) {
		t.Fatalf("err = %v, want ErrLotNotFound", err)
	}
	expectMet(t, mock)
}

func TestReleaseComputesCost(t *testing.T) {
	e, mock := newEngineMock(t)
	startedAt := engineNow.Add(-90 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery(`user_id = \? AND ended_at IS NULL`).WithArgs(uint64(9)).
		WillReturnRows(activeReservationRows(40, 9, 31, startedAt))
	mock.ExpectQuery(`FROM spots WHERE id = \? FOR UPDATE`).WithArgs(uint64(31)).
		WillReturnRows(spotRows(31, 5, 3, model.SpotOccupied))
	mock.ExpectQuery(`FROM lots WHERE id = \? FOR SHARE`).WithArgs(uint64(5)).
		WillReturnRows(lotRows(5, 1000))
	mock.ExpectExec(`UPDATE reservations SET ended_at`).
		WithArgs(engineNow, int64(1500), uint64(40)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE spots SET status = \? WHERE id = \?`).
		WithArgs(model.SpotAvailable, uint64(31)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, err := e.Release(context.Background(), 9)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if got.CostCents != 1500 {
		t.Fatalf("cost = %d, want 1500", got.CostCents)
	}
	if got.DurationHours != 1.5 {
		t.Fatalf("hours = %v, want 1.5", got.DurationHours)
	}
	if got.ReservationID != 40 || got.LotID != 5 || got.SpotNumber != 3 {
		t.Fatalf("unexpected result: %+v", got)
	}
	expectMet(t, mock)
}

func TestReleaseWithoutActiveReservation(t *testing.T) {
	e, mock := newEngineMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`user_id = \? AND ended_at IS NULL`).WithArgs(uint64(9)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := e.Release(context.Background(), 9)
	if !errors.Is(err, ErrNoActiveReservation) {
		t.Fatalf("err = %v, want ErrNoActiveReservation", err)
	}
	expectMet(t, mock)
}

func TestCreateLotProvisionsSpots(t *testing.T) {
	e, mock := newEngineMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO lots`).
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectExec(`INSERT INTO spots`).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	lot, err := e.CreateLot(context.Background(), CreateLotParams{
		Name:              "Central",
		Address:           "1 Main St",
		PinCode:           "560001",
		PriceCentsPerHour: 1000,
		NumberOfSpots:     4,
	})
	if err != nil {
		t.Fatalf("CreateLot: %v", err)
	}
	if lot.ID != 3 {
		t.Fatalf("lot id = %d, want 3", lot.ID)
	}
	expectMet(t, mock)
}

func TestCreateLotValidation(t *testing.T) {
	e, _ := newEngineMock(t)

	cases := []CreateLotParams{
		{Name: "", Address: "1 Main St", NumberOfSpots: 4},
		{Name: "Central", Address: "  ", NumberOfSpots: 4},
		{Name: "Central", Address: "1 Main St", NumberOfSpots: 0},
	}
	for _, p := range cases {
		if _, err := e.CreateLot(context.Background(), p); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("params %+v: err = %v, want ErrInvalidInput", p, err)
		}
	}
}

func TestDeleteLotRefusedWhileOccupied(t *testing.T) {
	e, mock := newEngineMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM lots WHERE id = \? FOR SHARE`).WithArgs(uint64(5)).
		WillReturnRows(lotRows(5, 1000))
	mock.ExpectQuery(`COUNT\(\*\) FROM spots`).WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	err := e.DeleteLot(context.Background(), 5)
	if !errors.Is(err, ErrLotOccupied) {
		t.Fatalf("err = %v, want ErrLotOccupied", err)
	}
	expectMet(t, mock)
}

func TestDeleteLotCascadesSpots(t *testing.T) {
	e, mock := newEngineMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM lots WHERE id = \? FOR SHARE`).WithArgs(uint64(5)).
		WillReturnRows(lotRows(5, 1000))
	mock.ExpectQuery(`COUNT\(\*\) FROM spots`).WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`DELETE FROM spots WHERE lot_id = \?`).WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 20))
	mock.ExpectExec(`DELETE FROM lots WHERE id = \?`).WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := e.DeleteLot(context.Background(), 5); err != nil {
		t.Fatalf("DeleteLot: %v", err)
	}
	expectMet(t, mock)
}

func TestUpdateLotPartial(t *testing.T) {
	e, mock := newEngineMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM lots WHERE id = \? FOR SHARE`).WithArgs(uint64(5)).
		WillReturnRows(lotRows(5, 1000))
	mock.ExpectExec(`UPDATE lots SET name`).
		WithArgs("Central", "1 Main St", "560001", uint32(1200), uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	price := uint32(1200)
	lot, err := e.UpdateLot(context.Background(), 5, UpdateLotParams{PriceCentsPerHour: &price})
	if err != nil {
		t.Fatalf("UpdateLot: %v", err)
	}
	if lot.PriceCentsPerHour != 1200 || lot.Name != "Central" {
		t.Fatalf("unexpected lot: %+v", lot)
	}
	expectMet(t, mock)
}

func TestListLotsFallsThroughOnCacheMiss(t *testing.T) {
	e, mock := newEngineMock(t)

	mock.ExpectQuery(`FROM lots ORDER BY id`).
		WillReturnRows(lotRows(5, 1000))

	lots, err := e.ListLots(context.Background())
	if err != nil {
		t.Fatalf("ListLots: %v", err)
	}
	if len(lots) != 1 || lots[0].ID != 5 {
		t.Fatalf("unexpected listing: %+v", lots)
	}
	expectMet(t, mock)
}
