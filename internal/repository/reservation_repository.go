package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/parking-lot-reservation/internal/model"
)

// ReservationRepo provides data access for parking reservations. All
// timestamps are stored and compared in UTC. Reservations are never
// deleted; a release closes the row by setting ended_at and cost_cents
// in one statement.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// ActiveByUserTx locks and returns the user's open reservation
// (ended_at IS NULL). The FOR UPDATE lock makes the one-active-
// reservation check race-free: two concurrent reserves by the same
// user serialize here. sql.ErrNoRows means the user has none.
func (r *ReservationRepo) ActiveByUserTx(ctx context.Context, tx *sql.Tx, userID uint64) (*model.Reservation, error) {
	const q = `SELECT id, user_id, spot_id, started_at, ended_at, cost_cents
	           FROM reservations
	           WHERE user_id = ? AND ended_at IS NULL
	           LIMIT 1
	           FOR UPDATE`
	var res model.Reservation
	var ended sql.NullTime
	var cost sql.NullInt64
	err := tx.QueryRowContext(ctx, q, userID).Scan(
		&res.ID, &res.UserID, &res.SpotID, &res.StartedAt, &ended, &cost)
	if err != nil {
		return nil, err
	}
	if ended.Valid {
		t := ended.Time
		res.EndedAt = &t
	}
	if cost.Valid {
		c := cost.Int64
		res.CostCents = &c
	}
	return &res, nil
}

// CreateTx inserts a new open reservation within the transaction and
// populates the generated ID.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservations (user_id, spot_id, started_at) VALUES (?, ?, ?)`
	result, err := tx.ExecContext(ctx, q, res.UserID, res.SpotID, res.StartedAt.UTC())
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// CloseTx finalizes a reservation: ended_at and cost_cents are written
// together so readers never observe one without the other. The
// ended_at IS NULL guard makes the close idempotent against a double
// release racing on the same row.
func (r *ReservationRepo) CloseTx(ctx context.Context, tx *sql.Tx, id uint64, endedAt time.Time, costCents int64) error {
	const q = `UPDATE reservations SET ended_at = ?, cost_cents = ? WHERE id = ? AND ended_at IS NULL`
	res, err := tx.ExecContext(ctx, q, endedAt.UTC(), costCents, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// HistoryItem is one row of a user's parking history, joined with the
// lot and spot for display.
type HistoryItem struct {
	ReservationID uint64     `json:"reservation_id"`
	LotID         uint64     `json:"lot_id"`
	LotName       string     `json:"lot_name"`
	SpotNumber    uint32     `json:"spot_number"`
	StartedAt     time.Time  `json:"started_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
	CostCents     *int64     `json:"cost_cents,omitempty"`
}

// ListByUser returns the user's entire parking history, newest first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]HistoryItem, error) {
	const q = `SELECT r.id, l.id, l.name, s.spot_number, r.started_at, r.ended_at, r.cost_cents
	           FROM reservations r
	           JOIN spots s ON s.id = r.spot_id
	           JOIN lots l ON l.id = s.lot_id
	           WHERE r.user_id = ?
	           ORDER BY r.started_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHistory(rows, nil)
}

// AdminHistoryItem extends HistoryItem with the reserving user, for
// the admin-wide reservation listing.
type AdminHistoryItem struct {
	HistoryItem
	UserID   uint64 `json:"user_id"`
	Username string `json:"username"`
}

// ListAll returns every reservation with user, lot and spot details,
// newest first.
func (r *ReservationRepo) ListAll(ctx context.Context) ([]AdminHistoryItem, error) {
	const q = `SELECT r.id, l.id, l.name, s.spot_number, r.started_at, r.ended_at, r.cost_cents, u.id, u.username
	           FROM reservations r
	           JOIN spots s ON s.id = r.spot_id
	           JOIN lots l ON l.id = s.lot_id
	           JOIN users u ON u.id = r.user_id
	           ORDER BY r.started_at DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]AdminHistoryItem, 0)
	for rows.Next() {
		var it AdminHistoryItem
		var ended sql.NullTime
		var cost sql.NullInt64
		if err := rows.Scan(&it.ReservationID, &it.LotID, &it.LotName, &it.SpotNumber,
			&it.StartedAt, &ended, &cost, &it.UserID, &it.Username); err != nil {
			return nil, err
		}
		if ended.Valid {
			t := ended.Time
			it.EndedAt = &t
		}
		if cost.Valid {
			c := cost.Int64
			it.CostCents = &c
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// ClosedByUserBetween returns the user's closed reservations with
// started_at in [from, to). Only committed, fully closed rows
// (ended_at and cost_cents both set) can match, which is what report
// and export jobs consume.
func (r *ReservationRepo) ClosedByUserBetween(ctx context.Context, userID uint64, from, to time.Time) ([]HistoryItem, error) {
	const q = `SELECT r.id, l.id, l.name, s.spot_number, r.started_at, r.ended_at, r.cost_cents
	           FROM reservations r
	           JOIN spots s ON s.id = r.spot_id
	           JOIN lots l ON l.id = s.lot_id
	           WHERE r.user_id = ? AND r.ended_at IS NOT NULL AND r.started_at >= ? AND r.started_at < ?
	           ORDER BY r.started_at`
	rows, err := r.db.QueryContext(ctx, q, userID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHistory(rows, nil)
}

// RevenueRow is the aggregated revenue of one lot.
type RevenueRow struct {
	LotID        uint64 `json:"lot_id"`
	LotName      string `json:"lot_name"`
	RevenueCents int64  `json:"revenue_cents"`
}

// RevenueByLot sums the cost of all closed reservations per lot.
func (r *ReservationRepo) RevenueByLot(ctx context.Context) ([]RevenueRow, error) {
	const q = `SELECT l.id, l.name, COALESCE(SUM(r.cost_cents), 0)
	           FROM lots l
	           JOIN spots s ON s.lot_id = l.id
	           JOIN reservations r ON r.spot_id = s.id
	           WHERE r.cost_cents IS NOT NULL
	           GROUP BY l.id, l.name
	           ORDER BY l.id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]RevenueRow, 0)
	for rows.Next() {
		var rr RevenueRow
		if err := rows.Scan(&rr.LotID, &rr.LotName, &rr.RevenueCents); err != nil {
			return nil, err
		}
		out = append(out, rr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// scanHistory collects HistoryItem rows; the second argument exists so
// callers can pass a preallocated slice and is usually nil.
func scanHistory(rows *sql.Rows, items []HistoryItem) ([]HistoryItem, error) {
	if items == nil {
		items = make([]HistoryItem, 0)
	}
	for rows.Next() {
		var it HistoryItem
		var ended sql.NullTime
		var cost sql.NullInt64
		if err := rows.Scan(&it.ReservationID, &it.LotID, &it.LotName, &it.SpotNumber,
			&it.StartedAt, &ended, &cost); err != nil {
			return nil, err
		}
		if ended.Valid {
			t := ended.Time
			it.EndedAt = &t
		}
		if cost.Valid {
			c := cost.Int64
			it.CostCents = &c
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
