package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/parking-lot-reservation/internal/model"
)

// SpotRepo provides data access for parking spots. The transactional
// methods carry the row locks that make spot allocation safe under
// concurrent reservations.
type SpotRepo struct {
	db *sql.DB
}

// NewSpotRepo constructs a SpotRepo with the given DB handle.
func NewSpotRepo(db *sql.DB) *SpotRepo { return &SpotRepo{db: db} }

// CreateBulkTx inserts spots numbered 1..count for a lot in a single
// statement within the provided transaction. All spots start available.
func (r *SpotRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, lotID uint64, count uint32) error {
	if count == 0 {
		return nil
	}
	query := `INSERT INTO spots (lot_id, spot_number, status) VALUES `
	args := make([]interface{}, 0, count*3)
	for i := uint32(1); i <= count; i++ {
		if i > 1 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, lotID, i, model.SpotAvailable)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// LowestAvailableTx locks and returns the free spot with the lowest
// spot number in a lot. The FOR UPDATE lock serializes two
// reservations racing for the same spot: the loser blocks until the
// winner commits and then sees the row as occupied. sql.ErrNoRows is
// returned when the lot is full.
func (r *SpotRepo) LowestAvailableTx(ctx context.Context, tx *sql.Tx, lotID uint64) (*model.Spot, error) {
	const q = `SELECT id, lot_id, spot_number, status, created_at, updated_at
	           FROM spots
	           WHERE lot_id = ? AND status = 'available'
	           ORDER BY spot_number
	           LIMIT 1
	           FOR UPDATE`
	var s model.Spot
	err := tx.QueryRowContext(ctx, q, lotID).Scan(
		&s.ID, &s.LotID, &s.SpotNumber, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByIDTx locks and returns a single spot by id.
func (r *SpotRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Spot, error) {
	const q = `SELECT id, lot_id, spot_number, status, created_at, updated_at
	           FROM spots WHERE id = ? FOR UPDATE`
	var s model.Spot
	err := tx.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.LotID, &s.SpotNumber, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateStatusTx flips a spot between available and occupied.
func (r *SpotRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, spotID uint64, status string) error {
	if status != model.SpotAvailable && status != model.SpotOccupied {
		return errors.New("invalid spot status: " + status)
	}
	_, err := tx.ExecContext(ctx, `UPDATE spots SET status = ? WHERE id = ?`, status, spotID)
	return err
}

// CountOccupiedTx counts occupied spots in a lot while locking the
// matching rows, so a reservation committed after the count cannot
// slip past a concurrent lot deletion.
func (r *SpotRepo) CountOccupiedTx(ctx context.Context, tx *sql.Tx, lotID uint64) (int, error) {
	const q = `SELECT COUNT(*) FROM spots WHERE lot_id = ? AND status = 'occupied' FOR UPDATE`
	var n int
	if err := tx.QueryRowContext(ctx, q, lotID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// DeleteByLotTx removes all spots of a lot (the cascade half of lot
// deletion; the lot row itself is deleted afterwards).
func (r *SpotRepo) DeleteByLotTx(ctx context.Context, tx *sql.Tx, lotID uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM spots WHERE lot_id = ?`, lotID)
	return err
}

// GetByLot retrieves all spots of a lot ordered by spot number.
func (r *SpotRepo) GetByLot(ctx context.Context, lotID uint64) ([]model.Spot, error) {
	const q = `SELECT id, lot_id, spot_number, status, created_at, updated_at
	           FROM spots
	           WHERE lot_id = ?
	           ORDER BY spot_number`
	rows, err := r.db.QueryContext(ctx, q, lotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	spots := make([]model.Spot, 0)
	for rows.Next() {
		var s model.Spot
		if err := rows.Scan(&s.ID, &s.LotID, &s.SpotNumber, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		spots = append(spots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return spots, nil
}
