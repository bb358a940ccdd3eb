package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/parking-lot-reservation/internal/model"
)

// LotRepo provides CRUD operations for parking lots. Mutations run
// inside transactions owned by the allocation engine; plain reads use
// the pooled handle directly.
type LotRepo struct {
	db *sql.DB
}

// NewLotRepo constructs a LotRepo with the given DB handle.
func NewLotRepo(db *sql.DB) *LotRepo { return &LotRepo{db: db} }

// DB exposes the underlying handle so the service layer can open
// transactions spanning lots, spots and reservations.
func (r *LotRepo) DB() *sql.DB { return r.db }

// CreateTx inserts a lot within an existing transaction and populates
// the generated ID on the passed model.
func (r *LotRepo) CreateTx(ctx context.Context, tx *sql.Tx, l *model.Lot) error {
	const q = `INSERT INTO lots (name, address, pin_code, price_cents_per_hour, number_of_spots)
	           VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, l.Name, l.Address, l.PinCode, l.PriceCentsPerHour, l.NumberOfSpots)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

// GetByID retrieves a single lot. Returns ErrLotNotFound when absent.
func (r *LotRepo) GetByID(ctx context.Context, id uint64) (*model.Lot, error) {
	const q = `SELECT id, name, address, pin_code, price_cents_per_hour, number_of_spots, created_at, updated_at
	           FROM lots WHERE id = ?`
	var l model.Lot
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&l.ID, &l.Name, &l.Address, &l.PinCode, &l.PriceCentsPerHour, &l.NumberOfSpots, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLotNotFound
		}
		return nil, err
	}
	return &l, nil
}

// GetByIDTx is the transactional variant of GetByID. It takes a shared
// lock on the lot row so a concurrent DeleteLot cannot remove the lot
// between the existence check and the spot allocation.
func (r *LotRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Lot, error) {
	const q = `SELECT id, name, address, pin_code, price_cents_per_hour, number_of_spots, created_at, updated_at
	           FROM lots WHERE id = ? FOR SHARE`
	var l model.Lot
	err := tx.QueryRowContext(ctx, q, id).Scan(
		&l.ID, &l.Name, &l.Address, &l.PinCode, &l.PriceCentsPerHour, &l.NumberOfSpots, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLotNotFound
		}
		return nil, err
	}
	return &l, nil
}

// ListAll returns every lot ordered by id. This is the query behind the
// cached listing; its results must match what Put stores in the cache.
func (r *LotRepo) ListAll(ctx context.Context) ([]model.Lot, error) {
	const q = `SELECT id, name, address, pin_code, price_cents_per_hour, number_of_spots, created_at, updated_at
	           FROM lots ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lots := make([]model.Lot, 0)
	for rows.Next() {
		var l model.Lot
		if err := rows.Scan(&l.ID, &l.Name, &l.Address, &l.PinCode, &l.PriceCentsPerHour, &l.NumberOfSpots, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		lots = append(lots, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lots, nil
}

// UpdateTx writes the mutable lot fields (name, address, pin code,
// price). The spot count is fixed at creation and deliberately not part
// of the statement.
func (r *LotRepo) UpdateTx(ctx context.Context, tx *sql.Tx, l *model.Lot) error {
	const q = `UPDATE lots SET name = ?, address = ?, pin_code = ?, price_cents_per_hour = ? WHERE id = ?`
	// RowsAffected is not checked: MySQL reports 0 for a no-op update
	// with identical values, and callers verify existence beforehand.
	_, err := tx.ExecContext(ctx, q, l.Name, l.Address, l.PinCode, l.PriceCentsPerHour, l.ID)
	return err
}

// DeleteTx removes a lot row. Spots must already be deleted in the same
// transaction (the FK would reject the delete otherwise).
func (r *LotRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM lots WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrLotNotFound
	}
	return nil
}
