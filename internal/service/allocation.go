package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/iliyamo/parking-lot-reservation/internal/cache"
	"github.com/iliyamo/parking-lot-reservation/internal/model"
	"github.com/iliyamo/parking-lot-reservation/internal/queue"
	"github.com/iliyamo/parking-lot-reservation/internal/repository"
)

// EventPublisher delivers domain events to the task queue. Publishing
// is fire-and-forget: the engine logs failures and never fails a
// committed operation because of them.
type EventPublisher interface {
	PublishReservationClosed(ctx context.Context, ev queue.ReservationClosedEvent) error
}

// AllocationEngine owns all mutations of lots, spots and reservations.
// It is constructed once with its collaborators, holds no ambient
// globals, and is safe for concurrent use: the
// database transaction is the only synchronization point, with
// SELECT ... FOR UPDATE row locks making each check-then-act section
// atomic. The listing cache is invalidated strictly after commit.
type AllocationEngine struct {
	db           *sql.DB
	lots         *repository.LotRepo
	spots        *repository.SpotRepo
	reservations *repository.ReservationRepo
	listing      *cache.LotListingCache
	events       EventPublisher // may be nil when the broker is absent
	opTimeout    time.Duration
	now          func() time.Time
}

// NewAllocationEngine wires the engine. The repositories and cache must
// be non-nil; events may be nil to disable publishing.
func NewAllocationEngine(db *sql.DB, lots *repository.LotRepo, spots *repository.SpotRepo,
	reservations *repository.ReservationRepo, listing *cache.LotListingCache, events EventPublisher) *AllocationEngine {
	if db == nil || lots == nil || spots == nil || reservations == nil || listing == nil {
		panic("nil dependency passed to NewAllocationEngine")
	}
	return &AllocationEngine{
		db:           db,
		lots:         lots,
		spots:        spots,
		reservations: reservations,
		listing:      listing,
		events:       events,
		opTimeout:    5 * time.Second,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// ReserveResult is returned by Reserve.
type ReserveResult struct {
	ReservationID uint64    `json:"reservation_id"`
	LotID         uint64    `json:"lot_id"`
	SpotID        uint64    `json:"spot_id"`
	SpotNumber    uint32    `json:"spot_number"`
	StartedAt     time.Time `json:"started_at"`
}

// Reserve assigns the free spot with the lowest number in the lot to
// the user and opens a reservation. The whole check-and-claim runs in
// one transaction: the user's open-reservation row and the chosen spot
// row are locked, so two reserves by the same user, or two users racing
// for the last spot, serialize and exactly one wins.
func (e *AllocationEngine) Reserve(ctx context.Context, userID, lotID uint64) (ReserveResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opTimeout)
	defer cancel()

	var out ReserveResult
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := e.lots.GetByIDTx(ctx, tx, lotID); err != nil {
			return err
		}
		// Lock ordering is user row first, spot row second, here and
		// in Release, so the two cannot deadlock each other.
		_, err := e.reservations.ActiveByUserTx(ctx, tx, userID)
		if err == nil {
			return ErrActiveReservation
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		spot, err := e.spots.LowestAvailableTx(ctx, tx, lotID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNoAvailability
			}
			return err
		}
		if err := e.spots.UpdateStatusTx(ctx, tx, spot.ID, model.SpotOccupied); err != nil {
			return err
		}
		res := &model.Reservation{UserID: userID, SpotID: spot.ID, StartedAt: e.now()}
		if err := e.reservations.CreateTx(ctx, tx, res); err != nil {
			return err
		}
		out = ReserveResult{
			ReservationID: res.ID,
			LotID:         spot.LotID,
			SpotID:        spot.ID,
			SpotNumber:    spot.SpotNumber,
			StartedAt:     res.StartedAt,
		}
		return nil
	})
	if err != nil {
		return ReserveResult{}, err
	}
	e.invalidateListing()
	return out, nil
}

// ReleaseResult is returned by Release.
type ReleaseResult struct {
	ReservationID uint64    `json:"reservation_id"`
	LotID         uint64    `json:"lot_id"`
	SpotNumber    uint32    `json:"spot_number"`
	EndedAt       time.Time `json:"ended_at"`
	DurationHours float64   `json:"duration_hours"`
	CostCents     int64     `json:"cost_cents"`
}

// Release closes the caller's active reservation: it stamps the end
// time, computes the cost from the owning lot's hourly price, and frees
// the spot, all in one transaction. Cost and end timestamp are written
// together, exactly once.
func (e *AllocationEngine) Release(ctx context.Context, userID uint64) (ReleaseResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opTimeout)
	defer cancel()

	var out ReleaseResult
	var closed queue.ReservationClosedEvent
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		res, err := e.reservations.ActiveByUserTx(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNoActiveReservation
			}
			return err
		}
		spot, err := e.spots.GetByIDTx(ctx, tx, res.SpotID)
		if err != nil {
			return err
		}
		lot, err := e.lots.GetByIDTx(ctx, tx, spot.LotID)
		if err != nil {
			return err
		}
		endedAt := e.now()
		cost, err := ComputeCostCents(res.StartedAt, endedAt, lot.PriceCentsPerHour)
		if err != nil {
			return err
		}
		if err := e.reservations.CloseTx(ctx, tx, res.ID, endedAt, cost); err != nil {
			return err
		}
		if err := e.spots.UpdateStatusTx(ctx, tx, spot.ID, model.SpotAvailable); err != nil {
			return err
		}
		out = ReleaseResult{
			ReservationID: res.ID,
			LotID:         lot.ID,
			SpotNumber:    spot.SpotNumber,
			EndedAt:       endedAt,
			DurationHours: DurationHours(res.StartedAt, endedAt),
			CostCents:     cost,
		}
		closed = queue.ReservationClosedEvent{
			ReservationID: res.ID,
			UserID:        userID,
			LotID:         lot.ID,
			LotName:       lot.Name,
			SpotNumber:    spot.SpotNumber,
			StartedAt:     res.StartedAt.Format(time.RFC3339),
			EndedAt:       endedAt.Format(time.RFC3339),
			DurationHours: out.DurationHours,
			CostCents:     cost,
		}
		return nil
	})
	if err != nil {
		return ReleaseResult{}, err
	}
	// Cache eviction and event publishing run only after the commit.
	e.invalidateListing()
	e.publishClosed(closed)
	return out, nil
}

// CreateLotParams are the fields of a new lot.
type CreateLotParams struct {
	Name              string
	Address           string
	PinCode           string
	PriceCentsPerHour uint32
	NumberOfSpots     uint32
}

// CreateLot inserts the lot row and exactly NumberOfSpots spot rows
// numbered 1..N in one transaction.
func (e *AllocationEngine) CreateLot(ctx context.Context, p CreateLotParams) (*model.Lot, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" || strings.TrimSpace(p.Address) == "" || p.NumberOfSpots == 0 {
		return nil, ErrInvalidInput
	}
	ctx, cancel := context.WithTimeout(ctx, e.opTimeout)
	defer cancel()

	lot := &model.Lot{
		Name:              p.Name,
		Address:           strings.TrimSpace(p.Address),
		PinCode:           strings.TrimSpace(p.PinCode),
		PriceCentsPerHour: p.PriceCentsPerHour,
		NumberOfSpots:     p.NumberOfSpots,
	}
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.lots.CreateTx(ctx, tx, lot); err != nil {
			return err
		}
		return e.spots.CreateBulkTx(ctx, tx, lot.ID, p.NumberOfSpots)
	})
	if err != nil {
		return nil, err
	}
	e.invalidateListing()
	return lot, nil
}

// UpdateLotParams carries a partial lot update; nil fields keep their
// current value. The spot count is immutable.
type UpdateLotParams struct {
	Name              *string
	Address           *string
	PinCode           *string
	PriceCentsPerHour *uint32
}

// UpdateLot applies a partial update to name, address, pin code and
// price. The listing includes the price, so invalidation always runs.
func (e *AllocationEngine) UpdateLot(ctx context.Context, lotID uint64, p UpdateLotParams) (*model.Lot, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opTimeout)
	defer cancel()

	var lot *model.Lot
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		cur, err := e.lots.GetByIDTx(ctx, tx, lotID)
		if err != nil {
			return err
		}
		if p.Name != nil {
			if strings.TrimSpace(*p.Name) == "" {
				return ErrInvalidInput
			}
			cur.Name = strings.TrimSpace(*p.Name)
		}
		if p.Address != nil {
			cur.Address = strings.TrimSpace(*p.Address)
		}
		if p.PinCode != nil {
			cur.PinCode = strings.TrimSpace(*p.PinCode)
		}
		if p.PriceCentsPerHour != nil {
			cur.PriceCentsPerHour = *p.PriceCentsPerHour
		}
		if err := e.lots.UpdateTx(ctx, tx, cur); err != nil {
			return err
		}
		lot = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.invalidateListing()
	return lot, nil
}

// DeleteLot removes a lot and all of its spots. It refuses while any
// spot is occupied; counting locks the spot rows, so a reservation
// committing concurrently either lands before the count (delete
// refused) or blocks until the delete finishes (lot gone, reserve
// fails on the lot lookup).
func (e *AllocationEngine) DeleteLot(ctx context.Context, lotID uint64) error {
	ctx, cancel := context.WithTimeout(ctx, e.opTimeout)
	defer cancel()

	err := e.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := e.lots.GetByIDTx(ctx, tx, lotID); err != nil {
			return err
		}
		occupied, err := e.spots.CountOccupiedTx(ctx, tx, lotID)
		if err != nil {
			return err
		}
		if occupied > 0 {
			return ErrLotOccupied
		}
		if err := e.spots.DeleteByLotTx(ctx, tx, lotID); err != nil {
			return err
		}
		return e.lots.DeleteTx(ctx, tx, lotID)
	})
	if err != nil {
		return err
	}
	e.invalidateListing()
	return nil
}

// ListLots serves the lot listing through the cache: a hit is returned
// as-is (at most TTL stale, never older than the last completed
// invalidation); a miss reads the database and repopulates the entry.
func (e *AllocationEngine) ListLots(ctx context.Context) ([]model.Lot, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opTimeout)
	defer cancel()

	if lots, ok := e.listing.Get(ctx); ok {
		return lots, nil
	}
	lots, err := listWithRetry(ctx, e.lots.ListAll)
	if err != nil {
		return nil, err
	}
	e.listing.Put(ctx, lots)
	return lots, nil
}

// inTx runs fn inside a transaction, translating transient driver
// failures to ErrStoreUnavailable and rolling back on any error.
func (e *AllocationEngine) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return storeErr(err)
	}
	if err := tx.Commit(); err != nil {
		return storeErr(err)
	}
	committed = true
	return nil
}

// invalidateListing evicts the cached listing after a commit. Failures
// are logged only: the mutation already succeeded and the TTL bounds
// the staleness until the next successful eviction.
func (e *AllocationEngine) invalidateListing() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.listing.Invalidate(ctx); err != nil {
		log.Printf("cache: listing invalidation failed: %v", err)
	}
}

// publishClosed hands a committed release to the event publisher.
// Failures are logged; the release already succeeded.
func (e *AllocationEngine) publishClosed(ev queue.ReservationClosedEvent) {
	if e.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := e.events.PublishReservationClosed(ctx, ev); err != nil {
		log.Printf("queue: publish reservation.closed failed: %v", err)
	}
}
