package service

import (
	"context"
	"time"

	"github.com/iliyamo/parking-lot-reservation/internal/model"
	"github.com/iliyamo/parking-lot-reservation/internal/repository"
)

// readRetries bounds how often an idempotent read is retried after a
// transient store failure. Mutations are never retried.
const readRetries = 3

// listWithRetry runs an idempotent list query, retrying transient
// failures with a short backoff. The final error is mapped through
// storeErr so callers see ErrStoreUnavailable.
func listWithRetry[T any](ctx context.Context, query func(context.Context) ([]T, error)) ([]T, error) {
	var lastErr error
	for attempt := 0; attempt < readRetries; attempt++ {
		out, err := query(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !transient(err) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, storeErr(ctx.Err())
		case <-time.After(time.Duration(attempt+1) * 50 * time.Millisecond):
		}
	}
	return nil, storeErr(lastErr)
}

// ReportingService exposes the read-only queries consumed by the
// background job runner and the admin endpoints. All queries observe
// committed state only; a closed reservation always has its end
// timestamp and cost set together, so neither is ever seen alone.
type ReportingService struct {
	users        *repository.UserRepo
	reservations *repository.ReservationRepo
	opTimeout    time.Duration
}

// NewReportingService wires the reporting query surface.
func NewReportingService(users *repository.UserRepo, reservations *repository.ReservationRepo) *ReportingService {
	if users == nil || reservations == nil {
		panic("nil repository passed to NewReportingService")
	}
	return &ReportingService{users: users, reservations: reservations, opTimeout: 5 * time.Second}
}

// ClosedReservations returns user U's closed reservations with start
// time in [from, to).
func (s *ReportingService) ClosedReservations(ctx context.Context, userID uint64, from, to time.Time) ([]repository.HistoryItem, error) {
	if to.Before(from) {
		return nil, ErrInvalidInterval
	}
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	return listWithRetry(ctx, func(ctx context.Context) ([]repository.HistoryItem, error) {
		return s.reservations.ClosedByUserBetween(ctx, userID, from, to)
	})
}

// Drivers returns every account with the regular user role.
func (s *ReportingService) Drivers(ctx context.Context) ([]model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	return listWithRetry(ctx, func(ctx context.Context) ([]model.User, error) {
		return s.users.ListByRole(ctx, model.RoleUser)
	})
}

// UserHistory returns the user's full parking history, newest first.
func (s *ReportingService) UserHistory(ctx context.Context, userID uint64) ([]repository.HistoryItem, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	return listWithRetry(ctx, func(ctx context.Context) ([]repository.HistoryItem, error) {
		return s.reservations.ListByUser(ctx, userID)
	})
}

// AllReservations returns every reservation for the admin listing.
func (s *ReportingService) AllReservations(ctx context.Context) ([]repository.AdminHistoryItem, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	return listWithRetry(ctx, s.reservations.ListAll)
}

// Revenue returns per-lot revenue over all closed reservations.
func (s *ReportingService) Revenue(ctx context.Context) ([]repository.RevenueRow, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	return listWithRetry(ctx, s.reservations.RevenueByLot)
}
