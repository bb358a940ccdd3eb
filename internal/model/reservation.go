package model

import "time"

// Reservation records one parking session linking a user to a spot.
// A reservation is active while EndedAt is nil; releasing it sets
// EndedAt and CostCents exactly once and the record is never
// mutated again. At most one active reservation exists per user.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – user who parked.
//  SpotID    – spot being occupied.
//  StartedAt – when the spot was claimed.
//  EndedAt   – when the spot was released (nil while active).
//  CostCents – total cost in cents (nil until release).
type Reservation struct {
	ID        uint64     // reservations.id
	UserID    uint64     // reservations.user_id
	SpotID    uint64     // reservations.spot_id
	StartedAt time.Time  // reservations.started_at
	EndedAt   *time.Time // reservations.ended_at (nullable)
	CostCents *int64     // reservations.cost_cents (nullable)
}

// Active reports whether the reservation is still open.
func (r *Reservation) Active() bool { return r.EndedAt == nil }
