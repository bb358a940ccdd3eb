package model

import "time"

// Spot statuses stored in spots.status. A spot is occupied exactly
// while a reservation with no end timestamp points at it; Reserve
// and Release are the only operations that change the status.
const (
	SpotAvailable = "available"
	SpotOccupied  = "occupied"
)

// Spot is one allocatable unit within a lot. Spots are numbered
// 1..N within their lot; the number is stable for the lifetime of
// the spot and is used as the deterministic allocation tie-break
// (lowest free number wins).
//
// Fields:
//  ID         – primary key identifier.
//  LotID      – lot to which this spot belongs.
//  SpotNumber – position within the lot (1-based).
//  Status     – "available" or "occupied".
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Spot struct {
	ID         uint64    // spots.id
	LotID      uint64    // spots.lot_id
	SpotNumber uint32    // spots.spot_number
	Status     string    // spots.status
	CreatedAt  time.Time // spots.created_at
	UpdatedAt  time.Time // spots.updated_at
}
