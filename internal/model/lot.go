package model

import "time"

// Lot describes a parking facility. Each lot owns a fixed set of
// spots created together with the lot row; resizing a lot after
// creation is not supported. Prices are stored in integer cents
// per hour to avoid floating point drift in billing.
//
// Fields:
//  ID                – primary key identifier.
//  Name              – display name of the facility.
//  Address           – street address.
//  PinCode           – postal code.
//  PriceCentsPerHour – hourly price in cents (non-negative).
//  NumberOfSpots     – declared spot count, fixed at creation.
//  CreatedAt         – creation timestamp.
//  UpdatedAt         – last update timestamp.
type Lot struct {
	ID                uint64    // lots.id
	Name              string    // lots.name
	Address           string    // lots.address
	PinCode           string    // lots.pin_code
	PriceCentsPerHour uint32    // lots.price_cents_per_hour
	NumberOfSpots     uint32    // lots.number_of_spots
	CreatedAt         time.Time // lots.created_at
	UpdatedAt         time.Time // lots.updated_at
}
