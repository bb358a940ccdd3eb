// Package service implements the allocation engine, billing and the
// reporting query surface. Errors declared here form the typed failure
// taxonomy returned to the route layer; handlers translate them to
// HTTP statuses with errors.Is and never receive raw driver errors
// disguised as success.
package service

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
)

// ErrActiveReservation is returned by Reserve when the user already
// has an open reservation.
var ErrActiveReservation = errors.New("user already has an active reservation")

// ErrNoActiveReservation is returned by Release when the user has no
// open reservation to close.
var ErrNoActiveReservation = errors.New("no active reservation")

// ErrNoAvailability is returned by Reserve when every spot in the lot
// is occupied.
var ErrNoAvailability = errors.New("no available spots in this lot")

// ErrLotOccupied is returned by DeleteLot while any spot of the lot
// is occupied.
var ErrLotOccupied = errors.New("lot has occupied spots")

// ErrInvalidInterval is returned by the billing calculator when the
// end of a reservation precedes its start.
var ErrInvalidInterval = errors.New("end precedes start")

// ErrInvalidInput is returned when a mutation receives malformed
// fields (empty name, zero spot count).
var ErrInvalidInput = errors.New("invalid input")

// ErrStoreUnavailable wraps transient ledger-store failures (timeouts,
// dropped connections). Operations failing with it are safe to retry;
// the engine never retries mutations itself.
var ErrStoreUnavailable = errors.New("store unavailable")

// transient reports whether err looks like a temporary store failure
// rather than a domain outcome.
func transient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// storeErr maps transient failures onto ErrStoreUnavailable and passes
// everything else through unchanged.
func storeErr(err error) error {
	if transient(err) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}
