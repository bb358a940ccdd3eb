// Package repository defines the data access layer over the MySQL
// ledger store. Sentinel errors declared here are shared across
// repositories so that services and handlers can distinguish failure
// scenarios with errors.Is without inspecting driver errors.
package repository

import "errors"

// ErrLotNotFound is returned when a lot lookup yields no rows.
var ErrLotNotFound = errors.New("lot not found")

// ErrUsernameExists is returned when a user insert collides with the
// unique username index.
var ErrUsernameExists = errors.New("username already exists")
