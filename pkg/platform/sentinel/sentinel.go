package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, caches and remote clients return
// these (optionally wrapped) so services can translate them into domain errors.
//
// - ErrNotFound: record does not exist in the store
// - ErrConflict: write collides with an existing record
// - ErrExpired: session or token has expired
// - ErrInvalidState: record in wrong state for the requested operation
// - ErrUnavailable: dependency temporarily unavailable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
