package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Journal stores, event publishers and
// other infrastructure return these (optionally wrapped) so the ledger service can
// translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: write collides with an existing record (duplicate sequence)
// - ErrInvalidState: record in wrong state for requested operation
// - ErrUnavailable: backend temporarily unavailable
//
// For ledger rule violations use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
