package domain

import "errors"

// Expected failure modes of the booking core. Store failures are not part of
// this set: they propagate wrapped so callers never mistake an outage for a
// missing row.
var (
	ErrNotFound     = errors.New("not found")
	ErrSeatConflict = errors.New("seat already occupied")
	ErrValidation   = errors.New("validation failed")
)
