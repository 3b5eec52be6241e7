package apperr

import "errors"

var (
	ErrUnknownCategory    = errors.New("unknown category")
	ErrFetch              = errors.New("fetch failed")
	ErrStaleLoad          = errors.New("stale load discarded")
	ErrControlUnavailable = errors.New("sort control unavailable")
	ErrNothingToPick      = errors.New("nothing to pick")
	ErrAggregate          = errors.New("aggregate view failed")
)
