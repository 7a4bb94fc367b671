package allocation

import "errors"

var (
	// ErrMalformed marks extractor output that does not match the
	// allocation shape. It is the only error that is retried.
	ErrMalformed = errors.New("malformed extraction result")
	// ErrUnavailable marks an extractor that cannot be used, e.g. missing
	// credentials or an unreachable endpoint.
	ErrUnavailable = errors.New("extraction provider unavailable")
	// ErrInvalidHours is returned for negative or non-finite totals.
	ErrInvalidHours = errors.New("total hours must be a finite non-negative number")
)
