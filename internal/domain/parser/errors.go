package parser

import "errors"

var (
	// ErrNotArray is returned when a records document is not a JSON array.
	ErrNotArray = errors.New("records document is not a JSON array")
	// ErrCalendar is returned when an iCalendar stream cannot be decoded.
	ErrCalendar = errors.New("undecodable calendar stream")
	// ErrTimestamp is returned for values that match no accepted layout.
	ErrTimestamp = errors.New("unrecognized timestamp")
)
