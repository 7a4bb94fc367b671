package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnknownFormat  = errors.New("unknown calendar format")
	ErrNotFound       = errors.New("invoice artifact not found")
)
