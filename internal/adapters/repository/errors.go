package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound   = errors.New("artifact not found")
	ErrInvalidKey = errors.New("invalid artifact key")
	ErrClosed     = errors.New("store closed")
)
