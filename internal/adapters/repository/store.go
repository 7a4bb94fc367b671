// Package repository persists rendered invoice artifacts behind an opaque
// key-value interface.
package repository

import (
	"context"
	"strings"
)

// Store is a key-value store for invoice artifacts such as
// "invoice/AI-Acme.html". Values are returned as copies.
type Store interface {
	// Load returns the value for key or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)
	// Save creates or replaces the value for key.
	Save(ctx context.Context, key string, value []byte) error
	// Close releases underlying resources.
	Close() error
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	return nil
}
