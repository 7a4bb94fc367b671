// Package dedupe tracks identifiers already seen within one ingestion batch.
package dedupe

import (
	"context"
	"sync"
)

// Deduper records seen identifiers so that only the first occurrence wins.
type Deduper interface {
	// SeenAndRecord reports whether id was already recorded and records it
	// if it was not. It is safe for concurrent use.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a later occurrence is accepted again. Used
	// when the first occurrence turned out to be unusable.
	Unrecord(ctx context.Context, id string)
}

// inMemoryDeduper is a case-sensitive set living as long as one parse call.
type inMemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewInMemoryDeduper creates an empty in-memory deduper.
func NewInMemoryDeduper() Deduper {
	return &inMemoryDeduper{seen: make(map[string]struct{})}
}

// SeenAndRecord implements Deduper.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	d.seen[id] = struct{}{}
	return false
}

// Unrecord implements Deduper.
func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, id)
}
