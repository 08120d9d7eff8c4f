// Package storage is the derived-data cache behind the dashboard: address
// pages and group analytics snapshots keyed by well-known strings, each entry
// carrying the time it was written. Freshness is the reader's concern; the
// store never expires entries on its own, though stale ones can be purged.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when no entry exists for a key.
var ErrNotFound = errors.New("storage: entry not found")

// Database is a timestamped key-value store for cached JSON payloads.
type Database interface {
	// Get returns the entry for key and the time it was stored, or
	// ErrNotFound.
	Get(ctx context.Context, key string) (json.RawMessage, time.Time, error)

	// Put stores value under key, stamping it with the current time.
	Put(ctx context.Context, key string, value json.RawMessage) error

	// Purge deletes entries stored before olderThan and reports how many were
	// removed.
	Purge(ctx context.Context, olderThan time.Time) (int, error)

	// Lifecycle
	Close() error
}
