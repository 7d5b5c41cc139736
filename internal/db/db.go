package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
type Store interface {
	Pinger
	HashStore
	VersionedHashStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashStore provides hash-based key-value operations.
type HashStore interface {
	HGet(ctx context.Context, key, field string) (string, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
}

// VersionedField is one hash field written under a version guard.
// Note is stored alongside the value and may be empty.
type VersionedField struct {
	Field string
	Value string
	Note  string
}

// VersionedHashStore writes hash fields only where the stored version is not newer.
//
// For every field f the store keeps three hash fields: f (value),
// f+VersionSuffix (decimal version) and f+NoteSuffix (note). The check and
// the write run atomically per call, so an older writer never overwrites a
// newer one and equal versions overwrite idempotently.
type VersionedHashStore interface {
	// HSetIfNewer returns one flag per field: true if written, false if a
	// newer version was already stored.
	HSetIfNewer(ctx context.Context, key string, version int64, fields []VersionedField) ([]bool, error)
}

// Suffixes of the companion fields kept by VersionedHashStore.
const (
	VersionSuffix = "@v"
	NoteSuffix    = "@d"
)
