// Package db defines the key-value store contract backing the embedding
// cache. No TTL or eviction semantics are required: cache entries are
// invalidated purely by content-hash mismatch.
package db

import (
	"context"
	"time"
)

// Store is the key-value facade consumed by the embedding cache.
type Store interface {
	KVStore
	Pinger
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides the cache operations: point reads/writes plus a
// pattern scan used for bulk prefix deletes.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}
