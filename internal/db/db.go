// Package db defines the key-value surface shared by the embedding cache and
// the budget counters.
package db

import (
	"context"
	"time"
)

// Store is the database facade. Consumers depend on the narrow sub-interfaces.
type Store interface {
	Pinger
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Item is one value to write. Zero TTL keeps the key until evicted.
type Item struct {
	Key   string
	Value []byte
	TTL   time.Duration
}

// KVStore provides the key-value operations the caches and counters need.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// GetMulti returns one entry per key, nil where the key is missing.
	GetMulti(ctx context.Context, keys []string) ([][]byte, error)
	Set(ctx context.Context, item Item) error
	SetMulti(ctx context.Context, items []Item) error
	// IncrWithExpiry adds delta and sets ttl only if the key has no expiry yet.
	IncrWithExpiry(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
}
