package cache

import (
	"context"
	"errors"
)

// ErrStore marks failures of the backing store. They are fatal to a run.
var ErrStore = errors.New("popularity cache store")

// KeyValueStore is the byte-level capability behind a PopularityCache.
type KeyValueStore interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error
	// Close flushes and releases the store.
	Close() error
}
