// Package cache persists answered queries keyed by query fingerprint.
package cache

import (
	"context"
	"errors"

	"clientatech-agent/internal/models"
)

// ErrCacheMiss is returned by Get when no live entry exists. Any other Get
// error means the store itself is unhealthy.
var ErrCacheMiss = errors.New("CACHE_MISS")

// Store is safe for concurrent use. Put replaces an existing entry atomically.
type Store interface {
	Get(ctx context.Context, fingerprint string) (*models.CacheEntry, error)
	Put(ctx context.Context, entry *models.CacheEntry) error
	Purge(ctx context.Context) (int, error)
}
