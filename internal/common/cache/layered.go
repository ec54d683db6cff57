package cache

import (
	"context"
	"time"

	"clientatech-agent/internal/models"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LayeredStore fronts a persistent store with an in-process expirable LRU.
type LayeredStore struct {
	l1      *expirable.LRU[string, *models.CacheEntry]
	backing Store
}

// NewLayeredStore keeps at most size entries in memory for l1TTL each. l1TTL
// should not exceed the backing store's TTL.
func NewLayeredStore(backing Store, size int, l1TTL time.Duration) *LayeredStore {
	return &LayeredStore{
		l1:      expirable.NewLRU[string, *models.CacheEntry](size, nil, l1TTL),
		backing: backing,
	}
}

func (s *LayeredStore) Get(ctx context.Context, fingerprint string) (*models.CacheEntry, error) {
	if entry, ok := s.l1.Get(fingerprint); ok {
		return entry, nil
	}

	entry, err := s.backing.Get(ctx, fingerprint)
	if err != nil {
		return nil, err
	}
	s.l1.Add(fingerprint, entry)
	return entry, nil
}

// Put writes through to the backing store. The in-memory copy is kept even
// when the backing write fails.
func (s *LayeredStore) Put(ctx context.Context, entry *models.CacheEntry) error {
	s.l1.Add(entry.Fingerprint, entry)
	return s.backing.Put(ctx, entry)
}

func (s *LayeredStore) Purge(ctx context.Context) (int, error) {
	s.l1.Purge()
	return s.backing.Purge(ctx)
}

// Len is the number of entries held in memory.
func (s *LayeredStore) Len() int {
	return s.l1.Len()
}
