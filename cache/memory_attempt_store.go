package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryAttemptStore implements AttemptStore using ttlcache. Suitable for
// development and tests; counters are lost on restart and not shared between
// instances.
type MemoryAttemptStore struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[string, int64]
}

// NewMemoryAttemptStore creates an in-memory attempt store with automatic
// expiry of idle counters.
func NewMemoryAttemptStore(cleanupInterval time.Duration) *MemoryAttemptStore {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, int64](cleanupInterval),
		ttlcache.WithDisableTouchOnHit[string, int64](),
	)

	go cache.Start()

	return &MemoryAttemptStore{cache: cache}
}

// Increment implements AttemptStore.Increment.
func (s *MemoryAttemptStore) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64 = 1
	if item := s.cache.Get(key); item != nil {
		count = item.Value() + 1
	}
	s.cache.Set(key, count, ttl)
	return count, nil
}

// Get implements AttemptStore.Get.
func (s *MemoryAttemptStore) Get(_ context.Context, key string) (int64, error) {
	item := s.cache.Get(key)
	if item == nil {
		return 0, nil
	}
	return item.Value(), nil
}

// Clear implements AttemptStore.Clear.
func (s *MemoryAttemptStore) Clear(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

// Stop terminates the background cleanup goroutine.
func (s *MemoryAttemptStore) Stop() {
	s.cache.Stop()
}
