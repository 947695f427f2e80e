package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryTokenStore implements TokenStore using ttlcache.
type MemoryTokenStore struct {
	cache *ttlcache.Cache[string, *SessionEntry]
}

// NewMemoryTokenStore creates a new in-memory token store with automatic
// cleanup of expired entries.
func NewMemoryTokenStore(defaultTTL time.Duration) *MemoryTokenStore {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *SessionEntry](defaultTTL),
		ttlcache.WithDisableTouchOnHit[string, *SessionEntry](),
	)

	go cache.Start()

	return &MemoryTokenStore{cache: cache}
}

// Set stores a verified token until its natural expiry.
func (s *MemoryTokenStore) Set(_ context.Context, entry *SessionEntry) error {
	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	s.cache.Set(HashToken(entry.Token), entry, ttl)
	return nil
}

// Get retrieves a cached entry, reporting whether it was present and live.
func (s *MemoryTokenStore) Get(_ context.Context, token string) (*SessionEntry, bool) {
	item := s.cache.Get(HashToken(token))
	if item == nil {
		return nil, false
	}
	entry := item.Value()
	if time.Now().After(entry.ExpiresAt) {
		return nil, false
	}
	return entry, true
}

// Delete removes a token from the cache.
func (s *MemoryTokenStore) Delete(_ context.Context, token string) error {
	s.cache.Delete(HashToken(token))
	return nil
}

// Close stops the cleanup goroutine.
func (s *MemoryTokenStore) Close() {
	s.cache.Stop()
}

var _ TokenStore = (*MemoryTokenStore)(nil)
