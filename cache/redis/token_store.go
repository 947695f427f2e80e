package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/civica-dev/accounts/cache"
)

// TokenStore implements cache.TokenStore on Redis, for deployments running
// more than one instance behind a balancer.
type TokenStore struct {
	client *redis.Client
	prefix string
}

// NewTokenStore creates a new [TokenStore] instance.
func NewTokenStore(client *redis.Client, prefix string) *TokenStore {
	return &TokenStore{
		client: client,
		prefix: prefix,
	}
}

func (r *TokenStore) redisKey(token string) string {
	return fmt.Sprintf("%s:session:%s", r.prefix, cache.HashToken(token))
}

// Set stores a verified session entry with an expiry matching the token's.
func (r *TokenStore) Set(ctx context.Context, entry *cache.SessionEntry) error {
	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal session entry: %w", err)
	}
	if err := r.client.Set(ctx, r.redisKey(entry.Token), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set session entry in Redis: %w", err)
	}
	return nil
}

// Get retrieves a session entry from Redis.
func (r *TokenStore) Get(ctx context.Context, token string) (*cache.SessionEntry, bool) {
	payload, err := r.client.Get(ctx, r.redisKey(token)).Bytes()
	if err != nil {
		return nil, false
	}
	var entry cache.SessionEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, false
	}
	if time.Now().After(entry.ExpiresAt) {
		return nil, false
	}
	return &entry, true
}

// Delete removes a session entry.
func (r *TokenStore) Delete(ctx context.Context, token string) error {
	return r.client.Del(ctx, r.redisKey(token)).Err()
}

// Close is a no-op; the redis client is owned by the caller.
func (r *TokenStore) Close() {}

var _ cache.TokenStore = (*TokenStore)(nil)
