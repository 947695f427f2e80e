package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civica-dev/accounts/cache"
)

func newStore(t *testing.T) *cache.MemoryTokenStore {
	t.Helper()
	store := cache.NewMemoryTokenStore(time.Hour)
	t.Cleanup(store.Close)
	return store
}

func TestMemoryTokenStore_SetGet(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	entry := &cache.SessionEntry{
		Token:     "some.jwt.token",
		SubjectID: "account-123",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, store.Set(ctx, entry))

	got, ok := store.Get(ctx, "some.jwt.token")
	require.True(t, ok)
	assert.Equal(t, "account-123", got.SubjectID)

	_, ok = store.Get(ctx, "different.jwt.token")
	assert.False(t, ok)
}

func TestMemoryTokenStore_ExpiredEntryIsIgnored(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, &cache.SessionEntry{
		Token:     "expired.jwt.token",
		SubjectID: "account-123",
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	_, ok := store.Get(ctx, "expired.jwt.token")
	assert.False(t, ok)
}

func TestMemoryTokenStore_Delete(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, &cache.SessionEntry{
		Token:     "some.jwt.token",
		SubjectID: "account-123",
		ExpiresAt: time.Now().Add(time.Hour),
	}))
	require.NoError(t, store.Delete(ctx, "some.jwt.token"))

	_, ok := store.Get(ctx, "some.jwt.token")
	assert.False(t, ok)
}

func TestHashToken(t *testing.T) {
	a := cache.HashToken("token-a")
	b := cache.HashToken("token-b")

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, cache.HashToken("token-a"))
}
