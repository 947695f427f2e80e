package cache

import (
	"context"
	"time"
)

// SessionEntry is a verified session token with the claims extracted from it.
type SessionEntry struct {
	Token     string    `json:"token"`
	SubjectID string    `json:"subject_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenStore caches verified session tokens so repeated requests skip the
// signature check. Entries expire with the token; the store is a cache, not a
// revocation mechanism.
type TokenStore interface {
	Set(ctx context.Context, entry *SessionEntry) error
	Get(ctx context.Context, token string) (*SessionEntry, bool)
	Delete(ctx context.Context, token string) error
	Close()
}
