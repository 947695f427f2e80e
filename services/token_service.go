package services

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/civica-dev/accounts/cache"
	apperrors "github.com/civica-dev/accounts/errors"
)

// SessionTokenService issues and verifies the stateless session tokens the
// transport carries in the jwt cookie. Tokens are HS256 JWTs of
// {sub, exp, iat, jti}; there is no server-side revocation, a token stays
// valid until natural expiry.
type SessionTokenService struct {
	signer *TokenSigner
	cache  cache.TokenStore
	issuer string
	ttl    time.Duration
}

// NewSessionTokenService creates a new SessionTokenService instance.
func NewSessionTokenService(signer *TokenSigner, tokenCache cache.TokenStore, issuer string, ttl time.Duration) *SessionTokenService {
	return &SessionTokenService{
		signer: signer,
		cache:  tokenCache,
		issuer: issuer,
		ttl:    ttl,
	}
}

// TTL returns the configured session lifetime.
func (s *SessionTokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a session token for the given subject, expiring after the
// configured TTL.
func (s *SessionTokenService) Issue(subjectID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   subjectID,
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	}
	return s.signer.Sign(claims, "")
}

// Verify checks signature and expiry and returns the subject id. Every
// failure mode (bad signature, expired, malformed) collapses into the same
// unauthorized error so callers cannot tell which check failed.
func (s *SessionTokenService) Verify(ctx context.Context, tokenString string) (string, error) {
	if entry, ok := s.cache.Get(ctx, tokenString); ok {
		return entry.SubjectID, nil
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, s.signer.Keyfunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid || claims.Subject == "" {
		log.Debug().Err(err).Msg("session token rejected")
		return "", apperrors.ErrUnauthorized
	}

	if err := s.cache.Set(ctx, &cache.SessionEntry{
		Token:     tokenString,
		SubjectID: claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}); err != nil {
		log.Warn().Err(err).Msg("failed to cache verified session token")
	}

	return claims.Subject, nil
}
