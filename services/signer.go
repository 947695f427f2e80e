package services

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidKeyID = errors.New("invalid key id")

type TokenSignerFunc func(claims jwt.Claims) (string, error)

// TokenSigner signs session token claims with a process-wide secret. Keys are
// registered once at startup and read-only afterwards.
type TokenSigner struct {
	signers    map[string]TokenSignerFunc
	verifyKeys map[string][]byte
}

// NewTokenSigner creates a new TokenSigner instance.
func NewTokenSigner() *TokenSigner {
	return &TokenSigner{
		signers:    make(map[string]TokenSignerFunc),
		verifyKeys: make(map[string][]byte),
	}
}

// AddKeySigner registers an HS256 signer under the default key id.
func (s *TokenSigner) AddKeySigner(secretKey string) {
	s.verifyKeys["default"] = []byte(secretKey)
	s.signers["default"] = func(claims jwt.Claims) (string, error) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

		tokenString, err := token.SignedString([]byte(secretKey))
		if err != nil {
			return "", fmt.Errorf("failed to sign token: %w", err)
		}

		return tokenString, nil
	}
}

// Sign signs claims with the given key, or the default key when keyID is
// empty.
func (s *TokenSigner) Sign(claims jwt.Claims, keyID string) (string, error) {
	if keyID == "" {
		keyID = "default"
	}
	if signer, ok := s.signers[keyID]; ok {
		return signer(claims)
	}
	return "", ErrInvalidKeyID
}

// Keyfunc returns the jwt keyfunc used for verification. Only HS256 tokens
// are accepted.
func (s *TokenSigner) Keyfunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	key, ok := s.verifyKeys["default"]
	if !ok {
		return nil, ErrInvalidKeyID
	}
	return key, nil
}
