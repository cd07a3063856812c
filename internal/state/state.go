// Package state holds short-lived continuation sessions that let a
// multi-step login flow survive a redirect round trip. A session is keyed by
// a random opaque token and is valid for exactly one successful take or
// until its TTL passes, whichever comes first.
package state

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"
)

// ProfileKeyPrefix namespaces profile-completion sessions in the store.
const ProfileKeyPrefix = "profile_state:"

// SignupKeyPrefix namespaces pending password registrations.
const SignupKeyPrefix = "signup_code:"

// ErrNotFound is returned when a key is absent or its TTL has passed. The
// two cases are indistinguishable on purpose.
var ErrNotFound = errors.New("state not found")

// Session is the payload stored against a continuation token.
type Session struct {
	Email string `json:"email"`
	// Code and PasswordHash are only set for pending signups.
	Code         string `json:"code,omitempty"`
	PasswordHash string `json:"password_hash,omitempty"`
}

// Store is the contract the handshake depends on. Put unconditionally
// overwrites. Take is an atomic get-and-delete-if-present; it removes the
// double-submit race a separate Get/Delete pair would leave open.
type Store interface {
	Put(ctx context.Context, key string, s Session, ttl time.Duration) error
	Get(ctx context.Context, key string) (*Session, error)
	Take(ctx context.Context, key string) (*Session, error)
	Delete(ctx context.Context, key string) error
}

// NewToken returns a high-entropy opaque token safe for URL query parameters.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
