// Package token mints the bearer tokens handed to the chat application.
// Tokens are signed and expiring; the chat app verifies them with the shared
// secret and needs no callback into this service.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the verified user attributes the chat app needs.
type Claims struct {
	jwt.RegisteredClaims
	Email    string `json:"email"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// Minter signs and verifies bearer tokens with an HMAC secret.
type Minter struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewMinter(secret []byte, issuer string, ttl time.Duration) *Minter {
	if ttl == 0 {
		ttl = time.Hour
	}
	return &Minter{secret: secret, issuer: issuer, ttl: ttl}
}

// Mint produces a signed token string safe to embed in a URL query parameter.
func (m *Minter) Mint(email, userID, username string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Email:    email,
		UserID:   userID,
		Username: username,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify parses a minted token and returns its claims.
func (m *Minter) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
