// Package issuer verifies password credentials and, on success, hands the
// verified email to a completion callback supplied at wiring time. It owns
// the /authorize and /password/* surface the rest of the service treats as
// opaque.
package issuer

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	credrepo "github.com/readtalk/log/internal/issuer/repo"
	"github.com/readtalk/log/internal/state"
)

// Credentials is the storage surface the service needs; *repo.CredentialRepo
// is the Postgres implementation.
type Credentials interface {
	Upsert(ctx context.Context, email, passwordHash string) error
	GetHash(ctx context.Context, email string) (string, error)
}

var (
	ErrBadCredentials  = errors.New("invalid credentials")
	ErrInvalidEmail    = errors.New("invalid email")
	ErrPasswordTooWeak = errors.New("password too short")
	ErrCodeMismatch    = errors.New("verification code mismatch")
	ErrNoPendingSignup = errors.New("no pending signup")
)

const minPasswordLen = 8

// Service runs the password provider: registration with a one-time code
// stashed in the continuation store, code verification, and login.
type Service struct {
	creds   Credentials
	store   state.Store
	codeTTL time.Duration
	cost    int
}

func NewService(db *sqlx.DB, creds Credentials, store state.Store, codeTTL time.Duration) *Service {
	if creds == nil {
		creds = credrepo.NewCredentialRepo(db)
	}
	if codeTTL == 0 {
		codeTTL = 600 * time.Second
	}
	return &Service{creds: creds, store: store, codeTTL: codeTTL, cost: bcrypt.DefaultCost}
}

// StartSignup validates the registration, hashes the password and parks it
// with a fresh one-time code. The code is returned to the caller for
// delivery; this service never sends mail itself.
func (s *Service) StartSignup(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return "", ErrInvalidEmail
	}
	if len(password) < minPasswordLen {
		return "", ErrPasswordTooWeak
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}
	code, err := newCode()
	if err != nil {
		return "", err
	}
	sess := state.Session{Email: email, Code: code, PasswordHash: string(hash)}
	if err := s.store.Put(ctx, state.SignupKeyPrefix+email, sess, s.codeTTL); err != nil {
		return "", err
	}
	return code, nil
}

// VerifySignup checks the submitted code against the pending signup and, on
// match, persists the credential. The pending entry is consumed atomically so
// a code can never verify twice.
func (s *Service) VerifySignup(ctx context.Context, email, code string) error {
	email = strings.TrimSpace(email)
	sess, err := s.store.Get(ctx, state.SignupKeyPrefix+email)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return ErrNoPendingSignup
		}
		return err
	}
	if subtle.ConstantTimeCompare([]byte(sess.Code), []byte(strings.TrimSpace(code))) != 1 {
		return ErrCodeMismatch
	}
	if _, err := s.store.Take(ctx, state.SignupKeyPrefix+email); err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return ErrNoPendingSignup
		}
		return err
	}
	return s.creds.Upsert(ctx, email, sess.PasswordHash)
}

// Login verifies a password against the stored hash.
func (s *Service) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	hash, err := s.creds.GetHash(ctx, email)
	if err != nil {
		if credrepo.IsNotFound(err) {
			// same answer as a wrong password, to avoid account enumeration
			return ErrBadCredentials
		}
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return ErrBadCredentials
	}
	return nil
}

// newCode returns a 6-digit one-time code.
func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
