package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// CredentialRepo stores password hashes for the issuer, keyed by email. It is
// deliberately separate from the user directory: the directory knows nothing
// about credentials.
type CredentialRepo struct {
	db *sqlx.DB
}

func NewCredentialRepo(db *sqlx.DB) *CredentialRepo {
	return &CredentialRepo{db: db}
}

// EnsureTable creates the issuer_credentials table if not exists (idempotent).
func (r *CredentialRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS issuer_credentials (
  email TEXT PRIMARY KEY,
  password_hash TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Upsert writes the hash for an email. A re-registration that passed code
// verification replaces the old hash, which doubles as password reset.
func (r *CredentialRepo) Upsert(ctx context.Context, email, passwordHash string) error {
	const q = `INSERT INTO issuer_credentials (email, password_hash) VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash, updated_at = NOW()`
	_, err := r.db.ExecContext(ctx, q, email, passwordHash)
	return err
}

// GetHash returns the stored hash for the email or sql.ErrNoRows.
func (r *CredentialRepo) GetHash(ctx context.Context, email string) (string, error) {
	const q = `SELECT password_hash FROM issuer_credentials WHERE email = $1`
	var hash string
	if err := r.db.GetContext(ctx, &hash, q, email); err != nil {
		return "", err
	}
	return hash, nil
}

// IsNotFound reports whether err is the driver's no-rows sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
