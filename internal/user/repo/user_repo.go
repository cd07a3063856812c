package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/readtalk/log/internal/user/entity"
	"github.com/readtalk/log/pkg/utilities"
)

// UserRepo provides data access for the users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// EnsureTable creates the users table if not exists (idempotent).
// This is a convenience for early development; prefer migrations in production.
func (r *UserRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS users (
  id varchar(32) PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  username TEXT,
  full_name TEXT,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_users_username ON users (username);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// FindOrCreate inserts a user for the email if none exists and returns the
// row's id either way. The insert is an upsert at the storage layer, so two
// concurrent logins for a new email cannot create duplicate rows.
func (r *UserRepo) FindOrCreate(ctx context.Context, email string) (string, error) {
	const ins = `INSERT INTO users (id, email) VALUES ($1, $2) ON CONFLICT (email) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, ins, utilities.NewKSUID(), email); err != nil {
		return "", err
	}
	const sel = `SELECT id FROM users WHERE email = $1`
	var id string
	if err := r.db.GetContext(ctx, &id, sel, email); err != nil {
		return "", err
	}
	return id, nil
}

// GetByEmail returns the user matched by email or sql.ErrNoRows.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	const q = `SELECT id, email, username, full_name, created_at, updated_at FROM users WHERE email = $1`
	var row entity.User
	if err := r.db.GetContext(ctx, &row, q, email); err != nil {
		return nil, err
	}
	return &row, nil
}

// UpdateProfile sets username and full_name on the row matching email.
// Writing the same values twice is harmless, which keeps the completion
// submission idempotent.
func (r *UserRepo) UpdateProfile(ctx context.Context, email, username string, fullName *string) error {
	const q = `UPDATE users SET username = $2, full_name = $3, updated_at = NOW() WHERE email = $1`
	res, err := r.db.ExecContext(ctx, q, email, username, fullName)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// IsNotFound reports whether err is the driver's no-rows sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
