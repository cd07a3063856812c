package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// PostgresStore persists continuation sessions in an auth_state table with
// an expiry column. Expired rows are invisible to reads and swept
// opportunistically on writes.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureTable creates the auth_state table if not exists (idempotent).
func (s *PostgresStore) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS auth_state (
  key TEXT PRIMARY KEY,
  payload JSONB NOT NULL,
  expires_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_auth_state_expires_at ON auth_state (expires_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

func (s *PostgresStore) Put(ctx context.Context, key string, sess Session, ttl time.Duration) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	const q = `INSERT INTO auth_state (key, payload, expires_at) VALUES ($1, $2, NOW() + $3 * INTERVAL '1 second')
		ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, expires_at = EXCLUDED.expires_at`
	if _, err := s.db.ExecContext(ctx, q, key, payload, ttl.Seconds()); err != nil {
		return err
	}
	// keep the table from accumulating dead sessions
	_, _ = s.db.ExecContext(ctx, `DELETE FROM auth_state WHERE expires_at <= NOW()`)
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (*Session, error) {
	const q = `SELECT payload FROM auth_state WHERE key = $1 AND expires_at > NOW()`
	var payload []byte
	if err := s.db.GetContext(ctx, &payload, q, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return unmarshalSession(payload)
}

// Take deletes the key and returns its payload in one statement, so two
// concurrent submitters can never both consume the same token.
func (s *PostgresStore) Take(ctx context.Context, key string) (*Session, error) {
	const q = `DELETE FROM auth_state WHERE key = $1 AND expires_at > NOW() RETURNING payload`
	var payload []byte
	if err := s.db.GetContext(ctx, &payload, q, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return unmarshalSession(payload)
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM auth_state WHERE key = $1`, key)
	return err
}

func unmarshalSession(payload []byte) (*Session, error) {
	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return &sess, nil
}

var _ Store = (*PostgresStore)(nil)
