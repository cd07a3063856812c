package issuer

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/readtalk/log/internal/state"
)

type fakeCreds struct {
	hashes map[string]string
}

func newFakeCreds() *fakeCreds { return &fakeCreds{hashes: map[string]string{}} }

func (f *fakeCreds) Upsert(_ context.Context, email, hash string) error {
	f.hashes[email] = hash
	return nil
}

func (f *fakeCreds) GetHash(_ context.Context, email string) (string, error) {
	h, ok := f.hashes[email]
	if !ok {
		return "", sql.ErrNoRows
	}
	return h, nil
}

func newTestService(creds Credentials, store state.Store) *Service {
	svc := NewService(nil, creds, store, 600*time.Second)
	svc.cost = bcrypt.MinCost
	return svc
}

func TestSignupVerifyLogin_RoundTrip(t *testing.T) {
	creds := newFakeCreds()
	store := state.NewMemoryStore()
	svc := newTestService(creds, store)
	ctx := context.Background()

	code, err := svc.StartSignup(ctx, "new@example.com", "hunter2hunter2")
	require.NoError(t, err)
	require.Len(t, code, 6)

	require.NoError(t, svc.VerifySignup(ctx, "new@example.com", code))
	require.Contains(t, creds.hashes, "new@example.com")

	require.NoError(t, svc.Login(ctx, "new@example.com", "hunter2hunter2"))
	require.ErrorIs(t, svc.Login(ctx, "new@example.com", "wrong-password"), ErrBadCredentials)
}

func TestStartSignup_Validation(t *testing.T) {
	svc := newTestService(newFakeCreds(), state.NewMemoryStore())
	ctx := context.Background()

	_, err := svc.StartSignup(ctx, "not-an-email", "hunter2hunter2")
	require.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.StartSignup(ctx, "a@example.com", "short")
	require.ErrorIs(t, err, ErrPasswordTooWeak)
}

func TestVerifySignup_WrongCode(t *testing.T) {
	creds := newFakeCreds()
	store := state.NewMemoryStore()
	svc := newTestService(creds, store)
	ctx := context.Background()

	code, err := svc.StartSignup(ctx, "a@example.com", "hunter2hunter2")
	require.NoError(t, err)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	require.ErrorIs(t, svc.VerifySignup(ctx, "a@example.com", wrong), ErrCodeMismatch)

	// a wrong guess does not consume the pending signup
	require.NoError(t, svc.VerifySignup(ctx, "a@example.com", code))
}

func TestVerifySignup_SingleUse(t *testing.T) {
	svc := newTestService(newFakeCreds(), state.NewMemoryStore())
	ctx := context.Background()

	code, err := svc.StartSignup(ctx, "a@example.com", "hunter2hunter2")
	require.NoError(t, err)

	require.NoError(t, svc.VerifySignup(ctx, "a@example.com", code))
	require.ErrorIs(t, svc.VerifySignup(ctx, "a@example.com", code), ErrNoPendingSignup)
}

func TestVerifySignup_NoPending(t *testing.T) {
	svc := newTestService(newFakeCreds(), state.NewMemoryStore())

	err := svc.VerifySignup(context.Background(), "nobody@example.com", "123456")
	require.ErrorIs(t, err, ErrNoPendingSignup)
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc := newTestService(newFakeCreds(), state.NewMemoryStore())

	err := svc.Login(context.Background(), "nobody@example.com", "whatever")
	require.ErrorIs(t, err, ErrBadCredentials)
}
