package user

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/readtalk/log/internal/user/entity"
)

type fakeRepo struct {
	users   map[string]*entity.User
	nextID  string
	updated map[string]string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: map[string]*entity.User{}, nextID: "id-1", updated: map[string]string{}}
}

func (f *fakeRepo) FindOrCreate(_ context.Context, email string) (string, error) {
	if u, ok := f.users[email]; ok {
		return u.ID, nil
	}
	u := &entity.User{ID: f.nextID, Email: email}
	f.users[email] = u
	return u.ID, nil
}

func (f *fakeRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	u, ok := f.users[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (f *fakeRepo) UpdateProfile(_ context.Context, email, username string, fullName *string) error {
	u, ok := f.users[email]
	if !ok {
		return sql.ErrNoRows
	}
	u.Username = &username
	u.FullName = fullName
	f.updated[email] = username
	return nil
}

func TestFindOrCreate_StableID(t *testing.T) {
	svc := NewService(nil, newFakeRepo())

	first, err := svc.FindOrCreate(context.Background(), "new@example.com")
	require.NoError(t, err)
	second, err := svc.FindOrCreate(context.Background(), "new@example.com")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestGetByEmail_NotFound(t *testing.T) {
	svc := NewService(nil, newFakeRepo())

	_, err := svc.GetByEmail(context.Background(), "missing@example.com")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCompleteProfile(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(nil, repo)
	_, err := svc.FindOrCreate(context.Background(), "a@example.com")
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		fullName string
		wantErr  error
	}{
		{name: "valid", username: "alice", fullName: "Alice A"},
		{name: "trims whitespace", username: "  bob  ", fullName: ""},
		{name: "empty username", username: "", wantErr: ErrUsernameMissing},
		{name: "whitespace only username", username: "   ", wantErr: ErrUsernameMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.CompleteProfile(context.Background(), "a@example.com", tt.username, tt.fullName)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}

	u, err := svc.GetByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	require.NotNil(t, u.Username)
	require.Equal(t, "bob", *u.Username)
	require.Nil(t, u.FullName)
}

func TestCompleteProfile_UnknownEmail(t *testing.T) {
	svc := NewService(nil, newFakeRepo())

	err := svc.CompleteProfile(context.Background(), "nobody@example.com", "name", "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCompleteProfile_RepoErrorPassesThrough(t *testing.T) {
	boom := errors.New("db down")
	svc := NewService(nil, errRepo{err: boom})

	err := svc.CompleteProfile(context.Background(), "a@example.com", "name", "")
	require.ErrorIs(t, err, boom)
}

type errRepo struct{ err error }

func (e errRepo) FindOrCreate(context.Context, string) (string, error) { return "", e.err }
func (e errRepo) GetByEmail(context.Context, string) (*entity.User, error) {
	return nil, e.err
}
func (e errRepo) UpdateProfile(context.Context, string, string, *string) error { return e.err }
