package user

import (
	"context"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/readtalk/log/internal/user/entity"
	userrepo "github.com/readtalk/log/internal/user/repo"
)

// Repository is the data-access surface the service needs; *repo.UserRepo is
// the Postgres implementation.
type Repository interface {
	FindOrCreate(ctx context.Context, email string) (string, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	UpdateProfile(ctx context.Context, email, username string, fullName *string) error
}

var (
	ErrNotFound        = errors.New("user not found")
	ErrUsernameMissing = errors.New("username is required")
)

// Service owns user lifecycle rules: upsert on first authentication and the
// one-time profile update.
type Service struct {
	repo Repository
}

func NewService(db *sqlx.DB, r Repository) *Service {
	if r == nil {
		r = userrepo.NewUserRepo(db)
	}
	return &Service{repo: r}
}

// FindOrCreate returns the id for the email, creating the row on first login.
func (s *Service) FindOrCreate(ctx context.Context, email string) (string, error) {
	return s.repo.FindOrCreate(ctx, email)
}

// GetByEmail fetches the user record or ErrNotFound.
func (s *Service) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if userrepo.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

// CompleteProfile validates and persists the one-time profile submission.
// Username is required after trimming; full name is optional.
func (s *Service) CompleteProfile(ctx context.Context, email, username, fullName string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrUsernameMissing
	}
	var fn *string
	if v := strings.TrimSpace(fullName); v != "" {
		fn = &v
	}
	if err := s.repo.UpdateProfile(ctx, email, username, fn); err != nil {
		if userrepo.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
