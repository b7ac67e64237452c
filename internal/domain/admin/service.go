package admin

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// EnsureDefault seeds the configured admin account at startup, updating the
// stored hash when the configured password changes.
func (s *Service) EnsureDefault(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return errors.New("admin username and password required")
	}

	if existing, err := s.repo.GetByUsername(ctx, username); err == nil {
		if bcrypt.CompareHashAndPassword([]byte(existing.PasswordHash), []byte(password)) == nil {
			return nil
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.Upsert(ctx, &Admin{Username: username, PasswordHash: string(hash)})
}

func (s *Service) Login(ctx context.Context, username, password string) (*Admin, error) {
	a, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return a, nil
}
