package candidate

import (
	"context"
	"errors"
)

var (
	ErrNameRequired = errors.New("candidate full name required")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, c *Candidate) error {
	if c.FullName == "" {
		return ErrNameRequired
	}
	return s.repo.Create(ctx, c)
}

func (s *Service) Get(ctx context.Context, id int64) (*Candidate, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Candidate, error) {
	return s.repo.List(ctx)
}

func (s *Service) Update(ctx context.Context, c *Candidate) error {
	if c.FullName == "" {
		return ErrNameRequired
	}
	return s.repo.Update(ctx, c)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
