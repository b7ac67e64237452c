package admin

import (
	"context"
	"time"
)

type Admin struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Repository interface {
	GetByUsername(ctx context.Context, username string) (*Admin, error)
	// Upsert creates the account or replaces its password hash.
	Upsert(ctx context.Context, a *Admin) error
}
