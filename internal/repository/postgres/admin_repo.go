package postgres

import (
	"context"
	"database/sql"

	"voting-system/internal/domain/admin"
)

type AdminRepo struct {
	db *sql.DB
}

func NewAdminRepo(db *sql.DB) *AdminRepo {
	return &AdminRepo{db: db}
}

func (r *AdminRepo) GetByUsername(ctx context.Context, username string) (*admin.Admin, error) {
	a := &admin.Admin{}
	err := r.db.QueryRowContext(ctx, `
        SELECT id, username, password_hash, created_at
        FROM admin_users WHERE username = $1
    `, username).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AdminRepo) Upsert(ctx context.Context, a *admin.Admin) error {
	return r.db.QueryRowContext(ctx, `
        INSERT INTO admin_users (username, password_hash)
        VALUES ($1, $2)
        ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash
        RETURNING id, created_at
    `, a.Username, a.PasswordHash).Scan(&a.ID, &a.CreatedAt)
}
