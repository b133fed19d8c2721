package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lucci-xyz/pilot/internal/model"
)

const userColumns = `id, email, password_hash, name, avatar, created_at, updated_at`

func (p *Postgres) CreateUser(ctx context.Context, user *model.User) error {
	err := p.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, name, avatar)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, user.Email, user.PasswordHash, user.Name, user.Avatar).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return p.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (p *Postgres) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return p.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (p *Postgres) scanUser(ctx context.Context, query string, args ...interface{}) (*model.User, error) {
	var u model.User
	err := p.pool.QueryRow(ctx, query, args...).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Avatar, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}
