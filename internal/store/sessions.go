package store

import (
	"context"
	"fmt"

	"github.com/lucci-xyz/pilot/internal/model"
)

func (p *Postgres) CreateSession(ctx context.Context, session *model.Session) error {
	err := p.pool.QueryRow(ctx, `
		INSERT INTO sessions (token, user_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, session.Token, session.UserID, session.ExpiresAt).
		Scan(&session.ID, &session.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (p *Postgres) GetSessionByToken(ctx context.Context, token string) (*model.Session, error) {
	var s model.Session
	err := p.pool.QueryRow(ctx, `
		SELECT id, token, user_id, expires_at, created_at
		FROM sessions WHERE token = $1
	`, token).Scan(&s.ID, &s.Token, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	return &s, nil
}

func (p *Postgres) DeleteSessionByToken(ctx context.Context, token string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
