package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lucci-xyz/pilot/internal/model"
)

const apiKeyColumns = `id, user_id, name, key_hash, key_prefix, permissions,
	expires_at, last_used_at, request_count, created_at`

func (p *Postgres) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	perms, err := json.Marshal(key.Permissions)
	if err != nil {
		return fmt.Errorf("marshal permissions: %w", err)
	}

	err = p.pool.QueryRow(ctx, `
		INSERT INTO api_keys (user_id, name, key_hash, key_prefix, permissions, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, request_count, created_at
	`, key.UserID, key.Name, key.KeyHash, key.KeyPrefix, perms, key.ExpiresAt).
		Scan(&key.ID, &key.RequestCount, &key.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert api_key: %w", err)
	}
	return nil
}

func (p *Postgres) GetAPIKeyByHash(ctx context.Context, keyHash string) (*model.APIKey, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = $1`, keyHash)
	if err != nil {
		return nil, fmt.Errorf("query api_key: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query api_key: %w", err)
		}
		return nil, pgx.ErrNoRows
	}
	return scanAPIKeyFromRow(rows)
}

func (p *Postgres) ListAPIKeysByUser(ctx context.Context, userID uuid.UUID) ([]*model.APIKey, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+apiKeyColumns+` FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list api_keys: %w", err)
	}
	defer rows.Close()

	var keys []*model.APIKey
	for rows.Next() {
		key, err := scanAPIKeyFromRow(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (p *Postgres) DeleteAPIKey(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM api_keys WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete api_key: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// TouchAPIKey records a successful verification: bumps request_count and
// stamps last_used_at. Every verification counts as a use.
func (p *Postgres) TouchAPIKey(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE api_keys SET request_count = request_count + 1, last_used_at = $1 WHERE id = $2
	`, usedAt, id)
	if err != nil {
		return fmt.Errorf("touch api_key: %w", err)
	}
	return nil
}

func scanAPIKeyFromRow(rows pgx.Rows) (*model.APIKey, error) {
	var key model.APIKey
	var permsJSON []byte

	err := rows.Scan(
		&key.ID, &key.UserID, &key.Name, &key.KeyHash, &key.KeyPrefix, &permsJSON,
		&key.ExpiresAt, &key.LastUsedAt, &key.RequestCount, &key.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan api_key: %w", err)
	}

	if err := json.Unmarshal(permsJSON, &key.Permissions); err != nil {
		return nil, fmt.Errorf("unmarshal permissions: %w", err)
	}
	return &key, nil
}
