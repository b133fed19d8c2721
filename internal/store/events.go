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

// RecordFunding inserts a funding credit and increments the vault balance in
// one transaction, so the ledger and the balance cannot diverge.
func (p *Postgres) RecordFunding(ctx context.Context, event *model.Event) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO events (type, amount, status, tx_hash, vault_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, event.Type, event.Amount, event.Status, event.TxHash, event.VaultID).
		Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert funding event: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE vaults SET balance = balance + $1 WHERE id = $2
	`, event.Amount, event.VaultID)
	if err != nil {
		return fmt.Errorf("increment vault balance: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// AppendSpend appends a spend debit to the ledger. The vault balance is not
// debited here; balances move only on funding.
func (p *Postgres) AppendSpend(ctx context.Context, event *model.Event) error {
	var metadata []byte
	if event.Metadata != nil {
		var err error
		metadata, err = json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
	}

	err := p.pool.QueryRow(ctx, `
		INSERT INTO events (type, amount, status, metadata, vault_id, agent_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, event.Type, event.Amount, event.Status, metadata, event.VaultID, event.AgentID).
		Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert spend event: %w", err)
	}
	return nil
}

const eventColumns = `id, type, amount, status, tx_hash, metadata, vault_id, agent_id, created_at`

func (p *Postgres) ListEventsByVault(ctx context.Context, vaultID uuid.UUID, limit int) ([]*model.Event, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE vault_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, vaultID, limit)
	if err != nil {
		return nil, fmt.Errorf("list vault events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (p *Postgres) ListAgentEvents(ctx context.Context, agentID uuid.UUID, since time.Time) ([]*model.Event, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE agent_id = $1 AND status = 'confirmed' AND created_at >= $2
		ORDER BY created_at ASC
	`, agentID, since)
	if err != nil {
		return nil, fmt.Errorf("list agent events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (p *Postgres) ListRecentAgentEvents(ctx context.Context, agentID uuid.UUID, limit int) ([]*model.Event, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE agent_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent agent events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (p *Postgres) ListUserSpendEvents(ctx context.Context, userID uuid.UUID, since time.Time) ([]*model.Event, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT e.id, e.type, e.amount, e.status, e.tx_hash, e.metadata, e.vault_id, e.agent_id, e.created_at
		FROM events e
		JOIN vaults v ON v.id = e.vault_id
		JOIN projects p ON p.id = v.project_id
		WHERE p.user_id = $1 AND e.type = 'spend' AND e.status = 'confirmed' AND e.created_at >= $2
		ORDER BY e.created_at ASC
	`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("list user spend events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (p *Postgres) ListUserActivity(ctx context.Context, userID uuid.UUID, limit int) ([]*model.ActivityItem, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT e.id, e.type, e.amount, e.status, e.tx_hash, e.metadata, e.created_at,
		       a.name, p.name
		FROM events e
		JOIN vaults v ON v.id = e.vault_id
		JOIN projects p ON p.id = v.project_id
		LEFT JOIN agents a ON a.id = e.agent_id
		WHERE p.user_id = $1
		ORDER BY e.created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list user activity: %w", err)
	}
	defer rows.Close()
	return scanActivity(rows)
}

func (p *Postgres) ListProjectActivity(ctx context.Context, vaultID uuid.UUID, limit int) ([]*model.ActivityItem, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT e.id, e.type, e.amount, e.status, e.tx_hash, e.metadata, e.created_at,
		       a.name, p.name
		FROM events e
		JOIN vaults v ON v.id = e.vault_id
		JOIN projects p ON p.id = v.project_id
		LEFT JOIN agents a ON a.id = e.agent_id
		WHERE e.vault_id = $1
		ORDER BY e.created_at DESC
		LIMIT $2
	`, vaultID, limit)
	if err != nil {
		return nil, fmt.Errorf("list project activity: %w", err)
	}
	defer rows.Close()
	return scanActivity(rows)
}

func (p *Postgres) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func scanEvents(rows pgx.Rows) ([]*model.Event, error) {
	var events []*model.Event
	for rows.Next() {
		var e model.Event
		var metadata []byte
		err := rows.Scan(
			&e.ID, &e.Type, &e.Amount, &e.Status, &e.TxHash, &metadata,
			&e.VaultID, &e.AgentID, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if len(metadata) > 0 {
			e.Metadata = &model.SpendMetadata{}
			if err := json.Unmarshal(metadata, e.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

func scanActivity(rows pgx.Rows) ([]*model.ActivityItem, error) {
	var items []*model.ActivityItem
	for rows.Next() {
		var item model.ActivityItem
		var agentName *string
		var metadata []byte
		err := rows.Scan(
			&item.ID, &item.Type, &item.Amount, &item.Status, &item.TxHash, &metadata,
			&item.CreatedAt, &agentName, &item.ProjectName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan activity item: %w", err)
		}
		if agentName != nil {
			item.AgentName = *agentName
		}
		if len(metadata) > 0 {
			item.Metadata = &model.SpendMetadata{}
			if err := json.Unmarshal(metadata, item.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}
