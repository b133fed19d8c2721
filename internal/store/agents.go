package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lucci-xyz/pilot/internal/model"
)

// CreateAgentWithBudget inserts an agent and its budget rule in one
// transaction. Project ownership must be verified by the caller first.
func (p *Postgres) CreateAgentWithBudget(ctx context.Context, agent *model.Agent, rule *model.BudgetRule) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO agents (name, description, provider, model, status, project_id, webhook_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, agent.Name, agent.Description, agent.Provider,
		agent.Model, agent.Status, agent.ProjectID, agent.WebhookURL).
		Scan(&agent.ID, &agent.CreatedAt, &agent.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert agent: %w", err)
	}

	rule.AgentID = agent.ID
	err = tx.QueryRow(ctx, `
		INSERT INTO agent_budget_rules (agent_id, daily_limit, per_tx_limit, monthly_limit, daily_spent, monthly_spent)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, rule.AgentID, rule.DailyLimit, rule.PerTxLimit, rule.MonthlyLimit,
		rule.DailySpent, rule.MonthlySpent).
		Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert budget rule: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetAgent resolves an agent through the Agent -> Project -> User ownership
// chain. A miss and a foreign-owned agent look identical to the caller.
func (p *Postgres) GetAgent(ctx context.Context, id, userID uuid.UUID) (*model.Agent, error) {
	var a model.Agent
	err := p.pool.QueryRow(ctx, `
		SELECT a.id, a.name, a.description, a.provider, a.model, a.status,
		       a.project_id, a.webhook_url, a.created_at, a.updated_at
		FROM agents a
		JOIN projects p ON p.id = a.project_id
		WHERE a.id = $1 AND p.user_id = $2
	`, id, userID).Scan(
		&a.ID, &a.Name, &a.Description, &a.Provider, &a.Model, &a.Status,
		&a.ProjectID, &a.WebhookURL, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("query agent: %w", err)
	}
	return &a, nil
}

func (p *Postgres) GetBudgetRule(ctx context.Context, agentID uuid.UUID) (*model.BudgetRule, error) {
	var r model.BudgetRule
	err := p.pool.QueryRow(ctx, `
		SELECT id, agent_id, daily_limit, per_tx_limit, monthly_limit,
		       daily_spent, monthly_spent, created_at, updated_at
		FROM agent_budget_rules WHERE agent_id = $1
	`, agentID).Scan(
		&r.ID, &r.AgentID, &r.DailyLimit, &r.PerTxLimit, &r.MonthlyLimit,
		&r.DailySpent, &r.MonthlySpent, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("query budget rule: %w", err)
	}
	return &r, nil
}

func (p *Postgres) ListAgentSummaries(ctx context.Context, projectID uuid.UUID) ([]*model.AgentSummary, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT a.id, a.name, a.description, a.provider, a.model, a.status,
		       a.project_id, a.created_at,
		       COALESCE(br.daily_limit, 0), COALESCE(br.daily_spent, 0),
		       COALESCE(br.monthly_spent, 0),
		       COALESCE((
		           SELECT SUM(ABS(e.amount)) FROM events e
		           WHERE e.agent_id = a.id AND e.type = 'spend' AND e.status = 'confirmed'
		       ), 0)
		FROM agents a
		LEFT JOIN agent_budget_rules br ON br.agent_id = a.id
		WHERE a.project_id = $1
		ORDER BY a.created_at DESC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list agent summaries: %w", err)
	}
	defer rows.Close()

	var summaries []*model.AgentSummary
	for rows.Next() {
		var s model.AgentSummary
		err := rows.Scan(
			&s.ID, &s.Name, &s.Description, &s.Provider, &s.Model, &s.Status,
			&s.ProjectID, &s.CreatedAt,
			&s.DailyLimit, &s.DailySpent, &s.MonthlySpent, &s.TotalSpent,
		)
		if err != nil {
			return nil, fmt.Errorf("scan agent summary: %w", err)
		}
		summaries = append(summaries, &s)
	}
	return summaries, rows.Err()
}

func (p *Postgres) UpdateAgent(ctx context.Context, id, userID uuid.UUID, updates AgentUpdates) (bool, error) {
	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1

	add := func(col string, val interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, val)
		argIdx++
	}

	if updates.Name != nil {
		add("name", *updates.Name)
	}
	if updates.Description != nil {
		add("description", *updates.Description)
	}
	if updates.Provider != nil {
		add("provider", *updates.Provider)
	}
	if updates.Model != nil {
		add("model", *updates.Model)
	}
	if updates.Status != nil {
		add("status", *updates.Status)
	}
	if updates.WebhookURL != nil {
		add("webhook_url", *updates.WebhookURL)
	}

	if len(setClauses) == 0 {
		return true, nil
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id, userID)

	query := fmt.Sprintf(`
		UPDATE agents SET %s
		WHERE id = $%d AND project_id IN (SELECT id FROM projects WHERE user_id = $%d)
	`, strings.Join(setClauses, ", "), argIdx, argIdx+1)

	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update agent: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (p *Postgres) UpdateBudgetRule(ctx context.Context, agentID, userID uuid.UUID, updates BudgetUpdates) (bool, error) {
	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1

	if updates.DailyLimit != nil {
		setClauses = append(setClauses, fmt.Sprintf("daily_limit = $%d", argIdx))
		args = append(args, *updates.DailyLimit)
		argIdx++
	}
	if updates.PerTxLimit != nil {
		setClauses = append(setClauses, fmt.Sprintf("per_tx_limit = $%d", argIdx))
		args = append(args, *updates.PerTxLimit)
		argIdx++
	}
	if updates.MonthlyLimit != nil {
		setClauses = append(setClauses, fmt.Sprintf("monthly_limit = $%d", argIdx))
		args = append(args, *updates.MonthlyLimit)
		argIdx++
	}

	if len(setClauses) == 0 {
		return true, nil
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, agentID, userID)

	query := fmt.Sprintf(`
		UPDATE agent_budget_rules SET %s
		WHERE agent_id = $%d AND agent_id IN (
			SELECT a.id FROM agents a
			JOIN projects p ON p.id = a.project_id
			WHERE p.user_id = $%d
		)
	`, strings.Join(setClauses, ", "), argIdx, argIdx+1)

	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update budget rule: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (p *Postgres) DeleteAgent(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	tag, err := p.pool.Exec(ctx, `
		DELETE FROM agents
		WHERE id = $1 AND project_id IN (SELECT id FROM projects WHERE user_id = $2)
	`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete agent: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
