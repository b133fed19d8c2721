package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lucci-xyz/pilot/internal/model"
)

// CreateProjectWithVault inserts a project and its vault in one transaction
// so a project can never exist without its balance holder.
func (p *Postgres) CreateProjectWithVault(ctx context.Context, project *model.Project, vault *model.Vault) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO projects (name, description, status, user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, project.Name, project.Description, project.Status, project.UserID).
		Scan(&project.ID, &project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}

	vault.ProjectID = project.ID
	err = tx.QueryRow(ctx, `
		INSERT INTO vaults (address, balance, project_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, vault.Address, vault.Balance, vault.ProjectID).
		Scan(&vault.ID, &vault.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert vault: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (p *Postgres) GetProject(ctx context.Context, id, userID uuid.UUID) (*model.Project, error) {
	var proj model.Project
	err := p.pool.QueryRow(ctx, `
		SELECT id, name, description, status, user_id, created_at, updated_at
		FROM projects WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(
		&proj.ID, &proj.Name, &proj.Description, &proj.Status, &proj.UserID,
		&proj.CreatedAt, &proj.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("query project: %w", err)
	}
	return &proj, nil
}

func (p *Postgres) GetProjectVault(ctx context.Context, projectID, userID uuid.UUID) (*model.Vault, error) {
	var v model.Vault
	err := p.pool.QueryRow(ctx, `
		SELECT v.id, v.address, v.balance, v.project_id, v.created_at
		FROM vaults v
		JOIN projects p ON p.id = v.project_id
		WHERE v.project_id = $1 AND p.user_id = $2
	`, projectID, userID).Scan(&v.ID, &v.Address, &v.Balance, &v.ProjectID, &v.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("query vault: %w", err)
	}
	return &v, nil
}

func (p *Postgres) ListProjectSummaries(ctx context.Context, userID uuid.UUID) ([]*model.ProjectSummary, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT p.id, p.name, p.description, p.status, p.created_at,
		       COALESCE(v.balance, 0),
		       COUNT(a.id),
		       COUNT(a.id) FILTER (WHERE a.status = 'active'),
		       COALESCE((
		           SELECT SUM(ABS(e.amount)) FROM events e
		           WHERE e.vault_id = v.id AND e.type = 'spend' AND e.status = 'confirmed'
		       ), 0),
		       COALESCE(SUM(br.monthly_spent), 0)
		FROM projects p
		LEFT JOIN vaults v ON v.project_id = p.id
		LEFT JOIN agents a ON a.project_id = p.id
		LEFT JOIN agent_budget_rules br ON br.agent_id = a.id
		WHERE p.user_id = $1
		GROUP BY p.id, v.id
		ORDER BY p.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list project summaries: %w", err)
	}
	defer rows.Close()

	var summaries []*model.ProjectSummary
	for rows.Next() {
		var s model.ProjectSummary
		err := rows.Scan(
			&s.ID, &s.Name, &s.Description, &s.Status, &s.CreatedAt,
			&s.VaultBalance, &s.AgentCount, &s.ActiveAgentCount,
			&s.TotalSpent, &s.MonthlySpent,
		)
		if err != nil {
			return nil, fmt.Errorf("scan project summary: %w", err)
		}
		summaries = append(summaries, &s)
	}
	return summaries, rows.Err()
}

func (p *Postgres) UpdateProject(ctx context.Context, id, userID uuid.UUID, updates ProjectUpdates) (bool, error) {
	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1

	if updates.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argIdx))
		args = append(args, *updates.Name)
		argIdx++
	}
	if updates.Description != nil {
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", argIdx))
		args = append(args, *updates.Description)
		argIdx++
	}
	if updates.Status != nil {
		setClauses = append(setClauses, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *updates.Status)
		argIdx++
	}

	if len(setClauses) == 0 {
		return true, nil
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id, userID)

	query := fmt.Sprintf("UPDATE projects SET %s WHERE id = $%d AND user_id = $%d",
		strings.Join(setClauses, ", "), argIdx, argIdx+1)

	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update project: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (p *Postgres) DeleteProject(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete project: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (p *Postgres) GetUserProjectStats(ctx context.Context, userID uuid.UUID) (*ProjectStats, error) {
	var s ProjectStats
	err := p.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM projects WHERE user_id = $1),
			(SELECT COALESCE(SUM(v.balance), 0) FROM vaults v
			   JOIN projects p ON p.id = v.project_id WHERE p.user_id = $1),
			COUNT(a.id),
			COUNT(a.id) FILTER (WHERE a.status = 'active'),
			COUNT(a.id) FILTER (WHERE a.status = 'paused'),
			COUNT(a.id) FILTER (WHERE a.status = 'error'),
			COUNT(a.id) FILTER (WHERE a.status = 'needs_setup'),
			COALESCE(SUM(br.monthly_spent), 0)
		FROM agents a
		JOIN projects p ON p.id = a.project_id
		LEFT JOIN agent_budget_rules br ON br.agent_id = a.id
		WHERE p.user_id = $1
	`, userID).Scan(
		&s.TotalProjects, &s.TotalBalance,
		&s.TotalAgents, &s.ActiveAgents, &s.PausedAgents, &s.ErrorAgents, &s.NeedsSetupAgents,
		&s.TotalMonthlySpent,
	)
	if err != nil {
		return nil, fmt.Errorf("project stats: %w", err)
	}
	return &s, nil
}

func (p *Postgres) ListProjectComparison(ctx context.Context, userID uuid.UUID) ([]*ProjectComparisonRow, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT p.name, COALESCE(SUM(br.monthly_spent), 0), COUNT(a.id)
		FROM projects p
		LEFT JOIN agents a ON a.project_id = p.id
		LEFT JOIN agent_budget_rules br ON br.agent_id = a.id
		WHERE p.user_id = $1
		GROUP BY p.id
		ORDER BY p.created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("project comparison: %w", err)
	}
	defer rows.Close()

	var result []*ProjectComparisonRow
	for rows.Next() {
		var r ProjectComparisonRow
		if err := rows.Scan(&r.Name, &r.MonthlySpent, &r.AgentCount); err != nil {
			return nil, fmt.Errorf("scan comparison row: %w", err)
		}
		result = append(result, &r)
	}
	return result, rows.Err()
}
