package model

import (
	"time"

	"github.com/google/uuid"
)

type ProjectStatus string

const (
	ProjectActive   ProjectStatus = "active"
	ProjectArchived ProjectStatus = "archived"
)

type Project struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Status      ProjectStatus `json:"status"`
	UserID      uuid.UUID     `json:"user_id"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Vault holds a project's balance in micro-dollars. Exactly one per project;
// the address is a synthetic identifier, not an on-chain account.
type Vault struct {
	ID        uuid.UUID `json:"id"`
	Address   string    `json:"address"`
	Balance   int64     `json:"balance"`
	ProjectID uuid.UUID `json:"project_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ProjectSummary is the per-project aggregate used by list views.
type ProjectSummary struct {
	ID               uuid.UUID     `json:"id"`
	Name             string        `json:"name"`
	Description      string        `json:"description,omitempty"`
	Status           ProjectStatus `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
	VaultBalance     int64         `json:"vault_balance"`
	AgentCount       int           `json:"agent_count"`
	ActiveAgentCount int           `json:"active_agent_count"`
	TotalSpent       int64         `json:"total_spent"`
	MonthlySpent     int64         `json:"monthly_spent"`
}
