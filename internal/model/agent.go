package model

import (
	"time"

	"github.com/google/uuid"
)

type AgentStatus string

const (
	AgentActive     AgentStatus = "active"
	AgentPaused     AgentStatus = "paused"
	AgentError      AgentStatus = "error"
	AgentNeedsSetup AgentStatus = "needs_setup"
)

// Agent is a configured model/provider binding with its own budget rule and
// event history. New agents start in needs_setup.
type Agent struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Provider    string      `json:"provider,omitempty"`
	Model       string      `json:"model,omitempty"`
	Status      AgentStatus `json:"status"`
	ProjectID   uuid.UUID   `json:"project_id"`
	WebhookURL  string      `json:"webhook_url,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// BudgetRule holds an agent's spend limits. All amounts are micro-dollars.
// MonthlyLimit is optional; zero daily/perTx limits mean unlimited is not a
// concept here, they are simply what the owner configured.
type BudgetRule struct {
	ID           uuid.UUID `json:"id"`
	AgentID      uuid.UUID `json:"agent_id"`
	DailyLimit   int64     `json:"daily_limit"`
	PerTxLimit   int64     `json:"per_tx_limit"`
	MonthlyLimit *int64    `json:"monthly_limit,omitempty"`
	DailySpent   int64     `json:"daily_spent"`
	MonthlySpent int64     `json:"monthly_spent"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AgentSummary is the per-agent aggregate used by project views.
type AgentSummary struct {
	ID           uuid.UUID   `json:"id"`
	Name         string      `json:"name"`
	Description  string      `json:"description,omitempty"`
	Provider     string      `json:"provider,omitempty"`
	Model        string      `json:"model,omitempty"`
	Status       AgentStatus `json:"status"`
	ProjectID    uuid.UUID   `json:"project_id"`
	CreatedAt    time.Time   `json:"created_at"`
	DailyLimit   int64       `json:"daily_limit"`
	DailySpent   int64       `json:"daily_spent"`
	MonthlySpent int64       `json:"monthly_spent"`
	TotalSpent   int64       `json:"total_spent"`
}
