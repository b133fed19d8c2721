package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lucci-xyz/pilot/internal/model"
)

// UserStore defines operations for user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// SessionStore defines operations for cookie-backed sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, session *model.Session) error
	GetSessionByToken(ctx context.Context, token string) (*model.Session, error)
	DeleteSessionByToken(ctx context.Context, token string) error
}

// APIKeyStore defines operations for API key management.
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, key *model.APIKey) error
	GetAPIKeyByHash(ctx context.Context, keyHash string) (*model.APIKey, error)
	ListAPIKeysByUser(ctx context.Context, userID uuid.UUID) ([]*model.APIKey, error)
	DeleteAPIKey(ctx context.Context, id, userID uuid.UUID) (bool, error)
	TouchAPIKey(ctx context.Context, id uuid.UUID, usedAt time.Time) error
}

// ProjectStore defines operations for projects and their vaults.
// Reads are scoped by owning user; a row owned by someone else is
// indistinguishable from a missing row.
type ProjectStore interface {
	CreateProjectWithVault(ctx context.Context, project *model.Project, vault *model.Vault) error
	GetProject(ctx context.Context, id, userID uuid.UUID) (*model.Project, error)
	GetProjectVault(ctx context.Context, projectID, userID uuid.UUID) (*model.Vault, error)
	ListProjectSummaries(ctx context.Context, userID uuid.UUID) ([]*model.ProjectSummary, error)
	UpdateProject(ctx context.Context, id, userID uuid.UUID, updates ProjectUpdates) (bool, error)
	DeleteProject(ctx context.Context, id, userID uuid.UUID) (bool, error)
	GetUserProjectStats(ctx context.Context, userID uuid.UUID) (*ProjectStats, error)
	ListProjectComparison(ctx context.Context, userID uuid.UUID) ([]*ProjectComparisonRow, error)
}

// AgentStore defines operations for agents and their budget rules.
type AgentStore interface {
	CreateAgentWithBudget(ctx context.Context, agent *model.Agent, rule *model.BudgetRule) error
	GetAgent(ctx context.Context, id, userID uuid.UUID) (*model.Agent, error)
	GetBudgetRule(ctx context.Context, agentID uuid.UUID) (*model.BudgetRule, error)
	ListAgentSummaries(ctx context.Context, projectID uuid.UUID) ([]*model.AgentSummary, error)
	UpdateAgent(ctx context.Context, id, userID uuid.UUID, updates AgentUpdates) (bool, error)
	UpdateBudgetRule(ctx context.Context, agentID, userID uuid.UUID, updates BudgetUpdates) (bool, error)
	DeleteAgent(ctx context.Context, id, userID uuid.UUID) (bool, error)
}

// EventStore defines operations for the append-only event ledger. There are
// no update or delete methods.
type EventStore interface {
	RecordFunding(ctx context.Context, event *model.Event) error
	AppendSpend(ctx context.Context, event *model.Event) error
	ListEventsByVault(ctx context.Context, vaultID uuid.UUID, limit int) ([]*model.Event, error)
	ListAgentEvents(ctx context.Context, agentID uuid.UUID, since time.Time) ([]*model.Event, error)
	ListRecentAgentEvents(ctx context.Context, agentID uuid.UUID, limit int) ([]*model.Event, error)
	ListUserSpendEvents(ctx context.Context, userID uuid.UUID, since time.Time) ([]*model.Event, error)
	ListUserActivity(ctx context.Context, userID uuid.UUID, limit int) ([]*model.ActivityItem, error)
	ListProjectActivity(ctx context.Context, vaultID uuid.UUID, limit int) ([]*model.ActivityItem, error)
	CountUsers(ctx context.Context) (int, error)
}

// Store combines all entity stores.
type Store interface {
	UserStore
	SessionStore
	APIKeyStore
	ProjectStore
	AgentStore
	EventStore
}

type ProjectUpdates struct {
	Name        *string              `json:"name,omitempty"`
	Description *string              `json:"description,omitempty"`
	Status      *model.ProjectStatus `json:"status,omitempty"`
}

type AgentUpdates struct {
	Name        *string            `json:"name,omitempty"`
	Description *string            `json:"description,omitempty"`
	Provider    *string            `json:"provider,omitempty"`
	Model       *string            `json:"model,omitempty"`
	Status      *model.AgentStatus `json:"status,omitempty"`
	WebhookURL  *string            `json:"webhook_url,omitempty"`
}

type BudgetUpdates struct {
	DailyLimit   *int64 `json:"daily_limit,omitempty"`
	PerTxLimit   *int64 `json:"per_tx_limit,omitempty"`
	MonthlyLimit *int64 `json:"monthly_limit,omitempty"`
}

// ProjectStats aggregates a user's portfolio for the dashboard header.
type ProjectStats struct {
	TotalProjects     int   `json:"total_projects"`
	TotalAgents       int   `json:"total_agents"`
	ActiveAgents      int   `json:"active_agents"`
	PausedAgents      int   `json:"paused_agents"`
	ErrorAgents       int   `json:"error_agents"`
	NeedsSetupAgents  int   `json:"needs_setup_agents"`
	TotalBalance      int64 `json:"total_balance"`
	TotalMonthlySpent int64 `json:"total_monthly_spent"`
}

// ProjectComparisonRow is one project's monthly spend and agent count.
type ProjectComparisonRow struct {
	Name         string
	MonthlySpent int64
	AgentCount   int
}
