package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/lucci-xyz/pilot/internal/model"
	"github.com/lucci-xyz/pilot/internal/store"
	"github.com/lucci-xyz/pilot/internal/validation"
)

// AgentService handles agent and budget-rule CRUD, scoped through the
// Agent -> Project -> User ownership chain.
type AgentService struct {
	projects store.ProjectStore
	agents   store.AgentStore
	events   store.EventStore
}

func NewAgentService(projects store.ProjectStore, agents store.AgentStore, events store.EventStore) *AgentService {
	return &AgentService{projects: projects, agents: agents, events: events}
}

// CreateAgentInput contains the parameters for creating an agent. All limits
// are micro-dollars.
type CreateAgentInput struct {
	Name         string
	Description  string
	Provider     string
	Model        string
	DailyLimit   int64
	PerTxLimit   int64
	MonthlyLimit *int64
}

// Create verifies project ownership, then makes the agent (status
// needs_setup) with its budget rule.
func (s *AgentService) Create(ctx context.Context, projectID, userID uuid.UUID, input CreateAgentInput) (*model.Agent, *model.BudgetRule, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, nil, NewBadRequest("invalid_request", "Agent name is required")
	}
	if input.DailyLimit <= 0 || input.PerTxLimit <= 0 {
		return nil, nil, NewBadRequest("invalid_request", "Daily and per-transaction limits must be positive")
	}
	if input.MonthlyLimit != nil && *input.MonthlyLimit <= 0 {
		return nil, nil, NewBadRequest("invalid_request", "Monthly limit must be positive")
	}

	if _, err := s.projects.GetProject(ctx, projectID, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, NewNotFound("not_found", "Project not found")
		}
		log.Error().Err(err).Str("project_id", projectID.String()).Msg("failed to verify project ownership")
		return nil, nil, NewInternal("internal_error", "Failed to create agent")
	}

	agent := &model.Agent{
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Provider:    strings.TrimSpace(input.Provider),
		Model:       strings.TrimSpace(input.Model),
		Status:      model.AgentNeedsSetup,
		ProjectID:   projectID,
	}
	rule := &model.BudgetRule{
		DailyLimit:   input.DailyLimit,
		PerTxLimit:   input.PerTxLimit,
		MonthlyLimit: input.MonthlyLimit,
	}

	if err := s.agents.CreateAgentWithBudget(ctx, agent, rule); err != nil {
		log.Error().Err(err).Str("project_id", projectID.String()).Msg("failed to create agent")
		return nil, nil, NewInternal("internal_error", "Failed to create agent")
	}
	return agent, rule, nil
}

// AgentDetail is an agent with its budget rule and recent events.
type AgentDetail struct {
	Agent  *model.Agent      `json:"agent"`
	Budget *model.BudgetRule `json:"budget"`
	Events []*model.Event    `json:"events"`
}

// Get returns an agent with relations, or not-found when the agent is
// missing or its project is owned by someone else.
func (s *AgentService) Get(ctx context.Context, id, userID uuid.UUID) (*AgentDetail, error) {
	agent, err := s.agents.GetAgent(ctx, id, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NewNotFound("not_found", "Agent not found")
		}
		log.Error().Err(err).Str("id", id.String()).Msg("failed to get agent")
		return nil, NewInternal("internal_error", "Failed to load agent")
	}

	budget, err := s.agents.GetBudgetRule(ctx, id)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		log.Error().Err(err).Str("id", id.String()).Msg("failed to get budget rule")
		return nil, NewInternal("internal_error", "Failed to load agent")
	}

	events, err := s.events.ListRecentAgentEvents(ctx, id, recentEventLimit)
	if err != nil {
		log.Error().Err(err).Str("id", id.String()).Msg("failed to list agent events")
		return nil, NewInternal("internal_error", "Failed to load agent")
	}

	return &AgentDetail{Agent: agent, Budget: budget, Events: events}, nil
}

// List returns agent summaries for a project after verifying ownership.
func (s *AgentService) List(ctx context.Context, projectID, userID uuid.UUID) ([]*model.AgentSummary, error) {
	if _, err := s.projects.GetProject(ctx, projectID, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NewNotFound("not_found", "Project not found")
		}
		log.Error().Err(err).Str("project_id", projectID.String()).Msg("failed to verify project ownership")
		return nil, NewInternal("internal_error", "Failed to list agents")
	}

	summaries, err := s.agents.ListAgentSummaries(ctx, projectID)
	if err != nil {
		log.Error().Err(err).Str("project_id", projectID.String()).Msg("failed to list agents")
		return nil, NewInternal("internal_error", "Failed to list agents")
	}
	return summaries, nil
}

// Update applies partial updates to an agent the user owns.
func (s *AgentService) Update(ctx context.Context, id, userID uuid.UUID, updates store.AgentUpdates) (*model.Agent, error) {
	if updates.Name != nil && strings.TrimSpace(*updates.Name) == "" {
		return nil, NewBadRequest("invalid_request", "Agent name cannot be empty")
	}
	if updates.Status != nil {
		if err := validation.AgentStatus(*updates.Status); err != nil {
			return nil, NewBadRequest("invalid_request", err.Error())
		}
	}

	updated, err := s.agents.UpdateAgent(ctx, id, userID, updates)
	if err != nil {
		log.Error().Err(err).Str("id", id.String()).Msg("failed to update agent")
		return nil, NewInternal("internal_error", "Failed to update agent")
	}
	if !updated {
		return nil, NewNotFound("not_found", "Agent not found")
	}

	agent, err := s.agents.GetAgent(ctx, id, userID)
	if err != nil {
		log.Error().Err(err).Str("id", id.String()).Msg("failed to reload agent")
		return nil, NewInternal("internal_error", "Failed to update agent")
	}
	return agent, nil
}

// UpdateBudget applies partial updates to an agent's budget rule.
func (s *AgentService) UpdateBudget(ctx context.Context, agentID, userID uuid.UUID, updates store.BudgetUpdates) (*model.BudgetRule, error) {
	if updates.DailyLimit != nil && *updates.DailyLimit <= 0 {
		return nil, NewBadRequest("invalid_request", "Daily limit must be positive")
	}
	if updates.PerTxLimit != nil && *updates.PerTxLimit <= 0 {
		return nil, NewBadRequest("invalid_request", "Per-transaction limit must be positive")
	}
	if updates.MonthlyLimit != nil && *updates.MonthlyLimit <= 0 {
		return nil, NewBadRequest("invalid_request", "Monthly limit must be positive")
	}

	updated, err := s.agents.UpdateBudgetRule(ctx, agentID, userID, updates)
	if err != nil {
		log.Error().Err(err).Str("agent_id", agentID.String()).Msg("failed to update budget rule")
		return nil, NewInternal("internal_error", "Failed to update budget")
	}
	if !updated {
		return nil, NewNotFound("not_found", "Agent not found")
	}

	rule, err := s.agents.GetBudgetRule(ctx, agentID)
	if err != nil {
		log.Error().Err(err).Str("agent_id", agentID.String()).Msg("failed to reload budget rule")
		return nil, NewInternal("internal_error", "Failed to update budget")
	}
	return rule, nil
}

// Delete removes an agent the user owns.
func (s *AgentService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	deleted, err := s.agents.DeleteAgent(ctx, id, userID)
	if err != nil {
		log.Error().Err(err).Str("id", id.String()).Msg("failed to delete agent")
		return NewInternal("internal_error", "Failed to delete agent")
	}
	if !deleted {
		return NewNotFound("not_found", "Agent not found")
	}
	return nil
}
