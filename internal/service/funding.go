package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/lucci-xyz/pilot/internal/model"
	"github.com/lucci-xyz/pilot/internal/money"
	"github.com/lucci-xyz/pilot/internal/store"
)

// FundingService records funding credits and spend debits against vaults.
// The event ledger is append-only; only funding moves the vault balance.
type FundingService struct {
	projects store.ProjectStore
	agents   store.AgentStore
	events   store.EventStore
}

func NewFundingService(projects store.ProjectStore, agents store.AgentStore, events store.EventStore) *FundingService {
	return &FundingService{projects: projects, agents: agents, events: events}
}

// RecordFunding credits a project's vault. The event and the balance
// increment land in one transaction. With a transaction hash the credit is
// confirmed immediately, otherwise it stays pending.
func (s *FundingService) RecordFunding(ctx context.Context, projectID, userID uuid.UUID, amount int64, txHash string) (*model.Event, error) {
	if amount <= 0 {
		return nil, NewBadRequest("invalid_request", "Funding amount must be positive")
	}

	vault, err := s.projects.GetProjectVault(ctx, projectID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NewNotFound("not_found", "Project not found")
		}
		log.Error().Err(err).Str("project_id", projectID.String()).Msg("failed to resolve vault")
		return nil, NewInternal("internal_error", "Failed to record funding")
	}

	status := model.EventPending
	if txHash != "" {
		status = model.EventConfirmed
	}

	event := &model.Event{
		Type:    model.EventFunding,
		Amount:  amount,
		Status:  status,
		TxHash:  txHash,
		VaultID: vault.ID,
	}
	if err := s.events.RecordFunding(ctx, event); err != nil {
		log.Error().Err(err).Str("vault_id", vault.ID.String()).Msg("failed to record funding")
		return nil, NewInternal("internal_error", "Failed to record funding")
	}
	return event, nil
}

// RecordSpendInput contains the parameters for appending a spend debit.
// Amount is the positive spend in micro-dollars; it is stored negative.
type RecordSpendInput struct {
	AgentID  uuid.UUID
	Amount   int64
	Metadata *model.SpendMetadata
}

// RecordSpend appends a confirmed spend event for an agent owned by the
// user, after checking the agent's per-transaction limit.
func (s *FundingService) RecordSpend(ctx context.Context, userID uuid.UUID, input RecordSpendInput) (*model.Event, error) {
	if input.Amount <= 0 {
		return nil, NewBadRequest("invalid_request", "Spend amount must be positive")
	}
	if input.Metadata != nil && input.Metadata.Tokens < 0 {
		return nil, NewBadRequest("invalid_request", "Token count cannot be negative")
	}

	agent, err := s.agents.GetAgent(ctx, input.AgentID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NewNotFound("not_found", "Agent not found")
		}
		log.Error().Err(err).Str("agent_id", input.AgentID.String()).Msg("failed to resolve agent")
		return nil, NewInternal("internal_error", "Failed to record spend")
	}

	rule, err := s.agents.GetBudgetRule(ctx, agent.ID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		log.Error().Err(err).Str("agent_id", agent.ID.String()).Msg("failed to load budget rule")
		return nil, NewInternal("internal_error", "Failed to record spend")
	}
	if rule != nil && input.Amount > rule.PerTxLimit {
		return nil, NewBadRequest("limit_exceeded",
			"Spend exceeds the agent's per-transaction limit of "+money.FormatUSD(rule.PerTxLimit))
	}

	vault, err := s.projects.GetProjectVault(ctx, agent.ProjectID, userID)
	if err != nil {
		log.Error().Err(err).Str("agent_id", agent.ID.String()).Msg("failed to resolve vault")
		return nil, NewInternal("internal_error", "Failed to record spend")
	}

	event := &model.Event{
		Type:     model.EventSpend,
		Amount:   -input.Amount,
		Status:   model.EventConfirmed,
		Metadata: input.Metadata,
		VaultID:  vault.ID,
		AgentID:  &agent.ID,
	}
	if err := s.events.AppendSpend(ctx, event); err != nil {
		log.Error().Err(err).Str("vault_id", vault.ID.String()).Msg("failed to append spend")
		return nil, NewInternal("internal_error", "Failed to record spend")
	}
	return event, nil
}
