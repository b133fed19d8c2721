package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/lucci-xyz/pilot/internal/model"
	"github.com/lucci-xyz/pilot/internal/store"
	"github.com/lucci-xyz/pilot/internal/validation"
)

// ProjectService handles project CRUD, always scoped by owning user.
type ProjectService struct {
	projects store.ProjectStore
	agents   store.AgentStore
	events   store.EventStore
}

func NewProjectService(projects store.ProjectStore, agents store.AgentStore, events store.EventStore) *ProjectService {
	return &ProjectService{projects: projects, agents: agents, events: events}
}

// CreateProjectInput contains the parameters for creating a project.
type CreateProjectInput struct {
	Name        string
	Description string
}

// Create makes a project together with its zero-balance vault.
func (s *ProjectService) Create(ctx context.Context, userID uuid.UUID, input CreateProjectInput) (*model.Project, *model.Vault, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, nil, NewBadRequest("invalid_request", "Project name is required")
	}

	address, err := generateVaultAddress()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate vault address")
		return nil, nil, NewInternal("internal_error", "Failed to create project")
	}

	project := &model.Project{
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Status:      model.ProjectActive,
		UserID:      userID,
	}
	vault := &model.Vault{Address: address, Balance: 0}

	if err := s.projects.CreateProjectWithVault(ctx, project, vault); err != nil {
		log.Error().Err(err).Msg("failed to create project")
		return nil, nil, NewInternal("internal_error", "Failed to create project")
	}
	return project, vault, nil
}

// ProjectDetail is a project with its vault, agents, and recent events.
type ProjectDetail struct {
	Project *model.Project        `json:"project"`
	Vault   *model.Vault          `json:"vault"`
	Agents  []*model.AgentSummary `json:"agents"`
	Events  []*model.Event        `json:"events"`
}

const recentEventLimit = 100

// Get returns a project with all relations, or not-found when the project is
// missing or owned by someone else.
func (s *ProjectService) Get(ctx context.Context, id, userID uuid.UUID) (*ProjectDetail, error) {
	project, err := s.projects.GetProject(ctx, id, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NewNotFound("not_found", "Project not found")
		}
		log.Error().Err(err).Str("id", id.String()).Msg("failed to get project")
		return nil, NewInternal("internal_error", "Failed to load project")
	}

	vault, err := s.projects.GetProjectVault(ctx, id, userID)
	if err != nil {
		log.Error().Err(err).Str("id", id.String()).Msg("failed to get project vault")
		return nil, NewInternal("internal_error", "Failed to load project")
	}

	agents, err := s.agents.ListAgentSummaries(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("id", id.String()).Msg("failed to list project agents")
		return nil, NewInternal("internal_error", "Failed to load project")
	}

	events, err := s.events.ListEventsByVault(ctx, vault.ID, recentEventLimit)
	if err != nil {
		log.Error().Err(err).Str("id", id.String()).Msg("failed to list vault events")
		return nil, NewInternal("internal_error", "Failed to load project")
	}

	return &ProjectDetail{Project: project, Vault: vault, Agents: agents, Events: events}, nil
}

// List returns per-project summaries for the user, newest first.
func (s *ProjectService) List(ctx context.Context, userID uuid.UUID) ([]*model.ProjectSummary, error) {
	summaries, err := s.projects.ListProjectSummaries(ctx, userID)
	if err != nil {
		log.Error().Err(err).Msg("failed to list projects")
		return nil, NewInternal("internal_error", "Failed to list projects")
	}
	return summaries, nil
}

// Update applies partial updates to a project the user owns.
func (s *ProjectService) Update(ctx context.Context, id, userID uuid.UUID, updates store.ProjectUpdates) (*model.Project, error) {
	if updates.Name != nil && strings.TrimSpace(*updates.Name) == "" {
		return nil, NewBadRequest("invalid_request", "Project name cannot be empty")
	}
	if updates.Status != nil {
		if err := validation.ProjectStatus(*updates.Status); err != nil {
			return nil, NewBadRequest("invalid_request", err.Error())
		}
	}

	updated, err := s.projects.UpdateProject(ctx, id, userID, updates)
	if err != nil {
		log.Error().Err(err).Str("id", id.String()).Msg("failed to update project")
		return nil, NewInternal("internal_error", "Failed to update project")
	}
	if !updated {
		return nil, NewNotFound("not_found", "Project not found")
	}

	project, err := s.projects.GetProject(ctx, id, userID)
	if err != nil {
		log.Error().Err(err).Str("id", id.String()).Msg("failed to reload project")
		return nil, NewInternal("internal_error", "Failed to update project")
	}
	return project, nil
}

// Delete removes a project and, by cascade, its vault, agents, and events.
func (s *ProjectService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	deleted, err := s.projects.DeleteProject(ctx, id, userID)
	if err != nil {
		log.Error().Err(err).Str("id", id.String()).Msg("failed to delete project")
		return NewInternal("internal_error", "Failed to delete project")
	}
	if !deleted {
		return NewNotFound("not_found", "Project not found")
	}
	return nil
}

func generateVaultAddress() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("crypto/rand failed: %w", err)
	}
	return "vault_" + hex.EncodeToString(b), nil
}
