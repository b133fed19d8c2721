package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lucci-xyz/pilot/internal/model"
	"github.com/lucci-xyz/pilot/internal/store"
)

// fakeStore is an in-memory store.Store used by the service tests. Ownership
// scoping mirrors the SQL layer: a row owned by another user reads as
// pgx.ErrNoRows.
type fakeStore struct {
	users    map[uuid.UUID]*model.User
	sessions map[string]*model.Session
	apiKeys  map[uuid.UUID]*model.APIKey
	projects map[uuid.UUID]*model.Project
	vaults   map[uuid.UUID]*model.Vault // keyed by project ID
	agents   map[uuid.UUID]*model.Agent
	rules    map[uuid.UUID]*model.BudgetRule // keyed by agent ID
	events   []*model.Event

	failNext error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[uuid.UUID]*model.User),
		sessions: make(map[string]*model.Session),
		apiKeys:  make(map[uuid.UUID]*model.APIKey),
		projects: make(map[uuid.UUID]*model.Project),
		vaults:   make(map[uuid.UUID]*model.Vault),
		agents:   make(map[uuid.UUID]*model.Agent),
		rules:    make(map[uuid.UUID]*model.BudgetRule),
	}
}

func (f *fakeStore) takeErr() error {
	err := f.failNext
	f.failNext = nil
	return err
}

// --- UserStore ---

func (f *fakeStore) CreateUser(_ context.Context, user *model.User) error {
	if err := f.takeErr(); err != nil {
		return err
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	f.users[user.ID] = user
	return nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	if err := f.takeErr(); err != nil {
		return nil, err
	}
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStore) GetUserByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

// --- SessionStore ---

func (f *fakeStore) CreateSession(_ context.Context, session *model.Session) error {
	if err := f.takeErr(); err != nil {
		return err
	}
	session.ID = uuid.New()
	session.CreatedAt = time.Now().UTC()
	f.sessions[session.Token] = session
	return nil
}

func (f *fakeStore) GetSessionByToken(_ context.Context, token string) (*model.Session, error) {
	if s, ok := f.sessions[token]; ok {
		return s, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStore) DeleteSessionByToken(_ context.Context, token string) error {
	delete(f.sessions, token)
	return nil
}

// --- APIKeyStore ---

func (f *fakeStore) CreateAPIKey(_ context.Context, key *model.APIKey) error {
	if err := f.takeErr(); err != nil {
		return err
	}
	key.ID = uuid.New()
	key.CreatedAt = time.Now().UTC()
	f.apiKeys[key.ID] = key
	return nil
}

func (f *fakeStore) GetAPIKeyByHash(_ context.Context, keyHash string) (*model.APIKey, error) {
	if err := f.takeErr(); err != nil {
		return nil, err
	}
	for _, k := range f.apiKeys {
		if k.KeyHash == keyHash {
			// Snapshot semantics: callers see the row as of the lookup.
			copy := *k
			return &copy, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStore) ListAPIKeysByUser(_ context.Context, userID uuid.UUID) ([]*model.APIKey, error) {
	var keys []*model.APIKey
	for _, k := range f.apiKeys {
		if k.UserID == userID {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].CreatedAt.After(keys[j].CreatedAt) })
	return keys, nil
}

func (f *fakeStore) DeleteAPIKey(_ context.Context, id, userID uuid.UUID) (bool, error) {
	k, ok := f.apiKeys[id]
	if !ok || k.UserID != userID {
		return false, nil
	}
	delete(f.apiKeys, id)
	return true, nil
}

func (f *fakeStore) TouchAPIKey(_ context.Context, id uuid.UUID, usedAt time.Time) error {
	k, ok := f.apiKeys[id]
	if !ok {
		return pgx.ErrNoRows
	}
	k.RequestCount++
	k.LastUsedAt = &usedAt
	return nil
}

// --- ProjectStore ---

func (f *fakeStore) CreateProjectWithVault(_ context.Context, project *model.Project, vault *model.Vault) error {
	if err := f.takeErr(); err != nil {
		return err
	}
	project.ID = uuid.New()
	project.CreatedAt = time.Now().UTC()
	project.UpdatedAt = project.CreatedAt
	f.projects[project.ID] = project

	vault.ID = uuid.New()
	vault.ProjectID = project.ID
	vault.CreatedAt = project.CreatedAt
	f.vaults[project.ID] = vault
	return nil
}

func (f *fakeStore) GetProject(_ context.Context, id, userID uuid.UUID) (*model.Project, error) {
	p, ok := f.projects[id]
	if !ok || p.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	return p, nil
}

func (f *fakeStore) GetProjectVault(_ context.Context, projectID, userID uuid.UUID) (*model.Vault, error) {
	p, ok := f.projects[projectID]
	if !ok || p.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	return f.vaults[projectID], nil
}

func (f *fakeStore) ListProjectSummaries(_ context.Context, userID uuid.UUID) ([]*model.ProjectSummary, error) {
	var summaries []*model.ProjectSummary
	for _, p := range f.projects {
		if p.UserID != userID {
			continue
		}
		summaries = append(summaries, &model.ProjectSummary{
			ID:           p.ID,
			Name:         p.Name,
			Status:       p.Status,
			CreatedAt:    p.CreatedAt,
			VaultBalance: f.vaults[p.ID].Balance,
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].CreatedAt.After(summaries[j].CreatedAt) })
	return summaries, nil
}

func (f *fakeStore) UpdateProject(_ context.Context, id, userID uuid.UUID, updates store.ProjectUpdates) (bool, error) {
	p, ok := f.projects[id]
	if !ok || p.UserID != userID {
		return false, nil
	}
	if updates.Name != nil {
		p.Name = *updates.Name
	}
	if updates.Description != nil {
		p.Description = *updates.Description
	}
	if updates.Status != nil {
		p.Status = *updates.Status
	}
	return true, nil
}

func (f *fakeStore) DeleteProject(_ context.Context, id, userID uuid.UUID) (bool, error) {
	p, ok := f.projects[id]
	if !ok || p.UserID != userID {
		return false, nil
	}
	delete(f.projects, id)
	delete(f.vaults, id)
	for agentID, a := range f.agents {
		if a.ProjectID == id {
			delete(f.agents, agentID)
			delete(f.rules, agentID)
		}
	}
	return true, nil
}

func (f *fakeStore) GetUserProjectStats(_ context.Context, userID uuid.UUID) (*store.ProjectStats, error) {
	stats := &store.ProjectStats{}
	for _, p := range f.projects {
		if p.UserID != userID {
			continue
		}
		stats.TotalProjects++
		stats.TotalBalance += f.vaults[p.ID].Balance
		for agentID, a := range f.agents {
			if a.ProjectID != p.ID {
				continue
			}
			stats.TotalAgents++
			switch a.Status {
			case model.AgentActive:
				stats.ActiveAgents++
			case model.AgentPaused:
				stats.PausedAgents++
			case model.AgentError:
				stats.ErrorAgents++
			case model.AgentNeedsSetup:
				stats.NeedsSetupAgents++
			}
			if rule, ok := f.rules[agentID]; ok {
				stats.TotalMonthlySpent += rule.MonthlySpent
			}
		}
	}
	return stats, nil
}

func (f *fakeStore) ListProjectComparison(_ context.Context, userID uuid.UUID) ([]*store.ProjectComparisonRow, error) {
	var rows []*store.ProjectComparisonRow
	for _, p := range f.projects {
		if p.UserID != userID {
			continue
		}
		row := &store.ProjectComparisonRow{Name: p.Name}
		for agentID, a := range f.agents {
			if a.ProjectID != p.ID {
				continue
			}
			row.AgentCount++
			if rule, ok := f.rules[agentID]; ok {
				row.MonthlySpent += rule.MonthlySpent
			}
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows, nil
}

// --- AgentStore ---

func (f *fakeStore) CreateAgentWithBudget(_ context.Context, agent *model.Agent, rule *model.BudgetRule) error {
	if err := f.takeErr(); err != nil {
		return err
	}
	agent.ID = uuid.New()
	agent.CreatedAt = time.Now().UTC()
	agent.UpdatedAt = agent.CreatedAt
	f.agents[agent.ID] = agent

	rule.ID = uuid.New()
	rule.AgentID = agent.ID
	rule.CreatedAt = agent.CreatedAt
	rule.UpdatedAt = agent.CreatedAt
	f.rules[agent.ID] = rule
	return nil
}

func (f *fakeStore) ownsAgent(id, userID uuid.UUID) (*model.Agent, bool) {
	a, ok := f.agents[id]
	if !ok {
		return nil, false
	}
	p, ok := f.projects[a.ProjectID]
	if !ok || p.UserID != userID {
		return nil, false
	}
	return a, true
}

func (f *fakeStore) GetAgent(_ context.Context, id, userID uuid.UUID) (*model.Agent, error) {
	a, ok := f.ownsAgent(id, userID)
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return a, nil
}

func (f *fakeStore) GetBudgetRule(_ context.Context, agentID uuid.UUID) (*model.BudgetRule, error) {
	if r, ok := f.rules[agentID]; ok {
		return r, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStore) ListAgentSummaries(_ context.Context, projectID uuid.UUID) ([]*model.AgentSummary, error) {
	var summaries []*model.AgentSummary
	for id, a := range f.agents {
		if a.ProjectID != projectID {
			continue
		}
		s := &model.AgentSummary{
			ID:        a.ID,
			Name:      a.Name,
			Status:    a.Status,
			ProjectID: a.ProjectID,
			CreatedAt: a.CreatedAt,
		}
		if rule, ok := f.rules[id]; ok {
			s.DailyLimit = rule.DailyLimit
			s.DailySpent = rule.DailySpent
			s.MonthlySpent = rule.MonthlySpent
		}
		summaries = append(summaries, s)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].CreatedAt.After(summaries[j].CreatedAt) })
	return summaries, nil
}

func (f *fakeStore) UpdateAgent(_ context.Context, id, userID uuid.UUID, updates store.AgentUpdates) (bool, error) {
	a, ok := f.ownsAgent(id, userID)
	if !ok {
		return false, nil
	}
	if updates.Name != nil {
		a.Name = *updates.Name
	}
	if updates.Description != nil {
		a.Description = *updates.Description
	}
	if updates.Provider != nil {
		a.Provider = *updates.Provider
	}
	if updates.Model != nil {
		a.Model = *updates.Model
	}
	if updates.Status != nil {
		a.Status = *updates.Status
	}
	if updates.WebhookURL != nil {
		a.WebhookURL = *updates.WebhookURL
	}
	return true, nil
}

func (f *fakeStore) UpdateBudgetRule(_ context.Context, agentID, userID uuid.UUID, updates store.BudgetUpdates) (bool, error) {
	if _, ok := f.ownsAgent(agentID, userID); !ok {
		return false, nil
	}
	r, ok := f.rules[agentID]
	if !ok {
		return false, nil
	}
	if updates.DailyLimit != nil {
		r.DailyLimit = *updates.DailyLimit
	}
	if updates.PerTxLimit != nil {
		r.PerTxLimit = *updates.PerTxLimit
	}
	if updates.MonthlyLimit != nil {
		r.MonthlyLimit = updates.MonthlyLimit
	}
	return true, nil
}

func (f *fakeStore) DeleteAgent(_ context.Context, id, userID uuid.UUID) (bool, error) {
	if _, ok := f.ownsAgent(id, userID); !ok {
		return false, nil
	}
	delete(f.agents, id)
	delete(f.rules, id)
	return true, nil
}

// --- EventStore ---

func (f *fakeStore) RecordFunding(_ context.Context, event *model.Event) error {
	if err := f.takeErr(); err != nil {
		return err
	}
	event.ID = uuid.New()
	event.CreatedAt = time.Now().UTC()
	f.events = append(f.events, event)
	for _, v := range f.vaults {
		if v.ID == event.VaultID {
			v.Balance += event.Amount
		}
	}
	return nil
}

func (f *fakeStore) AppendSpend(_ context.Context, event *model.Event) error {
	if err := f.takeErr(); err != nil {
		return err
	}
	event.ID = uuid.New()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeStore) ListEventsByVault(_ context.Context, vaultID uuid.UUID, limit int) ([]*model.Event, error) {
	var events []*model.Event
	for _, e := range f.events {
		if e.VaultID == vaultID {
			events = append(events, e)
		}
	}
	sortEventsDesc(events)
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func (f *fakeStore) ListAgentEvents(_ context.Context, agentID uuid.UUID, since time.Time) ([]*model.Event, error) {
	var events []*model.Event
	for _, e := range f.events {
		if e.AgentID != nil && *e.AgentID == agentID && e.Status == model.EventConfirmed && !e.CreatedAt.Before(since) {
			events = append(events, e)
		}
	}
	return events, nil
}

func (f *fakeStore) ListRecentAgentEvents(_ context.Context, agentID uuid.UUID, limit int) ([]*model.Event, error) {
	var events []*model.Event
	for _, e := range f.events {
		if e.AgentID != nil && *e.AgentID == agentID {
			events = append(events, e)
		}
	}
	sortEventsDesc(events)
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func (f *fakeStore) ListUserSpendEvents(_ context.Context, userID uuid.UUID, since time.Time) ([]*model.Event, error) {
	var events []*model.Event
	for _, e := range f.events {
		if e.Type != model.EventSpend || e.Status != model.EventConfirmed || e.CreatedAt.Before(since) {
			continue
		}
		if f.vaultOwnedBy(e.VaultID, userID) {
			events = append(events, e)
		}
	}
	return events, nil
}

func (f *fakeStore) ListUserActivity(_ context.Context, userID uuid.UUID, limit int) ([]*model.ActivityItem, error) {
	var items []*model.ActivityItem
	for _, e := range f.events {
		if !f.vaultOwnedBy(e.VaultID, userID) {
			continue
		}
		items = append(items, f.activityItem(e))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (f *fakeStore) ListProjectActivity(_ context.Context, vaultID uuid.UUID, limit int) ([]*model.ActivityItem, error) {
	var items []*model.ActivityItem
	for _, e := range f.events {
		if e.VaultID != vaultID {
			continue
		}
		items = append(items, f.activityItem(e))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (f *fakeStore) CountUsers(_ context.Context) (int, error) {
	return len(f.users), nil
}

func (f *fakeStore) vaultOwnedBy(vaultID, userID uuid.UUID) bool {
	for projectID, v := range f.vaults {
		if v.ID == vaultID {
			p, ok := f.projects[projectID]
			return ok && p.UserID == userID
		}
	}
	return false
}

func (f *fakeStore) activityItem(e *model.Event) *model.ActivityItem {
	item := &model.ActivityItem{
		ID:        e.ID,
		Type:      e.Type,
		Amount:    e.Amount,
		Status:    e.Status,
		TxHash:    e.TxHash,
		Metadata:  e.Metadata,
		CreatedAt: e.CreatedAt,
	}
	if e.AgentID != nil {
		if a, ok := f.agents[*e.AgentID]; ok {
			item.AgentName = a.Name
		}
	}
	for projectID, v := range f.vaults {
		if v.ID == e.VaultID {
			if p, ok := f.projects[projectID]; ok {
				item.ProjectName = p.Name
			}
		}
	}
	return item
}

func sortEventsDesc(events []*model.Event) {
	sort.Slice(events, func(i, j int) bool { return events[i].CreatedAt.After(events[j].CreatedAt) })
}

var _ store.Store = (*fakeStore)(nil)
