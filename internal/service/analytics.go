package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/lucci-xyz/pilot/internal/model"
	"github.com/lucci-xyz/pilot/internal/money"
	"github.com/lucci-xyz/pilot/internal/store"
)

const (
	dayKeyFormat   = "2006-01-02"
	dayLabelFormat = "Mon, Jan 2"
)

// AnalyticsService derives displayable spend metrics from the event ledger.
// All aggregation runs on int64 micro-dollars; floats appear only in the
// final response shapes.
type AnalyticsService struct {
	projects store.ProjectStore
	agents   store.AgentStore
	events   store.EventStore
}

func NewAnalyticsService(projects store.ProjectStore, agents store.AgentStore, events store.EventStore) *AnalyticsService {
	return &AnalyticsService{projects: projects, agents: agents, events: events}
}

// Stats returns the user's portfolio aggregate.
func (s *AnalyticsService) Stats(ctx context.Context, userID uuid.UUID) (*store.ProjectStats, error) {
	stats, err := s.projects.GetUserProjectStats(ctx, userID)
	if err != nil {
		log.Error().Err(err).Msg("failed to load project stats")
		return nil, NewInternal("internal_error", "Failed to load stats")
	}
	return stats, nil
}

// PerformancePoint is one calendar day of an agent's confirmed activity.
type PerformancePoint struct {
	Date     string `json:"date"`
	Requests int    `json:"requests"`
	Spend    int64  `json:"spend"`
}

// AgentPerformance buckets an agent's confirmed events into exactly `days`
// trailing calendar days (UTC), zero-filled, ascending.
func (s *AnalyticsService) AgentPerformance(ctx context.Context, agentID, userID uuid.UUID, days int) ([]PerformancePoint, error) {
	if days < 1 {
		return nil, NewBadRequest("invalid_request", "days must be at least 1")
	}

	if _, err := s.agents.GetAgent(ctx, agentID, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NewNotFound("not_found", "Agent not found")
		}
		log.Error().Err(err).Str("agent_id", agentID.String()).Msg("failed to verify agent ownership")
		return nil, NewInternal("internal_error", "Failed to load performance data")
	}

	now := time.Now().UTC()
	events, err := s.events.ListAgentEvents(ctx, agentID, windowStart(now, days))
	if err != nil {
		log.Error().Err(err).Str("agent_id", agentID.String()).Msg("failed to list agent events")
		return nil, NewInternal("internal_error", "Failed to load performance data")
	}

	return bucketPerformance(events, now, days), nil
}

// SpendPoint is one calendar day of a user's confirmed spend, converted to
// major units for charting.
type SpendPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

// SpendChart buckets confirmed spend across all of the user's vaults into
// exactly `days` trailing calendar days.
func (s *AnalyticsService) SpendChart(ctx context.Context, userID uuid.UUID, days int) ([]SpendPoint, error) {
	if days < 1 {
		return nil, NewBadRequest("invalid_request", "days must be at least 1")
	}

	now := time.Now().UTC()
	events, err := s.events.ListUserSpendEvents(ctx, userID, windowStart(now, days))
	if err != nil {
		log.Error().Err(err).Msg("failed to list spend events")
		return nil, NewInternal("internal_error", "Failed to load spend data")
	}

	return bucketSpend(events, now, days), nil
}

// ComparisonPoint is one project's monthly spend in major units.
type ComparisonPoint struct {
	Name   string  `json:"name"`
	Spend  float64 `json:"spend"`
	Agents int     `json:"agents"`
}

// Comparison returns per-project monthly spend totals.
func (s *AnalyticsService) Comparison(ctx context.Context, userID uuid.UUID) ([]ComparisonPoint, error) {
	rows, err := s.projects.ListProjectComparison(ctx, userID)
	if err != nil {
		log.Error().Err(err).Msg("failed to load project comparison")
		return nil, NewInternal("internal_error", "Failed to load comparison data")
	}

	points := make([]ComparisonPoint, 0, len(rows))
	for _, r := range rows {
		points = append(points, ComparisonPoint{
			Name:   r.Name,
			Spend:  money.Dollars(r.MonthlySpent),
			Agents: r.AgentCount,
		})
	}
	return points, nil
}

// UserActivity returns the user's most recent events across all projects.
func (s *AnalyticsService) UserActivity(ctx context.Context, userID uuid.UUID, limit int) ([]*model.ActivityItem, error) {
	if limit < 1 {
		limit = 10
	}
	items, err := s.events.ListUserActivity(ctx, userID, limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list user activity")
		return nil, NewInternal("internal_error", "Failed to load activity")
	}
	return items, nil
}

// ProjectActivity returns a project's most recent events.
func (s *AnalyticsService) ProjectActivity(ctx context.Context, projectID, userID uuid.UUID, limit int) ([]*model.ActivityItem, error) {
	if limit < 1 {
		limit = 20
	}

	vault, err := s.projects.GetProjectVault(ctx, projectID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NewNotFound("not_found", "Project not found")
		}
		log.Error().Err(err).Str("project_id", projectID.String()).Msg("failed to resolve vault")
		return nil, NewInternal("internal_error", "Failed to load activity")
	}

	items, err := s.events.ListProjectActivity(ctx, vault.ID, limit)
	if err != nil {
		log.Error().Err(err).Str("project_id", projectID.String()).Msg("failed to list project activity")
		return nil, NewInternal("internal_error", "Failed to load activity")
	}
	return items, nil
}

// windowStart is midnight UTC of the first day in a trailing window that
// ends today and covers exactly `days` calendar days.
func windowStart(now time.Time, days int) time.Time {
	day := now.Truncate(24 * time.Hour)
	return day.AddDate(0, 0, -(days - 1))
}

// dayKeys returns the window's calendar-day keys in ascending order.
func dayKeys(now time.Time, days int) []string {
	keys := make([]string, days)
	for i := 0; i < days; i++ {
		keys[i] = now.AddDate(0, 0, -(days - 1 - i)).Format(dayKeyFormat)
	}
	return keys
}

// bucketPerformance groups events by UTC calendar day: request count per day
// plus the absolute spend sum. Days without events stay zero-filled.
func bucketPerformance(events []*model.Event, now time.Time, days int) []PerformancePoint {
	keys := dayKeys(now, days)
	buckets := make(map[string]*PerformancePoint, days)
	points := make([]PerformancePoint, days)
	for i, key := range keys {
		points[i] = PerformancePoint{Date: key}
		buckets[key] = &points[i]
	}

	for _, e := range events {
		bucket, ok := buckets[e.CreatedAt.UTC().Format(dayKeyFormat)]
		if !ok {
			continue
		}
		bucket.Requests++
		if e.Type == model.EventSpend {
			bucket.Spend += money.Abs(e.Amount)
		}
	}
	return points
}

// bucketSpend groups spend events by UTC calendar day and converts each
// day's micro-dollar total to major units at the end.
func bucketSpend(events []*model.Event, now time.Time, days int) []SpendPoint {
	keys := dayKeys(now, days)
	totals := make(map[string]int64, days)
	for _, key := range keys {
		totals[key] = 0
	}

	for _, e := range events {
		key := e.CreatedAt.UTC().Format(dayKeyFormat)
		if _, ok := totals[key]; !ok {
			continue
		}
		totals[key] += money.Abs(e.Amount)
	}

	points := make([]SpendPoint, days)
	for i, key := range keys {
		day, _ := time.Parse(dayKeyFormat, key)
		points[i] = SpendPoint{
			Date:  key,
			Value: money.Dollars(totals[key]),
			Label: day.Format(dayLabelFormat),
		}
	}
	return points
}
