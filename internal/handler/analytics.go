package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lucci-xyz/pilot/internal/httputil"
	"github.com/lucci-xyz/pilot/internal/middleware"
	"github.com/lucci-xyz/pilot/internal/service"
)

const (
	defaultChartDays     = 7
	defaultActivityLimit = 10
	projectActivityLimit = 20
	maxActivityLimit     = 100
)

// --- Dashboard Stats ---

type StatsHandler struct {
	svc *service.AnalyticsService
}

func NewStatsHandler(svc *service.AnalyticsService) *StatsHandler {
	return &StatsHandler{svc: svc}
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	stats, err := h.svc.Stats(r.Context(), user.ID)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, stats)
}

// --- Agent Performance ---

type AgentPerformanceHandler struct {
	svc *service.AnalyticsService
}

func NewAgentPerformanceHandler(svc *service.AnalyticsService) *AgentPerformanceHandler {
	return &AgentPerformanceHandler{svc: svc}
}

func (h *AgentPerformanceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	agentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid agent ID")
		return
	}

	days, err := httputil.ParseDays(r.URL.Query().Get("days"), defaultChartDays)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	points, err := h.svc.AgentPerformance(r.Context(), agentID, user.ID, days)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{"performance": points})
}

// --- Spend Chart ---

type SpendChartHandler struct {
	svc *service.AnalyticsService
}

func NewSpendChartHandler(svc *service.AnalyticsService) *SpendChartHandler {
	return &SpendChartHandler{svc: svc}
}

func (h *SpendChartHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	days, err := httputil.ParseDays(r.URL.Query().Get("days"), defaultChartDays)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	points, err := h.svc.SpendChart(r.Context(), user.ID, days)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{"spend": points})
}

// --- Project Comparison ---

type ComparisonHandler struct {
	svc *service.AnalyticsService
}

func NewComparisonHandler(svc *service.AnalyticsService) *ComparisonHandler {
	return &ComparisonHandler{svc: svc}
}

func (h *ComparisonHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	points, err := h.svc.Comparison(r.Context(), user.ID)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{"comparison": points})
}

// --- User Activity ---

type UserActivityHandler struct {
	svc *service.AnalyticsService
}

func NewUserActivityHandler(svc *service.AnalyticsService) *UserActivityHandler {
	return &UserActivityHandler{svc: svc}
}

func (h *UserActivityHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	limit, err := httputil.ParseLimit(r.URL.Query().Get("limit"), defaultActivityLimit, maxActivityLimit)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	items, err := h.svc.UserActivity(r.Context(), user.ID, limit)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{"activity": items})
}

// --- Project Activity ---

type ProjectActivityHandler struct {
	svc *service.AnalyticsService
}

func NewProjectActivityHandler(svc *service.AnalyticsService) *ProjectActivityHandler {
	return &ProjectActivityHandler{svc: svc}
}

func (h *ProjectActivityHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid project ID")
		return
	}

	limit, err := httputil.ParseLimit(r.URL.Query().Get("limit"), projectActivityLimit, maxActivityLimit)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	items, err := h.svc.ProjectActivity(r.Context(), projectID, user.ID, limit)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{"activity": items})
}
