package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lucci-xyz/pilot/internal/middleware"
	"github.com/lucci-xyz/pilot/internal/model"
	"github.com/lucci-xyz/pilot/internal/money"
	"github.com/lucci-xyz/pilot/internal/service"
	"github.com/lucci-xyz/pilot/internal/store"
)

// Budget amounts cross the wire as USD decimal strings and are stored as
// micro-dollar integers.

// --- List Project Agents ---

type ListAgentsHandler struct {
	svc *service.AgentService
}

func NewListAgentsHandler(svc *service.AgentService) *ListAgentsHandler {
	return &ListAgentsHandler{svc: svc}
}

func (h *ListAgentsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid project ID")
		return
	}

	agents, err := h.svc.List(r.Context(), projectID, user.ID)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{"agents": agents})
}

// --- Create Agent ---

type CreateAgentHandler struct {
	svc *service.AgentService
}

func NewCreateAgentHandler(svc *service.AgentService) *CreateAgentHandler {
	return &CreateAgentHandler{svc: svc}
}

type createAgentRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	DailyLimit   string `json:"daily_limit"`
	PerTxLimit   string `json:"per_tx_limit"`
	MonthlyLimit string `json:"monthly_limit,omitempty"`
}

type createAgentResponse struct {
	Agent  *model.Agent      `json:"agent"`
	Budget *model.BudgetRule `json:"budget"`
}

func (h *CreateAgentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid project ID")
		return
	}

	var req createAgentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	daily, err := money.ParseUSD(req.DailyLimit)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid daily_limit amount")
		return
	}
	perTx, err := money.ParseUSD(req.PerTxLimit)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid per_tx_limit amount")
		return
	}

	input := service.CreateAgentInput{
		Name:        req.Name,
		Description: req.Description,
		Provider:    req.Provider,
		Model:       req.Model,
		DailyLimit:  daily,
		PerTxLimit:  perTx,
	}
	if req.MonthlyLimit != "" {
		monthly, err := money.ParseUSD(req.MonthlyLimit)
		if err != nil {
			RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid monthly_limit amount")
			return
		}
		input.MonthlyLimit = &monthly
	}

	agent, budget, err := h.svc.Create(r.Context(), projectID, user.ID, input)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusCreated, createAgentResponse{Agent: agent, Budget: budget})
}

// --- Get Agent ---

type GetAgentHandler struct {
	svc *service.AgentService
}

func NewGetAgentHandler(svc *service.AgentService) *GetAgentHandler {
	return &GetAgentHandler{svc: svc}
}

func (h *GetAgentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid agent ID")
		return
	}

	detail, err := h.svc.Get(r.Context(), id, user.ID)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, detail)
}

// --- Update Agent ---

type UpdateAgentHandler struct {
	svc *service.AgentService
}

func NewUpdateAgentHandler(svc *service.AgentService) *UpdateAgentHandler {
	return &UpdateAgentHandler{svc: svc}
}

func (h *UpdateAgentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid agent ID")
		return
	}

	var updates store.AgentUpdates
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&updates); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	agent, err := h.svc.Update(r.Context(), id, user.ID, updates)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, agent)
}

// --- Update Agent Budget ---

type UpdateBudgetHandler struct {
	svc *service.AgentService
}

func NewUpdateBudgetHandler(svc *service.AgentService) *UpdateBudgetHandler {
	return &UpdateBudgetHandler{svc: svc}
}

type updateBudgetRequest struct {
	DailyLimit   *string `json:"daily_limit,omitempty"`
	PerTxLimit   *string `json:"per_tx_limit,omitempty"`
	MonthlyLimit *string `json:"monthly_limit,omitempty"`
}

func (h *UpdateBudgetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid agent ID")
		return
	}

	var req updateBudgetRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	var updates store.BudgetUpdates
	if req.DailyLimit != nil {
		v, err := money.ParseUSD(*req.DailyLimit)
		if err != nil {
			RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid daily_limit amount")
			return
		}
		updates.DailyLimit = &v
	}
	if req.PerTxLimit != nil {
		v, err := money.ParseUSD(*req.PerTxLimit)
		if err != nil {
			RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid per_tx_limit amount")
			return
		}
		updates.PerTxLimit = &v
	}
	if req.MonthlyLimit != nil {
		v, err := money.ParseUSD(*req.MonthlyLimit)
		if err != nil {
			RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid monthly_limit amount")
			return
		}
		updates.MonthlyLimit = &v
	}

	budget, err := h.svc.UpdateBudget(r.Context(), id, user.ID, updates)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, budget)
}

// --- Delete Agent ---

type DeleteAgentHandler struct {
	svc *service.AgentService
}

func NewDeleteAgentHandler(svc *service.AgentService) *DeleteAgentHandler {
	return &DeleteAgentHandler{svc: svc}
}

func (h *DeleteAgentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid agent ID")
		return
	}

	if err := h.svc.Delete(r.Context(), id, user.ID); err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"id":      id,
		"deleted": true,
	})
}
