package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lucci-xyz/pilot/internal/middleware"
	"github.com/lucci-xyz/pilot/internal/model"
	"github.com/lucci-xyz/pilot/internal/money"
	"github.com/lucci-xyz/pilot/internal/service"
)

// --- Fund Project ---

type FundProjectHandler struct {
	svc *service.FundingService
}

func NewFundProjectHandler(svc *service.FundingService) *FundProjectHandler {
	return &FundProjectHandler{svc: svc}
}

type fundProjectRequest struct {
	Amount string `json:"amount"`
	TxHash string `json:"tx_hash,omitempty"`
}

func (h *FundProjectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid project ID")
		return
	}

	var req fundProjectRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	amount, err := money.ParseUSD(req.Amount)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid amount")
		return
	}

	event, err := h.svc.RecordFunding(r.Context(), projectID, user.ID, amount, strings.TrimSpace(req.TxHash))
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusCreated, event)
}

// --- Record Spend (machine surface) ---

type RecordSpendHandler struct {
	svc *service.FundingService
}

func NewRecordSpendHandler(svc *service.FundingService) *RecordSpendHandler {
	return &RecordSpendHandler{svc: svc}
}

type recordSpendRequest struct {
	AgentID  uuid.UUID            `json:"agent_id"`
	Amount   string               `json:"amount"`
	Metadata *model.SpendMetadata `json:"metadata,omitempty"`
}

func (h *RecordSpendHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	apiKey := middleware.GetAPIKey(r.Context())
	if apiKey == nil {
		RespondError(w, http.StatusUnauthorized, "unauthorized", "API key required")
		return
	}

	var req recordSpendRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.AgentID == uuid.Nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "agent_id is required")
		return
	}

	amount, err := money.ParseUSD(req.Amount)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid amount")
		return
	}

	event, err := h.svc.RecordSpend(r.Context(), apiKey.UserID, service.RecordSpendInput{
		AgentID:  req.AgentID,
		Amount:   amount,
		Metadata: req.Metadata,
	})
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusCreated, event)
}

// --- Key Usage (machine surface) ---

type KeyUsageHandler struct{}

func NewKeyUsageHandler() *KeyUsageHandler {
	return &KeyUsageHandler{}
}

type keyUsageResponse struct {
	KeyPrefix    string   `json:"key_prefix"`
	MaskedKey    string   `json:"masked_key"`
	Permissions  []string `json:"permissions"`
	RequestCount int64    `json:"request_count"`
	LastUsedAt   string   `json:"last_used_at,omitempty"`
	ExpiresAt    string   `json:"expires_at,omitempty"`
}

func (h *KeyUsageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	apiKey := middleware.GetAPIKey(r.Context())
	if apiKey == nil {
		RespondError(w, http.StatusUnauthorized, "unauthorized", "API key required")
		return
	}

	resp := keyUsageResponse{
		KeyPrefix:    apiKey.KeyPrefix,
		MaskedKey:    service.MaskKeyPrefix(apiKey.KeyPrefix, ""),
		Permissions:  apiKey.Permissions,
		RequestCount: apiKey.RequestCount,
	}
	if apiKey.LastUsedAt != nil {
		resp.LastUsedAt = apiKey.LastUsedAt.UTC().Format(time.RFC3339)
	}
	if apiKey.ExpiresAt != nil {
		resp.ExpiresAt = apiKey.ExpiresAt.UTC().Format(time.RFC3339)
	}

	RespondJSON(w, http.StatusOK, resp)
}
