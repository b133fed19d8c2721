package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lucci-xyz/pilot/internal/middleware"
	"github.com/lucci-xyz/pilot/internal/model"
	"github.com/lucci-xyz/pilot/internal/service"
)

// --- List API Keys ---

type ListAPIKeysHandler struct {
	svc *service.APIKeyService
}

func NewListAPIKeysHandler(svc *service.APIKeyService) *ListAPIKeysHandler {
	return &ListAPIKeysHandler{svc: svc}
}

// apiKeyView decorates a key with its masked display form; the stored prefix
// is all that survives of the plaintext key.
type apiKeyView struct {
	*model.APIKey
	MaskedKey string `json:"masked_key"`
}

func (h *ListAPIKeysHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	keys, err := h.svc.List(r.Context(), user.ID)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	views := make([]apiKeyView, 0, len(keys))
	for _, k := range keys {
		views = append(views, apiKeyView{APIKey: k, MaskedKey: service.MaskKeyPrefix(k.KeyPrefix, "")})
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{"api_keys": views})
}

// --- Create API Key ---

type CreateAPIKeyHandler struct {
	svc *service.APIKeyService
}

func NewCreateAPIKeyHandler(svc *service.APIKeyService) *CreateAPIKeyHandler {
	return &CreateAPIKeyHandler{svc: svc}
}

type createAPIKeyRequest struct {
	Name        string     `json:"name"`
	Permissions []string   `json:"permissions,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type createAPIKeyResponse struct {
	APIKey    *model.APIKey `json:"api_key"`
	Key       string        `json:"key"`
	MaskedKey string        `json:"masked_key"`
}

func (h *CreateAPIKeyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var req createAPIKeyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	result, err := h.svc.Create(r.Context(), user.ID, service.CreateAPIKeyInput{
		Name:        req.Name,
		Permissions: req.Permissions,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		service.RespondError(w, err)
		return
	}

	// The plaintext key appears in this response and nowhere else.
	RespondJSON(w, http.StatusCreated, createAPIKeyResponse{
		APIKey:    result.APIKey,
		Key:       result.PlainKey,
		MaskedKey: service.MaskKeyPrefix(result.APIKey.KeyPrefix, result.PlainKey),
	})
}

// --- Delete API Key ---

type DeleteAPIKeyHandler struct {
	svc *service.APIKeyService
}

func NewDeleteAPIKeyHandler(svc *service.APIKeyService) *DeleteAPIKeyHandler {
	return &DeleteAPIKeyHandler{svc: svc}
}

func (h *DeleteAPIKeyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid API key ID")
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
