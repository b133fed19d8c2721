package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lucci-xyz/pilot/internal/middleware"
	"github.com/lucci-xyz/pilot/internal/model"
	"github.com/lucci-xyz/pilot/internal/service"
	"github.com/lucci-xyz/pilot/internal/store"
)

// --- List Projects ---

type ListProjectsHandler struct {
	svc *service.ProjectService
}

func NewListProjectsHandler(svc *service.ProjectService) *ListProjectsHandler {
	return &ListProjectsHandler{svc: svc}
}

func (h *ListProjectsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	summaries, err := h.svc.List(r.Context(), user.ID)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{"projects": summaries})
}

// --- Create Project ---

type CreateProjectHandler struct {
	svc *service.ProjectService
}

func NewCreateProjectHandler(svc *service.ProjectService) *CreateProjectHandler {
	return &CreateProjectHandler{svc: svc}
}

type createProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type createProjectResponse struct {
	Project *model.Project `json:"project"`
	Vault   *model.Vault   `json:"vault"`
}

func (h *CreateProjectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var req createProjectRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	project, vault, err := h.svc.Create(r.Context(), user.ID, service.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusCreated, createProjectResponse{Project: project, Vault: vault})
}

// --- Get Project ---

type GetProjectHandler struct {
	svc *service.ProjectService
}

func NewGetProjectHandler(svc *service.ProjectService) *GetProjectHandler {
	return &GetProjectHandler{svc: svc}
}

func (h *GetProjectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid project ID")
		return
	}

	detail, err := h.svc.Get(r.Context(), id, user.ID)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, detail)
}

// --- Update Project ---

type UpdateProjectHandler struct {
	svc *service.ProjectService
}

func NewUpdateProjectHandler(svc *service.ProjectService) *UpdateProjectHandler {
	return &UpdateProjectHandler{svc: svc}
}

func (h *UpdateProjectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid project ID")
		return
	}

	var updates store.ProjectUpdates
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&updates); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	project, err := h.svc.Update(r.Context(), id, user.ID, updates)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, project)
}

// --- Delete Project ---

type DeleteProjectHandler struct {
	svc *service.ProjectService
}

func NewDeleteProjectHandler(svc *service.ProjectService) *DeleteProjectHandler {
	return &DeleteProjectHandler{svc: svc}
}

func (h *DeleteProjectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid project ID")
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
