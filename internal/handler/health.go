package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// UserCounter reports the number of registered users, doubling as a
// database reachability probe.
type UserCounter interface {
	CountUsers(ctx context.Context) (int, error)
}

type HealthHandler struct {
	store     UserCounter
	version   string
	startedAt time.Time
}

func NewHealthHandler(store UserCounter, version string) *HealthHandler {
	return &HealthHandler{store: store, version: version, startedAt: time.Now()}
}

type healthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Database      string `json:"database"`
	Users         int    `json:"users"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:        "ok",
		Version:       h.version,
		Database:      "ok",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	}

	status := http.StatusOK
	users, err := h.store.CountUsers(ctx)
	if err != nil {
		log.Error().Err(err).Msg("health check database probe failed")
		resp.Status = "degraded"
		resp.Database = "unreachable"
		status = http.StatusServiceUnavailable
	} else {
		resp.Users = users
	}

	RespondJSON(w, status, resp)
}
