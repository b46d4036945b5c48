package api

import (
	"net/http"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	now Clock
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(now Clock) *HealthHandler {
	return &HealthHandler{now: now}
}

// HandleHealth handles GET /health requests. It always reports healthy.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Timestamp: timestamp(h.now)})
}
