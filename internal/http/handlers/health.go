package handlers

import (
	"net/http"
	"time"
)

// HealthHandler reports service liveness.
type HealthHandler struct {
	version  string
	provider string
}

// NewHealthHandler builds the health endpoint.
func NewHealthHandler(version, provider string) *HealthHandler {
	return &HealthHandler{version: version, provider: provider}
}

// Check handles GET /health.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"provider":  h.provider,
	})
}
