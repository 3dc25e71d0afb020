package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	logger *slog.Logger
	checks map[string]func() error
}

// NewHealthHandler creates a HealthHandler. Each named check probes one
// backing dependency; the endpoint reports per-dependency status and degrades
// the overall status when any check fails.
func NewHealthHandler(logger *slog.Logger, checks map[string]func() error) *HealthHandler {
	return &HealthHandler{logger: logger, checks: checks}
}

// HealthCheck responds with overall and per-dependency status.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(); err != nil {
			status = "degraded"
			deps[name] = err.Error()
			continue
		}
		deps[name] = "ok"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":       status,
		"dependencies": deps,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}
