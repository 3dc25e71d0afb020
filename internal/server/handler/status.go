package handler

import (
	"net/http"
	"time"

	"github.com/harborfi/vaultguard/internal/registry"
)

// StatusHandler serves a process status summary for dashboards.
type StatusHandler struct {
	registry  *registry.Registry
	mode      string
	startedAt time.Time
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(reg *registry.Registry, mode string, startedAt time.Time) *StatusHandler {
	return &StatusHandler{registry: reg, mode: mode, startedAt: startedAt}
}

// GetStatus responds with the run mode, uptime, and registry population.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":           h.mode,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"owner":          h.registry.Owner().Hex(),
		"positions":      len(h.registry.Positions()),
		"adaptors":       len(h.registry.Adaptors()),
		"funds":          len(h.registry.Funds()),
		"transition":     toTransitionJSON(h.registry.PendingTransition()),
	})
}
