package handler

import (
	"log/slog"
	"net/http"

	"github.com/harborfi/vaultguard/internal/domain"
)

// AuditHandler exposes read access to the append-only audit log.
type AuditHandler struct {
	store  domain.AuditStore
	logger *slog.Logger
}

// NewAuditHandler creates an AuditHandler.
func NewAuditHandler(store domain.AuditStore, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{store: store, logger: logHandler(logger, "audit")}
}

// ListEntries responds with a page of audit entries, newest first.
// GET /api/audit
func (h *AuditHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.List(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "audit list failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "audit log unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
