package handler

import (
	"log/slog"
	"net/http"

	"github.com/harborfi/vaultguard/internal/registry"
)

// GovernanceHandler exposes ownership and the delayed-transition lifecycle.
type GovernanceHandler struct {
	registry *registry.Registry
	logger   *slog.Logger
}

// NewGovernanceHandler creates a GovernanceHandler.
func NewGovernanceHandler(reg *registry.Registry, logger *slog.Logger) *GovernanceHandler {
	return &GovernanceHandler{registry: reg, logger: logHandler(logger, "governance")}
}

// GetOwner responds with the current owner and any pending transition.
// GET /api/governance
func (h *GovernanceHandler) GetOwner(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"owner":      h.registry.Owner().Hex(),
		"transition": toTransitionJSON(h.registry.PendingTransition()),
	})
}

// StartTransition begins a delayed ownership handover to the given address.
// Only the zero-id principal may call it.
// POST /api/governance/transition
func (h *GovernanceHandler) StartTransition(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}

	var req struct {
		NewOwner string `json:"new_owner"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	newOwner, err := parseAddress(req.NewOwner)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.registry.TransitionOwner(r.Context(), caller, newOwner); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, toTransitionJSON(h.registry.PendingTransition()))
}

// CancelTransition aborts the pending handover. Only the zero-id principal
// may call it.
// DELETE /api/governance/transition
func (h *GovernanceHandler) CancelTransition(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	if err := h.registry.CancelTransition(r.Context(), caller); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// CompleteTransition finalizes the handover once the delay has elapsed. Only
// the pending owner may call it.
// POST /api/governance/transition/complete
func (h *GovernanceHandler) CompleteTransition(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	if err := h.registry.CompleteTransition(r.Context(), caller); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"owner": h.registry.Owner().Hex()})
}
