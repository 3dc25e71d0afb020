package handler

import (
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/harborfi/vaultguard/internal/domain"
	"github.com/harborfi/vaultguard/internal/registry"
)

// UnitResolver resolves an adaptor reference to its live unit. The server is
// configured with the units the process actually runs; trust can only be
// granted to one of those.
type UnitResolver func(ref common.Address) (domain.Adaptor, bool)

// AdaptorHandler exposes the adaptor trust ledger.
type AdaptorHandler struct {
	registry *registry.Registry
	resolve  UnitResolver
	logger   *slog.Logger
}

// NewAdaptorHandler creates an AdaptorHandler.
func NewAdaptorHandler(reg *registry.Registry, resolve UnitResolver, logger *slog.Logger) *AdaptorHandler {
	return &AdaptorHandler{registry: reg, resolve: resolve, logger: logHandler(logger, "adaptors")}
}

// ListAdaptors responds with every adaptor trust entry.
// GET /api/adaptors
func (h *AdaptorHandler) ListAdaptors(w http.ResponseWriter, r *http.Request) {
	entries := h.registry.Adaptors()
	out := make([]adaptorJSON, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toAdaptorJSON(entry))
	}
	writeJSON(w, http.StatusOK, map[string]any{"adaptors": out})
}

// GetAdaptor responds with a single trust entry.
// GET /api/adaptors/{ref}
func (h *AdaptorHandler) GetAdaptor(w http.ResponseWriter, r *http.Request) {
	ref, err := parseAddress(r.PathValue("ref"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry, err := h.registry.AdaptorEntry(ref)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAdaptorJSON(entry))
}

// TrustAdaptor grants trust to one of the process's configured adaptor units.
// POST /api/adaptors/{ref}/trust
func (h *AdaptorHandler) TrustAdaptor(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	ref, err := parseAddress(r.PathValue("ref"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	unit, ok := h.resolve(ref)
	if !ok {
		writeError(w, http.StatusNotFound, "no adaptor unit configured at "+ref.Hex())
		return
	}

	if err := h.registry.TrustAdaptor(r.Context(), caller, unit); err != nil {
		writeDomainError(w, err)
		return
	}
	entry, err := h.registry.AdaptorEntry(ref)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAdaptorJSON(entry))
}

// DistrustAdaptor revokes trust. The entry and its identifier claim survive.
// DELETE /api/adaptors/{ref}/trust
func (h *AdaptorHandler) DistrustAdaptor(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	ref, err := parseAddress(r.PathValue("ref"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.registry.DistrustAdaptor(r.Context(), caller, ref); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "distrusted"})
}
