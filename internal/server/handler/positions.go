package handler

import (
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/harborfi/vaultguard/internal/domain"
	"github.com/harborfi/vaultguard/internal/registry"
)

// PositionHandler exposes the position registry.
type PositionHandler struct {
	registry *registry.Registry
	logger   *slog.Logger
}

// NewPositionHandler creates a PositionHandler.
func NewPositionHandler(reg *registry.Registry, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{registry: reg, logger: logHandler(logger, "positions")}
}

// ListPositions responds with every position record.
// GET /api/positions
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	recs := h.registry.Positions()
	out := make([]positionJSON, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toPositionJSON(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"positions": out})
}

// GetPosition responds with a single position record.
// GET /api/positions/{id}
func (h *PositionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint32(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := h.registry.Position(domain.PositionID(id))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPositionJSON(rec))
}

// LookupByHash resolves a position hash to its id.
// GET /api/positions/hash/{hash}
func (h *PositionHandler) LookupByHash(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("hash")
	if len(raw) != 2+2*common.HashLength || raw[:2] != "0x" {
		writeError(w, http.StatusBadRequest, "invalid position hash")
		return
	}
	id, err := h.registry.PositionIDForHash(common.HexToHash(raw))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint32{"id": uint32(id)})
}

// TrustPosition binds a position id to a verified adaptor tuple.
// POST /api/positions
func (h *PositionHandler) TrustPosition(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}

	var req struct {
		ID                uint32 `json:"id"`
		AdaptorRef        string `json:"adaptor_ref"`
		AdaptorData       string `json:"adaptor_data"`
		ConfigurationData string `json:"configuration_data"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ref, err := parseAddress(req.AdaptorRef)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	adaptorData, err := parseHexBytes(req.AdaptorData)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	configData, err := parseHexBytes(req.ConfigurationData)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.registry.TrustPosition(r.Context(), caller, domain.PositionID(req.ID), ref, adaptorData, configData); err != nil {
		writeDomainError(w, err)
		return
	}
	rec, err := h.registry.Position(domain.PositionID(req.ID))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPositionJSON(rec))
}

// DistrustPosition flips trust off. The binding and its hash survive so the
// id can never be rebound to different content.
// DELETE /api/positions/{id}/trust
func (h *PositionHandler) DistrustPosition(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathUint32(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.registry.DistrustPosition(r.Context(), caller, domain.PositionID(id)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "distrusted"})
}
