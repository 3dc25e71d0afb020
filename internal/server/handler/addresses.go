package handler

import (
	"log/slog"
	"net/http"

	"github.com/harborfi/vaultguard/internal/registry"
)

// AddressHandler exposes the slot-indexed address-config table.
type AddressHandler struct {
	registry *registry.Registry
	logger   *slog.Logger
}

// NewAddressHandler creates an AddressHandler.
func NewAddressHandler(reg *registry.Registry, logger *slog.Logger) *AddressHandler {
	return &AddressHandler{registry: reg, logger: logHandler(logger, "addresses")}
}

// GetAddress responds with the address in a slot.
// GET /api/addresses/{slot}
func (h *AddressHandler) GetAddress(w http.ResponseWriter, r *http.Request) {
	slot, err := pathUint32(r, "slot")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	addr, err := h.registry.GetAddress(slot)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slot": slot, "address": addr.Hex()})
}

// Register appends an address to the table and responds with its slot.
// POST /api/addresses
func (h *AddressHandler) Register(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}

	var req struct {
		Address string `json:"address"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	addr, err := parseAddress(req.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	slot, err := h.registry.Register(r.Context(), caller, addr)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"slot": slot, "address": addr.Hex()})
}

// SetAddress overwrites an existing slot.
// PUT /api/addresses/{slot}
func (h *AddressHandler) SetAddress(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	slot, err := pathUint32(r, "slot")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Address string `json:"address"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	addr, err := parseAddress(req.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.registry.SetAddress(r.Context(), caller, slot, addr); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slot": slot, "address": addr.Hex()})
}
