package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/harborfi/vaultguard/internal/domain"
	"github.com/harborfi/vaultguard/internal/registry"
)

// FundHandler exposes fund registration, pause control, and the per-fund
// volume throttle.
type FundHandler struct {
	registry *registry.Registry
	logger   *slog.Logger
}

// NewFundHandler creates a FundHandler.
func NewFundHandler(reg *registry.Registry, logger *slog.Logger) *FundHandler {
	return &FundHandler{registry: reg, logger: logHandler(logger, "funds")}
}

// ListFunds responds with every registered fund.
// GET /api/funds
func (h *FundHandler) ListFunds(w http.ResponseWriter, r *http.Request) {
	recs := h.registry.Funds()
	out := make([]fundJSON, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toFundJSON(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"funds": out})
}

// RegisterFund registers a new fund identity.
// POST /api/funds
func (h *FundHandler) RegisterFund(w http.ResponseWriter, r *http.Request) {
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
	fund, err := parseAddress(req.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.registry.RegisterFund(r.Context(), caller, fund); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"address": fund.Hex()})
}

// Pause pauses a batch of funds atomically.
// POST /api/funds/pause
func (h *FundHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, true)
}

// Unpause unpauses a batch of funds atomically.
// POST /api/funds/unpause
func (h *FundHandler) Unpause(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, false)
}

func (h *FundHandler) setPaused(w http.ResponseWriter, r *http.Request, paused bool) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}

	var req struct {
		Funds []string `json:"funds"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	funds := make([]common.Address, 0, len(req.Funds))
	for _, raw := range req.Funds {
		addr, err := parseAddress(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		funds = append(funds, addr)
	}

	var err error
	if paused {
		err = h.registry.BatchPause(r.Context(), caller, funds)
	} else {
		err = h.registry.BatchUnpause(r.Context(), caller, funds)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": len(funds)})
}

// GetVolumeWindow responds with the fund's throttle window state.
// GET /api/funds/{address}/volume
func (h *FundHandler) GetVolumeWindow(w http.ResponseWriter, r *http.Request) {
	fund, err := parseAddress(r.PathValue("address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	window, err := h.registry.VolumeWindow(fund)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toVolumeWindowJSON(window))
}

// SetVolumeParams tunes the fund's volume throttle. Max volume is a decimal
// string in 8-decimal USD fixed point, or "unlimited" to disable the cap.
// PUT /api/funds/{address}/volume
func (h *FundHandler) SetVolumeParams(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	fund, err := parseAddress(r.PathValue("address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		PeriodSeconds int64  `json:"period_seconds"`
		MaxVolume     string `json:"max_volume"`
		Reset         bool   `json:"reset"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	maxVolume, err := parseMaxVolume(req.MaxVolume)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	period := time.Duration(req.PeriodSeconds) * time.Second
	if err := h.registry.SetMaxAllowedAdaptorVolumeParams(r.Context(), caller, fund, period, maxVolume, req.Reset); err != nil {
		writeDomainError(w, err)
		return
	}
	window, err := h.registry.VolumeWindow(fund)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toVolumeWindowJSON(window))
}

func parseMaxVolume(raw string) (uint64, error) {
	if raw == "unlimited" {
		return domain.UnlimitedVolume, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid max_volume %q", raw)
	}
	return v, nil
}
