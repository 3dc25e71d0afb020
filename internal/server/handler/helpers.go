package handler

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/harborfi/vaultguard/internal/domain"
	"github.com/harborfi/vaultguard/internal/server/middleware"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps a registry error to its HTTP status and writes it.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

// statusFor classifies registry errors into HTTP status codes. Authorization
// failures are 403 rather than 401 because the request authenticated fine;
// the principal simply lacks the right.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrNotZeroID),
		errors.Is(err, domain.ErrNotPendingOwner):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrPositionNotFound),
		errors.Is(err, domain.ErrNoTransition):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrPositionBound),
		errors.Is(err, domain.ErrAdaptorTrusted),
		errors.Is(err, domain.ErrIdentifierClaimed),
		errors.Is(err, domain.ErrHashCollision),
		errors.Is(err, domain.ErrTransitionPending):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTransitionNotReady):
		return http.StatusLocked
	case errors.Is(err, domain.ErrVolumeExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrVolumeOverflow),
		errors.Is(err, domain.ErrUnsupportedAsset),
		errors.Is(err, domain.ErrPositionNotTrusted),
		errors.Is(err, domain.ErrAdaptorNotTrusted),
		errors.Is(err, domain.ErrFundNotRegistered),
		errors.Is(err, domain.ErrFundPaused):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// principal extracts the authenticated principal, writing a 401 when the
// request carries none. Mutating endpoints require it.
func principal(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	addr, ok := middleware.Principal(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "no principal attached to request")
		return common.Address{}, false
	}
	return addr, true
}

// parseAddress validates and decodes a hex address field.
func parseAddress(raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid address %q", raw)
	}
	return common.HexToAddress(raw), nil
}

// parseHexBytes decodes an optional 0x-prefixed hex blob. Empty input is a
// valid empty payload.
func parseHexBytes(raw string) ([]byte, error) {
	raw = strings.TrimPrefix(raw, "0x")
	if raw == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid hex payload: %w", err)
	}
	return b, nil
}

// decodeBody unmarshals the JSON request body into dst, rejecting unknown
// fields so typos surface instead of silently dropping input.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// parseListOpts extracts standard pagination parameters from the query string.
// Defaults: limit=50 (max 500), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return domain.ListOpts{
		Limit:  limit,
		Offset: offset,
	}
}

// logHandler is a convenience to attach slog fields in handler code.
func logHandler(logger *slog.Logger, handler string) *slog.Logger {
	return logger.With(slog.String("handler", handler))
}

// pathUint32 parses a numeric path parameter.
func pathUint32(r *http.Request, name string) (uint32, error) {
	raw := r.PathValue(name)
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return uint32(n), nil
}
