package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

type principalKey struct{}

// Principal returns the authenticated principal address attached to the
// request context by Auth. The second return is false when the request was
// not authenticated (auth disabled and no principal header supplied).
func Principal(ctx context.Context) (common.Address, bool) {
	addr, ok := ctx.Value(principalKey{}).(common.Address)
	return addr, ok
}

// Auth returns middleware that validates API requests using either a Bearer
// token in the Authorization header or a static key in the X-API-Key header,
// and resolves the key to its configured principal address. Every registry
// mutation is attributed to that principal.
//
// If apiKeys is empty, authentication is disabled; the caller may then assert
// a principal directly via the X-Principal header, which only makes sense in
// development setups.
func Auth(apiKeys map[string]common.Address) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(apiKeys) == 0 {
				if raw := r.Header.Get("X-Principal"); common.IsHexAddress(raw) {
					ctx := context.WithValue(r.Context(), principalKey{}, common.HexToAddress(raw))
					r = r.WithContext(ctx)
				}
				next.ServeHTTP(w, r)
				return
			}

			token := extractToken(r)
			if token == "" {
				writeUnauthorized(w, "missing authentication token")
				return
			}

			principal, ok := lookupKey(apiKeys, token)
			if !ok {
				writeUnauthorized(w, "invalid authentication token")
				return
			}

			ctx := context.WithValue(r.Context(), principalKey{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// lookupKey compares the presented token against every configured key in
// constant time so the comparison leaks no timing information.
func lookupKey(apiKeys map[string]common.Address, token string) (common.Address, bool) {
	var (
		found     bool
		principal common.Address
	)
	for key, addr := range apiKeys {
		if subtle.ConstantTimeCompare([]byte(token), []byte(key)) == 1 {
			found = true
			principal = addr
		}
	}
	return principal, found
}

// extractToken looks for a token in the Authorization header (Bearer scheme)
// or in the X-API-Key header.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return strings.TrimSpace(key)
	}
	return ""
}

// writeUnauthorized sends a 401 response with a JSON error body.
func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
