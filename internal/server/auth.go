package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/54b3r/rolerag/internal/logging"
)

// tokenKey is the context key for the raw bearer token.
type tokenKey struct{}

// requireBearer is an HTTP middleware that rejects requests without an
// "Authorization: Bearer <token>" header before any pipeline work happens.
// It only extracts the token; signature, expiry, and role checks happen in
// the pipeline so every entry point applies them identically.
//
// The token value is never logged, only its presence or absence.
func requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			logging.FromContext(r.Context()).Info("auth: missing or non-bearer Authorization header",
				slog.Bool("header_present", r.Header.Get("Authorization") != ""),
			)
			w.Header().Set("WWW-Authenticate", `Bearer realm="rolerag"`)
			writeDetail(w, r, http.StatusUnauthorized, msgInvalidToken)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), tokenKey{}, token)))
	})
}

// tokenFromContext returns the bearer token stored by requireBearer.
func tokenFromContext(ctx context.Context) string {
	tok, _ := ctx.Value(tokenKey{}).(string)
	return tok
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. Returns an empty string if the header is absent or malformed.
func bearerToken(r *http.Request) string {
	hdr := r.Header.Get("Authorization")
	if hdr == "" {
		return ""
	}
	parts := strings.SplitN(hdr, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
