package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey struct{}

// IdentityFrom returns the identity stored by the middleware.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// WithIdentity returns a context carrying the identity. Exposed for
// tests and internal wiring.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// Middleware validates the bearer token on every request and injects the
// caller identity into the request context.
func Middleware(tm *TokenManager) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenString == "" {
				writeAuthError(w, http.StatusUnauthorized, "missing bearer token", "")
				return
			}

			identity, err := tm.Parse(tokenString)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "invalid session token", "")
				return
			}

			next(w, r.WithContext(WithIdentity(r.Context(), identity)))
		}
	}
}

// RequireUser rejects anonymous sessions. Used as the identity gate on
// the online payment branch: the caller must authenticate with a UHID
// before a gateway order can be created.
func RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFrom(r.Context())
		if !ok {
			writeAuthError(w, http.StatusUnauthorized, "missing bearer token", "")
			return
		}
		if identity.Anonymous() {
			writeAuthError(w, http.StatusUnauthorized, "uhid verification required", "uhid_required")
			return
		}
		next(w, r)
	}
}

func writeAuthError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]string{"error": message}
	if code != "" {
		body["code"] = code
	}
	_ = json.NewEncoder(w).Encode(body)
}
