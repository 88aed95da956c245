package middleware

import (
	"context"
	"net/http"
	"strings"

	jwtinfra "github.com/print-order-api/internal/infrastructure/jwt"
)

type contextKey string

const claimsKey contextKey = "claims"

type tokenVerifier interface {
	Verify(tokenStr string) (*jwtinfra.Claims, error)
}

// Auth returns middleware that validates the Bearer JWT and injects claims into context.
func Auth(verifier tokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, "missing_token")
				return
			}
			claims, err := verifier.Verify(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Deny rejects every request. It guards admin routes when no verification
// key is configured.
func Deny(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusUnauthorized, "admin access disabled")
	})
}

// ClaimsFromContext extracts JWT claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*jwtinfra.Claims)
	return c, ok
}
