package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcoot/realmkeeper/internal/api/apierr"
	"github.com/mcoot/realmkeeper/internal/model"
	"github.com/mcoot/realmkeeper/internal/services/auth"
)

type contextKey string

const (
	principalContextKey contextKey = "principal"
	tokenContextKey     contextKey = "token"
)

// Auth creates authentication middleware.
// The bearer token may also arrive as ?token= for clients that cannot set
// headers on a WebSocket handshake.
func Auth(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			principal, err := authService.Authenticate(r.Context(), token)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, principalContextKey, principal)
			ctx = context.WithValue(ctx, tokenContextKey, token)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken extracts the bearer token from the request
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if scheme, value, ok := strings.Cut(authHeader, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(value)
	}

	return r.URL.Query().Get("token")
}

// GetPrincipal returns the authenticated principal from the request context
func GetPrincipal(ctx context.Context) (model.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(model.Principal)
	return principal, ok
}

// GetToken returns the raw bearer token from the request context
func GetToken(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey).(string)
	return token
}

// MustGetPrincipal returns the authenticated principal or panics
func MustGetPrincipal(ctx context.Context) model.Principal {
	principal, ok := GetPrincipal(ctx)
	if !ok {
		panic("no principal in context - auth middleware not applied?")
	}
	return principal
}
