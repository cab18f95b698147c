package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"plantdoc/internal/auth"
	"plantdoc/internal/model"
)

type contextKey string

const (
	AuthContextKey contextKey = "authContext"
	RequestIDKey   contextKey = "requestId"
)

// AuthMiddleware provides JWT authentication and route guarding
type AuthMiddleware struct {
	auth *auth.Authenticator
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(a *auth.Authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: a}
}

// Authenticate resolves the bearer token into an AuthContext. It never
// rejects a request; Require does that.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac := m.auth.Context(extractBearerToken(r))
		ctx := context.WithValue(r.Context(), AuthContextKey, ac)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Require applies auth.Guard for a protected route open to roles. A
// redirect to the login page becomes 401, any other redirect 403.
func (m *AuthMiddleware) Require(roles ...model.Role) func(http.Handler) http.Handler {
	req := auth.RouteRequirements{Protected: true, AllowedRoles: roles}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := auth.Guard(req, GetAuthContext(r.Context()))
			if d.Allow {
				next.ServeHTTP(w, r)
				return
			}

			status := http.StatusForbidden
			msg := "forbidden"
			if d.Redirect == auth.LoginPath {
				status = http.StatusUnauthorized
				msg = "invalid or expired token"
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]string{"error": msg, "redirect": d.Redirect})
		})
	}
}

// GetAuthContext extracts the AuthContext from context
func GetAuthContext(ctx context.Context) auth.AuthContext {
	if v, ok := ctx.Value(AuthContextKey).(auth.AuthContext); ok {
		return v
	}
	return auth.AuthContext{Role: -1}
}

// GetUserID extracts the user ID from context
func GetUserID(ctx context.Context) string {
	return GetAuthContext(ctx).UserID
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(RequestIDKey).(string); ok {
		return v
	}
	return ""
}

func extractBearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if authz == "" {
		return ""
	}
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
