package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/orgdesk/orgdesk/internal/model"
	"github.com/orgdesk/orgdesk/internal/rbac"
	"github.com/orgdesk/orgdesk/internal/service"
)

type contextKeyAuth string

// AccessContextKey is the context key for the resolved access context.
const AccessContextKey contextKeyAuth = "access_context"

// Authenticate validates the Bearer token and resolves a fresh
// AccessContext for the request. Resolution happens on every request, so
// role and permission edits take effect immediately.
//
// A token whose subject no longer resolves is rejected with the same
// generic 401 as a bad token: account existence is never leaked.
func Authenticate(authSvc *service.AuthService, resolver *rbac.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeAuthError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			userID, err := authSvc.ValidateToken(r.Context(), strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			ac, err := resolver.Resolve(r.Context(), userID)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), AccessContextKey, ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission enforces a permission requirement for every request in
// the group. It must run after Authenticate. Denials are a generic 403
// with no detail on which check failed.
func RequirePermission(resource, action string) func(http.Handler) http.Handler {
	need := &rbac.Requirement{Resource: resource, Action: action}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac := GetAccessContext(r.Context())
			if ac == nil || !rbac.Allow(ac, need) {
				writeAuthError(w, http.StatusForbidden, "Access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetAccessContext extracts the resolved access context from the request
// context. Returns nil for unauthenticated requests.
func GetAccessContext(ctx context.Context) *model.AccessContext {
	if ac, ok := ctx.Value(AccessContextKey).(*model.AccessContext); ok {
		return ac
	}
	return nil
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Manually construct JSON to avoid an import cycle with the handler
	// package.
	w.Write([]byte(`{"error":{"code":` + statusString(status) + `,"message":"` + message + `"}}`))
}

func statusString(code int) string {
	switch code {
	case http.StatusUnauthorized:
		return "401"
	case http.StatusForbidden:
		return "403"
	default:
		return "500"
	}
}
