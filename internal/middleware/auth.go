package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"exam-portal/internal/event"
	"exam-portal/internal/model"
	"exam-portal/pkg/apierror"
)

// AccessTokenCookie is read before the Authorization header.
const AccessTokenCookie = "accessToken"

type principalResolver interface {
	ResolvePrincipal(ctx context.Context, accessToken string) (model.Principal, error)
}

type contextKey string

const principalContextKey contextKey = "principal"

type AuthMiddleware struct {
	resolver principalResolver
}

func NewAuthMiddleware(resolver principalResolver) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver}
}

// RequireAuth rejects requests without a resolvable access token and
// attaches the resolved principal to the request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}

		principal, err := m.resolver.ResolvePrincipal(r.Context(), token)
		if err != nil {
			code, message := resolutionFailure(err)
			writeJSONError(w, http.StatusUnauthorized, code, message)
			return
		}

		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principal)))
	})
}

// RequireRoles authenticates and then allows only the listed roles.
func (m *AuthMiddleware) RequireRoles(allowed ...model.Role) func(http.Handler) http.Handler {
	roleSet := make(map[model.Role]struct{}, len(allowed))
	for _, role := range allowed {
		roleSet[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}

			if _, exists := roleSet[principal.Role]; !exists {
				writeJSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		}))
	}
}

func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return m.RequireRoles(model.RoleAdmin, model.RoleSuperAdmin)(next)
}

func (m *AuthMiddleware) RequireSuperAdmin(next http.Handler) http.Handler {
	return m.RequireRoles(model.RoleSuperAdmin)(next)
}

func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return m.RequireRoles(model.RoleUser)(next)
}

func (m *AuthMiddleware) RequireAny(next http.Handler) http.Handler {
	return m.RequireRoles(model.RoleUser, model.RoleAdmin, model.RoleSuperAdmin)(next)
}

// Optional resolves a token when one is present. Failures are ignored and
// the request continues without a principal.
func (m *AuthMiddleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		principal, err := m.resolver.ResolvePrincipal(r.Context(), token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principal)))
	})
}

func PrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(model.Principal)
	return principal, ok
}

// PrincipalHandlerFunc is a handler that receives the authenticated caller
// as an argument.
type PrincipalHandlerFunc func(w http.ResponseWriter, r *http.Request, principal model.Principal)

// WithPrincipal adapts h for use behind RequireAuth or RequireRoles.
func WithPrincipal(h PrincipalHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}
		h(w, r, principal)
	}
}

func withPrincipal(ctx context.Context, principal model.Principal) context.Context {
	actor := event.ActorFromContext(ctx)
	actor.ID = principal.ID
	actor.Email = principal.Email
	actor.Role = principal.Role

	ctx = event.WithActor(ctx, actor)
	return context.WithValue(ctx, principalContextKey, principal)
}

func extractToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		if value := strings.TrimSpace(cookie.Value); value != "" {
			return value
		}
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func resolutionFailure(err error) (string, string) {
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Message
	}

	slog.Error("principal resolution failed", "error", err)
	return "UNAUTHORIZED", "authentication failed"
}
