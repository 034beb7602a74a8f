package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Togather-Foundation/confdir/internal/api/problem"
	"github.com/Togather-Foundation/confdir/internal/auth"
	"github.com/Togather-Foundation/confdir/internal/domain/users"
)

// AdminAuthCookieName holds the session token for browser admins.
const AdminAuthCookieName = "confdir_admin_token"

type contextKeyAuth string

const adminPrincipalKey contextKeyAuth = "adminPrincipal"

// PrincipalResolver maps a token subject to the admin behind it, so that
// deactivated users and role changes take effect before tokens expire.
type PrincipalResolver interface {
	Principal(ctx context.Context, id string) (*users.Principal, error)
}

// AdminAuth accepts a Bearer token from the Authorization header or, failing
// that, the session cookie. The resolved principal is stored in the request
// context.
func AdminAuth(manager *auth.JWTManager, resolver PrincipalResolver, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if manager == nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", problem.ErrUnauthorized, env)
				return
			}

			token, err := requestToken(r)
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Missing credentials", err, env)
				return
			}

			claims, err := manager.Validate(token)
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid token", err, env)
				return
			}

			principal := &users.Principal{
				ID:    claims.Subject,
				Email: claims.Email,
				Role:  auth.NormalizeRole(claims.Role),
			}
			if resolver != nil {
				principal, err = resolver.Principal(r.Context(), claims.Subject)
				switch {
				case errors.Is(err, users.ErrNotFound), errors.Is(err, users.ErrInactive):
					problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Account unavailable", err, env)
					return
				case err != nil:
					problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", err, env)
					return
				}
			}

			ctx := context.WithValue(r.Context(), adminPrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole refuses principals whose role is not one of roles with 403.
// It must run inside AdminAuth.
func RequireRole(env string, roles ...users.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := AdminPrincipal(r)
			if principal == nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", problem.ErrUnauthorized, env)
				return
			}
			if !auth.HasRole(string(principal.Role), roles...) {
				problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Insufficient permissions", problem.ErrForbidden, env)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminPrincipal returns the authenticated admin, or nil outside AdminAuth.
func AdminPrincipal(r *http.Request) *users.Principal {
	if r == nil {
		return nil
	}
	if principal, ok := r.Context().Value(adminPrincipalKey).(*users.Principal); ok {
		return principal
	}
	return nil
}

func requestToken(r *http.Request) (string, error) {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		return auth.TokenFromHeader(header)
	}
	cookie, err := r.Cookie(AdminAuthCookieName)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		return "", auth.ErrMissingToken
	}
	return cookie.Value, nil
}

// usesBearer reports whether the request authenticates with a header token
// rather than the session cookie.
func usesBearer(r *http.Request) bool {
	return strings.TrimSpace(r.Header.Get("Authorization")) != ""
}
