package middleware

import (
	"net/http"

	"github.com/Togather-Foundation/confdir/internal/api/problem"
	"github.com/gorilla/csrf"
)

// CSRFHeader carries the token on unsafe cookie-authenticated requests.
const CSRFHeader = "X-CSRF-Token"

// CSRFProtection guards cookie-authenticated admin requests against cross-site
// request forgery with the double-submit cookie pattern. Requests that carry
// an Authorization header are not exposed to CSRF and pass through untouched.
// Browser clients fetch a token from CSRFTokenHandler and echo it in the
// X-CSRF-Token header.
func CSRFProtection(authKey []byte, secure bool, env string) func(http.Handler) http.Handler {
	opts := []csrf.Option{
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.RequestHeader(CSRFHeader),
		csrf.CookieName("confdir_csrf"),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			problem.Write(w, r, http.StatusForbidden, problem.TypeCSRF, "CSRF token validation failed", csrf.FailureReason(r), env)
		})),
	}
	protect := csrf.Protect(authKey, opts...)

	return func(next http.Handler) http.Handler {
		protected := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if usesBearer(r) {
				next.ServeHTTP(w, r)
				return
			}
			if !secure {
				r = csrf.PlaintextHTTPRequest(r)
			}
			protected.ServeHTTP(w, r)
		})
	}
}

// CSRFTokenHandler returns the masked token for the current session in the
// X-CSRF-Token header and body. It must run inside CSRFProtection.
func CSRFTokenHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := csrf.Token(r)
		w.Header().Set(CSRFHeader, token)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"csrfToken":"` + token + `"}`))
	})
}
