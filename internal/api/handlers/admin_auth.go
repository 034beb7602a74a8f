package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Togather-Foundation/confdir/internal/api/middleware"
	"github.com/Togather-Foundation/confdir/internal/api/problem"
	"github.com/Togather-Foundation/confdir/internal/audit"
	"github.com/Togather-Foundation/confdir/internal/auth"
	"github.com/Togather-Foundation/confdir/internal/domain/users"
	"github.com/Togather-Foundation/confdir/internal/metrics"
	"github.com/rs/zerolog"
)

type AdminAuthHandler struct {
	Users      *users.Service
	JWTManager *auth.JWTManager
	Env        string

	// SecureCookie marks the session cookie Secure; set when served over HTTPS.
	SecureCookie bool
	now          func() time.Time
}

func NewAdminAuthHandler(userService *users.Service, jwtManager *auth.JWTManager, env string, secureCookie bool) *AdminAuthHandler {
	return &AdminAuthHandler{
		Users:        userService,
		JWTManager:   jwtManager,
		Env:          env,
		SecureCookie: secureCookie,
		now:          time.Now,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string            `json:"token"`
	ExpiresAt string            `json:"expiresAt"`
	User      principalResponse `json:"user"`
}

// Login handles POST /api/v1/admin/login. The token is returned in the body
// for API clients and set as an HttpOnly cookie for the browser UI.
func (h *AdminAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Users == nil || h.JWTManager == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", nil, "")
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, r, err, h.Env)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Email and password are required", nil, h.Env)
		return
	}

	principal, err := h.Users.Authenticate(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, users.ErrInvalidCredentials):
		metrics.LoginAttemptsTotal.WithLabelValues("invalid").Inc()
		logAuth(r, "admin.login", audit.Actor{Email: req.Email}, audit.StatusFailure, "invalid_credentials")
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid credentials", err, h.Env)
		return
	case errors.Is(err, users.ErrInactive):
		metrics.LoginAttemptsTotal.WithLabelValues("inactive").Inc()
		logAuth(r, "admin.login", audit.Actor{Email: req.Email}, audit.StatusFailure, "inactive")
		problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Account is not active", err, h.Env)
		return
	case err != nil:
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", err, h.Env)
		return
	}

	token, err := h.JWTManager.Generate(principal.ID, string(principal.Role), principal.Email)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", err, h.Env)
		return
	}
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	logAuth(r, "admin.login", audit.Actor{ID: principal.ID, Email: principal.Email}, audit.StatusSuccess, "")

	expiresAt := h.now().Add(h.JWTManager.Expiry())
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AdminAuthCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.SecureCookie || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	zerolog.Ctx(r.Context()).Info().Str("user_id", principal.ID).Str("role", string(principal.Role)).Msg("admin login")
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
		User:      newPrincipalResponse(principal),
	})
}

// Signup handles POST /api/v1/admin/signup, where an invited user picks a
// password. It does not sign the user in.
func (h *AdminAuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Users == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", nil, "")
		return
	}

	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, r, err, h.Env)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Email and password are required", nil, h.Env)
		return
	}

	user, err := h.Users.AcceptInvite(r.Context(), req.Email, req.Name, req.Password)
	switch {
	case errors.Is(err, users.ErrNotInvited):
		logAuth(r, "admin.signup", audit.Actor{Email: req.Email}, audit.StatusFailure, "not_invited")
		problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "No pending invitation for this email", err, h.Env)
		return
	case err != nil:
		logAuth(r, "admin.signup", audit.Actor{Email: req.Email}, audit.StatusFailure, "rejected")
		writeServiceError(w, r, err, h.Env)
		return
	}
	logAuth(r, "admin.signup", audit.Actor{ID: user.ID, Email: user.Email}, audit.StatusSuccess, "")

	writeJSON(w, http.StatusOK, newUserResponse(*user))
}

// Logout handles POST /api/v1/admin/logout by clearing the session cookie.
func (h *AdminAuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AdminAuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookie || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Session handles GET /api/v1/admin/session and echoes the signed-in admin.
func (h *AdminAuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	principal := middleware.AdminPrincipal(r)
	if principal == nil {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", problem.ErrUnauthorized, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, newPrincipalResponse(principal))
}

func logAuth(r *http.Request, action string, actor audit.Actor, status, reason string) {
	var details map[string]string
	if reason != "" {
		details = map[string]string{"reason": reason}
	}
	audit.FromContext(r.Context()).LogFromRequest(r, actor, action, "user", actor.ID, status, details)
}
