package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Togather-Foundation/confdir/internal/api/handlers"
	"github.com/Togather-Foundation/confdir/internal/api/middleware"
	"github.com/Togather-Foundation/confdir/internal/audit"
	"github.com/Togather-Foundation/confdir/internal/auth"
	"github.com/Togather-Foundation/confdir/internal/config"
	"github.com/Togather-Foundation/confdir/internal/domain/conferences"
	"github.com/Togather-Foundation/confdir/internal/domain/events"
	"github.com/Togather-Foundation/confdir/internal/domain/users"
	"github.com/Togather-Foundation/confdir/internal/metrics"
	"github.com/Togather-Foundation/confdir/internal/storage"
	"github.com/rs/zerolog"
)

// BuildInfo identifies the running binary on /version and /health.
type BuildInfo struct {
	Version   string
	GitCommit string
	BuildDate string
}

// Dependencies are the services the HTTP API is built on.
type Dependencies struct {
	Config      config.Config
	Logger      zerolog.Logger
	Store       *storage.Store
	Conferences *conferences.Service
	Events      *events.Service
	Users       *users.Service
	JWTManager  *auth.JWTManager
	// RateLimiter is optional; without it requests are not throttled.
	RateLimiter *middleware.RateLimiter
	Build       BuildInfo
}

type middlewareFunc = func(http.Handler) http.Handler

// NewRouter wires every route and wraps the mux in the shared middleware
// stack. Metrics wrap the mux directly so they see the matched pattern.
func NewRouter(deps Dependencies) (http.Handler, error) {
	cfg := deps.Config
	env := cfg.Environment
	secure := strings.HasPrefix(cfg.Server.BaseURL, "https://")

	csrfKey, err := auth.DeriveCSRFKey([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("derive csrf key: %w", err)
	}

	health := handlers.NewHealthChecker(deps.Store, deps.Store.Pool(), deps.Build.Version, deps.Build.GitCommit)
	conferencesHandler := handlers.NewConferencesHandler(deps.Conferences, deps.Events, env)
	eventsHandler := handlers.NewEventsHandler(deps.Events, env)
	submissionsHandler := handlers.NewSubmissionsHandler(deps.Conferences, deps.Events, env)
	adminAuthHandler := handlers.NewAdminAuthHandler(deps.Users, deps.JWTManager, env, secure)
	adminHandler := handlers.NewAdminHandler(deps.Conferences, deps.Events, deps.Store, env)
	adminUsersHandler := handlers.NewAdminUsersHandler(deps.Users, env)

	limit := func(tier middleware.RateLimitTier) middlewareFunc {
		if deps.RateLimiter == nil {
			return passthrough
		}
		return deps.RateLimiter.Limit(tier)
	}

	public := func(h http.HandlerFunc) http.Handler {
		return chain(h, limit(middleware.TierPublic), middleware.PublicRequestSize(env))
	}
	auditTrail := audit.Middleware(audit.NewLogger(deps.Logger))
	csrf := middleware.CSRFProtection(csrfKey, secure, env)
	authed := middleware.AdminAuth(deps.JWTManager, deps.Users, env)
	admin := func(h http.HandlerFunc, roles ...users.Role) http.Handler {
		mws := []middlewareFunc{limit(middleware.TierAdmin), middleware.AdminRequestSize(env), csrf, authed, auditTrail}
		if len(roles) > 0 {
			mws = append(mws, middleware.RequireRole(env, roles...))
		}
		return chain(h, mws...)
	}
	editors := []users.Role{users.RoleAdmin, users.RoleEditor}

	mux := http.NewServeMux()

	mux.Handle("GET /healthz", handlers.Healthz())
	mux.Handle("GET /readyz", health.Readyz())
	mux.Handle("GET /health", health.Health())
	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("GET /version", VersionHandler(deps.Build))
	mux.Handle("GET /api/v1/openapi.json", OpenAPIHandler())

	mux.Handle("GET /api/v1/months", public(conferencesHandler.Months))
	mux.Handle("GET /api/v1/conferences", public(conferencesHandler.List))
	mux.Handle("GET /api/v1/conferences/{id}", public(conferencesHandler.Get))
	mux.Handle("GET /api/v1/conferences/{id}/events", public(conferencesHandler.ListEvents))
	mux.Handle("GET /api/v1/events", public(eventsHandler.List))
	mux.Handle("GET /api/v1/events/{id}", public(eventsHandler.Get))
	mux.Handle("GET /api/v1/events/{id}/calendar", public(eventsHandler.Calendar))
	mux.Handle("GET /api/v1/events/{id}/calendar.ics", public(eventsHandler.ICS))
	mux.Handle("POST /api/v1/submissions/conferences", public(submissionsHandler.Conference))
	mux.Handle("POST /api/v1/submissions/events", public(submissionsHandler.Event))

	mux.Handle("POST /api/v1/admin/login", chain(http.HandlerFunc(adminAuthHandler.Login), limit(middleware.TierLogin), middleware.AdminRequestSize(env), auditTrail))
	mux.Handle("POST /api/v1/admin/signup", chain(http.HandlerFunc(adminAuthHandler.Signup), limit(middleware.TierLogin), middleware.AdminRequestSize(env), auditTrail))
	mux.Handle("POST /api/v1/admin/logout", chain(http.HandlerFunc(adminAuthHandler.Logout), limit(middleware.TierAdmin), csrf))
	mux.Handle("GET /api/v1/admin/csrf", chain(middleware.CSRFTokenHandler(), limit(middleware.TierAdmin), csrf))
	mux.Handle("GET /api/v1/admin/session", admin(adminAuthHandler.Session))
	mux.Handle("GET /api/v1/admin/status", admin(adminHandler.Status))

	mux.Handle("GET /api/v1/admin/conferences", admin(adminHandler.ListConferences))
	mux.Handle("POST /api/v1/admin/conferences", admin(adminHandler.CreateConference, editors...))
	mux.Handle("GET /api/v1/admin/conferences/{id}", admin(adminHandler.GetConference))
	mux.Handle("PATCH /api/v1/admin/conferences/{id}", admin(adminHandler.UpdateConference, editors...))
	mux.Handle("DELETE /api/v1/admin/conferences/{id}", admin(adminHandler.DeleteConference, editors...))

	mux.Handle("GET /api/v1/admin/events", admin(adminHandler.ListEvents))
	mux.Handle("POST /api/v1/admin/events", admin(adminHandler.CreateEvent, editors...))
	mux.Handle("GET /api/v1/admin/events/{id}", admin(adminHandler.GetEvent))
	mux.Handle("PATCH /api/v1/admin/events/{id}", admin(adminHandler.UpdateEvent, editors...))
	mux.Handle("DELETE /api/v1/admin/events/{id}", admin(adminHandler.DeleteEvent, editors...))

	mux.Handle("GET /api/v1/admin/users", admin(adminUsersHandler.List, users.RoleAdmin))
	mux.Handle("POST /api/v1/admin/users", admin(adminUsersHandler.Create, users.RoleAdmin))
	mux.Handle("GET /api/v1/admin/users/{id}", admin(adminUsersHandler.Get, users.RoleAdmin))
	mux.Handle("PATCH /api/v1/admin/users/{id}", admin(adminUsersHandler.Update, users.RoleAdmin))
	mux.Handle("DELETE /api/v1/admin/users/{id}", admin(adminUsersHandler.Delete, users.RoleAdmin))

	// Tracing and metrics wrap the mux directly so both see the matched
	// route pattern.
	return chain(middleware.Tracing(metrics.HTTPMiddleware(mux)),
		middleware.CorrelationID(deps.Logger),
		middleware.RequestLogging(deps.Logger),
		middleware.SecurityHeaders(secure),
		middleware.CORS(cfg.CORS, deps.Logger),
	), nil
}

// chain wraps h so that the first middleware runs outermost.
func chain(h http.Handler, mws ...middlewareFunc) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func passthrough(next http.Handler) http.Handler {
	return next
}
