package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Togather-Foundation/confdir/internal/api/middleware"
	"github.com/Togather-Foundation/confdir/internal/auth"
	"github.com/Togather-Foundation/confdir/internal/calendar"
	"github.com/Togather-Foundation/confdir/internal/domain/conferences"
	"github.com/Togather-Foundation/confdir/internal/domain/events"
	"github.com/Togather-Foundation/confdir/internal/domain/users"
	"github.com/Togather-Foundation/confdir/internal/storage"
	"github.com/Togather-Foundation/confdir/internal/storage/memory"
	"github.com/Togather-Foundation/confdir/internal/validation"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	store       *memory.Store
	conferences *conferences.Service
	events      *events.Service
	users       *users.Service
	jwt         *auth.JWTManager
	handler     http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zerolog.Nop()

	store := memory.New(logger)
	conferenceService := conferences.NewService(store.Conferences(), logger)
	eventService := events.NewService(store.Events(), conferenceService, calendar.NewBuilder(time.UTC, logger), logger)
	userService := users.NewService(store.Users(), users.DemoCredential{}, logger, users.WithBcryptCost(bcrypt.MinCost))

	f := &fixture{
		store:       store,
		conferences: conferenceService,
		events:      eventService,
		users:       userService,
		jwt:         auth.NewJWTManager("test-secret", time.Hour, "confdir"),
	}
	f.handler = f.routes()
	return f
}

func (f *fixture) routes() http.Handler {
	const env = "test"
	report := storage.Report{Status: storage.StatusDemo, Backend: storage.BackendMemory}
	status := storage.NewStore(f.store, report)

	confs := NewConferencesHandler(f.conferences, f.events, env)
	evs := NewEventsHandler(f.events, env)
	subs := NewSubmissionsHandler(f.conferences, f.events, env)
	login := NewAdminAuthHandler(f.users, f.jwt, env, false)
	admin := NewAdminHandler(f.conferences, f.events, status, env)
	adminUsers := NewAdminUsersHandler(f.users, env)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/months", confs.Months)
	mux.HandleFunc("GET /api/v1/conferences", confs.List)
	mux.HandleFunc("GET /api/v1/conferences/{id}", confs.Get)
	mux.HandleFunc("GET /api/v1/conferences/{id}/events", confs.ListEvents)
	mux.HandleFunc("GET /api/v1/events", evs.List)
	mux.HandleFunc("GET /api/v1/events/{id}", evs.Get)
	mux.HandleFunc("GET /api/v1/events/{id}/calendar", evs.Calendar)
	mux.HandleFunc("GET /api/v1/events/{id}/calendar.ics", evs.ICS)
	mux.HandleFunc("POST /api/v1/submissions/conferences", subs.Conference)
	mux.HandleFunc("POST /api/v1/submissions/events", subs.Event)
	mux.HandleFunc("POST /api/v1/admin/login", login.Login)
	mux.HandleFunc("POST /api/v1/admin/signup", login.Signup)
	mux.HandleFunc("POST /api/v1/admin/logout", login.Logout)

	authed := middleware.AdminAuth(f.jwt, f.users, env)
	editor := func(h http.HandlerFunc) http.Handler {
		return authed(middleware.RequireRole(env, users.RoleAdmin, users.RoleEditor)(h))
	}
	adminOnly := func(h http.HandlerFunc) http.Handler {
		return authed(middleware.RequireRole(env, users.RoleAdmin)(h))
	}
	mux.Handle("GET /api/v1/admin/session", authed(http.HandlerFunc(login.Session)))
	mux.Handle("GET /api/v1/admin/status", authed(http.HandlerFunc(admin.Status)))
	mux.Handle("GET /api/v1/admin/conferences", authed(http.HandlerFunc(admin.ListConferences)))
	mux.Handle("GET /api/v1/admin/conferences/{id}", authed(http.HandlerFunc(admin.GetConference)))
	mux.Handle("POST /api/v1/admin/conferences", editor(admin.CreateConference))
	mux.Handle("PATCH /api/v1/admin/conferences/{id}", editor(admin.UpdateConference))
	mux.Handle("DELETE /api/v1/admin/conferences/{id}", editor(admin.DeleteConference))
	mux.Handle("GET /api/v1/admin/events", authed(http.HandlerFunc(admin.ListEvents)))
	mux.Handle("GET /api/v1/admin/events/{id}", authed(http.HandlerFunc(admin.GetEvent)))
	mux.Handle("POST /api/v1/admin/events", editor(admin.CreateEvent))
	mux.Handle("PATCH /api/v1/admin/events/{id}", editor(admin.UpdateEvent))
	mux.Handle("DELETE /api/v1/admin/events/{id}", editor(admin.DeleteEvent))
	mux.Handle("GET /api/v1/admin/users", adminOnly(adminUsers.List))
	mux.Handle("GET /api/v1/admin/users/{id}", adminOnly(adminUsers.Get))
	mux.Handle("POST /api/v1/admin/users", adminOnly(adminUsers.Create))
	mux.Handle("PATCH /api/v1/admin/users/{id}", adminOnly(adminUsers.Update))
	mux.Handle("DELETE /api/v1/admin/users/{id}", adminOnly(adminUsers.Delete))
	return mux
}

// seed stores one published and one draft conference, plus published, draft
// and independent events.
func (f *fixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	_, err := f.conferences.Create(ctx, conferences.Input{
		ID:        "c_awa_25",
		Name:      "Affiliate World Asia",
		City:      "Bangkok",
		Country:   "Thailand",
		StartDate: "2025-12-04",
		EndDate:   "2025-12-05",
		Status:    conferences.StatusPublished,
	})
	require.NoError(t, err)
	_, err = f.conferences.Create(ctx, conferences.Input{
		ID:        "c_draft",
		Name:      "Unannounced Summit",
		StartDate: "2026-03-10",
	})
	require.NoError(t, err)

	for _, in := range []events.Input{
		{ID: "e_run", ConferenceID: "c_awa_25", Title: "AFF+FIT 5km Run", Date: "2025-12-04", StartTime: "8:50 AM", VenueName: "Lumphini Park", Host: "AFF", Status: conferences.StatusPublished},
		{ID: "e_draft", ConferenceID: "c_awa_25", Title: "Secret Dinner", Date: "2025-12-04", StartTime: "7:00 PM", VenueName: "Rooftop", Host: "AFF"},
		{ID: "e_solo", Title: "Growth Meetup", Date: "2025-11-20", StartTime: "6:00 PM", VenueName: "Hub", Host: "Growth Club", Status: conferences.StatusPublished},
	} {
		_, err := f.events.Create(ctx, in)
		require.NoError(t, err)
	}
}

func (f *fixture) token(t *testing.T, role users.Role) (string, *users.User) {
	t.Helper()
	user, err := f.users.Create(context.Background(), users.CreateInput{
		Name:     string(role) + " User",
		Email:    fmt.Sprintf("%s-%d@example.org", role, time.Now().UnixNano()),
		Role:     role,
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	token, err := f.jwt.Generate(user.ID, string(user.Role), user.Email)
	require.NoError(t, err)
	return token, user
}

func (f *fixture) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type problemBody struct {
	Type   string         `json:"type"`
	Title  string         `json:"title"`
	Status int            `json:"status"`
	Errors map[string]any `json:"errors"`
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		field  string
	}{
		{"validation", validation.Error{Field: "name", Message: "is required"}, http.StatusBadRequest, "name"},
		{"wrapped validation", fmt.Errorf("build: %w", validation.Error{Field: "date", Message: "bad"}), http.StatusBadRequest, "date"},
		{"conference filter", conferences.FilterError{Field: "month", Message: "bad"}, http.StatusBadRequest, "month"},
		{"event filter", events.FilterError{Field: "from", Message: "bad"}, http.StatusBadRequest, "from"},
		{"conference missing", conferences.ErrNotFound, http.StatusNotFound, ""},
		{"event missing", events.ErrNotFound, http.StatusNotFound, ""},
		{"user missing", users.ErrNotFound, http.StatusNotFound, ""},
		{"duplicate", conferences.ErrAlreadyExists, http.StatusConflict, ""},
		{"email taken", users.ErrEmailTaken, http.StatusConflict, ""},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err, "test")

			require.Equal(t, tt.status, rec.Code)
			body := decodeBody[problemBody](t, rec)
			require.Equal(t, tt.status, body.Status)
			if tt.field != "" {
				require.Contains(t, body.Errors, tt.field)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions/events", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/submissions/events", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	big := bytes.Repeat([]byte("a"), 128)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/submissions/events", bytes.NewReader(append([]byte(`{"title":"`), big...)))
	rec = httptest.NewRecorder()
	req.Body = http.MaxBytesReader(rec, req.Body, 16)
	f.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
