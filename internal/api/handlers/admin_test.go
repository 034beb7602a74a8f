package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Togather-Foundation/confdir/internal/api/middleware"
	"github.com/Togather-Foundation/confdir/internal/audit"
	"github.com/Togather-Foundation/confdir/internal/domain/events"
	"github.com/Togather-Foundation/confdir/internal/domain/users"
	"github.com/Togather-Foundation/confdir/internal/metrics"
	"github.com/Togather-Foundation/confdir/internal/storage"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestAdminLogin(t *testing.T) {
	f := newFixture(t)
	_, err := f.users.Create(context.Background(), users.CreateInput{
		Name:     "Ada",
		Email:    "ada@example.org",
		Role:     users.RoleEditor,
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	before := testutil.ToFloat64(metrics.LoginAttemptsTotal.WithLabelValues("success"))

	rec := f.do(t, http.MethodPost, "/api/v1/admin/login", map[string]string{
		"email":    "ADA@example.org",
		"password": "correct horse battery",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody[loginResponse](t, rec)
	require.NotEmpty(t, body.Token)
	require.NotEmpty(t, body.ExpiresAt)
	require.Equal(t, "ada@example.org", body.User.Email)
	require.Equal(t, "Editor", body.User.Role)

	claims, err := f.jwt.Validate(body.Token)
	require.NoError(t, err)
	require.Equal(t, body.User.ID, claims.Subject)

	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.AdminAuthCookieName {
			session = c
		}
	}
	require.NotNil(t, session)
	require.True(t, session.HttpOnly)
	require.Equal(t, body.Token, session.Value)
	require.Equal(t, before+1, testutil.ToFloat64(metrics.LoginAttemptsTotal.WithLabelValues("success")))

	// The cookie alone authenticates browser requests.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/session", nil)
	req.AddCookie(session)
	sessionRec := httptest.NewRecorder()
	f.handler.ServeHTTP(sessionRec, req)
	require.Equal(t, http.StatusOK, sessionRec.Code)
	require.Equal(t, "ada@example.org", decodeBody[principalResponse](t, sessionRec).Email)
}

func TestAdminLoginFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.users.Create(ctx, users.CreateInput{Name: "Ada", Email: "ada@example.org", Password: "correct horse battery"})
	require.NoError(t, err)
	_, err = f.users.Create(ctx, users.CreateInput{Name: "Bob", Email: "bob@example.org", Password: "correct horse battery", Status: users.StatusInactive})
	require.NoError(t, err)

	tests := []struct {
		name   string
		body   map[string]string
		status int
	}{
		{"missing fields", map[string]string{"email": "ada@example.org"}, http.StatusBadRequest},
		{"wrong password", map[string]string{"email": "ada@example.org", "password": "wrong password"}, http.StatusUnauthorized},
		{"unknown user", map[string]string{"email": "eve@example.org", "password": "correct horse battery"}, http.StatusUnauthorized},
		{"inactive", map[string]string{"email": "bob@example.org", "password": "correct horse battery"}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/v1/admin/login", tt.body, "")
			require.Equal(t, tt.status, rec.Code)
			require.Empty(t, rec.Result().Cookies())
		})
	}
}

func (f *fixture) signup(t *testing.T, trail *bytes.Buffer, body map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/signup", bytes.NewReader(payload))
	req = req.WithContext(audit.WithLogger(req.Context(), audit.NewLogger(zerolog.New(trail))))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestAdminSignupAcceptsInvite(t *testing.T) {
	f := newFixture(t)
	invited, err := f.users.Create(context.Background(), users.CreateInput{Name: "Sam", Email: "sam@example.org", Role: users.RoleEditor})
	require.NoError(t, err)
	var trail bytes.Buffer

	rec := f.signup(t, &trail, map[string]string{
		"email":    "Sam@example.org",
		"name":     "Sam Lee",
		"password": "correct horse battery",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Empty(t, rec.Result().Cookies())

	body := decodeBody[userResponse](t, rec)
	require.Equal(t, invited.ID, body.ID)
	require.Equal(t, "Sam Lee", body.Name)
	require.Equal(t, "Active", body.Status)
	require.Contains(t, trail.String(), `"action":"admin.signup"`)
	require.Contains(t, trail.String(), `"status":"success"`)

	rec = f.do(t, http.MethodPost, "/api/v1/admin/login", map[string]string{
		"email":    "sam@example.org",
		"password": "correct horse battery",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminSignupFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.users.Create(ctx, users.CreateInput{Name: "Sam", Email: "sam@example.org"})
	require.NoError(t, err)
	_, err = f.users.Create(ctx, users.CreateInput{Name: "Ada", Email: "ada@example.org", Password: "correct horse battery"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		body   map[string]string
		status int
		audit  string
	}{
		{"missing password", map[string]string{"email": "sam@example.org"}, http.StatusBadRequest, ""},
		{"short password", map[string]string{"email": "sam@example.org", "password": "short"}, http.StatusBadRequest, `"reason":"rejected"`},
		{"never invited", map[string]string{"email": "eve@example.org", "password": "correct horse battery"}, http.StatusForbidden, `"reason":"not_invited"`},
		{"already active", map[string]string{"email": "ada@example.org", "password": "another password"}, http.StatusForbidden, `"reason":"not_invited"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var trail bytes.Buffer
			rec := f.signup(t, &trail, tt.body)

			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.audit == "" {
				require.Empty(t, trail.String())
				return
			}
			require.Contains(t, trail.String(), `"action":"admin.signup"`)
			require.Contains(t, trail.String(), tt.audit)
		})
	}

	user, err := f.users.Authenticate(ctx, "ada@example.org", "correct horse battery")
	require.NoError(t, err)
	require.Equal(t, "ada@example.org", user.Email)
}

func TestAdminLogoutClearsCookie(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/admin/logout", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, middleware.AdminAuthCookieName, cookies[0].Name)
	require.Negative(t, cookies[0].MaxAge)
}

func TestAdminRoutesRequireAuth(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/api/v1/admin/status", "/api/v1/admin/conferences", "/api/v1/admin/users"} {
		rec := f.do(t, http.MethodGet, path, nil, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestAdminStatus(t *testing.T) {
	f := newFixture(t)
	token, _ := f.token(t, users.RoleViewer)

	rec := f.do(t, http.MethodGet, "/api/v1/admin/status", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	report := decodeBody[storage.Report](t, rec)
	require.Equal(t, storage.StatusDemo, report.Status)
	require.Equal(t, storage.BackendMemory, report.Backend)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.StorageStatus.WithLabelValues("memory", "demo")))
}

func TestAdminSeesDrafts(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	token, _ := f.token(t, users.RoleViewer)

	rec := f.do(t, http.MethodGet, "/api/v1/admin/conferences", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeBody[listResponse[conferenceResponse]](t, rec).Items, 2)

	rec = f.do(t, http.MethodGet, "/api/v1/admin/events?status=Draft", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decodeBody[listResponse[eventResponse]](t, rec).Items
	require.Len(t, items, 1)
	require.Equal(t, "e_draft", items[0].ID)

	rec = f.do(t, http.MethodGet, "/api/v1/admin/conferences/c_draft", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminViewerCannotEdit(t *testing.T) {
	f := newFixture(t)
	token, _ := f.token(t, users.RoleViewer)

	rec := f.do(t, http.MethodPost, "/api/v1/admin/conferences", map[string]any{"name": "X", "startDate": "2026-01-01"}, token)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminConferenceCRUD(t *testing.T) {
	f := newFixture(t)
	token, _ := f.token(t, users.RoleEditor)

	rec := f.do(t, http.MethodPost, "/api/v1/admin/conferences", map[string]any{
		"name":      "Growth Summit",
		"city":      "Lisbon",
		"country":   "Portugal",
		"startDate": "2026-05-12",
		"endDate":   "2026-05-14",
		"status":    "Published",
	}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[conferenceResponse](t, rec)
	require.Equal(t, "Published", created.Status)
	require.Equal(t, "May 12 - May 14", created.DateRange)

	rec = f.do(t, http.MethodPatch, "/api/v1/admin/conferences/"+created.ID, map[string]any{
		"endDate": "2026-05-13",
	}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "May 12 - May 13", decodeBody[conferenceResponse](t, rec).DateRange)

	rec = f.do(t, http.MethodPatch, "/api/v1/admin/conferences/"+created.ID, map[string]any{
		"endDate": "2026-05-01",
	}, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/v1/admin/conferences/"+created.ID, nil, token)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/admin/conferences/"+created.ID, nil, token)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminConferenceDuplicateID(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	token, _ := f.token(t, users.RoleAdmin)

	rec := f.do(t, http.MethodPost, "/api/v1/admin/conferences", map[string]any{
		"id":        "c_awa_25",
		"name":      "Again",
		"startDate": "2026-01-01",
	}, token)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminDeleteConferenceDetachesEvents(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	token, _ := f.token(t, users.RoleEditor)

	rec := f.do(t, http.MethodDelete, "/api/v1/admin/conferences/c_awa_25", nil, token)
	require.Equal(t, http.StatusNoContent, rec.Code)

	event, err := f.events.Get(context.Background(), "e_run")
	require.NoError(t, err)
	require.Empty(t, event.ConferenceID)
}

func TestAdminDeleteConferenceCascades(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	token, _ := f.token(t, users.RoleEditor)

	rec := f.do(t, http.MethodDelete, "/api/v1/admin/conferences/c_awa_25?deleteEvents=true", nil, token)
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, err := f.events.Get(context.Background(), "e_run")
	require.ErrorIs(t, err, events.ErrNotFound)
	_, err = f.events.Get(context.Background(), "e_solo")
	require.NoError(t, err)

	rec = f.do(t, http.MethodDelete, "/api/v1/admin/conferences/c_draft?deleteEvents=sometimes", nil, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminEventCRUD(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	token, _ := f.token(t, users.RoleEditor)

	rec := f.do(t, http.MethodPost, "/api/v1/admin/events", map[string]any{
		"conferenceId": "c_awa_25",
		"title":        "Closing Party",
		"date":         "2025-12-05",
		"startTime":    "10:00 PM",
		"endTime":      "2:00 AM",
		"venueName":    "Sky Bar",
		"host":         "AFF",
		"status":       "Published",
	}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[eventResponse](t, rec)
	// The end time past midnight rolls over to the next day.
	require.Contains(t, created.CalendarURL, "dates=20251205T220000Z%2F20251206T020000Z")

	rec = f.do(t, http.MethodPatch, "/api/v1/admin/events/"+created.ID, map[string]any{
		"conferenceId": "",
		"title":        "Closing Party (moved)",
	}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[eventResponse](t, rec)
	require.Empty(t, updated.ConferenceID)
	require.Equal(t, "Closing Party (moved)", updated.Title)

	rec = f.do(t, http.MethodGet, "/api/v1/admin/events/"+created.ID, nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/v1/admin/events/"+created.ID, nil, token)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/v1/admin/events/"+created.ID, nil, token)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminUsers(t *testing.T) {
	f := newFixture(t)
	adminToken, admin := f.token(t, users.RoleAdmin)
	editorToken, _ := f.token(t, users.RoleEditor)

	rec := f.do(t, http.MethodGet, "/api/v1/admin/users", nil, editorToken)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/admin/users", map[string]any{
		"name":  "Grace",
		"email": "grace@example.org",
		"role":  "Editor",
	}, adminToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[userResponse](t, rec)
	require.Equal(t, "Invited", created.Status)
	require.NotContains(t, rec.Body.String(), "password")

	rec = f.do(t, http.MethodPost, "/api/v1/admin/users", map[string]any{
		"name":  "Grace Again",
		"email": "GRACE@example.org",
	}, adminToken)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/admin/users?role=Editor", nil, adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeBody[listResponse[userResponse]](t, rec).Items, 2)

	rec = f.do(t, http.MethodGet, "/api/v1/admin/users?role=Owner", nil, adminToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPatch, "/api/v1/admin/users/"+created.ID, map[string]any{
		"password": "a much longer secret",
	}, adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "Active", decodeBody[userResponse](t, rec).Status)

	rec = f.do(t, http.MethodPatch, "/api/v1/admin/users/"+created.ID, map[string]any{
		"password": "short",
	}, adminToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/v1/admin/users/"+admin.ID, nil, adminToken)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/v1/admin/users/"+created.ID, nil, adminToken)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/admin/users/"+created.ID, nil, adminToken)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/problem+json"))
}
