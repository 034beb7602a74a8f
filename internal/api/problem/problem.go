// Package problem writes RFC 7807 problem+json error responses.
package problem

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
)

const contentType = "application/problem+json"

const typeBase = "https://confdir.dev/problems/"

// Problem type URIs served by the directory API.
const (
	TypeValidation   = typeBase + "validation-error"
	TypeNotFound     = typeBase + "not-found"
	TypeConflict     = typeBase + "conflict"
	TypeUnauthorized = typeBase + "unauthorized"
	TypeForbidden    = typeBase + "forbidden"
	TypeRateLimited  = typeBase + "rate-limited"
	TypeCalendar     = typeBase + "calendar-unavailable"
	TypeCSRF         = typeBase + "csrf-failure"
	TypeServer       = typeBase + "server-error"
)

// Sentinel causes for responses that have no underlying error of their own.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
)

type ProblemDetails struct {
	Type     string         `json:"type"`
	Title    string         `json:"title"`
	Status   int            `json:"status"`
	Detail   string         `json:"detail,omitempty"`
	Instance string         `json:"instance,omitempty"`
	Errors   map[string]any `json:"errors,omitempty"`
}

type Option func(*ProblemDetails)

func WithDetail(detail string) Option {
	return func(p *ProblemDetails) { p.Detail = detail }
}

// WithFieldError reports a single invalid input field.
func WithFieldError(field, message string) Option {
	return func(p *ProblemDetails) {
		if p.Errors == nil {
			p.Errors = make(map[string]any)
		}
		p.Errors[field] = message
	}
}

// Write renders a problem response. Without an explicit detail, the cause is
// exposed only in development and test environments.
func Write(w http.ResponseWriter, r *http.Request, status int, typ, title string, cause error, env string, opts ...Option) {
	p := ProblemDetails{Type: typ, Title: title, Status: status}
	for _, opt := range opts {
		opt(&p)
	}

	if cause != nil && p.Detail == "" {
		p.Detail = http.StatusText(status)
		if exposesCause(env) {
			p.Detail = cause.Error()
		}
	}

	if r != nil {
		if p.Instance == "" {
			p.Instance = r.URL.Path
		}
		if cause != nil {
			logCause(r, p, cause)
		}
	}

	encode(w, p)
}

func exposesCause(env string) bool {
	return env == "development" || env == "test"
}

func logCause(r *http.Request, p ProblemDetails, cause error) {
	logger := zerolog.Ctx(r.Context())
	event := logger.Warn()
	if p.Status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(cause).
		Int("status", p.Status).
		Str("type", p.Type).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg(p.Title)
}

func encode(w http.ResponseWriter, p ProblemDetails) {
	body, err := json.Marshal(p)
	if err != nil {
		p = ProblemDetails{Type: "about:blank", Title: http.StatusText(http.StatusInternalServerError), Status: http.StatusInternalServerError}
		body, _ = json.Marshal(p)
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(p.Status)
	_, _ = w.Write(body)
}
