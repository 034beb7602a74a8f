package metrics

import (
	"net/http/httptest"
	"testing"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "static path",
			input:    "/api/v1/events",
			expected: "/api/v1/events",
		},
		{
			name:     "single param",
			input:    "/api/v1/events/{id}",
			expected: "/api/v1/events/{param}",
		},
		{
			name:     "multiple params",
			input:    "/api/v1/conferences/{id}/events/{rest...}",
			expected: "/api/v1/conferences/{param}/events/{param}",
		},
		{
			name:     "empty path",
			input:    "",
			expected: "",
		},
		{
			name:     "non-path input",
			input:    "api/v1/events/{id}",
			expected: "api/v1/events/{id}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizePath(tt.input)
			if got != tt.expected {
				t.Fatalf("normalizePath(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRouteLabel(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/events/abc", nil)
	if got := routeLabel(req); got != unmatchedPath {
		t.Fatalf("routeLabel() = %q, want %q", got, unmatchedPath)
	}

	req.Pattern = "GET /api/v1/events/{id}/calendar"
	if got := routeLabel(req); got != "/api/v1/events/{param}/calendar" {
		t.Fatalf("routeLabel() = %q", got)
	}

	req.Pattern = "example.com/healthz"
	if got := routeLabel(req); got != "/healthz" {
		t.Fatalf("routeLabel() = %q", got)
	}
}
