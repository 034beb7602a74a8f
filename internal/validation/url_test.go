package validation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestURLAcceptsHTTP(t *testing.T) {
	for _, value := range []string{
		"",
		"https://affiliateworldconferences.com",
		"http://localhost:8080/rsvp?id=1",
		"https://example.com/path#frag",
	} {
		require.NoError(t, URL("websiteUrl", value), value)
	}
}

func TestURLRejects(t *testing.T) {
	tests := map[string]string{
		"example.com":       "URL must include a scheme (http:// or https://)",
		"https://":          "URL must include a host",
		"ftp://example.com": "URL scheme must be http or https",
		"://bad":            "invalid URL format",
	}
	for value, msg := range tests {
		err := URL("websiteUrl", value)
		var verr Error
		require.ErrorAs(t, err, &verr, value)
		require.Equal(t, "websiteUrl", verr.Field)
		require.Equal(t, msg, verr.Message, value)
	}
}

func TestBaseURL(t *testing.T) {
	require.NoError(t, BaseURL("SERVER_BASE_URL", "https://conferences.example.com"))
	require.NoError(t, BaseURL("SERVER_BASE_URL", "http://localhost:8080/"))

	require.Error(t, BaseURL("SERVER_BASE_URL", "https://example.com/api"))
	require.Error(t, BaseURL("SERVER_BASE_URL", "https://example.com?x=1"))
	require.Error(t, BaseURL("SERVER_BASE_URL", "https://example.com#top"))
}

func TestErrorMessage(t *testing.T) {
	require.Equal(t, "invalid name: is required", Error{Field: "name", Message: "is required"}.Error())
	require.Equal(t, "bad input", Error{Message: "bad input"}.Error())
}

type sample struct {
	Name   string `json:"name" validate:"required,max=5"`
	Status string `json:"status" validate:"omitempty,oneof=Draft Published"`
	Date   string `json:"date" validate:"required,datetime=2006-01-02"`
}

func TestStruct(t *testing.T) {
	require.NoError(t, Struct(sample{Name: "ok", Date: "2026-01-02"}))

	err := Struct(sample{Date: "2026-01-02"})
	require.Equal(t, Error{Field: "name", Message: "is required"}, err)

	err = Struct(sample{Name: "toolong", Date: "2026-01-02"})
	require.Equal(t, Error{Field: "name", Message: "must be at most 5 characters"}, err)

	err = Struct(sample{Name: "ok", Status: "Live", Date: "2026-01-02"})
	require.Equal(t, Error{Field: "status", Message: "must be one of: Draft, Published"}, err)

	err = Struct(sample{Name: "ok", Date: "02/01/2026"})
	require.Equal(t, Error{Field: "date", Message: "must match 2006-01-02"}, err)
}
