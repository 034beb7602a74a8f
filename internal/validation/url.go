package validation

import (
	"net/url"
	"strings"
)

// URL checks that value is an absolute http(s) URL. Empty values pass;
// pair with a required check where the field is mandatory.
func URL(field, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	parsed, err := url.Parse(value)
	if err != nil {
		return Error{Field: field, Message: "invalid URL format"}
	}
	if parsed.Scheme == "" {
		return Error{Field: field, Message: "URL must include a scheme (http:// or https://)"}
	}
	if parsed.Host == "" {
		return Error{Field: field, Message: "URL must include a host"}
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return Error{Field: field, Message: "URL scheme must be http or https"}
	}
	return nil
}

// BaseURL is URL without path, query or fragment, used for the server's own
// public address.
func BaseURL(field, value string) error {
	if err := URL(field, value); err != nil {
		return err
	}
	if strings.TrimSpace(value) == "" {
		return nil
	}

	parsed, _ := url.Parse(strings.TrimSpace(value))
	if parsed.Path != "" && parsed.Path != "/" {
		return Error{Field: field, Message: "base URL must not contain a path"}
	}
	if parsed.RawQuery != "" {
		return Error{Field: field, Message: "base URL must not contain query parameters"}
	}
	if parsed.Fragment != "" {
		return Error{Field: field, Message: "base URL must not contain a fragment"}
	}
	return nil
}
