package middleware

import (
	"errors"
	"net/http"

	"github.com/Togather-Foundation/confdir/internal/api/problem"
)

const (
	// PublicMaxBodySize bounds public submissions.
	PublicMaxBodySize int64 = 64 << 10 // 64KB

	// AdminMaxBodySize bounds admin writes.
	AdminMaxBodySize int64 = 1 << 20 // 1MB
)

// ErrBodyTooLarge is reported when a declared Content-Length exceeds the limit.
var ErrBodyTooLarge = errors.New("request body too large")

// RequestSize limits the size of incoming request bodies. Requests declaring
// a larger Content-Length are refused with 413 up front; bodies without a
// declared length are cut off by http.MaxBytesReader, which handlers report
// as 413 when decoding fails.
func RequestSize(maxBytes int64, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				problem.Write(w, r, http.StatusRequestEntityTooLarge, problem.TypeValidation, "Request body too large", ErrBodyTooLarge, env)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func PublicRequestSize(env string) func(http.Handler) http.Handler {
	return RequestSize(PublicMaxBodySize, env)
}

func AdminRequestSize(env string) func(http.Handler) http.Handler {
	return RequestSize(AdminMaxBodySize, env)
}
