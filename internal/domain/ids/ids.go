// Package ids mints and checks the identifiers of directory records.
//
// Records created through the API get ULIDs. Seeded records keep the short
// slugs they were authored with, such as "c_awa_25".
package ids

import (
	"errors"
	"regexp"
	"strings"

	"github.com/oklog/ulid/v2"
)

var (
	ErrInvalidULID = errors.New("invalid ULID")
	ErrInvalidID   = errors.New("invalid id")
)

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_\-]{0,63}$`)

// NewULID returns a fresh ULID, monotonic within the process.
func NewULID() (string, error) {
	id, err := ulid.New(ulid.Now(), ulid.DefaultEntropy())
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// IsULID reports whether value is a ULID in either letter case.
func IsULID(value string) bool {
	value = strings.TrimSpace(value)
	if len(value) != ulid.EncodedSize {
		return false
	}
	_, err := ulid.ParseStrict(value)
	return err == nil
}

func ValidateULID(value string) error {
	if !IsULID(value) {
		return ErrInvalidULID
	}
	return nil
}

// ValidateID accepts ULIDs and seeded slugs.
func ValidateID(value string) error {
	value = strings.TrimSpace(value)
	if IsULID(value) || slugPattern.MatchString(value) {
		return nil
	}
	return ErrInvalidID
}

// Normalize upper-cases ULIDs and trims slugs, so both spellings of a ULID
// resolve to the same record.
func Normalize(value string) string {
	value = strings.TrimSpace(value)
	if IsULID(value) {
		return strings.ToUpper(value)
	}
	return value
}
