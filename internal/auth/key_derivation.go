package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DerivedKeyLength is the size in bytes of every derived key.
const DerivedKeyLength = sha256.Size

// HKDF info strings. Bumping a version invalidates every artifact signed with
// the previous key.
const (
	sessionKeyInfo = "confdir-admin-session-v1"
	csrfKeyInfo    = "confdir-admin-csrf-v1"
)

var ErrInvalidMasterSecret = errors.New("master secret cannot be empty")

// DeriveKey expands masterSecret into a purpose-bound key with HKDF-SHA256.
func DeriveKey(masterSecret []byte, purpose string) ([]byte, error) {
	if len(masterSecret) == 0 {
		return nil, ErrInvalidMasterSecret
	}
	key := make([]byte, DerivedKeyLength)
	if _, err := io.ReadFull(hkdf.New(sha256.New, masterSecret, nil, []byte(purpose)), key); err != nil {
		return nil, fmt.Errorf("derive %q key: %w", purpose, err)
	}
	return key, nil
}

func DeriveSessionKey(masterSecret []byte) ([]byte, error) {
	return DeriveKey(masterSecret, sessionKeyInfo)
}

func DeriveCSRFKey(masterSecret []byte) ([]byte, error) {
	return DeriveKey(masterSecret, csrfKeyInfo)
}
