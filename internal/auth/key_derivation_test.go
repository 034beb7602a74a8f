package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveKeyRejectsEmptySecret(t *testing.T) {
	for name, secret := range map[string][]byte{"nil": nil, "empty": {}} {
		t.Run(name, func(t *testing.T) {
			_, err := DeriveKey(secret, "purpose")
			require.ErrorIs(t, err, ErrInvalidMasterSecret)
		})
	}
}

func TestDeriveKeyIsDeterministicPerPurpose(t *testing.T) {
	master := []byte("shared-master-secret-for-all-keys")

	session, err := DeriveSessionKey(master)
	require.NoError(t, err)
	require.Len(t, session, DerivedKeyLength)

	again, err := DeriveSessionKey(master)
	require.NoError(t, err)
	require.Equal(t, session, again)

	csrfKey, err := DeriveCSRFKey(master)
	require.NoError(t, err)
	require.NotEqual(t, session, csrfKey)
	require.NotEqual(t, master[:DerivedKeyLength], session)

	unlabelled, err := DeriveKey(master, "")
	require.NoError(t, err)
	require.NotEqual(t, session, unlabelled)
}
