package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager([]byte("secret"), time.Hour)

	token, err := m.Generate(Identity{Username: "carol", Role: "Approver"})
	require.NoError(t, err)

	identity, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, Identity{Username: "carol", Role: "Approver"}, identity)
}

func TestValidateRejectsBadTokens(t *testing.T) {
	m := NewTokenManager([]byte("secret"), time.Hour)

	other, err := NewTokenManager([]byte("other"), time.Hour).Generate(Identity{Username: "carol"})
	require.NoError(t, err)
	expired, err := NewTokenManager([]byte("secret"), -time.Minute).Generate(Identity{Username: "carol"})
	require.NoError(t, err)
	noSubject, err := m.Generate(Identity{Role: "Approver"})
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "carol", Issuer: issuer},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"wrong key":  other,
		"expired":    expired,
		"no subject": noSubject,
		"alg none":   none,
		"garbage":    "not-a-token",
	} {
		_, err := m.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken, name)
	}
}
