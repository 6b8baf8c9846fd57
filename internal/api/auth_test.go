package api

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthTokenService_RoundTrip(t *testing.T) {
	svc := NewAuthTokenService("secret", time.Hour)
	userID := uuid.NewString()

	token, err := svc.Generate(userID)
	require.NoError(t, err)

	payload, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, userID, payload.UserID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), payload.ExpiresAt, 2*time.Second)
}

func TestAuthTokenService_Rejects(t *testing.T) {
	svc := NewAuthTokenService("secret", time.Hour)

	token, err := svc.Generate(uuid.NewString())
	require.NoError(t, err)

	_, err = NewAuthTokenService("other", time.Hour).Verify(token)
	require.ErrorIs(t, err, ErrAuthTokenInvalid)

	tampered := []byte(token)
	if tampered[0] == 'A' {
		tampered[0] = 'B'
	} else {
		tampered[0] = 'A'
	}

	_, err = svc.Verify(string(tampered))
	require.ErrorIs(t, err, ErrAuthTokenInvalid)

	_, err = svc.Verify("not base64!")
	require.ErrorIs(t, err, ErrAuthTokenInvalid)

	_, err = svc.Verify(strings.Repeat("A", 10))
	require.ErrorIs(t, err, ErrAuthTokenInvalid)
}

func TestAuthTokenService_Expired(t *testing.T) {
	svc := NewAuthTokenService("secret", time.Minute)

	token, err := svc.Generate(uuid.NewString())
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	_, err = svc.Verify(token)
	require.ErrorIs(t, err, ErrAuthTokenExpired)
}

func TestAuthTokenService_GenerateRequiresUUID(t *testing.T) {
	_, err := NewAuthTokenService("secret", time.Hour).Generate("42")
	require.Error(t, err)
}

func TestGenerateSessionToken(t *testing.T) {
	a, err := GenerateSessionToken()
	require.NoError(t, err)

	b, err := GenerateSessionToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Len(t, a, 32)
}
