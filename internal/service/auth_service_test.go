package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_IssueAndValidate(t *testing.T) {
	svc := NewAuthService("jwt-secret", "pilot", time.Hour)

	resp, err := svc.IssueToken("p-17", "pilot")
	require.NoError(t, err)
	assert.Equal(t, "p-17", resp.UserID)
	assert.NotEmpty(t, resp.Token)

	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "p-17", claims.UserID)
	assert.NotEmpty(t, claims.ID)
}

func TestAuthService_RejectsBadCredentials(t *testing.T) {
	svc := NewAuthService("jwt-secret", "pilot", time.Hour)

	_, err := svc.IssueToken("p-17", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.IssueToken("", "pilot")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_RejectsBadTokens(t *testing.T) {
	svc := NewAuthService("jwt-secret", "pilot", time.Hour)
	resp, err := svc.IssueToken("p-17", "pilot")
	require.NoError(t, err)

	other := NewAuthService("other-secret", "pilot", time.Hour)
	_, err = other.ValidateToken(resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": "p-17"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ValidateToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_Expiry(t *testing.T) {
	svc := NewAuthService("jwt-secret", "pilot", time.Hour)
	issued := time.Now()
	svc.now = func() time.Time { return issued }

	resp, err := svc.IssueToken("p-17", "pilot")
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = svc.ValidateToken(resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
