package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_Verify_ValidToken(t *testing.T) {
	manager := NewJWTManager("test-secret-key", time.Hour)

	token, err := manager.Generate("user123", "user@example.com", "admin")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := manager.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user123", claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, Issuer, claims.Issuer)
	assert.Equal(t, "user123", claims.Subject)
}

func TestJWTManager_Verify_ExpiredToken(t *testing.T) {
	manager := NewJWTManager("test-secret-key", time.Minute)
	issued := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	manager.now = func() time.Time { return issued }

	token, err := manager.Generate("user123", "user@example.com", "admin")
	require.NoError(t, err)

	manager.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = manager.Verify(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	assert.Contains(t, err.Error(), "invalid token")
}

func TestJWTManager_Verify_InvalidToken(t *testing.T) {
	manager := NewJWTManager("test-secret-key", time.Hour)

	wrongSecret, err := NewJWTManager("wrong-secret", time.Hour).Generate("user123", "", "")
	require.NoError(t, err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: "user123",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	foreignIssuer, err := foreign.SignedString([]byte("test-secret-key"))
	require.NoError(t, err)

	noExpiry := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID:           "user123",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: Issuer},
	})
	noExpiryToken, err := noExpiry.SignedString([]byte("test-secret-key"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"malformed token", "not.a.valid.token"},
		{"wrong secret", wrongSecret},
		{"foreign issuer", foreignIssuer},
		{"missing expiry", noExpiryToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manager.Verify(tt.token)
			assert.True(t, errors.Is(err, ErrInvalidToken), "got %v", err)
		})
	}
}

func TestJWTManager_Verify_RejectsNoneAlgorithm(t *testing.T) {
	manager := NewJWTManager("test-secret-key", time.Hour)

	token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		UserID: "user123",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = manager.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_Refresh(t *testing.T) {
	manager := NewJWTManager("test-secret-key", time.Hour)
	issued := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	manager.now = func() time.Time { return issued }

	original, err := manager.Generate("user123", "user@example.com", "admin")
	require.NoError(t, err)

	manager.now = func() time.Time { return issued.Add(30 * time.Minute) }
	refreshed, err := manager.Refresh(original)
	require.NoError(t, err)
	assert.NotEqual(t, original, refreshed)

	claims, err := manager.Verify(refreshed)
	require.NoError(t, err)
	assert.Equal(t, "user123", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, issued.Add(90*time.Minute), claims.ExpiresAt.Time.UTC())

	_, err = manager.Refresh("invalid.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
