package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stockitup/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService("test-secret-key-at-least-32-chars", config.SessionConfig{
		CookieAge:   24 * time.Hour,
		Issuer:      "stock-it-up",
		APITokenTTL: 30 * 24 * time.Hour,
	})
}

func newTestInput() GenerateTokenInput {
	return GenerateTokenInput{UserID: uuid.New(), Email: "jan@example.com", IsStaff: true}
}

func TestGenerateSessionToken(t *testing.T) {
	svc := newTestJWTService()
	input := newTestInput()

	issued, err := svc.GenerateSessionToken(input)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.Token)
	assert.NotEmpty(t, issued.JTI)
	assert.Equal(t, "Bearer", issued.TokenType)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), issued.ExpiresAt, time.Minute)

	claims, err := svc.ValidateTokenOfType(issued.Token, TokenTypeSession)
	require.NoError(t, err)
	assert.Equal(t, input.UserID.String(), claims.UserID)
	assert.Equal(t, "jan@example.com", claims.Email)
	assert.True(t, claims.IsStaff)
	assert.Equal(t, issued.JTI, claims.ID)

	id, err := claims.GetUserUUID()
	require.NoError(t, err)
	assert.Equal(t, input.UserID, id)
}

func TestGenerateAPIToken(t *testing.T) {
	svc := newTestJWTService()

	issued, err := svc.GenerateAPIToken(newTestInput())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), issued.ExpiresAt, time.Minute)

	_, err = svc.ValidateTokenOfType(issued.Token, TokenTypeSession)
	assert.ErrorIs(t, err, ErrInvalidTokenType)

	claims, err := svc.ValidateToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeAPI, claims.TokenType)
}

func TestValidateToken_Errors(t *testing.T) {
	svc := newTestJWTService()

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTService("another-secret-key-of-enough-length", config.SessionConfig{
			CookieAge: time.Hour, Issuer: "stock-it-up",
		})
		issued, err := other.GenerateSessionToken(newTestInput())
		require.NoError(t, err)

		_, err = svc.ValidateToken(issued.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		issued, err := svc.GenerateSessionToken(newTestInput())
		require.NoError(t, err)

		svc.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
		defer func() { svc.now = time.Now }()

		_, err = svc.ValidateToken(issued.Token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewJWTService("test-secret-key-at-least-32-chars", config.SessionConfig{
			CookieAge: time.Hour, Issuer: "someone-else",
		})
		issued, err := other.GenerateSessionToken(newTestInput())
		require.NoError(t, err)

		_, err = svc.ValidateToken(issued.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects none algorithm", func(t *testing.T) {
		claims := &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "stock-it-up",
				Audience:  jwt.ClaimStrings{"stock-it-up"},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			UserID:    uuid.New().String(),
			TokenType: TokenTypeSession,
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
