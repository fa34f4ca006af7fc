package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stockitup/backend/internal/infrastructure/config"
)

// TokenType represents the type of JWT token
type TokenType string

const (
	// TokenTypeSession is carried in the session cookie of the dashboard
	TokenTypeSession TokenType = "session"
	// TokenTypeAPI is presented in the Authorization header by API clients
	TokenTypeAPI TokenType = "api"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidTokenType = errors.New("invalid token type")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingUserID    = errors.New("missing user_id in claims")
	ErrTokenBlacklisted = errors.New("token has been revoked")
)

// Claims represents custom JWT claims
type Claims struct {
	jwt.RegisteredClaims
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	IsStaff   bool      `json:"is_staff,omitempty"`
	TokenType TokenType `json:"token_type"`
}

// IssuedToken is a signed token and its expiry
type IssuedToken struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	JTI       string    `json:"-"`
}

// GenerateTokenInput contains input for token generation
type GenerateTokenInput struct {
	UserID  uuid.UUID
	Email   string
	IsStaff bool
}

// JWTService handles JWT token operations
type JWTService struct {
	secret     []byte
	sessionTTL time.Duration
	apiTTL     time.Duration
	issuer     string
	now        func() time.Time
}

// NewJWTService creates a new JWT service signing with the application secret key
func NewJWTService(secretKey string, cfg config.SessionConfig) *JWTService {
	return &JWTService{
		secret:     []byte(secretKey),
		sessionTTL: cfg.CookieAge,
		apiTTL:     cfg.APITokenTTL,
		issuer:     cfg.Issuer,
		now:        time.Now,
	}
}

// GenerateSessionToken issues the token stored in the session cookie
func (s *JWTService) GenerateSessionToken(input GenerateTokenInput) (*IssuedToken, error) {
	return s.generate(input, TokenTypeSession, s.sessionTTL)
}

// GenerateAPIToken issues a long-lived token for API clients
func (s *JWTService) GenerateAPIToken(input GenerateTokenInput) (*IssuedToken, error) {
	return s.generate(input, TokenTypeAPI, s.apiTTL)
}

func (s *JWTService) generate(input GenerateTokenInput, tokenType TokenType, ttl time.Duration) (*IssuedToken, error) {
	now := s.now()
	jti := uuid.New().String()
	expiresAt := now.Add(ttl)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.issuer,
			Subject:   input.UserID.String(),
			Audience:  jwt.ClaimStrings{s.issuer},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID:    input.UserID.String(),
		Email:     input.Email,
		IsStaff:   input.IsStaff,
		TokenType: tokenType,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}
	return &IssuedToken{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
		JTI:       jti,
	}, nil
}

// ValidateToken validates a token of any type and returns its claims
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.issuer),
		jwt.WithTimeFunc(s.now),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.TokenType != TokenTypeSession && claims.TokenType != TokenTypeAPI {
		return nil, ErrInvalidTokenType
	}
	if claims.UserID == "" {
		return nil, ErrMissingUserID
	}
	return claims, nil
}

// ValidateTokenOfType validates a token and checks its type
func (s *JWTService) ValidateTokenOfType(tokenString string, expected TokenType) (*Claims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != expected {
		return nil, ErrInvalidTokenType
	}
	return claims, nil
}

// SessionTTL returns the session token lifetime
func (s *JWTService) SessionTTL() time.Duration {
	return s.sessionTTL
}

// GetUserUUID extracts and parses the user ID from claims
func (c *Claims) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID)
}

// GetIssuedAtTime returns the token's issued-at time as time.Time
func (c *Claims) GetIssuedAtTime() time.Time {
	if c.IssuedAt != nil {
		return c.IssuedAt.Time
	}
	return time.Time{}
}

// GetRemainingTTL returns the remaining time until the token expires
func (c *Claims) GetRemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	remaining := time.Until(c.ExpiresAt.Time)
	if remaining < 0 {
		return 0
	}
	return remaining
}
