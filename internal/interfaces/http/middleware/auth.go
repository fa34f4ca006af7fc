package middleware

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stockitup/backend/internal/infrastructure/auth"
	"github.com/stockitup/backend/internal/infrastructure/logger"
	"github.com/stockitup/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Authentication context keys
const (
	ClaimsKey     = "auth_claims"
	UserIDKey     = "auth_user_id"
	AuthSourceKey = "auth_source"
	authErrorKey  = "auth_error"
	AuthHeaderKey = "Authorization"
)

// AuthSource tells how a request was authenticated
type AuthSource string

const (
	AuthSourceNone   AuthSource = ""
	AuthSourceCookie AuthSource = "cookie"
	AuthSourceHeader AuthSource = "header"
)

// AuthConfig holds configuration for the authentication middleware
type AuthConfig struct {
	Authenticator *auth.Authenticator
	CookieName    string
	Logger        *zap.Logger
}

// Authentication resolves the session cookie or an Authorization header
// ("Bearer <jwt>" or "Token <jwt>") into claims. Anonymous requests pass
// through; RequireAuth and LoginRequired enforce a user where needed.
func Authentication(cfg AuthConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		token, source := extractToken(c, cfg.CookieName)
		if token == "" {
			c.Next()
			return
		}

		claims, err := cfg.Authenticator.Authenticate(c.Request.Context(), token)
		if err == nil && source == AuthSourceCookie && claims.TokenType != auth.TokenTypeSession {
			err = auth.ErrInvalidTokenType
		}
		if err != nil {
			log.Debug("Authentication failed",
				zap.String("source", string(source)),
				zap.String("path", c.Request.URL.Path),
				zap.Error(err))
			c.Set(authErrorKey, err)
			c.Next()
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(UserIDKey, claims.UserID)
		c.Set(AuthSourceKey, source)

		ctx := c.Request.Context()
		ctx = logger.WithContext(ctx, logger.FromContext(ctx).With(zap.String("user_id", claims.UserID)))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// extractToken prefers the Authorization header over the session cookie
func extractToken(c *gin.Context, cookieName string) (string, AuthSource) {
	if header := strings.TrimSpace(c.GetHeader(AuthHeaderKey)); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && (strings.EqualFold(scheme, "Bearer") || strings.EqualFold(scheme, "Token")) {
			return strings.TrimSpace(token), AuthSourceHeader
		}
		return "", AuthSourceNone
	}
	if cookieName != "" {
		if token, err := c.Cookie(cookieName); err == nil && token != "" {
			return token, AuthSourceCookie
		}
	}
	return "", AuthSourceNone
}

// RequireAuth rejects anonymous requests with 401
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetClaims(c) != nil {
			c.Next()
			return
		}
		code, message := authFailure(c)
		c.AbortWithStatusJSON(http.StatusUnauthorized,
			dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c)))
	}
}

// LoginRequired redirects anonymous page requests to the login page,
// passing the requested path as next.
func LoginRequired(loginURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetClaims(c) != nil {
			c.Next()
			return
		}
		next := strings.ReplaceAll(url.QueryEscape(c.Request.URL.RequestURI()), "%2F", "/")
		c.Redirect(http.StatusFound, loginURL+"?next="+next)
		c.Abort()
	}
}

// RequireStaff rejects authenticated users without the staff flag
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil || !claims.IsStaff {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeForbidden, "Staff access required", GetRequestID(c)))
			return
		}
		c.Next()
	}
}

func authFailure(c *gin.Context) (string, string) {
	v, ok := c.Get(authErrorKey)
	if !ok {
		return dto.ErrCodeUnauthorized, "Authentication required"
	}
	err, _ := v.(error)
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "TOKEN_EXPIRED", "Token has expired"
	case errors.Is(err, auth.ErrTokenBlacklisted):
		return "TOKEN_REVOKED", "Token has been revoked"
	case errors.Is(err, auth.ErrInvalidTokenType):
		return "INVALID_TOKEN_TYPE", "Invalid token type"
	}
	return "INVALID_TOKEN", "Invalid token"
}

// GetClaims returns the claims of the authenticated user, nil for anonymous requests
func GetClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// GetAuthSource reports how the request was authenticated
func GetAuthSource(c *gin.Context) AuthSource {
	if v, ok := c.Get(AuthSourceKey); ok {
		if source, ok := v.(AuthSource); ok {
			return source
		}
	}
	return AuthSourceNone
}
