package dto

import (
	"errors"
	"net/http"

	"github.com/stockitup/backend/internal/domain/integration"
	"github.com/stockitup/backend/internal/domain/shared"
)

// General error codes
const (
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// Input error codes
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeFileTooLarge    = "FILE_TOO_LARGE"
	ErrCodeUnsupportedType = "UNSUPPORTED_MEDIA_TYPE"
	ErrCodeDisallowedHost  = "DISALLOWED_HOST"
	ErrCodeInvalidImport   = "INVALID_IMPORT_FILE"
)

// Authentication error codes
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeAccountDisabled    = "ACCOUNT_DISABLED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeCSRFFailed         = "CSRF_FAILED"
	ErrCodeRateLimited        = "RATE_LIMITED"
)

// Resource and business rule error codes
const (
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeMethodNotAllowed  = "METHOD_NOT_ALLOWED"
	ErrCodeAlreadyExists     = "ALREADY_EXISTS"
	ErrCodeInvalidState      = "INVALID_STATE"
	ErrCodeInsufficientStock = "INSUFFICIENT_STOCK"
	ErrCodeConcurrentUpdate  = "CONCURRENT_UPDATE"
)

// Marketplace error codes
const (
	ErrCodeUnknownMarketplace     = "UNKNOWN_MARKETPLACE"
	ErrCodeNotConfigured          = "MARKETPLACE_NOT_CONFIGURED"
	ErrCodeNotConnected           = "MARKETPLACE_NOT_CONNECTED"
	ErrCodeMarketplaceAuth        = "MARKETPLACE_AUTH_FAILED"
	ErrCodeMarketplaceRateLimit   = "MARKETPLACE_RATE_LIMITED"
	ErrCodeMarketplaceDown        = "MARKETPLACE_UNAVAILABLE"
	ErrCodeMarketplaceBadResponse = "MARKETPLACE_INVALID_RESPONSE"
	ErrCodeInvalidOAuthState      = "INVALID_OAUTH_STATE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,

	// Input errors -> 400 Bad Request
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeDisallowedHost:  http.StatusBadRequest,
	ErrCodeInvalidImport:   http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeFileTooLarge:    http.StatusRequestEntityTooLarge,
	ErrCodeUnsupportedType: http.StatusUnsupportedMediaType,

	// Auth errors
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeInvalidCredentials: http.StatusUnauthorized,
	ErrCodeAccountDisabled:    http.StatusForbidden,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeCSRFFailed:         http.StatusForbidden,
	ErrCodeRateLimited:        http.StatusTooManyRequests,

	// Resource errors
	ErrCodeNotFound:         http.StatusNotFound,
	ErrCodeMethodNotAllowed: http.StatusMethodNotAllowed,
	ErrCodeAlreadyExists:    http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:      http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock: http.StatusUnprocessableEntity,
	ErrCodeConcurrentUpdate:  http.StatusConflict,

	// Marketplace errors
	ErrCodeUnknownMarketplace:     http.StatusNotFound,
	ErrCodeNotConfigured:          http.StatusServiceUnavailable,
	ErrCodeNotConnected:           http.StatusConflict,
	ErrCodeMarketplaceAuth:        http.StatusBadGateway,
	ErrCodeMarketplaceRateLimit:   http.StatusTooManyRequests,
	ErrCodeMarketplaceDown:        http.StatusBadGateway,
	ErrCodeMarketplaceBadResponse: http.StatusBadGateway,
	ErrCodeInvalidOAuthState:      http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

var marketplaceErrors = []struct {
	err     error
	code    string
	message string
}{
	{integration.ErrUnknownMarketplace, ErrCodeUnknownMarketplace, "Unknown marketplace"},
	{integration.ErrMarketplaceNotConfigured, ErrCodeNotConfigured, "Marketplace credentials are not configured"},
	{integration.ErrMarketplaceNotConnected, ErrCodeNotConnected, "Marketplace is not connected"},
	{integration.ErrInvalidOAuthState, ErrCodeInvalidOAuthState, "Authorization request is invalid or has expired"},
	{integration.ErrMarketplaceAuthFailed, ErrCodeMarketplaceAuth, "Marketplace rejected the credentials"},
	{integration.ErrMarketplaceRateLimited, ErrCodeMarketplaceRateLimit, "Marketplace rate limit reached, try again later"},
	{integration.ErrMarketplaceUnavailable, ErrCodeMarketplaceDown, "Marketplace is temporarily unavailable"},
	{integration.ErrMarketplaceInvalidResponse, ErrCodeMarketplaceBadResponse, "Marketplace returned an unexpected response"},
}

// ResolveError turns an application error into an error code and a client-safe message.
// ok is false for errors that carry no code; those are reported as internal errors.
func ResolveError(err error) (code, message string, ok bool) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code, domainErr.Message, true
	}
	for _, m := range marketplaceErrors {
		if errors.Is(err, m.err) {
			return m.code, m.message, true
		}
	}
	return ErrCodeInternal, "An unexpected error occurred", false
}
