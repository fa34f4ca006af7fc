package handler

import "github.com/stockitup/backend/internal/interfaces/http/dto"

// APIResponse represents a generic API response for documentation and tests
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// MessageData carries a short human-readable confirmation
type MessageData struct {
	Message string `json:"message"`
}

// HealthData is the liveness check answer
type HealthData struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Version  string `json:"version,omitempty"`
}

// RedirectData is returned instead of a 302 when the client asked for JSON
type RedirectData struct {
	Location string `json:"location"`
}
