package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/personahub/persona-backend/internal/types"
)

// ErrorResponse represents an error response: a stable kind plus a
// human-readable message.
type ErrorResponse struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// SuccessResponse represents a generic success response.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// errorKind maps a service error to its stable kind and HTTP status.
func errorKind(err error) (string, int) {
	switch {
	case errors.Is(err, types.ErrValidation):
		return "validation_error", http.StatusBadRequest
	case errors.Is(err, types.ErrInvalidSignature):
		return "invalid_signature", http.StatusBadRequest
	case errors.Is(err, types.ErrUnauthorized):
		return "unauthorized", http.StatusUnauthorized
	case errors.Is(err, types.ErrForbidden):
		return "forbidden", http.StatusForbidden
	case errors.Is(err, types.ErrNotFound):
		return "not_found", http.StatusNotFound
	case errors.Is(err, types.ErrConflict):
		return "conflict", http.StatusConflict
	case errors.Is(err, types.ErrQuotaExceeded):
		return "quota_exceeded", http.StatusTooManyRequests
	case errors.Is(err, types.ErrUpstreamTimeout):
		return "upstream_timeout", http.StatusGatewayTimeout
	case errors.Is(err, types.ErrUpstream):
		return "upstream_error", http.StatusBadGateway
	default:
		return "internal", http.StatusInternalServerError
	}
}

// respondError maps a service error to an HTTP response. Unclassified errors
// are logged and returned as an opaque 500.
func (s *Server) respondError(c echo.Context, err error) error {
	kind, status := errorKind(err)
	if status == http.StatusInternalServerError {
		s.logger.WithError(err).Error("internal error")
		return c.JSON(status, ErrorResponse{Kind: kind, Error: "an internal server error occurred"})
	}
	return c.JSON(status, ErrorResponse{Kind: kind, Error: err.Error()})
}
