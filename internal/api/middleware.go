package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/personahub/persona-backend/internal/types"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// bearerToken extracts the bearer token from the Authorization header.
func bearerToken(c echo.Context) (string, bool) {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		return "", false
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// RequireAuth validates the bearer token and stores the caller's identity on
// the context.
func (s *Server) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearerToken(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{Kind: "unauthorized", Error: "missing or malformed authorization header"})
		}

		claims, err := s.auth.ValidateToken(token)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{Kind: "unauthorized", Error: "invalid token"})
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{Kind: "unauthorized", Error: "invalid token"})
		}

		c.Set(ctxUserID, userID)
		c.Set(ctxRole, types.Role(claims.Role))
		return next(c)
	}
}

// OptionalAuth stores the caller's identity if a valid token is present and
// continues anonymously otherwise.
func (s *Server) OptionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if token, ok := bearerToken(c); ok {
			if claims, err := s.auth.ValidateToken(token); err == nil {
				if userID, err := uuid.Parse(claims.UserID); err == nil {
					c.Set(ctxUserID, userID)
					c.Set(ctxRole, types.Role(claims.Role))
				}
			}
		}
		return next(c)
	}
}

// RequireAdmin rejects non-admin callers. Must run after RequireAuth.
func (s *Server) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if UserRole(c) != types.RoleAdmin {
			return c.JSON(http.StatusForbidden, ErrorResponse{Kind: "forbidden", Error: "admin access required"})
		}
		return next(c)
	}
}

// UserID returns the authenticated user's id. Zero value if anonymous.
func UserID(c echo.Context) uuid.UUID {
	id, _ := c.Get(ctxUserID).(uuid.UUID)
	return id
}

// MaybeUserID returns the authenticated user's id, or nil if anonymous.
func MaybeUserID(c echo.Context) *uuid.UUID {
	if id, ok := c.Get(ctxUserID).(uuid.UUID); ok {
		return &id
	}
	return nil
}

// UserRole returns the authenticated user's role. Empty if anonymous.
func UserRole(c echo.Context) types.Role {
	role, _ := c.Get(ctxRole).(types.Role)
	return role
}
