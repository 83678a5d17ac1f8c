package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/personahub/persona-backend/internal/types"
)

// AdminStats handles GET /admin/stats.
func (s *Server) AdminStats(c echo.Context) error {
	stats, err := s.admin.Stats(c.Request().Context())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// AdminListPersonas handles GET /admin/personas.
func (s *Server) AdminListPersonas(c echo.Context) error {
	personas, err := s.admin.ListPersonas(c.Request().Context())
	if err != nil {
		return s.respondError(c, err)
	}
	if personas == nil {
		personas = []types.Persona{}
	}
	return c.JSON(http.StatusOK, personas)
}

// UpdateUserRoleRequest is the request body for changing a user's role.
type UpdateUserRoleRequest struct {
	Role types.Role `json:"role"`
}

// AdminUpdateUserRole handles PATCH /admin/users/:id/role.
func (s *Server) AdminUpdateUserRole(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Kind: "validation_error", Error: "invalid user id"})
	}

	var req UpdateUserRoleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Kind: "validation_error", Error: "invalid request body"})
	}

	if err := s.admin.SetUserRole(c.Request().Context(), userID, req.Role); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// ResetQuotaResponse reports how many users had their counter zeroed.
type ResetQuotaResponse struct {
	UsersReset int64 `json:"users_reset"`
}

// AdminResetQuota handles POST /admin/quota/reset: the billing-period
// boundary trigger.
func (s *Server) AdminResetQuota(c echo.Context) error {
	n, err := s.quota.ResetMonthlyCounters(c.Request().Context())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, ResetQuotaResponse{UsersReset: n})
}
