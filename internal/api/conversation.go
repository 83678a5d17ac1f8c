package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/personahub/persona-backend/internal/types"
)

// ListSidebar handles GET /chats: one entry per visible persona, live
// sessions first.
func (s *Server) ListSidebar(c echo.Context) error {
	entries, err := s.chat.ListSidebar(c.Request().Context(), UserID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	if entries == nil {
		entries = []types.SidebarEntry{}
	}
	return c.JSON(http.StatusOK, entries)
}

// HideSession handles POST /chats/:id/hide. Owner only; history is kept.
func (s *Server) HideSession(c echo.Context) error {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Kind: "validation_error", Error: "invalid session id"})
	}

	if err := s.chat.HideSession(c.Request().Context(), sessionID, UserID(c)); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// RestoreSession handles POST /chats/:id/restore.
func (s *Server) RestoreSession(c echo.Context) error {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Kind: "validation_error", Error: "invalid session id"})
	}

	if err := s.chat.RestoreSession(c.Request().Context(), sessionID, UserID(c)); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}
