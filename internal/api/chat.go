package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// SendMessageRequest is the request body for sending a chat message.
type SendMessageRequest struct {
	PersonaID uuid.UUID `json:"persona_id"`
	Message   string    `json:"message"`
}

// SendMessage handles POST /chat. It enforces the message quota, calls the
// completion provider and appends the turn to the (user, persona) session.
func (s *Server) SendMessage(c echo.Context) error {
	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Kind: "validation_error", Error: "invalid request body"})
	}
	if req.PersonaID == uuid.Nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Kind: "validation_error", Error: "persona_id is required"})
	}

	result, err := s.chat.SendMessage(c.Request().Context(), UserID(c), req.PersonaID, req.Message)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}
