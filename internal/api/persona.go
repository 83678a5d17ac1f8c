package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/personahub/persona-backend/internal/service/catalog"
	"github.com/personahub/persona-backend/internal/types"
)

// ListPersonas handles GET /personas. Anonymous callers see defaults only.
func (s *Server) ListPersonas(c echo.Context) error {
	personas, err := s.catalog.ListVisible(c.Request().Context(), MaybeUserID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	if personas == nil {
		personas = []types.Persona{}
	}
	return c.JSON(http.StatusOK, personas)
}

// CreatePersona handles POST /personas.
func (s *Server) CreatePersona(c echo.Context) error {
	var req catalog.CreateInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Kind: "validation_error", Error: "invalid request body"})
	}

	persona, err := s.catalog.Create(c.Request().Context(), UserID(c), req)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(http.StatusCreated, persona)
}

// DeletePersona handles DELETE /personas/:id.
func (s *Server) DeletePersona(c echo.Context) error {
	personaID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Kind: "validation_error", Error: "invalid persona id"})
	}

	if err := s.catalog.Delete(c.Request().Context(), personaID, UserID(c), UserRole(c)); err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// LookupPersonaRequest is the request body for the AI-assisted lookup.
type LookupPersonaRequest struct {
	Name string `json:"name"`
}

// LookupPersona handles POST /personas/lookup. The assembled profile is
// returned for confirmation; nothing is persisted.
func (s *Server) LookupPersona(c echo.Context) error {
	var req LookupPersonaRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Kind: "validation_error", Error: "invalid request body"})
	}

	profile, err := s.lookup.Lookup(c.Request().Context(), req.Name)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(http.StatusOK, profile)
}
