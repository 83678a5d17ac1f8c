package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/personahub/persona-backend/internal/types"
)

// RegisterRequest is the request body for registering an account.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the request body for logging in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the response for a successful login.
type LoginResponse struct {
	Token string      `json:"token"`
	User  *types.User `json:"user"`
}

// RegisterUser handles POST /auth/register.
func (s *Server) RegisterUser(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Kind: "validation_error", Error: "invalid request body"})
	}

	user, err := s.auth.Register(c.Request().Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(http.StatusCreated, user)
}

// LoginUser handles POST /auth/login.
func (s *Server) LoginUser(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Kind: "validation_error", Error: "invalid request body"})
	}

	token, user, err := s.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(http.StatusOK, LoginResponse{Token: token, User: user})
}
