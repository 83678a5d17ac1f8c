package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts all handlers on the echo instance.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	e.POST("/auth/register", s.RegisterUser)
	e.POST("/auth/login", s.LoginUser)

	e.GET("/personas", s.ListPersonas, s.OptionalAuth)
	e.POST("/personas", s.CreatePersona, s.RequireAuth)
	e.DELETE("/personas/:id", s.DeletePersona, s.RequireAuth)
	e.POST("/personas/lookup", s.LookupPersona, s.RequireAuth)

	e.GET("/chats", s.ListSidebar, s.RequireAuth)
	e.POST("/chat", s.SendMessage, s.RequireAuth)
	e.POST("/chats/:id/hide", s.HideSession, s.RequireAuth)
	e.POST("/chats/:id/restore", s.RestoreSession, s.RequireAuth)

	e.POST("/billing/subscriptions", s.CreateSubscription, s.RequireAuth)
	e.POST("/billing/upgrade", s.UpgradeTier, s.RequireAuth)

	// Signature-verified, no user session.
	e.POST("/webhooks/billing", s.BillingWebhook)

	adm := e.Group("/admin", s.RequireAuth, s.RequireAdmin)
	adm.GET("/stats", s.AdminStats)
	adm.GET("/personas", s.AdminListPersonas)
	adm.PATCH("/users/:id/role", s.AdminUpdateUserRole)
	adm.POST("/quota/reset", s.AdminResetQuota)
}
