package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/personahub/persona-backend/internal/types"
)

// CreateSubscriptionResponse carries the provider handle and the public key
// id the client needs to launch checkout.
type CreateSubscriptionResponse struct {
	SubscriptionID string `json:"subscription_id"`
	KeyID          string `json:"key_id"`
}

// CreateSubscription handles POST /billing/subscriptions.
func (s *Server) CreateSubscription(c echo.Context) error {
	ctx := c.Request().Context()
	userID := UserID(c)

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return s.respondError(c, err)
	}
	if user.SubscriptionTier == types.TierPremium {
		return s.respondError(c, fmt.Errorf("%w: user is already on a premium plan", types.ErrValidation))
	}

	sub, err := s.billing.CreateSubscription(ctx, userID.String())
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(http.StatusOK, CreateSubscriptionResponse{
		SubscriptionID: sub.ID,
		KeyID:          s.billing.KeyID(),
	})
}

// UpgradeTier handles POST /billing/upgrade: a direct upgrade action outside
// the webhook flow.
func (s *Server) UpgradeTier(c echo.Context) error {
	if err := s.quota.UpgradeTier(c.Request().Context(), UserID(c)); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}
