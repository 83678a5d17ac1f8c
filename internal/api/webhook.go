package api

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/personahub/persona-backend/internal/billing"
	"github.com/personahub/persona-backend/internal/types"
)

// webhookDedupTTL is how long processed webhook event ids are remembered.
const webhookDedupTTL = 72 * time.Hour

// BillingWebhook handles POST /webhooks/billing. The payload signature is
// verified before anything in the body is trusted; a verified
// subscription.charged event upgrades the user named in the subscription
// notes.
func (s *Server) BillingWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Kind: "validation_error", Error: "unreadable payload"})
	}

	signature := c.Request().Header.Get(billing.SignatureHeader)
	event, err := billing.ParseWebhook(payload, signature, s.webhookSecret)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"security":  "webhook",
			"remote_ip": c.RealIP(),
		}).Warn("rejected billing webhook")
		return s.respondError(c, err)
	}

	if event.Event != billing.EventSubscriptionCharged {
		s.logger.WithField("event", event.Event).Debug("ignoring unhandled billing event")
		return c.JSON(http.StatusOK, SuccessResponse{Success: true})
	}

	userID, err := uuid.Parse(event.UserID())
	if err != nil {
		return s.respondError(c, fmt.Errorf("%w: no user id found in subscription notes", types.ErrValidation))
	}

	// Providers redeliver webhooks; remember processed event ids so a retry
	// does not repeat the (idempotent) upgrade or flood the logs.
	if s.dedup != nil && event.ID != "" {
		fresh, err := s.dedup.SetNX(ctx, "billing:webhook:"+event.ID, "1", webhookDedupTTL)
		if err != nil {
			s.logger.WithError(err).Warn("webhook dedup check failed, processing anyway")
		} else if !fresh {
			return c.JSON(http.StatusOK, SuccessResponse{Success: true})
		}
	}

	if err := s.quota.UpgradeTier(ctx, userID); err != nil {
		return s.respondError(c, err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":         userID,
		"subscription_id": event.Payload.Subscription.Entity.ID,
	}).Info("billing webhook processed")
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}
