// Package quota enforces per-tier usage limits on chat messages. It is
// consulted before every chat turn and updated by the billing webhook.
package quota

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/personahub/persona-backend/internal/types"
)

// FreeMonthlyMessageLimit is the number of chat turns a free-tier user may
// send per billing period.
const FreeMonthlyMessageLimit = 100

// UserStore is the user persistence the quota guard needs. Counter updates
// must be atomic increments on the store, never read-modify-write.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*types.User, error)
	IncrementMessageCount(ctx context.Context, id uuid.UUID) error
	SetTier(ctx context.Context, id uuid.UUID, tier types.Tier) error
	ResetAllMessageCounts(ctx context.Context) (int64, error)
}

// Guard enforces the message quota state machine.
type Guard struct {
	users  UserStore
	logger *logrus.Logger
}

// NewGuard creates a new quota Guard.
func NewGuard(users UserStore, logger *logrus.Logger) *Guard {
	return &Guard{users: users, logger: logger}
}

// CheckQuota loads the user and rejects the chat turn if a free-tier user is
// at the monthly limit. It performs no state change; the counter is charged
// separately, only after the completion provider has returned successfully.
func (g *Guard) CheckQuota(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	user, err := g.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.SubscriptionTier == types.TierFree && user.MonthlyMessageCount >= FreeMonthlyMessageLimit {
		return nil, fmt.Errorf("%w: monthly message limit of %d reached, upgrade to premium for unlimited messages",
			types.ErrQuotaExceeded, FreeMonthlyMessageLimit)
	}
	return user, nil
}

// RecordMessage charges one message against the user's monthly counter.
// Called at most once per successfully returned completion.
func (g *Guard) RecordMessage(ctx context.Context, userID uuid.UUID) error {
	return g.users.IncrementMessageCount(ctx, userID)
}

// UpgradeTier moves the user to premium. Idempotent; invoked by the billing
// webhook or a direct upgrade action.
func (g *Guard) UpgradeTier(ctx context.Context, userID uuid.UUID) error {
	if err := g.users.SetTier(ctx, userID, types.TierPremium); err != nil {
		return err
	}
	g.logger.WithField("user_id", userID).Info("user upgraded to premium")
	return nil
}

// ResetMonthlyCounters zeroes every user's monthly message counter at a
// billing-period boundary. Triggered externally (admin or scheduler).
func (g *Guard) ResetMonthlyCounters(ctx context.Context) (int64, error) {
	n, err := g.users.ResetAllMessageCounts(ctx)
	if err != nil {
		return 0, err
	}
	g.logger.WithField("users_reset", n).Info("monthly message counters reset")
	return n, nil
}
