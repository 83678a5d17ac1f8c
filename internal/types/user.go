package types

import (
	"time"

	"github.com/google/uuid"
)

// Role is a user's authorization role.
type Role string

const (
	RoleUserAccount Role = "user"
	RoleAdmin       Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUserAccount || r == RoleAdmin
}

// Tier is a user's subscription tier.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// User represents a registered account.
type User struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	Email               string    `json:"email"`
	PasswordHash        string    `json:"-"`
	Role                Role      `json:"role"`
	SubscriptionTier    Tier      `json:"subscription_tier"`
	PersonasCreated     int       `json:"personas_created"`
	MonthlyMessageCount int       `json:"monthly_message_count"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}
