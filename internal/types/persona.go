package types

import (
	"time"

	"github.com/google/uuid"
)

// Gender is the voice/gender tag attached to a persona.
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderNeutral Gender = "neutral"
)

// Valid reports whether g is a known gender tag.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale || g == GenderNeutral
}

// Persona is a named AI character definition users converse with.
// Default personas have a nil CreatorID and are visible to everyone;
// user-created personas are visible only to their creator and admins.
type Persona struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Category     string     `json:"category"`
	ImageURL     string     `json:"image_url"`
	SystemPrompt string     `json:"system_prompt"`
	Gender       Gender     `json:"gender"`
	CreatorID    *uuid.UUID `json:"creator_id,omitempty"`
	IsDefault    bool       `json:"is_default"`
	CreatedAt    time.Time  `json:"created_at"`
}

// VisibleTo reports whether the persona may be seen by the given user.
// A nil userID means an anonymous caller.
func (p *Persona) VisibleTo(userID *uuid.UUID) bool {
	if p.IsDefault {
		return true
	}
	return userID != nil && p.CreatorID != nil && *p.CreatorID == *userID
}

// PersonaProfile is the assembled result of an AI-assisted lookup,
// returned for user confirmation. Nothing is persisted at lookup time.
type PersonaProfile struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	Gender       Gender `json:"gender"`
	SystemPrompt string `json:"system_prompt"`
	ImageURL     string `json:"image_url"`
}
