package types

import (
	"time"

	"github.com/google/uuid"
)

// MessageRole represents the role of a message sender.
type MessageRole string

const (
	RoleUser  MessageRole = "user"
	RoleModel MessageRole = "model"
)

// Message is a single persisted turn entry in a chat session.
type Message struct {
	Role MessageRole `json:"role"`
	Text string      `json:"text"`
}

// ChatSession is the persisted thread of turns between one user and one
// persona. There is at most one session per (user, persona) pair; it is
// created lazily on the first message and only ever appended to. Hiding a
// session flips IsActive without touching history.
type ChatSession struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	PersonaID uuid.UUID `json:"persona_id"`
	Messages  []Message `json:"messages"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SidebarEntry pairs a visible persona with its session, if any. Personas
// the user has never messaged get a nil SessionID and an empty history.
type SidebarEntry struct {
	SessionID *uuid.UUID `json:"session_id"`
	Persona   Persona    `json:"persona"`
	Messages  []Message  `json:"messages"`
	IsActive  bool       `json:"is_active"`
}
