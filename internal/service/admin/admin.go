// Package admin implements the administrative surface: usage stats, persona
// moderation and role management.
package admin

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/personahub/persona-backend/internal/types"
)

// UserStore is the user persistence the admin service needs.
type UserStore interface {
	SetRole(ctx context.Context, id uuid.UUID, role types.Role) error
	CountUsers(ctx context.Context) (int, error)
	CountPremiumUsers(ctx context.Context) (int, error)
}

// SessionStore is the session persistence the admin service needs.
type SessionStore interface {
	CountTotalMessages(ctx context.Context) (int, error)
}

// PersonaStore is the persona persistence the admin service needs.
type PersonaStore interface {
	ListAll(ctx context.Context) ([]types.Persona, error)
}

// Service implements admin operations.
type Service struct {
	users    UserStore
	sessions SessionStore
	personas PersonaStore
	logger   *logrus.Logger
}

// NewService creates a new admin Service.
func NewService(users UserStore, sessions SessionStore, personas PersonaStore, logger *logrus.Logger) *Service {
	return &Service{users: users, sessions: sessions, personas: personas, logger: logger}
}

// Stats holds aggregate product counters.
type Stats struct {
	TotalUsers    int `json:"total_users"`
	PremiumUsers  int `json:"premium_users"`
	TotalMessages int `json:"total_messages"`
}

// Stats returns aggregate counts over users and messages.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	totalUsers, err := s.users.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	premiumUsers, err := s.users.CountPremiumUsers(ctx)
	if err != nil {
		return nil, err
	}
	totalMessages, err := s.sessions.CountTotalMessages(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		TotalUsers:    totalUsers,
		PremiumUsers:  premiumUsers,
		TotalMessages: totalMessages,
	}, nil
}

// SetUserRole changes a user's role.
func (s *Service) SetUserRole(ctx context.Context, userID uuid.UUID, role types.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: invalid role %q", types.ErrValidation, role)
	}
	if err := s.users.SetRole(ctx, userID, role); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"role":    role,
	}).Info("user role updated")
	return nil
}

// ListPersonas returns every persona, defaults and user-created alike.
func (s *Service) ListPersonas(ctx context.Context) ([]types.Persona, error) {
	return s.personas.ListAll(ctx)
}
