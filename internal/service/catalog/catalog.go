// Package catalog owns persona records, their visibility rules and the
// free-tier creation limits.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/personahub/persona-backend/internal/types"
)

// FreePersonaLimit is the number of personas a free-tier user may create.
const FreePersonaLimit = 3

// PersonaStore is the persona persistence the catalog needs.
type PersonaStore interface {
	ListVisible(ctx context.Context, userID *uuid.UUID) ([]types.Persona, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.Persona, error)
	Create(ctx context.Context, p *types.Persona) error
	DeleteWithSessions(ctx context.Context, id uuid.UUID) error
}

// UserStore is the user persistence the catalog needs.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*types.User, error)
	IncrementPersonasCreated(ctx context.Context, id uuid.UUID) error
	DecrementPersonasCreatedIfFree(ctx context.Context, id uuid.UUID) error
}

// ImageChecker verifies that an image reference resolves to an image
// resource.
type ImageChecker interface {
	CheckImage(ctx context.Context, imageURL string) error
}

// Service implements the persona catalog.
type Service struct {
	personas PersonaStore
	users    UserStore
	images   ImageChecker
	logger   *logrus.Logger
}

// NewService creates a new catalog Service.
func NewService(personas PersonaStore, users UserStore, images ImageChecker, logger *logrus.Logger) *Service {
	return &Service{personas: personas, users: users, images: images, logger: logger}
}

// ListVisible returns the personas the user may see, ordered by name.
// Anonymous callers (nil userID) see defaults only.
func (s *Service) ListVisible(ctx context.Context, userID *uuid.UUID) ([]types.Persona, error) {
	return s.personas.ListVisible(ctx, userID)
}

// CreateInput holds the fields for creating a persona. Custom marks a
// from-scratch creation (as opposed to the AI-assisted lookup flow), which
// is a premium-only feature.
type CreateInput struct {
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Category     string       `json:"category"`
	ImageURL     string       `json:"image_url"`
	SystemPrompt string       `json:"system_prompt"`
	Gender       types.Gender `json:"gender"`
	Custom       bool         `json:"custom"`
}

func (in *CreateInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return fmt.Errorf("%w: name is required", types.ErrValidation)
	case strings.TrimSpace(in.Description) == "":
		return fmt.Errorf("%w: description is required", types.ErrValidation)
	case strings.TrimSpace(in.Category) == "":
		return fmt.Errorf("%w: category is required", types.ErrValidation)
	case strings.TrimSpace(in.ImageURL) == "":
		return fmt.Errorf("%w: image_url is required", types.ErrValidation)
	case strings.TrimSpace(in.SystemPrompt) == "":
		return fmt.Errorf("%w: system_prompt is required", types.ErrValidation)
	case !in.Gender.Valid():
		return fmt.Errorf("%w: gender must be male, female or neutral", types.ErrValidation)
	}
	return nil
}

// Create validates the input, enforces free-tier limits and persists a new
// non-default persona owned by the user. All checks run before any write.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*types.Persona, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.SubscriptionTier == types.TierFree {
		if in.Custom {
			return nil, fmt.Errorf("%w: creating custom personas from scratch requires a premium subscription", types.ErrForbidden)
		}
		if user.PersonasCreated >= FreePersonaLimit {
			return nil, fmt.Errorf("%w: free tier is limited to %d personas, upgrade to premium to create more",
				types.ErrQuotaExceeded, FreePersonaLimit)
		}
	}

	if err := s.images.CheckImage(ctx, in.ImageURL); err != nil {
		return nil, err
	}

	persona := &types.Persona{
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		Category:     in.Category,
		ImageURL:     in.ImageURL,
		SystemPrompt: in.SystemPrompt,
		Gender:       in.Gender,
		CreatorID:    &userID,
		IsDefault:    false,
	}
	if err := s.personas.Create(ctx, persona); err != nil {
		return nil, err
	}

	// The persona is already persisted; a failed counter bump under-counts
	// rather than surfacing a partial-write error, same as the decrement on
	// delete.
	if err := s.users.IncrementPersonasCreated(ctx, userID); err != nil {
		s.logger.WithError(err).WithField("creator_id", userID).
			Warn("failed to increment persona counter after create")
	}

	s.logger.WithFields(logrus.Fields{
		"persona_id": persona.ID,
		"creator_id": userID,
	}).Info("persona created")
	return persona, nil
}

// Delete removes a persona and cascades to its chat sessions. Only the
// creator or an admin may delete. The persona deletion (with its sessions)
// is the authoritative, transactional step; the creator's counter decrement
// runs after it, best effort.
func (s *Service) Delete(ctx context.Context, personaID, requesterID uuid.UUID, requesterRole types.Role) error {
	persona, err := s.personas.GetByID(ctx, personaID)
	if err != nil {
		return err
	}

	isCreator := persona.CreatorID != nil && *persona.CreatorID == requesterID
	if !isCreator && requesterRole != types.RoleAdmin {
		return fmt.Errorf("%w: you do not have permission to delete this persona", types.ErrForbidden)
	}

	if err := s.personas.DeleteWithSessions(ctx, personaID); err != nil {
		return err
	}

	if persona.CreatorID != nil {
		if err := s.users.DecrementPersonasCreatedIfFree(ctx, *persona.CreatorID); err != nil {
			s.logger.WithError(err).WithField("creator_id", *persona.CreatorID).
				Warn("failed to decrement persona counter after delete")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"persona_id":   personaID,
		"requester_id": requesterID,
	}).Info("persona deleted")
	return nil
}
