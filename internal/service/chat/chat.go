// Package chat owns the conversation ledger: one append-only session per
// (user, persona) pair, created lazily on the first message, with quota
// enforcement before each turn.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/personahub/persona-backend/internal/types"
)

// QuotaGuard gates chat turns and charges the message counter.
type QuotaGuard interface {
	CheckQuota(ctx context.Context, userID uuid.UUID) (*types.User, error)
	RecordMessage(ctx context.Context, userID uuid.UUID) error
}

// PersonaStore is the persona persistence the ledger needs.
type PersonaStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*types.Persona, error)
	ListVisible(ctx context.Context, userID *uuid.UUID) ([]types.Persona, error)
}

// SessionStore is the session persistence the ledger needs. AppendTurn must
// be an atomic upsert keyed on the (user, persona) uniqueness invariant; a
// read-check-then-insert pair is not acceptable.
type SessionStore interface {
	GetByUserAndPersona(ctx context.Context, userID, personaID uuid.UUID) (*types.ChatSession, error)
	AppendTurn(ctx context.Context, userID, personaID uuid.UUID, userMsg, modelMsg types.Message) (*types.ChatSession, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]types.ChatSession, error)
	SetActive(ctx context.Context, sessionID, userID uuid.UUID, active bool) error
}

// Completer turns (system prompt, history, new user text) into reply text.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, history []types.Message, userText string) (string, error)
}

// Service implements the conversation ledger.
type Service struct {
	quota     QuotaGuard
	personas  PersonaStore
	sessions  SessionStore
	completer Completer
	logger    *logrus.Logger
}

// NewService creates a new chat Service.
func NewService(quota QuotaGuard, personas PersonaStore, sessions SessionStore, completer Completer, logger *logrus.Logger) *Service {
	return &Service{
		quota:     quota,
		personas:  personas,
		sessions:  sessions,
		completer: completer,
		logger:    logger,
	}
}

// SendMessageResult is the outcome of a chat turn.
type SendMessageResult struct {
	SessionID uuid.UUID `json:"session_id"`
	Reply     string    `json:"reply"`
}

// SendMessage runs one chat turn: quota check, completion call, atomic
// append of the (user, model) turn pair, then the quota charge. Upstream
// failures abort before any state mutation, so failed completions never
// consume quota or leave partial turns. Sending to a hidden session
// reactivates it.
func (s *Service) SendMessage(ctx context.Context, userID, personaID uuid.UUID, text string) (*SendMessageResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: message text is required", types.ErrValidation)
	}

	if _, err := s.quota.CheckQuota(ctx, userID); err != nil {
		return nil, err
	}

	persona, err := s.personas.GetByID(ctx, personaID)
	if err != nil {
		return nil, err
	}
	if !persona.VisibleTo(&userID) {
		// Treat another user's private persona as absent.
		return nil, types.ErrNotFound
	}

	// History is built from persisted turns only. The client-side greeting
	// shown before a first message is never stored, so it never reaches the
	// provider; a first message goes out with empty history.
	var history []types.Message
	if sess, err := s.sessions.GetByUserAndPersona(ctx, userID, personaID); err == nil {
		history = sess.Messages
	} else if !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}

	reply, err := s.completer.Complete(ctx, persona.SystemPrompt, history, text)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.AppendTurn(ctx, userID, personaID,
		types.Message{Role: types.RoleUser, Text: text},
		types.Message{Role: types.RoleModel, Text: reply},
	)
	if err != nil {
		return nil, err
	}

	// Charge quota last, at most once per successfully returned completion.
	// A failed charge under-counts rather than failing a turn that already
	// happened.
	if err := s.quota.RecordMessage(ctx, userID); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("failed to record message against quota")
	}

	return &SendMessageResult{SessionID: sess.ID, Reply: reply}, nil
}

// ListSidebar returns one entry per persona visible to the user: the real
// session where one exists (hidden or not), or a synthetic empty entry.
// Entries with a session come first, each group ordered by persona name.
func (s *Service) ListSidebar(ctx context.Context, userID uuid.UUID) ([]types.SidebarEntry, error) {
	personas, err := s.personas.ListVisible(ctx, &userID)
	if err != nil {
		return nil, err
	}

	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	byPersona := make(map[uuid.UUID]*types.ChatSession, len(sessions))
	for i := range sessions {
		byPersona[sessions[i].PersonaID] = &sessions[i]
	}

	entries := make([]types.SidebarEntry, 0, len(personas))
	for _, p := range personas {
		entry := types.SidebarEntry{Persona: p, Messages: []types.Message{}}
		if sess, ok := byPersona[p.ID]; ok {
			id := sess.ID
			entry.SessionID = &id
			entry.Messages = sess.Messages
			entry.IsActive = sess.IsActive
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if (entries[i].SessionID != nil) != (entries[j].SessionID != nil) {
			return entries[i].SessionID != nil
		}
		return entries[i].Persona.Name < entries[j].Persona.Name
	})

	return entries, nil
}

// HideSession archives a session. Owner only; history is kept.
func (s *Service) HideSession(ctx context.Context, sessionID, userID uuid.UUID) error {
	return s.sessions.SetActive(ctx, sessionID, userID, false)
}

// RestoreSession un-archives a session. Owner only.
func (s *Service) RestoreSession(ctx context.Context, sessionID, userID uuid.UUID) error {
	return s.sessions.SetActive(ctx, sessionID, userID, true)
}
