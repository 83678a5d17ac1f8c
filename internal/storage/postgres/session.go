package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/personahub/persona-backend/internal/types"
)

// SessionRepository handles database operations for chat sessions.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `id, user_id, persona_id, messages, is_active, created_at, updated_at`

func scanSession(row pgx.Row) (*types.ChatSession, error) {
	var (
		s   types.ChatSession
		raw []byte
	)
	err := row.Scan(&s.ID, &s.UserID, &s.PersonaID, &raw, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	if err := json.Unmarshal(raw, &s.Messages); err != nil {
		return nil, fmt.Errorf("decode session messages: %w", err)
	}
	return &s, nil
}

// GetByUserAndPersona returns the session for a (user, persona) pair.
func (r *SessionRepository) GetByUserAndPersona(ctx context.Context, userID, personaID uuid.UUID) (*types.ChatSession, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM chat_sessions
		WHERE user_id = $1 AND persona_id = $2`, userID, personaID)
	return scanSession(row)
}

// AppendTurn appends the user message and the model reply to the session for
// the (user, persona) pair, creating the session if it does not exist yet.
// The upsert keys on the (user_id, persona_id) unique constraint, so two
// racing first messages land in one session. Appending always reactivates a
// hidden session.
func (r *SessionRepository) AppendTurn(ctx context.Context, userID, personaID uuid.UUID, userMsg, modelMsg types.Message) (*types.ChatSession, error) {
	turns, err := json.Marshal([]types.Message{userMsg, modelMsg})
	if err != nil {
		return nil, fmt.Errorf("encode turn: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO chat_sessions (user_id, persona_id, messages, is_active)
		VALUES ($1, $2, $3::jsonb, TRUE)
		ON CONFLICT ON CONSTRAINT chat_sessions_user_persona_key
		DO UPDATE SET
			messages = chat_sessions.messages || EXCLUDED.messages,
			is_active = TRUE,
			updated_at = now()
		RETURNING `+sessionColumns,
		userID, personaID, turns)

	sess, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("append turn: %w", err)
	}
	return sess, nil
}

// ListByUser returns all of the user's sessions, hidden ones included.
func (r *SessionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]types.ChatSession, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM chat_sessions
		WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []types.ChatSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// SetActive flips the hidden/visible state of a session. The update is keyed
// on both session id and owner, so a non-owner request matches no rows.
func (r *SessionRepository) SetActive(ctx context.Context, sessionID, userID uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE chat_sessions SET is_active = $3, updated_at = now()
		WHERE id = $1 AND user_id = $2`, sessionID, userID, active)
	if err != nil {
		return fmt.Errorf("set session active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

// CountTotalMessages returns the number of persisted turn entries across all
// sessions.
func (r *SessionRepository) CountTotalMessages(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(jsonb_array_length(messages)), 0) FROM chat_sessions`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}
