package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/personahub/persona-backend/internal/types"
)

// PersonaRepository handles database operations for personas.
type PersonaRepository struct {
	pool *pgxpool.Pool
}

// NewPersonaRepository creates a new PersonaRepository.
func NewPersonaRepository(pool *pgxpool.Pool) *PersonaRepository {
	return &PersonaRepository{pool: pool}
}

const personaColumns = `id, name, description, category, image_url, system_prompt, gender, creator_id, is_default, created_at`

func scanPersona(row pgx.Row) (*types.Persona, error) {
	var p types.Persona
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.ImageURL,
		&p.SystemPrompt, &p.Gender, &p.CreatorID, &p.IsDefault, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("scan persona: %w", err)
	}
	return &p, nil
}

func collectPersonas(rows pgx.Rows) ([]types.Persona, error) {
	defer rows.Close()
	var personas []types.Persona
	for rows.Next() {
		p, err := scanPersona(rows)
		if err != nil {
			return nil, err
		}
		personas = append(personas, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate personas: %w", err)
	}
	return personas, nil
}

// ListVisible returns defaults plus the caller's own personas, ordered by
// name. A nil userID returns defaults only.
func (r *PersonaRepository) ListVisible(ctx context.Context, userID *uuid.UUID) ([]types.Persona, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if userID == nil {
		rows, err = r.pool.Query(ctx, `
			SELECT `+personaColumns+` FROM personas
			WHERE is_default ORDER BY name ASC`)
	} else {
		rows, err = r.pool.Query(ctx, `
			SELECT `+personaColumns+` FROM personas
			WHERE is_default OR creator_id = $1 ORDER BY name ASC`, *userID)
	}
	if err != nil {
		return nil, fmt.Errorf("list personas: %w", err)
	}
	return collectPersonas(rows)
}

// ListAll returns every persona, newest first. Admin use only.
func (r *PersonaRepository) ListAll(ctx context.Context) ([]types.Persona, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+personaColumns+` FROM personas ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list all personas: %w", err)
	}
	return collectPersonas(rows)
}

// GetByID returns a persona by id.
func (r *PersonaRepository) GetByID(ctx context.Context, id uuid.UUID) (*types.Persona, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+personaColumns+` FROM personas WHERE id = $1`, id)
	return scanPersona(row)
}

// Create inserts a persona and fills in its generated id and timestamp.
func (r *PersonaRepository) Create(ctx context.Context, p *types.Persona) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO personas (name, description, category, image_url, system_prompt, gender, creator_id, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`,
		p.Name, p.Description, p.Category, p.ImageURL, p.SystemPrompt, p.Gender, p.CreatorID, p.IsDefault)
	if err := row.Scan(&p.ID, &p.CreatedAt); err != nil {
		return fmt.Errorf("create persona: %w", err)
	}
	return nil
}

// DeleteWithSessions removes a persona and every chat session referencing it
// in one transaction, so a half-applied cascade never leaves the persona
// behind.
func (r *PersonaRepository) DeleteWithSessions(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete persona: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM chat_sessions WHERE persona_id = $1`, id); err != nil {
		return fmt.Errorf("delete persona sessions: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM personas WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete persona: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete persona: %w", err)
	}
	return nil
}
