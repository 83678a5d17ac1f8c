package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/personahub/persona-backend/internal/types"
)

// pgUniqueViolation is the Postgres error code for unique constraint violations.
const pgUniqueViolation = "23505"

// UserRepository handles database operations for users.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, name, email, password_hash, role, subscription_tier, personas_created, monthly_message_count, created_at, updated_at`

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.SubscriptionTier,
		&u.PersonasCreated, &u.MonthlyMessageCount, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// Create inserts a new user with default role, tier and zeroed counters.
func (r *UserRepository) Create(ctx context.Context, name, email, passwordHash string) (*types.User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING `+userColumns,
		name, email, passwordHash)

	u, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, fmt.Errorf("%w: user with this email", types.ErrConflict)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// GetByID returns a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*types.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail returns a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*types.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// IncrementMessageCount atomically bumps the user's monthly message counter.
func (r *UserRepository) IncrementMessageCount(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET monthly_message_count = monthly_message_count + 1, updated_at = now()
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment message count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

// IncrementPersonasCreated atomically bumps the user's persona counter.
func (r *UserRepository) IncrementPersonasCreated(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET personas_created = personas_created + 1, updated_at = now()
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment personas created: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

// DecrementPersonasCreatedIfFree lowers the persona counter for free-tier
// creators, floored at zero. Premium creators keep their count.
func (r *UserRepository) DecrementPersonasCreatedIfFree(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users
		SET personas_created = GREATEST(personas_created - 1, 0), updated_at = now()
		WHERE id = $1 AND subscription_tier = $2`, id, types.TierFree)
	if err != nil {
		return fmt.Errorf("decrement personas created: %w", err)
	}
	return nil
}

// SetTier updates the user's subscription tier. Idempotent.
func (r *UserRepository) SetTier(ctx context.Context, id uuid.UUID, tier types.Tier) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET subscription_tier = $2, updated_at = now() WHERE id = $1`, id, tier)
	if err != nil {
		return fmt.Errorf("set tier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

// SetRole updates the user's role.
func (r *UserRepository) SetRole(ctx context.Context, id uuid.UUID, role types.Role) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET role = $2, updated_at = now() WHERE id = $1`, id, role)
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

// ResetAllMessageCounts zeroes every user's monthly message counter. Invoked
// at billing-period boundaries.
func (r *UserRepository) ResetAllMessageCounts(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET monthly_message_count = 0, updated_at = now()
		WHERE monthly_message_count > 0`)
	if err != nil {
		return 0, fmt.Errorf("reset message counts: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountUsers returns the total number of users.
func (r *UserRepository) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// CountPremiumUsers returns the number of premium-tier users.
func (r *UserRepository) CountPremiumUsers(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE subscription_tier = $1`, types.TierPremium).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count premium users: %w", err)
	}
	return n, nil
}
