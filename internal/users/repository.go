package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voltboard/voltboard/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID returns the user with the given id.
func (r *Repository) GetByID(ctx context.Context, id string) (User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, name, created_at, updated_at FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail returns the user with the given email. The lookup is
// case-insensitive because the stored form is always lowercase.
func (r *Repository) GetByEmail(ctx context.Context, email string) (User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, name, created_at, updated_at FROM users WHERE email = $1`,
		NormalizeEmail(email))
	return scanUser(row)
}

// UpsertByEmail returns the existing user for email or creates one with
// the given name. An existing record is never modified; invites do not
// rename users. The insert races safely through the unique email index.
func (r *Repository) UpsertByEmail(ctx context.Context, email, name string) (User, error) {
	now := time.Now()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (email) DO UPDATE SET email = users.email
		RETURNING id, email, name, created_at, updated_at`,
		uuid.NewString(), NormalizeEmail(email), name,
		pgtype.Timestamptz{Time: now, Valid: true})
	return scanUser(row)
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	var createdAt, updatedAt pgtype.Timestamptz
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	if createdAt.Valid {
		u.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		u.UpdatedAt = updatedAt.Time
	}
	return u, nil
}
