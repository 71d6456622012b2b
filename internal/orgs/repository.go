package orgs

import (
	"context"
	"errors"
	"strings"
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

// GetByID returns the org with the given id.
func (r *Repository) GetByID(ctx context.Context, id string) (Org, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, domain, created_at, updated_at FROM orgs WHERE id = $1`, id)
	return scanOrg(row)
}

// GetByDomain returns the org serving the given domain. The dashboard
// resolves the tenant from the request host through this lookup.
func (r *Repository) GetByDomain(ctx context.Context, domain string) (Org, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, domain, created_at, updated_at FROM orgs WHERE domain = $1`,
		strings.ToLower(strings.TrimSpace(domain)))
	return scanOrg(row)
}

// Create inserts a new org.
func (r *Repository) Create(ctx context.Context, name, domain string) (Org, error) {
	now := time.Now()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO orgs (id, name, domain, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id, name, domain, created_at, updated_at`,
		uuid.NewString(), name, strings.ToLower(strings.TrimSpace(domain)),
		pgtype.Timestamptz{Time: now, Valid: true})
	return scanOrg(row)
}

// Update renames the org. Returns shared.ErrNotFound when absent.
func (r *Repository) Update(ctx context.Context, id, name string) (Org, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE orgs SET name = $2, updated_at = $3 WHERE id = $1
		RETURNING id, name, domain, created_at, updated_at`,
		id, name, pgtype.Timestamptz{Time: time.Now(), Valid: true})
	return scanOrg(row)
}

func scanOrg(row pgx.Row) (Org, error) {
	var o Org
	var createdAt, updatedAt pgtype.Timestamptz
	if err := row.Scan(&o.ID, &o.Name, &o.Domain, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Org{}, shared.ErrNotFound
		}
		return Org{}, err
	}
	if createdAt.Valid {
		o.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		o.UpdatedAt = updatedAt.Time
	}
	return o, nil
}
