package roles

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/voltboard/voltboard/internal/authz"
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

// List returns the org's roles ordered by name, with the total count
// independent of the page window. The page and the count are fetched
// concurrently.
func (r *Repository) List(ctx context.Context, orgID string, filters shared.ListFilters) ([]Role, int, error) {
	query := `SELECT id, org_id, name, permissions, created_at, updated_at FROM roles WHERE org_id = $1`
	countQuery := `SELECT COUNT(*) FROM roles WHERE org_id = $1`
	args := []any{orgID}
	countArgs := []any{orgID}
	argCount := 1

	if filters.Search != "" {
		argCount++
		query += ` AND name ILIKE $` + strconv.Itoa(argCount)
		countQuery += ` AND name ILIKE $2`
		args = append(args, "%"+filters.Search+"%")
		countArgs = append(countArgs, "%"+filters.Search+"%")
	}

	query += ` ORDER BY name ASC`
	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		args = append(args, filters.Offset())
	}

	var (
		roles []Role
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := r.pool.Query(gctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			role, err := scanRoleRows(rows)
			if err != nil {
				return err
			}
			roles = append(roles, role)
		}
		return rows.Err()
	})
	g.Go(func() error {
		return r.pool.QueryRow(gctx, countQuery, countArgs...).Scan(&total)
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return roles, total, nil
}

// Get returns the role with the given id scoped to orgID. A role
// belonging to a different org is reported as absent.
func (r *Repository) Get(ctx context.Context, orgID, id string) (Role, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, org_id, name, permissions, created_at, updated_at FROM roles WHERE id = $1 AND org_id = $2`,
		id, orgID)
	return scanRole(row)
}

// Create inserts a new role.
func (r *Repository) Create(ctx context.Context, orgID, name string, perms []authz.Permission) (Role, error) {
	now := time.Now()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO roles (id, org_id, name, permissions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id, org_id, name, permissions, created_at, updated_at`,
		uuid.NewString(), orgID, name, permissionStrings(perms),
		pgtype.Timestamptz{Time: now, Valid: true})
	return scanRole(row)
}

// Update applies the partial update to the role scoped to orgID.
func (r *Repository) Update(ctx context.Context, orgID, id string, params UpdateParams) (Role, error) {
	query := `UPDATE roles SET updated_at = $3`
	args := []any{id, orgID, pgtype.Timestamptz{Time: time.Now(), Valid: true}}
	argCount := 3

	if params.Name != nil {
		argCount++
		query += `, name = $` + strconv.Itoa(argCount)
		args = append(args, *params.Name)
	}
	if params.Permissions != nil {
		argCount++
		query += `, permissions = $` + strconv.Itoa(argCount)
		args = append(args, permissionStrings(params.Permissions))
	}
	query += ` WHERE id = $1 AND org_id = $2 RETURNING id, org_id, name, permissions, created_at, updated_at`

	return scanRole(r.pool.QueryRow(ctx, query, args...))
}

// Delete removes the role scoped to orgID. Memberships referencing it
// are left untouched; their reference dangles and evaluates to the
// empty permission set.
func (r *Repository) Delete(ctx context.Context, orgID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1 AND org_id = $2`, id, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountOrphanedMemberships counts memberships whose role reference no
// longer resolves. Used by the background orphan scan.
func (r *Repository) CountOrphanedMemberships(ctx context.Context, orgID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM memberships m
		WHERE m.org_id = $1 AND m.role_type = 'custom'
		  AND m.role_id IS NOT NULL
		  AND NOT EXISTS (SELECT 1 FROM roles r WHERE r.id = m.role_id)`,
		orgID).Scan(&count)
	return count, err
}

func permissionStrings(perms []authz.Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}

func permissionsFromStrings(raw []string) []authz.Permission {
	out := make([]authz.Permission, len(raw))
	for i, s := range raw {
		out[i] = authz.Permission(s)
	}
	return out
}

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	var raw []string
	var createdAt, updatedAt pgtype.Timestamptz
	if err := row.Scan(&role.ID, &role.OrgID, &role.Name, &raw, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, err
	}
	role.Permissions = permissionsFromStrings(raw)
	if createdAt.Valid {
		role.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		role.UpdatedAt = updatedAt.Time
	}
	return role, nil
}

func scanRoleRows(rows pgx.Rows) (Role, error) {
	var role Role
	var raw []string
	var createdAt, updatedAt pgtype.Timestamptz
	if err := rows.Scan(&role.ID, &role.OrgID, &role.Name, &raw, &createdAt, &updatedAt); err != nil {
		return Role{}, err
	}
	role.Permissions = permissionsFromStrings(raw)
	if createdAt.Valid {
		role.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		role.UpdatedAt = updatedAt.Time
	}
	return role, nil
}
