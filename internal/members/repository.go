package members

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/voltboard/voltboard/internal/authz"
	"github.com/voltboard/voltboard/internal/roles"
	"github.com/voltboard/voltboard/internal/shared"
)

const uniqueViolation = "23505"

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns the membership for the given user and org, or nil when
// absent. It returns an error only for database failures.
func (r *Repository) Get(ctx context.Context, userID, orgID string) (*Membership, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT user_id, org_id, role_type, role_id, created_at
		FROM memberships WHERE user_id = $1 AND org_id = $2`,
		userID, orgID)
	m, err := scanMembership(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// List returns the org's members joined with user and role, ordered by
// the user's display name. Search matches name or email
// case-insensitively. The page and the count are fetched concurrently.
func (r *Repository) List(ctx context.Context, orgID string, filters shared.ListFilters) ([]Member, int, error) {
	query := `
		SELECT m.user_id, m.org_id, m.role_type, m.role_id, m.created_at,
		       u.email, u.name,
		       r.id, r.name, r.permissions
		FROM memberships m
		JOIN users u ON u.id = m.user_id
		LEFT JOIN roles r ON r.id = m.role_id
		WHERE m.org_id = $1`
	countQuery := `
		SELECT COUNT(*) FROM memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.org_id = $1`
	args := []any{orgID}
	countArgs := []any{orgID}
	argCount := 1

	if filters.Search != "" {
		argCount++
		clause := ` AND (u.name ILIKE $` + strconv.Itoa(argCount) + ` OR u.email ILIKE $` + strconv.Itoa(argCount) + `)`
		query += clause
		countQuery += ` AND (u.name ILIKE $2 OR u.email ILIKE $2)`
		args = append(args, "%"+filters.Search+"%")
		countArgs = append(countArgs, "%"+filters.Search+"%")
	}

	query += ` ORDER BY u.name ASC`
	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		args = append(args, filters.Offset())
	}

	var (
		members []Member
		total   int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := r.pool.Query(gctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			member, err := scanMember(rows)
			if err != nil {
				return err
			}
			members = append(members, member)
		}
		return rows.Err()
	})
	g.Go(func() error {
		return r.pool.QueryRow(gctx, countQuery, countArgs...).Scan(&total)
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return members, total, nil
}

// Create persists the membership. A unique-violation on the
// (user_id, org_id) pair is surfaced as shared.ErrConflict; the
// lifecycle layer converges it to the idempotent no-op outcome.
func (r *Repository) Create(ctx context.Context, m Membership) error {
	roleID, _ := m.Role.RoleID()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO memberships (user_id, org_id, role_type, role_id, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)`,
		m.UserID, m.OrgID, string(m.Role.Type()), roleID,
		pgtype.Timestamptz{Time: m.CreatedAt, Valid: true})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return shared.ErrConflict
		}
		return err
	}
	return nil
}

// Update replaces the membership's role assignment.
func (r *Repository) Update(ctx context.Context, m Membership) error {
	roleID, _ := m.Role.RoleID()
	tag, err := r.pool.Exec(ctx, `
		UPDATE memberships SET role_type = $3, role_id = NULLIF($4, '')
		WHERE user_id = $1 AND org_id = $2`,
		m.UserID, m.OrgID, string(m.Role.Type()), roleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes the membership. Deleting an absent membership is not
// an error.
func (r *Repository) Delete(ctx context.Context, userID, orgID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM memberships WHERE user_id = $1 AND org_id = $2`, userID, orgID)
	return err
}

func scanMembership(row pgx.Row) (Membership, error) {
	var m Membership
	var roleType string
	var roleID pgtype.Text
	var createdAt pgtype.Timestamptz
	if err := row.Scan(&m.UserID, &m.OrgID, &roleType, &roleID, &createdAt); err != nil {
		return Membership{}, err
	}
	m.Role = roleRef(roleType, roleID)
	if createdAt.Valid {
		m.CreatedAt = createdAt.Time
	}
	return m, nil
}

func scanMember(rows pgx.Rows) (Member, error) {
	var member Member
	var roleType string
	var roleID pgtype.Text
	var createdAt pgtype.Timestamptz
	var joinedRoleID, joinedRoleName pgtype.Text
	var joinedPerms []string
	if err := rows.Scan(
		&member.UserID, &member.OrgID, &roleType, &roleID, &createdAt,
		&member.User.Email, &member.User.Name,
		&joinedRoleID, &joinedRoleName, &joinedPerms,
	); err != nil {
		return Member{}, err
	}
	member.User.ID = member.UserID
	member.Role = nil
	member.Membership.Role = roleRef(roleType, roleID)
	if createdAt.Valid {
		member.CreatedAt = createdAt.Time
	}
	if joinedRoleID.Valid {
		perms := make([]authz.Permission, len(joinedPerms))
		for i, p := range joinedPerms {
			perms[i] = authz.Permission(p)
		}
		member.Role = &roles.Role{
			ID:          joinedRoleID.String,
			OrgID:       member.OrgID,
			Name:        joinedRoleName.String,
			Permissions: perms,
		}
	}
	return member, nil
}

func roleRef(roleType string, roleID pgtype.Text) authz.RoleRef {
	if authz.RoleType(roleType) == authz.RoleTypeOwner {
		return authz.OwnerRef()
	}
	return authz.CustomRef(roleID.String)
}
