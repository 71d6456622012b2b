package members

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/voltboard/voltboard/internal/authz"
	"github.com/voltboard/voltboard/internal/roles"
	"github.com/voltboard/voltboard/internal/shared"
	"github.com/voltboard/voltboard/internal/users"
)

// RepositoryPort defines data access methods for memberships.
type RepositoryPort interface {
	Get(ctx context.Context, userID, orgID string) (*Membership, error)
	List(ctx context.Context, orgID string, filters shared.ListFilters) ([]Member, int, error)
	Create(ctx context.Context, m Membership) error
	Update(ctx context.Context, m Membership) error
	Delete(ctx context.Context, userID, orgID string) error
}

// UsersPort provides the lazy user creation invites rely on.
type UsersPort interface {
	UpsertByEmail(ctx context.Context, email, name string) (users.User, error)
}

// RolesPort validates that a referenced role belongs to the org.
type RolesPort interface {
	Get(ctx context.Context, orgID, id string) (roles.Role, error)
}

// Service is the membership lifecycle manager. Every mutation takes
// the acting membership explicitly and re-checks the escalation guard
// before touching owner state.
//
// Interface contract with the transport layer: the base permission for
// each operation (MEMBER:ADD, MEMBER:CHANGE-ROLE, MEMBER:REMOVE,
// MEMBER:READ) has already been checked through the guard before the
// call reaches this service. The escalation guard is NOT delegated to
// the caller; it is enforced here.
type Service struct {
	repo   RepositoryPort
	users  UsersPort
	roles  RolesPort
	guard  *authz.Guard
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, users UsersPort, roles RolesPort, guard *authz.Guard, logger *slog.Logger) *Service {
	return &Service{repo: repo, users: users, roles: roles, guard: guard, logger: logger}
}

// List returns the org's members matching the filters.
func (s *Service) List(ctx context.Context, orgID string, filters shared.ListFilters) ([]Member, int, error) {
	return s.repo.List(ctx, orgID, filters)
}

// Get returns the membership for the given user, or nil when absent.
func (s *Service) Get(ctx context.Context, userID, orgID string) (*Membership, error) {
	return s.repo.Get(ctx, userID, orgID)
}

// Invite adds a user to the org, creating the user record on first
// contact. Inviting an existing member is a no-op, reported by a nil
// member with a nil error. Inviting an owner requires the actor to be
// an owner; a custom target role must belong to the org.
func (s *Service) Invite(ctx context.Context, actor authz.Actor, orgID, email, name string, target authz.RoleRef) (*Member, error) {
	email = users.NormalizeEmail(email)
	if name == "" {
		name = users.DefaultNameFromEmail(email)
	}

	user, err := s.users.UpsertByEmail(ctx, email, name)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.Get(ctx, user.ID, orgID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		// Already a member, don't invite again.
		return nil, nil
	}

	if err := s.validateTarget(ctx, actor, orgID, target); err != nil {
		return nil, err
	}

	m := Membership{UserID: user.ID, OrgID: orgID, Role: target, CreatedAt: time.Now()}
	if err := s.repo.Create(ctx, m); err != nil {
		if errors.Is(err, shared.ErrConflict) {
			// Lost the race against a concurrent invite; the outcome
			// converges to "already a member".
			return nil, nil
		}
		return nil, err
	}
	return &Member{Membership: m, User: user}, nil
}

// ChangeRole replaces the target member's role assignment. Transitions
// to or from owner require the actor to be an owner. Concurrent
// changes are last-writer-wins.
func (s *Service) ChangeRole(ctx context.Context, actor authz.Actor, orgID, targetUserID string, newRole authz.RoleRef) error {
	current, err := s.repo.Get(ctx, targetUserID, orgID)
	if err != nil {
		return err
	}
	if current == nil {
		return shared.ErrNotFound
	}

	if current.Role.IsOwner() && !s.guard.CanActOnOwner(actor) {
		return fmt.Errorf("%w: must be an owner to change an owner's role", shared.ErrForbidden)
	}
	if err := s.validateTarget(ctx, actor, orgID, newRole); err != nil {
		return err
	}

	return s.repo.Update(ctx, Membership{
		UserID:    current.UserID,
		OrgID:     current.OrgID,
		Role:      newRole,
		CreatedAt: current.CreatedAt,
	})
}

// Remove deletes the target membership. Removing a missing member is a
// no-op; removing an owner requires the actor to be an owner.
func (s *Service) Remove(ctx context.Context, actor authz.Actor, orgID, targetUserID string) error {
	current, err := s.repo.Get(ctx, targetUserID, orgID)
	if err != nil {
		return err
	}
	if current == nil {
		// Assume already removed.
		return nil
	}

	if current.Role.IsOwner() && !s.guard.CanActOnOwner(actor) {
		return fmt.Errorf("%w: must be an owner to remove another owner", shared.ErrForbidden)
	}

	return s.repo.Delete(ctx, targetUserID, orgID)
}

// validateTarget applies the escalation guard to owner targets and
// checks that a custom target role belongs to the org. A role in a
// different org is reported as absent, never as foreign.
func (s *Service) validateTarget(ctx context.Context, actor authz.Actor, orgID string, target authz.RoleRef) error {
	if target.IsOwner() {
		if !s.guard.CanActOnOwner(actor) {
			return fmt.Errorf("%w: must be an owner to grant owner status", shared.ErrForbidden)
		}
		return nil
	}
	roleID, ok := target.RoleID()
	if !ok {
		return fmt.Errorf("%w: role required", shared.ErrInvalid)
	}
	if _, err := s.roles.Get(ctx, orgID, roleID); err != nil {
		return err
	}
	return nil
}
