package roles

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/voltboard/voltboard/internal/authz"
	"github.com/voltboard/voltboard/internal/shared"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	List(ctx context.Context, orgID string, filters shared.ListFilters) ([]Role, int, error)
	Get(ctx context.Context, orgID, id string) (Role, error)
	Create(ctx context.Context, orgID, name string, perms []authz.Permission) (Role, error)
	Update(ctx context.Context, orgID, id string, params UpdateParams) (Role, error)
	Delete(ctx context.Context, orgID, id string) error
}

// Enqueuer submits background work after role mutations.
type Enqueuer interface {
	EnqueueOrphanScan(ctx context.Context, orgID string) error
}

// Service wraps role business rules. It also acts as the guard's role
// resolver.
type Service struct {
	repo   RepositoryPort
	tasks  Enqueuer
	logger *slog.Logger
}

// NewService constructs a Service. tasks may be nil.
func NewService(repo RepositoryPort, tasks Enqueuer, logger *slog.Logger) *Service {
	return &Service{repo: repo, tasks: tasks, logger: logger}
}

// List returns the org's roles matching the filters.
func (s *Service) List(ctx context.Context, orgID string, filters shared.ListFilters) ([]Role, int, error) {
	return s.repo.List(ctx, orgID, filters)
}

// Get returns a single role scoped to the org.
func (s *Service) Get(ctx context.Context, orgID, id string) (Role, error) {
	return s.repo.Get(ctx, orgID, id)
}

// Create inserts a new role after validating its permission set
// against the catalog.
func (s *Service) Create(ctx context.Context, orgID, name string, perms []authz.Permission) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", shared.ErrInvalid)
	}
	if err := validatePermissions(perms); err != nil {
		return Role{}, err
	}
	return s.repo.Create(ctx, orgID, name, dedupe(perms))
}

// Update applies a partial update. Returns shared.ErrNotFound when the
// role does not exist in the org.
func (s *Service) Update(ctx context.Context, orgID, id string, params UpdateParams) (Role, error) {
	if params.Name != nil {
		trimmed := strings.TrimSpace(*params.Name)
		if trimmed == "" {
			return Role{}, fmt.Errorf("%w: role name required", shared.ErrInvalid)
		}
		params.Name = &trimmed
	}
	if params.Permissions != nil {
		if err := validatePermissions(params.Permissions); err != nil {
			return Role{}, err
		}
		params.Permissions = dedupe(params.Permissions)
	}
	return s.repo.Update(ctx, orgID, id, params)
}

// Delete removes the role. Referencing memberships are left in place
// as role-less members; a background scan reports how many were
// orphaned.
func (s *Service) Delete(ctx context.Context, orgID, id string) error {
	if err := s.repo.Delete(ctx, orgID, id); err != nil {
		return err
	}
	if s.tasks != nil {
		if err := s.tasks.EnqueueOrphanScan(ctx, orgID); err != nil && s.logger != nil {
			s.logger.Warn("enqueue orphan scan", slog.Any("error", err))
		}
	}
	return nil
}

// RolePermissions resolves a role's permission set for the guard.
// Roles outside orgID are reported as absent.
func (s *Service) RolePermissions(ctx context.Context, orgID, roleID string) (authz.Set, error) {
	role, err := s.repo.Get(ctx, orgID, roleID)
	if err != nil {
		return nil, err
	}
	return authz.NewSet(role.Permissions...), nil
}

func validatePermissions(perms []authz.Permission) error {
	for _, p := range perms {
		if !authz.Valid(p) {
			return fmt.Errorf("%w: unknown permission %q", shared.ErrInvalid, string(p))
		}
	}
	return nil
}

func dedupe(perms []authz.Permission) []authz.Permission {
	return authz.NewSet(perms...).Slice()
}
