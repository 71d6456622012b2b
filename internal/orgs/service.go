package orgs

import (
	"context"
	"fmt"
	"strings"

	"github.com/voltboard/voltboard/internal/shared"
)

// RepositoryPort defines data access methods for orgs.
type RepositoryPort interface {
	GetByID(ctx context.Context, id string) (Org, error)
	GetByDomain(ctx context.Context, domain string) (Org, error)
	Create(ctx context.Context, name, domain string) (Org, error)
	Update(ctx context.Context, id, name string) (Org, error)
}

// Service handles org business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Get returns the org with the given id.
func (s *Service) Get(ctx context.Context, id string) (Org, error) {
	return s.repo.GetByID(ctx, id)
}

// Resolve returns the org serving the given domain.
func (s *Service) Resolve(ctx context.Context, domain string) (Org, error) {
	if strings.TrimSpace(domain) == "" {
		return Org{}, shared.ErrNotFound
	}
	return s.repo.GetByDomain(ctx, domain)
}

// Rename updates the org's display name.
func (s *Service) Rename(ctx context.Context, id, name string) (Org, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Org{}, fmt.Errorf("%w: org name required", shared.ErrInvalid)
	}
	return s.repo.Update(ctx, id, name)
}
