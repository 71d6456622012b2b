package roles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltboard/voltboard/internal/authz"
	"github.com/voltboard/voltboard/internal/shared"
)

type mockRepository struct {
	roles  map[string]*Role
	nextID int
}

func newMockRepository() *mockRepository {
	return &mockRepository{roles: make(map[string]*Role), nextID: 1}
}

func (m *mockRepository) List(ctx context.Context, orgID string, filters shared.ListFilters) ([]Role, int, error) {
	var out []Role
	for _, r := range m.roles {
		if r.OrgID != orgID {
			continue
		}
		if filters.Search != "" && !strings.Contains(strings.ToLower(r.Name), strings.ToLower(filters.Search)) {
			continue
		}
		out = append(out, *r)
	}
	return out, len(out), nil
}

func (m *mockRepository) Get(ctx context.Context, orgID, id string) (Role, error) {
	r, ok := m.roles[id]
	if !ok || r.OrgID != orgID {
		return Role{}, shared.ErrNotFound
	}
	return *r, nil
}

func (m *mockRepository) Create(ctx context.Context, orgID, name string, perms []authz.Permission) (Role, error) {
	role := Role{
		ID:          fmt.Sprintf("role-%d", m.nextID),
		OrgID:       orgID,
		Name:        name,
		Permissions: perms,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.nextID++
	m.roles[role.ID] = &role
	return role, nil
}

func (m *mockRepository) Update(ctx context.Context, orgID, id string, params UpdateParams) (Role, error) {
	r, ok := m.roles[id]
	if !ok || r.OrgID != orgID {
		return Role{}, shared.ErrNotFound
	}
	if params.Name != nil {
		r.Name = *params.Name
	}
	if params.Permissions != nil {
		r.Permissions = params.Permissions
	}
	r.UpdatedAt = time.Now()
	return *r, nil
}

func (m *mockRepository) Delete(ctx context.Context, orgID, id string) error {
	r, ok := m.roles[id]
	if !ok || r.OrgID != orgID {
		return shared.ErrNotFound
	}
	delete(m.roles, id)
	return nil
}

type mockEnqueuer struct {
	orgs []string
	err  error
}

func (m *mockEnqueuer) EnqueueOrphanScan(ctx context.Context, orgID string) error {
	if m.err != nil {
		return m.err
	}
	m.orgs = append(m.orgs, orgID)
	return nil
}

func newTestService(repo *mockRepository, tasks *mockEnqueuer) *Service {
	return NewService(repo, tasks, slog.Default())
}

func TestCreateRole(t *testing.T) {
	svc := newTestService(newMockRepository(), nil)

	role, err := svc.Create(context.Background(), "org1", "Editor", []authz.Permission{authz.PermRoleRead, authz.PermMemberRead})
	require.NoError(t, err)
	assert.Equal(t, "Editor", role.Name)
	assert.Equal(t, "org1", role.OrgID)
	assert.Equal(t, []authz.Permission{authz.PermMemberRead, authz.PermRoleRead}, role.Permissions)
}

func TestCreateRoleDeduplicatesPermissions(t *testing.T) {
	svc := newTestService(newMockRepository(), nil)

	role, err := svc.Create(context.Background(), "org1", "Viewer", []authz.Permission{
		authz.PermMemberRead, authz.PermMemberRead, authz.PermMemberRead,
	})
	require.NoError(t, err)
	assert.Equal(t, []authz.Permission{authz.PermMemberRead}, role.Permissions)
}

func TestCreateRoleUnknownPermission(t *testing.T) {
	svc := newTestService(newMockRepository(), nil)

	_, err := svc.Create(context.Background(), "org1", "Hacker", []authz.Permission{"MEMBER:DESTROY"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInvalid))
}

func TestCreateRoleEmptyName(t *testing.T) {
	svc := newTestService(newMockRepository(), nil)

	_, err := svc.Create(context.Background(), "org1", "   ", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInvalid))
}

func TestCreateRoleEmptyPermissionSetAllowed(t *testing.T) {
	svc := newTestService(newMockRepository(), nil)

	role, err := svc.Create(context.Background(), "org1", "Ghost", nil)
	require.NoError(t, err)
	assert.Empty(t, role.Permissions)
}

func TestUpdateRole(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, nil)
	created, err := svc.Create(context.Background(), "org1", "Editor", []authz.Permission{authz.PermRoleRead})
	require.NoError(t, err)

	name := "Senior Editor"
	updated, err := svc.Update(context.Background(), "org1", created.ID, UpdateParams{
		Name:        &name,
		Permissions: []authz.Permission{authz.PermRoleRead, authz.PermRoleWrite},
	})
	require.NoError(t, err)
	assert.Equal(t, "Senior Editor", updated.Name)
	assert.Equal(t, []authz.Permission{authz.PermRoleRead, authz.PermRoleWrite}, updated.Permissions)
}

func TestUpdateRoleCrossOrgNotFound(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, nil)
	created, err := svc.Create(context.Background(), "org1", "Editor", nil)
	require.NoError(t, err)

	name := "Stolen"
	_, err = svc.Update(context.Background(), "org2", created.ID, UpdateParams{Name: &name})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestDeleteRoleEnqueuesOrphanScan(t *testing.T) {
	repo := newMockRepository()
	tasks := &mockEnqueuer{}
	svc := newTestService(repo, tasks)
	created, err := svc.Create(context.Background(), "org1", "Editor", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "org1", created.ID))
	assert.Equal(t, []string{"org1"}, tasks.orgs)
}

func TestDeleteRoleEnqueueFailureIsNotFatal(t *testing.T) {
	repo := newMockRepository()
	tasks := &mockEnqueuer{err: errors.New("redis down")}
	svc := newTestService(repo, tasks)
	created, err := svc.Create(context.Background(), "org1", "Editor", nil)
	require.NoError(t, err)

	// The delete itself must succeed even when the scan can't be queued.
	require.NoError(t, svc.Delete(context.Background(), "org1", created.ID))
}

func TestDeleteRoleMissing(t *testing.T) {
	svc := newTestService(newMockRepository(), nil)

	err := svc.Delete(context.Background(), "org1", "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestRolePermissionsResolvesSet(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, nil)
	created, err := svc.Create(context.Background(), "org1", "Editor", []authz.Permission{authz.PermRoleRead, authz.PermRoleWrite})
	require.NoError(t, err)

	set, err := svc.RolePermissions(context.Background(), "org1", created.ID)
	require.NoError(t, err)
	assert.True(t, set.Has(authz.PermRoleRead))
	assert.True(t, set.Has(authz.PermRoleWrite))
	assert.False(t, set.Has(authz.PermRoleDelete))
}

func TestRolePermissionsCrossOrg(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, nil)
	created, err := svc.Create(context.Background(), "org1", "Editor", []authz.Permission{authz.PermRoleRead})
	require.NoError(t, err)

	_, err = svc.RolePermissions(context.Background(), "org2", created.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}
