package members

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltboard/voltboard/internal/authz"
	"github.com/voltboard/voltboard/internal/roles"
	"github.com/voltboard/voltboard/internal/shared"
	"github.com/voltboard/voltboard/internal/users"
)

type mockMemberRepo struct {
	memberships map[string]*Membership
	createErr   error
}

func newMockMemberRepo() *mockMemberRepo {
	return &mockMemberRepo{memberships: make(map[string]*Membership)}
}

func membershipKey(userID, orgID string) string {
	return userID + "/" + orgID
}

func (m *mockMemberRepo) Get(ctx context.Context, userID, orgID string) (*Membership, error) {
	ms, ok := m.memberships[membershipKey(userID, orgID)]
	if !ok {
		return nil, nil
	}
	copied := *ms
	return &copied, nil
}

func (m *mockMemberRepo) List(ctx context.Context, orgID string, filters shared.ListFilters) ([]Member, int, error) {
	var out []Member
	for _, ms := range m.memberships {
		if ms.OrgID == orgID {
			out = append(out, Member{Membership: *ms})
		}
	}
	return out, len(out), nil
}

func (m *mockMemberRepo) Create(ctx context.Context, ms Membership) error {
	if m.createErr != nil {
		return m.createErr
	}
	key := membershipKey(ms.UserID, ms.OrgID)
	if _, exists := m.memberships[key]; exists {
		return shared.ErrConflict
	}
	m.memberships[key] = &ms
	return nil
}

func (m *mockMemberRepo) Update(ctx context.Context, ms Membership) error {
	key := membershipKey(ms.UserID, ms.OrgID)
	if _, exists := m.memberships[key]; !exists {
		return shared.ErrNotFound
	}
	m.memberships[key] = &ms
	return nil
}

func (m *mockMemberRepo) Delete(ctx context.Context, userID, orgID string) error {
	delete(m.memberships, membershipKey(userID, orgID))
	return nil
}

type mockUsers struct {
	byEmail map[string]users.User
	nextID  int
}

func newMockUsers() *mockUsers {
	return &mockUsers{byEmail: make(map[string]users.User), nextID: 1}
}

func (m *mockUsers) UpsertByEmail(ctx context.Context, email, name string) (users.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	u := users.User{
		ID:        fmt.Sprintf("user-%d", m.nextID),
		Email:     email,
		Name:      name,
		CreatedAt: time.Now(),
	}
	m.nextID++
	m.byEmail[email] = u
	return u, nil
}

type mockRoles struct {
	roles map[string]roles.Role
}

func newMockRoles() *mockRoles {
	return &mockRoles{roles: make(map[string]roles.Role)}
}

func (m *mockRoles) add(orgID, id string) {
	m.roles[id] = roles.Role{ID: id, OrgID: orgID, Name: id}
}

func (m *mockRoles) Get(ctx context.Context, orgID, id string) (roles.Role, error) {
	r, ok := m.roles[id]
	if !ok || r.OrgID != orgID {
		return roles.Role{}, shared.ErrNotFound
	}
	return r, nil
}

type memberFixture struct {
	svc   *Service
	repo  *mockMemberRepo
	users *mockUsers
	roles *mockRoles
}

func newMemberFixture() *memberFixture {
	repo := newMockMemberRepo()
	userStore := newMockUsers()
	roleStore := newMockRoles()
	guard := authz.NewGuard(nil, nil)
	svc := NewService(repo, userStore, roleStore, guard, slog.Default())
	return &memberFixture{svc: svc, repo: repo, users: userStore, roles: roleStore}
}

func ownerActor() authz.Actor {
	return authz.Actor{UserID: "acting-owner", OrgID: "org1", Role: authz.OwnerRef()}
}

func adminActor() authz.Actor {
	return authz.Actor{UserID: "acting-admin", OrgID: "org1", Role: authz.CustomRef("admin")}
}

func TestInviteNewUser(t *testing.T) {
	fx := newMemberFixture()
	fx.roles.add("org1", "editor")

	member, err := fx.svc.Invite(context.Background(), adminActor(), "org1", "jane.doe@example.com", "", authz.CustomRef("editor"))
	require.NoError(t, err)
	require.NotNil(t, member)

	assert.Equal(t, "jane.doe@example.com", member.User.Email)
	assert.Equal(t, "Jane Doe", member.User.Name)
	roleID, ok := member.Membership.Role.RoleID()
	require.True(t, ok)
	assert.Equal(t, "editor", roleID)
}

func TestInviteNormalizesEmail(t *testing.T) {
	fx := newMemberFixture()
	fx.roles.add("org1", "editor")

	member, err := fx.svc.Invite(context.Background(), adminActor(), "org1", "  Jane.Doe@Example.COM ", "Jane", authz.CustomRef("editor"))
	require.NoError(t, err)
	require.NotNil(t, member)
	assert.Equal(t, "jane.doe@example.com", member.User.Email)
	assert.Equal(t, "Jane", member.User.Name)
}

func TestInviteExistingUserKeepsName(t *testing.T) {
	fx := newMemberFixture()
	fx.roles.add("org1", "editor")

	_, err := fx.users.UpsertByEmail(context.Background(), "jane@example.com", "Original Jane")
	require.NoError(t, err)

	member, err := fx.svc.Invite(context.Background(), adminActor(), "org1", "jane@example.com", "Renamed Jane", authz.CustomRef("editor"))
	require.NoError(t, err)
	require.NotNil(t, member)
	assert.Equal(t, "Original Jane", member.User.Name)
}

func TestInviteExistingMemberIsNoOp(t *testing.T) {
	fx := newMemberFixture()
	fx.roles.add("org1", "editor")
	fx.roles.add("org1", "viewer")

	first, err := fx.svc.Invite(context.Background(), adminActor(), "org1", "jane@example.com", "", authz.CustomRef("editor"))
	require.NoError(t, err)
	require.NotNil(t, first)

	// The second invite reports no member and leaves the role untouched.
	second, err := fx.svc.Invite(context.Background(), adminActor(), "org1", "jane@example.com", "", authz.CustomRef("viewer"))
	require.NoError(t, err)
	assert.Nil(t, second)

	current, err := fx.repo.Get(context.Background(), first.UserID, "org1")
	require.NoError(t, err)
	require.NotNil(t, current)
	roleID, _ := current.Role.RoleID()
	assert.Equal(t, "editor", roleID)
}

func TestInviteSameUserIntoSecondOrg(t *testing.T) {
	fx := newMemberFixture()
	fx.roles.add("org1", "editor")
	fx.roles.add("org2", "editor2")

	first, err := fx.svc.Invite(context.Background(), adminActor(), "org1", "jane@example.com", "", authz.CustomRef("editor"))
	require.NoError(t, err)
	require.NotNil(t, first)

	actor2 := authz.Actor{UserID: "acting-2", OrgID: "org2", Role: authz.OwnerRef()}
	second, err := fx.svc.Invite(context.Background(), actor2, "org2", "jane@example.com", "", authz.CustomRef("editor2"))
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, first.UserID, second.UserID)
}

func TestInviteOwnerRequiresOwner(t *testing.T) {
	fx := newMemberFixture()

	_, err := fx.svc.Invite(context.Background(), adminActor(), "org1", "jane@example.com", "", authz.OwnerRef())
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrForbidden))

	member, err := fx.svc.Invite(context.Background(), ownerActor(), "org1", "jane@example.com", "", authz.OwnerRef())
	require.NoError(t, err)
	require.NotNil(t, member)
	assert.True(t, member.Membership.Role.IsOwner())
}

func TestInviteCrossOrgRoleNotFound(t *testing.T) {
	fx := newMemberFixture()
	fx.roles.add("org2", "foreign")

	_, err := fx.svc.Invite(context.Background(), ownerActor(), "org1", "jane@example.com", "", authz.CustomRef("foreign"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	// The failed invite must not leave a membership behind.
	u, ok := fx.users.byEmail["jane@example.com"]
	require.True(t, ok)
	current, err := fx.repo.Get(context.Background(), u.ID, "org1")
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestInviteRoleLessReferenceInvalid(t *testing.T) {
	fx := newMemberFixture()

	_, err := fx.svc.Invite(context.Background(), ownerActor(), "org1", "jane@example.com", "", authz.RoleRef{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInvalid))
}

func TestInviteConflictConvergesToNoOp(t *testing.T) {
	fx := newMemberFixture()
	fx.roles.add("org1", "editor")
	fx.repo.createErr = shared.ErrConflict

	member, err := fx.svc.Invite(context.Background(), adminActor(), "org1", "jane@example.com", "", authz.CustomRef("editor"))
	require.NoError(t, err)
	assert.Nil(t, member)
}

func TestChangeRole(t *testing.T) {
	fx := newMemberFixture()
	fx.roles.add("org1", "editor")
	fx.roles.add("org1", "viewer")

	member, err := fx.svc.Invite(context.Background(), adminActor(), "org1", "jane@example.com", "", authz.CustomRef("editor"))
	require.NoError(t, err)

	err = fx.svc.ChangeRole(context.Background(), adminActor(), "org1", member.UserID, authz.CustomRef("viewer"))
	require.NoError(t, err)

	current, err := fx.repo.Get(context.Background(), member.UserID, "org1")
	require.NoError(t, err)
	roleID, _ := current.Role.RoleID()
	assert.Equal(t, "viewer", roleID)
}

func TestChangeRoleMissingMember(t *testing.T) {
	fx := newMemberFixture()
	fx.roles.add("org1", "viewer")

	err := fx.svc.ChangeRole(context.Background(), ownerActor(), "org1", "ghost", authz.CustomRef("viewer"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestChangeRoleToOwnerRequiresOwner(t *testing.T) {
	fx := newMemberFixture()
	fx.roles.add("org1", "editor")

	member, err := fx.svc.Invite(context.Background(), adminActor(), "org1", "jane@example.com", "", authz.CustomRef("editor"))
	require.NoError(t, err)

	err = fx.svc.ChangeRole(context.Background(), adminActor(), "org1", member.UserID, authz.OwnerRef())
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrForbidden))

	require.NoError(t, fx.svc.ChangeRole(context.Background(), ownerActor(), "org1", member.UserID, authz.OwnerRef()))
}

func TestChangeRoleFromOwnerRequiresOwner(t *testing.T) {
	fx := newMemberFixture()
	fx.roles.add("org1", "editor")

	member, err := fx.svc.Invite(context.Background(), ownerActor(), "org1", "boss@example.com", "", authz.OwnerRef())
	require.NoError(t, err)

	// Demoting an owner is itself an owner-only operation.
	err = fx.svc.ChangeRole(context.Background(), adminActor(), "org1", member.UserID, authz.CustomRef("editor"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrForbidden))

	require.NoError(t, fx.svc.ChangeRole(context.Background(), ownerActor(), "org1", member.UserID, authz.CustomRef("editor")))
}

func TestChangeRoleCrossOrgRoleNotFound(t *testing.T) {
	fx := newMemberFixture()
	fx.roles.add("org1", "editor")
	fx.roles.add("org2", "foreign")

	member, err := fx.svc.Invite(context.Background(), adminActor(), "org1", "jane@example.com", "", authz.CustomRef("editor"))
	require.NoError(t, err)

	err = fx.svc.ChangeRole(context.Background(), ownerActor(), "org1", member.UserID, authz.CustomRef("foreign"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestRemoveMember(t *testing.T) {
	fx := newMemberFixture()
	fx.roles.add("org1", "editor")

	member, err := fx.svc.Invite(context.Background(), adminActor(), "org1", "jane@example.com", "", authz.CustomRef("editor"))
	require.NoError(t, err)

	require.NoError(t, fx.svc.Remove(context.Background(), adminActor(), "org1", member.UserID))

	current, err := fx.repo.Get(context.Background(), member.UserID, "org1")
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestRemoveMissingMemberIsNoOp(t *testing.T) {
	fx := newMemberFixture()

	require.NoError(t, fx.svc.Remove(context.Background(), adminActor(), "org1", "ghost"))
}

func TestRemoveOwnerRequiresOwner(t *testing.T) {
	fx := newMemberFixture()

	member, err := fx.svc.Invite(context.Background(), ownerActor(), "org1", "boss@example.com", "", authz.OwnerRef())
	require.NoError(t, err)

	err = fx.svc.Remove(context.Background(), adminActor(), "org1", member.UserID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrForbidden))

	require.NoError(t, fx.svc.Remove(context.Background(), ownerActor(), "org1", member.UserID))
}
