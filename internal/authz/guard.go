package authz

import (
	"context"
	"errors"

	"golang.org/x/sync/singleflight"

	"github.com/voltboard/voltboard/internal/shared"
)

// RoleResolver resolves a role's permission set. Implementations must
// return shared.ErrNotFound for roles that do not exist or that belong
// to a different org than orgID.
type RoleResolver interface {
	RolePermissions(ctx context.Context, orgID, roleID string) (Set, error)
}

// DecisionRecorder receives the outcome of each authorization decision.
type DecisionRecorder interface {
	ObserveAuthzDecision(permission string, allowed bool)
}

// Guard is the central authorization decision point.
type Guard struct {
	roles    RoleResolver
	recorder DecisionRecorder
	group    singleflight.Group
}

// NewGuard constructs a Guard. recorder may be nil.
func NewGuard(roles RoleResolver, recorder DecisionRecorder) *Guard {
	return &Guard{roles: roles, recorder: recorder}
}

// Authorize decides whether the actor may exercise the required
// permission. Owners hold the full catalog implicitly; custom members
// hold exactly their role's set. A role-less or orphaned reference
// evaluates to the empty set. The only error cause is a resolver
// failure; a deny is never an error.
func (g *Guard) Authorize(ctx context.Context, actor Actor, required Permission) (bool, error) {
	allowed, err := g.authorize(ctx, actor, required)
	if err == nil {
		g.record(required, allowed)
	}
	return allowed, err
}

func (g *Guard) authorize(ctx context.Context, actor Actor, required Permission) (bool, error) {
	if !Valid(required) {
		return false, nil
	}
	if actor.Role.IsOwner() {
		return true, nil
	}
	roleID, ok := actor.Role.RoleID()
	if !ok {
		return false, nil
	}
	set, err := g.resolve(ctx, actor.OrgID, roleID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Orphaned reference: the role vanished, the membership stays.
			return false, nil
		}
		return false, err
	}
	return set.Has(required), nil
}

// CanActOnOwner is the escalation guard: only an existing owner may
// create another owner, change a role to or from owner, or remove an
// owner. It is checked in addition to the base permission.
func (g *Guard) CanActOnOwner(actor Actor) bool {
	return actor.Role.IsOwner()
}

// resolve de-duplicates concurrent lookups of the same role.
func (g *Guard) resolve(ctx context.Context, orgID, roleID string) (Set, error) {
	v, err, _ := g.group.Do(orgID+"/"+roleID, func() (any, error) {
		return g.roles.RolePermissions(ctx, orgID, roleID)
	})
	if err != nil {
		return nil, err
	}
	return v.(Set), nil
}

func (g *Guard) record(p Permission, allowed bool) {
	if g.recorder != nil {
		g.recorder.ObserveAuthzDecision(string(p), allowed)
	}
}
