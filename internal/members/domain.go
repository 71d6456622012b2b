package members

import (
	"time"

	"github.com/voltboard/voltboard/internal/authz"
	"github.com/voltboard/voltboard/internal/roles"
	"github.com/voltboard/voltboard/internal/users"
)

// Membership grants a user access to an org. The pair (UserID, OrgID)
// is unique; the role reference is either owner or a custom role in
// the same org.
type Membership struct {
	UserID    string
	OrgID     string
	Role      authz.RoleRef
	CreatedAt time.Time
}

// Actor returns the authorization view of the membership.
func (m Membership) Actor() authz.Actor {
	return authz.Actor{UserID: m.UserID, OrgID: m.OrgID, Role: m.Role}
}

// Member is a membership joined with its user and, when the reference
// still resolves, its role.
type Member struct {
	Membership
	User users.User
	Role *roles.Role
}
