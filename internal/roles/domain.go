package roles

import (
	"time"

	"github.com/voltboard/voltboard/internal/authz"
)

// Role is a named, org-scoped bundle of permissions. A role belongs to
// exactly one org and may be referenced by any number of memberships.
// Names are not unique within an org.
type Role struct {
	ID          string
	OrgID       string
	Name        string
	Permissions []authz.Permission
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UpdateParams carries the partial update for a role. Nil fields are
// left unchanged.
type UpdateParams struct {
	Name        *string
	Permissions []authz.Permission
}
