package orgs

import "time"

// Org is the tenant boundary. All roles and memberships belong to
// exactly one org.
type Org struct {
	ID        string
	Name      string
	Domain    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
