// Package authz implements the organization-scoped authorization core:
// the permission catalog, the membership role reference, and the guard
// that decides whether an actor may invoke an operation on an org.
package authz

// Permission is an atomic, enumerated capability identifier.
type Permission string

// The closed set of known permissions. Adding one is a deployment-time
// change, never a request-time one.
const (
	PermMemberRead       Permission = "MEMBER:READ"
	PermMemberAdd        Permission = "MEMBER:ADD"
	PermMemberChangeRole Permission = "MEMBER:CHANGE-ROLE"
	PermMemberRemove     Permission = "MEMBER:REMOVE"
	PermRoleRead         Permission = "ROLE:READ"
	PermRoleWrite        Permission = "ROLE:WRITE"
	PermRoleDelete       Permission = "ROLE:DELETE"
	PermOrgRead          Permission = "ORG:READ"
	PermOrgWrite         Permission = "ORG:WRITE"
)

var catalog = []Permission{
	PermMemberRead,
	PermMemberAdd,
	PermMemberChangeRole,
	PermMemberRemove,
	PermRoleRead,
	PermRoleWrite,
	PermRoleDelete,
	PermOrgRead,
	PermOrgWrite,
}

var descriptions = map[Permission]string{
	PermMemberRead:       "View the members of the organization",
	PermMemberAdd:        "Invite new members into the organization",
	PermMemberChangeRole: "Change the role assigned to a member",
	PermMemberRemove:     "Remove a member from the organization",
	PermRoleRead:         "View the organization's roles",
	PermRoleWrite:        "Create and edit the organization's roles",
	PermRoleDelete:       "Delete the organization's roles",
	PermOrgRead:          "View the organization's settings",
	PermOrgWrite:         "Edit the organization's settings",
}

// Catalog returns the ordered list of all known permissions.
func Catalog() []Permission {
	out := make([]Permission, len(catalog))
	copy(out, catalog)
	return out
}

// Describe returns the human readable description for a permission.
func Describe(p Permission) (string, bool) {
	desc, ok := descriptions[p]
	return desc, ok
}

// Valid reports whether p belongs to the catalog.
func Valid(p Permission) bool {
	_, ok := descriptions[p]
	return ok
}

// Set is a permission set with O(1) membership tests.
type Set map[Permission]struct{}

// NewSet builds a Set from the given permissions.
func NewSet(perms ...Permission) Set {
	s := make(Set, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// Has reports whether p is in the set.
func (s Set) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Slice returns the set in catalog order.
func (s Set) Slice() []Permission {
	out := make([]Permission, 0, len(s))
	for _, p := range catalog {
		if s.Has(p) {
			out = append(out, p)
		}
	}
	return out
}
