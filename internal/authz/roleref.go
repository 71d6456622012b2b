package authz

// RoleType discriminates the two membership variants.
type RoleType string

const (
	// RoleTypeOwner grants the full catalog implicitly and carries no role id.
	RoleTypeOwner RoleType = "owner"
	// RoleTypeCustom references an org-scoped role holding the permission set.
	RoleTypeCustom RoleType = "custom"
)

// RoleRef is the tagged union carried by a membership: either owner
// (no role id) or custom with exactly one role id. The zero value is
// a custom reference with no role, which always evaluates to the
// empty permission set.
type RoleRef struct {
	typ    RoleType
	roleID string
}

// OwnerRef returns the owner variant.
func OwnerRef() RoleRef {
	return RoleRef{typ: RoleTypeOwner}
}

// CustomRef returns the custom variant referencing roleID.
func CustomRef(roleID string) RoleRef {
	return RoleRef{typ: RoleTypeCustom, roleID: roleID}
}

// Type returns the discriminator.
func (r RoleRef) Type() RoleType {
	if r.typ == "" {
		return RoleTypeCustom
	}
	return r.typ
}

// IsOwner reports whether the reference is the owner variant.
func (r RoleRef) IsOwner() bool {
	return r.typ == RoleTypeOwner
}

// RoleID returns the referenced role id. The second return is false
// for owner references and for custom references left role-less.
func (r RoleRef) RoleID() (string, bool) {
	if r.IsOwner() || r.roleID == "" {
		return "", false
	}
	return r.roleID, true
}

// Actor is the authorization view of a membership: who is acting,
// in which org, with what role reference.
type Actor struct {
	UserID string
	OrgID  string
	Role   RoleRef
}
