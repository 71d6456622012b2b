package orgs

import "context"

type orgContextKey struct{}

// ContextWithOrg stores the resolved tenant org in context.
func ContextWithOrg(ctx context.Context, org Org) context.Context {
	return context.WithValue(ctx, orgContextKey{}, org)
}

// OrgFromContext extracts the tenant org from context.
func OrgFromContext(ctx context.Context) (Org, bool) {
	org, ok := ctx.Value(orgContextKey{}).(Org)
	return org, ok
}
