package app

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/voltboard/voltboard/internal/authz"
	"github.com/voltboard/voltboard/internal/members"
	"github.com/voltboard/voltboard/internal/orgs"
	"github.com/voltboard/voltboard/internal/platform/httpx"
	"github.com/voltboard/voltboard/internal/shared"
)

// MembershipSource looks up the acting user's membership in an org.
type MembershipSource interface {
	Get(ctx context.Context, userID, orgID string) (*members.Membership, error)
}

// Tenant resolves the org for each request and loads the acting
// membership into the request context. Every org-scoped route group
// sits behind it.
type Tenant struct {
	Orgs      *orgs.Service
	Members   MembershipSource
	Logger    *slog.Logger
	OrgHeader string
}

// Resolve locates the org by the configured header, falling back to
// the request host. Unknown domains get 404.
func (t *Tenant) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		domain := r.Header.Get(t.OrgHeader)
		if domain == "" {
			domain = hostOnly(r.Host)
		}
		org, err := t.Orgs.Resolve(r.Context(), strings.ToLower(domain))
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(orgs.ContextWithOrg(r.Context(), org)))
	})
}

// RequireMember rejects requests whose session user is not a member
// of the resolved org, and exposes the membership as the authz actor.
func (t *Tenant) RequireMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
			return
		}
		org, ok := orgs.OrgFromContext(r.Context())
		if !ok {
			httpx.RespondError(w, shared.ErrNotFound)
			return
		}
		membership, err := t.Members.Get(r.Context(), sess.User(), org.ID)
		if err != nil {
			t.Logger.Error("load membership", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "")
			return
		}
		if membership == nil {
			httpx.RespondError(w, shared.ErrForbidden)
			return
		}
		ctx := authz.ContextWithActor(r.Context(), membership.Actor())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func hostOnly(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
