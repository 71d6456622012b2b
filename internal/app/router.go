package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/voltboard/voltboard/internal/auth"
	"github.com/voltboard/voltboard/internal/authz"
	"github.com/voltboard/voltboard/internal/members"
	"github.com/voltboard/voltboard/internal/observability"
	"github.com/voltboard/voltboard/internal/orgs"
	"github.com/voltboard/voltboard/internal/roles"
	"github.com/voltboard/voltboard/internal/shared"
	"github.com/voltboard/voltboard/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	Tenant         *Tenant

	AuthHandler        *auth.Handler
	OrgHandler         *orgs.Handler
	RolesHandler       *roles.Handler
	MembersHandler     *members.Handler
	PermissionsHandler *authz.PermissionsHandler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with Voltboard defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	// Org-scoped API. Tenant resolution first, then membership.
	r.Group(func(r chi.Router) {
		r.Use(params.Tenant.Resolve)
		r.Use(params.Tenant.RequireMember)

		r.Route("/org", params.OrgHandler.MountRoutes)
		r.Route("/roles", params.RolesHandler.MountRoutes)
		r.Route("/members", params.MembersHandler.MountRoutes)
	})

	if params.PermissionsHandler != nil {
		r.Route("/permissions", params.PermissionsHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
