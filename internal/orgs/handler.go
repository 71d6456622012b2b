package orgs

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voltboard/voltboard/internal/authz"
	"github.com/voltboard/voltboard/internal/platform/httpx"
)

// Handler manages org settings endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	authz   authz.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, authz authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, authz: authz}
}

// MountRoutes registers org routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.PermOrgRead))
		r.Get("/", h.getOrg)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.PermOrgWrite))
		r.Put("/", h.renameOrg)
	})
}

type orgView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

func toView(o Org) orgView {
	return orgView{ID: o.ID, Name: o.Name, Domain: o.Domain}
}

func (h *Handler) getOrg(w http.ResponseWriter, r *http.Request) {
	org, ok := OrgFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, toView(org))
}

func (h *Handler) renameOrg(w http.ResponseWriter, r *http.Request) {
	org, ok := OrgFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	updated, err := h.service.Rename(r.Context(), org.ID, req.Name)
	if err != nil {
		h.logger.Error("rename org", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toView(updated))
}
