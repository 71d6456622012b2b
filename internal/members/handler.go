package members

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/voltboard/voltboard/internal/authz"
	"github.com/voltboard/voltboard/internal/orgs"
	"github.com/voltboard/voltboard/internal/platform/httpx"
	"github.com/voltboard/voltboard/internal/shared"
)

// Handler manages organization membership endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	authz    authz.Middleware
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, authz authz.Middleware) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		authz:    authz,
		validate: validator.New(),
	}
}

// MountRoutes registers membership routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.PermMemberRead))
		r.Get("/", h.listMembers)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.PermMemberAdd))
		r.Post("/", h.invite)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.PermMemberChangeRole))
		r.Put("/{userID}/role", h.changeRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.PermMemberRemove))
		r.Delete("/{userID}", h.remove)
	})
}

// rolePayload accepts either the literal string "owner" or an object
// naming a custom role id.
type rolePayload struct {
	ref authz.RoleRef
}

func (p *rolePayload) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != string(authz.RoleTypeOwner) {
			return fmt.Errorf("unknown role %q", s)
		}
		p.ref = authz.OwnerRef()
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if obj.ID == "" {
		return fmt.Errorf("role id required")
	}
	p.ref = authz.CustomRef(obj.ID)
	return nil
}

type memberView struct {
	UserID string    `json:"userId"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
	Role   roleField `json:"role"`
}

type roleField struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

func toMemberView(m Member) memberView {
	view := memberView{
		UserID: m.UserID,
		Email:  m.User.Email,
		Name:   m.User.Name,
		Role:   roleField{Type: string(m.Membership.Role.Type())},
	}
	if id, ok := m.Membership.Role.RoleID(); ok {
		view.Role.ID = id
		if m.Role != nil {
			view.Role.Name = m.Role.Name
		}
	}
	return view
}

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
	org, ok := orgs.OrgFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrNotFound)
		return
	}
	filters := listFilters(r)
	members, total, err := h.service.List(r.Context(), org.ID, filters)
	if err != nil {
		h.logger.Error("list members", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]memberView, 0, len(members))
	for _, m := range members {
		views = append(views, toMemberView(m))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"members": views,
		"total":   total,
		"page":    shared.NewPagination(filters.Page, filters.Limit, total),
	})
}

type inviteRequest struct {
	Email string      `json:"email" validate:"required,email"`
	Name  string      `json:"name"`
	Role  rolePayload `json:"role"`
}

func (h *Handler) invite(w http.ResponseWriter, r *http.Request) {
	org, ok := orgs.OrgFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrNotFound)
		return
	}
	actor, ok := authz.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	var req inviteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	member, err := h.service.Invite(r.Context(), actor, org.ID, req.Email, req.Name, req.Role.ref)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if member == nil {
		// Already a member.
		httpx.JSON(w, http.StatusOK, nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, toMemberView(*member))
}

func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request) {
	org, ok := orgs.OrgFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrNotFound)
		return
	}
	actor, ok := authz.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	var req struct {
		Role rolePayload `json:"role"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	err := h.service.ChangeRole(r.Context(), actor, org.ID, chi.URLParam(r, "userID"), req.Role.ref)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	org, ok := orgs.OrgFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrNotFound)
		return
	}
	actor, ok := authz.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	if err := h.service.Remove(r.Context(), actor, org.ID, chi.URLParam(r, "userID")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func listFilters(r *http.Request) shared.ListFilters {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	return shared.ListFilters{Page: page, Limit: limit, Search: q.Get("search")}
}
