package authz

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voltboard/voltboard/internal/platform/httpx"
)

// PermissionsHandler serves the permission catalog. The catalog is
// static, so the routes sit outside the org-scoped groups.
type PermissionsHandler struct{}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler() *PermissionsHandler {
	return &PermissionsHandler{}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.listPermissions)
}

type permissionView struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms := Catalog()
	out := make([]permissionView, 0, len(perms))
	for _, p := range perms {
		desc, _ := Describe(p)
		out = append(out, permissionView{ID: string(p), Description: desc})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": out})
}
