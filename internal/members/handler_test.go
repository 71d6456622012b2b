package members

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltboard/voltboard/internal/authz"
	"github.com/voltboard/voltboard/internal/orgs"
)

func TestRolePayloadOwnerString(t *testing.T) {
	var p rolePayload
	require.NoError(t, json.Unmarshal([]byte(`"owner"`), &p))
	assert.True(t, p.ref.IsOwner())
}

func TestRolePayloadCustomObject(t *testing.T) {
	var p rolePayload
	require.NoError(t, json.Unmarshal([]byte(`{"id":"role-1"}`), &p))
	id, ok := p.ref.RoleID()
	require.True(t, ok)
	assert.Equal(t, "role-1", id)
}

func TestRolePayloadRejectsUnknownString(t *testing.T) {
	var p rolePayload
	require.Error(t, json.Unmarshal([]byte(`"admin"`), &p))
}

func TestRolePayloadRejectsEmptyID(t *testing.T) {
	var p rolePayload
	require.Error(t, json.Unmarshal([]byte(`{"id":""}`), &p))
}

// fullGrantResolver satisfies the middleware for handler tests.
type fullGrantResolver struct{}

func (fullGrantResolver) RolePermissions(ctx context.Context, orgID, roleID string) (authz.Set, error) {
	return authz.NewSet(authz.Catalog()...), nil
}

func newHandlerFixture() (*memberFixture, http.Handler) {
	fx := newMemberFixture()
	mw := authz.Middleware{Guard: authz.NewGuard(fullGrantResolver{}, nil)}
	h := NewHandler(slog.Default(), fx.svc, mw)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := orgs.ContextWithOrg(req.Context(), orgs.Org{ID: "org1", Name: "Org One", Domain: "org1.test"})
			ctx = authz.ContextWithActor(ctx, ownerActor())
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/members", h.MountRoutes)
	return fx, r
}

func TestInviteEndpointCreatesMember(t *testing.T) {
	fx, router := newHandlerFixture()
	fx.roles.add("org1", "editor")

	body := `{"email":"jane.doe@example.com","role":{"id":"editor"}}`
	req := httptest.NewRequest(http.MethodPost, "/members", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var view struct {
		Email string `json:"email"`
		Name  string `json:"name"`
		Role  struct {
			Type string `json:"type"`
			ID   string `json:"id"`
		} `json:"role"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "jane.doe@example.com", view.Email)
	assert.Equal(t, "Jane Doe", view.Name)
	assert.Equal(t, "custom", view.Role.Type)
	assert.Equal(t, "editor", view.Role.ID)
}

func TestInviteEndpointRepeatedIsOK(t *testing.T) {
	fx, router := newHandlerFixture()
	fx.roles.add("org1", "editor")

	body := `{"email":"jane@example.com","role":{"id":"editor"}}`
	for i, want := range []int{http.StatusCreated, http.StatusOK} {
		req := httptest.NewRequest(http.MethodPost, "/members", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, "request %d: %s", i, rec.Body.String())
	}
}

func TestInviteEndpointRejectsBadEmail(t *testing.T) {
	_, router := newHandlerFixture()

	body := `{"email":"not-an-email","role":"owner"}`
	req := httptest.NewRequest(http.MethodPost, "/members", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoveEndpointIdempotent(t *testing.T) {
	_, router := newHandlerFixture()

	req := httptest.NewRequest(http.MethodDelete, "/members/ghost", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestListEndpoint(t *testing.T) {
	fx, router := newHandlerFixture()
	fx.roles.add("org1", "editor")

	body := `{"email":"jane@example.com","role":{"id":"editor"}}`
	req := httptest.NewRequest(http.MethodPost, "/members", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	listReq := httptest.NewRequest(http.MethodGet, "/members", nil)
	listRec := httptest.NewRecorder()
	router.ServeHTTP(listRec, listReq)
	require.Equal(t, http.StatusOK, listRec.Code)

	var out struct {
		Members []json.RawMessage `json:"members"`
		Total   int               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &out))
	assert.Equal(t, 1, out.Total)
	assert.Len(t, out.Members, 1)
}
