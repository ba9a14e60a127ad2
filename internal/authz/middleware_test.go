package authz_test

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-saas/meridian/internal/authz"
	"github.com/meridian-saas/meridian/internal/shared"
)

type middlewareFixture struct {
	roles        *stubRoleRepo
	companies    *stubCompanyRepo
	restrictions *stubRestrictionRepo
	mw           authz.Middleware
}

func newMiddlewareFixture() *middlewareFixture {
	roles := &stubRoleRepo{
		companyRoles:  map[string][]authz.Role{},
		platformRoles: map[int64][]authz.Role{},
	}
	companies := &stubCompanyRepo{companies: map[int64]authz.Company{}}
	restrictions := &stubRestrictionRepo{rows: map[int64][]authz.Restriction{}}
	return &middlewareFixture{
		roles:        roles,
		companies:    companies,
		restrictions: restrictions,
		mw: authz.Middleware{
			Aggregator: authz.NewAggregator(roles),
			Resolver:   authz.NewResolver(companies, restrictions),
			Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		},
	}
}

// serve runs the guarded request and reports whether next was reached.
func (f *middlewareFixture) serve(t *testing.T, guard func(http.Handler) http.Handler, actor authz.Actor, sess *shared.Session) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	ctx := req.Context()
	if sess != nil {
		ctx = shared.ContextWithSession(ctx, sess)
	}
	if actor != nil {
		ctx = authz.ContextWithActor(ctx, actor)
	}
	req = req.WithContext(ctx)

	res := httptest.NewRecorder()
	guard(next).ServeHTTP(res, req)
	return res, nextCalled
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	return body
}

func TestCompanyUserAllowed(t *testing.T) {
	f := newMiddlewareFixture()
	f.roles.companyRoles[companyKey(7, 1)] = []authz.Role{
		{Type: authz.RoleTypeCompany, Permissions: []string{"customer:read"}},
	}
	actor := authz.CompanyActor{UserID: 7, CompanyID: 1}

	res, nextCalled := f.serve(t, f.mw.RequirePermission("customer:read"), actor, &shared.Session{})
	require.True(t, nextCalled)
	require.Equal(t, http.StatusOK, res.Code)
}

func TestCompanyUserDenied(t *testing.T) {
	f := newMiddlewareFixture()
	f.roles.companyRoles[companyKey(7, 1)] = []authz.Role{
		{Type: authz.RoleTypeCompany, Permissions: []string{"customer:read"}},
	}
	actor := authz.CompanyActor{UserID: 7, CompanyID: 1}

	res, nextCalled := f.serve(t, f.mw.RequirePermission("customer:delete"), actor, &shared.Session{})
	require.False(t, nextCalled)
	require.Equal(t, http.StatusForbidden, res.Code)
	body := decodeBody(t, res)
	require.Equal(t, "Forbidden", body["error"])
	require.Equal(t, "Missing required permission: customer:delete", body["message"])
	require.Equal(t, "customer:delete", body["requiredPermission"])
}

func TestUnauthenticated(t *testing.T) {
	f := newMiddlewareFixture()
	res, nextCalled := f.serve(t, f.mw.RequirePermission("customer:read"), nil, nil)
	require.False(t, nextCalled)
	require.Equal(t, http.StatusUnauthorized, res.Code)
	body := decodeBody(t, res)
	require.Equal(t, "Unauthorized", body["error"])
	require.Equal(t, "Authentication required", body["message"])
}

func TestInternalActorWithoutContext(t *testing.T) {
	f := newMiddlewareFixture()
	res, nextCalled := f.serve(t, f.mw.RequirePermission("customer:read"), authz.InternalActor{UserID: 3}, &shared.Session{})
	require.False(t, nextCalled)
	require.Equal(t, http.StatusBadRequest, res.Code)
	body := decodeBody(t, res)
	require.Equal(t, "Bad Request", body["error"])
	require.Equal(t, "No active company selected. Switch to a company first.", body["message"])
}

func TestCompanyActorBrokenInvariant(t *testing.T) {
	f := newMiddlewareFixture()
	res, nextCalled := f.serve(t, f.mw.RequirePermission("customer:read"), authz.CompanyActor{UserID: 7}, &shared.Session{})
	require.False(t, nextCalled)
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestRequireAllReportsFullList(t *testing.T) {
	f := newMiddlewareFixture()
	f.roles.companyRoles[companyKey(7, 1)] = []authz.Role{
		{Type: authz.RoleTypeCompany, Permissions: []string{"customer:read"}},
	}
	actor := authz.CompanyActor{UserID: 7, CompanyID: 1}

	res, nextCalled := f.serve(t, f.mw.RequireAll("customer:read", "customer:delete"), actor, &shared.Session{})
	require.False(t, nextCalled)
	require.Equal(t, http.StatusForbidden, res.Code)
	body := decodeBody(t, res)
	require.Equal(t, "Missing required permissions", body["message"])
	require.Equal(t, []any{"customer:read", "customer:delete"}, body["requiredPermissions"])
}

func TestRequireAnySucceedsOnOneMatch(t *testing.T) {
	f := newMiddlewareFixture()
	f.roles.companyRoles[companyKey(7, 1)] = []authz.Role{
		{Type: authz.RoleTypeCompany, Permissions: []string{"customer:read"}},
	}
	actor := authz.CompanyActor{UserID: 7, CompanyID: 1}

	_, nextCalled := f.serve(t, f.mw.RequireAny("customer:delete", "customer:read"), actor, &shared.Session{})
	require.True(t, nextCalled)
}

func TestRequireAnyFailureListsAllTokens(t *testing.T) {
	f := newMiddlewareFixture()
	actor := authz.CompanyActor{UserID: 7, CompanyID: 1}

	res, nextCalled := f.serve(t, f.mw.RequireAny("customer:delete", "customer:export"), actor, &shared.Session{})
	require.False(t, nextCalled)
	require.Equal(t, http.StatusForbidden, res.Code)
	body := decodeBody(t, res)
	require.Equal(t, "Missing required permissions (need at least one)", body["message"])
	require.Equal(t, []any{"customer:delete", "customer:export"}, body["requiredPermissions"])
}

func TestRequireAnyMixedNamespacesInternalActor(t *testing.T) {
	f := newMiddlewareFixture()
	f.roles.platformRoles[3] = []authz.Role{
		{Type: authz.RoleTypePlatform, Permissions: []string{"platform:companies"}},
	}
	actor := authz.InternalActor{UserID: 3}

	// The platform member matches on its own; the company member must not
	// fail the request over the missing context.
	res, nextCalled := f.serve(t, f.mw.RequireAny("platform:companies", "customer:read"), actor, &shared.Session{})
	require.True(t, nextCalled)
	require.Equal(t, http.StatusOK, res.Code)
}

func TestRequireAnyMixedNamespacesCompanyActor(t *testing.T) {
	f := newMiddlewareFixture()
	f.roles.companyRoles[companyKey(7, 1)] = []authz.Role{
		{Type: authz.RoleTypeCompany, Permissions: []string{"customer:read"}},
	}
	actor := authz.CompanyActor{UserID: 7, CompanyID: 1}

	// A platform member can never match a company account, but the company
	// member already does.
	res, nextCalled := f.serve(t, f.mw.RequireAny("platform:companies", "customer:read"), actor, &shared.Session{})
	require.True(t, nextCalled)
	require.Equal(t, http.StatusOK, res.Code)
}

func TestRequireAnyMixedNamespacesNoMatch(t *testing.T) {
	f := newMiddlewareFixture()
	actor := authz.CompanyActor{UserID: 7, CompanyID: 1}

	res, nextCalled := f.serve(t, f.mw.RequireAny("platform:companies", "customer:read"), actor, &shared.Session{})
	require.False(t, nextCalled)
	require.Equal(t, http.StatusForbidden, res.Code)
	body := decodeBody(t, res)
	require.Equal(t, "Missing required permissions (need at least one)", body["message"])
	require.Equal(t, []any{"platform:companies", "customer:read"}, body["requiredPermissions"])
}

func TestRequireAllMixedNamespaces(t *testing.T) {
	f := newMiddlewareFixture()
	f.companies.companies[4] = authz.Company{ID: 4, Name: "Acme", IsActive: true}
	f.roles.platformRoles[3] = []authz.Role{
		{Type: authz.RoleTypePlatform, Permissions: []string{"platform:companies"}, CompanyPermissions: []string{"customer:*"}},
	}
	actor := authz.InternalActor{UserID: 3}
	sess := &shared.Session{}
	sess.SetActiveCompany(4)

	_, nextCalled := f.serve(t, f.mw.RequireAll("platform:companies", "customer:read"), actor, sess)
	require.True(t, nextCalled)

	// ALL still needs every member, so the missing context stays terminal.
	res, nextCalled := f.serve(t, f.mw.RequireAll("platform:companies", "customer:read"), actor, &shared.Session{})
	require.False(t, nextCalled)
	require.Equal(t, http.StatusBadRequest, res.Code)

	// And a company account can never clear the platform member.
	f.roles.companyRoles[companyKey(7, 1)] = []authz.Role{
		{Type: authz.RoleTypeCompany, Permissions: []string{"customer:read"}},
	}
	res, nextCalled = f.serve(t, f.mw.RequireAll("platform:companies", "customer:read"), authz.CompanyActor{UserID: 7, CompanyID: 1}, &shared.Session{})
	require.False(t, nextCalled)
	require.Equal(t, http.StatusForbidden, res.Code)
	body := decodeBody(t, res)
	require.Equal(t, "Platform permissions require an internal account", body["message"])
}

func TestPlatformPermissionRejectsCompanyActor(t *testing.T) {
	f := newMiddlewareFixture()
	actor := authz.CompanyActor{UserID: 7, CompanyID: 1}

	res, nextCalled := f.serve(t, f.mw.RequirePermission("platform:companies"), actor, &shared.Session{})
	require.False(t, nextCalled)
	require.Equal(t, http.StatusForbidden, res.Code)
	body := decodeBody(t, res)
	require.Equal(t, "Platform permissions require an internal account", body["message"])
}

func TestPlatformPermissionForInternalActor(t *testing.T) {
	f := newMiddlewareFixture()
	f.roles.platformRoles[3] = []authz.Role{
		{Type: authz.RoleTypePlatform, Permissions: []string{"platform:companies"}},
	}
	actor := authz.InternalActor{UserID: 3}

	// Platform permissions are context-free: no active company needed.
	_, nextCalled := f.serve(t, f.mw.RequirePermission("platform:companies"), actor, &shared.Session{})
	require.True(t, nextCalled)

	res, nextCalled := f.serve(t, f.mw.RequirePermission("platform:roles"), actor, &shared.Session{})
	require.False(t, nextCalled)
	require.Equal(t, http.StatusForbidden, res.Code)
}

func TestInternalActorInsideCompanyContext(t *testing.T) {
	f := newMiddlewareFixture()
	f.companies.companies[4] = authz.Company{ID: 4, Name: "Acme", IsActive: true}
	f.roles.platformRoles[3] = []authz.Role{
		{Type: authz.RoleTypePlatform, CompanyPermissions: []string{"customer:*"}},
	}
	actor := authz.InternalActor{UserID: 3}
	sess := &shared.Session{}
	sess.SetActiveCompany(4)

	_, nextCalled := f.serve(t, f.mw.RequirePermission("customer:read"), actor, sess)
	require.True(t, nextCalled)

	res, nextCalled := f.serve(t, f.mw.RequirePermission("office:read"), actor, sess)
	require.False(t, nextCalled)
	require.Equal(t, http.StatusForbidden, res.Code)
}

func TestCollaboratorFailure(t *testing.T) {
	f := newMiddlewareFixture()
	f.roles.err = errors.New("connection refused")
	actor := authz.CompanyActor{UserID: 7, CompanyID: 1}

	res, nextCalled := f.serve(t, f.mw.RequirePermission("customer:read"), actor, &shared.Session{})
	require.False(t, nextCalled)
	require.Equal(t, http.StatusInternalServerError, res.Code)
	body := decodeBody(t, res)
	require.Equal(t, "Internal server error", body["error"])
	_, hasMessage := body["message"]
	require.False(t, hasMessage)
}

func TestScopeInjectedForHandlers(t *testing.T) {
	f := newMiddlewareFixture()
	f.roles.companyRoles[companyKey(7, 5)] = []authz.Role{
		{Type: authz.RoleTypeCompany, Permissions: []string{"customer:read"}},
	}
	actor := authz.CompanyActor{UserID: 7, CompanyID: 5}

	var scopeSeen int64
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scopeSeen, _ = authz.ScopeFromContext(r.Context())
	})
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	ctx := shared.ContextWithSession(req.Context(), &shared.Session{})
	ctx = authz.ContextWithActor(ctx, actor)
	f.mw.RequirePermission("customer:read")(next).ServeHTTP(httptest.NewRecorder(), req.WithContext(ctx))

	require.EqualValues(t, 5, scopeSeen)
}
