package auth_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-saas/meridian/internal/auth"
	"github.com/meridian-saas/meridian/internal/authz"
	"github.com/meridian-saas/meridian/internal/shared"
	_ "github.com/meridian-saas/meridian/testing"
)

type stubRepo struct {
	users    map[int64]*auth.User
	byEmail  map[string]*auth.User
	sessions map[string]int64
}

func newStubRepo(users ...*auth.User) *stubRepo {
	repo := &stubRepo{
		users:    make(map[int64]*auth.User),
		byEmail:  make(map[string]*auth.User),
		sessions: make(map[string]int64),
	}
	for _, u := range users {
		repo.users[u.ID] = u
		repo.byEmail[u.Email] = u
	}
	return repo
}

func (s *stubRepo) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	if u, ok := s.byEmail[email]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) GetByID(_ context.Context, id int64) (*auth.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) CreateSession(_ context.Context, id string, userID int64, _ time.Time, _, _ string) error {
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(_ context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

func (s *stubRepo) DeleteExpiredSessions(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func router(h *auth.Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/auth", h.MountRoutes)
	return r
}

func hashPassword(t *testing.T, plain string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hashed)
}

func newFixture(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	handler := auth.NewHandler(testLogger(), auth.NewService(repo), sessions)
	return handler, sessions
}

func withSession(t *testing.T, sessions *shared.SessionManager, req *http.Request) (*http.Request, *shared.Session) {
	t.Helper()
	sess, err := sessions.Load(context.Background(), req)
	require.NoError(t, err)
	ctx := shared.ContextWithSession(req.Context(), sess)
	return req.WithContext(ctx), sess
}

func TestLoginSuccess(t *testing.T) {
	repo := newStubRepo(&auth.User{
		ID:           1,
		Email:        "user@acme.test",
		Name:         "Acme User",
		PasswordHash: hashPassword(t, "correctpass"),
		Type:         auth.UserTypeCompany,
		CompanyID:    5,
		IsActive:     true,
	})
	handler, sessions := newFixture(t, repo)

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"user@acme.test","password":"correctpass"}`))
	req, sess := withSession(t, sessions, req)
	// A leftover selection from a previous operator must not survive login.
	sess.SetActiveCompany(9)

	res := httptest.NewRecorder()
	router(handler).ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"userType":"COMPANY"`)
	require.Equal(t, "1", sess.User())
	require.Zero(t, sess.ActiveCompany())
	require.Len(t, repo.sessions, 1)
}

func TestLoginInvalidCredentials(t *testing.T) {
	repo := newStubRepo(&auth.User{
		ID:           1,
		Email:        "user@acme.test",
		PasswordHash: hashPassword(t, "correctpass"),
		Type:         auth.UserTypeCompany,
		CompanyID:    5,
		IsActive:     true,
	})
	handler, sessions := newFixture(t, repo)

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"user@acme.test","password":"wrongpass1"}`))
	req, sess := withSession(t, sessions, req)

	res := httptest.NewRecorder()
	router(handler).ServeHTTP(res, req)

	require.Equal(t, http.StatusUnauthorized, res.Code)
	require.Empty(t, sess.User())
}

func TestLoginInactiveUser(t *testing.T) {
	repo := newStubRepo(&auth.User{
		ID:           1,
		Email:        "user@acme.test",
		PasswordHash: hashPassword(t, "correctpass"),
		Type:         auth.UserTypeCompany,
		CompanyID:    5,
		IsActive:     false,
	})
	handler, sessions := newFixture(t, repo)

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"user@acme.test","password":"correctpass"}`))
	req, _ = withSession(t, sessions, req)

	res := httptest.NewRecorder()
	router(handler).ServeHTTP(res, req)

	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestAuthenticateMiddlewareAttachesActor(t *testing.T) {
	repo := newStubRepo(
		&auth.User{ID: 1, Email: "user@acme.test", Type: auth.UserTypeCompany, CompanyID: 5, IsActive: true},
		&auth.User{ID: 2, Email: "staff@meridian.test", Type: auth.UserTypeInternal, IsActive: true},
	)
	mw := auth.Middleware{Service: auth.NewService(repo), Logger: testLogger()}

	var seen authz.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = authz.ActorFromContext(r.Context())
	})

	serve := func(userID string) {
		seen = nil
		sess := &shared.Session{}
		if userID != "" {
			sess.SetUser(userID)
		}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
		mw.Authenticate(next).ServeHTTP(httptest.NewRecorder(), req)
	}

	serve("1")
	require.Equal(t, authz.CompanyActor{UserID: 1, CompanyID: 5}, seen)

	serve("2")
	require.Equal(t, authz.InternalActor{UserID: 2}, seen)

	// Unknown and anonymous sessions attach nothing.
	serve("404")
	require.Nil(t, seen)
	serve("")
	require.Nil(t, seen)
}

func TestLogoutDestroysSession(t *testing.T) {
	repo := newStubRepo()
	handler, sessions := newFixture(t, repo)
	repo.sessions["abc"] = 1

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req, sess := withSession(t, sessions, req)
	sess.ID = "abc"

	res := httptest.NewRecorder()
	router(handler).ServeHTTP(res, req)

	require.Equal(t, http.StatusNoContent, res.Code)
	require.Empty(t, repo.sessions)
}
