package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/meridian-saas/meridian/internal/authz"
	"github.com/meridian-saas/meridian/internal/shared"
)

// Middleware resolves the session's user into an immutable actor value on
// the request context. Requests without a valid user pass through with no
// actor attached; the authorization layer rejects them on protected
// routes.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// Authenticate is the actor-attachment middleware.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil {
			next.ServeHTTP(w, r)
			return
		}
		raw := strings.TrimSpace(sess.User())
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Error("parse session user id", slog.String("value", raw))
			}
			next.ServeHTTP(w, r)
			return
		}
		actor, err := m.Service.LoadActor(r.Context(), userID)
		if err != nil {
			if !errors.Is(err, shared.ErrNotFound) {
				if m.Logger != nil {
					m.Logger.Error("load actor", slog.Any("error", err), slog.Int64("user_id", userID))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r)
			return
		}
		ctx := authz.ContextWithActor(r.Context(), actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
