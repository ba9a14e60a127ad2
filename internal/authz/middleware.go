package authz

import (
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-saas/meridian/internal/platform/httpx"
	"github.com/meridian-saas/meridian/internal/shared"
)

// DecisionRecorder counts authorization outcomes. Implemented by
// observability.Metrics; nil disables recording.
type DecisionRecorder interface {
	RecordAuthzDecision(outcome string)
}

// Outcome labels reported to the DecisionRecorder.
const (
	DecisionAllowed         = "allowed"
	DecisionUnauthenticated = "unauthenticated"
	DecisionNoContext       = "no_context"
	DecisionDenied          = "denied"
	DecisionError           = "error"
)

// Middleware guards routes with permission requirements. Every protected
// route composes one of RequirePermission, RequireAll or RequireAny.
type Middleware struct {
	Aggregator *Aggregator
	Resolver   *Resolver
	Logger     *slog.Logger
	Decisions  DecisionRecorder
}

type combineMode int

const (
	combineSingle combineMode = iota
	combineAll
	combineAny
)

// RequirePermission authorizes the request when the actor holds the one
// required token in the applicable scope.
func (m Middleware) RequirePermission(token string) func(http.Handler) http.Handler {
	return m.require([]string{token}, combineSingle)
}

// RequireAll authorizes only when every token matches. Failures report the
// full requested list.
func (m Middleware) RequireAll(tokens ...string) func(http.Handler) http.Handler {
	return m.require(tokens, combineAll)
}

// RequireAny authorizes when at least one token matches. Failures report
// the full requested list.
func (m Middleware) RequireAny(tokens ...string) func(http.Handler) http.Handler {
	return m.require(tokens, combineAny)
}

func (m Middleware) require(tokens []string, mode combineMode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(tokens) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			actor, ok := ActorFromContext(r.Context())
			if !ok {
				m.record(DecisionUnauthenticated)
				writeUnauthorized(w, "Authentication required")
				return
			}

			eval := evaluation{mw: m, actor: actor, req: r, mode: mode}
			matched := make([]bool, len(tokens))
			for i, token := range tokens {
				result, stop := eval.check(w, token)
				if stop {
					return
				}
				matched[i] = result
			}

			switch mode {
			case combineSingle:
				if !matched[0] {
					m.record(DecisionDenied)
					writeForbiddenSingle(w, tokens[0])
					return
				}
			case combineAll:
				for _, okTok := range matched {
					if !okTok {
						m.record(DecisionDenied)
						writeForbiddenList(w, "Missing required permissions", tokens)
						return
					}
				}
			case combineAny:
				any := false
				for _, okTok := range matched {
					if okTok {
						any = true
						break
					}
				}
				if !any {
					m.record(DecisionDenied)
					writeForbiddenList(w, "Missing required permissions (need at least one)", tokens)
					return
				}
			}

			m.record(DecisionAllowed)
			ctx := r.Context()
			if eval.resolved {
				ctx = ContextWithScope(ctx, eval.resolution.CompanyID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// evaluation caches the per-request state the checks share: at most one
// context resolution and one permission-set lookup per scope tier.
type evaluation struct {
	mw    Middleware
	actor Actor
	req   *http.Request
	mode  combineMode

	platformSet    TokenSet
	platformLoaded bool

	companySet    TokenSet
	companyLoaded bool

	resolution     Resolution
	resolved       bool
	resolveChecked bool
}

// check evaluates one token through the state machine. stop is true when a
// terminal response was already written. Under the ANY combinator a token
// that cannot match for this actor (platform token on a company account,
// company token with no active context) is a plain non-match instead of a
// terminal: one matching member must be enough, so the combinator decides.
func (e *evaluation) check(w http.ResponseWriter, token string) (matched, stop bool) {
	if IsPlatform(token) {
		if _, ok := e.actor.(InternalActor); !ok {
			if e.mode == combineAny {
				return false, false
			}
			e.mw.record(DecisionDenied)
			writeForbiddenMessage(w, "Platform permissions require an internal account")
			return false, true
		}
		set, err := e.platformPermissions()
		if err != nil {
			e.fail(w, token, err)
			return false, true
		}
		return set.Satisfies(token), false
	}

	if !e.resolveChecked {
		sess := shared.SessionFromContext(e.req.Context())
		res, ok, err := e.mw.Resolver.Resolve(e.req.Context(), e.actor, sess)
		if err != nil {
			e.fail(w, token, err)
			return false, true
		}
		e.resolution, e.resolved, e.resolveChecked = res, ok, true
	}
	if !e.resolved {
		switch e.actor.(type) {
		case InternalActor:
			if e.mode == combineAny {
				return false, false
			}
			e.mw.record(DecisionNoContext)
			httpx.Error(w, http.StatusBadRequest, "Bad Request", "No active company selected. Switch to a company first.")
		default:
			// A company user always has a fixed company. Reaching this
			// branch means the authentication layer produced an actor the
			// data model says cannot exist; treat it as an authentication
			// failure rather than an authorization one.
			e.mw.record(DecisionNoContext)
			if e.mw.Logger != nil {
				e.mw.Logger.Warn("company actor without fixed company",
					slog.Int64("actor_id", e.actor.ActorID()),
					slog.String("request_id", chimw.GetReqID(e.req.Context())))
			}
			writeUnauthorized(w, "Authentication required")
		}
		return false, true
	}

	set, err := e.companyPermissions()
	if err != nil {
		e.fail(w, token, err)
		return false, true
	}
	return set.Satisfies(token), false
}

func (e *evaluation) platformPermissions() (TokenSet, error) {
	if !e.platformLoaded {
		set, err := e.mw.Aggregator.EffectivePermissions(e.req.Context(), e.actor, PlatformScope())
		if err != nil {
			return nil, err
		}
		e.platformSet, e.platformLoaded = set, true
	}
	return e.platformSet, nil
}

func (e *evaluation) companyPermissions() (TokenSet, error) {
	if !e.companyLoaded {
		set, err := e.mw.Aggregator.EffectivePermissions(e.req.Context(), e.actor, CompanyScope(e.resolution.CompanyID))
		if err != nil {
			return nil, err
		}
		e.companySet, e.companyLoaded = set, true
	}
	return e.companySet, nil
}

// fail handles a collaborator error: log with request context, answer 500.
func (e *evaluation) fail(w http.ResponseWriter, token string, err error) {
	e.mw.record(DecisionError)
	if e.mw.Logger != nil {
		e.mw.Logger.Error("authorization check failed",
			slog.Any("error", err),
			slog.Int64("actor_id", e.actor.ActorID()),
			slog.String("required_permission", token),
			slog.String("request_id", chimw.GetReqID(e.req.Context())))
	}
	httpx.Error(w, http.StatusInternalServerError, "Internal server error", "")
}

func (m Middleware) record(outcome string) {
	if m.Decisions != nil {
		m.Decisions.RecordAuthzDecision(outcome)
	}
}

type forbiddenSingleBody struct {
	Error              string `json:"error"`
	Message            string `json:"message"`
	RequiredPermission string `json:"requiredPermission"`
}

type forbiddenListBody struct {
	Error               string   `json:"error"`
	Message             string   `json:"message"`
	RequiredPermissions []string `json:"requiredPermissions"`
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	httpx.Error(w, http.StatusUnauthorized, "Unauthorized", message)
}

func writeForbiddenMessage(w http.ResponseWriter, message string) {
	httpx.Error(w, http.StatusForbidden, "Forbidden", message)
}

func writeForbiddenSingle(w http.ResponseWriter, token string) {
	httpx.JSON(w, http.StatusForbidden, forbiddenSingleBody{
		Error:              "Forbidden",
		Message:            "Missing required permission: " + token,
		RequiredPermission: token,
	})
}

func writeForbiddenList(w http.ResponseWriter, message string, tokens []string) {
	httpx.JSON(w, http.StatusForbidden, forbiddenListBody{
		Error:               "Forbidden",
		Message:             message,
		RequiredPermissions: tokens,
	})
}
