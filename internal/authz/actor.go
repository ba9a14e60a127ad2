package authz

import "context"

// Actor is the authenticated principal of a request. The union is closed:
// exactly CompanyActor and InternalActor implement it, and consumers
// dispatch with exhaustive type switches.
type Actor interface {
	ActorID() int64
	sealedActor()
}

// CompanyActor is a user permanently bound to one company. Its company id
// is fixed at account creation and never session-selected.
type CompanyActor struct {
	UserID    int64
	CompanyID int64
}

// ActorID returns the user id.
func (a CompanyActor) ActorID() int64 { return a.UserID }

func (CompanyActor) sealedActor() {}

// InternalActor is platform staff. It operates across companies via a
// session-selected active company.
type InternalActor struct {
	UserID int64
}

// ActorID returns the user id.
func (a InternalActor) ActorID() int64 { return a.UserID }

func (InternalActor) sealedActor() {}

type actorContextKey struct{}

type scopeContextKey struct{}

// ContextWithActor attaches the immutable actor value for the request.
// It is set once by the authentication middleware and never mutated.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the request actor, if one was authenticated.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}

// ContextWithScope records the company scope a request was authorized
// against, so downstream handlers query the right tenant.
func ContextWithScope(ctx context.Context, companyID int64) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, companyID)
}

// ScopeFromContext returns the authorized company scope.
func ScopeFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(scopeContextKey{}).(int64)
	return id, ok
}
