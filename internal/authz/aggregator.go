package authz

import (
	"context"
	"fmt"
)

// Scope selects which permission tier a set is computed for.
type Scope struct {
	Platform  bool
	CompanyID int64
}

// PlatformScope evaluates platform permissions, which are context-free.
func PlatformScope() Scope {
	return Scope{Platform: true}
}

// CompanyScope evaluates company permissions inside the given company.
func CompanyScope(companyID int64) Scope {
	return Scope{CompanyID: companyID}
}

// Aggregator computes the effective permission set of an actor in a scope.
// Role permission sets union at evaluation time; there is no precedence
// between roles.
type Aggregator struct {
	roles RoleRepository
}

// NewAggregator constructs an Aggregator.
func NewAggregator(roles RoleRepository) *Aggregator {
	return &Aggregator{roles: roles}
}

// EffectivePermissions returns the union of permission tokens the actor
// holds in the scope. Results are consistent within one lookup; callers
// compute once per request and reuse for compound checks.
func (a *Aggregator) EffectivePermissions(ctx context.Context, actor Actor, scope Scope) (TokenSet, error) {
	set := NewTokenSet()
	switch ac := actor.(type) {
	case CompanyActor:
		// Company users hold no platform permissions, and their roles only
		// apply inside their own company.
		if scope.Platform || scope.CompanyID != ac.CompanyID {
			return set, nil
		}
		roles, err := a.roles.FindCompanyRoles(ctx, ac.UserID, scope.CompanyID)
		if err != nil {
			return nil, err
		}
		for _, role := range roles {
			if role.Type != RoleTypeCompany {
				continue
			}
			set.Add(role.Permissions...)
		}
		return set, nil
	case InternalActor:
		roles, err := a.roles.FindPlatformRoles(ctx, ac.UserID)
		if err != nil {
			return nil, err
		}
		for _, role := range roles {
			if role.Type != RoleTypePlatform {
				continue
			}
			if scope.Platform {
				set.Add(role.Permissions...)
			} else {
				set.Add(role.CompanyPermissions...)
			}
		}
		return set, nil
	default:
		return nil, fmt.Errorf("authz: unknown actor type %T", actor)
	}
}
