package authz

import (
	"context"
	"errors"

	"github.com/meridian-saas/meridian/internal/shared"
)

// Switch operation failures, mapped to HTTP statuses by the handler.
var (
	ErrCompanyNotFound   = errors.New("authz: company not found")
	ErrCompanyInactive   = errors.New("authz: company inactive")
	ErrCompanyRestricted = errors.New("authz: company not in allow-list")
	ErrNotInternal       = errors.New("authz: company switching requires an internal account")
)

// Resolution is a usable company scope. Fixed marks a company actor's own
// company, as opposed to an internal actor's session selection.
type Resolution struct {
	CompanyID int64
	Fixed     bool
}

// Resolver determines which company a request operates against.
type Resolver struct {
	companies    CompanyRepository
	restrictions AccessRestrictionRepository
}

// NewResolver constructs a Resolver.
func NewResolver(companies CompanyRepository, restrictions AccessRestrictionRepository) *Resolver {
	return &Resolver{companies: companies, restrictions: restrictions}
}

// Resolve returns the actor's company scope. ok is false when no usable
// scope exists: an internal actor with no selection, a selection that went
// inactive or fell off the allow-list, or a company actor missing its
// fixed company (a broken invariant the middleware reports as 401).
func (r *Resolver) Resolve(ctx context.Context, actor Actor, sess *shared.Session) (Resolution, bool, error) {
	switch ac := actor.(type) {
	case CompanyActor:
		if ac.CompanyID == 0 {
			return Resolution{}, false, nil
		}
		return Resolution{CompanyID: ac.CompanyID, Fixed: true}, true, nil
	case InternalActor:
		if sess == nil {
			return Resolution{}, false, nil
		}
		companyID := sess.ActiveCompany()
		if companyID == 0 {
			return Resolution{}, false, nil
		}
		company, err := r.companies.Get(ctx, companyID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return Resolution{}, false, nil
			}
			return Resolution{}, false, err
		}
		if !company.IsActive {
			return Resolution{}, false, nil
		}
		allowed, restricted, err := r.allowListed(ctx, ac.UserID, companyID)
		if err != nil {
			return Resolution{}, false, err
		}
		if restricted && !allowed {
			return Resolution{}, false, nil
		}
		return Resolution{CompanyID: companyID}, true, nil
	default:
		return Resolution{}, false, nil
	}
}

// SwitchCompany validates the target and records it as the session's
// active company. The session is only written after every check passes.
func (r *Resolver) SwitchCompany(ctx context.Context, actor Actor, sess *shared.Session, targetID int64) (Company, error) {
	internal, ok := actor.(InternalActor)
	if !ok {
		return Company{}, ErrNotInternal
	}
	company, err := r.companies.Get(ctx, targetID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Company{}, ErrCompanyNotFound
		}
		return Company{}, err
	}
	if !company.IsActive {
		return Company{}, ErrCompanyInactive
	}
	allowed, restricted, err := r.allowListed(ctx, internal.UserID, targetID)
	if err != nil {
		return Company{}, err
	}
	if restricted {
		if !allowed {
			return Company{}, ErrCompanyRestricted
		}
		if err := r.restrictions.TouchLastAccessed(ctx, internal.UserID, targetID); err != nil {
			return Company{}, err
		}
	}
	sess.SetActiveCompany(targetID)
	return company, nil
}

// ExitCompany clears the session selection. Company actors have no
// selection to clear; the operation is a no-op for them.
func (r *Resolver) ExitCompany(actor Actor, sess *shared.Session) {
	if _, ok := actor.(InternalActor); !ok {
		return
	}
	if sess != nil {
		sess.ClearActiveCompany()
	}
}

// allowListed reports whether the company is on the user's allow-list and
// whether the user is restricted at all. Zero rows means unrestricted;
// one or more rows restrict the user to exactly the listed, active rows.
func (r *Resolver) allowListed(ctx context.Context, userID, companyID int64) (allowed, restricted bool, err error) {
	rows, err := r.restrictions.ListFor(ctx, userID)
	if err != nil {
		return false, false, err
	}
	if len(rows) == 0 {
		return false, false, nil
	}
	for _, row := range rows {
		if row.CompanyID == companyID && row.IsActive {
			return true, true, nil
		}
	}
	return false, true, nil
}
