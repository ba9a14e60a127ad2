package roles

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/meridian-saas/meridian/internal/authz"
	"github.com/meridian-saas/meridian/internal/shared"
)

// Service handles role administration logic. Grant lists are validated
// for token form here so malformed tokens never reach the roles table.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListCompanyRoles returns the COMPANY roles of one company.
func (s *Service) ListCompanyRoles(ctx context.Context, companyID int64) ([]Role, error) {
	return s.repo.ListByCompany(ctx, companyID)
}

// GetCompanyRole fetches one COMPANY role of the company.
func (s *Service) GetCompanyRole(ctx context.Context, id, companyID int64) (Role, error) {
	return s.repo.GetInCompany(ctx, id, companyID)
}

// CreateCompanyRole validates and inserts a role bound to the company.
// Company roles may not hold platform tokens or the grant-all sentinel.
func (s *Service) CreateCompanyRole(ctx context.Context, companyID int64, name, description string, permissions []string) (Role, error) {
	role, err := buildRole(name, description, permissions, nil, false)
	if err != nil {
		return Role{}, err
	}
	role.Type = authz.RoleTypeCompany
	role.CompanyID = companyID
	return s.repo.CreateCompanyRole(ctx, role)
}

// UpdateCompanyRole rewrites a company role.
func (s *Service) UpdateCompanyRole(ctx context.Context, id, companyID int64, name, description string, permissions []string) (Role, error) {
	role, err := buildRole(name, description, permissions, nil, false)
	if err != nil {
		return Role{}, err
	}
	return s.repo.UpdateInCompany(ctx, id, companyID, role)
}

// DeleteCompanyRole soft deletes the role. Users holding it lose its
// grants on their next request.
func (s *Service) DeleteCompanyRole(ctx context.Context, id, companyID int64) error {
	return s.repo.DeleteInCompany(ctx, id, companyID)
}

// ListPlatformRoles returns the PLATFORM roles.
func (s *Service) ListPlatformRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListPlatform(ctx)
}

// GetPlatformRole fetches one PLATFORM role.
func (s *Service) GetPlatformRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetPlatform(ctx, id)
}

// CreatePlatformRole validates and inserts a platform role. Its company
// permission list may carry the grant-all sentinel.
func (s *Service) CreatePlatformRole(ctx context.Context, name, description string, permissions, companyPermissions []string) (Role, error) {
	role, err := buildRole(name, description, permissions, companyPermissions, true)
	if err != nil {
		return Role{}, err
	}
	role.Type = authz.RoleTypePlatform
	return s.repo.CreatePlatformRole(ctx, role)
}

// UpdatePlatformRole rewrites a platform role.
func (s *Service) UpdatePlatformRole(ctx context.Context, id int64, name, description string, permissions, companyPermissions []string) (Role, error) {
	role, err := buildRole(name, description, permissions, companyPermissions, true)
	if err != nil {
		return Role{}, err
	}
	return s.repo.UpdatePlatform(ctx, id, role)
}

// DeletePlatformRole soft deletes the role.
func (s *Service) DeletePlatformRole(ctx context.Context, id int64) error {
	return s.repo.DeletePlatform(ctx, id)
}

func buildRole(name, description string, permissions, companyPermissions []string, platform bool) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	perms, err := normalizeTokens(permissions, false)
	if err != nil {
		return Role{}, err
	}
	if !platform {
		for _, t := range perms {
			if authz.IsPlatform(t) {
				return Role{}, fmt.Errorf("%w: company roles may not grant platform permission %q", shared.ErrValidation, t)
			}
		}
		return Role{Name: name, Description: strings.TrimSpace(description), Permissions: perms}, nil
	}
	companyPerms, err := normalizeTokens(companyPermissions, true)
	if err != nil {
		return Role{}, err
	}
	for _, t := range companyPerms {
		if t != authz.GrantAll && authz.IsPlatform(t) {
			return Role{}, fmt.Errorf("%w: company permission list may not hold platform token %q", shared.ErrValidation, t)
		}
	}
	return Role{
		Name:               name,
		Description:        strings.TrimSpace(description),
		Permissions:        perms,
		CompanyPermissions: companyPerms,
	}, nil
}

// normalizeTokens trims, deduplicates and sorts a grant list. The bare
// sentinel is legal only where allowSentinel is set.
func normalizeTokens(tokens []string, allowSentinel bool) ([]string, error) {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if t == authz.GrantAll {
			if !allowSentinel {
				return nil, fmt.Errorf("%w: %q is not a permission token", shared.ErrValidation, t)
			}
		} else if !authz.WellFormed(t) {
			return nil, fmt.Errorf("%w: malformed permission token %q", shared.ErrValidation, t)
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}
