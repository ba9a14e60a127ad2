package users

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-saas/meridian/internal/shared"
)

// Service handles user administration logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListCompanyUsers returns the users of one company.
func (s *Service) ListCompanyUsers(ctx context.Context, companyID int64, q shared.ListQuery) ([]User, int, error) {
	return s.repo.ListByCompany(ctx, companyID, q)
}

// GetCompanyUser fetches one user of the company.
func (s *Service) GetCompanyUser(ctx context.Context, id, companyID int64) (User, error) {
	return s.repo.GetInCompany(ctx, id, companyID)
}

// CreateCompanyUser validates input, hashes the initial password and
// inserts the account bound to the company.
func (s *Service) CreateCompanyUser(ctx context.Context, companyID int64, name, email, password string) (User, error) {
	name, email, err := normalizeIdentity(name, email)
	if err != nil {
		return User{}, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return User{}, err
	}
	return s.repo.CreateCompanyUser(ctx, User{Name: name, Email: email, CompanyID: companyID}, hash)
}

// UpdateCompanyUser rewrites name and email.
func (s *Service) UpdateCompanyUser(ctx context.Context, id, companyID int64, name, email string) (User, error) {
	name, email, err := normalizeIdentity(name, email)
	if err != nil {
		return User{}, err
	}
	return s.repo.UpdateInCompany(ctx, id, companyID, name, email)
}

// DeactivateCompanyUser disables the account. Their sessions stop
// resolving to an actor on the next request.
func (s *Service) DeactivateCompanyUser(ctx context.Context, id, companyID int64) error {
	return s.repo.SetActiveInCompany(ctx, id, companyID, false)
}

// ActivateCompanyUser re-enables the account.
func (s *Service) ActivateCompanyUser(ctx context.Context, id, companyID int64) error {
	return s.repo.SetActiveInCompany(ctx, id, companyID, true)
}

// AssignRole attaches a company role of the same company to the user.
func (s *Service) AssignRole(ctx context.Context, userID, companyID, roleID int64) error {
	return s.repo.AssignCompanyRole(ctx, userID, companyID, roleID)
}

// RemoveRole detaches a role.
func (s *Service) RemoveRole(ctx context.Context, userID, roleID int64) error {
	return s.repo.RemoveRole(ctx, userID, roleID)
}

// Roles lists a user's attached roles.
func (s *Service) Roles(ctx context.Context, userID int64) ([]RoleRef, error) {
	return s.repo.ListRoles(ctx, userID)
}

// ListInternalUsers returns platform staff accounts.
func (s *Service) ListInternalUsers(ctx context.Context, q shared.ListQuery) ([]User, int, error) {
	return s.repo.ListInternal(ctx, q)
}

// CreateInternalUser inserts a platform staff account.
func (s *Service) CreateInternalUser(ctx context.Context, name, email, password string) (User, error) {
	name, email, err := normalizeIdentity(name, email)
	if err != nil {
		return User{}, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return User{}, err
	}
	return s.repo.CreateInternalUser(ctx, User{Name: name, Email: email}, hash)
}

// AssignPlatformRole attaches a platform role to an internal user.
func (s *Service) AssignPlatformRole(ctx context.Context, userID, roleID int64) error {
	return s.repo.AssignPlatformRole(ctx, userID, roleID)
}

// Restrictions lists the allow-list of an internal user.
func (s *Service) Restrictions(ctx context.Context, userID int64) ([]Restriction, error) {
	return s.repo.ListRestrictions(ctx, userID)
}

// RestrictTo adds a company to the user's allow-list. The first row flips
// the user from unrestricted to restricted.
func (s *Service) RestrictTo(ctx context.Context, userID, companyID int64) error {
	return s.repo.AddRestriction(ctx, userID, companyID)
}

// RevokeRestriction disables one allow-list row.
func (s *Service) RevokeRestriction(ctx context.Context, userID, companyID int64) error {
	return s.repo.RevokeRestriction(ctx, userID, companyID)
}

// RemoveRestriction deletes one allow-list row entirely.
func (s *Service) RemoveRestriction(ctx context.Context, userID, companyID int64) error {
	return s.repo.RemoveRestriction(ctx, userID, companyID)
}

func normalizeIdentity(name, email string) (string, string, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return "", "", fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	if email == "" || !strings.Contains(email, "@") {
		return "", "", fmt.Errorf("%w: a valid email is required", shared.ErrValidation)
	}
	return name, email, nil
}

func hashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", fmt.Errorf("%w: password must be at least 8 characters", shared.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
