package authz

import "context"

// RoleType separates the two role tiers.
type RoleType string

const (
	// RoleTypeCompany roles belong to exactly one company and grant company
	// permissions to its users.
	RoleTypeCompany RoleType = "COMPANY"
	// RoleTypePlatform roles are company-independent and belong to internal
	// users only.
	RoleTypePlatform RoleType = "PLATFORM"
)

// Role is a named permission grouping. Permissions is the primary grant.
// CompanyPermissions applies to platform roles only: it is what the role
// grants while its holder operates inside a company context, and may
// contain the GrantAll sentinel.
type Role struct {
	ID                 int64
	Type               RoleType
	Name               string
	Permissions        []string
	CompanyPermissions []string
}

// Company is the slice of company state the engine needs.
type Company struct {
	ID       int64
	Name     string
	IsActive bool
}

// Restriction is one allow-list row limiting which companies an internal
// user may select. Zero rows for a user means unrestricted.
type Restriction struct {
	CompanyID int64
	IsActive  bool
}

// RoleRepository looks up role assignments. Company roles are scoped by
// company; platform roles are not.
type RoleRepository interface {
	FindCompanyRoles(ctx context.Context, userID, companyID int64) ([]Role, error)
	FindPlatformRoles(ctx context.Context, userID int64) ([]Role, error)
}

// CompanyRepository resolves company state. Get returns shared.ErrNotFound
// for unknown or deleted companies.
type CompanyRepository interface {
	Get(ctx context.Context, companyID int64) (Company, error)
}

// AccessRestrictionRepository manages the allow-list rows of internal
// users.
type AccessRestrictionRepository interface {
	ListFor(ctx context.Context, userID int64) ([]Restriction, error)
	TouchLastAccessed(ctx context.Context, userID, companyID int64) error
}
