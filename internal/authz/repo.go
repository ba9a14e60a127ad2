package authz

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-saas/meridian/internal/shared"
)

// PGRoleRepository implements RoleRepository on PostgreSQL. Company roles
// carry their owning company on the roles row; assignments live in the
// user_roles join table.
type PGRoleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository constructs a PGRoleRepository.
func NewRoleRepository(pool *pgxpool.Pool) *PGRoleRepository {
	return &PGRoleRepository{pool: pool}
}

// FindCompanyRoles returns the COMPANY roles assigned to the user within
// one company.
func (r *PGRoleRepository) FindCompanyRoles(ctx context.Context, userID, companyID int64) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.type, r.name, r.permissions, r.company_permissions
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		  AND r.type = 'COMPANY'
		  AND r.company_id = $2
		  AND r.deleted_at IS NULL`, userID, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRoles(rows)
}

// FindPlatformRoles returns the PLATFORM roles assigned to the user,
// independent of any company.
func (r *PGRoleRepository) FindPlatformRoles(ctx context.Context, userID int64) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.type, r.name, r.permissions, r.company_permissions
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		  AND r.type = 'PLATFORM'
		  AND r.deleted_at IS NULL`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRoles(rows)
}

func scanRoles(rows pgx.Rows) ([]Role, error) {
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Type, &role.Name, &role.Permissions, &role.CompanyPermissions); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

var _ RoleRepository = (*PGRoleRepository)(nil)

// PGCompanyRepository implements CompanyRepository on PostgreSQL.
type PGCompanyRepository struct {
	pool *pgxpool.Pool
}

// NewCompanyRepository constructs a PGCompanyRepository.
func NewCompanyRepository(pool *pgxpool.Pool) *PGCompanyRepository {
	return &PGCompanyRepository{pool: pool}
}

// Get fetches company state. Deleted companies resolve as not found.
func (r *PGCompanyRepository) Get(ctx context.Context, companyID int64) (Company, error) {
	var company Company
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, is_active
		FROM companies
		WHERE id = $1 AND deleted_at IS NULL`, companyID).
		Scan(&company.ID, &company.Name, &company.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Company{}, shared.ErrNotFound
		}
		return Company{}, err
	}
	return company, nil
}

var _ CompanyRepository = (*PGCompanyRepository)(nil)

// PGAccessRestrictionRepository implements AccessRestrictionRepository on
// PostgreSQL.
type PGAccessRestrictionRepository struct {
	pool *pgxpool.Pool
}

// NewAccessRestrictionRepository constructs a PGAccessRestrictionRepository.
func NewAccessRestrictionRepository(pool *pgxpool.Pool) *PGAccessRestrictionRepository {
	return &PGAccessRestrictionRepository{pool: pool}
}

// ListFor returns every allow-list row of the user, revoked rows included.
func (r *PGAccessRestrictionRepository) ListFor(ctx context.Context, userID int64) ([]Restriction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT company_id, is_active
		FROM company_access_restrictions
		WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Restriction
	for rows.Next() {
		var row Restriction
		if err := rows.Scan(&row.CompanyID, &row.IsActive); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// TouchLastAccessed stamps the allow-list row after a successful switch.
func (r *PGAccessRestrictionRepository) TouchLastAccessed(ctx context.Context, userID, companyID int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE company_access_restrictions
		SET last_accessed_at = now()
		WHERE user_id = $1 AND company_id = $2`, userID, companyID)
	return err
}

var _ AccessRestrictionRepository = (*PGAccessRestrictionRepository)(nil)
