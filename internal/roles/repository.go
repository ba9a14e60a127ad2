package roles

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-saas/meridian/internal/shared"
)

// RepositoryPort defines data access for role administration.
type RepositoryPort interface {
	ListByCompany(ctx context.Context, companyID int64) ([]Role, error)
	GetInCompany(ctx context.Context, id, companyID int64) (Role, error)
	CreateCompanyRole(ctx context.Context, role Role) (Role, error)
	UpdateInCompany(ctx context.Context, id, companyID int64, role Role) (Role, error)
	DeleteInCompany(ctx context.Context, id, companyID int64) error

	ListPlatform(ctx context.Context) ([]Role, error)
	GetPlatform(ctx context.Context, id int64) (Role, error)
	CreatePlatformRole(ctx context.Context, role Role) (Role, error)
	UpdatePlatform(ctx context.Context, id int64, role Role) (Role, error)
	DeletePlatform(ctx context.Context, id int64) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const roleColumns = `id, type, name, description, company_id, permissions, company_permissions, created_at, updated_at`

func scanRoleRow(row pgx.Row) (Role, error) {
	var (
		role      Role
		companyID pgtype.Int8
	)
	err := row.Scan(&role.ID, &role.Type, &role.Name, &role.Description, &companyID,
		&role.Permissions, &role.CompanyPermissions, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, mapPGError(err)
	}
	role.CompanyID = companyID.Int64
	return role, nil
}

func collectRoles(rows pgx.Rows) ([]Role, error) {
	var out []Role
	for rows.Next() {
		role, err := scanRoleRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByCompany returns the COMPANY roles of one company.
func (r *Repository) ListByCompany(ctx context.Context, companyID int64) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+roleColumns+`
		FROM roles
		WHERE type = 'COMPANY' AND company_id = $1 AND deleted_at IS NULL
		ORDER BY name`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRoles(rows)
}

// GetInCompany fetches one COMPANY role of the company.
func (r *Repository) GetInCompany(ctx context.Context, id, companyID int64) (Role, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+roleColumns+`
		FROM roles
		WHERE id = $1 AND type = 'COMPANY' AND company_id = $2 AND deleted_at IS NULL`, id, companyID)
	return scanRoleRow(row)
}

// CreateCompanyRole inserts a COMPANY role bound to its company.
func (r *Repository) CreateCompanyRole(ctx context.Context, role Role) (Role, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO roles (type, name, description, company_id, permissions, company_permissions, created_at, updated_at)
		VALUES ('COMPANY', $1, $2, $3, $4, '{}', now(), now())
		RETURNING `+roleColumns, role.Name, role.Description, role.CompanyID, role.Permissions)
	return scanRoleRow(row)
}

// UpdateInCompany rewrites name, description and permissions.
func (r *Repository) UpdateInCompany(ctx context.Context, id, companyID int64, role Role) (Role, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE roles
		SET name = $3, description = $4, permissions = $5, updated_at = now()
		WHERE id = $1 AND type = 'COMPANY' AND company_id = $2 AND deleted_at IS NULL
		RETURNING `+roleColumns, id, companyID, role.Name, role.Description, role.Permissions)
	return scanRoleRow(row)
}

// DeleteInCompany soft deletes the role and drops its assignments.
func (r *Repository) DeleteInCompany(ctx context.Context, id, companyID int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE roles
		SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND type = 'COMPANY' AND company_id = $2 AND deleted_at IS NULL`, id, companyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	_, err = r.pool.Exec(ctx, `DELETE FROM user_roles WHERE role_id = $1`, id)
	return err
}

// ListPlatform returns the PLATFORM roles.
func (r *Repository) ListPlatform(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+roleColumns+`
		FROM roles
		WHERE type = 'PLATFORM' AND deleted_at IS NULL
		ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRoles(rows)
}

// GetPlatform fetches one PLATFORM role.
func (r *Repository) GetPlatform(ctx context.Context, id int64) (Role, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+roleColumns+`
		FROM roles
		WHERE id = $1 AND type = 'PLATFORM' AND deleted_at IS NULL`, id)
	return scanRoleRow(row)
}

// CreatePlatformRole inserts a PLATFORM role.
func (r *Repository) CreatePlatformRole(ctx context.Context, role Role) (Role, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO roles (type, name, description, permissions, company_permissions, created_at, updated_at)
		VALUES ('PLATFORM', $1, $2, $3, $4, now(), now())
		RETURNING `+roleColumns, role.Name, role.Description, role.Permissions, role.CompanyPermissions)
	return scanRoleRow(row)
}

// UpdatePlatform rewrites name, description and both grant lists.
func (r *Repository) UpdatePlatform(ctx context.Context, id int64, role Role) (Role, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE roles
		SET name = $2, description = $3, permissions = $4, company_permissions = $5, updated_at = now()
		WHERE id = $1 AND type = 'PLATFORM' AND deleted_at IS NULL
		RETURNING `+roleColumns, id, role.Name, role.Description, role.Permissions, role.CompanyPermissions)
	return scanRoleRow(row)
}

// DeletePlatform soft deletes the role and drops its assignments.
func (r *Repository) DeletePlatform(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE roles
		SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND type = 'PLATFORM' AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	_, err = r.pool.Exec(ctx, `DELETE FROM user_roles WHERE role_id = $1`, id)
	return err
}

func mapPGError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrDuplicate
	}
	return err
}

var _ RepositoryPort = (*Repository)(nil)
