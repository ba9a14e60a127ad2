package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-saas/meridian/internal/shared"
)

// RepositoryPort defines data access for user administration.
type RepositoryPort interface {
	ListByCompany(ctx context.Context, companyID int64, q shared.ListQuery) ([]User, int, error)
	GetInCompany(ctx context.Context, id, companyID int64) (User, error)
	CreateCompanyUser(ctx context.Context, user User, passwordHash string) (User, error)
	UpdateInCompany(ctx context.Context, id, companyID int64, name, email string) (User, error)
	SetActiveInCompany(ctx context.Context, id, companyID int64, active bool) error
	AssignCompanyRole(ctx context.Context, userID, companyID, roleID int64) error
	RemoveRole(ctx context.Context, userID, roleID int64) error
	ListRoles(ctx context.Context, userID int64) ([]RoleRef, error)

	ListInternal(ctx context.Context, q shared.ListQuery) ([]User, int, error)
	CreateInternalUser(ctx context.Context, user User, passwordHash string) (User, error)
	AssignPlatformRole(ctx context.Context, userID, roleID int64) error

	ListRestrictions(ctx context.Context, userID int64) ([]Restriction, error)
	AddRestriction(ctx context.Context, userID, companyID int64) error
	RevokeRestriction(ctx context.Context, userID, companyID int64) error
	RemoveRestriction(ctx context.Context, userID, companyID int64) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, name, user_type, company_id, is_active, created_at, updated_at`

func scanUserRow(row pgx.Row) (User, error) {
	var (
		u         User
		companyID pgtype.Int8
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Type, &companyID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, mapPGError(err)
	}
	u.CompanyID = companyID.Int64
	return u, nil
}

// ListByCompany returns the company's users.
func (r *Repository) ListByCompany(ctx context.Context, companyID int64, q shared.ListQuery) ([]User, int, error) {
	pattern := "%" + q.Search + "%"
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE company_id = $1 AND user_type = 'COMPANY' AND deleted_at IS NULL
		  AND ($2 = '%%' OR name ILIKE $2 OR email ILIKE $2)
		ORDER BY name
		LIMIT $3 OFFSET $4`, companyID, pattern, q.Limit, q.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	users, err := collectUsers(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int
	err = r.pool.QueryRow(ctx, `
		SELECT count(*) FROM users
		WHERE company_id = $1 AND user_type = 'COMPANY' AND deleted_at IS NULL
		  AND ($2 = '%%' OR name ILIKE $2 OR email ILIKE $2)`, companyID, pattern).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// GetInCompany fetches one user scoped to the company.
func (r *Repository) GetInCompany(ctx context.Context, id, companyID int64) (User, error) {
	return scanUserRow(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1 AND company_id = $2 AND user_type = 'COMPANY' AND deleted_at IS NULL`,
		id, companyID))
}

// CreateCompanyUser inserts a company-bound account.
func (r *Repository) CreateCompanyUser(ctx context.Context, user User, passwordHash string) (User, error) {
	return scanUserRow(r.pool.QueryRow(ctx, `
		INSERT INTO users (email, name, password_hash, user_type, company_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, 'COMPANY', $4, TRUE, now(), now())
		RETURNING `+userColumns, user.Email, user.Name, passwordHash, user.CompanyID))
}

// UpdateInCompany rewrites name and email for a company user.
func (r *Repository) UpdateInCompany(ctx context.Context, id, companyID int64, name, email string) (User, error) {
	return scanUserRow(r.pool.QueryRow(ctx, `
		UPDATE users
		SET name = $3, email = $4, updated_at = now()
		WHERE id = $1 AND company_id = $2 AND user_type = 'COMPANY' AND deleted_at IS NULL
		RETURNING `+userColumns, id, companyID, name, email))
}

// SetActiveInCompany flips a company user's activation flag.
func (r *Repository) SetActiveInCompany(ctx context.Context, id, companyID int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET is_active = $3, updated_at = now()
		WHERE id = $1 AND company_id = $2 AND user_type = 'COMPANY' AND deleted_at IS NULL`,
		id, companyID, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// AssignCompanyRole attaches a role to a user. The role must be a COMPANY
// role owned by the same company; anything else resolves as not found.
func (r *Repository) AssignCompanyRole(ctx context.Context, userID, companyID, roleID int64) error {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id, created_at)
		SELECT u.id, ro.id, now()
		FROM users u, roles ro
		WHERE u.id = $1 AND u.company_id = $2 AND u.deleted_at IS NULL
		  AND ro.id = $3 AND ro.type = 'COMPANY' AND ro.company_id = $2 AND ro.deleted_at IS NULL
		ON CONFLICT (user_id, role_id) DO NOTHING`, userID, companyID, roleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// RemoveRole detaches a role from a user.
func (r *Repository) RemoveRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	return err
}

// ListRoles returns the roles attached to a user.
func (r *Repository) ListRoles(ctx context.Context, userID int64) ([]RoleRef, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ro.id, ro.name
		FROM roles ro
		JOIN user_roles ur ON ur.role_id = ro.id
		WHERE ur.user_id = $1 AND ro.deleted_at IS NULL
		ORDER BY ro.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var refs []RoleRef
	for rows.Next() {
		var ref RoleRef
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// ListInternal returns platform staff accounts.
func (r *Repository) ListInternal(ctx context.Context, q shared.ListQuery) ([]User, int, error) {
	pattern := "%" + q.Search + "%"
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE user_type = 'INTERNAL' AND deleted_at IS NULL
		  AND ($1 = '%%' OR name ILIKE $1 OR email ILIKE $1)
		ORDER BY name
		LIMIT $2 OFFSET $3`, pattern, q.Limit, q.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	users, err := collectUsers(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int
	err = r.pool.QueryRow(ctx, `
		SELECT count(*) FROM users
		WHERE user_type = 'INTERNAL' AND deleted_at IS NULL
		  AND ($1 = '%%' OR name ILIKE $1 OR email ILIKE $1)`, pattern).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// CreateInternalUser inserts a platform staff account.
func (r *Repository) CreateInternalUser(ctx context.Context, user User, passwordHash string) (User, error) {
	return scanUserRow(r.pool.QueryRow(ctx, `
		INSERT INTO users (email, name, password_hash, user_type, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, 'INTERNAL', TRUE, now(), now())
		RETURNING `+userColumns, user.Email, user.Name, passwordHash))
}

// AssignPlatformRole attaches a PLATFORM role to an internal user.
func (r *Repository) AssignPlatformRole(ctx context.Context, userID, roleID int64) error {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id, created_at)
		SELECT u.id, ro.id, now()
		FROM users u, roles ro
		WHERE u.id = $1 AND u.user_type = 'INTERNAL' AND u.deleted_at IS NULL
		  AND ro.id = $2 AND ro.type = 'PLATFORM' AND ro.deleted_at IS NULL
		ON CONFLICT (user_id, role_id) DO NOTHING`, userID, roleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListRestrictions returns the allow-list of an internal user.
func (r *Repository) ListRestrictions(ctx context.Context, userID int64) ([]Restriction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT cr.company_id, c.name, cr.is_active, cr.last_accessed_at, cr.created_at
		FROM company_access_restrictions cr
		JOIN companies c ON c.id = cr.company_id
		WHERE cr.user_id = $1
		ORDER BY c.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Restriction
	for rows.Next() {
		var (
			row      Restriction
			accessed pgtype.Timestamptz
		)
		if err := rows.Scan(&row.CompanyID, &row.CompanyName, &row.IsActive, &accessed, &row.CreatedAt); err != nil {
			return nil, err
		}
		if accessed.Valid {
			t := accessed.Time
			row.LastAccessedAt = &t
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// AddRestriction inserts or re-activates an allow-list row.
func (r *Repository) AddRestriction(ctx context.Context, userID, companyID int64) error {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO company_access_restrictions (user_id, company_id, is_active, created_at)
		SELECT u.id, c.id, TRUE, now()
		FROM users u, companies c
		WHERE u.id = $1 AND u.user_type = 'INTERNAL' AND u.deleted_at IS NULL
		  AND c.id = $2 AND c.deleted_at IS NULL
		ON CONFLICT (user_id, company_id) DO UPDATE SET is_active = TRUE`, userID, companyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// RevokeRestriction disables one row without forgetting its history.
func (r *Repository) RevokeRestriction(ctx context.Context, userID, companyID int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE company_access_restrictions SET is_active = FALSE
		WHERE user_id = $1 AND company_id = $2`, userID, companyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// RemoveRestriction deletes one row. Removing the last row returns the
// user to unrestricted access.
func (r *Repository) RemoveRestriction(ctx context.Context, userID, companyID int64) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM company_access_restrictions
		WHERE user_id = $1 AND company_id = $2`, userID, companyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func collectUsers(rows pgx.Rows) ([]User, error) {
	var users []User
	for rows.Next() {
		var (
			u         User
			companyID pgtype.Int8
		)
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Type, &companyID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		u.CompanyID = companyID.Int64
		users = append(users, u)
	}
	return users, rows.Err()
}

func mapPGError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrDuplicate
	}
	return err
}

var _ RepositoryPort = (*Repository)(nil)
