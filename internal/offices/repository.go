package offices

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-saas/meridian/internal/shared"
)

// RepositoryPort defines data access for offices. Every operation is
// keyed by the owning company.
type RepositoryPort interface {
	List(ctx context.Context, companyID int64, q shared.ListQuery) ([]Office, int, error)
	Get(ctx context.Context, id, companyID int64) (Office, error)
	Create(ctx context.Context, office Office) (Office, error)
	Update(ctx context.Context, id, companyID int64, office Office) (Office, error)
	SetActive(ctx context.Context, id, companyID int64, active bool) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const officeColumns = `id, company_id, name, address, phone, is_active, created_at, updated_at`

func scanOfficeRow(row pgx.Row) (Office, error) {
	var o Office
	err := row.Scan(&o.ID, &o.CompanyID, &o.Name, &o.Address, &o.Phone, &o.IsActive, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Office{}, shared.ErrNotFound
		}
		return Office{}, mapPGError(err)
	}
	return o, nil
}

// List returns the company's offices.
func (r *Repository) List(ctx context.Context, companyID int64, q shared.ListQuery) ([]Office, int, error) {
	pattern := "%" + q.Search + "%"
	rows, err := r.pool.Query(ctx, `
		SELECT `+officeColumns+`
		FROM offices
		WHERE company_id = $1 AND deleted_at IS NULL
		  AND ($2 = '%%' OR name ILIKE $2 OR address ILIKE $2)
		ORDER BY name
		LIMIT $3 OFFSET $4`, companyID, pattern, q.Limit, q.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Office
	for rows.Next() {
		office, err := scanOfficeRow(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, office)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	err = r.pool.QueryRow(ctx, `
		SELECT count(*) FROM offices
		WHERE company_id = $1 AND deleted_at IS NULL
		  AND ($2 = '%%' OR name ILIKE $2 OR address ILIKE $2)`, companyID, pattern).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Get fetches one office of the company.
func (r *Repository) Get(ctx context.Context, id, companyID int64) (Office, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+officeColumns+`
		FROM offices
		WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL`, id, companyID)
	return scanOfficeRow(row)
}

// Create inserts an office.
func (r *Repository) Create(ctx context.Context, office Office) (Office, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO offices (company_id, name, address, phone, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, now(), now())
		RETURNING `+officeColumns, office.CompanyID, office.Name, office.Address, office.Phone)
	return scanOfficeRow(row)
}

// Update rewrites name, address and phone.
func (r *Repository) Update(ctx context.Context, id, companyID int64, office Office) (Office, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE offices
		SET name = $3, address = $4, phone = $5, updated_at = now()
		WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL
		RETURNING `+officeColumns, id, companyID, office.Name, office.Address, office.Phone)
	return scanOfficeRow(row)
}

// SetActive flips the active flag.
func (r *Repository) SetActive(ctx context.Context, id, companyID int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE offices
		SET is_active = $3, updated_at = now()
		WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL`, id, companyID, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func mapPGError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrDuplicate
	}
	return err
}

var _ RepositoryPort = (*Repository)(nil)
